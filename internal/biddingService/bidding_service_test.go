package bidding

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/require"

	"auction-house/internal/access"
	"auction-house/internal/auctionerrors"
	"auction-house/internal/ledger"
	model "auction-house/internal/models"
	"auction-house/internal/notify"
)

type fixture struct {
	service *BiddingService
	store   *ledger.MemoryLedger
	mock    *notify.MockDispatcher
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)

	store := ledger.NewMemoryLedger()
	mock := notify.NewMockDispatcher(ctrl)
	gate := access.NewGate(store, []string{"admin-1"}, mock)

	require.NoError(t, store.SetStatus(model.SystemStatus{SubmissionsOpen: true, AuctionsOpen: true}))
	return &fixture{
		service: NewBiddingService(store, gate, mock),
		store:   store,
		mock:    mock,
	}
}

func (f *fixture) verify(t *testing.T, userID, name string) {
	t.Helper()
	require.NoError(t, f.store.PutVerifiedUser(model.VerifiedUser{
		UserID:      userID,
		DisplayName: name,
		VerifiedBy:  "admin-1",
		VerifiedAt:  time.Now().UTC(),
	}))
}

func (f *fixture) seedAuction(t *testing.T, auctionID string, basePrice int64) {
	t.Helper()
	require.NoError(t, f.store.PutAuction(model.Auction{
		AuctionID:       auctionID,
		ItemDescription: "Dratini\nNature: Adamant",
		Category:        model.CategoryNonLegendary,
		BasePrice:       basePrice,
		Status:          model.AuctionActive,
		SellerID:        "seller-1",
		SellerName:      "Seller",
		CreatedAt:       time.Now().UTC(),
	}))
}

func TestPlaceBid_FirstBidFromBasePrice(t *testing.T) {
	f := newFixture(t)
	f.verify(t, "user-1", "Ash")
	f.seedAuction(t, "a1", 0)

	_, err := f.service.PlaceBid("a1", "user-1", "Ash", "999")
	require.ErrorIs(t, err, auctionerrors.ErrBidTooLow)

	result, err := f.service.PlaceBid("a1", "user-1", "Ash", "1k")
	require.NoError(t, err)
	require.Equal(t, int64(1000), result.Bid.Amount)
	require.True(t, result.Auction.HasBid)
	require.Equal(t, "user-1", result.Auction.CurrentLeaderID)
	require.Empty(t, result.PreviousLeaderID)
}

func TestPlaceBid_IncrementLadder(t *testing.T) {
	f := newFixture(t)
	f.verify(t, "user-1", "Ash")
	f.verify(t, "user-2", "Misty")
	f.seedAuction(t, "a1", 0)

	_, err := f.service.PlaceBid("a1", "user-1", "Ash", "1000")
	require.NoError(t, err)

	// the ladder is keyed off the current amount, 1000 needs +1000
	_, err = f.service.PlaceBid("a1", "user-2", "Misty", "1500")
	require.ErrorIs(t, err, auctionerrors.ErrBidTooLow)

	var tooLow *BidTooLowError
	require.ErrorAs(t, err, &tooLow)
	require.Equal(t, int64(1000), tooLow.Baseline)
	require.Equal(t, int64(2000), tooLow.MinBid)
	require.Equal(t, int64(1500), tooLow.Offered)

	f.mock.EXPECT().Notify("user-1", gomock.Any()).Return(nil)
	result, err := f.service.PlaceBid("a1", "user-2", "Misty", "2,500")
	require.NoError(t, err)
	require.Equal(t, int64(2500), result.Bid.Amount)
	require.Equal(t, "user-1", result.PreviousLeaderID)
	require.Equal(t, "Ash", result.Auction.PreviousLeaderName)
}

func TestPlaceBid_SelfOutbidSkipsNotification(t *testing.T) {
	f := newFixture(t)
	f.verify(t, "user-1", "Ash")
	f.seedAuction(t, "a1", 0)

	_, err := f.service.PlaceBid("a1", "user-1", "Ash", "1000")
	require.NoError(t, err)

	// no Notify expectation: raising your own bid must not page you
	result, err := f.service.PlaceBid("a1", "user-1", "Ash", "2000")
	require.NoError(t, err)
	require.Equal(t, "user-1", result.PreviousLeaderID)
}

func TestPlaceBid_DeliveryFailureDoesNotRollBack(t *testing.T) {
	f := newFixture(t)
	f.verify(t, "user-1", "Ash")
	f.verify(t, "user-2", "Misty")
	f.seedAuction(t, "a1", 0)

	_, err := f.service.PlaceBid("a1", "user-1", "Ash", "1000")
	require.NoError(t, err)

	f.mock.EXPECT().Notify("user-1", gomock.Any()).Return(errors.New("recipient unreachable"))
	result, err := f.service.PlaceBid("a1", "user-2", "Misty", "2000")
	require.NoError(t, err)
	require.Equal(t, int64(2000), result.Auction.CurrentBid)

	auction, err := f.store.GetAuction("a1")
	require.NoError(t, err)
	require.Equal(t, "user-2", auction.CurrentLeaderID)
}

func TestPlaceBid_Eligibility(t *testing.T) {
	f := newFixture(t)
	f.seedAuction(t, "a1", 0)

	_, err := f.service.PlaceBid("a1", "stranger", "Nobody", "1000")
	require.ErrorIs(t, err, auctionerrors.ErrNotVerified)

	// admins bid without a verification record
	_, err = f.service.PlaceBid("a1", "admin-1", "Admin", "1000")
	require.NoError(t, err)
}

func TestPlaceBid_AuctionsClosed(t *testing.T) {
	f := newFixture(t)
	f.verify(t, "user-1", "Ash")
	f.seedAuction(t, "a1", 0)
	require.NoError(t, f.store.SetStatus(model.SystemStatus{SubmissionsOpen: true, AuctionsOpen: false}))

	_, err := f.service.PlaceBid("a1", "user-1", "Ash", "1000")
	require.ErrorIs(t, err, auctionerrors.ErrAuctionsClosed)
}

func TestPlaceBid_InactiveAuction(t *testing.T) {
	f := newFixture(t)
	f.verify(t, "user-1", "Ash")
	f.seedAuction(t, "a1", 0)

	auction, err := f.store.GetAuction("a1")
	require.NoError(t, err)
	auction.Status = model.AuctionEnded
	require.NoError(t, f.store.PutAuction(auction))

	_, err = f.service.PlaceBid("a1", "user-1", "Ash", "1000")
	require.ErrorIs(t, err, auctionerrors.ErrAuctionNotActive)

	_, err = f.service.PlaceBid("missing", "user-1", "Ash", "1000")
	require.ErrorIs(t, err, auctionerrors.ErrAuctionNotFound)
}

func TestPlaceBid_InvalidAmount(t *testing.T) {
	f := newFixture(t)
	f.verify(t, "user-1", "Ash")
	f.seedAuction(t, "a1", 0)

	for _, raw := range []string{"", "abc", "1.2.3"} {
		_, err := f.service.PlaceBid("a1", "user-1", "Ash", raw)
		require.ErrorIs(t, err, auctionerrors.ErrInvalidAmount, "raw %q", raw)
	}

	// negative numbers parse but never clear the ladder
	_, err := f.service.PlaceBid("a1", "user-1", "Ash", "-500")
	require.ErrorIs(t, err, auctionerrors.ErrBidTooLow)
}

func TestPlaceBid_ConcurrentNoLostUpdate(t *testing.T) {
	f := newFixture(t)
	f.seedAuction(t, "a1", 0)

	const bidders = 20
	for i := 0; i < bidders; i++ {
		f.verify(t, fmt.Sprintf("user-%d", i), fmt.Sprintf("Bidder %d", i))
	}
	f.mock.EXPECT().Notify(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()

	var wg sync.WaitGroup
	accepted := make(chan int64, bidders)
	for i := 0; i < bidders; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			// everyone retries upward until their offer clears the ladder
			offer := int64(1000)
			for {
				result, err := f.service.PlaceBid("a1", fmt.Sprintf("user-%d", i), fmt.Sprintf("Bidder %d", i), fmt.Sprintf("%d", offer))
				if err == nil {
					accepted <- result.Bid.Amount
					return
				}
				var tooLow *BidTooLowError
				if errors.As(err, &tooLow) {
					offer = tooLow.MinBid
					continue
				}
				t.Error(err)
				return
			}
		}(i)
	}
	wg.Wait()
	close(accepted)

	seen := make(map[int64]bool)
	var top int64
	for amt := range accepted {
		require.False(t, seen[amt], "amount %d accepted twice", amt)
		seen[amt] = true
		if amt > top {
			top = amt
		}
	}
	require.Len(t, seen, bidders)

	auction, err := f.store.GetAuction("a1")
	require.NoError(t, err)
	require.Equal(t, top, auction.CurrentBid)

	bids, err := f.store.ActiveBids("a1")
	require.NoError(t, err)
	require.Len(t, bids, bidders)
}

func TestRemoveLastBid(t *testing.T) {
	f := newFixture(t)
	f.verify(t, "user-1", "Ash")
	f.verify(t, "user-2", "Misty")
	f.seedAuction(t, "a1", 0)
	f.mock.EXPECT().Notify(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()

	_, err := f.service.PlaceBid("a1", "user-1", "Ash", "1000")
	require.NoError(t, err)
	_, err = f.service.PlaceBid("a1", "user-2", "Misty", "2000")
	require.NoError(t, err)

	result, err := f.service.RemoveLastBid("a1")
	require.NoError(t, err)
	require.Equal(t, "user-2", result.Removed.BidderID)
	require.True(t, result.HasLeader)
	require.Equal(t, "user-1", result.Leader.BidderID)

	auction, err := f.store.GetAuction("a1")
	require.NoError(t, err)
	require.Equal(t, int64(1000), auction.CurrentBid)
	require.Equal(t, "user-1", auction.CurrentLeaderID)
	require.Equal(t, "Misty", auction.PreviousLeaderName)

	bids, err := f.store.ActiveBids("a1")
	require.NoError(t, err)
	require.Len(t, bids, 1)
}

func TestRemoveLastBid_SingleBidClearsLeader(t *testing.T) {
	f := newFixture(t)
	f.verify(t, "user-1", "Ash")
	f.seedAuction(t, "a1", 5000)

	_, err := f.service.PlaceBid("a1", "user-1", "Ash", "6000")
	require.NoError(t, err)

	result, err := f.service.RemoveLastBid("a1")
	require.NoError(t, err)
	require.False(t, result.HasLeader)

	auction, err := f.store.GetAuction("a1")
	require.NoError(t, err)
	require.False(t, auction.HasBid)
	require.Empty(t, auction.CurrentLeaderID)
	require.Equal(t, int64(5000), auction.BasePrice)

	// the ladder restarts from the base price
	_, err = f.service.PlaceBid("a1", "user-1", "Ash", "5500")
	require.ErrorIs(t, err, auctionerrors.ErrBidTooLow)
	_, err = f.service.PlaceBid("a1", "user-1", "Ash", "6000")
	require.NoError(t, err)
}

func TestRemoveLastBid_NoActiveBids(t *testing.T) {
	f := newFixture(t)
	f.seedAuction(t, "a1", 0)

	_, err := f.service.RemoveLastBid("a1")
	require.ErrorIs(t, err, auctionerrors.ErrNoActiveBids)
}

func TestBidHistory(t *testing.T) {
	f := newFixture(t)
	f.verify(t, "user-1", "Ash")
	f.verify(t, "user-2", "Misty")
	f.seedAuction(t, "a1", 0)
	f.mock.EXPECT().Notify(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()

	_, err := f.service.PlaceBid("a1", "user-1", "Ash", "1000")
	require.NoError(t, err)
	_, err = f.service.PlaceBid("a1", "user-2", "Misty", "2000")
	require.NoError(t, err)

	history, err := f.service.BidHistory("a1")
	require.NoError(t, err)
	require.Len(t, history, 2)
	require.Equal(t, int64(2000), history[0].Amount)
	require.Equal(t, int64(1000), history[1].Amount)

	_, err = f.service.BidHistory("missing")
	require.ErrorIs(t, err, auctionerrors.ErrAuctionNotFound)
}

func TestLeadingBids(t *testing.T) {
	f := newFixture(t)
	f.verify(t, "user-1", "Ash")
	f.verify(t, "user-2", "Misty")
	f.seedAuction(t, "a1", 0)
	f.seedAuction(t, "a2", 0)
	f.mock.EXPECT().Notify(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()

	_, err := f.service.PlaceBid("a1", "user-1", "Ash", "1000")
	require.NoError(t, err)
	_, err = f.service.PlaceBid("a1", "user-2", "Misty", "2000")
	require.NoError(t, err)
	_, err = f.service.PlaceBid("a2", "user-1", "Ash", "1000")
	require.NoError(t, err)

	leading, err := f.service.LeadingBids("user-1")
	require.NoError(t, err)
	require.Len(t, leading, 1)
	require.Equal(t, "a2", leading[0].AuctionID)

	leading, err = f.service.LeadingBids("user-2")
	require.NoError(t, err)
	require.Len(t, leading, 1)
	require.Equal(t, "a1", leading[0].AuctionID)
}

func TestActiveByCategory(t *testing.T) {
	f := newFixture(t)
	f.seedAuction(t, "a1", 0)
	require.NoError(t, f.store.PutAuction(model.Auction{
		AuctionID:       "a2",
		ItemDescription: "Mewtwo",
		Category:        model.CategoryLegendary,
		Status:          model.AuctionActive,
	}))
	require.NoError(t, f.store.PutAuction(model.Auction{
		AuctionID:       "a3",
		ItemDescription: "old listing",
		Category:        model.CategoryLegendary,
		Status:          model.AuctionEnded,
	}))

	grouped, err := f.service.ActiveByCategory()
	require.NoError(t, err)
	require.Len(t, grouped[model.CategoryNonLegendary], 1)
	require.Len(t, grouped[model.CategoryLegendary], 1)
}

func TestItemName(t *testing.T) {
	require.Equal(t, "Dratini", ItemName(model.Auction{ItemDescription: "Dratini\nNature: Adamant"}))
	require.Equal(t, "Dratini", ItemName(model.Auction{ItemDescription: "Dratini"}))
}
