package bidding

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"auction-house/internal/access"
	"auction-house/internal/amount"
	"auction-house/internal/auctionerrors"
	"auction-house/internal/ledger"
	model "auction-house/internal/models"
	"auction-house/internal/notify"
	"auction-house/utils"
)

// Store is the slice of the ledger the bidding engine needs.
type Store interface {
	ledger.AuctionStore
	ledger.BidStore
	ledger.StatusStore
}

// BiddingService implements bid acceptance, ranking and retraction.
type BiddingService struct {
	store      Store
	gate       *access.Gate
	dispatcher notify.Dispatcher
}

// NewBiddingService creates a new BiddingService instance.
func NewBiddingService(store Store, gate *access.Gate, dispatcher notify.Dispatcher) *BiddingService {
	return &BiddingService{
		store:      store,
		gate:       gate,
		dispatcher: dispatcher,
	}
}

// BidTooLowError reports why a bid was rejected against the increment
// ladder. It unwraps to auctionerrors.ErrBidTooLow.
type BidTooLowError struct {
	Baseline  int64
	Increment int64
	MinBid    int64
	Offered   int64
}

func (e *BidTooLowError) Error() string {
	return fmt.Sprintf("bid must be at least %s (current: %s, minimum increment: %s, your bid: %s)",
		amount.Format(e.MinBid), amount.Format(e.Baseline), amount.Format(e.Increment), amount.Format(e.Offered))
}

func (e *BidTooLowError) Unwrap() error { return auctionerrors.ErrBidTooLow }

// PlaceBidResult describes an accepted bid along with the auction state it
// produced and the leader it displaced.
type PlaceBidResult struct {
	Bid              model.Bid
	Auction          model.Auction
	PreviousLeaderID string
	PreviousLeader   string
}

// PlaceBid validates and records a bid. Validation and recording for one
// auction run as a single serialized transaction: a concurrent bid commits
// either before this one (and raises the baseline it is checked against)
// or after it.
func (s *BiddingService) PlaceBid(auctionID, bidderID, bidderName, rawAmount string) (PlaceBidResult, error) {
	if auctionID == "" || bidderID == "" {
		return PlaceBidResult{}, fmt.Errorf("service: %w - missing auctionID or bidderID", auctionerrors.ErrMissingField)
	}
	if !s.gate.IsEligible(bidderID) {
		return PlaceBidResult{}, fmt.Errorf("service: place bid by %s: %w", bidderID, auctionerrors.ErrNotVerified)
	}
	s.gate.Touch(bidderID, bidderName)

	status, err := s.store.Status()
	if err != nil {
		return PlaceBidResult{}, fmt.Errorf("service: failed to read system status: %w", err)
	}
	if !status.AuctionsOpen {
		return PlaceBidResult{}, fmt.Errorf("service: place bid on %s: %w", auctionID, auctionerrors.ErrAuctionsClosed)
	}

	bidAmount, err := amount.Parse(rawAmount)
	if err != nil {
		return PlaceBidResult{}, fmt.Errorf("service: place bid on %s: %w", auctionID, err)
	}

	var result PlaceBidResult
	err = s.store.Transact(auctionID, func(view ledger.AuctionView) error {
		auction, err := view.Auction()
		if err != nil {
			return err
		}
		if auction.Status != model.AuctionActive {
			return fmt.Errorf("auction %s is %s: %w", auctionID, auction.Status, auctionerrors.ErrAuctionNotActive)
		}

		baseline := auction.BasePrice
		if auction.HasBid {
			baseline = auction.CurrentBid
		}
		increment := amount.MinIncrement(baseline)
		minBid := baseline + increment
		if bidAmount < minBid {
			return &BidTooLowError{Baseline: baseline, Increment: increment, MinBid: minBid, Offered: bidAmount}
		}

		bids, err := view.ActiveBids()
		if err != nil {
			return err
		}
		previous, hasPrevious := leadingBid(bids)

		bid := model.Bid{
			BidID:      utils.GenerateID(),
			AuctionID:  auctionID,
			BidderID:   bidderID,
			BidderName: bidderName,
			Amount:     bidAmount,
			CreatedAt:  time.Now().UTC(),
			IsActive:   true,
		}
		if err := view.AppendBid(bid); err != nil {
			return err
		}

		auction.CurrentBid = bidAmount
		auction.HasBid = true
		auction.CurrentLeaderID = bidderID
		auction.CurrentLeaderName = bidderName
		if hasPrevious {
			auction.PreviousLeaderName = previous.BidderName
		}
		if err := view.PutAuction(auction); err != nil {
			return err
		}

		result = PlaceBidResult{Bid: bid, Auction: auction}
		if hasPrevious {
			result.PreviousLeaderID = previous.BidderID
			result.PreviousLeader = previous.BidderName
		}
		return nil
	})
	if err != nil {
		return PlaceBidResult{}, fmt.Errorf("service: place bid on %s: %w", auctionID, err)
	}

	s.logBid(result)
	s.notifyOutbid(result)
	return result, nil
}

// notifyOutbid tells the displaced leader, unless they outbid themselves.
// Fire-and-forget: delivery failure never affects the committed bid.
func (s *BiddingService) notifyOutbid(result PlaceBidResult) {
	if result.PreviousLeaderID == "" || result.PreviousLeaderID == result.Bid.BidderID {
		return
	}
	message := notify.OutbidMessage(ItemName(result.Auction), result.Bid.Amount)
	if err := s.dispatcher.Notify(result.PreviousLeaderID, message); err != nil {
		utils.Warn("outbid notice undelivered", map[string]any{
			"auction_id": result.Auction.AuctionID,
			"recipient":  result.PreviousLeaderID,
			"error":      err.Error(),
		})
	}
}

func (s *BiddingService) logBid(result PlaceBidResult) {
	utils.Info("bid accepted", map[string]any{
		"auction_id":      result.Auction.AuctionID,
		"bid_id":          result.Bid.BidID,
		"bidder_id":       result.Bid.BidderID,
		"amount":          result.Bid.Amount,
		"previous_leader": result.PreviousLeader,
	})
}

// RemoveLastBidResult describes a retraction: the bid taken off the log and
// the leader state derived from the remaining active bids.
type RemoveLastBidResult struct {
	Removed   model.Bid
	HasLeader bool
	Leader    model.Bid
}

// RemoveLastBid deactivates the chronologically latest active bid and
// re-derives the auction's current leader from the remaining active bids.
// Profile and leaderboard counters are untouched.
func (s *BiddingService) RemoveLastBid(auctionID string) (RemoveLastBidResult, error) {
	var result RemoveLastBidResult
	err := s.store.Transact(auctionID, func(view ledger.AuctionView) error {
		auction, err := view.Auction()
		if err != nil {
			return err
		}

		bids, err := view.ActiveBids()
		if err != nil {
			return err
		}
		if len(bids) == 0 {
			return fmt.Errorf("auction %s: %w", auctionID, auctionerrors.ErrNoActiveBids)
		}

		// the bid log is chronological, so the latest active bid is last
		latest := bids[len(bids)-1]
		if err := view.DeactivateBid(latest.BidID); err != nil {
			return err
		}

		remaining := bids[:len(bids)-1]
		leader, hasLeader := leadingBid(remaining)
		if hasLeader {
			auction.CurrentBid = leader.Amount
			auction.HasBid = true
			auction.CurrentLeaderID = leader.BidderID
			auction.CurrentLeaderName = leader.BidderName
		} else {
			auction.CurrentBid = 0
			auction.HasBid = false
			auction.CurrentLeaderID = ""
			auction.CurrentLeaderName = ""
		}
		auction.PreviousLeaderName = latest.BidderName
		if err := view.PutAuction(auction); err != nil {
			return err
		}

		result = RemoveLastBidResult{Removed: latest, HasLeader: hasLeader, Leader: leader}
		return nil
	})
	if err != nil {
		return RemoveLastBidResult{}, fmt.Errorf("service: remove last bid on %s: %w", auctionID, err)
	}

	utils.Info("bid retracted", map[string]any{
		"auction_id": auctionID,
		"bid_id":     result.Removed.BidID,
		"bidder_id":  result.Removed.BidderID,
		"amount":     result.Removed.Amount,
	})
	return result, nil
}

// GetAuction returns one auction by id.
func (s *BiddingService) GetAuction(auctionID string) (model.Auction, error) {
	auction, err := s.store.GetAuction(auctionID)
	if err != nil {
		return model.Auction{}, fmt.Errorf("service: get auction %s: %w", auctionID, err)
	}
	return auction, nil
}

// BidHistory returns an auction's active bids, highest first.
func (s *BiddingService) BidHistory(auctionID string) ([]model.Bid, error) {
	if _, err := s.store.GetAuction(auctionID); err != nil {
		return nil, fmt.Errorf("service: bid history for %s: %w", auctionID, err)
	}
	bids, err := s.store.ActiveBids(auctionID)
	if err != nil {
		return nil, fmt.Errorf("service: bid history for %s: %w", auctionID, err)
	}
	sort.SliceStable(bids, func(i, j int) bool { return bids[i].Amount > bids[j].Amount })
	return bids, nil
}

// LeadingBids returns the bids with which the user currently leads an
// active or ended auction, newest first.
func (s *BiddingService) LeadingBids(userID string) ([]model.Bid, error) {
	if userID == "" {
		return nil, fmt.Errorf("service: %w - empty user ID", auctionerrors.ErrMissingField)
	}
	mine, err := s.store.ActiveBidsByBidder(userID)
	if err != nil {
		return nil, fmt.Errorf("service: leading bids for %s: %w", userID, err)
	}

	var out []model.Bid
	for _, bid := range mine {
		auction, err := s.store.GetAuction(bid.AuctionID)
		if err != nil {
			if errors.Is(err, auctionerrors.ErrAuctionNotFound) {
				continue
			}
			return nil, fmt.Errorf("service: leading bids for %s: %w", userID, err)
		}
		if auction.Status != model.AuctionActive && auction.Status != model.AuctionEnded {
			continue
		}
		if auction.HasBid && auction.CurrentLeaderID == userID && auction.CurrentBid == bid.Amount {
			out = append(out, bid)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// ActiveByCategory returns all active auctions grouped by item category.
func (s *BiddingService) ActiveByCategory() (map[model.Category][]model.Auction, error) {
	active, err := s.store.AuctionsByStatus(model.AuctionActive)
	if err != nil {
		return nil, fmt.Errorf("service: failed to list active auctions: %w", err)
	}
	grouped := make(map[model.Category][]model.Auction)
	for _, auction := range active {
		category := auction.Category
		if !model.ValidCategory(category) {
			category = model.CategoryNonLegendary
		}
		grouped[category] = append(grouped[category], auction)
	}
	return grouped, nil
}

// ItemName returns the short item label used in notifications: the first
// line of the rendered description.
func ItemName(auction model.Auction) string {
	if idx := strings.IndexByte(auction.ItemDescription, '\n'); idx >= 0 {
		return auction.ItemDescription[:idx]
	}
	return auction.ItemDescription
}

// leadingBid returns the highest active bid; on equal amounts the earlier
// bid wins. Equal amounts cannot occur through PlaceBid since every bid
// must strictly exceed the baseline.
func leadingBid(bids []model.Bid) (model.Bid, bool) {
	if len(bids) == 0 {
		return model.Bid{}, false
	}
	leader := bids[0]
	for _, b := range bids[1:] {
		if b.Amount > leader.Amount {
			leader = b
		}
	}
	return leader, true
}
