package submission

import (
	"errors"
	"strings"
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
	service *SubmissionService
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
		service: NewSubmissionService(store, gate, mock),
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

// submitPokemon walks a full Pokemon session for the user and returns the
// pending submission.
func (f *fixture) submitPokemon(t *testing.T, userID, userName string) model.Submission {
	t.Helper()
	f.mock.EXPECT().Notify("admin-1", gomock.Any()).Return(nil)

	_, err := f.service.StartSession(userID, userName, model.CategoryNonLegendary)
	require.NoError(t, err)

	steps := []Input{
		{Text: "Dratini"},
		{Text: "Adamant", PhotoRef: "photo-nature"},
		{Text: "31/31/31/31/31/31", PhotoRef: "photo-ivs"},
		{Text: "Dragon Dance, Outrage", PhotoRef: "photo-moves"},
		{Text: "no"},
		{Text: "base: 5,000"},
	}
	var result StepResult
	for _, in := range steps {
		result, err = f.service.ProvideInput(userID, in)
		require.NoError(t, err)
	}
	require.True(t, result.Done)
	return result.Submission
}

func TestSessionFlow_Pokemon(t *testing.T) {
	f := newFixture(t)
	f.verify(t, "user-1", "Ash")

	sub := f.submitPokemon(t, "user-1", "Ash")
	require.Equal(t, model.SubmissionPending, sub.Status)
	require.Equal(t, "Dratini", sub.Payload.PokemonName)
	require.Equal(t, "Adamant", sub.Payload.Nature.Text)
	require.Equal(t, "photo-nature", sub.Payload.Nature.PhotoRef)
	require.False(t, sub.Payload.Boosted)
	require.Equal(t, int64(5000), sub.Payload.BasePrice)
	require.Equal(t, "Ash", sub.Payload.SellerName)
	require.NotEmpty(t, sub.MessageRef)

	stored, err := f.store.GetSubmission(sub.SubmissionID)
	require.NoError(t, err)
	require.Equal(t, model.SubmissionPending, stored.Status)

	profile, err := f.store.GetProfile("user-1")
	require.NoError(t, err)
	require.Equal(t, 1, profile.TotalSubmissions)
	require.Equal(t, 1, profile.PendingSubmissions)
}

func TestSessionFlow_Boosted(t *testing.T) {
	f := newFixture(t)
	f.verify(t, "user-1", "Ash")
	f.mock.EXPECT().Notify("admin-1", gomock.Any()).Return(nil)

	_, err := f.service.StartSession("user-1", "Ash", model.CategoryShiny)
	require.NoError(t, err)

	for _, in := range []Input{
		{Text: "Charizard"},
		{Text: "Timid"},
		{Text: "31/0/31/31/31/31"},
		{Text: "Flamethrower"},
		{Text: "YES"},
	} {
		_, err = f.service.ProvideInput("user-1", in)
		require.NoError(t, err)
	}

	result, err := f.service.ProvideInput("user-1", Input{Text: "Attack boosted +2"})
	require.NoError(t, err)
	require.False(t, result.Done)

	result, err = f.service.ProvideInput("user-1", Input{Text: "10k"})
	require.NoError(t, err)
	require.True(t, result.Done)
	require.True(t, result.Submission.Payload.Boosted)
	require.Equal(t, "Attack boosted +2", result.Submission.Payload.BoostInfo)
	require.Equal(t, int64(10000), result.Submission.Payload.BasePrice)
}

func TestSessionFlow_TM(t *testing.T) {
	f := newFixture(t)
	f.verify(t, "user-1", "Ash")
	f.mock.EXPECT().Notify("admin-1", gomock.Any()).Return(nil)

	_, err := f.service.StartSession("user-1", "Ash", model.CategoryTM)
	require.NoError(t, err)

	result, err := f.service.ProvideInput("user-1", Input{Text: "TM24 Thunderbolt\nMint condition"})
	require.NoError(t, err)
	require.False(t, result.Done)

	result, err = f.service.ProvideInput("user-1", Input{Text: "0"})
	require.NoError(t, err)
	require.True(t, result.Done)
	require.Equal(t, int64(0), result.Submission.Payload.BasePrice)
	require.Equal(t, "TM24 Thunderbolt", ItemLabel(result.Submission.Payload))
}

func TestSession_ValidationKeepsState(t *testing.T) {
	f := newFixture(t)
	f.verify(t, "user-1", "Ash")

	_, err := f.service.StartSession("user-1", "Ash", model.CategoryNonLegendary)
	require.NoError(t, err)

	// oversized name re-prompts without dropping the session
	result, err := f.service.ProvideInput("user-1", Input{Text: strings.Repeat("x", 31)})
	require.ErrorIs(t, err, auctionerrors.ErrNameTooLong)
	require.NotEmpty(t, result.Prompt)

	result, err = f.service.ProvideInput("user-1", Input{Text: "Dratini"})
	require.NoError(t, err)
	require.Contains(t, result.Prompt, "nature")
}

func TestSession_InvalidPriceReprompts(t *testing.T) {
	f := newFixture(t)
	f.verify(t, "user-1", "Ash")
	f.mock.EXPECT().Notify("admin-1", gomock.Any()).Return(nil)

	_, err := f.service.StartSession("user-1", "Ash", model.CategoryTM)
	require.NoError(t, err)
	_, err = f.service.ProvideInput("user-1", Input{Text: "TM24"})
	require.NoError(t, err)

	_, err = f.service.ProvideInput("user-1", Input{Text: "not a price"})
	require.ErrorIs(t, err, auctionerrors.ErrInvalidAmount)
	_, err = f.service.ProvideInput("user-1", Input{Text: "-5"})
	require.ErrorIs(t, err, auctionerrors.ErrInvalidAmount)

	result, err := f.service.ProvideInput("user-1", Input{Text: "5k"})
	require.NoError(t, err)
	require.True(t, result.Done)
}

func TestSession_RestartOverwrites(t *testing.T) {
	f := newFixture(t)
	f.verify(t, "user-1", "Ash")

	_, err := f.service.StartSession("user-1", "Ash", model.CategoryNonLegendary)
	require.NoError(t, err)
	_, err = f.service.ProvideInput("user-1", Input{Text: "Dratini"})
	require.NoError(t, err)

	// a fresh start discards prior steps
	prompt, err := f.service.StartSession("user-1", "Ash", model.CategoryTM)
	require.NoError(t, err)
	require.Contains(t, prompt, "TM")
}

func TestCancelSession(t *testing.T) {
	f := newFixture(t)
	f.verify(t, "user-1", "Ash")

	require.ErrorIs(t, f.service.CancelSession("user-1"), auctionerrors.ErrNoSession)

	_, err := f.service.StartSession("user-1", "Ash", model.CategoryNonLegendary)
	require.NoError(t, err)
	require.NoError(t, f.service.CancelSession("user-1"))

	_, err = f.service.ProvideInput("user-1", Input{Text: "Dratini"})
	require.ErrorIs(t, err, auctionerrors.ErrNoSession)
}

func TestStartSession_Gating(t *testing.T) {
	f := newFixture(t)

	_, err := f.service.StartSession("stranger", "Nobody", model.CategoryNonLegendary)
	require.ErrorIs(t, err, auctionerrors.ErrNotVerified)

	f.verify(t, "user-1", "Ash")
	_, err = f.service.StartSession("user-1", "Ash", model.Category("plushies"))
	require.ErrorIs(t, err, auctionerrors.ErrInvalidCategory)

	require.NoError(t, f.store.SetStatus(model.SystemStatus{AuctionsOpen: true}))
	_, err = f.service.StartSession("user-1", "Ash", model.CategoryNonLegendary)
	require.ErrorIs(t, err, auctionerrors.ErrSubmissionsClosed)
}

func TestApprove(t *testing.T) {
	f := newFixture(t)
	f.verify(t, "user-1", "Ash")
	sub := f.submitPokemon(t, "user-1", "Ash")

	f.mock.EXPECT().Notify("user-1", gomock.Any()).Return(nil)
	auction, err := f.service.Approve(sub.SubmissionID)
	require.NoError(t, err)
	require.Equal(t, model.AuctionActive, auction.Status)
	require.Equal(t, int64(5000), auction.BasePrice)
	require.Equal(t, "user-1", auction.SellerID)
	require.Equal(t, sub.MessageRef, auction.MessageRef)
	require.True(t, strings.HasPrefix(auction.ItemDescription, "Dratini\n"))
	require.Contains(t, auction.ItemDescription, "Boosted: Unboosted")
	require.Contains(t, auction.ItemDescription, "Base Price: 5k")

	stored, err := f.store.GetSubmission(sub.SubmissionID)
	require.NoError(t, err)
	require.Equal(t, model.SubmissionApproved, stored.Status)
	require.Equal(t, auction.AuctionID, stored.LinkedAuctionID)

	profile, err := f.store.GetProfile("user-1")
	require.NoError(t, err)
	require.Equal(t, 0, profile.PendingSubmissions)
	require.Equal(t, 1, profile.ApprovedSubmissions)
	require.Equal(t, profile.TotalSubmissions,
		profile.PendingSubmissions+profile.ApprovedSubmissions+profile.RejectedSubmissions)

	// second call reports the existing status and mutates nothing
	_, err = f.service.Approve(sub.SubmissionID)
	require.ErrorIs(t, err, auctionerrors.ErrAlreadyProcessed)
	require.Contains(t, err.Error(), "already approved")

	profile, err = f.store.GetProfile("user-1")
	require.NoError(t, err)
	require.Equal(t, 1, profile.ApprovedSubmissions)
}

func TestApprove_ConcurrentCallsCreateOneAuction(t *testing.T) {
	f := newFixture(t)
	f.verify(t, "user-1", "Ash")
	sub := f.submitPokemon(t, "user-1", "Ash")

	f.mock.EXPECT().Notify("user-1", gomock.Any()).Return(nil)

	const callers = 8
	var wg sync.WaitGroup
	start := make(chan struct{})
	errs := make(chan error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, err := f.service.Approve(sub.SubmissionID)
			errs <- err
		}()
	}
	close(start)
	wg.Wait()
	close(errs)

	var approved, alreadyProcessed int
	for err := range errs {
		switch {
		case err == nil:
			approved++
		case errors.Is(err, auctionerrors.ErrAlreadyProcessed):
			alreadyProcessed++
		default:
			t.Fatalf("unexpected approve error: %v", err)
		}
	}
	require.Equal(t, 1, approved)
	require.Equal(t, callers-1, alreadyProcessed)

	auctions, err := f.store.AuctionsByStatus(model.AuctionActive)
	require.NoError(t, err)
	require.Len(t, auctions, 1)

	profile, err := f.store.GetProfile("user-1")
	require.NoError(t, err)
	require.Equal(t, 0, profile.PendingSubmissions)
	require.Equal(t, 1, profile.ApprovedSubmissions)
	require.Equal(t, profile.TotalSubmissions,
		profile.PendingSubmissions+profile.ApprovedSubmissions+profile.RejectedSubmissions)
}

func TestProvideInput_ConcurrentFinalStepSingleSubmission(t *testing.T) {
	f := newFixture(t)
	f.verify(t, "user-1", "Ash")
	f.mock.EXPECT().Notify("admin-1", gomock.Any()).Return(nil)

	_, err := f.service.StartSession("user-1", "Ash", model.CategoryTM)
	require.NoError(t, err)
	_, err = f.service.ProvideInput("user-1", Input{Text: "TM24"})
	require.NoError(t, err)

	var wg sync.WaitGroup
	start := make(chan struct{})
	results := make(chan StepResult, 2)
	errs := make(chan error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			result, err := f.service.ProvideInput("user-1", Input{Text: "1k"})
			results <- result
			errs <- err
		}()
	}
	close(start)
	wg.Wait()
	close(results)
	close(errs)

	var done int
	for result := range results {
		if result.Done {
			done++
		}
	}
	for err := range errs {
		if err != nil {
			require.ErrorIs(t, err, auctionerrors.ErrNoSession)
		}
	}
	require.Equal(t, 1, done)

	subs, err := f.store.SubmissionsBySubmitter("user-1")
	require.NoError(t, err)
	require.Len(t, subs, 1)

	profile, err := f.store.GetProfile("user-1")
	require.NoError(t, err)
	require.Equal(t, 1, profile.TotalSubmissions)
}

// failingAuctionStore makes every auction write fail.
type failingAuctionStore struct {
	*ledger.MemoryLedger
}

func (f *failingAuctionStore) PutAuction(model.Auction) error {
	return errors.New("storage unavailable")
}

func TestApprove_AuctionWriteFailureMarksFailed(t *testing.T) {
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)

	mem := ledger.NewMemoryLedger()
	mock := notify.NewMockDispatcher(ctrl)
	gate := access.NewGate(mem, []string{"admin-1"}, mock)
	require.NoError(t, mem.SetStatus(model.SystemStatus{SubmissionsOpen: true, AuctionsOpen: true}))
	service := NewSubmissionService(&failingAuctionStore{mem}, gate, mock)

	require.NoError(t, mem.PutVerifiedUser(model.VerifiedUser{UserID: "user-1", DisplayName: "Ash"}))
	mock.EXPECT().Notify("admin-1", gomock.Any()).Return(nil)

	_, err := service.StartSession("user-1", "Ash", model.CategoryTM)
	require.NoError(t, err)
	_, err = service.ProvideInput("user-1", Input{Text: "TM24"})
	require.NoError(t, err)
	result, err := service.ProvideInput("user-1", Input{Text: "1k"})
	require.NoError(t, err)

	_, err = service.Approve(result.Submission.SubmissionID)
	require.ErrorIs(t, err, auctionerrors.ErrAuctionCreateFailed)

	stored, err := mem.GetSubmission(result.Submission.SubmissionID)
	require.NoError(t, err)
	require.Equal(t, model.SubmissionFailed, stored.Status)
	require.Empty(t, stored.LinkedAuctionID)
}

func TestReject(t *testing.T) {
	f := newFixture(t)
	f.verify(t, "user-1", "Ash")
	sub := f.submitPokemon(t, "user-1", "Ash")

	f.mock.EXPECT().Notify("user-1", gomock.Any()).Return(nil)
	rejected, err := f.service.Reject(sub.SubmissionID)
	require.NoError(t, err)
	require.Equal(t, model.SubmissionRejected, rejected.Status)

	profile, err := f.store.GetProfile("user-1")
	require.NoError(t, err)
	require.Equal(t, 0, profile.PendingSubmissions)
	require.Equal(t, 1, profile.RejectedSubmissions)

	_, err = f.service.Reject(sub.SubmissionID)
	require.ErrorIs(t, err, auctionerrors.ErrAlreadyProcessed)

	_, err = f.service.Reject("missing")
	require.ErrorIs(t, err, auctionerrors.ErrSubmissionNotFound)
}

func TestRemoveItem(t *testing.T) {
	f := newFixture(t)
	f.verify(t, "user-1", "Ash")
	sub := f.submitPokemon(t, "user-1", "Ash")

	f.mock.EXPECT().Notify("user-1", gomock.Any()).Return(nil).Times(2)
	auction, err := f.service.Approve(sub.SubmissionID)
	require.NoError(t, err)

	removed, err := f.service.RemoveItem(auction.AuctionID)
	require.NoError(t, err)
	require.Equal(t, model.AuctionRemoved, removed.Status)

	profile, err := f.store.GetProfile("user-1")
	require.NoError(t, err)
	require.Equal(t, 0, profile.ApprovedSubmissions)
	require.Equal(t, 1, profile.RevokedSubmissions)

	_, err = f.service.RemoveItem(auction.AuctionID)
	require.ErrorIs(t, err, auctionerrors.ErrAuctionNotActive)

	_, err = f.service.RemoveItem("missing")
	require.ErrorIs(t, err, auctionerrors.ErrAuctionNotFound)
}

func TestApprovedItems(t *testing.T) {
	f := newFixture(t)
	f.verify(t, "user-1", "Ash")
	sub := f.submitPokemon(t, "user-1", "Ash")

	items, err := f.service.ApprovedItems("user-1")
	require.NoError(t, err)
	require.Empty(t, items)

	f.mock.EXPECT().Notify("user-1", gomock.Any()).Return(nil)
	auction, err := f.service.Approve(sub.SubmissionID)
	require.NoError(t, err)

	items, err = f.service.ApprovedItems("user-1")
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, auction.AuctionID, items[0].AuctionID)
}

func TestGetProfile_AbsentReadsZero(t *testing.T) {
	f := newFixture(t)

	profile, err := f.service.GetProfile("nobody")
	require.NoError(t, err)
	require.Equal(t, "nobody", profile.UserID)
	require.Zero(t, profile.TotalSubmissions)
}

func TestIntegrityScan(t *testing.T) {
	f := newFixture(t)

	report, err := f.service.IntegrityScan()
	require.NoError(t, err)
	require.Empty(t, report.OrphanedSubmissions)
	require.Empty(t, report.OrphanedAuctions)

	// approved submission pointing nowhere
	require.NoError(t, f.store.PutSubmission(model.Submission{
		SubmissionID: "sub-1",
		SubmitterID:  "user-1",
		Status:       model.SubmissionApproved,
	}))
	// auction nothing links to
	require.NoError(t, f.store.PutAuction(model.Auction{
		AuctionID: "a-1",
		Status:    model.AuctionActive,
		SellerID:  "user-2",
	}))

	report, err = f.service.IntegrityScan()
	require.NoError(t, err)
	require.Equal(t, []string{"sub-1"}, report.OrphanedSubmissions)
	require.Equal(t, []string{"a-1"}, report.OrphanedAuctions)
}
