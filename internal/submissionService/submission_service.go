// Package submission implements the moderated item intake: the per-actor
// collection session, the moderation decisions that materialize auctions,
// and the consistency scan over the submission/auction link.
package submission

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"auction-house/internal/access"
	"auction-house/internal/auctionerrors"
	"auction-house/internal/ledger"
	model "auction-house/internal/models"
	"auction-house/internal/notify"
	"auction-house/utils"
)

// Store is the slice of the ledger the submission workflow needs.
type Store interface {
	ledger.SubmissionStore
	ledger.AuctionStore
	ledger.ProfileStore
	ledger.StatusStore
}

// SubmissionService runs the collection sessions and moderation decisions.
// Sessions are guarded by a single mutex held across each step; moderation
// decisions are serialized per submission through a striped lock map so two
// decisions on the same submission never interleave.
type SubmissionService struct {
	store      Store
	gate       *access.Gate
	dispatcher notify.Dispatcher

	mu       sync.Mutex
	sessions map[string]*Session

	lockMu          sync.Mutex
	submissionLocks map[string]*sync.Mutex
}

// NewSubmissionService creates a new SubmissionService instance.
func NewSubmissionService(store Store, gate *access.Gate, dispatcher notify.Dispatcher) *SubmissionService {
	return &SubmissionService{
		store:           store,
		gate:            gate,
		dispatcher:      dispatcher,
		sessions:        make(map[string]*Session),
		submissionLocks: make(map[string]*sync.Mutex),
	}
}

func (s *SubmissionService) submissionLock(submissionID string) *sync.Mutex {
	s.lockMu.Lock()
	defer s.lockMu.Unlock()
	lock, ok := s.submissionLocks[submissionID]
	if !ok {
		lock = &sync.Mutex{}
		s.submissionLocks[submissionID] = lock
	}
	return lock
}

// StartSession opens a collection session for the actor, replacing any
// stale one, and returns the first prompt.
func (s *SubmissionService) StartSession(actorID, actorName string, category model.Category) (string, error) {
	if actorID == "" {
		return "", fmt.Errorf("service: %w - missing actor ID", auctionerrors.ErrMissingField)
	}
	if !s.gate.IsEligible(actorID) {
		return "", fmt.Errorf("service: start session for %s: %w", actorID, auctionerrors.ErrNotVerified)
	}
	s.gate.Touch(actorID, actorName)

	status, err := s.store.Status()
	if err != nil {
		return "", fmt.Errorf("service: failed to read system status: %w", err)
	}
	if !status.SubmissionsOpen {
		return "", fmt.Errorf("service: start session for %s: %w", actorID, auctionerrors.ErrSubmissionsClosed)
	}

	if !model.ValidCategory(category) {
		return "", fmt.Errorf("service: %w: %q", auctionerrors.ErrInvalidCategory, category)
	}

	session := &Session{
		ActorID:   actorID,
		ActorName: actorName,
		Step:      firstStep(category),
		Payload:   model.Payload{Category: category, SellerName: actorName},
		StartedAt: time.Now().UTC(),
	}

	s.mu.Lock()
	s.sessions[actorID] = session
	s.mu.Unlock()

	return session.prompt(), nil
}

// StepResult is the outcome of feeding one input to a session: the next
// prompt, or the persisted pending submission when the session completed.
type StepResult struct {
	Prompt     string
	Done       bool
	Submission model.Submission
}

// ProvideInput feeds the next field to the actor's session. A validation
// failure keeps the session on the same step; the returned error carries
// the reason and the session's prompt is unchanged. The session lock is
// held across the step so two inputs from one actor apply one at a time.
func (s *SubmissionService) ProvideInput(actorID string, in Input) (StepResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[actorID]
	if !ok {
		return StepResult{}, fmt.Errorf("service: input from %s: %w", actorID, auctionerrors.ErrNoSession)
	}

	done, err := session.advance(in)
	if err != nil {
		return StepResult{Prompt: session.prompt()}, fmt.Errorf("service: input from %s: %w", actorID, err)
	}
	if !done {
		return StepResult{Prompt: session.prompt()}, nil
	}

	sub, err := s.finalize(session)
	if err != nil {
		return StepResult{}, err
	}
	delete(s.sessions, actorID)

	return StepResult{Done: true, Submission: sub}, nil
}

// CancelSession discards the actor's in-progress session.
func (s *SubmissionService) CancelSession(actorID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[actorID]; !ok {
		return fmt.Errorf("service: cancel session for %s: %w", actorID, auctionerrors.ErrNoSession)
	}
	delete(s.sessions, actorID)
	return nil
}

// finalize persists the completed payload as a pending submission, bumps
// the submitter's counters and pages the admins.
func (s *SubmissionService) finalize(session *Session) (model.Submission, error) {
	sub := model.Submission{
		SubmissionID: utils.GenerateID(),
		SubmitterID:  session.ActorID,
		Payload:      session.Payload,
		Status:       model.SubmissionPending,
		CreatedAt:    time.Now().UTC(),
		MessageRef:   utils.GenerateID(),
	}
	if err := s.store.PutSubmission(sub); err != nil {
		return model.Submission{}, fmt.Errorf("service: persist submission for %s: %w", session.ActorID, err)
	}

	err := s.store.UpdateProfile(session.ActorID, func(p *model.Profile) {
		p.TotalSubmissions++
		p.PendingSubmissions++
		if session.ActorName != "" {
			p.DisplayName = session.ActorName
		}
	})
	if err != nil {
		return model.Submission{}, fmt.Errorf("service: update profile for %s: %w", session.ActorID, err)
	}

	message := notify.NewSubmissionMessage(ItemLabel(sub.Payload), sub.SubmissionID, session.ActorName)
	for _, adminID := range s.gate.Admins() {
		if err := s.dispatcher.Notify(adminID, message); err != nil {
			utils.Warn("moderation notice undelivered", map[string]any{
				"submission_id": sub.SubmissionID,
				"admin_id":      adminID,
				"error":         err.Error(),
			})
		}
	}

	utils.Info("submission created", map[string]any{
		"submission_id": sub.SubmissionID,
		"submitter_id":  sub.SubmitterID,
		"category":      sub.Payload.Category,
		"base_price":    sub.Payload.BasePrice,
	})
	return sub, nil
}

// Approve materializes an auction from a pending submission. Re-invocation
// on an already-processed submission performs no mutation and reports the
// existing status.
func (s *SubmissionService) Approve(submissionID string) (model.Auction, error) {
	lock := s.submissionLock(submissionID)
	lock.Lock()
	defer lock.Unlock()

	sub, err := s.store.GetSubmission(submissionID)
	if err != nil {
		return model.Auction{}, fmt.Errorf("service: approve %s: %w", submissionID, err)
	}
	if sub.Status != model.SubmissionPending {
		return model.Auction{}, fmt.Errorf("service: approve %s: already %s: %w", submissionID, sub.Status, auctionerrors.ErrAlreadyProcessed)
	}
	if _, err := s.store.AuctionByMessageRef(sub.MessageRef); err == nil {
		return model.Auction{}, fmt.Errorf("service: approve %s: %w", submissionID, auctionerrors.ErrDuplicateListing)
	}

	// status flips before the auction write so a crash between the two
	// can never double-materialize; a failed write is surfaced as failed
	sub.Status = model.SubmissionApproved
	if err := s.store.PutSubmission(sub); err != nil {
		return model.Auction{}, fmt.Errorf("service: approve %s: %w", submissionID, err)
	}

	auction := model.Auction{
		AuctionID:       utils.GenerateID(),
		ItemDescription: RenderDescription(sub.Payload),
		Category:        sub.Payload.Category,
		BasePrice:       sub.Payload.BasePrice,
		Status:          model.AuctionActive,
		SellerID:        sub.SubmitterID,
		SellerName:      sub.Payload.SellerName,
		MessageRef:      sub.MessageRef,
		CreatedAt:       time.Now().UTC(),
	}
	if err := s.store.PutAuction(auction); err != nil {
		sub.Status = model.SubmissionFailed
		if putErr := s.store.PutSubmission(sub); putErr != nil {
			utils.Error("failed to mark submission failed", map[string]any{
				"submission_id": submissionID,
				"error":         putErr.Error(),
			})
		}
		return model.Auction{}, fmt.Errorf("service: approve %s: %w: %v", submissionID, auctionerrors.ErrAuctionCreateFailed, err)
	}

	sub.LinkedAuctionID = auction.AuctionID
	if err := s.store.PutSubmission(sub); err != nil {
		// the integrity scan reports the missing link
		utils.Error("failed to link submission to auction", map[string]any{
			"submission_id": submissionID,
			"auction_id":    auction.AuctionID,
			"error":         err.Error(),
		})
	}

	if err := s.store.UpdateProfile(sub.SubmitterID, func(p *model.Profile) {
		p.PendingSubmissions--
		p.ApprovedSubmissions++
	}); err != nil {
		return model.Auction{}, fmt.Errorf("service: approve %s: %w", submissionID, err)
	}

	if err := s.dispatcher.Notify(sub.SubmitterID, notify.ApprovedMessage(auction.AuctionID, ItemLabel(sub.Payload))); err != nil {
		utils.Warn("approval notice undelivered", map[string]any{
			"submission_id": submissionID,
			"recipient":     sub.SubmitterID,
			"error":         err.Error(),
		})
	}

	utils.Info("submission approved", map[string]any{
		"submission_id": submissionID,
		"auction_id":    auction.AuctionID,
		"seller_id":     sub.SubmitterID,
	})
	return auction, nil
}

// Reject declines a pending submission. Idempotent like Approve.
func (s *SubmissionService) Reject(submissionID string) (model.Submission, error) {
	lock := s.submissionLock(submissionID)
	lock.Lock()
	defer lock.Unlock()

	sub, err := s.store.GetSubmission(submissionID)
	if err != nil {
		return model.Submission{}, fmt.Errorf("service: reject %s: %w", submissionID, err)
	}
	if sub.Status != model.SubmissionPending {
		return model.Submission{}, fmt.Errorf("service: reject %s: already %s: %w", submissionID, sub.Status, auctionerrors.ErrAlreadyProcessed)
	}

	sub.Status = model.SubmissionRejected
	if err := s.store.PutSubmission(sub); err != nil {
		return model.Submission{}, fmt.Errorf("service: reject %s: %w", submissionID, err)
	}

	if err := s.store.UpdateProfile(sub.SubmitterID, func(p *model.Profile) {
		p.PendingSubmissions--
		p.RejectedSubmissions++
	}); err != nil {
		return model.Submission{}, fmt.Errorf("service: reject %s: %w", submissionID, err)
	}

	if err := s.dispatcher.Notify(sub.SubmitterID, notify.RejectedMessage(ItemLabel(sub.Payload), sub.CreatedAt)); err != nil {
		utils.Warn("rejection notice undelivered", map[string]any{
			"submission_id": submissionID,
			"recipient":     sub.SubmitterID,
			"error":         err.Error(),
		})
	}

	utils.Info("submission rejected", map[string]any{
		"submission_id": submissionID,
		"submitter_id":  sub.SubmitterID,
	})
	return sub, nil
}

// RemoveItem takes a live auction down: status moves to removed, the
// seller's approved counter moves to revoked and the seller is told.
func (s *SubmissionService) RemoveItem(auctionID string) (model.Auction, error) {
	var removed model.Auction
	err := s.store.Transact(auctionID, func(view ledger.AuctionView) error {
		auction, err := view.Auction()
		if err != nil {
			return err
		}
		if auction.Status != model.AuctionActive {
			return fmt.Errorf("auction %s is %s: %w", auctionID, auction.Status, auctionerrors.ErrAuctionNotActive)
		}
		auction.Status = model.AuctionRemoved
		if err := view.PutAuction(auction); err != nil {
			return err
		}
		removed = auction
		return nil
	})
	if err != nil {
		return model.Auction{}, fmt.Errorf("service: remove auction %s: %w", auctionID, err)
	}

	if err := s.store.UpdateProfile(removed.SellerID, func(p *model.Profile) {
		p.ApprovedSubmissions--
		p.RevokedSubmissions++
	}); err != nil {
		return model.Auction{}, fmt.Errorf("service: remove auction %s: %w", auctionID, err)
	}

	itemName, _, _ := strings.Cut(removed.ItemDescription, "\n")
	if err := s.dispatcher.Notify(removed.SellerID, notify.RemovedMessage(itemName, removed.AuctionID)); err != nil {
		utils.Warn("removal notice undelivered", map[string]any{
			"auction_id": auctionID,
			"recipient":  removed.SellerID,
			"error":      err.Error(),
		})
	}

	utils.Info("auction removed", map[string]any{
		"auction_id": auctionID,
		"seller_id":  removed.SellerID,
	})
	return removed, nil
}

// ApprovedItems returns the live and settled auctions materialized from a
// user's approved submissions.
func (s *SubmissionService) ApprovedItems(userID string) ([]model.Auction, error) {
	subs, err := s.store.SubmissionsBySubmitter(userID)
	if err != nil {
		return nil, fmt.Errorf("service: approved items for %s: %w", userID, err)
	}

	var out []model.Auction
	for _, sub := range subs {
		if sub.Status != model.SubmissionApproved || sub.LinkedAuctionID == "" {
			continue
		}
		auction, err := s.store.GetAuction(sub.LinkedAuctionID)
		if err != nil {
			if errors.Is(err, auctionerrors.ErrAuctionNotFound) {
				continue
			}
			return nil, fmt.Errorf("service: approved items for %s: %w", userID, err)
		}
		out = append(out, auction)
	}
	return out, nil
}

// GetProfile returns a user's submission counters. An absent profile reads
// as all zeros rather than an error.
func (s *SubmissionService) GetProfile(userID string) (model.Profile, error) {
	profile, err := s.store.GetProfile(userID)
	if err != nil {
		if errors.Is(err, auctionerrors.ErrProfileNotFound) {
			return model.Profile{UserID: userID}, nil
		}
		return model.Profile{}, fmt.Errorf("service: profile for %s: %w", userID, err)
	}
	return profile, nil
}

// IntegrityReport lists link anomalies between submissions and auctions.
type IntegrityReport struct {
	OrphanedSubmissions []string `json:"orphaned_submissions"`
	OrphanedAuctions    []string `json:"orphaned_auctions"`
}

// IntegrityScan reports approved submissions with no reachable auction and
// auctions no submission links to. Anomalies are reported, never healed.
func (s *SubmissionService) IntegrityScan() (IntegrityReport, error) {
	var report IntegrityReport

	approved, err := s.store.SubmissionsByStatus(model.SubmissionApproved)
	if err != nil {
		return IntegrityReport{}, fmt.Errorf("service: integrity scan: %w", err)
	}

	linked := make(map[string]struct{}, len(approved))
	for _, sub := range approved {
		if sub.LinkedAuctionID == "" {
			report.OrphanedSubmissions = append(report.OrphanedSubmissions, sub.SubmissionID)
			continue
		}
		if _, err := s.store.GetAuction(sub.LinkedAuctionID); err != nil {
			if errors.Is(err, auctionerrors.ErrAuctionNotFound) {
				report.OrphanedSubmissions = append(report.OrphanedSubmissions, sub.SubmissionID)
				continue
			}
			return IntegrityReport{}, fmt.Errorf("service: integrity scan: %w", err)
		}
		linked[sub.LinkedAuctionID] = struct{}{}
	}

	for _, status := range []model.AuctionStatus{model.AuctionActive, model.AuctionEnded, model.AuctionRemoved} {
		auctions, err := s.store.AuctionsByStatus(status)
		if err != nil {
			return IntegrityReport{}, fmt.Errorf("service: integrity scan: %w", err)
		}
		for _, auction := range auctions {
			if _, ok := linked[auction.AuctionID]; !ok {
				report.OrphanedAuctions = append(report.OrphanedAuctions, auction.AuctionID)
			}
		}
	}

	if len(report.OrphanedSubmissions) > 0 || len(report.OrphanedAuctions) > 0 {
		utils.Warn("integrity scan found anomalies", map[string]any{
			"orphaned_submissions": len(report.OrphanedSubmissions),
			"orphaned_auctions":    len(report.OrphanedAuctions),
		})
	}
	return report, nil
}
