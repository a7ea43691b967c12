package ledger

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"auction-house/internal/auctionerrors"
	model "auction-house/internal/models"
)

// MemoryLedger is a concurrency-safe in-memory implementation of Ledger.
// Entity maps are guarded by a single RWMutex with short critical sections;
// bid-acceptance transactions are serialized per auction through a striped
// lock map so that different auctions never contend on bidding.
type MemoryLedger struct {
	mu          sync.RWMutex
	auctions    map[string]model.Auction
	bids        map[string][]model.Bid // key: auctionID, insertion order preserved
	submissions map[string]model.Submission
	verified    map[string]model.VerifiedUser
	verifReqs   map[string]model.VerificationRequest
	profiles    map[string]model.Profile
	leaderboard map[string]model.LeaderboardEntry
	status      model.SystemStatus

	lockMu       sync.Mutex
	auctionLocks map[string]*sync.Mutex
}

// NewMemoryLedger creates an empty in-memory ledger. Both system flags
// start closed.
func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{
		auctions:     make(map[string]model.Auction),
		bids:         make(map[string][]model.Bid),
		submissions:  make(map[string]model.Submission),
		verified:     make(map[string]model.VerifiedUser),
		verifReqs:    make(map[string]model.VerificationRequest),
		profiles:     make(map[string]model.Profile),
		leaderboard:  make(map[string]model.LeaderboardEntry),
		auctionLocks: make(map[string]*sync.Mutex),
	}
}

func (l *MemoryLedger) auctionLock(auctionID string) *sync.Mutex {
	l.lockMu.Lock()
	defer l.lockMu.Unlock()
	lock, ok := l.auctionLocks[auctionID]
	if !ok {
		lock = &sync.Mutex{}
		l.auctionLocks[auctionID] = lock
	}
	return lock
}

// Transact runs fn against a serialized view of one auction. Two
// concurrent calls for the same auction run one after the other, so the
// second sees the first's writes before validating.
func (l *MemoryLedger) Transact(auctionID string, fn func(AuctionView) error) error {
	lock := l.auctionLock(auctionID)
	lock.Lock()
	defer lock.Unlock()
	return fn(&memoryView{ledger: l, auctionID: auctionID})
}

type memoryView struct {
	ledger    *MemoryLedger
	auctionID string
}

func (v *memoryView) Auction() (model.Auction, error) {
	return v.ledger.GetAuction(v.auctionID)
}

func (v *memoryView) PutAuction(auction model.Auction) error {
	auction.AuctionID = v.auctionID
	return v.ledger.PutAuction(auction)
}

func (v *memoryView) ActiveBids() ([]model.Bid, error) {
	return v.ledger.ActiveBids(v.auctionID)
}

func (v *memoryView) AppendBid(bid model.Bid) error {
	bid.AuctionID = v.auctionID
	v.ledger.mu.Lock()
	defer v.ledger.mu.Unlock()
	v.ledger.bids[v.auctionID] = append(v.ledger.bids[v.auctionID], bid)
	return nil
}

func (v *memoryView) DeactivateBid(bidID string) error {
	v.ledger.mu.Lock()
	defer v.ledger.mu.Unlock()
	bids := v.ledger.bids[v.auctionID]
	for i := range bids {
		if bids[i].BidID == bidID {
			bids[i].IsActive = false
			return nil
		}
	}
	return fmt.Errorf("deactivate bid %s: %w", bidID, auctionerrors.ErrNoActiveBids)
}

// GetAuction returns one auction by id.
func (l *MemoryLedger) GetAuction(auctionID string) (model.Auction, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	auction, ok := l.auctions[auctionID]
	if !ok {
		return model.Auction{}, fmt.Errorf("get auction %s: %w", auctionID, auctionerrors.ErrAuctionNotFound)
	}
	return auction, nil
}

// PutAuction inserts or replaces an auction row.
func (l *MemoryLedger) PutAuction(auction model.Auction) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.auctions[auction.AuctionID] = auction
	return nil
}

// AuctionsByStatus returns all auctions with the given status, oldest first.
func (l *MemoryLedger) AuctionsByStatus(status model.AuctionStatus) ([]model.Auction, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	var out []model.Auction
	for _, a := range l.auctions {
		if a.Status == status {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// AuctionByMessageRef returns the auction linked to an external message
// reference. Used for the at-most-once listing check on approval.
func (l *MemoryLedger) AuctionByMessageRef(ref string) (model.Auction, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	for _, a := range l.auctions {
		if a.MessageRef != "" && a.MessageRef == ref {
			return a, nil
		}
	}
	return model.Auction{}, fmt.Errorf("auction by message ref %s: %w", ref, auctionerrors.ErrAuctionNotFound)
}

// ActiveBids returns the active bids for an auction in insertion order.
func (l *MemoryLedger) ActiveBids(auctionID string) ([]model.Bid, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	var out []model.Bid
	for _, b := range l.bids[auctionID] {
		if b.IsActive {
			out = append(out, b)
		}
	}
	return out, nil
}

// ActiveBidsByBidder returns all active bids placed by one user.
func (l *MemoryLedger) ActiveBidsByBidder(bidderID string) ([]model.Bid, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	var out []model.Bid
	for _, bids := range l.bids {
		for _, b := range bids {
			if b.IsActive && b.BidderID == bidderID {
				out = append(out, b)
			}
		}
	}
	return out, nil
}

// GetSubmission returns one submission by id.
func (l *MemoryLedger) GetSubmission(submissionID string) (model.Submission, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	s, ok := l.submissions[submissionID]
	if !ok {
		return model.Submission{}, fmt.Errorf("get submission %s: %w", submissionID, auctionerrors.ErrSubmissionNotFound)
	}
	return s, nil
}

// PutSubmission inserts or replaces a submission row.
func (l *MemoryLedger) PutSubmission(submission model.Submission) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.submissions[submission.SubmissionID] = submission
	return nil
}

// SubmissionsByStatus returns all submissions with the given status,
// oldest first.
func (l *MemoryLedger) SubmissionsByStatus(status model.SubmissionStatus) ([]model.Submission, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	var out []model.Submission
	for _, s := range l.submissions {
		if s.Status == status {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// SubmissionsBySubmitter returns all submissions by one user, oldest first.
func (l *MemoryLedger) SubmissionsBySubmitter(userID string) ([]model.Submission, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	var out []model.Submission
	for _, s := range l.submissions {
		if s.SubmitterID == userID {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// GetVerifiedUser returns a verified-user record.
func (l *MemoryLedger) GetVerifiedUser(userID string) (model.VerifiedUser, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	u, ok := l.verified[userID]
	if !ok {
		return model.VerifiedUser{}, fmt.Errorf("get verified user %s: %w", userID, auctionerrors.ErrUserNotVerified)
	}
	return u, nil
}

// PutVerifiedUser inserts or replaces a verified-user record.
func (l *MemoryLedger) PutVerifiedUser(user model.VerifiedUser) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.verified[user.UserID] = user
	return nil
}

// DeleteVerifiedUser removes a user from the allow-list.
func (l *MemoryLedger) DeleteVerifiedUser(userID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.verified[userID]; !ok {
		return fmt.Errorf("delete verified user %s: %w", userID, auctionerrors.ErrUserNotVerified)
	}
	delete(l.verified, userID)
	return nil
}

// ListVerifiedUsers returns all verified users ordered by verification time.
func (l *MemoryLedger) ListVerifiedUsers() ([]model.VerifiedUser, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]model.VerifiedUser, 0, len(l.verified))
	for _, u := range l.verified {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].VerifiedAt.Before(out[j].VerifiedAt) })
	return out, nil
}

// GetVerificationRequest returns a pending verification request.
func (l *MemoryLedger) GetVerificationRequest(userID string) (model.VerificationRequest, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	r, ok := l.verifReqs[userID]
	if !ok {
		return model.VerificationRequest{}, fmt.Errorf("get verification request %s: %w", userID, auctionerrors.ErrUserNotVerified)
	}
	return r, nil
}

// PutVerificationRequest inserts or replaces a verification request.
func (l *MemoryLedger) PutVerificationRequest(req model.VerificationRequest) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.verifReqs[req.UserID] = req
	return nil
}

// DeleteVerificationRequest removes a pending request if present.
func (l *MemoryLedger) DeleteVerificationRequest(userID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.verifReqs, userID)
	return nil
}

// ListVerificationRequests returns all pending requests, oldest first.
func (l *MemoryLedger) ListVerificationRequests() ([]model.VerificationRequest, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]model.VerificationRequest, 0, len(l.verifReqs))
	for _, r := range l.verifReqs {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RequestedAt.Before(out[j].RequestedAt) })
	return out, nil
}

// PurgeVerificationRequestsBefore deletes requests filed before cutoff and
// returns how many were removed.
func (l *MemoryLedger) PurgeVerificationRequestsBefore(cutoff time.Time) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	removed := 0
	for id, r := range l.verifReqs {
		if r.RequestedAt.Before(cutoff) {
			delete(l.verifReqs, id)
			removed++
		}
	}
	return removed, nil
}

// GetProfile returns one user's submission counters.
func (l *MemoryLedger) GetProfile(userID string) (model.Profile, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	p, ok := l.profiles[userID]
	if !ok {
		return model.Profile{}, fmt.Errorf("get profile %s: %w", userID, auctionerrors.ErrProfileNotFound)
	}
	return p, nil
}

// UpdateProfile applies fn to a user's profile under the write lock,
// creating a zeroed profile first if none exists.
func (l *MemoryLedger) UpdateProfile(userID string, fn func(*model.Profile)) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	p, ok := l.profiles[userID]
	if !ok {
		p = model.Profile{UserID: userID}
	}
	fn(&p)
	p.UserID = userID
	l.profiles[userID] = p
	return nil
}

// UpsertLeaderboard applies fn to a user's leaderboard row under the write
// lock, creating the row first if none exists.
func (l *MemoryLedger) UpsertLeaderboard(userID string, fn func(*model.LeaderboardEntry)) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	e, ok := l.leaderboard[userID]
	if !ok {
		e = model.LeaderboardEntry{UserID: userID}
	}
	fn(&e)
	e.UserID = userID
	e.UpdatedAt = time.Now().UTC()
	l.leaderboard[userID] = e
	return nil
}

// TopWinners returns up to limit entries with wins, most wins first, ties
// broken by earliest update.
func (l *MemoryLedger) TopWinners(limit int) ([]model.LeaderboardEntry, error) {
	return l.topEntries(limit, func(e model.LeaderboardEntry) int { return e.TotalWins })
}

// TopSellers returns up to limit entries with sales, most sales first, ties
// broken by earliest update.
func (l *MemoryLedger) TopSellers(limit int) ([]model.LeaderboardEntry, error) {
	return l.topEntries(limit, func(e model.LeaderboardEntry) int { return e.TotalSales })
}

func (l *MemoryLedger) topEntries(limit int, count func(model.LeaderboardEntry) int) ([]model.LeaderboardEntry, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	var out []model.LeaderboardEntry
	for _, e := range l.leaderboard {
		if count(e) > 0 {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if count(out[i]) != count(out[j]) {
			return count(out[i]) > count(out[j])
		}
		return out[i].UpdatedAt.Before(out[j].UpdatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Status returns the global gating flags.
func (l *MemoryLedger) Status() (model.SystemStatus, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.status, nil
}

// SetStatus replaces the global gating flags.
func (l *MemoryLedger) SetStatus(status model.SystemStatus) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.status = status
	return nil
}
