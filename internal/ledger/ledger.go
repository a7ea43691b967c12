// Package ledger defines the durable storage contract for the auction
// system and provides the in-memory implementation. A redis-backed
// implementation lives in the redisledger subpackage.
package ledger

import (
	"time"

	model "auction-house/internal/models"
)

// AuctionView is the serialized per-auction view handed to Transact. All
// reads and writes made through it belong to a single auction's
// bid-acceptance transaction.
type AuctionView interface {
	Auction() (model.Auction, error)
	PutAuction(auction model.Auction) error
	ActiveBids() ([]model.Bid, error)
	AppendBid(bid model.Bid) error
	DeactivateBid(bidID string) error
}

// AuctionStore covers auction rows and the per-auction transaction
// primitive. Transact serializes concurrent calls for the same auction;
// different auctions proceed in parallel.
type AuctionStore interface {
	GetAuction(auctionID string) (model.Auction, error)
	PutAuction(auction model.Auction) error
	AuctionsByStatus(status model.AuctionStatus) ([]model.Auction, error)
	AuctionByMessageRef(ref string) (model.Auction, error)
	Transact(auctionID string, fn func(AuctionView) error) error
}

// BidStore covers read access to the append-only bid log outside of a
// transaction.
type BidStore interface {
	ActiveBids(auctionID string) ([]model.Bid, error)
	ActiveBidsByBidder(bidderID string) ([]model.Bid, error)
}

// SubmissionStore covers moderated submissions.
type SubmissionStore interface {
	GetSubmission(submissionID string) (model.Submission, error)
	PutSubmission(submission model.Submission) error
	SubmissionsByStatus(status model.SubmissionStatus) ([]model.Submission, error)
	SubmissionsBySubmitter(userID string) ([]model.Submission, error)
}

// VerifiedUserStore covers the verification allow-list and its pending
// request queue.
type VerifiedUserStore interface {
	GetVerifiedUser(userID string) (model.VerifiedUser, error)
	PutVerifiedUser(user model.VerifiedUser) error
	DeleteVerifiedUser(userID string) error
	ListVerifiedUsers() ([]model.VerifiedUser, error)

	GetVerificationRequest(userID string) (model.VerificationRequest, error)
	PutVerificationRequest(req model.VerificationRequest) error
	DeleteVerificationRequest(userID string) error
	ListVerificationRequests() ([]model.VerificationRequest, error)
	PurgeVerificationRequestsBefore(cutoff time.Time) (int, error)
}

// ProfileStore covers per-user submission counters. UpdateProfile is an
// atomic read-modify-write scoped to one user id.
type ProfileStore interface {
	GetProfile(userID string) (model.Profile, error)
	UpdateProfile(userID string, fn func(*model.Profile)) error
}

// LeaderboardStore covers settled-outcome counters. UpsertLeaderboard is an
// atomic increment-or-insert scoped to one user id.
type LeaderboardStore interface {
	UpsertLeaderboard(userID string, fn func(*model.LeaderboardEntry)) error
	TopWinners(limit int) ([]model.LeaderboardEntry, error)
	TopSellers(limit int) ([]model.LeaderboardEntry, error)
}

// StatusStore covers the global gating flags.
type StatusStore interface {
	Status() (model.SystemStatus, error)
	SetStatus(status model.SystemStatus) error
}

// Ledger is the full storage contract required by the engine.
type Ledger interface {
	AuctionStore
	BidStore
	SubmissionStore
	VerifiedUserStore
	ProfileStore
	LeaderboardStore
	StatusStore
}
