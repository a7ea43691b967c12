package models

import "time"

// Category identifies the kind of item a submission carries. The set is
// closed; each category has its own required payload fields.
type Category string

const (
	CategoryLegendary    Category = "legendary"
	CategoryNonLegendary Category = "nonlegendary"
	CategoryShiny        Category = "shiny"
	CategoryTM           Category = "tms"
)

// ValidCategory reports whether c is one of the known categories.
func ValidCategory(c Category) bool {
	switch c {
	case CategoryLegendary, CategoryNonLegendary, CategoryShiny, CategoryTM:
		return true
	}
	return false
}

// SubmissionStatus tracks a submission through moderation. Transitions are
// one-way: pending -> approved | rejected | failed.
type SubmissionStatus string

const (
	SubmissionPending  SubmissionStatus = "pending"
	SubmissionApproved SubmissionStatus = "approved"
	SubmissionRejected SubmissionStatus = "rejected"
	SubmissionFailed   SubmissionStatus = "failed"
)

// AuctionStatus tracks an auction's lifecycle. ended and removed are
// terminal for bidding but remain queryable.
type AuctionStatus string

const (
	AuctionActive  AuctionStatus = "active"
	AuctionEnded   AuctionStatus = "ended"
	AuctionRemoved AuctionStatus = "removed"
)

// Attachment is a forwarded detail page: caption text plus an external
// photo reference.
type Attachment struct {
	Text     string `json:"text"`
	PhotoRef string `json:"photo_ref,omitempty"`
}

// Payload is the category-specific item description collected by the
// submission workflow. The Pokémon field group or the TM field group is
// populated, selected by Category.
type Payload struct {
	Category Category `json:"category"`

	// Pokémon categories (legendary, nonlegendary, shiny)
	PokemonName string     `json:"pokemon_name,omitempty"`
	Nature      Attachment `json:"nature,omitempty"`
	IVs         Attachment `json:"ivs,omitempty"`
	Moveset     Attachment `json:"moveset,omitempty"`
	Boosted     bool       `json:"boosted,omitempty"`
	BoostInfo   string     `json:"boost_info,omitempty"`

	// TM category
	TMDetails string `json:"tm_details,omitempty"`

	BasePrice  int64  `json:"base_price"`
	SellerName string `json:"seller_name,omitempty"`
}

// Submission is a moderated item entry produced by the workflow.
type Submission struct {
	SubmissionID    string           `json:"submission_id"`
	SubmitterID     string           `json:"submitter_id"`
	Payload         Payload          `json:"payload"`
	Status          SubmissionStatus `json:"status"`
	CreatedAt       time.Time        `json:"created_at"`
	LinkedAuctionID string           `json:"linked_auction_id,omitempty"`
	MessageRef      string           `json:"message_ref,omitempty"`
}

// Auction is a live listing materialized from an approved submission.
// CurrentBid is meaningful only when HasBid is true; the bidding engine is
// the only writer of the leader fields.
type Auction struct {
	AuctionID          string        `json:"auction_id"`
	ItemDescription    string        `json:"item_description"`
	Category           Category      `json:"category"`
	BasePrice          int64         `json:"base_price"`
	CurrentBid         int64         `json:"current_bid"`
	HasBid             bool          `json:"has_bid"`
	CurrentLeaderID    string        `json:"current_leader_id,omitempty"`
	CurrentLeaderName  string        `json:"current_leader_name,omitempty"`
	PreviousLeaderName string        `json:"previous_leader_name,omitempty"`
	Status             AuctionStatus `json:"status"`
	SellerID           string        `json:"seller_id"`
	SellerName         string        `json:"seller_name,omitempty"`
	MessageRef         string        `json:"message_ref,omitempty"`
	CreatedAt          time.Time     `json:"created_at"`
}

// Bid is one entry in an auction's append-only bid log. Retraction flips
// IsActive instead of deleting the row.
type Bid struct {
	BidID      string    `json:"bid_id"`
	AuctionID  string    `json:"auction_id"`
	BidderID   string    `json:"bidder_id"`
	BidderName string    `json:"bidder_name"`
	Amount     int64     `json:"amount"`
	CreatedAt  time.Time `json:"created_at"`
	IsActive   bool      `json:"is_active"`
}

// VerifiedUser grants submission and bidding eligibility. Membership is
// independent of the static admin allow-list.
type VerifiedUser struct {
	UserID      string    `json:"user_id"`
	DisplayName string    `json:"display_name"`
	VerifiedBy  string    `json:"verified_by"`
	VerifiedAt  time.Time `json:"verified_at"`
	LastActive  time.Time `json:"last_active"`
}

// VerificationRequest is a pending ask for verified status.
type VerificationRequest struct {
	UserID      string    `json:"user_id"`
	DisplayName string    `json:"display_name"`
	RequestedAt time.Time `json:"requested_at"`
}

// Profile carries per-user submission counters. Invariant:
// Total == Pending + Approved + Rejected (Revoked is drawn from Approved).
type Profile struct {
	UserID              string `json:"user_id"`
	DisplayName         string `json:"display_name,omitempty"`
	TotalSubmissions    int    `json:"total_submissions"`
	PendingSubmissions  int    `json:"pending_submissions"`
	ApprovedSubmissions int    `json:"approved_submissions"`
	RejectedSubmissions int    `json:"rejected_submissions"`
	RevokedSubmissions  int    `json:"revoked_submissions"`
}

// LeaderboardEntry counts settled outcomes per user, incremented exactly
// once per auction at closure.
type LeaderboardEntry struct {
	UserID      string    `json:"user_id"`
	DisplayName string    `json:"display_name"`
	TotalWins   int       `json:"total_wins"`
	TotalSales  int       `json:"total_sales"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// SystemStatus holds the global gating flags. Both default to closed and
// are toggled only by admin commands.
type SystemStatus struct {
	SubmissionsOpen bool `json:"submissions_open"`
	AuctionsOpen    bool `json:"auctions_open"`
}
