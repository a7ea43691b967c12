package auctionerrors

import "errors"

// Validation errors: recoverable, the caller re-prompts the same step.
var (
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrMissingField    = errors.New("missing required field")
	ErrNameTooLong     = errors.New("name too long")
	ErrInvalidCategory = errors.New("unknown category")
)

// Eligibility errors: terminal for the action, user-visible, never retried.
var (
	ErrNotVerified       = errors.New("user not verified")
	ErrAdminOnly         = errors.New("admin only")
	ErrSubmissionsClosed = errors.New("submissions are closed")
	ErrAuctionsClosed    = errors.New("auctions are closed")
)

// State-conflict errors: terminal, reported, no mutation performed.
var (
	ErrAuctionNotFound    = errors.New("auction not found")
	ErrAuctionNotActive   = errors.New("auction is not active")
	ErrSubmissionNotFound = errors.New("submission not found")
	ErrAlreadyProcessed   = errors.New("submission already processed")
	ErrBidTooLow          = errors.New("bid amount too low")
	ErrNoActiveBids       = errors.New("no active bids")
	ErrDuplicateListing   = errors.New("auction already exists for this listing")
	ErrNoSession          = errors.New("no active submission session")
	ErrAlreadyVerified    = errors.New("user is already verified")
	ErrRequestPending     = errors.New("verification request already pending")
	ErrUserNotVerified    = errors.New("user is not verified")
	ErrProfileNotFound    = errors.New("profile not found")
)

// Consistency errors: surfaced for operator attention, never auto-healed.
var (
	ErrAuctionCreateFailed = errors.New("auction creation failed after approval")
)

// IsValidation reports whether err belongs to the validation category.
func IsValidation(err error) bool {
	return errors.Is(err, ErrInvalidAmount) ||
		errors.Is(err, ErrMissingField) ||
		errors.Is(err, ErrNameTooLong) ||
		errors.Is(err, ErrInvalidCategory)
}

// IsEligibility reports whether err belongs to the eligibility category.
func IsEligibility(err error) bool {
	return errors.Is(err, ErrNotVerified) ||
		errors.Is(err, ErrAdminOnly) ||
		errors.Is(err, ErrSubmissionsClosed) ||
		errors.Is(err, ErrAuctionsClosed)
}
