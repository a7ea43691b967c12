package notify

import (
	"fmt"
	"time"

	"auction-house/internal/amount"
)

// OutbidMessage tells the previous leader they lost the lead.
func OutbidMessage(itemName string, newAmount int64) string {
	return fmt.Sprintf("You have been outbid on %s. The bid is now %s.", itemName, amount.Format(newAmount))
}

// NewSubmissionMessage tells an admin a submission awaits moderation.
func NewSubmissionMessage(itemName, submissionID, submitterName string) string {
	return fmt.Sprintf("New submission pending review: %s (#%s) from %s.", itemName, submissionID, submitterName)
}

// WinMessage tells a bidder they won the auction at closure.
func WinMessage(itemName string, winningAmount int64) string {
	return fmt.Sprintf("You have won the bid! Item: %s. Your bid: %s.", itemName, amount.Format(winningAmount))
}

// ApprovedMessage tells a seller their item was listed.
func ApprovedMessage(auctionID, itemName string) string {
	return fmt.Sprintf("Your item has been approved and listed. Item: %s (#%s).", itemName, auctionID)
}

// RejectedMessage tells a seller their submission was declined.
func RejectedMessage(itemName string, submittedAt time.Time) string {
	return fmt.Sprintf("Your submission was rejected. Item: %s. Submitted: %s. You can submit a new item.",
		itemName, submittedAt.UTC().Format(time.RFC3339))
}

// RemovedMessage tells a seller their live auction was taken down.
func RemovedMessage(itemName, auctionID string) string {
	return fmt.Sprintf("Your auction item has been removed by an admin. Item: %s (#%s). Contact an admin if you believe this was a mistake.",
		itemName, auctionID)
}

// VerifiedMessage tells a user they passed verification.
func VerifiedMessage() string {
	return "Verification approved. You can now submit items and place bids."
}

// UnverifiedMessage tells a user their verified status was revoked.
func UnverifiedMessage() string {
	return "Your verification status has been removed by an admin. You will need to be verified again to participate."
}
