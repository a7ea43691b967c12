// Package notify defines the outbound notification boundary. Delivery
// failures are always non-fatal to the caller; batch operations count them
// and report aggregates.
package notify

import (
	"auction-house/internal/ledger"
	"auction-house/utils"
)

// Dispatcher delivers a rendered message to one recipient.
type Dispatcher interface {
	Notify(recipientID, message string) error
}

// LogDispatcher is the default transport: it writes every notification to
// the operator log instead of a chat platform.
type LogDispatcher struct{}

// Notify logs the message and always succeeds.
func (LogDispatcher) Notify(recipientID, message string) error {
	utils.Info("notification dispatched", map[string]any{
		"recipient": recipientID,
		"message":   message,
	})
	return nil
}

// Broadcast sends message to every verified user. Per-recipient failures
// are counted and do not abort the batch.
func Broadcast(store ledger.VerifiedUserStore, dispatcher Dispatcher, message string) (sent, failed int, err error) {
	users, err := store.ListVerifiedUsers()
	if err != nil {
		return 0, 0, err
	}

	for _, u := range users {
		if err := dispatcher.Notify(u.UserID, message); err != nil {
			failed++
			utils.Warn("broadcast delivery failed", map[string]any{
				"recipient": u.UserID,
				"error":     err.Error(),
			})
			continue
		}
		sent++
	}
	return sent, failed, nil
}
