// Package access implements the eligibility gate: the static admin
// allow-list, the admin-asserted verified-user set, and its pending request
// queue.
package access

import (
	"fmt"
	"sort"
	"time"

	"auction-house/internal/auctionerrors"
	"auction-house/internal/ledger"
	model "auction-house/internal/models"
	"auction-house/internal/notify"
	"auction-house/utils"
)

// Stale verification requests are purged after this long.
const requestRetention = 30 * 24 * time.Hour

// Gate decides whether an actor may submit or bid.
type Gate struct {
	store      ledger.VerifiedUserStore
	admins     map[string]struct{}
	dispatcher notify.Dispatcher
}

// NewGate creates a gate over the given allow-list and verified-user store.
func NewGate(store ledger.VerifiedUserStore, adminIDs []string, dispatcher notify.Dispatcher) *Gate {
	admins := make(map[string]struct{}, len(adminIDs))
	for _, id := range adminIDs {
		admins[id] = struct{}{}
	}
	return &Gate{store: store, admins: admins, dispatcher: dispatcher}
}

// IsAdmin reports membership in the static admin set.
func (g *Gate) IsAdmin(actorID string) bool {
	_, ok := g.admins[actorID]
	return ok
}

// Admins returns the static admin allow-list.
func (g *Gate) Admins() []string {
	out := make([]string, 0, len(g.admins))
	for id := range g.admins {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// IsEligible reports whether an actor may submit or bid: admins always,
// everyone else only with a verified-user record.
func (g *Gate) IsEligible(actorID string) bool {
	if g.IsAdmin(actorID) {
		return true
	}
	_, err := g.store.GetVerifiedUser(actorID)
	return err == nil
}

// Touch refreshes a verified user's last-active timestamp and display name.
// Best-effort: failure never blocks the gated action.
func (g *Gate) Touch(actorID, displayName string) {
	if g.IsAdmin(actorID) {
		return
	}
	user, err := g.store.GetVerifiedUser(actorID)
	if err != nil {
		return
	}
	user.LastActive = time.Now().UTC()
	if displayName != "" {
		user.DisplayName = displayName
	}
	if err := g.store.PutVerifiedUser(user); err != nil {
		utils.Warn("failed to refresh verified user activity", map[string]any{
			"user_id": actorID,
			"error":   err.Error(),
		})
	}
}

// Verify adds a user to the verified set, clears any pending request, and
// notifies the user (best-effort).
func (g *Gate) Verify(adminID, userID, displayName string) (model.VerifiedUser, error) {
	if _, err := g.store.GetVerifiedUser(userID); err == nil {
		return model.VerifiedUser{}, fmt.Errorf("verify user %s: %w", userID, auctionerrors.ErrAlreadyVerified)
	}

	user := model.VerifiedUser{
		UserID:      userID,
		DisplayName: displayName,
		VerifiedBy:  adminID,
		VerifiedAt:  time.Now().UTC(),
		LastActive:  time.Now().UTC(),
	}
	if err := g.store.PutVerifiedUser(user); err != nil {
		return model.VerifiedUser{}, fmt.Errorf("verify user %s: %w", userID, err)
	}

	if err := g.store.DeleteVerificationRequest(userID); err != nil {
		utils.Warn("failed to clear verification request", map[string]any{
			"user_id": userID,
			"error":   err.Error(),
		})
	}

	if err := g.dispatcher.Notify(userID, notify.VerifiedMessage()); err != nil {
		utils.Warn("verification notice undelivered", map[string]any{
			"user_id": userID,
			"error":   err.Error(),
		})
	}
	return user, nil
}

// Unverify removes a user from the verified set along with any pending
// request, and notifies the user (best-effort).
func (g *Gate) Unverify(userID string) error {
	if err := g.store.DeleteVerifiedUser(userID); err != nil {
		return fmt.Errorf("unverify user %s: %w", userID, err)
	}
	if err := g.store.DeleteVerificationRequest(userID); err != nil {
		utils.Warn("failed to clear verification request", map[string]any{
			"user_id": userID,
			"error":   err.Error(),
		})
	}
	if err := g.dispatcher.Notify(userID, notify.UnverifiedMessage()); err != nil {
		utils.Warn("unverification notice undelivered", map[string]any{
			"user_id": userID,
			"error":   err.Error(),
		})
	}
	return nil
}

// RequestVerification files a pending request for a non-verified user.
// Duplicate requests are rejected while one is pending.
func (g *Gate) RequestVerification(userID, displayName string) error {
	if _, err := g.store.GetVerifiedUser(userID); err == nil {
		return fmt.Errorf("request verification %s: %w", userID, auctionerrors.ErrAlreadyVerified)
	}
	if _, err := g.store.GetVerificationRequest(userID); err == nil {
		return fmt.Errorf("request verification %s: %w", userID, auctionerrors.ErrRequestPending)
	}

	req := model.VerificationRequest{
		UserID:      userID,
		DisplayName: displayName,
		RequestedAt: time.Now().UTC(),
	}
	if err := g.store.PutVerificationRequest(req); err != nil {
		return fmt.Errorf("request verification %s: %w", userID, err)
	}
	return nil
}

// ListVerified returns the current verified-user set.
func (g *Gate) ListVerified() ([]model.VerifiedUser, error) {
	return g.store.ListVerifiedUsers()
}

// ListRequests returns pending verification requests, oldest first.
func (g *Gate) ListRequests() ([]model.VerificationRequest, error) {
	return g.store.ListVerificationRequests()
}

// PurgeStaleRequests drops requests older than the retention window and
// returns how many were removed.
func (g *Gate) PurgeStaleRequests() (int, error) {
	return g.store.PurgeVerificationRequestsBefore(time.Now().UTC().Add(-requestRetention))
}
