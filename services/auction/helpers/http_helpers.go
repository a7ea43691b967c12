package helpers

import (
	"errors"
	"fmt"
	"net/http"

	"auction-house/internal/auctionerrors"
	"auction-house/utils"

	"github.com/gin-gonic/gin"
)

// Context keys set by the identity middleware.
const (
	ActorIDKey   = "actor_id"
	ActorNameKey = "actor_name"
)

// ActorID returns the authenticated actor id from the request context.
func ActorID(c *gin.Context) string {
	return c.GetString(ActorIDKey)
}

// ActorName returns the actor's display name, when the client supplied one.
func ActorName(c *gin.Context) string {
	return c.GetString(ActorNameKey)
}

// HandleBindError sends a standardized JSON error for binding failures
func HandleBindError(c *gin.Context, handlerName string, err error) {
	wrappedErr := fmt.Errorf("invalid request payload: %w", err)
	utils.JSONError(c, http.StatusBadRequest, wrappedErr, "invalid request payload")
	utils.Warn(handlerName+": binding error", map[string]any{"error": err.Error()})
}

// MapErrorToHTTP maps domain/service errors to HTTP status code and message
func MapErrorToHTTP(err error) (int, string) {
	switch {
	case errors.Is(err, auctionerrors.ErrBidTooLow):
		return http.StatusConflict, "bid amount too low"
	case errors.Is(err, auctionerrors.ErrAuctionNotFound):
		return http.StatusNotFound, "auction not found"
	case errors.Is(err, auctionerrors.ErrSubmissionNotFound):
		return http.StatusNotFound, "submission not found"
	case errors.Is(err, auctionerrors.ErrUserNotVerified):
		return http.StatusNotFound, "user is not verified"
	case errors.Is(err, auctionerrors.ErrNotVerified):
		return http.StatusForbidden, "verification required"
	case errors.Is(err, auctionerrors.ErrAdminOnly):
		return http.StatusForbidden, "admin access required"
	case errors.Is(err, auctionerrors.ErrSubmissionsClosed):
		return http.StatusForbidden, "submissions are closed"
	case errors.Is(err, auctionerrors.ErrAuctionsClosed):
		return http.StatusForbidden, "auctions are closed"
	case errors.Is(err, auctionerrors.ErrAuctionNotActive):
		return http.StatusConflict, "auction is not active"
	case errors.Is(err, auctionerrors.ErrAlreadyProcessed):
		return http.StatusConflict, "submission already processed"
	case errors.Is(err, auctionerrors.ErrDuplicateListing):
		return http.StatusConflict, "submission already listed"
	case errors.Is(err, auctionerrors.ErrNoActiveBids):
		return http.StatusConflict, "no active bids to retract"
	case errors.Is(err, auctionerrors.ErrNoSession):
		return http.StatusConflict, "no submission session in progress"
	case errors.Is(err, auctionerrors.ErrAlreadyVerified):
		return http.StatusConflict, "user is already verified"
	case errors.Is(err, auctionerrors.ErrRequestPending):
		return http.StatusConflict, "verification request already pending"
	case errors.Is(err, auctionerrors.ErrAuctionCreateFailed):
		return http.StatusInternalServerError, "auction creation failed"
	case auctionerrors.IsValidation(err):
		return http.StatusBadRequest, "invalid input"
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}

// RespondError maps err and writes the standardized error body.
func RespondError(c *gin.Context, handlerName string, err error, ctx map[string]any) {
	status, message := MapErrorToHTTP(err)
	utils.JSONError(c, status, fmt.Errorf("%s: %w", message, err), message)

	if ctx == nil {
		ctx = map[string]any{}
	}
	ctx["error"] = err.Error()
	if status >= http.StatusInternalServerError {
		utils.Error(handlerName+": request failed", ctx)
	} else {
		utils.Warn(handlerName+": request rejected", ctx)
	}
}

// LogSuccess is a small helper to standardize logging of successful operations
func LogSuccess(handlerName, message string, ctx map[string]any) {
	utils.Info(handlerName+": "+message, ctx)
}
