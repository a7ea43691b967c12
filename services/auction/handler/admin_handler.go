package handler

import (
	"net/http"

	"auction-house/internal/notify"
	"auction-house/services/auction/helpers"
	"auction-house/utils"

	"github.com/gin-gonic/gin"
)

// ApproveSubmissionHandler handles POST /admin/submissions/:submission_id/approve
func (h *AuctionHandler) ApproveSubmissionHandler(c *gin.Context) {
	submissionID := c.Param("submission_id")
	auction, err := h.submissions.Approve(submissionID)
	if err != nil {
		helpers.RespondError(c, "ApproveSubmissionHandler", err, map[string]any{"submission_id": submissionID})
		return
	}

	utils.JSONResponse(c, http.StatusCreated, helpers.NewAuctionResponse(auction), "submission approved")
	helpers.LogSuccess("ApproveSubmissionHandler", "submission approved", map[string]any{
		"submission_id": submissionID,
		"auction_id":    auction.AuctionID,
		"admin_id":      helpers.ActorID(c),
	})
}

// RejectSubmissionHandler handles POST /admin/submissions/:submission_id/reject
func (h *AuctionHandler) RejectSubmissionHandler(c *gin.Context) {
	submissionID := c.Param("submission_id")
	sub, err := h.submissions.Reject(submissionID)
	if err != nil {
		helpers.RespondError(c, "RejectSubmissionHandler", err, map[string]any{"submission_id": submissionID})
		return
	}

	utils.JSONResponse(c, http.StatusOK, gin.H{"submission_id": sub.SubmissionID, "status": sub.Status}, "submission rejected")
	helpers.LogSuccess("RejectSubmissionHandler", "submission rejected", map[string]any{
		"submission_id": submissionID,
		"admin_id":      helpers.ActorID(c),
	})
}

// RemoveLastBidHandler handles POST /admin/auctions/:auction_id/remove-bid
func (h *AuctionHandler) RemoveLastBidHandler(c *gin.Context) {
	auctionID := c.Param("auction_id")
	result, err := h.bidding.RemoveLastBid(auctionID)
	if err != nil {
		helpers.RespondError(c, "RemoveLastBidHandler", err, map[string]any{"auction_id": auctionID})
		return
	}

	resp := gin.H{"removed": helpers.NewBidResponse(result.Removed)}
	if result.HasLeader {
		resp["leader"] = helpers.NewBidResponse(result.Leader)
	}
	utils.JSONResponse(c, http.StatusOK, resp, "last bid removed")
	helpers.LogSuccess("RemoveLastBidHandler", "last bid removed", map[string]any{
		"auction_id": auctionID,
		"bid_id":     result.Removed.BidID,
		"admin_id":   helpers.ActorID(c),
	})
}

// RemoveAuctionHandler handles POST /admin/auctions/:auction_id/remove
func (h *AuctionHandler) RemoveAuctionHandler(c *gin.Context) {
	auctionID := c.Param("auction_id")
	auction, err := h.submissions.RemoveItem(auctionID)
	if err != nil {
		helpers.RespondError(c, "RemoveAuctionHandler", err, map[string]any{"auction_id": auctionID})
		return
	}

	utils.JSONResponse(c, http.StatusOK, helpers.NewAuctionResponse(auction), "auction removed")
	helpers.LogSuccess("RemoveAuctionHandler", "auction removed", map[string]any{
		"auction_id": auctionID,
		"admin_id":   helpers.ActorID(c),
	})
}

// CloseAuctionsHandler handles POST /admin/close-auctions
func (h *AuctionHandler) CloseAuctionsHandler(c *gin.Context) {
	report, err := h.settlement.CloseAuctions()
	if err != nil {
		helpers.RespondError(c, "CloseAuctionsHandler", err, nil)
		return
	}

	utils.JSONResponse(c, http.StatusOK, report, "auctions closed")
	helpers.LogSuccess("CloseAuctionsHandler", "auctions closed", map[string]any{
		"settled":  report.AuctionsSettled,
		"admin_id": helpers.ActorID(c),
	})
}

// OpenAuctionsHandler handles POST /admin/auctions/open
func (h *AuctionHandler) OpenAuctionsHandler(c *gin.Context) {
	if err := h.settlement.OpenAuctions(); err != nil {
		helpers.RespondError(c, "OpenAuctionsHandler", err, nil)
		return
	}
	utils.JSONResponse(c, http.StatusOK, nil, "auctions opened")
}

// OpenSubmissionsHandler handles POST /admin/submissions/open
func (h *AuctionHandler) OpenSubmissionsHandler(c *gin.Context) {
	if err := h.settlement.SetSubmissionsOpen(true); err != nil {
		helpers.RespondError(c, "OpenSubmissionsHandler", err, nil)
		return
	}
	utils.JSONResponse(c, http.StatusOK, nil, "submissions opened")
}

// CloseSubmissionsHandler handles POST /admin/submissions/close
func (h *AuctionHandler) CloseSubmissionsHandler(c *gin.Context) {
	if err := h.settlement.SetSubmissionsOpen(false); err != nil {
		helpers.RespondError(c, "CloseSubmissionsHandler", err, nil)
		return
	}
	utils.JSONResponse(c, http.StatusOK, nil, "submissions closed")
}

// VerifyUserHandler handles POST /admin/verified
func (h *AuctionHandler) VerifyUserHandler(c *gin.Context) {
	var req helpers.VerifyUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.HandleBindError(c, "VerifyUserHandler", err)
		return
	}

	user, err := h.gate.Verify(helpers.ActorID(c), req.UserID, req.DisplayName)
	if err != nil {
		helpers.RespondError(c, "VerifyUserHandler", err, map[string]any{"user_id": req.UserID})
		return
	}

	utils.JSONResponse(c, http.StatusCreated, user, "user verified")
	helpers.LogSuccess("VerifyUserHandler", "user verified", map[string]any{
		"user_id":  req.UserID,
		"admin_id": helpers.ActorID(c),
	})
}

// UnverifyUserHandler handles DELETE /admin/verified/:user_id
func (h *AuctionHandler) UnverifyUserHandler(c *gin.Context) {
	userID := c.Param("user_id")
	if err := h.gate.Unverify(userID); err != nil {
		helpers.RespondError(c, "UnverifyUserHandler", err, map[string]any{"user_id": userID})
		return
	}

	utils.JSONResponse(c, http.StatusOK, nil, "user unverified")
	helpers.LogSuccess("UnverifyUserHandler", "user unverified", map[string]any{
		"user_id":  userID,
		"admin_id": helpers.ActorID(c),
	})
}

// ListVerifiedHandler handles GET /admin/verified
func (h *AuctionHandler) ListVerifiedHandler(c *gin.Context) {
	users, err := h.gate.ListVerified()
	if err != nil {
		helpers.RespondError(c, "ListVerifiedHandler", err, nil)
		return
	}
	utils.JSONResponse(c, http.StatusOK, users, "verified users retrieved successfully")
}

// ListVerificationRequestsHandler handles GET /admin/verification-requests
func (h *AuctionHandler) ListVerificationRequestsHandler(c *gin.Context) {
	if purged, err := h.gate.PurgeStaleRequests(); err != nil {
		utils.Warn("stale request purge failed", map[string]any{
			"handler": "ListVerificationRequestsHandler",
			"error":   err.Error(),
		})
	} else if purged > 0 {
		helpers.LogSuccess("ListVerificationRequestsHandler", "stale requests purged", map[string]any{"purged": purged})
	}

	requests, err := h.gate.ListRequests()
	if err != nil {
		helpers.RespondError(c, "ListVerificationRequestsHandler", err, nil)
		return
	}
	utils.JSONResponse(c, http.StatusOK, requests, "verification requests retrieved successfully")
}

// BroadcastHandler handles POST /admin/broadcast
func (h *AuctionHandler) BroadcastHandler(c *gin.Context) {
	var req helpers.BroadcastRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.HandleBindError(c, "BroadcastHandler", err)
		return
	}

	sent, failed, err := notify.Broadcast(h.users, h.dispatcher, req.Message)
	if err != nil {
		helpers.RespondError(c, "BroadcastHandler", err, nil)
		return
	}

	utils.JSONResponse(c, http.StatusOK, helpers.BroadcastResponse{Sent: sent, Failed: failed}, "broadcast dispatched")
	helpers.LogSuccess("BroadcastHandler", "broadcast dispatched", map[string]any{
		"sent":     sent,
		"failed":   failed,
		"admin_id": helpers.ActorID(c),
	})
}

// IntegrityHandler handles GET /admin/integrity
func (h *AuctionHandler) IntegrityHandler(c *gin.Context) {
	report, err := h.submissions.IntegrityScan()
	if err != nil {
		helpers.RespondError(c, "IntegrityHandler", err, nil)
		return
	}
	utils.JSONResponse(c, http.StatusOK, report, "integrity scan completed")
}
