package handler

import (
	"net/http"

	model "auction-house/internal/models"
	submission "auction-house/internal/submissionService"
	"auction-house/services/auction/helpers"
	"auction-house/utils"

	"github.com/gin-gonic/gin"
)

// StartSubmissionHandler handles POST /submissions
func (h *AuctionHandler) StartSubmissionHandler(c *gin.Context) {
	var req helpers.StartSubmissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.HandleBindError(c, "StartSubmissionHandler", err)
		return
	}

	actorID := helpers.ActorID(c)
	prompt, err := h.submissions.StartSession(actorID, helpers.ActorName(c), model.Category(req.Category))
	if err != nil {
		helpers.RespondError(c, "StartSubmissionHandler", err, map[string]any{
			"actor_id": actorID,
			"category": req.Category,
		})
		return
	}

	utils.JSONResponse(c, http.StatusCreated, helpers.SessionResponse{Prompt: prompt}, "submission session started")
	helpers.LogSuccess("StartSubmissionHandler", "submission session started", map[string]any{
		"actor_id": actorID,
		"category": req.Category,
	})
}

// SubmissionInputHandler handles POST /submissions/input
func (h *AuctionHandler) SubmissionInputHandler(c *gin.Context) {
	var req helpers.SessionInputRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.HandleBindError(c, "SubmissionInputHandler", err)
		return
	}

	actorID := helpers.ActorID(c)
	result, err := h.submissions.ProvideInput(actorID, submission.Input{Text: req.Text, PhotoRef: req.PhotoRef})
	if err != nil {
		helpers.RespondError(c, "SubmissionInputHandler", err, map[string]any{"actor_id": actorID})
		return
	}

	resp := helpers.SessionResponse{Prompt: result.Prompt, Done: result.Done}
	if result.Done {
		resp.SubmissionID = result.Submission.SubmissionID
		utils.JSONResponse(c, http.StatusCreated, resp, "submission created")
		helpers.LogSuccess("SubmissionInputHandler", "submission created", map[string]any{
			"actor_id":      actorID,
			"submission_id": result.Submission.SubmissionID,
		})
		return
	}
	utils.JSONResponse(c, http.StatusOK, resp, "input accepted")
}

// CancelSubmissionHandler handles DELETE /submissions/session
func (h *AuctionHandler) CancelSubmissionHandler(c *gin.Context) {
	actorID := helpers.ActorID(c)
	if err := h.submissions.CancelSession(actorID); err != nil {
		helpers.RespondError(c, "CancelSubmissionHandler", err, map[string]any{"actor_id": actorID})
		return
	}
	utils.JSONResponse(c, http.StatusOK, nil, "submission session cancelled")
}

// RequestVerificationHandler handles POST /verification/requests
func (h *AuctionHandler) RequestVerificationHandler(c *gin.Context) {
	actorID := helpers.ActorID(c)
	if err := h.gate.RequestVerification(actorID, helpers.ActorName(c)); err != nil {
		helpers.RespondError(c, "RequestVerificationHandler", err, map[string]any{"actor_id": actorID})
		return
	}

	utils.JSONResponse(c, http.StatusCreated, nil, "verification request filed")
	helpers.LogSuccess("RequestVerificationHandler", "verification request filed", map[string]any{
		"actor_id": actorID,
	})
}
