package handler

import (
	"net/http"

	"auction-house/services/auction/helpers"
	"auction-house/utils"

	"github.com/gin-gonic/gin"
)

// PlaceBidHandler handles POST /bids
func (h *AuctionHandler) PlaceBidHandler(c *gin.Context) {
	var req helpers.PlaceBidRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.HandleBindError(c, "PlaceBidHandler", err)
		return
	}

	actorID := helpers.ActorID(c)
	result, err := h.bidding.PlaceBid(req.AuctionID, actorID, helpers.ActorName(c), req.Amount)
	if err != nil {
		helpers.RespondError(c, "PlaceBidHandler", err, map[string]any{
			"auction_id": req.AuctionID,
			"bidder_id":  actorID,
		})
		return
	}

	resp := helpers.NewBidResponse(result.Bid)
	utils.JSONResponse(c, http.StatusCreated, resp, "bid placed successfully")
	helpers.LogSuccess("PlaceBidHandler", "bid placed successfully", map[string]any{
		"bid_id":     result.Bid.BidID,
		"auction_id": result.Bid.AuctionID,
		"bidder_id":  actorID,
		"amount":     result.Bid.Amount,
	})
}

// GetBidHistoryHandler handles GET /auctions/:auction_id/bids
func (h *AuctionHandler) GetBidHistoryHandler(c *gin.Context) {
	auctionID := c.Param("auction_id")
	bids, err := h.bidding.BidHistory(auctionID)
	if err != nil {
		helpers.RespondError(c, "GetBidHistoryHandler", err, map[string]any{"auction_id": auctionID})
		return
	}

	utils.JSONResponse(c, http.StatusOK, helpers.NewBidResponses(bids), "bids retrieved successfully")
	helpers.LogSuccess("GetBidHistoryHandler", "bids retrieved successfully", map[string]any{
		"auction_id": auctionID,
		"count":      len(bids),
	})
}

// GetUserBidsHandler handles GET /users/:user_id/bids
func (h *AuctionHandler) GetUserBidsHandler(c *gin.Context) {
	userID := c.Param("user_id")
	bids, err := h.bidding.LeadingBids(userID)
	if err != nil {
		helpers.RespondError(c, "GetUserBidsHandler", err, map[string]any{"user_id": userID})
		return
	}

	utils.JSONResponse(c, http.StatusOK, helpers.NewBidResponses(bids), "leading bids retrieved successfully")
	helpers.LogSuccess("GetUserBidsHandler", "leading bids retrieved successfully", map[string]any{
		"user_id": userID,
		"count":   len(bids),
	})
}
