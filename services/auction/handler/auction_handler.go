package handler

import (
	"net/http"
	"strconv"

	model "auction-house/internal/models"
	"auction-house/services/auction/helpers"
	"auction-house/utils"

	"github.com/gin-gonic/gin"
)

// ListAuctionsHandler handles GET /auctions
func (h *AuctionHandler) ListAuctionsHandler(c *gin.Context) {
	grouped, err := h.bidding.ActiveByCategory()
	if err != nil {
		helpers.RespondError(c, "ListAuctionsHandler", err, nil)
		return
	}

	resp := make(map[model.Category][]helpers.AuctionResponse, len(grouped))
	total := 0
	for category, auctions := range grouped {
		resp[category] = helpers.NewAuctionResponses(auctions)
		total += len(auctions)
	}

	utils.JSONResponse(c, http.StatusOK, resp, "auctions retrieved successfully")
	helpers.LogSuccess("ListAuctionsHandler", "auctions retrieved successfully", map[string]any{"count": total})
}

// GetAuctionHandler handles GET /auctions/:auction_id
func (h *AuctionHandler) GetAuctionHandler(c *gin.Context) {
	auctionID := c.Param("auction_id")
	auction, err := h.bidding.GetAuction(auctionID)
	if err != nil {
		helpers.RespondError(c, "GetAuctionHandler", err, map[string]any{"auction_id": auctionID})
		return
	}

	utils.JSONResponse(c, http.StatusOK, helpers.NewAuctionResponse(auction), "auction retrieved successfully")
}

// GetProfileHandler handles GET /users/:user_id/profile
func (h *AuctionHandler) GetProfileHandler(c *gin.Context) {
	userID := c.Param("user_id")
	profile, err := h.submissions.GetProfile(userID)
	if err != nil {
		helpers.RespondError(c, "GetProfileHandler", err, map[string]any{"user_id": userID})
		return
	}

	utils.JSONResponse(c, http.StatusOK, profile, "profile retrieved successfully")
}

// GetUserItemsHandler handles GET /users/:user_id/items
func (h *AuctionHandler) GetUserItemsHandler(c *gin.Context) {
	userID := c.Param("user_id")
	items, err := h.submissions.ApprovedItems(userID)
	if err != nil {
		helpers.RespondError(c, "GetUserItemsHandler", err, map[string]any{"user_id": userID})
		return
	}

	utils.JSONResponse(c, http.StatusOK, helpers.NewAuctionResponses(items), "items retrieved successfully")
	helpers.LogSuccess("GetUserItemsHandler", "items retrieved successfully", map[string]any{
		"user_id": userID,
		"count":   len(items),
	})
}

// TopBuyersHandler handles GET /leaderboard/buyers
func (h *AuctionHandler) TopBuyersHandler(c *gin.Context) {
	entries, err := h.settlement.TopBuyers(limitParam(c))
	if err != nil {
		helpers.RespondError(c, "TopBuyersHandler", err, nil)
		return
	}
	utils.JSONResponse(c, http.StatusOK, entries, "top buyers retrieved successfully")
}

// TopSellersHandler handles GET /leaderboard/sellers
func (h *AuctionHandler) TopSellersHandler(c *gin.Context) {
	entries, err := h.settlement.TopSellers(limitParam(c))
	if err != nil {
		helpers.RespondError(c, "TopSellersHandler", err, nil)
		return
	}
	utils.JSONResponse(c, http.StatusOK, entries, "top sellers retrieved successfully")
}

const defaultLeaderboardLimit = 10

func limitParam(c *gin.Context) int {
	raw := c.Query("limit")
	if raw == "" {
		return defaultLeaderboardLimit
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		return defaultLeaderboardLimit
	}
	return limit
}
