package helpers

import (
	"fmt"
	"time"

	"auction-house/internal/amount"
	model "auction-house/internal/models"
)

// Request/Response DTOs
type PlaceBidRequest struct {
	AuctionID string `json:"auction_id" binding:"required"`
	Amount    string `json:"amount" binding:"required"`
}

type BidResponse struct {
	BidID         string `json:"bid_id"`
	AuctionID     string `json:"auction_id"`
	BidderID      string `json:"bidder_id"`
	BidderName    string `json:"bidder_name,omitempty"`
	Amount        int64  `json:"amount"`
	AmountDisplay string `json:"amount_display"`
	CreatedAt     string `json:"created_at"`
}

func NewBidResponse(bid model.Bid) BidResponse {
	return BidResponse{
		BidID:         bid.BidID,
		AuctionID:     bid.AuctionID,
		BidderID:      bid.BidderID,
		BidderName:    bid.BidderName,
		Amount:        bid.Amount,
		AmountDisplay: amount.Format(bid.Amount),
		CreatedAt:     bid.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func NewBidResponses(bids []model.Bid) []BidResponse {
	out := make([]BidResponse, len(bids))
	for i, bid := range bids {
		out[i] = NewBidResponse(bid)
	}
	return out
}

type AuctionResponse struct {
	AuctionID          string         `json:"auction_id"`
	Title              string         `json:"title"`
	ItemDescription    string         `json:"item_description"`
	Category           model.Category `json:"category"`
	Status             string         `json:"status"`
	BasePrice          int64          `json:"base_price"`
	BasePriceDisplay   string         `json:"base_price_display"`
	CurrentBid         *int64         `json:"current_bid,omitempty"`
	CurrentBidDisplay  string         `json:"current_bid_display,omitempty"`
	CurrentLeaderName  string         `json:"current_leader_name,omitempty"`
	PreviousLeaderName string         `json:"previous_leader_name,omitempty"`
	MinNextBid         int64          `json:"min_next_bid"`
	MinNextBidDisplay  string         `json:"min_next_bid_display"`
	SellerName         string         `json:"seller_name,omitempty"`
	CreatedAt          string         `json:"created_at"`
}

// NewAuctionResponse renders the auction for display. The id-bearing title
// is produced here at read time, never stored.
func NewAuctionResponse(a model.Auction) AuctionResponse {
	resp := AuctionResponse{
		AuctionID:          a.AuctionID,
		Title:              fmt.Sprintf("Item #%s", a.AuctionID),
		ItemDescription:    a.ItemDescription,
		Category:           a.Category,
		Status:             string(a.Status),
		BasePrice:          a.BasePrice,
		BasePriceDisplay:   amount.Format(a.BasePrice),
		CurrentLeaderName:  a.CurrentLeaderName,
		PreviousLeaderName: a.PreviousLeaderName,
		SellerName:         a.SellerName,
		CreatedAt:          a.CreatedAt.UTC().Format(time.RFC3339),
	}

	baseline := a.BasePrice
	if a.HasBid {
		baseline = a.CurrentBid
		current := a.CurrentBid
		resp.CurrentBid = &current
		resp.CurrentBidDisplay = amount.Format(current)
	}
	resp.MinNextBid = baseline + amount.MinIncrement(baseline)
	resp.MinNextBidDisplay = amount.Format(resp.MinNextBid)
	return resp
}

func NewAuctionResponses(auctions []model.Auction) []AuctionResponse {
	out := make([]AuctionResponse, len(auctions))
	for i, a := range auctions {
		out[i] = NewAuctionResponse(a)
	}
	return out
}

type StartSubmissionRequest struct {
	Category string `json:"category" binding:"required"`
}

type SessionInputRequest struct {
	Text     string `json:"text"`
	PhotoRef string `json:"photo_ref,omitempty"`
}

type SessionResponse struct {
	Prompt       string `json:"prompt,omitempty"`
	Done         bool   `json:"done"`
	SubmissionID string `json:"submission_id,omitempty"`
}

type VerifyUserRequest struct {
	UserID      string `json:"user_id" binding:"required"`
	DisplayName string `json:"display_name"`
}

type BroadcastRequest struct {
	Message string `json:"message" binding:"required"`
}

type BroadcastResponse struct {
	Sent   int `json:"sent"`
	Failed int `json:"failed"`
}
