// Package handler implements the HTTP delivery layer over the auction
// services.
package handler

import (
	"auction-house/internal/access"
	bidding "auction-house/internal/biddingService"
	"auction-house/internal/ledger"
	"auction-house/internal/notify"
	settlement "auction-house/internal/settlementService"
	submission "auction-house/internal/submissionService"
)

type AuctionHandler struct {
	bidding     *bidding.BiddingService
	submissions *submission.SubmissionService
	settlement  *settlement.SettlementService
	gate        *access.Gate
	dispatcher  notify.Dispatcher
	users       ledger.VerifiedUserStore
}

func NewAuctionHandler(
	biddingService *bidding.BiddingService,
	submissionService *submission.SubmissionService,
	settlementService *settlement.SettlementService,
	gate *access.Gate,
	dispatcher notify.Dispatcher,
	users ledger.VerifiedUserStore,
) *AuctionHandler {
	return &AuctionHandler{
		bidding:     biddingService,
		submissions: submissionService,
		settlement:  settlementService,
		gate:        gate,
		dispatcher:  dispatcher,
		users:       users,
	}
}
