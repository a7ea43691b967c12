// Package settlement implements auction closure: freezing the bidding
// flag, determining winners, folding results into the leaderboard exactly
// once, and the admin toggles for the global flags.
package settlement

import (
	"fmt"
	"strings"

	"auction-house/internal/ledger"
	model "auction-house/internal/models"
	"auction-house/internal/notify"
	"auction-house/utils"
)

// Store is the slice of the ledger the settlement batch needs.
type Store interface {
	ledger.AuctionStore
	ledger.BidStore
	ledger.LeaderboardStore
	ledger.StatusStore
}

// ControlStripper removes the interactive bidding controls from an
// auction's external representation. Failures are isolated per auction.
type ControlStripper interface {
	StripControls(auction model.Auction) error
}

// LogStripper is the default stripper: it only records the removal.
type LogStripper struct{}

// StripControls logs and always succeeds.
func (LogStripper) StripControls(auction model.Auction) error {
	utils.Info("bidding controls stripped", map[string]any{
		"auction_id": auction.AuctionID,
	})
	return nil
}

// SettlementService closes auctions and owns the global open/closed flags.
type SettlementService struct {
	store      Store
	dispatcher notify.Dispatcher
	stripper   ControlStripper
}

// NewSettlementService creates a new SettlementService instance.
func NewSettlementService(store Store, dispatcher notify.Dispatcher, stripper ControlStripper) *SettlementService {
	return &SettlementService{store: store, dispatcher: dispatcher, stripper: stripper}
}

// CloseReport aggregates one closure run.
type CloseReport struct {
	AuctionsSettled     int `json:"auctions_settled"`
	WinnersNotified     int `json:"winners_notified"`
	NotificationsFailed int `json:"notifications_failed"`
	LeaderboardUpdates  int `json:"leaderboard_updates"`
	ControlsStripped    int `json:"controls_stripped"`
	SettlementFailures  int `json:"settlement_failures"`
}

// CloseAuctions freezes bidding and settles every active auction. Settled
// auctions move to ended inside the same per-auction transaction that
// picks the winner, so a repeat run skips them and never double-counts.
// One auction's failure never blocks the rest of the batch.
func (s *SettlementService) CloseAuctions() (CloseReport, error) {
	status, err := s.store.Status()
	if err != nil {
		return CloseReport{}, fmt.Errorf("service: close auctions: %w", err)
	}
	status.AuctionsOpen = false
	if err := s.store.SetStatus(status); err != nil {
		return CloseReport{}, fmt.Errorf("service: close auctions: %w", err)
	}

	active, err := s.store.AuctionsByStatus(model.AuctionActive)
	if err != nil {
		return CloseReport{}, fmt.Errorf("service: close auctions: %w", err)
	}

	var report CloseReport
	for _, candidate := range active {
		winner, auction, settled, err := s.settleOne(candidate.AuctionID)
		if err != nil {
			report.SettlementFailures++
			utils.Error("auction settlement failed", map[string]any{
				"auction_id": candidate.AuctionID,
				"error":      err.Error(),
			})
			continue
		}
		if !settled {
			// already ended or removed by a concurrent run
			continue
		}
		report.AuctionsSettled++

		if winner != nil {
			itemName, _, _ := strings.Cut(auction.ItemDescription, "\n")
			if err := s.dispatcher.Notify(winner.BidderID, notify.WinMessage(itemName, winner.Amount)); err != nil {
				report.NotificationsFailed++
				utils.Warn("win notice undelivered", map[string]any{
					"auction_id": auction.AuctionID,
					"recipient":  winner.BidderID,
					"error":      err.Error(),
				})
			} else {
				report.WinnersNotified++
			}

			if s.creditWinner(auction, *winner) {
				report.LeaderboardUpdates++
			}
			if s.creditSeller(auction) {
				report.LeaderboardUpdates++
			}
		}

		if err := s.stripper.StripControls(auction); err != nil {
			utils.Warn("failed to strip bidding controls", map[string]any{
				"auction_id": auction.AuctionID,
				"error":      err.Error(),
			})
		} else {
			report.ControlsStripped++
		}
	}

	utils.Info("auctions closed", map[string]any{
		"settled":             report.AuctionsSettled,
		"winners_notified":    report.WinnersNotified,
		"delivery_failures":   report.NotificationsFailed,
		"leaderboard_updates": report.LeaderboardUpdates,
		"settlement_failures": report.SettlementFailures,
	})
	return report, nil
}

// settleOne picks the winner and moves the auction to ended in one
// serialized transaction. settled is false when another run got there
// first.
func (s *SettlementService) settleOne(auctionID string) (winner *model.Bid, auction model.Auction, settled bool, err error) {
	err = s.store.Transact(auctionID, func(view ledger.AuctionView) error {
		a, err := view.Auction()
		if err != nil {
			return err
		}
		if a.Status != model.AuctionActive {
			auction = a
			return nil
		}

		bids, err := view.ActiveBids()
		if err != nil {
			return err
		}
		if top, ok := leadingBid(bids); ok {
			winner = &top
		}

		a.Status = model.AuctionEnded
		if err := view.PutAuction(a); err != nil {
			return err
		}
		auction = a
		settled = true
		return nil
	})
	if err != nil {
		return nil, model.Auction{}, false, err
	}
	return winner, auction, settled, nil
}

func (s *SettlementService) creditWinner(auction model.Auction, winner model.Bid) bool {
	err := s.store.UpsertLeaderboard(winner.BidderID, func(e *model.LeaderboardEntry) {
		e.TotalWins++
		if winner.BidderName != "" {
			e.DisplayName = winner.BidderName
		}
	})
	if err != nil {
		utils.Error("failed to credit winner", map[string]any{
			"auction_id": auction.AuctionID,
			"winner_id":  winner.BidderID,
			"error":      err.Error(),
		})
		return false
	}
	return true
}

func (s *SettlementService) creditSeller(auction model.Auction) bool {
	if auction.SellerID == "" {
		return false
	}
	err := s.store.UpsertLeaderboard(auction.SellerID, func(e *model.LeaderboardEntry) {
		e.TotalSales++
		if auction.SellerName != "" {
			e.DisplayName = auction.SellerName
		}
	})
	if err != nil {
		utils.Error("failed to credit seller", map[string]any{
			"auction_id": auction.AuctionID,
			"seller_id":  auction.SellerID,
			"error":      err.Error(),
		})
		return false
	}
	return true
}

// OpenAuctions reopens bidding without settling anything.
func (s *SettlementService) OpenAuctions() error {
	return s.setFlags(func(status *model.SystemStatus) { status.AuctionsOpen = true })
}

// SetSubmissionsOpen toggles the submission intake flag.
func (s *SettlementService) SetSubmissionsOpen(open bool) error {
	return s.setFlags(func(status *model.SystemStatus) { status.SubmissionsOpen = open })
}

func (s *SettlementService) setFlags(apply func(*model.SystemStatus)) error {
	status, err := s.store.Status()
	if err != nil {
		return fmt.Errorf("service: failed to read system status: %w", err)
	}
	apply(&status)
	if err := s.store.SetStatus(status); err != nil {
		return fmt.Errorf("service: failed to write system status: %w", err)
	}
	utils.Info("system status changed", map[string]any{
		"submissions_open": status.SubmissionsOpen,
		"auctions_open":    status.AuctionsOpen,
	})
	return nil
}

// TopBuyers returns leaderboard rows ranked by wins; zero-win rows are
// excluded by the store.
func (s *SettlementService) TopBuyers(limit int) ([]model.LeaderboardEntry, error) {
	return s.store.TopWinners(limit)
}

// TopSellers returns leaderboard rows ranked by sales.
func (s *SettlementService) TopSellers(limit int) ([]model.LeaderboardEntry, error) {
	return s.store.TopSellers(limit)
}

// leadingBid returns the highest active bid, earliest first on equal
// amounts.
func leadingBid(bids []model.Bid) (model.Bid, bool) {
	if len(bids) == 0 {
		return model.Bid{}, false
	}
	leader := bids[0]
	for _, b := range bids[1:] {
		if b.Amount > leader.Amount {
			leader = b
		}
	}
	return leader, true
}
