package main

import (
	"fmt"
	"os"

	"github.com/redis/go-redis/v9"

	"auction-house/internal/access"
	bidding "auction-house/internal/biddingService"
	"auction-house/internal/config"
	"auction-house/internal/ledger"
	"auction-house/internal/ledger/redisledger"
	"auction-house/internal/notify"
	"auction-house/internal/server"
	settlement "auction-house/internal/settlementService"
	submission "auction-house/internal/submissionService"
	handler "auction-house/services/auction/handler"
	"auction-house/utils"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	store, err := buildLedger(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize ledger: %v\n", err)
		os.Exit(1)
	}

	if err := seedStatus(store, cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to seed system status: %v\n", err)
		os.Exit(1)
	}

	dispatcher := notify.LogDispatcher{}
	gate := access.NewGate(store, cfg.AdminIDs, dispatcher)

	biddingSvc := bidding.NewBiddingService(store, gate, dispatcher)
	submissionSvc := submission.NewSubmissionService(store, gate, dispatcher)
	settlementSvc := settlement.NewSettlementService(store, dispatcher, settlement.LogStripper{})

	auctionHandler := handler.NewAuctionHandler(biddingSvc, submissionSvc, settlementSvc, gate, dispatcher, store)
	router := server.SetupRouter(auctionHandler, gate)

	utils.Info("starting auction server", map[string]any{
		"addr":    cfg.ListenAddr,
		"backend": cfg.Backend,
		"admins":  len(cfg.AdminIDs),
	})
	if err := router.Run(cfg.ListenAddr); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to start server: %v\n", err)
		os.Exit(1)
	}
}

// buildLedger selects the store backend from config.
func buildLedger(cfg config.Config) (ledger.Ledger, error) {
	if cfg.Backend == config.BackendRedis {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		return redisledger.New(client), nil
	}
	return ledger.NewMemoryLedger(), nil
}

// seedStatus applies the configured flags once at startup. Both flags
// default to closed until an admin opens them.
func seedStatus(store ledger.Ledger, cfg config.Config) error {
	if !cfg.SubmissionsOpen && !cfg.AuctionsOpen {
		return nil
	}
	status, err := store.Status()
	if err != nil {
		return err
	}
	status.SubmissionsOpen = status.SubmissionsOpen || cfg.SubmissionsOpen
	status.AuctionsOpen = status.AuctionsOpen || cfg.AuctionsOpen
	return store.SetStatus(status)
}
