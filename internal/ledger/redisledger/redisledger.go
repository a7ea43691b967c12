// Package redisledger implements the ledger contract on redis. Entities are
// stored as JSON values with set-based status indexes; per-auction
// transactions use WATCH-based optimistic execution with retry.
package redisledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"auction-house/internal/auctionerrors"
	"auction-house/internal/ledger"
	model "auction-house/internal/models"

	"github.com/redis/go-redis/v9"
)

const (
	keyPrefixAuction    = "auction:"
	keyPrefixAuctionRef = "auction:ref:"
	keyPrefixBids       = "bids:"
	keyPrefixSubmission = "submission:"
	keyPrefixVerified   = "verified:"
	keyPrefixVerifReq   = "verifreq:"
	keyPrefixProfile    = "profile:"
	keyPrefixBoard      = "leaderboard:"

	keyAuctionsAll    = "auctions:all"
	keyVerifiedSet    = "verified:all"
	keyVerifReqSet    = "verifreq:all"
	keyBoardSet       = "leaderboard:all"
	keySystemStatus   = "system:status"
	keySubmissionsAll = "submissions:all"

	opTimeout  = 5 * time.Second
	maxRetries = 5
)

// RedisLedger is a redis-backed implementation of ledger.Ledger.
type RedisLedger struct {
	client *redis.Client
}

// New wraps a connected redis client.
func New(client *redis.Client) *RedisLedger {
	return &RedisLedger{client: client}
}

func opContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), opTimeout)
}

func auctionKey(id string) string                         { return keyPrefixAuction + id }
func auctionRefKey(ref string) string                     { return keyPrefixAuctionRef + ref }
func auctionStatusKey(s model.AuctionStatus) string       { return "auctions:status:" + string(s) }
func bidsKey(auctionID string) string                     { return keyPrefixBids + auctionID }
func submissionKey(id string) string                      { return keyPrefixSubmission + id }
func submissionStatusKey(s model.SubmissionStatus) string { return "submissions:status:" + string(s) }
func verifiedKey(userID string) string                    { return keyPrefixVerified + userID }
func verifReqKey(userID string) string                    { return keyPrefixVerifReq + userID }
func profileKey(userID string) string                     { return keyPrefixProfile + userID }
func boardKey(userID string) string                       { return keyPrefixBoard + userID }

// Transact runs fn against one auction's rows under WATCH. The commit is
// retried from scratch when a concurrent writer touches the watched keys,
// so the losing caller re-validates against the updated state.
func (l *RedisLedger) Transact(auctionID string, fn func(ledger.AuctionView) error) error {
	ctx, cancel := opContext()
	defer cancel()

	for attempt := 0; attempt < maxRetries; attempt++ {
		err := l.client.Watch(ctx, func(tx *redis.Tx) error {
			view, err := loadView(ctx, tx, auctionID)
			if err != nil {
				return err
			}
			if err := fn(view); err != nil {
				return err
			}
			return view.commit(ctx, tx)
		}, auctionKey(auctionID), bidsKey(auctionID))

		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}
	return fmt.Errorf("transact auction %s: retries exhausted: %w", auctionID, redis.TxFailedErr)
}

// redisView buffers one auction's reads and writes; commit applies the
// writes in a single MULTI/EXEC pipeline.
type redisView struct {
	auctionID string

	auction    model.Auction
	hasAuction bool
	allBids    []model.Bid // full log incl. inactive, list order

	putAuction  *model.Auction
	appended    []model.Bid
	deactivated []int // indexes into allBids
}

func loadView(ctx context.Context, tx *redis.Tx, auctionID string) (*redisView, error) {
	view := &redisView{auctionID: auctionID}

	raw, err := tx.Get(ctx, auctionKey(auctionID)).Result()
	switch {
	case err == nil:
		if err := json.Unmarshal([]byte(raw), &view.auction); err != nil {
			return nil, fmt.Errorf("unmarshal auction %s: %w", auctionID, err)
		}
		view.hasAuction = true
	case errors.Is(err, redis.Nil):
		// leave hasAuction false; Auction() reports not found
	default:
		return nil, fmt.Errorf("load auction %s: %w", auctionID, err)
	}

	items, err := tx.LRange(ctx, bidsKey(auctionID), 0, -1).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("load bids for %s: %w", auctionID, err)
	}
	for _, item := range items {
		var bid model.Bid
		if err := json.Unmarshal([]byte(item), &bid); err != nil {
			return nil, fmt.Errorf("unmarshal bid for %s: %w", auctionID, err)
		}
		view.allBids = append(view.allBids, bid)
	}
	return view, nil
}

func (v *redisView) Auction() (model.Auction, error) {
	if v.putAuction != nil {
		return *v.putAuction, nil
	}
	if !v.hasAuction {
		return model.Auction{}, fmt.Errorf("get auction %s: %w", v.auctionID, auctionerrors.ErrAuctionNotFound)
	}
	return v.auction, nil
}

func (v *redisView) PutAuction(auction model.Auction) error {
	auction.AuctionID = v.auctionID
	v.putAuction = &auction
	return nil
}

func (v *redisView) ActiveBids() ([]model.Bid, error) {
	var out []model.Bid
	for i, b := range v.allBids {
		if !b.IsActive {
			continue
		}
		skip := false
		for _, idx := range v.deactivated {
			if idx == i {
				skip = true
				break
			}
		}
		if !skip {
			out = append(out, b)
		}
	}
	for _, b := range v.appended {
		out = append(out, b)
	}
	return out, nil
}

func (v *redisView) AppendBid(bid model.Bid) error {
	bid.AuctionID = v.auctionID
	v.appended = append(v.appended, bid)
	return nil
}

func (v *redisView) DeactivateBid(bidID string) error {
	for i, b := range v.allBids {
		if b.BidID == bidID && b.IsActive {
			v.deactivated = append(v.deactivated, i)
			return nil
		}
	}
	return fmt.Errorf("deactivate bid %s: %w", bidID, auctionerrors.ErrNoActiveBids)
}

func (v *redisView) commit(ctx context.Context, tx *redis.Tx) error {
	_, err := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		if v.putAuction != nil {
			data, err := json.Marshal(v.putAuction)
			if err != nil {
				return fmt.Errorf("marshal auction %s: %w", v.auctionID, err)
			}
			pipe.Set(ctx, auctionKey(v.auctionID), data, 0)
			pipe.SAdd(ctx, keyAuctionsAll, v.auctionID)
			if v.hasAuction && v.auction.Status != v.putAuction.Status {
				pipe.SRem(ctx, auctionStatusKey(v.auction.Status), v.auctionID)
			}
			pipe.SAdd(ctx, auctionStatusKey(v.putAuction.Status), v.auctionID)
			if v.putAuction.MessageRef != "" {
				pipe.Set(ctx, auctionRefKey(v.putAuction.MessageRef), v.auctionID, 0)
			}
		}
		for _, idx := range v.deactivated {
			bid := v.allBids[idx]
			bid.IsActive = false
			data, err := json.Marshal(bid)
			if err != nil {
				return fmt.Errorf("marshal bid %s: %w", bid.BidID, err)
			}
			pipe.LSet(ctx, bidsKey(v.auctionID), int64(idx), data)
		}
		for _, bid := range v.appended {
			data, err := json.Marshal(bid)
			if err != nil {
				return fmt.Errorf("marshal bid %s: %w", bid.BidID, err)
			}
			pipe.RPush(ctx, bidsKey(v.auctionID), data)
		}
		return nil
	})
	return err
}

// GetAuction returns one auction by id.
func (l *RedisLedger) GetAuction(auctionID string) (model.Auction, error) {
	ctx, cancel := opContext()
	defer cancel()

	var auction model.Auction
	if err := l.getJSON(ctx, auctionKey(auctionID), &auction); err != nil {
		if errors.Is(err, redis.Nil) {
			return model.Auction{}, fmt.Errorf("get auction %s: %w", auctionID, auctionerrors.ErrAuctionNotFound)
		}
		return model.Auction{}, fmt.Errorf("get auction %s: %w", auctionID, err)
	}
	return auction, nil
}

// PutAuction inserts or replaces an auction row and maintains the status
// and message-ref indexes.
func (l *RedisLedger) PutAuction(auction model.Auction) error {
	ctx, cancel := opContext()
	defer cancel()

	var previous model.Auction
	hadPrevious := true
	if err := l.getJSON(ctx, auctionKey(auction.AuctionID), &previous); err != nil {
		if !errors.Is(err, redis.Nil) {
			return fmt.Errorf("put auction %s: %w", auction.AuctionID, err)
		}
		hadPrevious = false
	}

	data, err := json.Marshal(auction)
	if err != nil {
		return fmt.Errorf("marshal auction %s: %w", auction.AuctionID, err)
	}

	_, err = l.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, auctionKey(auction.AuctionID), data, 0)
		pipe.SAdd(ctx, keyAuctionsAll, auction.AuctionID)
		if hadPrevious && previous.Status != auction.Status {
			pipe.SRem(ctx, auctionStatusKey(previous.Status), auction.AuctionID)
		}
		pipe.SAdd(ctx, auctionStatusKey(auction.Status), auction.AuctionID)
		if auction.MessageRef != "" {
			pipe.Set(ctx, auctionRefKey(auction.MessageRef), auction.AuctionID, 0)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("put auction %s: %w", auction.AuctionID, err)
	}
	return nil
}

// AuctionsByStatus returns all auctions with the given status, oldest first.
func (l *RedisLedger) AuctionsByStatus(status model.AuctionStatus) ([]model.Auction, error) {
	ctx, cancel := opContext()
	defer cancel()

	ids, err := l.client.SMembers(ctx, auctionStatusKey(status)).Result()
	if err != nil {
		return nil, fmt.Errorf("auctions by status %s: %w", status, err)
	}

	var out []model.Auction
	for _, id := range ids {
		var auction model.Auction
		if err := l.getJSON(ctx, auctionKey(id), &auction); err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			return nil, fmt.Errorf("auctions by status %s: %w", status, err)
		}
		// index may lag behind the row after a transactional status flip
		if auction.Status == status {
			out = append(out, auction)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// AuctionByMessageRef resolves the message-ref index to an auction.
func (l *RedisLedger) AuctionByMessageRef(ref string) (model.Auction, error) {
	ctx, cancel := opContext()
	defer cancel()

	id, err := l.client.Get(ctx, auctionRefKey(ref)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return model.Auction{}, fmt.Errorf("auction by message ref %s: %w", ref, auctionerrors.ErrAuctionNotFound)
		}
		return model.Auction{}, fmt.Errorf("auction by message ref %s: %w", ref, err)
	}
	return l.GetAuction(id)
}

// ActiveBids returns the active bids for an auction in log order.
func (l *RedisLedger) ActiveBids(auctionID string) ([]model.Bid, error) {
	ctx, cancel := opContext()
	defer cancel()
	return l.activeBids(ctx, auctionID)
}

func (l *RedisLedger) activeBids(ctx context.Context, auctionID string) ([]model.Bid, error) {
	items, err := l.client.LRange(ctx, bidsKey(auctionID), 0, -1).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("active bids for %s: %w", auctionID, err)
	}
	var out []model.Bid
	for _, item := range items {
		var bid model.Bid
		if err := json.Unmarshal([]byte(item), &bid); err != nil {
			return nil, fmt.Errorf("unmarshal bid for %s: %w", auctionID, err)
		}
		if bid.IsActive {
			out = append(out, bid)
		}
	}
	return out, nil
}

// ActiveBidsByBidder scans the bid logs of all known auctions.
func (l *RedisLedger) ActiveBidsByBidder(bidderID string) ([]model.Bid, error) {
	ctx, cancel := opContext()
	defer cancel()

	ids, err := l.client.SMembers(ctx, keyAuctionsAll).Result()
	if err != nil {
		return nil, fmt.Errorf("active bids by bidder %s: %w", bidderID, err)
	}

	var out []model.Bid
	for _, auctionID := range ids {
		bids, err := l.activeBids(ctx, auctionID)
		if err != nil {
			return nil, err
		}
		for _, b := range bids {
			if b.BidderID == bidderID {
				out = append(out, b)
			}
		}
	}
	return out, nil
}

// GetSubmission returns one submission by id.
func (l *RedisLedger) GetSubmission(submissionID string) (model.Submission, error) {
	ctx, cancel := opContext()
	defer cancel()

	var s model.Submission
	if err := l.getJSON(ctx, submissionKey(submissionID), &s); err != nil {
		if errors.Is(err, redis.Nil) {
			return model.Submission{}, fmt.Errorf("get submission %s: %w", submissionID, auctionerrors.ErrSubmissionNotFound)
		}
		return model.Submission{}, fmt.Errorf("get submission %s: %w", submissionID, err)
	}
	return s, nil
}

// PutSubmission inserts or replaces a submission row and maintains the
// status index.
func (l *RedisLedger) PutSubmission(submission model.Submission) error {
	ctx, cancel := opContext()
	defer cancel()

	var previous model.Submission
	hadPrevious := true
	if err := l.getJSON(ctx, submissionKey(submission.SubmissionID), &previous); err != nil {
		if !errors.Is(err, redis.Nil) {
			return fmt.Errorf("put submission %s: %w", submission.SubmissionID, err)
		}
		hadPrevious = false
	}

	data, err := json.Marshal(submission)
	if err != nil {
		return fmt.Errorf("marshal submission %s: %w", submission.SubmissionID, err)
	}

	_, err = l.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, submissionKey(submission.SubmissionID), data, 0)
		pipe.SAdd(ctx, keySubmissionsAll, submission.SubmissionID)
		if hadPrevious && previous.Status != submission.Status {
			pipe.SRem(ctx, submissionStatusKey(previous.Status), submission.SubmissionID)
		}
		pipe.SAdd(ctx, submissionStatusKey(submission.Status), submission.SubmissionID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("put submission %s: %w", submission.SubmissionID, err)
	}
	return nil
}

// SubmissionsByStatus returns all submissions with the given status,
// oldest first.
func (l *RedisLedger) SubmissionsByStatus(status model.SubmissionStatus) ([]model.Submission, error) {
	ctx, cancel := opContext()
	defer cancel()

	ids, err := l.client.SMembers(ctx, submissionStatusKey(status)).Result()
	if err != nil {
		return nil, fmt.Errorf("submissions by status %s: %w", status, err)
	}

	var out []model.Submission
	for _, id := range ids {
		var s model.Submission
		if err := l.getJSON(ctx, submissionKey(id), &s); err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			return nil, fmt.Errorf("submissions by status %s: %w", status, err)
		}
		if s.Status == status {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// SubmissionsBySubmitter returns all submissions by one user, oldest first.
func (l *RedisLedger) SubmissionsBySubmitter(userID string) ([]model.Submission, error) {
	ctx, cancel := opContext()
	defer cancel()

	ids, err := l.client.SMembers(ctx, keySubmissionsAll).Result()
	if err != nil {
		return nil, fmt.Errorf("submissions by submitter %s: %w", userID, err)
	}

	var out []model.Submission
	for _, id := range ids {
		var s model.Submission
		if err := l.getJSON(ctx, submissionKey(id), &s); err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			return nil, fmt.Errorf("submissions by submitter %s: %w", userID, err)
		}
		if s.SubmitterID == userID {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// GetVerifiedUser returns a verified-user record.
func (l *RedisLedger) GetVerifiedUser(userID string) (model.VerifiedUser, error) {
	ctx, cancel := opContext()
	defer cancel()

	var u model.VerifiedUser
	if err := l.getJSON(ctx, verifiedKey(userID), &u); err != nil {
		if errors.Is(err, redis.Nil) {
			return model.VerifiedUser{}, fmt.Errorf("get verified user %s: %w", userID, auctionerrors.ErrUserNotVerified)
		}
		return model.VerifiedUser{}, fmt.Errorf("get verified user %s: %w", userID, err)
	}
	return u, nil
}

// PutVerifiedUser inserts or replaces a verified-user record.
func (l *RedisLedger) PutVerifiedUser(user model.VerifiedUser) error {
	ctx, cancel := opContext()
	defer cancel()
	return l.putIndexed(ctx, verifiedKey(user.UserID), keyVerifiedSet, user.UserID, user)
}

// DeleteVerifiedUser removes a user from the allow-list.
func (l *RedisLedger) DeleteVerifiedUser(userID string) error {
	ctx, cancel := opContext()
	defer cancel()

	removed, err := l.client.Del(ctx, verifiedKey(userID)).Result()
	if err != nil {
		return fmt.Errorf("delete verified user %s: %w", userID, err)
	}
	if removed == 0 {
		return fmt.Errorf("delete verified user %s: %w", userID, auctionerrors.ErrUserNotVerified)
	}
	if err := l.client.SRem(ctx, keyVerifiedSet, userID).Err(); err != nil {
		return fmt.Errorf("delete verified user %s: %w", userID, err)
	}
	return nil
}

// ListVerifiedUsers returns all verified users ordered by verification time.
func (l *RedisLedger) ListVerifiedUsers() ([]model.VerifiedUser, error) {
	ctx, cancel := opContext()
	defer cancel()

	ids, err := l.client.SMembers(ctx, keyVerifiedSet).Result()
	if err != nil {
		return nil, fmt.Errorf("list verified users: %w", err)
	}

	var out []model.VerifiedUser
	for _, id := range ids {
		var u model.VerifiedUser
		if err := l.getJSON(ctx, verifiedKey(id), &u); err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			return nil, fmt.Errorf("list verified users: %w", err)
		}
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].VerifiedAt.Before(out[j].VerifiedAt) })
	return out, nil
}

// GetVerificationRequest returns a pending verification request.
func (l *RedisLedger) GetVerificationRequest(userID string) (model.VerificationRequest, error) {
	ctx, cancel := opContext()
	defer cancel()

	var r model.VerificationRequest
	if err := l.getJSON(ctx, verifReqKey(userID), &r); err != nil {
		if errors.Is(err, redis.Nil) {
			return model.VerificationRequest{}, fmt.Errorf("get verification request %s: %w", userID, auctionerrors.ErrUserNotVerified)
		}
		return model.VerificationRequest{}, fmt.Errorf("get verification request %s: %w", userID, err)
	}
	return r, nil
}

// PutVerificationRequest inserts or replaces a verification request.
func (l *RedisLedger) PutVerificationRequest(req model.VerificationRequest) error {
	ctx, cancel := opContext()
	defer cancel()
	return l.putIndexed(ctx, verifReqKey(req.UserID), keyVerifReqSet, req.UserID, req)
}

// DeleteVerificationRequest removes a pending request if present.
func (l *RedisLedger) DeleteVerificationRequest(userID string) error {
	ctx, cancel := opContext()
	defer cancel()

	_, err := l.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, verifReqKey(userID))
		pipe.SRem(ctx, keyVerifReqSet, userID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("delete verification request %s: %w", userID, err)
	}
	return nil
}

// ListVerificationRequests returns all pending requests, oldest first.
func (l *RedisLedger) ListVerificationRequests() ([]model.VerificationRequest, error) {
	ctx, cancel := opContext()
	defer cancel()

	ids, err := l.client.SMembers(ctx, keyVerifReqSet).Result()
	if err != nil {
		return nil, fmt.Errorf("list verification requests: %w", err)
	}

	var out []model.VerificationRequest
	for _, id := range ids {
		var r model.VerificationRequest
		if err := l.getJSON(ctx, verifReqKey(id), &r); err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			return nil, fmt.Errorf("list verification requests: %w", err)
		}
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RequestedAt.Before(out[j].RequestedAt) })
	return out, nil
}

// PurgeVerificationRequestsBefore deletes requests filed before cutoff.
func (l *RedisLedger) PurgeVerificationRequestsBefore(cutoff time.Time) (int, error) {
	requests, err := l.ListVerificationRequests()
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, r := range requests {
		if r.RequestedAt.Before(cutoff) {
			if err := l.DeleteVerificationRequest(r.UserID); err != nil {
				return removed, err
			}
			removed++
		}
	}
	return removed, nil
}

// GetProfile returns one user's submission counters.
func (l *RedisLedger) GetProfile(userID string) (model.Profile, error) {
	ctx, cancel := opContext()
	defer cancel()

	var p model.Profile
	if err := l.getJSON(ctx, profileKey(userID), &p); err != nil {
		if errors.Is(err, redis.Nil) {
			return model.Profile{}, fmt.Errorf("get profile %s: %w", userID, auctionerrors.ErrProfileNotFound)
		}
		return model.Profile{}, fmt.Errorf("get profile %s: %w", userID, err)
	}
	return p, nil
}

// UpdateProfile applies fn to a user's profile under WATCH so concurrent
// updates for the same user serialize; different users never contend.
func (l *RedisLedger) UpdateProfile(userID string, fn func(*model.Profile)) error {
	return l.watchUpdate(profileKey(userID), func(ctx context.Context, tx *redis.Tx) error {
		p := model.Profile{UserID: userID}
		if err := getJSONTx(ctx, tx, profileKey(userID), &p); err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		fn(&p)
		p.UserID = userID

		data, err := json.Marshal(p)
		if err != nil {
			return fmt.Errorf("marshal profile %s: %w", userID, err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, profileKey(userID), data, 0)
			return nil
		})
		return err
	})
}

// UpsertLeaderboard applies fn to a user's leaderboard row under WATCH.
func (l *RedisLedger) UpsertLeaderboard(userID string, fn func(*model.LeaderboardEntry)) error {
	return l.watchUpdate(boardKey(userID), func(ctx context.Context, tx *redis.Tx) error {
		e := model.LeaderboardEntry{UserID: userID}
		if err := getJSONTx(ctx, tx, boardKey(userID), &e); err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		fn(&e)
		e.UserID = userID
		e.UpdatedAt = time.Now().UTC()

		data, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("marshal leaderboard entry %s: %w", userID, err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, boardKey(userID), data, 0)
			pipe.SAdd(ctx, keyBoardSet, userID)
			return nil
		})
		return err
	})
}

// TopWinners returns up to limit entries with wins, most wins first.
func (l *RedisLedger) TopWinners(limit int) ([]model.LeaderboardEntry, error) {
	return l.topEntries(limit, func(e model.LeaderboardEntry) int { return e.TotalWins })
}

// TopSellers returns up to limit entries with sales, most sales first.
func (l *RedisLedger) TopSellers(limit int) ([]model.LeaderboardEntry, error) {
	return l.topEntries(limit, func(e model.LeaderboardEntry) int { return e.TotalSales })
}

func (l *RedisLedger) topEntries(limit int, count func(model.LeaderboardEntry) int) ([]model.LeaderboardEntry, error) {
	ctx, cancel := opContext()
	defer cancel()

	ids, err := l.client.SMembers(ctx, keyBoardSet).Result()
	if err != nil {
		return nil, fmt.Errorf("leaderboard entries: %w", err)
	}

	var out []model.LeaderboardEntry
	for _, id := range ids {
		var e model.LeaderboardEntry
		if err := l.getJSON(ctx, boardKey(id), &e); err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			return nil, fmt.Errorf("leaderboard entries: %w", err)
		}
		if count(e) > 0 {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if count(out[i]) != count(out[j]) {
			return count(out[i]) > count(out[j])
		}
		return out[i].UpdatedAt.Before(out[j].UpdatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Status returns the global gating flags; a missing key means closed.
func (l *RedisLedger) Status() (model.SystemStatus, error) {
	ctx, cancel := opContext()
	defer cancel()

	var status model.SystemStatus
	if err := l.getJSON(ctx, keySystemStatus, &status); err != nil {
		if errors.Is(err, redis.Nil) {
			return model.SystemStatus{}, nil
		}
		return model.SystemStatus{}, fmt.Errorf("get system status: %w", err)
	}
	return status, nil
}

// SetStatus replaces the global gating flags.
func (l *RedisLedger) SetStatus(status model.SystemStatus) error {
	ctx, cancel := opContext()
	defer cancel()

	data, err := json.Marshal(status)
	if err != nil {
		return fmt.Errorf("marshal system status: %w", err)
	}
	if err := l.client.Set(ctx, keySystemStatus, data, 0).Err(); err != nil {
		return fmt.Errorf("set system status: %w", err)
	}
	return nil
}

func (l *RedisLedger) getJSON(ctx context.Context, key string, out any) error {
	raw, err := l.client.Get(ctx, key).Result()
	if err != nil {
		return err
	}
	return json.Unmarshal([]byte(raw), out)
}

func getJSONTx(ctx context.Context, tx *redis.Tx, key string, out any) error {
	raw, err := tx.Get(ctx, key).Result()
	if err != nil {
		return err
	}
	return json.Unmarshal([]byte(raw), out)
}

func (l *RedisLedger) putIndexed(ctx context.Context, key, setKey, member string, entity any) error {
	data, err := json.Marshal(entity)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}
	_, err = l.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, key, data, 0)
		pipe.SAdd(ctx, setKey, member)
		return nil
	})
	if err != nil {
		return fmt.Errorf("put %s: %w", key, err)
	}
	return nil
}

func (l *RedisLedger) watchUpdate(key string, fn func(context.Context, *redis.Tx) error) error {
	ctx, cancel := opContext()
	defer cancel()

	for attempt := 0; attempt < maxRetries; attempt++ {
		err := l.client.Watch(ctx, func(tx *redis.Tx) error {
			return fn(ctx, tx)
		}, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}
	return fmt.Errorf("update %s: retries exhausted: %w", key, redis.TxFailedErr)
}
