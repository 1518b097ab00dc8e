package bidcache

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"carmart-service/internal/models"
)

// ErrMiss reports a cache miss for a listing with no recorded bids.
var ErrMiss = redis.Nil

// Cache tracks the highest bid per listing in Redis so the hot read path
// never touches Postgres. The ledger in Postgres stays the source of truth;
// the cache may lag and is refreshed best-effort after each durable append.
type Cache struct {
	client *redis.Client
	// Lua keeps the compare-and-set atomic under concurrent bid appends.
	raiseScript *redis.Script
}

// New connects to Redis and prepares the atomic raise script.
func New(addr, password string, db int) (*Cache, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect redis: %w", err)
	}

	raiseScript := redis.NewScript(`
		-- KEYS[1]: listing:{id}:highest_bid
		-- KEYS[2]: listing:{id}:highest_bidder
		-- ARGV[1]: bid amount
		-- ARGV[2]: bidder id
		local current = tonumber(redis.call('GET', KEYS[1]) or '0')
		local amount = tonumber(ARGV[1])
		if amount > current then
			redis.call('SET', KEYS[1], ARGV[1])
			redis.call('SET', KEYS[2], ARGV[2])
			return 1
		end
		return 0
	`)

	return &Cache{client: rdb, raiseScript: raiseScript}, nil
}

// RecordBid raises the cached highest bid when the new amount tops it.
// Runs as a single Lua call so concurrent appends cannot interleave.
func (c *Cache) RecordBid(ctx context.Context, bid models.Bid) error {
	keys := []string{
		fmt.Sprintf("listing:%d:highest_bid", bid.ListingID),
		fmt.Sprintf("listing:%d:highest_bidder", bid.ListingID),
	}
	return c.raiseScript.Run(ctx, c.client, keys, bid.Amount, bid.BidderID).Err()
}

// Highest returns the cached top offer. ErrMiss when the listing has no
// cached bid; callers fall back to the ledger.
func (c *Cache) Highest(ctx context.Context, listingID int) (models.HighestBid, error) {
	pipe := c.client.Pipeline()
	amountCmd := pipe.Get(ctx, fmt.Sprintf("listing:%d:highest_bid", listingID))
	bidderCmd := pipe.Get(ctx, fmt.Sprintf("listing:%d:highest_bidder", listingID))
	if _, err := pipe.Exec(ctx); err != nil {
		return models.HighestBid{}, err
	}

	amount, err := strconv.ParseFloat(amountCmd.Val(), 64)
	if err != nil {
		return models.HighestBid{}, fmt.Errorf("parse cached amount: %w", err)
	}
	bidder, err := strconv.Atoi(bidderCmd.Val())
	if err != nil {
		return models.HighestBid{}, fmt.Errorf("parse cached bidder: %w", err)
	}

	return models.HighestBid{ListingID: listingID, BidderID: bidder, Amount: amount}, nil
}

// Close releases the underlying connection pool.
func (c *Cache) Close() error {
	return c.client.Close()
}
