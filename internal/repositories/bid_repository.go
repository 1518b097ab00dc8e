package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"carmart-service/internal/models"
)

var (
	ErrInvalidAmount = errors.New("bid amount must be positive")
	ErrNoBids        = errors.New("no bids on listing")
)

// BidRepository is the append-only ledger of offers placed on a listing.
type BidRepository interface {
	AppendBid(ctx context.Context, listingID int, bidderID int, amount float64) (models.Bid, error)
	ListBids(ctx context.Context, listingID int) ([]models.Bid, error)
	HighestBid(ctx context.Context, listingID int) (models.Bid, error)
}

// BidRepo is a sqlx implementation of BidRepository.
type BidRepo struct {
	db *sqlx.DB
}

// NewBidRepo constructs a BidRepo.
func NewBidRepo(db *sqlx.DB) *BidRepo {
	return &BidRepo{db: db}
}

// AppendBid stores a bid as a single-row insert. Concurrent bids on the same
// listing never clobber each other: each append is its own row, not a
// read-modify-write of the listing. Bids are accepted regardless of prior
// amounts; the ledger records offers, it does not referee them.
func (r *BidRepo) AppendBid(ctx context.Context, listingID int, bidderID int, amount float64) (models.Bid, error) {
	if amount <= 0 {
		return models.Bid{}, ErrInvalidAmount
	}

	var bid models.Bid
	err := r.db.QueryRowxContext(ctx, `INSERT INTO bids (listing_id, bidder_id, amount)
        VALUES ($1, $2, $3)
        RETURNING id, listing_id, bidder_id, amount, created_at`, listingID, bidderID, amount).
		StructScan(&bid)
	return bid, err
}

// ListBids returns the ledger in insertion order.
func (r *BidRepo) ListBids(ctx context.Context, listingID int) ([]models.Bid, error) {
	var bids []models.Bid
	err := r.db.SelectContext(ctx, &bids, `SELECT id, listing_id, bidder_id, amount, created_at
        FROM bids WHERE listing_id=$1 ORDER BY id ASC`, listingID)
	return bids, err
}

// HighestBid returns the top offer on the listing, used as the fallback when
// the cache is cold.
func (r *BidRepo) HighestBid(ctx context.Context, listingID int) (models.Bid, error) {
	var bid models.Bid
	err := r.db.GetContext(ctx, &bid, `SELECT id, listing_id, bidder_id, amount, created_at
        FROM bids WHERE listing_id=$1 ORDER BY amount DESC, id DESC LIMIT 1`, listingID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Bid{}, ErrNoBids
	}
	return bid, err
}
