package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"carmart-service/internal/models"
)

var (
	ErrListingNotFound = errors.New("listing not found")
	ErrUnknownUser     = errors.New("unknown user")
)

// CatalogRepository resolves listing and user references. Both aggregates
// are owned elsewhere; this service only checks existence and reads the
// fields needed for thread summaries.
type CatalogRepository interface {
	GetListing(ctx context.Context, listingID int) (models.Listing, error)
	UserExists(ctx context.Context, userID int) (bool, error)
	BulkUsernames(ctx context.Context, userIDs []int) (map[int]string, error)
}

// CatalogRepo is a sqlx implementation of CatalogRepository.
type CatalogRepo struct {
	db *sqlx.DB
}

// NewCatalogRepo constructs a CatalogRepo.
func NewCatalogRepo(db *sqlx.DB) *CatalogRepo {
	return &CatalogRepo{db: db}
}

// GetListing fetches the referenced listing.
func (r *CatalogRepo) GetListing(ctx context.Context, listingID int) (models.Listing, error) {
	var listing models.Listing
	err := r.db.GetContext(ctx, &listing, `SELECT id, seller_id, title, price FROM listings WHERE id=$1`, listingID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Listing{}, ErrListingNotFound
	}
	return listing, err
}

// UserExists reports whether the user id resolves to an account.
func (r *CatalogRepo) UserExists(ctx context.Context, userID int) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM users WHERE id=$1)`, userID)
	return exists, err
}

// BulkUsernames resolves display names for a set of user ids.
func (r *CatalogRepo) BulkUsernames(ctx context.Context, userIDs []int) (map[int]string, error) {
	names := map[int]string{}
	if len(userIDs) == 0 {
		return names, nil
	}

	query, args, err := sqlx.In(`SELECT id, username FROM users WHERE id IN (?)`, userIDs)
	if err != nil {
		return nil, err
	}
	query = r.db.Rebind(query)

	rows, err := r.db.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var user models.User
		if err := rows.StructScan(&user); err != nil {
			return nil, err
		}
		names[user.ID] = user.Username
	}
	return names, rows.Err()
}
