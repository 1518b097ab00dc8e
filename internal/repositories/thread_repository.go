package repositories

import (
	"context"
	"database/sql"
	"errors"
	"sort"

	"github.com/jmoiron/sqlx"

	"carmart-service/internal/models"
)

var (
	ErrThreadNotFound = errors.New("thread not found")
	ErrSelfThread     = errors.New("cannot open a thread with yourself")
)

// ThreadRepository abstracts thread persistence.
type ThreadRepository interface {
	ResolveOrCreate(ctx context.Context, listingID int, userA int, userB int) (models.Thread, error)
	IsParticipant(ctx context.Context, threadID int, userID int) (bool, error)
	GetThread(ctx context.Context, threadID int) (models.Thread, error)
	ListThreadsForUser(ctx context.Context, userID int) ([]models.ThreadSummary, error)
}

// ThreadRepo is a sqlx implementation of ThreadRepository.
type ThreadRepo struct {
	db *sqlx.DB
}

// NewThreadRepo constructs a ThreadRepo.
func NewThreadRepo(db *sqlx.DB) *ThreadRepo {
	return &ThreadRepo{db: db}
}

// ResolveOrCreate returns the canonical thread for the listing and user pair,
// creating it when absent. The pair is sorted before hitting the unique key,
// so argument order never matters. Creation races are resolved by the
// ON CONFLICT clause: the loser of the race re-selects the winning row
// instead of surfacing a conflict.
func (r *ThreadRepo) ResolveOrCreate(ctx context.Context, listingID int, userA int, userB int) (models.Thread, error) {
	if userA == userB {
		return models.Thread{}, ErrSelfThread
	}
	pair := []int{userA, userB}
	sort.Ints(pair)
	user1, user2 := pair[0], pair[1]

	const selectQuery = `SELECT id, listing_id, user1_id, user2_id, created_at
        FROM threads WHERE listing_id=$1 AND user1_id=$2 AND user2_id=$3`

	var thread models.Thread
	err := r.db.QueryRowxContext(ctx, `INSERT INTO threads (listing_id, user1_id, user2_id)
        VALUES ($1, $2, $3)
        ON CONFLICT (listing_id, user1_id, user2_id) DO NOTHING
        RETURNING id, listing_id, user1_id, user2_id, created_at`, listingID, user1, user2).
		StructScan(&thread)
	if err == nil {
		return thread, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return models.Thread{}, err
	}

	// Conflict: another writer created the thread first. Return theirs.
	if err := r.db.GetContext(ctx, &thread, selectQuery, listingID, user1, user2); err != nil {
		return models.Thread{}, err
	}
	return thread, nil
}

// IsParticipant checks whether a user belongs to the thread.
func (r *ThreadRepo) IsParticipant(ctx context.Context, threadID int, userID int) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM threads WHERE id=$1 AND (user1_id=$2 OR user2_id=$2))`, threadID, userID)
	return exists, err
}

// GetThread fetches a thread by id.
func (r *ThreadRepo) GetThread(ctx context.Context, threadID int) (models.Thread, error) {
	var thread models.Thread
	err := r.db.GetContext(ctx, &thread, `SELECT id, listing_id, user1_id, user2_id, created_at FROM threads WHERE id=$1`, threadID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Thread{}, ErrThreadNotFound
	}
	return thread, err
}

// ListThreadsForUser returns thread summaries for every conversation the
// user takes part in, newest first.
func (r *ThreadRepo) ListThreadsForUser(ctx context.Context, userID int) ([]models.ThreadSummary, error) {
	query := `SELECT t.id, t.listing_id, t.user1_id, t.user2_id, t.created_at, l.title AS listing_title
        FROM threads t
        JOIN listings l ON l.id = t.listing_id
        WHERE t.user1_id=$1 OR t.user2_id=$1
        ORDER BY t.created_at DESC`
	rows, err := r.db.QueryxContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []models.ThreadSummary
	for rows.Next() {
		var row struct {
			models.Thread
			ListingTitle string `db:"listing_title"`
		}
		if err := rows.StructScan(&row); err != nil {
			return nil, err
		}
		result = append(result, models.ThreadSummary{
			ThreadID:      row.ID,
			ListingID:     row.ListingID,
			ListingTitle:  row.ListingTitle,
			CounterpartID: row.Counterpart(userID),
			CreatedAt:     row.CreatedAt,
		})
	}
	return result, rows.Err()
}
