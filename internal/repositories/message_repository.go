package repositories

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/jmoiron/sqlx"

	"carmart-service/internal/models"
)

var (
	ErrMessageNotFound = errors.New("message not found")
	ErrEmptyContent    = errors.New("message content is empty")
)

// MessageRepository defines the durable message store and read-state tracker
// of a thread. Callers are responsible for participant authorization; the
// store only enforces content and ordering invariants.
type MessageRepository interface {
	AppendMessage(ctx context.Context, threadID int, senderID int, content string) (models.ThreadMessage, error)
	ListForThread(ctx context.Context, threadID int) ([]models.ThreadMessage, error)
	GetMessage(ctx context.Context, threadID int, messageID int) (models.ThreadMessage, error)
	MarkRead(ctx context.Context, threadID int, messageID int) (models.ThreadMessage, error)
}

// MessageRepo is a sqlx-backed repository.
type MessageRepo struct {
	db *sqlx.DB
}

// NewMessageRepo constructs MessageRepo.
func NewMessageRepo(db *sqlx.DB) *MessageRepo {
	return &MessageRepo{db: db}
}

// AppendMessage durably stores a message. Appends to the same thread are
// serialized with a per-thread advisory lock so sent_at stays non-decreasing
// within a thread regardless of clock jitter between concurrent writers;
// ties fall back to insertion (id) order.
func (r *MessageRepo) AppendMessage(ctx context.Context, threadID int, senderID int, content string) (models.ThreadMessage, error) {
	if strings.TrimSpace(content) == "" {
		return models.ThreadMessage{}, ErrEmptyContent
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return models.ThreadMessage{}, err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(threadID)); err != nil {
		return models.ThreadMessage{}, err
	}

	var msg models.ThreadMessage
	err = tx.QueryRowxContext(ctx, `INSERT INTO thread_messages (thread_id, sender_id, content, sent_at)
        SELECT $1, $2, $3,
            GREATEST(NOW(), COALESCE((SELECT MAX(sent_at) FROM thread_messages WHERE thread_id=$1), NOW()))
        RETURNING id, thread_id, sender_id, content, is_read, sent_at`, threadID, senderID, content).
		StructScan(&msg)
	if err != nil {
		return models.ThreadMessage{}, err
	}

	if err := tx.Commit(); err != nil {
		return models.ThreadMessage{}, err
	}
	return msg, nil
}

// ListForThread returns the thread's messages in display order.
func (r *MessageRepo) ListForThread(ctx context.Context, threadID int) ([]models.ThreadMessage, error) {
	query := `SELECT id, thread_id, sender_id, content, is_read, sent_at
        FROM thread_messages
        WHERE thread_id=$1
        ORDER BY sent_at ASC, id ASC`
	var msgs []models.ThreadMessage
	err := r.db.SelectContext(ctx, &msgs, query, threadID)
	return msgs, err
}

// GetMessage retrieves a single message scoped to its thread.
func (r *MessageRepo) GetMessage(ctx context.Context, threadID int, messageID int) (models.ThreadMessage, error) {
	var msg models.ThreadMessage
	err := r.db.GetContext(ctx, &msg, `SELECT id, thread_id, sender_id, content, is_read, sent_at
        FROM thread_messages WHERE id=$1 AND thread_id=$2`, messageID, threadID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.ThreadMessage{}, ErrMessageNotFound
	}
	return msg, err
}

// MarkRead flips is_read to true. The transition is monotonic: marking an
// already-read message is a no-op success, and the flag never clears.
func (r *MessageRepo) MarkRead(ctx context.Context, threadID int, messageID int) (models.ThreadMessage, error) {
	var msg models.ThreadMessage
	err := r.db.QueryRowxContext(ctx, `UPDATE thread_messages SET is_read = TRUE
        WHERE id=$1 AND thread_id=$2
        RETURNING id, thread_id, sender_id, content, is_read, sent_at`, messageID, threadID).
		StructScan(&msg)
	if errors.Is(err, sql.ErrNoRows) {
		return models.ThreadMessage{}, ErrMessageNotFound
	}
	return msg, err
}
