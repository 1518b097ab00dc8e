package models

import "time"

// ThreadMessage represents a message stored in a thread. Content, sender and
// sent_at are immutable after the append; only IsRead may flip, false to true.
type ThreadMessage struct {
	ID       int       `db:"id" json:"id"`
	ThreadID int       `db:"thread_id" json:"thread_id"`
	SenderID int       `db:"sender_id" json:"sender_id"`
	Content  string    `db:"content" json:"content"`
	IsRead   bool      `db:"is_read" json:"is_read"`
	SentAt   time.Time `db:"sent_at" json:"sent_at"`
}

// ThreadEvent is broadcasted through websockets.
type ThreadEvent struct {
	Type      string         `json:"type"`
	Message   *ThreadMessage `json:"message,omitempty"`
	MessageID int            `json:"message_id,omitempty"`
}
