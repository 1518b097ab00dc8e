package models

import "time"

// Thread represents a conversation about one listing between exactly two users.
// The participant pair is stored sorted so (A,B) and (B,A) map to the same row.
type Thread struct {
	ID        int       `db:"id" json:"id"`
	ListingID int       `db:"listing_id" json:"listing_id"`
	User1ID   int       `db:"user1_id" json:"user1_id"`
	User2ID   int       `db:"user2_id" json:"user2_id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// HasParticipant reports whether the user belongs to the thread.
func (t Thread) HasParticipant(userID int) bool {
	return t.User1ID == userID || t.User2ID == userID
}

// Counterpart returns the other participant of the thread.
func (t Thread) Counterpart(userID int) int {
	if t.User1ID == userID {
		return t.User2ID
	}
	return t.User1ID
}

// ThreadSummary provides an API-friendly view of a thread for a user.
type ThreadSummary struct {
	ThreadID      int       `json:"thread_id"`
	ListingID     int       `json:"listing_id"`
	ListingTitle  string    `json:"listing_title,omitempty"`
	CounterpartID int       `json:"counterpart_id"`
	CreatedAt     time.Time `json:"created_at"`
}
