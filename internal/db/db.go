package db

import (
	"fmt"
	"log"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

// Connect initializes the database connection and runs migrations.
func Connect(dsn string) (*sqlx.DB, error) {
	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect db: %w", err)
	}

	if err := runMigrations(db); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return db, nil
}

func runMigrations(db *sqlx.DB) error {
	migrations := []string{
		// listings and users are owned by the marketplace/auth services;
		// the tables exist here only for reference lookups.
		`CREATE TABLE IF NOT EXISTS users (
            id SERIAL PRIMARY KEY,
            username TEXT NOT NULL
        );`,
		`CREATE TABLE IF NOT EXISTS listings (
            id SERIAL PRIMARY KEY,
            seller_id INT NOT NULL REFERENCES users(id),
            title TEXT NOT NULL,
            price NUMERIC(12,2) NOT NULL,
            created_at TIMESTAMPTZ DEFAULT NOW()
        );`,
		// The composite unique key is what makes resolve-or-create atomic:
		// the pair is stored sorted, so (A,B) and (B,A) hit the same row.
		`CREATE TABLE IF NOT EXISTS threads (
            id SERIAL PRIMARY KEY,
            listing_id INT NOT NULL REFERENCES listings(id),
            user1_id INT NOT NULL,
            user2_id INT NOT NULL,
            created_at TIMESTAMPTZ DEFAULT NOW(),
            UNIQUE(listing_id, user1_id, user2_id)
        );`,
		`CREATE TABLE IF NOT EXISTS thread_messages (
            id SERIAL PRIMARY KEY,
            thread_id INT NOT NULL REFERENCES threads(id) ON DELETE CASCADE,
            sender_id INT NOT NULL,
            content TEXT NOT NULL,
            is_read BOOLEAN DEFAULT FALSE,
            sent_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
        );`,
		`CREATE INDEX IF NOT EXISTS idx_thread_messages_thread
            ON thread_messages(thread_id, sent_at, id);`,
		`CREATE TABLE IF NOT EXISTS bids (
            id SERIAL PRIMARY KEY,
            listing_id INT NOT NULL REFERENCES listings(id),
            bidder_id INT NOT NULL,
            amount NUMERIC(12,2) NOT NULL CHECK (amount > 0),
            created_at TIMESTAMPTZ DEFAULT NOW()
        );`,
		`CREATE INDEX IF NOT EXISTS idx_bids_listing ON bids(listing_id, id);`,
	}

	for _, m := range migrations {
		if _, err := db.Exec(m); err != nil {
			return err
		}
	}
	log.Println("database migrations applied")
	return nil
}
