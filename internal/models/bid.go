package models

import "time"

// Bid is one entry in a listing's ledger. Bids are append-only: never
// mutated or deleted, ordered by insertion.
type Bid struct {
	ID        int       `db:"id" json:"id"`
	ListingID int       `db:"listing_id" json:"listing_id"`
	BidderID  int       `db:"bidder_id" json:"bidder_id"`
	Amount    float64   `db:"amount" json:"amount"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// HighestBid is the cached view of a listing's top offer.
type HighestBid struct {
	ListingID int     `json:"listing_id"`
	BidderID  int     `json:"bidder_id"`
	Amount    float64 `json:"amount"`
}
