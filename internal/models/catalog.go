package models

// Listing is the slice of the advert aggregate this service reads. Advert
// CRUD is owned by the marketplace service; we only resolve references.
type Listing struct {
	ID       int     `db:"id" json:"id"`
	SellerID int     `db:"seller_id" json:"seller_id"`
	Title    string  `db:"title" json:"title"`
	Price    float64 `db:"price" json:"price"`
}

// User mirrors the account record owned by the auth service.
type User struct {
	ID       int    `db:"id" json:"id"`
	Username string `db:"username" json:"username"`
}
