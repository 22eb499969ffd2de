package model

import "time"

type Category struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

type Product struct {
	ID          string    `json:"id"`
	CategoryID  string    `json:"category_id,omitempty"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Price       int64     `json:"price"`
	Available   bool      `json:"available"`
	CreatedAt   time.Time `json:"created_at"`
}

// Table is a physical dining table; StallID scopes it to a merchant.
type Table struct {
	ID        string    `json:"id"`
	Number    int       `json:"number"`
	StallID   string    `json:"stall_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
