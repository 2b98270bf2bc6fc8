package model

import "time"

// Shop is a vendor's storefront. Location is a WKB point.
type Shop struct {
	ID          string     `json:"id"`
	OwnerID     string     `json:"owner_id"`
	OwnerName   string     `json:"owner_name"`
	Name        string     `json:"name"`
	Address     string     `json:"address"`
	Contact     *string    `json:"contact,omitempty"`
	Description *string    `json:"description,omitempty"`
	IsOpen      bool       `json:"is_open"`
	Location    []byte     `json:"location,omitempty"`
	Note        *string    `json:"note,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   *time.Time `json:"updated_at,omitempty"`
}

// Item is a product sold by a shop. Names are unique within a shop.
type Item struct {
	ID          string     `json:"id"`
	ShopID      string     `json:"shop_id"`
	Name        string     `json:"name"`
	Price       float64    `json:"price"`
	Description *string    `json:"description,omitempty"`
	Note        *string    `json:"note,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   *time.Time `json:"updated_at,omitempty"`
}

// Inventory is the stock level of one item in one shop.
type Inventory struct {
	ID        string     `json:"id"`
	ShopID    string     `json:"shop_id"`
	ItemID    string     `json:"item_id"`
	Quantity  int        `json:"quantity"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}
