package search

import (
	"fmt"

	"marketapi/internal/geo"
	"marketapi/internal/model"
)

// Collection names in the search index.
const (
	ShopsCollection = "shops"
	ItemsCollection = "items"
)

// ShopDocument is the index projection of a shop. ID equals the shop's primary key.
type ShopDocument struct {
	ID          string    `json:"id"`
	OwnerID     string    `json:"owner_id"`
	Name        string    `json:"name"`
	Address     string    `json:"address"`
	Contact     *string   `json:"contact,omitempty"`
	Description *string   `json:"description,omitempty"`
	IsOpen      bool      `json:"is_open"`
	Location    []float64 `json:"location"`
	CreatedAt   int64     `json:"created_at"`
	UpdatedAt   *int64    `json:"updated_at,omitempty"`
}

// ItemDocument is the index projection of an item. ID equals the item's primary key.
type ItemDocument struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Price       float64 `json:"price"`
	Description *string `json:"description,omitempty"`
	ShopID      string  `json:"shop_id"`
	Note        *string `json:"note,omitempty"`
}

// ShopDoc projects s into its index document. A shop without a decodable
// location cannot be indexed.
func ShopDoc(s *model.Shop) (ShopDocument, error) {
	p, err := geo.Decode(s.Location)
	if err != nil {
		return ShopDocument{}, fmt.Errorf("shop %s: %w", s.ID, err)
	}
	if p == nil {
		return ShopDocument{}, fmt.Errorf("shop %s has no location", s.ID)
	}
	doc := ShopDocument{
		ID:          s.ID,
		OwnerID:     s.OwnerID,
		Name:        s.Name,
		Address:     s.Address,
		Contact:     s.Contact,
		Description: s.Description,
		IsOpen:      s.IsOpen,
		Location:    p.Pair(),
		CreatedAt:   s.CreatedAt.Unix(),
	}
	if s.UpdatedAt != nil {
		u := s.UpdatedAt.Unix()
		doc.UpdatedAt = &u
	}
	return doc, nil
}

// ItemDoc projects i into its index document.
func ItemDoc(i *model.Item) ItemDocument {
	return ItemDocument{
		ID:          i.ID,
		Name:        i.Name,
		Price:       i.Price,
		Description: i.Description,
		ShopID:      i.ShopID,
		Note:        i.Note,
	}
}

type field struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Optional bool   `json:"optional,omitempty"`
	Facet    bool   `json:"facet,omitempty"`
}

type collectionSchema struct {
	Name                string  `json:"name"`
	Fields              []field `json:"fields"`
	DefaultSortingField string  `json:"default_sorting_field,omitempty"`
}

var schemas = []collectionSchema{
	{
		Name: ShopsCollection,
		Fields: []field{
			{Name: "owner_id", Type: "string", Facet: true},
			{Name: "name", Type: "string"},
			{Name: "address", Type: "string"},
			{Name: "contact", Type: "string", Optional: true},
			{Name: "description", Type: "string", Optional: true},
			{Name: "is_open", Type: "bool", Facet: true},
			{Name: "location", Type: "geopoint"},
			{Name: "created_at", Type: "int64"},
			{Name: "updated_at", Type: "int64", Optional: true},
		},
		DefaultSortingField: "created_at",
	},
	{
		Name: ItemsCollection,
		Fields: []field{
			{Name: "name", Type: "string"},
			{Name: "price", Type: "float"},
			{Name: "description", Type: "string", Optional: true},
			{Name: "shop_id", Type: "string", Facet: true},
			{Name: "note", Type: "string", Optional: true},
		},
		DefaultSortingField: "price",
	},
}
