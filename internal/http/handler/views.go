package handler

import (
	"time"

	"marketapi/internal/geo"
	"marketapi/internal/model"
	"marketapi/internal/service"
)

// shopView is the public shape of a shop. The stored geometry is replaced by
// its coordinates.
type shopView struct {
	ID          string     `json:"id"`
	OwnerID     string     `json:"owner_id"`
	OwnerName   string     `json:"owner_name"`
	Name        string     `json:"name"`
	Address     string     `json:"address"`
	Contact     *string    `json:"contact,omitempty"`
	Description *string    `json:"description,omitempty"`
	IsOpen      bool       `json:"is_open"`
	Latitude    *float64   `json:"latitude"`
	Longitude   *float64   `json:"longitude"`
	Note        *string    `json:"note,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   *time.Time `json:"updated_at,omitempty"`
}

func newShopView(s *model.Shop) (shopView, error) {
	v := shopView{
		ID:          s.ID,
		OwnerID:     s.OwnerID,
		OwnerName:   s.OwnerName,
		Name:        s.Name,
		Address:     s.Address,
		Contact:     s.Contact,
		Description: s.Description,
		IsOpen:      s.IsOpen,
		Note:        s.Note,
		CreatedAt:   s.CreatedAt,
		UpdatedAt:   s.UpdatedAt,
	}
	p, err := geo.Decode(s.Location)
	if err != nil {
		return shopView{}, err
	}
	if p != nil {
		v.Latitude, v.Longitude = &p.Lat, &p.Lon
	}
	return v, nil
}

func newShopViews(shops []*model.Shop) ([]shopView, error) {
	out := make([]shopView, 0, len(shops))
	for _, s := range shops {
		v, err := newShopView(s)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

type nearbyView struct {
	shopView
	DistanceMeters float64 `json:"distance_meters"`
}

func newNearbyViews(hits []service.NearbyShop) ([]nearbyView, error) {
	out := make([]nearbyView, 0, len(hits))
	for _, h := range hits {
		v, err := newShopView(h.Shop)
		if err != nil {
			return nil, err
		}
		out = append(out, nearbyView{shopView: v, DistanceMeters: h.DistanceMeters})
	}
	return out, nil
}

type sessionView struct {
	UserID    string     `json:"user_id"`
	Role      model.Role `json:"role"`
	ExpiresAt time.Time  `json:"expires_at"`
}

type listResponse[T any] struct {
	Data   []T `json:"data"`
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}
