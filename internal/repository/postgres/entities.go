package postgres

import (
	"database/sql"
	"time"

	"github.com/google/uuid"

	"marketapi/internal/model"
	"marketapi/internal/repository"
)

const newestFirst = "created_at DESC, id DESC"

func assignID(id *string, created *time.Time, now time.Time) {
	if *id == "" {
		*id = uuid.NewString()
	}
	if created.IsZero() {
		*created = now
	}
}

var userEntity = entity[model.User]{
	kind:    "user",
	table:   "users",
	key:     "id",
	columns: []string{"id", "email", "password_hash", "role", "created_at"},
	mutable: []string{"password_hash", "role"},
	unique:  [][]string{{"email"}},
	order:   newestFirst,
	fields: func(u *model.User) []any {
		return []any{&u.ID, &u.Email, &u.PasswordHash, &u.Role, &u.CreatedAt}
	},
	prepare: func(u *model.User, now time.Time) { assignID(&u.ID, &u.CreatedAt, now) },
}

var sessionEntity = entity[model.Session]{
	kind:    "session",
	table:   "sessions",
	key:     "token",
	columns: []string{"token", "user_id", "role", "created_at", "expires_at"},
	order:   "created_at DESC, token DESC",
	fields: func(s *model.Session) []any {
		return []any{&s.Token, &s.UserID, &s.Role, &s.CreatedAt, &s.ExpiresAt}
	},
}

var shopEntity = entity[model.Shop]{
	kind:  "shop",
	table: "shops",
	key:   "id",
	columns: []string{
		"id", "owner_id", "owner_name", "name", "address", "contact", "description",
		"is_open", "location", "note", "created_at", "updated_at",
	},
	mutable: []string{"name", "address", "contact", "description", "is_open", "location", "note"},
	unique:  [][]string{{"name"}},
	order:   newestFirst,
	touch:   true,
	fields: func(s *model.Shop) []any {
		return []any{
			&s.ID, &s.OwnerID, &s.OwnerName, &s.Name, &s.Address, &s.Contact, &s.Description,
			&s.IsOpen, &s.Location, &s.Note, &s.CreatedAt, &s.UpdatedAt,
		}
	},
	prepare: func(s *model.Shop, now time.Time) { assignID(&s.ID, &s.CreatedAt, now) },
}

var itemEntity = entity[model.Item]{
	kind:    "item",
	table:   "items",
	key:     "id",
	columns: []string{"id", "shop_id", "name", "price", "description", "note", "created_at", "updated_at"},
	mutable: []string{"name", "price", "description", "note"},
	unique:  [][]string{{"shop_id", "name"}},
	order:   newestFirst,
	touch:   true,
	fields: func(i *model.Item) []any {
		return []any{&i.ID, &i.ShopID, &i.Name, &i.Price, &i.Description, &i.Note, &i.CreatedAt, &i.UpdatedAt}
	},
	prepare: func(i *model.Item, now time.Time) { assignID(&i.ID, &i.CreatedAt, now) },
}

var inventoryEntity = entity[model.Inventory]{
	kind:    "inventory",
	table:   "inventory",
	key:     "id",
	columns: []string{"id", "shop_id", "item_id", "quantity", "created_at", "updated_at"},
	mutable: []string{"quantity"},
	unique:  [][]string{{"shop_id", "item_id"}},
	order:   newestFirst,
	touch:   true,
	fields: func(v *model.Inventory) []any {
		return []any{&v.ID, &v.ShopID, &v.ItemID, &v.Quantity, &v.CreatedAt, &v.UpdatedAt}
	},
	prepare: func(v *model.Inventory, now time.Time) { assignID(&v.ID, &v.CreatedAt, now) },
}

// NewStore builds the typed accessors for every entity over db.
func NewStore(db *sql.DB) *repository.Store {
	return &repository.Store{
		Users:       newTable(db, userEntity),
		Sessions:    newTable(db, sessionEntity),
		Shops:       newTable(db, shopEntity),
		Items:       newTable(db, itemEntity),
		Inventories: newTable(db, inventoryEntity),
	}
}
