package postgres

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketapi/internal/apperr"
	"marketapi/internal/model"
	"marketapi/internal/repository"
)

const shopCols = "id, owner_id, owner_name, name, address, contact, description, is_open, location, note, created_at, updated_at"

var shopColumns = []string{
	"id", "owner_id", "owner_name", "name", "address", "contact", "description",
	"is_open", "location", "note", "created_at", "updated_at",
}

func newShopTable(t *testing.T) (*Table[model.Shop], sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return newTable(db, shopEntity), mock
}

func shopRow(id, name, address string, created time.Time) *sqlmock.Rows {
	return sqlmock.NewRows(shopColumns).
		AddRow(id, "owner-1", "Vera", name, address, nil, "fresh bread", true, []byte{0x01}, nil, created, nil)
}

func TestTable_Get(t *testing.T) {
	ctx := context.Background()
	now := time.Now().UTC()

	t.Run("single by id", func(t *testing.T) {
		tbl, mock := newShopTable(t)
		mock.ExpectBegin()
		mock.ExpectQuery(regexp.QuoteMeta("SELECT " + shopCols + " FROM shops WHERE id = $1 LIMIT 1")).
			WithArgs("shop-1").
			WillReturnRows(shopRow("shop-1", "Corner", "1 Main St", now))
		mock.ExpectCommit()

		got, err := tbl.Get(ctx, repository.Filter{"id": "shop-1"}, false)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "Corner", got[0].Name)
		assert.Nil(t, got[0].Contact)
		require.NotNil(t, got[0].Description)
		assert.Equal(t, "fresh bread", *got[0].Description)
		assert.Nil(t, got[0].UpdatedAt)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("multi with null match and sorted columns", func(t *testing.T) {
		tbl, mock := newShopTable(t)
		rows := shopRow("a", "A", "x", now)
		rows.AddRow("b", "owner-1", "Vera", "B", "y", nil, nil, false, nil, nil, now, now)
		mock.ExpectBegin()
		mock.ExpectQuery(regexp.QuoteMeta("SELECT " + shopCols + " FROM shops WHERE note IS NULL AND owner_id = $1")).
			WithArgs("owner-1").
			WillReturnRows(rows)
		mock.ExpectCommit()

		got, err := tbl.Get(ctx, repository.Filter{"owner_id": "owner-1", "note": nil}, true)
		require.NoError(t, err)
		assert.Len(t, got, 2)
		require.NotNil(t, got[1].UpdatedAt)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unknown column", func(t *testing.T) {
		tbl, mock := newShopTable(t)
		_, err := tbl.Get(ctx, repository.Filter{"name; DROP TABLE shops": "x"}, false)
		assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("driver failure is a store error", func(t *testing.T) {
		tbl, mock := newShopTable(t)
		mock.ExpectBegin()
		mock.ExpectQuery("SELECT").WillReturnError(errors.New("connection reset"))
		mock.ExpectRollback()

		_, err := tbl.Get(ctx, repository.Filter{"id": "shop-1"}, false)
		assert.Equal(t, apperr.KindStore, apperr.KindOf(err))
		assert.ErrorContains(t, err, "connection reset")
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestTable_Count(t *testing.T) {
	ctx := context.Background()

	t.Run("filtered", func(t *testing.T) {
		tbl, mock := newShopTable(t)
		mock.ExpectBegin()
		mock.ExpectQuery(regexp.QuoteMeta("SELECT count(*) FROM shops WHERE is_open = $1")).
			WithArgs(true).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(7))
		mock.ExpectCommit()

		n, err := tbl.Count(ctx, repository.Filter{"is_open": true})
		require.NoError(t, err)
		assert.Equal(t, 7, n)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("all rows", func(t *testing.T) {
		tbl, mock := newShopTable(t)
		mock.ExpectBegin()
		mock.ExpectQuery(regexp.QuoteMeta("SELECT count(*) FROM shops")).
			WithoutArgs().
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
		mock.ExpectCommit()

		n, err := tbl.Count(ctx, nil)
		require.NoError(t, err)
		assert.Zero(t, n)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unknown column", func(t *testing.T) {
		tbl, _ := newShopTable(t)
		_, err := tbl.Count(ctx, repository.Filter{"bogus": 1})
		assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
	})
}

func TestTable_Insert(t *testing.T) {
	ctx := context.Background()
	now := time.Now().UTC()

	t.Run("name taken", func(t *testing.T) {
		tbl, mock := newShopTable(t)
		mock.ExpectBegin()
		mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS (SELECT 1 FROM shops WHERE name = $1)")).
			WithArgs("Corner").
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
		mock.ExpectRollback()

		_, err := tbl.Insert(ctx, &model.Shop{OwnerID: "owner-1", Name: "Corner", Address: "1 Main St"})
		assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("generates id and timestamp", func(t *testing.T) {
		tbl, mock := newShopTable(t)
		tbl.now = func() time.Time { return now }

		mock.ExpectBegin()
		mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS (SELECT 1 FROM shops WHERE name = $1)")).
			WithArgs("Corner").
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
		mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO shops (" + shopCols + ") VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12) RETURNING " + shopCols)).
			WithArgs(sqlmock.AnyArg(), "owner-1", "Vera", "Corner", "1 Main St", nil, nil, true, []byte{0x01}, nil, now, nil).
			WillReturnRows(shopRow("generated", "Corner", "1 Main St", now))
		mock.ExpectCommit()

		rec := &model.Shop{OwnerID: "owner-1", OwnerName: "Vera", Name: "Corner", Address: "1 Main St", IsOpen: true, Location: []byte{0x01}}
		got, err := tbl.Insert(ctx, rec)
		require.NoError(t, err)
		assert.NotEmpty(t, rec.ID)
		assert.Equal(t, now, rec.CreatedAt)
		assert.Equal(t, "generated", got.ID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unique violation from the database", func(t *testing.T) {
		tbl, mock := newShopTable(t)
		mock.ExpectBegin()
		mock.ExpectQuery("SELECT EXISTS").WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
		mock.ExpectQuery("INSERT INTO shops").WillReturnError(&pgconn.PgError{Code: "23505"})
		mock.ExpectRollback()

		_, err := tbl.Insert(ctx, &model.Shop{Name: "Corner"})
		assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestTable_Update(t *testing.T) {
	ctx := context.Background()
	now := time.Now().UTC()
	lock := regexp.QuoteMeta("SELECT " + shopCols + " FROM shops WHERE id = $1 LIMIT 1 FOR UPDATE")

	t.Run("identical values are a no-op", func(t *testing.T) {
		tbl, mock := newShopTable(t)
		mock.ExpectBegin()
		mock.ExpectQuery(lock).WithArgs("shop-1").WillReturnRows(shopRow("shop-1", "Corner", "1 Main St", now))
		mock.ExpectCommit()

		desc := "fresh bread"
		res, err := tbl.Update(ctx,
			repository.Changes{"address": "1 Main St", "description": &desc, "is_open": true, "contact": nil},
			repository.Filter{"id": "shop-1"})
		require.NoError(t, err)
		assert.True(t, res.NoOp)
		assert.Equal(t, "shop-1", res.Record.ID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("writes only changed columns", func(t *testing.T) {
		tbl, mock := newShopTable(t)
		mock.ExpectBegin()
		mock.ExpectQuery(lock).WithArgs("shop-1").WillReturnRows(shopRow("shop-1", "Corner", "1 Main St", now))
		mock.ExpectQuery(regexp.QuoteMeta("UPDATE shops SET address = $1, updated_at = now() WHERE id = $2 RETURNING " + shopCols)).
			WithArgs("2 Side St", "shop-1").
			WillReturnRows(shopRow("shop-1", "Corner", "2 Side St", now))
		mock.ExpectCommit()

		res, err := tbl.Update(ctx,
			repository.Changes{"address": "2 Side St", "name": "Corner"},
			repository.Filter{"id": "shop-1"})
		require.NoError(t, err)
		assert.False(t, res.NoOp)
		assert.Equal(t, "2 Side St", res.Record.Address)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing record", func(t *testing.T) {
		tbl, mock := newShopTable(t)
		mock.ExpectBegin()
		mock.ExpectQuery(lock).WithArgs("nope").WillReturnRows(sqlmock.NewRows(shopColumns))
		mock.ExpectRollback()

		_, err := tbl.Update(ctx, repository.Changes{"address": "x"}, repository.Filter{"id": "nope"})
		assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("immutable column", func(t *testing.T) {
		tbl, mock := newShopTable(t)
		_, err := tbl.Update(ctx, repository.Changes{"owner_id": "someone"}, repository.Filter{"id": "shop-1"})
		assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestTable_Update_NumericConversion(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	tbl := newTable(db, itemEntity)

	mock.ExpectBegin()
	mock.ExpectQuery("FOR UPDATE").WithArgs("item-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "shop_id", "name", "price", "description", "note", "created_at", "updated_at"}).
			AddRow("item-1", "shop-1", "Bread", 3.0, nil, nil, time.Now(), nil))
	mock.ExpectCommit()

	res, err := tbl.Update(context.Background(), repository.Changes{"price": 3}, repository.Filter{"id": "item-1"})
	require.NoError(t, err)
	assert.True(t, res.NoOp)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTable_Delete(t *testing.T) {
	ctx := context.Background()
	now := time.Now().UTC()

	t.Run("returns the deleted snapshot", func(t *testing.T) {
		tbl, mock := newShopTable(t)
		mock.ExpectBegin()
		mock.ExpectQuery(regexp.QuoteMeta("DELETE FROM shops WHERE id = $1 RETURNING " + shopCols)).
			WithArgs("shop-1").
			WillReturnRows(shopRow("shop-1", "Corner", "1 Main St", now))
		mock.ExpectCommit()

		got, err := tbl.Delete(ctx, repository.Filter{"id": "shop-1"})
		require.NoError(t, err)
		assert.Equal(t, "1 Main St", got.Address)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing record", func(t *testing.T) {
		tbl, mock := newShopTable(t)
		mock.ExpectBegin()
		mock.ExpectQuery("DELETE FROM shops").WithArgs("nope").WillReturnRows(sqlmock.NewRows(shopColumns))
		mock.ExpectCommit()

		_, err := tbl.Delete(ctx, repository.Filter{"id": "nope"})
		assert.True(t, errors.Is(err, apperr.ErrNotFound))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("requires an identifier", func(t *testing.T) {
		tbl, _ := newShopTable(t)
		_, err := tbl.Delete(ctx, nil)
		assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
	})
}

func TestTable_PageAndList(t *testing.T) {
	ctx := context.Background()
	now := time.Now().UTC()

	tbl, mock := newShopTable(t)
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT " + shopCols + " FROM shops ORDER BY id LIMIT $1")).
		WithArgs(2).
		WillReturnRows(shopRow("a", "A", "x", now))
	mock.ExpectCommit()
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT " + shopCols + " FROM shops WHERE id > $1 ORDER BY id LIMIT $2")).
		WithArgs("a", 2).
		WillReturnRows(sqlmock.NewRows(shopColumns))
	mock.ExpectCommit()
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT " + shopCols + " FROM shops WHERE owner_id = $1 ORDER BY created_at DESC, id DESC LIMIT $2 OFFSET $3")).
		WithArgs("owner-1", 10, 20).
		WillReturnRows(shopRow("a", "A", "x", now))
	mock.ExpectCommit()

	first, err := tbl.Page(ctx, "", 2)
	require.NoError(t, err)
	assert.Len(t, first, 1)

	rest, err := tbl.Page(ctx, "a", 2)
	require.NoError(t, err)
	assert.Empty(t, rest)

	page, err := tbl.List(ctx, repository.Filter{"owner_id": "owner-1"}, repository.PageQuery{Limit: 10, Offset: 20})
	require.NoError(t, err)
	assert.Len(t, page, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSameValue(t *testing.T) {
	now := time.Now()
	s := "x"
	assert.True(t, sameValue(nil, nil))
	assert.False(t, sameValue(nil, "x"))
	assert.True(t, sameValue("x", deref(&s)))
	assert.True(t, sameValue(now, now.UTC()))
	assert.True(t, sameValue([]byte{1, 2}, []byte{1, 2}))
	assert.True(t, sameValue(model.RoleAdmin, "ADMIN"))
	assert.True(t, sameValue(2.0, 2))
	assert.False(t, sameValue(2.5, 2))
	assert.False(t, sameValue("2", 2))
}

