// Package postgres implements the repository accessors on PostgreSQL.
package postgres

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"marketapi/internal/apperr"
	"marketapi/internal/database"
	"marketapi/internal/repository"
)

const uniqueViolation = "23505"

// entity describes how one record type maps onto its table.
type entity[T any] struct {
	kind    string
	table   string
	key     string
	columns []string
	mutable []string
	unique  [][]string
	order   string
	touch   bool

	// fields returns pointers to rec's fields in columns order.
	fields  func(rec *T) []any
	prepare func(rec *T, now time.Time)
}

func (e entity[T]) hasColumn(name string) bool {
	for _, c := range e.columns {
		if c == name {
			return true
		}
	}
	return false
}

func (e entity[T]) isMutable(name string) bool {
	for _, c := range e.mutable {
		if c == name {
			return true
		}
	}
	return false
}

// Table is the generic PostgreSQL implementation of repository.Records.
type Table[T any] struct {
	db  *sql.DB
	e   entity[T]
	now func() time.Time
}

func newTable[T any](db *sql.DB, e entity[T]) *Table[T] {
	return &Table[T]{db: db, e: e, now: func() time.Time { return time.Now().UTC() }}
}

var _ repository.Records[struct{}] = (*Table[struct{}])(nil)

func (t *Table[T]) selectList() string { return strings.Join(t.e.columns, ", ") }

// values returns rec's column values keyed by column name.
func (t *Table[T]) values(rec *T) map[string]any {
	ptrs := t.e.fields(rec)
	out := make(map[string]any, len(ptrs))
	for i, p := range ptrs {
		out[t.e.columns[i]] = deref(p)
	}
	return out
}

func (t *Table[T]) where(op string, f repository.Filter, argOffset int) (string, []any, error) {
	if len(f) == 0 {
		return "", nil, nil
	}
	parts := make([]string, 0, len(f))
	args := make([]any, 0, len(f))
	for _, col := range sortedKeys(f) {
		if !t.e.hasColumn(col) {
			return "", nil, apperr.Validation(op, fmt.Sprintf("unknown field %q", col))
		}
		v := deref(f[col])
		if v == nil {
			parts = append(parts, col+" IS NULL")
			continue
		}
		args = append(args, v)
		parts = append(parts, fmt.Sprintf("%s = $%d", col, argOffset+len(args)))
	}
	return " WHERE " + strings.Join(parts, " AND "), args, nil
}

func (t *Table[T]) scanRows(rows *sql.Rows) ([]*T, error) {
	out := make([]*T, 0)
	for rows.Next() {
		rec := new(T)
		if err := rows.Scan(t.e.fields(rec)...); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (t *Table[T]) query(ctx context.Context, op, q string, args ...any) ([]*T, error) {
	var out []*T
	err := database.WithTx(ctx, t.db, func(tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx, q, args...)
		if err != nil {
			return err
		}
		defer rows.Close()
		out, err = t.scanRows(rows)
		return err
	})
	if err != nil {
		return nil, t.fail(op, err)
	}
	return out, nil
}

// Get returns the records matching filter.
func (t *Table[T]) Get(ctx context.Context, filter repository.Filter, multi bool) ([]*T, error) {
	op := t.e.kind + ".get"
	w, args, err := t.where(op, filter, 0)
	if err != nil {
		return nil, err
	}
	q := "SELECT " + t.selectList() + " FROM " + t.e.table + w
	if !multi {
		q += " LIMIT 1"
	}
	return t.query(ctx, op, q, args...)
}

// List returns one page of the records matching filter.
func (t *Table[T]) List(ctx context.Context, filter repository.Filter, pq repository.PageQuery) ([]*T, error) {
	op := t.e.kind + ".list"
	w, args, err := t.where(op, filter, 0)
	if err != nil {
		return nil, err
	}
	q := fmt.Sprintf("SELECT %s FROM %s%s ORDER BY %s LIMIT $%d OFFSET $%d",
		t.selectList(), t.e.table, w, t.e.order, len(args)+1, len(args)+2)
	args = append(args, pq.Limit, pq.Offset)
	return t.query(ctx, op, q, args...)
}

// Count returns the number of records matching filter.
func (t *Table[T]) Count(ctx context.Context, filter repository.Filter) (int, error) {
	op := t.e.kind + ".count"
	w, args, err := t.where(op, filter, 0)
	if err != nil {
		return 0, err
	}
	var n int
	err = database.WithTx(ctx, t.db, func(tx *sql.Tx) error {
		return tx.QueryRowContext(ctx, "SELECT count(*) FROM "+t.e.table+w, args...).Scan(&n)
	})
	if err != nil {
		return 0, t.fail(op, err)
	}
	return n, nil
}

// Page returns up to limit records after the cursor in key order.
func (t *Table[T]) Page(ctx context.Context, after string, limit int) ([]*T, error) {
	op := t.e.kind + ".page"
	if after == "" {
		q := fmt.Sprintf("SELECT %s FROM %s ORDER BY %s LIMIT $1", t.selectList(), t.e.table, t.e.key)
		return t.query(ctx, op, q, limit)
	}
	q := fmt.Sprintf("SELECT %s FROM %s WHERE %s > $1 ORDER BY %s LIMIT $2",
		t.selectList(), t.e.table, t.e.key, t.e.key)
	return t.query(ctx, op, q, after, limit)
}

// Insert checks the unique column sets and persists rec.
func (t *Table[T]) Insert(ctx context.Context, rec *T) (*T, error) {
	op := t.e.kind + ".insert"
	if t.e.prepare != nil {
		t.e.prepare(rec, t.now())
	}
	vals := t.values(rec)

	args := make([]any, len(t.e.columns))
	placeholders := make([]string, len(t.e.columns))
	for i, c := range t.e.columns {
		args[i] = vals[c]
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}
	q := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) RETURNING %s",
		t.e.table, t.selectList(), strings.Join(placeholders, ", "), t.selectList())

	out := new(T)
	err := database.WithTx(ctx, t.db, func(tx *sql.Tx) error {
		for _, set := range t.e.unique {
			taken, err := t.exists(ctx, tx, set, vals)
			if err != nil {
				return err
			}
			if taken {
				return apperr.Conflict(op, fmt.Sprintf("%s with the same %s already exists", t.e.kind, strings.Join(set, " and ")))
			}
		}
		return tx.QueryRowContext(ctx, q, args...).Scan(t.e.fields(out)...)
	})
	if err != nil {
		return nil, t.fail(op, err)
	}
	return out, nil
}

func (t *Table[T]) exists(ctx context.Context, tx *sql.Tx, set []string, vals map[string]any) (bool, error) {
	parts := make([]string, len(set))
	args := make([]any, len(set))
	for i, c := range set {
		parts[i] = fmt.Sprintf("%s = $%d", c, i+1)
		args[i] = vals[c]
	}
	q := fmt.Sprintf("SELECT EXISTS (SELECT 1 FROM %s WHERE %s)", t.e.table, strings.Join(parts, " AND "))
	var taken bool
	if err := tx.QueryRowContext(ctx, q, args...).Scan(&taken); err != nil {
		return false, err
	}
	return taken, nil
}

// Update locks the record matching ident, compares every requested change with
// the stored value and writes only when something differs.
func (t *Table[T]) Update(ctx context.Context, changes repository.Changes, ident repository.Filter) (*repository.UpdateResult[T], error) {
	op := t.e.kind + ".update"
	if len(ident) == 0 {
		return nil, apperr.Validation(op, "identifier is required")
	}
	if len(changes) == 0 {
		return nil, apperr.Validation(op, "no fields to update")
	}
	for col := range changes {
		if !t.e.isMutable(col) {
			return nil, apperr.Validation(op, fmt.Sprintf("field %q cannot be updated", col))
		}
	}
	w, wargs, err := t.where(op, ident, 0)
	if err != nil {
		return nil, err
	}

	var res *repository.UpdateResult[T]
	err = database.WithTx(ctx, t.db, func(tx *sql.Tx) error {
		cur := new(T)
		lock := "SELECT " + t.selectList() + " FROM " + t.e.table + w + " LIMIT 1 FOR UPDATE"
		if err := tx.QueryRowContext(ctx, lock, wargs...).Scan(t.e.fields(cur)...); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return apperr.NotFound(op, t.e.kind+" not found")
			}
			return err
		}

		curVals := t.values(cur)
		var sets []string
		var args []any
		for _, col := range sortedKeys(changes) {
			if sameValue(curVals[col], deref(changes[col])) {
				continue
			}
			args = append(args, deref(changes[col]))
			sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
		}
		if len(sets) == 0 {
			res = &repository.UpdateResult[T]{Record: cur, NoOp: true}
			return nil
		}
		if t.e.touch {
			sets = append(sets, "updated_at = now()")
		}
		args = append(args, curVals[t.e.key])
		q := fmt.Sprintf("UPDATE %s SET %s WHERE %s = $%d RETURNING %s",
			t.e.table, strings.Join(sets, ", "), t.e.key, len(args), t.selectList())

		out := new(T)
		if err := tx.QueryRowContext(ctx, q, args...).Scan(t.e.fields(out)...); err != nil {
			return err
		}
		res = &repository.UpdateResult[T]{Record: out}
		return nil
	})
	if err != nil {
		return nil, t.fail(op, err)
	}
	return res, nil
}

// Delete removes the record matching ident and returns the deleted row.
func (t *Table[T]) Delete(ctx context.Context, ident repository.Filter) (*T, error) {
	op := t.e.kind + ".delete"
	if len(ident) == 0 {
		return nil, apperr.Validation(op, "identifier is required")
	}
	w, args, err := t.where(op, ident, 0)
	if err != nil {
		return nil, err
	}
	q := "DELETE FROM " + t.e.table + w + " RETURNING " + t.selectList()
	out, err := t.query(ctx, op, q, args...)
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, apperr.NotFound(op, t.e.kind+" not found")
	}
	return out[0], nil
}

func (t *Table[T]) fail(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return apperr.Conflict(op, t.e.kind+" violates a uniqueness constraint")
	}
	return apperr.Store(op, err)
}

func sortedKeys[M ~map[string]any](m M) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// deref follows pointers until it reaches a value or nil.
func deref(v any) any {
	rv := reflect.ValueOf(v)
	for rv.IsValid() && rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil
		}
		rv = rv.Elem()
	}
	if !rv.IsValid() {
		return nil
	}
	return rv.Interface()
}

func sameValue(cur, next any) bool {
	if cur == nil || next == nil {
		return cur == nil && next == nil
	}
	switch c := cur.(type) {
	case time.Time:
		n, ok := next.(time.Time)
		return ok && c.Equal(n)
	case []byte:
		n, ok := next.([]byte)
		return ok && bytes.Equal(c, n)
	}
	cv, nv := reflect.ValueOf(cur), reflect.ValueOf(next)
	if cv.Type() != nv.Type() {
		if !nv.Type().ConvertibleTo(cv.Type()) || cv.Kind() != nv.Kind() && !isNumeric(cv.Kind(), nv.Kind()) {
			return false
		}
		nv = nv.Convert(cv.Type())
	}
	return reflect.DeepEqual(cv.Interface(), nv.Interface())
}

func isNumeric(kinds ...reflect.Kind) bool {
	for _, k := range kinds {
		switch k {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
			reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
			reflect.Float32, reflect.Float64:
		default:
			return false
		}
	}
	return true
}
