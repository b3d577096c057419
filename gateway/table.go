package gateway

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/georgysavva/scany/v2/dbscan"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DB is the subset of *pgxpool.Pool used by tables.
type DB interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// rows carry platform columns (created_at and friends) the models may not map.
var scanAPI = mustScanAPI()

func mustScanAPI() *pgxscan.API {
	dbscanAPI, err := pgxscan.NewDBScanAPI(dbscan.WithAllowUnknownColumns(true))
	if err != nil {
		panic(fmt.Errorf("new dbscan api: %w", err))
	}
	api, err := pgxscan.NewAPI(dbscanAPI)
	if err != nil {
		panic(fmt.Errorf("new pgxscan api: %w", err))
	}
	return api
}

// Table is one named collection whose rows scan into T.
type Table[T any] struct {
	name    string
	db      DB
	metrics *Metrics
}

func NewTable[T any](db DB, name string, m *Metrics) *Table[T] {
	return &Table[T]{name: name, db: db, metrics: m}
}

func (t *Table[T]) Name() string {
	return t.name
}

// Select returns the rows matching q in the requested order.
func (t *Table[T]) Select(ctx context.Context, q Query) (rows []T, err error) {
	defer t.metrics.observe(t.name, "select", time.Now(), &err)

	sql, args := buildSelect(t.name, q)
	if err := scanAPI.Select(ctx, t.db, &rows, sql, args...); err != nil {
		return nil, wrapDB("select "+t.name, err)
	}
	return rows, nil
}

// Insert stores rec and returns the id the gateway assigned.
func (t *Table[T]) Insert(ctx context.Context, rec Record) (id int64, err error) {
	defer t.metrics.observe(t.name, "insert", time.Now(), &err)

	sql, args := buildInsert(t.name, rec)
	if err := t.db.QueryRow(ctx, sql, args...).Scan(&id); err != nil {
		return 0, wrapDB("insert "+t.name, err)
	}
	return id, nil
}

// Delete removes the row with the given id. Deleting a missing id is not an error.
func (t *Table[T]) Delete(ctx context.Context, id int64) (err error) {
	defer t.metrics.observe(t.name, "delete", time.Now(), &err)

	if _, err := t.db.Exec(ctx, buildDelete(t.name), id); err != nil {
		return wrapDB("delete "+t.name, err)
	}
	return nil
}

func ident(name string) string {
	return pgx.Identifier{name}.Sanitize()
}

func buildSelect(table string, q Query) (string, []any) {
	var b strings.Builder
	args := make([]any, 0, len(q.Where))

	b.WriteString("SELECT * FROM ")
	b.WriteString(ident(table))
	for i, eq := range q.Where {
		if i == 0 {
			b.WriteString(" WHERE ")
		} else {
			b.WriteString(" AND ")
		}
		args = append(args, eq.Value)
		b.WriteString(ident(eq.Column) + " = $" + strconv.Itoa(len(args)))
	}
	if q.Order.Column != "" {
		b.WriteString(" ORDER BY " + ident(q.Order.Column))
		if q.Order.Desc {
			b.WriteString(" DESC")
		} else {
			b.WriteString(" ASC")
		}
	}
	if q.Limit > 0 {
		b.WriteString(" LIMIT " + strconv.Itoa(q.Limit))
	}
	return b.String(), args
}

func buildInsert(table string, rec Record) (string, []any) {
	cols := make([]string, 0, len(rec))
	for col := range rec {
		cols = append(cols, col)
	}
	sort.Strings(cols)

	names := make([]string, len(cols))
	marks := make([]string, len(cols))
	args := make([]any, len(cols))
	for i, col := range cols {
		names[i] = ident(col)
		marks[i] = "$" + strconv.Itoa(i+1)
		args[i] = rec[col]
	}
	sql := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) RETURNING %s",
		ident(table), strings.Join(names, ", "), strings.Join(marks, ", "), ident("id"))
	return sql, args
}

func buildDelete(table string) string {
	return "DELETE FROM " + ident(table) + " WHERE " + ident("id") + " = $1"
}
