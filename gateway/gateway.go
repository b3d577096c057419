// Package gateway is the client side of the hosted data platform: row access
// to the platform's Postgres, S3-compatible blob storage for uploaded images,
// and the GoTrue-compatible auth API that issues one-time sign-in links.
package gateway

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/fx"
)

var Module = fx.Module(
	"gateway",
	fx.Provide(
		NewRegistry,
		NewMetrics,
		NewPool,
		NewTables,
		NewBlobStore,
		NewAuthClient,
		NewTokenVerifier,
	),
)

// Record is one row to insert, keyed by column name. A nil value is stored as NULL.
type Record map[string]any

// Eq is an equality filter on a single column.
type Eq struct {
	Column string
	Value  any
}

type Order struct {
	Column string
	Desc   bool
}

// Query selects rows of one collection. A zero Limit means no limit.
type Query struct {
	Where []Eq
	Order Order
	Limit int
}

// Error is a failed gateway request. Message is the gateway's own text and is
// what the operator is shown.
type Error struct {
	Op      string
	Status  int
	Message string
	Err     error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsGatewayError reports whether err came back from the gateway.
func IsGatewayError(err error) bool {
	var e *Error
	return errors.As(err, &e)
}

func wrapDB(op string, err error) error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		msg = pgErr.Message
	}
	return &Error{Op: op, Message: msg, Err: fmt.Errorf("%s: %w", op, err)}
}
