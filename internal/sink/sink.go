// Package sink persists parsed records. SQLStore writes them to SQLite or
// PostgreSQL tables named after the record types; MemoryStore keeps them in
// memory for dry runs and tests.
package sink

import (
	"context"
	"errors"

	"ck2db/internal/record"
)

var (
	ErrUnknownTable = errors.New("no table for record type")
	ErrClosed       = errors.New("store is closed")
)

// Store is a record destination that batches writes.
type Store interface {
	Insert(ctx context.Context, rec record.Record) error
	Flush(ctx context.Context) error
	Close() error
}
