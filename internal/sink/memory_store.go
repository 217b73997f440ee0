package sink

import (
	"context"
	"fmt"
	"maps"
	"sync"

	"ck2db/internal/record"
)

// MemoryStore keeps records in memory. It backs dry runs and tests.
type MemoryStore struct {
	mu      sync.RWMutex
	schema  *record.Schema
	records []record.Record
	closed  bool
}

// NewMemoryStore returns an empty store. With a nil schema every record
// type is accepted.
func NewMemoryStore(schema *record.Schema) *MemoryStore {
	return &MemoryStore{schema: schema}
}

// Insert stores a copy of rec. Types outside the schema are rejected.
func (s *MemoryStore) Insert(_ context.Context, rec record.Record) error {
	if s == nil {
		return fmt.Errorf("store is nil")
	}
	if s.schema != nil && !s.schema.Has(rec.Type) {
		return fmt.Errorf("%w: %s", ErrUnknownTable, rec.Type)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	s.records = append(s.records, record.Record{Type: rec.Type, Fields: maps.Clone(rec.Fields)})
	return nil
}
// Flush is a no-op; inserts are visible immediately.
func (s *MemoryStore) Flush(context.Context) error { return nil }

// Close rejects further inserts. Stored records stay readable.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}

// Records returns everything inserted so far, in insertion order.
func (s *MemoryStore) Records() []record.Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]record.Record(nil), s.records...)
}

// ByType returns the fields of every record of type t, in insertion order.
func (s *MemoryStore) ByType(t record.Type) []record.Fields {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []record.Fields
	for _, r := range s.records {
		if r.Type == t {
			out = append(out, r.Fields)
		}
	}
	return out
}

// Counts returns the number of records per type.
func (s *MemoryStore) Counts() map[record.Type]int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[record.Type]int)
	for _, r := range s.records {
		out[r.Type]++
	}
	return out
}
