package sink

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	"github.com/hashicorp/golang-lru/v2"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"ck2db/internal/record"
)

const (
	DefaultCommitInterval = 10000
	stmtCacheSize         = 64
)

// Config tunes an SQLStore.
type Config struct {
	// CommitInterval is the number of inserts per transaction.
	CommitInterval int
	// Rebuild drops the views and tables before recreating them.
	Rebuild bool
}

// SQLStore writes records into one table per record type. Inserts are
// batched into transactions of CommitInterval rows.
type SQLStore struct {
	db      *sql.DB
	dialect string
	schema  *record.Schema
	cfg     Config

	schemaOnce sync.Once
	schemaErr  error

	mu       sync.Mutex
	tx       *sql.Tx
	stmts    *lru.Cache[record.Type, *sql.Stmt]
	pending  int
	inserted int
	closed   bool
}

// IsPostgres reports whether dest is a PostgreSQL connection URL. Anything
// else is taken as a SQLite database file.
func IsPostgres(dest string) bool {
	dest = strings.TrimSpace(dest)
	return strings.HasPrefix(dest, "postgres://") || strings.HasPrefix(dest, "postgresql://")
}

// Open connects to dest and returns a store writing against schema.
func Open(ctx context.Context, dest string, schema *record.Schema, cfg Config) (*SQLStore, error) {
	dest = strings.TrimSpace(dest)
	if dest == "" {
		return nil, fmt.Errorf("database destination is required")
	}
	driver, d := "sqlite", dialect.SQLite
	if IsPostgres(dest) {
		driver, d = "pgx", dialect.Postgres
	} else {
		dest = strings.TrimPrefix(dest, "sqlite://")
	}
	db, err := sql.Open(driver, dest)
	if err != nil {
		return nil, fmt.Errorf("failed to open db: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to reach db: %w", err)
	}
	return newSQLStore(db, d, schema, cfg)
}

func newSQLStore(db *sql.DB, d string, schema *record.Schema, cfg Config) (*SQLStore, error) {
	if schema == nil {
		schema = record.DefaultSchema()
	}
	if cfg.CommitInterval <= 0 {
		cfg.CommitInterval = DefaultCommitInterval
	}
	stmts, err := lru.NewWithEvict[record.Type, *sql.Stmt](stmtCacheSize, func(_ record.Type, st *sql.Stmt) {
		_ = st.Close()
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return &SQLStore{db: db, dialect: d, schema: schema, cfg: cfg, stmts: stmts}, nil
}

// DB exposes the underlying handle for read queries.
func (s *SQLStore) DB() *sql.DB { return s.db }

// EnsureSchema creates the tables and views once per store. It runs
// implicitly on the first insert.
func (s *SQLStore) EnsureSchema(ctx context.Context) error {
	s.schemaOnce.Do(func() {
		s.schemaErr = s.buildSchema(ctx)
	})
	return s.schemaErr
}

func (s *SQLStore) buildSchema(ctx context.Context) error {
	var stmts []string
	if s.cfg.Rebuild {
		for i := len(views) - 1; i >= 0; i-- {
			stmts = append(stmts, views[i].dropSQL())
		}
		for _, t := range s.schema.Types() {
			stmts = append(stmts, "DROP TABLE IF EXISTS "+quoteIdent(string(t)))
		}
	}
	for _, t := range s.schema.Types() {
		cols := s.schema.Columns(t)
		defs := make([]*entsql.ColumnBuilder, len(cols))
		for i, c := range cols {
			defs[i] = entsql.Dialect(s.dialect).Column(c).Type("TEXT")
		}
		q, _ := entsql.Dialect(s.dialect).CreateTable(string(t)).IfNotExists().Columns(defs...).Query()
		stmts = append(stmts, q)
	}
	for _, v := range views {
		stmts = append(stmts, v.createSQL(s.dialect))
	}
	for _, q := range stmts {
		if _, err := s.db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("schema: %s: %w", firstLine(q), err)
		}
	}
	return nil
}

// Insert queues one row. The row becomes visible once its transaction is
// committed, either by reaching the commit interval or by Flush.
func (s *SQLStore) Insert(ctx context.Context, rec record.Record) error {
	if err := s.EnsureSchema(ctx); err != nil {
		return err
	}
	cols := s.schema.Columns(rec.Type)
	if len(cols) == 0 {
		return fmt.Errorf("%w: %s", ErrUnknownTable, rec.Type)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if s.tx == nil {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin: %w", err)
		}
		s.tx = tx
	}
	stmt, err := s.prepare(ctx, rec.Type, cols)
	if err != nil {
		return err
	}
	if _, err := stmt.ExecContext(ctx, rec.Values(cols)...); err != nil {
		// Keep what was written before the failing row.
		return errors.Join(fmt.Errorf("insert into %s: %w", rec.Type, err), s.commitLocked())
	}
	s.pending++
	s.inserted++
	if s.pending >= s.cfg.CommitInterval {
		if err := s.commitLocked(); err != nil {
			return err
		}
		log.Printf("inserted %d records", s.inserted)
	}
	return nil
}

func (s *SQLStore) prepare(ctx context.Context, t record.Type, cols []string) (*sql.Stmt, error) {
	if st, ok := s.stmts.Get(t); ok {
		return st, nil
	}
	q, _ := entsql.Dialect(s.dialect).
		Insert(string(t)).
		Columns(cols...).
		Values(make([]any, len(cols))...).
		Query()
	st, err := s.tx.PrepareContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("prepare insert into %s: %w", t, err)
	}
	s.stmts.Add(t, st)
	return st, nil
}

// commitLocked ends the open transaction. Prepared statements belong to it,
// so the cache is emptied first.
func (s *SQLStore) commitLocked() error {
	if s.tx == nil {
		return nil
	}
	s.stmts.Purge()
	err := s.tx.Commit()
	s.tx = nil
	s.pending = 0
	if err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Flush commits pending inserts.
func (s *SQLStore) Flush(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.commitLocked()
}

// Inserted returns the number of rows inserted since Open.
func (s *SQLStore) Inserted() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inserted
}

// Count returns the number of committed rows of type t.
func (s *SQLStore) Count(ctx context.Context, t record.Type) (int, error) {
	q, args := entsql.Dialect(s.dialect).
		Select(entsql.Count("*")).
		From(entsql.Dialect(s.dialect).Table(string(t))).
		Query()
	var n int
	if err := s.db.QueryRowContext(ctx, q, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s: %w", t, err)
	}
	return n, nil
}

// Close commits what is pending and closes the connection.
func (s *SQLStore) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	err := s.commitLocked()
	s.mu.Unlock()
	return errors.Join(err, s.db.Close())
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func firstLine(q string) string {
	if i := strings.IndexByte(q, '\n'); i >= 0 {
		return q[:i]
	}
	return q
}
