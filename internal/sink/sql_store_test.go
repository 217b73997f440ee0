package sink

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ck2db/internal/record"
)

func openTemp(t *testing.T, path string, cfg Config) *SQLStore {
	t.Helper()
	s, err := Open(context.Background(), path, record.DefaultSchema(), cfg)
	require.NoError(t, err)
	require.NoError(t, s.EnsureSchema(context.Background()))
	return s
}

func claim(character, title string) record.Record {
	return record.Record{Type: record.Claim, Fields: record.Fields{"character_id": character, "title_id": title}}
}

func TestIsPostgres(t *testing.T) {
	assert.True(t, IsPostgres("postgres://u:p@localhost/ck2"))
	assert.True(t, IsPostgres(" postgresql://localhost/ck2"))
	assert.False(t, IsPostgres("save.db"))
	assert.False(t, IsPostgres("sqlite://save.db"))
}

func TestSQLStoreInsertsAndCommitsInBatches(t *testing.T) {
	ctx := context.Background()
	s := openTemp(t, filepath.Join(t.TempDir(), "ck2.db"), Config{CommitInterval: 2})
	defer s.Close()

	require.NoError(t, s.Insert(ctx, claim("140", "k_england")))
	require.NoError(t, s.Insert(ctx, claim("140", "d_york")))

	// The second insert reached the interval and committed.
	n, err := s.Count(ctx, record.Claim)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	require.NoError(t, s.Insert(ctx, claim("7", "c_kent")))
	require.NoError(t, s.Flush(ctx))
	n, err = s.Count(ctx, record.Claim)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, 3, s.Inserted())

	var pressed sql.NullString
	require.NoError(t, s.DB().QueryRowContext(ctx,
		`SELECT pressed FROM claim WHERE title_id = 'c_kent'`).Scan(&pressed))
	assert.False(t, pressed.Valid)
}

func TestSQLStoreCreatesViews(t *testing.T) {
	ctx := context.Background()
	s := openTemp(t, filepath.Join(t.TempDir(), "ck2.db"), Config{})
	defer s.Close()

	rows, err := s.DB().QueryContext(ctx, `SELECT name FROM sqlite_master WHERE type = 'view' ORDER BY name`)
	require.NoError(t, err)
	defer rows.Close()
	var names []string
	for rows.Next() {
		var n string
		require.NoError(t, rows.Scan(&n))
		names = append(names, n)
	}
	require.NoError(t, rows.Err())
	assert.Equal(t, []string{
		"character_view", "dynasty_view", "exiled_ruler_single_child", "family_tree",
		"live_dynasts", "marry_into_title", "single_claimants", "single_dynasts",
	}, names)
}

func TestSQLStoreCharacterViewMergesHistory(t *testing.T) {
	ctx := context.Background()
	s := openTemp(t, filepath.Join(t.TempDir(), "ck2.db"), Config{})
	defer s.Close()

	require.NoError(t, s.Insert(ctx, record.Record{Type: record.HistoricCharacter, Fields: record.Fields{
		"id": "140", "name": "Harold", "birth_date": "1022-01-01", "culture": "saxon",
	}}))
	require.NoError(t, s.Insert(ctx, record.Record{Type: record.Character, Fields: record.Fields{
		"id": "140", "birth_name": "Harold Godwinson", "culture": "english",
	}}))
	require.NoError(t, s.Flush(ctx))

	var name, birth, culture string
	require.NoError(t, s.DB().QueryRowContext(ctx,
		`SELECT name, birth_date, culture FROM character_view WHERE id = '140'`).Scan(&name, &birth, &culture))
	assert.Equal(t, "Harold Godwinson", name)
	assert.Equal(t, "1022-01-01", birth)
	assert.Equal(t, "english", culture)
}

func TestSQLStoreRebuildDropsRows(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "ck2.db")

	s := openTemp(t, path, Config{})
	require.NoError(t, s.Insert(ctx, claim("1", "k_x")))
	require.NoError(t, s.Close())

	s = openTemp(t, path, Config{})
	n, err := s.Count(ctx, record.Claim)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	require.NoError(t, s.Close())

	s = openTemp(t, path, Config{Rebuild: true})
	defer s.Close()
	n, err = s.Count(ctx, record.Claim)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestSQLStoreRejectsUnknownType(t *testing.T) {
	s := openTemp(t, filepath.Join(t.TempDir(), "ck2.db"), Config{})
	defer s.Close()
	err := s.Insert(context.Background(), record.Record{Type: "artifact"})
	require.ErrorIs(t, err, ErrUnknownTable)
}

func TestSQLStoreClosed(t *testing.T) {
	s := openTemp(t, filepath.Join(t.TempDir(), "ck2.db"), Config{})
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())
	require.ErrorIs(t, s.Insert(context.Background(), claim("1", "k_x")), ErrClosed)
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore(record.DefaultSchema())
	require.NoError(t, m.Insert(ctx, claim("1", "k_x")))
	require.NoError(t, m.Insert(ctx, record.Record{Type: record.Dynasty, Fields: record.Fields{"id": "5"}}))
	require.ErrorIs(t, m.Insert(ctx, record.Record{Type: "artifact"}), ErrUnknownTable)

	assert.Len(t, m.Records(), 2)
	assert.Equal(t, []record.Fields{{"character_id": "1", "title_id": "k_x"}}, m.ByType(record.Claim))
	assert.Equal(t, map[record.Type]int{record.Claim: 1, record.Dynasty: 1}, m.Counts())

	require.NoError(t, m.Close())
	require.ErrorIs(t, m.Insert(ctx, claim("2", "k_y")), ErrClosed)
}
