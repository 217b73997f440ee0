package record

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanDate(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"1066.9.25", "1066-09-25", true},
		{"769.1.1", "0769-01-01", true},
		{"1066-03-02", "1066-03-02", true},
		{"  1.2.3 ", "0001-02-03", true},
		{"-5.1.1", "", false},
		{"yes", "", false},
		{"", "", false},
		{"10666.1.1", "", false},
	}
	for _, tt := range tests {
		got, ok := CleanDate(tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestCleanDateIsIdempotent(t *testing.T) {
	once, ok := CleanDate("1066.3.2")
	require.True(t, ok)
	twice, ok := CleanDate(once)
	require.True(t, ok)
	assert.Equal(t, once, twice)
}

func TestFlatten(t *testing.T) {
	got := Flatten(map[string][]string{
		"Name":   {"foo", "bar"},
		"empty":  {},
		"blanks": {"", ""},
		"id":     {"7"},
	})
	assert.Equal(t, Fields{"name": "foo bar", "id": "7"}, got)
}

func TestRecordValuesFollowColumnOrder(t *testing.T) {
	rec := Record{Type: Claim, Fields: Fields{"title_id": "k_france", "character_id": "5"}}
	assert.Equal(t, []any{"5", "k_france", nil}, rec.Values([]string{"character_id", "title_id", "pressed"}))
}

func TestNormalizeTitleRenamesAndDates(t *testing.T) {
	rec, err := Normalize(Title, map[string][]string{
		"title_id":        {"k_england"},
		"holder":          {"100"},
		"usurp_date":      {"1066.10.14"},
		"succ_law_change": {"never"},
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, Fields{"id": "k_england", "holder": "100", "usurp_date": "1066-10-14"}, rec.Fields)
}

func TestNormalizeAppliesContextAfterRenames(t *testing.T) {
	rec, err := Normalize(Claim, map[string][]string{
		"title":   {"k_england"},
		"pressed": {"yes"},
	}, Fields{"character_id": "140", "ignored": ""})
	require.NoError(t, err)
	assert.Equal(t, Fields{"character_id": "140", "title_id": "k_england", "pressed": "yes"}, rec.Fields)
}

func TestNormalizeLandedTitle(t *testing.T) {
	rec, err := Normalize(LandedTitle, map[string][]string{
		"title_id": {"b_london"},
		"capital":  {"12"},
		"primary":  {"yes"},
		"title":    {"JARL"},
	}, Fields{"de_jure_liege": "c_middlesex"})
	require.NoError(t, err)
	assert.Equal(t, Fields{
		"title_id":        "b_london",
		"capital_id":      "12",
		"is_primary":      "yes",
		"character_title": "JARL",
		"de_jure_liege":   "c_middlesex",
	}, rec.Fields)
}

func TestNormalizeHistoricCharacterNeedsID(t *testing.T) {
	_, err := Normalize(HistoricCharacter, map[string][]string{"name": {"Harold"}}, nil)
	require.ErrorIs(t, err, ErrIncomplete)

	rec, err := Normalize(HistoricCharacter, map[string][]string{
		"id":    {"1"},
		"birth": {"1022.1.1"},
		"death": {"yes"},
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, Fields{"id": "1", "birth_date": "1022-01-01"}, rec.Fields)
}

func TestSchemaConformDropsUnknownFields(t *testing.T) {
	s := DefaultSchema()
	rec := Record{Type: Claim, Fields: Fields{"character_id": "1", "title_id": "k_x", "weak": "yes", "age": "3"}}
	dropped := s.Conform(&rec)
	assert.Equal(t, []string{"age", "weak"}, dropped)
	assert.Equal(t, Fields{"character_id": "1", "title_id": "k_x"}, rec.Fields)
}

func TestDefaultSchemaTypes(t *testing.T) {
	s := DefaultSchema()
	assert.Len(t, s.Types(), 12)
	assert.Equal(t, []string{"character_id", "title_id", "pressed"}, s.Columns(Claim))
	assert.Contains(t, s.Columns(Technology), "castle_tax_modifier")
	assert.False(t, s.Has("artifact"))
}

func TestLoadSchemaFileExtendsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "schema.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
columns:
  Claim:
    - weak
    - pressed
  artifact:
    - id
    - owner
`), 0o644))

	s, err := LoadSchemaFile(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"character_id", "title_id", "pressed", "weak"}, s.Columns(Claim))
	assert.Equal(t, []string{"id", "owner"}, s.Columns("artifact"))
	assert.Equal(t, Type("artifact"), s.Types()[len(s.Types())-1])
}

func TestParseSchemaRejectsBadYAML(t *testing.T) {
	_, err := ParseSchema([]byte("columns: [unclosed"))
	require.Error(t, err)
}
