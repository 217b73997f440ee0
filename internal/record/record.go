// Package record holds the flattened form of a closed scope and the rules
// that turn raw scope fields into it: flattening, date normalization,
// per-type renames and the column schema every sink writes against.
package record

import (
	"regexp"
	"sort"
	"strings"
)

// Type names a record kind. It doubles as the destination table name.
type Type string

const (
	HistoricDynasty   Type = "historic_dynasty"
	Dynasty           Type = "dynasty"
	LandedTitle       Type = "landed_title"
	Trait             Type = "trait"
	Technology        Type = "technology"
	OpinionModifier   Type = "opinion_modifier"
	MinorTitle        Type = "minor_title"
	HistoricCharacter Type = "historic_character"
	Character         Type = "character"
	Province          Type = "province"
	Claim             Type = "claim"
	Title             Type = "title"
)

// Fields maps canonical column names to single textual values.
type Fields map[string]string

// Record is one row ready for a sink.
type Record struct {
	Type   Type
	Fields Fields
}

// Values returns the record's values in column order. Absent columns are
// nil so they end up as NULL.
func (r Record) Values(columns []string) []any {
	out := make([]any, len(columns))
	for i, c := range columns {
		if v, ok := r.Fields[c]; ok {
			out[i] = v
		}
	}
	return out
}

// Keys returns the field names sorted.
func (f Fields) Keys() []string {
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

var dateRE = regexp.MustCompile(`^(\d{1,4})\D(\d{1,2})\D(\d{1,2})$`)

// CleanDate rewrites a game date such as "1066.9.25" to "1066-09-25".
// Anything that is not date shaped yields ok == false.
func CleanDate(s string) (string, bool) {
	m := dateRE.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return "", false
	}
	return pad(m[1], 4) + "-" + pad(m[2], 2) + "-" + pad(m[3], 2), true
}

func pad(s string, n int) string {
	if len(s) >= n {
		return s
	}
	return strings.Repeat("0", n-len(s)) + s
}

// Flatten joins each key's tokens with single spaces and lower-cases the
// key. Keys without any non-empty token are dropped.
func Flatten(raw map[string][]string) Fields {
	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make(Fields, len(raw))
	for _, key := range keys {
		tokens := raw[key]
		parts := make([]string, 0, len(tokens))
		for _, tok := range tokens {
			if tok != "" {
				parts = append(parts, tok)
			}
		}
		if len(parts) == 0 {
			continue
		}
		out[strings.ToLower(key)] = strings.TrimSpace(strings.Join(parts, " "))
	}
	return out
}
