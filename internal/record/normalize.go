package record

import (
	"errors"
	"fmt"
)

// ErrIncomplete marks a scope that closed without a field its record type
// cannot do without.
var ErrIncomplete = errors.New("incomplete record")

type normalizer struct {
	renames  [][2]string // old -> new
	dates    []string
	required []string
}

var normalizers = map[Type]normalizer{
	LandedTitle: {
		renames: [][2]string{{"title", "character_title"}, {"capital", "capital_id"}, {"primary", "is_primary"}},
	},
	HistoricCharacter: {
		renames:  [][2]string{{"birth", "birth_date"}, {"death", "death_date"}},
		dates:    []string{"birth_date", "death_date"},
		required: []string{"id"},
	},
	Character: {
		dates: []string{"birth_date", "death_date", "ambition_date", "action_date", "imprisoned"},
	},
	Province: {
		renames: [][2]string{{"title", "title_id"}},
	},
	Claim: {
		renames: [][2]string{{"title", "title_id"}},
	},
	Title: {
		renames: [][2]string{{"title_id", "id"}},
		dates:   []string{"usurp_date", "de_jure_law_change", "normal_law_change", "succ_law_change"},
	},
}

// Normalize flattens a closed scope's raw fields into a record of type t.
// Renames run first, then date columns are normalized (a value that is not
// a date is dropped), then ancestor context is laid over the result. Empty
// context values are ignored.
func Normalize(t Type, raw map[string][]string, context Fields) (Record, error) {
	fields := Flatten(raw)
	n := normalizers[t]

	for _, r := range n.renames {
		if v, ok := fields[r[0]]; ok {
			fields[r[1]] = v
			delete(fields, r[0])
		}
	}
	for _, col := range n.dates {
		v, ok := fields[col]
		if !ok {
			continue
		}
		if d, ok := CleanDate(v); ok {
			fields[col] = d
		} else {
			delete(fields, col)
		}
	}
	for k, v := range context {
		if v != "" {
			fields[k] = v
		}
	}
	for _, req := range n.required {
		if fields[req] == "" {
			return Record{}, fmt.Errorf("%w: %s without %s", ErrIncomplete, t, req)
		}
	}
	return Record{Type: t, Fields: fields}, nil
}
