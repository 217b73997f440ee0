package parser

import (
	"ck2db/internal/record"
)

// View is what a dispatch rule sees of the open path when a scope closes.
// Generation 0 is the closing scope, 1 its parent, and so on; past the
// bottom of the stack tags fall back to the root name and scopes are nil.
type View struct {
	st *stack
}

// Tag returns the tag gen levels above the closing scope.
func (v View) Tag(gen int) string {
	return v.st.tagAt(gen)
}

// Scope returns the scope gen levels above the closing scope, or nil.
func (v View) Scope(gen int) *Scope {
	return v.st.at(gen)
}

// Joined returns the space-joined value of key in the scope at gen.
func (v View) Joined(gen int, key string) string {
	if s := v.st.at(gen); s != nil {
		return s.Joined(key)
	}
	return ""
}

// Last returns the latest token of key in the scope at gen.
func (v View) Last(gen int, key string) string {
	if s := v.st.at(gen); s != nil {
		return s.Last(key)
	}
	return ""
}

// Rule routes a closing scope. Rules are evaluated in order and the first
// whose When matches wins. A rule with a Record produces a row of that type,
// with Context supplying values pulled from ancestors; a rule without one
// only runs Apply.
type Rule struct {
	Name    string
	When    func(v View) bool
	Record  record.Type
	Context func(v View) record.Fields
	Apply   func(v View)
}

func tagIs(name string) func(View) bool {
	return func(v View) bool { return v.Tag(0) == name }
}

func parentIs(name string) func(View) bool {
	return func(v View) bool { return v.Tag(1) == name }
}

// DefaultRules returns the dispatch table for saved games and the common
// game data files.
func DefaultRules() []Rule {
	return []Rule{
		{Name: "historic_dynasty", When: tagIs("historic_dynasties_element"), Record: record.HistoricDynasty},
		{
			Name: "landed_title", When: tagIs("landed_title"), Record: record.LandedTitle,
			Context: func(v View) record.Fields {
				return record.Fields{"de_jure_liege": v.Joined(1, "title_id")}
			},
		},
		{
			Name: "trait", When: parentIs("traits"), Record: record.Trait,
			Context: func(v View) record.Fields {
				return record.Fields{"trait_name": v.Tag(0)}
			},
		},
		{
			Name: "technology", Record: record.Technology,
			When: func(v View) bool { return v.Tag(0) == "modifier" && v.Tag(4) == "technology" },
			Context: func(v View) record.Fields {
				return record.Fields{
					"tech_name":  v.Tag(2),
					"tech_group": v.Tag(3),
					"tech_level": v.Last(1, "id"),
				}
			},
		},
		{
			Name: "opinion_modifier", When: parentIs("opinion_modifier"), Record: record.OpinionModifier,
			Context: func(v View) record.Fields {
				return record.Fields{"name": v.Tag(0)}
			},
		},
		{
			Name: "minor_title", When: parentIs("minor_title"), Record: record.MinorTitle,
			Context: func(v View) record.Fields {
				return record.Fields{"name": v.Tag(0)}
			},
		},
		{Name: "historic_character_event", When: tagIs("historic_character_element_element"), Apply: mergeLifeEvents},
		{Name: "historic_character", When: tagIs("historic_character_element"), Record: record.HistoricCharacter},
		{Name: "dynasty", When: tagIs("dynasties_element"), Record: record.Dynasty},
		{Name: "character", When: tagIs("character_element"), Record: record.Character},
		{Name: "province", When: tagIs(SaveRoot + elementSuffix), Record: record.Province},
		{
			Name: "claim", When: tagIs("claim"), Record: record.Claim,
			Context: func(v View) record.Fields {
				return record.Fields{"character_id": v.Last(1, "id")}
			},
		},
		{Name: "title", When: tagIs("title_element"), Record: record.Title},
	}
}

// mergeLifeEvents copies birth/death out of a dated history entry into the
// character holding it. A value that is not itself a date ("birth = yes")
// is replaced by the entry's date.
func mergeLifeEvents(v View) {
	entry, holder := v.Scope(0), v.Scope(1)
	if entry == nil || holder == nil {
		return
	}
	for _, key := range []string{"birth", "death"} {
		f, ok := entry.Field(key)
		if !ok || len(f.Tokens) == 0 {
			continue
		}
		value := entry.Joined(key)
		if _, isDate := record.CleanDate(value); !isDate {
			if date := entry.Joined("date"); date != "" {
				value = date
			}
		}
		holder.set(key, []string{value})
	}
}

func matchRule(rules []Rule, v View) (Rule, bool) {
	for _, r := range rules {
		if r.When != nil && r.When(v) {
			return r, true
		}
	}
	return Rule{}, false
}
