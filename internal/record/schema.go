package record

import (
	"fmt"
	"os"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

// Schema is the ordered column list of every record type.
type Schema struct {
	types   []Type
	columns map[Type][]string
}

// DefaultSchema returns the tables the parser knows how to fill.
func DefaultSchema() *Schema {
	s := &Schema{columns: make(map[Type][]string)}
	s.Extend(HistoricDynasty, "id", "name", "culture")
	s.Extend(Dynasty, "id", "name", "culture")
	s.Extend(LandedTitle,
		"title_id", "de_jure_liege", "character_title", "title_prefix",
		"foa", "short_name", "location_ruler_title", "capital_id", "caliphate",
		"holy_order", "mercenary", "pirate", "rebel", "landless", "is_primary", "independent",
		"culture", "religion", "controls_religion", "tribe", "color", "color2", "modifier")
	s.Extend(Trait,
		"trait_name", "education",
		"diplomacy", "intrigue", "learning", "martial", "stewardship",
		"ai_ambition", "ai_greed", "ai_honor", "ai_rationality",
		"congenital", "fertility", "birth", "health", "inbred", "lifestyle", "personality", "priest",
		"is_health", "is_illness", "incapacitating", "is_epidemic",
		"ambition_opinion", "church_opinion", "dynasty_opinion", "infidel_opinion", "liege_opinion",
		"opposite_opinion", "same_opinion", "same_religion_opinion", "sex_appeal_opinion",
		"spouse_opinion", "twin_opinion", "vassal_opinion",
		"monthly_character_piety", "monthly_character_prestige", "global_tax_modifier")
	s.Extend(Technology,
		"tech_name", "tech_group", "tech_level",
		"archers_defensive", "archers_offensive",
		"heavy_infantry_defensive", "heavy_infantry_offensive",
		"horse_archers_defensive", "horse_archers_offensive",
		"knights_defensive", "knights_offensive",
		"light_cavalry_defensive", "light_cavalry_offensive",
		"light_infantry_defensive", "light_infantry_offensive",
		"pikemen_defensive", "pikemen_offensive",
		"siege_speed", "siege_defence", "land_morale",
		"castle_tax_modifier", "city_tax_modifier", "temple_tax_modifier",
		"castle_opinion", "town_opinion", "church_opinion",
		"add_prestige_modifier", "add_piety_modifier",
		"culture_flex", "religion_flex",
		"local_build_time_modifier", "short_reign_length")
	s.Extend(OpinionModifier, "name", "opinion", "months", "prison_reason", "revoke_reason")
	s.Extend(MinorTitle, "name", "realm_in_name", "dignity", "monthly_salary", "monthly_prestige", "message")
	s.Extend(HistoricCharacter,
		"id", "name", "female", "birth_date", "death_date", "father", "mother",
		"diplomacy", "stewardship", "intrigue", "learning", "martial",
		"add_trait", "give_nickname", "add_claim",
		"religion", "culture", "dynasty", "dna", "properties", "employer")
	s.Extend(Character,
		"id", "birth_name", "name", "nickname", "female", "historical", "birth_date", "death_date",
		"father", "mother", "spouse", "attributes", "fertility", "health", "traits", "prestige",
		"score", "piety", "religion", "culture", "graphical_culture", "dynasty", "old_holding",
		"dna", "properties", "type", "is_bastard", "title", "job_title", "wealth", "employer",
		"host", "guardian", "regent", "betrothal", "lover", "is_prisoner", "imprisoned",
		"known_plots", "last_objective", "current_income", "estimated_monthly_income",
		"estimated_monthly_expense", "estimated_yearly_income", "averaged_income",
		"ambition_date", "action", "action_date", "action_location", "tech_focus", "player")
	s.Extend(Province, "id", "name", "culture", "religion", "max_settlements", "title_id")
	s.Extend(Claim, "character_id", "title_id", "pressed")
	s.Extend(Title,
		"id", "liege", "holder", "succession", "gender", "usurp_date", "army_size_percentage",
		"set_investiture", "active", "de_jure_law_changer", "normal_law_changer", "succ_law_changer",
		"de_jure_law_change", "normal_law_change", "succ_law_change", "set_the_kings_peace",
		"set_protected_inheritance", "set_appoint_generals", "set_allow_title_revokation",
		"set_allow_free_infidel_revokation", "cannot_cancel_vote", "previous")
	return s
}

// Extend appends columns to a record type, registering the type if needed.
// Columns already present are ignored.
func (s *Schema) Extend(t Type, columns ...string) {
	existing, ok := s.columns[t]
	if !ok {
		s.types = append(s.types, t)
	}
	for _, c := range columns {
		c = strings.ToLower(strings.TrimSpace(c))
		if c == "" || slices.Contains(existing, c) {
			continue
		}
		existing = append(existing, c)
	}
	s.columns[t] = existing
}

// Types returns the registered record types in registration order.
func (s *Schema) Types() []Type {
	return slices.Clone(s.types)
}

// Columns returns the ordered column list of t, or nil when t is unknown.
func (s *Schema) Columns(t Type) []string {
	return s.columns[t]
}

// Has reports whether t is a registered record type.
func (s *Schema) Has(t Type) bool {
	_, ok := s.columns[t]
	return ok
}

// Conform drops every field of rec that has no column and returns the
// dropped names, sorted.
func (s *Schema) Conform(rec *Record) []string {
	cols := s.columns[rec.Type]
	var dropped []string
	for _, k := range rec.Fields.Keys() {
		if !slices.Contains(cols, k) {
			dropped = append(dropped, k)
			delete(rec.Fields, k)
		}
	}
	return dropped
}

// schemaFile is the YAML overlay accepted by LoadSchemaFile:
//
//	columns:
//	  character:
//	    - martial_skill
//	  artifact:
//	    - id
//	    - owner
type schemaFile struct {
	Columns map[string][]string `yaml:"columns"`
}

// LoadSchemaFile reads a YAML overlay and applies it on top of the default
// schema.
func LoadSchemaFile(path string) (*Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read schema file %s: %w", path, err)
	}
	return ParseSchema(data)
}

// ParseSchema applies a YAML overlay on top of the default schema.
func ParseSchema(data []byte) (*Schema, error) {
	var sf schemaFile
	if err := yaml.Unmarshal(data, &sf); err != nil {
		return nil, fmt.Errorf("failed to parse schema YAML: %w", err)
	}
	s := DefaultSchema()
	names := make([]string, 0, len(sf.Columns))
	for name := range sf.Columns {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		t := Type(strings.ToLower(strings.TrimSpace(name)))
		if t == "" {
			return nil, fmt.Errorf("schema YAML: empty record type name")
		}
		s.Extend(t, sf.Columns[name]...)
	}
	return s, nil
}
