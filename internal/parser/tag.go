package parser

import (
	"regexp"

	"ck2db/internal/record"
)

const (
	// SaveRoot is the root scope name of a saved game.
	SaveRoot = "CK2_Save_game"

	elementSuffix = "_element"
	innerSuffix   = "_inner"
)

// TagKind says how a key was disambiguated.
type TagKind int

const (
	PlainTag TagKind = iota
	NumericTag
	DateTag
	TitleTag
	RelationTag
)

// Tag is the result of classifying a key that opens a scope. Name is the
// synthetic scope name; SeedKey/SeedValue, when set, become the first value
// recorded inside the new scope.
type Tag struct {
	Kind      TagKind
	Name      string
	SeedKey   string
	SeedValue string
}

var (
	numericKeyRE  = regexp.MustCompile(`^\d+$`)
	dateKeyRE     = regexp.MustCompile(`^-?\d{1,4}\.\d{1,2}\.\d{1,2}$`)
	titleKeyRE    = regexp.MustCompile(`^[bcdke]_[^\s=]+`)
	relationKeyRE = regexp.MustCompile(`^rel_(\d+)$`)
)

// ClassifyTag decides what kind of scope key opens under parent. The checks
// run in a fixed order: numeric id, date, title code, relation code, plain.
func ClassifyTag(key, parent string) Tag {
	switch {
	case numericKeyRE.MatchString(key):
		return Tag{Kind: NumericTag, Name: parent + elementSuffix, SeedKey: "id", SeedValue: key}
	case dateKeyRE.MatchString(key):
		// Negative dates do not normalize; the scope opens without a seed.
		date, _ := record.CleanDate(key)
		return Tag{Kind: DateTag, Name: parent + elementSuffix, SeedKey: "date", SeedValue: date}
	case titleKeyRE.MatchString(key):
		return Tag{Kind: TitleTag, Name: titleScopeName(parent), SeedKey: "title_id", SeedValue: key}
	}
	if m := relationKeyRE.FindStringSubmatch(key); m != nil {
		return Tag{Kind: RelationTag, Name: "rel", SeedKey: "character_id", SeedValue: m[1]}
	}
	return Tag{Kind: PlainTag, Name: key}
}

func titleScopeName(parent string) string {
	switch parent {
	case SaveRoot + elementSuffix:
		return "title_information"
	case "landed_titles", "landed_title":
		return "landed_title"
	default:
		return "title_element"
	}
}
