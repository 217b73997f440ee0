// Package lineclass classifies single lines of the brace-delimited save
// format. It knows nothing about scopes: every function here is pure and is
// shared by the database parser and the XML exporter.
package lineclass

import (
	"regexp"
	"strings"
)

// Kind is the shape of one logical line.
type Kind int

const (
	Blank       Kind = iota
	KeyKeyValue      // key = { key2 = "value" }
	KeyValue         // key = value, key = { value
	KeyOnly          // key =
	Open             // anything else holding "{"
	ValueClose       // value }
	Close            // }
	Unmatched
)

func (k Kind) String() string {
	switch k {
	case Blank:
		return "blank"
	case KeyKeyValue:
		return "key_key_value"
	case KeyValue:
		return "key_value"
	case KeyOnly:
		return "key_only"
	case Open:
		return "open"
	case ValueClose:
		return "value_close"
	case Close:
		return "close"
	default:
		return "unmatched"
	}
}

// Line is a classified logical line. Which fields are set depends on Kind:
// KeyKeyValue fills Key, SubKey and Value; KeyValue fills Key and Value;
// KeyOnly fills Key; Open fills Key only when the line names one;
// ValueClose fills Value; Unmatched keeps the text in Value.
type Line struct {
	Kind   Kind
	Key    string
	SubKey string
	Value  string
}

var (
	keyKeyValueRE = regexp.MustCompile(`^\s*(\S+)\s*=\s*\{\s*(\S+)\s*=\s*"?([^{}"\s][^{}"]*)"?\s*\}`)
	emptyQuotedRE = regexp.MustCompile(`^\s*(\S+)\s*=\s*""\s*$`)
	keyValueRE    = regexp.MustCompile(`^\s*(\S+)\s*=\s*(?:\{\s*)?"?([^{}"\s][^{}"]*)"?(?:\s*\{)?`)
	keyNoValueRE  = regexp.MustCompile(`^\s*(\S+)\s*=\s*\{?`)
	valueCloseRE  = regexp.MustCompile(`^\s*([^{}\s=][^{}=]*?)\s*\}`)
)

// Classify maps a comment-free line to its Kind. Patterns are tried from the
// most specific to the most generic and the first match wins.
func Classify(line string) Line {
	line = strings.TrimSpace(line)
	if line == "" {
		return Line{Kind: Blank}
	}
	if m := keyKeyValueRE.FindStringSubmatch(line); m != nil {
		return Line{Kind: KeyKeyValue, Key: m[1], SubKey: m[2], Value: strings.TrimSpace(m[3])}
	}
	if m := emptyQuotedRE.FindStringSubmatch(line); m != nil {
		return Line{Kind: KeyValue, Key: m[1]}
	}
	if m := keyValueRE.FindStringSubmatch(line); m != nil {
		return Line{Kind: KeyValue, Key: m[1], Value: strings.TrimSpace(m[2])}
	}

	noValue := keyNoValueRE.FindStringSubmatch(line)
	hasOpen := strings.Contains(line, "{")
	if noValue != nil && !hasOpen {
		return Line{Kind: KeyOnly, Key: noValue[1]}
	}
	if hasOpen {
		l := Line{Kind: Open}
		if noValue != nil {
			l.Key = noValue[1]
		}
		return l
	}
	if m := valueCloseRE.FindStringSubmatch(line); m != nil {
		return Line{Kind: ValueClose, Value: strings.TrimSpace(m[1])}
	}
	if strings.Contains(line, "}") {
		return Line{Kind: Close}
	}
	return Line{Kind: Unmatched, Value: line}
}

// StripComment removes a trailing "#..." comment. A '#' inside a quoted
// string is kept.
func StripComment(line string) string {
	inQuote := false
	for i := 0; i < len(line); i++ {
		switch line[i] {
		case '"':
			inQuote = !inQuote
		case '#':
			if !inQuote {
				return line[:i]
			}
		}
	}
	return line
}

// Prepare turns a raw physical line into the text Classify expects.
func Prepare(raw string) string {
	return strings.TrimSpace(StripComment(strings.TrimRight(raw, "\r\n")))
}
