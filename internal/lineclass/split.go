package lineclass

import "strings"

type tokenKind int

const (
	tokWord tokenKind = iota
	tokEq
	tokOpen
	tokClose
)

type token struct {
	kind tokenKind
	text string
}

// tokenize splits a line into words, '=', '{' and '}'. Quoted strings stay
// one word, quotes included.
func tokenize(line string) []token {
	var toks []token
	i := 0
	for i < len(line) {
		c := line[i]
		switch {
		case c == ' ' || c == '\t' || c == '\r' || c == '\n':
			i++
		case c == '=':
			toks = append(toks, token{tokEq, "="})
			i++
		case c == '{':
			toks = append(toks, token{tokOpen, "{"})
			i++
		case c == '}':
			toks = append(toks, token{tokClose, "}"})
			i++
		case c == '"':
			j := strings.IndexByte(line[i+1:], '"')
			if j < 0 {
				toks = append(toks, token{tokWord, line[i:]})
				return toks
			}
			toks = append(toks, token{tokWord, line[i : i+j+2]})
			i += j + 2
		default:
			j := i
			for j < len(line) && !strings.ContainsRune(" \t\r\n={}\"", rune(line[j])) {
				j++
			}
			toks = append(toks, token{tokWord, line[i:j]})
			i = j
		}
	}
	return toks
}

// Split breaks a physical line holding several constructs into logical
// lines, one construct each. Lines that already have one of the shapes
// Classify understands are returned unchanged, so `key = { 1 2 3 }` stays a
// scalar and `key = { k = v }` stays a single-line nested pair.
func Split(line string) []string {
	toks := tokenize(line)
	if isSimple(toks) {
		return []string{line}
	}

	var out []string
	n := len(toks)
	for i := 0; i < n; {
		t := toks[i]
		switch {
		case t.kind == tokWord && i+1 < n && toks[i+1].kind == tokEq:
			key := t.text
			switch {
			case i+2 < n && toks[i+2].kind == tokOpen:
				end := matchClose(toks, i+2)
				inner := toks[i+3 : max(end, i+3)]
				switch {
				case end > 0 && len(inner) > 0 && allWords(inner):
					out = append(out, key+" = { "+joinWords(inner)+" }")
					i = end + 1
				case end > 0 && len(inner) == 3 && inner[0].kind == tokWord && inner[1].kind == tokEq && inner[2].kind == tokWord:
					out = append(out, key+" = { "+inner[0].text+" = "+inner[2].text+" }")
					i = end + 1
				default:
					out = append(out, key+" = {")
					i += 3
				}
			case i+2 < n && toks[i+2].kind == tokWord:
				out = append(out, key+" = "+toks[i+2].text)
				i += 3
			default:
				out = append(out, key+" =")
				i += 2
			}
		case t.kind == tokOpen:
			out = append(out, "{")
			i++
		case t.kind == tokClose:
			out = append(out, "}")
			i++
		case t.kind == tokWord:
			j := i
			for j < n && toks[j].kind == tokWord && !(j+1 < n && toks[j+1].kind == tokEq) {
				j++
			}
			words := joinWords(toks[i:j])
			if j < n && toks[j].kind == tokClose {
				out = append(out, words+" }")
				i = j + 1
			} else {
				out = append(out, words)
				i = j
			}
		default:
			out = append(out, t.text)
			i++
		}
	}
	return out
}

// isSimple reports whether the token stream is a single construct.
func isSimple(toks []token) bool {
	braces := false
	for _, t := range toks {
		if t.kind == tokOpen || t.kind == tokClose {
			braces = true
			break
		}
	}
	if !braces {
		return true
	}
	shape := make([]byte, len(toks))
	for i, t := range toks {
		shape[i] = "w={}"[t.kind]
	}
	s := string(shape)
	switch {
	case s == "{", s == "}", s == "w={":
		return true
	case s == "w={w=w}":
		return true
	case strings.HasPrefix(s, "w={w") && strings.Trim(s[3:], "w") == "}":
		return true
	case strings.HasPrefix(s, "w={w") && strings.Trim(s[3:], "w") == "":
		return true
	case strings.HasSuffix(s, "w}") && strings.Trim(s[:len(s)-1], "w") == "":
		return true
	}
	return false
}

func matchClose(toks []token, open int) int {
	depth := 0
	for i := open; i < len(toks); i++ {
		switch toks[i].kind {
		case tokOpen:
			depth++
		case tokClose:
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

func allWords(toks []token) bool {
	for _, t := range toks {
		if t.kind != tokWord {
			return false
		}
	}
	return true
}

func joinWords(toks []token) string {
	parts := make([]string, len(toks))
	for i, t := range toks {
		parts[i] = t.text
	}
	return strings.Join(parts, " ")
}
