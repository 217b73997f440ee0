// Package xmlexport renders a save file as XML, one element per key. It
// shares the line classifier with the database parser but keeps no
// records: every line is written out as soon as it is read.
package xmlexport

import (
	"bufio"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"

	"ck2db/internal/diagnostic"
	"ck2db/internal/lineclass"
)

const itemElement = "item"

// Options tunes an export. Root defaults to "CK2_Save_game".
type Options struct {
	Root     string
	Indent   string
	Reporter diagnostic.Reporter
}

type Stats struct {
	Lines    int
	Elements int
}

var xmlNameRE = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_.-]*$`)

type writer struct {
	enc     *xml.Encoder
	report  diagnostic.Reporter
	stack   []xml.StartElement
	pending string
	line    int
	stats   Stats
}

// Convert reads r and writes the XML document to w.
func Convert(r io.Reader, w io.Writer, opts Options) (Stats, error) {
	root := opts.Root
	if root == "" {
		root = "CK2_Save_game"
	}
	if !xmlNameRE.MatchString(root) {
		return Stats{}, fmt.Errorf("root %q is not an XML name", root)
	}
	if opts.Reporter == nil {
		opts.Reporter = diagnostic.Discard{}
	}
	if _, err := io.WriteString(w, xml.Header); err != nil {
		return Stats{}, err
	}

	x := &writer{enc: xml.NewEncoder(w), report: opts.Reporter}
	if opts.Indent != "" {
		x.enc.Indent("", opts.Indent)
	}
	if err := x.start(root); err != nil {
		return x.stats, err
	}

	br := bufio.NewReader(r)
	for {
		raw, err := br.ReadString('\n')
		if raw != "" {
			if herr := x.processLine(raw); herr != nil {
				return x.stats, herr
			}
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return x.stats, fmt.Errorf("read line %d: %w", x.line+1, err)
		}
	}

	for len(x.stack) > 1 {
		x.warn(diagnostic.UnclosedScope, x.stack[len(x.stack)-1].Name.Local+" still open at end of input")
		if err := x.end(); err != nil {
			return x.stats, err
		}
	}
	if err := x.end(); err != nil {
		return x.stats, err
	}
	return x.stats, x.enc.Flush()
}

func (x *writer) processLine(raw string) error {
	x.line++
	x.stats.Lines = x.line
	text := lineclass.Prepare(raw)
	if text == "" {
		return nil
	}
	for _, seg := range lineclass.Split(text) {
		if err := x.handle(lineclass.Classify(seg)); err != nil {
			return fmt.Errorf("line %d: %w", x.line, err)
		}
	}
	return nil
}

func (x *writer) handle(l lineclass.Line) error {
	switch l.Kind {
	case lineclass.Blank:
		return nil
	case lineclass.KeyKeyValue:
		x.pending = ""
		if err := x.start(l.Key); err != nil {
			return err
		}
		if err := x.leaf(l.SubKey, l.Value); err != nil {
			return err
		}
		return x.end()
	case lineclass.KeyValue:
		x.pending = ""
		return x.leaf(l.Key, l.Value)
	case lineclass.KeyOnly:
		x.pending = l.Key
		return nil
	case lineclass.Open:
		name := x.pending
		if name == "" {
			name = l.Key
		}
		if name == "" {
			name = x.stack[len(x.stack)-1].Name.Local + "_inner"
		}
		x.pending = ""
		return x.start(name)
	case lineclass.ValueClose:
		x.pending = ""
		if err := x.enc.EncodeToken(xml.CharData(l.Value)); err != nil {
			return err
		}
		return x.closeScope()
	case lineclass.Close:
		x.pending = ""
		return x.closeScope()
	default:
		if len(x.stack) == 1 && !strings.Contains(l.Value, "--") {
			return x.enc.EncodeToken(xml.Comment(l.Value))
		}
		return x.enc.EncodeToken(xml.CharData(l.Value))
	}
}

// closeScope ends the innermost element. The root stays open until EOF.
func (x *writer) closeScope() error {
	if len(x.stack) <= 1 {
		x.warn(diagnostic.StackUnderflow, "close with no open element")
		return nil
	}
	return x.end()
}

func (x *writer) element(key string) xml.StartElement {
	if xmlNameRE.MatchString(key) {
		return xml.StartElement{Name: xml.Name{Local: key}}
	}
	return xml.StartElement{
		Name: xml.Name{Local: itemElement},
		Attr: []xml.Attr{{Name: xml.Name{Local: "key"}, Value: key}},
	}
}

func (x *writer) start(key string) error {
	el := x.element(key)
	if err := x.enc.EncodeToken(el); err != nil {
		return err
	}
	x.stack = append(x.stack, el)
	x.stats.Elements++
	return nil
}

func (x *writer) end() error {
	el := x.stack[len(x.stack)-1]
	x.stack = x.stack[:len(x.stack)-1]
	return x.enc.EncodeToken(el.End())
}

func (x *writer) leaf(key, value string) error {
	if err := x.start(key); err != nil {
		return err
	}
	if value != "" {
		if err := x.enc.EncodeToken(xml.CharData(value)); err != nil {
			return err
		}
	}
	return x.end()
}

func (x *writer) warn(code diagnostic.Code, msg string) {
	x.report.Report(diagnostic.Diagnostic{Line: x.line, Code: code, Message: msg})
}
