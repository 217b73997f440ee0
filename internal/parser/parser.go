// Package parser turns the line-oriented, brace-delimited save format into
// flattened records. It keeps only the currently open path in memory: a
// scope lives from its opening brace until its close, when it is routed
// through the dispatch table to a sink and then dropped.
package parser

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"ck2db/internal/diagnostic"
	"ck2db/internal/lineclass"
	"ck2db/internal/record"
)

// DefaultMaxLines is the safety ceiling on lines read from one input.
const DefaultMaxLines = 10_000_000

const cancelCheckLines = 1024

// Sink receives finished records. A returned error stops the parse.
type Sink interface {
	Insert(ctx context.Context, rec record.Record) error
}

// Options tunes a parse. Zero values pick the defaults.
type Options struct {
	Root     string // root scope name, SaveRoot when empty
	MaxLines int
	Schema   *record.Schema
	Rules    []Rule
	Reporter diagnostic.Reporter
}

// Stats summarizes one parse.
type Stats struct {
	Lines     int
	Records   map[record.Type]int
	Truncated bool // the line ceiling was hit before EOF
}

// Total returns the number of records written.
func (s Stats) Total() int {
	n := 0
	for _, c := range s.Records {
		n += c
	}
	return n
}

// Parse reads r line by line and writes every record it recognizes to sink.
// Malformed input is reported through opts.Reporter and never aborts the
// parse; only a sink failure or a read error does.
func Parse(ctx context.Context, r io.Reader, sink Sink, opts Options) (Stats, error) {
	if sink == nil {
		return Stats{}, errors.New("parser: nil sink")
	}
	e := newEngine(ctx, sink, opts)
	maxLines := opts.MaxLines
	if maxLines <= 0 {
		maxLines = DefaultMaxLines
	}

	br := bufio.NewReaderSize(r, 64*1024)
	for {
		raw, err := br.ReadString('\n')
		if raw != "" {
			if e.line >= maxLines {
				e.stats.Truncated = true
				break
			}
			e.processLine(raw)
			if e.err == nil && e.line%cancelCheckLines == 0 {
				e.err = ctx.Err()
			}
			if e.err != nil {
				e.stats.Lines = e.line
				return e.stats, e.err
			}
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			e.stats.Lines = e.line
			return e.stats, fmt.Errorf("read line %d: %w", e.line+1, err)
		}
	}

	e.finish(!e.stats.Truncated)
	e.stats.Lines = e.line
	return e.stats, e.err
}

type engine struct {
	ctx    context.Context
	sink   Sink
	schema *record.Schema
	rules  []Rule
	report diagnostic.Reporter

	st      *stack
	pending string // key read whose scope has not been opened yet
	started bool   // a non-blank line has been handled
	header  bool   // a leading bare word opened the root, so one root close is balanced
	line    int
	stats   Stats
	err     error
}

func newEngine(ctx context.Context, sink Sink, opts Options) *engine {
	root := strings.TrimSpace(opts.Root)
	if root == "" {
		root = SaveRoot
	}
	e := &engine{
		ctx:    ctx,
		sink:   sink,
		schema: opts.Schema,
		rules:  opts.Rules,
		report: opts.Reporter,
		st:     newStack(root),
		stats:  Stats{Records: make(map[record.Type]int)},
	}
	if e.schema == nil {
		e.schema = record.DefaultSchema()
	}
	if e.rules == nil {
		e.rules = DefaultRules()
	}
	if e.report == nil {
		e.report = diagnostic.Discard{}
	}
	return e
}

func (e *engine) processLine(raw string) {
	e.line++
	text := lineclass.Prepare(raw)
	if text == "" {
		return
	}
	for _, seg := range lineclass.Split(text) {
		e.handle(lineclass.Classify(seg))
		if e.err != nil {
			return
		}
	}
}

func (e *engine) handle(l lineclass.Line) {
	first := !e.started && l.Kind != lineclass.Blank
	if first {
		e.started = true
	}
	switch l.Kind {
	case lineclass.Blank:
	case lineclass.KeyKeyValue:
		e.open(l.Key)
		e.appendValue(l.SubKey, l.Value)
		e.close()
	case lineclass.KeyValue:
		if e.pending != "" {
			e.warn(diagnostic.TagConflict, fmt.Sprintf("%s = %s read while %s is pending", l.Key, l.Value, e.pending))
			e.pending = ""
		}
		e.appendValue(l.Key, l.Value)
	case lineclass.KeyOnly:
		if e.pending != "" {
			e.warn(diagnostic.TagConflict, fmt.Sprintf("%s replaces pending %s", l.Key, e.pending))
		}
		e.pending = l.Key
	case lineclass.Open:
		tag := e.pending
		switch {
		case l.Key != "" && tag == "":
			tag = l.Key
		case l.Key != "":
			e.warn(diagnostic.TagConflict, fmt.Sprintf("%s opened while %s is pending", l.Key, tag))
		case tag == "":
			tag = e.st.tagAt(0) + innerSuffix
		}
		e.pending = ""
		e.open(tag)
	case lineclass.ValueClose:
		e.pending = ""
		if e.st.depth() == 0 {
			e.warn(diagnostic.StackUnderflow, fmt.Sprintf("value %q closes nothing", l.Value))
			return
		}
		tag := e.st.top().Tag
		e.close()
		e.appendValue(tag, l.Value)
	case lineclass.Close:
		e.pending = ""
		e.close()
	default:
		if first && e.st.depth() == 1 {
			e.header = true
		}
		e.warn(diagnostic.UnmatchedLine, strconv.Quote(l.Value))
	}
}

// ensureRoot reopens the root scope when too many closes emptied the stack,
// so content after the stray brace still lands somewhere sensible.
func (e *engine) ensureRoot() {
	if e.st.depth() > 0 {
		return
	}
	e.warn(diagnostic.RootReopened, "stack empty, reopening "+e.st.root)
	e.st.push(e.st.root)
}

func (e *engine) open(key string) {
	e.ensureRoot()
	tag := ClassifyTag(key, e.st.top().Tag)
	s := e.st.push(tag.Name)
	if tag.SeedKey != "" && tag.SeedValue != "" {
		s.seed(tag.SeedKey, tag.SeedValue)
	}
}

func (e *engine) appendValue(key, value string) {
	e.ensureRoot()
	e.st.top().addBody(key, value)
}

func (e *engine) close() {
	if e.st.depth() == 0 {
		e.warn(diagnostic.StackUnderflow, "close with no open scope")
		return
	}
	// The root is a container, never a record.
	if e.st.depth() > 1 {
		e.dispatch()
	} else if e.header {
		e.header = false
	} else {
		e.warn(diagnostic.StackUnderflow, "close at root level, "+e.st.root+" closed early")
	}
	s, attached, err := e.st.pop()
	if err != nil {
		e.warn(diagnostic.StackUnderflow, err.Error())
		return
	}
	if !attached {
		e.warn(diagnostic.MissingChild, "no "+s.Tag+" in parent scope")
	}
}

func (e *engine) dispatch() {
	v := View{st: e.st}
	rule, ok := matchRule(e.rules, v)
	if !ok {
		return
	}
	if rule.Apply != nil {
		rule.Apply(v)
	}
	if rule.Record == "" {
		return
	}

	var pulled record.Fields
	if rule.Context != nil {
		pulled = rule.Context(v)
	}
	rec, err := record.Normalize(rule.Record, e.st.top().Raw(), pulled)
	if err != nil {
		e.warn(diagnostic.SkippedRecord, err.Error())
		return
	}
	if dropped := e.schema.Conform(&rec); len(dropped) > 0 {
		e.warn(diagnostic.UnknownColumn, fmt.Sprintf("%s has no column for %s", rec.Type, strings.Join(dropped, ", ")))
	}
	if err := e.sink.Insert(e.ctx, rec); err != nil {
		e.err = fmt.Errorf("line %d: insert %s: %w", e.line, rec.Type, err)
		return
	}
	e.stats.Records[rec.Type]++
}

// finish closes whatever is still open at the end of input, innermost
// first. When dispatch is false the scopes are dropped without producing
// records.
func (e *engine) finish(dispatch bool) {
	for e.st.depth() > 0 && e.err == nil {
		if e.st.depth() > 1 {
			e.warn(diagnostic.UnclosedScope, e.st.top().Tag+" still open at end of input")
		}
		if dispatch && e.st.depth() > 1 {
			e.close()
			continue
		}
		_, _, _ = e.st.pop()
	}
}

func (e *engine) warn(code diagnostic.Code, msg string) {
	e.report.Report(diagnostic.Diagnostic{
		Line:    e.line,
		Code:    code,
		Path:    e.st.path(),
		Message: msg,
	})
}
