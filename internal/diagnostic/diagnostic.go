// Package diagnostic carries the non-fatal conditions raised while a save
// file is parsed: lines that match no known shape, brace underflow, fields
// without a destination column and similar. None of them stop a parse.
package diagnostic

import (
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"
)

// Code identifies one kind of diagnostic.
type Code string

const (
	UnmatchedLine  Code = "unmatched_line"
	TagConflict    Code = "tag_conflict"
	StackUnderflow Code = "stack_underflow"
	RootReopened   Code = "root_reopened"
	MissingChild   Code = "missing_child"
	UnknownColumn  Code = "unknown_column"
	SkippedRecord  Code = "skipped_record"
	UnclosedScope  Code = "unclosed_scope"
)

// Diagnostic is a single reported condition.
type Diagnostic struct {
	Line    int
	Code    Code
	Path    string // dotted scope path at the time of the report
	Message string
}

func (d Diagnostic) String() string {
	var b strings.Builder
	if d.Line > 0 {
		fmt.Fprintf(&b, "[line %d] ", d.Line)
	}
	b.WriteString(string(d.Code))
	if d.Message != "" {
		b.WriteString(": ")
		b.WriteString(d.Message)
	}
	if d.Path != "" {
		fmt.Fprintf(&b, " (%s)", d.Path)
	}
	return b.String()
}

// Reporter receives diagnostics.
type Reporter interface {
	Report(d Diagnostic)
}

// LogReporter writes every diagnostic as one log line.
type LogReporter struct {
	Logger *log.Logger
}

func (r LogReporter) Report(d Diagnostic) {
	if r.Logger == nil {
		log.Print(d.String())
		return
	}
	r.Logger.Print(d.String())
}

// Discard drops everything.
type Discard struct{}

func (Discard) Report(Diagnostic) {}

// Collector keeps diagnostics in memory.
type Collector struct {
	mu    sync.Mutex
	items []Diagnostic
}

func (c *Collector) Report(d Diagnostic) {
	c.mu.Lock()
	c.items = append(c.items, d)
	c.mu.Unlock()
}

// Items returns a copy of everything reported so far.
func (c *Collector) Items() []Diagnostic {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Diagnostic(nil), c.items...)
}

// Count returns how many diagnostics with the given code were reported.
func (c *Collector) Count(code Code) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, d := range c.items {
		if d.Code == code {
			n++
		}
	}
	return n
}

// Tally counts diagnostics per code and forwards them to Next (if set).
type Tally struct {
	Next Reporter

	mu     sync.Mutex
	counts map[Code]int
}

func (t *Tally) Report(d Diagnostic) {
	t.mu.Lock()
	if t.counts == nil {
		t.counts = make(map[Code]int)
	}
	t.counts[d.Code]++
	t.mu.Unlock()
	if t.Next != nil {
		t.Next.Report(d)
	}
}

// Counts returns a snapshot of the per-code totals.
func (t *Tally) Counts() map[Code]int {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make(map[Code]int, len(t.counts))
	for k, v := range t.counts {
		out[k] = v
	}
	return out
}

// Summary renders the totals as "code=n" pairs sorted by code.
func (t *Tally) Summary() string {
	counts := t.Counts()
	if len(counts) == 0 {
		return "no diagnostics"
	}
	codes := make([]string, 0, len(counts))
	for c := range counts {
		codes = append(codes, string(c))
	}
	sort.Strings(codes)
	parts := make([]string, 0, len(codes))
	for _, c := range codes {
		parts = append(parts, fmt.Sprintf("%s=%d", c, counts[Code(c)]))
	}
	return strings.Join(parts, " ")
}

// Reset clears the totals.
func (t *Tally) Reset() {
	t.mu.Lock()
	t.counts = nil
	t.mu.Unlock()
}
