package parser

import (
	"errors"
	"slices"
	"strings"

	"ck2db/internal/record"
)

// ErrStackUnderflow is returned when a scope is closed with nothing open.
var ErrStackUnderflow = errors.New("scope stack underflow")

// Scope is one open brace pair on the current path. Its fields map a key to
// the scalar tokens recorded under it and to the child scopes opened under
// the same key that are still open.
type Scope struct {
	Tag string

	keys   []string
	fields map[string]*Field

	// seedKey/seedValue record the value the opening key implied. The
	// first body value under seedKey that repeats it is not recorded again.
	seedKey   string
	seedValue string
}

// Field is everything recorded under one key of a scope. The active child
// is always the last one.
type Field struct {
	Tokens   []string
	Children []*Scope
}

func (f *Field) empty() bool {
	return len(f.Tokens) == 0 && len(f.Children) == 0
}

func newScope(tag string) *Scope {
	return &Scope{Tag: tag, fields: make(map[string]*Field)}
}

func (s *Scope) field(key string) *Field {
	f, ok := s.fields[key]
	if !ok {
		f = &Field{}
		s.fields[key] = f
		s.keys = append(s.keys, key)
	}
	return f
}

func (s *Scope) add(key, token string) {
	f := s.field(key)
	f.Tokens = append(f.Tokens, token)
}

// seed records the value implied by the scope's opening key.
func (s *Scope) seed(key, value string) {
	s.add(key, value)
	s.seedKey, s.seedValue = key, value
}

// addBody records a value read inside the scope.
func (s *Scope) addBody(key, token string) {
	if s.seedKey != "" && key == s.seedKey {
		repeat := sameSeed(s.seedValue, token)
		s.seedKey, s.seedValue = "", ""
		if repeat {
			return
		}
	}
	s.add(key, token)
}

// sameSeed compares a seed with a body value. Dates are seeded in their
// normalized form, so "1066.3.2" repeats "1066-03-02".
func sameSeed(seed, token string) bool {
	if seed == token {
		return true
	}
	d, ok := record.CleanDate(token)
	return ok && d == seed
}

func (s *Scope) set(key string, tokens []string) {
	s.field(key).Tokens = slices.Clone(tokens)
}

// Field returns the field recorded under key.
func (s *Scope) Field(key string) (*Field, bool) {
	f, ok := s.fields[key]
	return f, ok
}

// Keys returns the field keys in first-seen order.
func (s *Scope) Keys() []string {
	return slices.Clone(s.keys)
}

// Joined returns the tokens under key joined by single spaces.
func (s *Scope) Joined(key string) string {
	f, ok := s.fields[key]
	if !ok {
		return ""
	}
	return strings.TrimSpace(strings.Join(f.Tokens, " "))
}

// Last returns the most recent token recorded under key.
func (s *Scope) Last(key string) string {
	f, ok := s.fields[key]
	if !ok || len(f.Tokens) == 0 {
		return ""
	}
	return f.Tokens[len(f.Tokens)-1]
}

// Raw returns the scalar tokens of every key, ready for flattening.
func (s *Scope) Raw() map[string][]string {
	out := make(map[string][]string, len(s.keys))
	for _, k := range s.keys {
		if f := s.fields[k]; len(f.Tokens) > 0 {
			out[k] = f.Tokens
		}
	}
	return out
}

// removeChild detaches c from the field named after its tag. A key left with
// no tokens and no children is removed.
func (s *Scope) removeChild(c *Scope) bool {
	f, ok := s.fields[c.Tag]
	if !ok {
		return false
	}
	for i := len(f.Children) - 1; i >= 0; i-- {
		if f.Children[i] == c {
			f.Children = slices.Delete(f.Children, i, i+1)
			if f.empty() {
				delete(s.fields, c.Tag)
				s.keys = slices.DeleteFunc(s.keys, func(k string) bool { return k == c.Tag })
			}
			return true
		}
	}
	return false
}

// stack is the currently open path, root first. Closed scopes are detached
// from their parent so only the open path stays in memory.
type stack struct {
	root   string
	doc    *Scope
	frames []*Scope
}

func newStack(root string) *stack {
	st := &stack{root: root, doc: newScope("")}
	st.push(root)
	return st
}

func (st *stack) depth() int {
	return len(st.frames)
}

func (st *stack) top() *Scope {
	return st.at(0)
}

// at returns the scope gen levels above the top (0 is the top itself), or
// nil past the bottom of the stack.
func (st *stack) at(gen int) *Scope {
	i := len(st.frames) - 1 - gen
	if gen < 0 || i < 0 {
		return nil
	}
	return st.frames[i]
}

// tagAt is at(gen).Tag, falling back to the root name past the bottom.
func (st *stack) tagAt(gen int) string {
	if s := st.at(gen); s != nil {
		return s.Tag
	}
	return st.root
}

func (st *stack) push(tag string) *Scope {
	parent := st.doc
	if t := st.top(); t != nil {
		parent = t
	}
	s := newScope(tag)
	f := parent.field(tag)
	f.Children = append(f.Children, s)
	st.frames = append(st.frames, s)
	return s
}

// pop removes the top scope. attached is false when the scope could not be
// found in its parent's fields.
func (st *stack) pop() (s *Scope, attached bool, err error) {
	if len(st.frames) == 0 {
		return nil, false, ErrStackUnderflow
	}
	s = st.frames[len(st.frames)-1]
	st.frames = st.frames[:len(st.frames)-1]
	parent := st.doc
	if t := st.top(); t != nil {
		parent = t
	}
	return s, parent.removeChild(s), nil
}

func (st *stack) path() string {
	tags := make([]string, len(st.frames))
	for i, s := range st.frames {
		tags[i] = s.Tag
	}
	return strings.Join(tags, ".")
}
