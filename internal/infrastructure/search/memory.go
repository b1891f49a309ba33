package search

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"sync"
	"unicode"

	"github.com/store/backend/internal/domain/shared"
	"golang.org/x/text/cases"
)

// MemoryMirror is an in-process search index holding JSON documents.
//
// Query syntax is a small subset of query_string: whitespace separated terms
// that must all match, each either "field:value" or a bare value matched
// against every field. Terms joined by OR match when either does; AND is
// accepted and implied. A value matches a field equal to it or holding it as
// a word, so id:1 does not match 10. A trailing * turns a value into a prefix
// match and a lone * matches every document. Nested fields use dots, e.g.
// productCategory.name:shirts. Matching is case-insensitive.
type MemoryMirror[T any, P shared.Record[T]] struct {
	mu    sync.RWMutex
	index string
	docs  map[int64][]byte
}

// NewMemoryMirror creates an empty in-memory mirror
func NewMemoryMirror[T any, P shared.Record[T]]() *MemoryMirror[T, P] {
	return &MemoryMirror[T, P]{
		index: P(new(T)).IndexName(),
		docs:  make(map[int64][]byte),
	}
}

// IndexName returns the index the mirror represents
func (m *MemoryMirror[T, P]) IndexName() string {
	return m.index
}

// Index stores a snapshot of the record
func (m *MemoryMirror[T, P]) Index(ctx context.Context, entity *T) error {
	id := P(entity).GetID()
	if id == 0 {
		return shared.ErrIdentityMissing
	}
	doc, err := json.Marshal(entity)
	if err != nil {
		return fmt.Errorf("encode %s document: %w", m.index, err)
	}

	m.mu.Lock()
	m.docs[id] = doc
	m.mu.Unlock()
	return nil
}

// DeleteByID removes the document if present
func (m *MemoryMirror[T, P]) DeleteByID(ctx context.Context, id int64) error {
	m.mu.Lock()
	delete(m.docs, id)
	m.mu.Unlock()
	return nil
}

// Search matches every term of the query, ordered by identity
func (m *MemoryMirror[T, P]) Search(ctx context.Context, query string, page shared.PageRequest) (shared.Page[T], error) {
	page = page.Normalize()
	terms := m.parse(query)

	m.mu.RLock()
	ids := make([]int64, 0, len(m.docs))
	for id, doc := range m.docs {
		if m.matches(doc, terms) {
			ids = append(ids, id)
		}
	}
	docs := make(map[int64][]byte, len(ids))
	for _, id := range ids {
		docs[id] = m.docs[id]
	}
	m.mu.RUnlock()

	slices.Sort(ids)
	total := int64(len(ids))

	start := min(page.Offset(), len(ids))
	end := min(start+page.Size, len(ids))
	items := make([]T, 0, end-start)
	for _, id := range ids[start:end] {
		var item T
		if err := json.Unmarshal(docs[id], &item); err != nil {
			return shared.Page[T]{}, fmt.Errorf("decode %s document %d: %w", m.index, id, err)
		}
		items = append(items, item)
	}
	return shared.NewPage(items, total, page), nil
}

// EnsureIndex is a no-op: the index always exists
func (m *MemoryMirror[T, P]) EnsureIndex(ctx context.Context) error {
	return nil
}

// DeleteIndex drops every document
func (m *MemoryMirror[T, P]) DeleteIndex(ctx context.Context) error {
	m.mu.Lock()
	m.docs = make(map[int64][]byte)
	m.mu.Unlock()
	return nil
}

// Len returns the number of indexed documents
func (m *MemoryMirror[T, P]) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.docs)
}

type term struct {
	field  string // empty matches any field
	value  string
	prefix bool
}

// parse returns the query as a conjunction of OR groups
func (m *MemoryMirror[T, P]) parse(query string) [][]term {
	var groups [][]term
	joinNext := false
	for _, raw := range strings.Fields(query) {
		switch raw {
		case "*", "AND":
			continue
		case "OR":
			joinNext = len(groups) > 0
			continue
		}
		t := term{}
		if field, value, ok := strings.Cut(raw, ":"); ok && field != "" {
			t.field = field
			raw = value
		}
		raw = strings.Trim(raw, `"`)
		if strings.HasSuffix(raw, "*") {
			t.prefix = true
			raw = strings.TrimSuffix(raw, "*")
		}
		t.value = fold(raw)

		if joinNext {
			last := len(groups) - 1
			groups[last] = append(groups[last], t)
			joinNext = false
			continue
		}
		groups = append(groups, []term{t})
	}
	return groups
}

func (m *MemoryMirror[T, P]) matches(doc []byte, groups [][]term) bool {
	if len(groups) == 0 {
		return true
	}
	var fields map[string]any
	if err := json.Unmarshal(doc, &fields); err != nil {
		return false
	}
	flat := make(map[string]string)
	flatten("", fields, flat)

	for _, group := range groups {
		if !slices.ContainsFunc(group, func(t term) bool { return t.matches(flat) }) {
			return false
		}
	}
	return true
}

func (t term) matches(flat map[string]string) bool {
	if t.field != "" {
		v, ok := flat[t.field]
		return ok && t.matchValue(v)
	}
	for _, v := range flat {
		if t.matchValue(v) {
			return true
		}
	}
	return false
}

// matchValue compares against the whole value and against each of its words
func (t term) matchValue(v string) bool {
	v = fold(v)
	hit := func(s string) bool {
		if t.prefix {
			return strings.HasPrefix(s, t.value)
		}
		return s == t.value
	}
	if hit(v) {
		return true
	}
	return slices.ContainsFunc(words(v), hit)
}

func words(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// fold applies Unicode case folding. A Caser keeps state, so one is made per call.
func fold(s string) string {
	return cases.Fold().String(s)
}

func flatten(prefix string, in map[string]any, out map[string]string) {
	for k, v := range in {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		switch val := v.(type) {
		case map[string]any:
			flatten(key, val, out)
		case string:
			out[key] = val
		case float64:
			out[key] = strconv.FormatFloat(val, 'f', -1, 64)
		case bool:
			out[key] = strconv.FormatBool(val)
		}
	}
}
