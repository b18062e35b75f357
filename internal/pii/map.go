package pii

import (
	"strconv"
)

// Map is the reversible token->value mapping produced by one masking pass.
// It is created fresh per generation attempt, persisted before the provider
// call, and never mutated afterwards. Clause-level regeneration must reuse
// the stored map so tokens stay consistent across the whole document.
type Map struct {
	Names        map[string]string `json:"names"`
	Values       map[string]int64  `json:"values"`
	Descriptions map[string]string `json:"descriptions"`
	Dates        map[string]string `json:"dates"`
}

// NewMap returns an empty map with all four categories allocated.
func NewMap() *Map {
	return &Map{
		Names:        make(map[string]string),
		Values:       make(map[string]int64),
		Descriptions: make(map[string]string),
		Dates:        make(map[string]string),
	}
}

// Len returns the total number of tokens across all categories.
func (m *Map) Len() int {
	return len(m.Names) + len(m.Values) + len(m.Descriptions) + len(m.Dates)
}

// CategoryCounts reports tokens per category, for metrics.
func (m *Map) CategoryCounts() map[Category]int {
	return map[Category]int{
		CategoryName:        len(m.Names),
		CategoryValue:       len(m.Values),
		CategoryDescription: len(m.Descriptions),
		CategoryDate:        len(m.Dates),
	}
}

// Flatten merges all categories into one token->string mapping. Monetary
// values render as plain decimal; dates keep the form they were received in.
func (m *Map) Flatten() map[string]string {
	flat := make(map[string]string, m.Len())
	for tok, v := range m.Names {
		flat[tok] = v
	}
	for tok, v := range m.Values {
		flat[tok] = strconv.FormatInt(v, 10)
	}
	for tok, v := range m.Descriptions {
		flat[tok] = v
	}
	for tok, v := range m.Dates {
		flat[tok] = v
	}
	return flat
}

// builder mints tokens during one masking pass, enforcing whole-map
// uniqueness. Prefixes already partition categories; the seen set guards the
// residual within-category collision by regenerating instead of failing.
type builder struct {
	m    *Map
	seen map[string]struct{}
}

func newBuilder() *builder {
	return &builder{m: NewMap(), seen: make(map[string]struct{})}
}

func (b *builder) token(cat Category) (string, error) {
	for {
		tok, err := NewToken(cat)
		if err != nil {
			return "", err
		}
		if _, dup := b.seen[tok]; dup {
			continue
		}
		b.seen[tok] = struct{}{}
		return tok, nil
	}
}

func (b *builder) name(v string) (string, error) {
	tok, err := b.token(CategoryName)
	if err != nil {
		return "", err
	}
	b.m.Names[tok] = v
	return tok, nil
}

func (b *builder) value(v int64) (string, error) {
	tok, err := b.token(CategoryValue)
	if err != nil {
		return "", err
	}
	b.m.Values[tok] = v
	return tok, nil
}

func (b *builder) description(v string) (string, error) {
	tok, err := b.token(CategoryDescription)
	if err != nil {
		return "", err
	}
	b.m.Descriptions[tok] = v
	return tok, nil
}

func (b *builder) date(v string) (string, error) {
	tok, err := b.token(CategoryDate)
	if err != nil {
		return "", err
	}
	b.m.Dates[tok] = v
	return tok, nil
}
