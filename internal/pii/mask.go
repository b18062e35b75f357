package pii

import (
	"strings"

	"pactly.app/internal/intake"
)

// MaskedRecord mirrors the intake shape with every PII-bearing field replaced
// by its token. It exists only to be sent to the drafting provider and is
// never stored as source of truth. The account email is dropped entirely:
// the provider has no use for it.
type MaskedRecord struct {
	Jurisdiction string `json:"jurisdiction"`

	PartyAName  string `json:"party_a_name"`
	PartyBName  string `json:"party_b_name"`
	WeddingDate string `json:"wedding_date"`

	Assets []MaskedEntry `json:"assets"`
	Debts  []MaskedEntry `json:"debts"`

	SeparateProperty bool `json:"separate_property"`
	WaiveAlimony     bool `json:"waive_alimony"`

	// Provisions text passes through unmasked. Users are told not to put
	// identifying details here; see MaskedRecordWarnings.
	AdditionalProvisions string `json:"additional_provisions,omitempty"`
}

// MaskedEntry is an asset or debt with tokenized description and value.
// Category and owner enums pass through: they carry no PII and the provider
// needs them for community-property reasoning.
type MaskedEntry struct {
	Category    string `json:"category"`
	Description string `json:"description"`
	Value       string `json:"value"`
	Owner       string `json:"owner"`
}

// scalarRole binds one top-level field to its masking category. Adding a new
// maskable scalar field is one more row here.
type scalarRole struct {
	category Category
	get      func(rec intake.Record) string
	set      func(masked *MaskedRecord, token string)
}

var scalarRoles = []scalarRole{
	{
		category: CategoryName,
		get:      func(r intake.Record) string { return r.PartyAName },
		set:      func(m *MaskedRecord, tok string) { m.PartyAName = tok },
	},
	{
		category: CategoryName,
		get:      func(r intake.Record) string { return r.PartyBName },
		set:      func(m *MaskedRecord, tok string) { m.PartyBName = tok },
	},
	{
		category: CategoryDate,
		get:      func(r intake.Record) string { return r.WeddingDate },
		set:      func(m *MaskedRecord, tok string) { m.WeddingDate = tok },
	},
}

// Mask walks the intake and produces the masked copy plus the reversible
// map. Every occurrence of a PII value gets its own token, even when two
// fields hold the same literal, so repeated values cannot be correlated
// across fields in the provider's view.
func Mask(rec intake.Record) (MaskedRecord, *Map, error) {
	b := newBuilder()
	masked := MaskedRecord{
		Jurisdiction:         rec.Jurisdiction,
		SeparateProperty:     rec.SeparateProperty,
		WaiveAlimony:         rec.WaiveAlimony,
		AdditionalProvisions: rec.AdditionalProvisions,
	}

	for _, role := range scalarRoles {
		tok, err := b.tokenFor(role.category, role.get(rec))
		if err != nil {
			return MaskedRecord{}, nil, err
		}
		role.set(&masked, tok)
	}

	for _, a := range rec.Assets {
		entry, err := b.maskEntry(string(a.Category), a.Description, a.Value, string(a.Owner))
		if err != nil {
			return MaskedRecord{}, nil, err
		}
		masked.Assets = append(masked.Assets, entry)
	}
	for _, d := range rec.Debts {
		entry, err := b.maskEntry(string(d.Category), d.Description, d.Value, string(d.Owner))
		if err != nil {
			return MaskedRecord{}, nil, err
		}
		masked.Debts = append(masked.Debts, entry)
	}

	return masked, b.m, nil
}

func (b *builder) tokenFor(cat Category, original string) (string, error) {
	switch cat {
	case CategoryName:
		return b.name(original)
	case CategoryDate:
		return b.date(original)
	case CategoryDescription:
		return b.description(original)
	default:
		return "", &UnknownCategoryError{Category: cat}
	}
}

func (b *builder) maskEntry(category, description string, value int64, owner string) (MaskedEntry, error) {
	descTok, err := b.description(description)
	if err != nil {
		return MaskedEntry{}, err
	}
	valTok, err := b.value(value)
	if err != nil {
		return MaskedEntry{}, err
	}
	return MaskedEntry{
		Category:    category,
		Description: descTok,
		Value:       valTok,
		Owner:       owner,
	}, nil
}

// UnknownCategoryError reports a field role bound to a category the builder
// cannot mint for.
type UnknownCategoryError struct {
	Category Category
}

func (e *UnknownCategoryError) Error() string {
	return "pii: no token builder for category " + string(e.Category)
}

// ProvisionsLeak reports whether the unmasked provisions text contains either
// party name. The baseline design sends provisions through unmasked; this
// gives operators a signal when that choice is leaking names.
func ProvisionsLeak(rec intake.Record) bool {
	text := strings.ToLower(rec.AdditionalProvisions)
	if strings.TrimSpace(text) == "" {
		return false
	}
	for _, name := range []string{rec.PartyAName, rec.PartyBName} {
		name = strings.ToLower(strings.TrimSpace(name))
		if name != "" && strings.Contains(text, name) {
			return true
		}
	}
	return false
}
