package provider

import (
	"context"
	"fmt"
	"strings"
)

// Stub is a deterministic in-process Client used by tests and the demo
// binary. It emits one section per template and embeds every placeholder
// token from the masked record, which makes round-trip assertions exact.
type Stub struct {
	// FailDraft, when set, is returned from Draft to simulate an outage.
	FailDraft error
	// DriftToken, when non-empty, is planted into the first section to
	// simulate the provider inventing a token that is not in the map.
	DriftToken string
	// ExtraSections, when positive, appends that many sections beyond the
	// requested templates to simulate the provider drifting off the prompt.
	ExtraSections int
	// Calls counts Draft invocations.
	Calls int
}

func (s *Stub) Draft(ctx context.Context, req Request) ([]Section, error) {
	s.Calls++
	if s.FailDraft != nil {
		return nil, s.FailDraft
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	sections := make([]Section, 0, len(req.Templates)+s.ExtraSections)
	for i, tpl := range req.Templates {
		sections = append(sections, s.section(req, tpl.Title, i == 0))
	}
	for i := 0; i < s.ExtraSections; i++ {
		sections = append(sections, s.section(req, "Addendum", false))
	}
	return sections, nil
}

func (s *Stub) RedraftSection(ctx context.Context, req Request, templateID string) (Section, error) {
	if err := ctx.Err(); err != nil {
		return Section{}, err
	}
	tpl, ok := findTemplate(req.Templates, templateID)
	if !ok {
		return Section{}, ErrUnknownTemplate
	}
	return s.section(req, tpl.Title, false), nil
}

func (s *Stub) section(req Request, title string, first bool) Section {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s and %s, intending to marry on %s, agree as follows. ",
		req.Masked.PartyAName, req.Masked.PartyBName, req.Masked.WeddingDate)
	for _, a := range req.Masked.Assets {
		fmt.Fprintf(&sb, "The %s asset %s, valued at %s, remains with party %s. ",
			a.Category, a.Description, a.Value, a.Owner)
	}
	for _, d := range req.Masked.Debts {
		fmt.Fprintf(&sb, "The %s debt %s of %s is the responsibility of party %s. ",
			d.Category, d.Description, d.Value, d.Owner)
	}
	if first && s.DriftToken != "" {
		fmt.Fprintf(&sb, "See also %s. ", s.DriftToken)
	}
	return Section{Title: title, Body: strings.TrimSpace(sb.String())}
}
