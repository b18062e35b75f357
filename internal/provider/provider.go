// Package provider is the boundary to the external drafting model. Callers
// hand it a masked record; PII never crosses this boundary in the clear.
package provider

import (
	"context"
	"errors"

	"pactly.app/internal/clauses"
	"pactly.app/internal/pii"
)

// Request carries everything the provider needs for one drafting call.
type Request struct {
	Jurisdiction string
	Masked       pii.MaskedRecord
	Templates    []clauses.Template
}

// Section is one drafted clause with tokens still embedded.
type Section struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

// Client drafts agreement sections from a masked record. Implementations do
// not retry; the attempt fails as a whole on error and the caller decides
// whether to resubmit with the same masked record and map.
type Client interface {
	// Draft generates the full ordered set of sections.
	Draft(ctx context.Context, req Request) ([]Section, error)
	// RedraftSection regenerates a single section by template ID, reusing
	// the same masked record so tokens stay consistent.
	RedraftSection(ctx context.Context, req Request, templateID string) (Section, error)
}

var (
	ErrUnavailable       = errors.New("provider: drafting service unavailable")
	ErrMalformedResponse = errors.New("provider: malformed response")
	ErrUnknownTemplate   = errors.New("provider: unknown template")
)
