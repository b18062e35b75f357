// Package draft runs generation attempts: it masks an intake, calls the
// drafting provider, unmasks the returned sections and tracks the attempt
// lifecycle so reviewers can follow progress and leave comments.
package draft

import (
	"context"
	"errors"
	"fmt"
	"time"

	"pactly.app/internal/pii"
)

// State is the lifecycle phase of a generation attempt.
type State string

const (
	StatePending    State = "pending"
	StateMasking    State = "masking"
	StateAwaitingAI State = "awaiting_ai"
	StateUnmasking  State = "unmasking"
	StateCompleted  State = "completed"
	StateFailed     State = "failed"
)

// Terminal reports whether the attempt can make no further progress.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateFailed
}

// CanTransitionTo enforces the forward-only pipeline order. Any non-terminal
// state may move to failed; nothing leaves a terminal state.
func (s State) CanTransitionTo(next State) bool {
	if s.Terminal() {
		return false
	}
	if next == StateFailed {
		return true
	}
	switch s {
	case StatePending:
		return next == StateMasking
	case StateMasking:
		return next == StateAwaitingAI
	case StateAwaitingAI:
		return next == StateUnmasking
	case StateUnmasking:
		return next == StateCompleted
	}
	return false
}

// SectionStatus is the review disposition of one drafted section.
type SectionStatus string

const (
	SectionDrafted  SectionStatus = "drafted"
	SectionApproved SectionStatus = "approved"
	SectionFlagged  SectionStatus = "flagged"
)

func validSectionStatus(s SectionStatus) bool {
	return s == SectionDrafted || s == SectionApproved || s == SectionFlagged
}

// Attempt is one end-to-end generation run over a locked intake.
type Attempt struct {
	ID       string `json:"id"`
	IntakeID string `json:"intake_id"`
	State    State  `json:"state"`
	// Error holds the failure reason when State is failed.
	Error string `json:"error,omitempty"`

	// Substitution report, populated during unmasking.
	Resolved         int      `json:"resolved"`
	Unresolved       int      `json:"unresolved"`
	UnresolvedTokens []string `json:"unresolved_tokens,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Section is one unmasked clause of the drafted agreement.
type Section struct {
	ID         string        `json:"id"`
	AttemptID  string        `json:"attempt_id"`
	TemplateID string        `json:"template_id"`
	Position   int           `json:"position"`
	Title      string        `json:"title"`
	Body       string        `json:"body"`
	Status     SectionStatus `json:"status"`
	// Tokens the provider emitted that had no map entry; they remain
	// verbatim in Body for the reviewer to see.
	Unresolved []string  `json:"unresolved,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Comment is reviewer feedback attached to a section.
type Comment struct {
	ID        string    `json:"id"`
	SectionID string    `json:"section_id"`
	AuthorID  string    `json:"author_id"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

// Document is the assembled agreement for a completed attempt.
type Document struct {
	AttemptID   string     `json:"attempt_id"`
	IntakeID    string     `json:"intake_id"`
	Text        string     `json:"text"`
	Report      pii.Report `json:"report"`
	GeneratedAt time.Time  `json:"generated_at"`
}

var (
	ErrNotFound     = errors.New("draft: not found")
	ErrNotCompleted = errors.New("draft: attempt not completed")
	ErrInvalidInput = errors.New("draft: invalid input")
)

// InvalidTransitionError reports an attempted move the state machine forbids.
type InvalidTransitionError struct {
	From, To State
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("draft: invalid transition %s -> %s", e.From, e.To)
}

// Store persists attempts, their token maps, sections and comments. The token
// map is written before the provider is called; if it cannot be stored the
// attempt fails rather than producing an irreversible draft.
type Store interface {
	CreateAttempt(ctx context.Context, a *Attempt) error
	GetAttempt(ctx context.Context, id string) (Attempt, error)
	UpdateAttempt(ctx context.Context, a *Attempt) error
	ListAttemptsByIntake(ctx context.Context, intakeID string) ([]Attempt, error)

	SavePIIMap(ctx context.Context, attemptID string, masked pii.MaskedRecord, m *pii.Map) error
	PIIMap(ctx context.Context, attemptID string) (pii.MaskedRecord, *pii.Map, error)

	CreateSection(ctx context.Context, s *Section) error
	GetSection(ctx context.Context, id string) (Section, error)
	UpdateSection(ctx context.Context, s *Section) error
	ListSections(ctx context.Context, attemptID string) ([]Section, error)

	CreateComment(ctx context.Context, c *Comment) error
	ListComments(ctx context.Context, sectionID string) ([]Comment, error)
}
