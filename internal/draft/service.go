package draft

import (
	"context"
	"fmt"
	"strings"
	"time"

	"pactly.app/internal/audit"
	"pactly.app/internal/clauses"
	"pactly.app/internal/ids"
	"pactly.app/internal/intake"
	"pactly.app/internal/obs"
	"pactly.app/internal/pii"
	"pactly.app/internal/provider"
	"pactly.app/internal/stream"
)

// Service orchestrates generation attempts. Masking and unmasking happen
// in-process; only the masked record ever reaches the provider client.
type Service struct {
	intakes intake.Service
	store   Store
	client  provider.Client
	events  *stream.Stream
	timeout time.Duration
	now     func() time.Time
}

// ServiceOption customises a Service.
type ServiceOption func(*Service)

// WithTimeout bounds the background pipeline run started by Start.
func WithTimeout(d time.Duration) ServiceOption {
	return func(s *Service) { s.timeout = d }
}

// WithClock overrides the time source for tests.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) { s.now = now }
}

// NewService wires the orchestrator. events may be nil when no subscriber
// surface is running.
func NewService(intakes intake.Service, store Store, client provider.Client, events *stream.Stream, opts ...ServiceOption) *Service {
	s := &Service{
		intakes: intakes,
		store:   store,
		client:  client,
		events:  events,
		timeout: 2 * time.Minute,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start validates and locks the intake, records a pending attempt and runs
// the pipeline in the background. The returned attempt is in state pending;
// progress is observable through GetAttempt and the event stream.
func (s *Service) Start(ctx context.Context, intakeID string) (Attempt, error) {
	rec, err := s.intakes.Get(ctx, intakeID)
	if err != nil {
		return Attempt{}, err
	}
	if err := intake.Validate(rec, clauses.Supported); err != nil {
		return Attempt{}, err
	}
	if err := s.intakes.Lock(ctx, intakeID); err != nil {
		return Attempt{}, err
	}

	att, err := s.createPending(ctx, intakeID)
	if err != nil {
		return Attempt{}, err
	}

	go func() {
		runCtx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()
		_ = s.Run(audit.WithRequestID(runCtx, att.ID), att.ID)
	}()
	return att, nil
}

// Run executes the full pipeline for a pending attempt synchronously. Start
// calls it in a goroutine; tests and the demo binary call it directly.
func (s *Service) Run(ctx context.Context, attemptID string) error {
	att, err := s.store.GetAttempt(ctx, attemptID)
	if err != nil {
		return err
	}
	if att.State != StatePending {
		return &InvalidTransitionError{From: att.State, To: StateMasking}
	}
	rec, err := s.intakes.Get(ctx, att.IntakeID)
	if err != nil {
		return s.fail(ctx, &att, err)
	}

	if err := s.advance(ctx, &att, StateMasking, ""); err != nil {
		return err
	}
	masked, tokenMap, err := pii.Mask(rec)
	if err != nil {
		return s.fail(ctx, &att, err)
	}
	for cat, n := range tokenMap.CategoryCounts() {
		obs.ObserveMaskedTokens(string(cat), n)
	}
	if pii.ProvisionsLeak(rec) {
		obs.ObserveProvisionsLeakWarning()
		_ = audit.LogEvent(ctx, "draft.provisions_leak_warning", map[string]any{
			"attempt_id": att.ID,
			"intake_id":  att.IntakeID,
		})
	}
	// The map must be durable before any masked data leaves the process,
	// otherwise a crash would leave an irreversible draft.
	if err := s.store.SavePIIMap(ctx, att.ID, masked, tokenMap); err != nil {
		return s.fail(ctx, &att, fmt.Errorf("persist token map: %w", err))
	}

	if err := s.advance(ctx, &att, StateAwaitingAI, ""); err != nil {
		return err
	}
	req := provider.Request{
		Jurisdiction: rec.Jurisdiction,
		Masked:       masked,
		Templates:    clauses.For(rec.Jurisdiction),
	}
	drafted, err := s.client.Draft(ctx, req)
	if err != nil {
		return s.fail(ctx, &att, err)
	}
	// Sections map to templates by position; a count mismatch means the
	// provider drifted off the prompt and no alignment can be trusted.
	if len(drafted) != len(req.Templates) {
		return s.fail(ctx, &att, fmt.Errorf("provider returned %d sections for %d templates",
			len(drafted), len(req.Templates)))
	}

	if err := s.advance(ctx, &att, StateUnmasking, ""); err != nil {
		return err
	}
	templates := req.Templates
	var report pii.Report
	for i, ds := range drafted {
		sec, rep := s.unmaskSection(ds, tokenMap)
		sec.AttemptID = att.ID
		sec.Position = i
		sec.TemplateID = templates[i].ID
		report.Resolved += rep.Resolved
		report.Unresolved += rep.Unresolved
		report.UnresolvedTokens = append(report.UnresolvedTokens, rep.UnresolvedTokens...)
		if err := s.store.CreateSection(ctx, &sec); err != nil {
			return s.fail(ctx, &att, err)
		}
	}
	obs.ObserveUnresolvedTokens(report.Unresolved)
	_ = audit.LogEvent(ctx, "draft.unmasked", map[string]any{
		"attempt_id": att.ID,
		"intake_id":  att.IntakeID,
		"sections":   len(drafted),
		"resolved":   report.Resolved,
		"unresolved": report.Unresolved,
	})

	att.Resolved = report.Resolved
	att.Unresolved = report.Unresolved
	att.UnresolvedTokens = dedupeTokens(report.UnresolvedTokens)
	if err := s.advance(ctx, &att, StateCompleted, ""); err != nil {
		return err
	}
	obs.ObserveAttempt("completed")
	return nil
}

// GetAttempt returns the current attempt state.
func (s *Service) GetAttempt(ctx context.Context, id string) (Attempt, error) {
	return s.store.GetAttempt(ctx, id)
}

// ListAttempts returns all attempts for an intake, oldest first.
func (s *Service) ListAttempts(ctx context.Context, intakeID string) ([]Attempt, error) {
	return s.store.ListAttemptsByIntake(ctx, intakeID)
}

// GetSection returns one drafted section.
func (s *Service) GetSection(ctx context.Context, id string) (Section, error) {
	return s.store.GetSection(ctx, id)
}

// Sections lists the drafted sections of an attempt in document order.
func (s *Service) Sections(ctx context.Context, attemptID string) ([]Section, error) {
	if _, err := s.store.GetAttempt(ctx, attemptID); err != nil {
		return nil, err
	}
	return s.store.ListSections(ctx, attemptID)
}

// Document assembles the full agreement text for a completed attempt.
func (s *Service) Document(ctx context.Context, attemptID string) (Document, error) {
	att, err := s.store.GetAttempt(ctx, attemptID)
	if err != nil {
		return Document{}, err
	}
	if att.State != StateCompleted {
		return Document{}, ErrNotCompleted
	}
	sections, err := s.store.ListSections(ctx, attemptID)
	if err != nil {
		return Document{}, err
	}
	var b strings.Builder
	for i, sec := range sections {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "## %s\n\n%s", sec.Title, sec.Body)
	}
	return Document{
		AttemptID: att.ID,
		IntakeID:  att.IntakeID,
		Text:      b.String(),
		Report: pii.Report{
			Resolved:         att.Resolved,
			Unresolved:       att.Unresolved,
			UnresolvedTokens: att.UnresolvedTokens,
		},
		GeneratedAt: att.UpdatedAt,
	}, nil
}

// Regenerate redrafts a single section of a completed attempt, reusing the
// stored masked record and token map so tokens stay consistent.
func (s *Service) Regenerate(ctx context.Context, sectionID string) (Section, error) {
	sec, err := s.store.GetSection(ctx, sectionID)
	if err != nil {
		return Section{}, err
	}
	att, err := s.store.GetAttempt(ctx, sec.AttemptID)
	if err != nil {
		return Section{}, err
	}
	if att.State != StateCompleted {
		return Section{}, ErrNotCompleted
	}
	masked, tokenMap, err := s.store.PIIMap(ctx, att.ID)
	if err != nil {
		return Section{}, err
	}
	req := provider.Request{
		Jurisdiction: masked.Jurisdiction,
		Masked:       masked,
		Templates:    clauses.For(masked.Jurisdiction),
	}
	drafted, err := s.client.RedraftSection(ctx, req, sec.TemplateID)
	if err != nil {
		return Section{}, err
	}
	fresh, rep := s.unmaskSection(drafted, tokenMap)
	sec.Title = fresh.Title
	sec.Body = fresh.Body
	sec.Unresolved = fresh.Unresolved
	sec.Status = SectionDrafted
	sec.UpdatedAt = s.now().UTC()
	if err := s.store.UpdateSection(ctx, &sec); err != nil {
		return Section{}, err
	}
	obs.ObserveUnresolvedTokens(rep.Unresolved)
	_ = audit.LogEvent(ctx, "draft.section_regenerated", map[string]any{
		"attempt_id": att.ID,
		"section_id": sec.ID,
		"unresolved": rep.Unresolved,
	})
	return sec, nil
}

// SetSectionStatus records a reviewer's disposition on a section.
func (s *Service) SetSectionStatus(ctx context.Context, sectionID string, status SectionStatus) (Section, error) {
	if !validSectionStatus(status) {
		return Section{}, ErrInvalidInput
	}
	sec, err := s.store.GetSection(ctx, sectionID)
	if err != nil {
		return Section{}, err
	}
	sec.Status = status
	sec.UpdatedAt = s.now().UTC()
	if err := s.store.UpdateSection(ctx, &sec); err != nil {
		return Section{}, err
	}
	return sec, nil
}

// AddComment attaches reviewer feedback to a section.
func (s *Service) AddComment(ctx context.Context, sectionID, authorID, body string) (Comment, error) {
	if strings.TrimSpace(body) == "" {
		return Comment{}, ErrInvalidInput
	}
	c := Comment{
		ID:        ids.New(),
		SectionID: sectionID,
		AuthorID:  authorID,
		Body:      body,
		CreatedAt: s.now().UTC(),
	}
	if err := s.store.CreateComment(ctx, &c); err != nil {
		return Comment{}, err
	}
	return c, nil
}

// Comments lists reviewer feedback on a section, oldest first.
func (s *Service) Comments(ctx context.Context, sectionID string) ([]Comment, error) {
	if _, err := s.store.GetSection(ctx, sectionID); err != nil {
		return nil, err
	}
	return s.store.ListComments(ctx, sectionID)
}

func (s *Service) createPending(ctx context.Context, intakeID string) (Attempt, error) {
	now := s.now().UTC()
	att := Attempt{
		ID:        ids.New(),
		IntakeID:  intakeID,
		State:     StatePending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.CreateAttempt(ctx, &att); err != nil {
		return Attempt{}, err
	}
	s.publish(att, "")
	_ = audit.LogEvent(ctx, "draft.attempt_created", map[string]any{
		"attempt_id": att.ID,
		"intake_id":  intakeID,
	})
	return att, nil
}

func (s *Service) advance(ctx context.Context, att *Attempt, next State, detail string) error {
	if !att.State.CanTransitionTo(next) {
		return &InvalidTransitionError{From: att.State, To: next}
	}
	att.State = next
	att.UpdatedAt = s.now().UTC()
	if err := s.store.UpdateAttempt(ctx, att); err != nil {
		return err
	}
	s.publish(*att, detail)
	return nil
}

func (s *Service) fail(ctx context.Context, att *Attempt, cause error) error {
	att.Error = cause.Error()
	if err := s.advance(ctx, att, StateFailed, cause.Error()); err != nil {
		return err
	}
	obs.ObserveAttempt("failed")
	_ = audit.LogEvent(ctx, "draft.attempt_failed", map[string]any{
		"attempt_id": att.ID,
		"intake_id":  att.IntakeID,
		"error":      cause.Error(),
	})
	return cause
}

func (s *Service) publish(att Attempt, detail string) {
	if s.events == nil {
		return
	}
	s.events.Publish(stream.AttemptEvent{
		AttemptID:  att.ID,
		IntakeID:   att.IntakeID,
		State:      string(att.State),
		Detail:     detail,
		Unresolved: att.Unresolved,
		Timestamp:  att.UpdatedAt,
	})
}

func (s *Service) unmaskSection(ds provider.Section, m *pii.Map) (Section, pii.Report) {
	title, titleRep := pii.Unmask(ds.Title, m)
	body, bodyRep := pii.Unmask(ds.Body, m)
	rep := pii.Report{
		Resolved:         titleRep.Resolved + bodyRep.Resolved,
		Unresolved:       titleRep.Unresolved + bodyRep.Unresolved,
		UnresolvedTokens: append(titleRep.UnresolvedTokens, bodyRep.UnresolvedTokens...),
	}
	now := s.now().UTC()
	return Section{
		ID:         ids.New(),
		Title:      title,
		Body:       body,
		Status:     SectionDrafted,
		Unresolved: rep.UnresolvedTokens,
		CreatedAt:  now,
		UpdatedAt:  now,
	}, rep
}

func dedupeTokens(tokens []string) []string {
	if len(tokens) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(tokens))
	var out []string
	for _, t := range tokens {
		if !seen[t] {
			seen[t] = true
			out = append(out, t)
		}
	}
	return out
}
