package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"pactly.app/internal/audit"
	"pactly.app/internal/auth"
	"pactly.app/internal/clauses"
	"pactly.app/internal/draft"
	"pactly.app/internal/intake"
)

var jurisdictionKnown = clauses.Supported

type intakeRequest struct {
	Email        string `json:"email"`
	Jurisdiction string `json:"jurisdiction"`

	PartyAName  string `json:"party_a_name"`
	PartyBName  string `json:"party_b_name"`
	WeddingDate string `json:"wedding_date"`

	Assets []intake.Asset `json:"assets"`
	Debts  []intake.Debt  `json:"debts"`

	SeparateProperty     bool   `json:"separate_property"`
	WaiveAlimony         bool   `json:"waive_alimony"`
	AdditionalProvisions string `json:"additional_provisions"`
}

type grantRequest struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
}

func (a *API) handleIntakesCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		a.createIntake(w, r)
	case http.MethodGet:
		a.listIntakes(w, r)
	default:
		methodNotAllowed(w, r, http.MethodPost, http.MethodGet)
	}
}

// handleIntakeResource routes /v1/intakes/{id} and its subresources.
func (a *API) handleIntakeResource(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/v1/intakes/")
	if path == "" {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	id, rest, _ := strings.Cut(path, "/")
	if id == "" {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}

	switch rest {
	case "":
		switch r.Method {
		case http.MethodGet:
			a.getIntake(w, r, id)
		case http.MethodPut:
			a.updateIntake(w, r, id)
		default:
			methodNotAllowed(w, r, http.MethodGet, http.MethodPut)
		}
	case "collaborators":
		switch r.Method {
		case http.MethodGet:
			a.listCollaborators(w, r, id)
		case http.MethodPost:
			a.grantCollaborator(w, r, id)
		default:
			methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
		}
	case "attempts":
		switch r.Method {
		case http.MethodPost:
			a.startAttempt(w, r, id)
		case http.MethodGet:
			a.listAttempts(w, r, id)
		default:
			methodNotAllowed(w, r, http.MethodPost, http.MethodGet)
		}
	default:
		writeError(w, r, http.StatusNotFound, "resource not found")
	}
}

func (a *API) createIntake(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "authentication required")
		return
	}
	var req intakeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	rec := req.toRecord()
	rec.OwnerUserID = principal.User.ID
	if !writeValidation(w, r, rec) {
		return
	}
	created, err := a.intakes.Create(r.Context(), rec)
	if err != nil {
		handleIntakeError(w, r, err)
		return
	}
	// The submitting user is party A by construction.
	if err := a.auth.GrantAccess(r.Context(), auth.Grant{
		IntakeID: created.ID,
		UserID:   principal.User.ID,
		Role:     auth.RolePartyA,
	}); err != nil {
		writeError(w, r, http.StatusInternalServerError, "internal error")
		return
	}
	_ = audit.LogEvent(r.Context(), "intake.created", map[string]any{
		"intake_id":    created.ID,
		"jurisdiction": created.Jurisdiction,
	})
	w.Header().Set("Location", "/v1/intakes/"+created.ID)
	writeJSON(w, http.StatusCreated, created)
}

func (a *API) listIntakes(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "authentication required")
		return
	}
	recs, err := a.intakes.ListByOwner(r.Context(), principal.User.ID)
	if err != nil {
		handleIntakeError(w, r, err)
		return
	}
	if recs == nil {
		recs = []intake.Record{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"items": recs,
		"as_of": time.Now().UTC(),
	})
}

func (a *API) getIntake(w http.ResponseWriter, r *http.Request, id string) {
	rec, err := a.intakes.Get(r.Context(), id)
	if err != nil {
		handleIntakeError(w, r, err)
		return
	}
	if _, err := a.requireIntakeRole(r.Context(), rec); err != nil {
		handleAuthError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (a *API) updateIntake(w http.ResponseWriter, r *http.Request, id string) {
	rec, err := a.intakes.Get(r.Context(), id)
	if err != nil {
		handleIntakeError(w, r, err)
		return
	}
	// Reviewers read, parties write.
	if _, err := a.requireIntakeRole(r.Context(), rec, auth.RolePartyA, auth.RolePartyB); err != nil {
		handleAuthError(w, r, err)
		return
	}
	var req intakeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	next := req.toRecord()
	next.ID = rec.ID
	if !writeValidation(w, r, next) {
		return
	}
	updated, err := a.intakes.Update(r.Context(), next)
	if err != nil {
		handleIntakeError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "intake.updated", map[string]any{
		"intake_id": updated.ID,
	})
	writeJSON(w, http.StatusOK, updated)
}

func (a *API) listCollaborators(w http.ResponseWriter, r *http.Request, id string) {
	rec, err := a.intakes.Get(r.Context(), id)
	if err != nil {
		handleIntakeError(w, r, err)
		return
	}
	if _, err := a.requireIntakeRole(r.Context(), rec); err != nil {
		handleAuthError(w, r, err)
		return
	}
	grants, err := a.auth.Collaborators(r.Context(), id)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "internal error")
		return
	}
	if grants == nil {
		grants = []auth.Grant{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": grants})
}

func (a *API) grantCollaborator(w http.ResponseWriter, r *http.Request, id string) {
	rec, err := a.intakes.Get(r.Context(), id)
	if err != nil {
		handleIntakeError(w, r, err)
		return
	}
	// Only parties may share the intake.
	if _, err := a.requireIntakeRole(r.Context(), rec, auth.RolePartyA, auth.RolePartyB); err != nil {
		handleAuthError(w, r, err)
		return
	}
	var req grantRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	grant := auth.Grant{IntakeID: id, UserID: strings.TrimSpace(req.UserID), Role: auth.Role(req.Role)}
	if err := a.auth.GrantAccess(r.Context(), grant); err != nil {
		if errors.Is(err, auth.ErrInvalidInput) {
			writeError(w, r, http.StatusBadRequest, "user_id and a valid role are required")
			return
		}
		writeError(w, r, http.StatusInternalServerError, "internal error")
		return
	}
	_ = audit.LogEvent(r.Context(), "intake.collaborator_granted", map[string]any{
		"intake_id": id,
		"user_id":   grant.UserID,
		"role":      string(grant.Role),
	})
	writeJSON(w, http.StatusCreated, grant)
}

func (a *API) startAttempt(w http.ResponseWriter, r *http.Request, id string) {
	rec, err := a.intakes.Get(r.Context(), id)
	if err != nil {
		handleIntakeError(w, r, err)
		return
	}
	if _, err := a.requireIntakeRole(r.Context(), rec, auth.RolePartyA, auth.RolePartyB); err != nil {
		handleAuthError(w, r, err)
		return
	}
	att, err := a.drafts.Start(r.Context(), id)
	if err != nil {
		var verrs intake.ValidationErrors
		if errors.As(err, &verrs) {
			writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
				"error":  "intake is not ready for generation",
				"fields": verrs,
			})
			return
		}
		handleIntakeError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "draft.attempt_requested", map[string]any{
		"intake_id":  id,
		"attempt_id": att.ID,
	})
	w.Header().Set("Location", "/v1/attempts/"+att.ID)
	writeJSON(w, http.StatusAccepted, att)
}

func (a *API) listAttempts(w http.ResponseWriter, r *http.Request, id string) {
	rec, err := a.intakes.Get(r.Context(), id)
	if err != nil {
		handleIntakeError(w, r, err)
		return
	}
	if _, err := a.requireIntakeRole(r.Context(), rec); err != nil {
		handleAuthError(w, r, err)
		return
	}
	attempts, err := a.drafts.ListAttempts(r.Context(), id)
	if err != nil {
		handleDraftError(w, r, err)
		return
	}
	if attempts == nil {
		attempts = []draft.Attempt{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": attempts})
}

func (req intakeRequest) toRecord() intake.Record {
	return intake.Record{
		Email:                strings.TrimSpace(req.Email),
		Jurisdiction:         strings.ToUpper(strings.TrimSpace(req.Jurisdiction)),
		PartyAName:           strings.TrimSpace(req.PartyAName),
		PartyBName:           strings.TrimSpace(req.PartyBName),
		WeddingDate:          strings.TrimSpace(req.WeddingDate),
		Assets:               req.Assets,
		Debts:                req.Debts,
		SeparateProperty:     req.SeparateProperty,
		WaiveAlimony:         req.WaiveAlimony,
		AdditionalProvisions: req.AdditionalProvisions,
	}
}

// writeValidation reports field-level errors and returns false when the
// record is invalid.
func writeValidation(w http.ResponseWriter, r *http.Request, rec intake.Record) bool {
	err := intake.Validate(rec, jurisdictionKnown)
	if err == nil {
		return true
	}
	var verrs intake.ValidationErrors
	if errors.As(err, &verrs) {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"error":  "invalid intake",
			"fields": verrs,
		})
		return false
	}
	writeError(w, r, http.StatusBadRequest, err.Error())
	return false
}

func handleIntakeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, intake.ErrNotFound):
		writeError(w, r, http.StatusNotFound, err.Error())
	case errors.Is(err, intake.ErrLocked):
		writeError(w, r, http.StatusConflict, err.Error())
	default:
		writeError(w, r, http.StatusInternalServerError, "internal error")
	}
}

func handleAuthError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, auth.ErrUnauthorized) {
		writeError(w, r, http.StatusForbidden, "access denied")
		return
	}
	writeError(w, r, http.StatusInternalServerError, "internal error")
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	reader := http.MaxBytesReader(w, r.Body, 1<<20)
	defer reader.Close()
	dec := json.NewDecoder(reader)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is required")
		}
		return err
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		if err == nil {
			return errors.New("unexpected data after JSON body")
		}
		return err
	}
	return nil
}

func writeError(w http.ResponseWriter, r *http.Request, code int, msg string) {
	payload := map[string]any{
		"error": msg,
	}
	if rid := RequestIDFromContext(r.Context()); rid != "" {
		payload["request_id"] = rid
	}
	writeJSON(w, code, payload)
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request, allowed ...string) {
	w.Header().Set("Allow", strings.Join(allowed, ", "))
	writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
}
