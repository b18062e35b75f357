package httpapi

import (
	"net/http"
	"strings"

	"pactly.app/internal/audit"
	"pactly.app/internal/auth"
	"pactly.app/internal/draft"
)

type commentRequest struct {
	Body string `json:"body"`
}

type statusRequest struct {
	Status string `json:"status"`
}

// handleSectionResource routes /v1/sections/{id}/... review operations.
func (a *API) handleSectionResource(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/v1/sections/")
	id, rest, _ := strings.Cut(path, "/")
	if id == "" {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}

	sec, role, ok := a.authorizeSection(w, r, id)
	if !ok {
		return
	}

	switch rest {
	case "comments":
		switch r.Method {
		case http.MethodGet:
			a.listComments(w, r, sec)
		case http.MethodPost:
			a.addComment(w, r, sec)
		default:
			methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
		}
	case "status":
		if r.Method != http.MethodPut {
			methodNotAllowed(w, r, http.MethodPut)
			return
		}
		a.setSectionStatus(w, r, sec)
	case "regenerate":
		if r.Method != http.MethodPost {
			methodNotAllowed(w, r, http.MethodPost)
			return
		}
		// Reviewers comment and flag; only a party re-runs the provider.
		if role == auth.RoleReviewer {
			writeError(w, r, http.StatusForbidden, "access denied")
			return
		}
		a.regenerateSection(w, r, sec)
	case "":
		if r.Method != http.MethodGet {
			methodNotAllowed(w, r, http.MethodGet)
			return
		}
		writeJSON(w, http.StatusOK, sec)
	default:
		writeError(w, r, http.StatusNotFound, "resource not found")
	}
}

// authorizeSection loads the section and checks collaborator access through
// its attempt's intake.
func (a *API) authorizeSection(w http.ResponseWriter, r *http.Request, id string) (draft.Section, auth.Role, bool) {
	sec, err := a.drafts.GetSection(r.Context(), id)
	if err != nil {
		handleDraftError(w, r, err)
		return draft.Section{}, "", false
	}
	att, err := a.drafts.GetAttempt(r.Context(), sec.AttemptID)
	if err != nil {
		handleDraftError(w, r, err)
		return draft.Section{}, "", false
	}
	rec, err := a.intakes.Get(r.Context(), att.IntakeID)
	if err != nil {
		handleIntakeError(w, r, err)
		return draft.Section{}, "", false
	}
	role, err := a.requireIntakeRole(r.Context(), rec)
	if err != nil {
		handleAuthError(w, r, err)
		return draft.Section{}, "", false
	}
	return sec, role, true
}

func (a *API) listComments(w http.ResponseWriter, r *http.Request, sec draft.Section) {
	comments, err := a.drafts.Comments(r.Context(), sec.ID)
	if err != nil {
		handleDraftError(w, r, err)
		return
	}
	if comments == nil {
		comments = []draft.Comment{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": comments})
}

func (a *API) addComment(w http.ResponseWriter, r *http.Request, sec draft.Section) {
	principal, _ := auth.PrincipalFromContext(r.Context())
	var req commentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	c, err := a.drafts.AddComment(r.Context(), sec.ID, principal.User.ID, req.Body)
	if err != nil {
		handleDraftError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "review.comment_added", map[string]any{
		"section_id": sec.ID,
		"comment_id": c.ID,
	})
	writeJSON(w, http.StatusCreated, c)
}

func (a *API) setSectionStatus(w http.ResponseWriter, r *http.Request, sec draft.Section) {
	var req statusRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	updated, err := a.drafts.SetSectionStatus(r.Context(), sec.ID, draft.SectionStatus(req.Status))
	if err != nil {
		handleDraftError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "review.section_status", map[string]any{
		"section_id": sec.ID,
		"status":     req.Status,
	})
	writeJSON(w, http.StatusOK, updated)
}

func (a *API) regenerateSection(w http.ResponseWriter, r *http.Request, sec draft.Section) {
	fresh, err := a.drafts.Regenerate(r.Context(), sec.ID)
	if err != nil {
		handleDraftError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "review.section_regenerated", map[string]any{
		"section_id": sec.ID,
	})
	writeJSON(w, http.StatusOK, fresh)
}
