package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"pactly.app/internal/draft"
)

// handleAttemptResource routes /v1/attempts/{id} and its subresources.
func (a *API) handleAttemptResource(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/v1/attempts/")
	id, rest, _ := strings.Cut(path, "/")
	if id == "" {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}

	att, err := a.drafts.GetAttempt(r.Context(), id)
	if err != nil {
		handleDraftError(w, r, err)
		return
	}
	if !a.authorizeAttempt(w, r, att) {
		return
	}

	switch rest {
	case "":
		writeJSON(w, http.StatusOK, att)
	case "document":
		doc, err := a.drafts.Document(r.Context(), att.ID)
		if err != nil {
			handleDraftError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, doc)
	case "sections":
		sections, err := a.drafts.Sections(r.Context(), att.ID)
		if err != nil {
			handleDraftError(w, r, err)
			return
		}
		if sections == nil {
			sections = []draft.Section{}
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": sections})
	default:
		writeError(w, r, http.StatusNotFound, "resource not found")
	}
}

// authorizeAttempt checks that the caller collaborates on the attempt's
// intake. It writes the error response itself and reports success.
func (a *API) authorizeAttempt(w http.ResponseWriter, r *http.Request, att draft.Attempt) bool {
	rec, err := a.intakes.Get(r.Context(), att.IntakeID)
	if err != nil {
		handleIntakeError(w, r, err)
		return false
	}
	if _, err := a.requireIntakeRole(r.Context(), rec); err != nil {
		handleAuthError(w, r, err)
		return false
	}
	return true
}

func handleDraftError(w http.ResponseWriter, r *http.Request, err error) {
	var ite *draft.InvalidTransitionError
	switch {
	case errors.Is(err, draft.ErrNotFound):
		writeError(w, r, http.StatusNotFound, err.Error())
	case errors.Is(err, draft.ErrNotCompleted):
		writeError(w, r, http.StatusConflict, err.Error())
	case errors.Is(err, draft.ErrInvalidInput):
		writeError(w, r, http.StatusBadRequest, err.Error())
	case errors.As(err, &ite):
		writeError(w, r, http.StatusConflict, err.Error())
	default:
		writeError(w, r, http.StatusInternalServerError, "internal error")
	}
}
