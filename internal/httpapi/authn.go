package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"pactly.app/internal/auth"
	"pactly.app/internal/intake"
)

const (
	authHeader = "Authorization"
	bearer     = "Bearer "
)

var publicPaths = []string{
	"/v1/auth/register",
	"/v1/auth/token",
	"/v1/auth/refresh",
	"/metrics",
	"/healthz",
	"/readyz",
	"/openapi.yaml",
	"/",
}

func (a *API) withAuth(next http.Handler) http.Handler {
	if a == nil || a.auth == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}

		if isPublicPath(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		token, err := extractBearerToken(r.Header.Get(authHeader))
		if err != nil {
			writeError(w, r, http.StatusUnauthorized, err.Error())
			return
		}

		principal, err := a.auth.AuthenticateToken(r.Context(), token)
		if err != nil {
			switch {
			case errors.Is(err, auth.ErrInvalidToken):
				writeError(w, r, http.StatusUnauthorized, "invalid token")
			default:
				writeError(w, r, http.StatusInternalServerError, "authentication error")
			}
			return
		}

		ctx := auth.ContextWithPrincipal(r.Context(), principal)
		ctx = auth.ContextWithToken(ctx, token)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireIntakeRole resolves the caller's role on an intake and checks it
// against the allowed set. The record owner always passes; an empty allowed
// set accepts any collaborator.
func (a *API) requireIntakeRole(ctx context.Context, rec intake.Record, allowed ...auth.Role) (auth.Role, error) {
	principal, ok := auth.PrincipalFromContext(ctx)
	if !ok {
		return "", auth.ErrUnauthorized
	}
	if rec.OwnerUserID == principal.User.ID {
		return auth.RolePartyA, nil
	}
	role, err := a.auth.RoleForIntake(ctx, principal.User.ID, rec.ID)
	if err != nil {
		return "", err
	}
	if len(allowed) == 0 {
		return role, nil
	}
	for _, want := range allowed {
		if role == want {
			return role, nil
		}
	}
	return "", auth.ErrUnauthorized
}

func extractBearerToken(header string) (string, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", errors.New("missing bearer token")
	}
	if !strings.HasPrefix(strings.ToLower(header), strings.ToLower(bearer)) {
		return "", errors.New("invalid authorization scheme")
	}
	token := strings.TrimSpace(header[len(bearer):])
	if token == "" {
		return "", errors.New("missing bearer token")
	}
	return token, nil
}

func isPublicPath(path string) bool {
	for _, p := range publicPaths {
		if path == p {
			return true
		}
	}
	return false
}
