package obs

import "testing"

func TestCanonicalPath(t *testing.T) {
	cases := map[string]string{
		"":                                "/",
		"/metrics":                        "/metrics",
		"/v1/intakes":                     "/v1/intakes",
		"/v1/intakes/01J5ABC":             "/v1/intakes/:id",
		"/v1/intakes/01J5ABC/attempts":    "/v1/intakes/:id/attempts",
		"/v1/attempts/01J5XYZ":            "/v1/attempts/:id",
		"/v1/attempts/01J5XYZ/document":   "/v1/attempts/:id/document",
		"/v1/attempts/01J5XYZ/sections":   "/v1/attempts/:id/sections",
		"/v1/sections/01J5QQQ/comments":   "/v1/sections/:id/comments",
		"/v1/sections/01J5QQQ/regenerate": "/v1/sections/:id/regenerate",
		"/v1/intakes?limit=10":            "/v1/intakes",
	}
	for input, expected := range cases {
		if got := CanonicalPath(input); got != expected {
			t.Fatalf("CanonicalPath(%q)=%q, want %q", input, got, expected)
		}
	}
}
