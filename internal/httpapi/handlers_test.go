package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"pactly.app/internal/auth"
	"pactly.app/internal/draft"
	"pactly.app/internal/intake"
	"pactly.app/internal/provider"
	"pactly.app/internal/stream"
)

type apiClient struct {
	baseURL string
	client  *http.Client
	t       *testing.T
	stub    *provider.Stub
}

func newTestAPI(t *testing.T) *apiClient {
	t.Helper()

	authSvc, err := auth.NewService(auth.NewMemStore(), "test-secret")
	if err != nil {
		t.Fatal(err)
	}
	intakes := intake.NewInMemory()
	stub := &provider.Stub{}
	events := stream.New()
	drafts := draft.NewService(intakes, draft.NewInMemory(), stub, events)

	api := New(ReadyProbe{}, "test", intakes, drafts, authSvc, events,
		WithRateLimit(1000, 1000))

	srv := httptest.NewServer(api.Handler())
	t.Cleanup(srv.Close)

	return &apiClient{
		baseURL: srv.URL,
		client:  srv.Client(),
		t:       t,
		stub:    stub,
	}
}

func (c *apiClient) do(method, path string, body any, headers map[string]string) *http.Response {
	c.t.Helper()
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			c.t.Fatalf("marshal body: %v", err)
		}
	}
	req, err := http.NewRequest(method, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		c.t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		c.t.Fatalf("do request: %v", err)
	}
	return resp
}

func (c *apiClient) post(path string, body any, headers map[string]string) *http.Response {
	return c.do(http.MethodPost, path, body, headers)
}

func (c *apiClient) put(path string, body any, headers map[string]string) *http.Response {
	return c.do(http.MethodPut, path, body, headers)
}

func (c *apiClient) get(path string, params url.Values, headers map[string]string) *http.Response {
	c.t.Helper()
	u, err := url.Parse(c.baseURL + path)
	if err != nil {
		c.t.Fatalf("parse url: %v", err)
	}
	if params != nil {
		u.RawQuery = params.Encode()
	}
	req, err := http.NewRequest(http.MethodGet, u.String(), nil)
	if err != nil {
		c.t.Fatalf("new request: %v", err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		c.t.Fatalf("get request: %v", err)
	}
	return resp
}

// signUp registers an account and returns an auth header with its token.
func (c *apiClient) signUp(email string) map[string]string {
	c.t.Helper()
	resp := c.post("/v1/auth/register", map[string]any{
		"email":    email,
		"password": "correct-horse",
	}, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		c.t.Fatalf("unexpected register status: %d", resp.StatusCode)
	}
	resp = c.post("/v1/auth/token", map[string]any{
		"email":    email,
		"password": "correct-horse",
	}, nil)
	if resp.StatusCode != http.StatusOK {
		c.t.Fatalf("unexpected token status: %d", resp.StatusCode)
	}
	payload := decode[tokenResponse](c.t, resp)
	if payload.AccessToken == "" {
		c.t.Fatal("empty token issued")
	}
	return map[string]string{"Authorization": "Bearer " + payload.AccessToken}
}

func sampleIntakePayload() map[string]any {
	return map[string]any{
		"email":        "couple@example.com",
		"jurisdiction": "CA",
		"party_a_name": "Jennifer Martinez",
		"party_b_name": "Michael Chen",
		"wedding_date": "2026-09-12",
		"assets": []map[string]any{
			{"category": "real_estate", "description": "Primary residence", "value": 850000, "owner": "A"},
		},
		"debts": []map[string]any{
			{"category": "student_loan", "description": "Graduate school loans", "value": 45000, "owner": "B"},
		},
		"separate_property": true,
	}
}

// waitForTerminal polls an attempt until it reaches a terminal state.
func (c *apiClient) waitForTerminal(attemptID string, headers map[string]string) map[string]any {
	c.t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		resp := c.get("/v1/attempts/"+attemptID, nil, headers)
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			c.t.Fatalf("unexpected attempt status: %d", resp.StatusCode)
		}
		att := decode[map[string]any](c.t, resp)
		state, _ := att["state"].(string)
		if state == "completed" || state == "failed" {
			return att
		}
		time.Sleep(10 * time.Millisecond)
	}
	c.t.Fatal("attempt did not reach a terminal state")
	return nil
}

func decode[T any](t *testing.T, r *http.Response) T {
	t.Helper()
	defer r.Body.Close()
	var v T
	if err := json.NewDecoder(r.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return v
}

func TestFullDraftFlow(t *testing.T) {
	api := newTestAPI(t)
	authHeader := api.signUp("a@example.com")

	// Create intake.
	resp := api.post("/v1/intakes", sampleIntakePayload(), authHeader)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("unexpected create status: %d", resp.StatusCode)
	}
	rec := decode[map[string]any](t, resp)
	intakeID := rec["id"].(string)

	// Start generation.
	resp = api.post("/v1/intakes/"+intakeID+"/attempts", nil, authHeader)
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("unexpected start status: %d", resp.StatusCode)
	}
	att := decode[map[string]any](t, resp)
	attemptID := att["id"].(string)
	if att["state"].(string) != "pending" {
		t.Fatalf("expected pending attempt, got %v", att["state"])
	}

	final := api.waitForTerminal(attemptID, authHeader)
	if final["state"].(string) != "completed" {
		t.Fatalf("attempt failed: %v", final["error"])
	}
	if final["unresolved"].(float64) != 0 {
		t.Fatalf("expected 0 unresolved tokens, got %v", final["unresolved"])
	}

	// Document is unmasked.
	resp = api.get("/v1/attempts/"+attemptID+"/document", nil, authHeader)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected document status: %d", resp.StatusCode)
	}
	doc := decode[map[string]any](t, resp)
	text := doc["text"].(string)
	if !strings.Contains(text, "Jennifer Martinez") || !strings.Contains(text, "850000") {
		t.Fatal("document must carry original values")
	}
	if strings.Contains(text, "PARTY_") || strings.Contains(text, "VALUE_") {
		t.Fatal("document leaks placeholder tokens")
	}

	// Sections are listed in order.
	resp = api.get("/v1/attempts/"+attemptID+"/sections", nil, authHeader)
	sections := decode[map[string]any](t, resp)
	items := sections["items"].([]any)
	if len(items) == 0 {
		t.Fatal("expected drafted sections")
	}
	first := items[0].(map[string]any)
	sectionID := first["id"].(string)

	// Review: comment, approve, regenerate.
	resp = api.post("/v1/sections/"+sectionID+"/comments",
		map[string]any{"body": "Looks right"}, authHeader)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("unexpected comment status: %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp = api.put("/v1/sections/"+sectionID+"/status",
		map[string]any{"status": "approved"}, authHeader)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected status-change status: %d", resp.StatusCode)
	}
	updated := decode[map[string]any](t, resp)
	if updated["status"].(string) != "approved" {
		t.Fatalf("status not applied: %v", updated["status"])
	}

	resp = api.post("/v1/sections/"+sectionID+"/regenerate", nil, authHeader)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected regenerate status: %d", resp.StatusCode)
	}
	fresh := decode[map[string]any](t, resp)
	if fresh["status"].(string) != "drafted" {
		t.Fatalf("regenerate must reset status, got %v", fresh["status"])
	}
	if strings.Contains(fresh["body"].(string), "PARTY_") {
		t.Fatal("regenerated section leaks tokens")
	}
}

func TestIntakeLockedAfterStart(t *testing.T) {
	api := newTestAPI(t)
	authHeader := api.signUp("lock@example.com")

	resp := api.post("/v1/intakes", sampleIntakePayload(), authHeader)
	rec := decode[map[string]any](t, resp)
	intakeID := rec["id"].(string)

	resp = api.post("/v1/intakes/"+intakeID+"/attempts", nil, authHeader)
	resp.Body.Close()
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("unexpected start status: %d", resp.StatusCode)
	}

	resp = api.put("/v1/intakes/"+intakeID, sampleIntakePayload(), authHeader)
	resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409 for locked intake, got %d", resp.StatusCode)
	}
}

func TestIntakeValidationErrors(t *testing.T) {
	api := newTestAPI(t)
	authHeader := api.signUp("v@example.com")

	payload := sampleIntakePayload()
	payload["jurisdiction"] = "ZZ"
	payload["wedding_date"] = "next summer"

	resp := api.post("/v1/intakes", payload, authHeader)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
	body := decode[map[string]any](t, resp)
	fields := body["fields"].([]any)
	if len(fields) != 2 {
		t.Fatalf("expected 2 field errors, got %v", fields)
	}
}

func TestIntakeAccessControl(t *testing.T) {
	api := newTestAPI(t)
	ownerHeader := api.signUp("owner@example.com")
	otherHeader := api.signUp("other@example.com")

	resp := api.post("/v1/intakes", sampleIntakePayload(), ownerHeader)
	rec := decode[map[string]any](t, resp)
	intakeID := rec["id"].(string)

	// A stranger sees 403, not 404.
	resp = api.get("/v1/intakes/"+intakeID, nil, otherHeader)
	resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", resp.StatusCode)
	}

	// Identify the other user and grant reviewer access.
	tokenResp := api.post("/v1/auth/token", map[string]any{
		"email":    "other@example.com",
		"password": "correct-horse",
	}, nil)
	other := decode[tokenResponse](t, tokenResp)

	resp = api.post("/v1/intakes/"+intakeID+"/collaborators", map[string]any{
		"user_id": other.UserID,
		"role":    "reviewer",
	}, ownerHeader)
	resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("unexpected grant status: %d", resp.StatusCode)
	}

	// Reviewer reads but cannot update.
	resp = api.get("/v1/intakes/"+intakeID, nil, otherHeader)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected reviewer read access, got %d", resp.StatusCode)
	}
	resp = api.put("/v1/intakes/"+intakeID, sampleIntakePayload(), otherHeader)
	resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403 for reviewer update, got %d", resp.StatusCode)
	}
}

func TestAPIEnforcesAuth(t *testing.T) {
	api := newTestAPI(t)

	resp := api.post("/v1/intakes", sampleIntakePayload(), nil)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
	var errBody map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&errBody); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	if errBody["error"] == "" {
		t.Fatal("expected error message")
	}
}

func TestRefreshRotationOverHTTP(t *testing.T) {
	api := newTestAPI(t)
	api.signUp("r@example.com")

	resp := api.post("/v1/auth/token", map[string]any{
		"email":    "r@example.com",
		"password": "correct-horse",
	}, nil)
	pair := decode[tokenResponse](t, resp)

	resp = api.post("/v1/auth/refresh", map[string]any{
		"refresh_token": pair.RefreshToken,
	}, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected refresh status: %d", resp.StatusCode)
	}
	next := decode[tokenResponse](t, resp)
	if next.RefreshToken == pair.RefreshToken {
		t.Fatal("refresh token must rotate")
	}

	// Reuse of the old token is rejected.
	resp = api.post("/v1/auth/refresh", map[string]any{
		"refresh_token": pair.RefreshToken,
	}, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 for reused refresh token, got %d", resp.StatusCode)
	}
}

func TestProviderFailureSurfacesAsFailedAttempt(t *testing.T) {
	api := newTestAPI(t)
	authHeader := api.signUp("fail@example.com")
	api.stub.FailDraft = provider.ErrUnavailable

	resp := api.post("/v1/intakes", sampleIntakePayload(), authHeader)
	rec := decode[map[string]any](t, resp)
	intakeID := rec["id"].(string)

	resp = api.post("/v1/intakes/"+intakeID+"/attempts", nil, authHeader)
	att := decode[map[string]any](t, resp)

	final := api.waitForTerminal(att["id"].(string), authHeader)
	if final["state"].(string) != "failed" {
		t.Fatalf("expected failed attempt, got %v", final["state"])
	}
	if final["error"].(string) == "" {
		t.Fatal("failed attempt must expose its error")
	}

	// Document for a failed attempt conflicts.
	resp = api.get("/v1/attempts/"+att["id"].(string)+"/document", nil, authHeader)
	resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409, got %d", resp.StatusCode)
	}
}

func TestStreamAccessControl(t *testing.T) {
	api := newTestAPI(t)
	ownerHeader := api.signUp("stream-owner@example.com")
	otherHeader := api.signUp("stream-other@example.com")

	resp := api.post("/v1/intakes", sampleIntakePayload(), ownerHeader)
	rec := decode[map[string]any](t, resp)
	intakeID := rec["id"].(string)

	resp = api.post("/v1/intakes/"+intakeID+"/attempts", nil, ownerHeader)
	att := decode[map[string]any](t, resp)
	attemptID := att["id"].(string)
	api.waitForTerminal(attemptID, ownerHeader)

	// The feed refuses to open without an attempt filter.
	resp = api.get("/v1/stream", nil, ownerHeader)
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 without attempt_id, got %d", resp.StatusCode)
	}

	// A stranger with a valid token cannot watch someone else's attempt.
	resp = api.get("/v1/stream", url.Values{"attempt_id": {attemptID}}, otherHeader)
	resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403 for ungranted subscriber, got %d", resp.StatusCode)
	}

	resp = api.get("/v1/stream", url.Values{"attempt_id": {"missing"}}, ownerHeader)
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown attempt, got %d", resp.StatusCode)
	}

	resp = api.get("/v1/stream", url.Values{"attempt_id": {attemptID}}, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 without a token, got %d", resp.StatusCode)
	}
}

func TestHealthAndInfo(t *testing.T) {
	api := newTestAPI(t)

	resp := api.get("/healthz", nil, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected healthz status: %d", resp.StatusCode)
	}
	body := decode[map[string]any](t, resp)
	if body["service"] != "pactly-api" {
		t.Fatalf("unexpected service name: %v", body["service"])
	}

	resp = api.get("/v1/info", nil, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("info requires auth, got %d", resp.StatusCode)
	}
}
