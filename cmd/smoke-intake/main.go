// smoke-intake exercises a running API end to end: register, create an
// intake, start a generation attempt, wait for it to complete and fetch the
// assembled document. Run it against a server started with the stub provider.
package main

import (
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"os"
	"time"

	"github.com/go-resty/resty/v2"
)

func main() {
	baseURL := os.Getenv("PACTLY_API_URL")
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}

	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(10 * time.Second)

	email := fmt.Sprintf("smoke-%d@example.com", rand.Int())
	password := "smoke-test-passw0rd"

	resp, err := client.R().
		SetBody(map[string]string{"email": email, "password": password}).
		Post("/v1/auth/register")
	if err != nil {
		log.Fatalf("register: %v", err)
	}
	if resp.StatusCode() != http.StatusCreated {
		log.Fatalf("register: status %d: %s", resp.StatusCode(), resp.Body())
	}

	var token struct {
		AccessToken string `json:"access_token"`
	}
	resp, err = client.R().
		SetBody(map[string]string{"email": email, "password": password}).
		SetResult(&token).
		Post("/v1/auth/token")
	if err != nil {
		log.Fatalf("token: %v", err)
	}
	if resp.StatusCode() != http.StatusOK || token.AccessToken == "" {
		log.Fatalf("token: status %d: %s", resp.StatusCode(), resp.Body())
	}
	client.SetAuthToken(token.AccessToken)

	var created struct {
		ID string `json:"id"`
	}
	resp, err = client.R().
		SetBody(map[string]any{
			"email":        email,
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
		}).
		SetResult(&created).
		Post("/v1/intakes")
	if err != nil {
		log.Fatalf("create intake: %v", err)
	}
	if resp.StatusCode() != http.StatusCreated || created.ID == "" {
		log.Fatalf("create intake: status %d: %s", resp.StatusCode(), resp.Body())
	}

	var attempt struct {
		ID    string `json:"id"`
		State string `json:"state"`
		Error string `json:"error,omitempty"`
	}
	resp, err = client.R().
		SetResult(&attempt).
		Post("/v1/intakes/" + created.ID + "/attempts")
	if err != nil {
		log.Fatalf("start attempt: %v", err)
	}
	if resp.StatusCode() != http.StatusAccepted || attempt.ID == "" {
		log.Fatalf("start attempt: status %d: %s", resp.StatusCode(), resp.Body())
	}

	deadline := time.Now().Add(3 * time.Minute)
	for attempt.State != "completed" && attempt.State != "failed" {
		if time.Now().After(deadline) {
			log.Fatalf("attempt %s still %s after 3m", attempt.ID, attempt.State)
		}
		time.Sleep(500 * time.Millisecond)
		resp, err = client.R().
			SetResult(&attempt).
			Get("/v1/attempts/" + attempt.ID)
		if err != nil {
			log.Fatalf("poll attempt: %v", err)
		}
		if resp.StatusCode() != http.StatusOK {
			log.Fatalf("poll attempt: status %d: %s", resp.StatusCode(), resp.Body())
		}
	}
	if attempt.State == "failed" {
		log.Fatalf("attempt failed: %s", attempt.Error)
	}

	var doc struct {
		Text   string `json:"text"`
		Report struct {
			Resolved   int `json:"resolved"`
			Unresolved int `json:"unresolved"`
		} `json:"report"`
	}
	resp, err = client.R().
		SetResult(&doc).
		Get("/v1/attempts/" + attempt.ID + "/document")
	if err != nil {
		log.Fatalf("document: %v", err)
	}
	if resp.StatusCode() != http.StatusOK || doc.Text == "" {
		log.Fatalf("document: status %d: %s", resp.StatusCode(), resp.Body())
	}
	if doc.Report.Unresolved != 0 {
		log.Fatalf("document has %d unresolved tokens", doc.Report.Unresolved)
	}

	fmt.Printf("✅ intake smoke test passed: intake=%s attempt=%s resolved=%d\n",
		created.ID, attempt.ID, doc.Report.Resolved)
}
