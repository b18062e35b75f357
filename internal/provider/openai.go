package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"pactly.app/internal/clauses"
)

const systemPrompt = "You are a family-law drafting assistant. Draft prenuptial " +
	"agreement clauses in plain, formal legal English. The intake uses opaque " +
	"placeholder tokens (PARTY_*, VALUE_*, DESC_*, DATE_*) in place of real " +
	"names, amounts, descriptions and dates. Copy every placeholder token " +
	"verbatim wherever the underlying value belongs; never invent, alter or " +
	"expand a token. Respond with a JSON array of objects: " +
	`[{"title": string, "body": string}, ...] and nothing else.`

// OpenAI implements Client against the chat-completions API.
type OpenAI struct {
	client *resty.Client
	model  string
}

// OpenAIOption configures the client.
type OpenAIOption func(*OpenAI)

// WithModel overrides the default model.
func WithModel(model string) OpenAIOption {
	return func(o *OpenAI) {
		if model != "" {
			o.model = model
		}
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) OpenAIOption {
	return func(o *OpenAI) {
		if d > 0 {
			o.client.SetTimeout(d)
		}
	}
}

// WithBaseURL points the client at a different endpoint (tests, proxies).
func WithBaseURL(base string) OpenAIOption {
	return func(o *OpenAI) {
		if base != "" {
			o.client.SetBaseURL(base)
		}
	}
}

// NewOpenAI builds a chat-completions client.
func NewOpenAI(apiKey string, opts ...OpenAIOption) *OpenAI {
	c := resty.New().
		SetBaseURL("https://api.openai.com/v1").
		SetHeader("Content-Type", "application/json").
		SetAuthToken(apiKey).
		SetTimeout(2 * time.Minute)
	o := &OpenAI{client: c, model: "gpt-4o-mini"}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func (o *OpenAI) Draft(ctx context.Context, req Request) ([]Section, error) {
	prompt, err := buildPrompt(req, req.Templates)
	if err != nil {
		return nil, err
	}
	sections, err := o.complete(ctx, prompt)
	if err != nil {
		return nil, err
	}
	if len(sections) == 0 {
		return nil, ErrMalformedResponse
	}
	return sections, nil
}

func (o *OpenAI) RedraftSection(ctx context.Context, req Request, templateID string) (Section, error) {
	tpl, ok := findTemplate(req.Templates, templateID)
	if !ok {
		return Section{}, ErrUnknownTemplate
	}
	prompt, err := buildPrompt(req, []clauses.Template{tpl})
	if err != nil {
		return Section{}, err
	}
	sections, err := o.complete(ctx, prompt)
	if err != nil {
		return Section{}, err
	}
	if len(sections) != 1 {
		return Section{}, ErrMalformedResponse
	}
	return sections[0], nil
}

func (o *OpenAI) complete(ctx context.Context, prompt string) ([]Section, error) {
	body := chatRequest{
		Model: o.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: prompt},
		},
		Temperature: 0.2,
	}

	resp, err := o.client.R().
		SetContext(ctx).
		SetBody(&body).
		Post("/chat/completions")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d: %s", ErrUnavailable, resp.StatusCode(), resp.String())
	}

	var cr chatResponse
	if err := json.Unmarshal(resp.Body(), &cr); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if len(cr.Choices) == 0 {
		return nil, ErrMalformedResponse
	}
	return parseSections(cr.Choices[0].Message.Content)
}

func buildPrompt(req Request, templates []clauses.Template) (string, error) {
	masked, err := json.Marshal(req.Masked)
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "Jurisdiction: %s (%s, %s regime).\n\n",
		req.Jurisdiction, clauses.Name(req.Jurisdiction), clauses.RegimeFor(req.Jurisdiction))
	sb.WriteString("Masked intake record:\n")
	sb.Write(masked)
	sb.WriteString("\n\nDraft the following clauses, in order:\n")
	for i, tpl := range templates {
		fmt.Fprintf(&sb, "%d. %s — %s\n", i+1, tpl.Title, tpl.Guide)
	}
	return sb.String(), nil
}

// parseSections accepts the raw model output and extracts the JSON array,
// tolerating markdown fences the model sometimes wraps around it.
func parseSections(content string) ([]Section, error) {
	content = strings.TrimSpace(content)
	if strings.HasPrefix(content, "```") {
		content = strings.TrimPrefix(content, "```json")
		content = strings.TrimPrefix(content, "```")
		content = strings.TrimSuffix(strings.TrimSpace(content), "```")
		content = strings.TrimSpace(content)
	}
	var sections []Section
	if err := json.Unmarshal([]byte(content), &sections); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	for _, s := range sections {
		if strings.TrimSpace(s.Title) == "" || strings.TrimSpace(s.Body) == "" {
			return nil, ErrMalformedResponse
		}
	}
	return sections, nil
}

func findTemplate(templates []clauses.Template, id string) (clauses.Template, bool) {
	for _, tpl := range templates {
		if tpl.ID == id {
			return tpl, true
		}
	}
	return clauses.Template{}, false
}
