// Package audit emits the tamper-evident event trail for intake and drafting
// operations. Map access, masking passes and unmask reports all go through
// LogEvent so operators can reconstruct who touched which intake's PII and
// when, without the PII itself ever appearing in a log line.
package audit

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"pactly.app/internal/auth"
	"pactly.app/internal/obs"
)

type ctxKey string

const requestIDKey ctxKey = "audit_request_id"

// WithRequestID attaches the request identifier to the context for audit
// logging. Background pipeline runs pass the attempt id here so their events
// correlate even without an HTTP request.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	requestID = strings.TrimSpace(requestID)
	if requestID == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey, requestID)
}

func requestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(requestIDKey).(string); ok {
		return v
	}
	return ""
}

// reserved keys the caller's fields may not override.
var reserved = map[string]bool{
	"ts": true, "type": true, "event": true,
	"request_id": true, "user_id": true,
}

// LogEvent writes one audit line enriched with request and user context.
// Caller fields are flattened into the entry; reserved keys are dropped.
func LogEvent(ctx context.Context, event string, fields map[string]any) error {
	event = strings.TrimSpace(event)
	if event == "" {
		return errors.New("event name is required")
	}
	entry := make(map[string]any, len(fields)+5)
	for k, v := range fields {
		if !reserved[k] {
			entry[k] = v
		}
	}
	entry["ts"] = time.Now().UTC().Format(time.RFC3339Nano)
	entry["type"] = "audit"
	entry["event"] = event
	if rid := requestIDFromContext(ctx); rid != "" {
		entry["request_id"] = rid
	}
	if userID, ok := auth.UserIDFromContext(ctx); ok {
		entry["user_id"] = userID
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	obs.Logger().Println(string(data))
	return nil
}
