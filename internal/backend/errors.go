package backend

import (
	"encoding/json"
	"errors"
	"fmt"
)

// validationFallback is used when a field-error list has an entry that is
// neither a string nor an object carrying "msg".
const validationFallback = "Validation error occurred"

// APIError is returned when the backend answers with a 4xx/5xx status.
type APIError struct {
	StatusCode int
	Body       []byte
}

func (e *APIError) Error() string {
	if msg, ok := extractMessage(e.Body); ok && msg != "" {
		return fmt.Sprintf("server returned %d: %s", e.StatusCode, msg)
	}
	return fmt.Sprintf("server returned %d: %s", e.StatusCode, string(e.Body))
}

// Structured reports whether the body matches one of the known error
// payload shapes.
func (e *APIError) Structured() bool {
	_, ok := extractMessage(e.Body)
	return ok
}

// ErrorMessage extracts a human-readable message from err, falling back to
// def. It never fails.
func ErrorMessage(err error, def string) string {
	if err == nil {
		return def
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		if msg, ok := extractMessage(apiErr.Body); ok && msg != "" {
			return msg
		}
		return def
	}
	if msg := err.Error(); msg != "" {
		return msg
	}
	return def
}

// extractor inspects one payload shape. matched reports that the shape was
// recognized and no later extractor should run; msg may still be empty, in
// which case the caller's default applies.
type extractor func(payload map[string]any) (msg string, matched bool)

// extractors are tried in order; the first match wins.
var extractors = []extractor{
	detailString,
	detailList,
	detailObject,
	messageField,
}

func extractMessage(body []byte) (string, bool) {
	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err != nil || payload == nil {
		return "", false
	}
	for _, ex := range extractors {
		if msg, ok := ex(payload); ok {
			return msg, true
		}
	}
	return "", false
}

// {"detail": "text"}
func detailString(p map[string]any) (string, bool) {
	s, ok := p["detail"].(string)
	return s, ok
}

// {"detail": [{"msg": "text"}, ...]} or {"detail": ["text", ...]}
func detailList(p map[string]any) (string, bool) {
	list, ok := p["detail"].([]any)
	if !ok {
		return "", false
	}
	if len(list) == 0 {
		return "", true
	}
	switch first := list[0].(type) {
	case map[string]any:
		if msg, ok := first["msg"].(string); ok && msg != "" {
			return msg, true
		}
	case string:
		return first, true
	}
	return validationFallback, true
}

// {"detail": {"msg": "text"}} or {"detail": {"message": "text"}}
func detailObject(p map[string]any) (string, bool) {
	obj, ok := p["detail"].(map[string]any)
	if !ok {
		return "", false
	}
	if msg, ok := obj["msg"].(string); ok && msg != "" {
		return msg, true
	}
	if msg, ok := obj["message"].(string); ok && msg != "" {
		return msg, true
	}
	return "", true
}

// {"message": "text"}
func messageField(p map[string]any) (string, bool) {
	msg, ok := p["message"].(string)
	if !ok || msg == "" {
		return "", false
	}
	return msg, true
}
