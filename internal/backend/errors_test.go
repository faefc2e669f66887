package backend

import (
	"errors"
	"testing"
	"time"
)

func TestErrorMessage_PayloadShapes(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"detail string", `{"detail":"Store not found"}`, "Store not found"},
		{"detail list msg", `{"detail":[{"msg":"prompt too long"},{"msg":"second"}]}`, "prompt too long"},
		{"detail list string", `{"detail":["bad input"]}`, "bad input"},
		{"detail list opaque", `{"detail":[{"loc":["body"]}]}`, "Validation error occurred"},
		{"detail list empty", `{"detail":[],"message":"ignored"}`, "Query failed"},
		{"detail object msg", `{"detail":{"msg":"quota exceeded"}}`, "quota exceeded"},
		{"detail object message", `{"detail":{"message":"model overloaded"}}`, "model overloaded"},
		{"detail object other", `{"detail":{"code":42}}`, "Query failed"},
		{"message", `{"message":"upstream timeout"}`, "upstream timeout"},
		{"empty object", `{}`, "Query failed"},
		{"not json", `<html>Bad Gateway</html>`, "Query failed"},
		{"json array", `[1,2,3]`, "Query failed"},
		{"null", `null`, "Query failed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := &APIError{StatusCode: 400, Body: []byte(tt.body)}
			if got := ErrorMessage(err, "Query failed"); got != tt.want {
				t.Errorf("ErrorMessage(%s) = %q, want %q", tt.body, got, tt.want)
			}
		})
	}
}

func TestErrorMessage_Wrapped(t *testing.T) {
	err := errors.Join(errors.New("context"), &APIError{StatusCode: 404, Body: []byte(`{"detail":"gone"}`)})
	if got := ErrorMessage(err, "x"); got != "gone" {
		t.Errorf("ErrorMessage = %q, want %q", got, "gone")
	}
}

func TestErrorMessage_NilAndPlain(t *testing.T) {
	if got := ErrorMessage(nil, "default"); got != "default" {
		t.Errorf("ErrorMessage(nil) = %q", got)
	}
	if got := ErrorMessage(errors.New("dial tcp: refused"), "default"); got != "dial tcp: refused" {
		t.Errorf("ErrorMessage(plain) = %q", got)
	}
}

func TestAPIError_Structured(t *testing.T) {
	if !(&APIError{Body: []byte(`{"detail":"x"}`)}).Structured() {
		t.Error("detail payload should be structured")
	}
	if (&APIError{Body: []byte(`{"error":"x"}`)}).Structured() {
		t.Error("unknown payload should not be structured")
	}
	if (&APIError{Body: []byte(`oops`)}).Structured() {
		t.Error("non-JSON payload should not be structured")
	}
}

func TestComputeStats(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	stores := []Store{
		{Name: "a", CreateTime: "2025-06-01T08:00:00Z"},
		{Name: "b", CreateTime: "2025-05-31T13:00:00.123456Z"},
		{Name: "c", CreateTime: "2025-05-20T00:00:00Z"},
		{Name: "d", CreateTime: "garbage"},
	}

	st := ComputeStats(stores, now)
	if st.Total != 4 {
		t.Errorf("Total = %d, want 4", st.Total)
	}
	if st.CreatedToday != 2 {
		t.Errorf("CreatedToday = %d, want 2", st.CreatedToday)
	}
}
