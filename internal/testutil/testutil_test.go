package testutil

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

// mockTestingT implements TB and records failures instead of stopping the test.
type mockTestingT struct {
	failed bool
	fatal  bool
	msgs   []string
}

func (m *mockTestingT) Helper() {}

func (m *mockTestingT) Errorf(format string, args ...interface{}) {
	m.failed = true
	m.msgs = append(m.msgs, fmt.Sprintf(format, args...))
}

func (m *mockTestingT) Fatalf(format string, args ...interface{}) {
	m.failed = true
	m.fatal = true
	m.msgs = append(m.msgs, fmt.Sprintf(format, args...))
}

func TestAssertHTTPStatus(t *testing.T) {
	tests := []struct {
		name       string
		expected   int
		actual     int
		shouldFail bool
	}{
		{"matching status codes", 200, 200, false},
		{"different status codes", 200, 404, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockT := &mockTestingT{}
			AssertHTTPStatus(mockT, tt.expected, tt.actual, "ctx")
			if mockT.failed != tt.shouldFail {
				t.Errorf("Expected failed=%v, got %v (%v)", tt.shouldFail, mockT.failed, mockT.msgs)
			}
		})
	}
}

func TestAssertJSONResponse(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		status     string
		shouldFail bool
	}{
		{"matching status", `{"status":"ok","result":1}`, "ok", false},
		{"different status", `{"status":"error"}`, "ok", true},
		{"missing status", `{"result":1}`, "ok", true},
		{"invalid JSON", `not json`, "ok", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			rr.WriteString(tt.body)
			mockT := &mockTestingT{}
			AssertJSONResponse(mockT, rr, tt.status)
			if mockT.failed != tt.shouldFail {
				t.Errorf("Expected failed=%v, got %v (%v)", tt.shouldFail, mockT.failed, mockT.msgs)
			}
		})
	}
}

func TestCreateHTTPRequest(t *testing.T) {
	req := CreateHTTPRequest(t, http.MethodPost, "/call/webhook", map[string]string{"call_id": "c1"})
	if req.Method != http.MethodPost || req.URL.Path != "/call/webhook" {
		t.Errorf("Unexpected request %s %s", req.Method, req.URL.Path)
	}
	if req.Header.Get("Content-Type") != "application/json" {
		t.Errorf("Expected JSON content type")
	}
	body, _ := io.ReadAll(req.Body)
	if string(body) != `{"call_id":"c1"}` {
		t.Errorf("Unexpected body %s", body)
	}

	empty := CreateHTTPRequest(t, http.MethodGet, "/health", nil)
	if empty.Header.Get("Content-Type") != "" {
		t.Errorf("Expected no content type for empty body")
	}
}

func TestNewMenuStore(t *testing.T) {
	st := NewMenuStore(t)
	items, err := st.QueryItems(context.Background(), nil)
	if err != nil {
		t.Fatalf("QueryItems failed: %v", err)
	}
	if len(items) != len(TestMenu()) {
		t.Fatalf("Expected %d items, got %d", len(TestMenu()), len(items))
	}
	if items[0].ItemID != 1 || items[0].Name != "Burger" {
		t.Errorf("Expected Burger with id 1, got %+v", items[0])
	}
}

func TestFixedModel(t *testing.T) {
	m := &FixedModel{Reply: "hi"}
	resp, err := m.GenerateWithTools(context.Background(), nil, nil)
	if err != nil || resp.Content != "hi" {
		t.Fatalf("Unexpected response %+v, %v", resp, err)
	}
	m.Err = errors.New("boom")
	if _, err := m.GenerateWithTools(context.Background(), nil, nil); err == nil {
		t.Error("Expected configured error")
	}
	if m.Calls() != 2 {
		t.Errorf("Expected 2 calls, got %d", m.Calls())
	}
}

func TestMustJSONRoundTrip(t *testing.T) {
	var out map[string]int
	MustUnmarshalJSON(t, MustMarshalJSON(t, map[string]int{"a": 1}), &out)
	if out["a"] != 1 {
		t.Errorf("Expected a=1, got %v", out)
	}
	mockT := &mockTestingT{}
	MustUnmarshalJSON(mockT, []byte("{"), &out)
	if !mockT.fatal {
		t.Error("Expected fatal on invalid JSON")
	}
}
