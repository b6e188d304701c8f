package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestAPIKeyAuth(t *testing.T) {
	tests := []struct {
		name       string
		header     string
		wantStatus int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic abc123", http.StatusUnauthorized},
		{"wrong key", "Bearer nope", http.StatusUnauthorized},
		{"valid key", "Bearer secret-key", http.StatusOK},
		{"case-insensitive scheme", "bearer secret-key", http.StatusOK},
	}

	handler := APIKeyAuth("secret-key")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/api/v1/risks", nil)
			if tt.header != "" {
				r.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, r)
			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
		})
	}
}

func TestAPIKeyAuthSkipsPreflight(t *testing.T) {
	handler := APIKeyAuth("secret-key")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	r := httptest.NewRequest(http.MethodOptions, "/api/v1/risks", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)
	if w.Code != http.StatusNoContent {
		t.Errorf("OPTIONS status = %d, want 204", w.Code)
	}
}

func TestSessionIDDerivation(t *testing.T) {
	base := httptest.NewRequest(http.MethodPost, "/api/v1/chatbot/message", nil)

	withHeader := httptest.NewRequest(http.MethodPost, "/api/v1/chatbot/message", nil)
	withHeader.Header.Set("X-Session-ID", "tab-42")

	if got := sessionIDFor(withHeader, "key"); got != "tab-42" {
		t.Errorf("explicit header: got %q, want tab-42", got)
	}

	a := sessionIDFor(base, "key-a")
	b := sessionIDFor(base, "key-b")
	if a == b {
		t.Error("different credentials produced the same session id")
	}
	if a != sessionIDFor(base, "key-a") {
		t.Error("session id is not stable for the same credential")
	}
	if len(a) != 32 {
		t.Errorf("derived session id length = %d, want 32", len(a))
	}
}

func TestGetSessionIDOutsideRequest(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	if got := GetSessionID(r.Context()); got != "" {
		t.Errorf("GetSessionID on bare context = %q, want empty", got)
	}
}
