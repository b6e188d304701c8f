package feeds

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"grchub/internal/config"
	"grchub/pkg/logger"
)

func newTestClient(serverURL string) *EPSSClient {
	return NewEPSSClient(config.EPSSConfig{APIURL: serverURL}, logger.NewDefault())
}

func TestFetchScores(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("cve"); got != "CVE-2026-0001,CVE-2026-0002" {
			t.Errorf("cve query = %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"status": "OK",
			"model": "v2025.03.14",
			"data": [
				{"cve": "CVE-2026-0001", "epss": "0.97234", "percentile": "0.99891", "date": "2026-08-30"},
				{"cve": "CVE-2026-0002", "epss": "0.00042", "percentile": "0.11000", "date": "2026-08-30"}
			]
		}`))
	}))
	defer server.Close()

	records, err := newTestClient(server.URL).FetchScores(context.Background(), []string{"CVE-2026-0001", "CVE-2026-0002"})
	if err != nil {
		t.Fatalf("FetchScores: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("got %d records, want 2", len(records))
	}
	if records[0].CVEID != "CVE-2026-0001" || records[0].Score != 0.97234 {
		t.Errorf("first record = %+v", records[0])
	}
	if records[0].Model != "v2025.03.14" {
		t.Errorf("Model = %q, want v2025.03.14", records[0].Model)
	}
}

func TestFetchScoresSkipsUnparseable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
			"status": "OK",
			"data": [
				{"cve": "CVE-2026-0001", "epss": "not-a-number", "percentile": "0.5", "date": "2026-08-30"},
				{"cve": "CVE-2026-0002", "epss": "0.12000", "percentile": "0.70000", "date": "2026-08-30"}
			]
		}`))
	}))
	defer server.Close()

	records, err := newTestClient(server.URL).FetchScores(context.Background(), []string{"CVE-2026-0001", "CVE-2026-0002"})
	if err != nil {
		t.Fatalf("FetchScores: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("got %d records, want 1", len(records))
	}
	if records[0].CVEID != "CVE-2026-0002" {
		t.Errorf("kept record = %s, want CVE-2026-0002", records[0].CVEID)
	}
	// With no top-level model the record date stands in
	if records[0].Model != "2026-08-30" {
		t.Errorf("Model = %q, want 2026-08-30", records[0].Model)
	}
}

func TestFetchScoresServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream broken", http.StatusBadGateway)
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).FetchScores(context.Background(), []string{"CVE-2026-0001"})
	if err == nil {
		t.Fatal("expected error for non-200 response")
	}
}

func TestFetchScoresEmptyInput(t *testing.T) {
	called := false
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer server.Close()

	records, err := newTestClient(server.URL).FetchScores(context.Background(), nil)
	if err != nil {
		t.Fatalf("FetchScores: %v", err)
	}
	if records != nil {
		t.Errorf("got %d records, want none", len(records))
	}
	if called {
		t.Error("empty batch still hit the feed")
	}
}
