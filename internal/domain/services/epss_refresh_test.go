package services

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"grchub/internal/config"
	"grchub/internal/domain/models"
	"grchub/pkg/logger"
)

type fakeFeed struct {
	calls      [][]string
	failBatch  int // 1-based index of the batch whose fetch fails, 0 for none
	badRecords map[string]bool
}

func (f *fakeFeed) FetchScores(ctx context.Context, cveIDs []string) ([]models.EPSSRecord, error) {
	f.calls = append(f.calls, cveIDs)
	if f.failBatch == len(f.calls) {
		return nil, errors.New("feed unavailable")
	}
	records := make([]models.EPSSRecord, 0, len(cveIDs))
	for _, id := range cveIDs {
		records = append(records, models.EPSSRecord{CVEID: id, Score: 0.5, Percentile: 0.9, Model: "v2025.03.14"})
	}
	return records, nil
}

type fakeVulnStore struct {
	ids      []string
	staleIDs []string
	updated  []string
	failCVEs map[string]bool
}

func (s *fakeVulnStore) ListCVEIDs(ctx context.Context) ([]string, error) {
	return s.ids, nil
}

func (s *fakeVulnStore) ListStaleCVEIDs(ctx context.Context, cutoff time.Time) ([]string, error) {
	return s.staleIDs, nil
}

func (s *fakeVulnStore) UpdateEPSS(ctx context.Context, rec models.EPSSRecord, fetchedAt time.Time) error {
	if s.failCVEs[rec.CVEID] {
		return errors.New("row locked")
	}
	s.updated = append(s.updated, rec.CVEID)
	return nil
}

func makeCVEIDs(n int) []string {
	ids := make([]string, n)
	for i := range ids {
		ids[i] = fmt.Sprintf("CVE-2026-%04d", i+1)
	}
	return ids
}

func newTestRefresher(feed *fakeFeed, store *fakeVulnStore) *EPSSRefresher {
	cfg := config.EPSSConfig{BatchSize: 50, FreshnessWindow: 24 * time.Hour}
	return NewEPSSRefresher(cfg, feed, store, logger.NewDefault())
}

func TestRefreshBatching(t *testing.T) {
	feed := &fakeFeed{}
	store := &fakeVulnStore{}
	r := newTestRefresher(feed, store)

	report := r.Refresh(context.Background(), makeCVEIDs(120))

	if report.Batches != 3 {
		t.Errorf("Batches = %d, want 3", report.Batches)
	}
	if len(feed.calls) != 3 {
		t.Fatalf("feed called %d times, want 3", len(feed.calls))
	}
	for i, want := range []int{50, 50, 20} {
		if len(feed.calls[i]) != want {
			t.Errorf("batch %d size = %d, want %d", i+1, len(feed.calls[i]), want)
		}
	}
	if report.Updated != 120 {
		t.Errorf("Updated = %d, want 120", report.Updated)
	}
	if report.Failed != 0 {
		t.Errorf("Failed = %d, want 0", report.Failed)
	}
}

func TestRefreshBatchFailureIsIsolated(t *testing.T) {
	feed := &fakeFeed{failBatch: 2}
	store := &fakeVulnStore{}
	r := newTestRefresher(feed, store)

	report := r.Refresh(context.Background(), makeCVEIDs(120))

	if report.Batches != 3 {
		t.Errorf("Batches = %d, want 3", report.Batches)
	}
	if report.Failed != 50 {
		t.Errorf("Failed = %d, want 50", report.Failed)
	}
	if report.Updated != 70 {
		t.Errorf("Updated = %d, want 70", report.Updated)
	}
}

func TestRefreshRecordFailureIsIsolated(t *testing.T) {
	feed := &fakeFeed{}
	store := &fakeVulnStore{failCVEs: map[string]bool{"CVE-2026-0003": true}}
	r := newTestRefresher(feed, store)

	report := r.Refresh(context.Background(), makeCVEIDs(10))

	if report.Updated != 9 {
		t.Errorf("Updated = %d, want 9", report.Updated)
	}
	if report.Failed != 1 {
		t.Errorf("Failed = %d, want 1", report.Failed)
	}
}

func TestRefreshEmptyInput(t *testing.T) {
	feed := &fakeFeed{}
	r := newTestRefresher(feed, &fakeVulnStore{})

	report := r.Refresh(context.Background(), nil)

	if report.Batches != 0 || report.Updated != 0 || report.Failed != 0 {
		t.Errorf("empty refresh produced %+v, want all zeros", report)
	}
	if len(feed.calls) != 0 {
		t.Errorf("feed called %d times, want 0", len(feed.calls))
	}
}

func TestRefreshStaleUsesStaleSet(t *testing.T) {
	feed := &fakeFeed{}
	store := &fakeVulnStore{
		ids:      makeCVEIDs(10),
		staleIDs: makeCVEIDs(3),
	}
	r := newTestRefresher(feed, store)

	report, err := r.RefreshStale(context.Background())
	if err != nil {
		t.Fatalf("RefreshStale: %v", err)
	}
	if report.Requested != 3 {
		t.Errorf("Requested = %d, want 3", report.Requested)
	}
}

func TestIsStale(t *testing.T) {
	r := newTestRefresher(&fakeFeed{}, &fakeVulnStore{})
	now := time.Date(2026, 8, 15, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		last *time.Time
		want bool
	}{
		{"never fetched", nil, true},
		{"just fetched", timePtr(now.Add(-time.Minute)), false},
		{"exactly at window is fresh", timePtr(now.Add(-24 * time.Hour)), false},
		{"just past window is stale", timePtr(now.Add(-24*time.Hour - time.Second)), true},
		{"days old", timePtr(now.AddDate(0, 0, -3)), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := r.IsStale(tt.last, now); got != tt.want {
				t.Errorf("IsStale = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestChunk(t *testing.T) {
	tests := []struct {
		n    int
		size int
		want []int
	}{
		{0, 50, nil},
		{1, 50, []int{1}},
		{50, 50, []int{50}},
		{51, 50, []int{50, 1}},
		{120, 50, []int{50, 50, 20}},
	}

	for _, tt := range tests {
		got := chunk(makeCVEIDs(tt.n), tt.size)
		if len(got) != len(tt.want) {
			t.Errorf("chunk(%d, %d) produced %d batches, want %d", tt.n, tt.size, len(got), len(tt.want))
			continue
		}
		for i, want := range tt.want {
			if len(got[i]) != want {
				t.Errorf("chunk(%d, %d) batch %d size = %d, want %d", tt.n, tt.size, i, len(got[i]), want)
			}
		}
	}
}

func timePtr(t time.Time) *time.Time { return &t }
