package models

import "testing"

func TestSnapshotOfIsDetachedFromRisk(t *testing.T) {
	risk := &Risk{
		Title: "Unpatched VPN gateway",
		Level: RiskLevelHigh,
		Score: 12,
	}

	snap := SnapshotOf(risk)

	risk.Title = "Renamed after treatment planning"
	risk.Level = RiskLevelLow
	risk.Score = 2

	if snap.Title != "Unpatched VPN gateway" {
		t.Errorf("snapshot title = %q, want original title", snap.Title)
	}
	if snap.Level != RiskLevelHigh {
		t.Errorf("snapshot level = %q, want %q", snap.Level, RiskLevelHigh)
	}
	if snap.Score != 12 {
		t.Errorf("snapshot score = %d, want 12", snap.Score)
	}
}
