package repository

import (
	"strings"
	"testing"

	"grchub/internal/domain/models"
)

func TestPredicateBuilder(t *testing.T) {
	t.Run("empty builder renders no WHERE", func(t *testing.T) {
		b := &predicateBuilder{}
		if got := b.where(); got != "" {
			t.Errorf("where() = %q, want empty", got)
		}
		if len(b.args) != 0 {
			t.Errorf("args = %v, want none", b.args)
		}
	})

	t.Run("placeholders number in append order", func(t *testing.T) {
		b := &predicateBuilder{}
		b.add("owner = $%d", "alex")
		b.add("category = $%d", "technology")

		want := " WHERE owner = $1 AND category = $2"
		if got := b.where(); got != want {
			t.Errorf("where() = %q, want %q", got, want)
		}
		if len(b.args) != 2 {
			t.Fatalf("bound %d args, want 2", len(b.args))
		}
	})

	t.Run("addRepeat reuses one placeholder for every verb", func(t *testing.T) {
		b := &predicateBuilder{}
		b.add("status = $%d", "identified")
		b.addRepeat("(title ILIKE '%%' || $%d || '%%' OR description ILIKE '%%' || $%d || '%%')", 2, "vpn")

		want := " WHERE status = $1 AND (title ILIKE '%' || $2 || '%' OR description ILIKE '%' || $2 || '%')"
		if got := b.where(); got != want {
			t.Errorf("where() = %q, want %q", got, want)
		}
		if len(b.args) != 2 {
			t.Fatalf("bound %d args, want 2", len(b.args))
		}
		if b.args[1] != "vpn" {
			t.Errorf("args[1] = %v, want the search term bound once", b.args[1])
		}
	})

	t.Run("next continues the numbering after where", func(t *testing.T) {
		b := &predicateBuilder{}
		b.add("owner = $%d", "alex")
		if n := b.next(50); n != 2 {
			t.Errorf("next() = %d, want 2", n)
		}
		if n := b.next(0); n != 3 {
			t.Errorf("next() = %d, want 3", n)
		}
	})
}

func TestRiskListPredicates(t *testing.T) {
	tests := []struct {
		name      string
		filter    RiskFilter
		wantWhere string
		wantArgs  int
	}{
		{
			name:      "no filters",
			filter:    RiskFilter{},
			wantWhere: "",
			wantArgs:  0,
		},
		{
			name:      "framework only",
			filter:    RiskFilter{Frameworks: []models.Framework{models.FrameworkISO27001}},
			wantWhere: " WHERE framework = ANY($1)",
			wantArgs:  1,
		},
		{
			name:      "search only",
			filter:    RiskFilter{Search: "ransomware"},
			wantWhere: " WHERE (title ILIKE '%' || $1 || '%' OR description ILIKE '%' || $1 || '%')",
			wantArgs:  1,
		},
		{
			name: "all filters",
			filter: RiskFilter{
				Frameworks: []models.Framework{models.FrameworkISO27001, models.FrameworkFAIR},
				Levels:     []models.RiskLevel{models.RiskLevelHigh},
				Statuses:   []models.RiskStatus{models.RiskStatusIdentified},
				Owner:      "alex",
				Category:   "technology",
				Search:     "vpn",
			},
			wantWhere: " WHERE framework = ANY($1) AND level = ANY($2) AND status = ANY($3)" +
				" AND owner = $4 AND category = $5" +
				" AND (title ILIKE '%' || $6 || '%' OR description ILIKE '%' || $6 || '%')",
			wantArgs: 6,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := riskListPredicates(tt.filter)
			got := b.where()
			if got != tt.wantWhere {
				t.Errorf("where() = %q, want %q", got, tt.wantWhere)
			}
			if len(b.args) != tt.wantArgs {
				t.Errorf("bound %d args, want %d", len(b.args), tt.wantArgs)
			}
			if strings.Contains(got, "!") {
				t.Errorf("rendered clause contains a formatting error: %q", got)
			}
		})
	}
}
