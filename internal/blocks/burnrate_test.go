package blocks

import (
	"testing"

	"github.com/proboscis/claude-block-checker/internal/model"
)

func block(t *testing.T, start string, totalTokens int64, totalCost float64) *model.SessionBlock {
	t.Helper()
	s := ts(t, start)
	return &model.SessionBlock{
		StartTime:   s,
		EndTime:     s.Add(BlockDuration),
		TotalTokens: totalTokens,
		TotalCost:   totalCost,
	}
}

func TestProjectBelowThreshold(t *testing.T) {
	b := block(t, "2024-01-01T10:00:00Z", 500, 0.5)

	cases := []struct {
		name string
		now  string
	}{
		{"thirty seconds", "2024-01-01T10:00:30Z"},
		{"one minute", "2024-01-01T10:01:00Z"},
		{"just under two minutes", "2024-01-01T10:01:59Z"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Project(b, ts(t, tc.now), 1000); got != nil {
				t.Errorf("Project = %+v, want nil", got)
			}
		})
	}
}

func TestProjectRateAndLimit(t *testing.T) {
	// 600 tokens over 60 minutes against a 1000-token budget:
	// 10 tokens/min, 400 remaining, 40 minutes until the limit.
	b := block(t, "2024-01-01T10:00:00Z", 600, 0.60)
	rate := Project(b, ts(t, "2024-01-01T11:00:00Z"), 1000)
	if rate == nil {
		t.Fatal("Project = nil")
	}
	if rate.ElapsedMinutes != 60 {
		t.Errorf("elapsed = %d, want 60", rate.ElapsedMinutes)
	}
	if rate.TokensPerMinute != 10 {
		t.Errorf("tokens/min = %d, want 10", rate.TokensPerMinute)
	}
	if rate.CostPerHour != 0.60 {
		t.Errorf("cost/hour = %v, want 0.60", rate.CostPerHour)
	}
	if rate.TimeUntilLimit == nil {
		t.Fatal("time until limit missing")
	}
	if rate.TimeUntilLimit.Minutes != 40 {
		t.Errorf("minutes until limit = %d, want 40", rate.TimeUntilLimit.Minutes)
	}
	if rate.TimeUntilLimit.HumanReadable != "40m" {
		t.Errorf("human readable = %q, want 40m", rate.TimeUntilLimit.HumanReadable)
	}
}

func TestProjectExtrapolation(t *testing.T) {
	// 60 of 300 minutes elapsed leaves 240 minutes: 600 + 10*240 tokens,
	// 0.60 + 0.60*4 cost.
	b := block(t, "2024-01-01T10:00:00Z", 600, 0.60)
	rate := Project(b, ts(t, "2024-01-01T11:00:00Z"), 0)
	if rate == nil {
		t.Fatal("Project = nil")
	}
	if rate.ProjectedTokens != 3000 {
		t.Errorf("projected tokens = %d, want 3000", rate.ProjectedTokens)
	}
	if diff := rate.ProjectedCost - 3.0; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("projected cost = %v, want 3.0", rate.ProjectedCost)
	}
}

func TestProjectPastWindowEnd(t *testing.T) {
	// Nominally closed window: projections equal the actuals.
	b := block(t, "2024-01-01T10:00:00Z", 600, 0.60)
	rate := Project(b, ts(t, "2024-01-01T16:00:00Z"), 0)
	if rate == nil {
		t.Fatal("Project = nil")
	}
	if rate.ProjectedTokens != 600 {
		t.Errorf("projected tokens = %d, want 600", rate.ProjectedTokens)
	}
	if rate.ProjectedCost != 0.60 {
		t.Errorf("projected cost = %v, want 0.60", rate.ProjectedCost)
	}
}

func TestProjectZeroRateOmitsLimit(t *testing.T) {
	b := block(t, "2024-01-01T10:00:00Z", 0, 0)
	rate := Project(b, ts(t, "2024-01-01T11:00:00Z"), 1000)
	if rate == nil {
		t.Fatal("Project = nil")
	}
	if rate.TokensPerMinute != 0 {
		t.Errorf("tokens/min = %d, want 0", rate.TokensPerMinute)
	}
	if rate.TimeUntilLimit != nil {
		t.Errorf("time until limit = %+v, want nil", rate.TimeUntilLimit)
	}
}

func TestProjectNoBudgetOmitsLimit(t *testing.T) {
	b := block(t, "2024-01-01T10:00:00Z", 600, 0.60)
	rate := Project(b, ts(t, "2024-01-01T11:00:00Z"), 0)
	if rate == nil {
		t.Fatal("Project = nil")
	}
	if rate.TimeUntilLimit != nil {
		t.Errorf("time until limit = %+v, want nil without a budget", rate.TimeUntilLimit)
	}
}

func TestProjectSaturatesAtBudget(t *testing.T) {
	// Budget already exceeded: remaining tokens saturate at zero.
	b := block(t, "2024-01-01T10:00:00Z", 5000, 5.0)
	rate := Project(b, ts(t, "2024-01-01T11:00:00Z"), 1000)
	if rate == nil {
		t.Fatal("Project = nil")
	}
	if rate.TimeUntilLimit == nil {
		t.Fatal("time until limit missing")
	}
	if rate.TimeUntilLimit.Minutes != 0 {
		t.Errorf("minutes until limit = %d, want 0", rate.TimeUntilLimit.Minutes)
	}
}

func TestProjectTruncatesElapsedMinutes(t *testing.T) {
	b := block(t, "2024-01-01T10:00:00Z", 900, 0.90)
	rate := Project(b, ts(t, "2024-01-01T10:02:59Z"), 0)
	if rate == nil {
		t.Fatal("Project = nil")
	}
	if rate.ElapsedMinutes != 2 {
		t.Errorf("elapsed = %d, want 2", rate.ElapsedMinutes)
	}
	if rate.TokensPerMinute != 450 {
		t.Errorf("tokens/min = %d, want 450", rate.TokensPerMinute)
	}
}

func TestFormatMinutes(t *testing.T) {
	cases := []struct {
		minutes int64
		want    string
	}{
		{0, "0m"},
		{40, "40m"},
		{59, "59m"},
		{60, "1h 0m"},
		{90, "1h 30m"},
		{301, "5h 1m"},
	}
	for _, tc := range cases {
		if got := FormatMinutes(tc.minutes); got != tc.want {
			t.Errorf("FormatMinutes(%d) = %q, want %q", tc.minutes, got, tc.want)
		}
	}
}
