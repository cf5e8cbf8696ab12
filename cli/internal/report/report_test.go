package report

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/proboscis/claude-block-checker/internal/parser"
	"github.com/proboscis/claude-block-checker/internal/pricing"
)

func writeProfile(t *testing.T, dir, name string, lines ...string) {
	t.Helper()
	projects := filepath.Join(dir, name, "projects", "proj")
	if err := os.MkdirAll(projects, 0o755); err != nil {
		t.Fatal(err)
	}
	content := ""
	for _, line := range lines {
		content += line + "\n"
	}
	if err := os.WriteFile(filepath.Join(projects, "usage.jsonl"), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func usageLine(ts string, input, output int64) string {
	return fmt.Sprintf(`{"timestamp":%q,"costUSD":0.5,"message":{"model":"claude-sonnet-4-5","usage":{"input_tokens":%d,"output_tokens":%d}}}`, ts, input, output)
}

func newChecker(dir string, now time.Time) *Checker {
	return &Checker{
		ProfilesDir:  dir,
		Prices:       pricing.Embedded(),
		ParseOptions: parser.Options{Policy: parser.PolicySkip},
		TokenBudget:  100000,
		Now:          now,
	}
}

func TestListProfiles(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"work", "personal", ".hidden"} {
		if err := os.MkdirAll(filepath.Join(dir, name), 0o755); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.WriteFile(filepath.Join(dir, "stray.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	c := newChecker(dir, time.Now())
	names, err := c.ListProfiles()
	if err != nil {
		t.Fatal(err)
	}
	if len(names) != 2 || names[0] != "personal" || names[1] != "work" {
		t.Errorf("ListProfiles() = %v, want [personal work]", names)
	}
}

func TestListProfilesMissingDir(t *testing.T) {
	c := newChecker(filepath.Join(t.TempDir(), "nope"), time.Now())
	if _, err := c.ListProfiles(); err == nil {
		t.Error("expected error for missing profiles directory")
	}
}

func TestCheckProfileActive(t *testing.T) {
	dir := t.TempDir()
	writeProfile(t, dir, "work",
		usageLine("2025-06-01T10:05:00Z", 600, 400),
		usageLine("2025-06-01T10:30:00Z", 300, 200),
	)

	now := time.Date(2025, 6, 1, 11, 0, 0, 0, time.UTC)
	c := newChecker(dir, now)

	usage, err := c.CheckProfile("work")
	if err != nil {
		t.Fatal(err)
	}
	if usage.ActiveBlock == nil {
		t.Fatal("expected an active block")
	}
	if !usage.ActiveBlock.IsActive {
		t.Error("active block not marked active")
	}
	if usage.TotalTokens != 1500 {
		t.Errorf("TotalTokens = %d, want 1500", usage.TotalTokens)
	}
	if usage.TotalCost != 1.0 {
		t.Errorf("TotalCost = %v, want 1.0", usage.TotalCost)
	}
	if len(usage.ModelsUsed) != 1 || usage.ModelsUsed[0] != "claude-sonnet-4-5" {
		t.Errorf("ModelsUsed = %v", usage.ModelsUsed)
	}
	if usage.ActiveBlock.BurnRate == nil {
		t.Fatal("expected burn rate on active block")
	}
	// 60 elapsed minutes at 25 tokens/min, 98500 remaining under budget.
	if usage.MinutesUntilLimit == nil {
		t.Fatal("expected minutes until limit")
	}
	if *usage.MinutesUntilLimit != 3940 {
		t.Errorf("MinutesUntilLimit = %d, want 3940", *usage.MinutesUntilLimit)
	}
}

func TestCheckProfileIdle(t *testing.T) {
	dir := t.TempDir()
	writeProfile(t, dir, "work", usageLine("2025-06-01T10:05:00Z", 600, 400))

	// Six hours later the block has expired.
	now := time.Date(2025, 6, 1, 16, 0, 0, 0, time.UTC)
	usage, err := newChecker(dir, now).CheckProfile("work")
	if err != nil {
		t.Fatal(err)
	}
	if usage.ActiveBlock != nil {
		t.Errorf("expected no active block, got %+v", usage.ActiveBlock)
	}
	if usage.TotalTokens != 0 || usage.MinutesUntilLimit != nil {
		t.Error("idle profile should report zero usage")
	}
}

func TestCheckProfileWithoutProjects(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "fresh"), 0o755); err != nil {
		t.Fatal(err)
	}

	usage, err := newChecker(dir, time.Now()).CheckProfile("fresh")
	if err != nil {
		t.Fatal(err)
	}
	if usage.Name != "fresh" || usage.ActiveBlock != nil {
		t.Errorf("unexpected usage for empty profile: %+v", usage)
	}
}

func TestCheckProfileUnknown(t *testing.T) {
	if _, err := newChecker(t.TempDir(), time.Now()).CheckProfile("ghost"); err == nil {
		t.Error("expected error for unknown profile")
	}
}

func TestCheckAll(t *testing.T) {
	dir := t.TempDir()
	writeProfile(t, dir, "alpha",
		usageLine("2025-06-01T10:05:00Z", 6000, 4000),
	)
	writeProfile(t, dir, "beta",
		usageLine("2025-06-01T10:05:00Z", 600, 400),
	)
	// gamma has usage from yesterday only.
	writeProfile(t, dir, "gamma",
		usageLine("2025-05-31T09:00:00Z", 100, 100),
	)

	now := time.Date(2025, 6, 1, 11, 0, 0, 0, time.UTC)
	usages, summary, err := newChecker(dir, now).CheckAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(usages) != 3 {
		t.Fatalf("got %d usages, want 3", len(usages))
	}
	if usages[0].Name != "alpha" || usages[1].Name != "beta" || usages[2].Name != "gamma" {
		t.Errorf("usages out of order: %v %v %v", usages[0].Name, usages[1].Name, usages[2].Name)
	}

	if summary.TotalProfiles != 3 || summary.ActiveProfiles != 2 {
		t.Errorf("summary counts = %d/%d, want 3/2", summary.TotalProfiles, summary.ActiveProfiles)
	}
	if summary.TotalTokens != 11000 {
		t.Errorf("TotalTokens = %d, want 11000", summary.TotalTokens)
	}
	if summary.RecommendedProfile == nil {
		t.Fatal("expected a recommended profile")
	}
	// beta burns slower, so it has more headroom.
	if summary.RecommendedProfile.Name != "beta" {
		t.Errorf("recommended = %s, want beta", summary.RecommendedProfile.Name)
	}
}

func TestSummarizeEmpty(t *testing.T) {
	summary := Summarize(nil)
	if summary.TotalProfiles != 0 || summary.RecommendedProfile != nil {
		t.Errorf("unexpected summary: %+v", summary)
	}
}
