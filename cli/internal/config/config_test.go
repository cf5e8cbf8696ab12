package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ProfilesDir != filepath.Join(home, "claude-profiles") {
		t.Errorf("profiles dir = %q", cfg.ProfilesDir)
	}
	if cfg.TokenBudget != 0 {
		t.Errorf("token budget = %d, want 0 (unset)", cfg.TokenBudget)
	}
	if cfg.OnParseError != "skip" {
		t.Errorf("on_parse_error = %q, want skip", cfg.OnParseError)
	}
}

func TestLoadFromFile(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	content := "profiles_dir: /srv/profiles\ntoken_budget: 5000000\noffline: true\non_parse_error: collect\n"
	if err := os.WriteFile(filepath.Join(home, ".claude-block-checker.yaml"), []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ProfilesDir != "/srv/profiles" {
		t.Errorf("profiles dir = %q", cfg.ProfilesDir)
	}
	if cfg.TokenBudget != 5000000 {
		t.Errorf("token budget = %d", cfg.TokenBudget)
	}
	if !cfg.Offline {
		t.Error("offline not set")
	}
	if cfg.OnParseError != "collect" {
		t.Errorf("on_parse_error = %q", cfg.OnParseError)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	in := &Config{ProfilesDir: "/data/profiles", TokenBudget: 123456, OnParseError: "fail"}
	if err := Save(in); err != nil {
		t.Fatalf("Save: %v", err)
	}

	out, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if out.ProfilesDir != in.ProfilesDir || out.TokenBudget != in.TokenBudget || out.OnParseError != in.OnParseError {
		t.Errorf("round trip mismatch: %+v", out)
	}
}

func TestLoadBadYAML(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	if err := os.WriteFile(filepath.Join(home, ".claude-block-checker.yaml"), []byte("{nope"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(); err == nil {
		t.Error("Load err = nil, want parse error")
	}
}
