// Package report composes per-profile block reports from the parsing,
// segmentation and projection layers.
package report

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/proboscis/claude-block-checker/internal/blocks"
	"github.com/proboscis/claude-block-checker/internal/logger"
	"github.com/proboscis/claude-block-checker/internal/model"
	"github.com/proboscis/claude-block-checker/internal/parser"
	"github.com/proboscis/claude-block-checker/internal/pricing"
)

// ProfileUsage is the value reported for one profile: its active block, if
// any, and the headline numbers derived from it.
type ProfileUsage struct {
	Name              string              `json:"name"`
	ActiveBlock       *model.SessionBlock `json:"active_block"`
	TotalTokens       int64               `json:"total_tokens"`
	TotalCost         float64             `json:"total_cost"`
	ModelsUsed        []string            `json:"models_used"`
	MinutesUntilLimit *int64              `json:"minutes_until_limit,omitempty"`
}

// Recommendation names the profile with the most headroom.
type Recommendation struct {
	Name              string `json:"name"`
	MinutesUntilLimit int64  `json:"minutes_until_limit"`
}

// Summary aggregates an all-profiles run.
type Summary struct {
	TotalProfiles      int             `json:"total_profiles"`
	ActiveProfiles     int             `json:"active_profiles"`
	TotalTokens        int64           `json:"total_tokens"`
	TotalCost          float64         `json:"total_cost"`
	RecommendedProfile *Recommendation `json:"recommended_profile,omitempty"`
}

// Checker checks profiles against a single now snapshot so every activity
// and projection decision within one report is mutually consistent.
type Checker struct {
	ProfilesDir  string
	Prices       pricing.Table
	ParseOptions parser.Options
	TokenBudget  int64
	Now          time.Time
	Workers      int // concurrent profile checks; <= 0 means 4
}

// ListProfiles returns the non-hidden profile directory names, sorted.
// A missing profiles directory is a hard failure.
func (c *Checker) ListProfiles() ([]string, error) {
	entries, err := os.ReadDir(c.ProfilesDir)
	if err != nil {
		return nil, fmt.Errorf("reading profiles directory: %w", err)
	}

	var names []string
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		name := entry.Name()
		if name == "" || name[0] == '.' {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// LoadProfileRecords returns one profile's sorted usage records. A profile
// with no projects directory yields no records, mirroring a profile that
// has simply never been used.
func (c *Checker) LoadProfileRecords(name string) ([]model.UsageRecord, error) {
	profilePath := filepath.Join(c.ProfilesDir, name)
	if _, err := os.Stat(profilePath); err != nil {
		return nil, fmt.Errorf("profile %q: %w", name, err)
	}

	projectsDir := filepath.Join(profilePath, "projects")
	if _, err := os.Stat(projectsDir); os.IsNotExist(err) {
		return nil, nil
	}

	records, issues, err := parser.LoadRecords(projectsDir, c.Prices, c.ParseOptions)
	if err != nil {
		return nil, fmt.Errorf("profile %q: %w", name, err)
	}
	for _, issue := range issues {
		logger.Warn("parse issue", "profile", name, "detail", issue.String())
	}

	return records, nil
}

// CheckProfile builds the usage view for one profile. Burn rate is always
// computed for the active block with the one canonical formula; whether it
// is shown in detail is purely a rendering decision.
func (c *Checker) CheckProfile(name string) (ProfileUsage, error) {
	usage := ProfileUsage{Name: name}

	records, err := c.LoadProfileRecords(name)
	if err != nil {
		return usage, err
	}
	if len(records) == 0 {
		return usage, nil
	}

	segmented := blocks.Segment(records)
	blocks.MarkActive(segmented, c.Now)

	active := blocks.FindActive(segmented, c.Now)
	if active == nil {
		return usage, nil
	}

	active.BurnRate = blocks.Project(active, c.Now, c.TokenBudget)

	usage.ActiveBlock = active
	usage.TotalTokens = active.TotalTokens
	usage.TotalCost = active.TotalCost
	usage.ModelsUsed = active.Models
	if active.BurnRate != nil && active.BurnRate.TimeUntilLimit != nil {
		minutes := active.BurnRate.TimeUntilLimit.Minutes
		usage.MinutesUntilLimit = &minutes
	}

	return usage, nil
}

// CheckAll checks every profile concurrently and merges the results in name
// order. Profiles that fail to load are logged and excluded rather than
// failing the whole run.
func (c *Checker) CheckAll() ([]ProfileUsage, Summary, error) {
	names, err := c.ListProfiles()
	if err != nil {
		return nil, Summary{}, err
	}

	type result struct {
		usage ProfileUsage
		err   error
	}
	results := make([]result, len(names))

	workers := c.Workers
	if workers <= 0 {
		workers = 4
	}
	if workers > len(names) {
		workers = len(names)
	}

	sem := make(chan struct{}, max(workers, 1))
	var wg sync.WaitGroup
	for i, name := range names {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, name string) {
			defer wg.Done()
			defer func() { <-sem }()
			usage, err := c.CheckProfile(name)
			results[i] = result{usage: usage, err: err}
		}(i, name)
	}
	wg.Wait()

	var usages []ProfileUsage
	for i, r := range results {
		if r.err != nil {
			logger.Error("profile check failed", "profile", names[i], "error", r.err)
			continue
		}
		usages = append(usages, r.usage)
	}

	return usages, Summarize(usages), nil
}

// Summarize folds profile views into the run summary, including the profile
// with the most minutes of headroom left.
func Summarize(usages []ProfileUsage) Summary {
	summary := Summary{TotalProfiles: len(usages)}

	var best *ProfileUsage
	for i := range usages {
		u := &usages[i]
		if u.ActiveBlock == nil {
			continue
		}
		summary.ActiveProfiles++
		summary.TotalTokens += u.TotalTokens
		summary.TotalCost += u.TotalCost

		if u.MinutesUntilLimit == nil {
			continue
		}
		if best == nil || *u.MinutesUntilLimit > *best.MinutesUntilLimit {
			best = u
		}
	}

	if best != nil {
		summary.RecommendedProfile = &Recommendation{
			Name:              best.Name,
			MinutesUntilLimit: *best.MinutesUntilLimit,
		}
	}

	return summary
}
