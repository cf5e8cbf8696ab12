// Package parser turns raw Claude Code JSONL logs into sorted usage records.
package parser

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/proboscis/claude-block-checker/internal/logger"
	"github.com/proboscis/claude-block-checker/internal/model"
	"github.com/proboscis/claude-block-checker/internal/pricing"
)

// rawEntry is the wire shape of a single JSONL log line. Message and Usage
// are pointers so a line that lacks them is distinguishable from one with
// zero counts.
type rawEntry struct {
	Timestamp string      `json:"timestamp"`
	Model     string      `json:"model"`
	CostUSD   *float64    `json:"costUSD"`
	Message   *rawMessage `json:"message"`
}

type rawMessage struct {
	Model string    `json:"model"`
	Usage *rawUsage `json:"usage"`
}

type rawUsage struct {
	InputTokens              int64 `json:"input_tokens"`
	OutputTokens             int64 `json:"output_tokens"`
	CacheCreationInputTokens int64 `json:"cache_creation_input_tokens"`
	CacheReadInputTokens     int64 `json:"cache_read_input_tokens"`
}

// Issue records one unparsable line or unreadable file seen during a load.
type Issue struct {
	File string
	Line int
	Err  error
}

func (i Issue) String() string {
	if i.Line > 0 {
		return fmt.Sprintf("%s:%d: %v", i.File, i.Line, i.Err)
	}
	return fmt.Sprintf("%s: %v", i.File, i.Err)
}

// Options controls how a load run treats bad input.
type Options struct {
	Policy  ErrorPolicy
	Workers int // parallel file parsers; <= 0 means a sensible default
}

// FindUsageFiles returns every .jsonl file under projectsDir.
func FindUsageFiles(projectsDir string) ([]string, error) {
	var files []string
	err := filepath.Walk(projectsDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && filepath.Ext(path) == ".jsonl" {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scanning %s: %w", projectsDir, err)
	}
	sort.Strings(files)
	return files, nil
}

// LoadRecords parses every JSONL file under projectsDir and returns the
// records sorted by ascending timestamp, ready for block segmentation.
// Files parse concurrently; results merge in path order so the output is
// deterministic. The returned issues are only populated under PolicyCollect.
func LoadRecords(projectsDir string, prices pricing.Table, opts Options) ([]model.UsageRecord, []Issue, error) {
	files, err := FindUsageFiles(projectsDir)
	if err != nil {
		return nil, nil, err
	}

	type fileResult struct {
		records []model.UsageRecord
		issues  []Issue
		err     error
	}

	results := make([]fileResult, len(files))
	parallelFiles(files, opts.Workers, func(i int, path string) {
		records, issues, err := ParseFile(path, prices, opts.Policy)
		results[i] = fileResult{records: records, issues: issues, err: err}
	})

	var records []model.UsageRecord
	var issues []Issue
	for _, r := range results {
		if r.err != nil {
			return nil, nil, r.err
		}
		records = append(records, r.records...)
		issues = append(issues, r.issues...)
	}

	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Timestamp.Before(records[j].Timestamp)
	})

	return records, issues, nil
}

// ParseFile parses a single JSONL file.
func ParseFile(path string, prices pricing.Table, policy ErrorPolicy) ([]model.UsageRecord, []Issue, error) {
	file, err := os.Open(path)
	if err != nil {
		if policy == PolicyFail {
			return nil, nil, fmt.Errorf("opening %s: %w", path, err)
		}
		logger.Warn("skipping unreadable file", "path", path, "error", err)
		if policy == PolicyCollect {
			return nil, []Issue{{File: path, Err: err}}, nil
		}
		return nil, nil, nil
	}
	defer file.Close()

	var records []model.UsageRecord
	var issues []Issue

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		record, ok, err := parseLine(line, prices)
		if err != nil {
			switch policy {
			case PolicyFail:
				return nil, nil, fmt.Errorf("%s:%d: %w", path, lineNum, err)
			case PolicyCollect:
				issues = append(issues, Issue{File: path, Line: lineNum, Err: err})
			default:
				logger.Debug("skipping unparsable line", "path", path, "line", lineNum, "error", err)
			}
			continue
		}
		if !ok {
			// Valid line with nothing to meter (no model); not an error.
			continue
		}
		records = append(records, record)
	}

	if err := scanner.Err(); err != nil {
		if policy == PolicyFail {
			return nil, nil, fmt.Errorf("reading %s: %w", path, err)
		}
		logger.Warn("stopped reading file early", "path", path, "error", err)
		if policy == PolicyCollect {
			issues = append(issues, Issue{File: path, Line: lineNum, Err: err})
		}
	}

	return records, issues, nil
}

// parseLine decodes one JSONL line into a usage record. The second return
// is false when the line is valid but carries no meterable usage.
func parseLine(line []byte, prices pricing.Table) (model.UsageRecord, bool, error) {
	var raw rawEntry
	if err := json.Unmarshal(line, &raw); err != nil {
		return model.UsageRecord{}, false, fmt.Errorf("invalid JSON: %w", err)
	}

	if raw.Message == nil || raw.Message.Usage == nil {
		return model.UsageRecord{}, false, fmt.Errorf("missing message usage")
	}

	timestamp, err := time.Parse(time.RFC3339, raw.Timestamp)
	if err != nil {
		return model.UsageRecord{}, false, fmt.Errorf("invalid timestamp: %w", err)
	}

	modelName := raw.Model
	if modelName == "" {
		modelName = raw.Message.Model
	}
	if modelName == "" || modelName == "unknown" {
		return model.UsageRecord{}, false, nil
	}

	usage := raw.Message.Usage
	record := model.UsageRecord{
		Timestamp:           timestamp.UTC(),
		InputTokens:         usage.InputTokens,
		OutputTokens:        usage.OutputTokens,
		CacheCreationTokens: usage.CacheCreationInputTokens,
		CacheReadTokens:     usage.CacheReadInputTokens,
		TotalTokens: usage.InputTokens + usage.OutputTokens +
			usage.CacheCreationInputTokens + usage.CacheReadInputTokens,
		Model: modelName,
	}

	if raw.CostUSD != nil {
		record.Cost = *raw.CostUSD
	} else {
		record.Cost = pricing.CalculateCost(
			record.InputTokens, record.OutputTokens,
			record.CacheCreationTokens, record.CacheReadTokens,
			prices.For(modelName))
	}

	return record, true, nil
}
