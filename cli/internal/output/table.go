package output

import (
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"

	"golang.org/x/term"

	"github.com/proboscis/claude-block-checker/internal/model"
	"github.com/samber/lo"
)

const (
	compactThreshold = 100 // Terminal width below which compact mode kicks in
	defaultWidth     = 120
)

// TableOptions controls table display behavior
type TableOptions struct {
	ForceCompact bool
}

// getTerminalWidth returns the current terminal width
func getTerminalWidth() int {
	// Check COLUMNS env var first
	if cols := os.Getenv("COLUMNS"); cols != "" {
		var width int
		if _, err := fmt.Sscanf(cols, "%d", &width); err == nil && width > 0 {
			return width
		}
	}

	if width, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && width > 0 {
		return width
	}

	return defaultWidth
}

// shouldUseCompact determines if compact mode should be used
func shouldUseCompact(opts TableOptions) bool {
	if opts.ForceCompact {
		return true
	}
	return getTerminalWidth() < compactThreshold
}

// FormatNumber formats a number with thousand separators
func FormatNumber(n int64) string {
	if n == 0 {
		return "0"
	}

	str := fmt.Sprintf("%d", n)
	negative := n < 0
	if negative {
		str = str[1:]
	}

	result := ""
	for i, c := range str {
		if i > 0 && (len(str)-i)%3 == 0 {
			result += ","
		}
		result += string(c)
	}

	if negative {
		return "-" + result
	}
	return result
}

// FormatCost formats a cost value as currency
func FormatCost(cost float64) string {
	return fmt.Sprintf("$%.2f", cost)
}

// ShortenModelName converts full model names to short form
// claude-sonnet-4-5-20250929 -> sonnet-4-5
// claude-opus-4-20250514 -> opus-4
func ShortenModelName(name string) string {
	// Pattern: claude-{type}-{version}-{date}
	// e.g., claude-sonnet-4-5-20250929 -> sonnet-4-5
	re := regexp.MustCompile(`^claude-(\w+)-([\d-]+)-(\d{8})$`)
	if matches := re.FindStringSubmatch(name); matches != nil {
		return fmt.Sprintf("%s-%s", matches[1], matches[2])
	}

	// Pattern without date: claude-{type}-{version}
	// e.g., claude-opus-4-5 -> opus-4-5
	re2 := regexp.MustCompile(`^claude-(\w+)-([\d-]+)$`)
	if matches := re2.FindStringSubmatch(name); matches != nil {
		return fmt.Sprintf("%s-%s", matches[1], matches[2])
	}

	// Pattern: anthropic/claude-{type}-{version}
	// e.g., anthropic/claude-opus-4.5 -> opus-4.5
	re3 := regexp.MustCompile(`^anthropic/claude-(\w+)-([\d.]+)$`)
	if matches := re3.FindStringSubmatch(name); matches != nil {
		return fmt.Sprintf("%s-%s", matches[1], matches[2])
	}

	return name
}

// PrintTable prints aggregated usage as a formatted table
func PrintTable(results []model.AggregatedUsage, title string, showTotal bool) {
	PrintTableWithOptions(results, title, showTotal, TableOptions{})
}

// PrintTableWithOptions prints table with display options
func PrintTableWithOptions(results []model.AggregatedUsage, title string, showTotal bool, opts TableOptions) {
	if len(results) == 0 {
		fmt.Println("No usage data found.")
		return
	}

	compact := shouldUseCompact(opts)

	// Calculate key column width
	keyWidth := len(title)
	for _, r := range results {
		if len(r.Key) > keyWidth {
			keyWidth = len(r.Key)
		}
	}
	if keyWidth < 10 {
		keyWidth = 10
	}
	// Cap key width in compact mode
	if compact && keyWidth > 12 {
		keyWidth = 12
	}

	fmt.Println()

	if compact {
		// Compact: Key, Input, Output, Cost
		fmt.Printf("%-*s  %12s  %12s  %10s\n",
			keyWidth, title, "Input", "Output", "Cost")
		fmt.Println(strings.Repeat("─", keyWidth+2+12+2+12+2+10))

		for _, r := range results {
			key := r.Key
			if len(key) > keyWidth {
				key = key[:keyWidth]
			}
			fmt.Printf("%-*s  %12s  %12s  %10s\n",
				keyWidth, key,
				FormatNumber(r.InputTokens),
				FormatNumber(r.OutputTokens),
				FormatCost(r.Cost))
		}

		if showTotal && len(results) > 1 {
			fmt.Println(strings.Repeat("─", keyWidth+2+12+2+12+2+10))

			total := sumResults(results)
			fmt.Printf("%-*s  %12s  %12s  %10s\n",
				keyWidth, "Total",
				FormatNumber(total.InputTokens),
				FormatNumber(total.OutputTokens),
				FormatCost(total.Cost))
		}

		fmt.Println()
		fmt.Println("(Compact mode - expand terminal for full view)")
	} else {
		// Full: Key, Input, Output, Cache Create, Cache Read, Cost
		fmt.Printf("%-*s  %12s  %12s  %14s  %14s  %10s\n",
			keyWidth, title, "Input", "Output", "Cache Create", "Cache Read", "Cost")
		fmt.Println(strings.Repeat("─", keyWidth+2+12+2+12+2+14+2+14+2+10))

		for _, r := range results {
			fmt.Printf("%-*s  %12s  %12s  %14s  %14s  %10s\n",
				keyWidth, r.Key,
				FormatNumber(r.InputTokens),
				FormatNumber(r.OutputTokens),
				FormatNumber(r.CacheCreationTokens),
				FormatNumber(r.CacheReadTokens),
				FormatCost(r.Cost))
		}

		if showTotal && len(results) > 1 {
			fmt.Println(strings.Repeat("─", keyWidth+2+12+2+12+2+14+2+14+2+10))

			total := sumResults(results)
			fmt.Printf("%-*s  %12s  %12s  %14s  %14s  %10s\n",
				keyWidth, "Total",
				FormatNumber(total.InputTokens),
				FormatNumber(total.OutputTokens),
				FormatNumber(total.CacheCreationTokens),
				FormatNumber(total.CacheReadTokens),
				FormatCost(total.Cost))
		}

		fmt.Println()
	}
}

// PrintTableWithBreakdown prints table with per-model breakdown
func PrintTableWithBreakdown(results []model.AggregatedUsage, title string) {
	PrintTableWithBreakdownOpts(results, title, TableOptions{})
}

// PrintTableWithBreakdownOpts prints table with breakdown and options
func PrintTableWithBreakdownOpts(results []model.AggregatedUsage, title string, opts TableOptions) {
	PrintTableWithOptions(results, title, true, opts)

	// Print model breakdown with shortened names
	modelsMap := make(map[string]bool)
	for _, r := range results {
		for _, m := range r.Models {
			modelsMap[ShortenModelName(m)] = true
		}
	}

	if len(modelsMap) > 0 {
		models := lo.Keys(modelsMap)
		sort.Strings(models)

		fmt.Println("Models used:")
		for _, m := range models {
			fmt.Printf("  - %s\n", m)
		}
		fmt.Println()
	}
}

func sumResults(results []model.AggregatedUsage) model.AggregatedUsage {
	var total model.AggregatedUsage
	for _, r := range results {
		total.InputTokens += r.InputTokens
		total.OutputTokens += r.OutputTokens
		total.CacheCreationTokens += r.CacheCreationTokens
		total.CacheReadTokens += r.CacheReadTokens
		total.TotalTokens += r.TotalTokens
		total.Cost += r.Cost
		total.RecordCount += r.RecordCount
	}
	return total
}

// JSONOutput represents the JSON output structure
type JSONOutput struct {
	Results []JSONResult `json:"results"`
	Total   JSONResult   `json:"total"`
}

// JSONResult represents a single result in JSON format
type JSONResult struct {
	Key                 string   `json:"key"`
	InputTokens         int64    `json:"input_tokens"`
	OutputTokens        int64    `json:"output_tokens"`
	CacheCreationTokens int64    `json:"cache_creation_tokens"`
	CacheReadTokens     int64    `json:"cache_read_tokens"`
	TotalTokens         int64    `json:"total_tokens"`
	Cost                float64  `json:"cost"`
	Models              []string `json:"models,omitempty"`
}

// PrintJSON outputs results as JSON
func PrintJSON(results []model.AggregatedUsage) {
	output := JSONOutput{
		Results: make([]JSONResult, len(results)),
	}

	modelsMap := make(map[string]bool)
	for i, r := range results {
		output.Results[i] = toJSONResult(r)
		output.Results[i].Key = r.Key
		for _, m := range r.Models {
			modelsMap[m] = true
		}
	}

	total := sumResults(results)
	output.Total = toJSONResult(total)
	output.Total.Key = "total"
	models := lo.Keys(modelsMap)
	sort.Strings(models)
	output.Total.Models = models

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	encoder.Encode(output)
}

func toJSONResult(r model.AggregatedUsage) JSONResult {
	return JSONResult{
		InputTokens:         r.InputTokens,
		OutputTokens:        r.OutputTokens,
		CacheCreationTokens: r.CacheCreationTokens,
		CacheReadTokens:     r.CacheReadTokens,
		TotalTokens:         r.TotalTokens,
		Cost:                r.Cost,
		Models:              r.Models,
	}
}
