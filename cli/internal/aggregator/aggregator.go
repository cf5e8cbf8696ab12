// Package aggregator rolls usage records up into calendar views.
package aggregator

import (
	"sort"
	"time"

	"github.com/samber/lo"

	"github.com/proboscis/claude-block-checker/internal/model"
)

// Options narrows and localizes an aggregation run.
type Options struct {
	Since    time.Time
	Until    time.Time
	Timezone *time.Location
}

// FilterRecords drops records outside the configured date range.
func FilterRecords(records []model.UsageRecord, opts Options) []model.UsageRecord {
	var filtered []model.UsageRecord
	for _, r := range records {
		ts := localize(r.Timestamp, opts)
		if !opts.Since.IsZero() && ts.Before(opts.Since) {
			continue
		}
		if !opts.Until.IsZero() && ts.After(opts.Until) {
			continue
		}
		filtered = append(filtered, r)
	}
	return filtered
}

// ByDay aggregates usage by calendar day, newest first.
func ByDay(records []model.UsageRecord, opts Options) []model.AggregatedUsage {
	return byTimeKey(records, opts, "2006-01-02")
}

// ByMonth aggregates usage by calendar month, newest first.
func ByMonth(records []model.UsageRecord, opts Options) []model.AggregatedUsage {
	return byTimeKey(records, opts, "2006-01")
}

func byTimeKey(records []model.UsageRecord, opts Options, layout string) []model.AggregatedUsage {
	grouped := make(map[string]*model.AggregatedUsage)
	modelsByKey := make(map[string]map[string]struct{})

	for _, r := range records {
		key := localize(r.Timestamp, opts).Format(layout)

		agg, ok := grouped[key]
		if !ok {
			agg = &model.AggregatedUsage{Key: key}
			grouped[key] = agg
			modelsByKey[key] = make(map[string]struct{})
		}

		agg.InputTokens += r.InputTokens
		agg.OutputTokens += r.OutputTokens
		agg.CacheCreationTokens += r.CacheCreationTokens
		agg.CacheReadTokens += r.CacheReadTokens
		agg.Cost += r.Cost
		agg.RecordCount++
		modelsByKey[key][r.Model] = struct{}{}
	}

	results := make([]model.AggregatedUsage, 0, len(grouped))
	for key, agg := range grouped {
		agg.TotalTokens = agg.InputTokens + agg.OutputTokens + agg.CacheCreationTokens + agg.CacheReadTokens
		agg.Models = lo.Keys(modelsByKey[key])
		sort.Strings(agg.Models)
		results = append(results, *agg)
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].Key > results[j].Key
	})

	return results
}

// CalculateTotal folds a result set into one aggregate row.
func CalculateTotal(results []model.AggregatedUsage) model.AggregatedUsage {
	total := model.AggregatedUsage{Key: "Total"}
	seen := make(map[string]struct{})

	for _, r := range results {
		total.InputTokens += r.InputTokens
		total.OutputTokens += r.OutputTokens
		total.CacheCreationTokens += r.CacheCreationTokens
		total.CacheReadTokens += r.CacheReadTokens
		total.Cost += r.Cost
		total.RecordCount += r.RecordCount
		for _, m := range r.Models {
			seen[m] = struct{}{}
		}
	}

	total.TotalTokens = total.InputTokens + total.OutputTokens + total.CacheCreationTokens + total.CacheReadTokens
	total.Models = lo.Keys(seen)
	sort.Strings(total.Models)

	return total
}

func localize(ts time.Time, opts Options) time.Time {
	if opts.Timezone != nil {
		return ts.In(opts.Timezone)
	}
	return ts
}
