package model

import "time"

// UsageRecord is a single normalized usage entry parsed from a Claude Code
// JSONL log. Timestamps are UTC. Cost is resolved at parse time, either from
// the log line itself or from the pricing table.
type UsageRecord struct {
	Timestamp           time.Time
	InputTokens         int64
	OutputTokens        int64
	CacheCreationTokens int64
	CacheReadTokens     int64
	TotalTokens         int64
	Cost                float64
	Model               string
}

// SessionBlock is a 5-hour billing window aggregated from usage records.
// StartTime is always floored to the top of an hour. Aggregate fields are
// derived from the member records; TotalTokens is recomputed from the four
// token categories rather than trusted from the input.
type SessionBlock struct {
	StartTime           time.Time `json:"start_time"`
	EndTime             time.Time `json:"end_time"`
	IsActive            bool      `json:"is_active"`
	InputTokens         int64     `json:"input_tokens"`
	OutputTokens        int64     `json:"output_tokens"`
	CacheCreationTokens int64     `json:"cache_creation_tokens"`
	CacheReadTokens     int64     `json:"cache_read_tokens"`
	TotalTokens         int64     `json:"total_tokens"`
	TotalCost           float64   `json:"total_cost"`
	Models              []string  `json:"models"`
	EntryCount          int       `json:"entry_count"`
	BurnRate            *BurnRate `json:"burn_rate,omitempty"`
}

// ActiveAt reports whether now falls inside the block's window
// [StartTime, EndTime). Activity is always re-derived at evaluation time;
// it is never decided when the block is constructed.
func (b *SessionBlock) ActiveAt(now time.Time) bool {
	return !now.Before(b.StartTime) && now.Before(b.EndTime)
}

// BurnRate holds the consumption rate of an active block and its linear
// extrapolation to the end of the 5-hour window.
type BurnRate struct {
	ElapsedMinutes  int64           `json:"elapsed_minutes"`
	TokensPerMinute int64           `json:"tokens_per_minute"`
	CostPerHour     float64         `json:"cost_per_hour"`
	ProjectedTokens int64           `json:"projected_tokens"`
	ProjectedCost   float64         `json:"projected_cost"`
	TimeUntilLimit  *TimeUntilLimit `json:"time_until_limit,omitempty"`
}

// TimeUntilLimit estimates how long until the configured token budget is
// exhausted at the current rate. Minutes saturates at zero once the budget
// is already spent.
type TimeUntilLimit struct {
	Minutes       int64  `json:"minutes"`
	HumanReadable string `json:"human_readable"`
}

// AggregatedUsage is usage rolled up by some calendar key (day or month).
type AggregatedUsage struct {
	Key                 string
	InputTokens         int64
	OutputTokens        int64
	CacheCreationTokens int64
	CacheReadTokens     int64
	TotalTokens         int64
	Cost                float64
	Models              []string
	RecordCount         int
}

// ModelPricing contains per-token pricing for a model.
type ModelPricing struct {
	InputCostPerToken         float64
	OutputCostPerToken        float64
	CacheCreationCostPerToken float64
	CacheReadCostPerToken     float64
}
