// Package blocks segments an ordered usage-record stream into 5-hour billing
// windows and projects the consumption rate of the currently active window.
package blocks

import (
	"sort"
	"time"

	"github.com/samber/lo"

	"github.com/proboscis/claude-block-checker/internal/model"
)

// BlockDuration is the fixed length of a billing window.
const BlockDuration = 5 * time.Hour

// Segment partitions records into non-overlapping session blocks. Records
// must be sorted by ascending timestamp; Segment does not re-verify the
// order. A block opens at the first record's hour boundary and admits every
// record whose offset from that boundary is under five hours. The anchor is
// the block start, not the previous record, so idle gaps inside a window
// never split it. The result is a pure function of the input: no wall clock
// is read and IsActive is left unset.
func Segment(records []model.UsageRecord) []model.SessionBlock {
	if len(records) == 0 {
		return nil
	}

	var result []model.SessionBlock
	var start time.Time
	var members []model.UsageRecord

	for _, r := range records {
		if members == nil {
			start = floorToHour(r.Timestamp)
			members = []model.UsageRecord{r}
			continue
		}

		if r.Timestamp.Sub(start) < BlockDuration {
			members = append(members, r)
			continue
		}

		result = append(result, closeBlock(start, members))
		start = floorToHour(r.Timestamp)
		members = []model.UsageRecord{r}
	}

	result = append(result, closeBlock(start, members))
	return result
}

// floorToHour zeroes minutes, seconds and sub-second components, keeping the
// date and hour. Timestamps are UTC by the time they reach the segmenter.
func floorToHour(t time.Time) time.Time {
	return t.Truncate(time.Hour)
}

// closeBlock folds member records into an immutable session block.
func closeBlock(start time.Time, members []model.UsageRecord) model.SessionBlock {
	b := model.SessionBlock{
		StartTime:  start,
		EndTime:    start.Add(BlockDuration),
		EntryCount: len(members),
	}

	seen := make(map[string]struct{})
	for _, r := range members {
		b.InputTokens += r.InputTokens
		b.OutputTokens += r.OutputTokens
		b.CacheCreationTokens += r.CacheCreationTokens
		b.CacheReadTokens += r.CacheReadTokens
		b.TotalCost += r.Cost
		seen[r.Model] = struct{}{}
	}
	b.TotalTokens = b.InputTokens + b.OutputTokens + b.CacheCreationTokens + b.CacheReadTokens

	b.Models = lo.Keys(seen)
	sort.Strings(b.Models)

	return b
}

// MarkActive stamps each block's IsActive flag against a single now snapshot.
func MarkActive(result []model.SessionBlock, now time.Time) {
	for i := range result {
		result[i].IsActive = result[i].ActiveAt(now)
	}
}

// FindActive returns the block whose window contains now, or nil. Blocks are
// searched rather than assuming the last one: the record stream may have
// stopped long before now. Windows never overlap, so at most one matches.
func FindActive(result []model.SessionBlock, now time.Time) *model.SessionBlock {
	for i := range result {
		if result[i].ActiveAt(now) {
			return &result[i]
		}
	}
	return nil
}
