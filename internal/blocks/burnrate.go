package blocks

import (
	"fmt"
	"time"

	"github.com/proboscis/claude-block-checker/internal/model"
)

// blockMinutes is the window length in whole minutes.
const blockMinutes = int64(BlockDuration / time.Minute)

// Project computes the burn rate of an active block at the instant now and
// extrapolates it linearly to the end of the window. It returns nil when
// less than two whole minutes have elapsed; rates below that are noise.
// tokenBudget is injected configuration; a zero or negative budget disables
// the time-until-limit estimate. Project never fails: degenerate inputs are
// handled by omitting optional fields, not by returning errors.
func Project(b *model.SessionBlock, now time.Time, tokenBudget int64) *model.BurnRate {
	elapsed := int64(now.Sub(b.StartTime) / time.Minute)
	if elapsed <= 1 {
		return nil
	}

	tokensPerMinute := b.TotalTokens / elapsed
	costPerHour := b.TotalCost / float64(elapsed) * 60

	// Past the nominal window end there is nothing left to extrapolate;
	// projections equal the actuals.
	projectedTokens := b.TotalTokens
	projectedCost := b.TotalCost
	if remaining := blockMinutes - elapsed; remaining > 0 {
		projectedTokens += tokensPerMinute * remaining
		projectedCost += costPerHour * float64(remaining) / 60
	}

	rate := &model.BurnRate{
		ElapsedMinutes:  elapsed,
		TokensPerMinute: tokensPerMinute,
		CostPerHour:     costPerHour,
		ProjectedTokens: projectedTokens,
		ProjectedCost:   projectedCost,
	}

	if tokensPerMinute > 0 && tokenBudget > 0 {
		remaining := tokenBudget - b.TotalTokens
		if remaining < 0 {
			remaining = 0
		}
		minutes := remaining / tokensPerMinute
		rate.TimeUntilLimit = &model.TimeUntilLimit{
			Minutes:       minutes,
			HumanReadable: FormatMinutes(minutes),
		}
	}

	return rate
}

// FormatMinutes renders a minute count as "Xh Ym", or "Ym" under an hour.
func FormatMinutes(minutes int64) string {
	if minutes >= 60 {
		return fmt.Sprintf("%dh %dm", minutes/60, minutes%60)
	}
	return fmt.Sprintf("%dm", minutes)
}
