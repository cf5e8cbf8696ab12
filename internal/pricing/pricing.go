// Package pricing resolves per-token model prices, used to backfill costs
// for log lines that carry no costUSD field.
package pricing

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/proboscis/claude-block-checker/internal/logger"
	"github.com/proboscis/claude-block-checker/internal/model"
)

const liteLLMPricingURL = "https://raw.githubusercontent.com/BerriAI/litellm/main/model_prices_and_context_window.json"

// Table maps model names to per-token pricing.
type Table map[string]model.ModelPricing

// liteLLMModel is the pricing structure published by LiteLLM.
type liteLLMModel struct {
	InputCostPerToken  float64 `json:"input_cost_per_token"`
	OutputCostPerToken float64 `json:"output_cost_per_token"`
	CacheCreationCost  float64 `json:"cache_creation_input_token_cost"`
	CacheReadCost      float64 `json:"cache_read_input_token_cost"`
	LiteLLMProvider    string  `json:"litellm_provider"`
}

// Load returns the pricing table. With offline set it always uses the
// embedded data; otherwise it tries the LiteLLM price sheet once and falls
// back to the embedded data on any failure. Load is called once per run,
// before the record suppliers start.
func Load(offline bool) Table {
	if offline {
		return Embedded()
	}

	table, err := fetch()
	if err != nil {
		logger.Debug("pricing fetch failed, using embedded table", "error", err)
		return Embedded()
	}
	return table
}

func fetch() (Table, error) {
	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Get(liteLLMPricingURL)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d from pricing source", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var raw map[string]liteLLMModel
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, err
	}

	table := make(Table)
	for name, data := range raw {
		if data.LiteLLMProvider != "anthropic" {
			continue
		}
		table[name] = model.ModelPricing{
			InputCostPerToken:         data.InputCostPerToken,
			OutputCostPerToken:        data.OutputCostPerToken,
			CacheCreationCostPerToken: data.CacheCreationCost,
			CacheReadCostPerToken:     data.CacheReadCost,
		}
	}
	return table, nil
}

// Embedded returns the bundled fallback pricing data.
func Embedded() Table {
	return Table{
		"claude-opus-4-5-20251101": {
			InputCostPerToken:         5e-06,
			OutputCostPerToken:        2.5e-05,
			CacheCreationCostPerToken: 6.25e-06,
			CacheReadCostPerToken:     5e-07,
		},
		"claude-opus-4-1-20250805": {
			InputCostPerToken:         1.5e-05,
			OutputCostPerToken:        7.5e-05,
			CacheCreationCostPerToken: 1.875e-05,
			CacheReadCostPerToken:     1.5e-06,
		},
		"claude-opus-4-20250514": {
			InputCostPerToken:         1.5e-05,
			OutputCostPerToken:        7.5e-05,
			CacheCreationCostPerToken: 1.875e-05,
			CacheReadCostPerToken:     1.5e-06,
		},
		"claude-sonnet-4-5-20250929": {
			InputCostPerToken:         3e-06,
			OutputCostPerToken:        1.5e-05,
			CacheCreationCostPerToken: 3.75e-06,
			CacheReadCostPerToken:     3e-07,
		},
		"claude-sonnet-4-20250514": {
			InputCostPerToken:         3e-06,
			OutputCostPerToken:        1.5e-05,
			CacheCreationCostPerToken: 3.75e-06,
			CacheReadCostPerToken:     3e-07,
		},
		"claude-3-7-sonnet-20250219": {
			InputCostPerToken:         3e-06,
			OutputCostPerToken:        1.5e-05,
			CacheCreationCostPerToken: 3.75e-06,
			CacheReadCostPerToken:     3e-07,
		},
		"claude-3-5-sonnet-20241022": {
			InputCostPerToken:         3e-06,
			OutputCostPerToken:        1.5e-05,
			CacheCreationCostPerToken: 3.75e-06,
			CacheReadCostPerToken:     3e-07,
		},
		"claude-haiku-4-5-20251001": {
			InputCostPerToken:         1e-06,
			OutputCostPerToken:        5e-06,
			CacheCreationCostPerToken: 1.25e-06,
			CacheReadCostPerToken:     1e-07,
		},
		"claude-3-5-haiku-20241022": {
			InputCostPerToken:         8e-07,
			OutputCostPerToken:        4e-06,
			CacheCreationCostPerToken: 1e-06,
			CacheReadCostPerToken:     8e-08,
		},
		"claude-3-opus-20240229": {
			InputCostPerToken:         1.5e-05,
			OutputCostPerToken:        7.5e-05,
			CacheCreationCostPerToken: 1.875e-05,
			CacheReadCostPerToken:     1.5e-06,
		},
	}
}

// sonnetDefault is the catch-all rate for unrecognized models.
var sonnetDefault = model.ModelPricing{
	InputCostPerToken:         3e-06,
	OutputCostPerToken:        1.5e-05,
	CacheCreationCostPerToken: 3.75e-06,
	CacheReadCostPerToken:     3e-07,
}

var familyDefaults = map[string]model.ModelPricing{
	"opus": {
		InputCostPerToken:         1.5e-05,
		OutputCostPerToken:        7.5e-05,
		CacheCreationCostPerToken: 1.875e-05,
		CacheReadCostPerToken:     1.5e-06,
	},
	"haiku": {
		InputCostPerToken:         1e-06,
		OutputCostPerToken:        5e-06,
		CacheCreationCostPerToken: 1.25e-06,
		CacheReadCostPerToken:     1e-07,
	},
}

// For resolves pricing for a model name: exact match, then normalized-name
// match, then model-family fallback (sonnet rates as the default).
func (t Table) For(modelName string) model.ModelPricing {
	if p, ok := t[modelName]; ok {
		return p
	}

	normalized := normalizeModelName(modelName)
	for name, p := range t {
		if normalizeModelName(name) == normalized {
			return p
		}
	}

	for family, p := range familyDefaults {
		if strings.Contains(modelName, family) {
			return p
		}
	}

	logger.Warn("unknown model, using default pricing", "model", modelName)
	return sonnetDefault
}

// normalizeModelName strips separators so dated and undated variants of the
// same model compare equal.
func normalizeModelName(name string) string {
	name = strings.ToLower(name)
	name = strings.ReplaceAll(name, "-", "")
	name = strings.ReplaceAll(name, "_", "")
	return name
}

// CalculateCost prices a set of token counts.
func CalculateCost(input, output, cacheCreation, cacheRead int64, p model.ModelPricing) float64 {
	cost := float64(input) * p.InputCostPerToken
	cost += float64(output) * p.OutputCostPerToken
	cost += float64(cacheCreation) * p.CacheCreationCostPerToken
	cost += float64(cacheRead) * p.CacheReadCostPerToken
	return cost
}
