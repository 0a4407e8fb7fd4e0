// Package analysis orchestrates the full pipeline: ledger ingestion, holdings
// reconstruction, pricing, valuation, risk metrics and per-symbol attribution,
// assembled into a single cacheable result.
package analysis

import (
	"time"

	"github.com/aristath/hindsight/internal/domain"
	"github.com/aristath/hindsight/internal/modules/attribution"
	"github.com/aristath/hindsight/internal/modules/risk"
)

// Request selects the analysis window.
type Request struct {
	Period string `json:"period"` // 1m, 3m, 6m, ytd, 1y, 2y, 5y, all
}

// Sparkline carries the daily portfolio value series for charting, both raw
// and smoothed with a short simple moving average.
type Sparkline struct {
	Dates    []time.Time `json:"dates" msgpack:"dates"`
	Raw      []float64   `json:"raw" msgpack:"raw"`
	Smoothed []float64   `json:"smoothed" msgpack:"smoothed"`
}

// Summary condenses the attribution table into headline numbers.
type Summary struct {
	BestPerformer  string   `json:"bestPerformer" msgpack:"best_performer"`
	BestReturn     float64  `json:"bestReturn" msgpack:"best_return"`
	WorstPerformer string   `json:"worstPerformer" msgpack:"worst_performer"`
	WorstReturn    float64  `json:"worstReturn" msgpack:"worst_return"`
	WinRate        float64  `json:"winRate" msgpack:"win_rate"`
	AverageAlpha   *float64 `json:"averageAlpha" msgpack:"average_alpha"`
	PositionCount  int      `json:"positionCount" msgpack:"position_count"`
}

// Result is the full analysis output.
type Result struct {
	RunID       string                     `json:"runId" msgpack:"run_id"`
	GeneratedAt time.Time                  `json:"generatedAt" msgpack:"generated_at"`
	Period      string                     `json:"period" msgpack:"period"`
	From        time.Time                  `json:"from" msgpack:"from"`
	To          time.Time                  `json:"to" msgpack:"to"`
	Benchmark   string                     `json:"benchmark" msgpack:"benchmark"`
	Metrics     *risk.Metrics              `json:"metrics" msgpack:"metrics"`
	Sparkline   Sparkline                  `json:"sparkline" msgpack:"sparkline"`
	Stocks      []attribution.SymbolReport `json:"stocks" msgpack:"stocks"`
	Summary     Summary                    `json:"summary" msgpack:"summary"`
	Warnings    []string                   `json:"warnings,omitempty" msgpack:"warnings"`
}

func positionsToMap(positions []domain.Position) map[string]float64 {
	current := make(map[string]float64, len(positions))
	for _, p := range positions {
		if p.Quantity > 0 {
			current[p.Symbol] = p.Quantity
		}
	}
	return current
}
