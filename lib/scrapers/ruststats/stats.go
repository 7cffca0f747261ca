package ruststats

import (
	"context"
	"log/slog"
	"math"
	"strconv"
	"time"

	"ruststats-backend/lib/textutil"
)

const tooltipTimeout = 2 * time.Second

func parseCell(display string) float64 {
	numeric, ok := textutil.NumericValue(display)
	if !ok {
		return 0
	}
	value, err := strconv.ParseFloat(numeric, 64)
	if err != nil {
		return 0
	}
	return value
}

func derivedFor(tab *TabSpec, label string) *DerivedMetric {
	for i := range tab.Derived {
		if tab.Derived[i].Label == label {
			return &tab.Derived[i]
		}
	}
	return nil
}

// extractStats reads every mapped metric off a located row. Plain metrics
// are the cell text with everything outside [0-9.] stripped; derived
// metrics come from a hover tooltip with a plain-read fallback. After the
// row is read, recomputation rules run and override tooltip values.
func extractStats(ctx context.Context, row Row, tab *TabSpec, mapping ColumnMapping) (PlayerStats, error) {
	stats := PlayerStats{}

	for _, label := range mapping.Metrics {
		column := mapping.ColumnMap[label]

		derived := derivedFor(tab, label)
		if derived == nil {
			display, err := row.CellText(ctx, column)
			if err != nil {
				return nil, err
			}
			stats[label] = parseCell(display)
			continue
		}

		value, err := readDerived(ctx, row, derived, mapping, column)
		if err != nil {
			return nil, err
		}
		stats[label] = value
	}

	// derived metrics whose column never mapped still get a value: the
	// recompute rule may fill it in, otherwise it stays 0
	for _, derived := range tab.Derived {
		if _, ok := stats[derived.Label]; !ok {
			stats[derived.Label] = 0
		}
	}

	recompute(tab, stats)
	return stats, nil
}

func readDerived(ctx context.Context, row Row, derived *DerivedMetric, mapping ColumnMapping, column int) (float64, error) {
	text, ok, err := row.TooltipText(ctx, column, derived.TooltipSelectors, tooltipTimeout)
	if err != nil {
		return 0, err
	}
	if ok {
		return parseCell(text), nil
	}

	slog.Debug("no tooltip appeared, falling back to plain cell read", "metric", derived.Label)
	fallback := column
	if derived.FallbackLabel != "" {
		if c, ok := mapping.ColumnMap[derived.FallbackLabel]; ok {
			fallback = c
		}
	}
	display, err := row.CellText(ctx, fallback)
	if err != nil {
		return 0, err
	}
	return parseCell(display), nil
}

// recompute overrides derived metrics from their numerator/denominator
// pairs whenever the denominator was actually read and is positive. The
// tooltip value (or 0) stands otherwise.
func recompute(tab *TabSpec, stats PlayerStats) {
	for _, derived := range tab.Derived {
		if derived.NumeratorLabel == "" || derived.DenominatorLabel == "" {
			continue
		}
		numerator, haveNum := stats[derived.NumeratorLabel]
		denominator, haveDen := stats[derived.DenominatorLabel]
		if !haveNum || !haveDen || denominator <= 0 {
			continue
		}
		stats[derived.Label] = math.Round(numerator/denominator*100*100) / 100
	}
}
