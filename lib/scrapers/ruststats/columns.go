package ruststats

import (
	"log/slog"

	"ruststats-backend/lib/textutil"

	"github.com/antzucaro/matchr"
)

// ColumnMapping is a tab's resolved metric layout, valid for the remainder
// of a scrape pass once non-empty.
type ColumnMapping struct {
	ColumnMap map[string]int
	Metrics   []string
}

func (m ColumnMapping) Empty() bool {
	return len(m.ColumnMap) == 0
}

// identity-bearing columns that never become metrics in generic mode
var identityHeaders = map[string]bool{
	"player":  true,
	"name":    true,
	"steamid": true,
}

// MapColumns resolves metric labels to column indices from live header
// texts. A nil spec maps generically: every header outside the identity
// skip-set becomes a metric, in header order. In pattern mode each metric
// takes the first header whose whitespace-normalized text matches any of
// its patterns; unmatched metrics are simply absent.
func MapColumns(headers []string, spec []MetricPattern) ColumnMapping {
	if spec == nil {
		return mapGeneric(headers)
	}

	mapping := ColumnMapping{ColumnMap: map[string]int{}}
	for _, metric := range spec {
		for i, header := range headers {
			normalized := textutil.NormalizeHeader(header)
			matched := false
			for _, p := range metric.Patterns {
				if p.MatchString(normalized) {
					matched = true
					break
				}
			}
			if matched {
				mapping.ColumnMap[metric.Label] = i
				mapping.Metrics = append(mapping.Metrics, metric.Label)
				break
			}
		}
	}
	return mapping
}

func mapGeneric(headers []string) ColumnMapping {
	mapping := ColumnMapping{ColumnMap: map[string]int{}}
	for i, header := range headers {
		label := textutil.NormalizeHeader(header)
		if label == "" || identityHeaders[textutil.NormalizeName(label)] {
			continue
		}
		if _, taken := mapping.ColumnMap[label]; taken {
			continue
		}
		mapping.ColumnMap[label] = i
		mapping.Metrics = append(mapping.Metrics, label)
	}
	return mapping
}

// MapColumnsExact is the last rung of the escalation ladder: plain
// case-insensitive equality between header text and configured labels.
func MapColumnsExact(headers []string, spec []MetricPattern) ColumnMapping {
	mapping := ColumnMapping{ColumnMap: map[string]int{}}
	for _, metric := range spec {
		want := textutil.NormalizeName(metric.Label)
		for i, header := range headers {
			if textutil.NormalizeName(header) == want {
				mapping.ColumnMap[metric.Label] = i
				mapping.Metrics = append(mapping.Metrics, metric.Label)
				break
			}
		}
	}
	return mapping
}

// logUnmatchedMetrics reports the nearest live header for each configured
// metric that failed to map, so a layout change on the site is diagnosable
// from logs alone.
func logUnmatchedMetrics(tab string, headers []string, spec []MetricPattern) {
	for _, metric := range spec {
		nearest := ""
		var best float64
		for _, header := range headers {
			sim := matchr.JaroWinkler(metric.Label, textutil.NormalizeHeader(header), false)
			if sim > best {
				best = sim
				nearest = header
			}
		}
		slog.Warn(
			"metric failed to map to any column",
			"tab", tab,
			"metric", metric.Label,
			"nearest_header", nearest,
		)
	}
}
