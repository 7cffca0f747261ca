// Package history keeps a sqlite-backed time series of scraped stat values
// so callers can chart a player's progression between wipes.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "embed"

	_ "github.com/tursodatabase/libsql-client-go/libsql"
	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var Schema string

type Store struct {
	db *sql.DB
}

func NewStore(database *sql.DB) (Store, error) {
	_, err := database.Exec(Schema)
	if err != nil {
		return Store{}, fmt.Errorf("failed to apply history schema: %w", err)
	}
	return Store{db: database}, nil
}

type MetricValue struct {
	Metric string
	Value  float64
}

type TabSnapshot struct {
	Tab     string
	Metrics []MetricValue
}

type PlayerSnapshot struct {
	Player string
	Tabs   []TabSnapshot
}

type PushRequest struct {
	Time    time.Time
	Server  string
	Players []PlayerSnapshot
}

// Push records one snapshot row per (player, tab, metric). Snapshots for the
// same player taken earlier the same day are replaced, so scraping more than
// once a day does not inflate the series.
func (s Store) Push(ctx context.Context, req PushRequest) error {
	if len(req.Players) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	loc := req.Time.Location()
	startOfToday := time.Date(req.Time.Year(), req.Time.Month(), req.Time.Day(), 0, 0, 0, 0, loc).Unix()
	startOfTomorrow := time.Date(req.Time.Year(), req.Time.Month(), req.Time.Day()+1, 0, 0, 0, 0, loc).Unix()

	placeholders := make([]string, len(req.Players))
	args := []any{req.Server, startOfToday, startOfTomorrow}
	for i, p := range req.Players {
		placeholders[i] = "?"
		args = append(args, p.Player)
	}
	_, err = tx.ExecContext(ctx, fmt.Sprintf(
		`DELETE FROM stat_snapshot
		WHERE server = ? AND time >= ? AND time < ? AND player IN (%s)`,
		strings.Join(placeholders, ", "),
	), args...)
	if err != nil {
		return err
	}

	insert, err := tx.PrepareContext(ctx,
		`INSERT INTO stat_snapshot (server, player, tab, metric, time, value)
		VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer insert.Close()

	for _, player := range req.Players {
		for _, tab := range player.Tabs {
			for _, metric := range tab.Metrics {
				_, err = insert.ExecContext(ctx,
					req.Server, player.Player, tab.Tab, metric.Metric,
					req.Time.Unix(), metric.Value)
				if err != nil {
					return err
				}
			}
		}
	}
	return tx.Commit()
}

type Snapshot struct {
	Time  time.Time
	Value float64
}

type MetricSeries struct {
	Tab       string
	Metric    string
	Snapshots []Snapshot
}

// Pull returns every metric series recorded for a player on a server,
// snapshots in chronological order.
func (s Store) Pull(ctx context.Context, server, player string) ([]MetricSeries, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT tab, metric, time, value FROM stat_snapshot
		WHERE server = ? AND player = ?
		ORDER BY tab, metric, time`,
		server, player)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var series []MetricSeries
	for rows.Next() {
		var tab, metric string
		var unix int64
		var value float64
		err = rows.Scan(&tab, &metric, &unix, &value)
		if err != nil {
			return nil, err
		}

		last := len(series) - 1
		if last < 0 || series[last].Tab != tab || series[last].Metric != metric {
			series = append(series, MetricSeries{Tab: tab, Metric: metric})
			last++
		}
		series[last].Snapshots = append(series[last].Snapshots, Snapshot{
			Time:  time.Unix(unix, 0),
			Value: value,
		})
	}
	return series, rows.Err()
}
