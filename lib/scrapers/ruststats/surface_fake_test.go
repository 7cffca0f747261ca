package ruststats

import (
	"context"
	"fmt"
	"time"
)

// fakeRow scripts one player row: cell display texts by column plus
// optional tooltip texts keyed by column.
type fakeRow struct {
	cells    []string
	tooltips map[int]string
}

func (r *fakeRow) CellText(ctx context.Context, column int) (string, error) {
	if column < 0 || column >= len(r.cells) {
		return "", fmt.Errorf("row has %d cells, wanted column %d", len(r.cells), column)
	}
	return r.cells[column], nil
}

func (r *fakeRow) TooltipText(ctx context.Context, column int, selectors []string, timeout time.Duration) (string, bool, error) {
	text, ok := r.tooltips[column]
	return text, ok, nil
}

// fakeSurface scripts the dashboard: header texts and candidate->row maps
// per tab, with optional alternate headers served after a reselect.
type fakeSurface struct {
	headers              map[string][]string
	headersAfterReselect map[string][]string
	rows                 map[string]map[string]*fakeRow

	selected    string
	selectCalls map[string]int
	locateCalls []string
}

func newFakeSurface() *fakeSurface {
	return &fakeSurface{
		headers:     map[string][]string{},
		rows:        map[string]map[string]*fakeRow{},
		selectCalls: map[string]int{},
	}
}

func (s *fakeSurface) SelectTab(ctx context.Context, tab *TabSpec) error {
	s.selected = tab.Key
	s.selectCalls[tab.Key]++
	if s.selectCalls[tab.Key] > 1 && s.headersAfterReselect[tab.Key] != nil {
		s.headers[tab.Key] = s.headersAfterReselect[tab.Key]
	}
	return nil
}

func (s *fakeSurface) WaitHeaderMarkers(ctx context.Context, tab *TabSpec, timeout time.Duration) error {
	if hasMarkers(s.headers[tab.Key], tab.HeaderMarkers) {
		return nil
	}
	return fmt.Errorf("markers %v missing", tab.HeaderMarkers)
}

func (s *fakeSurface) Headers(ctx context.Context) ([]string, error) {
	return s.headers[s.selected], nil
}

func (s *fakeSurface) LocateRow(ctx context.Context, candidate string) (Row, error) {
	s.locateCalls = append(s.locateCalls, candidate)
	row, ok := s.rows[s.selected][candidate]
	if !ok {
		return nil, ErrNoRow
	}
	return row, nil
}

func (s *fakeSurface) ServerInfo(ctx context.Context) (ServerInfo, error) {
	return ServerInfo{Title: "Test Server", PlayersOnline: "113"}, nil
}
