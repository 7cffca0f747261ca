package ruststats

import (
	"context"
	"fmt"
	"strings"
	"time"

	"ruststats-backend/lib/retryutil"
	"ruststats-backend/lib/textutil"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/input"
	"github.com/go-rod/rod/lib/proto"
)

// Surface is the live stats table as the orchestrator sees it. The rod
// implementation below is the production one; tests script their own.
type Surface interface {
	// SelectTab clicks the tab control and leaves the table re-rendering.
	SelectTab(ctx context.Context, tab *TabSpec) error
	// WaitHeaderMarkers blocks until the tab's expected header substrings
	// appear, or the timeout passes.
	WaitHeaderMarkers(ctx context.Context, tab *TabSpec, timeout time.Duration) error
	// Headers returns the current header texts in column order.
	Headers(ctx context.Context) ([]string, error)
	// LocateRow fills the free-text filter with the candidate, submits,
	// waits the settle interval, and returns the unique row whose
	// profile-link attribute contains the candidate. ErrNoRow when there
	// is no unique match.
	LocateRow(ctx context.Context, candidate string) (Row, error)
	// ServerInfo reads the dashboard's header fields for the selected
	// server.
	ServerInfo(ctx context.Context) (ServerInfo, error)
}

// Row is one located player row.
type Row interface {
	// CellText returns the display text of the cell in the given column.
	CellText(ctx context.Context, column int) (string, error)
	// TooltipText hovers the cell and scans the selector list for the
	// first non-empty numeric-looking overlay text. ok is false when
	// nothing appeared within the timeout.
	TooltipText(ctx context.Context, column int, selectors []string, timeout time.Duration) (text string, ok bool, err error)
}

var ErrNoRow = fmt.Errorf("no unique row matched the filter")

// Selectors locates the pieces of the dashboard's table UI.
type Selectors struct {
	TabControl    string `json:"tab_control"`    // format: tab key
	HeaderCells   string `json:"header_cells"`   //
	BodyRows      string `json:"body_rows"`      //
	RowCells      string `json:"row_cells"`      //
	RowLink       string `json:"row_link"`       // anchor carrying the steam profile href
	FilterInput   string `json:"filter_input"`   //
	ServerTitle   string `json:"server_title"`   //
	PlayersOnline string `json:"players_online"` //
	LastWipe      string `json:"last_wipe"`      //
}

func DefaultSelectors() Selectors {
	return Selectors{
		TabControl:    `a[data-tab="%s"]`,
		HeaderCells:   `table.stats-table thead th`,
		BodyRows:      `table.stats-table tbody tr`,
		RowCells:      `td`,
		RowLink:       `a[href*="steamcommunity.com"]`,
		FilterInput:   `input[type="search"]`,
		ServerTitle:   `.server-header .server-name`,
		PlayersOnline: `.server-header .players-online`,
		LastWipe:      `.server-header .last-wipe`,
	}
}

const (
	interactAttempts = 3
	filterSettle     = 600 * time.Millisecond
	tooltipSettle    = 300 * time.Millisecond
	markerPoll       = 250 * time.Millisecond
)

// pageSurface drives one shared rod page. All interactive sub-operations go
// through the retry envelope: the table live-polls and re-renders, so any
// element handle can detach between acquiring it and using it.
type pageSurface struct {
	page *rod.Page
	sel  Selectors
}

func NewPageSurface(page *rod.Page, sel Selectors) Surface {
	return &pageSurface{page: page, sel: sel}
}

func (s *pageSurface) retry(ctx context.Context, op func() error) error {
	return retryutil.Do(ctx, interactAttempts, retryutil.DefaultSchedule, retryutil.IsDetachedError, op)
}

func (s *pageSurface) SelectTab(ctx context.Context, tab *TabSpec) error {
	selector := fmt.Sprintf(s.sel.TabControl, tab.Key)
	return s.retry(ctx, func() error {
		el, err := s.page.Context(ctx).Element(selector)
		if err != nil {
			return fmt.Errorf("tab control %q: %w", tab.Key, err)
		}
		err = el.ScrollIntoView()
		if err != nil {
			return err
		}
		return el.Click(proto.InputMouseButtonLeft, 1)
	})
}

func (s *pageSurface) WaitHeaderMarkers(ctx context.Context, tab *TabSpec, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for {
		headers, err := s.Headers(ctx)
		if err == nil && hasMarkers(headers, tab.HeaderMarkers) {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("tab %q: header markers %v did not appear within %s", tab.Key, tab.HeaderMarkers, timeout)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(markerPoll):
		}
	}
}

func hasMarkers(headers []string, markers []string) bool {
	for _, marker := range markers {
		found := false
		for _, h := range headers {
			if strings.Contains(textutil.NormalizeName(h), textutil.NormalizeName(marker)) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func (s *pageSurface) Headers(ctx context.Context) ([]string, error) {
	var headers []string
	err := s.retry(ctx, func() error {
		els, err := s.page.Context(ctx).Elements(s.sel.HeaderCells)
		if err != nil {
			return err
		}
		out := make([]string, 0, len(els))
		for _, el := range els {
			text, err := el.Text()
			if err != nil {
				return err
			}
			out = append(out, text)
		}
		headers = out
		return nil
	})
	return headers, err
}

func (s *pageSurface) LocateRow(ctx context.Context, candidate string) (Row, error) {
	err := s.retry(ctx, func() error {
		filter, err := s.page.Context(ctx).Element(s.sel.FilterInput)
		if err != nil {
			return fmt.Errorf("filter input: %w", err)
		}
		err = filter.SelectAllText()
		if err != nil {
			return err
		}
		err = filter.Input(candidate)
		if err != nil {
			return err
		}
		return filter.Type(input.Enter)
	})
	if err != nil {
		return nil, err
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(filterSettle):
	}

	var match *rod.Element
	err = s.retry(ctx, func() error {
		match = nil
		rows, err := s.page.Context(ctx).Elements(s.sel.BodyRows)
		if err != nil {
			return err
		}
		count := 0
		for _, row := range rows {
			link, err := row.Element(s.sel.RowLink)
			if err != nil {
				continue
			}
			href, err := link.Attribute("href")
			if err != nil || href == nil {
				continue
			}
			if strings.Contains(*href, candidate) {
				match = row
				count++
			}
		}
		if count != 1 {
			match = nil
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if match == nil {
		return nil, ErrNoRow
	}
	return &pageRow{surface: s, el: match}, nil
}

func (s *pageSurface) ServerInfo(ctx context.Context) (ServerInfo, error) {
	read := func(selector string) string {
		if selector == "" {
			return ""
		}
		el, err := s.page.Context(ctx).Timeout(time.Second).Element(selector)
		if err != nil {
			return ""
		}
		text, err := el.Text()
		if err != nil {
			return ""
		}
		return textutil.NormalizeHeader(text)
	}
	return ServerInfo{
		Title:         read(s.sel.ServerTitle),
		PlayersOnline: read(s.sel.PlayersOnline),
		LastWipe:      read(s.sel.LastWipe),
	}, nil
}

type pageRow struct {
	surface *pageSurface
	el      *rod.Element
}

func (r *pageRow) cell(column int) (*rod.Element, error) {
	cells, err := r.el.Elements(r.surface.sel.RowCells)
	if err != nil {
		return nil, err
	}
	if column < 0 || column >= len(cells) {
		return nil, fmt.Errorf("row has %d cells, wanted column %d", len(cells), column)
	}
	return cells[column], nil
}

func (r *pageRow) CellText(ctx context.Context, column int) (string, error) {
	var text string
	err := r.surface.retry(ctx, func() error {
		cell, err := r.cell(column)
		if err != nil {
			return err
		}
		text, err = cell.Text()
		return err
	})
	return text, err
}

func (r *pageRow) TooltipText(ctx context.Context, column int, selectors []string, timeout time.Duration) (string, bool, error) {
	err := r.surface.retry(ctx, func() error {
		cell, err := r.cell(column)
		if err != nil {
			return err
		}
		err = cell.ScrollIntoView()
		if err != nil {
			return err
		}
		return cell.Hover()
	})
	if err != nil {
		return "", false, err
	}

	select {
	case <-ctx.Done():
		return "", false, ctx.Err()
	case <-time.After(tooltipSettle):
	}

	deadline := time.Now().Add(timeout)
	for {
		for _, selector := range selectors {
			el, err := r.surface.page.Context(ctx).Timeout(markerPoll).Element(selector)
			if err != nil {
				continue
			}
			text, err := el.Text()
			if err != nil {
				continue
			}
			if _, ok := textutil.NumericValue(text); ok {
				return text, true, nil
			}
		}
		if time.Now().After(deadline) {
			return "", false, nil
		}
		select {
		case <-ctx.Done():
			return "", false, ctx.Err()
		case <-time.After(markerPoll):
		}
	}
}
