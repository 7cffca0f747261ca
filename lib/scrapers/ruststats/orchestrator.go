package ruststats

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// Strategy picks the traversal order of a scrape pass. Both strategies
// produce equivalent result sets.
type Strategy string

const (
	// StrategyPerTab loops tabs outer, players inner: fewest tab switches.
	StrategyPerTab Strategy = "per-tab"
	// StrategyPerPlayer loops players outer, tabs inner: least filter churn.
	StrategyPerPlayer Strategy = "per-player"
)

type Options struct {
	Tabs          []*TabSpec
	PrimaryTab    string
	HeaderTimeout time.Duration
	// Progress receives human-readable status strings over the pass.
	Progress func(status string)
}

type Orchestrator struct {
	surface Surface
	opts    Options
}

func NewOrchestrator(surface Surface, opts Options) *Orchestrator {
	if opts.Tabs == nil {
		opts.Tabs = DefaultTabs()
	}
	if opts.PrimaryTab == "" {
		opts.PrimaryTab = PrimaryTab
	}
	if opts.HeaderTimeout == 0 {
		opts.HeaderTimeout = 10 * time.Second
	}
	return &Orchestrator{surface: surface, opts: opts}
}

func (o *Orchestrator) progress(format string, args ...any) {
	if o.opts.Progress == nil {
		return
	}
	o.opts.Progress(fmt.Sprintf(format, args...))
}

type tabReadiness int

const (
	tabNotReady tabReadiness = iota
	tabColumnsUnmapped
	tabReady
)

// tabState lives for one pass: once a tab reaches tabReady its column
// mapping is reused for every remaining player.
type tabState struct {
	spec     *TabSpec
	state    tabReadiness
	mapping  ColumnMapping
	selected bool
	err      error
}

// pass is the mutable state of one scrape invocation.
type pass struct {
	o       *Orchestrator
	tabs    map[string]*tabState
	result  *Result
	skipped map[string]bool // players missing on the primary tab, by label
	active  string          // key of the tab currently selected on the page
}

// Run executes one complete scrape pass for the given players under the
// given traversal strategy.
func (o *Orchestrator) Run(ctx context.Context, players []Identity, strategy Strategy) (*Result, error) {
	ctx, span := tracer.Start(ctx, "Run")
	defer span.End()
	span.SetAttributes(
		attribute.String("strategy", string(strategy)),
		attribute.Int("players", len(players)),
	)

	start := time.Now()
	p := &pass{
		o: o,
		tabs: map[string]*tabState{},
		result: &Result{
			Tabs: map[string]*TabResult{},
		},
		skipped: map[string]bool{},
	}
	for _, spec := range o.opts.Tabs {
		p.tabs[spec.Key] = &tabState{spec: spec}
		p.result.Tabs[spec.Key] = &TabResult{
			Key:   spec.Key,
			Stats: map[string]PlayerStats{},
		}
	}

	var err error
	switch strategy {
	case StrategyPerPlayer:
		err = p.runPerPlayer(ctx, players)
	default:
		strategy = StrategyPerTab
		err = p.runPerTab(ctx, players)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	info, err := o.surface.ServerInfo(ctx)
	if err != nil {
		slog.WarnContext(ctx, "failed to read server info", "err", err)
	} else {
		p.result.ServerInfo = info
	}

	p.result.Timings.Strategy = string(strategy)
	p.result.Timings.Total = time.Since(start)
	o.progress("scrape finished in %s (%s)", p.result.Timings.Total.Round(time.Millisecond), strategy)
	return p.result, nil
}

// orderedTabs returns the pass's tabs with the primary tab first, so the
// missing-player decision is always made before any other tab is visited.
func (p *pass) orderedTabs() []*tabState {
	out := make([]*tabState, 0, len(p.o.opts.Tabs))
	if primary, ok := p.tabs[p.o.opts.PrimaryTab]; ok {
		out = append(out, primary)
	}
	for _, spec := range p.o.opts.Tabs {
		if spec.Key == p.o.opts.PrimaryTab {
			continue
		}
		out = append(out, p.tabs[spec.Key])
	}
	return out
}

func (p *pass) runPerTab(ctx context.Context, players []Identity) error {
	for _, tab := range p.orderedTabs() {
		tabStart := time.Now()
		p.ensureTabReady(ctx, tab)
		for _, player := range players {
			if err := ctx.Err(); err != nil {
				return err
			}
			p.extractForPlayer(ctx, tab, player)
		}
		p.recordTabTiming(tab, time.Since(tabStart))
	}
	return p.sessionError()
}

func (p *pass) runPerPlayer(ctx context.Context, players []Identity) error {
	tabTimes := map[string]time.Duration{}
	for _, player := range players {
		for _, tab := range p.orderedTabs() {
			if err := ctx.Err(); err != nil {
				return err
			}
			tabStart := time.Now()
			p.ensureTabReady(ctx, tab)
			p.extractForPlayer(ctx, tab, player)
			tabTimes[tab.spec.Key] += time.Since(tabStart)
		}
	}
	for key, d := range tabTimes {
		if tab, ok := p.tabs[key]; ok {
			p.recordTabTiming(tab, d)
		}
	}
	return p.sessionError()
}

func (p *pass) recordTabTiming(tab *tabState, d time.Duration) {
	if p.result.Timings.PerTab == nil {
		p.result.Timings.PerTab = map[string]time.Duration{}
	}
	p.result.Timings.PerTab[tab.spec.Key] = d
}

// sessionError reports an unrecoverable session failure: every tab failing
// at the tab level means the page itself is gone, which is the only
// condition allowed to abort a pass.
func (p *pass) sessionError() error {
	var lastErr error
	for _, tab := range p.tabs {
		if tab.err == nil {
			return nil
		}
		lastErr = tab.err
	}
	return fmt.Errorf("browsing session failed on every tab: %w", lastErr)
}

// ensureTabReady drives the per-tab state machine:
// NotReady -> select + wait for header markers -> ColumnsUnmapped ->
// column mapping with the escalation ladder -> Ready (cached for the pass).
func (p *pass) ensureTabReady(ctx context.Context, tab *tabState) {
	if tab.state == tabReady {
		// the active tab is shared page state: a traversal that
		// interleaves tabs must re-select even though the column
		// mapping is settled
		if tab.selected && p.active != tab.spec.Key {
			if err := p.o.surface.SelectTab(ctx, tab.spec); err != nil {
				slog.WarnContext(ctx, "tab reselect failed", "tab", tab.spec.Key, "err", err)
			} else {
				p.active = tab.spec.Key
			}
		}
		return
	}

	p.o.progress("preparing tab %s", tab.spec.Label)

	if tab.state == tabNotReady {
		err := p.o.surface.SelectTab(ctx, tab.spec)
		if err != nil {
			tab.err = fmt.Errorf("select tab %q: %w", tab.spec.Key, err)
			tab.mapping = ColumnMapping{ColumnMap: map[string]int{}}
			tab.state = tabReady
			slog.ErrorContext(ctx, "tab selection failed", "tab", tab.spec.Key, "err", err)
			return
		}
		tab.selected = true
		p.active = tab.spec.Key

		err = p.o.surface.WaitHeaderMarkers(ctx, tab.spec, p.o.opts.HeaderTimeout)
		if err != nil {
			// non-fatal: the table may simply label columns differently
			slog.WarnContext(ctx, "header markers missing", "tab", tab.spec.Key, "err", err)
		}
		tab.state = tabColumnsUnmapped
	}

	tab.mapping = p.resolveColumns(ctx, tab)
	tab.state = tabReady

	res := p.result.Tabs[tab.spec.Key]
	res.Metrics = tab.mapping.Metrics
	res.ColumnMap = tab.mapping.ColumnMap
}

// resolveColumns evaluates the mapping strategies in order until one yields
// a non-empty result: pattern mode, then reselect + pattern mode once, then
// exact label equality. An empty map after all three is accepted, the tab
// just reads zero for every metric.
func (p *pass) resolveColumns(ctx context.Context, tab *tabState) ColumnMapping {
	headers, err := p.o.surface.Headers(ctx)
	if err != nil {
		tab.err = fmt.Errorf("read headers for tab %q: %w", tab.spec.Key, err)
		slog.ErrorContext(ctx, "header read failed", "tab", tab.spec.Key, "err", err)
		return ColumnMapping{ColumnMap: map[string]int{}}
	}

	mapping := MapColumns(headers, tab.spec.Metrics)
	if !mapping.Empty() || tab.spec.Metrics == nil {
		return mapping
	}

	slog.WarnContext(ctx, "pattern mapping found no columns, reselecting tab", "tab", tab.spec.Key)
	if err := p.o.surface.SelectTab(ctx, tab.spec); err == nil {
		_ = p.o.surface.WaitHeaderMarkers(ctx, tab.spec, p.o.opts.HeaderTimeout)
		if retried, err := p.o.surface.Headers(ctx); err == nil {
			headers = retried
			mapping = MapColumns(headers, tab.spec.Metrics)
			if !mapping.Empty() {
				return mapping
			}
		}
	}

	mapping = MapColumnsExact(headers, tab.spec.Metrics)
	if mapping.Empty() {
		logUnmatchedMetrics(tab.spec.Key, headers, tab.spec.Metrics)
		slog.ErrorContext(
			ctx,
			"column mapping exhausted, tab will extract zeroes",
			"tab", tab.spec.Key,
			"headers", headers,
		)
	}
	return mapping
}

// extractForPlayer reads one player's stats off one prepared tab. Failure
// on the primary tab marks the player missing for the remainder of the
// pass; failure elsewhere only loses that tab's stats for that player.
func (p *pass) extractForPlayer(ctx context.Context, tab *tabState, player Identity) {
	if p.skipped[player.Label] {
		return
	}
	primary := tab.spec.Key == p.o.opts.PrimaryTab

	if tab.mapping.Empty() {
		// nothing mapped: every metric reads zero without touching the row
		p.result.Tabs[tab.spec.Key].Stats[player.Label] = PlayerStats{}
		return
	}

	p.progressPlayer(tab, player)

	row, err := locateRow(ctx, p.o.surface, player)
	if err != nil {
		p.handlePlayerFailure(ctx, tab, player, primary, err)
		return
	}

	stats, err := extractStats(ctx, row, tab.spec, tab.mapping)
	if err != nil {
		p.handlePlayerFailure(ctx, tab, player, primary, err)
		return
	}

	p.result.Tabs[tab.spec.Key].Stats[player.Label] = stats
}

func (p *pass) progressPlayer(tab *tabState, player Identity) {
	p.o.progress("reading %s stats for %s", tab.spec.Label, player.Label)
}

func (p *pass) handlePlayerFailure(ctx context.Context, tab *tabState, player Identity, primary bool, err error) {
	if !primary {
		slog.WarnContext(
			ctx,
			"player failed on non-primary tab, stats absent",
			"tab", tab.spec.Key,
			"player", player.Label,
			"err", err,
		)
		return
	}

	reason := err.Error()
	var notFound *PlayerNotFoundError
	if errors.As(err, &notFound) {
		reason = notFound.Reason
	}

	p.skipped[player.Label] = true
	p.result.Missing = append(p.result.Missing, MissingPlayer{
		Label:    player.Label,
		SteamId:  player.SteamId,
		SteamUrl: player.SteamUrl,
		Reason:   reason,
	})
	p.o.progress("could not find %s on the %s tab, skipping", player.Label, tab.spec.Label)
}
