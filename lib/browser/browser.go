// Package browser owns the single Chrome session that drives all live-page
// operations for a scrape invocation.
package browser

import (
	"context"
	"fmt"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
)

type Config struct {
	// DebuggerURL attaches to an already-running Chrome instead of
	// launching one.
	DebuggerURL         string `json:"debugger_url"`
	Bin                 string `json:"bin"`
	Headless            bool   `json:"headless"`
	ViewportWidth       int    `json:"viewport_width"`
	ViewportHeight      int    `json:"viewport_height"`
	NavigationTimeoutMs int    `json:"navigation_timeout_ms"`
}

func (c Config) viewportWidth() int {
	if c.ViewportWidth == 0 {
		return 1920
	}
	return c.ViewportWidth
}

func (c Config) viewportHeight() int {
	if c.ViewportHeight == 0 {
		return 1080
	}
	return c.ViewportHeight
}

func (c Config) NavigationTimeout() time.Duration {
	if c.NavigationTimeoutMs == 0 {
		return 30 * time.Second
	}
	return time.Duration(c.NavigationTimeoutMs) * time.Millisecond
}

// Session is one connected browser with one page. Operations against the
// page are strictly sequential, the filter input and active tab are shared
// mutable state.
type Session struct {
	cfg     Config
	browser *rod.Browser
	page    *rod.Page
}

func Open(ctx context.Context, cfg Config, url string) (*Session, error) {
	controlURL := cfg.DebuggerURL
	if controlURL == "" {
		launch := launcher.New().Headless(cfg.Headless)
		if cfg.Bin != "" {
			launch = launch.Bin(cfg.Bin)
		}
		u, err := launch.Launch()
		if err != nil {
			return nil, fmt.Errorf("launch chrome: %w", err)
		}
		controlURL = u
	}

	b := rod.New().ControlURL(controlURL).Context(ctx)
	if err := b.Connect(); err != nil {
		return nil, fmt.Errorf("connect to chrome: %w", err)
	}

	page, err := b.Page(proto.TargetCreateTarget{})
	if err != nil {
		_ = b.Close()
		return nil, fmt.Errorf("create page: %w", err)
	}

	err = (proto.EmulationSetDeviceMetricsOverride{
		Width:             cfg.viewportWidth(),
		Height:            cfg.viewportHeight(),
		DeviceScaleFactor: 1.0,
		Mobile:            false,
	}).Call(page)
	if err != nil {
		_ = b.Close()
		return nil, fmt.Errorf("set viewport: %w", err)
	}

	err = page.Timeout(cfg.NavigationTimeout()).Navigate(url)
	if err != nil {
		_ = b.Close()
		return nil, fmt.Errorf("navigate to %s: %w", url, err)
	}

	return &Session{cfg: cfg, browser: b, page: page}, nil
}

func (s *Session) Page() *rod.Page {
	return s.page
}

func (s *Session) Close() error {
	if s.page != nil {
		_ = s.page.Close()
	}
	if s.browser != nil {
		return s.browser.Close()
	}
	return nil
}
