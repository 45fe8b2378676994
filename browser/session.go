package browser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/hazyhaar/ds160fill/dom"
)

// ErrNoPage is returned when no open tab shows the application.
var ErrNoPage = errors.New("browser: no tab matches the application")

// SessionConfig configures a Session.
type SessionConfig struct {
	// StartURL is opened by Open. Empty opens nothing.
	StartURL string
	// PageMatch selects application tabs by URL substring.
	PageMatch string
	Logger    *slog.Logger
}

// Session tracks the application tab of a managed browser. The applicant
// navigates and logs in by hand; the engine fills whichever matching tab is
// open when a request arrives.
type Session struct {
	mgr    *Manager
	cfg    SessionConfig
	logger *slog.Logger

	mu  sync.Mutex
	tab *Tab
}

// NewSession returns a Session over mgr.
func NewSession(mgr *Manager, cfg SessionConfig) *Session {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Session{mgr: mgr, cfg: cfg, logger: cfg.Logger}
}

// Open starts the browser and opens the start URL in a new tab.
func (s *Session) Open(ctx context.Context) error {
	if _, err := s.mgr.Start(ctx); err != nil {
		return err
	}
	if s.cfg.StartURL == "" {
		return nil
	}
	tab, err := OpenTab(ctx, s.mgr, s.cfg.StartURL)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.tab = tab
	s.mu.Unlock()
	s.logger.Info("browser: session opened", "url", s.cfg.StartURL)
	return nil
}

// ActivePage returns the first open tab whose URL contains PageMatch,
// preferring the tab opened by Open.
func (s *Session) ActivePage(ctx context.Context) (dom.Page, error) {
	b := s.mgr.Browser()
	if b == nil {
		return nil, fmt.Errorf("browser: session not open")
	}

	s.mu.Lock()
	tab := s.tab
	s.mu.Unlock()
	if tab != nil {
		if info, err := tab.Page.Context(ctx).Info(); err == nil && urlMatches(info.URL, s.cfg.PageMatch) {
			return NewPage(tab.Page), nil
		}
	}

	pages, err := b.Context(ctx).Pages()
	if err != nil {
		return nil, fmt.Errorf("browser: list tabs: %w", err)
	}
	for _, p := range pages {
		info, err := p.Info()
		if err != nil {
			continue
		}
		if urlMatches(info.URL, s.cfg.PageMatch) {
			s.logger.Debug("browser: active tab", "url", info.URL)
			return NewPage(p), nil
		}
	}
	return nil, ErrNoPage
}

// Snapshot returns the outer HTML of the active tab.
func (s *Session) Snapshot(ctx context.Context) ([]byte, error) {
	p, err := s.ActivePage(ctx)
	if err != nil {
		return nil, err
	}
	t := &Tab{Page: p.(*Page).Rod()}
	return t.GetFullDOM(ctx)
}

// Close closes the opened tab and the browser.
func (s *Session) Close() error {
	s.mu.Lock()
	tab := s.tab
	s.tab = nil
	s.mu.Unlock()
	if tab != nil {
		tab.Close()
	}
	return s.mgr.Close()
}

func urlMatches(u, match string) bool {
	if strings.HasPrefix(u, "about:") || strings.HasPrefix(u, "chrome:") || u == "" {
		return false
	}
	return match == "" || strings.Contains(strings.ToLower(u), strings.ToLower(match))
}
