// Package browser owns the headless Chrome lifecycle for one scrape: a
// freshly launched, isolated browser with exactly one page, torn down as a
// whole by Session.Close.
package browser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
)

var (
	// ErrTargetNotFound means a selector matched no element
	ErrTargetNotFound = errors.New("dom target not found")
	// ErrNavigationTimeout means the page did not reach network idle in time
	ErrNavigationTimeout = errors.New("navigation timeout")
)

// Options configures the browser behavior
type Options struct {
	Width   int
	Height  int
	Bin     string        // Chrome/Chromium binary, empty = look up or download
	Timeout time.Duration // per wait: navigation, network idle, element lookups
	Stealth bool          // create the page through go-rod/stealth
	Logger  *slog.Logger
}

func (o *Options) defaults() {
	if o.Width == 0 {
		o.Width = 1280
	}
	if o.Height == 0 {
		o.Height = 720
	}
	if o.Timeout == 0 {
		o.Timeout = 30 * time.Second
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
}

// Launcher starts isolated browser sessions
type Launcher struct {
	opts Options
}

// NewLauncher creates a Launcher. Each Launch starts a separate Chrome process.
func NewLauncher(opts Options) *Launcher {
	opts.defaults()
	return &Launcher{opts: opts}
}

// Session wraps one Rod browser and its single page
type Session struct {
	ctx     context.Context
	opts    Options
	lnch    *launcher.Launcher
	browser *rod.Browser
	page    *rod.Page

	closeOnce sync.Once
	closeErr  error
}

// Launch starts a headless Chrome without the OS sandbox (needed in
// containers) using a throwaway profile, and opens one blank page.
func (l *Launcher) Launch(ctx context.Context) (*Session, error) {
	opts := l.opts
	log := opts.Logger

	bin := opts.Bin
	if bin == "" {
		bin, _ = launcher.LookPath()
	}

	lnch := launcher.New().Context(ctx).Headless(true).NoSandbox(true)
	if bin != "" {
		lnch = lnch.Bin(bin)
	}

	u, err := lnch.Launch()
	if err != nil {
		return nil, fmt.Errorf("browser: launch: %w", err)
	}
	log.Debug("browser: launched", "url", u)

	b := rod.New().ControlURL(u).Context(ctx)
	if err := b.Connect(); err != nil {
		lnch.Kill()
		lnch.Cleanup()
		return nil, fmt.Errorf("browser: connect: %w", err)
	}

	s := &Session{ctx: ctx, opts: opts, lnch: lnch, browser: b}

	var page *rod.Page
	if opts.Stealth {
		page, err = stealth.Page(b)
	} else {
		page, err = b.Page(proto.TargetCreateTarget{URL: ""})
	}
	if err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("browser: create page: %w", err)
	}
	s.page = page

	err = page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             opts.Width,
		Height:            opts.Height,
		DeviceScaleFactor: 1,
	})
	if err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("browser: set viewport: %w", err)
	}

	return s, nil
}

// Close cleans up browser resources. Only the first call does any work.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		var errs []error
		if s.page != nil {
			if err := s.page.Close(); err != nil {
				errs = append(errs, fmt.Errorf("close page: %w", err))
			}
		}
		if s.browser != nil {
			if err := s.browser.Close(); err != nil {
				errs = append(errs, fmt.Errorf("close browser: %w", err))
			}
		}
		if s.lnch != nil {
			s.lnch.Kill()
			s.lnch.Cleanup()
		}
		s.closeErr = errors.Join(errs...)
		s.opts.Logger.Debug("browser: closed", "error", s.closeErr)
	})
	return s.closeErr
}

// Page returns the underlying Rod page
func (s *Session) Page() *rod.Page {
	return s.page
}

// waitCtx bounds a single wait by the configured timeout
func (s *Session) waitCtx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(s.ctx, s.opts.Timeout)
}

func (s *Session) timeoutErr(ctx context.Context, what string) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%s after %s: %w", what, s.opts.Timeout, ErrNavigationTimeout)
	}
	return ctx.Err()
}
