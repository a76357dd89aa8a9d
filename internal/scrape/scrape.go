// Package scrape runs the birth chart workflow: normalize the input, open a
// browser session, fill and submit the form, extract the results, persist
// the snapshot, and always release the session.
package scrape

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/v0xg/chartscrape/internal/browser"
	"github.com/v0xg/chartscrape/internal/chart"
	"github.com/v0xg/chartscrape/internal/executor"
	"github.com/v0xg/chartscrape/internal/extractor"
	"github.com/v0xg/chartscrape/internal/site"
)

// Session is one browser with one page, owned by a single workflow run
type Session interface {
	executor.Page
	extractor.Evaluator
	Screenshot() ([]byte, error)
	Close() error
}

// Launcher opens a new Session
type Launcher interface {
	Launch(ctx context.Context) (Session, error)
}

// LauncherFunc adapts a function to Launcher
type LauncherFunc func(ctx context.Context) (Session, error)

func (f LauncherFunc) Launch(ctx context.Context) (Session, error) { return f(ctx) }

// BrowserLauncher adapts a go-rod launcher
func BrowserLauncher(l *browser.Launcher) Launcher {
	return LauncherFunc(func(ctx context.Context) (Session, error) {
		s, err := l.Launch(ctx)
		if err != nil {
			return nil, err
		}
		return s, nil
	})
}

// Sink persists a record
type Sink interface {
	Save(rec chart.Record) (int64, error)
}

// Options configures the service
type Options struct {
	URL           string         // form page, default site.BaseURL
	Selectors     site.Selectors // default site.Default()
	MaxConcurrent int            // in-flight workflows, default 1
	DebugDir      string         // failure screenshots go here when set
	Logger        *slog.Logger
}

// Service runs scrapes
type Service struct {
	launcher Launcher
	sink     Sink
	opts     Options
	slots    chan struct{}
}

// New creates a Service
func New(launcher Launcher, sink Sink, opts Options) *Service {
	if opts.URL == "" {
		opts.URL = site.BaseURL
	}
	if opts.Selectors == nil {
		opts.Selectors = site.Default()
	}
	if opts.MaxConcurrent <= 0 {
		opts.MaxConcurrent = 1
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Service{
		launcher: launcher,
		sink:     sink,
		opts:     opts,
		slots:    make(chan struct{}, opts.MaxConcurrent),
	}
}

// Fetch runs the whole workflow for one input. Missing fields are rejected
// with chart.ErrMissingField before any browser is started.
func (s *Service) Fetch(ctx context.Context, in chart.Input) (chart.Record, error) {
	req, err := chart.Normalize(in)
	if err != nil {
		return chart.Record{}, err
	}

	select {
	case s.slots <- struct{}{}:
		defer func() { <-s.slots }()
	case <-ctx.Done():
		return chart.Record{}, fmt.Errorf("waiting for a free browser slot: %w", ctx.Err())
	}

	log := s.opts.Logger.With("city", req.City, "date", in.Date, "time", in.Time)
	start := time.Now()

	var rec chart.Record
	err = s.withSession(ctx, log, func(sess Session) error {
		actions := executor.FormScript(s.opts.URL, s.opts.Selectors, req)
		if err := executor.Execute(sess, actions, executor.Options{Logger: log}); err != nil {
			return fmt.Errorf("fill form: %w", err)
		}

		r, err := extractor.FromPage(sess, s.opts.Selectors, log)
		if err != nil {
			return err
		}

		size, err := s.sink.Save(r)
		if err != nil {
			return fmt.Errorf("save snapshot: %w", err)
		}
		log.Debug("scrape: snapshot saved", "bytes", size)
		rec = r
		return nil
	})
	if err != nil {
		log.Error("scrape: failed", "error", err, "elapsed", time.Since(start))
		return chart.Record{}, err
	}

	log.Info("scrape: done", "elapsed", time.Since(start), "missing", rec.Missing())
	return rec, nil
}

// withSession launches a session, runs fn, and closes the session on every
// path out. A close error never replaces an error from fn.
func (s *Service) withSession(ctx context.Context, log *slog.Logger, fn func(Session) error) error {
	sess, err := s.launcher.Launch(ctx)
	if err != nil {
		return fmt.Errorf("launch browser: %w", err)
	}
	defer func() {
		if cerr := sess.Close(); cerr != nil {
			log.Warn("scrape: closing browser failed", "error", cerr)
		}
	}()

	if err = fn(sess); err != nil && s.opts.DebugDir != "" {
		s.saveScreenshot(sess, log)
	}
	return err
}

func (s *Service) saveScreenshot(sess Session, log *slog.Logger) {
	png, err := sess.Screenshot()
	if err != nil {
		log.Warn("scrape: failure screenshot", "error", err)
		return
	}
	path := filepath.Join(s.opts.DebugDir, fmt.Sprintf("failure-%s.png", time.Now().Format("20060102-150405.000")))
	if err := os.WriteFile(path, png, 0o644); err != nil {
		log.Warn("scrape: failure screenshot", "error", err)
		return
	}
	log.Info("scrape: failure screenshot saved", "path", path)
}
