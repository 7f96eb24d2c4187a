package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/five82/courtside/internal/api"
	"github.com/five82/courtside/internal/clock"
	"github.com/five82/courtside/internal/command"
	"github.com/five82/courtside/internal/config"
	"github.com/five82/courtside/internal/grid"
	"github.com/five82/courtside/internal/notify"
	"github.com/five82/courtside/internal/prefs"
	"github.com/five82/courtside/internal/push"
	"github.com/five82/courtside/internal/session"
	"github.com/five82/courtside/internal/ui"
)

// Options configure the courtside application. Non-empty fields override
// the config file.
type Options struct {
	ConfigPath string
	PrefsPath  string // empty uses default ~/.config/courtside/prefs.toml
	Server     string
	Username   string
	Admin      bool
	// Once prints the grid and exits instead of starting the TUI.
	Once bool
	// Out receives --once and admin output; nil means stdout.
	Out io.Writer
}

// env is everything the run modes share.
type env struct {
	cfg      config.Config
	prefs    prefs.Prefs
	username string
	admin    bool
	logger   *slog.Logger
	client   *api.Client
	out      io.Writer
	close    func()
}

func setup(opts Options, logToStderr bool) (*env, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if s := strings.TrimSpace(opts.Server); s != "" {
		cfg.Server = s
	}

	userPrefs, _ := prefs.Load(opts.PrefsPath)

	logger, closeLog, err := newLogger(cfg, logToStderr)
	if err != nil {
		return nil, err
	}

	client, err := api.NewClient(cfg.Server)
	if err != nil {
		closeLog()
		return nil, fmt.Errorf("init api client: %w", err)
	}

	e := &env{
		cfg:      cfg,
		prefs:    userPrefs,
		username: firstNonEmpty(opts.Username, cfg.Username, userPrefs.LastUsername),
		admin:    opts.Admin || cfg.Admin,
		logger:   logger,
		client:   client,
		out:      opts.Out,
		close:    closeLog,
	}
	if e.out == nil {
		e.out = os.Stdout
	}
	return e, nil
}

// newLogger writes to the configured log file, or stderr when the terminal
// is not owned by the TUI.
func newLogger(cfg config.Config, toStderr bool) (*slog.Logger, func(), error) {
	handlerOpts := &slog.HandlerOptions{Level: cfg.LogLevel}
	if toStderr {
		return slog.New(slog.NewTextHandler(os.Stderr, handlerOpts)), func() {}, nil
	}
	if err := os.MkdirAll(filepath.Dir(cfg.LogFile), 0o755); err != nil {
		return nil, nil, fmt.Errorf("create log dir: %w", err)
	}
	file, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}
	return slog.New(slog.NewTextHandler(file, handlerOpts)), func() { _ = file.Close() }, nil
}

// Run boots the courtside TUI, or prints the grid once, until the context
// is cancelled or the user quits.
func Run(ctx context.Context, opts Options) error {
	e, err := setup(opts, opts.Once)
	if err != nil {
		return err
	}
	defer e.close()

	if opts.Once {
		return e.printOnce(ctx)
	}
	return e.runTUI(ctx, opts.PrefsPath)
}

// printOnce loads a full snapshot over REST and renders the grid as text.
func (e *env) printOnce(ctx context.Context) error {
	snap, err := session.NewLoader(e.client).Load(ctx)
	if err != nil {
		return fmt.Errorf("load snapshot: %w", err)
	}
	now := clock.NewVirtual(nil)
	grid.Render(e.out, grid.Build(snap, e.username, now.MinutesOfDay(), grid.Filter{}))
	return nil
}

func (e *env) newSession(notifier notify.Notifier) *session.Manager {
	return session.New(session.Options{
		Loader:         session.NewLoader(e.client),
		Transport:      session.PushTransport(push.NewDialer(e.client.BaseURL(), e.client.ClientID(), e.logger)),
		Commander:      e.client,
		Notifier:       notifier,
		Logger:         e.logger,
		CommandTimeout: e.cfg.CommandTimeout,
	})
}

func (e *env) newMutator(notifier notify.Notifier, b command.Broadcaster) *command.Mutator {
	return command.New(command.Options{
		Commander:   e.client,
		Notifier:    notifier,
		Broadcaster: b,
		Logger:      e.logger,
		Timeout:     e.cfg.CommandTimeout,
	})
}

func (e *env) runTUI(ctx context.Context, prefsPath string) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	if prefsPath == "" {
		prefsPath = prefs.DefaultPath()
	}

	dispatcher := notify.NewDispatcher(clock.Real(), e.cfg.NotificationDuration)
	manager := e.newSession(dispatcher)
	mutator := e.newMutator(dispatcher, manager)

	userPrefs := e.prefs
	if userPrefs.SkillLevel == "" {
		userPrefs.SkillLevel = e.cfg.SkillLevel
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return manager.Run(gctx)
	})
	if e.username != "" {
		g.Go(func() error {
			if err := manager.Login(gctx, e.username, e.admin); err != nil {
				e.logger.Warn("login failed", "username", e.username, "error", err)
				return nil
			}
			saved, _ := prefs.Load(prefsPath)
			saved.LastUsername = e.username
			if err := prefs.Save(prefsPath, saved); err != nil {
				e.logger.Warn("save prefs failed", "error", err)
			}
			return nil
		})
	}

	e.logger.Info("courtside starting", "server", e.client.BaseURL().String(), "username", e.username)
	uiErr := ui.Run(ui.Options{
		Context:   ctx,
		Source:    manager,
		Booker:    mutator,
		Notices:   dispatcher,
		Clock:     clock.NewVirtual(nil),
		Prefs:     userPrefs,
		PrefsPath: prefsPath,
		LogPath:   e.cfg.LogFile,
		Logger:    e.logger,
	})
	cancel()
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		e.logger.Warn("session stopped", "error", err)
	}
	return uiErr
}

// waitConnected blocks until m reports Connected or timeout passes.
func waitConnected(ctx context.Context, m *session.Manager, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	for m.Status() != session.Connected {
		select {
		case <-m.Changes():
		case <-ctx.Done():
			return fmt.Errorf("connect push channel: %w", ctx.Err())
		}
	}
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
