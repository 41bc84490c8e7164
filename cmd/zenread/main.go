package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mmcdole/zenread/internal/adapter"
	"github.com/mmcdole/zenread/internal/importer"
	"github.com/mmcdole/zenread/internal/library"
	"github.com/mmcdole/zenread/internal/notify"
	"github.com/mmcdole/zenread/internal/reader"
	"github.com/mmcdole/zenread/internal/store"
	"github.com/mmcdole/zenread/internal/tui"
)

// Version is set at build time via -ldflags
var Version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// app holds the wired services shared by every command
type app struct {
	cfg    *adapter.Config
	logger *slog.Logger

	store    *store.Store
	library  *library.Container
	importer *importer.Importer
	notifier *notify.Notifier
	reader   *reader.Reader
	viewer   *adapter.Viewer

	logCloser io.Closer
}

// newApp loads configuration and opens the library
func newApp(configFile string) (*app, error) {
	cfg, err := adapter.LoadConfig(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger, closer, err := adapter.SetupLogger(&cfg.Logging)
	if err != nil {
		// Fall back to null logger if file logging fails
		logger = adapter.NullLogger()
		closer = nopCloser{}
	}
	slog.SetDefault(logger)

	logger.Info("starting zenread", "version", Version)

	st, err := store.Open(cfg.Storage.Dir)
	if err != nil {
		closer.Close()
		return nil, fmt.Errorf("failed to open storage: %w", err)
	}

	lib, err := library.New(st.State, st.Blobs, logger)
	if err != nil {
		st.Close()
		closer.Close()
		return nil, fmt.Errorf("failed to load library: %w", err)
	}

	if _, err := lib.PruneOrphans(context.Background()); err != nil {
		logger.Warn("failed to prune orphan blobs", "error", err)
	}

	imp := importer.New(importer.Config{
		ProxyURL:  cfg.Import.ProxyURL,
		MaxBytes:  cfg.Import.MaxBytes,
		UserAgent: cfg.Import.UserAgent,
	}, st.Blobs, lib, logger)

	return &app{
		cfg:       cfg,
		logger:    logger,
		store:     st,
		library:   lib,
		importer:  imp,
		notifier:  notify.New(cfg.Telegram.APIURL, lib, nil, logger),
		reader:    reader.New(lib, st.Blobs, logger),
		viewer:    adapter.NewViewer(cfg.Viewer.Command, cfg.Viewer.Args, cfg.Viewer.PageFlag, logger),
		logCloser: closer,
	}, nil
}

// Close flushes the database and the log file
func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		a.logger.Error("failed to close storage", "error", err)
	}
	a.logger.Info("shutting down")
	a.logCloser.Close()
}

// runTUI starts the interactive interface
func (a *app) runTUI() error {
	observer := tui.NewChannelObserver()
	unsubscribe := a.library.Subscribe(observer)
	defer unsubscribe()

	model := tui.NewModel(tui.Services{
		Library:  a.library,
		Importer: a.importer,
		Reader:   a.reader,
		Notifier: a.notifier,
		Viewer:   a.viewer,
		Updates:  observer.Updates(),
	})

	p := tea.NewProgram(model, tea.WithAltScreen())

	a.logger.Info("starting TUI")

	final, err := p.Run()
	if m, ok := final.(tui.Model); ok {
		if cerr := m.Close(); cerr != nil {
			a.logger.Warn("failed to close reading session", "error", cerr)
		}
	}
	if err != nil {
		a.logger.Error("TUI error", "error", err)
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
