// Package cli holds the dependencies shared by the aether CLI commands.
package cli

import (
	"context"
	"fmt"

	"github.com/aetherbrowser/aether/internal/cli/styles"
	"github.com/aetherbrowser/aether/internal/config"
	"github.com/aetherbrowser/aether/internal/domain/build"
	"github.com/aetherbrowser/aether/internal/filtering"
	"github.com/aetherbrowser/aether/internal/logging"
)

// App holds CLI dependencies.
type App struct {
	Config     *config.Config
	ConfigFile string
	Theme      *styles.Theme
	BuildInfo  build.Info

	// Context with logger
	ctx context.Context
}

// NewApp loads configuration and prepares the logger. configFile
// overrides the XDG config location when non-empty.
func NewApp(configFile string) (*App, error) {
	mgr, err := config.NewManager(configFile)
	if err != nil {
		return nil, fmt.Errorf("create config manager: %w", err)
	}
	if err := mgr.Load(); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	cfg := mgr.Get()

	logger := logging.NewFromConfigValues(cfg.Logging.Level, cfg.Logging.Format)
	ctx := logging.WithContext(context.Background(), logger)

	logger.Debug().Str("config_file", mgr.ConfigFile()).Msg("configuration loaded")

	return &App{
		Config:     cfg,
		ConfigFile: mgr.ConfigFile(),
		Theme:      styles.NewTheme(),
		ctx:        ctx,
	}, nil
}

// Ctx returns the application context with logger.
func (a *App) Ctx() context.Context {
	return a.ctx
}

// Sources converts configured list sources.
func (a *App) Sources() []filtering.ListSource {
	out := make([]filtering.ListSource, 0, len(a.Config.ContentFiltering.Sources))
	for _, src := range a.Config.ContentFiltering.Sources {
		out = append(out, filtering.ListSource{Name: src.Name, URL: src.URL})
	}
	return out
}

// Downloader returns a downloader for the configured sources.
func (a *App) Downloader() *filtering.Downloader {
	return filtering.NewDownloader(a.Config.ContentFiltering.ListDir, a.Sources())
}

// RulePaths returns the rule files to load, in load order: the explicit
// lists when configured, the downloaded sources otherwise.
func (a *App) RulePaths() []string {
	if len(a.Config.ContentFiltering.Lists) > 0 {
		return append([]string(nil), a.Config.ContentFiltering.Lists...)
	}
	return a.Downloader().Paths()
}

// NewFilter builds the request filter from configuration. With
// filtering disabled the filter holds no rules and allows everything.
func (a *App) NewFilter(ctx context.Context, opts ...filtering.Option) (*filtering.Filter, error) {
	mode, err := filtering.ParseMatchMode(a.Config.ContentFiltering.Mode)
	if err != nil {
		return nil, err
	}
	opts = append([]filtering.Option{filtering.WithMatchMode(mode)}, opts...)

	if !a.Config.ContentFiltering.Enabled {
		logging.FromContext(ctx).Info().Msg("content filtering disabled")
		return filtering.NewFromRules(ctx, nil, opts...)
	}
	return filtering.New(ctx, a.RulePaths(), opts...)
}
