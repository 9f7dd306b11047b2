package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/specialistvlad/ontograph/internal/config"
	"github.com/specialistvlad/ontograph/internal/ctxlog"
	"github.com/specialistvlad/ontograph/internal/diag"
	"github.com/specialistvlad/ontograph/internal/metrics"
	"github.com/specialistvlad/ontograph/internal/ontology"
	"github.com/specialistvlad/ontograph/internal/resolver"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	logger   *slog.Logger
	config   *config.Model
	metrics  *metrics.Metrics
	diag     *diag.Collector
	resolver *resolver.Resolver
}

// New loads the configuration through loader, applies the overrides in cfg
// and builds the application. Logs are written to logW.
func New(logW io.Writer, cfg *Config, loader config.Loader) (*App, error) {
	model, err := loader.Load(context.Background(), cfg.ConfigPaths...)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	applyOverrides(model, cfg)
	if err := model.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	logger := newLogger(model.Log.Level, model.Log.Format, logW)
	logger.Debug("Logger configured successfully.")

	m := metrics.New()
	collector := diag.NewCollector(nil)
	res := resolver.New(resolver.Config{
		Overrides: model.Imports,
		Search:    model.Search,
		BasePath:  model.BasePath,
		Workers:   model.Workers,
		Client:    &http.Client{Timeout: model.Timeout},
		Diag:      collector,
		Metrics:   m,
	})
	logger.Debug("Application initialized.",
		"workers", model.Workers,
		"import_depth", model.ImportDepth,
		"timeout", model.Timeout,
		"overrides", len(model.Imports),
	)

	return &App{
		logger:   logger,
		config:   model,
		metrics:  m,
		diag:     collector,
		resolver: res,
	}, nil
}

func applyOverrides(model *config.Model, cfg *Config) {
	if cfg.LogLevel != "" {
		model.Log.Level = cfg.LogLevel
	}
	if cfg.LogFormat != "" {
		model.Log.Format = cfg.LogFormat
	}
	if cfg.Workers != nil {
		model.Workers = *cfg.Workers
	}
	if cfg.ImportDepth != nil {
		model.ImportDepth = *cfg.ImportDepth
	}
	if cfg.MetricsListen != "" {
		model.Metrics.Listen = cfg.MetricsListen
	}
}

// Load reads the document at location, a path or an http(s) URL, and
// resolves its imports as configured.
func (a *App) Load(ctx context.Context, location string) (*ontology.Ontology, error) {
	logger := a.logger.With("location", location)
	ctx = ctxlog.WithLogger(ctx, logger)
	logger.Debug("Loading document.")

	start := time.Now()
	o, err := a.resolver.Load(ctx, location, a.config.ImportDepth, a.config.Timeout)
	a.metrics.ObserveLoad(time.Since(start))
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", location, err)
	}

	logger.Info("Document loaded.",
		"instance", o.InstanceID(),
		"terms", len(o.Terms()),
		"imports", len(o.ImportRefs()),
		"duration", time.Since(start),
	)
	return o, nil
}

// Config returns the effective configuration.
func (a *App) Config() *config.Model {
	return a.config
}

// Logger returns the application logger.
func (a *App) Logger() *slog.Logger {
	return a.logger
}

// Metrics returns the application metrics.
func (a *App) Metrics() *metrics.Metrics {
	return a.metrics
}

// Warnings returns every ingestion warning recorded so far.
func (a *App) Warnings() []diag.Warning {
	return a.diag.Warnings()
}
