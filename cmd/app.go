package main

import (
	"context"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/divar-cli/internal/crawler"
	"github.com/sells-group/divar-cli/internal/enricher"
	"github.com/sells-group/divar-cli/internal/exporter"
	"github.com/sells-group/divar-cli/internal/fetcher"
	"github.com/sells-group/divar-cli/internal/marketplace"
	"github.com/sells-group/divar-cli/internal/metrics"
	"github.com/sells-group/divar-cli/internal/model"
	"github.com/sells-group/divar-cli/internal/pipeline"
	"github.com/sells-group/divar-cli/internal/resilience"
	"github.com/sells-group/divar-cli/internal/store"
)

// appEnv holds the wired components shared by the stage commands.
type appEnv struct {
	Store  store.Store
	Runner *pipeline.Runner
}

// Close releases the store.
func (e *appEnv) Close() {
	if err := e.Store.Close(); err != nil {
		zap.L().Warn("close store", zap.Error(err))
	}
}

func initStore(ctx context.Context) (store.Store, error) {
	policy, err := store.ParseCorruptPolicy(cfg.Store.OnCorrupt)
	if err != nil {
		return nil, err
	}
	st, err := store.Open(ctx, store.Options{
		Driver:      cfg.Store.Driver,
		Dir:         cfg.Store.Dir,
		DatabaseURL: cfg.Store.DatabaseURL,
		OnCorrupt:   policy,
		Pool: &store.PoolConfig{
			MaxConns: cfg.Store.MaxConns,
			MinConns: cfg.Store.MinConns,
		},
	})
	if err != nil {
		return nil, eris.Wrap(err, "open store")
	}
	return st, nil
}

func initEnv(ctx context.Context) (*appEnv, error) {
	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}

	f := fetcher.NewHTTPFetcher(fetcher.HTTPOptions{
		UserAgent:         cfg.HTTP.UserAgent,
		Timeout:           cfg.HTTP.Timeout(),
		RequestsPerSecond: cfg.HTTP.RequestsPerSecond,
		Retry: resilience.FromSettings(
			cfg.Retry.MaxAttempts,
			cfg.Retry.InitialBackoff,
			cfg.Retry.MaxBackoff,
			cfg.Retry.Multiplier,
		),
	})
	client := marketplace.NewClient(f, cfg.Marketplace.BaseURL, cfg.Marketplace.City)

	runner := pipeline.New(
		crawler.New(client, st, cfg.Crawl.MaxPages),
		enricher.New(client, st, cfg.Enrich.WidgetType),
		exporter.New(st, cfg.Export.Dir),
		st,
	)

	zap.L().Debug("environment ready",
		zap.String("store", cfg.Store.Driver),
		zap.String("base_url", cfg.Marketplace.BaseURL),
		zap.String("city", cfg.Marketplace.City),
	)

	return &appEnv{Store: st, Runner: runner}, nil
}

// categoriesOrDefault returns the --category values, falling back to the
// configured categories.
func categoriesOrDefault(flagValues []string) []string {
	var out []string
	for _, v := range flagValues {
		for _, c := range strings.Split(v, ",") {
			if c = strings.TrimSpace(c); c != "" {
				out = append(out, c)
			}
		}
	}
	if len(out) > 0 {
		return out
	}
	return cfg.Pipeline.Categories
}

// executePlan runs plan with signal handling, serving metrics alongside when
// configured, and prints the report to out.
func executePlan(cmd *cobra.Command, plan pipeline.Plan, format string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	env, err := initEnv(ctx)
	if err != nil {
		return err
	}
	defer env.Close()

	report, err := runWithMetrics(ctx, cfg.Metrics.Addr, func(ctx context.Context) (*pipeline.Report, error) {
		return env.Runner.Run(ctx, plan)
	})
	if report != nil {
		if ferr := report.Format(cmd.OutOrStdout(), format); ferr != nil {
			zap.L().Warn("format report", zap.Error(ferr))
		}
	}
	if err != nil {
		return eris.Wrapf(err, "%s", plan.Stage)
	}
	return nil
}

// runWithMetrics runs fn and, when addr is set, the metrics server until fn returns.
func runWithMetrics(ctx context.Context, addr string, fn func(context.Context) (*pipeline.Report, error)) (*pipeline.Report, error) {
	g, gctx := errgroup.WithContext(ctx)
	runCtx, cancel := context.WithCancel(gctx)
	defer cancel()

	if addr != "" {
		g.Go(func() error {
			return metrics.Serve(runCtx, addr)
		})
	}

	var report *pipeline.Report
	g.Go(func() error {
		defer cancel()
		var err error
		report, err = fn(runCtx)
		return err
	})

	err := g.Wait()
	return report, err
}

func addFormatFlag(cmd *cobra.Command, target *string) {
	cmd.Flags().StringVar(target, "format", pipeline.FormatTable, "output format: table or yaml")
}

func stagePlan(stage model.Stage, categories []string) pipeline.Plan {
	return pipeline.Plan{Categories: categoriesOrDefault(categories), Stage: stage}
}
