// Package pipeline runs the collect, enrich and export stages over a set of
// categories.
package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/divar-cli/internal/crawler"
	"github.com/sells-group/divar-cli/internal/enricher"
	"github.com/sells-group/divar-cli/internal/model"
	"github.com/sells-group/divar-cli/internal/store"
)

// Collector crawls listings. *crawler.Crawler implements it.
type Collector interface {
	Crawl(ctx context.Context, category string) (crawler.Result, error)
	CrawlStore(ctx context.Context, slug string) (crawler.Result, error)
}

// Enricher runs the enrichment stage. *enricher.Enricher implements it.
type Enricher interface {
	Enrich(ctx context.Context, category string) (enricher.Result, error)
}

// Exporter runs the export stage. *exporter.Exporter implements it.
type Exporter interface {
	Export(ctx context.Context, name string) (string, error)
}

// Plan selects what a run does.
type Plan struct {
	Categories []string
	// Stores are crawled by product listing during the collect stage.
	Stores []string
	Stage  model.Stage
}

// Runner executes plans sequentially: one category at a time, stages in order.
type Runner struct {
	collector Collector
	enricher  Enricher
	exporter  Exporter
	store     store.Store
}

// New creates a Runner. st receives the run history.
func New(c Collector, en Enricher, ex Exporter, st store.Store) *Runner {
	return &Runner{collector: c, enricher: en, exporter: ex, store: st}
}

// Run executes plan. The first failing stage stops the run; the returned
// report covers everything attempted up to that point.
func (r *Runner) Run(ctx context.Context, plan Plan) (*Report, error) {
	if plan.Stage == "" {
		plan.Stage = model.StageAll
	}
	if _, err := model.ParseStage(string(plan.Stage)); err != nil {
		return nil, eris.Wrap(err, "pipeline")
	}
	if len(plan.Categories) == 0 && len(plan.Stores) == 0 {
		return nil, eris.New("pipeline: nothing to do (no categories or stores)")
	}

	run := model.Run{
		ID:         uuid.New().String(),
		Stage:      plan.Stage,
		Categories: plan.Categories,
		Stores:     plan.Stores,
		Status:     model.RunStatusRunning,
		StartedAt:  time.Now().UTC(),
	}
	log := zap.L().With(zap.String("run_id", run.ID), zap.String("stage", string(plan.Stage)))
	log.Info("pipeline: starting run",
		zap.Strings("categories", plan.Categories),
		zap.Strings("stores", plan.Stores),
	)

	report := &Report{RunID: run.ID, Stage: plan.Stage, Status: model.RunStatusRunning}
	runErr := r.execute(ctx, log, plan, report)

	run.FinishedAt = time.Now().UTC()
	run.Status = model.RunStatusComplete
	if runErr != nil {
		run.Status = model.RunStatusFailed
		run.Error = runErr.Error()
	}
	report.Status = run.Status

	// History is written even when the run was interrupted.
	if err := store.AppendItems(context.WithoutCancel(ctx), r.store, model.RunsCollection, run); err != nil {
		log.Warn("pipeline: failed to record run", zap.Error(err))
	}

	if runErr != nil {
		log.Error("pipeline: run failed", zap.Error(runErr))
		return report, runErr
	}
	log.Info("pipeline: run complete", zap.Duration("elapsed", run.FinishedAt.Sub(run.StartedAt)))
	return report, nil
}

func (r *Runner) execute(ctx context.Context, log *zap.Logger, plan Plan, report *Report) error {
	for _, category := range plan.Categories {
		cr := report.add(category, KindCategory)
		for _, stage := range plan.Stage.Steps() {
			if err := r.runStage(ctx, log, stage, category, cr); err != nil {
				return err
			}
		}
	}

	// Store listings only have a collect stage.
	if len(plan.Stores) > 0 && (plan.Stage == model.StageCollect || plan.Stage == model.StageAll) {
		for _, slug := range plan.Stores {
			sr := report.add(slug, KindStore)
			if err := r.track(log, model.StageCollect, sr, func() error {
				res, err := r.collector.CrawlStore(ctx, slug)
				sr.Pages, sr.Items = res.Pages, res.Items
				return err
			}); err != nil {
				return err
			}
		}
	}
	return nil
}

func (r *Runner) runStage(ctx context.Context, log *zap.Logger, stage model.Stage, category string, cr *CollectionReport) error {
	return r.track(log, stage, cr, func() error {
		switch stage {
		case model.StageCollect:
			res, err := r.collector.Crawl(ctx, category)
			cr.Pages, cr.Items = res.Pages, res.Items
			return err
		case model.StageEnrich:
			res, err := r.enricher.Enrich(ctx, category)
			cr.Seen, cr.Cleaned, cr.Skipped = res.Seen, res.Cleaned, res.Skipped
			return err
		case model.StageExport:
			path, err := r.exporter.Export(ctx, category)
			cr.Artifact = path
			return err
		default:
			return eris.Errorf("pipeline: unknown stage %q", stage)
		}
	})
}

// track times fn and records its outcome on the collection report.
func (r *Runner) track(log *zap.Logger, stage model.Stage, cr *CollectionReport, fn func() error) error {
	start := time.Now()
	err := fn()
	sr := StageResult{
		Stage:      stage,
		Status:     model.RunStatusComplete,
		DurationMs: time.Since(start).Milliseconds(),
	}
	if err != nil {
		sr.Status = model.RunStatusFailed
		sr.Error = err.Error()
		log.Error("pipeline: stage failed",
			zap.String("collection", cr.Name),
			zap.String("stage", string(stage)),
			zap.Int64("duration_ms", sr.DurationMs),
			zap.Error(err),
		)
	} else {
		log.Info("pipeline: stage complete",
			zap.String("collection", cr.Name),
			zap.String("stage", string(stage)),
			zap.Int64("duration_ms", sr.DurationMs),
		)
	}
	cr.Stages = append(cr.Stages, sr)
	if err != nil {
		return eris.Wrapf(err, "pipeline: %s %s", stage, cr.Name)
	}
	return nil
}
