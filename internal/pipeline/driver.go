// Package pipeline drives ENADE runs: it loads the dimension tables once,
// extracts and transforms every yearly file, and loads the concatenated
// result through the configured output format.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/JonMunkholm/enade/internal/core"
	"github.com/JonMunkholm/enade/internal/logging"
)

// Report summarizes one run.
type Report struct {
	RunID     string              `json:"run_id"`
	Files     []FileReport        `json:"files"`
	Transform core.TransformStats `json:"transform"`
	Output    *core.LoadResult    `json:"output,omitempty"`
	Duration  time.Duration       `json:"duration_ns"`
}

// FileReport summarizes one source file of a run.
type FileReport struct {
	Path      string              `json:"path"`
	Year      int                 `json:"year"`
	Layout    string              `json:"layout"`
	Extract   core.ExtractStats   `json:"extract"`
	Transform core.TransformStats `json:"transform"`
	Error     string              `json:"error,omitempty"`
}

// Failed returns the files that were skipped because of an error.
func (r *Report) Failed() []FileReport {
	var failed []FileReport
	for _, f := range r.Files {
		if f.Error != "" {
			failed = append(failed, f)
		}
	}
	return failed
}

// Driver runs plans. It holds no per-run state and is safe for concurrent use.
type Driver struct {
	metrics *Metrics
}

// NewDriver creates a driver reporting to m, which may be nil.
func NewDriver(m *Metrics) *Driver {
	return &Driver{metrics: m}
}

// Run executes plan. Output is written only when every file succeeded, or
// when plan.ContinueOnError is set and the failures were skipped. The report
// is returned even on error and lists what was processed.
//
// Rows are concatenated in plan.Files order regardless of Workers.
func (d *Driver) Run(ctx context.Context, plan Plan) (*Report, error) {
	runID := core.GetRunIDFromContext(ctx)
	if runID == "" {
		runID = uuid.NewString()
		ctx = core.ContextWithRunID(ctx, runID)
	}
	if plan.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, plan.Timeout)
		defer cancel()
	}

	start := time.Now()
	report := &Report{RunID: runID, Files: make([]FileReport, len(plan.Files))}

	d.metrics.runStarted()
	err := d.run(ctx, plan, report)
	report.Duration = time.Since(start)
	d.metrics.runFinished(report.Duration, err)

	logger := logging.FromContext(ctx)
	if err != nil {
		logger.Error("run failed", "error", err, "duration", report.Duration)
		return report, err
	}
	logger.Info("run completed",
		"files", len(plan.Files),
		"skipped", len(report.Failed()),
		"rows", report.Transform.Kept,
		"duration", report.Duration,
	)
	return report, nil
}

func (d *Driver) run(ctx context.Context, plan Plan, report *Report) error {
	if len(plan.Files) == 0 {
		return core.ErrNoSourceFiles
	}

	logger := logging.WithFields(ctx, "files", len(plan.Files), "format", plan.Target.Format)
	logger.Info("run started")

	dims, err := core.LoadDimensions(plan.Dimensions)
	if err != nil {
		return err
	}
	logger.Debug("dimensions loaded",
		"groups", len(dims.Groups),
		"areas", len(dims.Areas),
		"institutions", len(dims.Institutions),
	)

	results := make([][]core.Evaluation, len(plan.Files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(plan.Workers, 1))

	var mu sync.Mutex
	for i, spec := range plan.Files {
		i, spec := i, spec
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			rows, fr, err := d.processFile(gctx, spec, dims)

			mu.Lock()
			defer mu.Unlock()
			report.Files[i] = fr
			if err != nil {
				report.Files[i].Error = err.Error()
				if plan.ContinueOnError && !isCancellation(err) {
					logging.FromContext(core.ContextWithFile(gctx, filepath.Base(spec.Path))).
						Warn("file skipped", "error", err, "code", core.MapError(err).Code)
					return nil
				}
				return err
			}
			results[i] = rows
			report.Transform.Add(fr.Transform)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	// Loading nothing would replace the previous output with an empty dataset.
	if failed := report.Failed(); len(failed) == len(plan.Files) {
		return fmt.Errorf("%w: %d files, first: %s", core.ErrAllFilesFailed, len(failed), failed[0].Error)
	}

	var all []core.Evaluation
	for _, rows := range results {
		all = append(all, rows...)
	}

	res, err := core.Load(ctx, plan.Target, all)
	if err != nil {
		return fmt.Errorf("load %s: %w", plan.Target.Format, err)
	}
	report.Output = &res
	d.metrics.rowsLoaded(res.Format, res.Rows)

	logger.Info("LOAD done", "rows", res.Rows, "path", res.Path, "table", res.Table)
	return nil
}

// processFile extracts and transforms one source file.
func (d *Driver) processFile(ctx context.Context, spec FileSpec, dims core.Dimensions) ([]core.Evaluation, FileReport, error) {
	fr := FileReport{Path: spec.Path}
	ctx = core.ContextWithFile(ctx, filepath.Base(spec.Path))
	logger := logging.FromContext(ctx)

	opts := spec.Options
	opts.Progress = func(rows, percent int) {
		logger.Debug("EXTRACT progress", "rows", rows, "percent", percent)
	}

	ext, err := core.Extract(ctx, spec.Path, opts)
	if err != nil {
		d.metrics.fileProcessed(core.ExtractStats{}, core.TransformStats{}, err)
		return nil, fr, err
	}
	fr.Year = ext.Profile.Year
	fr.Layout = ext.Profile.Variant.Name
	fr.Extract = ext.Stats
	logger.Info("EXTRACT done",
		"layout", fr.Layout,
		"rows", ext.Stats.Rows,
		"judicial", ext.Stats.JudicialSubstitutions,
		"missing_scores", ext.Stats.MissingScores,
	)

	rows, st, err := core.Transform(ext.Records, dims)
	fr.Transform = st
	d.metrics.fileProcessed(ext.Stats, st, err)
	if err != nil {
		return nil, fr, err
	}
	logger.Info("TRANSFORM done",
		"kept", st.Kept,
		"not_eligible", st.NotEligible,
		"not_present", st.NotPresent,
		"group_misses", st.GroupMisses,
		"area_misses", st.AreaMisses,
	)

	return rows, fr, nil
}

func isCancellation(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
