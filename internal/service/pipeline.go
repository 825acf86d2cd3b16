package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"fitmetrics/internal/analysis"
	"fitmetrics/internal/errreport"
	"fitmetrics/internal/freshness"
	"fitmetrics/internal/store"
)

// PipelineService recomputes derived metrics for every stored raw activity
type PipelineService struct {
	store    *store.Store
	zones    analysis.HRZones
	marker   *freshness.Marker
	reporter *errreport.Reporter
	logger   *zap.SugaredLogger
	workers  int
	now      func() time.Time
}

// NewPipelineService creates a pipeline. workers below 1 means sequential.
func NewPipelineService(st *store.Store, zones analysis.HRZones, marker *freshness.Marker, reporter *errreport.Reporter, logger *zap.SugaredLogger, workers int) *PipelineService {
	if workers < 1 {
		workers = DefaultWorkers
	}
	return &PipelineService{
		store:    st,
		zones:    zones,
		marker:   marker,
		reporter: reporter,
		logger:   logger,
		workers:  workers,
		now:      time.Now,
	}
}

// RunProgress reports progress during a run
type RunProgress struct {
	Total           int
	Completed       int
	CurrentActivity string
	Error           error
}

// RunResult contains the results of a pipeline run
type RunResult struct {
	Run           *store.PipelineRun
	Failures      []*ProcessingError
	MarkerWritten bool
}

// ProcessActivity computes and stores the derived record for one activity.
// Failures are returned as *ProcessingError.
func (p *PipelineService) ProcessActivity(ctx context.Context, raw store.RawActivity) (*store.DerivedMetrics, error) {
	payload, err := store.ParseActivityPayload(raw.RawJSON)
	if err != nil {
		return nil, malformedError(raw.ActivityID, err)
	}

	rows, err := p.store.GetRawStreams(ctx, raw.ActivityID)
	if err != nil {
		return nil, storageError(raw.ActivityID, fmt.Errorf("loading streams: %w", err))
	}
	streams := decodeStreams(raw.ActivityID, rows, p.logger)

	weatherJSON, err := p.store.GetRawWeather(ctx, raw.ActivityID)
	if err != nil {
		return nil, storageError(raw.ActivityID, fmt.Errorf("loading weather: %w", err))
	}
	var weather *store.Weather
	weatherUnreadable := false
	if weatherJSON != "" {
		if weather, err = store.ParseWeather(weatherJSON); err != nil {
			p.logger.Warnw("Ignoring unreadable weather snapshot", "activity_id", raw.ActivityID, "error", err)
			weather = nil
			weatherUnreadable = true
		}
	}

	metrics := analysis.ComputeDerivedMetrics(raw, *payload, streams, weather, p.zones)
	if weatherUnreadable {
		metrics.Warnings = append(metrics.Warnings, WarnWeatherUnreadable)
	}

	if err := p.store.SaveDerivedMetrics(ctx, &metrics); err != nil {
		return nil, storageError(raw.ActivityID, err)
	}

	p.logger.Debugw("Activity processed",
		"activity_id", raw.ActivityID,
		"type", metrics.ActivityType,
		"warnings", len(metrics.Warnings),
	)
	return &metrics, nil
}

// Run processes all raw activities and records the run. Malformed activities
// are skipped; storage failures and cancellation abort the run. The
// last-update marker is written only when every activity was attempted.
func (p *PipelineService) Run(ctx context.Context, progress chan<- RunProgress) (*RunResult, error) {
	if progress != nil {
		defer close(progress)
	}

	started := p.now()
	run, err := p.store.StartRun(ctx, started)
	if err != nil {
		p.reporter.Capture(err, map[string]string{"stage": "start"})
		return nil, fmt.Errorf("starting run: %w", err)
	}
	logger := p.logger.With("run_id", run.ID)
	logger.Infow("Pipeline run started", "workers", p.workers)

	result := &RunResult{Run: run}
	runErr := p.processAll(ctx, run, logger, progress, result)
	if runErr == nil {
		runErr = p.markComplete(ctx, run)
		result.MarkerWritten = runErr == nil
	}

	finished := p.now()
	duration := finished.Sub(started).Seconds()
	run.FinishedAt = &finished
	run.DurationSec = &duration
	if runErr != nil {
		run.Status = store.RunStatusError
		msg := runErr.Error()
		run.Message = &msg
	} else {
		run.Status = store.RunStatusOK
		msg := fmt.Sprintf("processed %d activities, %d skipped", run.ActivitiesSucceeded, run.ActivitiesFailed)
		run.Message = &msg
	}

	// Record the outcome even when ctx was cancelled
	if err := p.store.FinishRun(context.WithoutCancel(ctx), run); err != nil {
		logger.Errorw("Failed to record run outcome", "error", err)
		if runErr == nil {
			runErr = fmt.Errorf("finishing run: %w", err)
		}
	}

	if runErr != nil {
		logger.Errorw("Pipeline run failed", "error", runErr)
		p.reporter.Capture(runErr, map[string]string{"run_id": run.ID, "stage": "run"})
		return result, runErr
	}

	logger.Infow("Pipeline run finished",
		"activities", run.ActivitiesProcessed,
		"succeeded", run.ActivitiesSucceeded,
		"failed", run.ActivitiesFailed,
		"duration_sec", duration,
	)
	return result, nil
}

func (p *PipelineService) processAll(ctx context.Context, run *store.PipelineRun, logger *zap.SugaredLogger, progress chan<- RunProgress, result *RunResult) error {
	var err error
	if run.ActivitiesProcessed, err = p.store.CountRawActivities(ctx); err != nil {
		return fmt.Errorf("counting activities: %w", err)
	}
	if run.StreamsProcessed, err = p.store.CountStreams(ctx); err != nil {
		return fmt.Errorf("counting streams: %w", err)
	}
	if run.WeatherProcessed, err = p.store.CountWeatherActivities(ctx); err != nil {
		return fmt.Errorf("counting weather: %w", err)
	}

	activities, err := p.store.ListRawActivities(ctx)
	if err != nil {
		return fmt.Errorf("listing activities: %w", err)
	}
	total := len(activities)

	if progress != nil {
		progress <- RunProgress{Total: total, Completed: 0}
	}

	var mu sync.Mutex
	completed := 0

	handle := func(ctx context.Context, raw store.RawActivity) error {
		_, err := p.ProcessActivity(ctx, raw)

		var perr *ProcessingError
		if err != nil && !(errors.As(err, &perr) && perr.Kind == KindMalformed) {
			return err
		}

		mu.Lock()
		completed++
		done := completed
		if err == nil {
			run.ActivitiesSucceeded++
		} else {
			run.ActivitiesFailed++
			result.Failures = append(result.Failures, perr)
		}
		mu.Unlock()

		if err != nil {
			logger.Warnw("Skipping malformed activity", "activity_id", raw.ActivityID, "error", perr.Err)
			p.reporter.Capture(err, map[string]string{
				"run_id":      run.ID,
				"activity_id": raw.ActivityID,
				"kind":        string(perr.Kind),
			})
		}

		// Send outside the lock
		if progress != nil {
			progress <- RunProgress{
				Total:           total,
				Completed:       done,
				CurrentActivity: raw.ActivityID,
				Error:           err,
			}
		}
		return nil
	}

	if p.workers <= 1 {
		for _, raw := range activities {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := handle(ctx, raw); err != nil {
				return err
			}
		}
	} else {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(p.workers)
		for _, raw := range activities {
			if gctx.Err() != nil {
				break
			}
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				return handle(gctx, raw)
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
	}

	sort.Slice(result.Failures, func(i, j int) bool {
		return result.Failures[i].ActivityID < result.Failures[j].ActivityID
	})
	return nil
}

// markComplete stores the run bookkeeping and touches the last-update marker
func (p *PipelineService) markComplete(ctx context.Context, run *store.PipelineRun) error {
	now := p.now().UTC()
	if err := p.store.SetState(ctx, store.StateLastRunID, run.ID); err != nil {
		return fmt.Errorf("saving run state: %w", err)
	}
	if err := p.store.SetState(ctx, store.StateLastSuccess, now.Format(time.RFC3339)); err != nil {
		return fmt.Errorf("saving run state: %w", err)
	}
	if p.marker == nil {
		return nil
	}
	if err := p.marker.Write(now); err != nil {
		return fmt.Errorf("writing last-update marker: %w", err)
	}
	return nil
}
