package service

import (
	"context"
	"fmt"

	"fitmetrics/internal/freshness"
	"fitmetrics/internal/store"
)

// QueryService provides read-only queries over derived data. Results are
// cached until the last-update marker changes or the entry expires, and are
// shared between callers so they must not be modified.
type QueryService struct {
	store  *store.Store
	marker *freshness.Marker
	cache  *freshness.Cache
}

// NewQueryService creates a new query service
func NewQueryService(st *store.Store, marker *freshness.Marker, cache *freshness.Cache) *QueryService {
	return &QueryService{store: st, marker: marker, cache: cache}
}

func (q *QueryService) stamp() string {
	if q.marker == nil {
		return ""
	}
	return q.marker.Stamp()
}

// DerivedMetrics returns the stored derived record for an activity
func (q *QueryService) DerivedMetrics(ctx context.Context, activityID string) (*store.DerivedMetrics, error) {
	v, err := q.cache.GetOrSet(cacheKeyMetrics+activityID, q.stamp(), func() (interface{}, error) {
		return q.store.GetDerivedMetrics(ctx, activityID)
	})
	if err != nil {
		return nil, err
	}
	return v.(*store.DerivedMetrics), nil
}

// LatestRun returns the most recent pipeline run
func (q *QueryService) LatestRun(ctx context.Context) (*store.PipelineRun, error) {
	v, err := q.cache.GetOrSet(cacheKeyLatestRun, q.stamp(), func() (interface{}, error) {
		return q.store.LatestRun(ctx)
	})
	if err != nil {
		return nil, err
	}
	return v.(*store.PipelineRun), nil
}

// Weekly returns the weekly run rollup, most recent week first
func (q *QueryService) Weekly(ctx context.Context, weeks int) ([]store.WeeklySummary, error) {
	if weeks <= 0 {
		weeks = WeeklySummaryLimit
	}
	v, err := q.cache.GetOrSet(fmt.Sprintf("%s%d", cacheKeyWeekly, weeks), q.stamp(), func() (interface{}, error) {
		return q.store.GetWeeklySummaries(ctx, weeks)
	})
	if err != nil {
		return nil, err
	}
	return v.([]store.WeeklySummary), nil
}
