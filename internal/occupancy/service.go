package occupancy

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// Store is the persistence contract the pipeline writes to and the query
// side reads from. internal/store provides the implementations.
type Store interface {
	Insert(ctx context.Context, sample Sample) error
	Latest(ctx context.Context) (Sample, error)
	Range(ctx context.Context, since time.Time) ([]Sample, error)
}

// PageFetcher retrieves the raw source page.
type PageFetcher interface {
	Fetch(ctx context.Context) (*RawPage, error)
}

// Service runs the fetch → extract → persist pipeline and serves the
// read side. It is the sole writer to the store; reads may happen
// concurrently at any time.
type Service struct {
	store   Store
	fetcher PageFetcher
	extract func([]byte) (Sample, error)
	clock   func() time.Time
	metrics *Metrics
}

// NewService creates a Service. metrics may be nil.
func NewService(store Store, fetcher PageFetcher, metrics *Metrics) *Service {
	return &Service{
		store:   store,
		fetcher: fetcher,
		extract: Extract,
		clock:   time.Now,
		metrics: metrics,
	}
}

// RunCycle performs one complete sampling attempt. Every failure is
// typed, logged with its classification, and counted; nothing partial is
// ever persisted and no error escapes to terminate the process — the
// scheduler simply waits for the next interval.
func (s *Service) RunCycle(ctx context.Context) error {
	start := time.Now()
	page, err := s.fetcher.Fetch(ctx)
	s.metrics.ObserveFetch(time.Since(start))
	if err != nil {
		return s.cycleFailed(err)
	}

	sample, err := s.extract(page.Body)
	if err != nil {
		return s.cycleFailed(err)
	}

	sample.Timestamp = s.clock().UTC().Truncate(time.Second)

	if err := s.store.Insert(ctx, sample); err != nil {
		if errors.Is(err, ErrDuplicateSample) {
			// A retried cycle within the same second; the stored
			// reading stays.
			slog.Debug("duplicate sample timestamp, keeping stored reading",
				slog.Time("timestamp", sample.Timestamp))
			s.metrics.CycleSkipped("duplicate")
			return nil
		}
		return s.cycleFailed(err)
	}

	capacity := 0
	if sample.Capacity != nil {
		capacity = *sample.Capacity
	}
	slog.Info("stored occupancy sample",
		slog.Time("timestamp", sample.Timestamp),
		slog.Int("occupancy", sample.Occupancy),
		slog.Int("capacity", capacity),
		slog.String("raw_status", sample.RawStatus),
	)
	s.metrics.CycleSucceeded(sample)
	return nil
}

func (s *Service) cycleFailed(err error) error {
	label := errorTypeLabel(err)
	slog.Warn("sampling cycle failed",
		slog.String("error_type", label),
		slog.Any("error", err),
	)
	s.metrics.CycleFailed(label)
	return err
}

// Latest returns the most recent sample, or ErrNoData.
func (s *Service) Latest(ctx context.Context) (Sample, error) {
	return s.store.Latest(ctx)
}

// History returns the samples of the last `hours` hours, oldest first.
// An empty slice is a normal outcome for a quiet store.
func (s *Service) History(ctx context.Context, hours int) ([]Sample, error) {
	if hours <= 0 {
		return nil, fmt.Errorf("hours must be positive, got %d", hours)
	}
	since := s.clock().UTC().Add(-time.Duration(hours) * time.Hour)
	return s.store.Range(ctx, since)
}
