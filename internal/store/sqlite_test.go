package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/poolwatch/poolwatch/internal/occupancy"
)

func sampleAt(ts time.Time, occ int) occupancy.Sample {
	return occupancy.Sample{Timestamp: ts, Occupancy: occ}
}

func TestSQLiteInsertAndLatest(t *testing.T) {
	s := NewMemorySQLite(t)
	ctx := context.Background()

	if _, err := s.Latest(ctx); !errors.Is(err, occupancy.ErrNoData) {
		t.Fatalf("Latest() on empty store = %v, want ErrNoData", err)
	}

	capacity := 80
	in := occupancy.Sample{
		Timestamp: time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC),
		Occupancy: 37,
		Capacity:  &capacity,
		RawStatus: "37/80",
	}
	if err := s.Insert(ctx, in); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}

	got, err := s.Latest(ctx)
	if err != nil {
		t.Fatalf("Latest() error = %v", err)
	}
	if !got.Timestamp.Equal(in.Timestamp) {
		t.Errorf("Timestamp = %v, want %v", got.Timestamp, in.Timestamp)
	}
	if got.Occupancy != 37 {
		t.Errorf("Occupancy = %d, want 37", got.Occupancy)
	}
	if got.Capacity == nil || *got.Capacity != 80 {
		t.Errorf("Capacity = %v, want 80", got.Capacity)
	}
	if got.RawStatus != "37/80" {
		t.Errorf("RawStatus = %q, want %q", got.RawStatus, "37/80")
	}
}

func TestSQLiteNullableFields(t *testing.T) {
	s := NewMemorySQLite(t)
	ctx := context.Background()

	in := sampleAt(time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC), 5)
	if err := s.Insert(ctx, in); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}

	got, err := s.Latest(ctx)
	if err != nil {
		t.Fatalf("Latest() error = %v", err)
	}
	if got.Capacity != nil {
		t.Errorf("Capacity = %d, want nil", *got.Capacity)
	}
	if got.RawStatus != "" {
		t.Errorf("RawStatus = %q, want empty", got.RawStatus)
	}
}

func TestSQLiteDuplicateTimestampRejected(t *testing.T) {
	s := NewMemorySQLite(t)
	ctx := context.Background()

	ts := time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)
	if err := s.Insert(ctx, sampleAt(ts, 10)); err != nil {
		t.Fatalf("first Insert() error = %v", err)
	}
	if err := s.Insert(ctx, sampleAt(ts, 99)); !errors.Is(err, occupancy.ErrDuplicateSample) {
		t.Fatalf("duplicate Insert() = %v, want ErrDuplicateSample", err)
	}

	samples, err := s.Range(ctx, ts.Add(-time.Hour))
	if err != nil {
		t.Fatalf("Range() error = %v", err)
	}
	if len(samples) != 1 {
		t.Fatalf("row count after duplicate = %d, want 1", len(samples))
	}
	if samples[0].Occupancy != 10 {
		t.Errorf("stored Occupancy = %d, want the original 10", samples[0].Occupancy)
	}
}

func TestSQLiteRangeWindow(t *testing.T) {
	s := NewMemorySQLite(t)
	ctx := context.Background()
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)

	for _, tc := range []struct {
		age time.Duration
		occ int
	}{
		{48 * time.Hour, 1},
		{2 * time.Hour, 2},
		{time.Hour, 3},
	} {
		if err := s.Insert(ctx, sampleAt(now.Add(-tc.age), tc.occ)); err != nil {
			t.Fatalf("Insert() error = %v", err)
		}
	}

	samples, err := s.Range(ctx, now.Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("Range() error = %v", err)
	}
	if len(samples) != 2 {
		t.Fatalf("Range(24h) returned %d samples, want 2", len(samples))
	}
	if samples[0].Occupancy != 2 || samples[1].Occupancy != 3 {
		t.Errorf("Range(24h) = [%d, %d], want oldest-first [2, 3]",
			samples[0].Occupancy, samples[1].Occupancy)
	}
}

func TestSQLiteRangeEmptyWindow(t *testing.T) {
	s := NewMemorySQLite(t)
	ctx := context.Background()

	samples, err := s.Range(ctx, time.Now().Add(-time.Hour))
	if err != nil {
		t.Fatalf("Range() on empty store error = %v", err)
	}
	if len(samples) != 0 {
		t.Errorf("Range() on empty store returned %d samples, want 0", len(samples))
	}
}

// Restartable: the same query twice must yield the same result with no
// cursor state in between.
func TestSQLiteRangeRestartable(t *testing.T) {
	s := NewMemorySQLite(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	if err := s.Insert(ctx, sampleAt(now, 7)); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}

	for i := 0; i < 2; i++ {
		samples, err := s.Range(ctx, now.Add(-time.Hour))
		if err != nil {
			t.Fatalf("Range() call %d error = %v", i, err)
		}
		if len(samples) != 1 || samples[0].Occupancy != 7 {
			t.Fatalf("Range() call %d = %v, want the single stored sample", i, samples)
		}
	}
}
