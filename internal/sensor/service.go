package sensor

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/homebot/homebot-core/internal/infrastructure/logging"
	"github.com/homebot/homebot-core/internal/infrastructure/metrics"
)

// Reading sources, used as a metrics label.
const (
	SourceAPI  = "api"
	SourceMQTT = "mqtt"
	SourceCSV  = "csv"
)

// Mirror receives a copy of every stored reading, typically a time-series
// database. Writes are fire-and-forget.
type Mirror interface {
	WriteSensorReading(id string, temperature, humidity, ldrValue float64, recorded time.Time)
}

// Service is the entry point for reading ingest and queries.
// The store is authoritative; the mirror only ever receives copies.
type Service struct {
	repo   Repository
	logger *logging.Logger

	mu     sync.RWMutex
	mirror Mirror
}

// NewService creates a Service over repo.
func NewService(repo Repository, logger *logging.Logger) *Service {
	return &Service{
		repo:   repo,
		logger: logger.With("component", "sensor"),
	}
}

// SetMirror attaches a mirror. Pass nil to detach.
func (s *Service) SetMirror(m Mirror) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mirror = m
}

// Record validates and stores a reading received from source.
func (s *Service) Record(ctx context.Context, r *Reading, source string) error {
	err := s.record(ctx, r)
	metrics.IncSensorReading(source, err)
	return err
}

func (s *Service) record(ctx context.Context, r *Reading) error {
	if err := ValidateReading(r); err != nil {
		return err
	}
	// Stored timestamps carry milliseconds.
	r.TimeRecorded = r.TimeRecorded.UTC().Truncate(time.Millisecond)

	if err := s.repo.Create(ctx, r); err != nil {
		return err
	}

	s.mu.RLock()
	mirror := s.mirror
	s.mu.RUnlock()
	if mirror != nil {
		mirror.WriteSensorReading(r.ID, r.Temperature, r.Humidity, r.LdrValue, r.TimeRecorded)
	}
	return nil
}

// Get returns a reading by ID.
func (s *Service) Get(ctx context.Context, id string) (*Reading, error) {
	return s.repo.GetByID(ctx, id)
}

// Latest returns the most recently recorded reading.
func (s *Service) Latest(ctx context.Context) (*Reading, error) {
	return s.repo.Latest(ctx)
}

// List returns one page of readings, newest first, with the range total.
func (s *Service) List(ctx context.Context, q ListQuery) ([]Reading, int, error) {
	if err := ValidateRange(q.Range); err != nil {
		return nil, 0, err
	}
	return s.repo.List(ctx, q.Normalize())
}

// Aggregate loads the readings in rng and buckets them by period.
// An unknown period is treated as "day".
func (s *Service) Aggregate(ctx context.Context, period string, rng Range) ([]Bucket, error) {
	if err := ValidateRange(rng); err != nil {
		return nil, err
	}
	readings, err := s.repo.ListRange(ctx, rng)
	if err != nil {
		return nil, err
	}
	return Aggregate(readings, ParsePeriod(period)), nil
}

// Import stores every valid row of a CSV stream.
func (s *Service) Import(ctx context.Context, stream io.Reader) (*ImportResult, error) {
	result, err := ParseCSV(ctx, stream, func(ctx context.Context, r *Reading) error {
		return s.Record(ctx, r, SourceCSV)
	})
	if result != nil {
		s.logger.Info("sensor csv import finished",
			"total", result.Total,
			"imported", result.Imported,
			"failed", result.Failed,
		)
	}
	return result, err
}
