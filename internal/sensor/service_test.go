package sensor

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/homebot/homebot-core/internal/infrastructure/logging"
)

type recordingMirror struct {
	mu  sync.Mutex
	ids []string
}

func (m *recordingMirror) WriteSensorReading(id string, _, _, _ float64, _ time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ids = append(m.ids, id)
}

func newTestService(t *testing.T) (*Service, *recordingMirror) {
	t.Helper()
	svc := NewService(NewSQLiteRepository(setupTestDB(t)), logging.Discard())
	mirror := &recordingMirror{}
	svc.SetMirror(mirror)
	return svc, mirror
}

func TestService_RecordMirrorsOnlyStoredReadings(t *testing.T) {
	svc, mirror := newTestService(t)
	ctx := context.Background()

	r := &Reading{ID: "n1", Temperature: 20, Humidity: 45, LdrValue: 100, TimeRecorded: at(1, 1)}
	if err := svc.Record(ctx, r, SourceAPI); err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	dup := *r
	if err := svc.Record(ctx, &dup, SourceAPI); !errors.Is(err, ErrDuplicateReading) {
		t.Fatalf("Record(duplicate) error = %v, want ErrDuplicateReading", err)
	}
	if err := svc.Record(ctx, &Reading{ID: "", TimeRecorded: at(1, 1)}, SourceAPI); !errors.Is(err, ErrInvalidReading) {
		t.Fatalf("Record(no id) error = %v, want ErrInvalidReading", err)
	}

	if len(mirror.ids) != 1 || mirror.ids[0] != "n1" {
		t.Errorf("mirror received %v, want [n1]", mirror.ids)
	}
}

func TestService_RecordMatchesStoredTime(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	recorded := time.Date(2026, 5, 1, 10, 15, 30, 123456789, time.FixedZone("CEST", 2*3600))
	r := &Reading{ID: "precise", Temperature: 21, Humidity: 40, LdrValue: 10, TimeRecorded: recorded}
	if err := svc.Record(ctx, r, SourceAPI); err != nil {
		t.Fatalf("Record() error = %v", err)
	}

	want := time.Date(2026, 5, 1, 8, 15, 30, 123000000, time.UTC)
	if !r.TimeRecorded.Equal(want) || r.TimeRecorded.Location() != time.UTC {
		t.Errorf("recorded TimeRecorded = %v, want %v", r.TimeRecorded, want)
	}

	got, err := svc.Get(ctx, "precise")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if !got.TimeRecorded.Equal(r.TimeRecorded) {
		t.Errorf("stored TimeRecorded = %v, returned on create %v", got.TimeRecorded, r.TimeRecorded)
	}
}

func TestService_AggregateRange(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	for i, ts := range []time.Time{at(1, 8), at(1, 9), at(1, 9), at(2, 9)} {
		r := &Reading{ID: string(rune('a' + i)), Temperature: float64(10 * (i + 1)), TimeRecorded: ts.Add(time.Duration(i) * time.Minute)}
		if err := svc.Record(ctx, r, SourceAPI); err != nil {
			t.Fatalf("Record() error = %v", err)
		}
	}

	buckets, err := svc.Aggregate(ctx, "hour", Range{End: ptr(at(1, 23))})
	if err != nil {
		t.Fatalf("Aggregate() error = %v", err)
	}
	if len(buckets) != 2 {
		t.Fatalf("got %d buckets, want 2", len(buckets))
	}
	if buckets[1].Count != 2 || buckets[1].AvgTemperature != 25 {
		t.Errorf("09:00 bucket = count %d avg %v, want 2 and 25", buckets[1].Count, buckets[1].AvgTemperature)
	}

	_, err = svc.Aggregate(ctx, "day", Range{Start: ptr(at(2, 0)), End: ptr(at(1, 0))})
	if !errors.Is(err, ErrInvalidRange) {
		t.Errorf("Aggregate(end before start) error = %v, want ErrInvalidRange", err)
	}

	buckets, err = svc.Aggregate(ctx, "day", Range{Start: ptr(at(25, 0))})
	if err != nil {
		t.Fatalf("Aggregate(empty) error = %v", err)
	}
	if buckets == nil || len(buckets) != 0 {
		t.Errorf("Aggregate(empty) = %v, want empty non-nil", buckets)
	}
}

func TestService_Import(t *testing.T) {
	svc, mirror := newTestService(t)
	ctx := context.Background()

	csvData := strings.Join([]string{
		"id,temperature,humidity,timeRecorded,ldrValue",
		"c1,21.5,40,2026-05-01T08:00:00Z,300",
		"c2,not-a-number,40,2026-05-01T09:00:00Z,300",
		"c3,22,41,2026-05-01 10:00:00,310",
		"c1,23,42,2026-05-01T11:00:00Z,320",
		",23,42,2026-05-01T11:00:00Z,320",
	}, "\n")

	result, err := svc.Import(ctx, strings.NewReader(csvData))
	if err != nil {
		t.Fatalf("Import() error = %v", err)
	}
	if result.Total != 5 || result.Imported != 2 || result.Failed != 3 {
		t.Errorf("Import() = %+v, want total 5 imported 2 failed 3", result)
	}
	if len(result.Errors) != 3 || !strings.HasPrefix(result.Errors[0], "line 3:") {
		t.Errorf("Errors = %v, want first on line 3", result.Errors)
	}
	if len(mirror.ids) != 2 {
		t.Errorf("mirror received %d readings, want 2", len(mirror.ids))
	}

	got, err := svc.Get(ctx, "c3")
	if err != nil {
		t.Fatalf("Get(c3) error = %v", err)
	}
	if want := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC); !got.TimeRecorded.Equal(want) {
		t.Errorf("c3 TimeRecorded = %v, want %v", got.TimeRecorded, want)
	}
}

func TestService_ImportMissingColumn(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.Import(context.Background(), strings.NewReader("id,temperature\nx,1\n"))
	if !errors.Is(err, ErrInvalidReading) {
		t.Errorf("Import() error = %v, want ErrInvalidReading", err)
	}
}
