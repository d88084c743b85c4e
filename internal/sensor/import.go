package sensor

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

// Column names are matched case-insensitively.
var requiredColumns = []string{"id", "temperature", "humidity", "timerecorded", "ldrvalue"}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseCSV reads readings from a CSV stream with a header row and hands
// each one to store. A bad line or a failed store is recorded in the
// result and the import moves on. The returned error is reserved for an
// unreadable header or a cancelled context.
func ParseCSV(ctx context.Context, stream io.Reader, store func(context.Context, *Reading) error) (*ImportResult, error) {
	reader := csv.NewReader(stream)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	result := &ImportResult{}

	headers, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return result, nil
		}
		return nil, fmt.Errorf("%w: reading csv header: %w", ErrInvalidReading, err)
	}

	columns := make(map[string]int, len(headers))
	for i, h := range headers {
		columns[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, col := range requiredColumns {
		if _, ok := columns[col]; !ok {
			return nil, fmt.Errorf("%w: missing required csv column %q", ErrInvalidReading, col)
		}
	}

	// line counts from 1 at the header.
	line := 1
	for {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		result.Total++
		if err != nil {
			result.fail(line, err)
			continue
		}

		reading, err := parseRecord(record, columns)
		if err != nil {
			result.fail(line, err)
			continue
		}
		if err := store(ctx, reading); err != nil {
			result.fail(line, err)
			continue
		}
		result.Imported++
	}

	return result, nil
}

func (r *ImportResult) fail(line int, err error) {
	r.Failed++
	r.Errors = append(r.Errors, fmt.Sprintf("line %d: %v", line, err))
}

func parseRecord(record []string, columns map[string]int) (*Reading, error) {
	get := func(col string) string {
		if idx := columns[col]; idx < len(record) {
			return strings.TrimSpace(record[idx])
		}
		return ""
	}

	reading := &Reading{ID: get("id")}
	if reading.ID == "" {
		return nil, errors.New("id is empty")
	}

	var err error
	if reading.Temperature, err = parseFloat("temperature", get("temperature")); err != nil {
		return nil, err
	}
	if reading.Humidity, err = parseFloat("humidity", get("humidity")); err != nil {
		return nil, err
	}
	if reading.LdrValue, err = parseFloat("ldrValue", get("ldrvalue")); err != nil {
		return nil, err
	}
	if reading.TimeRecorded, err = ParseTimestamp(get("timerecorded")); err != nil {
		return nil, err
	}
	return reading, nil
}

func parseFloat(name, raw string) (float64, error) {
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q", name, raw)
	}
	return v, nil
}

// ParseTimestamp accepts RFC3339 and the common SQL-style layouts.
// Values without a zone are taken as UTC.
func ParseTimestamp(raw string) (time.Time, error) {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid timestamp %q", raw)
}
