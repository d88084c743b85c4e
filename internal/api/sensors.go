package api

import (
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/homebot/homebot-core/internal/sensor"
)

// dateOnly is the layout of a bare startDate/endDate value.
const dateOnly = "2006-01-02"

// handleListSensors returns one page of readings, newest first.
//
// Query parameters:
//   - page: 1-based page number (default 1)
//   - limit: page size (default 100, max 1000)
//   - startDate, endDate: RFC3339 or YYYY-MM-DD, inclusive
func (s *Server) handleListSensors(w http.ResponseWriter, r *http.Request) {
	rng, err := parseRange(r)
	if err != nil {
		s.writeBadRequest(w, err.Error())
		return
	}

	q := sensor.ListQuery{
		Page:  queryInt(r, "page"),
		Limit: queryInt(r, "limit"),
		Range: rng,
	}.Normalize()

	readings, total, err := s.sensors.List(r.Context(), q)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	if readings == nil {
		readings = []sensor.Reading{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"count":   len(readings),
		"total":   total,
		"page":    q.Page,
		"limit":   q.Limit,
		"data":    readings,
	})
}

// handleLatestSensor returns the most recent reading.
func (s *Server) handleLatestSensor(w http.ResponseWriter, r *http.Request) {
	reading, err := s.sensors.Latest(r.Context())
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, reading)
}

// handleAggregateSensors buckets readings by hour, day or month.
func (s *Server) handleAggregateSensors(w http.ResponseWriter, r *http.Request) {
	rng, err := parseRange(r)
	if err != nil {
		s.writeBadRequest(w, err.Error())
		return
	}

	period := r.URL.Query().Get("period")
	buckets, err := s.sensors.Aggregate(r.Context(), period, rng)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"period":  sensor.ParsePeriod(period),
		"count":   len(buckets),
		"data":    buckets,
	})
}

// handleGetSensor returns a reading by its node-supplied id.
func (s *Server) handleGetSensor(w http.ResponseWriter, r *http.Request) {
	reading, err := s.sensors.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, reading)
}

// handleCreateSensor stores one reading. A repeated id is a 409.
func (s *Server) handleCreateSensor(w http.ResponseWriter, r *http.Request) {
	var reading sensor.Reading
	if !s.decode(w, r, &reading) {
		return
	}

	if err := s.sensors.Record(mutationContext(r), &reading, sensor.SourceAPI); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeData(w, http.StatusCreated, reading)
}

// handleImportSensors stores the rows of a CSV upload. The CSV is either
// the raw request body or the "file" part of a multipart form.
func (s *Server) handleImportSensors(w http.ResponseWriter, r *http.Request) {
	var stream io.Reader = r.Body

	if mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type")); err == nil && mediaType == "multipart/form-data" {
		file, _, err := r.FormFile("file")
		if err != nil {
			s.writeBadRequest(w, "multipart upload must include a \"file\" part")
			return
		}
		defer file.Close()
		stream = file
	}

	result, err := s.sensors.Import(mutationContext(r), stream)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, result)
}

// parseRange reads startDate and endDate. A bare end date covers the
// whole day.
func parseRange(r *http.Request) (sensor.Range, error) {
	var rng sensor.Range
	q := r.URL.Query()

	if raw := q.Get("startDate"); raw != "" {
		start, _, err := parseDate(raw)
		if err != nil {
			return rng, fmt.Errorf("invalid startDate %q: use RFC3339 or YYYY-MM-DD", raw)
		}
		rng.Start = &start
	}
	if raw := q.Get("endDate"); raw != "" {
		end, bare, err := parseDate(raw)
		if err != nil {
			return rng, fmt.Errorf("invalid endDate %q: use RFC3339 or YYYY-MM-DD", raw)
		}
		if bare {
			end = end.Add(24*time.Hour - time.Nanosecond)
		}
		rng.End = &end
	}
	return rng, nil
}

// parseDate parses an RFC3339 timestamp or a bare date. bare reports the latter.
func parseDate(raw string) (t time.Time, bare bool, err error) {
	if t, err := time.Parse(dateOnly, raw); err == nil {
		return t.UTC(), true, nil
	}
	t, err = time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}, false, err
	}
	return t.UTC(), false, nil
}

// queryInt returns an integer query parameter, or 0 when absent or malformed.
func queryInt(r *http.Request, key string) int {
	n, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil {
		return 0
	}
	return n
}
