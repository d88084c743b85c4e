package sensor

import (
	"sort"
	"time"
)

// Aggregate groups readings into period buckets and summarises each one.
//
// Bucket boundaries are computed in UTC. Buckets come back in ascending
// order of their start time, and every reading lands in exactly one bucket.
// The result is never nil.
func Aggregate(readings []Reading, period Period) []Bucket {
	acc := make(map[time.Time]*accumulator)
	for _, r := range readings {
		start := bucketStart(r.TimeRecorded, period)
		a, ok := acc[start]
		if !ok {
			a = &accumulator{}
			acc[start] = a
		}
		a.add(r)
	}

	starts := make([]time.Time, 0, len(acc))
	for start := range acc {
		starts = append(starts, start)
	}
	sort.Slice(starts, func(i, j int) bool { return starts[i].Before(starts[j]) })

	buckets := make([]Bucket, 0, len(starts))
	for _, start := range starts {
		buckets = append(buckets, acc[start].bucket(start, period))
	}
	return buckets
}

// bucketStart truncates t to the start of its period in UTC.
func bucketStart(t time.Time, period Period) time.Time {
	t = t.UTC()
	switch period {
	case PeriodHour:
		return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), 0, 0, 0, time.UTC)
	case PeriodMonth:
		return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	default:
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	}
}

func bucketKey(start time.Time, period Period) BucketKey {
	key := BucketKey{Year: start.Year(), Month: int(start.Month())}
	if period == PeriodMonth {
		return key
	}
	day := start.Day()
	key.Day = &day
	if period == PeriodHour {
		hour := start.Hour()
		key.Hour = &hour
	}
	return key
}

type accumulator struct {
	count int

	sumTemp, minTemp, maxTemp float64
	sumHum, minHum, maxHum    float64
	sumLdr                    float64
}

func (a *accumulator) add(r Reading) {
	if a.count == 0 {
		a.minTemp, a.maxTemp = r.Temperature, r.Temperature
		a.minHum, a.maxHum = r.Humidity, r.Humidity
	}
	a.count++

	a.sumTemp += r.Temperature
	a.minTemp = min(a.minTemp, r.Temperature)
	a.maxTemp = max(a.maxTemp, r.Temperature)

	a.sumHum += r.Humidity
	a.minHum = min(a.minHum, r.Humidity)
	a.maxHum = max(a.maxHum, r.Humidity)

	a.sumLdr += r.LdrValue
}

func (a *accumulator) bucket(start time.Time, period Period) Bucket {
	n := float64(a.count)
	return Bucket{
		Key:            bucketKey(start, period),
		Timestamp:      start,
		Count:          a.count,
		AvgTemperature: a.sumTemp / n,
		MinTemperature: a.minTemp,
		MaxTemperature: a.maxTemp,
		AvgHumidity:    a.sumHum / n,
		MinHumidity:    a.minHum,
		MaxHumidity:    a.maxHum,
		AvgLdrValue:    a.sumLdr / n,
	}
}
