// Package sensor stores environmental readings from sensor nodes and
// aggregates them into time buckets.
//
// Readings arrive over the REST API, MQTT or a CSV import and all pass
// through Service.Record, which validates, stores and optionally mirrors
// them to a time-series database. Readings are immutable once stored.
//
// Aggregate is a pure function: it buckets readings by hour, day or month
// (UTC) and reports count, average, minimum and maximum per bucket.
package sensor
