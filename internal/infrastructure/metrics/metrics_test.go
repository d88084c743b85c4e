package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestHelpersBeforeInit(t *testing.T) {
	// Must not panic while collectors are nil.
	if httpRequests != nil {
		t.Skip("collectors already registered by another test")
	}
	ObserveHTTP("GET", "/api/v1/health", 200, time.Millisecond)
	SetWSClients(3)
	IncBroadcast("device:added")
	IncSensorReading("api", nil)
	IncGroupControl("on", true, false)
}

func TestCounters(t *testing.T) {
	Init(nil)

	IncSensorReading("mqtt", nil)
	IncSensorReading("mqtt", errors.New("bad payload"))
	IncSensorReading("mqtt", nil)

	if got := testutil.ToFloat64(sensorIngest.WithLabelValues("mqtt", resultSuccess)); got != 2 {
		t.Errorf("mqtt success = %v, want 2", got)
	}
	if got := testutil.ToFloat64(sensorIngest.WithLabelValues("mqtt", resultError)); got != 1 {
		t.Errorf("mqtt error = %v, want 1", got)
	}

	IncGroupControl("off", false, true)
	if got := testutil.ToFloat64(groupControl.WithLabelValues("off", resultSkipped)); got != 1 {
		t.Errorf("group control skipped = %v, want 1", got)
	}

	SetWSClients(4)
	if got := testutil.ToFloat64(wsClients); got != 4 {
		t.Errorf("websocket clients = %v, want 4", got)
	}
}
