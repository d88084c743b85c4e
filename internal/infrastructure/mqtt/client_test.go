package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/homebot/homebot-core/internal/sensor"
)

func TestTopicBuilders(t *testing.T) {
	topics := NewTopics("homebot")
	tests := []struct {
		name     string
		got      string
		expected string
	}{
		{name: "SystemStatus", got: topics.SystemStatus(), expected: "homebot/system/status"},
		{name: "Event", got: topics.Event("device:added"), expected: "homebot/events/device:added"},
		{name: "SensorReading", got: topics.SensorReading("esp32-01"), expected: "homebot/sensors/esp32-01/reading"},
		{name: "AllSensorReadings", got: topics.AllSensorReadings(), expected: "homebot/sensors/+/reading"},
		{name: "AllEvents", got: topics.AllEvents(), expected: "homebot/events/+"},
		{name: "CustomPrefix", got: NewTopics("/site-a/").Event("room:added"), expected: "site-a/events/room:added"},
		{name: "EmptyPrefix", got: NewTopics("").SystemStatus(), expected: "homebot/system/status"},
		{name: "ZeroValue", got: Topics{}.SystemStatus(), expected: "homebot/system/status"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.expected {
				t.Errorf("got %q, want %q", tt.got, tt.expected)
			}
		})
	}
}

func TestSensorIDFromTopic(t *testing.T) {
	topics := NewTopics("homebot")
	tests := []struct {
		topic  string
		want   string
		wantOK bool
	}{
		{topic: "homebot/sensors/esp32-01/reading", want: "esp32-01", wantOK: true},
		{topic: "homebot/sensors//reading"},
		{topic: "homebot/sensors/a/b/reading"},
		{topic: "other/sensors/x/reading"},
		{topic: "homebot/sensors/x/status"},
	}
	for _, tt := range tests {
		t.Run(tt.topic, func(t *testing.T) {
			got, ok := topics.SensorIDFromTopic(tt.topic)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("SensorIDFromTopic(%q) = %q, %v, want %q, %v", tt.topic, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestIsConnected_InitialState(t *testing.T) {
	client := &Client{}

	if client.IsConnected() {
		t.Error("IsConnected() should be false for uninitialised client")
	}
}

func TestCloseNil(t *testing.T) {
	client := &Client{}
	if err := client.Close(); err != nil {
		t.Errorf("Close() on nil client error = %v, want nil", err)
	}
}

func TestPublishValidation(t *testing.T) {
	client := &Client{}

	if err := client.Publish("", []byte("x"), 1, false); !errors.Is(err, ErrInvalidTopic) {
		t.Errorf("Publish(empty topic) error = %v, want ErrInvalidTopic", err)
	}
	if err := client.Publish("homebot/x", []byte("x"), 3, false); !errors.Is(err, ErrInvalidQoS) {
		t.Errorf("Publish(qos 3) error = %v, want ErrInvalidQoS", err)
	}
	if err := client.Publish("homebot/x", make([]byte, maxPayloadSize+1), 1, false); !errors.Is(err, ErrPublishFailed) {
		t.Errorf("Publish(large) error = %v, want ErrPublishFailed", err)
	}
	if err := client.Publish("homebot/x", []byte("x"), 1, false); !errors.Is(err, ErrNotConnected) {
		t.Errorf("Publish(disconnected) error = %v, want ErrNotConnected", err)
	}
}

func TestSubscribeValidation(t *testing.T) {
	client := &Client{subscriptions: make(map[string]subscription)}
	noop := func(string, []byte) error { return nil }

	if err := client.Subscribe("", 1, noop); !errors.Is(err, ErrInvalidTopic) {
		t.Errorf("Subscribe(empty topic) error = %v, want ErrInvalidTopic", err)
	}
	if err := client.Subscribe("homebot/x", 1, nil); !errors.Is(err, ErrSubscribeFailed) {
		t.Errorf("Subscribe(nil handler) error = %v, want ErrSubscribeFailed", err)
	}
	if err := client.Subscribe("homebot/x", 1, noop); !errors.Is(err, ErrNotConnected) {
		t.Errorf("Subscribe(disconnected) error = %v, want ErrNotConnected", err)
	}
	if client.SubscriptionCount() != 0 {
		t.Errorf("SubscriptionCount() = %d, want 0", client.SubscriptionCount())
	}
}

// fakeBroker records publishes and subscriptions in memory.
type fakeBroker struct {
	mu        sync.Mutex
	published map[string][]byte
	handlers  map[string]MessageHandler
	fail      error
}

func newFakeBroker() *fakeBroker {
	return &fakeBroker{published: make(map[string][]byte), handlers: make(map[string]MessageHandler)}
}

func (b *fakeBroker) Publish(topic string, payload []byte, _ byte, _ bool) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.fail != nil {
		return b.fail
	}
	b.published[topic] = payload
	return nil
}

func (b *fakeBroker) Subscribe(topic string, _ byte, handler MessageHandler) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[topic] = handler
	return nil
}

func (b *fakeBroker) message(topic string) ([]byte, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	p, ok := b.published[topic]
	return p, ok
}

func TestEventPublisher(t *testing.T) {
	broker := newFakeBroker()
	pub := NewEventPublisher(broker, NewTopics("homebot"), 1, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go pub.Run(ctx)

	pub.Notify("device:added", []string{"global", "kitchen"}, map[string]string{"id": "d1"})

	deadline := time.Now().Add(2 * time.Second)
	var body []byte
	for {
		if p, ok := broker.message("homebot/events/device:added"); ok {
			body = p
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("event was not published")
		}
		time.Sleep(5 * time.Millisecond)
	}

	var msg struct {
		Event    string            `json:"event"`
		Channels []string          `json:"channels"`
		Payload  map[string]string `json:"payload"`
	}
	if err := json.Unmarshal(body, &msg); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if msg.Event != "device:added" || len(msg.Channels) != 2 || msg.Payload["id"] != "d1" {
		t.Errorf("message = %+v", msg)
	}
}

func TestEventPublisher_DropsWhenFull(t *testing.T) {
	pub := NewEventPublisher(newFakeBroker(), NewTopics(""), 0, nil)

	// Run is not started, so the queue fills up.
	for n := 0; n < defaultEventQueue+3; n++ {
		pub.Notify("room:added", nil, nil)
	}
	if got := pub.Dropped(); got != 3 {
		t.Errorf("Dropped() = %d, want 3", got)
	}
}

type recordingStore struct {
	mu       sync.Mutex
	readings []sensor.Reading
	sources  []string
	err      error
}

func (s *recordingStore) Record(_ context.Context, r *sensor.Reading, source string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.readings = append(s.readings, *r)
	s.sources = append(s.sources, source)
	return nil
}

func TestSensorIngest(t *testing.T) {
	store := &recordingStore{}
	broker := newFakeBroker()
	ingest := NewSensorIngest(store, NewTopics("homebot"))
	fixed := time.Date(2026, 2, 1, 8, 0, 0, 0, time.UTC)
	ingest.now = func() time.Time { return fixed }

	if err := ingest.Start(broker, 1); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	handler, ok := broker.handlers["homebot/sensors/+/reading"]
	if !ok {
		t.Fatal("Start() did not subscribe to the sensor pattern")
	}

	t.Run("full payload", func(t *testing.T) {
		payload := `{"id":"r-1","temperature":21.5,"humidity":40,"ldrValue":300,"timeRecorded":"2026-02-01T07:30:00Z"}`
		if err := handler("homebot/sensors/esp32-01/reading", []byte(payload)); err != nil {
			t.Fatalf("handler error = %v", err)
		}
		got := store.readings[len(store.readings)-1]
		if got.ID != "r-1" || got.Temperature != 21.5 || got.LdrValue != 300 {
			t.Errorf("stored %+v", got)
		}
		if !got.TimeRecorded.Equal(time.Date(2026, 2, 1, 7, 30, 0, 0, time.UTC)) {
			t.Errorf("TimeRecorded = %v", got.TimeRecorded)
		}
		if store.sources[len(store.sources)-1] != sensor.SourceMQTT {
			t.Errorf("source = %q, want mqtt", store.sources[len(store.sources)-1])
		}
	})

	t.Run("defaults id and time", func(t *testing.T) {
		payload := `{"temperature":19,"humidity":55,"ldrValue":12}`
		if err := handler("homebot/sensors/esp32-02/reading", []byte(payload)); err != nil {
			t.Fatalf("handler error = %v", err)
		}
		got := store.readings[len(store.readings)-1]
		if len(got.ID) <= len("esp32-02-") || got.ID[:len("esp32-02-")] != "esp32-02-" {
			t.Errorf("generated ID = %q, want esp32-02- prefix", got.ID)
		}
		if !got.TimeRecorded.Equal(fixed) {
			t.Errorf("TimeRecorded = %v, want %v", got.TimeRecorded, fixed)
		}
	})

	t.Run("rejects bad payloads", func(t *testing.T) {
		bad := []string{
			`not json`,
			`{"temperature":19,"humidity":55}`,
			`{"temperature":19,"humidity":55,"ldrValue":1,"timeRecorded":"yesterday"}`,
		}
		for _, p := range bad {
			if err := handler("homebot/sensors/x/reading", []byte(p)); !errors.Is(err, sensor.ErrInvalidReading) {
				t.Errorf("handler(%s) error = %v, want ErrInvalidReading", p, err)
			}
		}
		if err := handler("homebot/other", []byte(`{}`)); err == nil {
			t.Error("handler accepted a foreign topic")
		}
	})
}

func TestStatusPayload(t *testing.T) {
	var got statusMessage
	if err := json.Unmarshal(offlineStatus("homebot-core", "shutdown"), &got); err != nil {
		t.Fatalf("offline status is not JSON: %v", err)
	}
	if got.Status != "offline" || got.ClientID != "homebot-core" || got.Reason != "shutdown" {
		t.Errorf("offline status = %+v", got)
	}
	if _, err := time.Parse(time.RFC3339, got.Timestamp); err != nil {
		t.Errorf("timestamp %q: %v", got.Timestamp, err)
	}

	got = statusMessage{}
	if err := json.Unmarshal(onlineStatus("homebot-core"), &got); err != nil {
		t.Fatalf("online status is not JSON: %v", err)
	}
	if got.Status != "online" || got.Reason != "" {
		t.Errorf("online status = %+v", got)
	}
}
