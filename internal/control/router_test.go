package control

import (
	"context"
	"errors"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/homebot/homebot-core/internal/activity"
	"github.com/homebot/homebot-core/internal/automation"
	"github.com/homebot/homebot-core/internal/device"
	"github.com/homebot/homebot-core/internal/infrastructure/database"
	"github.com/homebot/homebot-core/internal/infrastructure/logging"
	"github.com/homebot/homebot-core/internal/location"
	"github.com/homebot/homebot-core/migrations"
)

type sentEvent struct {
	event    string
	channels []string
	payload  any
}

// recorder is a Notifier that keeps every event.
type recorder struct {
	mu     sync.Mutex
	events []sentEvent
}

func (r *recorder) Notify(event string, channels []string, payload any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, sentEvent{event: event, channels: channels, payload: payload})
}

func (r *recorder) named(event string) []sentEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []sentEvent
	for _, e := range r.events {
		if e.event == event {
			out = append(out, e)
		}
	}
	return out
}

type fixture struct {
	router     *Router
	notes      *recorder
	activities *activity.SQLiteRepository
}

func setup(t *testing.T, opts ...func(*Config)) *fixture {
	t.Helper()

	db, err := database.Open(database.Config{Path: database.MemoryPath, BusyTimeout: 5})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	if err := db.Migrate(context.Background(), migrations.FS); err != nil {
		db.Close()
		t.Fatalf("failed to migrate test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	notes := &recorder{}
	acts := activity.NewSQLiteRepository(db.DB)
	cfg := Config{
		Devices:    device.NewSQLiteRepository(db.DB),
		Groups:     device.NewSQLiteGroupRepository(db.DB),
		Rooms:      location.NewSQLiteRepository(db.DB),
		Schedules:  automation.NewSQLiteRepository(db.DB),
		Activities: acts,
		Notifier:   notes,
		Logger:     logging.Discard(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	r := NewRouter(cfg)
	return &fixture{router: r, notes: notes, activities: acts}
}

func (f *fixture) device(t *testing.T, name, room string, state device.State) *device.Device {
	t.Helper()
	d, err := f.router.CreateDevice(context.Background(), CreateDeviceInput{
		Name:  name,
		Type:  device.TypeLight,
		Room:  room,
		State: state,
	})
	if err != nil {
		t.Fatalf("CreateDevice(%s) error = %v", name, err)
	}
	return d
}

func TestCreateDevice(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	d := f.device(t, "Lamp", "Living Room", nil)
	if d.Status != device.StatusOnline {
		t.Errorf("Status = %q, want online", d.Status)
	}
	if d.State == nil || len(d.State) != 0 {
		t.Errorf("State = %v, want empty map", d.State)
	}
	if d.LastUpdated.IsZero() {
		t.Error("LastUpdated not set")
	}

	added := f.notes.named(EventDeviceAdded)
	if len(added) != 1 {
		t.Fatalf("device:added events = %d, want 1", len(added))
	}
	if want := []string{GlobalChannel, "living-room"}; !slices.Equal(added[0].channels, want) {
		t.Errorf("channels = %v, want %v", added[0].channels, want)
	}

	feed, err := f.activities.Recent(ctx, 5)
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if len(feed) != 1 || feed[0].Type != activity.TypeNewDevice || feed[0].DeviceID != d.ID {
		t.Errorf("feed = %+v, want one new_device activity", feed)
	}
	if n := len(f.notes.named(EventNotification)); n != 1 {
		t.Errorf("notification:new events = %d, want 1", n)
	}

	t.Run("validation", func(t *testing.T) {
		cases := []CreateDeviceInput{
			{Type: device.TypeLight, Room: "Hall"},
			{Name: "X", Room: "Hall"},
			{Name: "X", Type: "toaster", Room: "Hall"},
			{Name: "X", Type: device.TypeDoor},
		}
		for _, in := range cases {
			if _, err := f.router.CreateDevice(ctx, in); !errors.Is(err, device.ErrInvalidDevice) {
				t.Errorf("CreateDevice(%+v) error = %v, want ErrInvalidDevice", in, err)
			}
		}
	})
}

func TestUpdateDeviceState_Merges(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	d := f.device(t, "Lamp", "Living Room", device.State{"on": false, "brightness": float64(80)})

	got, err := f.router.UpdateDeviceState(ctx, d.ID, device.State{"on": true})
	if err != nil {
		t.Fatalf("UpdateDeviceState() error = %v", err)
	}
	if got.State["on"] != true || got.State["brightness"] != float64(80) {
		t.Errorf("State = %v, want on=true brightness=80", got.State)
	}
	if !got.LastUpdated.After(d.LastUpdated) && !got.LastUpdated.Equal(d.LastUpdated) {
		t.Errorf("LastUpdated went backwards")
	}

	changed := f.notes.named(EventDeviceStateChanged)
	if len(changed) != 1 {
		t.Fatalf("device:state-changed events = %d, want 1", len(changed))
	}
	sc, ok := changed[0].payload.(StateChange)
	if !ok || sc.ID != d.ID || sc.Room != "Living Room" {
		t.Errorf("payload = %#v", changed[0].payload)
	}

	if _, err := f.router.UpdateDeviceState(ctx, "missing", device.State{"on": true}); !errors.Is(err, device.ErrDeviceNotFound) {
		t.Errorf("UpdateDeviceState(missing) error = %v, want ErrDeviceNotFound", err)
	}
}

func TestUpdateDevice(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	d := f.device(t, "Lamp", "Living Room", nil)

	room := "Bedroom"
	if _, err := f.router.UpdateDevice(ctx, d.ID, device.Patch{Room: &room}); err != nil {
		t.Fatalf("UpdateDevice(room) error = %v", err)
	}
	updated := f.notes.named(EventDeviceUpdated)
	if len(updated) != 1 {
		t.Fatalf("device:updated events = %d, want 1", len(updated))
	}
	if want := []string{GlobalChannel, "living-room", "bedroom"}; !slices.Equal(updated[0].channels, want) {
		t.Errorf("channels = %v, want %v", updated[0].channels, want)
	}

	offline := device.StatusOffline
	if _, err := f.router.UpdateDevice(ctx, d.ID, device.Patch{Status: &offline}); err != nil {
		t.Fatalf("UpdateDevice(status) error = %v", err)
	}
	feed, err := f.activities.Recent(ctx, 5)
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if feed[0].Type != activity.TypeDeviceOffline {
		t.Errorf("newest activity = %q, want device_offline", feed[0].Type)
	}
	if feed[1].Type != activity.TypeDeviceUpdated {
		t.Errorf("second activity = %q, want device_updated", feed[1].Type)
	}

	if _, err := f.router.UpdateDevice(ctx, "missing", device.Patch{}); !errors.Is(err, device.ErrDeviceNotFound) {
		t.Errorf("UpdateDevice(missing) error = %v, want ErrDeviceNotFound", err)
	}
}

func TestControlGroup(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	a := f.device(t, "Lamp A", "Hall", device.State{"on": false})
	b := f.device(t, "Lamp B", "Hall", device.State{"on": false, "brightness": float64(30)})
	c := f.device(t, "Sensor", "Hall", device.State{"motion": false})

	g, err := f.router.CreateGroup(ctx, GroupInput{Name: "Hall", DeviceIDs: []string{a.ID, b.ID, c.ID}})
	if err != nil {
		t.Fatalf("CreateGroup() error = %v", err)
	}

	res, err := f.router.ControlGroup(ctx, g.ID, device.ActionOn)
	if err != nil {
		t.Fatalf("ControlGroup() error = %v", err)
	}
	if res.Action != device.ActionOn || len(res.Results) != 3 {
		t.Fatalf("ControlGroup() = %+v", res)
	}
	for i, id := range []string{a.ID, b.ID} {
		if o := res.Results[i]; o.DeviceID != id || !o.Success || o.Skipped {
			t.Errorf("Results[%d] = %+v, want success for %s", i, o, id)
		}
	}
	if o := res.Results[2]; !o.Skipped || o.Success {
		t.Errorf("Results[2] = %+v, want skipped", o)
	}

	for _, id := range []string{a.ID, b.ID} {
		d, err := f.router.GetDevice(ctx, id)
		if err != nil {
			t.Fatalf("GetDevice() error = %v", err)
		}
		if d.State["on"] != true {
			t.Errorf("device %s on = %v, want true", id, d.State["on"])
		}
	}
	sensor, _ := f.router.GetDevice(ctx, c.ID)
	if _, has := sensor.State["on"]; has {
		t.Errorf("skipped device gained an on key: %v", sensor.State)
	}
	if n := len(f.notes.named(EventDeviceStateChanged)); n != 2 {
		t.Errorf("device:state-changed events = %d, want 2", n)
	}

	if _, err := f.router.ControlGroup(ctx, g.ID, "toggle"); !errors.Is(err, device.ErrInvalidAction) {
		t.Errorf("ControlGroup(toggle) error = %v, want ErrInvalidAction", err)
	}
	if _, err := f.router.ControlGroup(ctx, "missing", device.ActionOff); !errors.Is(err, device.ErrGroupNotFound) {
		t.Errorf("ControlGroup(missing) error = %v, want ErrGroupNotFound", err)
	}
}

// flakyDevices fails state writes for the ids in failing.
type flakyDevices struct {
	device.Repository
	failing map[string]bool
}

var errDiskFull = errors.New("disk full")

func (f *flakyDevices) UpdateState(ctx context.Context, id string, patch device.State, at time.Time) (*device.Device, error) {
	if f.failing[id] {
		return nil, errDiskFull
	}
	return f.Repository.UpdateState(ctx, id, patch, at)
}

func TestControlGroup_PartialFailure(t *testing.T) {
	flaky := &flakyDevices{failing: make(map[string]bool)}
	f := setup(t, func(cfg *Config) {
		flaky.Repository = cfg.Devices
		cfg.Devices = flaky
	})
	ctx := context.Background()

	a := f.device(t, "Lamp A", "Hall", device.State{"on": false})
	b := f.device(t, "Lamp B", "Hall", device.State{"on": false})
	flaky.failing[a.ID] = true

	g, err := f.router.CreateGroup(ctx, GroupInput{Name: "Hall", DeviceIDs: []string{a.ID, b.ID}})
	if err != nil {
		t.Fatalf("CreateGroup() error = %v", err)
	}

	res, err := f.router.ControlGroup(ctx, g.ID, device.ActionOn)
	if err != nil {
		t.Fatalf("ControlGroup() error = %v, want nil with per-device outcomes", err)
	}
	if len(res.Results) != 2 {
		t.Fatalf("len(Results) = %d, want 2", len(res.Results))
	}
	if o := res.Results[0]; o.DeviceID != a.ID || o.Success || o.Skipped || o.Error != errDiskFull.Error() {
		t.Errorf("Results[0] = %+v, want failure %q for %s", o, errDiskFull, a.ID)
	}
	if o := res.Results[1]; o.DeviceID != b.ID || !o.Success || o.Error != "" {
		t.Errorf("Results[1] = %+v, want success for %s", o, b.ID)
	}

	got, err := f.router.GetDevice(ctx, b.ID)
	if err != nil {
		t.Fatalf("GetDevice() error = %v", err)
	}
	if got.State["on"] != true {
		t.Errorf("device B on = %v, want true", got.State["on"])
	}
	got, _ = f.router.GetDevice(ctx, a.ID)
	if got.State["on"] != false {
		t.Errorf("failed device A on = %v, want false", got.State["on"])
	}
	if n := len(f.notes.named(EventDeviceStateChanged)); n != 1 {
		t.Errorf("device:state-changed events = %d, want 1", n)
	}
}

func TestCreateGroup_DeviceList(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	a := f.device(t, "Lamp", "Hall", nil)

	tests := []struct {
		name string
		ids  []string
	}{
		{name: "duplicate ids", ids: []string{a.ID, a.ID}},
		{name: "unknown id", ids: []string{a.ID, "ghost"}},
		{name: "empty", ids: nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.router.CreateGroup(ctx, GroupInput{Name: "G", DeviceIDs: tt.ids})
			if !errors.Is(err, device.ErrInvalidDeviceList) {
				t.Errorf("CreateGroup() error = %v, want ErrInvalidDeviceList", err)
			}
		})
	}

	g, err := f.router.CreateGroup(ctx, GroupInput{Name: "G", DeviceIDs: []string{a.ID}})
	if err != nil {
		t.Fatalf("CreateGroup() error = %v", err)
	}
	if g.Icon != device.DefaultGroupIcon || g.Color != device.DefaultGroupColor {
		t.Errorf("defaults = %q %q", g.Icon, g.Color)
	}
	if _, err := f.router.CreateGroup(ctx, GroupInput{DeviceIDs: []string{a.ID}}); !errors.Is(err, device.ErrInvalidGroup) {
		t.Errorf("CreateGroup(no name) error = %v, want ErrInvalidGroup", err)
	}
}

func TestRooms(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	room, err := f.router.CreateRoom(ctx, RoomInput{Name: "Living Room"})
	if err != nil {
		t.Fatalf("CreateRoom() error = %v", err)
	}
	if room.Icon != location.DefaultRoomIcon {
		t.Errorf("Icon = %q, want default", room.Icon)
	}
	if _, err := f.router.CreateRoom(ctx, RoomInput{Name: "Living Room"}); !errors.Is(err, location.ErrRoomExists) {
		t.Errorf("duplicate CreateRoom() error = %v, want ErrRoomExists", err)
	}

	lamp := f.device(t, "Lamp", "Living Room", nil)
	f.device(t, "Fan", "Living Room", nil)

	t.Run("delete refused while referenced", func(t *testing.T) {
		if err := f.router.DeleteRoom(ctx, room.ID); !errors.Is(err, location.ErrRoomHasDevices) {
			t.Errorf("DeleteRoom() error = %v, want ErrRoomHasDevices", err)
		}
	})

	t.Run("rename cascades", func(t *testing.T) {
		name := "Lounge"
		if _, err := f.router.UpdateRoom(ctx, room.ID, RoomPatch{Name: &name}); err != nil {
			t.Fatalf("UpdateRoom() error = %v", err)
		}
		moved, err := f.router.DevicesByRoom(ctx, "Lounge")
		if err != nil {
			t.Fatalf("DevicesByRoom() error = %v", err)
		}
		if len(moved) != 2 {
			t.Errorf("devices in Lounge = %d, want 2", len(moved))
		}
		left, _ := f.router.DevicesByRoom(ctx, "Living Room")
		if len(left) != 0 {
			t.Errorf("devices left in Living Room = %d, want 0", len(left))
		}

		summaries, err := f.router.ListRooms(ctx)
		if err != nil {
			t.Fatalf("ListRooms() error = %v", err)
		}
		if len(summaries) != 1 || summaries[0].DeviceCount != 2 {
			t.Errorf("ListRooms() = %+v, want one room with 2 devices", summaries)
		}
	})

	t.Run("delete succeeds once empty", func(t *testing.T) {
		devices, _ := f.router.DevicesByRoom(ctx, "Lounge")
		for _, d := range devices {
			if err := f.router.DeleteDevice(ctx, d.ID); err != nil {
				t.Fatalf("DeleteDevice() error = %v", err)
			}
		}
		if err := f.router.DeleteRoom(ctx, room.ID); err != nil {
			t.Fatalf("DeleteRoom() error = %v", err)
		}
		if _, err := f.router.GetRoom(ctx, room.ID); !errors.Is(err, location.ErrRoomNotFound) {
			t.Errorf("GetRoom() after delete error = %v, want ErrRoomNotFound", err)
		}
		if _, err := f.router.GetDevice(ctx, lamp.ID); !errors.Is(err, device.ErrDeviceNotFound) {
			t.Errorf("GetDevice() after delete error = %v", err)
		}
	})
}

func TestDeleteDevice_ShrinksGroupsAndSchedules(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	a := f.device(t, "Lamp A", "Hall", device.State{"on": false})
	b := f.device(t, "Lamp B", "Hall", device.State{"on": false})

	g, err := f.router.CreateGroup(ctx, GroupInput{Name: "Hall", DeviceIDs: []string{a.ID, b.ID}})
	if err != nil {
		t.Fatalf("CreateGroup() error = %v", err)
	}
	s, err := f.router.CreateSchedule(ctx, ScheduleInput{
		Name: "Evening", DeviceIDs: []string{a.ID, b.ID},
		TimeOn: "18:00", TimeOff: "23:00", Days: []automation.Day{"fri", "sat", "fri"},
	})
	if err != nil {
		t.Fatalf("CreateSchedule() error = %v", err)
	}
	if !s.Active || len(s.Days) != 2 {
		t.Errorf("schedule = %+v, want active with days [fri sat]", s)
	}

	if err := f.router.DeleteDevice(ctx, a.ID); err != nil {
		t.Fatalf("DeleteDevice() error = %v", err)
	}

	gotGroup, _ := f.router.GetGroup(ctx, g.ID)
	if !slices.Equal(gotGroup.DeviceIDs, []string{b.ID}) {
		t.Errorf("group devices = %v, want [%s]", gotGroup.DeviceIDs, b.ID)
	}
	gotSchedule, _ := f.router.GetSchedule(ctx, s.ID)
	if !slices.Equal(gotSchedule.DeviceIDs, []string{b.ID}) {
		t.Errorf("schedule devices = %v, want [%s]", gotSchedule.DeviceIDs, b.ID)
	}

	if n := len(f.notes.named(EventDeviceRemoved)); n != 1 {
		t.Errorf("device:removed events = %d, want 1", n)
	}
	if n := len(f.notes.named(EventGroupUpdated)); n != 1 {
		t.Errorf("group:updated events = %d, want 1", n)
	}
	if n := len(f.notes.named(EventScheduleUpdated)); n != 1 {
		t.Errorf("schedule:updated events = %d, want 1", n)
	}

	if err := f.router.DeleteDevice(ctx, a.ID); !errors.Is(err, device.ErrDeviceNotFound) {
		t.Errorf("second DeleteDevice() error = %v, want ErrDeviceNotFound", err)
	}
}

func TestSchedules(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	a := f.device(t, "Lamp", "Hall", nil)

	_, err := f.router.CreateSchedule(ctx, ScheduleInput{
		Name: "Bad", DeviceIDs: []string{a.ID}, TimeOn: "07:00", TimeOff: "08:00",
		Days: []automation.Day{"mon", "someday"},
	})
	if !errors.Is(err, automation.ErrInvalidDay) {
		t.Errorf("CreateSchedule(bad day) error = %v, want ErrInvalidDay", err)
	}

	inactive := false
	s, err := f.router.CreateSchedule(ctx, ScheduleInput{
		Name: "Morning", DeviceIDs: []string{a.ID}, TimeOn: "07:00", TimeOff: "08:00",
		Days: []automation.Day{"mon"}, Active: &inactive,
	})
	if err != nil {
		t.Fatalf("CreateSchedule() error = %v", err)
	}
	if s.Active {
		t.Error("Active = true, want false as requested")
	}

	toggled, err := f.router.ToggleSchedule(ctx, s.ID)
	if err != nil {
		t.Fatalf("ToggleSchedule() error = %v", err)
	}
	if !toggled.Active {
		t.Error("ToggleSchedule() did not flip active")
	}

	name := "Weekday Morning"
	updated, err := f.router.UpdateSchedule(ctx, s.ID, automation.Patch{Name: &name, Days: []automation.Day{"tue", "wed"}})
	if err != nil {
		t.Fatalf("UpdateSchedule() error = %v", err)
	}
	if updated.Name != name || len(updated.Days) != 2 || !updated.Active {
		t.Errorf("UpdateSchedule() = %+v", updated)
	}

	if err := f.router.DeleteSchedule(ctx, s.ID); err != nil {
		t.Fatalf("DeleteSchedule() error = %v", err)
	}
	if _, err := f.router.GetSchedule(ctx, s.ID); !errors.Is(err, automation.ErrScheduleNotFound) {
		t.Errorf("GetSchedule() after delete error = %v", err)
	}
	if n := len(f.notes.named(EventScheduleRemoved)); n != 1 {
		t.Errorf("schedule:removed events = %d, want 1", n)
	}
}

func TestMultiNotifier(t *testing.T) {
	var a, b recorder
	m := MultiNotifier{&a, nil, &b}
	m.Notify(EventRoomAdded, []string{GlobalChannel}, nil)

	if len(a.events) != 1 || len(b.events) != 1 {
		t.Errorf("fan-out reached %d and %d notifiers, want 1 and 1", len(a.events), len(b.events))
	}
}

func TestRoomChannels(t *testing.T) {
	got := roomChannels("Living Room", "", "living room", "Kitchen")
	want := []string{GlobalChannel, "living-room", "kitchen"}
	if !slices.Equal(got, want) {
		t.Errorf("roomChannels() = %v, want %v", got, want)
	}
}
