package control

import "github.com/homebot/homebot-core/internal/location"

// GlobalChannel is the channel every real-time client is subscribed to.
const GlobalChannel = "global"

// Event names emitted by the Router.
const (
	EventDeviceAdded        = "device:added"
	EventDeviceUpdated      = "device:updated"
	EventDeviceStateChanged = "device:state-changed"
	EventDeviceRemoved      = "device:removed"

	EventRoomAdded   = "room:added"
	EventRoomUpdated = "room:updated"
	EventRoomRemoved = "room:removed"

	EventGroupAdded   = "group:added"
	EventGroupUpdated = "group:updated"
	EventGroupRemoved = "group:removed"

	EventScheduleAdded   = "schedule:added"
	EventScheduleUpdated = "schedule:updated"
	EventScheduleRemoved = "schedule:removed"

	EventNotification = "notification:new"
)

// Notifier delivers an event to the named channels. Delivery is
// best-effort: implementations must not block the caller on slow
// consumers and have no error to return.
type Notifier interface {
	Notify(event string, channels []string, payload any)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(event string, channels []string, payload any)

// Notify calls f.
func (f NotifierFunc) Notify(event string, channels []string, payload any) {
	f(event, channels, payload)
}

// MultiNotifier fans every event out to each notifier in order.
type MultiNotifier []Notifier

// Notify forwards to every non-nil notifier.
func (m MultiNotifier) Notify(event string, channels []string, payload any) {
	for _, n := range m {
		if n != nil {
			n.Notify(event, channels, payload)
		}
	}
}

type nopNotifier struct{}

func (nopNotifier) Notify(string, []string, any) {}

// roomChannels returns the global channel followed by the channel of each
// distinct, non-empty room name.
func roomChannels(rooms ...string) []string {
	channels := []string{GlobalChannel}
	seen := map[string]struct{}{GlobalChannel: {}}
	for _, room := range rooms {
		if room == "" {
			continue
		}
		ch := location.ChannelName(room)
		if _, dup := seen[ch]; dup {
			continue
		}
		seen[ch] = struct{}{}
		channels = append(channels, ch)
	}
	return channels
}
