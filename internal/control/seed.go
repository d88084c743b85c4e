package control

import (
	"context"
	"errors"
	"fmt"

	"github.com/homebot/homebot-core/internal/device"
	"github.com/homebot/homebot-core/internal/location"
)

// sampleRooms and sampleDevices are the demo household loaded by SeedSamples.
var sampleRooms = []RoomInput{
	{Name: "Living Room", Icon: "fa-couch"},
	{Name: "Kitchen", Icon: "fa-utensils"},
	{Name: "Bedroom", Icon: "fa-bed"},
	{Name: "Bathroom", Icon: "fa-bath"},
	{Name: "Entrance", Icon: "fa-door-open"},
}

var sampleDevices = []CreateDeviceInput{
	{Name: "Living Room Light", Type: device.TypeLight, Room: "Living Room",
		State: device.State{"on": true, "brightness": 80}},
	{Name: "Kitchen Light", Type: device.TypeLight, Room: "Kitchen",
		State: device.State{"on": false, "brightness": 0}},
	{Name: "Bedroom Light", Type: device.TypeLight, Room: "Bedroom",
		State: device.State{"on": false, "brightness": 0}},
	{Name: "Living Room Thermostat", Type: device.TypeThermostat, Room: "Living Room",
		State: device.State{"on": true, "temperature": 22, "mode": "heat"}},
	{Name: "Front Door", Type: device.TypeDoor, Room: "Entrance",
		State: device.State{"locked": true}},
}

// SeedSamples loads the demo rooms and devices into an empty store and
// returns the number of devices created. Rooms that already exist are kept.
// Nothing is written when any device exists.
func (r *Router) SeedSamples(ctx context.Context) (int, error) {
	n, err := r.CountDevices(ctx)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		r.logger.Info("devices exist, skipping sample seed", "devices", n)
		return 0, nil
	}

	for _, in := range sampleRooms {
		if _, err := r.CreateRoom(ctx, in); err != nil && !errors.Is(err, location.ErrRoomExists) {
			return 0, fmt.Errorf("seeding room %s: %w", in.Name, err)
		}
	}

	created := 0
	for _, in := range sampleDevices {
		if _, err := r.CreateDevice(ctx, in); err != nil {
			return created, fmt.Errorf("seeding device %s: %w", in.Name, err)
		}
		created++
	}
	r.logger.Info("sample household seeded", "rooms", len(sampleRooms), "devices", created)
	return created, nil
}
