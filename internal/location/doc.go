// Package location provides rooms and the mapping from room names to
// real-time channel names.
//
// Rooms are unique by name. Devices point at a room by name, so renames
// and deletes are coordinated by package control, which owns the cascade
// to devices and the refusal to delete occupied rooms.
package location
