// Package device holds the Device and Group records and their SQLite
// repositories.
//
// Devices reference their room by name. Groups keep an ordered list of
// device ids in device_group_members; the schema cascades membership rows
// when either the group or the device is deleted.
//
// Mutations that must notify real-time subscribers go through package
// control, not through these repositories directly.
package device
