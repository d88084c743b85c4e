// Package automation stores device schedules.
//
// A Schedule names a set of devices, an on time, an off time and the
// weekdays it applies to. Schedules are records only: this package does
// not run a timer or switch devices. Clients read them and act, or a
// future runner can consume the same records.
//
// Device lists are stored in the schedule_devices table with the same
// ordered-membership helpers the device package uses for groups, so
// deleting a device drops it from every schedule that referenced it.
package automation
