// Package control is the device state router.
//
// Every mutation of devices, rooms, groups and schedules goes through a
// Router. It validates the request, writes to the store, and emits one
// event per affected channel through a Notifier: the global channel always,
// plus the room channel of each room the change touches. Store writes run
// under context.WithoutCancel so a client hanging up mid-request does not
// abort a write already in flight.
//
// The Router keeps no state of its own. Group control fans out to member
// devices concurrently with errgroup and reports a per-device outcome.
package control
