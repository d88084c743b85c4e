// Package metrics exposes HomeBot's Prometheus collectors.
//
// Collectors are package-level and registered once by Init. Every helper is
// safe to call before Init (it does nothing), so packages can record
// metrics without threading a registry through their constructors.
package metrics
