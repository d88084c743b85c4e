package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/homebot/homebot-core/internal/control"
	"github.com/homebot/homebot-core/internal/device"
)

// handleListDevices returns all devices, with optional query filters.
//
// Query parameters:
//   - room: exact room name
//   - type: device type (light, thermostat, ...)
//   - status: online or offline
func (s *Server) handleListDevices(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	devices, err := s.router.ListDevices(r.Context(), device.Filter{
		Room:   q.Get("room"),
		Type:   device.Type(q.Get("type")),
		Status: device.Status(q.Get("status")),
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeList(w, devices)
}

// handleDevicesByRoom returns the devices in one room.
func (s *Server) handleDevicesByRoom(w http.ResponseWriter, r *http.Request) {
	room := pathParam(r, "room")

	devices, err := s.router.DevicesByRoom(r.Context(), room)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeList(w, devices)
}

// handleGetDevice returns a single device by ID.
func (s *Server) handleGetDevice(w http.ResponseWriter, r *http.Request) {
	dev, err := s.router.GetDevice(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, dev)
}

// handleCreateDevice creates a new device.
func (s *Server) handleCreateDevice(w http.ResponseWriter, r *http.Request) {
	var in control.CreateDeviceInput
	if !s.decode(w, r, &in) {
		return
	}

	dev, err := s.router.CreateDevice(mutationContext(r), in)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeData(w, http.StatusCreated, dev)
}

// handleUpdateDevice partially updates a device.
func (s *Server) handleUpdateDevice(w http.ResponseWriter, r *http.Request) {
	var patch device.Patch
	if !s.decode(w, r, &patch) {
		return
	}

	dev, err := s.router.UpdateDevice(mutationContext(r), chi.URLParam(r, "id"), patch)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, dev)
}

// handleUpdateDeviceState merges the request body into the device state.
// The body is the partial state itself, e.g. {"on": true}.
func (s *Server) handleUpdateDeviceState(w http.ResponseWriter, r *http.Request) {
	var partial device.State
	if !s.decode(w, r, &partial) {
		return
	}

	dev, err := s.router.UpdateDeviceState(mutationContext(r), chi.URLParam(r, "id"), partial)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, dev)
}

// handleDeleteDevice removes a device. Groups and schedules that listed it shrink.
func (s *Server) handleDeleteDevice(w http.ResponseWriter, r *http.Request) {
	if err := s.router.DeleteDevice(mutationContext(r), chi.URLParam(r, "id")); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeMessage(w, "Device removed successfully")
}

// handleAdminListDevices returns every device, most recently updated first.
func (s *Server) handleAdminListDevices(w http.ResponseWriter, r *http.Request) {
	devices, err := s.router.ListRecentlyUpdated(r.Context())
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeList(w, devices)
}

// decode reads a JSON body into v. On failure it writes a 400 and returns false.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		s.writeError(w, http.StatusBadRequest, msgInvalidBody, err.Error())
		return false
	}
	return true
}

// writeMessage writes {success: true, message}.
func writeMessage(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": message,
	})
}

// mutationContext detaches a write from the client connection, so a client
// that disconnects mid-request does not abort a store write in flight.
func mutationContext(r *http.Request) context.Context {
	return context.WithoutCancel(r.Context())
}

// pathParam returns a decoded chi URL parameter.
func pathParam(r *http.Request, key string) string {
	raw := chi.URLParam(r, key)
	if decoded, err := url.PathUnescape(raw); err == nil {
		return decoded
	}
	return raw
}
