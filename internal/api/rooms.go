package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/homebot/homebot-core/internal/control"
)

// handleListRooms returns every room with its device count.
func (s *Server) handleListRooms(w http.ResponseWriter, r *http.Request) {
	rooms, err := s.router.ListRooms(r.Context())
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeList(w, rooms)
}

// handleGetRoom returns a single room by ID.
func (s *Server) handleGetRoom(w http.ResponseWriter, r *http.Request) {
	room, err := s.router.GetRoom(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, room)
}

// handleCreateRoom creates a room. Names are unique.
func (s *Server) handleCreateRoom(w http.ResponseWriter, r *http.Request) {
	var in control.RoomInput
	if !s.decode(w, r, &in) {
		return
	}

	room, err := s.router.CreateRoom(mutationContext(r), in)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeData(w, http.StatusCreated, room)
}

// handleUpdateRoom renames or re-icons a room. A rename is applied to the
// room's devices before the response is written.
func (s *Server) handleUpdateRoom(w http.ResponseWriter, r *http.Request) {
	var patch control.RoomPatch
	if !s.decode(w, r, &patch) {
		return
	}

	room, err := s.router.UpdateRoom(mutationContext(r), chi.URLParam(r, "id"), patch)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, room)
}

// handleDeleteRoom removes a room that no device references.
func (s *Server) handleDeleteRoom(w http.ResponseWriter, r *http.Request) {
	if err := s.router.DeleteRoom(mutationContext(r), chi.URLParam(r, "id")); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeMessage(w, "Room removed")
}
