package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/homebot/homebot-core/internal/control"
	"github.com/homebot/homebot-core/internal/device"
)

// controlRequest is the body of PUT /groups/{id}/control.
type controlRequest struct {
	Action device.Action `json:"action"`
}

func (s *Server) handleListGroups(w http.ResponseWriter, r *http.Request) {
	groups, err := s.router.ListGroups(r.Context())
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeList(w, groups)
}

func (s *Server) handleGetGroup(w http.ResponseWriter, r *http.Request) {
	group, err := s.router.GetGroup(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, group)
}

func (s *Server) handleCreateGroup(w http.ResponseWriter, r *http.Request) {
	var in control.GroupInput
	if !s.decode(w, r, &in) {
		return
	}

	group, err := s.router.CreateGroup(mutationContext(r), in)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeData(w, http.StatusCreated, group)
}

func (s *Server) handleUpdateGroup(w http.ResponseWriter, r *http.Request) {
	var patch control.GroupPatch
	if !s.decode(w, r, &patch) {
		return
	}

	group, err := s.router.UpdateGroup(mutationContext(r), chi.URLParam(r, "id"), patch)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, group)
}

func (s *Server) handleDeleteGroup(w http.ResponseWriter, r *http.Request) {
	if err := s.router.DeleteGroup(mutationContext(r), chi.URLParam(r, "id")); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeMessage(w, "Group removed")
}

// handleControlGroup switches every on/off-capable member of a group and
// reports the outcome per device.
func (s *Server) handleControlGroup(w http.ResponseWriter, r *http.Request) {
	var req controlRequest
	if !s.decode(w, r, &req) {
		return
	}

	result, err := s.router.ControlGroup(mutationContext(r), chi.URLParam(r, "id"), req.Action)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	message := "All devices in group turned off"
	if result.Action == device.ActionOn {
		message = "All devices in group turned on"
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": message,
		"data":    result,
	})
}
