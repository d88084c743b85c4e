package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/homebot/homebot-core/internal/automation"
	"github.com/homebot/homebot-core/internal/control"
)

func (s *Server) handleListSchedules(w http.ResponseWriter, r *http.Request) {
	schedules, err := s.router.ListSchedules(r.Context())
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeList(w, schedules)
}

func (s *Server) handleGetSchedule(w http.ResponseWriter, r *http.Request) {
	schedule, err := s.router.GetSchedule(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, schedule)
}

func (s *Server) handleCreateSchedule(w http.ResponseWriter, r *http.Request) {
	var in control.ScheduleInput
	if !s.decode(w, r, &in) {
		return
	}

	schedule, err := s.router.CreateSchedule(mutationContext(r), in)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeData(w, http.StatusCreated, schedule)
}

func (s *Server) handleUpdateSchedule(w http.ResponseWriter, r *http.Request) {
	var patch automation.Patch
	if !s.decode(w, r, &patch) {
		return
	}

	schedule, err := s.router.UpdateSchedule(mutationContext(r), chi.URLParam(r, "id"), patch)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, schedule)
}

// handleToggleSchedule flips a schedule's active flag.
func (s *Server) handleToggleSchedule(w http.ResponseWriter, r *http.Request) {
	schedule, err := s.router.ToggleSchedule(mutationContext(r), chi.URLParam(r, "id"))
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, schedule)
}

func (s *Server) handleDeleteSchedule(w http.ResponseWriter, r *http.Request) {
	if err := s.router.DeleteSchedule(mutationContext(r), chi.URLParam(r, "id")); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeMessage(w, "Schedule removed")
}
