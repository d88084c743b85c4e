package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/homebot/homebot-core/internal/activity"
	"github.com/homebot/homebot-core/internal/auth"
)

// Activity feed page sizes.
const (
	defaultActivityLimit = 5
	maxActivityLimit     = 50
)

// handleListUsers returns every account. With identity fallback enabled a
// provider failure yields sample users and "fallback": true.
func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	res, err := s.identity.ListUsers(r.Context())
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	users := res.Data
	if users == nil {
		users = []auth.User{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"count":    len(users),
		"data":     users,
		"fallback": res.Fallback,
	})
}

func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var in auth.CreateUserInput
	if !s.decode(w, r, &in) {
		return
	}

	user, err := s.identity.CreateUser(mutationContext(r), in)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeData(w, http.StatusCreated, user)
}

func (s *Server) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	var in auth.UpdateUserInput
	if !s.decode(w, r, &in) {
		return
	}

	user, err := s.identity.UpdateUser(mutationContext(r), chi.URLParam(r, "uid"), in)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, user)
}

func (s *Server) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	if err := s.identity.DeleteUser(mutationContext(r), chi.URLParam(r, "uid")); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeMessage(w, "User deleted successfully")
}

// handleUserStats returns the account count.
func (s *Server) handleUserStats(w http.ResponseWriter, r *http.Request) {
	res, err := s.identity.CountUsers(r.Context())
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeCount(w, res.Data, res.Fallback)
}

// handleDeviceStats returns the device count.
func (s *Server) handleDeviceStats(w http.ResponseWriter, r *http.Request) {
	res, err := s.identity.CountDevices(r.Context())
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeCount(w, res.Data, res.Fallback)
}

// handleRecentActivity returns the newest activities.
//
// Query parameters:
//   - limit: number of entries (default 5, max 50)
func (s *Server) handleRecentActivity(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit")
	if limit <= 0 {
		limit = defaultActivityLimit
	}
	limit = min(limit, maxActivityLimit)

	res, err := s.identity.RecentActivity(r.Context(), limit)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	items := res.Data
	if items == nil {
		items = []activity.Activity{}
	}
	if len(items) > limit {
		items = items[:limit]
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"count":    len(items),
		"data":     items,
		"fallback": res.Fallback,
	})
}

func writeCount(w http.ResponseWriter, n int, fallback bool) {
	writeJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"count":    n,
		"fallback": fallback,
	})
}
