package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/homebot/homebot-core/internal/infrastructure/metrics"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		s.writeError(w, http.StatusNotFound, "Not Found - "+r.URL.Path, "")
	})

	if s.metricsCfg.Enabled {
		path := s.metricsCfg.Path
		if path == "" {
			path = "/metrics"
		}
		r.Handle(path, metrics.Handler())
	}

	r.Get(s.wsCfg.Path, s.handleWebSocket)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		r.Route("/auth", func(r chi.Router) {
			r.Post("/login", s.handleLogin)
			r.Get("/me", s.handleMe)
		})

		r.Route("/devices", func(r chi.Router) {
			r.Get("/", s.handleListDevices)
			r.Post("/", s.handleCreateDevice)
			r.Get("/room/{room}", s.handleDevicesByRoom)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetDevice)
				r.Put("/", s.handleUpdateDevice)
				r.Delete("/", s.handleDeleteDevice)
				r.Put("/state", s.handleUpdateDeviceState)
			})
		})

		r.Route("/rooms", func(r chi.Router) {
			r.Get("/", s.handleListRooms)
			r.Post("/", s.handleCreateRoom)
			r.Get("/{id}", s.handleGetRoom)
			r.Put("/{id}", s.handleUpdateRoom)
			r.Delete("/{id}", s.handleDeleteRoom)
		})

		r.Route("/groups", func(r chi.Router) {
			r.Get("/", s.handleListGroups)
			r.Post("/", s.handleCreateGroup)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetGroup)
				r.Put("/", s.handleUpdateGroup)
				r.Delete("/", s.handleDeleteGroup)
				r.Put("/control", s.handleControlGroup)
			})
		})

		r.Route("/schedules", func(r chi.Router) {
			r.Get("/", s.handleListSchedules)
			r.Post("/", s.handleCreateSchedule)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetSchedule)
				r.Put("/", s.handleUpdateSchedule)
				r.Delete("/", s.handleDeleteSchedule)
				r.Put("/toggle", s.handleToggleSchedule)
			})
		})

		r.Route("/sensors", func(r chi.Router) {
			r.Get("/", s.handleListSensors)
			r.Post("/", s.handleCreateSensor)
			r.Get("/latest", s.handleLatestSensor)
			r.Get("/aggregate", s.handleAggregateSensors)
			r.Post("/import", s.handleImportSensors)
			r.Get("/{id}", s.handleGetSensor)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Route("/users", func(r chi.Router) {
				r.Get("/", s.handleListUsers)
				r.Post("/", s.handleCreateUser)
				r.Put("/{uid}", s.handleUpdateUser)
				r.Delete("/{uid}", s.handleDeleteUser)
			})
			r.Get("/stats/users", s.handleUserStats)
			r.Get("/stats/devices", s.handleDeviceStats)
			r.Get("/activity", s.handleRecentActivity)
			r.Get("/devices", s.handleAdminListDevices)
			r.Delete("/devices/{id}", s.handleDeleteDevice)
		})

		r.Route("/reports", func(r chi.Router) {
			r.Get("/devices", s.handleDevicesReport)
			r.Get("/users", s.handleUsersReport)
		})
	})

	return r
}

// handleHealth returns the server health status.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":           "ok",
		"version":          s.version,
		"websocketClients": s.hub.ClientCount(),
	})
}
