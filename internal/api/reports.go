package api

import (
	"fmt"
	"net/http"
	"os"

	"github.com/homebot/homebot-core/internal/device"
	"github.com/homebot/homebot-core/internal/report"
)

// handleDevicesReport renders every device as a PDF or XLSX download.
//
// Query parameters:
//   - format: pdf (default) or xlsx
func (s *Server) handleDevicesReport(w http.ResponseWriter, r *http.Request) {
	format, err := report.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	devices, err := s.router.ListDevices(r.Context(), device.Filter{})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	doc, err := report.NewGenerator(format).Devices(devices, s.now())
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	s.serveDocument(w, r, doc)
}

// handleUsersReport renders every account. With identity fallback enabled
// a provider failure renders the sample users instead.
func (s *Server) handleUsersReport(w http.ResponseWriter, r *http.Request) {
	format, err := report.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	res, err := s.identity.ListUsers(r.Context())
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	doc, err := report.NewGenerator(format).Users(res.Data, s.now())
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	s.serveDocument(w, r, doc)
}

// serveDocument writes doc into the reports directory, streams the file
// as an attachment and removes it once the response is written.
func (s *Server) serveDocument(w http.ResponseWriter, r *http.Request, doc *report.Document) {
	path, err := doc.Save(s.reportsCfg.Dir)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	defer func() {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			s.logger.Warn("removing report file failed", "path", path, "error", err)
		}
	}()

	f, err := os.Open(path) //nolint:gosec // path comes from os.CreateTemp in the configured dir
	if err != nil {
		s.writeDomainError(w, r, fmt.Errorf("opening report: %w", err))
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		s.writeDomainError(w, r, fmt.Errorf("reading report: %w", err))
		return
	}

	w.Header().Set("Content-Type", doc.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", doc.Filename))
	http.ServeContent(w, r, doc.Filename, info.ModTime(), f)
}
