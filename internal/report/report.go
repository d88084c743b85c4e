package report

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/homebot/homebot-core/internal/auth"
	"github.com/homebot/homebot-core/internal/device"
	"github.com/homebot/homebot-core/internal/infrastructure/metrics"
)

// Kind names what a report lists.
type Kind string

// Report kinds.
const (
	KindDevices Kind = "devices"
	KindUsers   Kind = "users"
)

// Title returns the capitalised kind, as used in the report heading.
func (k Kind) Title() string {
	if k == "" {
		return ""
	}
	return strings.ToUpper(string(k[:1])) + string(k[1:])
}

// Format is an output file format.
type Format string

// Output formats.
const (
	PDF  Format = "pdf"
	XLSX Format = "xlsx"
)

// Content types served for each format.
const (
	ContentTypePDF  = "application/pdf"
	ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// ErrInvalidFormat is returned for a format other than pdf or xlsx.
var ErrInvalidFormat = errors.New("report: invalid format")

// ParseFormat maps a query value to a Format. Empty means PDF.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case "", PDF:
		return PDF, nil
	case XLSX:
		return XLSX, nil
	default:
		return "", fmt.Errorf("%w: %q, must be pdf or xlsx", ErrInvalidFormat, s)
	}
}

// Document is a rendered report.
type Document struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Save writes the document to a uniquely named file in dir, creating dir
// if needed, and returns the file's path. Filename is only the download
// name; concurrent saves of the same report never share a path.
func (d *Document) Save(dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", fmt.Errorf("creating report dir: %w", err)
	}
	f, err := os.CreateTemp(dir, "report-*"+filepath.Ext(d.Filename))
	if err != nil {
		return "", fmt.Errorf("creating report file: %w", err)
	}
	if _, err := f.Write(d.Data); err != nil {
		_ = f.Close()
		_ = os.Remove(f.Name())
		return "", fmt.Errorf("writing report: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(f.Name())
		return "", fmt.Errorf("writing report: %w", err)
	}
	return f.Name(), nil
}

// Field is one labelled value in a record block.
type Field struct {
	Label string
	Value string
}

// Record is one numbered block of a report.
type Record struct {
	Title  string
	Fields []Field
}

// Snapshot is the format-independent content of a report.
type Snapshot struct {
	Kind        Kind
	GeneratedAt time.Time
	Records     []Record
}

// filename returns {kind}_report_YYYYMMDD_HHMM.{ext}.
func (s Snapshot) filename(f Format) string {
	return fmt.Sprintf("%s_report_%s.%s", s.Kind, s.GeneratedAt.UTC().Format("20060102_1504"), f)
}

const (
	generatedLayout = "January 2, 2006 at 15:04 MST"
	dateLayout      = "2006-01-02 15:04"
)

// DeviceSnapshot lists devices with their room, type, status and last update.
func DeviceSnapshot(devices []device.Device, now time.Time) Snapshot {
	s := Snapshot{Kind: KindDevices, GeneratedAt: now, Records: make([]Record, 0, len(devices))}
	for _, d := range devices {
		s.Records = append(s.Records, Record{
			Title: d.Name,
			Fields: []Field{
				{Label: "Room", Value: d.Room},
				{Label: "Type", Value: string(d.Type)},
				{Label: "Status", Value: string(d.Status)},
				{Label: "Last Updated", Value: d.LastUpdated.UTC().Format(dateLayout)},
			},
		})
	}
	return s
}

// UserSnapshot lists accounts with their email, role, status, last login
// and join date.
func UserSnapshot(users []auth.User, now time.Time) Snapshot {
	s := Snapshot{Kind: KindUsers, GeneratedAt: now, Records: make([]Record, 0, len(users))}
	for _, u := range users {
		title := u.DisplayName
		if title == "" {
			title = u.Email
		}
		lastLogin := "Never"
		if u.LastLogin != nil {
			lastLogin = u.LastLogin.UTC().Format(dateLayout)
		}
		s.Records = append(s.Records, Record{
			Title: title,
			Fields: []Field{
				{Label: "Email", Value: u.Email},
				{Label: "Role", Value: string(u.Role)},
				{Label: "Status", Value: string(u.Status)},
				{Label: "Last Login", Value: lastLogin},
				{Label: "Joined", Value: u.CreatedAt.UTC().Format(dateLayout)},
			},
		})
	}
	return s
}

// Generator renders snapshots in one output format.
type Generator struct {
	format Format
}

// NewGenerator creates a Generator for format.
func NewGenerator(format Format) *Generator {
	if format == "" {
		format = PDF
	}
	return &Generator{format: format}
}

// Devices renders a device report.
func (g *Generator) Devices(devices []device.Device, now time.Time) (*Document, error) {
	return g.Render(DeviceSnapshot(devices, now))
}

// Users renders a user report.
func (g *Generator) Users(users []auth.User, now time.Time) (*Document, error) {
	return g.Render(UserSnapshot(users, now))
}

// Render formats s.
func (g *Generator) Render(s Snapshot) (*Document, error) {
	start := time.Now()
	var (
		doc *Document
		err error
	)
	switch g.format {
	case PDF:
		doc, err = FormatPDF(s)
	case XLSX:
		doc, err = FormatXLSX(s)
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidFormat, g.format)
	}
	if err != nil {
		return nil, err
	}
	metrics.ObserveReport(string(s.Kind), string(g.format), time.Since(start))
	return doc, nil
}
