package export

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"ms-registration/internal/models"
)

type Format string

const (
	FormatExcel Format = "xlsx"
	FormatCSV   Format = "csv"
	FormatPDF   Format = "pdf"
)

const (
	contentTypeExcel = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	contentTypeCSV   = "text/csv"
	contentTypePDF   = "application/pdf"

	defaultCredit = "Priority access registration service"
)

// File is a rendered export ready to be sent as a download.
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

// Exporter renders registration lists as spreadsheets and printable PDFs.
type Exporter struct {
	// Credit is printed at the bottom of every export.
	Credit string
	Now    func() time.Time
}

func NewExporter(credit string) *Exporter {
	if credit == "" {
		credit = defaultCredit
	}
	return &Exporter{Credit: credit, Now: time.Now}
}

// Registrations renders rows in the requested format.
func (e *Exporter) Registrations(format Format, rows []models.RegistrationExport, title string) (*File, error) {
	timestamp := e.now().Format("20060102_150405")

	switch format {
	case FormatExcel:
		data, err := e.RegistrationsExcel(rows)
		if err != nil {
			return nil, err
		}
		return &File{Name: fmt.Sprintf("registrations_%s.xlsx", timestamp), ContentType: contentTypeExcel, Data: data}, nil
	case FormatCSV:
		data, err := e.RegistrationsCSV(rows)
		if err != nil {
			return nil, err
		}
		return &File{Name: fmt.Sprintf("registrations_%s.csv", timestamp), ContentType: contentTypeCSV, Data: data}, nil
	case FormatPDF:
		data, err := e.RegistrationsPDF(rows, title)
		if err != nil {
			return nil, err
		}
		return &File{Name: fmt.Sprintf("registrations_%s.pdf", timestamp), ContentType: contentTypePDF, Data: data}, nil
	default:
		return nil, fmt.Errorf("unsupported export format: %s", format)
	}
}

// Event renders the event report PDF.
func (e *Exporter) Event(event *models.Event, rows []models.RegistrationExport) (*File, error) {
	data, err := e.EventPDF(event, rows)
	if err != nil {
		return nil, err
	}
	return &File{Name: slug(event.Name) + ".pdf", ContentType: contentTypePDF, Data: data}, nil
}

// Attendance renders the attendance sheet PDF, optionally for a single day.
func (e *Exporter) Attendance(event *models.Event, rows []models.RegistrationExport, day string) (*File, error) {
	data, err := e.AttendancePDF(event, rows, day)
	if err != nil {
		return nil, err
	}
	name := "attendance_" + slug(event.Name)
	if day != "" {
		name += "_" + day
	}
	return &File{Name: name + ".pdf", ContentType: contentTypePDF, Data: data}, nil
}

// registrationColumns are shared by the spreadsheet and CSV exports.
var registrationColumns = []string{
	"Protocol", "Access Code", "Status", "Full Name", "CPF", "Category", "Address", "Phone",
	"Disability Type", "Notes", "Companion Name", "Companion CPF", "Event", "Event Days", "Registered On",
}

func registrationRecord(r models.RegistrationExport) []string {
	return []string{
		r.Protocol,
		r.AccessCode,
		r.Status.Label(),
		r.FullName,
		FormatTaxID(r.TaxID),
		r.Category.Label(),
		r.Address,
		FormatPhone(r.Phone),
		orDash(r.DisabilityType),
		orDash(r.Notes),
		orDash(r.CompanionName),
		companionTaxID(r),
		r.EventName,
		FormatDays(r.Days, "; "),
		FormatDate(r.CreatedAt),
	}
}

var nonSlug = regexp.MustCompile(`[^A-Za-z0-9]+`)

func slug(s string) string {
	s = strings.Trim(nonSlug.ReplaceAllString(s, "_"), "_")
	if s == "" {
		return "event"
	}
	return s
}

func (e *Exporter) now() time.Time {
	if e.Now == nil {
		return time.Now()
	}
	return e.Now()
}
