package export

import (
	"bytes"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/jung-kurt/gofpdf"

	"ms-registration/internal/models"
)

type column struct {
	title string
	width float64
	align string
}

type pdfDoc struct {
	pdf *gofpdf.Fpdf
	tr  func(string) string
}

// newPDF sets up a page with a footer holding the credit line and "Page i of n".
func (e *Exporter) newPDF(orientation string, footer func(d *pdfDoc) string) *pdfDoc {
	pdf := gofpdf.New(orientation, "mm", "A4", "")
	d := &pdfDoc{pdf: pdf, tr: pdf.UnicodeTranslatorFromDescriptor("")}
	pdf.AliasNbPages("")
	pdf.SetMargins(14, 14, 14)
	pdf.SetAutoPageBreak(true, 20)

	pdf.SetFooterFunc(func() {
		w, h := pdf.GetPageSize()
		pdf.SetDrawColor(200, 200, 200)
		pdf.Line(14, h-15, w-14, h-15)
		pdf.SetY(-13)
		pdf.SetFont("Arial", "", 8)
		pdf.SetTextColor(128, 128, 128)
		left := e.Credit
		if footer != nil {
			left = footer(d)
		}
		pdf.CellFormat(0, 5, d.tr(left), "", 0, "L", false, 0, "")
		pdf.SetX(14)
		pdf.CellFormat(0, 5, fmt.Sprintf("Page %d of {nb}", pdf.PageNo()), "", 0, "R", false, 0, "")
		pdf.SetTextColor(0, 0, 0)
	})
	return d
}

// fit shortens text so it fits in width, ending in "...".
func (d *pdfDoc) fit(text string, width float64) string {
	text = d.tr(text)
	limit := width - 2
	if d.pdf.GetStringWidth(text) <= limit {
		return text
	}
	for len(text) > 0 && d.pdf.GetStringWidth(text+"...") > limit {
		text = text[:len(text)-1]
	}
	return text + "..."
}

func (d *pdfDoc) table(cols []column, rows [][]string, fill [3]int) {
	header := func() {
		d.pdf.SetFont("Arial", "B", 8)
		d.pdf.SetFillColor(fill[0], fill[1], fill[2])
		d.pdf.SetTextColor(255, 255, 255)
		for _, c := range cols {
			d.pdf.CellFormat(c.width, 7, d.tr(c.title), "1", 0, "C", true, 0, "")
		}
		d.pdf.Ln(-1)
		d.pdf.SetTextColor(0, 0, 0)
		d.pdf.SetFont("Arial", "", 7)
	}

	header()
	_, pageHeight := d.pdf.GetPageSize()
	for _, row := range rows {
		if d.pdf.GetY()+6 > pageHeight-20 {
			d.pdf.AddPage()
			header()
		}
		for i, c := range cols {
			align := c.align
			if align == "" {
				align = "L"
			}
			d.pdf.CellFormat(c.width, 6, d.fit(row[i], c.width), "1", 0, align, false, 0, "")
		}
		d.pdf.Ln(-1)
	}
}

func (d *pdfDoc) bytes() ([]byte, error) {
	var buf bytes.Buffer
	if err := d.pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// RegistrationsPDF renders a landscape table of registrations.
func (e *Exporter) RegistrationsPDF(rows []models.RegistrationExport, title string) ([]byte, error) {
	if title == "" {
		title = "Registrations"
	}
	d := e.newPDF("L", nil)
	pdf := d.pdf
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 16)
	pdf.CellFormat(0, 10, d.tr(title), "", 1, "L", false, 0, "")
	pdf.SetFont("Arial", "", 10)
	pdf.CellFormat(0, 5, fmt.Sprintf("Total registrations: %d", len(rows)), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 5, "Generated at: "+FormatDateTime(e.now()), "", 1, "L", false, 0, "")
	pdf.Ln(4)

	cols := []column{
		{title: "Protocol", width: 30},
		{title: "Name", width: 50},
		{title: "CPF", width: 26, align: "C"},
		{title: "Category", width: 25},
		{title: "Disability", width: 25},
		{title: "Companion", width: 35},
		{title: "Event", width: 35},
		{title: "Days", width: 25},
		{title: "Status", width: 18, align: "C"},
	}
	data := make([][]string, 0, len(rows))
	for _, r := range rows {
		data = append(data, []string{
			r.Protocol,
			r.FullName,
			FormatTaxID(r.TaxID),
			r.Category.Label(),
			orDash(r.DisabilityType),
			orDash(r.CompanionName),
			r.EventName,
			FormatDays(r.Days, ", "),
			r.Status.Label(),
		})
	}
	d.table(cols, data, [3]int{14, 165, 233})

	return d.bytes()
}

// EventPDF lists an event's confirmed registrations, then its pending ones.
func (e *Exporter) EventPDF(event *models.Event, rows []models.RegistrationExport) ([]byte, error) {
	d := e.newPDF("P", nil)
	pdf := d.pdf
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 16)
	pdf.CellFormat(0, 9, d.tr(event.Name), "", 1, "C", false, 0, "")
	pdf.SetFont("Arial", "", 12)
	pdf.CellFormat(0, 7, "Registration list", "", 1, "C", false, 0, "")
	pdf.Ln(3)

	pdf.SetFont("Arial", "", 10)
	pdf.CellFormat(0, 5, fmt.Sprintf("Period: %s to %s", FormatDate(models.TruncateDay(event.StartDate)), FormatDate(models.TruncateDay(event.EndDate))), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 5, fmt.Sprintf("Total registrations: %d", len(rows)), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 5, "Generated at: "+FormatDateTime(e.now()), "", 1, "L", false, 0, "")
	pdf.Ln(5)

	cols := []column{
		{title: "#", width: 8, align: "C"},
		{title: "Name", width: 48},
		{title: "CPF", width: 26, align: "C"},
		{title: "Category", width: 24},
		{title: "Companion", width: 30},
		{title: "Days", width: 20},
		{title: "Protocol", width: 26},
	}

	sections := []struct {
		title  string
		status models.Status
		fill   [3]int
	}{
		{"Confirmed registrations", models.StatusConfirmed, [3]int{34, 197, 94}},
		{"Pending registrations", models.StatusPending, [3]int{234, 179, 8}},
	}
	for _, s := range sections {
		var data [][]string
		for _, r := range rows {
			if r.Status != s.status {
				continue
			}
			data = append(data, []string{
				strconv.Itoa(len(data) + 1),
				r.FullName,
				FormatTaxID(r.TaxID),
				r.Category.Label(),
				orDash(r.CompanionName),
				FormatDays(r.Days, ", "),
				r.Protocol,
			})
		}
		if len(data) == 0 {
			continue
		}
		pdf.SetFont("Arial", "B", 12)
		pdf.CellFormat(0, 8, fmt.Sprintf("%s (%d)", s.title, len(data)), "", 1, "L", false, 0, "")
		d.table(cols, data, s.fill)
		pdf.Ln(6)
	}

	return d.bytes()
}

// AttendancePDF prints a signature sheet of the confirmed registrations, sorted by name and
// limited to day when given.
func (e *Exporter) AttendancePDF(event *models.Event, rows []models.RegistrationExport, day string) ([]byte, error) {
	confirmed := attendanceRows(rows, day)
	generated := FormatDateTime(e.now())
	d := e.newPDF("L", func(*pdfDoc) string {
		return fmt.Sprintf("Total: %d participants | Generated at: %s | %s", len(confirmed), generated, e.Credit)
	})
	pdf := d.pdf
	pdf.AddPage()

	title := "Attendance list"
	if day != "" {
		title += " - " + FormatDay(day)
	}
	pdf.SetFont("Arial", "B", 18)
	pdf.CellFormat(0, 10, d.tr(event.Name), "", 1, "C", false, 0, "")
	pdf.SetFont("Arial", "", 14)
	pdf.SetTextColor(80, 80, 80)
	pdf.CellFormat(0, 8, d.tr(title), "", 1, "C", false, 0, "")
	pdf.SetTextColor(0, 0, 0)
	pdf.Ln(6)

	if len(confirmed) == 0 {
		pdf.SetFont("Arial", "", 12)
		pdf.SetTextColor(150, 150, 150)
		pdf.CellFormat(0, 10, "No confirmed registrations for this date.", "", 1, "C", false, 0, "")
		return d.bytes()
	}

	cols := []column{
		{title: "#", width: 10, align: "C"},
		{title: "Full Name", width: 90},
		{title: "Protocol", width: 32, align: "C"},
		{title: "Companion", width: 60},
		{title: "Signature", width: 77},
	}
	data := make([][]string, 0, len(confirmed))
	for i, r := range confirmed {
		data = append(data, []string{
			strconv.Itoa(i + 1),
			strings.ToUpper(r.FullName),
			r.Protocol,
			orDash(r.CompanionName),
			"",
		})
	}
	d.table(cols, data, [3]int{41, 128, 185})

	return d.bytes()
}

func attendanceRows(rows []models.RegistrationExport, day string) []models.RegistrationExport {
	var confirmed []models.RegistrationExport
	for _, r := range rows {
		if r.Status != models.StatusConfirmed {
			continue
		}
		if day != "" && !containsDay(r.Days, day) {
			continue
		}
		confirmed = append(confirmed, r)
	}
	sort.SliceStable(confirmed, func(i, j int) bool {
		return strings.ToLower(confirmed[i].FullName) < strings.ToLower(confirmed[j].FullName)
	})
	return confirmed
}

func containsDay(days []string, day string) bool {
	for _, d := range days {
		if d == day {
			return true
		}
	}
	return false
}
