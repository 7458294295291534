package receipt

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"

	"ms-registration/internal/export"
	"ms-registration/internal/models"
)

const qrImage = "qr"

// Render builds the printable receipt of an admitted registration: event, days, applicant,
// protocol, access code and a QR code carrying the protocol.
func Render(reg *models.Registration, event *models.Event, now time.Time) ([]byte, error) {
	if reg == nil || event == nil {
		return nil, fmt.Errorf("registration and event are required")
	}
	qr, err := QRCode(reg.Protocol)
	if err != nil {
		return nil, err
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetMargins(20, 20, 20)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 18)
	pdf.CellFormat(0, 10, "Registration receipt", "", 1, "C", false, 0, "")
	pdf.SetFont("Arial", "", 13)
	pdf.CellFormat(0, 8, tr(event.Name), "", 1, "C", false, 0, "")
	pdf.Ln(6)

	info := []struct {
		Label string
		Value string
	}{
		{"Protocol", reg.Protocol},
		{"Access code", reg.AccessCode},
		{"Status", reg.Status.Label()},
		{"Name", reg.FullName},
		{"Category", reg.Category.Label()},
		{"Days", export.FormatDays(reg.DayKeys(), ", ")},
		{"Registered on", export.FormatDateTime(reg.CreatedAt)},
	}
	if reg.CompanionName != nil {
		info = append(info, struct {
			Label string
			Value string
		}{"Companion", *reg.CompanionName})
	}
	for _, item := range info {
		pdf.SetFont("Arial", "B", 11)
		pdf.CellFormat(40, 8, tr(item.Label+":"), "", 0, "L", false, 0, "")
		pdf.SetFont("Arial", "", 11)
		pdf.MultiCell(0, 8, tr(item.Value), "", "L", false)
	}

	opts := gofpdf.ImageOptions{ImageType: "PNG"}
	pdf.RegisterImageOptionsReader(qrImage, opts, bytes.NewReader(qr))
	w, _ := pdf.GetPageSize()
	pdf.ImageOptions(qrImage, (w-60)/2, pdf.GetY()+10, 60, 60, false, opts, 0, "")
	pdf.SetY(pdf.GetY() + 75)

	pdf.SetFont("Arial", "I", 9)
	pdf.SetTextColor(100, 100, 100)
	notes := []string{
		"Keep the protocol and access code to look up this registration.",
		"Present this receipt at the entrance on each selected day.",
		"Generated at " + export.FormatDateTime(now),
	}
	pdf.MultiCell(0, 5, tr(strings.Join(notes, "\n")), "", "C", false)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to write receipt PDF: %w", err)
	}
	return buf.Bytes(), nil
}
