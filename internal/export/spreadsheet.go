package export

import (
	"bytes"
	"encoding/csv"

	"github.com/xuri/excelize/v2"

	"ms-registration/internal/models"
)

const registrationsSheet = "Registrations"

var columnWidths = []float64{22, 10, 12, 30, 16, 18, 40, 16, 20, 30, 30, 16, 30, 28, 16}

// RegistrationsExcel writes one row per registration, then a blank row and the credit line
// merged across every column.
func (e *Exporter) RegistrationsExcel(rows []models.RegistrationExport) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", registrationsSheet); err != nil {
		return nil, err
	}

	headerStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, err
	}

	for i, h := range registrationColumns {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return nil, err
		}
		if err := f.SetCellValue(registrationsSheet, cell, h); err != nil {
			return nil, err
		}
		col, _ := excelize.ColumnNumberToName(i + 1)
		if err := f.SetColWidth(registrationsSheet, col, col, columnWidths[i]); err != nil {
			return nil, err
		}
	}
	lastCol, _ := excelize.ColumnNumberToName(len(registrationColumns))
	if err := f.SetCellStyle(registrationsSheet, "A1", lastCol+"1", headerStyle); err != nil {
		return nil, err
	}

	for rIdx, r := range rows {
		for cIdx, v := range registrationRecord(r) {
			cell, err := excelize.CoordinatesToCellName(cIdx+1, rIdx+2)
			if err != nil {
				return nil, err
			}
			if err := f.SetCellValue(registrationsSheet, cell, v); err != nil {
				return nil, err
			}
		}
	}

	creditRow := len(rows) + 3
	start, _ := excelize.CoordinatesToCellName(1, creditRow)
	end, _ := excelize.CoordinatesToCellName(len(registrationColumns), creditRow)
	if err := f.SetCellValue(registrationsSheet, start, e.Credit); err != nil {
		return nil, err
	}
	if err := f.MergeCell(registrationsSheet, start, end); err != nil {
		return nil, err
	}
	centered, err := f.NewStyle(&excelize.Style{Alignment: &excelize.Alignment{Horizontal: "center"}})
	if err != nil {
		return nil, err
	}
	if err := f.SetCellStyle(registrationsSheet, start, end, centered); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (e *Exporter) RegistrationsCSV(rows []models.RegistrationExport) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.Write(registrationColumns); err != nil {
		return nil, err
	}
	for _, r := range rows {
		if err := writer.Write(registrationRecord(r)); err != nil {
			return nil, err
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
