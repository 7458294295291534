package service

import (
	"context"

	"ms-registration/internal/export"
	"ms-registration/internal/models"
	"ms-registration/internal/registration/db"
)

// ExportRegistrations renders every registration matching f. Limit and Offset are ignored.
func (s *Service) ExportRegistrations(ctx context.Context, format export.Format, f db.RegistrationFilter) (*export.File, error) {
	switch format {
	case export.FormatExcel, export.FormatCSV, export.FormatPDF:
	default:
		return nil, invalid("format", "must be xlsx, csv or pdf")
	}
	f.Limit, f.Offset = 0, 0

	title := "Registrations"
	if f.EventID != "" {
		event, err := s.GetEvent(ctx, f.EventID)
		if err != nil {
			return nil, err
		}
		title += " - " + event.Name
	}

	rows, err := s.exportRows(ctx, f)
	if err != nil {
		return nil, err
	}
	file, err := s.Exporter.Registrations(format, rows, title)
	if err != nil {
		return nil, err
	}
	s.Logger.Info("EXPORT", "registrations exported as "+string(format))
	return file, nil
}

// ExportEvent renders the event report with its confirmed and pending registrations.
func (s *Service) ExportEvent(ctx context.Context, id string) (*export.File, error) {
	event, err := s.GetEvent(ctx, id)
	if err != nil {
		return nil, err
	}
	rows, err := s.exportRows(ctx, db.RegistrationFilter{EventID: id})
	if err != nil {
		return nil, err
	}
	return s.Exporter.Event(event, rows)
}

// ExportAttendance renders the signature sheet of an event, for one day when day is set.
func (s *Service) ExportAttendance(ctx context.Context, id, day string) (*export.File, error) {
	event, err := s.GetEvent(ctx, id)
	if err != nil {
		return nil, err
	}
	if day != "" {
		d, err := models.ParseDay(day)
		if err != nil {
			return nil, invalid("day", err.Error())
		}
		if !event.Covers(d) {
			return nil, invalid("day", "outside the event period")
		}
		day = models.DayKey(d)
	}

	rows, err := s.exportRows(ctx, db.RegistrationFilter{EventID: id, Status: models.StatusConfirmed, Day: day})
	if err != nil {
		return nil, err
	}
	return s.Exporter.Attendance(event, rows, day)
}

func (s *Service) exportRows(ctx context.Context, f db.RegistrationFilter) ([]models.RegistrationExport, error) {
	if err := checkFilter(f); err != nil {
		return nil, err
	}
	regs, _, err := s.Store.ListRegistrations(ctx, f)
	if err != nil {
		return nil, s.storeErr("LIST_REGISTRATIONS", f.EventID, err)
	}
	rows := make([]models.RegistrationExport, 0, len(regs))
	for _, r := range regs {
		rows = append(rows, models.NewRegistrationExport(r, ""))
	}
	return rows, nil
}
