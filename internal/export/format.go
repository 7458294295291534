package export

import (
	"strings"
	"time"

	"ms-registration/internal/admission"
	"ms-registration/internal/models"
)

// FormatTaxID renders an 11-digit CPF as 000.000.000-00. Other input is returned as is.
func FormatTaxID(cpf string) string {
	d := admission.DigitsOnly(cpf)
	if len(d) != 11 {
		return cpf
	}
	return d[0:3] + "." + d[3:6] + "." + d[6:9] + "-" + d[9:11]
}

// FormatPhone renders Brazilian numbers as (00) 00000-0000 or (00) 0000-0000.
func FormatPhone(phone string) string {
	d := admission.DigitsOnly(phone)
	switch len(d) {
	case 11:
		return "(" + d[0:2] + ") " + d[2:7] + "-" + d[7:11]
	case 10:
		return "(" + d[0:2] + ") " + d[2:6] + "-" + d[6:10]
	default:
		return phone
	}
}

// FormatDate renders t as dd/mm/yyyy.
func FormatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("02/01/2006")
}

// FormatDateTime renders t as dd/mm/yyyy hh:mm.
func FormatDateTime(t time.Time) string {
	return t.Format("02/01/2006 15:04")
}

// FormatDay converts a YYYY-MM-DD key to dd/mm/yyyy.
func FormatDay(key string) string {
	d, err := models.ParseDay(key)
	if err != nil {
		return key
	}
	return FormatDate(d)
}

func FormatDays(keys []string, sep string) string {
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, FormatDay(k))
	}
	return strings.Join(out, sep)
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}

func companionTaxID(r models.RegistrationExport) string {
	if r.CompanionTaxID == "" {
		return "-"
	}
	return FormatTaxID(r.CompanionTaxID)
}
