package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"time"

	"ms-registration/internal/admission"
	"ms-registration/internal/models"
	"ms-registration/internal/receipt"
	"ms-registration/internal/registration/db"
)

const maxBulkTransition = 500

// ApplicantInput carries the applicant fields of a public submission or an admin edit.
type ApplicantInput struct {
	FullName       string          `json:"full_name"`
	TaxID          string          `json:"tax_id"`
	Address        string          `json:"address"`
	Phone          string          `json:"phone"`
	Category       models.Category `json:"category"`
	DisabilityType string          `json:"disability_type"`
	Notes          string          `json:"notes"`
	CompanionName  string          `json:"companion_name"`
	CompanionTaxID string          `json:"companion_tax_id"`
}

func (in ApplicantInput) applicant() admission.Applicant {
	return admission.Applicant{
		FullName:       in.FullName,
		TaxID:          in.TaxID,
		Address:        in.Address,
		Phone:          in.Phone,
		Category:       in.Category,
		DisabilityType: in.DisabilityType,
		Notes:          in.Notes,
		CompanionName:  in.CompanionName,
		CompanionTaxID: in.CompanionTaxID,
	}
}

// SubmissionInput is a public registration request. Days are YYYY-MM-DD.
type SubmissionInput struct {
	Days []string `json:"days"`
	ApplicantInput
}

// Admission is what the applicant gets back after a successful submission.
type Admission struct {
	Registration *models.Registration `json:"registration"`
	Protocol     string               `json:"protocol"`
	AccessCode   string               `json:"access_code"`
	ReceiptToken string               `json:"receipt_token,omitempty"`
}

// Submit validates a public submission against an active event and admits it.
func (s *Service) Submit(ctx context.Context, eventID string, in SubmissionInput) (*Admission, error) {
	event, err := s.activeEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}

	days, err := models.ParseDays(in.Days)
	if err != nil {
		return nil, invalid("days", err.Error())
	}

	validated, err := admission.ValidateSubmission(event, admission.Submission{
		Days:      days,
		Applicant: in.applicant(),
	})
	if err != nil {
		return nil, err
	}

	reg, err := s.Engine.Admit(ctx, event, validated)
	if err != nil {
		return nil, err
	}
	reg.Event = event

	out := &Admission{Registration: reg, Protocol: reg.Protocol, AccessCode: reg.AccessCode}
	out.ReceiptToken = s.issueReceipt(reg.ID)
	return out, nil
}

// issueReceipt signs a receipt token. A signing failure leaves the admission intact; the
// applicant can fetch a new token through lookup.
func (s *Service) issueReceipt(id string) string {
	if s.Signer == nil {
		return ""
	}
	token, err := s.Signer.Issue(id)
	if err != nil {
		s.Logger.Error("RECEIPT", fmt.Sprintf("sign receipt for %s: %v", id, err))
		return ""
	}
	return token
}

// LookupResult is the summary shown to an applicant who proves the access code.
type LookupResult struct {
	Protocol     string          `json:"protocol"`
	Status       models.Status   `json:"status"`
	StatusLabel  string          `json:"status_label"`
	FullName     string          `json:"full_name"`
	Category     models.Category `json:"category"`
	EventID      string          `json:"event_id"`
	EventName    string          `json:"event_name"`
	Days         []string        `json:"days"`
	CreatedAt    time.Time       `json:"created_at"`
	ReceiptToken string          `json:"receipt_token,omitempty"`
}

// Lookup finds a registration by protocol and access code. A wrong code is reported exactly
// like an unknown protocol.
func (s *Service) Lookup(ctx context.Context, protocol, accessCode string) (*LookupResult, error) {
	protocol = strings.ToUpper(strings.TrimSpace(protocol))
	accessCode = strings.TrimSpace(accessCode)
	if protocol == "" {
		return nil, invalid("protocol", "is required")
	}
	if accessCode == "" {
		return nil, invalid("access_code", "is required")
	}

	reg, err := s.Store.GetRegistrationByProtocol(ctx, protocol)
	if err != nil {
		return nil, s.storeErr("LOOKUP", protocol, err)
	}
	if subtle.ConstantTimeCompare([]byte(reg.AccessCode), []byte(accessCode)) != 1 {
		s.Logger.LogSecurity("LOOKUP_MISMATCH", "wrong access code for "+protocol)
		return nil, models.ErrNotFound
	}

	res := &LookupResult{
		Protocol:     reg.Protocol,
		Status:       reg.Status,
		StatusLabel:  reg.Status.Label(),
		FullName:     reg.FullName,
		Category:     reg.Category,
		EventID:      reg.EventID,
		Days:         reg.DayKeys(),
		CreatedAt:    reg.CreatedAt,
		ReceiptToken: s.issueReceipt(reg.ID),
	}
	if reg.Event != nil {
		res.EventName = reg.Event.Name
	}
	return res, nil
}

// Receipt renders the receipt PDF of the registration a token was issued for.
func (s *Service) Receipt(ctx context.Context, token string) ([]byte, string, error) {
	if s.Signer == nil {
		return nil, "", receipt.ErrInvalidToken
	}
	id, err := s.Signer.Parse(token)
	if err != nil {
		return nil, "", err
	}
	reg, err := s.Store.GetRegistration(ctx, id)
	if err != nil {
		return nil, "", s.storeErr("GET_REGISTRATION", id, err)
	}
	event := reg.Event
	if event == nil {
		if event, err = s.GetEvent(ctx, reg.EventID); err != nil {
			return nil, "", err
		}
	}
	pdf, err := receipt.Render(reg, event, s.now())
	if err != nil {
		return nil, "", fmt.Errorf("render receipt: %w", err)
	}
	return pdf, "receipt_" + reg.Protocol + ".pdf", nil
}

// RegistrationPage is one page of a filtered registration list.
type RegistrationPage struct {
	Items []models.Registration `json:"items"`
	Total int                   `json:"total"`
}

func (s *Service) ListRegistrations(ctx context.Context, f db.RegistrationFilter) (*RegistrationPage, error) {
	if err := checkFilter(f); err != nil {
		return nil, err
	}
	regs, total, err := s.Store.ListRegistrations(ctx, f)
	if err != nil {
		return nil, s.storeErr("LIST_REGISTRATIONS", f.EventID, err)
	}
	return &RegistrationPage{Items: regs, Total: total}, nil
}

func checkFilter(f db.RegistrationFilter) error {
	if f.Status != "" && !f.Status.Valid() {
		return invalid("status", "unknown status")
	}
	if f.Category != "" && !f.Category.Valid() {
		return invalid("category", "unknown category")
	}
	if f.Day != "" {
		if _, err := models.ParseDay(f.Day); err != nil {
			return invalid("day", err.Error())
		}
	}
	if f.Limit < 0 || f.Offset < 0 {
		return invalid("limit", "must not be negative")
	}
	return nil
}

func (s *Service) GetRegistration(ctx context.Context, id string) (*models.Registration, error) {
	reg, err := s.Store.GetRegistration(ctx, id)
	if err != nil {
		return nil, s.storeErr("GET_REGISTRATION", id, err)
	}
	return reg, nil
}

// UpdateRegistration replaces the applicant fields under the same rules as a submission.
// Days, protocol, access code and status stay as they are.
func (s *Service) UpdateRegistration(ctx context.Context, id string, in ApplicantInput) (*models.Registration, error) {
	reg, err := s.GetRegistration(ctx, id)
	if err != nil {
		return nil, err
	}
	event := reg.Event
	if event == nil {
		if event, err = s.GetEvent(ctx, reg.EventID); err != nil {
			return nil, err
		}
	}

	details, err := admission.ValidateApplicant(event, in.applicant())
	if err != nil {
		return nil, err
	}
	details.Apply(reg)
	reg.UpdatedAt = s.now()

	if err := s.Store.UpdateRegistrationDetails(ctx, reg); err != nil {
		return nil, s.storeErr("UPDATE_REGISTRATION", id, err)
	}
	s.Logger.LogAdmission("EDITED", id, "applicant details updated")
	return reg, nil
}

func (s *Service) TransitionRegistration(ctx context.Context, id string, to models.Status) (*models.Registration, error) {
	if !to.Valid() {
		return nil, invalid("status", "unknown status")
	}
	return s.Engine.Transition(ctx, id, to)
}

// BulkFailure explains why one registration of a bulk transition was not changed.
type BulkFailure struct {
	ID      string `json:"id"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type BulkResult struct {
	Updated []string      `json:"updated"`
	Failed  []BulkFailure `json:"failed"`
}

// BulkTransition checks and applies the transition to every id on its own; one failure does
// not stop the others.
func (s *Service) BulkTransition(ctx context.Context, ids []string, to models.Status) (*BulkResult, error) {
	if !to.Valid() {
		return nil, invalid("status", "unknown status")
	}
	if len(ids) == 0 {
		return nil, invalid("ids", "select at least one registration")
	}
	if len(ids) > maxBulkTransition {
		return nil, invalid("ids", fmt.Sprintf("at most %d registrations per request", maxBulkTransition))
	}

	res := &BulkResult{Updated: make([]string, 0, len(ids)), Failed: make([]BulkFailure, 0)}
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true

		if _, err := s.Engine.Transition(ctx, id, to); err != nil {
			res.Failed = append(res.Failed, bulkFailure(id, err))
			continue
		}
		res.Updated = append(res.Updated, id)
	}
	s.Logger.LogAdmission("BULK_STATUS", string(to), fmt.Sprintf("%d updated, %d failed", len(res.Updated), len(res.Failed)))
	return res, nil
}

func bulkFailure(id string, err error) BulkFailure {
	f := BulkFailure{ID: id, Message: err.Error()}
	switch {
	case errors.Is(err, models.ErrNotFound):
		f.Code = "NOT_FOUND"
	case errors.Is(err, admission.ErrStore):
		f.Code = "STORE_UNAVAILABLE"
	default:
		if derr, ok := admission.AsError(err); ok {
			f.Code = string(derr.Code)
		} else {
			f.Code = "ERROR"
		}
	}
	return f
}
