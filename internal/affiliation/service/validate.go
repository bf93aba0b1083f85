package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/smallbiznis/registra/internal/affiliation/domain"
	shared "github.com/smallbiznis/registra/internal/domain"
	"github.com/smallbiznis/registra/internal/payment"
	"github.com/smallbiznis/registra/internal/registry"
	"github.com/smallbiznis/registra/internal/usercontext"
)

var affiliableNRStatuses = []string{
	registry.NRStatusApproved,
	registry.NRStatusConditional,
	registry.NRStatusDraft,
	registry.NRStatusInProgress,
}

// validateNewBusiness checks that a name request may be affiliated: it
// must exist, be in an affiliable status, carry applicant contact info,
// and for drafts have a completed payment. Non-staff callers must also
// prove they are the applicant by matching a contact field.
func (s *Service) validateNewBusiness(ctx context.Context, caller usercontext.UserContext, req domain.NewBusinessRequest) (*registry.NameRequest, error) {
	if !caller.IsStaff() && req.Email == "" && req.Phone == "" {
		return nil, fmt.Errorf("%w: email or phone is required", shared.ErrInvalidState)
	}

	nr, err := s.gateway.FetchNameRequest(ctx, req.NrNumber)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, fmt.Errorf("%w: name request %s", shared.ErrNotFound, req.NrNumber)
		}
		return nil, err
	}

	status := nr.Status()
	if !containsString(affiliableNRStatuses, status) {
		return nil, fmt.Errorf("%w: name request %s is %s", shared.ErrInvalidState, req.NrNumber, status)
	}
	if nr.Applicants == nil {
		return nil, fmt.Errorf("%w: name request %s has no applicants", shared.ErrInvalidState, req.NrNumber)
	}

	if status == registry.NRStatusDraft {
		invoiceStatus, err := s.payments.LatestInvoiceStatus(ctx, req.NrNumber)
		if err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				return nil, fmt.Errorf("%w: name request %s is unpaid", shared.ErrInvalidState, req.NrNumber)
			}
			return nil, err
		}
		if invoiceStatus != payment.InvoiceStatusCompleted {
			return nil, fmt.Errorf("%w: name request %s is unpaid", shared.ErrInvalidState, req.NrNumber)
		}
	}

	if !caller.IsStaff() {
		if !matchesApplicant(req, nr.Applicants) {
			return nil, fmt.Errorf("%w: applicant contact mismatch", shared.ErrInvalidCredentials)
		}
	}
	return nr, nil
}

// matchesApplicant compares the supplied contact fields against the
// applicant's. A field the caller did not supply passes trivially; at
// least one was supplied, checked upstream.
func matchesApplicant(req domain.NewBusinessRequest, applicant *registry.Applicant) bool {
	if req.Phone != "" && digitsOnly(req.Phone) != digitsOnly(applicant.PhoneNumber) {
		return false
	}
	if req.Email != "" && !strings.EqualFold(req.Email, applicant.EmailAddress) {
		return false
	}
	return true
}

func digitsOnly(value string) string {
	var sb strings.Builder
	for _, c := range value {
		if c >= '0' && c <= '9' {
			sb.WriteRune(c)
		}
	}
	return sb.String()
}

// nrDisplayName selects the entity name for a name request: the approved
// name, the conditionally approved name for conditional requests, or the
// request number when neither is present.
func nrDisplayName(nr *registry.NameRequest, identifier string) string {
	wanted := registry.NRNameStatusApproved
	if nr.Status() == registry.NRStatusConditional {
		wanted = registry.NRNameStatusCondition
	}
	for _, name := range nr.Names {
		if name.State == wanted && name.Name != "" {
			return name.Name
		}
	}
	return identifier
}

func containsString(values []string, value string) bool {
	for _, v := range values {
		if v == value {
			return true
		}
	}
	return false
}
