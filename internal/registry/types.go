// Package registry is the gateway to the external business-registry
// backends. It owns the wire shapes for per-source payloads and performs
// the raw HTTP calls; merging happens in the affiliation reconciler.
package registry

import "encoding/json"

// Name-request statuses used across the registry APIs.
const (
	NRStatusApproved    = "APPROVED"
	NRStatusConditional = "CONDITIONAL"
	NRStatusDraft       = "DRAFT"
	NRStatusInProgress  = "INPROGRESS"
	NRStatusConsumed    = "CONSUMED"

	NRNameStatusApproved  = "APPROVED"
	NRNameStatusCondition = "CONDITION"

	NRActionAmalgamate = "AMG"
)

// NameRequestName is one candidate name on a name request.
type NameRequestName struct {
	Name  string `json:"name"`
	State string `json:"state,omitempty"`
}

// Applicant carries the contact fields of a name-request applicant.
type Applicant struct {
	EmailAddress string `json:"emailAddress,omitempty"`
	PhoneNumber  string `json:"phoneNumber,omitempty"`
}

// NameRequest is the names-registry payload for one name request. The
// batch endpoint reports status in stateCd while the single-request
// endpoint uses state; both fields are kept.
type NameRequest struct {
	NrNum           string            `json:"nrNum,omitempty"`
	State           string            `json:"state,omitempty"`
	StateCd         string            `json:"stateCd,omitempty"`
	RequestActionCd string            `json:"request_action_cd,omitempty"`
	Names           []NameRequestName `json:"names,omitempty"`
	Applicants      *Applicant        `json:"applicants,omitempty"`
	ExpirationDate  string            `json:"expirationDate,omitempty"`
	LegalType       string            `json:"legalType,omitempty"`
}

// Status returns the name request's status regardless of which field the
// source populated.
func (n NameRequest) Status() string {
	if n.StateCd != "" {
		return n.StateCd
	}
	return n.State
}

// EntityRecord is a business or draft entry returned by a registry
// source. NrNumber is a foreign reference to a NameRequest; NameRequest
// is populated by the reconciler during linking.
type EntityRecord struct {
	Identifier    string       `json:"identifier,omitempty"`
	Name          string       `json:"name,omitempty"`
	LegalType     string       `json:"legalType,omitempty"`
	DraftType     string       `json:"draftType,omitempty"`
	DraftStatus   string       `json:"draftStatus,omitempty"`
	NrNumber      string       `json:"nrNumber,omitempty"`
	NameRequest   *NameRequest `json:"nameRequest,omitempty"`
	Status        string       `json:"status,omitempty"`
	TaxID         string       `json:"taxId,omitempty"`
	LastModified  string       `json:"lastModified,omitempty"`
	AdminFreeze   bool         `json:"adminFreeze,omitempty"`
	GoodStanding  *bool        `json:"goodStanding,omitempty"`
	InDissolution bool         `json:"inDissolution,omitempty"`
}

// BatchResponse is one registry source's answer to a batched details
// call. Different sources populate different subsets; the flags are a
// design fact, not an error condition.
type BatchResponse struct {
	HasMore      bool           `json:"hasMore"`
	NameRequests []NameRequest  `json:"requests"`
	Businesses   []EntityRecord `json:"businessEntities"`
	Drafts       []EntityRecord `json:"draftEntities"`
}

// UnmarshalJSON accepts both the object shape and the bare-array shape
// the names registry historically used for name requests.
func (b *BatchResponse) UnmarshalJSON(data []byte) error {
	trimmed := firstNonSpace(data)
	if trimmed == '[' {
		var requests []NameRequest
		if err := json.Unmarshal(data, &requests); err != nil {
			return err
		}
		*b = BatchResponse{NameRequests: requests}
		return nil
	}

	type alias BatchResponse
	var decoded alias
	if err := json.Unmarshal(data, &decoded); err != nil {
		return err
	}
	*b = BatchResponse(decoded)
	return nil
}

func firstNonSpace(data []byte) byte {
	for _, c := range data {
		switch c {
		case ' ', '\t', '\n', '\r':
			continue
		}
		return c
	}
	return 0
}

// SearchFilter narrows a batched details call.
type SearchFilter struct {
	Status     string `json:"status,omitempty" form:"status"`
	Name       string `json:"name,omitempty" form:"name"`
	Type       string `json:"type,omitempty" form:"type"`
	Identifier string `json:"identifier,omitempty" form:"identifier"`
	Page       int    `json:"page,omitempty" form:"page"`
	Limit      int    `json:"limit,omitempty" form:"limit"`
}

// IsEmpty reports whether no search field is set. Pagination is handled
// by the caller in that case, so sources are forced to a single page.
func (f SearchFilter) IsEmpty() bool {
	return f.Status == "" && f.Name == "" && f.Type == "" && f.Identifier == ""
}
