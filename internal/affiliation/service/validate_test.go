package service

import (
	"testing"

	"github.com/smallbiznis/registra/internal/affiliation/domain"
	"github.com/smallbiznis/registra/internal/registry"
	"github.com/stretchr/testify/require"
)

func TestMatchesApplicant(t *testing.T) {
	applicant := &registry.Applicant{
		EmailAddress: "owner@example.com",
		PhoneNumber:  "(250) 555-1234",
	}

	cases := []struct {
		name string
		req  domain.NewBusinessRequest
		want bool
	}{
		{"email match ignores case", domain.NewBusinessRequest{Email: "Owner@Example.COM"}, true},
		{"email mismatch", domain.NewBusinessRequest{Email: "other@example.com"}, false},
		{"phone match ignores formatting", domain.NewBusinessRequest{Phone: "250-555-1234"}, true},
		{"phone mismatch", domain.NewBusinessRequest{Phone: "250-555-0000"}, false},
		{"both supplied, one wrong", domain.NewBusinessRequest{Email: "owner@example.com", Phone: "999"}, false},
		{"both supplied, both right", domain.NewBusinessRequest{Email: "owner@example.com", Phone: "2505551234"}, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, matchesApplicant(tc.req, applicant))
		})
	}
}

func TestNRDisplayName(t *testing.T) {
	approved := &registry.NameRequest{
		StateCd: registry.NRStatusApproved,
		Names: []registry.NameRequestName{
			{Name: "REJECTED NAME", State: "NE"},
			{Name: "ACME VENTURES LTD", State: registry.NRNameStatusApproved},
		},
	}
	require.Equal(t, "ACME VENTURES LTD", nrDisplayName(approved, "NR 1111111"))

	conditional := &registry.NameRequest{
		StateCd: registry.NRStatusConditional,
		Names: []registry.NameRequestName{
			{Name: "ACME VENTURES LTD", State: registry.NRNameStatusCondition},
		},
	}
	require.Equal(t, "ACME VENTURES LTD", nrDisplayName(conditional, "NR 1111111"))

	unnamed := &registry.NameRequest{StateCd: registry.NRStatusDraft}
	require.Equal(t, "NR 1111111", nrDisplayName(unnamed, "NR 1111111"))
}

func TestDigitsOnly(t *testing.T) {
	require.Equal(t, "12505551234", digitsOnly("+1 (250) 555-1234"))
	require.Equal(t, "", digitsOnly("no digits"))
}
