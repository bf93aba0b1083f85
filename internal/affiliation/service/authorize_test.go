package service

import (
	"context"
	"testing"

	shared "github.com/smallbiznis/registra/internal/domain"
	entitydomain "github.com/smallbiznis/registra/internal/entity/domain"
	orgdomain "github.com/smallbiznis/registra/internal/organization/domain"
	"github.com/smallbiznis/registra/internal/passcode"
	"github.com/smallbiznis/registra/internal/registry"
	"github.com/smallbiznis/registra/internal/usercontext"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type partyGateway struct {
	stubGateway
	names []string
	err   error
}

func (g *partyGateway) FetchPartyNames(context.Context, string) ([]string, error) {
	if g.err != nil {
		return nil, g.err
	}
	return g.names, nil
}

func TestAuthorizeBypass(t *testing.T) {
	a := NewAuthorizer(&stubGateway{}, zap.NewNop())
	entity := &entitydomain.Entity{CorpTypeCode: "BC", PassCode: "stored"}

	staff := usercontext.UserContext{Roles: []string{usercontext.RoleStaff}}
	require.NoError(t, a.Authorize(context.Background(), staff, orgdomain.TypePremium, entity, ""))

	system := usercontext.UserContext{Roles: []string{usercontext.RoleSystem}}
	require.NoError(t, a.Authorize(context.Background(), system, orgdomain.TypePremium, entity, ""))

	// SBC office accounts bypass regardless of caller roles.
	regular := usercontext.UserContext{}
	require.NoError(t, a.Authorize(context.Background(), regular, orgdomain.TypeSBCStaff, entity, ""))
}

func TestAuthorizePasscode(t *testing.T) {
	a := NewAuthorizer(&stubGateway{}, zap.NewNop())
	caller := usercontext.UserContext{}

	stored, err := passcode.Hash("123456789")
	require.NoError(t, err)
	entity := &entitydomain.Entity{CorpTypeCode: "BC", PassCode: stored}

	require.NoError(t, a.Authorize(context.Background(), caller, orgdomain.TypePremium, entity, "123456789"))

	err = a.Authorize(context.Background(), caller, orgdomain.TypePremium, entity, "000000000")
	require.ErrorIs(t, err, shared.ErrInvalidCredentials)

	// A stored passcode with nothing supplied is a denial.
	err = a.Authorize(context.Background(), caller, orgdomain.TypePremium, entity, "")
	require.ErrorIs(t, err, shared.ErrInvalidCredentials)

	// No stored passcode and nothing supplied is allowed.
	open := &entitydomain.Entity{CorpTypeCode: "BC"}
	require.NoError(t, a.Authorize(context.Background(), caller, orgdomain.TypePremium, open, ""))
}

func TestAuthorizeSuppliedAgainstEmptyStored(t *testing.T) {
	a := NewAuthorizer(&stubGateway{}, zap.NewNop())
	caller := usercontext.UserContext{}
	entity := &entitydomain.Entity{CorpTypeCode: "BC"}

	err := a.Authorize(context.Background(), caller, orgdomain.TypePremium, entity, "123456789")
	require.ErrorIs(t, err, shared.ErrInvalidCredentials)
}

func TestAuthorizeFirmPartyName(t *testing.T) {
	gateway := &partyGateway{names: []string{"Doe, Jane", "ACME  Holdings Ltd"}}
	a := NewAuthorizer(gateway, zap.NewNop())
	caller := usercontext.UserContext{}
	firm := &entitydomain.Entity{BusinessIdentifier: "FM0001234", CorpTypeCode: entitydomain.CorpTypeSP}

	// Case and internal whitespace are ignored.
	require.NoError(t, a.Authorize(context.Background(), caller, orgdomain.TypePremium, firm, "doe,  jane"))
	require.NoError(t, a.Authorize(context.Background(), caller, orgdomain.TypePremium, firm, "acme holdings ltd"))

	err := a.Authorize(context.Background(), caller, orgdomain.TypePremium, firm, "Smith, John")
	require.ErrorIs(t, err, shared.ErrInvalidCredentials)

	err = a.Authorize(context.Background(), caller, orgdomain.TypePremium, firm, "")
	require.ErrorIs(t, err, shared.ErrInvalidCredentials)
}

func TestAuthorizeFirmRegistryErrors(t *testing.T) {
	caller := usercontext.UserContext{}
	firm := &entitydomain.Entity{BusinessIdentifier: "FM0001234", CorpTypeCode: entitydomain.CorpTypeGP}

	a := NewAuthorizer(&partyGateway{err: shared.ErrNotFound}, zap.NewNop())
	err := a.Authorize(context.Background(), caller, orgdomain.TypePremium, firm, "Doe, Jane")
	require.ErrorIs(t, err, shared.ErrInvalidCredentials)

	a = NewAuthorizer(&partyGateway{err: shared.ErrServiceUnavailable}, zap.NewNop())
	err = a.Authorize(context.Background(), caller, orgdomain.TypePremium, firm, "Doe, Jane")
	require.ErrorIs(t, err, shared.ErrServiceUnavailable)
}

var _ registry.Gateway = (*partyGateway)(nil)
