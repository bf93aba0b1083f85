package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	shared "github.com/smallbiznis/registra/internal/domain"
	entitydomain "github.com/smallbiznis/registra/internal/entity/domain"
	orgdomain "github.com/smallbiznis/registra/internal/organization/domain"
	"github.com/smallbiznis/registra/internal/passcode"
	"github.com/smallbiznis/registra/internal/registry"
	"github.com/smallbiznis/registra/internal/usercontext"
	"go.uber.org/zap"
)

// Authorizer decides whether a caller may affiliate an entity. Rules are
// evaluated in order; the first applicable rule decides.
type Authorizer struct {
	gateway registry.Gateway
	log     *zap.Logger
}

func NewAuthorizer(gateway registry.Gateway, log *zap.Logger) *Authorizer {
	return &Authorizer{gateway: gateway, log: log.Named("affiliation.authorizer")}
}

// Authorize returns nil when affiliation creation is permitted, or
// ErrInvalidCredentials when it is not. orgType is the affiliating org's
// type code; SBC office accounts bypass entity checks like staff do.
func (a *Authorizer) Authorize(ctx context.Context, caller usercontext.UserContext, orgType string, entity *entitydomain.Entity, supplied string) error {
	if caller.IsStaff() || caller.IsSystem() || caller.HasRole(usercontext.RoleSkipAffiliationAuth) ||
		orgType == orgdomain.TypeSBCStaff {
		return nil
	}

	if entitydomain.IsFirmCorpType(entity.CorpTypeCode) {
		return a.authorizeFirm(ctx, entity, supplied)
	}

	switch {
	case supplied != "":
		if !passcode.Verify(supplied, entity.PassCode) {
			return fmt.Errorf("%w: passcode mismatch", shared.ErrInvalidCredentials)
		}
		return nil
	case entity.PassCode != "":
		return fmt.Errorf("%w: passcode required", shared.ErrInvalidCredentials)
	default:
		return nil
	}
}

// authorizeFirm matches the supplied value against the firm's registered
// party names from the registry. The comparison collapses whitespace and
// ignores case.
func (a *Authorizer) authorizeFirm(ctx context.Context, entity *entitydomain.Entity, supplied string) error {
	if strings.TrimSpace(supplied) == "" {
		return fmt.Errorf("%w: party name required", shared.ErrInvalidCredentials)
	}

	names, err := a.gateway.FetchPartyNames(ctx, entity.BusinessIdentifier)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return fmt.Errorf("%w: no registered parties", shared.ErrInvalidCredentials)
		}
		return err
	}

	want := normalizeName(supplied)
	for _, name := range names {
		if normalizeName(name) == want {
			return nil
		}
	}
	a.log.Debug("party name mismatch",
		zap.String("business_identifier", entity.BusinessIdentifier),
		zap.Int("parties", len(names)))
	return fmt.Errorf("%w: party name mismatch", shared.ErrInvalidCredentials)
}

func normalizeName(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), " "))
}
