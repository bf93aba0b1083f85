package domain

import "context"

type SaveEntityRequest struct {
	BusinessIdentifier string
	Name               string
	CorpTypeCode       string
	Status             string
	// PassCodeClaimed left nil keeps the stored claim untouched on update.
	PassCodeClaimed *bool
}

type Service interface {
	FindByBusinessIdentifier(ctx context.Context, businessIdentifier string) (*Entity, error)
	// Save creates the entity or updates the existing row for the same
	// business identifier.
	Save(ctx context.Context, req SaveEntityRequest) (*Entity, error)
	// ResetPasscode issues a fresh passcode, releases the claim, and mails
	// the new passcode to the given recipients.
	ResetPasscode(ctx context.Context, businessIdentifier string, emails []string) error
}
