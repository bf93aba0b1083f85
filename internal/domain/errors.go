// Package domain holds the error taxonomy shared by the core services.
package domain

import "errors"

var (
	// ErrNotFound reports an absent org, entity, or membership.
	ErrNotFound = errors.New("not_found")

	// ErrAlreadyExists reports a duplicate affiliation.
	ErrAlreadyExists = errors.New("already_exists")

	// ErrInvalidCredentials reports a failed affiliation authorization.
	ErrInvalidCredentials = errors.New("invalid_credentials")

	// ErrInvalidState reports a name request in a disallowed status,
	// missing applicants, or an unpaid draft.
	ErrInvalidState = errors.New("invalid_state")

	// ErrBusinessRuleViolation reports an ownership or staff-org
	// uniqueness invariant breach.
	ErrBusinessRuleViolation = errors.New("business_rule_violation")

	// ErrServiceUnavailable reports an unreachable or failing registry.
	ErrServiceUnavailable = errors.New("service_unavailable")

	// ErrForbidden reports a caller without the required role.
	ErrForbidden = errors.New("forbidden")
)
