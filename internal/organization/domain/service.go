package domain

import "context"

type CreateOrganizationRequest struct {
	Name       string
	TypeCode   string
	AccessType string
}

type Service interface {
	Create(ctx context.Context, req CreateOrganizationRequest) (*Organization, error)
	GetByID(ctx context.Context, id string) (*Organization, error)
}
