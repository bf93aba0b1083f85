// Package domain contains the affiliation model and the reconciled
// detail shapes.
package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/registra/internal/registry"
	"gorm.io/gorm"
)

// Affiliation links an org to a local entity. One active link per
// (org, entity) pair.
type Affiliation struct {
	ID              snowflake.ID `gorm:"primaryKey" json:"id"`
	OrgID           snowflake.ID `gorm:"not null;index;uniqueIndex:ux_affiliations_org_entity,priority:1" json:"org_id"`
	EntityID        snowflake.ID `gorm:"not null;index;uniqueIndex:ux_affiliations_org_entity,priority:2" json:"entity_id"`
	CertifiedByName string       `gorm:"type:text" json:"certified_by_name,omitempty"`
	CreatedAt       time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName sets the database table name.
func (Affiliation) TableName() string { return "affiliations" }

// AffiliationInvitation is a pending email invitation to manage an
// affiliated entity. Deleting the affiliation retires its invitations.
type AffiliationInvitation struct {
	ID             snowflake.ID `gorm:"primaryKey" json:"id"`
	OrgID          snowflake.ID `gorm:"not null;index" json:"org_id"`
	EntityID       snowflake.ID `gorm:"not null;index" json:"entity_id"`
	RecipientEmail string       `gorm:"type:text;not null" json:"recipient_email"`
	Status         string       `gorm:"type:text;not null;default:'PENDING'" json:"status"`
	CreatedAt      time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName sets the database table name.
func (AffiliationInvitation) TableName() string { return "affiliation_invitations" }

// Base is the immutable snapshot driving detail lookups and ordering:
// the affiliated identifier and when the affiliation was created.
type Base struct {
	Identifier string
	Created    time.Time
}

// OrgAffiliation is an affiliation joined with its entity for listing.
type OrgAffiliation struct {
	Affiliation
	BusinessIdentifier string `json:"business_identifier"`
	EntityName         string `json:"entity_name"`
	CorpTypeCode       string `json:"corp_type_code"`
	// NrNumber is set on draft rows that carry an affiliated name
	// request; the row's name is then the name request's name.
	NrNumber string `gorm:"-" json:"nr_number,omitempty"`
}

// DetailsResult is the reconciled affiliation detail set.
type DetailsResult struct {
	Entities []registry.EntityRecord `json:"entities"`
	HasMore  bool                    `json:"hasMore"`
}

// CreateRequest affiliates an existing entity with an org, authorized by
// role, passcode, or registered-party name.
type CreateRequest struct {
	OrgID              snowflake.ID
	BusinessIdentifier string
	Passcode           string
	CertifiedByName    string
}

// NewBusinessRequest affiliates a name request with an org, authorized
// by matching the applicant's contact details.
type NewBusinessRequest struct {
	OrgID           snowflake.ID
	NrNumber        string
	Email           string
	Phone           string
	CertifiedByName string
}

type Service interface {
	// FindVisibleByOrg lists the org's affiliations, hiding draft rows
	// whose name request is not itself affiliated.
	FindVisibleByOrg(ctx context.Context, orgID snowflake.ID) ([]OrgAffiliation, error)
	// Details reconciles the org's affiliations against the registry
	// backends into one merged, ordered detail set.
	Details(ctx context.Context, orgID snowflake.ID, filter registry.SearchFilter, removeStaleDrafts bool) (*DetailsResult, error)
	Create(ctx context.Context, req CreateRequest) (*Affiliation, error)
	CreateNewBusiness(ctx context.Context, req NewBusinessRequest) (*Affiliation, error)
	FindAffiliation(ctx context.Context, orgID snowflake.ID, businessIdentifier string) (*OrgAffiliation, error)
	Delete(ctx context.Context, orgID snowflake.ID, businessIdentifier string, resetPasscode bool, email string) error
	// FixStale repoints affiliations from a name-request entity to the
	// business it became. System accounts only.
	FixStale(ctx context.Context, nrNumber, businessIdentifier string) error
}

type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, affiliation Affiliation) error
	Delete(ctx context.Context, id snowflake.ID) error
	FindByOrgAndEntity(ctx context.Context, orgID, entityID snowflake.ID) (*Affiliation, error)
	ListByOrg(ctx context.Context, orgID snowflake.ID) ([]OrgAffiliation, error)
	ListByEntity(ctx context.Context, entityID snowflake.ID) ([]Affiliation, error)
	// Repoint moves every affiliation of fromEntity onto toEntity,
	// skipping orgs already affiliated with toEntity.
	Repoint(ctx context.Context, fromEntityID, toEntityID snowflake.ID) error
	DeleteInvitations(ctx context.Context, orgID, entityID snowflake.ID) error
}
