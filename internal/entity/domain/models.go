// Package domain contains persistence models for registry entities
// mirrored locally for affiliation bookkeeping.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Corp type codes shared with the registry backends. The temp codes mark
// in-flight incorporation drafts.
const (
	CorpTypeNR   = "NR"
	CorpTypeTMP  = "TMP"
	CorpTypeATMP = "ATMP"
	CorpTypeCTMP = "CTMP"
	CorpTypeRTMP = "RTMP"
	CorpTypeSP   = "SP"
	CorpTypeGP   = "GP"
)

// TempCorpTypes lists the draft corp types.
var TempCorpTypes = []string{CorpTypeTMP, CorpTypeATMP, CorpTypeCTMP, CorpTypeRTMP}

// IsTempCorpType reports whether code is a draft corp type.
func IsTempCorpType(code string) bool {
	for _, t := range TempCorpTypes {
		if t == code {
			return true
		}
	}
	return false
}

// IsFirmCorpType reports whether code is a proprietorship/partnership
// type, which authorizes via registered-party names instead of passcodes.
func IsFirmCorpType(code string) bool {
	return code == CorpTypeSP || code == CorpTypeGP
}

// Entity is a local mirror of a registry entity.
type Entity struct {
	ID                 snowflake.ID `gorm:"primaryKey" json:"id"`
	BusinessIdentifier string       `gorm:"type:text;not null;uniqueIndex:ux_entities_business_identifier" json:"business_identifier"`
	Name               string       `gorm:"type:text;not null" json:"name"`
	CorpTypeCode       string       `gorm:"type:text;not null;index" json:"corp_type_code"`
	Status             string       `gorm:"type:text" json:"status"`
	PassCode           string       `gorm:"type:text" json:"-"`
	PassCodeClaimed    bool         `gorm:"not null;default:false" json:"pass_code_claimed"`
	CreatedAt          time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt          time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Entity) TableName() string { return "entities" }

// DisplayName returns the entity name, falling back to the identifier.
func (e Entity) DisplayName() string {
	if e.Name != "" {
		return e.Name
	}
	return e.BusinessIdentifier
}
