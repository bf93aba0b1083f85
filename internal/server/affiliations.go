package server

import (
	"net/http"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	affiliationdomain "github.com/smallbiznis/registra/internal/affiliation/domain"
	"github.com/smallbiznis/registra/internal/registry"
)

type createAffiliationRequest struct {
	BusinessIdentifier string `json:"businessIdentifier"`
	Passcode           string `json:"passCode"`
	CertifiedByName    string `json:"certifiedByName"`

	// New-business fields. NrNumber selects the draft flow.
	NrNumber string `json:"nrNumber"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
}

type affiliationListResponse struct {
	Affiliations []affiliationdomain.OrgAffiliation `json:"affiliations"`
}

type affiliationDetailsResponse struct {
	Entities []registry.EntityRecord `json:"entities"`
	HasMore  bool                    `json:"hasMore"`
}

// ListAffiliations returns the org's affiliations. With details=true the
// rows are reconciled against the registry backends.
func (s *Server) ListAffiliations(c *gin.Context) {
	orgID, err := pathID(c, "orgId")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	ctx := c.Request.Context()
	if c.Query("details") != "true" {
		rows, err := s.affiliationSvc.FindVisibleByOrg(ctx, orgID)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, affiliationListResponse{Affiliations: rows})
		return
	}

	var filter registry.SearchFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	removeStale := c.Query("removeStaleDrafts") == "true"

	result, err := s.affiliationSvc.Details(ctx, orgID, filter, removeStale)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, affiliationDetailsResponse{
		Entities: result.Entities,
		HasMore:  result.HasMore,
	})
}

func (s *Server) CreateAffiliation(c *gin.Context) {
	orgID, err := pathID(c, "orgId")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var req createAffiliationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	ctx := c.Request.Context()
	if strings.TrimSpace(req.NrNumber) != "" {
		affiliation, err := s.affiliationSvc.CreateNewBusiness(ctx, affiliationdomain.NewBusinessRequest{
			OrgID:           orgID,
			NrNumber:        strings.TrimSpace(req.NrNumber),
			Email:           strings.TrimSpace(req.Email),
			Phone:           strings.TrimSpace(req.Phone),
			CertifiedByName: strings.TrimSpace(req.CertifiedByName),
		})
		if err != nil {
			AbortWithError(c, err)
			return
		}
		c.JSON(http.StatusCreated, affiliation)
		return
	}

	if strings.TrimSpace(req.BusinessIdentifier) == "" {
		AbortWithError(c, newValidationError("businessIdentifier", "required", "business identifier is required"))
		return
	}

	affiliation, err := s.affiliationSvc.Create(ctx, affiliationdomain.CreateRequest{
		OrgID:              orgID,
		BusinessIdentifier: strings.TrimSpace(req.BusinessIdentifier),
		Passcode:           req.Passcode,
		CertifiedByName:    strings.TrimSpace(req.CertifiedByName),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, affiliation)
}

func (s *Server) GetAffiliation(c *gin.Context) {
	orgID, err := pathID(c, "orgId")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	affiliation, err := s.affiliationSvc.FindAffiliation(c.Request.Context(), orgID, c.Param("businessIdentifier"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, affiliation)
}

func (s *Server) DeleteAffiliation(c *gin.Context) {
	orgID, err := pathID(c, "orgId")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resetPasscode := c.Query("resetPasscode") == "true"
	email := strings.TrimSpace(c.Query("email"))

	err = s.affiliationSvc.Delete(c.Request.Context(), orgID, c.Param("businessIdentifier"), resetPasscode, email)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type fixStaleRequest struct {
	BusinessIdentifier string `json:"businessIdentifier"`
}

// FixStaleAffiliation repoints affiliations of a registered name request
// onto the resulting business.
func (s *Server) FixStaleAffiliation(c *gin.Context) {
	var req fixStaleRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.BusinessIdentifier) == "" {
		AbortWithError(c, invalidRequestError())
		return
	}

	err := s.affiliationSvc.FixStale(c.Request.Context(), c.Param("nrNumber"), strings.TrimSpace(req.BusinessIdentifier))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func pathID(c *gin.Context, name string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(c.Param(name))
	if err != nil {
		return 0, newValidationError(name, "invalid_id", "malformed identifier")
	}
	return id, nil
}
