package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/registra/internal/domain"
	organizationdomain "github.com/smallbiznis/registra/internal/organization/domain"
	"github.com/smallbiznis/registra/internal/usercontext"
	"github.com/smallbiznis/registra/pkg/db/pagination"
)

type createOrganizationRequest struct {
	Name       string `json:"name"`
	TypeCode   string `json:"typeCode"`
	AccessType string `json:"accessType"`
}

func (s *Server) CreateOrganization(c *gin.Context) {
	var req createOrganizationRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Name) == "" {
		AbortWithError(c, invalidRequestError())
		return
	}

	org, err := s.organizationSvc.Create(c.Request.Context(), organizationdomain.CreateOrganizationRequest{
		Name:       strings.TrimSpace(req.Name),
		TypeCode:   strings.TrimSpace(req.TypeCode),
		AccessType: strings.TrimSpace(req.AccessType),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, org)
}

func (s *Server) GetOrganization(c *gin.Context) {
	org, err := s.organizationSvc.GetByID(c.Request.Context(), c.Param("orgId"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, org)
}

// ListActivityLogs returns the org's recent auditable actions, newest
// first. Staff see any org; other callers need an active membership.
func (s *Server) ListActivityLogs(c *gin.Context) {
	orgID, err := pathID(c, "orgId")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	ctx := c.Request.Context()
	user, ok := usercontext.FromContext(ctx)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}
	if !user.IsStaff() && !user.IsSystem() && !user.IsExternalStaff() {
		membership, err := s.memberships.FindByUserAndOrg(ctx, user.UserID, orgID)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		if membership == nil {
			AbortWithError(c, domain.ErrForbidden)
			return
		}
	}

	var page pagination.Pagination
	if err := c.ShouldBindQuery(&page); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	cursor, err := pagination.Decode(page.PageToken)
	if err != nil {
		AbortWithError(c, newValidationError("page_token", "invalid_page_token", "malformed page token"))
		return
	}

	logs, pageInfo, err := s.auditRepo.ListByOrg(ctx, orgID, cursor, page.Limit())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"activityLogs": logs, "pageInfo": pageInfo})
}
