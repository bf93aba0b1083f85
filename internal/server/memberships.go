package server

import (
	"net/http"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/registra/internal/domain"
	membershipdomain "github.com/smallbiznis/registra/internal/membership/domain"
)

type updateMembershipRequest struct {
	Role   *string `json:"role"`
	Status *string `json:"status"`
}

type memberListResponse struct {
	Members []membershipdomain.MemberDetail `json:"members"`
}

func (s *Server) ListMembers(c *gin.Context) {
	orgID, err := pathID(c, "orgId")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var roles []string
	if raw := strings.TrimSpace(c.Query("roles")); raw != "" {
		for _, role := range strings.Split(raw, ",") {
			if role = strings.TrimSpace(role); role != "" {
				roles = append(roles, role)
			}
		}
	}

	members, err := s.membershipSvc.MembersForOrg(c.Request.Context(), orgID, c.Query("status"), roles)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, memberListResponse{Members: members})
}

func (s *Server) PendingMemberCount(c *gin.Context) {
	orgID, err := pathID(c, "orgId")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	count, err := s.membershipSvc.PendingCount(c.Request.Context(), orgID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": count})
}

func (s *Server) UpdateMembership(c *gin.Context) {
	membershipID, err := s.orgMembershipID(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var req updateMembershipRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	if req.Role == nil && req.Status == nil {
		AbortWithError(c, newValidationError("request", "empty_update", "role or status is required"))
		return
	}

	membership, err := s.membershipSvc.Update(c.Request.Context(), membershipID, membershipdomain.UpdateRequest{
		MembershipType: req.Role,
		Status:         req.Status,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, membership)
}

func (s *Server) DeactivateMembership(c *gin.Context) {
	membershipID, err := s.orgMembershipID(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	membership, err := s.membershipSvc.Deactivate(c.Request.Context(), membershipID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, membership)
}

// orgMembershipID resolves the membership path param and verifies the
// record belongs to the org named in the path.
func (s *Server) orgMembershipID(c *gin.Context) (snowflake.ID, error) {
	orgID, err := pathID(c, "orgId")
	if err != nil {
		return 0, err
	}
	membershipID, err := pathID(c, "membershipId")
	if err != nil {
		return 0, err
	}

	membership, err := s.memberships.FindByID(c.Request.Context(), membershipID)
	if err != nil {
		return 0, err
	}
	if membership == nil || membership.OrgID != orgID {
		return 0, domain.ErrNotFound
	}
	return membershipID, nil
}
