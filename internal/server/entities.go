package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/registra/internal/domain"
	"github.com/smallbiznis/registra/internal/usercontext"
)

type passcodeResetRequest struct {
	Emails []string `json:"emails"`
}

// GetEntity returns the entity record for a business identifier. Staff
// and system accounts only; entities carry passcode material.
func (s *Server) GetEntity(c *gin.Context) {
	if !s.staffCaller(c) {
		return
	}

	entity, err := s.entitySvc.FindByBusinessIdentifier(c.Request.Context(), c.Param("businessIdentifier"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, entity)
}

func (s *Server) ResetEntityPasscode(c *gin.Context) {
	if !s.staffCaller(c) {
		return
	}

	var req passcodeResetRequest
	if err := c.ShouldBindJSON(&req); err != nil || len(req.Emails) == 0 {
		AbortWithError(c, newValidationError("emails", "required", "at least one recipient is required"))
		return
	}

	err := s.entitySvc.ResetPasscode(c.Request.Context(), c.Param("businessIdentifier"), req.Emails)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) staffCaller(c *gin.Context) bool {
	user, ok := usercontext.FromContext(c.Request.Context())
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return false
	}
	if !user.IsStaff() && !user.IsSystem() {
		AbortWithError(c, domain.ErrForbidden)
		return false
	}
	return true
}
