package server

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/smallbiznis/registra/internal/domain"
	userdomain "github.com/smallbiznis/registra/internal/user/domain"
	"github.com/smallbiznis/registra/internal/usercontext"
	"github.com/smallbiznis/registra/pkg/log"
	"go.uber.org/zap"
)

type tokenClaims struct {
	jwt.RegisteredClaims

	Username    string   `json:"preferred_username"`
	FirstName   string   `json:"given_name"`
	LastName    string   `json:"family_name"`
	Email       string   `json:"email"`
	LoginSource string   `json:"loginSource"`
	Roles       []string `json:"roles"`
}

// AuthRequired verifies the bearer token and stores the caller on the
// request context. The local user row is created on first sight so
// memberships and activity logs can reference it.
func (s *Server) AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		claims := tokenClaims{}
		parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, ErrUnauthorized
			}
			return []byte(s.cfg.AuthJWTSecret), nil
		})
		if err != nil || !parsed.Valid || strings.TrimSpace(claims.Subject) == "" {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		ctx := c.Request.Context()
		user := usercontext.UserContext{
			Sub:         claims.Subject,
			UserName:    claims.Username,
			FirstName:   claims.FirstName,
			LastName:    claims.LastName,
			LoginSource: claims.LoginSource,
			Roles:       claims.Roles,
		}

		record, err := s.users.FindBySub(ctx, claims.Subject)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		if record == nil {
			created := userdomain.User{
				ID:          s.genID.Generate(),
				Sub:         claims.Subject,
				Username:    claims.Username,
				FirstName:   claims.FirstName,
				LastName:    claims.LastName,
				Email:       claims.Email,
				LoginSource: claims.LoginSource,
			}
			if err := s.users.Create(ctx, created); err != nil {
				log.L(ctx).Warn("user provisioning failed", zap.String("sub", claims.Subject), zap.Error(err))
			} else {
				record = &created
			}
		}
		if record != nil {
			user.UserID = record.ID
		}

		c.Request = c.Request.WithContext(usercontext.WithUser(ctx, user))
		c.Next()
	}
}

// SystemOnly admits system service accounts.
func SystemOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := usercontext.FromContext(c.Request.Context())
		if !ok {
			AbortWithError(c, ErrUnauthorized)
			return
		}
		if !user.IsSystem() {
			AbortWithError(c, domain.ErrForbidden)
			return
		}
		c.Next()
	}
}

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if header == "" {
		return ""
	}
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}
