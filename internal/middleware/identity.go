package middleware

import (
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/campusops/claimflow/internal/models"
	"github.com/campusops/claimflow/internal/rbac"
	"github.com/campusops/claimflow/pkg/config"
	appErrors "github.com/campusops/claimflow/pkg/errors"
	"github.com/campusops/claimflow/pkg/response"
)

// ContextIdentityKey is the gin context key storing the resolved caller.
const ContextIdentityKey = "currentIdentity"

// Identity resolves the caller from a Bearer JWT or, when demo headers are
// enabled, from the X-Role / X-User-ID / X-Department-ID headers. The header
// path trusts the caller and exists for local and demo deployments only.
// Requests without a resolvable identity are rejected before any handler runs.
func Identity(cfg config.IdentityConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, err := resolveIdentity(c, cfg)
		if err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}
		c.Set(ContextIdentityKey, identity)
		c.Next()
	}
}

func resolveIdentity(c *gin.Context, cfg config.IdentityConfig) (models.Identity, error) {
	header := c.GetHeader("Authorization")
	if header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			return models.Identity{}, appErrors.Clone(appErrors.ErrUnauthorized, "invalid authorization header")
		}
		return parseToken(parts[1], cfg.JWTSecret)
	}

	if cfg.DemoHeaders {
		rawRole := c.GetHeader("X-Role")
		userID := c.GetHeader("X-User-ID")
		if rawRole != "" && userID != "" {
			role, ok := rbac.ResolveRole(rawRole)
			if !ok {
				return models.Identity{}, appErrors.Clone(appErrors.ErrUnauthorized, fmt.Sprintf("unknown role %q", rawRole))
			}
			return models.Identity{
				UserID:       userID,
				Role:         role,
				DepartmentID: c.GetHeader("X-Department-ID"),
			}, nil
		}
	}

	return models.Identity{}, appErrors.ErrUnauthorized
}

func parseToken(token, secret string) (models.Identity, error) {
	if secret == "" {
		return models.Identity{}, appErrors.Clone(appErrors.ErrUnauthorized, "token validation unavailable")
	}
	claims := &models.IdentityClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil || !parsed.Valid {
		return models.Identity{}, appErrors.Clone(appErrors.ErrUnauthorized, "invalid or expired token")
	}
	role, ok := rbac.ResolveRole(string(claims.Role))
	if !ok {
		return models.Identity{}, appErrors.Clone(appErrors.ErrUnauthorized, "token carries unknown role")
	}
	return models.Identity{
		UserID:       claims.UserID,
		Role:         role,
		DepartmentID: claims.DepartmentID,
	}, nil
}

// CurrentIdentity extracts the resolved caller from the gin context.
func CurrentIdentity(c *gin.Context) (models.Identity, bool) {
	value, exists := c.Get(ContextIdentityKey)
	if !exists {
		return models.Identity{}, false
	}
	identity, ok := value.(models.Identity)
	return identity, ok
}
