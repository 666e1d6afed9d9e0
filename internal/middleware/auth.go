package middleware

import (
	"strings"

	"clinicapos/internal/apierror"
	"clinicapos/internal/service"

	"github.com/gin-gonic/gin"
)

const (
	ClaimsKey = "claims"
)

// JWTAuth validates the Bearer token on every protected route. Refresh
// tokens are rejected here; they are only good for /v1/auth/refresh.
func JWTAuth(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" || !strings.HasPrefix(header, "Bearer ") {
			abort(c, apierror.ErrUnauthorized)
			return
		}

		claims, err := service.ParseToken(strings.TrimPrefix(header, "Bearer "), secret)
		if err != nil || claims.Tipo != service.TokenAcceso {
			abort(c, apierror.ErrUnauthorized.WithMessage("Token invalido o expirado"))
			return
		}

		c.Set(ClaimsKey, claims)
		c.Next()
	}
}

// RequireRole rejects requests whose JWT role is not in the allowed list.
func RequireRole(roles ...string) gin.HandlerFunc {
	allowed := make(map[string]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(c *gin.Context) {
		claims := GetClaims(c)
		if claims == nil || !allowed[claims.Rol] {
			abort(c, apierror.ErrForbidden)
			return
		}
		c.Next()
	}
}

// GetClaims is a helper to retrieve typed claims from the Gin context.
// Nil on public routes.
func GetClaims(c *gin.Context) *service.TokenClaims {
	v, ok := c.Get(ClaimsKey)
	if !ok {
		return nil
	}
	claims, _ := v.(*service.TokenClaims)
	return claims
}

func abort(c *gin.Context, e *apierror.AppError) {
	c.AbortWithStatusJSON(e.HTTPStatus, e)
}
