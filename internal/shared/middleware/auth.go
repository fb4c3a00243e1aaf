package middleware

import (
	"strings"

	"library-backend/internal/shared/response"
	"library-backend/pkg/jwt"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const (
	identityKey = "identity"
	bearer      = "Bearer"
)

// Identity is the acting user resolved by the gate.
// Services trust it and never re-verify credentials.
type Identity struct {
	UserID uuid.UUID
	Email  string
	Role   string
}

// TokenVerifier turns a bearer credential into claims.
type TokenVerifier interface {
	ValidateAccessToken(token string) (*jwt.Claims, error)
}

// AuthMiddleware rejects requests without a valid access token and stores
// the resolved Identity in the gin context.
func AuthMiddleware(verifier TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			response.Unauthorized(c, "missing authorization header")
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != bearer || strings.TrimSpace(parts[1]) == "" {
			response.Unauthorized(c, "invalid authorization header format")
			return
		}

		claims, err := verifier.ValidateAccessToken(strings.TrimSpace(parts[1]))
		if err != nil {
			log.Debug().
				Str("request_id", c.GetString("request_id")).
				Err(err).
				Msg("token rejected")
			response.Unauthorized(c, "invalid token")
			return
		}

		userID, err := uuid.Parse(claims.UserID)
		if err != nil {
			response.Unauthorized(c, "invalid user ID in token")
			return
		}

		c.Set(identityKey, Identity{
			UserID: userID,
			Email:  claims.Email,
			Role:   claims.Role,
		})
		c.Next()
	}
}

// CurrentIdentity returns the identity set by AuthMiddleware.
func CurrentIdentity(c *gin.Context) (Identity, bool) {
	v, ok := c.Get(identityKey)
	if !ok {
		return Identity{}, false
	}
	id, ok := v.(Identity)
	return id, ok
}

// SetIdentity is used by tests and internal callers that already trust the caller.
func SetIdentity(c *gin.Context, id Identity) {
	c.Set(identityKey, id)
}
