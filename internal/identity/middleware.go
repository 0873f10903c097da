package identity

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const ctxIdentity = "vaultline_identity"

// bearerPrefix is the only credential scheme the gate accepts.
const bearerPrefix = "Bearer "

// accessDeniedBody is the single response body for every authentication
// failure. Missing, malformed, tampered and expired credentials are
// indistinguishable to the caller; the distinction lives in the audit log only.
var accessDeniedBody = gin.H{"message": "access denied"}

// Identity is the verified acting identity for one request.
//
// It is constructed exclusively by RequireIdentity from verified token claims
// and stored in the per-request context — never in shared state, so one
// request's identity cannot leak into another's handler. Payload fields with
// identity-shaped names have no path into this struct.
type Identity struct {
	SubjectID   string
	DisplayName string
}

// RequireIdentity returns a Gin middleware that enforces a valid Bearer
// session token on the route.
//
// On success it injects the Identity into the request context and hands
// control to the next handler. On any failure it writes a generic 401 and
// aborts — protected handlers are never entered without a verified identity.
// The raw credential is never logged or echoed.
func RequireIdentity(tokens *TokenIssuer, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if !strings.HasPrefix(authHeader, bearerPrefix) {
			logger.Info("request rejected",
				zap.String("reason", "credential_missing"),
				zap.String("path", c.Request.URL.Path),
			)
			c.AbortWithStatusJSON(http.StatusUnauthorized, accessDeniedBody)
			return
		}

		tokenStr := strings.TrimPrefix(authHeader, bearerPrefix)
		if tokenStr == "" {
			logger.Info("request rejected",
				zap.String("reason", "credential_missing"),
				zap.String("path", c.Request.URL.Path),
			)
			c.AbortWithStatusJSON(http.StatusUnauthorized, accessDeniedBody)
			return
		}

		claims, err := tokens.Verify(tokenStr)
		if err != nil {
			logger.Info("request rejected",
				zap.String("reason", "credential_rejected"),
				zap.String("class", rejectionClass(err)),
				zap.String("path", c.Request.URL.Path),
			)
			c.AbortWithStatusJSON(http.StatusUnauthorized, accessDeniedBody)
			return
		}

		c.Set(ctxIdentity, Identity{
			SubjectID:   claims.Subject,
			DisplayName: claims.DisplayName,
		})
		c.Next()
	}
}

// IdentityFromCtx retrieves the verified identity injected by RequireIdentity.
// The second return is false when the request did not pass through the gate.
func IdentityFromCtx(c *gin.Context) (Identity, bool) {
	v, ok := c.Get(ctxIdentity)
	if !ok {
		return Identity{}, false
	}
	id, ok := v.(Identity)
	return id, ok
}

// rejectionClass names the verifier failure for audit logs.
func rejectionClass(err error) string {
	switch {
	case errors.Is(err, ErrTokenExpired):
		return "expired"
	case errors.Is(err, ErrTokenSignatureInvalid):
		return "signature_invalid"
	default:
		return "malformed"
	}
}
