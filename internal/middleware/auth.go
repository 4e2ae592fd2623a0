// File: internal/middleware/auth.go
package middleware

import (
	"context"

	"firebase.google.com/go/v4/auth"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"coach_admin_backend/internal/common"
	"coach_admin_backend/internal/config"
)

// TokenVerifier verifies Firebase ID tokens.
type TokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*auth.Token, error)
}

// AdminAuthMiddleware admits callers holding a valid Firebase ID token that
// either carries the admin custom claim or belongs to an ADMIN_EMAILS address.
func AdminAuthMiddleware(verifier TokenVerifier, cfg *config.Config, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		idToken := common.GetTokenFromContext(c)
		if idToken == "" {
			logger.Debug("Admin auth: bearer token missing or malformed")
			common.RespondWithError(c, common.ErrUnauthorized.WithMessage("Authorization header must be 'Bearer <token>'."))
			return
		}

		token, err := verifier.VerifyIDToken(c.Request.Context(), idToken)
		if err != nil {
			logger.Warn("Admin auth: token verification failed", zap.Error(err))
			common.RespondWithError(c, common.ErrUnauthorized.WithMessage("Invalid or expired ID token."))
			return
		}

		email, _ := token.Claims["email"].(string)
		isAdmin, _ := token.Claims[common.AdminClaim].(bool)
		if !isAdmin && !cfg.IsAdminEmail(email) {
			logger.Warn("Admin auth: caller is not an admin",
				zap.String("uid", token.UID),
				zap.String("email", email))
			common.RespondWithError(c, common.ErrForbidden)
			return
		}

		c.Set(common.FirebaseUIDKey, token.UID)
		c.Set(common.UserEmailKey, email)
		c.Next()
	}
}
