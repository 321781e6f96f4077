package auth

import (
	"crypto/subtle"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/ticket-desk/internal/domain"
	apperrors "github.com/spec-kit/ticket-desk/pkg/util/errorutil"
)

// RequireAdmin ensures the caller administers its organization.
func RequireAdmin() fiber.Handler {
	return RequireRole(domain.RoleSuperAdmin, domain.RoleOrgAdmin)
}

// RequireRole ensures the caller has one of the allowed roles.
func RequireRole(allowed ...domain.MembershipRole) fiber.Handler {
	allowedSet := make(map[domain.MembershipRole]struct{}, len(allowed))
	for _, role := range allowed {
		allowedSet[role] = struct{}{}
	}

	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok {
			return apperrors.NewUnauthorized("authentication required")
		}
		if _, exists := allowedSet[principal.Role]; !exists {
			return apperrors.NewForbidden("insufficient role")
		}
		return c.Next()
	}
}

// RequireSharedSecret guards machine endpoints such as the scheduler hook.
// An empty secret rejects every request.
func RequireSharedSecret(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token, ok := bearerToken(c.Get(fiber.HeaderAuthorization))
		if secret == "" || !ok || subtle.ConstantTimeCompare([]byte(token), []byte(secret)) != 1 {
			return apperrors.NewUnauthorized("invalid cron secret")
		}
		return c.Next()
	}
}
