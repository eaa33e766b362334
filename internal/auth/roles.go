package auth

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/wage-wallet/internal/domain"
	apperrors "github.com/spec-kit/wage-wallet/pkg/util/errorutil"
)

// RequireUser ensures an end-user is authenticated.
func RequireUser() fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok {
			return apperrors.NewUnauthenticated("You must be authenticated.")
		}
		if principal.SubjectType != domain.SubjectTypeUser || principal.User == nil {
			return apperrors.NewPermissionDenied("End-user account required.")
		}
		return c.Next()
	}
}

// RequireAdmin ensures the caller is an active administrator.
func RequireAdmin() fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok {
			return apperrors.NewUnauthenticated("You must be authenticated.")
		}
		if principal.SubjectType != domain.SubjectTypeAdmin || principal.Admin == nil {
			return apperrors.NewPermissionDenied("Admin access required.")
		}
		return c.Next()
	}
}
