package auth

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/wage-wallet/internal/domain"
	"github.com/spec-kit/wage-wallet/internal/repository"
	apperrors "github.com/spec-kit/wage-wallet/pkg/util/errorutil"
)

const principalKey = "auth_principal"

// Principal represents the authenticated caller.
type Principal struct {
	SubjectType domain.SubjectType
	User        *domain.User
	Admin       *domain.Admin
}

// Identity is the opaque id bound as a staff code owner or recorded as actor.
func (p *Principal) Identity() string {
	switch {
	case p == nil:
		return ""
	case p.User != nil:
		return p.User.ID
	case p.Admin != nil:
		return p.Admin.ID
	}
	return ""
}

// ContactInfo is the phone captured on first bind of a staff code.
func (p *Principal) ContactInfo() string {
	if p == nil || p.User == nil {
		return ""
	}
	return p.User.Phone
}

// AuthMiddleware validates bearer tokens and loads principals.
type AuthMiddleware struct {
	tokens *TokenManager
	users  repository.UserRepository
	admins repository.AdminRepository
}

// NewAuthMiddleware constructs middleware.
func NewAuthMiddleware(tokens *TokenManager, users repository.UserRepository, admins repository.AdminRepository) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens, users: users, admins: admins}
}

// Handle enforces authentication for protected routes.
func (m *AuthMiddleware) Handle(c *fiber.Ctx) error {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return apperrors.NewUnauthenticated("You must be authenticated.")
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return apperrors.NewUnauthenticated("Invalid authorization header.")
	}

	claims, err := m.tokens.ParseToken(parts[1])
	if err != nil {
		return apperrors.NewUnauthenticated("Invalid token.")
	}

	principal := &Principal{SubjectType: claims.SubjectType}
	ctx := c.UserContext()

	switch claims.SubjectType {
	case domain.SubjectTypeUser:
		user, err := m.users.GetByID(ctx, claims.Subject)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return apperrors.NewUnauthenticated("User not found.")
			}
			return apperrors.MapError(err)
		}
		if !user.CanSignIn() {
			return apperrors.NewPermissionDenied("Account suspended.")
		}
		principal.User = user
	case domain.SubjectTypeAdmin:
		admin, err := m.admins.GetByID(ctx, claims.Subject)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return apperrors.NewUnauthenticated("Admin not found.")
			}
			return apperrors.MapError(err)
		}
		if !admin.CanSignIn() {
			return apperrors.NewPermissionDenied("Admin account disabled.")
		}
		principal.Admin = admin
	default:
		return apperrors.NewUnauthenticated("Unknown subject.")
	}

	c.Locals(principalKey, principal)
	return c.Next()
}

// PrincipalFromContext retrieves the authenticated entity.
func PrincipalFromContext(c *fiber.Ctx) (*Principal, bool) {
	val := c.Locals(principalKey)
	if val == nil {
		return nil, false
	}
	principal, ok := val.(*Principal)
	return principal, ok
}
