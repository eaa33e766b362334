package service

import (
	"context"
	"testing"

	"github.com/spec-kit/wage-wallet/internal/auth"
	"github.com/spec-kit/wage-wallet/internal/config"
	"github.com/spec-kit/wage-wallet/internal/domain"
	"github.com/spec-kit/wage-wallet/internal/repository"
	apperrors "github.com/spec-kit/wage-wallet/pkg/util/errorutil"
)

func newTestAuthService() (*AuthService, *repository.MemoryUserRepository) {
	users := repository.NewMemoryUserRepository()
	svc := NewAuthService(config.AuthConfig{
		JWTSecret:             "test-secret",
		AccessTokenTTLMinutes: 5,
		BcryptCost:            4,
	}, AuthDependencies{
		UserRepo:  users,
		AdminRepo: repository.NewMemoryAdminRepository(),
	})
	return svc, users
}

func TestRegisterAndLoginUser(t *testing.T) {
	svc, _ := newTestAuthService()
	ctx := context.Background()

	user, result, err := svc.RegisterUser(ctx, RegisterUserInput{
		Name: "Asha", Email: " Asha@Example.com ", Phone: "9876543210", Password: "correct-horse",
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if user.Email != "asha@example.com" || user.Phone != "+919876543210" || result.Token == "" {
		t.Fatalf("unexpected registration %+v %+v", user, result)
	}

	claims, err := svc.TokenManager().ParseToken(result.Token)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.Subject != user.ID || claims.SubjectType != domain.SubjectTypeUser {
		t.Fatalf("unexpected claims %+v", claims)
	}

	_, _, err = svc.RegisterUser(ctx, RegisterUserInput{Name: "Dup", Email: "asha@example.com", Password: "another-pass"})
	expectCode(t, err, apperrors.CodeAlreadyExists)

	if _, _, err := svc.LoginUser(ctx, "ASHA@example.com", "correct-horse"); err != nil {
		t.Fatalf("login: %v", err)
	}
	_, _, err = svc.LoginUser(ctx, "asha@example.com", "wrong")
	expectCode(t, err, apperrors.CodeUnauthenticated)
	_, _, err = svc.LoginUser(ctx, "nobody@example.com", "whatever")
	expectCode(t, err, apperrors.CodeUnauthenticated)
}

func TestRegisterUserValidation(t *testing.T) {
	svc, _ := newTestAuthService()
	ctx := context.Background()

	cases := []RegisterUserInput{
		{Name: "A", Email: "not-an-email", Password: "long-enough"},
		{Name: "", Email: "a@example.com", Password: "long-enough"},
		{Name: "A", Email: "a@example.com", Password: "short"},
		{Name: "A", Email: "a@example.com", Password: "long-enough", Phone: "123"},
	}
	for _, input := range cases {
		_, _, err := svc.RegisterUser(ctx, input)
		expectCode(t, err, apperrors.CodeInvalidArgument)
	}
}

func TestSuspendedUserCannotLogin(t *testing.T) {
	svc, users := newTestAuthService()
	ctx := context.Background()

	user, _, err := svc.RegisterUser(ctx, RegisterUserInput{Name: "A", Email: "a@example.com", Password: "long-enough"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	user.Status = domain.UserStatusSuspended
	if err := users.Update(ctx, user); err != nil {
		t.Fatalf("update: %v", err)
	}
	_, _, err = svc.LoginUser(ctx, "a@example.com", "long-enough")
	expectCode(t, err, apperrors.CodePermissionDenied)
}

func TestBootstrapAdminIsIdempotent(t *testing.T) {
	svc, _ := newTestAuthService()
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if err := svc.EnsureBootstrapAdmin(ctx, "Root", "root@example.com", "admin-password"); err != nil {
			t.Fatalf("bootstrap: %v", err)
		}
	}
	admin, result, err := svc.LoginAdmin(ctx, "root@example.com", "admin-password")
	if err != nil {
		t.Fatalf("login admin: %v", err)
	}
	if !admin.Active || result.Token == "" {
		t.Fatalf("unexpected admin %+v", admin)
	}
	claims, err := svc.TokenManager().ParseToken(result.Token)
	if err != nil || claims.SubjectType != domain.SubjectTypeAdmin {
		t.Fatalf("expected admin claims, got %+v, %v", claims, err)
	}

	if err := svc.EnsureBootstrapAdmin(ctx, "", "", ""); err != nil {
		t.Fatalf("empty bootstrap should be a no-op: %v", err)
	}
}

func TestLoginRehashesAfterCostChange(t *testing.T) {
	users := repository.NewMemoryUserRepository()
	admins := repository.NewMemoryAdminRepository()
	ctx := context.Background()

	old := NewAuthService(config.AuthConfig{JWTSecret: "s", BcryptCost: 4}, AuthDependencies{UserRepo: users, AdminRepo: admins})
	user, _, err := old.RegisterUser(ctx, RegisterUserInput{Name: "A", Email: "a@example.com", Password: "long-enough"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	upgraded := NewAuthService(config.AuthConfig{JWTSecret: "s", BcryptCost: 5}, AuthDependencies{UserRepo: users, AdminRepo: admins})
	if _, _, err := upgraded.LoginUser(ctx, "a@example.com", "long-enough"); err != nil {
		t.Fatalf("login: %v", err)
	}
	stored, err := users.GetByID(ctx, user.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got := auth.HashCost(stored.PasswordHash); got != 5 {
		t.Fatalf("expected cost 5 after rehash, got %d", got)
	}
}
