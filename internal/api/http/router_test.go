package http

import (
	"context"
	"encoding/json"
	"io"
	nethttp "net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/wage-wallet/internal/api/http/handlers"
	"github.com/spec-kit/wage-wallet/internal/auth"
	"github.com/spec-kit/wage-wallet/internal/cache"
	"github.com/spec-kit/wage-wallet/internal/config"
	"github.com/spec-kit/wage-wallet/internal/events"
	"github.com/spec-kit/wage-wallet/internal/observability"
	"github.com/spec-kit/wage-wallet/internal/repository"
	"github.com/spec-kit/wage-wallet/internal/service"
)

const (
	adminEmail    = "root@example.com"
	adminPassword = "admin-password"
)

func newTestApp(t *testing.T) *fiber.App {
	t.Helper()
	logger := zap.NewNop()
	metrics := observability.NewMetrics()

	users := repository.NewMemoryUserRepository()
	admins := repository.NewMemoryAdminRepository()
	authService := service.NewAuthService(config.AuthConfig{
		JWTSecret:             "router-test",
		AccessTokenTTLMinutes: 5,
		BcryptCost:            4,
	}, service.AuthDependencies{UserRepo: users, AdminRepo: admins, Logger: logger})
	if err := authService.EnsureBootstrapAdmin(context.Background(), "Root", adminEmail, adminPassword); err != nil {
		t.Fatalf("bootstrap: %v", err)
	}

	deps := service.WalletDependencies{
		Store:      repository.NewMemoryStore(),
		Cache:      cache.NewMemoryStaffCache(time.Minute),
		Dispatcher: events.NewInMemoryDispatcher(),
		Logger:     logger,
		Metrics:    metrics,
		Config:     config.DefaultWalletConfig(),
	}
	sessions := service.NewSessionService(deps)
	wallet := service.NewWalletService(deps)
	requests := service.NewPaymentRequestService(deps)
	ledger := service.NewLedgerService(deps)
	staff := service.NewStaffService(deps)

	app := NewApp("wage-wallet-test", logger, metrics, time.Second)
	RegisterRoutes(app, RouteConfig{
		Health:          handlers.NewHealthHandler("wage-wallet", "test", metrics),
		Users:           handlers.NewUsersHandler(authService),
		Callable:        handlers.NewCallableHandler(sessions, wallet, requests, staff),
		Wallet:          handlers.NewWalletHandler(staff, ledger),
		Staff:           handlers.NewStaffHandler(staff, wallet, ledger),
		PaymentRequests: handlers.NewPaymentRequestsHandler(requests),
		AuthMiddleware:  auth.NewAuthMiddleware(authService.TokenManager(), users, admins),
	})
	return app
}

func call(t *testing.T, app *fiber.App, method, path, token, body string) (int, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(resp.Body)
	out := map[string]any{}
	if len(raw) > 0 && strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		if err := json.Unmarshal(raw, &out); err != nil {
			t.Fatalf("decode %s %s: %v (%s)", method, path, err, raw)
		}
	}
	return resp.StatusCode, out
}

func errorCode(body map[string]any) string {
	errBody, _ := body["error"].(map[string]any)
	code, _ := errBody["code"].(string)
	return code
}

func tokenFrom(t *testing.T, body map[string]any) string {
	t.Helper()
	data, _ := body["data"].(map[string]any)
	authBody, _ := data["auth"].(map[string]any)
	token, _ := authBody["token"].(string)
	if token == "" {
		t.Fatalf("no token in %v", body)
	}
	return token
}

func registerUser(t *testing.T, app *fiber.App, email string) string {
	t.Helper()
	status, body := call(t, app, nethttp.MethodPost, "/auth/users/register", "",
		`{"name":"Asha","email":"`+email+`","phone":"9876543210","password":"long-enough"}`)
	if status != nethttp.StatusCreated {
		t.Fatalf("register status %d: %v", status, body)
	}
	return tokenFrom(t, body)
}

func adminToken(t *testing.T, app *fiber.App) string {
	t.Helper()
	status, body := call(t, app, nethttp.MethodPost, "/auth/admin/login", "",
		`{"email":"`+adminEmail+`","password":"`+adminPassword+`"}`)
	if status != nethttp.StatusOK {
		t.Fatalf("admin login status %d: %v", status, body)
	}
	return tokenFrom(t, body)
}

func TestCallableFlow(t *testing.T) {
	app := newTestApp(t)
	user := registerUser(t, app, "asha@example.com")
	admin := adminToken(t, app)

	status, body := call(t, app, nethttp.MethodPost, "/callable/acquireStaffSession", user, `{"staffCode":"alhqr001"}`)
	if status != nethttp.StatusOK || body["sessionAcquired"] != true || body["created"] != true {
		t.Fatalf("acquire: %d %v", status, body)
	}
	if body["phone"] != "+919876543210" {
		t.Fatalf("expected contact info captured, got %v", body["phone"])
	}

	status, body = call(t, app, nethttp.MethodPost, "/admin/staff/ALHQR001/credits", admin, `{"amount":500,"kind":"money"}`)
	if status != nethttp.StatusCreated {
		t.Fatalf("credit: %d %v", status, body)
	}

	status, body = call(t, app, nethttp.MethodPost, "/callable/validatePayment", user, `{"staffCode":"ALHQR001","amount":600}`)
	if status != nethttp.StatusOK || body["approved"] != false || body["message"] != "Insufficient balance." {
		t.Fatalf("validate: %d %v", status, body)
	}

	status, body = call(t, app, nethttp.MethodPost, "/callable/updateWageBalance", user, `{"staffCode":"ALHQR001","amount":"200"}`)
	if status != nethttp.StatusOK || body["newBalance"] != float64(300) {
		t.Fatalf("redeem: %d %v", status, body)
	}

	status, body = call(t, app, nethttp.MethodPost, "/callable/updateWageBalance", user, `{"staffCode":"ALHQR001","amount":10.5}`)
	if status != nethttp.StatusBadRequest || errorCode(body) != "invalid-argument" {
		t.Fatalf("fractional amount: %d %v", status, body)
	}

	status, body = call(t, app, nethttp.MethodPost, "/callable/updateWageBalance", user, `{"staffCode":"ALHQR001","amount":301}`)
	if status != nethttp.StatusPreconditionFailed || errorCode(body) != "failed-precondition" {
		t.Fatalf("over balance: %d %v", status, body)
	}

	status, body = call(t, app, nethttp.MethodGet, "/wallet/staff/ALHQR001", user, "")
	data, _ := body["data"].(map[string]any)
	if status != nethttp.StatusOK || data["wageBalance"] != float64(300) {
		t.Fatalf("snapshot: %d %v", status, body)
	}

	status, body = call(t, app, nethttp.MethodGet, "/wallet/staff/ALHQR001/payments", user, "")
	entries, _ := body["data"].([]any)
	if status != nethttp.StatusOK || len(entries) != 2 {
		t.Fatalf("payments: %d %v", status, body)
	}
}

func TestForeignUserIsDenied(t *testing.T) {
	app := newTestApp(t)
	owner := registerUser(t, app, "owner@example.com")
	other := registerUser(t, app, "other@example.com")

	if status, body := call(t, app, nethttp.MethodPost, "/callable/acquireStaffSession", owner, `{"staffCode":"ALHQR002"}`); status != nethttp.StatusOK {
		t.Fatalf("acquire: %d %v", status, body)
	}
	status, body := call(t, app, nethttp.MethodPost, "/callable/acquireStaffSession", other, `{"staffCode":"ALHQR002"}`)
	if status != nethttp.StatusForbidden || errorCode(body) != "permission-denied" {
		t.Fatalf("foreign acquire: %d %v", status, body)
	}
	status, body = call(t, app, nethttp.MethodGet, "/wallet/staff/ALHQR002", other, "")
	if status != nethttp.StatusForbidden {
		t.Fatalf("foreign read: %d %v", status, body)
	}
}

func TestPaymentRequestApprovalOverHTTP(t *testing.T) {
	app := newTestApp(t)
	user := registerUser(t, app, "asha@example.com")
	admin := adminToken(t, app)

	call(t, app, nethttp.MethodPost, "/callable/acquireStaffSession", user, `{"staffCode":"ALHQR003"}`)
	call(t, app, nethttp.MethodPost, "/admin/staff/ALHQR003/credits", admin, `{"amount":1000}`)

	status, body := call(t, app, nethttp.MethodPost, "/callable/requestRedemption", user, `{"staffCode":"ALHQR003","amount":400,"upiId":"asha@upi"}`)
	if status != nethttp.StatusCreated || body["status"] != "pending" {
		t.Fatalf("request: %d %v", status, body)
	}
	id, _ := body["id"].(string)

	status, body = call(t, app, nethttp.MethodGet, "/admin/payment-requests?status=pending", admin, "")
	list, _ := body["data"].([]any)
	if status != nethttp.StatusOK || len(list) != 1 {
		t.Fatalf("list: %d %v", status, body)
	}

	status, body = call(t, app, nethttp.MethodPost, "/admin/payment-requests/"+id+"/approve", admin, "")
	if status != nethttp.StatusOK {
		t.Fatalf("approve: %d %v", status, body)
	}
	status, body = call(t, app, nethttp.MethodPost, "/admin/payment-requests/"+id+"/reject", admin, `{"reason":"late"}`)
	if status != nethttp.StatusPreconditionFailed {
		t.Fatalf("reject after approve: %d %v", status, body)
	}

	status, body = call(t, app, nethttp.MethodGet, "/admin/summary", admin, "")
	data, _ := body["data"].(map[string]any)
	if status != nethttp.StatusOK || data["totalBalance"] != float64(600) || data["pendingRequests"] != float64(0) {
		t.Fatalf("summary: %d %v", status, body)
	}
}

func TestAuthAndRoutingErrors(t *testing.T) {
	app := newTestApp(t)
	user := registerUser(t, app, "asha@example.com")

	status, body := call(t, app, nethttp.MethodPost, "/callable/acquireStaffSession", "", `{"staffCode":"ALHQR004"}`)
	if status != nethttp.StatusUnauthorized || errorCode(body) != "unauthenticated" {
		t.Fatalf("anonymous: %d %v", status, body)
	}
	status, body = call(t, app, nethttp.MethodGet, "/admin/summary", user, "")
	if status != nethttp.StatusForbidden || errorCode(body) != "permission-denied" {
		t.Fatalf("user on admin route: %d %v", status, body)
	}
	status, body = call(t, app, nethttp.MethodGet, "/nope", "", "")
	if status != nethttp.StatusNotFound || errorCode(body) != "not-found" {
		t.Fatalf("unknown route: %d %v", status, body)
	}
	status, body = call(t, app, nethttp.MethodPost, "/callable/validatePayment", user, `{"staffCode":`)
	if status != nethttp.StatusBadRequest || errorCode(body) != "invalid-argument" {
		t.Fatalf("bad json: %d %v", status, body)
	}
}

func TestExportAndHealth(t *testing.T) {
	app := newTestApp(t)
	admin := adminToken(t, app)

	req := httptest.NewRequest(nethttp.MethodGet, "/admin/payments/export", nil)
	req.Header.Set("Authorization", "Bearer "+admin)
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != nethttp.StatusOK || !strings.Contains(resp.Header.Get("Content-Type"), "spreadsheetml") {
		t.Fatalf("export: %d %s", resp.StatusCode, resp.Header.Get("Content-Type"))
	}

	status, body := call(t, app, nethttp.MethodGet, "/health/ready", "", "")
	if status != nethttp.StatusOK || body["status"] != "ready" {
		t.Fatalf("ready: %d %v", status, body)
	}
	status, body = call(t, app, nethttp.MethodGet, "/health/metrics", "", "")
	if status != nethttp.StatusOK || body["requests"] == nil {
		t.Fatalf("metrics: %d %v", status, body)
	}
}
