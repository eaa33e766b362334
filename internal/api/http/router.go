package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/wage-wallet/internal/api/http/handlers"
	"github.com/spec-kit/wage-wallet/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health          *handlers.HealthHandler
	Users           *handlers.UsersHandler
	Callable        *handlers.CallableHandler
	Wallet          *handlers.WalletHandler
	Staff           *handlers.StaffHandler
	PaymentRequests *handlers.PaymentRequestsHandler
	AuthMiddleware  *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	app.Get("/health/metrics", cfg.Health.Metrics)

	authGroup := app.Group("/auth")
	authGroup.Post("/users/register", cfg.Users.Register)
	authGroup.Post("/users/login", cfg.Users.Login)
	authGroup.Post("/admin/login", cfg.Users.AdminLogin)

	userOnly := []fiber.Handler{cfg.AuthMiddleware.Handle, auth.RequireUser()}

	callable := app.Group("/callable", userOnly...)
	callable.Post("/acquireStaffSession", cfg.Callable.AcquireStaffSession)
	callable.Post("/releaseStaffSession", cfg.Callable.ReleaseStaffSession)
	callable.Post("/validatePayment", cfg.Callable.ValidatePayment)
	callable.Post("/updateWageBalance", cfg.Callable.UpdateWageBalance)
	callable.Post("/updateStaffProfile", cfg.Callable.UpdateStaffProfile)
	callable.Post("/requestRedemption", cfg.Callable.RequestRedemption)

	wallet := app.Group("/wallet", userOnly...)
	wallet.Get("/staff/:code", cfg.Wallet.GetStaff)
	wallet.Get("/staff/:code/payments", cfg.Wallet.ListStaffPayments)
	wallet.Get("/payments/recent", cfg.Wallet.ListRecentPayments)

	admin := app.Group("/admin", cfg.AuthMiddleware.Handle, auth.RequireAdmin())
	admin.Get("/summary", cfg.Staff.Summary)
	admin.Get("/payments/export", cfg.Staff.ExportPayments)

	staff := admin.Group("/staff")
	staff.Post("/", cfg.Staff.RegisterStaff)
	staff.Get("/", cfg.Staff.ListStaff)
	staff.Get("/:code", cfg.Staff.GetStaff)
	staff.Post("/:code/credits", cfg.Staff.Credit)
	staff.Put("/:code/works", cfg.Staff.SetWorks)
	staff.Put("/:code/category", cfg.Staff.SetCategory)
	staff.Get("/:code/payments", cfg.Staff.ListPayments)

	requests := admin.Group("/payment-requests")
	requests.Get("/", cfg.PaymentRequests.List)
	requests.Get("/:id", cfg.PaymentRequests.Get)
	requests.Post("/:id/approve", cfg.PaymentRequests.Approve)
	requests.Post("/:id/reject", cfg.PaymentRequests.Reject)
}
