package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/wage-wallet/internal/service"
)

// WalletHandler serves the owner's dashboard reads.
type WalletHandler struct {
	staff  *service.StaffService
	ledger *service.LedgerService
}

// NewWalletHandler constructs handler.
func NewWalletHandler(staff *service.StaffService, ledger *service.LedgerService) *WalletHandler {
	return &WalletHandler{staff: staff, ledger: ledger}
}

// GetStaff GET /wallet/staff/:code.
func (h *WalletHandler) GetStaff(c *fiber.Ctx) error {
	principal, err := userIdentity(c)
	if err != nil {
		return err
	}
	snap, err := h.staff.GetStaff(c.UserContext(), c.Params("code"), principal.Identity())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": snap})
}

// ListStaffPayments GET /wallet/staff/:code/payments.
func (h *WalletHandler) ListStaffPayments(c *fiber.Ctx) error {
	principal, err := userIdentity(c)
	if err != nil {
		return err
	}
	payments, err := h.ledger.ListStaffPayments(c.UserContext(), c.Params("code"), principal.Identity(), parseIntQuery(c, "limit", 0))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": paymentResponses(payments)})
}

// ListRecentPayments GET /wallet/payments/recent.
func (h *WalletHandler) ListRecentPayments(c *fiber.Ctx) error {
	principal, err := userIdentity(c)
	if err != nil {
		return err
	}
	payments, err := h.ledger.ListRecentPayments(c.UserContext(), principal.Identity(), parseIntQuery(c, "limit", 0))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": paymentResponses(payments)})
}
