package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/wage-wallet/internal/api/dto"
	"github.com/spec-kit/wage-wallet/internal/service"
)

// CallableHandler serves the user-facing wallet operations. Results are
// returned as plain objects, without the data envelope.
type CallableHandler struct {
	sessions *service.SessionService
	wallet   *service.WalletService
	requests *service.PaymentRequestService
	staff    *service.StaffService
}

// NewCallableHandler constructs handler.
func NewCallableHandler(sessions *service.SessionService, wallet *service.WalletService, requests *service.PaymentRequestService, staff *service.StaffService) *CallableHandler {
	return &CallableHandler{sessions: sessions, wallet: wallet, requests: requests, staff: staff}
}

// AcquireStaffSession POST /callable/acquireStaffSession.
func (h *CallableHandler) AcquireStaffSession(c *fiber.Ctx) error {
	principal, err := userIdentity(c)
	if err != nil {
		return err
	}
	var req dto.StaffCodeRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	result, err := h.sessions.AcquireSession(c.UserContext(), req.StaffCode, principal.Identity(), principal.ContactInfo())
	if err != nil {
		return err
	}
	return c.JSON(dto.AcquireSessionResponse{
		SessionAcquired: result.SessionAcquired,
		Created:         result.Created,
		WageBalance:     result.WageBalance,
		Phone:           result.Phone,
		Message:         result.Message,
	})
}

// ReleaseStaffSession POST /callable/releaseStaffSession.
func (h *CallableHandler) ReleaseStaffSession(c *fiber.Ctx) error {
	principal, err := userIdentity(c)
	if err != nil {
		return err
	}
	var req dto.StaffCodeRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	if err := h.sessions.ReleaseSession(c.UserContext(), req.StaffCode, principal.Identity()); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"released": true})
}

// ValidatePayment POST /callable/validatePayment.
func (h *CallableHandler) ValidatePayment(c *fiber.Ctx) error {
	principal, err := userIdentity(c)
	if err != nil {
		return err
	}
	var req dto.AmountRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		return err
	}
	result, err := h.wallet.ValidateRedemption(c.UserContext(), req.StaffCode, principal.Identity(), amount)
	if err != nil {
		return err
	}
	return c.JSON(dto.ValidatePaymentResponse{Approved: result.Approved, Message: result.Message})
}

// UpdateWageBalance POST /callable/updateWageBalance.
func (h *CallableHandler) UpdateWageBalance(c *fiber.Ctx) error {
	principal, err := userIdentity(c)
	if err != nil {
		return err
	}
	var req dto.AmountRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		return err
	}
	newBalance, err := h.wallet.CommitRedemption(c.UserContext(), req.StaffCode, principal.Identity(), amount)
	if err != nil {
		return err
	}
	return c.JSON(dto.UpdateWageBalanceResponse{NewBalance: newBalance})
}

// UpdateStaffProfile POST /callable/updateStaffProfile.
func (h *CallableHandler) UpdateStaffProfile(c *fiber.Ctx) error {
	principal, err := userIdentity(c)
	if err != nil {
		return err
	}
	var req dto.ProfileRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	if err := h.staff.UpdateStaffProfile(c.UserContext(), req.StaffCode, principal.Identity(), req.Profile); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"ok": true})
}

// RequestRedemption POST /callable/requestRedemption.
func (h *CallableHandler) RequestRedemption(c *fiber.Ctx) error {
	principal, err := userIdentity(c)
	if err != nil {
		return err
	}
	var req dto.RedemptionRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		return err
	}
	created, err := h.requests.RequestRedemption(c.UserContext(), service.RedemptionRequestInput{
		StaffCode: req.StaffCode,
		Identity:  principal.Identity(),
		Amount:    amount,
		UpiID:     req.UpiID,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(paymentRequestResponse(created))
}
