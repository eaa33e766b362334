package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/wage-wallet/internal/api/dto"
	"github.com/spec-kit/wage-wallet/internal/domain"
	"github.com/spec-kit/wage-wallet/internal/service"
	apperrors "github.com/spec-kit/wage-wallet/pkg/util/errorutil"
)

// PaymentRequestsHandler exposes the admin approval queue.
type PaymentRequestsHandler struct {
	requests *service.PaymentRequestService
}

// NewPaymentRequestsHandler constructs handler.
func NewPaymentRequestsHandler(requests *service.PaymentRequestService) *PaymentRequestsHandler {
	return &PaymentRequestsHandler{requests: requests}
}

// List GET /admin/payment-requests.
func (h *PaymentRequestsHandler) List(c *fiber.Ctx) error {
	if _, err := adminIdentity(c); err != nil {
		return err
	}
	filter, err := parseRequestQuery(c)
	if err != nil {
		return err
	}
	requests, err := h.requests.ListPaymentRequests(c.UserContext(), filter)
	if err != nil {
		return err
	}
	resp := make([]dto.PaymentRequestResponse, 0, len(requests))
	for i := range requests {
		resp = append(resp, paymentRequestResponse(&requests[i]))
	}
	return c.JSON(fiber.Map{"data": resp})
}

// Get GET /admin/payment-requests/:id.
func (h *PaymentRequestsHandler) Get(c *fiber.Ctx) error {
	if _, err := adminIdentity(c); err != nil {
		return err
	}
	req, err := h.requests.GetPaymentRequest(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": paymentRequestResponse(req)})
}

// Approve POST /admin/payment-requests/:id/approve.
func (h *PaymentRequestsHandler) Approve(c *fiber.Ctx) error {
	actor, err := adminIdentity(c)
	if err != nil {
		return err
	}
	req, err := h.requests.ApprovePaymentRequest(c.UserContext(), c.Params("id"), actor)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": paymentRequestResponse(req)})
}

// Reject POST /admin/payment-requests/:id/reject.
func (h *PaymentRequestsHandler) Reject(c *fiber.Ctx) error {
	actor, err := adminIdentity(c)
	if err != nil {
		return err
	}
	var body dto.RejectRequest
	if len(c.Body()) > 0 {
		if err := parseBody(c, &body); err != nil {
			return err
		}
	}
	req, err := h.requests.RejectPaymentRequest(c.UserContext(), c.Params("id"), actor, body.Reason)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": paymentRequestResponse(req)})
}

func parseRequestQuery(c *fiber.Ctx) (service.PaymentRequestFilter, error) {
	limit, offset := pageQuery(c, 50)
	filter := service.PaymentRequestFilter{
		StaffCode: c.Query("staffCode"),
		Search:    c.Query("search"),
		Limit:     limit,
		Offset:    offset,
	}
	if status := c.Query("status"); status != "" {
		st := domain.PaymentRequestStatus(status)
		filter.Status = &st
	}
	if from := c.Query("created_from"); from != "" {
		t, err := time.Parse(time.RFC3339, from)
		if err != nil {
			return filter, apperrors.NewInvalidArgument("created_from must be RFC3339.", nil)
		}
		filter.CreatedFrom = &t
	}
	if to := c.Query("created_to"); to != "" {
		t, err := time.Parse(time.RFC3339, to)
		if err != nil {
			return filter, apperrors.NewInvalidArgument("created_to must be RFC3339.", nil)
		}
		filter.CreatedTo = &t
	}
	return filter, nil
}
