package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/wage-wallet/internal/api/dto"
	"github.com/spec-kit/wage-wallet/internal/service"
	apperrors "github.com/spec-kit/wage-wallet/pkg/util/errorutil"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// StaffHandler exposes admin staff management endpoints.
type StaffHandler struct {
	staff  *service.StaffService
	wallet *service.WalletService
	ledger *service.LedgerService
}

// NewStaffHandler constructs handler.
func NewStaffHandler(staff *service.StaffService, wallet *service.WalletService, ledger *service.LedgerService) *StaffHandler {
	return &StaffHandler{staff: staff, wallet: wallet, ledger: ledger}
}

// RegisterStaff POST /admin/staff.
func (h *StaffHandler) RegisterStaff(c *fiber.Ctx) error {
	actor, err := adminIdentity(c)
	if err != nil {
		return err
	}
	var req dto.RegisterStaffRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	var opening int64
	if req.OpeningBalance != "" && req.OpeningBalance != "0" {
		if opening, err = parseAmount(req.OpeningBalance); err != nil {
			return apperrors.NewInvalidArgument("openingBalance must be a non-negative integer.", nil)
		}
	}
	rec, err := h.staff.RegisterStaff(c.UserContext(), actor, service.RegisterStaffInput{
		StaffCode:      req.StaffCode,
		Name:           req.Name,
		Phone:          req.Phone,
		Branch:         req.Branch,
		Category:       req.Category,
		OpeningBalance: opening,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": staffResponse(rec)})
}

// ListStaff GET /admin/staff.
func (h *StaffHandler) ListStaff(c *fiber.Ctx) error {
	if _, err := adminIdentity(c); err != nil {
		return err
	}
	limit, offset := pageQuery(c, 50)
	records, err := h.staff.ListStaff(c.UserContext(), service.StaffListFilters{
		Search: c.Query("search"),
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		return err
	}
	resp := make([]dto.StaffResponse, 0, len(records))
	for i := range records {
		resp = append(resp, staffResponse(&records[i]))
	}
	return c.JSON(fiber.Map{"data": resp})
}

// GetStaff GET /admin/staff/:code.
func (h *StaffHandler) GetStaff(c *fiber.Ctx) error {
	if _, err := adminIdentity(c); err != nil {
		return err
	}
	rec, err := h.staff.GetStaffForAdmin(c.UserContext(), c.Params("code"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": staffResponse(rec)})
}

// Credit POST /admin/staff/:code/credits.
func (h *StaffHandler) Credit(c *fiber.Ctx) error {
	actor, err := adminIdentity(c)
	if err != nil {
		return err
	}
	var req dto.CreditRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		return err
	}
	result, err := h.wallet.CommitCredit(c.UserContext(), service.CreditInput{
		StaffCode: c.Params("code"),
		Amount:    amount,
		Actor:     actor,
		Kind:      service.CreditKind(req.Kind),
		Reason:    req.Reason,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.CreditResponse{
		Payment:    paymentResponse(&result.Payment),
		NewBalance: result.NewBalance,
		Bonus:      result.Bonus,
	}})
}

// SetWorks PUT /admin/staff/:code/works.
func (h *StaffHandler) SetWorks(c *fiber.Ctx) error {
	actor, err := adminIdentity(c)
	if err != nil {
		return err
	}
	var req dto.WorksRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	if req.WorksInitiated == nil {
		return apperrors.NewInvalidArgument("worksInitiated is required.", nil)
	}
	rec, err := h.staff.SetWorksInitiated(c.UserContext(), c.Params("code"), actor, *req.WorksInitiated)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": staffResponse(rec)})
}

// SetCategory PUT /admin/staff/:code/category.
func (h *StaffHandler) SetCategory(c *fiber.Ctx) error {
	actor, err := adminIdentity(c)
	if err != nil {
		return err
	}
	var req dto.CategoryRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	rec, err := h.staff.SetCategory(c.UserContext(), c.Params("code"), actor, req.Category)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": staffResponse(rec)})
}

// ListPayments GET /admin/staff/:code/payments.
func (h *StaffHandler) ListPayments(c *fiber.Ctx) error {
	if _, err := adminIdentity(c); err != nil {
		return err
	}
	payments, err := h.ledger.ListPaymentsForAdmin(c.UserContext(), c.Params("code"), parseIntQuery(c, "limit", 0))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": paymentResponses(payments)})
}

// ExportPayments GET /admin/payments/export?staffCode=.
func (h *StaffHandler) ExportPayments(c *fiber.Ctx) error {
	if _, err := adminIdentity(c); err != nil {
		return err
	}
	staffCode := strings.TrimSpace(c.Query("staffCode"))
	data, err := h.ledger.ExportPayments(c.UserContext(), staffCode)
	if err != nil {
		return err
	}
	name := "payments"
	if staffCode != "" {
		name += "-" + strings.ToUpper(staffCode)
	}
	name += "-" + time.Now().UTC().Format("20060102") + ".xlsx"
	c.Set(fiber.HeaderContentType, xlsxContentType)
	c.Attachment(name)
	return c.Send(data)
}

// Summary GET /admin/summary.
func (h *StaffHandler) Summary(c *fiber.Ctx) error {
	if _, err := adminIdentity(c); err != nil {
		return err
	}
	summary, err := h.staff.Summary(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.SummaryResponse{
		StaffCount:      summary.StaffCount,
		TotalBalance:    summary.TotalBalance,
		TotalBonus:      summary.TotalBonus,
		PendingRequests: summary.PendingRequests,
		PendingAmount:   summary.PendingAmount,
		TotalDisplay:    service.FormatRupees(summary.TotalBalance),
	}})
}
