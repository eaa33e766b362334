package handlers

import (
	"encoding/json"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/wage-wallet/internal/api/dto"
	"github.com/spec-kit/wage-wallet/internal/auth"
	"github.com/spec-kit/wage-wallet/internal/domain"
	"github.com/spec-kit/wage-wallet/internal/service"
	apperrors "github.com/spec-kit/wage-wallet/pkg/util/errorutil"
)

func userIdentity(c *fiber.Ctx) (*auth.Principal, error) {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return nil, apperrors.NewUnauthenticated("You must be authenticated.")
	}
	return principal, nil
}

func adminIdentity(c *fiber.Ctx) (string, error) {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.Admin == nil {
		return "", apperrors.NewPermissionDenied("Admin access required.")
	}
	return principal.Admin.ID, nil
}

func parseBody(c *fiber.Ctx, out any) error {
	if err := c.BodyParser(out); err != nil {
		return apperrors.NewInvalidArgument("invalid payload", nil)
	}
	return nil
}

func parseAmount(raw json.Number) (int64, error) {
	return service.ParseAmount(raw.String())
}

func parseIntQuery(c *fiber.Ctx, key string, defaultVal int) int {
	if val := c.Query(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil && parsed > 0 {
			return parsed
		}
	}
	return defaultVal
}

// pageQuery converts page/page_size into limit and offset.
func pageQuery(c *fiber.Ctx, defaultSize int) (limit, offset int) {
	page := parseIntQuery(c, "page", 1)
	pageSize := parseIntQuery(c, "page_size", defaultSize)
	return pageSize, (page - 1) * pageSize
}

func paymentResponse(p *domain.PaymentRecord) dto.PaymentResponse {
	return dto.PaymentResponse{
		ID:        p.ID,
		StaffCode: p.StaffCode,
		Amount:    p.Amount,
		Display:   service.FormatRupees(p.SignedAmount()),
		Type:      p.Type,
		Status:    p.Status,
		Reason:    p.Reason,
		Actor:     p.Actor,
		RequestID: p.RequestID,
		CreatedAt: p.CreatedAt,
	}
}

func paymentResponses(payments []domain.PaymentRecord) []dto.PaymentResponse {
	resp := make([]dto.PaymentResponse, 0, len(payments))
	for i := range payments {
		resp = append(resp, paymentResponse(&payments[i]))
	}
	return resp
}

func paymentRequestResponse(req *domain.PaymentRequest) dto.PaymentRequestResponse {
	return dto.PaymentRequestResponse{
		ID:              req.ID,
		Number:          req.Number,
		StaffCode:       req.StaffCode,
		StaffName:       req.StaffName,
		Amount:          req.Amount,
		UpiID:           req.UpiID,
		Status:          req.Status,
		CreatedAt:       req.CreatedAt,
		ApprovedAt:      req.ApprovedAt,
		ApprovedBy:      req.ApprovedBy,
		RejectedAt:      req.RejectedAt,
		RejectedBy:      req.RejectedBy,
		RejectionReason: req.RejectionReason,
	}
}

func staffResponse(rec *domain.StaffRecord) dto.StaffResponse {
	resp := dto.StaffResponse{
		StaffCode:      rec.StaffCode,
		OwnerIdentity:  rec.OwnerIdentity,
		Phone:          rec.Phone,
		WageBalance:    rec.WageBalance,
		Bonus:          rec.Bonus,
		Name:           rec.Profile.Name,
		Branch:         rec.Profile.Branch,
		Address:        rec.Profile.Address,
		UpiID:          rec.Profile.UpiID,
		BankAccount:    rec.Profile.BankAccount,
		IFSC:           rec.Profile.IFSC,
		WorksInitiated: rec.WorksInitiated,
		Category:       rec.Category,
		CreatedBy:      rec.CreatedBy,
		CreatedAt:      rec.CreatedAt,
		UpdatedAt:      rec.UpdatedAt,
	}
	if s := rec.ActiveSession; s != nil {
		resp.ActiveSession = &dto.SessionResponse{Holder: s.Holder, CreatedAt: s.CreatedAt, LastSeen: s.LastSeen}
	}
	return resp
}
