package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/spec-kit/wage-wallet/internal/domain"
	"github.com/spec-kit/wage-wallet/internal/repository"
	apperrors "github.com/spec-kit/wage-wallet/pkg/util/errorutil"
)

const (
	defaultRecentLimit = 10
	exportRowLimit     = 10000
	exportSheetName    = "Payments"
)

var exportHeader = []any{"Date", "Staff Code", "Type", "Status", "Amount", "Signed Amount", "Reason", "Actor", "Payment ID"}

// LedgerService serves the read side of the payment ledger.
type LedgerService struct {
	walletCore
}

// NewLedgerService constructs the service.
func NewLedgerService(deps WalletDependencies) *LedgerService {
	return &LedgerService{walletCore: newWalletCore(deps)}
}

// ListStaffPayments returns the owner's ledger for one staff code, newest first.
func (s *LedgerService) ListStaffPayments(ctx context.Context, staffCode, identity string, limit int) ([]domain.PaymentRecord, error) {
	if err := requireIdentity(identity); err != nil {
		return nil, err
	}
	code, err := NormalizeStaffCode(staffCode)
	if err != nil {
		return nil, err
	}
	rec, err := s.store.GetStaff(ctx, code)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.NewNotFound("Staff", map[string]any{"staffCode": code})
	}
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if !rec.OwnedBy(identity) {
		return nil, apperrors.NewPermissionDenied("Not allowed.")
	}

	payments, err := s.store.ListPayments(ctx, repository.PaymentFilter{
		StaffCode: code,
		Limit:     clampLimit(limit, s.cfg.DefaultHistoryLimit, s.cfg.MaxHistoryLimit),
	})
	return payments, apperrors.MapError(err)
}

// ListRecentPayments returns the latest entries booked to any code the
// identity owns.
func (s *LedgerService) ListRecentPayments(ctx context.Context, identity string, limit int) ([]domain.PaymentRecord, error) {
	if err := requireIdentity(identity); err != nil {
		return nil, err
	}
	payments, err := s.store.ListPayments(ctx, repository.PaymentFilter{
		OwnerIdentity: identity,
		Limit:         clampLimit(limit, defaultRecentLimit, s.cfg.MaxHistoryLimit),
	})
	return payments, apperrors.MapError(err)
}

// ListPaymentsForAdmin lists ledger rows, optionally for one staff code.
func (s *LedgerService) ListPaymentsForAdmin(ctx context.Context, staffCode string, limit int) ([]domain.PaymentRecord, error) {
	filter := repository.PaymentFilter{Limit: clampLimit(limit, s.cfg.DefaultHistoryLimit, s.cfg.MaxHistoryLimit)}
	if staffCode != "" {
		code, err := NormalizeStaffCode(staffCode)
		if err != nil {
			return nil, err
		}
		filter.StaffCode = code
	}
	payments, err := s.store.ListPayments(ctx, filter)
	return payments, apperrors.MapError(err)
}

// ExportPayments renders ledger rows as an XLSX workbook.
func (s *LedgerService) ExportPayments(ctx context.Context, staffCode string) ([]byte, error) {
	filter := repository.PaymentFilter{Limit: exportRowLimit}
	if staffCode != "" {
		code, err := NormalizeStaffCode(staffCode)
		if err != nil {
			return nil, err
		}
		filter.StaffCode = code
	}
	payments, err := s.store.ListPayments(ctx, filter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	file := excelize.NewFile()
	defer func() { _ = file.Close() }()

	if err := file.SetSheetName(file.GetSheetName(0), exportSheetName); err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	if err := file.SetSheetRow(exportSheetName, "A1", &exportHeader); err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	for i, p := range payments {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, apperrors.NewInternalError(err)
		}
		row := []any{
			p.CreatedAt.UTC().Format("2006-01-02 15:04:05"),
			p.StaffCode,
			string(p.Type),
			string(p.Status),
			p.Amount,
			p.SignedAmount(),
			p.Reason,
			p.Actor,
			p.ID,
		}
		if err := file.SetSheetRow(exportSheetName, cell, &row); err != nil {
			return nil, apperrors.NewInternalError(err)
		}
	}
	if err := file.SetColWidth(exportSheetName, "A", "A", 20); err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	if err := file.SetColWidth(exportSheetName, "G", "G", 40); err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	buf, err := file.WriteToBuffer()
	if err != nil {
		return nil, apperrors.NewInternalError(fmt.Errorf("write xlsx: %w", err))
	}
	return buf.Bytes(), nil
}

func clampLimit(limit, fallback, max int) int {
	if limit <= 0 {
		limit = fallback
	}
	if max > 0 && limit > max {
		limit = max
	}
	return limit
}
