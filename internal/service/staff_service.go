package service

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode"

	"go.uber.org/zap"

	"github.com/spec-kit/wage-wallet/internal/cache"
	"github.com/spec-kit/wage-wallet/internal/domain"
	"github.com/spec-kit/wage-wallet/internal/events"
	"github.com/spec-kit/wage-wallet/internal/repository"
	apperrors "github.com/spec-kit/wage-wallet/pkg/util/errorutil"
)

const openingBalanceReason = "Opening balance"

// StaffService manages staff records: admin registration, profile edits and
// the cached read model.
type StaffService struct {
	walletCore
}

// RegisterStaffInput is the admin payload for creating a staff record.
type RegisterStaffInput struct {
	StaffCode      string
	Name           string
	Phone          string
	Branch         string
	Category       string
	OpeningBalance int64
}

// StaffListFilters define listing parameters.
type StaffListFilters struct {
	Search string
	Limit  int
	Offset int
}

// Summary aggregates the admin dashboard figures.
type Summary struct {
	StaffCount      int64
	TotalBalance    int64
	TotalBonus      int64
	PendingRequests int64
	PendingAmount   int64
}

// NewStaffService constructs the service.
func NewStaffService(deps WalletDependencies) *StaffService {
	return &StaffService{walletCore: newWalletCore(deps)}
}

// RegisterStaff creates a record ahead of first use. A positive opening
// balance is booked as a credit in the same transaction.
func (s *StaffService) RegisterStaff(ctx context.Context, actor string, input RegisterStaffInput) (rec *domain.StaffRecord, err error) {
	defer func() { s.record("registerStaff", err) }()

	if err := requireIdentity(actor); err != nil {
		return nil, err
	}
	code, err := s.normalizeAdminCode(input.StaffCode)
	if err != nil {
		return nil, err
	}
	phone, err := NormalizePhone(input.Phone)
	if err != nil {
		return nil, err
	}
	if input.OpeningBalance < 0 {
		return nil, apperrors.NewInvalidArgument("openingBalance must not be negative.", nil)
	}

	maxLen := s.cfg.ProfileFieldMaxLen
	err = s.store.RunInTx(ctx, func(tx repository.Tx) error {
		_, err := tx.GetStaffForUpdate(ctx, code)
		if err == nil {
			return apperrors.NewFailedPrecondition("staff code already exists", map[string]any{"staffCode": code})
		}
		if !errors.Is(err, repository.ErrNotFound) {
			return err
		}

		now := s.clock()
		rec = &domain.StaffRecord{
			StaffCode:   code,
			Phone:       phone,
			WageBalance: input.OpeningBalance,
			Profile: domain.StaffProfile{
				Name:   truncateRunes(strings.TrimSpace(input.Name), maxLen),
				Branch: truncateRunes(strings.TrimSpace(input.Branch), maxLen),
			},
			Category:  truncateRunes(strings.TrimSpace(input.Category), maxLen),
			CreatedBy: actor,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := tx.InsertStaff(ctx, rec); err != nil {
			if errors.Is(err, repository.ErrAlreadyExists) {
				return apperrors.NewFailedPrecondition("staff code already exists", map[string]any{"staffCode": code})
			}
			return err
		}
		if input.OpeningBalance == 0 {
			return nil
		}
		return tx.InsertPayment(ctx, &domain.PaymentRecord{
			StaffCode: code,
			Amount:    input.OpeningBalance,
			Type:      domain.PaymentTypeCredit,
			Status:    domain.PaymentStatusCompleted,
			Reason:    openingBalanceReason,
			Actor:     actor,
			CreatedAt: now,
		})
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	s.logger.Info("staff registered",
		zap.String("staff_code", code),
		zap.Int64("opening_balance", input.OpeningBalance),
		zap.String("actor", actor))
	s.publish(ctx, events.NewEvent(events.EventStaffRegistered, code, adminActor(actor), rec.CreatedAt,
		events.StaffRegisteredPayload{OpeningBalance: input.OpeningBalance}))
	return rec, nil
}

// GetStaff returns the owner's snapshot through the cache. Owner identity is
// immutable once set, so a cached owner match is authoritative; anything
// else is re-read from the store.
func (s *StaffService) GetStaff(ctx context.Context, staffCode, identity string) (*cache.StaffSnapshot, error) {
	if err := requireIdentity(identity); err != nil {
		return nil, err
	}
	code, err := NormalizeStaffCode(staffCode)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		snap, err := s.cache.Get(ctx, code)
		if err != nil {
			s.logger.Warn("cache read failed", zap.String("staff_code", code), zap.Error(err))
		} else if snap != nil && snap.OwnerIdentity != "" && snap.OwnerIdentity == identity {
			return snap, nil
		}
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

	snap := cache.SnapshotFromRecord(rec)
	if s.cache != nil {
		s.fillCache(ctx, snap)
	}
	return snap, nil
}

// fillCache stores snap, then drops it again if a commit moved the record
// while the write was in flight. Commits invalidate after they land, so a
// snapshot that survives the re-read is never older than the last commit.
func (s *StaffService) fillCache(ctx context.Context, snap *cache.StaffSnapshot) {
	if err := s.cache.Set(ctx, snap); err != nil {
		s.logger.Warn("cache write failed", zap.String("staff_code", snap.StaffCode), zap.Error(err))
		return
	}
	current, err := s.store.GetStaff(ctx, snap.StaffCode)
	if err == nil && sameSnapshot(cache.SnapshotFromRecord(current), snap) {
		return
	}
	if err := s.cache.Invalidate(ctx, snap.StaffCode); err != nil {
		s.logger.Warn("cache invalidate failed", zap.String("staff_code", snap.StaffCode), zap.Error(err))
	}
}

func sameSnapshot(a, b *cache.StaffSnapshot) bool {
	if !a.UpdatedAt.Equal(b.UpdatedAt) {
		return false
	}
	x, y := *a, *b
	x.UpdatedAt, y.UpdatedAt = time.Time{}, time.Time{}
	return x == y
}

// GetStaffForAdmin reads the full record, session included, from the store.
func (s *StaffService) GetStaffForAdmin(ctx context.Context, staffCode string) (*domain.StaffRecord, error) {
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
	return rec, nil
}

// ListStaff lists records newest first.
func (s *StaffService) ListStaff(ctx context.Context, filters StaffListFilters) ([]domain.StaffRecord, error) {
	records, err := s.store.ListStaff(ctx, repository.StaffFilter{
		Search: filters.Search,
		Limit:  clampLimit(filters.Limit, s.cfg.DefaultHistoryLimit, s.cfg.MaxHistoryLimit),
		Offset: filters.Offset,
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return records, nil
}

// UpdateStaffProfile applies the allowed string fields for the owner. Other
// keys and non-string values are dropped silently.
func (s *StaffService) UpdateStaffProfile(ctx context.Context, staffCode, identity string, fields map[string]any) (err error) {
	defer func() { s.record("updateStaffProfile", err) }()

	if err := requireIdentity(identity); err != nil {
		return err
	}
	code, err := NormalizeStaffCode(staffCode)
	if err != nil {
		return err
	}
	if fields == nil {
		return apperrors.NewInvalidArgument("profile object is required.", nil)
	}

	cleaned := make(map[string]string, len(domain.ProfileFields))
	for _, key := range domain.ProfileFields {
		value, ok := fields[key].(string)
		if !ok {
			continue
		}
		cleaned[key] = truncateRunes(strings.TrimSpace(value), s.cfg.ProfileFieldMaxLen)
	}
	if len(cleaned) == 0 {
		return apperrors.NewInvalidArgument("No valid fields to update.", nil)
	}

	err = s.store.RunInTx(ctx, func(tx repository.Tx) error {
		rec, err := loadForUpdate(ctx, tx, code)
		if err != nil {
			return err
		}
		if !rec.OwnedBy(identity) {
			return apperrors.NewPermissionDenied("Not allowed.")
		}
		for key, value := range cleaned {
			rec.Profile.Set(key, value)
		}
		now := s.clock()
		if rec.ActiveSession.HeldBy(identity) {
			rec.ActiveSession.LastSeen = now
		}
		rec.UpdatedAt = now
		return tx.UpdateStaff(ctx, rec)
	})
	if err != nil {
		return apperrors.MapError(err)
	}

	s.invalidate(ctx, code)
	return nil
}

// SetWorksInitiated overwrites the admin-maintained works counter.
func (s *StaffService) SetWorksInitiated(ctx context.Context, staffCode, actor string, value int) (*domain.StaffRecord, error) {
	if value < 0 {
		return nil, apperrors.NewInvalidArgument("worksInitiated must not be negative.", nil)
	}
	return s.adminUpdate(ctx, staffCode, actor, func(rec *domain.StaffRecord) {
		rec.WorksInitiated = value
	})
}

// SetCategory overwrites the admin-maintained category label.
func (s *StaffService) SetCategory(ctx context.Context, staffCode, actor, category string) (*domain.StaffRecord, error) {
	category = truncateRunes(strings.TrimSpace(category), s.cfg.ProfileFieldMaxLen)
	return s.adminUpdate(ctx, staffCode, actor, func(rec *domain.StaffRecord) {
		rec.Category = category
	})
}

// Summary returns dashboard totals.
func (s *StaffService) Summary(ctx context.Context) (*Summary, error) {
	totals, err := s.store.Totals(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return &Summary{
		StaffCount:      totals.StaffCount,
		TotalBalance:    totals.TotalBalance,
		TotalBonus:      totals.TotalBonus,
		PendingRequests: totals.PendingRequests,
		PendingAmount:   totals.PendingAmount,
	}, nil
}

func (s *StaffService) adminUpdate(ctx context.Context, staffCode, actor string, mutate func(*domain.StaffRecord)) (*domain.StaffRecord, error) {
	if err := requireIdentity(actor); err != nil {
		return nil, err
	}
	code, err := NormalizeStaffCode(staffCode)
	if err != nil {
		return nil, err
	}

	var updated *domain.StaffRecord
	err = s.store.RunInTx(ctx, func(tx repository.Tx) error {
		rec, err := loadForUpdate(ctx, tx, code)
		if err != nil {
			return err
		}
		mutate(rec)
		rec.UpdatedAt = s.clock()
		if err := tx.UpdateStaff(ctx, rec); err != nil {
			return err
		}
		updated = rec
		return nil
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	s.invalidate(ctx, code)
	return updated, nil
}

func (s *StaffService) normalizeAdminCode(raw string) (string, error) {
	code, err := NormalizeStaffCode(raw)
	if err != nil {
		return "", err
	}
	prefix := s.cfg.StaffCodePrefix
	suffix, ok := strings.CutPrefix(code, prefix)
	if prefix != "" && (!ok || suffix == "" || strings.IndexFunc(suffix, func(r rune) bool { return !unicode.IsDigit(r) }) >= 0) {
		return "", apperrors.NewInvalidArgument("staffCode must be "+prefix+" followed by digits.", map[string]any{"staffCode": code})
	}
	return code, nil
}

// NormalizePhone converts a 10-digit Indian mobile number (optionally already
// prefixed with 91 or +91) to +91XXXXXXXXXX. Empty input stays empty.
func NormalizePhone(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", nil
	}
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, raw)
	switch {
	case len(digits) == 10:
		return "+91" + digits, nil
	case len(digits) == 12 && strings.HasPrefix(digits, "91"):
		return "+" + digits, nil
	}
	return "", apperrors.NewInvalidArgument("phone must be a 10-digit mobile number.", map[string]any{"phone": raw})
}
