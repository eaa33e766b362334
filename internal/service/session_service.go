package service

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/spec-kit/wage-wallet/internal/domain"
	"github.com/spec-kit/wage-wallet/internal/events"
	"github.com/spec-kit/wage-wallet/internal/repository"
	apperrors "github.com/spec-kit/wage-wallet/pkg/util/errorutil"
)

// SessionService grants one exclusive session per staff code.
type SessionService struct {
	walletCore
}

// AcquireResult is returned by AcquireSession.
type AcquireResult struct {
	SessionAcquired bool
	Created         bool
	WageBalance     int64
	Phone           string
	Message         string
}

// NewSessionService constructs the service.
func NewSessionService(deps WalletDependencies) *SessionService {
	return &SessionService{walletCore: newWalletCore(deps)}
}

// AcquireSession claims staffCode for identity, registering the code on
// first sight. Ownership, staleness and the write happen in one transaction.
func (s *SessionService) AcquireSession(ctx context.Context, staffCode, identity, contactInfo string) (result *AcquireResult, err error) {
	defer func() { s.record("acquireStaffSession", err) }()

	if err := requireIdentity(identity); err != nil {
		return nil, err
	}
	code, err := NormalizeStaffCode(staffCode)
	if err != nil {
		return nil, err
	}
	ttl := s.cfg.SessionTTL()

	var preempted bool
	err = s.store.RunInTx(ctx, func(tx repository.Tx) error {
		preempted = false
		now := s.clock()

		rec, err := tx.GetStaffForUpdate(ctx, code)
		if errors.Is(err, repository.ErrNotFound) {
			rec = &domain.StaffRecord{
				StaffCode:     code,
				OwnerIdentity: identity,
				Phone:         contactInfo,
				ActiveSession: &domain.ActiveSession{Holder: identity, CreatedAt: now, LastSeen: now},
				CreatedBy:     identity,
				CreatedAt:     now,
				UpdatedAt:     now,
			}
			if err := tx.InsertStaff(ctx, rec); err != nil {
				return err
			}
			result = &AcquireResult{
				SessionAcquired: true,
				Created:         true,
				Phone:           rec.Phone,
				Message:         "Staff registered and session acquired.",
			}
			return nil
		}
		if err != nil {
			return err
		}

		if rec.OwnerIdentity != "" && rec.OwnerIdentity != identity {
			return apperrors.NewPermissionDenied("This staff code is assigned to another user.")
		}

		active := rec.ActiveSession
		if active != nil && !active.HeldBy(identity) && !active.IsStale(now, ttl) {
			return apperrors.NewFailedPrecondition("Another active session is already in progress for this staff code.", nil)
		}

		if rec.OwnerIdentity == "" {
			rec.OwnerIdentity = identity
			if rec.Phone == "" {
				rec.Phone = contactInfo
			}
		}

		createdAt := now
		if active.HeldBy(identity) {
			createdAt = active.CreatedAt
		} else if active != nil {
			preempted = true
		}
		rec.ActiveSession = &domain.ActiveSession{Holder: identity, CreatedAt: createdAt, LastSeen: now}
		rec.UpdatedAt = now
		if err := tx.UpdateStaff(ctx, rec); err != nil {
			return err
		}

		result = &AcquireResult{
			SessionAcquired: true,
			WageBalance:     rec.WageBalance,
			Phone:           rec.Phone,
			Message:         "Session acquired.",
		}
		return nil
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	s.invalidate(ctx, code)
	if result.Created || preempted {
		s.logger.Info("session acquired",
			zap.String("staff_code", code),
			zap.Bool("created", result.Created),
			zap.Bool("preempted", preempted))
	}
	s.publish(ctx, events.NewEvent(events.EventSessionAcquired, code, userActor(identity), s.clock(),
		events.SessionAcquiredPayload{Created: result.Created, Preempted: preempted}))
	return result, nil
}

// ReleaseSession clears the caller's session. Releasing an unknown code or a
// session held by someone else is a no-op.
func (s *SessionService) ReleaseSession(ctx context.Context, staffCode, identity string) (err error) {
	defer func() { s.record("releaseStaffSession", err) }()

	if err := requireIdentity(identity); err != nil {
		return err
	}
	code, err := NormalizeStaffCode(staffCode)
	if err != nil {
		return err
	}

	var cleared bool
	err = s.store.RunInTx(ctx, func(tx repository.Tx) error {
		cleared = false
		rec, err := tx.GetStaffForUpdate(ctx, code)
		if errors.Is(err, repository.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		if !rec.OwnedBy(identity) {
			return apperrors.NewPermissionDenied("Not allowed.")
		}
		if !rec.ActiveSession.HeldBy(identity) {
			return nil
		}
		rec.ActiveSession = nil
		rec.UpdatedAt = s.clock()
		cleared = true
		return tx.UpdateStaff(ctx, rec)
	})
	if err != nil {
		return apperrors.MapError(err)
	}

	if cleared {
		s.invalidate(ctx, code)
		s.publish(ctx, events.NewEvent(events.EventSessionReleased, code, userActor(identity), s.clock(), nil))
	}
	return nil
}
