package service

import (
	"context"
	"errors"
	"math"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/wage-wallet/internal/domain"
	"github.com/spec-kit/wage-wallet/internal/events"
	"github.com/spec-kit/wage-wallet/internal/repository"
	apperrors "github.com/spec-kit/wage-wallet/pkg/util/errorutil"
)

// CreditKind selects how an admin credit is booked.
type CreditKind string

const (
	CreditKindMoney CreditKind = "money"
	CreditKindTip   CreditKind = "tip"
)

const (
	defaultMoneyReason   = "Money added by admin"
	defaultTipReason     = "No reason specified"
	redemptionReason     = "Redeemed by staff"
	maxCreditReasonRunes = 500
)

// WalletService is the only path by which a staff balance changes outside
// the payment request approval flow.
type WalletService struct {
	walletCore
}

// ValidationResult is the advisory outcome of ValidateRedemption.
type ValidationResult struct {
	Approved bool
	Message  string
}

// CreditInput describes an admin credit.
type CreditInput struct {
	StaffCode string
	Amount    int64
	Actor     string
	Kind      CreditKind
	Reason    string
}

// CreditResult reports the booked ledger entry and the new totals.
type CreditResult struct {
	Payment    domain.PaymentRecord
	NewBalance int64
	Bonus      int64
}

// NewWalletService constructs the service.
func NewWalletService(deps WalletDependencies) *WalletService {
	return &WalletService{walletCore: newWalletCore(deps)}
}

// ValidateRedemption is a read-only pre-flight. Its answer may be stale by
// the time the client commits; CommitRedemption re-checks everything.
func (s *WalletService) ValidateRedemption(ctx context.Context, staffCode, identity string, amount int64) (result *ValidationResult, err error) {
	defer func() { s.record("validatePayment", err) }()

	if err := requireIdentity(identity); err != nil {
		return nil, err
	}
	code, err := NormalizeStaffCode(staffCode)
	if err != nil {
		return nil, err
	}
	if err := validateAmount(amount); err != nil {
		return nil, err
	}

	rec, err := s.store.GetStaff(ctx, code)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.NewNotFound("Staff", map[string]any{"staffCode": code})
	}
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if err := requireRedeemer(rec, identity); err != nil {
		return nil, err
	}
	if amount > rec.WageBalance {
		return &ValidationResult{Approved: false, Message: "Insufficient balance."}, nil
	}
	return &ValidationResult{Approved: true, Message: "Approved."}, nil
}

// CommitRedemption deducts amount and appends a completed debit in one
// transaction, returning the new balance.
func (s *WalletService) CommitRedemption(ctx context.Context, staffCode, identity string, amount int64) (newBalance int64, err error) {
	defer func() { s.record("updateWageBalance", err) }()

	if err := requireIdentity(identity); err != nil {
		return 0, err
	}
	code, err := NormalizeStaffCode(staffCode)
	if err != nil {
		return 0, err
	}
	if err := validateAmount(amount); err != nil {
		return 0, err
	}

	var payment domain.PaymentRecord
	err = s.store.RunInTx(ctx, func(tx repository.Tx) error {
		rec, err := loadForUpdate(ctx, tx, code)
		if err != nil {
			return err
		}
		if err := requireRedeemer(rec, identity); err != nil {
			return err
		}
		if amount > rec.WageBalance {
			return apperrors.NewFailedPrecondition("Insufficient balance.", map[string]any{
				"balance": rec.WageBalance,
				"amount":  amount,
			})
		}

		now := s.clock()
		rec.WageBalance -= amount
		rec.ActiveSession.LastSeen = now
		rec.UpdatedAt = now
		if err := tx.UpdateStaff(ctx, rec); err != nil {
			return err
		}

		payment = domain.PaymentRecord{
			StaffCode:     code,
			OwnerIdentity: identity,
			Amount:        amount,
			Type:          domain.PaymentTypeDebit,
			Status:        domain.PaymentStatusCompleted,
			Reason:        redemptionReason,
			Actor:         identity,
			CreatedAt:     now,
		}
		if err := tx.InsertPayment(ctx, &payment); err != nil {
			return err
		}
		newBalance = rec.WageBalance
		return nil
	})
	if err != nil {
		return 0, apperrors.MapError(err)
	}

	s.invalidate(ctx, code)
	s.logger.Info("redemption committed",
		zap.String("staff_code", code),
		zap.String("payment_id", payment.ID),
		zap.Int64("amount", amount),
		zap.Int64("new_balance", newBalance))
	s.publish(ctx, events.NewEvent(events.EventRedemptionCommitted, code, userActor(identity), payment.CreatedAt,
		events.RedemptionCommittedPayload{PaymentID: payment.ID, Amount: amount, NewBalance: newBalance}))
	return newBalance, nil
}

// CommitCredit adds funds on behalf of an admin. Tips also grow the bonus
// accumulator. No session or ownership check applies.
func (s *WalletService) CommitCredit(ctx context.Context, input CreditInput) (result *CreditResult, err error) {
	defer func() { s.record("commitCredit", err) }()

	if err := requireIdentity(input.Actor); err != nil {
		return nil, err
	}
	code, err := NormalizeStaffCode(input.StaffCode)
	if err != nil {
		return nil, err
	}
	if err := validateAmount(input.Amount); err != nil {
		return nil, err
	}

	kind := CreditKind(strings.ToLower(strings.TrimSpace(string(input.Kind))))
	if kind == "" {
		kind = CreditKindMoney
	}
	paymentType := domain.PaymentTypeCredit
	reason := truncateRunes(strings.TrimSpace(input.Reason), maxCreditReasonRunes)
	switch kind {
	case CreditKindMoney:
		if reason == "" {
			reason = defaultMoneyReason
		}
	case CreditKindTip:
		paymentType = domain.PaymentTypeBonus
		if reason == "" {
			reason = defaultTipReason
		}
	default:
		return nil, apperrors.NewInvalidArgument("kind must be money or tip.", map[string]any{"kind": input.Kind})
	}

	err = s.store.RunInTx(ctx, func(tx repository.Tx) error {
		rec, err := loadForUpdate(ctx, tx, code)
		if err != nil {
			return err
		}

		if input.Amount > math.MaxInt64-rec.WageBalance ||
			(kind == CreditKindTip && input.Amount > math.MaxInt64-rec.Bonus) {
			return apperrors.NewFailedPrecondition("balance limit exceeded", map[string]any{
				"staffCode": code,
				"balance":   rec.WageBalance,
				"amount":    input.Amount,
			})
		}

		now := s.clock()
		rec.WageBalance += input.Amount
		if kind == CreditKindTip {
			rec.Bonus += input.Amount
		}
		rec.UpdatedAt = now
		if err := tx.UpdateStaff(ctx, rec); err != nil {
			return err
		}

		payment := domain.PaymentRecord{
			StaffCode:     code,
			OwnerIdentity: rec.OwnerIdentity,
			Amount:        input.Amount,
			Type:          paymentType,
			Status:        domain.PaymentStatusCompleted,
			Reason:        reason,
			Actor:         input.Actor,
			CreatedAt:     now,
		}
		if err := tx.InsertPayment(ctx, &payment); err != nil {
			return err
		}
		result = &CreditResult{Payment: payment, NewBalance: rec.WageBalance, Bonus: rec.Bonus}
		return nil
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	s.invalidate(ctx, code)
	s.logger.Info("credit committed",
		zap.String("staff_code", code),
		zap.String("kind", string(kind)),
		zap.Int64("amount", input.Amount),
		zap.String("actor", input.Actor))
	s.publish(ctx, events.NewEvent(events.EventCreditCommitted, code, adminActor(input.Actor), result.Payment.CreatedAt,
		events.CreditCommittedPayload{
			PaymentID:  result.Payment.ID,
			Amount:     input.Amount,
			Type:       paymentType,
			Reason:     reason,
			NewBalance: result.NewBalance,
		}))
	return result, nil
}
