package service

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/wage-wallet/internal/domain"
	"github.com/spec-kit/wage-wallet/internal/events"
	"github.com/spec-kit/wage-wallet/internal/repository"
	apperrors "github.com/spec-kit/wage-wallet/pkg/util/errorutil"
)

const maxRejectionReasonRunes = 500

// PaymentRequestService runs the pending -> approved | rejected workflow.
type PaymentRequestService struct {
	walletCore
}

// RedemptionRequestInput is the staff side of a payout request.
type RedemptionRequestInput struct {
	StaffCode string
	Identity  string
	Amount    int64
	UpiID     string
}

// PaymentRequestFilter describes admin listing filters.
type PaymentRequestFilter struct {
	Status      *domain.PaymentRequestStatus
	StaffCode   string
	Search      string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
	Limit       int
	Offset      int
}

// NewPaymentRequestService constructs the service.
func NewPaymentRequestService(deps WalletDependencies) *PaymentRequestService {
	return &PaymentRequestService{walletCore: newWalletCore(deps)}
}

// RequestRedemption files a pending request. The balance is checked but not
// touched; deduction happens only on approval.
func (s *PaymentRequestService) RequestRedemption(ctx context.Context, input RedemptionRequestInput) (req *domain.PaymentRequest, err error) {
	defer func() { s.record("requestRedemption", err) }()

	if err := requireIdentity(input.Identity); err != nil {
		return nil, err
	}
	code, err := NormalizeStaffCode(input.StaffCode)
	if err != nil {
		return nil, err
	}
	if err := validateAmount(input.Amount); err != nil {
		return nil, err
	}

	err = s.store.RunInTx(ctx, func(tx repository.Tx) error {
		rec, err := loadForUpdate(ctx, tx, code)
		if err != nil {
			return err
		}
		if err := requireRedeemer(rec, input.Identity); err != nil {
			return err
		}

		upiID := strings.TrimSpace(input.UpiID)
		if upiID == "" {
			upiID = rec.Profile.UpiID
		}
		if upiID == "" {
			return apperrors.NewInvalidArgument("upiId is required.", nil)
		}
		if input.Amount > rec.WageBalance {
			return apperrors.NewFailedPrecondition("Insufficient balance.", map[string]any{
				"balance": rec.WageBalance,
				"amount":  input.Amount,
			})
		}

		number, err := tx.NextSequence(ctx, repository.SequencePaymentRequests)
		if err != nil {
			return err
		}
		now := s.clock()
		req = &domain.PaymentRequest{
			Number:      number,
			StaffCode:   code,
			StaffName:   rec.Profile.Name,
			Amount:      input.Amount,
			UpiID:       truncateRunes(upiID, s.cfg.ProfileFieldMaxLen),
			Status:      domain.PaymentRequestPending,
			RequestedBy: input.Identity,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := tx.InsertPaymentRequest(ctx, req); err != nil {
			return err
		}

		rec.ActiveSession.LastSeen = now
		rec.UpdatedAt = now
		return tx.UpdateStaff(ctx, rec)
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	s.logger.Info("payment request created",
		zap.String("staff_code", code),
		zap.String("request_id", req.ID),
		zap.Int64("number", req.Number),
		zap.Int64("amount", req.Amount))
	s.publish(ctx, events.NewEvent(events.EventPaymentRequestCreated, code, userActor(input.Identity), req.CreatedAt,
		requestPayload(req, "")))
	return req, nil
}

// ApprovePaymentRequest resolves a pending request and deducts its amount.
// If the balance no longer covers it, approval fails and the request stays
// pending for manual follow-up.
func (s *PaymentRequestService) ApprovePaymentRequest(ctx context.Context, id, actor string) (req *domain.PaymentRequest, err error) {
	defer func() { s.record("approvePaymentRequest", err) }()

	if err := requireIdentity(actor); err != nil {
		return nil, err
	}
	if err := validateRequestID(id); err != nil {
		return nil, err
	}

	var newBalance int64
	err = s.store.RunInTx(ctx, func(tx repository.Tx) error {
		current, err := s.lockPending(ctx, tx, id)
		if err != nil {
			return err
		}
		rec, err := loadForUpdate(ctx, tx, current.StaffCode)
		if err != nil {
			return err
		}
		if current.Amount > rec.WageBalance {
			return apperrors.NewFailedPrecondition("Insufficient balance; request left pending.", map[string]any{
				"balance": rec.WageBalance,
				"amount":  current.Amount,
			})
		}

		now := s.clock()
		rec.WageBalance -= current.Amount
		rec.UpdatedAt = now
		if err := tx.UpdateStaff(ctx, rec); err != nil {
			return err
		}

		requestID := current.ID
		payment := domain.PaymentRecord{
			StaffCode:     rec.StaffCode,
			OwnerIdentity: rec.OwnerIdentity,
			Amount:        current.Amount,
			Type:          domain.PaymentTypeDebit,
			Status:        domain.PaymentStatusApproved,
			Reason:        "Payment request #" + strconv.FormatInt(current.Number, 10) + " approved",
			Actor:         actor,
			RequestID:     &requestID,
			CreatedAt:     now,
		}
		if err := tx.InsertPayment(ctx, &payment); err != nil {
			return err
		}

		approvedBy := actor
		current.Status = domain.PaymentRequestApproved
		current.ApprovedAt = &now
		current.ApprovedBy = &approvedBy
		current.UpdatedAt = now
		if err := tx.UpdatePaymentRequest(ctx, current); err != nil {
			return err
		}
		req = current
		newBalance = rec.WageBalance
		return nil
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	s.invalidate(ctx, req.StaffCode)
	s.logger.Info("payment request approved",
		zap.String("request_id", req.ID),
		zap.String("staff_code", req.StaffCode),
		zap.Int64("amount", req.Amount),
		zap.Int64("new_balance", newBalance),
		zap.String("actor", actor))
	s.publish(ctx, events.NewEvent(events.EventPaymentRequestApproved, req.StaffCode, adminActor(actor), req.UpdatedAt,
		requestPayload(req, "")))
	return req, nil
}

// RejectPaymentRequest closes a pending request without any balance effect.
func (s *PaymentRequestService) RejectPaymentRequest(ctx context.Context, id, actor, reason string) (req *domain.PaymentRequest, err error) {
	defer func() { s.record("rejectPaymentRequest", err) }()

	if err := requireIdentity(actor); err != nil {
		return nil, err
	}
	if err := validateRequestID(id); err != nil {
		return nil, err
	}
	reason = truncateRunes(strings.TrimSpace(reason), maxRejectionReasonRunes)

	err = s.store.RunInTx(ctx, func(tx repository.Tx) error {
		current, err := s.lockPending(ctx, tx, id)
		if err != nil {
			return err
		}
		now := s.clock()
		rejectedBy := actor
		current.Status = domain.PaymentRequestRejected
		current.RejectedAt = &now
		current.RejectedBy = &rejectedBy
		if reason != "" {
			current.RejectionReason = &reason
		}
		current.UpdatedAt = now
		if err := tx.UpdatePaymentRequest(ctx, current); err != nil {
			return err
		}
		req = current
		return nil
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	s.logger.Info("payment request rejected",
		zap.String("request_id", req.ID),
		zap.String("staff_code", req.StaffCode),
		zap.String("actor", actor))
	s.publish(ctx, events.NewEvent(events.EventPaymentRequestRejected, req.StaffCode, adminActor(actor), req.UpdatedAt,
		requestPayload(req, reason)))
	return req, nil
}

// GetPaymentRequest returns one request by id.
func (s *PaymentRequestService) GetPaymentRequest(ctx context.Context, id string) (*domain.PaymentRequest, error) {
	if err := validateRequestID(id); err != nil {
		return nil, err
	}
	req, err := s.store.GetPaymentRequest(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.NewNotFound("Payment request", map[string]any{"id": id})
	}
	return req, apperrors.MapError(err)
}

// ListPaymentRequests lists requests newest first.
func (s *PaymentRequestService) ListPaymentRequests(ctx context.Context, filter PaymentRequestFilter) ([]domain.PaymentRequest, error) {
	storeFilter := repository.PaymentRequestFilter{
		Status:      filter.Status,
		Search:      filter.Search,
		CreatedFrom: filter.CreatedFrom,
		CreatedTo:   filter.CreatedTo,
		Limit:       clampLimit(filter.Limit, s.cfg.DefaultHistoryLimit, s.cfg.MaxHistoryLimit),
		Offset:      filter.Offset,
	}
	if filter.StaffCode != "" {
		code, err := NormalizeStaffCode(filter.StaffCode)
		if err != nil {
			return nil, err
		}
		storeFilter.StaffCode = code
	}
	if filter.Status != nil {
		switch *filter.Status {
		case domain.PaymentRequestPending, domain.PaymentRequestApproved, domain.PaymentRequestRejected:
		default:
			return nil, apperrors.NewInvalidArgument("unknown status filter.", map[string]any{"status": *filter.Status})
		}
	}
	requests, err := s.store.ListPaymentRequests(ctx, storeFilter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return requests, nil
}

// lockPending loads the request for update and refuses terminal ones so a
// request is resolved at most once.
func (s *PaymentRequestService) lockPending(ctx context.Context, tx repository.Tx, id string) (*domain.PaymentRequest, error) {
	current, err := tx.GetPaymentRequestForUpdate(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.NewNotFound("Payment request", map[string]any{"id": id})
	}
	if err != nil {
		return nil, err
	}
	if current.Status.IsTerminal() {
		return nil, apperrors.NewFailedPrecondition("Payment request already resolved.", map[string]any{
			"status": string(current.Status),
		})
	}
	return current, nil
}

func validateRequestID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return apperrors.NewNotFound("Payment request", map[string]any{"id": id})
	}
	return nil
}

func requestPayload(req *domain.PaymentRequest, reason string) events.PaymentRequestPayload {
	return events.PaymentRequestPayload{
		RequestID: req.ID,
		Number:    req.Number,
		Amount:    req.Amount,
		UpiID:     req.UpiID,
		Status:    req.Status,
		Reason:    reason,
	}
}
