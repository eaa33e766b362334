package service

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/spec-kit/wage-wallet/internal/domain"
	"github.com/spec-kit/wage-wallet/internal/events"
	apperrors "github.com/spec-kit/wage-wallet/pkg/util/errorutil"
)

func TestRequestRedemptionCreatesPendingRequests(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.seedOwned(t, "ALHQR020", "user-a", 900)

	first, err := env.requests.RequestRedemption(ctx, RedemptionRequestInput{
		StaffCode: "ALHQR020", Identity: "user-a", Amount: 200, UpiID: " asha@upi ",
	})
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	second, err := env.requests.RequestRedemption(ctx, RedemptionRequestInput{
		StaffCode: "ALHQR020", Identity: "user-a", Amount: 100, UpiID: "asha@upi",
	})
	if err != nil {
		t.Fatalf("request: %v", err)
	}

	if first.Status != domain.PaymentRequestPending || first.UpiID != "asha@upi" {
		t.Fatalf("unexpected request %+v", first)
	}
	if first.Number != 1 || second.Number != 2 {
		t.Fatalf("expected sequential numbers, got %d and %d", first.Number, second.Number)
	}
	if got := env.balance(t, "ALHQR020"); got != 900 {
		t.Fatalf("request must not touch balance, got %d", got)
	}
	if env.eventCount(events.EventPaymentRequestCreated) != 2 {
		t.Fatalf("expected two created events")
	}
}

func TestRequestRedemptionValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.seedOwned(t, "ALHQR021", "user-a", 100)

	_, err := env.requests.RequestRedemption(ctx, RedemptionRequestInput{StaffCode: "ALHQR021", Identity: "user-a", Amount: 50})
	expectCode(t, err, apperrors.CodeInvalidArgument)

	if err := env.staff.UpdateStaffProfile(ctx, "ALHQR021", "user-a", map[string]any{"upiId": "profile@upi"}); err != nil {
		t.Fatalf("profile: %v", err)
	}
	req, err := env.requests.RequestRedemption(ctx, RedemptionRequestInput{StaffCode: "ALHQR021", Identity: "user-a", Amount: 50})
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if req.UpiID != "profile@upi" {
		t.Fatalf("expected profile upi fallback, got %q", req.UpiID)
	}

	_, err = env.requests.RequestRedemption(ctx, RedemptionRequestInput{StaffCode: "ALHQR021", Identity: "user-a", Amount: 101})
	expectCode(t, err, apperrors.CodeFailedPrecondition)

	if err := env.sessions.ReleaseSession(ctx, "ALHQR021", "user-a"); err != nil {
		t.Fatalf("release: %v", err)
	}
	_, err = env.requests.RequestRedemption(ctx, RedemptionRequestInput{StaffCode: "ALHQR021", Identity: "user-a", Amount: 10})
	expectCode(t, err, apperrors.CodeFailedPrecondition)
}

func TestApprovePaymentRequestAppliesOnce(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.seedOwned(t, "ALHQR022", "user-a", 500)

	req, err := env.requests.RequestRedemption(ctx, RedemptionRequestInput{
		StaffCode: "ALHQR022", Identity: "user-a", Amount: 200, UpiID: "a@upi",
	})
	if err != nil {
		t.Fatalf("request: %v", err)
	}

	approved, err := env.requests.ApprovePaymentRequest(ctx, req.ID, "admin-1")
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if approved.Status != domain.PaymentRequestApproved || approved.ApprovedBy == nil || *approved.ApprovedBy != "admin-1" {
		t.Fatalf("unexpected approval %+v", approved)
	}
	if approved.ApprovedAt == nil || !approved.ApprovedAt.Equal(env.clock.Now()) {
		t.Fatalf("approvedAt not stamped")
	}
	if got := env.balance(t, "ALHQR022"); got != 300 {
		t.Fatalf("expected 300, got %d", got)
	}

	_, err = env.requests.ApprovePaymentRequest(ctx, req.ID, "admin-2")
	expectCode(t, err, apperrors.CodeFailedPrecondition)
	_, err = env.requests.RejectPaymentRequest(ctx, req.ID, "admin-2", "late")
	expectCode(t, err, apperrors.CodeFailedPrecondition)

	if got := env.balance(t, "ALHQR022"); got != 300 {
		t.Fatalf("double application: balance %d", got)
	}
	payments := env.payments(t, "ALHQR022")
	if len(payments) != 1 {
		t.Fatalf("expected one ledger entry, got %d", len(payments))
	}
	p := payments[0]
	if p.Type != domain.PaymentTypeDebit || p.Status != domain.PaymentStatusApproved || p.RequestID == nil || *p.RequestID != req.ID {
		t.Fatalf("unexpected ledger entry %+v", p)
	}
}

func TestApproveWithInsufficientBalanceStaysPending(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.seedOwned(t, "ALHQR023", "user-a", 300)

	req, err := env.requests.RequestRedemption(ctx, RedemptionRequestInput{
		StaffCode: "ALHQR023", Identity: "user-a", Amount: 250, UpiID: "a@upi",
	})
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if _, err := env.wallet.CommitRedemption(ctx, "ALHQR023", "user-a", 100); err != nil {
		t.Fatalf("redeem: %v", err)
	}

	_, err = env.requests.ApprovePaymentRequest(ctx, req.ID, "admin-1")
	expectCode(t, err, apperrors.CodeFailedPrecondition)

	current, err := env.requests.GetPaymentRequest(ctx, req.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if current.Status != domain.PaymentRequestPending || current.ApprovedAt != nil {
		t.Fatalf("request should stay pending, got %+v", current)
	}
	if got := env.balance(t, "ALHQR023"); got != 200 {
		t.Fatalf("expected 200, got %d", got)
	}

	if _, err := env.wallet.CommitCredit(ctx, CreditInput{StaffCode: "ALHQR023", Amount: 50, Actor: "admin-1"}); err != nil {
		t.Fatalf("credit: %v", err)
	}
	if _, err := env.requests.ApprovePaymentRequest(ctx, req.ID, "admin-1"); err != nil {
		t.Fatalf("approve after top-up: %v", err)
	}
	if got := env.balance(t, "ALHQR023"); got != 0 {
		t.Fatalf("expected 0, got %d", got)
	}
}

func TestRejectPaymentRequest(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.seedOwned(t, "ALHQR024", "user-a", 300)

	req, err := env.requests.RequestRedemption(ctx, RedemptionRequestInput{
		StaffCode: "ALHQR024", Identity: "user-a", Amount: 100, UpiID: "a@upi",
	})
	if err != nil {
		t.Fatalf("request: %v", err)
	}

	rejected, err := env.requests.RejectPaymentRequest(ctx, req.ID, "admin-1", "  wrong upi  ")
	if err != nil {
		t.Fatalf("reject: %v", err)
	}
	if rejected.Status != domain.PaymentRequestRejected || rejected.RejectionReason == nil || *rejected.RejectionReason != "wrong upi" {
		t.Fatalf("unexpected rejection %+v", rejected)
	}
	if got := env.balance(t, "ALHQR024"); got != 300 {
		t.Fatalf("reject must not touch balance, got %d", got)
	}

	_, err = env.requests.ApprovePaymentRequest(ctx, req.ID, "admin-1")
	expectCode(t, err, apperrors.CodeFailedPrecondition)
}

func TestPaymentRequestLookupErrors(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.requests.ApprovePaymentRequest(ctx, "not-a-uuid", "admin-1")
	expectCode(t, err, apperrors.CodeNotFound)
	_, err = env.requests.RejectPaymentRequest(ctx, uuid.NewString(), "admin-1", "")
	expectCode(t, err, apperrors.CodeNotFound)
}

func TestListPaymentRequestsFiltersByStatus(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.seedOwned(t, "ALHQR025", "user-a", 1000)

	var ids []string
	for i := 0; i < 3; i++ {
		req, err := env.requests.RequestRedemption(ctx, RedemptionRequestInput{
			StaffCode: "ALHQR025", Identity: "user-a", Amount: 10, UpiID: "a@upi",
		})
		if err != nil {
			t.Fatalf("request: %v", err)
		}
		ids = append(ids, req.ID)
	}
	if _, err := env.requests.RejectPaymentRequest(ctx, ids[1], "admin-1", ""); err != nil {
		t.Fatalf("reject: %v", err)
	}

	pending := domain.PaymentRequestPending
	got, err := env.requests.ListPaymentRequests(ctx, PaymentRequestFilter{Status: &pending})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 2 || got[0].ID != ids[2] || got[1].ID != ids[0] {
		t.Fatalf("unexpected listing %+v", got)
	}

	bogus := domain.PaymentRequestStatus("paid")
	_, err = env.requests.ListPaymentRequests(ctx, PaymentRequestFilter{Status: &bogus})
	expectCode(t, err, apperrors.CodeInvalidArgument)
}
