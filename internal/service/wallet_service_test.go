package service

import (
	"context"
	"math"
	"sync"
	"testing"

	"github.com/spec-kit/wage-wallet/internal/domain"
	apperrors "github.com/spec-kit/wage-wallet/pkg/util/errorutil"
)

func TestRedemptionScenario(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.seed(t, domain.StaffRecord{StaffCode: "ALHQR001", OwnerIdentity: "U1", WageBalance: 500})

	res, err := env.sessions.AcquireSession(ctx, "ALHQR001", "U1", "")
	if err != nil || res.WageBalance != 500 {
		t.Fatalf("acquire: %+v %v", res, err)
	}

	check, err := env.wallet.ValidateRedemption(ctx, "ALHQR001", "U1", 300)
	if err != nil || !check.Approved {
		t.Fatalf("validate: %+v %v", check, err)
	}

	newBalance, err := env.wallet.CommitRedemption(ctx, "ALHQR001", "U1", 300)
	if err != nil || newBalance != 200 {
		t.Fatalf("first redemption: %d %v", newBalance, err)
	}

	_, err = env.wallet.CommitRedemption(ctx, "ALHQR001", "U1", 300)
	expectCode(t, err, apperrors.CodeFailedPrecondition)

	if err := env.sessions.ReleaseSession(ctx, "ALHQR001", "U1"); err != nil {
		t.Fatalf("release: %v", err)
	}

	_, err = env.wallet.CommitRedemption(ctx, "ALHQR001", "U1", 100)
	expectCode(t, err, apperrors.CodeFailedPrecondition)

	if got := env.balance(t, "ALHQR001"); got != 200 {
		t.Fatalf("expected 200, got %d", got)
	}
	if got := len(env.payments(t, "ALHQR001")); got != 1 {
		t.Fatalf("expected 1 ledger entry, got %d", got)
	}
}

func TestValidateRedemptionIsAdvisory(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.seedOwned(t, "ALHQR010", "user-a", 100)

	res, err := env.wallet.ValidateRedemption(ctx, "ALHQR010", "user-a", 101)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if res.Approved || res.Message != "Insufficient balance." {
		t.Fatalf("unexpected result %+v", res)
	}

	_, err = env.wallet.ValidateRedemption(ctx, "ALHQR010", "user-a", 0)
	expectCode(t, err, apperrors.CodeInvalidArgument)
	_, err = env.wallet.ValidateRedemption(ctx, "ALHQR404", "user-a", 10)
	expectCode(t, err, apperrors.CodeNotFound)
	_, err = env.wallet.ValidateRedemption(ctx, "ALHQR010", "user-b", 10)
	if err == nil {
		t.Fatalf("expected stranger to be refused")
	}

	if len(env.payments(t, "ALHQR010")) != 0 {
		t.Fatalf("validate must not write")
	}
}

func TestRedemptionOverBalanceWritesNothing(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.seedOwned(t, "ALHQR011", "user-a", 250)

	_, err := env.wallet.CommitRedemption(ctx, "ALHQR011", "user-a", 251)
	expectCode(t, err, apperrors.CodeFailedPrecondition)

	if got := env.balance(t, "ALHQR011"); got != 250 {
		t.Fatalf("balance changed to %d", got)
	}
	if got := len(env.payments(t, "ALHQR011")); got != 0 {
		t.Fatalf("expected no ledger entries, got %d", got)
	}
}

func TestRedemptionRequiresOwnership(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	// Session held without ownership only happens with legacy data.
	env.seed(t, domain.StaffRecord{
		StaffCode:     "ALHQR012",
		OwnerIdentity: "user-a",
		WageBalance:   100,
		ActiveSession: &domain.ActiveSession{Holder: "user-b", CreatedAt: env.clock.Now(), LastSeen: env.clock.Now()},
	})

	_, err := env.wallet.CommitRedemption(ctx, "ALHQR012", "user-b", 10)
	expectCode(t, err, apperrors.CodePermissionDenied)
}

func TestRedemptionChecksSessionBeforeOwnership(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.seedOwned(t, "ALHQR013", "user-a", 100)

	// A stranger holds neither the record nor the session.
	_, err := env.wallet.CommitRedemption(ctx, "ALHQR013", "user-z", 10)
	expectCode(t, err, apperrors.CodeFailedPrecondition)
	_, err = env.wallet.ValidateRedemption(ctx, "ALHQR013", "user-z", 10)
	expectCode(t, err, apperrors.CodeFailedPrecondition)

	if got := env.balance(t, "ALHQR013"); got != 100 {
		t.Fatalf("expected balance 100, got %d", got)
	}
}

func TestConcurrentRedemptionsNeverOverdraw(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.seedOwned(t, "ALHQR013", "user-a", 1000)

	const workers = 50
	const amount = 30
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int64
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := env.wallet.CommitRedemption(ctx, "ALHQR013", "user-a", amount)
			if err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
				return
			}
			if !apperrors.HasCode(err, apperrors.CodeFailedPrecondition) {
				t.Errorf("unexpected error %v", err)
			}
		}()
	}
	wg.Wait()

	final := env.balance(t, "ALHQR013")
	if final < 0 {
		t.Fatalf("balance went negative: %d", final)
	}
	if final != 1000-succeeded*amount {
		t.Fatalf("final %d does not match %d successes", final, succeeded)
	}
	if succeeded != 33 {
		t.Fatalf("expected 33 successful redemptions, got %d", succeeded)
	}
	if got := int64(len(env.payments(t, "ALHQR013"))); got != succeeded {
		t.Fatalf("expected %d ledger entries, got %d", succeeded, got)
	}
}

func TestCreditRedemptionRoundTrip(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.seedOwned(t, "ALHQR014", "user-a", 40)

	credit, err := env.wallet.CommitCredit(ctx, CreditInput{StaffCode: "ALHQR014", Amount: 100, Actor: "admin-1"})
	if err != nil {
		t.Fatalf("credit: %v", err)
	}
	if credit.NewBalance != 140 || credit.Payment.Reason != defaultMoneyReason {
		t.Fatalf("unexpected credit %+v", credit)
	}

	newBalance, err := env.wallet.CommitRedemption(ctx, "ALHQR014", "user-a", 100)
	if err != nil {
		t.Fatalf("redeem: %v", err)
	}
	if newBalance != 40 {
		t.Fatalf("expected pre-credit balance 40, got %d", newBalance)
	}

	payments := env.payments(t, "ALHQR014")
	if len(payments) != 2 {
		t.Fatalf("expected 2 ledger entries, got %d", len(payments))
	}
	var net int64
	for _, p := range payments {
		if p.Amount != 100 {
			t.Fatalf("unexpected amount %d", p.Amount)
		}
		net += p.SignedAmount()
	}
	if net != 0 || payments[0].Type != domain.PaymentTypeDebit || payments[1].Type != domain.PaymentTypeCredit {
		t.Fatalf("expected opposite directions, got %+v", payments)
	}
}

func TestCommitCreditTipGrowsBonus(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.seed(t, domain.StaffRecord{StaffCode: "ALHQR015"})

	res, err := env.wallet.CommitCredit(ctx, CreditInput{StaffCode: "alhqr015", Amount: 50, Actor: "admin-1", Kind: CreditKindTip})
	if err != nil {
		t.Fatalf("tip: %v", err)
	}
	if res.NewBalance != 50 || res.Bonus != 50 {
		t.Fatalf("unexpected result %+v", res)
	}
	if res.Payment.Type != domain.PaymentTypeBonus || res.Payment.Reason != defaultTipReason || res.Payment.Actor != "admin-1" {
		t.Fatalf("unexpected ledger entry %+v", res.Payment)
	}
	if res.Payment.OwnerIdentity != "" {
		t.Fatalf("unbound record should book an empty owner")
	}
}

func TestCommitCreditValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.seed(t, domain.StaffRecord{StaffCode: "ALHQR016"})

	_, err := env.wallet.CommitCredit(ctx, CreditInput{StaffCode: "ALHQR016", Amount: 0, Actor: "admin-1"})
	expectCode(t, err, apperrors.CodeInvalidArgument)
	_, err = env.wallet.CommitCredit(ctx, CreditInput{StaffCode: "ALHQR016", Amount: 10, Actor: "admin-1", Kind: "voucher"})
	expectCode(t, err, apperrors.CodeInvalidArgument)
	_, err = env.wallet.CommitCredit(ctx, CreditInput{StaffCode: "ALHQR999", Amount: 10, Actor: "admin-1"})
	expectCode(t, err, apperrors.CodeNotFound)
}

func TestCommitCreditRejectsBalanceOverflow(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.seed(t, domain.StaffRecord{StaffCode: "ALHQR009"})

	if _, err := env.wallet.CommitCredit(ctx, CreditInput{StaffCode: "ALHQR009", Amount: 10, Actor: "admin-1"}); err != nil {
		t.Fatalf("credit: %v", err)
	}
	_, err := env.wallet.CommitCredit(ctx, CreditInput{StaffCode: "ALHQR009", Amount: math.MaxInt64, Actor: "admin-1"})
	expectCode(t, err, apperrors.CodeFailedPrecondition)

	if got := env.balance(t, "ALHQR009"); got != 10 {
		t.Fatalf("expected balance 10, got %d", got)
	}
	if got := len(env.payments(t, "ALHQR009")); got != 1 {
		t.Fatalf("expected one ledger entry, got %d", got)
	}

	env.seed(t, domain.StaffRecord{StaffCode: "ALHQR010", Bonus: math.MaxInt64 - 5})
	_, err = env.wallet.CommitCredit(ctx, CreditInput{StaffCode: "ALHQR010", Amount: 10, Actor: "admin-1", Kind: CreditKindTip})
	expectCode(t, err, apperrors.CodeFailedPrecondition)
	if got := env.balance(t, "ALHQR010"); got != 0 {
		t.Fatalf("expected untouched balance, got %d", got)
	}
}

func TestCommitInvalidatesCachedSnapshot(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.seedOwned(t, "ALHQR017", "user-a", 300)

	snap, err := env.staff.GetStaff(ctx, "ALHQR017", "user-a")
	if err != nil || snap.WageBalance != 300 {
		t.Fatalf("get: %+v %v", snap, err)
	}
	if cached, _ := env.cache.Get(ctx, "ALHQR017"); cached == nil {
		t.Fatalf("expected snapshot to be cached")
	}

	if _, err := env.wallet.CommitRedemption(ctx, "ALHQR017", "user-a", 120); err != nil {
		t.Fatalf("redeem: %v", err)
	}
	if cached, _ := env.cache.Get(ctx, "ALHQR017"); cached != nil {
		t.Fatalf("expected snapshot to be invalidated")
	}

	snap, err = env.staff.GetStaff(ctx, "ALHQR017", "user-a")
	if err != nil || snap.WageBalance != 180 {
		t.Fatalf("expected refreshed balance 180, got %+v %v", snap, err)
	}
}
