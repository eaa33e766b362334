package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/spec-kit/wage-wallet/internal/cache"
	"github.com/spec-kit/wage-wallet/internal/config"
	"github.com/spec-kit/wage-wallet/internal/domain"
	"github.com/spec-kit/wage-wallet/internal/events"
	"github.com/spec-kit/wage-wallet/internal/repository"
	apperrors "github.com/spec-kit/wage-wallet/pkg/util/errorutil"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type testEnv struct {
	store    *repository.MemoryStore
	cache    *cache.MemoryStaffCache
	clock    *fakeClock
	events   []events.Event
	eventsMu sync.Mutex

	sessions *SessionService
	wallet   *WalletService
	requests *PaymentRequestService
	ledger   *LedgerService
	staff    *StaffService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{
		store: repository.NewMemoryStore(),
		cache: cache.NewMemoryStaffCache(time.Hour),
		clock: newFakeClock(),
	}
	dispatcher := events.NewInMemoryDispatcher()
	record := func(_ context.Context, e events.Event) error {
		env.eventsMu.Lock()
		env.events = append(env.events, e)
		env.eventsMu.Unlock()
		return nil
	}
	for _, et := range events.WalletEventTypes {
		dispatcher.Subscribe(et, record)
	}

	deps := WalletDependencies{
		Store:      env.store,
		Cache:      env.cache,
		Dispatcher: dispatcher,
		Config:     config.DefaultWalletConfig(),
		Now:        env.clock.Now,
	}
	env.sessions = NewSessionService(deps)
	env.wallet = NewWalletService(deps)
	env.requests = NewPaymentRequestService(deps)
	env.ledger = NewLedgerService(deps)
	env.staff = NewStaffService(deps)
	return env
}

func (e *testEnv) eventCount(eventType events.EventType) int {
	e.eventsMu.Lock()
	defer e.eventsMu.Unlock()
	n := 0
	for _, ev := range e.events {
		if ev.Type == eventType {
			n++
		}
	}
	return n
}

// seed writes a record directly, bypassing the services.
func (e *testEnv) seed(t *testing.T, rec domain.StaffRecord) {
	t.Helper()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = e.clock.Now()
		rec.UpdatedAt = rec.CreatedAt
	}
	err := e.store.RunInTx(context.Background(), func(tx repository.Tx) error {
		return tx.InsertStaff(context.Background(), &rec)
	})
	if err != nil {
		t.Fatalf("seed %s: %v", rec.StaffCode, err)
	}
}

// seedOwned creates a record owned by identity and acquires its session.
func (e *testEnv) seedOwned(t *testing.T, code, identity string, balance int64) {
	t.Helper()
	e.seed(t, domain.StaffRecord{StaffCode: code, OwnerIdentity: identity, WageBalance: balance})
	if _, err := e.sessions.AcquireSession(context.Background(), code, identity, ""); err != nil {
		t.Fatalf("acquire %s: %v", code, err)
	}
}

func (e *testEnv) balance(t *testing.T, code string) int64 {
	t.Helper()
	rec, err := e.store.GetStaff(context.Background(), code)
	if err != nil {
		t.Fatalf("get %s: %v", code, err)
	}
	return rec.WageBalance
}

func (e *testEnv) payments(t *testing.T, code string) []domain.PaymentRecord {
	t.Helper()
	payments, err := e.store.ListPayments(context.Background(), repository.PaymentFilter{StaffCode: code, Limit: 1000})
	if err != nil {
		t.Fatalf("list payments: %v", err)
	}
	return payments
}

func expectCode(t *testing.T, err error, code string) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s error, got nil", code)
	}
	if !apperrors.HasCode(err, code) {
		t.Fatalf("expected %s error, got %v", code, err)
	}
}
