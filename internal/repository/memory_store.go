package repository

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/spec-kit/wage-wallet/internal/domain"
)

// MemoryStore is an in-process Store. Transactions are serialized by a single
// mutex and their writes are staged until fn succeeds.
type MemoryStore struct {
	mu       sync.Mutex
	staff    map[string]*domain.StaffRecord
	payments []domain.PaymentRecord
	requests map[string]*domain.PaymentRequest
	counters map[string]int64
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		staff:    make(map[string]*domain.StaffRecord),
		requests: make(map[string]*domain.PaymentRequest),
		counters: make(map[string]int64),
	}
}

// RunInTx runs fn with exclusive access and applies staged writes on success.
func (s *MemoryStore) RunInTx(ctx context.Context, fn func(tx Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &memoryTx{
		store:    s,
		staff:    make(map[string]*domain.StaffRecord),
		requests: make(map[string]*domain.PaymentRequest),
		counters: make(map[string]int64),
	}
	if err := fn(tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	for code, rec := range tx.staff {
		s.staff[code] = rec
	}
	for id, req := range tx.requests {
		s.requests[id] = req
	}
	for name, value := range tx.counters {
		s.counters[name] = value
	}
	s.payments = append(s.payments, tx.payments...)
	return nil
}

func (s *MemoryStore) GetStaff(ctx context.Context, staffCode string) (*domain.StaffRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.staff[staffCode]
	if !ok {
		return nil, ErrNotFound
	}
	return rec.Clone(), nil
}

func (s *MemoryStore) ListStaff(ctx context.Context, filter StaffFilter) ([]domain.StaffRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	search := strings.ToLower(strings.TrimSpace(filter.Search))
	result := make([]domain.StaffRecord, 0, len(s.staff))
	for _, rec := range s.staff {
		if search != "" &&
			!strings.Contains(strings.ToLower(rec.StaffCode), search) &&
			!strings.Contains(strings.ToLower(rec.Profile.Name), search) &&
			!strings.Contains(rec.Phone, search) {
			continue
		}
		result = append(result, *rec.Clone())
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return paginate(result, filter.Limit, filter.Offset), nil
}

func (s *MemoryStore) Totals(ctx context.Context) (Totals, error) {
	if err := ctx.Err(); err != nil {
		return Totals{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var totals Totals
	for _, rec := range s.staff {
		totals.StaffCount++
		totals.TotalBalance += rec.WageBalance
		totals.TotalBonus += rec.Bonus
	}
	for _, req := range s.requests {
		if req.Status == domain.PaymentRequestPending {
			totals.PendingRequests++
			totals.PendingAmount += req.Amount
		}
	}
	return totals, nil
}

func (s *MemoryStore) ListPayments(ctx context.Context, filter PaymentFilter) ([]domain.PaymentRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	limit := normalizeLimit(filter.Limit, 50)
	result := make([]domain.PaymentRecord, 0)
	for i := len(s.payments) - 1; i >= 0 && len(result) < limit; i-- {
		p := s.payments[i]
		if filter.StaffCode != "" && p.StaffCode != filter.StaffCode {
			continue
		}
		if filter.OwnerIdentity != "" && p.OwnerIdentity != filter.OwnerIdentity {
			continue
		}
		result = append(result, p)
	}
	return result, nil
}

func (s *MemoryStore) GetPaymentRequest(ctx context.Context, id string) (*domain.PaymentRequest, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	req, ok := s.requests[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *req
	return &cp, nil
}

func (s *MemoryStore) ListPaymentRequests(ctx context.Context, filter PaymentRequestFilter) ([]domain.PaymentRequest, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	search := strings.ToLower(strings.TrimSpace(filter.Search))
	result := make([]domain.PaymentRequest, 0)
	for _, req := range s.requests {
		if filter.Status != nil && req.Status != *filter.Status {
			continue
		}
		if filter.StaffCode != "" && req.StaffCode != filter.StaffCode {
			continue
		}
		if filter.CreatedFrom != nil && req.CreatedAt.Before(*filter.CreatedFrom) {
			continue
		}
		if filter.CreatedTo != nil && req.CreatedAt.After(*filter.CreatedTo) {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(req.StaffCode), search) &&
			!strings.Contains(strings.ToLower(req.StaffName), search) &&
			!strings.Contains(strings.ToLower(req.UpiID), search) {
			continue
		}
		result = append(result, *req)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Number > result[j].Number
	})
	return paginate(result, filter.Limit, filter.Offset), nil
}

// Ping always succeeds for the in-memory store.
func (s *MemoryStore) Ping(context.Context) error { return nil }

// Close is a no-op.
func (s *MemoryStore) Close() {}

type memoryTx struct {
	store    *MemoryStore
	staff    map[string]*domain.StaffRecord
	payments []domain.PaymentRecord
	requests map[string]*domain.PaymentRequest
	counters map[string]int64
}

func (t *memoryTx) lookupStaff(code string) (*domain.StaffRecord, bool) {
	if rec, ok := t.staff[code]; ok {
		return rec, true
	}
	rec, ok := t.store.staff[code]
	return rec, ok
}

func (t *memoryTx) GetStaffForUpdate(_ context.Context, staffCode string) (*domain.StaffRecord, error) {
	rec, ok := t.lookupStaff(staffCode)
	if !ok {
		return nil, ErrNotFound
	}
	return rec.Clone(), nil
}

func (t *memoryTx) InsertStaff(_ context.Context, rec *domain.StaffRecord) error {
	if _, ok := t.lookupStaff(rec.StaffCode); ok {
		return ErrAlreadyExists
	}
	t.staff[rec.StaffCode] = rec.Clone()
	return nil
}

func (t *memoryTx) UpdateStaff(_ context.Context, rec *domain.StaffRecord) error {
	if _, ok := t.lookupStaff(rec.StaffCode); !ok {
		return ErrNotFound
	}
	t.staff[rec.StaffCode] = rec.Clone()
	return nil
}

func (t *memoryTx) InsertPayment(_ context.Context, payment *domain.PaymentRecord) error {
	if payment.ID == "" {
		payment.ID = uuid.NewString()
	}
	t.payments = append(t.payments, *payment)
	return nil
}

func (t *memoryTx) lookupRequest(id string) (*domain.PaymentRequest, bool) {
	if req, ok := t.requests[id]; ok {
		return req, true
	}
	req, ok := t.store.requests[id]
	return req, ok
}

func (t *memoryTx) GetPaymentRequestForUpdate(_ context.Context, id string) (*domain.PaymentRequest, error) {
	req, ok := t.lookupRequest(id)
	if !ok {
		return nil, ErrNotFound
	}
	cp := *req
	return &cp, nil
}

func (t *memoryTx) InsertPaymentRequest(_ context.Context, req *domain.PaymentRequest) error {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	if _, ok := t.lookupRequest(req.ID); ok {
		return ErrAlreadyExists
	}
	cp := *req
	t.requests[req.ID] = &cp
	return nil
}

func (t *memoryTx) UpdatePaymentRequest(_ context.Context, req *domain.PaymentRequest) error {
	if _, ok := t.lookupRequest(req.ID); !ok {
		return ErrNotFound
	}
	cp := *req
	t.requests[req.ID] = &cp
	return nil
}

func (t *memoryTx) NextSequence(_ context.Context, name string) (int64, error) {
	current, ok := t.counters[name]
	if !ok {
		current = t.store.counters[name]
	}
	current++
	t.counters[name] = current
	return current, nil
}

func paginate[T any](items []T, limit, offset int) []T {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(items) {
		return []T{}
	}
	items = items[offset:]
	limit = normalizeLimit(limit, 50)
	if limit < len(items) {
		items = items[:limit]
	}
	return items
}
