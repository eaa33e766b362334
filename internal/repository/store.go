package repository

import (
	"context"
	"errors"
	"time"

	"github.com/spec-kit/wage-wallet/internal/domain"
)

var (
	// ErrNotFound is returned when a keyed record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrAlreadyExists is returned when inserting a duplicate key.
	ErrAlreadyExists = errors.New("record already exists")
	// ErrTxConflict asks the store to retry the whole transaction.
	ErrTxConflict = errors.New("transaction conflict")
)

// Sequence names allocated through Tx.NextSequence.
const SequencePaymentRequests = "paymentRequests"

// Store is the staff record store plus ledger. Implementations are chosen at
// startup and never switched per call.
type Store interface {
	// RunInTx executes fn atomically. Writes made through tx become visible
	// only if fn returns nil; any error discards them all.
	RunInTx(ctx context.Context, fn func(tx Tx) error) error

	GetStaff(ctx context.Context, staffCode string) (*domain.StaffRecord, error)
	ListStaff(ctx context.Context, filter StaffFilter) ([]domain.StaffRecord, error)
	Totals(ctx context.Context) (Totals, error)
	ListPayments(ctx context.Context, filter PaymentFilter) ([]domain.PaymentRecord, error)
	GetPaymentRequest(ctx context.Context, id string) (*domain.PaymentRequest, error)
	ListPaymentRequests(ctx context.Context, filter PaymentRequestFilter) ([]domain.PaymentRequest, error)

	Ping(ctx context.Context) error
	Close()
}

// Tx is the unit of work handed to Store.RunInTx. Reads lock the row for the
// remainder of the transaction.
type Tx interface {
	GetStaffForUpdate(ctx context.Context, staffCode string) (*domain.StaffRecord, error)
	InsertStaff(ctx context.Context, rec *domain.StaffRecord) error
	UpdateStaff(ctx context.Context, rec *domain.StaffRecord) error
	InsertPayment(ctx context.Context, payment *domain.PaymentRecord) error
	GetPaymentRequestForUpdate(ctx context.Context, id string) (*domain.PaymentRequest, error)
	InsertPaymentRequest(ctx context.Context, req *domain.PaymentRequest) error
	UpdatePaymentRequest(ctx context.Context, req *domain.PaymentRequest) error
	NextSequence(ctx context.Context, name string) (int64, error)
}

// StaffFilter defines query params for staff listing.
type StaffFilter struct {
	Search string
	Limit  int
	Offset int
}

// PaymentFilter selects ledger entries, newest first.
type PaymentFilter struct {
	StaffCode     string
	OwnerIdentity string
	Limit         int
}

// PaymentRequestFilter selects payment requests, newest first.
type PaymentRequestFilter struct {
	Status      *domain.PaymentRequestStatus
	StaffCode   string
	Search      string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
	Limit       int
	Offset      int
}

// Totals aggregates the admin dashboard figures.
type Totals struct {
	StaffCount      int64
	TotalBalance    int64
	TotalBonus      int64
	PendingRequests int64
	PendingAmount   int64
}

func normalizeLimit(limit, fallback int) int {
	if limit <= 0 {
		return fallback
	}
	return limit
}
