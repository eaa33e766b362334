package domain

import "time"

// PaymentType captures the balance direction of a ledger entry.
type PaymentType string

const (
	PaymentTypeDebit  PaymentType = "debit"
	PaymentTypeCredit PaymentType = "credit"
	PaymentTypeBonus  PaymentType = "bonus"
)

// PaymentStatus enumerates ledger entry states.
type PaymentStatus string

const (
	PaymentStatusCompleted PaymentStatus = "completed"
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusApproved  PaymentStatus = "approved"
	PaymentStatusRejected  PaymentStatus = "rejected"
)

// PaymentRecord is an immutable ledger entry for a balance-affecting event.
type PaymentRecord struct {
	ID            string
	StaffCode     string
	OwnerIdentity string
	Amount        int64
	Type          PaymentType
	Status        PaymentStatus
	Reason        string
	Actor         string
	RequestID     *string
	CreatedAt     time.Time
}

// SignedAmount returns the balance effect of the entry.
func (p PaymentRecord) SignedAmount() int64 {
	if p.Type == PaymentTypeDebit {
		return -p.Amount
	}
	return p.Amount
}
