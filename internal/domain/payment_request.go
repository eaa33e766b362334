package domain

import "time"

// PaymentRequestStatus enumerates approval states.
type PaymentRequestStatus string

const (
	PaymentRequestPending  PaymentRequestStatus = "pending"
	PaymentRequestApproved PaymentRequestStatus = "approved"
	PaymentRequestRejected PaymentRequestStatus = "rejected"
)

// IsTerminal reports whether no further transition is allowed.
func (s PaymentRequestStatus) IsTerminal() bool {
	return s == PaymentRequestApproved || s == PaymentRequestRejected
}

// PaymentRequest is a staff-initiated redemption awaiting admin resolution.
type PaymentRequest struct {
	ID              string
	Number          int64
	StaffCode       string
	StaffName       string
	Amount          int64
	UpiID           string
	Status          PaymentRequestStatus
	RequestedBy     string
	CreatedAt       time.Time
	UpdatedAt       time.Time
	ApprovedAt      *time.Time
	ApprovedBy      *string
	RejectedAt      *time.Time
	RejectedBy      *string
	RejectionReason *string
}
