package dto

import (
	"encoding/json"
	"time"

	"github.com/spec-kit/wage-wallet/internal/domain"
)

// StaffCodeRequest carries only a staff code.
type StaffCodeRequest struct {
	StaffCode string `json:"staffCode"`
}

// AmountRequest is the payload of validatePayment and updateWageBalance.
// Amount stays a json.Number so fractional input can be rejected instead of
// silently truncated.
type AmountRequest struct {
	StaffCode string      `json:"staffCode"`
	Amount    json.Number `json:"amount"`
}

// ProfileRequest is the payload of updateStaffProfile.
type ProfileRequest struct {
	StaffCode string         `json:"staffCode"`
	Profile   map[string]any `json:"profile"`
}

// RedemptionRequest files a payout request.
type RedemptionRequest struct {
	StaffCode string      `json:"staffCode"`
	Amount    json.Number `json:"amount"`
	UpiID     string      `json:"upiId"`
}

// AcquireSessionResponse mirrors the callable result.
type AcquireSessionResponse struct {
	SessionAcquired bool   `json:"sessionAcquired"`
	Created         bool   `json:"created"`
	WageBalance     int64  `json:"wageBalance"`
	Phone           string `json:"phone"`
	Message         string `json:"message"`
}

// ValidatePaymentResponse is the advisory balance check result.
type ValidatePaymentResponse struct {
	Approved bool   `json:"approved"`
	Message  string `json:"message"`
}

// UpdateWageBalanceResponse reports the balance after a redemption.
type UpdateWageBalanceResponse struct {
	NewBalance int64 `json:"newBalance"`
}

// PaymentResponse is one ledger entry.
type PaymentResponse struct {
	ID        string               `json:"id"`
	StaffCode string               `json:"staffCode"`
	Amount    int64                `json:"amount"`
	Display   string               `json:"display"`
	Type      domain.PaymentType   `json:"type"`
	Status    domain.PaymentStatus `json:"status"`
	Reason    string               `json:"reason"`
	Actor     string               `json:"actor,omitempty"`
	RequestID *string              `json:"requestId,omitempty"`
	CreatedAt time.Time            `json:"createdAt"`
}

// PaymentRequestResponse is one payout request.
type PaymentRequestResponse struct {
	ID              string                      `json:"id"`
	Number          int64                       `json:"number"`
	StaffCode       string                      `json:"staffCode"`
	StaffName       string                      `json:"staffName"`
	Amount          int64                       `json:"amount"`
	UpiID           string                      `json:"upiId"`
	Status          domain.PaymentRequestStatus `json:"status"`
	CreatedAt       time.Time                   `json:"createdAt"`
	ApprovedAt      *time.Time                  `json:"approvedAt,omitempty"`
	ApprovedBy      *string                     `json:"approvedBy,omitempty"`
	RejectedAt      *time.Time                  `json:"rejectedAt,omitempty"`
	RejectedBy      *string                     `json:"rejectedBy,omitempty"`
	RejectionReason *string                     `json:"rejectionReason,omitempty"`
}
