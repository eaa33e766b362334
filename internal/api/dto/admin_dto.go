package dto

import (
	"encoding/json"
	"time"
)

// RegisterStaffRequest is the admin payload for creating a staff record.
type RegisterStaffRequest struct {
	StaffCode      string      `json:"staffCode"`
	Name           string      `json:"name"`
	Phone          string      `json:"phone"`
	Branch         string      `json:"branch"`
	Category       string      `json:"category"`
	OpeningBalance json.Number `json:"openingBalance"`
}

// CreditRequest books money or a tip to a staff wallet.
type CreditRequest struct {
	Amount json.Number `json:"amount"`
	Kind   string      `json:"kind"`
	Reason string      `json:"reason"`
}

// WorksRequest overwrites the works counter.
type WorksRequest struct {
	WorksInitiated *int `json:"worksInitiated"`
}

// CategoryRequest overwrites the category label.
type CategoryRequest struct {
	Category string `json:"category"`
}

// RejectRequest carries an optional rejection reason.
type RejectRequest struct {
	Reason string `json:"reason"`
}

// SessionResponse is the admin view of an active session.
type SessionResponse struct {
	Holder    string    `json:"holder"`
	CreatedAt time.Time `json:"createdAt"`
	LastSeen  time.Time `json:"lastSeen"`
}

// StaffResponse is the admin view of a staff record.
type StaffResponse struct {
	StaffCode      string           `json:"staffCode"`
	OwnerIdentity  string           `json:"ownerIdentity,omitempty"`
	Phone          string           `json:"phone,omitempty"`
	WageBalance    int64            `json:"wageBalance"`
	Bonus          int64            `json:"bonus"`
	Name           string           `json:"name,omitempty"`
	Branch         string           `json:"branch,omitempty"`
	Address        string           `json:"address,omitempty"`
	UpiID          string           `json:"upiId,omitempty"`
	BankAccount    string           `json:"bankAccount,omitempty"`
	IFSC           string           `json:"ifsc,omitempty"`
	WorksInitiated int              `json:"worksInitiated"`
	Category       string           `json:"category,omitempty"`
	ActiveSession  *SessionResponse `json:"activeSession,omitempty"`
	CreatedBy      string           `json:"createdBy,omitempty"`
	CreatedAt      time.Time        `json:"createdAt"`
	UpdatedAt      time.Time        `json:"updatedAt"`
}

// CreditResponse reports a committed credit.
type CreditResponse struct {
	Payment    PaymentResponse `json:"payment"`
	NewBalance int64           `json:"newBalance"`
	Bonus      int64           `json:"bonus"`
}

// SummaryResponse aggregates dashboard totals.
type SummaryResponse struct {
	StaffCount      int64  `json:"staffCount"`
	TotalBalance    int64  `json:"totalBalance"`
	TotalBonus      int64  `json:"totalBonus"`
	PendingRequests int64  `json:"pendingRequests"`
	PendingAmount   int64  `json:"pendingAmount"`
	TotalDisplay    string `json:"totalDisplay"`
}
