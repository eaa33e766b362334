package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/wage-wallet/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventSessionAcquired        EventType = "session_acquired"
	EventSessionReleased        EventType = "session_released"
	EventRedemptionCommitted    EventType = "redemption_committed"
	EventCreditCommitted        EventType = "credit_committed"
	EventPaymentRequestCreated  EventType = "payment_request_created"
	EventPaymentRequestApproved EventType = "payment_request_approved"
	EventPaymentRequestRejected EventType = "payment_request_rejected"
	EventStaffRegistered        EventType = "staff_registered"
)

// WalletEventTypes lists every event the wallet services publish.
var WalletEventTypes = []EventType{
	EventSessionAcquired,
	EventSessionReleased,
	EventRedemptionCommitted,
	EventCreditCommitted,
	EventPaymentRequestCreated,
	EventPaymentRequestApproved,
	EventPaymentRequestRejected,
	EventStaffRegistered,
}

// Actor encapsulates actor metadata for an event.
type Actor struct {
	Type     domain.SubjectType `json:"type"`
	Identity string             `json:"identity"`
}

// Event represents a committed wallet change. Events are published only
// after the transaction that produced them has committed.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	StaffCode string      `json:"staff_code"`
	Actor     Actor       `json:"actor"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// NewEvent stamps a fresh id.
func NewEvent(eventType EventType, staffCode string, actor Actor, at time.Time, payload interface{}) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		StaffCode: staffCode,
		Actor:     actor,
		Timestamp: at,
		Payload:   payload,
	}
}

// SessionAcquiredPayload payload.
type SessionAcquiredPayload struct {
	Created   bool `json:"created"`
	Preempted bool `json:"preempted"`
}

// RedemptionCommittedPayload payload.
type RedemptionCommittedPayload struct {
	PaymentID  string `json:"payment_id"`
	Amount     int64  `json:"amount"`
	NewBalance int64  `json:"new_balance"`
}

// CreditCommittedPayload payload.
type CreditCommittedPayload struct {
	PaymentID  string             `json:"payment_id"`
	Amount     int64              `json:"amount"`
	Type       domain.PaymentType `json:"type"`
	Reason     string             `json:"reason"`
	NewBalance int64              `json:"new_balance"`
}

// PaymentRequestPayload payload shared by request lifecycle events.
type PaymentRequestPayload struct {
	RequestID string                      `json:"request_id"`
	Number    int64                       `json:"number"`
	Amount    int64                       `json:"amount"`
	UpiID     string                      `json:"upi_id,omitempty"`
	Status    domain.PaymentRequestStatus `json:"status"`
	Reason    string                      `json:"reason,omitempty"`
}

// StaffRegisteredPayload payload.
type StaffRegisteredPayload struct {
	OpeningBalance int64 `json:"opening_balance"`
}
