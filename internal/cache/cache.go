package cache

import (
	"context"
	"time"

	"github.com/spec-kit/wage-wallet/internal/domain"
)

// StaffSnapshot is the read-model of a staff record served to dashboards.
// Session state is deliberately absent: it changes on every call.
type StaffSnapshot struct {
	StaffCode      string    `json:"staffCode"`
	OwnerIdentity  string    `json:"ownerIdentity,omitempty"`
	Phone          string    `json:"phone,omitempty"`
	WageBalance    int64     `json:"wageBalance"`
	Bonus          int64     `json:"bonus"`
	Name           string    `json:"name,omitempty"`
	Branch         string    `json:"branch,omitempty"`
	Address        string    `json:"address,omitempty"`
	UpiID          string    `json:"upiId,omitempty"`
	BankAccount    string    `json:"bankAccount,omitempty"`
	IFSC           string    `json:"ifsc,omitempty"`
	WorksInitiated int       `json:"worksInitiated"`
	Category       string    `json:"category,omitempty"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// StaffCache stores snapshots by staff code. Get returns (nil, nil) on a miss.
type StaffCache interface {
	Get(ctx context.Context, staffCode string) (*StaffSnapshot, error)
	Set(ctx context.Context, snapshot *StaffSnapshot) error
	Invalidate(ctx context.Context, staffCode string) error
}

// SnapshotFromRecord projects a store record into its cached form.
func SnapshotFromRecord(rec *domain.StaffRecord) *StaffSnapshot {
	if rec == nil {
		return nil
	}
	return &StaffSnapshot{
		StaffCode:      rec.StaffCode,
		OwnerIdentity:  rec.OwnerIdentity,
		Phone:          rec.Phone,
		WageBalance:    rec.WageBalance,
		Bonus:          rec.Bonus,
		Name:           rec.Profile.Name,
		Branch:         rec.Profile.Branch,
		Address:        rec.Profile.Address,
		UpiID:          rec.Profile.UpiID,
		BankAccount:    rec.Profile.BankAccount,
		IFSC:           rec.Profile.IFSC,
		WorksInitiated: rec.WorksInitiated,
		Category:       rec.Category,
		UpdatedAt:      rec.UpdatedAt,
	}
}
