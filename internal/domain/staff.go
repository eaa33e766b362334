package domain

import "time"

// Profile field keys accepted from the owning identity.
const (
	ProfileFieldName        = "name"
	ProfileFieldBranch      = "branch"
	ProfileFieldAddress     = "address"
	ProfileFieldUpiID       = "upiId"
	ProfileFieldBankAccount = "bankAccount"
	ProfileFieldIFSC        = "ifsc"
)

// ProfileFields lists the mutable profile keys in a stable order.
var ProfileFields = []string{
	ProfileFieldName,
	ProfileFieldBranch,
	ProfileFieldAddress,
	ProfileFieldUpiID,
	ProfileFieldBankAccount,
	ProfileFieldIFSC,
}

// ActiveSession is an exclusive claim by one identity on a staff code.
type ActiveSession struct {
	Holder    string
	CreatedAt time.Time
	LastSeen  time.Time
}

// HeldBy reports whether identity currently holds the session.
func (s *ActiveSession) HeldBy(identity string) bool {
	return s != nil && identity != "" && s.Holder == identity
}

// IsStale reports whether the session has been idle longer than ttl.
func (s *ActiveSession) IsStale(now time.Time, ttl time.Duration) bool {
	if s == nil {
		return true
	}
	return now.Sub(s.LastSeen) > ttl
}

// StaffProfile holds contact and payout details editable by the owner.
type StaffProfile struct {
	Name        string
	Branch      string
	Address     string
	UpiID       string
	BankAccount string
	IFSC        string
}

// Set assigns a profile field by key. Unknown keys are ignored.
func (p *StaffProfile) Set(key, value string) bool {
	switch key {
	case ProfileFieldName:
		p.Name = value
	case ProfileFieldBranch:
		p.Branch = value
	case ProfileFieldAddress:
		p.Address = value
	case ProfileFieldUpiID:
		p.UpiID = value
	case ProfileFieldBankAccount:
		p.BankAccount = value
	case ProfileFieldIFSC:
		p.IFSC = value
	default:
		return false
	}
	return true
}

// StaffRecord is the persisted wallet of one staff code.
type StaffRecord struct {
	StaffCode      string
	OwnerIdentity  string
	Phone          string
	WageBalance    int64
	Bonus          int64
	ActiveSession  *ActiveSession
	Profile        StaffProfile
	WorksInitiated int
	Category       string
	CreatedBy      string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// OwnedBy reports whether identity is the pinned owner.
func (r *StaffRecord) OwnedBy(identity string) bool {
	return r.OwnerIdentity != "" && r.OwnerIdentity == identity
}

// Clone returns a deep copy safe to mutate.
func (r *StaffRecord) Clone() *StaffRecord {
	if r == nil {
		return nil
	}
	cp := *r
	if r.ActiveSession != nil {
		session := *r.ActiveSession
		cp.ActiveSession = &session
	}
	return &cp
}
