package legacy

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/spec-kit/wage-wallet/internal/domain"
	"github.com/spec-kit/wage-wallet/internal/service"
)

// Field aliases found in exported staff documents. The first key present wins.
var (
	balanceKeys  = []string{"wageBalance", "wagebalance"}
	categoryKeys = []string{"category", "department"}
	worksKeys    = []string{"worksInitiated", "jobsInitiated"}
	phoneKeys    = []string{"mobile", "phone", "phoneNumber"}
)

// Record is one canonicalised legacy staff document.
type Record struct {
	Staff    domain.StaffRecord
	Warnings []string
}

// Issue describes a document that could not be canonicalised.
type Issue struct {
	StaffCode string
	Reason    string
}

// Parse reads a JSON object mapping staff code to document. Documents that
// fail canonicalisation are reported as issues and left out.
func Parse(r io.Reader) ([]Record, []Issue, error) {
	var export map[string]map[string]json.RawMessage
	if err := json.NewDecoder(r).Decode(&export); err != nil {
		return nil, nil, fmt.Errorf("decode legacy export: %w", err)
	}

	codes := make([]string, 0, len(export))
	for code := range export {
		codes = append(codes, code)
	}
	sort.Strings(codes)

	var (
		records []Record
		issues  []Issue
	)
	for _, code := range codes {
		rec, err := Canonicalize(code, export[code])
		if err != nil {
			issues = append(issues, Issue{StaffCode: code, Reason: err.Error()})
			continue
		}
		records = append(records, *rec)
	}
	return records, issues, nil
}

// Canonicalize collapses the duplicated legacy fields into one StaffRecord.
// The document's own staffCode wins over the map key when both are present.
// Session state is dropped; sessions are re-acquired after migration.
func Canonicalize(key string, doc map[string]json.RawMessage) (*Record, error) {
	out := &Record{}

	rawCode := stringField(doc, "staffCode")
	if rawCode == "" {
		rawCode = key
	}
	code, err := service.NormalizeStaffCode(rawCode)
	if err != nil {
		return nil, fmt.Errorf("staff code %q: %w", rawCode, err)
	}
	rec := &out.Staff
	rec.StaffCode = code
	rec.OwnerIdentity = stringField(doc, "uid")
	rec.Profile = domain.StaffProfile{
		Name:        stringField(doc, "name"),
		Branch:      stringField(doc, "branch"),
		Address:     stringField(doc, "address"),
		UpiID:       stringField(doc, "upiId"),
		BankAccount: stringField(doc, "bankAccount"),
		IFSC:        stringField(doc, "ifsc"),
	}
	rec.Category = firstString(doc, categoryKeys)
	rec.CreatedBy = stringField(doc, "createdBy")

	balance, err := amountField(doc, balanceKeys, out)
	if err != nil {
		return nil, err
	}
	rec.WageBalance = balance

	bonus, err := amountField(doc, []string{"bonus"}, out)
	if err != nil {
		return nil, err
	}
	rec.Bonus = bonus

	works, err := amountField(doc, worksKeys, out)
	if err != nil {
		return nil, err
	}
	rec.WorksInitiated = int(works)

	if raw := firstString(doc, phoneKeys); raw != "" {
		phone, err := service.NormalizePhone(raw)
		if err != nil {
			out.Warnings = append(out.Warnings, fmt.Sprintf("phone %q kept as is", raw))
			phone = raw
		}
		rec.Phone = phone
	}

	rec.CreatedAt = timeField(doc, "createdAt")
	rec.UpdatedAt = timeField(doc, "updatedAt")
	if rec.UpdatedAt.IsZero() {
		rec.UpdatedAt = rec.CreatedAt
	}
	return out, nil
}

func stringField(doc map[string]json.RawMessage, key string) string {
	raw, ok := doc[key]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return strings.TrimSpace(s)
}

func firstString(doc map[string]json.RawMessage, keys []string) string {
	for _, key := range keys {
		if s := stringField(doc, key); s != "" {
			return s
		}
	}
	return ""
}

// amountField reads the first present alias as a non-negative whole number.
// Numbers may be JSON numbers or numeric strings. Disagreeing aliases are
// recorded as a warning.
func amountField(doc map[string]json.RawMessage, keys []string, out *Record) (int64, error) {
	var (
		chosen    *decimal.Decimal
		chosenKey string
	)
	for _, key := range keys {
		raw, ok := doc[key]
		if !ok || string(raw) == "null" {
			continue
		}
		var d decimal.Decimal
		if err := d.UnmarshalJSON(raw); err != nil {
			return 0, fmt.Errorf("%s: not a number", key)
		}
		if chosen == nil {
			chosen, chosenKey = &d, key
			continue
		}
		if !d.Equal(*chosen) {
			out.Warnings = append(out.Warnings, fmt.Sprintf("%s=%s ignored in favour of %s=%s", key, d, chosenKey, chosen))
		}
	}
	if chosen == nil {
		return 0, nil
	}
	if chosen.Sign() < 0 {
		return 0, fmt.Errorf("%s: negative value %s", chosenKey, chosen)
	}
	if !chosen.IsInteger() {
		return 0, fmt.Errorf("%s: fractional value %s", chosenKey, chosen)
	}
	if !chosen.BigInt().IsInt64() {
		return 0, fmt.Errorf("%s: value %s out of range", chosenKey, chosen)
	}
	return chosen.IntPart(), nil
}

// timeField accepts RFC 3339 strings, epoch milliseconds and exported
// timestamp objects with seconds/nanoseconds.
func timeField(doc map[string]json.RawMessage, key string) time.Time {
	raw, ok := doc[key]
	if !ok {
		return time.Time{}
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
			return t.UTC()
		}
		return time.Time{}
	}
	var millis int64
	if err := json.Unmarshal(raw, &millis); err == nil {
		return time.UnixMilli(millis).UTC()
	}
	var ts struct {
		Seconds      *int64 `json:"_seconds"`
		Nanos        int64  `json:"_nanoseconds"`
		PlainSeconds *int64 `json:"seconds"`
		PlainNanos   int64  `json:"nanoseconds"`
	}
	if err := json.Unmarshal(raw, &ts); err != nil {
		return time.Time{}
	}
	switch {
	case ts.Seconds != nil:
		return time.Unix(*ts.Seconds, ts.Nanos).UTC()
	case ts.PlainSeconds != nil:
		return time.Unix(*ts.PlainSeconds, ts.PlainNanos).UTC()
	}
	return time.Time{}
}
