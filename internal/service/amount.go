package service

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	apperrors "github.com/spec-kit/wage-wallet/pkg/util/errorutil"
)

var staffCodePattern = regexp.MustCompile(`^[A-Z]+[0-9]+$`)

const msgInvalidAmount = "amount must be a positive integer."

// ParseAmount accepts a decimal literal denoting a positive whole number of
// rupees ("300", "300.0") and rejects fractions, zero, negatives and junk.
func ParseAmount(raw string) (int64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, apperrors.NewInvalidArgument(msgInvalidAmount, nil)
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return 0, apperrors.NewInvalidArgument(msgInvalidAmount, map[string]any{"amount": raw})
	}
	if d.Sign() <= 0 || !d.IsInteger() || !d.BigInt().IsInt64() {
		return 0, apperrors.NewInvalidArgument(msgInvalidAmount, map[string]any{"amount": raw})
	}
	return d.IntPart(), nil
}

func validateAmount(amount int64) error {
	if amount <= 0 {
		return apperrors.NewInvalidArgument(msgInvalidAmount, map[string]any{"amount": amount})
	}
	return nil
}

// FormatRupees renders a whole-rupee amount for display, e.g. "₹1,250.00".
func FormatRupees(amount int64) string {
	fixed := decimal.NewFromInt(amount).Abs().StringFixed(2)
	whole, frac, _ := strings.Cut(fixed, ".")

	var b strings.Builder
	if amount < 0 {
		b.WriteByte('-')
	}
	b.WriteString("₹")
	for i, r := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	b.WriteByte('.')
	b.WriteString(frac)
	return b.String()
}

// NormalizeStaffCode trims and upper-cases a staff code and checks its shape.
func NormalizeStaffCode(raw string) (string, error) {
	code := strings.ToUpper(strings.TrimSpace(raw))
	if code == "" {
		return "", apperrors.NewInvalidArgument("staffCode is required.", nil)
	}
	if !staffCodePattern.MatchString(code) {
		return "", apperrors.NewInvalidArgument("staffCode is invalid.", map[string]any{"staffCode": raw})
	}
	return code, nil
}

func truncateRunes(value string, max int) string {
	if max <= 0 {
		return value
	}
	runes := []rune(value)
	if len(runes) <= max {
		return value
	}
	return string(runes[:max])
}
