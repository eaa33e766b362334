package cache

import (
	"context"
	"testing"
	"time"

	"github.com/spec-kit/wage-wallet/internal/domain"
)

func TestMemoryStaffCacheRoundTrip(t *testing.T) {
	c := NewMemoryStaffCache(time.Minute)
	ctx := context.Background()

	snap := SnapshotFromRecord(&domain.StaffRecord{
		StaffCode:   "ALHQR001",
		WageBalance: 9500,
		Profile:     domain.StaffProfile{Name: "Asha"},
	})
	if err := c.Set(ctx, snap); err != nil {
		t.Fatalf("set: %v", err)
	}

	got, err := c.Get(ctx, "ALHQR001")
	if err != nil || got == nil {
		t.Fatalf("expected hit, got %v %v", got, err)
	}
	if got.WageBalance != 9500 || got.Name != "Asha" {
		t.Fatalf("unexpected snapshot %+v", got)
	}

	if err := c.Invalidate(ctx, "ALHQR001"); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	if got, _ := c.Get(ctx, "ALHQR001"); got != nil {
		t.Fatalf("expected miss after invalidate")
	}
}

func TestMemoryStaffCacheExpires(t *testing.T) {
	c := NewMemoryStaffCache(time.Minute)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	_ = c.Set(context.Background(), &StaffSnapshot{StaffCode: "ALHQR002"})
	now = now.Add(2 * time.Minute)

	if got, _ := c.Get(context.Background(), "ALHQR002"); got != nil {
		t.Fatalf("expected expired entry to miss")
	}
}
