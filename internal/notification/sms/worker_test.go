package sms

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"bookingagent/internal/tenant"
)

type fakeTenantLookup struct {
	t *tenant.Tenant
}

func (f fakeTenantLookup) GetByID(ctx context.Context, id uuid.UUID) (*tenant.Tenant, error) {
	return f.t, nil
}

func TestMaskSIDLast4(t *testing.T) {
	if got := maskSIDLast4("SM1234567890"); got != "****7890" {
		t.Fatalf("expected masked sid, got %q", got)
	}
	if got := maskSIDLast4("ab"); got != "ab" {
		t.Fatalf("expected short sid returned unchanged, got %q", got)
	}
}

func TestWorkerAllowRateLimitsPerPhone(t *testing.T) {
	w := &Worker{}
	phone := "+15551234567"

	allowed := 0
	for i := 0; i < defaultRateBurst+1; i++ {
		if w.allow(phone) {
			allowed++
		}
	}
	if allowed != defaultRateBurst {
		t.Fatalf("expected exactly burst(%d) sends allowed back-to-back, got %d", defaultRateBurst, allowed)
	}

	other := "+15557654321"
	if !w.allow(other) {
		t.Fatal("expected a different phone number to have its own independent limiter")
	}
}

func TestWorkerQuietHoursBlock(t *testing.T) {
	tenantID := uuid.New()
	tt := &tenant.Tenant{
		ID:       tenantID,
		Timezone: "UTC",
		QuietHours: tenant.QuietHours{
			StartMinute: 0,
			EndMinute:   24 * 60, // blocks all day, deterministic regardless of test run time
		},
	}
	w := &Worker{Tenants: fakeTenantLookup{t: tt}}

	blocked, runAt := w.quietHoursBlock(context.Background(), tenantID)
	if !blocked {
		t.Fatal("expected quiet hours to block when the window spans the full day")
	}
	if !runAt.After(time.Now()) {
		t.Fatalf("expected reschedule time in the future, got %v", runAt)
	}
}

func TestWorkerQuietHoursBlockNoTenantLookup(t *testing.T) {
	w := &Worker{}
	blocked, _ := w.quietHoursBlock(context.Background(), uuid.New())
	if blocked {
		t.Fatal("expected no block when no TenantLookup is configured")
	}
}
