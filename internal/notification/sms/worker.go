package sms

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"bookingagent/internal/events"
	"bookingagent/internal/notification/outbox"
	"bookingagent/internal/tenant"
	"bookingagent/platform/logger"
)

const (
	maxSendAttempts  = 5
	defaultRateLimit = rate.Limit(1.0 / 3.0) // one SMS per phone per 3s
	defaultRateBurst = 2
	rateLimitBackoff = 10 * time.Second
)

// TenantLookup resolves a tenant's quiet hours and timezone for the
// pre-send guard.
type TenantLookup interface {
	GetByID(ctx context.Context, id uuid.UUID) (*tenant.Tenant, error)
}

// Worker drains events.NotificationOutboxDue for kind "sms": the
// pre-send guards, carrier call, and retry/backoff of spec.md §4.10.
// Grounded on internal/whatsapp/client.go's reconnect-then-retry-once
// shape for the carrier call itself; the guard chain (opt-out -> quiet
// hours -> rate limit) is this package's own addition, since nothing in
// the teacher gates a send on local business hours.
type Worker struct {
	Outbox  *outbox.Repository
	Carrier Carrier
	OptOut  OptOutStore
	Tenants TenantLookup
	Bus     events.Bus
	Log     *logger.Logger

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// AsHandler adapts Worker to events.Handler for events.Bus.Subscribe.
func (w *Worker) AsHandler() events.HandlerFunc {
	return func(ctx context.Context, event events.Event) error {
		due, ok := event.(events.NotificationOutboxDue)
		if !ok {
			return nil
		}
		return w.handle(ctx, due)
	}
}

func (w *Worker) handle(ctx context.Context, due events.NotificationOutboxDue) error {
	rec, err := w.Outbox.GetByID(ctx, due.OutboxID)
	if err != nil {
		return fmt.Errorf("load outbox row: %w", err)
	}
	if rec.Kind != "sms" {
		return nil
	}

	var payload confirmationPayload
	if err := json.Unmarshal(rec.Payload, &payload); err != nil {
		return w.markFailed(ctx, rec, "unknown", fmt.Sprintf("decode payload: %v", err))
	}

	if ok, err := w.optedOut(ctx, rec.TenantID.String(), payload.Phone); err == nil && ok {
		return w.markFailed(ctx, rec, string(CategoryOptOut), "recipient opted out")
	}

	if blocked, runAt := w.quietHoursBlock(ctx, rec.TenantID); blocked {
		msg := "deferred for tenant quiet hours"
		return w.Outbox.Reschedule(ctx, rec.ID, runAt, &msg)
	}

	if !w.allow(payload.Phone) {
		msg := "deferred for per-phone rate limit"
		return w.Outbox.Reschedule(ctx, rec.ID, time.Now().UTC().Add(rateLimitBackoff), &msg)
	}

	if err := w.Outbox.MarkProcessing(ctx, rec.ID); err != nil {
		return fmt.Errorf("mark processing: %w", err)
	}

	if w.Bus != nil {
		w.Bus.Publish(ctx, events.SMSOutboundAttempted{
			BaseEvent: events.NewBaseEvent(),
			TenantID:  rec.TenantID,
			OutboxID:  rec.ID,
			Attempt:   rec.Attempts + 1,
		})
	}

	sid, simulated, sendErr := w.Carrier.Send(ctx, payload.Phone, payload.Body)
	if sendErr != nil {
		category := categorizeSendError(sendErr)
		if category == CategoryOptOut {
			_ = w.OptOut.Record(ctx, rec.TenantID.String(), payload.Phone)
		}
		if rec.Attempts+1 >= maxSendAttempts || category == CategoryOptOut || category == CategoryInvalidNumber || category == CategoryBlocked {
			return w.markFailed(ctx, rec, string(category), sendErr.Error())
		}
		msg := sendErr.Error()
		backoff := time.Duration(rec.Attempts+1) * rateLimitBackoff
		return w.Outbox.Reschedule(ctx, rec.ID, time.Now().UTC().Add(backoff), &msg)
	}

	if err := w.Outbox.SetProviderSID(ctx, rec.ID, sid); err != nil {
		w.Log.Warn("record provider sid failed", "error", err)
	}
	if err := w.Outbox.MarkSucceeded(ctx, rec.ID); err != nil {
		return fmt.Errorf("mark succeeded: %w", err)
	}

	if w.Bus != nil {
		w.Bus.Publish(ctx, events.SMSOutboundSent{
			BaseEvent:     events.NewBaseEvent(),
			TenantID:      rec.TenantID,
			OutboxID:      rec.ID,
			MaskedSIDLast: maskSIDLast4(sid),
			Simulated:     simulated,
		})
	}
	return nil
}

func (w *Worker) markFailed(ctx context.Context, rec outbox.Record, category, detail string) error {
	if err := w.Outbox.MarkFailed(ctx, rec.ID, detail); err != nil {
		return fmt.Errorf("mark failed: %w", err)
	}
	if w.Bus != nil {
		w.Bus.Publish(ctx, events.SMSOutboundFailed{
			BaseEvent:     events.NewBaseEvent(),
			TenantID:      rec.TenantID,
			OutboxID:      rec.ID,
			ErrorCode:     detail,
			ErrorCategory: category,
		})
	}
	return nil
}

func (w *Worker) optedOut(ctx context.Context, tenantID, phone string) (bool, error) {
	if w.OptOut == nil {
		return false, nil
	}
	return w.OptOut.IsOptedOut(ctx, tenantID, phone)
}

func (w *Worker) quietHoursBlock(ctx context.Context, tenantID uuid.UUID) (bool, time.Time) {
	if w.Tenants == nil {
		return false, time.Time{}
	}
	t, err := w.Tenants.GetByID(ctx, tenantID)
	if err != nil || t == nil {
		return false, time.Time{}
	}
	loc, err := time.LoadLocation(t.Timezone)
	if err != nil {
		loc = time.UTC
	}
	now := time.Now().In(loc)
	minuteOfDay := now.Hour()*60 + now.Minute()
	if !t.QuietHours.Contains(minuteOfDay) {
		return false, time.Time{}
	}
	wait := t.QuietHours.EndMinute - minuteOfDay
	if wait <= 0 {
		wait += 24 * 60
	}
	minuteStart := time.Date(now.Year(), now.Month(), now.Day(), now.Hour(), now.Minute(), 0, 0, loc)
	return true, minuteStart.Add(time.Duration(wait) * time.Minute).UTC()
}

func (w *Worker) allow(phone string) bool {
	w.mu.Lock()
	if w.limiters == nil {
		w.limiters = make(map[string]*rate.Limiter)
	}
	limiter, ok := w.limiters[phone]
	if !ok {
		limiter = rate.NewLimiter(defaultRateLimit, defaultRateBurst)
		w.limiters[phone] = limiter
	}
	w.mu.Unlock()
	return limiter.Allow()
}

func maskSIDLast4(sid string) string {
	if len(sid) <= 4 {
		return sid
	}
	return "****" + sid[len(sid)-4:]
}
