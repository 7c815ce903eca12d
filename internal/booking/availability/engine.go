package availability

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"bookingagent/internal/booking/clock"
	"bookingagent/platform/apperr"
)

// Engine generates and classifies candidate slots for a tenant. It is the
// direct descendant of the teacher's GetAvailableSlots/generateDaySlots/
// processTimeWindow chain, generalized to read conflicts from an external
// calendar in addition to appointments and holds.
type Engine struct {
	clock     clock.Clock
	calendar  TenantCalendar
	appts     ConflictSource
	holds     ConflictSource
	providers map[uuid.UUID]CalendarProvider
	cache     *BusyRangeCache
}

// NewEngine builds an Engine with no external-calendar providers bound;
// BindCalendar registers one per tenant, and a tenant with none is read
// from appointments and holds only (matching the teacher's "tenant with
// no integration" case).
func NewEngine(clk clock.Clock, calendar TenantCalendar, appts, holds ConflictSource, cache *BusyRangeCache) *Engine {
	return &Engine{
		clock:     clk,
		calendar:  calendar,
		appts:     appts,
		holds:     holds,
		providers: make(map[uuid.UUID]CalendarProvider),
		cache:     cache,
	}
}

// BindCalendar registers the external-calendar provider for a tenant.
// Tenants never registered here are treated as having no binding.
func (e *Engine) BindCalendar(tenantID uuid.UUID, provider CalendarProvider) {
	e.providers[tenantID] = provider
}

// GetAvailableSlots implements the public operation
// getAvailableSlots(tenant, fromUTC, toUTC).
func (e *Engine) GetAvailableSlots(ctx context.Context, tenant TenantConfig, fromUTC, toUTC time.Time) (*Result, error) {
	loc, err := time.LoadLocation(tenant.Timezone)
	if err != nil {
		loc = time.UTC
	}

	hours, err := e.calendar.WeeklyHours(ctx, tenant.ID)
	if err != nil {
		return nil, apperr.Internal("load business hours: " + err.Error())
	}
	overrides, err := e.calendar.DateOverrides(ctx, tenant.ID, fromUTC, toUTC)
	if err != nil {
		return nil, apperr.Internal("load date overrides: " + err.Error())
	}
	overrideByDate := make(map[string]DateOverride, len(overrides))
	for _, o := range overrides {
		overrideByDate[o.Date.Format("2006-01-02")] = o
	}

	appointmentRanges, holdRanges, calendarRanges, calendarErr, err := e.fetchConflicts(ctx, tenant, fromUTC, toUTC)
	if err != nil {
		return nil, err
	}

	verified := true
	calendarSource := ""
	if tenant.HasExternalCalendar && !tenant.DemoMode {
		if calendarErr != nil {
			if tenant.Mode == ModeLenient {
				verified = false
				calendarSource = "db_only"
			} else {
				return nil, apperr.CalendarRead(calendarErr.Error())
			}
		} else {
			calendarSource = "external"
		}
	}

	conflicts := make([]BusyRange, 0, len(appointmentRanges)+len(holdRanges)+len(calendarRanges))
	conflicts = append(conflicts, appointmentRanges...)
	conflicts = append(conflicts, holdRanges...)
	conflicts = append(conflicts, calendarRanges...)

	slots := e.generateCandidates(tenant, loc, hours, overrideByDate, fromUTC, toUTC, conflicts)

	return &Result{
		Slots:          slots,
		Verified:       verified,
		CalendarSource: calendarSource,
		CalendarError:  errString(calendarErr),
	}, nil
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

// fetchConflicts reads the three conflict sources concurrently.
func (e *Engine) fetchConflicts(ctx context.Context, tenant TenantConfig, from, to time.Time) (appts, holds, calendar []BusyRange, calendarErr, err error) {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		r, err := e.appts.BusyRanges(gctx, tenant.ID, from, to)
		if err != nil {
			return apperr.Internal("load appointments: " + err.Error())
		}
		appts = r
		return nil
	})

	g.Go(func() error {
		r, err := e.holds.BusyRanges(gctx, tenant.ID, from, to)
		if err != nil {
			return apperr.Internal("load holds: " + err.Error())
		}
		holds = r
		return nil
	})

	g.Go(func() error {
		provider, ok := e.providers[tenant.ID]
		if !ok || !tenant.HasExternalCalendar || tenant.DemoMode {
			return nil
		}
		r, err := e.cache.Get(gctx, tenant.ID, from, to, provider.BusyRanges)
		if err != nil {
			calendarErr = err
			return nil // external-calendar failure is reported, not fatal to the group
		}
		calendar = r
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, nil, nil, nil, err
	}
	return appts, holds, calendar, calendarErr, nil
}

// generateCandidates walks each day in [from, to), applying the override
// for that date if one exists, else the weekday's recurring hours.
func (e *Engine) generateCandidates(tenant TenantConfig, loc *time.Location, hours []WeeklyHours, overrides map[string]DateOverride, from, to time.Time, conflicts []BusyRange) []Slot {
	slotMinutes := tenant.SlotDurationMinutes
	if slotMinutes <= 0 {
		slotMinutes = 30
	}
	now := e.clock.Now()

	byWeekday := make(map[time.Weekday]WeeklyHours, len(hours))
	for _, h := range hours {
		byWeekday[h.Weekday] = h
	}

	var slots []Slot
	startDate := from.In(loc)
	endDate := to.In(loc)
	for d := time.Date(startDate.Year(), startDate.Month(), startDate.Day(), 0, 0, 0, 0, loc); d.Before(endDate); d = d.AddDate(0, 0, 1) {
		dateKey := d.Format("2006-01-02")

		var openMin, closeMin int
		if override, ok := overrides[dateKey]; ok {
			if override.Closed {
				continue
			}
			openMin, closeMin = override.OpenMinute, override.CloseMinute
		} else {
			wh, ok := byWeekday[d.Weekday()]
			if !ok {
				continue
			}
			openMin, closeMin = wh.OpenMinute, wh.CloseMinute
		}

		windowStart := time.Date(d.Year(), d.Month(), d.Day(), 0, openMin/60, openMin%60, 0, loc)
		windowEnd := time.Date(d.Year(), d.Month(), d.Day(), 0, closeMin/60, closeMin%60, 0, loc)
		slots = append(slots, generateSlotsForWindow(windowStart, windowEnd, slotMinutes, conflicts, now)...)
	}

	sort.Slice(slots, func(i, j int) bool { return slots[i].Start.Before(slots[j].Start) })
	return slots
}

// generateSlotsForWindow steps a business-hours window at slotMinutes
// granularity, skipping candidates that start in the past and marking
// the rest available unless they overlap a conflict.
func generateSlotsForWindow(windowStart, windowEnd time.Time, slotMinutes int, conflicts []BusyRange, now time.Time) []Slot {
	var slots []Slot
	step := time.Duration(slotMinutes) * time.Minute

	for start := windowStart; start.Add(step).Before(windowEnd) || start.Add(step).Equal(windowEnd); start = start.Add(step) {
		end := start.Add(step)
		if start.Before(now) {
			continue
		}
		available := true
		for _, c := range conflicts {
			if c.Overlaps(start, end) {
				available = false
				break
			}
		}
		slots = append(slots, Slot{Start: start.UTC(), End: end.UTC(), Available: available})
	}
	return slots
}
