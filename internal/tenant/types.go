// Package tenant models the business whose calendar the agent books
// into: weekly hours, service catalog, quiet hours, and the encrypted
// external-calendar binding. It is the configuration root every other
// booking-agent package reads from.
package tenant

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"bookingagent/internal/booking/availability"
)

// CatalogMode governs how a customer-described service is matched
// against the tenant's service catalog.
type CatalogMode string

const (
	// CatalogOnly requires an exact catalog match; unmatched service
	// descriptions are rejected.
	CatalogOnly CatalogMode = "catalog_only"
	// Hybrid prefers a catalog match but accepts free-text descriptions
	// that don't match any entry.
	Hybrid CatalogMode = "hybrid"
	// FreeText accepts any description; the catalog is suggestive only.
	FreeText CatalogMode = "free_text"
)

// CatalogEntry is one service a tenant offers.
type CatalogEntry struct {
	Name            string
	DurationMinutes int
	PriceCents      *int64
	Description     string
}

// QuietHours is a local HH:MM window during which outbound SMS is
// rescheduled to the minute the window ends. End may be numerically less than
// Start, meaning the window crosses midnight.
type QuietHours struct {
	StartMinute int // minutes from local midnight
	EndMinute   int
}

// Contains reports whether minuteOfDay (0-1439, local time) falls
// inside the quiet window, including the midnight-crossing case.
func (q QuietHours) Contains(minuteOfDay int) bool {
	if q.StartMinute == q.EndMinute {
		return false
	}
	if q.StartMinute < q.EndMinute {
		return minuteOfDay >= q.StartMinute && minuteOfDay < q.EndMinute
	}
	return minuteOfDay >= q.StartMinute || minuteOfDay < q.EndMinute
}

// CalendarBinding is a tenant's external-calendar credential, encrypted
// at rest via internal/auth/secretcrypto before storage.
type CalendarBinding struct {
	Provider        string // e.g. "google"
	CalendarID      string
	EncryptedSecret string // secretcrypto "enc:v1:..." format
}

// Tenant is the business profile every booking-agent operation is
// scoped by.
type Tenant struct {
	ID                  uuid.UUID
	Name                string
	Slug                string
	Timezone            string
	SlotDurationMinutes int
	WeeklyHours         []availability.WeeklyHours
	Catalog             []CatalogEntry
	CatalogMode         CatalogMode
	Calendar            *CalendarBinding
	QuietHours          QuietHours
	DemoMode            bool
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// Config projects a Tenant into the narrower shape the Availability
// Engine consumes.
func (t Tenant) Config() availability.TenantConfig {
	mode := availability.ModeStrict
	cfg := availability.TenantConfig{
		ID:                  t.ID,
		Timezone:            t.Timezone,
		SlotDurationMinutes: t.SlotDurationMinutes,
		Mode:                mode,
		HasExternalCalendar: t.Calendar != nil,
		DemoMode:            t.DemoMode,
	}
	return cfg
}

// MatchService resolves a free-text description against the catalog per
// CatalogMode. ok is false only for catalog_only tenants with no match.
func (t Tenant) MatchService(description string) (svc *CatalogEntry, ok bool) {
	for i := range t.Catalog {
		if strings.EqualFold(t.Catalog[i].Name, description) {
			return &t.Catalog[i], true
		}
	}
	if t.CatalogMode == CatalogOnly {
		return nil, false
	}
	return nil, true
}
