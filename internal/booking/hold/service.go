package hold

import (
	"context"
	"time"

	"github.com/google/uuid"

	"bookingagent/internal/events"
	"bookingagent/platform/apperr"
	"bookingagent/platform/logger"
)

// AppointmentConflictSource is satisfied by the appointment repository;
// kept as a narrow interface here to avoid an import cycle with
// internal/booking/appointment.
type AppointmentConflictSource interface {
	HasConfirmedOverlap(ctx context.Context, tenantID uuid.UUID, start, end time.Time) (bool, error)
}

// Service implements holdSlot and the background expiry sweep.
type Service struct {
	repo     *Repository
	appts    AppointmentConflictSource
	eventBus events.Bus
	log      *logger.Logger
}

func NewService(repo *Repository, appts AppointmentConflictSource, eventBus events.Bus, log *logger.Logger) *Service {
	return &Service{repo: repo, appts: appts, eventBus: eventBus, log: log}
}

// HoldSlot atomically verifies there is no overlapping active hold or
// confirmed appointment, then reserves the window for 5 minutes.
func (s *Service) HoldSlot(ctx context.Context, tenantID, sessionID uuid.UUID, start, end time.Time) (*Hold, error) {
	if !end.After(start) {
		return nil, apperr.BookingInvalid("hold end must be after start")
	}

	conflict, err := s.appts.HasConfirmedOverlap(ctx, tenantID, start, end)
	if err != nil {
		return nil, apperr.Internal("check appointment overlap: " + err.Error())
	}
	if conflict {
		return nil, apperr.SlotConflict("requested slot overlaps a confirmed appointment")
	}

	// The exclusion constraint is the source of truth for hold-vs-hold
	// overlap (races between two concurrent holds on the same slot);
	// Create below translates a constraint violation into SlotConflict.
	return s.repo.Create(ctx, tenantID, sessionID, start, end)
}

// Cancel releases a hold explicitly (customer changed their mind).
func (s *Service) Cancel(ctx context.Context, tenantID, holdID uuid.UUID) error {
	return s.repo.Delete(ctx, tenantID, holdID)
}

// GetByID loads a hold for reschedule_booking, which needs the new
// hold's window to build the replacement appointment.
func (s *Service) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*Hold, error) {
	return s.repo.GetByID(ctx, tenantID, id)
}

// RunExpirySweep polls for expired holds on an interval and emits
// HoldExpired for each one, in the same ticker-and-claim shape as the
// outbox dispatcher.
func (s *Service) RunExpirySweep(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		expired, err := s.repo.DeleteExpired(ctx, time.Now().UTC())
		if err != nil {
			s.log.Warn("hold expiry sweep failed", "error", err)
			continue
		}
		for _, h := range expired {
			s.eventBus.Publish(ctx, events.HoldExpired{
				BaseEvent: events.NewBaseEvent(),
				TenantID:  h.TenantID,
				SessionID: h.SessionID,
				HoldID:    h.ID,
				StartTime: h.StartTime,
				EndTime:   h.EndTime,
			})
		}
	}
}
