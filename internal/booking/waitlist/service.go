package waitlist

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"bookingagent/internal/events"
	"bookingagent/platform/apperr"
	"bookingagent/platform/logger"
)

// Service implements join, slot-open notification, and the expiry sweep.
type Service struct {
	repo     *Repository
	eventBus events.Bus
	log      *logger.Logger
}

func NewService(repo *Repository, eventBus events.Bus, log *logger.Logger) *Service {
	return &Service{repo: repo, eventBus: eventBus, log: log}
}

// JoinRequest carries the schedule_contact_followup-adjacent waitlist
// tool's arguments.
type JoinRequest struct {
	TenantID          uuid.UUID
	SessionID         uuid.UUID
	ContactName       string
	Email             string
	Phone             string
	ServiceName       string
	PreferredDays     []time.Weekday
	WindowStartMinute int
	WindowEndMinute   int
}

// Join records a waiting entry for a session that asked to be notified
// of a future opening.
func (s *Service) Join(ctx context.Context, req JoinRequest) (*Entry, error) {
	if strings.TrimSpace(req.Email) == "" && strings.TrimSpace(req.Phone) == "" {
		return nil, apperr.Validation("waitlist entry requires an email or phone to notify")
	}

	entry := &Entry{
		TenantID:          req.TenantID,
		SessionID:         req.SessionID,
		ContactName:       req.ContactName,
		Email:             strings.ToLower(strings.TrimSpace(req.Email)),
		Phone:             req.Phone,
		ServiceName:       req.ServiceName,
		PreferredDays:     req.PreferredDays,
		WindowStartMinute: req.WindowStartMinute,
		WindowEndMinute:   req.WindowEndMinute,
	}
	if err := s.repo.Create(ctx, entry); err != nil {
		return nil, err
	}

	if s.eventBus != nil {
		s.eventBus.Publish(ctx, events.WaitlistJoined{
			BaseEvent: events.NewBaseEvent(),
			TenantID:  entry.TenantID,
			EntryID:   entry.ID,
		})
	}
	return entry, nil
}

// NotifySlotOpened checks every waiting entry for a tenant against a
// newly opened slot and flips the matching ones to notified. Intended as
// the handler subscribed to events.SlotOpened; the outbox module
// subscribes to WaitlistNotified in turn to actually send the message.
func (s *Service) NotifySlotOpened(ctx context.Context, tenantID uuid.UUID, serviceName string, start, end time.Time) error {
	entries, err := s.repo.ListWaiting(ctx, tenantID)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if !e.Matches(serviceName, start, end) {
			continue
		}
		if err := s.repo.MarkNotified(ctx, e.ID); err != nil {
			if s.log != nil {
				s.log.Warn("waitlist notify failed", "entry_id", e.ID, "error", err)
			}
			continue
		}
		if s.eventBus != nil {
			s.eventBus.Publish(ctx, events.WaitlistNotified{
				BaseEvent: events.NewBaseEvent(),
				TenantID:  tenantID,
				EntryID:   e.ID,
			})
		}
	}
	return nil
}

// AsSlotOpenedHandler adapts NotifySlotOpened to events.Handler for
// subscribing to the bus directly.
func (s *Service) AsSlotOpenedHandler() events.HandlerFunc {
	return func(ctx context.Context, event events.Event) error {
		opened, ok := event.(events.SlotOpened)
		if !ok {
			return nil
		}
		return s.NotifySlotOpened(ctx, opened.TenantID, opened.ServiceName, opened.StartTime, opened.EndTime)
	}
}

// RunExpirySweep polls for stale waiting entries on an interval and
// emits WaitlistExpired for each one, in the same shape as the hold
// expiry sweep.
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
			s.log.Warn("waitlist expiry sweep failed", "error", err)
			continue
		}
		for _, e := range expired {
			if s.eventBus != nil {
				s.eventBus.Publish(ctx, events.WaitlistExpired{
					BaseEvent: events.NewBaseEvent(),
					TenantID:  e.TenantID,
					EntryID:   e.ID,
				})
			}
		}
	}
}
