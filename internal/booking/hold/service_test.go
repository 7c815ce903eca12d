package hold

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"bookingagent/platform/apperr"
)

type fakeAppointmentConflicts struct {
	overlap bool
}

func (f fakeAppointmentConflicts) HasConfirmedOverlap(ctx context.Context, tenantID uuid.UUID, start, end time.Time) (bool, error) {
	return f.overlap, nil
}

func TestHoldSlotRejectsNonPositiveWindow(t *testing.T) {
	s := NewService(nil, fakeAppointmentConflicts{}, nil, nil)

	start := time.Date(2026, 2, 17, 15, 0, 0, 0, time.UTC)
	_, err := s.HoldSlot(context.Background(), uuid.New(), uuid.New(), start, start)
	if err == nil {
		t.Fatal("expected an error for a zero-length window")
	}
	if apperr.GetKind(err) != apperr.KindBookingInvalid {
		t.Fatalf("expected KindBookingInvalid, got %v", apperr.GetKind(err))
	}
}

func TestHoldSlotRejectsAppointmentOverlapBeforeTouchingRepo(t *testing.T) {
	s := NewService(nil, fakeAppointmentConflicts{overlap: true}, nil, nil)

	start := time.Date(2026, 2, 17, 15, 0, 0, 0, time.UTC)
	end := start.Add(time.Hour)
	_, err := s.HoldSlot(context.Background(), uuid.New(), uuid.New(), start, end)
	if err == nil {
		t.Fatal("expected a conflict error")
	}
	if apperr.GetKind(err) != apperr.KindSlotConflict {
		t.Fatalf("expected KindSlotConflict, got %v", apperr.GetKind(err))
	}
}
