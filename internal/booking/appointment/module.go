// Package appointment provides the Booking Store domain module: the
// durable record of confirmed, cancelled, and completed appointments
// (spec.md §4.4). Mutations flow exclusively through Service, called by
// the agent Tool-Executor; this module's own HTTP surface is limited to
// staff visibility.
package appointment

import (
	"bookingagent/internal/booking/appointment/handler"
	"bookingagent/internal/booking/appointment/repository"
	"bookingagent/internal/booking/appointment/service"
	"bookingagent/internal/booking/availability"
	"bookingagent/internal/events"
	apphttp "bookingagent/internal/http"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module wires the Booking Store's repository, service, and staff
// visibility handler.
type Module struct {
	handler *handler.Handler
	Service *service.Service
}

// NewModule creates the appointment module. cache is shared with the
// availability Engine so a confirmed booking invalidates the same
// busy-range entries the slot search reads. calendar may be nil when no
// external calendar is bound; calendar writes are always best-effort.
func NewModule(pool *pgxpool.Pool, cache *availability.BusyRangeCache, eventBus events.Bus, calendar service.CalendarWriter) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, cache, eventBus, calendar)
	h := handler.New(svc)

	return &Module{
		handler: h,
		Service: svc,
	}
}

// Name returns the module name for logging.
func (m *Module) Name() string {
	return "appointments"
}

// RegisterRoutes registers the staff visibility route under
// /api/v1/admin/appointments.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	appointments := ctx.Admin.Group("/appointments")
	m.handler.RegisterRoutes(appointments)
}

// Compile-time check that Module implements http.Module.
var _ apphttp.Module = (*Module)(nil)
