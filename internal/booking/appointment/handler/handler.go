// Package handler exposes the staff-facing appointment visibility
// surface. Booking mutations (confirm/cancel/reschedule) are never
// reached through HTTP directly — they only happen through the agent
// Tool-Executor, which is the spec's sole mutation path for this store.
package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"bookingagent/internal/booking/appointment/service"
	"bookingagent/internal/booking/appointment/transport"
	"bookingagent/platform/httpkit"
)

const msgInvalidRequest = "invalid request"

// Handler serves staff-facing read endpoints over confirmed appointments.
type Handler struct {
	svc *service.Service
}

func New(svc *service.Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes registers the appointment visibility routes.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.List)
}

// List handles GET /admin/appointments?from=...&to=...
func (h *Handler) List(c *gin.Context) {
	var req transport.ListAppointmentsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}
	tenantID := identity.TenantID()
	if tenantID == nil {
		httpkit.Error(c, http.StatusForbidden, "no tenant associated with this identity", nil)
		return
	}

	if req.To.Before(req.From) {
		httpkit.Error(c, http.StatusBadRequest, "to must not be before from", nil)
		return
	}
	if req.To.Sub(req.From) > 90*24*time.Hour {
		httpkit.Error(c, http.StatusBadRequest, "window must not exceed 90 days", nil)
		return
	}

	appts, err := h.svc.List(c.Request.Context(), *tenantID, req.From, req.To)
	if httpkit.HandleError(c, err) {
		return
	}

	responses := make([]transport.AppointmentResponse, 0, len(appts))
	for i := range appts {
		responses = append(responses, appts[i].ToResponse())
	}
	httpkit.OK(c, responses)
}
