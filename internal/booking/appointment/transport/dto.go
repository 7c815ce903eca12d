// Package transport carries the appointment module's HTTP-facing DTOs.
package transport

import (
	"time"
)

// AppointmentResponse is the staff-facing projection of a confirmed
// appointment. Client contact fields are included here (the caller is
// authenticated staff, not a customer).
type AppointmentResponse struct {
	ID                 string    `json:"id"`
	ReferenceCode      string    `json:"referenceCode"`
	ClientName         string    `json:"clientName"`
	ClientEmail        string    `json:"clientEmail"`
	ClientPhone        string    `json:"clientPhone"`
	ServiceName        string    `json:"serviceName"`
	StartTime          time.Time `json:"startTime"`
	EndTime            time.Time `json:"endTime"`
	Timezone           string    `json:"timezone"`
	Status             string    `json:"status"`
	ExternalCalendarID *string   `json:"externalCalendarId,omitempty"`
}

// ListAppointmentsRequest is the query for GET /appointments.
type ListAppointmentsRequest struct {
	From time.Time `form:"from" binding:"required"`
	To   time.Time `form:"to" binding:"required"`
}
