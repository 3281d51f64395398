package handlers

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"school-app-server/internal/middleware"
	"school-app-server/internal/models"
	"school-app-server/internal/scheduling"
	"school-app-server/internal/services"
	"school-app-server/internal/utils"
)

const dateLayout = "2006-01-02"

// AppointmentHandler handles appointment related requests.
type AppointmentHandler struct {
	Service *services.AppointmentService
}

// NewAppointmentHandler creates a new AppointmentHandler.
func NewAppointmentHandler(service *services.AppointmentService) *AppointmentHandler {
	return &AppointmentHandler{Service: service}
}

// AvailabilityResponse lists the slots of one practitioner on one day.
type AvailabilityResponse struct {
	PractitionerID string            `json:"practitionerId"`
	Date           string            `json:"date"`
	Slots          []scheduling.Slot `json:"slots"`
}

// GetAvailability returns the template slots of a practitioner on a date,
// each flagged available or not. Weekends yield an empty list.
func (h *AppointmentHandler) GetAvailability(c *gin.Context) {
	practitionerID := c.Query("practitionerId")
	if _, err := uuid.Parse(practitionerID); err != nil {
		utils.BadRequest(c, "Invalid or missing practitionerId")
		return
	}

	dateStr := c.Query("date")
	date, err := time.ParseInLocation(dateLayout, dateStr, h.Service.Template().Location())
	if err != nil {
		utils.BadRequest(c, "Invalid or missing date, expected YYYY-MM-DD")
		return
	}

	slots, err := h.Service.Availability(c.Request.Context(), practitionerID, date)
	if err != nil {
		respondError(c, err, "Failed to compute availability")
		return
	}

	utils.Success(c, "Availability fetched successfully", AvailabilityResponse{
		PractitionerID: practitionerID,
		Date:           date.Format(dateLayout),
		Slots:          slots,
	})
}

// CreateAppointmentRequest represents the request body for creating an appointment.
type CreateAppointmentRequest struct {
	PractitionerID string    `json:"practitionerId" binding:"required,uuid"`
	StudentID      string    `json:"studentId" binding:"omitempty,uuid"`
	StartTime      time.Time `json:"startTime" binding:"required"`
	EndTime        time.Time `json:"endTime" binding:"required"`
	Reason         string    `json:"reason" binding:"required,max=255"`
	Location       string    `json:"location" binding:"max=255"`
}

// CreateAppointment books a pending appointment. Students book for
// themselves, so studentId defaults to the caller.
func (h *AppointmentHandler) CreateAppointment(c *gin.Context) {
	var req CreateAppointmentRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	actor, ok := middleware.GetActor(c)
	if !ok {
		utils.Unauthorized(c, "User not authenticated")
		return
	}
	if req.StudentID == "" && actor.Role == models.RoleStudent {
		req.StudentID = actor.UserID
	}
	if req.StudentID == "" {
		utils.BadRequest(c, "studentId is required")
		return
	}

	appointment, err := h.Service.Book(c.Request.Context(), actor, services.BookingRequest{
		PractitionerID: req.PractitionerID,
		StudentID:      req.StudentID,
		Start:          req.StartTime,
		End:            req.EndTime,
		Reason:         req.Reason,
		Location:       req.Location,
	})
	if err != nil {
		respondError(c, err, "Failed to create appointment")
		return
	}

	utils.Created(c, "Appointment created successfully", appointment)
}

// GetAppointmentsForUser handles fetching appointments for the logged-in user.
// Optional query parameters: status, from, to (RFC 3339), practitionerId, studentId.
func (h *AppointmentHandler) GetAppointmentsForUser(c *gin.Context) {
	actor, ok := middleware.GetActor(c)
	if !ok {
		utils.Unauthorized(c, "User not authenticated")
		return
	}

	filter := services.ListFilter{
		Status:         models.AppointmentStatus(c.Query("status")),
		PractitionerID: c.Query("practitionerId"),
		StudentID:      c.Query("studentId"),
	}
	for _, p := range []struct {
		name string
		dst  **time.Time
	}{{"from", &filter.From}, {"to", &filter.To}} {
		raw := c.Query(p.name)
		if raw == "" {
			continue
		}
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			utils.BadRequest(c, "Invalid "+p.name+", expected RFC 3339 timestamp")
			return
		}
		*p.dst = &t
	}

	appointments, err := h.Service.List(c.Request.Context(), actor, filter)
	if err != nil {
		respondError(c, err, "Failed to fetch appointments")
		return
	}

	utils.Success(c, "Appointments fetched successfully", appointments)
}

// GetAppointmentByID handles fetching a single appointment by its ID.
// Accessible by the involved student, practitioner, or an admin.
func (h *AppointmentHandler) GetAppointmentByID(c *gin.Context) {
	id, ok := appointmentID(c)
	if !ok {
		return
	}
	actor, ok := middleware.GetActor(c)
	if !ok {
		utils.Unauthorized(c, "User not authenticated")
		return
	}

	appointment, err := h.Service.Get(c.Request.Context(), actor, id)
	if err != nil {
		respondError(c, err, "Failed to fetch appointment")
		return
	}

	utils.Success(c, "Appointment fetched successfully", appointment)
}

// UpdateAppointmentStatusRequest represents the request body for updating an appointment's status.
type UpdateAppointmentStatusRequest struct {
	Status models.AppointmentStatus `json:"status" binding:"required,oneof=pending confirmed cancelled completed"`
	Notes  string                   `json:"notes"`
}

// UpdateAppointmentStatus confirms, cancels or completes an appointment.
func (h *AppointmentHandler) UpdateAppointmentStatus(c *gin.Context) {
	id, ok := appointmentID(c)
	if !ok {
		return
	}

	var req UpdateAppointmentStatusRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	actor, ok := middleware.GetActor(c)
	if !ok {
		utils.Unauthorized(c, "User not authenticated")
		return
	}

	appointment, err := h.Service.UpdateStatus(c.Request.Context(), actor, id, req.Status, req.Notes)
	if err != nil {
		respondError(c, err, "Failed to update appointment status")
		return
	}

	utils.Success(c, "Appointment status updated successfully", appointment)
}

// RescheduleAppointmentRequest represents the request body for rescheduling an appointment.
type RescheduleAppointmentRequest struct {
	StartTime time.Time `json:"startTime" binding:"required"`
	EndTime   time.Time `json:"endTime" binding:"required"`
	Notes     string    `json:"notes"`
}

// RescheduleAppointment moves an appointment to a new time, subject to the
// same conflict check as a new booking.
func (h *AppointmentHandler) RescheduleAppointment(c *gin.Context) {
	id, ok := appointmentID(c)
	if !ok {
		return
	}

	var req RescheduleAppointmentRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	actor, ok := middleware.GetActor(c)
	if !ok {
		utils.Unauthorized(c, "User not authenticated")
		return
	}

	appointment, err := h.Service.Reschedule(c.Request.Context(), actor, id, req.StartTime, req.EndTime, req.Notes)
	if err != nil {
		respondError(c, err, "Failed to reschedule appointment")
		return
	}

	utils.Success(c, "Appointment rescheduled successfully", appointment)
}

func appointmentID(c *gin.Context) (string, bool) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		utils.BadRequest(c, "Invalid Appointment ID format")
		return "", false
	}
	return id, true
}
