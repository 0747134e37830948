package handlers

import (
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"clinic-booking-server/internal/middleware"
	"clinic-booking-server/internal/models"
	"clinic-booking-server/internal/scheduling"
	"clinic-booking-server/internal/utils"
)

// AppointmentHandler handles appointment related requests. Scheduling rules
// (overlap checking, refunds, authorization on mutations) live in the
// scheduling service; this handler only shapes requests and responses.
type AppointmentHandler struct {
	DB        *gorm.DB
	Scheduler *scheduling.Service
}

// NewAppointmentHandler creates a new AppointmentHandler.
func NewAppointmentHandler(db *gorm.DB, scheduler *scheduling.Service) *AppointmentHandler {
	return &AppointmentHandler{DB: db, Scheduler: scheduler}
}

// respondSchedulingError maps scheduling sentinel errors to HTTP responses.
func respondSchedulingError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, scheduling.ErrDoctorNotFound),
		errors.Is(err, scheduling.ErrAppointmentNotFound):
		utils.NotFound(c, err.Error())
	case errors.Is(err, scheduling.ErrDoctorUnavailable),
		errors.Is(err, scheduling.ErrPastStartTime),
		errors.Is(err, scheduling.ErrInvalidStatus):
		utils.BadRequest(c, err.Error())
	case errors.Is(err, scheduling.ErrSlotTaken),
		errors.Is(err, scheduling.ErrInvalidState):
		utils.Conflict(c, err.Error())
	case errors.Is(err, scheduling.ErrForbidden):
		utils.Forbidden(c, err.Error())
	default:
		utils.InternalServerError(c, err.Error())
	}
}

func actorFromContext(c *gin.Context) (scheduling.Actor, bool) {
	userID, exists := middleware.GetUserIDFromContext(c)
	if !exists {
		utils.Unauthorized(c, "User not authenticated")
		return scheduling.Actor{}, false
	}
	role, _ := middleware.GetUserRoleFromContext(c)
	return scheduling.Actor{ID: userID, Role: role}, true
}

// CreateAppointmentRequest represents the request body for booking an appointment.
type CreateAppointmentRequest struct {
	DoctorID  string    `json:"doctorId" binding:"required,uuid"`
	StartTime time.Time `json:"startTime" binding:"required"`
	Reason    string    `json:"reason" binding:"required"`
}

// CreateAppointment handles booking a new appointment. Patients always book
// for themselves; the patient ID comes from the token, not the body.
func (h *AppointmentHandler) CreateAppointment(c *gin.Context) {
	var req CreateAppointmentRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	actor, ok := actorFromContext(c)
	if !ok {
		return
	}

	appointment, err := h.Scheduler.Book(actor.ID, req.DoctorID, req.StartTime.UTC(), req.Reason)
	if err != nil {
		respondSchedulingError(c, err)
		return
	}

	utils.Created(c, "Appointment created successfully", appointment)
}

// GetAppointmentsForUser handles fetching appointments for the logged-in user.
// Patients see their own bookings, doctors see their own schedule and admins
// see everything.
func (h *AppointmentHandler) GetAppointmentsForUser(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}

	query := h.DB.Preload("Patient").Preload("Doctor").Order("start_time asc")

	var appointments []models.Appointment
	var err error

	switch actor.Role {
	case models.RolePatient:
		err = query.Where("patient_id = ?", actor.ID).Find(&appointments).Error
	case models.RoleDoctor:
		var doctor models.Doctor
		if err := h.DB.First(&doctor, "user_id = ?", actor.ID).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				utils.NotFound(c, "Doctor profile not found")
			} else {
				utils.InternalServerError(c, "Database error: "+err.Error())
			}
			return
		}
		err = query.Where("doctor_id = ?", doctor.ID).Find(&appointments).Error
	case models.RoleAdmin:
		err = query.Find(&appointments).Error
	default:
		utils.Forbidden(c, "User role not permitted to view appointments")
		return
	}

	if err != nil {
		utils.InternalServerError(c, "Failed to fetch appointments: "+err.Error())
		return
	}

	utils.Success(c, "Appointments fetched successfully", appointments)
}

// GetAppointmentByID handles fetching a single appointment by its ID.
// Accessible by the involved patient, the assigned doctor, or an admin.
func (h *AppointmentHandler) GetAppointmentByID(c *gin.Context) {
	appointmentID := c.Param("id")

	var appointment models.Appointment
	if err := h.DB.Preload("Patient").Preload("Doctor").First(&appointment, "id = ?", appointmentID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			utils.NotFound(c, "Appointment not found")
		} else {
			utils.InternalServerError(c, "Database error: "+err.Error())
		}
		return
	}

	actor, ok := actorFromContext(c)
	if !ok {
		return
	}

	isPatientInvolved := actor.ID == appointment.PatientID
	isDoctorInvolved := actor.Role == models.RoleDoctor && actor.ID == appointment.Doctor.UserID

	if actor.Role != models.RoleAdmin && !isPatientInvolved && !isDoctorInvolved {
		utils.Forbidden(c, "You are not authorized to view this appointment")
		return
	}

	utils.Success(c, "Appointment fetched successfully", appointment)
}

// UpdateAppointmentStatusRequest represents the request body for updating an
// appointment's status.
type UpdateAppointmentStatusRequest struct {
	Status     models.AppointmentStatus `json:"status" binding:"required,oneof=pending confirmed cancelled completed"`
	DoctorNote *string                  `json:"doctorNote"`
}

// UpdateAppointmentStatus handles updating the status of an appointment.
// Only the assigned doctor or an admin may do this.
func (h *AppointmentHandler) UpdateAppointmentStatus(c *gin.Context) {
	appointmentID := c.Param("id")

	var req UpdateAppointmentStatusRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	actor, ok := actorFromContext(c)
	if !ok {
		return
	}

	appointment, err := h.Scheduler.UpdateStatus(appointmentID, req.Status, req.DoctorNote, actor)
	if err != nil {
		respondSchedulingError(c, err)
		return
	}

	utils.Success(c, "Appointment status updated successfully", appointment)
}

// ConfirmPaymentRequest represents the request body for updating an
// appointment's payment status.
type ConfirmPaymentRequest struct {
	PaymentStatus models.PaymentStatus `json:"paymentStatus" binding:"required,oneof=unpaid paid refunded"`
}

// ConfirmPayment handles updating the payment status of an appointment.
// Only the assigned doctor or an admin may do this.
func (h *AppointmentHandler) ConfirmPayment(c *gin.Context) {
	appointmentID := c.Param("id")

	var req ConfirmPaymentRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	actor, ok := actorFromContext(c)
	if !ok {
		return
	}

	appointment, err := h.Scheduler.ConfirmPayment(appointmentID, req.PaymentStatus, actor)
	if err != nil {
		respondSchedulingError(c, err)
		return
	}

	utils.Success(c, "Appointment payment updated successfully", appointment)
}

// CancelAppointmentRequest represents the request body for cancelling an
// appointment.
type CancelAppointmentRequest struct {
	CancelReason string `json:"cancelReason"`
}

// CancelAppointment handles a patient cancelling their own appointment. The
// refund policy is applied by the scheduling service.
func (h *AppointmentHandler) CancelAppointment(c *gin.Context) {
	appointmentID := c.Param("id")

	var req CancelAppointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		utils.BadRequest(c, "Invalid request payload: "+err.Error())
		return
	}

	actor, ok := actorFromContext(c)
	if !ok {
		return
	}

	appointment, err := h.Scheduler.Cancel(appointmentID, req.CancelReason, actor)
	if err != nil {
		respondSchedulingError(c, err)
		return
	}

	utils.Success(c, "Appointment cancelled successfully", appointment)
}

// parseDateParam parses a query date as RFC3339 or YYYY-MM-DD.
func parseDateParam(value string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t.UTC(), nil
	}
	return time.Parse("2006-01-02", value)
}

// GetRevenue handles the admin revenue report: total paid price over
// completed appointments starting within [from, to].
func (h *AppointmentHandler) GetRevenue(c *gin.Context) {
	from, err := parseDateParam(c.Query("from"))
	if err != nil {
		utils.BadRequest(c, "Invalid 'from' date: expected RFC3339 or YYYY-MM-DD")
		return
	}
	to, err := parseDateParam(c.Query("to"))
	if err != nil {
		utils.BadRequest(c, "Invalid 'to' date: expected RFC3339 or YYYY-MM-DD")
		return
	}
	// Date-only upper bounds are inclusive of the whole day.
	if to.Hour() == 0 && to.Minute() == 0 && to.Second() == 0 {
		to = to.Add(24*time.Hour - time.Second)
	}

	total, err := h.Scheduler.Revenue(from, to)
	if err != nil {
		respondSchedulingError(c, err)
		return
	}

	utils.Success(c, "Revenue computed successfully", gin.H{"totalRevenue": total})
}

// GetDoctorIncome handles the doctor's own income report.
func (h *AppointmentHandler) GetDoctorIncome(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}

	income, err := h.Scheduler.Income(actor)
	if err != nil {
		respondSchedulingError(c, err)
		return
	}

	utils.Success(c, "Income computed successfully", income)
}
