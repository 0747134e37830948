package scheduling

import "errors"

// Sentinel errors returned by the scheduling service. Handlers map these to
// HTTP status codes; everything else is treated as an internal error.
var (
	// ErrDoctorNotFound is returned when the referenced doctor does not exist.
	ErrDoctorNotFound = errors.New("doctor not found")

	// ErrDoctorUnavailable is returned when the doctor exists but is not
	// accepting bookings.
	ErrDoctorUnavailable = errors.New("doctor is not available for booking")

	// ErrAppointmentNotFound is returned when the referenced appointment does
	// not exist.
	ErrAppointmentNotFound = errors.New("appointment not found")

	// ErrPastStartTime is returned when a booking requests a start time that
	// is not strictly in the future.
	ErrPastStartTime = errors.New("cannot book an appointment in the past")

	// ErrSlotTaken is returned when the requested slot overlaps an existing
	// non-cancelled appointment for the same doctor.
	ErrSlotTaken = errors.New("the doctor already has an appointment in this time slot")

	// ErrForbidden is returned when the acting user is not allowed to perform
	// the operation on this appointment.
	ErrForbidden = errors.New("not authorized to perform this action")

	// ErrInvalidStatus is returned when a status or payment status value is
	// not a member of its enum.
	ErrInvalidStatus = errors.New("invalid status value")

	// ErrInvalidState is returned when the operation is illegal given the
	// appointment's current state (e.g. cancelling a completed appointment).
	ErrInvalidState = errors.New("operation not allowed in the appointment's current state")
)
