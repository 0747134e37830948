package scheduling

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"clinic-booking-server/internal/config"
	"clinic-booking-server/internal/models"
)

// DefaultCancelNote is appended to the reason when the patient gives none.
const DefaultCancelNote = "patient self-cancelled"

// Actor is the authenticated identity performing a scheduling operation.
type Actor struct {
	ID   string
	Role models.Role
}

// DoctorIncome summarizes a doctor's completed, paid-for work.
type DoctorIncome struct {
	TotalIncome   decimal.Decimal `json:"totalIncome"`
	TotalPatients int64           `json:"totalPatients"`
}

// Service implements the appointment scheduling and cancellation/refund rules:
// slot allocation with overlap checking, status/payment transitions and the
// refund-window policy.
type Service struct {
	repo         Repository
	clock        Clock
	duration     time.Duration
	refundWindow time.Duration
	logger       *zap.Logger
}

// NewService creates a scheduling service with the configured slot duration
// and refund window.
func NewService(repo Repository, clock Clock, booking config.BookingConfig, logger *zap.Logger) *Service {
	return &Service{
		repo:         repo,
		clock:        clock,
		duration:     time.Duration(booking.AppointmentDurationMinutes) * time.Minute,
		refundWindow: time.Duration(booking.RefundWindowHours) * time.Hour,
		logger:       logger,
	}
}

// Book allocates a slot for the patient with the given doctor.
//
// Checks run in order, each a distinct failure: doctor exists, doctor active,
// start time strictly in the future, no overlapping non-cancelled appointment.
// The whole check-and-insert runs with the doctor row locked so concurrent
// bookings for the same doctor serialize instead of double-booking.
func (s *Service) Book(patientID, doctorID string, startTime time.Time, reason string) (*models.Appointment, error) {
	var apt *models.Appointment

	err := s.repo.WithDoctorLock(doctorID, func(tx Repository, doctor *models.Doctor) error {
		if !doctor.IsActive {
			return ErrDoctorUnavailable
		}

		now := s.clock.Now()
		if !startTime.After(now) {
			return ErrPastStartTime
		}

		endTime := startTime.Add(s.duration)

		overlapping, err := tx.CountOverlapping(doctorID, startTime, endTime)
		if err != nil {
			return err
		}
		if overlapping > 0 {
			return ErrSlotTaken
		}

		apt = &models.Appointment{
			PatientID:     patientID,
			DoctorID:      doctorID,
			StartTime:     startTime,
			EndTime:       endTime,
			Status:        models.StatusPending,
			Reason:        reason,
			PaidPrice:     doctor.PricePerVisit,
			PaymentStatus: models.PaymentUnpaid,
			RefundAmount:  decimal.Zero,
		}
		if err := tx.CreateAppointment(apt); err != nil {
			// A uniqueness violation from a racing insert is still a conflict.
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrSlotTaken
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("appointment booked",
		zap.String("appointmentId", apt.ID),
		zap.String("doctorId", doctorID),
		zap.String("patientId", patientID),
		zap.Time("startTime", apt.StartTime))
	return apt, nil
}

// UpdateStatus transitions an appointment's status and optionally sets the
// doctor note. Only the assigned doctor or an admin may call it.
func (s *Service) UpdateStatus(appointmentID string, newStatus models.AppointmentStatus, doctorNote *string, actor Actor) (*models.Appointment, error) {
	if !newStatus.IsValid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, newStatus)
	}

	apt, err := s.repo.FindAppointmentByID(appointmentID)
	if err != nil {
		return nil, err
	}

	if err := s.authorizeAssignedDoctorOrAdmin(apt, actor); err != nil {
		return nil, err
	}

	if !apt.Status.CanTransitionTo(newStatus) {
		return nil, ErrInvalidState
	}

	apt.Status = newStatus
	if doctorNote != nil {
		apt.DoctorNote = doctorNote
	}

	if err := s.repo.SaveAppointment(apt); err != nil {
		return nil, err
	}

	s.logger.Info("appointment status updated",
		zap.String("appointmentId", apt.ID),
		zap.String("status", string(newStatus)))
	return apt, nil
}

// ConfirmPayment overwrites the appointment's payment status. Only the
// assigned doctor or an admin may call it. The payment status is not
// validated against the appointment status.
func (s *Service) ConfirmPayment(appointmentID string, newPaymentStatus models.PaymentStatus, actor Actor) (*models.Appointment, error) {
	if !newPaymentStatus.IsValid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, newPaymentStatus)
	}

	apt, err := s.repo.FindAppointmentByID(appointmentID)
	if err != nil {
		return nil, err
	}

	if err := s.authorizeAssignedDoctorOrAdmin(apt, actor); err != nil {
		return nil, err
	}

	apt.PaymentStatus = newPaymentStatus

	if err := s.repo.SaveAppointment(apt); err != nil {
		return nil, err
	}

	s.logger.Info("appointment payment updated",
		zap.String("appointmentId", apt.ID),
		zap.String("paymentStatus", string(newPaymentStatus)))
	return apt, nil
}

// Cancel cancels an appointment on behalf of the booking patient and applies
// the refund policy.
//
// Only the patient who booked may cancel; doctors and admins cannot cancel on
// the patient's behalf. A paid appointment cancelled at least the refund
// window before its start is refunded in full; any later paid cancellation
// forfeits the payment. Unpaid and already-refunded appointments keep their
// payment fields untouched. The cancellation note is appended to the reason,
// never replacing it.
func (s *Service) Cancel(appointmentID, cancelReason string, actor Actor) (*models.Appointment, error) {
	apt, err := s.repo.FindAppointmentByID(appointmentID)
	if err != nil {
		return nil, err
	}

	if actor.ID != apt.PatientID {
		return nil, ErrForbidden
	}

	if apt.Status == models.StatusCompleted || apt.Status == models.StatusCancelled {
		return nil, ErrInvalidState
	}

	now := s.clock.Now()
	if apt.StartTime.Before(now) {
		return nil, ErrInvalidState
	}

	if apt.PaymentStatus == models.PaymentPaid {
		if apt.StartTime.Sub(now) >= s.refundWindow {
			apt.PaymentStatus = models.PaymentRefunded
			apt.RefundAmount = apt.PaidPrice
		} else {
			apt.RefundAmount = decimal.Zero
		}
	}

	apt.Status = models.StatusCancelled

	note := cancelReason
	if note == "" {
		note = DefaultCancelNote
	}
	apt.Reason = apt.Reason + " | [Cancelled]: " + note

	if err := s.repo.SaveAppointment(apt); err != nil {
		return nil, err
	}

	s.logger.Info("appointment cancelled",
		zap.String("appointmentId", apt.ID),
		zap.String("paymentStatus", string(apt.PaymentStatus)),
		zap.String("refundAmount", apt.RefundAmount.String()))
	return apt, nil
}

// Revenue sums paid_price over completed appointments starting in [from, to],
// across all doctors. Returns zero when nothing matches.
func (s *Service) Revenue(from, to time.Time) (decimal.Decimal, error) {
	return s.repo.SumCompletedPaidPrice("", from, to)
}

// Income reports the acting doctor's total income and patient count over
// completed appointments.
func (s *Service) Income(actor Actor) (*DoctorIncome, error) {
	doctor, err := s.repo.FindDoctorByUserID(actor.ID)
	if err != nil {
		return nil, err
	}

	total, err := s.repo.SumCompletedPaidPrice(doctor.ID, time.Time{}, time.Time{})
	if err != nil {
		return nil, err
	}
	patients, err := s.repo.CountCompleted(doctor.ID, time.Time{}, time.Time{})
	if err != nil {
		return nil, err
	}

	return &DoctorIncome{TotalIncome: total, TotalPatients: patients}, nil
}

// authorizeAssignedDoctorOrAdmin allows admins and the doctor assigned to the
// appointment; everyone else gets ErrForbidden.
func (s *Service) authorizeAssignedDoctorOrAdmin(apt *models.Appointment, actor Actor) error {
	if actor.Role == models.RoleAdmin {
		return nil
	}
	if actor.Role == models.RoleDoctor {
		doctor, err := s.repo.FindDoctorByUserID(actor.ID)
		if err != nil {
			if errors.Is(err, ErrDoctorNotFound) {
				return ErrForbidden
			}
			return err
		}
		if doctor.ID == apt.DoctorID {
			return nil
		}
	}
	return ErrForbidden
}
