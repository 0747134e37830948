package scheduling

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"clinic-booking-server/internal/models"
)

// Repository is the narrow persistence surface the scheduling service needs.
type Repository interface {
	// WithDoctorLock loads the doctor, locks its row for the duration of fn
	// and runs fn inside a transaction. The Repository passed to fn is bound
	// to that transaction. Bookings for one doctor serialize on this lock,
	// which is what keeps two concurrent overlap checks from both passing.
	WithDoctorLock(doctorID string, fn func(tx Repository, doctor *models.Doctor) error) error

	FindDoctorByUserID(userID string) (*models.Doctor, error)
	FindAppointmentByID(id string) (*models.Appointment, error)

	// CountOverlapping counts non-cancelled appointments for the doctor whose
	// [start_time, end_time) interval intersects [start, end).
	CountOverlapping(doctorID string, start, end time.Time) (int64, error)

	CreateAppointment(apt *models.Appointment) error
	SaveAppointment(apt *models.Appointment) error

	// SumCompletedPaidPrice sums paid_price over completed appointments with
	// start_time in [from, to]. Empty doctorID means all doctors; zero times
	// leave the corresponding bound open.
	SumCompletedPaidPrice(doctorID string, from, to time.Time) (decimal.Decimal, error)

	// CountCompleted counts completed appointments under the same filter.
	CountCompleted(doctorID string, from, to time.Time) (int64, error)
}

type gormRepository struct {
	db *gorm.DB
}

// NewRepository creates a gorm-backed Repository.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) WithDoctorLock(doctorID string, fn func(tx Repository, doctor *models.Doctor) error) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		var doctor models.Doctor
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&doctor, "id = ?", doctorID).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrDoctorNotFound
			}
			return fmt.Errorf("failed to load doctor: %w", err)
		}
		return fn(&gormRepository{db: tx}, &doctor)
	})
}

func (r *gormRepository) FindDoctorByUserID(userID string) (*models.Doctor, error) {
	var doctor models.Doctor
	if err := r.db.First(&doctor, "user_id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrDoctorNotFound
		}
		return nil, fmt.Errorf("failed to load doctor: %w", err)
	}
	return &doctor, nil
}

func (r *gormRepository) FindAppointmentByID(id string) (*models.Appointment, error) {
	var apt models.Appointment
	if err := r.db.First(&apt, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAppointmentNotFound
		}
		return nil, fmt.Errorf("failed to load appointment: %w", err)
	}
	return &apt, nil
}

func (r *gormRepository) CountOverlapping(doctorID string, start, end time.Time) (int64, error) {
	var count int64
	// Half-open interval intersection: existing.start < end AND existing.end > start.
	err := r.db.Model(&models.Appointment{}).
		Where("doctor_id = ? AND status <> ? AND start_time < ? AND end_time > ?",
			doctorID, models.StatusCancelled, end, start).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count overlapping appointments: %w", err)
	}
	return count, nil
}

func (r *gormRepository) CreateAppointment(apt *models.Appointment) error {
	if err := r.db.Create(apt).Error; err != nil {
		return fmt.Errorf("failed to create appointment: %w", err)
	}
	return nil
}

func (r *gormRepository) SaveAppointment(apt *models.Appointment) error {
	if err := r.db.Save(apt).Error; err != nil {
		return fmt.Errorf("failed to save appointment: %w", err)
	}
	return nil
}

func (r *gormRepository) completedScope(doctorID string, from, to time.Time) *gorm.DB {
	q := r.db.Model(&models.Appointment{}).Where("status = ?", models.StatusCompleted)
	if doctorID != "" {
		q = q.Where("doctor_id = ?", doctorID)
	}
	if !from.IsZero() {
		q = q.Where("start_time >= ?", from)
	}
	if !to.IsZero() {
		q = q.Where("start_time <= ?", to)
	}
	return q
}

func (r *gormRepository) SumCompletedPaidPrice(doctorID string, from, to time.Time) (decimal.Decimal, error) {
	var total decimal.Decimal
	row := r.completedScope(doctorID, from, to).
		Select("COALESCE(SUM(paid_price), 0)").Row()
	if err := row.Scan(&total); err != nil {
		return decimal.Zero, fmt.Errorf("failed to sum completed appointments: %w", err)
	}
	return total, nil
}

func (r *gormRepository) CountCompleted(doctorID string, from, to time.Time) (int64, error) {
	var count int64
	if err := r.completedScope(doctorID, from, to).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count completed appointments: %w", err)
	}
	return count, nil
}
