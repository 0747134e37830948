package scheduling

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"clinic-booking-server/internal/config"
	"clinic-booking-server/internal/models"
)

// fixedClock pins "now" for deterministic past/future and refund-window checks.
type fixedClock struct {
	now time.Time
}

func (c fixedClock) Now() time.Time { return c.now }

// memRepo is an in-memory Repository. It mirrors the documented contract of
// the gorm implementation, including the half-open overlap predicate.
type memRepo struct {
	doctors      map[string]*models.Doctor
	appointments map[string]*models.Appointment
}

func newMemRepo() *memRepo {
	return &memRepo{
		doctors:      make(map[string]*models.Doctor),
		appointments: make(map[string]*models.Appointment),
	}
}

func (r *memRepo) addDoctor(doctor *models.Doctor) *models.Doctor {
	if doctor.ID == "" {
		doctor.ID = uuid.New().String()
	}
	r.doctors[doctor.ID] = doctor
	return doctor
}

func (r *memRepo) addAppointment(apt *models.Appointment) *models.Appointment {
	if apt.ID == "" {
		apt.ID = uuid.New().String()
	}
	cp := *apt
	r.appointments[apt.ID] = &cp
	return apt
}

func (r *memRepo) WithDoctorLock(doctorID string, fn func(tx Repository, doctor *models.Doctor) error) error {
	doctor, ok := r.doctors[doctorID]
	if !ok {
		return ErrDoctorNotFound
	}
	return fn(r, doctor)
}

func (r *memRepo) FindDoctorByUserID(userID string) (*models.Doctor, error) {
	for _, doctor := range r.doctors {
		if doctor.UserID == userID {
			return doctor, nil
		}
	}
	return nil, ErrDoctorNotFound
}

func (r *memRepo) FindAppointmentByID(id string) (*models.Appointment, error) {
	apt, ok := r.appointments[id]
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	cp := *apt
	return &cp, nil
}

func (r *memRepo) CountOverlapping(doctorID string, start, end time.Time) (int64, error) {
	var count int64
	for _, apt := range r.appointments {
		if apt.DoctorID != doctorID || apt.Status == models.StatusCancelled {
			continue
		}
		if apt.StartTime.Before(end) && apt.EndTime.After(start) {
			count++
		}
	}
	return count, nil
}

func (r *memRepo) CreateAppointment(apt *models.Appointment) error {
	apt.ID = uuid.New().String()
	cp := *apt
	r.appointments[apt.ID] = &cp
	return nil
}

func (r *memRepo) SaveAppointment(apt *models.Appointment) error {
	cp := *apt
	r.appointments[apt.ID] = &cp
	return nil
}

func (r *memRepo) SumCompletedPaidPrice(doctorID string, from, to time.Time) (decimal.Decimal, error) {
	total := decimal.Zero
	for _, apt := range r.appointments {
		if r.matchesCompletedFilter(apt, doctorID, from, to) {
			total = total.Add(apt.PaidPrice)
		}
	}
	return total, nil
}

func (r *memRepo) CountCompleted(doctorID string, from, to time.Time) (int64, error) {
	var count int64
	for _, apt := range r.appointments {
		if r.matchesCompletedFilter(apt, doctorID, from, to) {
			count++
		}
	}
	return count, nil
}

func (r *memRepo) matchesCompletedFilter(apt *models.Appointment, doctorID string, from, to time.Time) bool {
	if apt.Status != models.StatusCompleted {
		return false
	}
	if doctorID != "" && apt.DoctorID != doctorID {
		return false
	}
	if !from.IsZero() && apt.StartTime.Before(from) {
		return false
	}
	if !to.IsZero() && apt.StartTime.After(to) {
		return false
	}
	return true
}

var testNow = time.Date(2026, time.March, 10, 12, 0, 0, 0, time.UTC)

func setupTestService(t *testing.T, durationMinutes int) (*Service, *memRepo) {
	t.Helper()
	repo := newMemRepo()
	svc := NewService(repo, fixedClock{now: testNow}, config.BookingConfig{
		AppointmentDurationMinutes: durationMinutes,
		RefundWindowHours:          24,
	}, zap.NewNop())
	return svc, repo
}

func activeDoctor(price int64) *models.Doctor {
	return &models.Doctor{
		BaseModel:     models.BaseModel{ID: uuid.New().String()},
		UserID:        uuid.New().String(),
		Specialty:     "Cardiology",
		PricePerVisit: decimal.NewFromInt(price),
		IsActive:      true,
	}
}

func TestBook_Success(t *testing.T) {
	svc, repo := setupTestService(t, 30)
	doctor := repo.addDoctor(activeDoctor(500000))

	start := testNow.Add(48 * time.Hour)
	apt, err := svc.Book("patient-1", doctor.ID, start, "annual checkup")

	require.NoError(t, err)
	assert.NotEmpty(t, apt.ID)
	assert.Equal(t, models.StatusPending, apt.Status)
	assert.Equal(t, models.PaymentUnpaid, apt.PaymentStatus)
	assert.True(t, apt.PaidPrice.Equal(decimal.NewFromInt(500000)))
	assert.True(t, apt.RefundAmount.IsZero())
	assert.Nil(t, apt.DoctorNote)
	assert.Equal(t, 30*time.Minute, apt.EndTime.Sub(apt.StartTime))
}

func TestBook_DoctorNotFound(t *testing.T) {
	svc, _ := setupTestService(t, 30)

	_, err := svc.Book("patient-1", uuid.New().String(), testNow.Add(time.Hour), "checkup")
	assert.ErrorIs(t, err, ErrDoctorNotFound)
}

func TestBook_DoctorInactive(t *testing.T) {
	svc, repo := setupTestService(t, 30)
	doctor := activeDoctor(100)
	doctor.IsActive = false
	repo.addDoctor(doctor)

	_, err := svc.Book("patient-1", doctor.ID, testNow.Add(time.Hour), "checkup")
	assert.ErrorIs(t, err, ErrDoctorUnavailable)
}

func TestBook_PastStartTime(t *testing.T) {
	svc, repo := setupTestService(t, 30)
	doctor := repo.addDoctor(activeDoctor(100))

	_, err := svc.Book("patient-1", doctor.ID, testNow.Add(-time.Minute), "checkup")
	assert.ErrorIs(t, err, ErrPastStartTime)

	// A start time equal to "now" is not strictly in the future either.
	_, err = svc.Book("patient-1", doctor.ID, testNow, "checkup")
	assert.ErrorIs(t, err, ErrPastStartTime)
}

func TestBook_OverlapConflict(t *testing.T) {
	svc, repo := setupTestService(t, 60)
	doctor := repo.addDoctor(activeDoctor(100))

	nineAM := time.Date(2026, time.March, 11, 9, 0, 0, 0, time.UTC)

	_, err := svc.Book("patient-1", doctor.ID, nineAM, "first visit")
	require.NoError(t, err)

	// 09:30 falls inside the 09:00-10:00 slot.
	_, err = svc.Book("patient-2", doctor.ID, nineAM.Add(30*time.Minute), "second visit")
	assert.ErrorIs(t, err, ErrSlotTaken)

	// 10:00 starts exactly where the first slot ends: back-to-back is fine.
	_, err = svc.Book("patient-2", doctor.ID, nineAM.Add(time.Hour), "second visit")
	assert.NoError(t, err)
}

func TestBook_SameSlotTwice(t *testing.T) {
	svc, repo := setupTestService(t, 30)
	doctor := repo.addDoctor(activeDoctor(100))
	start := testNow.Add(24 * time.Hour)

	_, err := svc.Book("patient-1", doctor.ID, start, "visit")
	require.NoError(t, err)

	_, err = svc.Book("patient-2", doctor.ID, start, "visit")
	assert.ErrorIs(t, err, ErrSlotTaken)
}

func TestBook_CancelledSlotIsFree(t *testing.T) {
	svc, repo := setupTestService(t, 30)
	doctor := repo.addDoctor(activeDoctor(100))
	start := testNow.Add(48 * time.Hour)

	apt, err := svc.Book("patient-1", doctor.ID, start, "visit")
	require.NoError(t, err)

	_, err = svc.Cancel(apt.ID, "", Actor{ID: "patient-1", Role: models.RolePatient})
	require.NoError(t, err)

	// The cancelled appointment no longer blocks the slot.
	_, err = svc.Book("patient-2", doctor.ID, start, "visit")
	assert.NoError(t, err)
}

func TestBook_PriceSnapshot(t *testing.T) {
	svc, repo := setupTestService(t, 30)
	doctor := repo.addDoctor(activeDoctor(200000))

	apt, err := svc.Book("patient-1", doctor.ID, testNow.Add(48*time.Hour), "visit")
	require.NoError(t, err)

	// Raising the doctor's price must not touch the existing appointment.
	doctor.PricePerVisit = decimal.NewFromInt(900000)

	stored, err := repo.FindAppointmentByID(apt.ID)
	require.NoError(t, err)
	assert.True(t, stored.PaidPrice.Equal(decimal.NewFromInt(200000)))
}

func TestUpdateStatus_ByAssignedDoctor(t *testing.T) {
	svc, repo := setupTestService(t, 30)
	doctor := repo.addDoctor(activeDoctor(100))

	apt, err := svc.Book("patient-1", doctor.ID, testNow.Add(48*time.Hour), "visit")
	require.NoError(t, err)

	note := "bring previous test results"
	updated, err := svc.UpdateStatus(apt.ID, models.StatusConfirmed, &note, Actor{ID: doctor.UserID, Role: models.RoleDoctor})
	require.NoError(t, err)
	assert.Equal(t, models.StatusConfirmed, updated.Status)
	require.NotNil(t, updated.DoctorNote)
	assert.Equal(t, note, *updated.DoctorNote)
}

func TestUpdateStatus_ByAdmin(t *testing.T) {
	svc, repo := setupTestService(t, 30)
	doctor := repo.addDoctor(activeDoctor(100))

	apt, err := svc.Book("patient-1", doctor.ID, testNow.Add(48*time.Hour), "visit")
	require.NoError(t, err)

	updated, err := svc.UpdateStatus(apt.ID, models.StatusCompleted, nil, Actor{ID: uuid.New().String(), Role: models.RoleAdmin})
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, updated.Status)
	assert.Nil(t, updated.DoctorNote)
}

func TestUpdateStatus_OtherDoctorForbidden(t *testing.T) {
	svc, repo := setupTestService(t, 30)
	doctor := repo.addDoctor(activeDoctor(100))
	otherDoctor := repo.addDoctor(activeDoctor(100))

	apt, err := svc.Book("patient-1", doctor.ID, testNow.Add(48*time.Hour), "visit")
	require.NoError(t, err)

	_, err = svc.UpdateStatus(apt.ID, models.StatusConfirmed, nil, Actor{ID: otherDoctor.UserID, Role: models.RoleDoctor})
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = svc.UpdateStatus(apt.ID, models.StatusConfirmed, nil, Actor{ID: "patient-1", Role: models.RolePatient})
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestUpdateStatus_InvalidEnum(t *testing.T) {
	svc, repo := setupTestService(t, 30)
	doctor := repo.addDoctor(activeDoctor(100))

	apt, err := svc.Book("patient-1", doctor.ID, testNow.Add(48*time.Hour), "visit")
	require.NoError(t, err)

	_, err = svc.UpdateStatus(apt.ID, models.AppointmentStatus("rescheduled"), nil, Actor{ID: doctor.UserID, Role: models.RoleDoctor})
	assert.ErrorIs(t, err, ErrInvalidStatus)
}

func TestConfirmPayment(t *testing.T) {
	svc, repo := setupTestService(t, 30)
	doctor := repo.addDoctor(activeDoctor(100))

	apt, err := svc.Book("patient-1", doctor.ID, testNow.Add(48*time.Hour), "visit")
	require.NoError(t, err)

	updated, err := svc.ConfirmPayment(apt.ID, models.PaymentPaid, Actor{ID: doctor.UserID, Role: models.RoleDoctor})
	require.NoError(t, err)
	assert.Equal(t, models.PaymentPaid, updated.PaymentStatus)

	_, err = svc.ConfirmPayment(apt.ID, models.PaymentStatus("pending"), Actor{ID: doctor.UserID, Role: models.RoleDoctor})
	assert.ErrorIs(t, err, ErrInvalidStatus)

	_, err = svc.ConfirmPayment(apt.ID, models.PaymentPaid, Actor{ID: "patient-1", Role: models.RolePatient})
	assert.ErrorIs(t, err, ErrForbidden)
}

func bookPaidAppointment(t *testing.T, svc *Service, doctor *models.Doctor, start time.Time) *models.Appointment {
	t.Helper()
	apt, err := svc.Book("patient-1", doctor.ID, start, "knee pain")
	require.NoError(t, err)
	paid, err := svc.ConfirmPayment(apt.ID, models.PaymentPaid, Actor{ID: doctor.UserID, Role: models.RoleDoctor})
	require.NoError(t, err)
	return paid
}

func TestCancel_FullRefundOutsideWindow(t *testing.T) {
	svc, repo := setupTestService(t, 30)
	doctor := repo.addDoctor(activeDoctor(500000))

	// 25 hours before start: outside the 24h window, full refund.
	apt := bookPaidAppointment(t, svc, doctor, testNow.Add(25*time.Hour))

	cancelled, err := svc.Cancel(apt.ID, "", Actor{ID: "patient-1", Role: models.RolePatient})
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, cancelled.Status)
	assert.Equal(t, models.PaymentRefunded, cancelled.PaymentStatus)
	assert.True(t, cancelled.RefundAmount.Equal(decimal.NewFromInt(500000)))
}

func TestCancel_NoRefundInsideWindow(t *testing.T) {
	svc, repo := setupTestService(t, 30)
	doctor := repo.addDoctor(activeDoctor(500000))

	// 2 hours before start: inside the window, payment is forfeited.
	apt := bookPaidAppointment(t, svc, doctor, testNow.Add(2*time.Hour))

	cancelled, err := svc.Cancel(apt.ID, "", Actor{ID: "patient-1", Role: models.RolePatient})
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, cancelled.Status)
	assert.Equal(t, models.PaymentPaid, cancelled.PaymentStatus)
	assert.True(t, cancelled.RefundAmount.IsZero())
}

func TestCancel_ExactlyAtWindowBoundary(t *testing.T) {
	svc, repo := setupTestService(t, 30)
	doctor := repo.addDoctor(activeDoctor(500000))

	// Exactly 24 hours before start still qualifies for a full refund.
	apt := bookPaidAppointment(t, svc, doctor, testNow.Add(24*time.Hour))

	cancelled, err := svc.Cancel(apt.ID, "", Actor{ID: "patient-1", Role: models.RolePatient})
	require.NoError(t, err)
	assert.Equal(t, models.PaymentRefunded, cancelled.PaymentStatus)
	assert.True(t, cancelled.RefundAmount.Equal(decimal.NewFromInt(500000)))
}

func TestCancel_UnpaidNeverTouchesPayment(t *testing.T) {
	svc, repo := setupTestService(t, 30)
	doctor := repo.addDoctor(activeDoctor(500000))

	apt, err := svc.Book("patient-1", doctor.ID, testNow.Add(72*time.Hour), "visit")
	require.NoError(t, err)

	cancelled, err := svc.Cancel(apt.ID, "", Actor{ID: "patient-1", Role: models.RolePatient})
	require.NoError(t, err)
	assert.Equal(t, models.PaymentUnpaid, cancelled.PaymentStatus)
	assert.True(t, cancelled.RefundAmount.IsZero())
}

func TestCancel_ReasonIsAppendedNotReplaced(t *testing.T) {
	svc, repo := setupTestService(t, 30)
	doctor := repo.addDoctor(activeDoctor(100))

	apt, err := svc.Book("patient-1", doctor.ID, testNow.Add(48*time.Hour), "knee pain")
	require.NoError(t, err)

	cancelled, err := svc.Cancel(apt.ID, "found a closer clinic", Actor{ID: "patient-1", Role: models.RolePatient})
	require.NoError(t, err)
	assert.Equal(t, "knee pain | [Cancelled]: found a closer clinic", cancelled.Reason)
}

func TestCancel_DefaultNote(t *testing.T) {
	svc, repo := setupTestService(t, 30)
	doctor := repo.addDoctor(activeDoctor(100))

	apt, err := svc.Book("patient-1", doctor.ID, testNow.Add(48*time.Hour), "knee pain")
	require.NoError(t, err)

	cancelled, err := svc.Cancel(apt.ID, "", Actor{ID: "patient-1", Role: models.RolePatient})
	require.NoError(t, err)
	assert.Equal(t, "knee pain | [Cancelled]: "+DefaultCancelNote, cancelled.Reason)
}

func TestCancel_OnlyBookingPatient(t *testing.T) {
	svc, repo := setupTestService(t, 30)
	doctor := repo.addDoctor(activeDoctor(100))

	apt, err := svc.Book("patient-1", doctor.ID, testNow.Add(48*time.Hour), "visit")
	require.NoError(t, err)

	// Doctors and admins cannot cancel on the patient's behalf.
	_, err = svc.Cancel(apt.ID, "", Actor{ID: doctor.UserID, Role: models.RoleDoctor})
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = svc.Cancel(apt.ID, "", Actor{ID: uuid.New().String(), Role: models.RoleAdmin})
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = svc.Cancel(apt.ID, "", Actor{ID: "patient-2", Role: models.RolePatient})
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestCancel_TerminalStates(t *testing.T) {
	svc, repo := setupTestService(t, 30)
	doctor := repo.addDoctor(activeDoctor(100))
	admin := Actor{ID: uuid.New().String(), Role: models.RoleAdmin}
	patient := Actor{ID: "patient-1", Role: models.RolePatient}

	apt, err := svc.Book("patient-1", doctor.ID, testNow.Add(48*time.Hour), "visit")
	require.NoError(t, err)
	_, err = svc.Cancel(apt.ID, "", patient)
	require.NoError(t, err)

	_, err = svc.Cancel(apt.ID, "", patient)
	assert.ErrorIs(t, err, ErrInvalidState)

	second, err := svc.Book("patient-1", doctor.ID, testNow.Add(72*time.Hour), "visit")
	require.NoError(t, err)
	_, err = svc.UpdateStatus(second.ID, models.StatusCompleted, nil, admin)
	require.NoError(t, err)

	_, err = svc.Cancel(second.ID, "", patient)
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestCancel_PastAppointment(t *testing.T) {
	svc, repo := setupTestService(t, 30)
	doctor := repo.addDoctor(activeDoctor(100))

	// Seed an appointment that already started.
	apt := repo.addAppointment(&models.Appointment{
		PatientID:     "patient-1",
		DoctorID:      doctor.ID,
		StartTime:     testNow.Add(-2 * time.Hour),
		EndTime:       testNow.Add(-90 * time.Minute),
		Status:        models.StatusConfirmed,
		Reason:        "visit",
		PaymentStatus: models.PaymentPaid,
		PaidPrice:     decimal.NewFromInt(100),
	})

	_, err := svc.Cancel(apt.ID, "", Actor{ID: "patient-1", Role: models.RolePatient})
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestCancel_NotFound(t *testing.T) {
	svc, _ := setupTestService(t, 30)

	_, err := svc.Cancel(uuid.New().String(), "", Actor{ID: "patient-1", Role: models.RolePatient})
	assert.ErrorIs(t, err, ErrAppointmentNotFound)
}

func TestRevenue(t *testing.T) {
	svc, repo := setupTestService(t, 30)
	doctor := repo.addDoctor(activeDoctor(100))
	admin := Actor{ID: uuid.New().String(), Role: models.RoleAdmin}

	// No completed appointments yet: zero, not an error.
	total, err := svc.Revenue(testNow, testNow.Add(30*24*time.Hour))
	require.NoError(t, err)
	assert.True(t, total.IsZero())

	first, err := svc.Book("patient-1", doctor.ID, testNow.Add(24*time.Hour), "visit")
	require.NoError(t, err)
	second, err := svc.Book("patient-2", doctor.ID, testNow.Add(48*time.Hour), "visit")
	require.NoError(t, err)

	_, err = svc.UpdateStatus(first.ID, models.StatusCompleted, nil, admin)
	require.NoError(t, err)
	_, err = svc.UpdateStatus(second.ID, models.StatusCompleted, nil, admin)
	require.NoError(t, err)

	total, err = svc.Revenue(testNow, testNow.Add(30*24*time.Hour))
	require.NoError(t, err)
	assert.True(t, total.Equal(decimal.NewFromInt(200)))

	// Only the first appointment starts within a narrower range.
	total, err = svc.Revenue(testNow, testNow.Add(36*time.Hour))
	require.NoError(t, err)
	assert.True(t, total.Equal(decimal.NewFromInt(100)))
}

func TestIncome(t *testing.T) {
	svc, repo := setupTestService(t, 30)
	doctor := repo.addDoctor(activeDoctor(150))
	otherDoctor := repo.addDoctor(activeDoctor(999))
	admin := Actor{ID: uuid.New().String(), Role: models.RoleAdmin}

	first, err := svc.Book("patient-1", doctor.ID, testNow.Add(24*time.Hour), "visit")
	require.NoError(t, err)
	second, err := svc.Book("patient-2", doctor.ID, testNow.Add(48*time.Hour), "visit")
	require.NoError(t, err)
	third, err := svc.Book("patient-3", otherDoctor.ID, testNow.Add(24*time.Hour), "visit")
	require.NoError(t, err)

	for _, id := range []string{first.ID, second.ID, third.ID} {
		_, err = svc.UpdateStatus(id, models.StatusCompleted, nil, admin)
		require.NoError(t, err)
	}

	income, err := svc.Income(Actor{ID: doctor.UserID, Role: models.RoleDoctor})
	require.NoError(t, err)
	assert.True(t, income.TotalIncome.Equal(decimal.NewFromInt(300)))
	assert.Equal(t, int64(2), income.TotalPatients)

	// A doctor user without a profile cannot have income.
	_, err = svc.Income(Actor{ID: uuid.New().String(), Role: models.RoleDoctor})
	assert.ErrorIs(t, err, ErrDoctorNotFound)
}
