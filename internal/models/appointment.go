package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// AppointmentStatus represents the status of an appointment
type AppointmentStatus string

const (
	StatusPending   AppointmentStatus = "pending"
	StatusConfirmed AppointmentStatus = "confirmed"
	StatusCancelled AppointmentStatus = "cancelled" // canonical spelling, "canceled" is not a distinct state
	StatusCompleted AppointmentStatus = "completed"
)

// IsValid reports whether s is a member of the status enum.
func (s AppointmentStatus) IsValid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusCancelled, StatusCompleted:
		return true
	}
	return false
}

// statusTransitions declares which status moves are permitted. Every move is
// currently allowed, matching the original contract; restricting one (e.g.
// completed -> pending) is a single row edit here.
var statusTransitions = map[AppointmentStatus][]AppointmentStatus{
	StatusPending:   {StatusPending, StatusConfirmed, StatusCancelled, StatusCompleted},
	StatusConfirmed: {StatusPending, StatusConfirmed, StatusCancelled, StatusCompleted},
	StatusCancelled: {StatusPending, StatusConfirmed, StatusCancelled, StatusCompleted},
	StatusCompleted: {StatusPending, StatusConfirmed, StatusCancelled, StatusCompleted},
}

// CanTransitionTo reports whether the declared transition table allows moving
// from s to next.
func (s AppointmentStatus) CanTransitionTo(next AppointmentStatus) bool {
	for _, allowed := range statusTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// PaymentStatus represents the payment state of an appointment
type PaymentStatus string

const (
	PaymentUnpaid   PaymentStatus = "unpaid"
	PaymentPaid     PaymentStatus = "paid"
	PaymentRefunded PaymentStatus = "refunded"
)

// IsValid reports whether p is a member of the payment status enum.
func (p PaymentStatus) IsValid() bool {
	switch p {
	case PaymentUnpaid, PaymentPaid, PaymentRefunded:
		return true
	}
	return false
}

// Appointment represents a scheduled medical appointment.
// PaidPrice is snapshotted from the doctor's price at booking time.
// Reason is append-only: cancellation notes are concatenated, never replace it.
type Appointment struct {
	BaseModel
	PatientID     string            `gorm:"size:36;index;not null" json:"patientId"`
	DoctorID      string            `gorm:"size:36;index;not null" json:"doctorId"`
	StartTime     time.Time         `gorm:"index;not null" json:"startTime"`
	EndTime       time.Time         `gorm:"not null" json:"endTime"`
	Status        AppointmentStatus `gorm:"size:20;default:'pending'" json:"status"`
	Reason        string            `gorm:"size:500;not null" json:"reason"`
	PaidPrice     decimal.Decimal   `gorm:"type:decimal(12,2)" json:"paidPrice"`
	PaymentStatus PaymentStatus     `gorm:"size:20;default:'unpaid'" json:"paymentStatus"`
	RefundAmount  decimal.Decimal   `gorm:"type:decimal(12,2);default:0" json:"refundAmount"`
	DoctorNote    *string           `gorm:"type:text" json:"doctorNote,omitempty"`

	// Relations
	Patient User   `gorm:"foreignKey:PatientID" json:"-"`
	Doctor  Doctor `gorm:"foreignKey:DoctorID" json:"-"`
}
