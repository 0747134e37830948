package models

import (
	"github.com/shopspring/decimal"
)

// Doctor represents a doctor profile linked to a user account.
// PricePerVisit is the current consultation price; appointments snapshot it
// at booking time and are never affected by later price changes.
type Doctor struct {
	BaseModel
	UserID        string          `gorm:"size:36;uniqueIndex;not null" json:"userId"`
	Specialty     string          `gorm:"size:100;not null;index" json:"specialty"`
	PricePerVisit decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"pricePerVisit"`
	Description   string          `gorm:"size:500" json:"description,omitempty"`
	IsActive      bool            `gorm:"default:true" json:"isActive"`

	// Relations
	User         User          `gorm:"foreignKey:UserID" json:"-"`
	Appointments []Appointment `gorm:"foreignKey:DoctorID" json:"-"`
}
