package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"clinic-booking-server/internal/middleware"
	"clinic-booking-server/internal/models"
	"clinic-booking-server/internal/utils"
)

// DoctorHandler handles doctor profile and specialty requests.
type DoctorHandler struct {
	DB *gorm.DB
}

// NewDoctorHandler creates a new DoctorHandler.
func NewDoctorHandler(db *gorm.DB) *DoctorHandler {
	return &DoctorHandler{DB: db}
}

// CreateDoctorRequest represents the request body for creating a doctor profile.
type CreateDoctorRequest struct {
	UserID        string          `json:"userId" binding:"required,uuid"`
	Specialty     string          `json:"specialty" binding:"required"`
	PricePerVisit decimal.Decimal `json:"pricePerVisit" binding:"required"`
	Description   string          `json:"description"`
}

// CreateDoctor handles creating a doctor profile for an existing user (admin).
// The user's role is promoted to doctor in the same transaction.
func (h *DoctorHandler) CreateDoctor(c *gin.Context) {
	var req CreateDoctorRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	if req.PricePerVisit.IsNegative() {
		utils.BadRequest(c, "Price per visit must not be negative")
		return
	}

	var user models.User
	if err := h.DB.First(&user, "id = ?", req.UserID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			utils.NotFound(c, "User not found")
		} else {
			utils.InternalServerError(c, "Database error: "+err.Error())
		}
		return
	}

	var existingDoctor models.Doctor
	if err := h.DB.Where("user_id = ?", req.UserID).First(&existingDoctor).Error; err == nil {
		utils.BadRequest(c, "User already has a doctor profile")
		return
	} else if err != gorm.ErrRecordNotFound {
		utils.InternalServerError(c, "Database error: "+err.Error())
		return
	}

	doctor := models.Doctor{
		UserID:        req.UserID,
		Specialty:     req.Specialty,
		PricePerVisit: req.PricePerVisit,
		Description:   req.Description,
		IsActive:      true,
	}

	err := h.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&doctor).Error; err != nil {
			return err
		}
		return tx.Model(&user).Update("role", models.RoleDoctor).Error
	})
	if err != nil {
		utils.InternalServerError(c, "Failed to create doctor profile: "+err.Error())
		return
	}

	utils.Created(c, "Doctor profile created successfully", doctor)
}

// GetDoctors handles fetching active doctors with optional specialty and
// free-text filters plus skip/limit paging.
func (h *DoctorHandler) GetDoctors(c *gin.Context) {
	skip, _ := strconv.Atoi(c.DefaultQuery("skip", "0"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))
	if limit <= 0 || limit > 100 {
		limit = 10
	}

	query := h.DB.Model(&models.Doctor{}).Preload("User").Where("doctors.is_active = ?", true)

	if specialty := c.Query("specialty"); specialty != "" {
		query = query.Where("specialty LIKE ?", "%"+specialty+"%")
	}
	if search := c.Query("search"); search != "" {
		term := "%" + search + "%"
		query = query.Joins("JOIN users ON users.id = doctors.user_id").
			Where("doctors.description LIKE ? OR users.full_name LIKE ?", term, term)
	}

	var doctors []models.Doctor
	if err := query.Offset(skip).Limit(limit).Find(&doctors).Error; err != nil {
		utils.InternalServerError(c, "Failed to fetch doctors: "+err.Error())
		return
	}

	utils.Success(c, "Doctors fetched successfully", doctors)
}

// GetSpecialties handles fetching the distinct list of specialties for
// filter dropdowns.
func (h *DoctorHandler) GetSpecialties(c *gin.Context) {
	var specialties []string
	if err := h.DB.Model(&models.Doctor{}).
		Distinct().
		Where("specialty <> ''").
		Pluck("specialty", &specialties).Error; err != nil {
		utils.InternalServerError(c, "Failed to fetch specialties: "+err.Error())
		return
	}

	utils.Success(c, "Specialties fetched successfully", specialties)
}

// GetDoctorByID handles fetching a single doctor profile.
func (h *DoctorHandler) GetDoctorByID(c *gin.Context) {
	doctorID := c.Param("id")

	var doctor models.Doctor
	if err := h.DB.Preload("User").First(&doctor, "id = ?", doctorID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			utils.NotFound(c, "Doctor not found")
		} else {
			utils.InternalServerError(c, "Database error: "+err.Error())
		}
		return
	}

	utils.Success(c, "Doctor fetched successfully", doctor)
}

// UpdateDoctorRequest represents the request body for updating a doctor profile.
type UpdateDoctorRequest struct {
	Specialty     string           `json:"specialty"`
	PricePerVisit *decimal.Decimal `json:"pricePerVisit,omitempty"`
	Description   string           `json:"description"`
	IsActive      *bool            `json:"isActive,omitempty"`
}

// UpdateDoctor handles updating a doctor profile. Allowed for admins and the
// doctor who owns the profile. Price changes only affect future bookings:
// existing appointments keep the price snapshotted when they were created.
func (h *DoctorHandler) UpdateDoctor(c *gin.Context) {
	doctorID := c.Param("id")

	var req UpdateDoctorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, "Invalid request payload: "+err.Error())
		return
	}

	var doctor models.Doctor
	if err := h.DB.First(&doctor, "id = ?", doctorID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			utils.NotFound(c, "Doctor not found")
		} else {
			utils.InternalServerError(c, "Database error: "+err.Error())
		}
		return
	}

	userID, _ := middleware.GetUserIDFromContext(c)
	userRole, _ := middleware.GetUserRoleFromContext(c)
	if userRole != models.RoleAdmin && doctor.UserID != userID {
		utils.Forbidden(c, "You are not authorized to update this doctor profile")
		return
	}

	if req.Specialty != "" {
		doctor.Specialty = req.Specialty
	}
	if req.PricePerVisit != nil {
		if req.PricePerVisit.IsNegative() {
			utils.BadRequest(c, "Price per visit must not be negative")
			return
		}
		doctor.PricePerVisit = *req.PricePerVisit
	}
	if req.Description != "" {
		doctor.Description = req.Description
	}
	if req.IsActive != nil {
		doctor.IsActive = *req.IsActive
	}

	if err := h.DB.Save(&doctor).Error; err != nil {
		utils.InternalServerError(c, "Failed to update doctor profile: "+err.Error())
		return
	}

	utils.Success(c, "Doctor profile updated successfully", doctor)
}
