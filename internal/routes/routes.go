package routes

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"clinic-booking-server/internal/config"
	"clinic-booking-server/internal/handlers"
	"clinic-booking-server/internal/middleware"
	"clinic-booking-server/internal/models"
	"clinic-booking-server/internal/scheduling"
)

// SetupRoutes configures the application routes.
func SetupRoutes(router *gin.Engine, db *gorm.DB, cfg *config.Config, scheduler *scheduling.Service) {
	// Initialize handlers
	authHandler := handlers.NewAuthHandler(db, cfg)
	userHandler := handlers.NewUserHandler(db)
	doctorHandler := handlers.NewDoctorHandler(db)
	appointmentHandler := handlers.NewAppointmentHandler(db, scheduler)

	// Public routes (no authentication required)
	public := router.Group("/api/v1")
	{
		authRoutes := public.Group("/auth")
		{
			authRoutes.POST("/register", authHandler.Register)
			authRoutes.POST("/login", authHandler.Login)
			authRoutes.POST("/refresh-token", authHandler.RefreshToken)
		}

		// Doctor discovery is public so patients can browse before signing in
		public.GET("/doctors", doctorHandler.GetDoctors)
		public.GET("/doctors/specialties", doctorHandler.GetSpecialties)
		public.GET("/doctors/:id", doctorHandler.GetDoctorByID)
	}

	// Authenticated routes
	private := router.Group("/api/v1")
	private.Use(middleware.AuthMiddleware(cfg))
	{
		authRoutesPrivate := private.Group("/auth")
		{
			authRoutesPrivate.POST("/logout", authHandler.Logout)
			authRoutesPrivate.GET("/profile", authHandler.GetProfile)
			authRoutesPrivate.PUT("/profile", authHandler.UpdateProfile)
		}

		// User management routes (admin only)
		userRoutes := private.Group("/users")
		userRoutes.Use(middleware.RoleAuthMiddleware(models.RoleAdmin))
		{
			userRoutes.POST("", userHandler.CreateUser)
			userRoutes.GET("", userHandler.GetUsers)
			userRoutes.GET("/:id", userHandler.GetUserByID)
			userRoutes.PUT("/:id", userHandler.UpdateUser)
			userRoutes.DELETE("/:id", userHandler.DeleteUser)
		}

		// Doctor profile management
		doctorRoutes := private.Group("/doctors")
		{
			doctorRoutes.POST("", middleware.RoleAuthMiddleware(models.RoleAdmin), doctorHandler.CreateDoctor)
			// Owner-or-admin check happens in the handler
			doctorRoutes.PATCH("/:id", middleware.RoleAuthMiddleware(models.RoleDoctor, models.RoleAdmin), doctorHandler.UpdateDoctor)
		}

		// Appointment routes
		appointmentRoutes := private.Group("/appointments")
		{
			// Patients book for themselves
			appointmentRoutes.POST("", middleware.RoleAuthMiddleware(models.RolePatient), appointmentHandler.CreateAppointment)

			// Role-branched "my appointments" view
			appointmentRoutes.GET("", appointmentHandler.GetAppointmentsForUser)

			// Reports. Registered before /:id so the literal paths win.
			appointmentRoutes.GET("/revenue", middleware.RoleAuthMiddleware(models.RoleAdmin), appointmentHandler.GetRevenue)
			appointmentRoutes.GET("/income", middleware.RoleAuthMiddleware(models.RoleDoctor), appointmentHandler.GetDoctorIncome)

			// Specific appointment access (involved patient, assigned doctor, or admin)
			appointmentRoutes.GET("/:id", appointmentHandler.GetAppointmentByID)

			// Status and payment updates (assigned doctor or admin, checked in the service)
			appointmentRoutes.PATCH("/:id/status", middleware.RoleAuthMiddleware(models.RoleDoctor, models.RoleAdmin), appointmentHandler.UpdateAppointmentStatus)
			appointmentRoutes.PATCH("/:id/payment", middleware.RoleAuthMiddleware(models.RoleDoctor, models.RoleAdmin), appointmentHandler.ConfirmPayment)

			// Cancellation (booking patient only, checked in the service)
			appointmentRoutes.POST("/:id/cancel", middleware.RoleAuthMiddleware(models.RolePatient), appointmentHandler.CancelAppointment)
		}
	}

	// Simple health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "UP"})
	})
}
