package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"school-app-server/internal/config"
	"school-app-server/internal/handlers"
	"school-app-server/internal/middleware"
	"school-app-server/internal/models"
	"school-app-server/internal/services"
)

// SetupRoutes configures the application routes.
func SetupRoutes(router *gin.Engine, db *gorm.DB, cfg *config.Config, appointments *services.AppointmentService) {
	authHandler := handlers.NewAuthHandler(db, cfg)
	userHandler := handlers.NewUserHandler(db)
	appointmentHandler := handlers.NewAppointmentHandler(appointments)
	incidentHandler := handlers.NewIncidentHandler(db)

	staffOnly := middleware.RoleAuthMiddleware(models.StaffRoles...)
	adminOnly := middleware.RoleAuthMiddleware(models.RoleAdmin)

	// Public routes
	public := router.Group("/api/v1")
	{
		authRoutes := public.Group("/auth")
		{
			authRoutes.POST("/register", authHandler.Register)
			authRoutes.POST("/login", authHandler.Login)
			authRoutes.POST("/refresh-token", authHandler.RefreshToken)
		}
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

		userRoutes := private.Group("/users")
		{
			// Anyone signed in can see whose calendar is bookable
			userRoutes.GET("/practitioners", userHandler.GetPractitioners)
			userRoutes.GET("/students", staffOnly, userHandler.GetStudents)

			adminRoutes := userRoutes.Group("")
			adminRoutes.Use(adminOnly)
			{
				adminRoutes.POST("", userHandler.CreateUser)
				adminRoutes.GET("", userHandler.GetUsers)
				adminRoutes.GET("/:id", userHandler.GetUserByID)
				adminRoutes.PUT("/:id", userHandler.UpdateUser)
				adminRoutes.DELETE("/:id", userHandler.DeleteUser)
			}
		}

		// Authorization per role happens in the appointment service
		appointmentRoutes := private.Group("/appointments")
		{
			appointmentRoutes.GET("/availability", appointmentHandler.GetAvailability)
			appointmentRoutes.POST("", middleware.RoleAuthMiddleware(models.RoleStudent, models.RolePsychologist, models.RoleAdmin), appointmentHandler.CreateAppointment)
			appointmentRoutes.GET("", appointmentHandler.GetAppointmentsForUser)
			appointmentRoutes.GET("/:id", appointmentHandler.GetAppointmentByID)
			appointmentRoutes.PATCH("/:id/status", appointmentHandler.UpdateAppointmentStatus)
			appointmentRoutes.PATCH("/:id/reschedule", appointmentHandler.RescheduleAppointment)
		}

		incidentRoutes := private.Group("/incidents")
		{
			incidentRoutes.POST("", staffOnly, incidentHandler.CreateIncident)
			incidentRoutes.GET("", incidentHandler.GetIncidents)
			incidentRoutes.GET("/:id", incidentHandler.GetIncidentByID)
			incidentRoutes.PATCH("/:id/resolve", staffOnly, incidentHandler.ResolveIncident)
			incidentRoutes.DELETE("/:id", adminOnly, incidentHandler.DeleteIncident)
		}
	}

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "UP"})
	})
}
