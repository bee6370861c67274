// Package routes maps the demo API's URL surface onto the handler bundle.
package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"sevasetu/handlers"
	"sevasetu/middleware"
	"sevasetu/models"
)

// RegisterAuthRoutes registers the OTP login and token endpoints.
func RegisterAuthRoutes(r *gin.Engine, hb *handlers.Bundle) {
	auth := r.Group("/auth")
	{
		auth.POST("/:role/login", hb.Auth.RequestOTP)
		auth.POST("/verify-otp", hb.Auth.VerifyOTP)
		auth.POST("/refresh", hb.Auth.Refresh)
		auth.POST("/logout", hb.Auth.Logout)
	}
}

// RegisterCaregiverRoutes registers the caregiver app's endpoints. Everything
// requires a caregiver access token.
func RegisterCaregiverRoutes(r *gin.Engine, hb *handlers.Bundle) {
	api := r.Group("/caregiver")
	api.Use(middleware.RequireRole(models.RoleCaregiver, hb.Sessions))
	{
		api.GET("/me", hb.Caregiver.Me)
		api.PUT("/update", hb.Caregiver.Update)
		api.PUT("/profile", hb.Caregiver.Update)
		api.POST("/availability", hb.Caregiver.SetAvailability)
		api.GET("/jobs/me", hb.Caregiver.MyJobs)
		api.GET("/bookings/pending", hb.Caregiver.PendingBookings)
		api.PUT("/bookings/:id/status", hb.Caregiver.UpdateBookingStatus)
		api.POST("/start-job/:id", hb.Caregiver.StartJob)
		api.POST("/end-job/:id", hb.Caregiver.EndJob)
		api.POST("/pause-job/:id", hb.Caregiver.PauseJob)
		api.POST("/resume-job/:id", hb.Caregiver.ResumeJob)
	}
}

// RegisterCivilianRoutes registers the civilian app's endpoints. Everything
// requires a civilian access token.
func RegisterCivilianRoutes(r *gin.Engine, hb *handlers.Bundle) {
	api := r.Group("/civilian")
	api.Use(middleware.RequireRole(models.RoleCivilian, hb.Sessions))
	{
		api.POST("/request-care", hb.Civilian.RequestCare)
		api.POST("/match-caregivers", hb.Civilian.MatchCaregivers)
		api.POST("/confirm-booking", hb.Civilian.ConfirmBooking)
		api.GET("/booking/status/:id", hb.Civilian.BookingStatus)
		api.POST("/submit-rating", hb.Civilian.SubmitRating)
		api.PUT("/profile", hb.Civilian.UpdateProfile)
		api.POST("/safety/session/start", hb.Civilian.StartSafetySession)
	}
}

// RegisterHealthRoute registers a health-check endpoint.
func RegisterHealthRoute(r *gin.Engine) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "message": "Hi, I'm SevaSetu"})
	})
}

// SetupRoutes registers the whole demo API surface.
func SetupRoutes(r *gin.Engine, hb *handlers.Bundle) {
	RegisterHealthRoute(r)
	RegisterAuthRoutes(r, hb)
	RegisterCaregiverRoutes(r, hb)
	RegisterCivilianRoutes(r, hb)
}
