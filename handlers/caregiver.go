package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"sevasetu/database/repository"
	"sevasetu/models"
	"sevasetu/utils"
)

// Context keys set by the auth middleware.
const (
	ContextIdentityID = "identity_id"
	ContextRole       = "role"
	ContextSessionID  = "session_id"
)

// CaregiverHandler serves the caregiver app's API surface.
type CaregiverHandler struct {
	Caregivers repository.CaregiverRepository
	Civilians  repository.CivilianRepository
	Bookings   repository.BookingRepository
	Ratings    repository.RatingRepository
}

// Me returns the logged-in caregiver's profile with a freshly computed trust
// score.
func (h *CaregiverHandler) Me(c *gin.Context) {
	cg, ok := h.ownProfile(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, cg)
}

type caregiverUpdateRequest struct {
	Name            *string   `json:"name"`
	Gender          *string   `json:"gender"`
	Skills          *[]string `json:"skills"`
	ExperienceYears *int      `json:"experience_years"`
}

// Update applies the non-nil fields to the caregiver's own profile.
func (h *CaregiverHandler) Update(c *gin.Context) {
	cg, ok := h.ownProfile(c)
	if !ok {
		return
	}

	var req caregiverUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "Invalid request", err.Error())
		return
	}

	if req.Name != nil {
		cg.Name = *req.Name
	}
	if req.Gender != nil {
		cg.Gender = *req.Gender
	}
	if req.Skills != nil {
		cg.Skills = *req.Skills
	}
	if req.ExperienceYears != nil {
		cg.ExperienceYears = *req.ExperienceYears
	}
	if err := h.Caregivers.Update(cg); err != nil {
		utils.JSONError(c, http.StatusInternalServerError, "Failed to update caregiver", err.Error())
		return
	}
	c.JSON(http.StatusOK, cg)
}

// SetAvailability toggles whether the caregiver is offered new jobs.
func (h *CaregiverHandler) SetAvailability(c *gin.Context) {
	cg, ok := h.ownProfile(c)
	if !ok {
		return
	}

	var req struct {
		Available bool `json:"available"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "Invalid request", err.Error())
		return
	}

	cg.Available = req.Available
	if err := h.Caregivers.Update(cg); err != nil {
		utils.JSONError(c, http.StatusInternalServerError, "Failed to update availability", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"caregiver_id": cg.ID, "available": cg.Available})
}

// MyJobs lists every booking ever assigned to the caregiver, newest last.
func (h *CaregiverHandler) MyJobs(c *gin.Context) {
	cg, ok := h.ownProfile(c)
	if !ok {
		return
	}

	bookings, err := h.Bookings.ListByCaregiver(cg.ID)
	if err != nil {
		utils.JSONError(c, http.StatusInternalServerError, "Failed to list jobs", err.Error())
		return
	}
	c.JSON(http.StatusOK, h.toJobs(bookings))
}

// PendingBookings lists confirmed bookings awaiting the caregiver's decision.
func (h *CaregiverHandler) PendingBookings(c *gin.Context) {
	cg, ok := h.ownProfile(c)
	if !ok {
		return
	}

	bookings, err := h.Bookings.PendingForCaregiver(cg.ID)
	if err != nil {
		utils.JSONError(c, http.StatusInternalServerError, "Failed to list pending bookings", err.Error())
		return
	}
	c.JSON(http.StatusOK, h.toJobs(bookings))
}

// UpdateBookingStatus accepts or rejects an offered booking.
func (h *CaregiverHandler) UpdateBookingStatus(c *gin.Context) {
	booking, ok := h.bookingFromPath(c)
	if !ok {
		return
	}

	var req struct {
		Status string `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "Invalid request", err.Error())
		return
	}

	switch req.Status {
	case models.StatusAccepted, models.StatusRejected:
	default:
		utils.JSONError(c, http.StatusBadRequest, "Status must be accepted or rejected", req.Status)
		return
	}

	if !h.transition(c, booking, req.Status) {
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Booking " + req.Status, "status": booking.Status})
}

// StartJob marks the caregiver's arrival and moves the booking to
// in_progress.
func (h *CaregiverHandler) StartJob(c *gin.Context) {
	booking, ok := h.bookingFromPath(c)
	if !ok {
		return
	}
	if !h.transition(c, booking, models.StatusInProgress) {
		return
	}
	now := time.Now()
	booking.StartedAt = &now
	if err := h.Bookings.Update(booking); err != nil {
		utils.JSONError(c, http.StatusInternalServerError, "Failed to update booking", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"booking_id": booking.ID, "status": booking.Status})
}

// EndJob completes an in-progress booking.
func (h *CaregiverHandler) EndJob(c *gin.Context) {
	booking, ok := h.bookingFromPath(c)
	if !ok {
		return
	}
	if !h.transition(c, booking, models.StatusCompleted) {
		return
	}
	now := time.Now()
	booking.EndedAt = &now
	if err := h.Bookings.Update(booking); err != nil {
		utils.JSONError(c, http.StatusInternalServerError, "Failed to update booking", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"booking_id": booking.ID, "status": booking.Status})
}

// PauseJob pauses an in-progress booking after a safety alert.
func (h *CaregiverHandler) PauseJob(c *gin.Context) {
	booking, ok := h.bookingFromPath(c)
	if !ok {
		return
	}
	if !h.transition(c, booking, models.StatusPaused) {
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Job paused due to safety alert", "booking_id": booking.ID, "status": booking.Status})
}

// ResumeJob resumes a paused booking.
func (h *CaregiverHandler) ResumeJob(c *gin.Context) {
	booking, ok := h.bookingFromPath(c)
	if !ok {
		return
	}
	if !h.transition(c, booking, models.StatusInProgress) {
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Job resumed", "booking_id": booking.ID, "status": booking.Status})
}

// ownProfile resolves the caller's caregiver profile and refreshes its trust
// score from the booking and rating repositories. Writes the error response
// itself when resolution fails.
func (h *CaregiverHandler) ownProfile(c *gin.Context) (*models.Caregiver, bool) {
	identityID := c.GetInt64(ContextIdentityID)
	cg, err := h.Caregivers.GetByIdentityID(identityID)
	if err != nil {
		utils.JSONError(c, http.StatusNotFound, "Caregiver profile not found", "")
		return nil, false
	}

	completed, err := h.Bookings.CountCompleted(cg.ID)
	if err != nil {
		utils.GetLogger().Warn("completed-booking count failed", zap.Error(err))
	}
	cg.TrustScore = models.TrustScore(cg.Verified, cg.RatingAverage, completed)
	return cg, true
}

func (h *CaregiverHandler) bookingFromPath(c *gin.Context) (*models.Booking, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		utils.JSONError(c, http.StatusBadRequest, "Invalid booking id", c.Param("id"))
		return nil, false
	}
	booking, err := h.Bookings.GetByID(id)
	if err != nil {
		utils.JSONError(c, http.StatusNotFound, "Booking not found", "")
		return nil, false
	}
	return booking, true
}

// transition applies the workflow guard and persists the new status. Illegal
// moves answer 409.
func (h *CaregiverHandler) transition(c *gin.Context, booking *models.Booking, target string) bool {
	if !models.CanTransition(booking.Status, target) {
		utils.JSONError(c, http.StatusConflict,
			"Illegal booking transition", booking.Status+" -> "+target)
		return false
	}
	booking.Status = target
	if err := h.Bookings.Update(booking); err != nil {
		utils.JSONError(c, http.StatusInternalServerError, "Failed to update booking", err.Error())
		return false
	}
	return true
}

func (h *CaregiverHandler) toJobs(bookings []models.Booking) []models.Job {
	jobs := make([]models.Job, 0, len(bookings))
	for _, b := range bookings {
		name := "Patient"
		if cv, err := h.Civilians.GetByID(b.CivilianID); err == nil {
			name = cv.Name
		}
		jobs = append(jobs, models.Job{
			ID:           b.ID,
			CivilianID:   b.CivilianID,
			CivilianName: name,
			StartTime:    b.StartTime,
			EndTime:      b.EndTime,
			Status:       b.Status,
		})
	}
	return jobs
}
