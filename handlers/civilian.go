package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"sevasetu/database/repository"
	"sevasetu/models"
	"sevasetu/services/matching"
	"sevasetu/utils"
)

// CivilianHandler serves the civilian app's API surface.
type CivilianHandler struct {
	Civilians  repository.CivilianRepository
	Caregivers repository.CaregiverRepository
	Bookings   repository.BookingRepository
	Ratings    repository.RatingRepository
	Matcher    matching.MatchingService
}

type careRequest struct {
	CivilianID     int64     `json:"civilian_id"`
	RequiredSkills []string  `json:"required_skills"`
	StartTime      time.Time `json:"start_time" binding:"required"`
	EndTime        time.Time `json:"end_time" binding:"required"`
	Notes          string    `json:"notes"`
}

type confirmBookingRequest struct {
	CivilianID  int64     `json:"civilian_id"`
	CaregiverID int64     `json:"caregiver_id" binding:"required"`
	StartTime   time.Time `json:"start_time" binding:"required"`
	EndTime     time.Time `json:"end_time" binding:"required"`
}

type submitRatingRequest struct {
	CaregiverID int64  `json:"caregiver_id" binding:"required"`
	Rating      int    `json:"rating" binding:"required"`
	ReviewText  string `json:"review_text"`
}

// RequestCare opens a pending booking. A civilian can hold only one live
// booking; a second request answers 409.
func (h *CivilianHandler) RequestCare(c *gin.Context) {
	cv, ok := h.ownProfile(c)
	if !ok {
		return
	}

	var req careRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "Invalid request", err.Error())
		return
	}
	if !req.EndTime.After(req.StartTime) {
		utils.JSONError(c, http.StatusBadRequest, "End time must be after start time", "")
		return
	}

	if active, err := h.Bookings.ActiveByCivilian(cv.ID); err == nil {
		utils.JSONError(c, http.StatusConflict,
			"An active booking already exists", strconv.FormatInt(active.ID, 10))
		return
	}

	booking := &models.Booking{
		CivilianID: cv.ID,
		StartTime:  req.StartTime,
		EndTime:    req.EndTime,
		Status:     models.StatusPending,
	}
	if err := h.Bookings.Create(booking); err != nil {
		utils.JSONError(c, http.StatusInternalServerError, "Failed to create booking", err.Error())
		return
	}
	c.JSON(http.StatusCreated, gin.H{"booking_id": booking.ID, "status": booking.Status})
}

// MatchCaregivers ranks available caregivers for the request and moves the
// civilian's pending booking to matched, pre-assigning the best candidate.
func (h *CivilianHandler) MatchCaregivers(c *gin.Context) {
	cv, ok := h.ownProfile(c)
	if !ok {
		return
	}

	var req careRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "Invalid request", err.Error())
		return
	}

	candidates, err := h.Matcher.MatchCaregivers(req.RequiredSkills)
	if err != nil {
		utils.GetLogger().Error("matching failed", zap.Error(err))
		utils.JSONError(c, http.StatusInternalServerError, "Matching failed", err.Error())
		return
	}

	if len(candidates) > 0 {
		if booking, err := h.Bookings.ActiveByCivilian(cv.ID); err == nil &&
			booking.Status == models.StatusPending {
			booking.Status = models.StatusMatched
			booking.CaregiverID = candidates[0].CaregiverID
			if err := h.Bookings.Update(booking); err != nil {
				utils.GetLogger().Warn("failed to mark booking matched", zap.Error(err))
			}
		}
	}

	c.JSON(http.StatusOK, gin.H{"caregivers": candidates})
}

// ConfirmBooking locks in the chosen caregiver. The caregiver's time slot is
// checked for overlap with their other live bookings; a clash answers 409.
func (h *CivilianHandler) ConfirmBooking(c *gin.Context) {
	cv, ok := h.ownProfile(c)
	if !ok {
		return
	}

	var req confirmBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "Invalid request", err.Error())
		return
	}
	if _, err := h.Caregivers.GetByID(req.CaregiverID); err != nil {
		utils.JSONError(c, http.StatusNotFound, "Caregiver not found", "")
		return
	}

	overlap, err := h.Bookings.HasOverlap(req.CaregiverID, req.StartTime, req.EndTime)
	if err != nil {
		utils.JSONError(c, http.StatusInternalServerError, "Availability check failed", err.Error())
		return
	}
	if overlap {
		utils.JSONError(c, http.StatusConflict, "Caregiver is already booked for this time slot", "")
		return
	}

	booking, err := h.Bookings.ActiveByCivilian(cv.ID)
	if err != nil || (booking.Status != models.StatusPending && booking.Status != models.StatusMatched) {
		booking = &models.Booking{
			CivilianID:  cv.ID,
			CaregiverID: req.CaregiverID,
			StartTime:   req.StartTime,
			EndTime:     req.EndTime,
			Status:      models.StatusConfirmed,
		}
		if err := h.Bookings.Create(booking); err != nil {
			utils.JSONError(c, http.StatusInternalServerError, "Failed to create booking", err.Error())
			return
		}
	} else {
		booking.CaregiverID = req.CaregiverID
		booking.StartTime = req.StartTime
		booking.EndTime = req.EndTime
		if booking.Status == models.StatusPending {
			booking.Status = models.StatusMatched
		}
		booking.Status = models.StatusConfirmed
		if err := h.Bookings.Update(booking); err != nil {
			utils.JSONError(c, http.StatusInternalServerError, "Failed to update booking", err.Error())
			return
		}
	}

	c.JSON(http.StatusCreated, gin.H{
		"booking_id":   booking.ID,
		"caregiver_id": booking.CaregiverID,
		"status":       booking.Status,
	})
}

// BookingStatus is the poll target for a tracked booking.
func (h *CivilianHandler) BookingStatus(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		utils.JSONError(c, http.StatusBadRequest, "Invalid booking id", c.Param("id"))
		return
	}
	booking, err := h.Bookings.GetByID(id)
	if err != nil {
		utils.JSONError(c, http.StatusNotFound, "Booking not found", "")
		return
	}

	name := ""
	if booking.CaregiverID != 0 {
		if cg, err := h.Caregivers.GetByID(booking.CaregiverID); err == nil {
			name = cg.Name
		}
	}
	c.JSON(http.StatusOK, gin.H{
		"status":         booking.Status,
		"caregiver_id":   booking.CaregiverID,
		"caregiver_name": name,
	})
}

// SubmitRating records a 1-5 star review, refreshes the caregiver's rating
// average and trust score, and closes the completed booking.
func (h *CivilianHandler) SubmitRating(c *gin.Context) {
	cv, ok := h.ownProfile(c)
	if !ok {
		return
	}

	var req submitRatingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "Invalid request", err.Error())
		return
	}
	if req.Rating < 1 || req.Rating > 5 {
		utils.JSONError(c, http.StatusBadRequest, "Rating must be between 1 and 5", "")
		return
	}

	cg, err := h.Caregivers.GetByID(req.CaregiverID)
	if err != nil {
		utils.JSONError(c, http.StatusNotFound, "Caregiver not found", "")
		return
	}

	rating := &models.Rating{
		CaregiverID: cg.ID,
		Rating:      req.Rating,
		ReviewText:  req.ReviewText,
	}
	if err := h.Ratings.Create(rating); err != nil {
		utils.JSONError(c, http.StatusInternalServerError, "Failed to store rating", err.Error())
		return
	}

	// Rate, then auto-close, so the civilian stops polling.
	if booking, err := h.Bookings.ActiveByCivilian(cv.ID); err == nil &&
		booking.Status == models.StatusCompleted {
		booking.Status = models.StatusRated
		if err := h.Bookings.Update(booking); err == nil {
			booking.Status = models.StatusClosed
			_ = h.Bookings.Update(booking)
		}
	}

	avg, err := h.Ratings.AverageForCaregiver(cg.ID)
	if err == nil {
		completed, _ := h.Bookings.CountCompleted(cg.ID)
		cg.RatingAverage = avg
		cg.TrustScore = models.TrustScore(cg.Verified, avg, completed)
		if err := h.Caregivers.Update(cg); err != nil {
			utils.GetLogger().Warn("failed to refresh caregiver trust score", zap.Error(err))
		}
	}

	c.JSON(http.StatusCreated, gin.H{
		"rating_id":    rating.ID,
		"caregiver_id": cg.ID,
		"rating":       req.Rating,
		"message":      "Rating submitted. Booking closed.",
	})
}

// UpdateProfile updates the civilian's display name.
func (h *CivilianHandler) UpdateProfile(c *gin.Context) {
	cv, ok := h.ownProfile(c)
	if !ok {
		return
	}

	var req struct {
		Name string `json:"name"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "Invalid request", err.Error())
		return
	}
	if req.Name != "" {
		cv.Name = req.Name
		if err := h.Civilians.Update(cv); err != nil {
			utils.JSONError(c, http.StatusInternalServerError, "Failed to update profile", err.Error())
			return
		}
	}
	c.JSON(http.StatusOK, cv)
}

// StartSafetySession opens a simulated guardian safety stream.
func (h *CivilianHandler) StartSafetySession(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"session_id": uuid.NewString(),
		"stream_url": "/demo-stream",
	})
}

func (h *CivilianHandler) ownProfile(c *gin.Context) (*models.Civilian, bool) {
	identityID := c.GetInt64(ContextIdentityID)
	cv, err := h.Civilians.GetByIdentityID(identityID)
	if err != nil {
		utils.JSONError(c, http.StatusNotFound, "Civilian profile not found", "")
		return nil, false
	}
	return cv, true
}
