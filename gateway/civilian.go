package gateway

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"sevasetu/models"
)

// CareRequest describes the care a civilian needs.
type CareRequest struct {
	CivilianID     int64     `json:"civilian_id"`
	RequiredSkills []string  `json:"required_skills"`
	StartTime      time.Time `json:"start_time"`
	EndTime        time.Time `json:"end_time"`
	Notes          string    `json:"notes,omitempty"`
}

// ConfirmBookingRequest locks in a matched caregiver.
type ConfirmBookingRequest struct {
	CivilianID  int64     `json:"civilian_id"`
	CaregiverID int64     `json:"caregiver_id"`
	StartTime   time.Time `json:"start_time"`
	EndTime     time.Time `json:"end_time"`
}

// RatingRequest is the post-session review payload.
type RatingRequest struct {
	CaregiverID int64  `json:"caregiver_id"`
	Rating      int    `json:"rating"`
	ReviewText  string `json:"review_text,omitempty"`
}

// BookingStatusResult is one poll of a tracked booking.
type BookingStatusResult struct {
	Status        string `json:"status"`
	CaregiverID   int64  `json:"caregiver_id"`
	CaregiverName string `json:"caregiver_name"`
}

type bookingIDResponse struct {
	BookingID int64 `json:"booking_id"`
}

type matchResponse struct {
	Caregivers []models.MatchCandidate `json:"caregivers"`
}

// RequestCare creates a pending booking and returns its id.
func (c *Client) RequestCare(ctx context.Context, req CareRequest) (int64, error) {
	var out bookingIDResponse
	err := c.do(ctx, http.MethodPost, c.civilianURL+"/civilian/request-care", req, &out, true)
	return out.BookingID, err
}

// MatchCaregivers asks the matching service for ranked candidates.
func (c *Client) MatchCaregivers(ctx context.Context, req CareRequest) ([]models.MatchCandidate, error) {
	var out matchResponse
	err := c.do(ctx, http.MethodPost, c.civilianURL+"/civilian/match-caregivers", req, &out, true)
	return out.Caregivers, err
}

// ConfirmBooking confirms the selected caregiver and returns the booking id.
func (c *Client) ConfirmBooking(ctx context.Context, req ConfirmBookingRequest) (int64, error) {
	var out bookingIDResponse
	err := c.do(ctx, http.MethodPost, c.civilianURL+"/civilian/confirm-booking", req, &out, true)
	return out.BookingID, err
}

// BookingStatus polls a tracked booking.
func (c *Client) BookingStatus(ctx context.Context, bookingID int64) (BookingStatusResult, error) {
	var out BookingStatusResult
	url := fmt.Sprintf("%s/civilian/booking/status/%d", c.civilianURL, bookingID)
	err := c.do(ctx, http.MethodGet, url, nil, &out, true)
	return out, err
}

// SubmitRating records a 1-5 star review for the caregiver.
func (c *Client) SubmitRating(ctx context.Context, req RatingRequest) error {
	if req.Rating < 1 || req.Rating > 5 {
		return validationError("rating must be between 1 and 5")
	}
	return c.do(ctx, http.MethodPost, c.civilianURL+"/civilian/submit-rating", req, nil, true)
}

// UpdateCivilianProfile updates the civilian's display name.
func (c *Client) UpdateCivilianProfile(ctx context.Context, name string) (models.Civilian, error) {
	var out models.Civilian
	err := c.do(ctx, http.MethodPut, c.civilianURL+"/civilian/profile", map[string]string{"name": name}, &out, true)
	return out, err
}

// SafetySession starts a simulated guardian safety stream.
type SafetySession struct {
	SessionID string `json:"session_id"`
	StreamURL string `json:"stream_url"`
}

// StartSafetySession opens a safety session for the active booking.
func (c *Client) StartSafetySession(ctx context.Context) (SafetySession, error) {
	var out SafetySession
	err := c.do(ctx, http.MethodPost, c.civilianURL+"/civilian/safety/session/start", nil, &out, true)
	return out, err
}
