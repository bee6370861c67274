package gateway

import (
	"context"
	"fmt"
	"net/http"

	"sevasetu/models"
)

// CaregiverUpdate carries the mutable profile fields; nil means unchanged.
type CaregiverUpdate struct {
	Name            *string   `json:"name,omitempty"`
	Gender          *string   `json:"gender,omitempty"`
	Skills          *[]string `json:"skills,omitempty"`
	ExperienceYears *int      `json:"experience_years,omitempty"`
}

// MyJobs lists every job assigned to the logged-in caregiver. Used once at
// startup to reconcile the phase after a restart.
func (c *Client) MyJobs(ctx context.Context) ([]models.Job, error) {
	var out []models.Job
	err := c.do(ctx, http.MethodGet, c.caregiverURL+"/caregiver/jobs/me", nil, &out, true)
	return out, err
}

// PendingBookings polls for open job offers.
func (c *Client) PendingBookings(ctx context.Context) ([]models.Job, error) {
	var out []models.Job
	err := c.do(ctx, http.MethodGet, c.caregiverURL+"/caregiver/bookings/pending", nil, &out, true)
	return out, err
}

// SetBookingStatus accepts or rejects an offered booking.
func (c *Client) SetBookingStatus(ctx context.Context, bookingID int64, status string) error {
	url := fmt.Sprintf("%s/caregiver/bookings/%d/status", c.caregiverURL, bookingID)
	return c.do(ctx, http.MethodPut, url, map[string]string{"status": status}, nil, true)
}

// StartJob marks arrival and moves the booking to in_progress.
func (c *Client) StartJob(ctx context.Context, bookingID int64) error {
	url := fmt.Sprintf("%s/caregiver/start-job/%d", c.caregiverURL, bookingID)
	return c.do(ctx, http.MethodPost, url, nil, nil, true)
}

// EndJob completes an in-progress booking.
func (c *Client) EndJob(ctx context.Context, bookingID int64) error {
	url := fmt.Sprintf("%s/caregiver/end-job/%d", c.caregiverURL, bookingID)
	return c.do(ctx, http.MethodPost, url, nil, nil, true)
}

// PauseJob pauses an in-progress booking after a safety alert.
func (c *Client) PauseJob(ctx context.Context, bookingID int64) error {
	url := fmt.Sprintf("%s/caregiver/pause-job/%d", c.caregiverURL, bookingID)
	return c.do(ctx, http.MethodPost, url, nil, nil, true)
}

// ResumeJob resumes a paused booking.
func (c *Client) ResumeJob(ctx context.Context, bookingID int64) error {
	url := fmt.Sprintf("%s/caregiver/resume-job/%d", c.caregiverURL, bookingID)
	return c.do(ctx, http.MethodPost, url, nil, nil, true)
}

// CaregiverProfile fetches the logged-in caregiver's profile, trust score
// included.
func (c *Client) CaregiverProfile(ctx context.Context) (models.Caregiver, error) {
	var out models.Caregiver
	err := c.do(ctx, http.MethodGet, c.caregiverURL+"/caregiver/me", nil, &out, true)
	return out, err
}

// UpdateCaregiverProfile updates the caregiver's own profile.
func (c *Client) UpdateCaregiverProfile(ctx context.Context, update CaregiverUpdate) (models.Caregiver, error) {
	var out models.Caregiver
	err := c.do(ctx, http.MethodPut, c.caregiverURL+"/caregiver/update", update, &out, true)
	return out, err
}

// SetAvailability toggles whether the caregiver is offered new jobs.
func (c *Client) SetAvailability(ctx context.Context, caregiverID int64, available bool) error {
	payload := map[string]any{"caregiver_id": caregiverID, "available": available}
	return c.do(ctx, http.MethodPost, c.caregiverURL+"/caregiver/availability", payload, nil, true)
}
