package gateway

import (
	"context"
	"fmt"
	"net/http"

	"sevasetu/models"
)

// OTPResponse is the dev-mode login response; the OTP is echoed back so the
// demo flow works without an SMS provider.
type OTPResponse struct {
	Message     string `json:"message"`
	PhoneNumber string `json:"phone_number"`
	Role        string `json:"role"`
	OTP         string `json:"otp"`
}

// RequestOTP asks the auth service for an OTP for the client's role.
// The phone number must be exactly 10 digits; this is checked before any
// network call is made.
func (c *Client) RequestOTP(ctx context.Context, phone string) (OTPResponse, error) {
	if err := validatePhone(phone); err != nil {
		return OTPResponse{}, err
	}
	var out OTPResponse
	url := fmt.Sprintf("%s/auth/%s/login", c.authURL, c.role)
	err := c.do(ctx, http.MethodPost, url, map[string]string{"phone_number": "+91" + phone}, &out, false)
	return out, err
}

// VerifyOTP exchanges a 6-digit OTP for a session. The caller decides where
// the session is stored.
func (c *Client) VerifyOTP(ctx context.Context, phone, otp string) (models.Session, error) {
	if err := validatePhone(phone); err != nil {
		return models.Session{}, err
	}
	if len(otp) != 6 {
		return models.Session{}, validationError("OTP must be 6 digits")
	}
	var out models.Session
	payload := map[string]string{
		"phone_number": "+91" + phone,
		"role":         c.role,
		"otp":          otp,
	}
	err := c.do(ctx, http.MethodPost, c.authURL+"/auth/verify-otp", payload, &out, false)
	return out, err
}

// Logout revokes the server-side session. Clearing the local store is the
// caller's job.
func (c *Client) Logout(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, c.authURL+"/auth/logout", nil, nil, true)
}

func validatePhone(phone string) error {
	if len(phone) != 10 {
		return validationError("phone number must be 10 digits")
	}
	for _, r := range phone {
		if r < '0' || r > '9' {
			return validationError("phone number must be 10 digits")
		}
	}
	return nil
}
