// Package handlers wires the demo API's HTTP endpoints to the repositories
// and services behind them.
package handlers

import (
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"sevasetu/database/repository"
	"sevasetu/models"
	"sevasetu/utils"
)

// AuthHandler serves OTP login, token issuance and logout.
type AuthHandler struct {
	Identities repository.IdentityRepository
	Caregivers repository.CaregiverRepository
	Civilians  repository.CivilianRepository
	OTPs       *utils.OTPStore
	Sessions   *utils.SessionRegistry
}

type loginRequest struct {
	PhoneNumber string `json:"phone_number" binding:"required"`
}

type verifyOTPRequest struct {
	PhoneNumber string `json:"phone_number" binding:"required"`
	Role        string `json:"role" binding:"required"`
	OTP         string `json:"otp" binding:"required"`
}

// RequestOTP issues an OTP for the phone+role pair. The role comes from the
// URL so each app can only log in as itself. The OTP is echoed back in the
// response; there is no SMS provider in the demo.
func (h *AuthHandler) RequestOTP(c *gin.Context) {
	role := c.Param("role")
	if !models.ValidRole(role) {
		utils.JSONError(c, http.StatusBadRequest, "Invalid role", role)
		return
	}

	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "Invalid request", err.Error())
		return
	}

	otp, err := h.OTPs.Generate(req.PhoneNumber, role)
	if err != nil {
		utils.JSONError(c, http.StatusInternalServerError, "Failed to generate OTP", err.Error())
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":      "OTP sent successfully",
		"phone_number": req.PhoneNumber,
		"role":         role,
		"otp":          otp, // dev only, there is no SMS gateway
	})
}

// VerifyOTP checks the OTP, finds or creates the identity and its profile,
// opens a server-side session and returns access + refresh tokens.
func (h *AuthHandler) VerifyOTP(c *gin.Context) {
	var req verifyOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "Invalid request", err.Error())
		return
	}
	if !models.ValidRole(req.Role) {
		utils.JSONError(c, http.StatusBadRequest, "Invalid role", req.Role)
		return
	}
	if !h.OTPs.Verify(req.PhoneNumber, req.Role, req.OTP) {
		utils.JSONError(c, http.StatusUnauthorized, "Invalid or expired OTP, or role mismatch", "")
		return
	}

	identity, err := h.getOrCreateIdentity(req.PhoneNumber, req.Role)
	if err != nil {
		utils.GetLogger().Error("identity lookup failed", zap.Error(err))
		utils.JSONError(c, http.StatusInternalServerError, "Failed to resolve identity", err.Error())
		return
	}

	sessionID := h.Sessions.Create(identity.ID, identity.Role)
	access, err := utils.GenerateAccessToken(identity.ID, identity.Role, sessionID)
	if err != nil {
		utils.JSONError(c, http.StatusInternalServerError, "Failed to issue token", err.Error())
		return
	}
	refresh, err := utils.GenerateRefreshToken(identity.ID, identity.Role, sessionID)
	if err != nil {
		utils.JSONError(c, http.StatusInternalServerError, "Failed to issue token", err.Error())
		return
	}

	c.JSON(http.StatusOK, models.Session{
		AccessToken:  access,
		RefreshToken: refresh,
		Role:         identity.Role,
		IdentityID:   identity.ID,
		SessionID:    sessionID,
	})
}

// Refresh exchanges a valid refresh token for a fresh access token bound to a
// new server-side session.
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refresh_token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "Invalid request", err.Error())
		return
	}

	claims, err := utils.ValidateToken(req.RefreshToken)
	if err != nil {
		utils.JSONError(c, http.StatusUnauthorized, "Invalid or expired refresh token", "")
		return
	}
	if claims.TokenType != "refresh" {
		utils.JSONError(c, http.StatusBadRequest, "Not a refresh token", "")
		return
	}

	identity, err := h.Identities.GetByID(claims.IdentityID)
	if err != nil {
		utils.JSONError(c, http.StatusNotFound, "Identity not found", "")
		return
	}

	sessionID := h.Sessions.Create(identity.ID, identity.Role)
	access, err := utils.GenerateAccessToken(identity.ID, identity.Role, sessionID)
	if err != nil {
		utils.JSONError(c, http.StatusInternalServerError, "Failed to issue token", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"access_token": access, "session_id": sessionID})
}

// Logout revokes the server-side session named in the bearer token. A missing
// or bad token is not an error: the client clears its store regardless.
func (h *AuthHandler) Logout(c *gin.Context) {
	header := c.GetHeader("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		c.JSON(http.StatusOK, gin.H{"message": "No token provided, client-side logout only"})
		return
	}

	claims, err := utils.ValidateToken(strings.TrimPrefix(header, "Bearer "))
	if err != nil || claims.SessionID == "" {
		c.JSON(http.StatusOK, gin.H{"message": "Invalid token, client-side logout only"})
		return
	}

	h.Sessions.Revoke(claims.SessionID)
	c.JSON(http.StatusOK, gin.H{"message": "Session revoked successfully"})
}

// getOrCreateIdentity finds the identity for phone+role, creating it and an
// empty role profile on first login.
func (h *AuthHandler) getOrCreateIdentity(phone, role string) (*models.AuthIdentity, error) {
	identity, err := h.Identities.GetByPhoneRole(phone, role)
	if err == nil {
		if !identity.Verified {
			identity.Verified = true
			if err := h.Identities.Update(identity); err != nil {
				return nil, err
			}
		}
		return identity, nil
	}

	identity = &models.AuthIdentity{PhoneNumber: phone, Role: role, Verified: true}
	if err := h.Identities.Create(identity); err != nil {
		return nil, err
	}

	suffix := phone
	if len(suffix) > 4 {
		suffix = suffix[len(suffix)-4:]
	}
	switch role {
	case models.RoleCivilian:
		cv := &models.Civilian{IdentityID: identity.ID, Name: "User " + suffix}
		if err := h.Civilians.Create(cv); err != nil {
			return nil, err
		}
	case models.RoleCaregiver:
		sum := sha256.Sum256([]byte(phone))
		cg := &models.Caregiver{
			IdentityID:     identity.ID,
			HashedIdentity: hex.EncodeToString(sum[:]),
			Name:           "Caregiver " + suffix,
			Skills:         []string{},
			Verified:       true,
		}
		if err := h.Caregivers.Create(cg); err != nil {
			return nil, err
		}
	}
	return identity, nil
}
