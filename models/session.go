package models

// Roles recognised by the auth service. Guardian has no dedicated app yet
// but sessions for it are issued and stored the same way.
const (
	RoleCivilian  = "civilian"
	RoleCaregiver = "caregiver"
	RoleGuardian  = "guardian"
)

// ValidRole reports whether role is one the auth service issues tokens for.
func ValidRole(role string) bool {
	switch role {
	case RoleCivilian, RoleCaregiver, RoleGuardian:
		return true
	}
	return false
}

// Session is the role-scoped authentication blob a client keeps after a
// successful OTP verification. It is persisted as-is by the session store.
type Session struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	Role         string `json:"role"`
	IdentityID   int64  `json:"identity_id"`
	SessionID    string `json:"session_id"`
}

// AuthIdentity is the server-side record binding a phone number to a role.
type AuthIdentity struct {
	ID          int64  `json:"id"`
	PhoneNumber string `json:"phone_number"`
	Role        string `json:"role"`
	Verified    bool   `json:"verified"`
}
