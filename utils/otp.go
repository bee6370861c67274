package utils

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"sync"
	"time"

	"go.uber.org/zap"
)

const otpTTL = 5 * time.Minute

type otpEntry struct {
	code   string
	expiry time.Time
}

// OTPStore keeps one pending OTP per phone+role pair, with auto-expiry.
// Verification is single-use: a matching code is deleted on success.
type OTPStore struct {
	mu      sync.Mutex
	entries map[string]otpEntry
	now     func() time.Time
}

// NewOTPStore returns an empty OTP store.
func NewOTPStore() *OTPStore {
	return &OTPStore{
		entries: make(map[string]otpEntry),
		now:     time.Now,
	}
}

func otpKey(phone, role string) string {
	return phone + ":" + role
}

// generateSecureOTP generates a secure random numeric OTP of the given length.
func generateSecureOTP(length int) (string, error) {
	code := make([]byte, length)
	for i := range code {
		n, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			return "", fmt.Errorf("failed to generate random digit: %w", err)
		}
		code[i] = byte('0' + n.Int64())
	}
	return string(code), nil
}

// Generate creates and stores a 6-digit OTP for the phone+role pair. Any
// existing OTP for the pair is overwritten.
func (s *OTPStore) Generate(phone, role string) (string, error) {
	otp, err := generateSecureOTP(6)
	if err != nil {
		return "", fmt.Errorf("failed to generate OTP: %w", err)
	}

	s.mu.Lock()
	s.entries[otpKey(phone, role)] = otpEntry{code: otp, expiry: s.now().Add(otpTTL)}
	s.mu.Unlock()

	GetLogger().Info("OTP issued",
		zap.String("phone", phone),
		zap.String("role", role),
		zap.Duration("ttl", otpTTL))
	return otp, nil
}

// Verify checks the provided OTP for the phone+role pair. The stored entry is
// removed on success so the same code cannot be reused.
func (s *OTPStore) Verify(phone, role, provided string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := otpKey(phone, role)
	entry, ok := s.entries[key]
	if !ok {
		return false
	}
	if s.now().After(entry.expiry) {
		delete(s.entries, key)
		return false
	}
	if entry.code != provided {
		return false
	}
	delete(s.entries, key)
	return true
}
