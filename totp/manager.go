package totp

import (
	"errors"
	"strings"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

const secretBytes = 20

// Config controls secret generation and code verification. Issuer labels the
// provisioning URI; Skew is the accepted drift in time steps.
type Config struct {
	Issuer string
	Digits int
	Period int
	Skew   int
}

// Manager is a stateless code generator/verifier over the shared-secret
// algorithm. Enrollment state lives with the caller.
type Manager struct {
	config Config
}

// NewManager validates cfg and returns a Manager.
func NewManager(cfg Config) (*Manager, error) {
	if cfg.Issuer == "" {
		return nil, errors.New("totp issuer required")
	}
	if cfg.Digits != 6 && cfg.Digits != 8 {
		return nil, errors.New("totp digits must be 6 or 8")
	}
	if cfg.Period <= 0 {
		return nil, errors.New("totp period must be positive")
	}
	if cfg.Skew < 0 {
		return nil, errors.New("totp skew must be non-negative")
	}
	return &Manager{config: cfg}, nil
}

// GenerateSecret returns a fresh random base32 secret and the otpauth://
// provisioning URI embedding issuer, account label, and secret.
func (m *Manager) GenerateSecret(account string) (secret string, uri string, err error) {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      m.config.Issuer,
		AccountName: account,
		SecretSize:  secretBytes,
		Period:      uint(m.config.Period),
		Digits:      m.digits(),
		Algorithm:   otp.AlgorithmSHA1,
	})
	if err != nil {
		return "", "", err
	}
	return key.Secret(), key.URL(), nil
}

// VerifyCode checks code against secret at the current time.
func (m *Manager) VerifyCode(secret, code string) (bool, error) {
	return m.VerifyCodeAt(secret, code, time.Now())
}

// VerifyCodeAt checks code against secret at the given instant, accepting
// codes up to Skew time steps early or late.
func (m *Manager) VerifyCodeAt(secret, code string, now time.Time) (bool, error) {
	trimmed := strings.TrimSpace(code)
	if len(trimmed) != m.config.Digits || !isNumeric(trimmed) {
		return false, nil
	}
	if secret == "" {
		return false, errors.New("empty totp secret")
	}

	return totp.ValidateCustom(trimmed, secret, now, totp.ValidateOpts{
		Period:    uint(m.config.Period),
		Skew:      uint(m.config.Skew),
		Digits:    m.digits(),
		Algorithm: otp.AlgorithmSHA1,
	})
}

func (m *Manager) digits() otp.Digits {
	if m.config.Digits == 8 {
		return otp.DigitsEight
	}
	return otp.DigitsSix
}

func isNumeric(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
