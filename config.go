package authkit

import (
	"errors"
	"time"
)

// Config holds the immutable engine configuration. Populate it before
// [Builder.Build]; the engine copies it and never reads it again.
type Config struct {
	Token    TokenConfig
	Password PasswordConfig
	TOTP     TOTPConfig
	Session  SessionConfig
	Store    StoreConfig
	Audit    AuditConfig
	Metrics  MetricsConfig
}

// TokenConfig controls bearer token issuance and validation.
type TokenConfig struct {
	// Secret is the HS256 signing key. Process-wide, loaded once at startup,
	// never derivable from a token.
	Secret []byte
	TTL    time.Duration
	Issuer string
	// Leeway absorbs clock drift between issuer and validator. Capped at two
	// minutes.
	Leeway time.Duration
}

// PasswordConfig carries the argon2id parameters. Memory is in KB.
type PasswordConfig struct {
	Memory      uint32
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// TOTPConfig controls the time-based one-time-code algorithm and the
// enrollment state machine.
type TOTPConfig struct {
	// Issuer appears in the otpauth:// provisioning URI.
	Issuer string
	Digits int
	Period int
	// Skew is the accepted drift in time steps on either side of now.
	Skew int
	// PendingWindow bounds how long a begun enrollment may await
	// confirmation.
	PendingWindow time.Duration
}

// SessionConfig controls the session record set.
type SessionConfig struct {
	// RedisPrefix namespaces every key the engine writes.
	RedisPrefix string
}

// StoreConfig bounds storage interactions.
type StoreConfig struct {
	// OpTimeout caps every store round-trip. Exceeding it surfaces as
	// ErrStoreUnavailable, never a hang.
	OpTimeout time.Duration
}

// AuditConfig controls the async audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	// DropIfFull makes Emit non-blocking: events beyond the buffer are
	// counted and discarded instead of back-pressuring the operation.
	DropIfFull bool
}

// MetricsConfig toggles the in-process counters.
type MetricsConfig struct {
	Enabled bool
	// EnableLatencyHistograms additionally buckets token validation
	// latency. Counters stay on regardless.
	EnableLatencyHistograms bool
}

// DefaultConfig returns the baseline configuration. The token secret is
// intentionally absent and must be supplied by the caller.
func DefaultConfig() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	return Config{
		Token: TokenConfig{
			TTL:    24 * time.Hour,
			Issuer: "bezrook",
			Leeway: 30 * time.Second,
		},
		Password: PasswordConfig{
			Memory:      64 * 1024,
			Time:        3,
			Parallelism: 2,
			SaltLength:  16,
			KeyLength:   32,
		},
		TOTP: TOTPConfig{
			Issuer:        "bezrook",
			Digits:        6,
			Period:        30,
			Skew:          1,
			PendingWindow: 10 * time.Minute,
		},
		Session: SessionConfig{
			RedisPrefix: "ak",
		},
		Store: StoreConfig{
			OpTimeout: 5 * time.Second,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 256,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}

// Validate reports the first configuration problem found.
func (c *Config) Validate() error {
	if len(c.Token.Secret) == 0 {
		return errors.New("token secret required")
	}
	if c.Token.TTL <= 0 {
		return errors.New("token TTL must be positive")
	}
	if c.Token.Leeway < 0 || c.Token.Leeway > 2*time.Minute {
		return errors.New("token leeway out of range")
	}
	if c.TOTP.Issuer == "" {
		return errors.New("totp issuer required")
	}
	if c.TOTP.Digits != 6 && c.TOTP.Digits != 8 {
		return errors.New("totp digits must be 6 or 8")
	}
	if c.TOTP.Period <= 0 {
		return errors.New("totp period must be positive")
	}
	if c.TOTP.Skew < 0 || c.TOTP.Skew > 2 {
		return errors.New("totp skew out of range")
	}
	if c.TOTP.PendingWindow <= 0 {
		return errors.New("totp pending window must be positive")
	}
	if c.Session.RedisPrefix == "" {
		return errors.New("session redis prefix required")
	}
	if c.Store.OpTimeout <= 0 {
		return errors.New("store op timeout must be positive")
	}
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("audit buffer size must be positive")
	}
	return nil
}

func cloneConfig(cfg Config) Config {
	out := cfg
	if len(cfg.Token.Secret) > 0 {
		out.Token.Secret = append([]byte(nil), cfg.Token.Secret...)
	}
	return out
}
