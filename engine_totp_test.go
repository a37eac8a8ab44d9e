package authkit

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pquerna/otp"
	ptotp "github.com/pquerna/otp/totp"
)

// wrongCode flips the first digit so the result can never match.
func wrongCode(code string) string {
	if code[0] == '0' {
		return "1" + code[1:]
	}
	return "0" + code[1:]
}

func enrolledAccount(t *testing.T, engine *Engine, base time.Time) string {
	t.Helper()
	ctx := context.Background()
	engine.now = func() time.Time { return base }

	account, err := engine.Register(ctx, "alice", "correct-horse")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	material, err := engine.BeginTOTPEnrollment(ctx, account.ID)
	if err != nil {
		t.Fatalf("begin enrollment: %v", err)
	}
	if err := engine.ConfirmTOTPEnrollment(ctx, account.ID, codeAt(t, material.Secret, base)); err != nil {
		t.Fatalf("confirm enrollment: %v", err)
	}
	return account.ID
}

func TestTOTPEnrollmentLifecycle(t *testing.T) {
	engine := newTestEngine(t)
	ctx := context.Background()
	base := time.Now()
	engine.now = func() time.Time { return base }

	account, err := engine.Register(ctx, "alice", "correct-horse")
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	material, err := engine.BeginTOTPEnrollment(ctx, account.ID)
	if err != nil {
		t.Fatalf("begin enrollment: %v", err)
	}
	if material.Secret == "" {
		t.Fatal("enrollment material missing secret")
	}
	if !strings.HasPrefix(material.URI, "otpauth://totp/") {
		t.Fatalf("unexpected provisioning URI: %q", material.URI)
	}
	if !strings.Contains(material.URI, "bezrook") || !strings.Contains(material.URI, "alice") {
		t.Fatalf("URI must carry issuer and login: %q", material.URI)
	}

	// Pending enrollment does not gate login yet.
	result, err := engine.Login(ctx, "alice", "correct-horse")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if result.SecondFactorRequired {
		t.Fatal("pending enrollment must not require a second factor")
	}

	if err := engine.ConfirmTOTPEnrollment(ctx, account.ID, codeAt(t, material.Secret, base)); err != nil {
		t.Fatalf("confirm enrollment: %v", err)
	}

	current, err := engine.CurrentAccount(ctx, result.Token)
	if err != nil {
		t.Fatalf("current account: %v", err)
	}
	if !current.TOTPEnabled {
		t.Fatal("account must report totp enabled after confirmation")
	}

	result, err = engine.Login(ctx, "alice", "correct-horse")
	if err != nil {
		t.Fatalf("login after enable: %v", err)
	}
	if !result.SecondFactorRequired {
		t.Fatal("enabled account must require a second factor")
	}
	if result.Token == "" || result.SessionID == "" {
		t.Fatal("token and session are still issued alongside the second-factor flag")
	}

	if err := engine.VerifyTOTPCode(ctx, account.ID, codeAt(t, material.Secret, base)); err != nil {
		t.Fatalf("verify code: %v", err)
	}
}

func TestTOTPConfirmWrongCodeKeepsPending(t *testing.T) {
	engine := newTestEngine(t)
	ctx := context.Background()
	base := time.Now()
	engine.now = func() time.Time { return base }

	account, err := engine.Register(ctx, "alice", "correct-horse")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	material, err := engine.BeginTOTPEnrollment(ctx, account.ID)
	if err != nil {
		t.Fatalf("begin enrollment: %v", err)
	}

	good := codeAt(t, material.Secret, base)
	if err := engine.ConfirmTOTPEnrollment(ctx, account.ID, wrongCode(good)); !errors.Is(err, ErrTOTPCodeInvalid) {
		t.Fatalf("expected ErrTOTPCodeInvalid, got %v", err)
	}

	// The pending secret survives a failed attempt.
	if err := engine.ConfirmTOTPEnrollment(ctx, account.ID, good); err != nil {
		t.Fatalf("confirm after failed attempt: %v", err)
	}
}

func TestTOTPConfirmWithoutBegin(t *testing.T) {
	engine := newTestEngine(t)
	ctx := context.Background()

	account, err := engine.Register(ctx, "alice", "correct-horse")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	err = engine.ConfirmTOTPEnrollment(ctx, account.ID, "123456")
	if !errors.Is(err, ErrNoPendingEnrollment) {
		t.Fatalf("expected ErrNoPendingEnrollment, got %v", err)
	}
	if Kind(err) != KindValidation {
		t.Fatalf("expected KindValidation, got %v", Kind(err))
	}
}

func TestTOTPEnrollmentWindowExpires(t *testing.T) {
	engine := newTestEngine(t)
	ctx := context.Background()
	base := time.Now()
	engine.now = func() time.Time { return base }

	account, err := engine.Register(ctx, "alice", "correct-horse")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	material, err := engine.BeginTOTPEnrollment(ctx, account.ID)
	if err != nil {
		t.Fatalf("begin enrollment: %v", err)
	}

	late := base.Add(engine.config.TOTP.PendingWindow + time.Second)
	engine.now = func() time.Time { return late }

	err = engine.ConfirmTOTPEnrollment(ctx, account.ID, codeAt(t, material.Secret, late))
	if !errors.Is(err, ErrEnrollmentExpired) {
		t.Fatalf("expected ErrEnrollmentExpired, got %v", err)
	}
	if Kind(err) != KindExpired {
		t.Fatalf("expected KindExpired, got %v", Kind(err))
	}

	// Expiry deletes the pending record, so the next attempt has nothing
	// to confirm.
	err = engine.ConfirmTOTPEnrollment(ctx, account.ID, codeAt(t, material.Secret, late))
	if !errors.Is(err, ErrNoPendingEnrollment) {
		t.Fatalf("expected ErrNoPendingEnrollment after expiry, got %v", err)
	}
}

func TestTOTPRestartReplacesSecret(t *testing.T) {
	engine := newTestEngine(t)
	ctx := context.Background()
	base := time.Now()
	engine.now = func() time.Time { return base }

	account, err := engine.Register(ctx, "alice", "correct-horse")
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	first, err := engine.BeginTOTPEnrollment(ctx, account.ID)
	if err != nil {
		t.Fatalf("first begin: %v", err)
	}
	second, err := engine.BeginTOTPEnrollment(ctx, account.ID)
	if err != nil {
		t.Fatalf("second begin: %v", err)
	}
	if first.Secret == second.Secret {
		t.Fatal("restarted enrollment must generate a fresh secret")
	}

	oldCode := codeAt(t, first.Secret, base)
	newCode := codeAt(t, second.Secret, base)
	if oldCode != newCode {
		if err := engine.ConfirmTOTPEnrollment(ctx, account.ID, oldCode); !errors.Is(err, ErrTOTPCodeInvalid) {
			t.Fatalf("superseded secret must not confirm, got %v", err)
		}
	}
	if err := engine.ConfirmTOTPEnrollment(ctx, account.ID, newCode); err != nil {
		t.Fatalf("confirm with latest secret: %v", err)
	}
}

func TestTOTPBeginWhenAlreadyEnabled(t *testing.T) {
	engine := newTestEngine(t)
	ctx := context.Background()
	accountID := enrolledAccount(t, engine, time.Now())

	if _, err := engine.BeginTOTPEnrollment(ctx, accountID); !errors.Is(err, ErrTOTPAlreadyEnabled) {
		t.Fatalf("expected ErrTOTPAlreadyEnabled on begin, got %v", err)
	}
	if err := engine.ConfirmTOTPEnrollment(ctx, accountID, "123456"); !errors.Is(err, ErrTOTPAlreadyEnabled) {
		t.Fatalf("expected ErrTOTPAlreadyEnabled on confirm, got %v", err)
	}
}

func TestVerifyTOTPNotEnabled(t *testing.T) {
	engine := newTestEngine(t)
	ctx := context.Background()

	account, err := engine.Register(ctx, "alice", "correct-horse")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	err = engine.VerifyTOTPCode(ctx, account.ID, "123456")
	if !errors.Is(err, ErrTOTPNotEnabled) {
		t.Fatalf("expected ErrTOTPNotEnabled, got %v", err)
	}
}

func TestVerifyTOTPSkewWindow(t *testing.T) {
	engine := newTestEngine(t)
	ctx := context.Background()
	base := time.Now()

	// Pin the clock so drift offsets are exact step counts.
	var material *EnrollmentMaterial
	engine.now = func() time.Time { return base }
	account, err := engine.Register(ctx, "alice", "correct-horse")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	material, err = engine.BeginTOTPEnrollment(ctx, account.ID)
	if err != nil {
		t.Fatalf("begin enrollment: %v", err)
	}
	if err := engine.ConfirmTOTPEnrollment(ctx, account.ID, codeAt(t, material.Secret, base)); err != nil {
		t.Fatalf("confirm enrollment: %v", err)
	}

	cases := []struct {
		name   string
		offset time.Duration
		accept bool
	}{
		{"exact", 0, true},
		{"one step behind", -30 * time.Second, true},
		{"one step ahead", 30 * time.Second, true},
		{"two steps behind", -60 * time.Second, false},
		{"two steps ahead", 60 * time.Second, false},
	}
	for _, tc := range cases {
		code := codeAt(t, material.Secret, base.Add(tc.offset))
		err := engine.VerifyTOTPCode(ctx, account.ID, code)
		if tc.accept && err != nil {
			t.Fatalf("%s: expected acceptance, got %v", tc.name, err)
		}
		if !tc.accept && !errors.Is(err, ErrTOTPCodeInvalid) {
			t.Fatalf("%s: expected ErrTOTPCodeInvalid, got %v", tc.name, err)
		}
	}
}

func TestConcurrentEnrollmentSerialized(t *testing.T) {
	engine := newTestEngine(t)
	ctx := context.Background()

	account, err := engine.Register(ctx, "alice", "correct-horse")
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	// Racing begin/confirm pairs for one account. The per-account lock
	// serializes them; exactly one confirmation may win, and every loser
	// must fail with a state error, never corrupt the account.
	const workers = 8
	var confirmed atomic.Int64
	var winner atomic.Value
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			material, err := engine.BeginTOTPEnrollment(ctx, account.ID)
			if err != nil {
				if errors.Is(err, ErrTOTPAlreadyEnabled) {
					return
				}
				t.Errorf("begin enrollment: %v", err)
				return
			}
			code, err := ptotp.GenerateCodeCustom(material.Secret, time.Now(), ptotp.ValidateOpts{
				Period:    30,
				Skew:      0,
				Digits:    otp.DigitsSix,
				Algorithm: otp.AlgorithmSHA1,
			})
			if err != nil {
				t.Errorf("generate code: %v", err)
				return
			}

			err = engine.ConfirmTOTPEnrollment(ctx, account.ID, code)
			switch {
			case err == nil:
				confirmed.Add(1)
				winner.Store(material.Secret)
			case errors.Is(err, ErrTOTPAlreadyEnabled):
			case errors.Is(err, ErrNoPendingEnrollment):
			case errors.Is(err, ErrTOTPCodeInvalid):
				// A racing begin replaced this goroutine's pending secret.
			default:
				t.Errorf("confirm enrollment: %v", err)
			}
		}()
	}
	wg.Wait()

	if got := confirmed.Load(); got != 1 {
		t.Fatalf("expected exactly one confirmation to win, got %d", got)
	}

	secret, _ := winner.Load().(string)
	if secret == "" {
		t.Fatal("winning secret not recorded")
	}
	if err := engine.VerifyTOTPCode(ctx, account.ID, codeAt(t, secret, time.Now())); err != nil {
		t.Fatalf("verify with winning secret: %v", err)
	}
}
