package authkit

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestRegisterAndLogin(t *testing.T) {
	engine := newTestEngine(t)
	ctx := context.Background()

	account, err := engine.Register(ctx, "alice", "correct-horse")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if account.ID == "" || account.Login != "alice" {
		t.Fatalf("unexpected account: %+v", account)
	}
	if account.TOTPEnabled {
		t.Fatal("fresh account must not have totp enabled")
	}

	result, err := engine.Login(ctx, "alice", "correct-horse")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if result.Token == "" || result.SessionID == "" {
		t.Fatalf("login result incomplete: %+v", result)
	}
	if result.SecondFactorRequired {
		t.Fatal("second factor must not be required without enrollment")
	}
}

func TestRegisterDuplicateLogin(t *testing.T) {
	engine := newTestEngine(t)
	ctx := context.Background()

	if _, err := engine.Register(ctx, "alice", "pw-one"); err != nil {
		t.Fatalf("register: %v", err)
	}
	_, err := engine.Register(ctx, "alice", "pw-two")
	if !errors.Is(err, ErrAccountExists) {
		t.Fatalf("expected ErrAccountExists, got %v", err)
	}
	if Kind(err) != KindConflict {
		t.Fatalf("expected KindConflict, got %v", Kind(err))
	}

	// The original registration still works.
	if _, err := engine.Login(ctx, "alice", "pw-one"); err != nil {
		t.Fatalf("login after duplicate attempt: %v", err)
	}
}

func TestRegisterRejectsMalformedInput(t *testing.T) {
	engine := newTestEngine(t)
	ctx := context.Background()

	cases := []struct {
		name  string
		login string
		pass  string
	}{
		{"empty login", "", "pw"},
		{"empty password", "alice", ""},
		{"oversized login", strings.Repeat("a", maxLoginLength+1), "pw"},
		{"oversized password", "alice", strings.Repeat("p", maxPasswordLength+1)},
	}
	for _, tc := range cases {
		if _, err := engine.Register(ctx, tc.login, tc.pass); !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("%s: expected ErrInvalidInput, got %v", tc.name, err)
		}
	}
}

func TestRegisterStoresLoginVerbatim(t *testing.T) {
	engine := newTestEngine(t)
	ctx := context.Background()

	// Logins are exact byte matches, so surrounding whitespace is part
	// of the login and must survive the register/login round trip.
	account, err := engine.Register(ctx, " alice", "correct-horse")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if account.Login != " alice" {
		t.Fatalf("login was normalized: %q", account.Login)
	}

	if _, err := engine.Login(ctx, " alice", "correct-horse"); err != nil {
		t.Fatalf("login with registered credentials: %v", err)
	}
	if _, err := engine.Login(ctx, "alice", "correct-horse"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("trimmed login must not match, got %v", err)
	}
}

func TestLoginUniformFailure(t *testing.T) {
	engine := newTestEngine(t)
	ctx := context.Background()

	if _, err := engine.Register(ctx, "alice", "correct-horse"); err != nil {
		t.Fatalf("register: %v", err)
	}

	_, unknownErr := engine.Login(ctx, "nobody", "correct-horse")
	_, wrongErr := engine.Login(ctx, "alice", "wrong-horse")

	if !errors.Is(unknownErr, ErrInvalidCredentials) {
		t.Fatalf("unknown login: expected ErrInvalidCredentials, got %v", unknownErr)
	}
	if !errors.Is(wrongErr, ErrInvalidCredentials) {
		t.Fatalf("wrong password: expected ErrInvalidCredentials, got %v", wrongErr)
	}
	if unknownErr.Error() != wrongErr.Error() {
		t.Fatalf("failure messages must not distinguish causes: %q vs %q",
			unknownErr.Error(), wrongErr.Error())
	}
}

func TestCurrentAccountRoundTrip(t *testing.T) {
	engine := newTestEngine(t)
	ctx := context.Background()

	registered, err := engine.Register(ctx, "alice", "correct-horse")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	result, err := engine.Login(ctx, "alice", "correct-horse")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	current, err := engine.CurrentAccount(ctx, result.Token)
	if err != nil {
		t.Fatalf("current account: %v", err)
	}
	if current.ID != registered.ID || current.Login != "alice" {
		t.Fatalf("token resolved to wrong account: %+v", current)
	}
}

func TestCurrentAccountRejectsBadTokens(t *testing.T) {
	engine := newTestEngine(t)
	ctx := context.Background()

	if _, err := engine.Register(ctx, "alice", "correct-horse"); err != nil {
		t.Fatalf("register: %v", err)
	}
	result, err := engine.Login(ctx, "alice", "correct-horse")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	cases := []struct {
		name  string
		token string
	}{
		{"garbage", "not-a-token"},
		{"empty", ""},
		{"tampered", result.Token + "x"},
	}
	for _, tc := range cases {
		if _, err := engine.CurrentAccount(ctx, tc.token); !errors.Is(err, ErrUnauthenticated) {
			t.Fatalf("%s: expected ErrUnauthenticated, got %v", tc.name, err)
		}
	}
	if Kind(ErrUnauthenticated) != KindUnauthenticated {
		t.Fatalf("kind mapping broken for ErrUnauthenticated")
	}
}

func TestCurrentAccountForeignKey(t *testing.T) {
	engine := newTestEngine(t)
	ctx := context.Background()

	if _, err := engine.Register(ctx, "alice", "correct-horse"); err != nil {
		t.Fatalf("register: %v", err)
	}
	result, err := engine.Login(ctx, "alice", "correct-horse")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	foreignCfg := testConfig()
	foreignCfg.Token.Secret = []byte("ffffffffffffffffffffffffffffffff")
	foreign := newTestEngineWithConfig(t, foreignCfg)

	if _, err := foreign.CurrentAccount(ctx, result.Token); !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("token signed under another key must fail, got %v", err)
	}
}
