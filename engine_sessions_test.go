package authkit

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestSessionsListAndCurrent(t *testing.T) {
	engine := newTestEngine(t)
	ctx := context.Background()
	base := time.Now()
	engine.now = func() time.Time { return base }

	account, err := engine.Register(ctx, "alice", "correct-horse")
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	first, err := engine.Login(ctx, "alice", "correct-horse")
	if err != nil {
		t.Fatalf("first login: %v", err)
	}
	engine.now = func() time.Time { return base.Add(time.Minute) }
	second, err := engine.Login(ctx, "alice", "correct-horse")
	if err != nil {
		t.Fatalf("second login: %v", err)
	}

	infos, err := engine.Sessions(ctx, account.ID)
	if err != nil {
		t.Fatalf("sessions: %v", err)
	}
	if len(infos) != 2 {
		t.Fatalf("expected 2 sessions, got %d", len(infos))
	}
	if infos[0].ID != first.SessionID || infos[1].ID != second.SessionID {
		t.Fatalf("sessions out of creation order: %+v", infos)
	}
	if infos[0].Current {
		t.Fatal("older session must not be current")
	}
	if !infos[1].Current {
		t.Fatal("latest session must be current")
	}
	for _, info := range infos {
		if !strings.HasPrefix(info.Device, "DESKTOP-") {
			t.Fatalf("unexpected device label %q", info.Device)
		}
	}
}

func TestSessionsCurrentTieBreaksOnID(t *testing.T) {
	engine := newTestEngine(t)
	ctx := context.Background()
	base := time.Now()
	engine.now = func() time.Time { return base }

	account, err := engine.Register(ctx, "alice", "correct-horse")
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	// Two logins inside the same second share a start timestamp.
	if _, err := engine.Login(ctx, "alice", "correct-horse"); err != nil {
		t.Fatalf("first login: %v", err)
	}
	second, err := engine.Login(ctx, "alice", "correct-horse")
	if err != nil {
		t.Fatalf("second login: %v", err)
	}

	infos, err := engine.Sessions(ctx, account.ID)
	if err != nil {
		t.Fatalf("sessions: %v", err)
	}
	currentCount := 0
	for _, info := range infos {
		if info.Current {
			currentCount++
			if info.ID != second.SessionID {
				t.Fatalf("tie must resolve to the later session, got %s", info.ID)
			}
		}
	}
	if currentCount != 1 {
		t.Fatalf("exactly one session must be current, got %d", currentCount)
	}
}

func TestSessionsEmpty(t *testing.T) {
	engine := newTestEngine(t)
	ctx := context.Background()

	account, err := engine.Register(ctx, "alice", "correct-horse")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	infos, err := engine.Sessions(ctx, account.ID)
	if err != nil {
		t.Fatalf("sessions: %v", err)
	}
	if len(infos) != 0 {
		t.Fatalf("expected no sessions, got %d", len(infos))
	}
}

func TestTerminateSessionOwnershipBlind(t *testing.T) {
	engine := newTestEngine(t)
	ctx := context.Background()

	alice, err := engine.Register(ctx, "alice", "correct-horse")
	if err != nil {
		t.Fatalf("register alice: %v", err)
	}
	if _, err := engine.Register(ctx, "bob", "other-horse"); err != nil {
		t.Fatalf("register bob: %v", err)
	}
	aliceLogin, err := engine.Login(ctx, "alice", "correct-horse")
	if err != nil {
		t.Fatalf("alice login: %v", err)
	}
	bobLogin, err := engine.Login(ctx, "bob", "other-horse")
	if err != nil {
		t.Fatalf("bob login: %v", err)
	}

	// A foreign session and a nonexistent one fail identically.
	foreignErr := engine.TerminateSession(ctx, alice.ID, bobLogin.SessionID)
	missingErr := engine.TerminateSession(ctx, alice.ID, "424242")
	if !errors.Is(foreignErr, ErrSessionNotFound) || !errors.Is(missingErr, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound for both, got %v and %v", foreignErr, missingErr)
	}
	if foreignErr.Error() != missingErr.Error() {
		t.Fatalf("termination failures must not reveal ownership: %q vs %q",
			foreignErr.Error(), missingErr.Error())
	}

	if err := engine.TerminateSession(ctx, alice.ID, aliceLogin.SessionID); err != nil {
		t.Fatalf("terminate own session: %v", err)
	}
	if err := engine.TerminateSession(ctx, alice.ID, aliceLogin.SessionID); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("second termination must miss, got %v", err)
	}

	infos, err := engine.Sessions(ctx, alice.ID)
	if err != nil {
		t.Fatalf("sessions: %v", err)
	}
	if len(infos) != 0 {
		t.Fatalf("expected alice to have no sessions, got %d", len(infos))
	}
}
