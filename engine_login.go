package authkit

import (
	"context"
	"errors"
	"fmt"

	"github.com/bezrook/authkit/internal/stores"
)

// Login verifies credentials and opens a session. Unknown logins and
// wrong passwords are indistinguishable to the caller. A token is
// issued and a session recorded even when the account requires a second
// factor; SecondFactorRequired tells the caller to withhold protected
// access until VerifyTOTPCode succeeds.
func (e *Engine) Login(ctx context.Context, login, pass string) (*LoginResult, error) {
	if login == "" || pass == "" {
		return nil, fmt.Errorf("%w: login and password required", ErrInvalidInput)
	}

	sctx, cancel := e.storeCtx(ctx)
	defer cancel()

	record, err := e.accounts.GetByLogin(sctx, login)
	if err != nil {
		if errors.Is(err, stores.ErrAccountNotFound) {
			e.loginFailure(ctx, login)
			return nil, ErrInvalidCredentials
		}
		return nil, e.storeFailure(err)
	}

	ok, err := e.passwordHash.Verify(pass, record.PasswordHash)
	if err != nil || !ok {
		e.loginFailure(ctx, login)
		return nil, ErrInvalidCredentials
	}

	e.maybeRehash(ctx, record, pass)

	tokenStr, err := e.tokens.Issue(record.ID)
	if err != nil {
		return nil, err
	}

	session, err := e.sessions.Create(sctx, record.ID, deviceLabel(), e.now().Unix())
	if err != nil {
		return nil, e.storeFailure(err)
	}
	e.metricInc(MetricSessionCreated)

	secondFactor := record.TOTPSecret != ""
	if secondFactor {
		e.metricInc(MetricLoginSecondFactorPending)
		e.emitAudit(ctx, auditEventLoginSecondFactor, true, record.ID, session.ID, nil, nil)
	}

	e.metricInc(MetricLoginSuccess)
	e.emitAudit(ctx, auditEventLoginSuccess, true, record.ID, session.ID, nil, func() map[string]string {
		return map[string]string{"device": session.Device}
	})

	return &LoginResult{
		Token:                tokenStr,
		SessionID:            session.ID,
		SecondFactorRequired: secondFactor,
	}, nil
}

func (e *Engine) loginFailure(ctx context.Context, login string) {
	e.metricInc(MetricLoginFailure)
	e.emitAudit(ctx, auditEventLoginFailure, false, "", "", ErrInvalidCredentials, func() map[string]string {
		return map[string]string{"login": login}
	})
}

// maybeRehash upgrades the stored hash when the configured argon2
// parameters have strengthened since it was written. Best effort; login
// proceeds regardless.
func (e *Engine) maybeRehash(ctx context.Context, record *stores.AccountRecord, pass string) {
	stale, err := e.passwordHash.NeedsRehash(record.PasswordHash)
	if err != nil || !stale {
		return
	}
	fresh, err := e.passwordHash.Hash(pass)
	if err != nil {
		return
	}
	sctx, cancel := e.storeCtx(ctx)
	defer cancel()
	_ = e.accounts.SetPasswordHash(sctx, record.ID, fresh)
}
