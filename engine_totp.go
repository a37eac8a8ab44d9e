package authkit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bezrook/authkit/internal/stores"
)

// pendingTTLSlack pads the Redis TTL past the confirmation window so
// the authoritative timestamp check always runs before the key vanishes.
const pendingTTLSlack = time.Minute

// BeginTOTPEnrollment generates a fresh shared secret for the account
// and stores it as pending. Restarting enrollment replaces any earlier
// pending secret; only the latest one can be confirmed.
func (e *Engine) BeginTOTPEnrollment(ctx context.Context, accountID string) (*EnrollmentMaterial, error) {
	if accountID == "" {
		return nil, fmt.Errorf("%w: account id required", ErrInvalidInput)
	}

	lock := e.enrollLock(accountID)
	lock.Lock()
	defer lock.Unlock()

	sctx, cancel := e.storeCtx(ctx)
	defer cancel()

	record, err := e.accounts.GetByID(sctx, accountID)
	if err != nil {
		if errors.Is(err, stores.ErrAccountNotFound) {
			return nil, ErrUnauthenticated
		}
		return nil, e.storeFailure(err)
	}
	if record.TOTPSecret != "" {
		return nil, ErrTOTPAlreadyEnabled
	}

	secret, uri, err := e.totp.GenerateSecret(record.Login)
	if err != nil {
		return nil, err
	}

	pending := &stores.PendingEnrollment{
		Secret:    secret,
		CreatedAt: e.now().Unix(),
	}
	ttl := e.config.TOTP.PendingWindow + pendingTTLSlack
	if err := e.enrollments.ReplacePending(sctx, accountID, pending, ttl); err != nil {
		return nil, e.storeFailure(err)
	}

	e.metricInc(MetricTOTPEnrollStarted)
	e.emitAudit(ctx, auditEventTOTPEnrollStarted, true, accountID, "", nil, nil)

	return &EnrollmentMaterial{Secret: secret, URI: uri}, nil
}

// ConfirmTOTPEnrollment promotes the pending secret onto the account
// after the caller proves possession with a current code. The window is
// checked against the pending record's own timestamp; an elapsed window
// deletes the record and the enrollment must be restarted.
func (e *Engine) ConfirmTOTPEnrollment(ctx context.Context, accountID, code string) error {
	if accountID == "" || code == "" {
		return fmt.Errorf("%w: account id and code required", ErrInvalidInput)
	}

	lock := e.enrollLock(accountID)
	lock.Lock()
	defer lock.Unlock()

	sctx, cancel := e.storeCtx(ctx)
	defer cancel()

	record, err := e.accounts.GetByID(sctx, accountID)
	if err != nil {
		if errors.Is(err, stores.ErrAccountNotFound) {
			return ErrUnauthenticated
		}
		return e.storeFailure(err)
	}
	if record.TOTPSecret != "" {
		return ErrTOTPAlreadyEnabled
	}

	pending, err := e.enrollments.GetPending(sctx, accountID)
	if err != nil {
		if errors.Is(err, stores.ErrPendingNotFound) {
			return ErrNoPendingEnrollment
		}
		return e.storeFailure(err)
	}

	now := e.now()
	if now.Sub(time.Unix(pending.CreatedAt, 0)) > e.config.TOTP.PendingWindow {
		if err := e.enrollments.DeletePending(sctx, accountID); err != nil {
			return e.storeFailure(err)
		}
		e.metricInc(MetricTOTPEnrollExpired)
		e.emitAudit(ctx, auditEventTOTPEnrollExpired, false, accountID, "", ErrEnrollmentExpired, nil)
		return ErrEnrollmentExpired
	}

	ok, err := e.totp.VerifyCodeAt(pending.Secret, code, now)
	if err != nil || !ok {
		e.metricInc(MetricTOTPFailure)
		e.emitAudit(ctx, auditEventTOTPFailure, false, accountID, "", ErrTOTPCodeInvalid, func() map[string]string {
			return map[string]string{"phase": "enroll_confirm"}
		})
		return ErrTOTPCodeInvalid
	}

	if err := e.enrollments.Promote(sctx, accountID, pending); err != nil {
		switch {
		case errors.Is(err, stores.ErrPendingSuperseded):
			return ErrNoPendingEnrollment
		case errors.Is(err, stores.ErrAccountNotFound):
			return ErrUnauthenticated
		}
		return e.storeFailure(err)
	}

	e.metricInc(MetricTOTPEnrollConfirmed)
	e.emitAudit(ctx, auditEventTOTPEnrollConfirmed, true, accountID, "", nil, nil)

	return nil
}

// VerifyTOTPCode checks a code against the account's confirmed secret,
// accepting the configured drift on either side of now.
func (e *Engine) VerifyTOTPCode(ctx context.Context, accountID, code string) error {
	if accountID == "" || code == "" {
		return fmt.Errorf("%w: account id and code required", ErrInvalidInput)
	}

	sctx, cancel := e.storeCtx(ctx)
	defer cancel()

	record, err := e.accounts.GetByID(sctx, accountID)
	if err != nil {
		if errors.Is(err, stores.ErrAccountNotFound) {
			return ErrUnauthenticated
		}
		return e.storeFailure(err)
	}
	if record.TOTPSecret == "" {
		return ErrTOTPNotEnabled
	}

	ok, err := e.totp.VerifyCodeAt(record.TOTPSecret, code, e.now())
	if err != nil || !ok {
		e.metricInc(MetricTOTPFailure)
		e.emitAudit(ctx, auditEventTOTPFailure, false, accountID, "", ErrTOTPCodeInvalid, func() map[string]string {
			return map[string]string{"phase": "verify"}
		})
		return ErrTOTPCodeInvalid
	}

	e.metricInc(MetricTOTPSuccess)
	e.emitAudit(ctx, auditEventTOTPSuccess, true, accountID, "", nil, nil)

	return nil
}
