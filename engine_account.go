package authkit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bezrook/authkit/internal/stores"
	"github.com/google/uuid"
)

const (
	maxLoginLength    = 254
	maxPasswordLength = 1024
)

// Register creates an account with a hashed credential. The login is
// stored verbatim, byte for byte, so Login matches exactly what was
// registered. It must be unique; racing registrations for the same
// login resolve to exactly one winner.
func (e *Engine) Register(ctx context.Context, login, pass string) (*Account, error) {
	if login == "" || len(login) > maxLoginLength {
		return nil, fmt.Errorf("%w: login must be 1-%d characters", ErrInvalidInput, maxLoginLength)
	}
	if pass == "" || len(pass) > maxPasswordLength {
		return nil, fmt.Errorf("%w: password must be 1-%d characters", ErrInvalidInput, maxPasswordLength)
	}

	hash, err := e.passwordHash.Hash(pass)
	if err != nil {
		return nil, err
	}

	record := &stores.AccountRecord{
		ID:           uuid.NewString(),
		Login:        login,
		PasswordHash: hash,
		CreatedAt:    e.now().Unix(),
	}

	sctx, cancel := e.storeCtx(ctx)
	defer cancel()

	if err := e.accounts.Create(sctx, record); err != nil {
		if errors.Is(err, stores.ErrDuplicateLogin) {
			e.metricInc(MetricRegisterDuplicate)
			e.emitAudit(ctx, auditEventRegisterDuplicate, false, "", "", ErrAccountExists, func() map[string]string {
				return map[string]string{"login": login}
			})
			return nil, ErrAccountExists
		}
		return nil, e.storeFailure(err)
	}

	e.metricInc(MetricRegisterSuccess)
	e.emitAudit(ctx, auditEventRegisterSuccess, true, record.ID, "", nil, func() map[string]string {
		return map[string]string{"login": login}
	})

	return accountView(record), nil
}

// CurrentAccount resolves a bearer token to the account it was issued
// for. Every rejection reason collapses to ErrUnauthenticated, including
// a valid token whose subject account has since disappeared.
func (e *Engine) CurrentAccount(ctx context.Context, bearer string) (*Account, error) {
	start := time.Now()
	defer func() {
		e.metricObserve(MetricValidateLatency, time.Since(start))
	}()

	accountID, err := e.tokens.Validate(bearer)
	if err != nil {
		e.metricInc(MetricTokenRejected)
		e.emitAudit(ctx, auditEventTokenRejected, false, "", "", ErrUnauthenticated, nil)
		return nil, ErrUnauthenticated
	}

	sctx, cancel := e.storeCtx(ctx)
	defer cancel()

	record, err := e.accounts.GetByID(sctx, accountID)
	if err != nil {
		if errors.Is(err, stores.ErrAccountNotFound) {
			e.metricInc(MetricTokenRejected)
			e.emitAudit(ctx, auditEventTokenRejected, false, accountID, "", ErrUnauthenticated, nil)
			return nil, ErrUnauthenticated
		}
		return nil, e.storeFailure(err)
	}

	return accountView(record), nil
}
