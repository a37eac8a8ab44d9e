package authkit

import (
	"context"
	"fmt"
	"hash/fnv"
	"sync"
	"time"

	"github.com/bezrook/authkit/internal/audit"
	"github.com/bezrook/authkit/internal/stores"
	"github.com/bezrook/authkit/password"
	"github.com/bezrook/authkit/token"
	"github.com/bezrook/authkit/totp"
)

const enrollStripes = 64

// Engine is the authentication core. Build one with [Builder]; all
// methods are safe for concurrent use.
type Engine struct {
	config       Config
	accounts     *stores.AccountStore
	enrollments  *stores.EnrollmentStore
	sessions     *stores.SessionStore
	audit        *audit.Dispatcher
	metrics      *Metrics
	passwordHash *password.Hasher
	totp         *totp.Manager
	tokens       *token.Manager

	// now is replaced in tests to drive enrollment windows and code
	// verification deterministically.
	now func() time.Time

	enrollLocks [enrollStripes]sync.Mutex
}

// Close flushes and stops the audit dispatcher. The engine must not be
// used after Close.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

// AuditDropped reports how many audit events were discarded because the
// buffer was full.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot copies the engine counters.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

func (e *Engine) metricObserve(id MetricID, d time.Duration) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Observe(id, d)
}

// storeCtx bounds one storage round-trip by Config.Store.OpTimeout.
func (e *Engine) storeCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	if e.config.Store.OpTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, e.config.Store.OpTimeout)
}

// storeFailure records a backend failure and wraps it in the public
// sentinel.
func (e *Engine) storeFailure(err error) error {
	e.metricInc(MetricStoreUnavailable)
	return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
}

// enrollLock returns the stripe mutex serializing enrollment state
// transitions for one account.
func (e *Engine) enrollLock(accountID string) *sync.Mutex {
	h := fnv.New32a()
	_, _ = h.Write([]byte(accountID))
	return &e.enrollLocks[h.Sum32()%enrollStripes]
}

func accountView(rec *stores.AccountRecord) *Account {
	return &Account{
		ID:          rec.ID,
		Login:       rec.Login,
		TOTPEnabled: rec.TOTPSecret != "",
		CreatedAt:   time.Unix(rec.CreatedAt, 0).UTC(),
	}
}
