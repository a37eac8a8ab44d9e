package authkit

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/bezrook/authkit/internal/stores"
)

// Sessions lists the account's live sessions in creation order. Exactly
// one entry carries Current when the account has any: the latest start
// time, ties broken by the higher session id.
func (e *Engine) Sessions(ctx context.Context, accountID string) ([]SessionInfo, error) {
	if accountID == "" {
		return nil, fmt.Errorf("%w: account id required", ErrInvalidInput)
	}

	sctx, cancel := e.storeCtx(ctx)
	defer cancel()

	records, err := e.sessions.List(sctx, accountID)
	if err != nil {
		return nil, e.storeFailure(err)
	}

	infos := make([]SessionInfo, 0, len(records))
	current := -1
	var currentStart int64
	var currentID int64
	for i, rec := range records {
		infos = append(infos, SessionInfo{
			ID:        rec.ID,
			Device:    rec.Device,
			StartedAt: time.Unix(rec.StartedAt, 0).UTC(),
		})
		// Ids are INCR-allocated; anything non-numeric is a corrupt
		// record, same as a malformed hash in the store.
		id, err := strconv.ParseInt(rec.ID, 10, 64)
		if err != nil {
			return nil, e.storeFailure(fmt.Errorf("malformed session id %q: %v", rec.ID, err))
		}
		if current == -1 || rec.StartedAt > currentStart ||
			(rec.StartedAt == currentStart && id > currentID) {
			current = i
			currentStart = rec.StartedAt
			currentID = id
		}
	}
	if current >= 0 {
		infos[current].Current = true
	}

	return infos, nil
}

// TerminateSession removes one of the account's sessions. A session id
// that does not exist and one owned by another account fail identically
// with ErrSessionNotFound.
func (e *Engine) TerminateSession(ctx context.Context, accountID, sessionID string) error {
	if accountID == "" || sessionID == "" {
		return fmt.Errorf("%w: account id and session id required", ErrInvalidInput)
	}

	sctx, cancel := e.storeCtx(ctx)
	defer cancel()

	if err := e.sessions.Delete(sctx, accountID, sessionID); err != nil {
		if errors.Is(err, stores.ErrSessionNotOwned) {
			e.metricInc(MetricSessionTerminateMiss)
			e.emitAudit(ctx, auditEventSessionTerminateMiss, false, accountID, sessionID, ErrSessionNotFound, nil)
			return ErrSessionNotFound
		}
		return e.storeFailure(err)
	}

	e.metricInc(MetricSessionTerminated)
	e.emitAudit(ctx, auditEventSessionTerminated, true, accountID, sessionID, nil, nil)

	return nil
}
