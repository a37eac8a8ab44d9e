package stores

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"

	"github.com/redis/go-redis/v9"
)

// ErrSessionNotOwned is returned when the session does not exist or
// belongs to a different account. The two cases are deliberately
// indistinguishable to the caller.
var ErrSessionNotOwned = errors.New("session not found for account")

// SessionRecord is one live session for an account.
type SessionRecord struct {
	ID        string
	AccountID string
	Device    string
	StartedAt int64
}

const deleteOwnedSessionScript = `
local owner = redis.call("HGET", KEYS[1], "account_id")
if not owner or owner ~= ARGV[1] then
  return 0
end
redis.call("DEL", KEYS[1])
redis.call("SREM", KEYS[2], ARGV[2])
return 1
`

var deleteOwnedSessionLua = redis.NewScript(deleteOwnedSessionScript)

// SessionStore persists session hashes plus a per-account membership
// set. Session ids come from a monotonic counter, so numeric order is
// creation order.
type SessionStore struct {
	redis  redis.UniversalClient
	prefix string
}

func NewSessionStore(redisClient redis.UniversalClient, prefix string) *SessionStore {
	if prefix == "" {
		prefix = "ak"
	}
	return &SessionStore{
		redis:  redisClient,
		prefix: prefix,
	}
}

func (s *SessionStore) sessionKey(sessionID string) string {
	return s.prefix + ":sess:" + sessionID
}

func (s *SessionStore) accountSetKey(accountID string) string {
	return s.prefix + ":acct:" + accountID + ":sessions"
}

func (s *SessionStore) seqKey() string {
	return s.prefix + ":sess:seq"
}

// Create allocates the next session id and writes the session hash and
// the account membership entry in one transaction.
func (s *SessionStore) Create(ctx context.Context, accountID, device string, startedAt int64) (*SessionRecord, error) {
	seq, err := s.redis.Incr(ctx, s.seqKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBackend, err)
	}
	sessionID := strconv.FormatInt(seq, 10)

	_, err = s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, s.sessionKey(sessionID), map[string]interface{}{
			"account_id":   accountID,
			"device":       device,
			"started_unix": startedAt,
		})
		pipe.SAdd(ctx, s.accountSetKey(accountID), sessionID)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBackend, err)
	}

	return &SessionRecord{
		ID:        sessionID,
		AccountID: accountID,
		Device:    device,
		StartedAt: startedAt,
	}, nil
}

// List returns the account's sessions in creation order. Membership
// entries whose hash has vanished are dropped silently.
func (s *SessionStore) List(ctx context.Context, accountID string) ([]*SessionRecord, error) {
	ids, err := s.redis.SMembers(ctx, s.accountSetKey(accountID)).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBackend, err)
	}

	sort.Slice(ids, func(i, j int) bool {
		a, _ := strconv.ParseInt(ids[i], 10, 64)
		b, _ := strconv.ParseInt(ids[j], 10, 64)
		return a < b
	})

	records := make([]*SessionRecord, 0, len(ids))
	for _, sessionID := range ids {
		fields, err := s.redis.HGetAll(ctx, s.sessionKey(sessionID)).Result()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrBackend, err)
		}
		if len(fields) == 0 {
			continue
		}
		startedUnix, err := strconv.ParseInt(fields["started_unix"], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: corrupt session record %q", ErrBackend, sessionID)
		}
		records = append(records, &SessionRecord{
			ID:        sessionID,
			AccountID: fields["account_id"],
			Device:    fields["device"],
			StartedAt: startedUnix,
		})
	}
	return records, nil
}

// Delete removes the session if and only if it belongs to accountID.
// The ownership check and the deletion run in one script, so a racing
// delete cannot strand a membership entry.
func (s *SessionStore) Delete(ctx context.Context, accountID, sessionID string) error {
	keys := []string{s.sessionKey(sessionID), s.accountSetKey(accountID)}
	res, err := deleteOwnedSessionLua.Run(ctx, s.redis, keys, accountID, sessionID).Int64()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBackend, err)
	}
	if res == 0 {
		return ErrSessionNotOwned
	}
	return nil
}
