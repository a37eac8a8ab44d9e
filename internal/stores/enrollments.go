package stores

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const pendingRecordVersion1 = "1"

// ErrPendingNotFound is returned when no pending enrollment exists for
// the account.
var ErrPendingNotFound = errors.New("pending enrollment not found")

// ErrPendingSuperseded is returned by Promote when the stored pending
// secret no longer matches the one the caller observed.
var ErrPendingSuperseded = errors.New("pending enrollment superseded")

// PendingEnrollment is a provisional authenticator secret awaiting
// confirmation.
type PendingEnrollment struct {
	Secret    string
	CreatedAt int64
}

const promotePendingScript = `
local current = redis.call("GET", KEYS[1])
if not current or current ~= ARGV[1] then
  return 0
end
if redis.call("EXISTS", KEYS[2]) == 0 then
  return -1
end
redis.call("HSET", KEYS[2], "totp_secret", ARGV[2])
redis.call("DEL", KEYS[1])
return 1
`

var promotePendingLua = redis.NewScript(promotePendingScript)

// EnrollmentStore persists pending authenticator secrets. The record
// carries its own creation timestamp so the caller can enforce the
// confirmation window precisely; the key TTL is only a cleanup backstop.
type EnrollmentStore struct {
	redis  redis.UniversalClient
	prefix string
}

func NewEnrollmentStore(redisClient redis.UniversalClient, prefix string) *EnrollmentStore {
	if prefix == "" {
		prefix = "ak"
	}
	return &EnrollmentStore{
		redis:  redisClient,
		prefix: prefix,
	}
}

func (s *EnrollmentStore) key(accountID string) string {
	return s.prefix + ":totp:pending:" + accountID
}

// ReplacePending overwrites any existing pending secret for the account
// in a single SET, so a restarted enrollment leaves exactly one live
// candidate.
func (s *EnrollmentStore) ReplacePending(
	ctx context.Context,
	accountID string,
	record *PendingEnrollment,
	ttl time.Duration,
) error {
	encoded := encodePending(record)
	if err := s.redis.Set(ctx, s.key(accountID), encoded, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrBackend, err)
	}
	return nil
}

// GetPending loads the pending secret for the account.
func (s *EnrollmentStore) GetPending(ctx context.Context, accountID string) (*PendingEnrollment, error) {
	data, err := s.redis.Get(ctx, s.key(accountID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrPendingNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrBackend, err)
	}
	return decodePending(data)
}

// DeletePending discards the pending secret, used when the caller
// observes that the confirmation window has lapsed.
func (s *EnrollmentStore) DeletePending(ctx context.Context, accountID string) error {
	if err := s.redis.Del(ctx, s.key(accountID)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrBackend, err)
	}
	return nil
}

// Promote moves the observed pending record onto the account hash and
// deletes the pending key, guarded against the record having been
// replaced since the caller read it.
func (s *EnrollmentStore) Promote(ctx context.Context, accountID string, observed *PendingEnrollment) error {
	keys := []string{s.key(accountID), s.prefix + ":acct:" + accountID}
	res, err := promotePendingLua.Run(ctx, s.redis, keys,
		encodePending(observed),
		observed.Secret,
	).Int64()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBackend, err)
	}
	switch res {
	case 1:
		return nil
	case -1:
		return ErrAccountNotFound
	default:
		return ErrPendingSuperseded
	}
}

func encodePending(record *PendingEnrollment) string {
	return pendingRecordVersion1 + ":" +
		strconv.FormatInt(record.CreatedAt, 10) + ":" +
		record.Secret
}

func decodePending(data string) (*PendingEnrollment, error) {
	parts := strings.SplitN(data, ":", 3)
	if len(parts) != 3 || parts[0] != pendingRecordVersion1 {
		return nil, fmt.Errorf("%w: corrupt pending enrollment record", ErrBackend)
	}
	createdUnix, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: corrupt pending enrollment record", ErrBackend)
	}
	return &PendingEnrollment{
		Secret:    parts[2],
		CreatedAt: createdUnix,
	}, nil
}
