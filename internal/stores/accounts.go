package stores

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
)

// ErrBackend is wrapped around every Redis failure surfaced by this package.
var ErrBackend = errors.New("store backend unavailable")

// ErrDuplicateLogin is returned when the login index already maps to an account.
var ErrDuplicateLogin = errors.New("login already registered")

// ErrAccountNotFound is returned when no account record exists for the lookup.
var ErrAccountNotFound = errors.New("account not found")

// AccountRecord is the persisted shape of an account. TOTPSecret is empty
// until an enrollment has been confirmed.
type AccountRecord struct {
	ID           string
	Login        string
	PasswordHash string
	TOTPSecret   string
	CreatedAt    int64
}

const createAccountScript = `
local claimed = redis.call("SETNX", KEYS[1], ARGV[1])
if claimed == 0 then
  return 0
end
redis.call("HSET", KEYS[2],
  "login", ARGV[2],
  "phash", ARGV[3],
  "created_unix", ARGV[4])
return 1
`

var createAccountLua = redis.NewScript(createAccountScript)

// AccountStore persists account records keyed by id with a unique
// login index alongside.
type AccountStore struct {
	redis  redis.UniversalClient
	prefix string
}

func NewAccountStore(redisClient redis.UniversalClient, prefix string) *AccountStore {
	if prefix == "" {
		prefix = "ak"
	}
	return &AccountStore{
		redis:  redisClient,
		prefix: prefix,
	}
}

func (s *AccountStore) accountKey(accountID string) string {
	return s.prefix + ":acct:" + accountID
}

func (s *AccountStore) loginKey(login string) string {
	return s.prefix + ":login:" + login
}

// Create claims the login index and writes the account hash in one
// script, so two racing registrations for the same login cannot both
// succeed.
func (s *AccountStore) Create(ctx context.Context, record *AccountRecord) error {
	keys := []string{s.loginKey(record.Login), s.accountKey(record.ID)}
	res, err := createAccountLua.Run(ctx, s.redis, keys,
		record.ID,
		record.Login,
		record.PasswordHash,
		record.CreatedAt,
	).Int64()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBackend, err)
	}
	if res == 0 {
		return ErrDuplicateLogin
	}
	return nil
}

// GetByID loads the account hash for an id.
func (s *AccountStore) GetByID(ctx context.Context, accountID string) (*AccountRecord, error) {
	fields, err := s.redis.HGetAll(ctx, s.accountKey(accountID)).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBackend, err)
	}
	if len(fields) == 0 {
		return nil, ErrAccountNotFound
	}
	return decodeAccount(accountID, fields)
}

// GetByLogin resolves the login index and loads the account it points to.
func (s *AccountStore) GetByLogin(ctx context.Context, login string) (*AccountRecord, error) {
	accountID, err := s.redis.Get(ctx, s.loginKey(login)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrBackend, err)
	}
	return s.GetByID(ctx, accountID)
}

// SetPasswordHash replaces the stored credential hash, used after a
// parameter upgrade on successful verification.
func (s *AccountStore) SetPasswordHash(ctx context.Context, accountID, hash string) error {
	if err := s.redis.HSet(ctx, s.accountKey(accountID), "phash", hash).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrBackend, err)
	}
	return nil
}

func decodeAccount(accountID string, fields map[string]string) (*AccountRecord, error) {
	createdUnix, err := strconv.ParseInt(fields["created_unix"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: corrupt account record %q", ErrBackend, accountID)
	}
	return &AccountRecord{
		ID:           accountID,
		Login:        fields["login"],
		PasswordHash: fields["phash"],
		TOTPSecret:   fields["totp_secret"],
		CreatedAt:    createdUnix,
	}, nil
}
