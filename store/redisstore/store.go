// Package redisstore keeps codes and token pairs in Redis.
//
// Key layout under the configured prefix:
//
//	code:{value}      hash  client_id, redirect_uri, issued_at, expires_at, used
//	access:{token}    hash  refresh_token, subject_id, scope, issued_at, expires_at
//	refresh:{token}   string holding the access token of the pair
//
// Times are unix milliseconds. Consume and take run as Lua scripts so each is one atomic step.
package redisstore

import (
	"context"
	"strconv"
	"time"

	"github.com/jrsteele09/go-mock-oauth/store"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

var _ store.Store = (*Store)(nil)

// Default timeouts for Redis operations.
const (
	DefaultDialTimeout  = 5 * time.Second
	DefaultReadTimeout  = 3 * time.Second
	DefaultWriteTimeout = 3 * time.Second
)

// codeRetention keeps a code key around after expiry so late presentations report
// "expired" rather than "not found". Both are rejected the same way.
const codeRetention = time.Hour

const (
	codePrefix    = "code:"
	accessPrefix  = "access:"
	refreshPrefix = "refresh:"
)

// Script results
const (
	resultNotFound = 0
	resultOK       = 1
	resultUsed     = 2
	resultExpired  = 3
	resultExists   = 0
)

var putCodeScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 1 then
  return 0
end
redis.call('HSET', KEYS[1], 'client_id', ARGV[1], 'redirect_uri', ARGV[2], 'issued_at', ARGV[3], 'expires_at', ARGV[4], 'used', '0')
redis.call('PEXPIRE', KEYS[1], ARGV[5])
return 1
`)

var consumeCodeScript = redis.NewScript(`
local fields = redis.call('HMGET', KEYS[1], 'used', 'expires_at')
if not fields[1] then
  return 0
end
if fields[1] == '1' then
  return 2
end
if tonumber(ARGV[1]) > tonumber(fields[2]) then
  return 3
end
redis.call('HSET', KEYS[1], 'used', '1')
return 1
`)

var putTokensScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 1 or redis.call('EXISTS', KEYS[2]) == 1 then
  return 0
end
redis.call('HSET', KEYS[1], 'refresh_token', ARGV[1], 'subject_id', ARGV[2], 'scope', ARGV[3], 'issued_at', ARGV[4], 'expires_at', ARGV[5])
redis.call('SET', KEYS[2], ARGV[6])
return 1
`)

var takeByRefreshScript = redis.NewScript(`
local access = redis.call('GET', KEYS[1])
if not access then
  return false
end
local accessKey = ARGV[1] .. access
local fields = redis.call('HGETALL', accessKey)
redis.call('DEL', KEYS[1], accessKey)
table.insert(fields, 'access_token')
table.insert(fields, access)
return fields
`)

// Options holds Redis connection configuration.
type Options struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string
}

// Store implements store.Store on a Redis server.
type Store struct {
	client    redis.UniversalClient
	keyPrefix string
}

// New connects to Redis and verifies the connection with a PING.
func New(ctx context.Context, opts Options) (*Store, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         opts.Addr,
		Password:     opts.Password,
		DB:           opts.DB,
		DialTimeout:  DefaultDialTimeout,
		ReadTimeout:  DefaultReadTimeout,
		WriteTimeout: DefaultWriteTimeout,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Wrapf(err, "[redisstore.New] failed to connect to redis at %s", opts.Addr)
	}
	return NewWithClient(client, opts.KeyPrefix), nil
}

// NewWithClient wraps a pre-configured client (for example one pointed at miniredis).
func NewWithClient(client redis.UniversalClient, keyPrefix string) *Store {
	return &Store{client: client, keyPrefix: keyPrefix}
}

func (s *Store) key(prefix, id string) string {
	return s.keyPrefix + prefix + id
}

func (s *Store) PutCode(ctx context.Context, code *store.AuthorizationCode) error {
	ttl := code.ExpiresAt.Sub(code.IssuedAt) + codeRetention
	res, err := putCodeScript.Run(ctx, s.client,
		[]string{s.key(codePrefix, code.Value)},
		code.ClientID,
		code.RedirectURI,
		toMillis(code.IssuedAt),
		toMillis(code.ExpiresAt),
		ttl.Milliseconds(),
	).Int()
	if err != nil {
		return errors.Wrap(err, "[redisstore.PutCode] failed to store code")
	}
	if res == resultExists {
		return store.ErrCodeExists
	}
	return nil
}

func (s *Store) ConsumeCode(ctx context.Context, value string, now time.Time) (*store.AuthorizationCode, error) {
	key := s.key(codePrefix, value)
	res, err := consumeCodeScript.Run(ctx, s.client, []string{key}, toMillis(now)).Int()
	if err != nil {
		return nil, errors.Wrap(err, "[redisstore.ConsumeCode] failed to consume code")
	}
	switch res {
	case resultNotFound:
		return nil, store.ErrCodeNotFound
	case resultUsed:
		return nil, store.ErrCodeUsed
	case resultExpired:
		return nil, store.ErrCodeExpired
	}

	fields, err := s.client.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, errors.Wrap(err, "[redisstore.ConsumeCode] failed to read consumed code")
	}
	return &store.AuthorizationCode{
		Value:       value,
		ClientID:    fields["client_id"],
		RedirectURI: fields["redirect_uri"],
		IssuedAt:    fromMillis(fields["issued_at"]),
		ExpiresAt:   fromMillis(fields["expires_at"]),
		Used:        fields["used"] == "1",
	}, nil
}

func (s *Store) PutTokens(ctx context.Context, pair *store.TokenPair) error {
	res, err := putTokensScript.Run(ctx, s.client,
		[]string{s.key(accessPrefix, pair.AccessToken), s.key(refreshPrefix, pair.RefreshToken)},
		pair.RefreshToken,
		pair.SubjectID,
		pair.Scope,
		toMillis(pair.IssuedAt),
		toMillis(pair.ExpiresAt),
		pair.AccessToken,
	).Int()
	if err != nil {
		return errors.Wrap(err, "[redisstore.PutTokens] failed to store token pair")
	}
	if res == resultExists {
		return store.ErrTokenExists
	}
	return nil
}

func (s *Store) GetByAccessToken(ctx context.Context, accessToken string) (*store.TokenPair, error) {
	fields, err := s.client.HGetAll(ctx, s.key(accessPrefix, accessToken)).Result()
	if err != nil {
		return nil, errors.Wrap(err, "[redisstore.GetByAccessToken] failed to read token pair")
	}
	if len(fields) == 0 {
		return nil, store.ErrTokenNotFound
	}
	fields["access_token"] = accessToken
	return pairFromFields(fields), nil
}

func (s *Store) TakeByRefreshToken(ctx context.Context, refreshToken string) (*store.TokenPair, error) {
	values, err := takeByRefreshScript.Run(ctx, s.client,
		[]string{s.key(refreshPrefix, refreshToken)},
		s.keyPrefix+accessPrefix,
	).StringSlice()
	if errors.Is(err, redis.Nil) {
		return nil, store.ErrTokenNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "[redisstore.TakeByRefreshToken] failed to take token pair")
	}

	fields := make(map[string]string, len(values)/2)
	for i := 0; i+1 < len(values); i += 2 {
		fields[values[i]] = values[i+1]
	}
	return pairFromFields(fields), nil
}

func (s *Store) Close() error {
	return s.client.Close()
}

func pairFromFields(fields map[string]string) *store.TokenPair {
	return &store.TokenPair{
		AccessToken:  fields["access_token"],
		RefreshToken: fields["refresh_token"],
		SubjectID:    fields["subject_id"],
		Scope:        fields["scope"],
		IssuedAt:     fromMillis(fields["issued_at"]),
		ExpiresAt:    fromMillis(fields["expires_at"]),
	}
}

func toMillis(t time.Time) int64 {
	return t.UnixMilli()
}

func fromMillis(s string) time.Time {
	ms, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}
