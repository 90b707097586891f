package redis

import (
	"context"
	"encoding/json"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/robertarktes/rail-seat-booking/internal/domain"
)

// SessionStore keeps selection sessions as JSON snapshots that expire after
// ttl of inactivity. Every Save refreshes the expiry.
type SessionStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewSessionStore(client *redis.Client, ttl time.Duration) *SessionStore {
	return &SessionStore{client: client, ttl: ttl}
}

func sessionKey(id uuid.UUID) string {
	return "session:" + id.String()
}

// saveScript writes a snapshot only if the stored version still matches the
// one the caller loaded. A missing key counts as version 0.
var saveScript = redis.NewScript(`
local cur = redis.call('GET', KEYS[1])
local version = 0
if cur then
	version = tonumber(cjson.decode(cur)['version']) or 0
end
if version ~= tonumber(ARGV[1]) then
	return 0
end
redis.call('SET', KEYS[1], ARGV[2], 'PX', ARGV[3])
return 1
`)

// Save stores the session and bumps its version. A write based on a stale
// version fails with domain.ErrConflict and leaves the stored copy alone.
func (s *SessionStore) Save(ctx context.Context, sess *domain.Session) error {
	snap := sess.Snapshot()
	snap.Version = sess.Version + 1
	data, err := json.Marshal(snap)
	if err != nil {
		return errors.Wrapf(err, "encode session %s", sess.ID)
	}
	ok, err := saveScript.Run(ctx, s.client, []string{sessionKey(sess.ID)}, sess.Version, data, s.ttl.Milliseconds()).Int()
	if err != nil {
		return errors.Wrapf(err, "save session %s", sess.ID)
	}
	if ok == 0 {
		return errors.Wrapf(domain.ErrConflict, "session %s was changed by another request", sess.ID)
	}
	sess.Version = snap.Version
	return nil
}

func (s *SessionStore) Load(ctx context.Context, id uuid.UUID) (*domain.Session, error) {
	data, err := s.client.Get(ctx, sessionKey(id)).Bytes()
	if err == redis.Nil {
		return nil, errors.Wrapf(domain.ErrNotFound, "session %s", id)
	}
	if err != nil {
		return nil, err
	}
	var snap domain.SessionSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, errors.Wrapf(err, "decode session %s", id)
	}
	return domain.RestoreSession(snap)
}

func (s *SessionStore) Delete(ctx context.Context, id uuid.UUID) error {
	return s.client.Del(ctx, sessionKey(id)).Err()
}
