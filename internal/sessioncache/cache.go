package sessioncache

import (
	"context"
	"strconv"
	"time"

	pkgerrors "github.com/ykarpenko/solvebot-backend/pkg/errors"
	"github.com/ykarpenko/solvebot-backend/pkg/redis"
)

// store is the slice of the redis client the cache uses.
type store interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
	SessionKey(parts ...string) string
}

// Cache keeps the last computed answer per user so the "expand" action can
// reuse it. Entries expire on their own; this is scratch state and carries
// none of the ledger's persistence guarantees.
type Cache struct {
	store store
	ttl   time.Duration
}

// New builds a session cache with the given TTL.
func New(s store, ttl time.Duration) (*Cache, error) {
	if s == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "session store required")
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Cache{store: s, ttl: ttl}, nil
}

// PutAnswer stores the user's latest answer, replacing any previous one.
func (c *Cache) PutAnswer(ctx context.Context, userID int64, answer string) error {
	if userID == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	key := c.store.SessionKey("answer", strconv.FormatInt(userID, 10))
	if err := c.store.Set(ctx, key, answer, c.ttl); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store session answer")
	}
	return nil
}

// LastAnswer returns the cached answer and whether one was present.
func (c *Cache) LastAnswer(ctx context.Context, userID int64) (string, bool, error) {
	if userID == 0 {
		return "", false, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	key := c.store.SessionKey("answer", strconv.FormatInt(userID, 10))
	value, err := c.store.Get(ctx, key)
	if err != nil {
		if redis.IsNil(err) {
			return "", false, nil
		}
		return "", false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read session answer")
	}
	return value, true, nil
}

// Forget drops the user's cached answer.
func (c *Cache) Forget(ctx context.Context, userID int64) error {
	key := c.store.SessionKey("answer", strconv.FormatInt(userID, 10))
	if err := c.store.Del(ctx, key); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "drop session answer")
	}
	return nil
}
