package sessions

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/dmitrijs2005/gophdrive/internal/common"
	"github.com/dmitrijs2005/gophdrive/internal/server/models"
	"github.com/redis/go-redis/v9"
)

const (
	keyPrefix   = "upload:session:"
	ownerPrefix = "upload:owner:"
	activityKey = "upload:activity"
)

func metaKey(id string) string { return keyPrefix + id }

func partsKey(id string) string { return keyPrefix + id + ":parts" }

func ownerKey(owner string) string { return ownerPrefix + owner }

func score(t time.Time) float64 { return float64(t.UnixMilli()) }

func fromScore(f float64) time.Time { return time.UnixMilli(int64(f)).UTC() }

// putPartScript records a part only while the session is receiving.
// Returns -1 for a missing session, 0 when the session is in another state.
var putPartScript = redis.NewScript(`
local state = redis.call('HGET', KEYS[1], 'state')
if not state then return -1 end
if state ~= ARGV[1] then return 0 end
redis.call('HSET', KEYS[2], ARGV[2], ARGV[3])
redis.call('ZADD', KEYS[3], ARGV[4], ARGV[5])
redis.call('PEXPIRE', KEYS[1], ARGV[6])
redis.call('PEXPIRE', KEYS[2], ARGV[6])
return 1
`)

// casStateScript returns -1 for a missing session, 1 on swap, 0 otherwise.
var casStateScript = redis.NewScript(`
local state = redis.call('HGET', KEYS[1], 'state')
if not state then return -1 end
if state ~= ARGV[1] then return 0 end
redis.call('HSET', KEYS[1], 'state', ARGV[2])
return 1
`)

// RedisStore keeps sessions in Redis. Metadata lives in a hash, parts in a
// second hash, and activity times in a sorted set scanned by the sweeper.
// Keys carry an expiry of twice the session TTL so a stopped sweeper never
// leaks memory.
type RedisStore struct {
	client redis.Cmdable
	expiry time.Duration
}

// NewRedisStore connects to addr and checks the connection.
func NewRedisStore(ctx context.Context, addr string, ttl time.Duration) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &RedisStore{client: client, expiry: 2 * ttl}, nil
}

// Close releases the connection pool.
func (r *RedisStore) Close() error {
	if c, ok := r.client.(interface{ Close() error }); ok {
		return c.Close()
	}
	return nil
}

func (r *RedisStore) Create(ctx context.Context, s *models.UploadSession) error {
	ok, err := r.client.HSetNX(ctx, metaKey(s.ID), "id", s.ID).Result()
	if err != nil {
		return err
	}
	if !ok {
		return common.ErrorAlreadyExists
	}

	_, err = r.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.HSet(ctx, metaKey(s.ID),
			"owner", s.Owner,
			"name", s.Name,
			"declared_size", strconv.FormatInt(s.DeclaredSize, 10),
			"state", string(s.State),
			"created_at", strconv.FormatInt(s.CreatedAt.UnixMilli(), 10),
		)
		p.PExpire(ctx, metaKey(s.ID), r.expiry)
		p.SAdd(ctx, ownerKey(s.Owner), s.ID)
		p.ZAdd(ctx, activityKey, redis.Z{Score: score(s.UpdatedAt), Member: s.ID})
		return nil
	})
	return err
}

func (r *RedisStore) Get(ctx context.Context, id string) (*models.UploadSession, error) {
	meta, err := r.client.HGetAll(ctx, metaKey(id)).Result()
	if err != nil {
		return nil, err
	}
	if len(meta) == 0 || meta["state"] == "" {
		return nil, common.ErrSessionNotFound
	}

	s := &models.UploadSession{
		ID:    id,
		Owner: meta["owner"],
		Name:  meta["name"],
		State: models.SessionState(meta["state"]),
		Parts: map[int]int64{},
	}
	if s.DeclaredSize, err = strconv.ParseInt(meta["declared_size"], 10, 64); err != nil {
		return nil, fmt.Errorf("session %s: declared_size: %w", id, err)
	}
	created, err := strconv.ParseInt(meta["created_at"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("session %s: created_at: %w", id, err)
	}
	s.CreatedAt = time.UnixMilli(created).UTC()

	parts, err := r.client.HGetAll(ctx, partsKey(id)).Result()
	if err != nil {
		return nil, err
	}
	for k, v := range parts {
		idx, err := strconv.Atoi(k)
		if err != nil {
			return nil, fmt.Errorf("session %s: part index %q: %w", id, k, err)
		}
		size, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("session %s: part size %q: %w", id, v, err)
		}
		s.Parts[idx] = size
	}

	at, err := r.client.ZScore(ctx, activityKey, id).Result()
	switch {
	case errors.Is(err, redis.Nil):
		s.UpdatedAt = s.CreatedAt
	case err != nil:
		return nil, err
	default:
		s.UpdatedAt = fromScore(at)
	}
	return s, nil
}

func (r *RedisStore) PutPart(ctx context.Context, id string, index int, size int64, at time.Time) error {
	res, err := putPartScript.Run(ctx, r.client,
		[]string{metaKey(id), partsKey(id), activityKey},
		string(models.SessionReceiving),
		strconv.Itoa(index),
		strconv.FormatInt(size, 10),
		strconv.FormatInt(at.UnixMilli(), 10),
		id,
		strconv.FormatInt(r.expiry.Milliseconds(), 10),
	).Int()
	if err != nil {
		return err
	}
	switch res {
	case -1:
		return common.ErrSessionNotFound
	case 0:
		return common.ErrSessionBusy
	}
	return nil
}

func (r *RedisStore) CompareAndSwapState(ctx context.Context, id string, from, to models.SessionState) (bool, error) {
	res, err := casStateScript.Run(ctx, r.client, []string{metaKey(id)}, string(from), string(to)).Int()
	if err != nil {
		return false, err
	}
	if res == -1 {
		return false, common.ErrSessionNotFound
	}
	return res == 1, nil
}

func (r *RedisStore) Delete(ctx context.Context, id string) error {
	owner, err := r.client.HGet(ctx, metaKey(id), "owner").Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return err
	}

	_, err = r.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Del(ctx, metaKey(id), partsKey(id))
		p.ZRem(ctx, activityKey, id)
		if owner != "" {
			p.SRem(ctx, ownerKey(owner), id)
		}
		return nil
	})
	return err
}

func (r *RedisStore) ListByOwner(ctx context.Context, owner string) ([]*models.UploadSession, error) {
	ids, err := r.client.SMembers(ctx, ownerKey(owner)).Result()
	if err != nil {
		return nil, err
	}

	var out []*models.UploadSession
	for _, id := range ids {
		s, err := r.Get(ctx, id)
		if errors.Is(err, common.ErrSessionNotFound) {
			// metadata expired; drop the dangling member
			if err := r.client.SRem(ctx, ownerKey(owner), id).Err(); err != nil {
				return nil, err
			}
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

func (r *RedisStore) ListIdle(ctx context.Context, before time.Time) ([]string, error) {
	return r.client.ZRangeByScore(ctx, activityKey, &redis.ZRangeBy{
		Min: "-inf",
		Max: "(" + strconv.FormatInt(before.UnixMilli(), 10),
	}).Result()
}
