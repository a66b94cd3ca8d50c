package sessions

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/dmitrijs2005/gophdrive/internal/common"
	"github.com/dmitrijs2005/gophdrive/internal/server/models"
	"github.com/go-redis/redismock/v9"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.UnixMilli(1_700_000_000_000).UTC()

func newRedisStore() (*RedisStore, redismock.ClientMock) {
	client, mock := redismock.NewClientMock()
	return &RedisStore{client: client, expiry: 2 * time.Hour}, mock
}

func TestRedisStore_Create(t *testing.T) {
	ctx := context.Background()
	s := newSession("s1", "alice", t0)

	testCases := []struct {
		name    string
		mocker  func(mock redismock.ClientMock)
		wantErr error
	}{
		{
			name: "success",
			mocker: func(mock redismock.ClientMock) {
				mock.ExpectHSetNX(metaKey("s1"), "id", "s1").SetVal(true)
				mock.ExpectTxPipeline()
				mock.ExpectHSet(metaKey("s1"),
					"owner", "alice",
					"name", "movie.mkv",
					"declared_size", "100",
					"state", "receiving",
					"created_at", strconv.FormatInt(t0.UnixMilli(), 10),
				).SetVal(5)
				mock.ExpectPExpire(metaKey("s1"), 2*time.Hour).SetVal(true)
				mock.ExpectSAdd(ownerKey("alice"), "s1").SetVal(1)
				mock.ExpectZAdd(activityKey, redis.Z{Score: score(t0), Member: "s1"}).SetVal(1)
				mock.ExpectTxPipelineExec()
			},
		},
		{
			name: "duplicate",
			mocker: func(mock redismock.ClientMock) {
				mock.ExpectHSetNX(metaKey("s1"), "id", "s1").SetVal(false)
			},
			wantErr: common.ErrorAlreadyExists,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			store, mock := newRedisStore()
			tc.mocker(mock)

			err := store.Create(ctx, s)
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
			} else {
				assert.NoError(t, err)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestRedisStore_Get(t *testing.T) {
	ctx := context.Background()

	t.Run("found", func(t *testing.T) {
		store, mock := newRedisStore()
		mock.ExpectHGetAll(metaKey("s1")).SetVal(map[string]string{
			"id":            "s1",
			"owner":         "alice",
			"name":          "movie.mkv",
			"declared_size": "100",
			"state":         "receiving",
			"created_at":    strconv.FormatInt(t0.UnixMilli(), 10),
		})
		mock.ExpectHGetAll(partsKey("s1")).SetVal(map[string]string{"0": "60", "1": "40"})
		mock.ExpectZScore(activityKey, "s1").SetVal(score(t0.Add(time.Minute)))

		s, err := store.Get(ctx, "s1")
		require.NoError(t, err)
		assert.Equal(t, "alice", s.Owner)
		assert.EqualValues(t, 100, s.DeclaredSize)
		assert.Equal(t, models.SessionReceiving, s.State)
		assert.Equal(t, map[int]int64{0: 60, 1: 40}, s.Parts)
		assert.True(t, s.CreatedAt.Equal(t0))
		assert.True(t, s.UpdatedAt.Equal(t0.Add(time.Minute)))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing", func(t *testing.T) {
		store, mock := newRedisStore()
		mock.ExpectHGetAll(metaKey("nope")).SetVal(map[string]string{})

		_, err := store.Get(ctx, "nope")
		assert.ErrorIs(t, err, common.ErrSessionNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("redis error", func(t *testing.T) {
		store, mock := newRedisStore()
		mock.ExpectHGetAll(metaKey("s1")).SetErr(errors.New("conn reset"))

		_, err := store.Get(ctx, "s1")
		assert.EqualError(t, err, "conn reset")
	})
}

func TestRedisStore_PutPart(t *testing.T) {
	ctx := context.Background()

	testCases := []struct {
		name    string
		ret     int64
		wantErr error
	}{
		{name: "recorded", ret: 1},
		{name: "finalizing", ret: 0, wantErr: common.ErrSessionBusy},
		{name: "missing", ret: -1, wantErr: common.ErrSessionNotFound},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			store, mock := newRedisStore()
			mock.ExpectEvalSha(putPartScript.Hash(),
				[]string{metaKey("s1"), partsKey("s1"), activityKey},
				"receiving", "3", "512", strconv.FormatInt(t0.UnixMilli(), 10), "s1",
				strconv.FormatInt((2 * time.Hour).Milliseconds(), 10),
			).SetVal(tc.ret)

			err := store.PutPart(ctx, "s1", 3, 512, t0)
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
			} else {
				assert.NoError(t, err)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestRedisStore_CompareAndSwapState(t *testing.T) {
	ctx := context.Background()

	testCases := []struct {
		name    string
		ret     int64
		want    bool
		wantErr error
	}{
		{name: "swapped", ret: 1, want: true},
		{name: "other state", ret: 0, want: false},
		{name: "missing", ret: -1, wantErr: common.ErrSessionNotFound},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			store, mock := newRedisStore()
			mock.ExpectEvalSha(casStateScript.Hash(), []string{metaKey("s1")}, "receiving", "finalizing").SetVal(tc.ret)

			ok, err := store.CompareAndSwapState(ctx, "s1", models.SessionReceiving, models.SessionFinalizing)
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tc.want, ok)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestRedisStore_Delete(t *testing.T) {
	ctx := context.Background()

	t.Run("with owner", func(t *testing.T) {
		store, mock := newRedisStore()
		mock.ExpectHGet(metaKey("s1"), "owner").SetVal("alice")
		mock.ExpectTxPipeline()
		mock.ExpectDel(metaKey("s1"), partsKey("s1")).SetVal(2)
		mock.ExpectZRem(activityKey, "s1").SetVal(1)
		mock.ExpectSRem(ownerKey("alice"), "s1").SetVal(1)
		mock.ExpectTxPipelineExec()

		require.NoError(t, store.Delete(ctx, "s1"))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("expired metadata", func(t *testing.T) {
		store, mock := newRedisStore()
		mock.ExpectHGet(metaKey("s1"), "owner").RedisNil()
		mock.ExpectTxPipeline()
		mock.ExpectDel(metaKey("s1"), partsKey("s1")).SetVal(0)
		mock.ExpectZRem(activityKey, "s1").SetVal(1)
		mock.ExpectTxPipelineExec()

		require.NoError(t, store.Delete(ctx, "s1"))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestRedisStore_ListByOwnerDropsExpired(t *testing.T) {
	ctx := context.Background()
	store, mock := newRedisStore()

	mock.ExpectSMembers(ownerKey("alice")).SetVal([]string{"gone"})
	mock.ExpectHGetAll(metaKey("gone")).SetVal(map[string]string{})
	mock.ExpectSRem(ownerKey("alice"), "gone").SetVal(1)

	list, err := store.ListByOwner(ctx, "alice")
	require.NoError(t, err)
	assert.Empty(t, list)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisStore_ListIdle(t *testing.T) {
	ctx := context.Background()
	store, mock := newRedisStore()

	mock.ExpectZRangeByScore(activityKey, &redis.ZRangeBy{
		Min: "-inf",
		Max: "(" + strconv.FormatInt(t0.UnixMilli(), 10),
	}).SetVal([]string{"a", "b"})

	ids, err := store.ListIdle(ctx, t0)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, ids)
	assert.NoError(t, mock.ExpectationsWereMet())
}
