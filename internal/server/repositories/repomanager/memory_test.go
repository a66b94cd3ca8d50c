package repomanager

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/gophdrive/internal/common"
	"github.com/dmitrijs2005/gophdrive/internal/dbx"
	"github.com/dmitrijs2005/gophdrive/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemory_FilesLifecycle(t *testing.T) {
	m := NewMemoryRepositoryManager()
	ctx := context.Background()
	repo := m.Files(m.Conn())

	now := time.Now()
	require.NoError(t, repo.Create(ctx, &models.File{ID: "f1", Owner: "u1", Size: 10, UploadedAt: now}))
	require.NoError(t, repo.Create(ctx, &models.File{ID: "f2", Owner: "u1", Size: 5, UploadedAt: now.Add(time.Second)}))
	require.NoError(t, repo.Create(ctx, &models.File{ID: "f3", Owner: "u2", Size: 7, UploadedAt: now}))
	assert.ErrorIs(t, repo.Create(ctx, &models.File{ID: "f1"}), common.ErrorAlreadyExists)

	total, err := repo.SumSizeByOwner(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(15), total)

	list, err := repo.ListByOwner(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "f2", list[0].ID, "newest first")

	require.NoError(t, repo.SetShare(ctx, "f1", &models.Share{Token: "tok"}))
	assert.ErrorIs(t, repo.SetShare(ctx, "f2", &models.Share{Token: "tok"}), common.ErrorAlreadyExists)
	got, err := repo.GetByShareToken(ctx, "tok")
	require.NoError(t, err)
	assert.Equal(t, "f1", got.ID)

	got.Share.Token = "mutated"
	again, err := repo.GetByShareToken(ctx, "tok")
	require.NoError(t, err, "returned records must be copies")
	assert.Equal(t, "tok", again.Share.Token)

	require.NoError(t, repo.ClearShare(ctx, "f1"))
	_, err = repo.GetByShareToken(ctx, "tok")
	assert.ErrorIs(t, err, common.ErrorNotFound)

	require.NoError(t, repo.Delete(ctx, "f1"))
	assert.ErrorIs(t, repo.Delete(ctx, "f1"), common.ErrorNotFound)
	_, err = repo.GetByID(ctx, "f1")
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestMemory_WithTxRollsBackOnError(t *testing.T) {
	m := NewMemoryRepositoryManager()
	ctx := context.Background()

	err := m.WithTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		if _, err := m.Bonuses(tx).Add(ctx, "u1", 2); err != nil {
			return err
		}
		if err := m.Redemptions(tx).Create(ctx, &models.Redemption{Code: "C", Owner: "u1"}); err != nil {
			return err
		}
		return errors.New("abort")
	})
	require.EqualError(t, err, "abort")

	gb, err := m.Bonuses(m.Conn()).Get(ctx, "u1")
	require.NoError(t, err)
	assert.Zero(t, gb)
	ok, err := m.Redemptions(m.Conn()).Exists(ctx, "C", "u1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemory_WithTxRollsBackOnPanic(t *testing.T) {
	m := NewMemoryRepositoryManager()
	ctx := context.Background()

	func() {
		defer func() {
			require.NotNil(t, recover(), "panic must propagate")
		}()
		_ = m.WithTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
			_, _ = m.Bonuses(tx).Add(ctx, "u1", 1)
			panic("kaput")
		})
	}()

	gb, err := m.Bonuses(m.Conn()).Get(ctx, "u1")
	require.NoError(t, err)
	assert.Zero(t, gb)
}

func TestMemory_WithTxSerializesWriters(t *testing.T) {
	m := NewMemoryRepositoryManager()
	ctx := context.Background()

	const n = 50
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = m.WithTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
				_, err := m.Bonuses(tx).Add(ctx, "u1", 1)
				return err
			})
			_, _ = m.Bonuses(m.Conn()).Add(ctx, "u2", 1)
		}()
	}
	wg.Wait()

	gb1, _ := m.Bonuses(m.Conn()).Get(ctx, "u1")
	gb2, _ := m.Bonuses(m.Conn()).Get(ctx, "u2")
	assert.Equal(t, float64(n), gb1)
	assert.Equal(t, float64(n), gb2)
}

func TestMemory_Subscriptions(t *testing.T) {
	m := NewMemoryRepositoryManager()
	ctx := context.Background()
	repo := m.Subscriptions(m.Conn())

	_, err := repo.GetByOwner(ctx, "u1")
	assert.ErrorIs(t, err, common.ErrorNotFound)

	require.NoError(t, repo.Assign(ctx, "u1", 2))
	tier, err := repo.GetByOwner(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "Plus", tier.Name)

	assert.ErrorIs(t, repo.Assign(ctx, "u1", 42), common.ErrorNotFound)
}

func TestMemory_Codes(t *testing.T) {
	m := NewMemoryRepositoryManager()
	ctx := context.Background()

	sc := m.SpecialCodes(m.Conn())
	require.NoError(t, sc.Create(ctx, &models.SpecialCode{Code: "ONE", GBAmount: 1, MaxUses: 1}))
	assert.ErrorIs(t, sc.Create(ctx, &models.SpecialCode{Code: "ONE"}), common.ErrorAlreadyExists)
	require.NoError(t, sc.IncrementUse(ctx, "ONE"))
	assert.ErrorIs(t, sc.IncrementUse(ctx, "ONE"), common.ErrCodeExhausted)
	got, err := sc.GetForUpdate(ctx, "ONE")
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.UseCount)

	fc := m.FoundCodes(m.Conn())
	require.NoError(t, fc.Create(ctx, &models.FoundCode{Code: "SC-1", GB: 1}))
	require.NoError(t, fc.MarkUsed(ctx, "SC-1", "u1", time.Now()))
	assert.ErrorIs(t, fc.MarkUsed(ctx, "SC-1", "u2", time.Now()), common.ErrCodeExhausted)
	f, err := fc.GetForUpdate(ctx, "SC-1")
	require.NoError(t, err)
	assert.True(t, f.Used)
	assert.Equal(t, "u1", f.UsedBy)
	_, err = fc.GetForUpdate(ctx, "nope")
	assert.ErrorIs(t, err, common.ErrorNotFound)
}
