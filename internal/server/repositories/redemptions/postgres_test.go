package redemptions

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/gophdrive/internal/common"
	"github.com/dmitrijs2005/gophdrive/internal/server/models"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRepo(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewPostgresRepository(db), mock
}

func TestExists(t *testing.T) {
	repo, mock := newRepo(t)

	mock.ExpectQuery(`SELECT EXISTS \(SELECT 1 FROM redemptions WHERE code = \$1 AND owner = \$2\)`).
		WithArgs("C1", "u1").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	ok, err := repo.Exists(context.Background(), "C1", "u1")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestCreate_MapsUniqueViolation(t *testing.T) {
	repo, mock := newRepo(t)
	at := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	red := &models.Redemption{Code: "C1", Owner: "u1", Family: models.FamilySpecial, GBAmount: 2, RedeemedAt: at}

	mock.ExpectExec(`INSERT INTO redemptions \(code, owner, family, gb_amount, redeemed_at\)`).
		WithArgs("C1", "u1", "special", 2.0, at).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO redemptions`).
		WithArgs("C1", "u1", "special", 2.0, at).
		WillReturnError(&pgconn.PgError{Code: "23505"})
	mock.ExpectExec(`INSERT INTO redemptions`).
		WithArgs("C1", "u1", "special", 2.0, at).
		WillReturnError(errors.New("db down"))

	require.NoError(t, repo.Create(context.Background(), red))
	assert.ErrorIs(t, repo.Create(context.Background(), red), common.ErrorAlreadyExists)
	err := repo.Create(context.Background(), red)
	require.Error(t, err)
	assert.NotErrorIs(t, err, common.ErrorAlreadyExists)
}

func TestListByOwner(t *testing.T) {
	repo, mock := newRepo(t)
	at := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)

	mock.ExpectQuery(`(?s)SELECT code, owner, family, gb_amount, redeemed_at FROM redemptions\s+WHERE owner = \$1`).
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows([]string{"code", "owner", "family", "gb_amount", "redeemed_at"}).
			AddRow("SC-AAAA-BBBB-CCCC", "u1", "found", 1.0, at).
			AddRow("WELCOME", "u1", "special", 2.0, at))

	got, err := repo.ListByOwner(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, models.FamilyFound, got[0].Family)
	assert.Equal(t, "WELCOME", got[1].Code)
}
