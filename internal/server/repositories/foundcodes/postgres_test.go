package foundcodes

import (
	"context"
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

var at = time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)

var cols = []string{"code", "gb", "class", "used", "used_by", "used_at", "created_by", "created_at"}

func TestCreate(t *testing.T) {
	repo, mock := newRepo(t)
	c := &models.FoundCode{Code: "SC-AAAA-BBBB-CCCC", GB: 3, Class: "3gb", CreatedBy: "game", CreatedAt: at}

	mock.ExpectExec(`INSERT INTO found_codes \(code, gb, class, created_by, created_at\)`).
		WithArgs("SC-AAAA-BBBB-CCCC", 3.0, "3gb", "game", at).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO found_codes`).
		WillReturnError(&pgconn.PgError{Code: "23505"})

	require.NoError(t, repo.Create(context.Background(), c))
	assert.ErrorIs(t, repo.Create(context.Background(), c), common.ErrorAlreadyExists)
}

func TestGetForUpdate(t *testing.T) {
	repo, mock := newRepo(t)

	mock.ExpectQuery(`(?s)FROM found_codes WHERE code = \$1\s+FOR UPDATE`).
		WithArgs("A").
		WillReturnRows(sqlmock.NewRows(cols).AddRow("A", 1.0, "1gb", false, nil, nil, "game", at))
	mock.ExpectQuery(`FROM found_codes`).
		WithArgs("B").
		WillReturnRows(sqlmock.NewRows(cols).AddRow("B", 10.0, "10gb", true, "u1", at, "game", at))
	mock.ExpectQuery(`FROM found_codes`).
		WithArgs("C").
		WillReturnRows(sqlmock.NewRows(cols))

	a, err := repo.GetForUpdate(context.Background(), "A")
	require.NoError(t, err)
	assert.False(t, a.Used)
	assert.Nil(t, a.UsedAt)

	b, err := repo.GetForUpdate(context.Background(), "B")
	require.NoError(t, err)
	assert.True(t, b.Used)
	assert.Equal(t, "u1", b.UsedBy)
	require.NotNil(t, b.UsedAt)

	_, err = repo.GetForUpdate(context.Background(), "C")
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestMarkUsed(t *testing.T) {
	repo, mock := newRepo(t)

	q := `(?s)UPDATE found_codes SET used = TRUE, used_by = \$2, used_at = \$3\s+WHERE code = \$1 AND used = FALSE`
	mock.ExpectExec(q).WithArgs("A", "u1", at).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(q).WithArgs("A", "u2", at).WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.MarkUsed(context.Background(), "A", "u1", at))
	assert.ErrorIs(t, repo.MarkUsed(context.Background(), "A", "u2", at), common.ErrCodeExhausted)
}
