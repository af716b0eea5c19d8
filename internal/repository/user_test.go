package repository

import (
	"context"
	"errors"
	"natours/internal/models"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testUserID = "0d5f8c7e-3b0a-4f4e-9a44-2a8f0f3c6b11"

var userCols = []string{
	"id", "name", "email", "photo", "role", "password_hash", "password_changed_at", "active",
	"password_reset_token", "password_reset_expires", "created_at",
}

func newRepoWithMock(t *testing.T) (*UserRepository, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return NewUserRepository(mock), mock
}

func userRow(changedAt *time.Time) *pgxmock.Rows {
	return pgxmock.NewRows(userCols).AddRow(
		testUserID, "Leo Gillespie", "leo@example.com", "default.jpg", "guide", "$2a$12$hash",
		changedAt, true, (*string)(nil), (*time.Time)(nil), time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	)
}

func TestGetUserByID_Found(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	changed := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`SELECT .+ FROM users WHERE id = \$1 AND active = TRUE`).
		WithArgs(testUserID).
		WillReturnRows(userRow(&changed))

	u, err := repo.GetUserByID(context.Background(), testUserID)
	require.NoError(t, err)
	assert.Equal(t, testUserID, u.ID)
	assert.Equal(t, models.RoleGuide, u.Role)
	require.NotNil(t, u.PasswordChangedAt)
	assert.Equal(t, changed, *u.PasswordChangedAt)
	assert.Nil(t, u.PasswordResetToken)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetUserByID_NotFound(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectQuery(`SELECT .+ FROM users WHERE id = \$1 AND active = TRUE`).
		WithArgs(testUserID).
		WillReturnError(pgx.ErrNoRows)

	_, err := repo.GetUserByID(context.Background(), testUserID)
	assert.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetUserByID_MalformedIDSkipsQuery(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	_, err := repo.GetUserByID(context.Background(), "not-a-uuid")
	assert.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateUser_DuplicateEmail(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectQuery(`INSERT INTO users`).
		WithArgs(testUserID, "Leo", "leo@example.com", "default.jpg", "user", "hash", (*time.Time)(nil), true).
		WillReturnError(&pgconn.PgError{Code: "23505"})

	err := repo.CreateUser(context.Background(), &models.User{
		ID: testUserID, Name: "Leo", Email: "leo@example.com", Photo: "default.jpg",
		Role: models.RoleUser, PasswordHash: "hash", Active: true,
	})
	assert.ErrorIs(t, err, ErrDuplicateEmail)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveCredentials_WritesWholeAuthState(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	changed := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	u := &models.User{ID: testUserID, PasswordHash: "newhash", PasswordChangedAt: &changed}

	mock.ExpectExec(`UPDATE users\s+SET password_hash = \$2`).
		WithArgs(testUserID, "newhash", &changed, (*string)(nil), (*time.Time)(nil)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	require.NoError(t, repo.SaveCredentials(context.Background(), u))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDeactivate(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectExec(`UPDATE users SET active = FALSE WHERE id = \$1 AND active = TRUE`).
		WithArgs(testUserID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	require.NoError(t, repo.Deactivate(context.Background(), testUserID))

	mock.ExpectExec(`UPDATE users SET active = FALSE`).
		WithArgs(testUserID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	assert.ErrorIs(t, repo.Deactivate(context.Background(), testUserID), ErrNotFound)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSetResetToken(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	exp := time.Date(2024, 2, 1, 0, 10, 0, 0, time.UTC)

	mock.ExpectExec(`UPDATE users SET password_reset_token = \$2, password_reset_expires = \$3`).
		WithArgs(testUserID, "tokhash", exp).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	require.NoError(t, repo.SetResetToken(context.Background(), testUserID, "tokhash", exp))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestConsumeResetToken(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	now := time.Date(2024, 2, 1, 0, 5, 0, 0, time.UTC)
	changed := now.Add(-time.Second)
	u := &models.User{ID: testUserID, PasswordHash: "newhash", PasswordChangedAt: &changed}

	mock.ExpectExec(`UPDATE users\s+SET password_hash = \$2,\s+password_changed_at = \$3,\s+password_reset_token = NULL`).
		WithArgs(testUserID, "newhash", &changed, "tokhash", now).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	require.NoError(t, repo.ConsumeResetToken(context.Background(), u, "tokhash", now))

	// второй раз токена уже нет
	mock.ExpectExec(`UPDATE users\s+SET password_hash = \$2`).
		WithArgs(testUserID, "newhash", &changed, "tokhash", now).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	assert.ErrorIs(t, repo.ConsumeResetToken(context.Background(), u, "tokhash", now), ErrNotFound)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetAllUsersPaginated(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM users WHERE active = TRUE`).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery(`SELECT .+ FROM users WHERE active = TRUE ORDER BY created_at DESC LIMIT \$1 OFFSET \$2`).
		WithArgs(10, 0).
		WillReturnRows(userRow(nil))

	users, total, err := repo.GetAllUsersPaginated(context.Background(), 10, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, users, 1)
	assert.Equal(t, "leo@example.com", users[0].Email)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteUserByID_DBError(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	boom := errors.New("db down")

	mock.ExpectExec(`DELETE FROM users WHERE id = \$1`).
		WithArgs(testUserID).
		WillReturnError(boom)

	assert.ErrorIs(t, repo.DeleteUserByID(context.Background(), testUserID), boom)
	require.NoError(t, mock.ExpectationsWereMet())
}
