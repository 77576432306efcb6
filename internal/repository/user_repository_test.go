package repository

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/helpdesk/internal/domain"
)

var userRowColumns = []string{"id", "name", "email", "password_hash", "role", "created_at", "updated_at"}

func TestUserRepository_Create(t *testing.T) {
	t.Run("Should return generated identity", func(t *testing.T) {
		mockPool := newMockPool(t)
		repo := NewUserRepository(mockPool)
		now := time.Now()
		user := &domain.User{Name: "Ada", Email: "ada@example.com", PasswordHash: "hash", Role: domain.RoleSupport}

		mockPool.ExpectQuery(`INSERT INTO users \(name,email,password_hash,role\) VALUES \(\$1,\$2,\$3,\$4\) RETURNING id, created_at, updated_at`).
			WithArgs("Ada", "ada@example.com", "hash", "support").
			WillReturnRows(mockPool.NewRows([]string{"id", "created_at", "updated_at"}).AddRow("user-1", now, now))

		require.NoError(t, repo.Create(context.Background(), user))
		assert.Equal(t, "user-1", user.ID)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("Should map unique violations to ErrDuplicate", func(t *testing.T) {
		mockPool := newMockPool(t)
		repo := NewUserRepository(mockPool)
		user := &domain.User{Name: "Ada", Email: "ada@example.com", PasswordHash: "hash", Role: domain.RoleUser}

		mockPool.ExpectQuery(`INSERT INTO users`).
			WithArgs("Ada", "ada@example.com", "hash", "user").
			WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "users_email_key"})

		err := repo.Create(context.Background(), user)
		assert.ErrorIs(t, err, ErrDuplicate)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})
}

func TestUserRepository_GetByEmail(t *testing.T) {
	mockPool := newMockPool(t)
	repo := NewUserRepository(mockPool)
	now := time.Now()

	mockPool.ExpectQuery(`SELECT id, name, email, password_hash, role, created_at, updated_at FROM users WHERE lower\(email\) = lower\(\$1\)`).
		WithArgs("ADA@example.com").
		WillReturnRows(mockPool.NewRows(userRowColumns).
			AddRow("user-1", "Ada", "ada@example.com", "hash", "admin", now, now))

	user, err := repo.GetByEmail(context.Background(), "ADA@example.com")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAdmin, user.Role)
	assert.Equal(t, "ada@example.com", user.Email)
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestUserRepository_Update(t *testing.T) {
	mockPool := newMockPool(t)
	repo := NewUserRepository(mockPool)
	now := time.Now()
	user := &domain.User{ID: "user-1", Name: "Ada L.", Email: "ada@example.com", PasswordHash: "hash", Role: domain.RoleUser}

	mockPool.ExpectQuery(`UPDATE users SET name = \$1, email = \$2, password_hash = \$3, role = \$4, updated_at = NOW\(\) WHERE id = \$5 RETURNING updated_at`).
		WithArgs("Ada L.", "ada@example.com", "hash", "user", "user-1").
		WillReturnRows(mockPool.NewRows([]string{"updated_at"}).AddRow(now))

	require.NoError(t, repo.Update(context.Background(), user))
	assert.Equal(t, now, user.UpdatedAt)
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestUserRepository_Delete(t *testing.T) {
	t.Run("Should delete existing user", func(t *testing.T) {
		mockPool := newMockPool(t)
		repo := NewUserRepository(mockPool)

		mockPool.ExpectExec(`DELETE FROM users WHERE id = \$1`).
			WithArgs("user-1").
			WillReturnResult(pgxmock.NewResult("DELETE", 1))

		assert.NoError(t, repo.Delete(context.Background(), "user-1"))
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("Should report missing user", func(t *testing.T) {
		mockPool := newMockPool(t)
		repo := NewUserRepository(mockPool)

		mockPool.ExpectExec(`DELETE FROM users WHERE id = \$1`).
			WithArgs("ghost").
			WillReturnResult(pgxmock.NewResult("DELETE", 0))

		assert.ErrorIs(t, repo.Delete(context.Background(), "ghost"), ErrNotFound)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})
}

func TestUserRepository_ListAndCount(t *testing.T) {
	mockPool := newMockPool(t)
	repo := NewUserRepository(mockPool)
	now := time.Now()

	mockPool.ExpectQuery(`SELECT (.+) FROM users ORDER BY created_at DESC, id DESC LIMIT 2 OFFSET 2`).
		WillReturnRows(mockPool.NewRows(userRowColumns).
			AddRow("user-3", "C", "c@example.com", "h", "user", now, now).
			AddRow("user-4", "D", "d@example.com", "h", "support", now, now))
	mockPool.ExpectQuery(`SELECT COUNT\(\*\) FROM users`).
		WillReturnRows(mockPool.NewRows([]string{"count"}).AddRow(int64(4)))

	users, err := repo.List(context.Background(), 2, 2)
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, domain.RoleSupport, users[1].Role)

	total, err := repo.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(4), total)
	assert.NoError(t, mockPool.ExpectationsWereMet())
}
