package repository

import (
	"context"
	"testing"
	"time"

	"gardem-catalog/internal/domain"

	"github.com/google/uuid"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newTestUser(email string, role domain.Role) *domain.User {
	now := time.Now().UTC()
	return &domain.User{
		ID:           uuid.New(),
		Name:         "Lucía Gardem",
		Email:        email,
		PasswordHash: "$2a$10$placeholderplaceholderplaceholderplaceholderplaceho",
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func TestProperty_StoredPasswordsAreBcryptHashes(t *testing.T) {
	db := requireDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 20
	properties := gopter.NewProperties(parameters)

	properties.Property("the stored hash verifies the password and is never the plaintext", prop.ForAll(
		func(email string, password string) bool {
			_, _ = db.Exec("DELETE FROM users WHERE email = $1", email)

			hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), 10)
			if err != nil {
				t.Logf("Failed to hash password: %v", err)
				return false
			}

			user := newTestUser(email, domain.RoleCustomer)
			user.PasswordHash = string(hashedPassword)
			if err := repo.Create(ctx, user); err != nil {
				t.Logf("Failed to create user: %v", err)
				return false
			}

			retrievedUser, err := repo.FindByEmail(ctx, email)
			if err != nil {
				t.Logf("Failed to find user: %v", err)
				return false
			}
			if retrievedUser.PasswordHash == password {
				t.Logf("Password was stored as plaintext!")
				return false
			}
			if err := bcrypt.CompareHashAndPassword([]byte(retrievedUser.PasswordHash), []byte(password)); err != nil {
				t.Logf("Stored password is not a valid bcrypt hash: %v", err)
				return false
			}
			return retrievedUser.Role == domain.RoleCustomer
		},
		gen.RegexMatch(`[a-z]{5,10}@[a-z]{3,8}\.(com|org|es)`),
		gen.RegexMatch(`[A-Za-z0-9!@#$%]{6,20}`),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestUserRepository_Lifecycle(t *testing.T) {
	db := requireDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	user := newTestUser("lucia@gardem.es", domain.RoleCustomer)
	require.NoError(t, repo.Create(ctx, user))

	t.Run("duplicate email", func(t *testing.T) {
		err := repo.Create(ctx, newTestUser("lucia@gardem.es", domain.RoleCustomer))
		assert.ErrorIs(t, err, ErrUserAlreadyExists)
	})

	t.Run("update role and email", func(t *testing.T) {
		user.Role = domain.RoleAdmin
		user.Email = "lucia.admin@gardem.es"
		require.NoError(t, repo.Update(ctx, user))

		found, err := repo.FindByID(ctx, user.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.RoleAdmin, found.Role)
		assert.Equal(t, "lucia.admin@gardem.es", found.Email)
	})

	t.Run("update to a taken email", func(t *testing.T) {
		other := newTestUser("otro@gardem.es", domain.RoleCustomer)
		require.NoError(t, repo.Create(ctx, other))

		other.Email = user.Email
		assert.ErrorIs(t, repo.Update(ctx, other), ErrUserAlreadyExists)
	})

	t.Run("password change", func(t *testing.T) {
		require.NoError(t, repo.UpdatePassword(ctx, user.ID, "nuevo-hash"))
		found, err := repo.FindByID(ctx, user.ID)
		require.NoError(t, err)
		assert.Equal(t, "nuevo-hash", found.PasswordHash)

		assert.ErrorIs(t, repo.UpdatePassword(ctx, uuid.New(), "x"), ErrUserNotFound)
	})

	t.Run("list and delete", func(t *testing.T) {
		users, err := repo.List(ctx)
		require.NoError(t, err)
		assert.Len(t, users, 2)

		require.NoError(t, repo.Delete(ctx, user.ID))
		_, err = repo.FindByID(ctx, user.ID)
		assert.ErrorIs(t, err, ErrUserNotFound)
		assert.ErrorIs(t, repo.Delete(ctx, user.ID), ErrUserNotFound)
	})
}
