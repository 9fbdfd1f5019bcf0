package repository

import (
	"fmt"
	"testing"

	"yatube/internal/model"
	"yatube/pkg/config"
	"yatube/pkg/db"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestDB opens a fresh in-memory database for the test.
func setupTestDB(t *testing.T) {
	if err := config.InitTest(); err != nil {
		t.Fatalf("Failed to initialize config: %v", err)
	}
	if err := db.InitDB(); err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}
	t.Cleanup(db.Close)
}

func createTestUser(t *testing.T, repo *UserRepository, username string) *model.User {
	user := &model.User{
		Username: username,
		Password: "hashed",
		Email:    fmt.Sprintf("%s@example.com", username),
	}
	require.NoError(t, repo.Create(user), "Failed to create test user %s", username)
	require.NotZero(t, user.ID)
	return user
}

func TestUserRepository_Create(t *testing.T) {
	setupTestDB(t)
	repo := NewUserRepository()

	user := createTestUser(t, repo, "auth")

	found, err := repo.FindByID(user.ID)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "auth", found.Username)
	assert.Equal(t, "auth@example.com", found.Email)
	assert.False(t, found.CreatedAt.IsZero())
}

func TestUserRepository_UniqueUsername(t *testing.T) {
	setupTestDB(t)
	repo := NewUserRepository()
	createTestUser(t, repo, "auth")

	dup := &model.User{Username: "auth", Email: "other@example.com", Password: "hashed"}
	assert.Error(t, repo.Create(dup))
}

func TestUserRepository_FindByUsername(t *testing.T) {
	setupTestDB(t)
	repo := NewUserRepository()
	createTestUser(t, repo, "auth")

	tests := []struct {
		name     string
		username string
		wantNil  bool
	}{
		{name: "existing user", username: "auth", wantNil: false},
		{name: "missing user", username: "ghost", wantNil: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			user, err := repo.FindByUsername(tt.username)
			require.NoError(t, err)
			if tt.wantNil {
				assert.Nil(t, user)
			} else {
				require.NotNil(t, user)
				assert.Equal(t, tt.username, user.Username)
			}
		})
	}
}

func TestUserRepository_FindByEmail(t *testing.T) {
	setupTestDB(t)
	repo := NewUserRepository()
	createTestUser(t, repo, "auth")

	user, err := repo.FindByEmail("auth@example.com")
	require.NoError(t, err)
	require.NotNil(t, user)

	missing, err := repo.FindByEmail("nobody@example.com")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestUserRepository_List(t *testing.T) {
	setupTestDB(t)
	repo := NewUserRepository()
	createTestUser(t, repo, "zed")
	createTestUser(t, repo, "amy")

	users, err := repo.List()
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "amy", users[0].Username)
	assert.Equal(t, "zed", users[1].Username)
}
