package sqlite

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/1525164075/code-spark-snippets/internal/apperror"
	"github.com/1525164075/code-spark-snippets/internal/model"
)

func TestUserCreateAndGet(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	u := &model.User{
		Email:        "alice@example.com",
		DisplayName:  "Alice",
		PasswordHash: "$2a$04$fakehash",
	}
	require.NoError(t, db.Create(ctx, u))
	assert.NotEmpty(t, u.ID)

	byID, err := db.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", byID.Email)
	assert.Equal(t, int64(0), byID.GitHubID)

	byEmail, err := db.GetByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, byEmail.ID)
}

func TestUserCreate_DuplicateEmail(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	require.NoError(t, db.Create(ctx, &model.User{Email: "dup@example.com"}))
	err := db.Create(ctx, &model.User{Email: "dup@example.com"})
	assert.ErrorIs(t, err, apperror.ErrConflict)
}

func TestUserCreate_MultipleWithoutGitHubID(t *testing.T) {
	// The zero GitHub ID maps to NULL, so the UNIQUE index must allow many
	// email/password accounts.
	db := testDB(t)
	ctx := context.Background()

	require.NoError(t, db.Create(ctx, &model.User{Email: "one@example.com"}))
	require.NoError(t, db.Create(ctx, &model.User{Email: "two@example.com"}))
}

func TestUserGet_NotFound(t *testing.T) {
	db := testDB(t)

	_, err := db.GetByID(context.Background(), "missing")
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	_, err = db.GetByEmail(context.Background(), "missing@example.com")
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestUpsertGitHub(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	first := &model.User{
		GitHubID:    42,
		Email:       "gh@example.com",
		DisplayName: "ghuser",
		AvatarURL:   "http://a/1.png",
	}
	require.NoError(t, db.UpsertGitHub(ctx, first))
	require.NotEmpty(t, first.ID)

	second := &model.User{
		GitHubID:    42,
		Email:       "gh-new@example.com",
		DisplayName: "ghuser",
		AvatarURL:   "http://a/2.png",
	}
	require.NoError(t, db.UpsertGitHub(ctx, second))
	assert.Equal(t, first.ID, second.ID)

	stored, err := db.GetByID(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, "gh-new@example.com", stored.Email)
	assert.Equal(t, "http://a/2.png", stored.AvatarURL)
	assert.Equal(t, int64(42), stored.GitHubID)
}

func TestUpsertGitHub_RequiresID(t *testing.T) {
	db := testDB(t)
	err := db.UpsertGitHub(context.Background(), &model.User{Email: "x@example.com"})
	assert.ErrorIs(t, err, apperror.ErrValidation)
}
