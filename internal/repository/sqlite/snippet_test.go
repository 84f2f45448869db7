package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/1525164075/code-spark-snippets/internal/apperror"
	"github.com/1525164075/code-spark-snippets/internal/model"
	"github.com/1525164075/code-spark-snippets/internal/repository"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func publicSnippet(title string) *model.Snippet {
	return &model.Snippet{
		Title: title,
		Files: []model.CodeFile{
			{Filename: "main.go", Language: "go", Content: "package main"},
		},
		Description: "a test snippet",
		Tags:        []string{"go", "test"},
		Visibility:  model.VisibilityPublic,
	}
}

func privateSnippet(title, ownerID string) *model.Snippet {
	s := publicSnippet(title)
	s.Visibility = model.VisibilityPrivate
	s.OwnerID = ownerID
	s.SecretHash = "$2a$04$fakehashfakehashfakehash"
	return s
}

func TestCreateAndGet(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	s := publicSnippet("round trip")
	expiry := time.Date(2026, 12, 1, 0, 0, 0, 0, time.UTC)
	s.ExpiresAt = &expiry

	require.NoError(t, db.Create(ctx, s))
	assert.NotEmpty(t, s.ID)
	assert.False(t, s.CreatedAt.IsZero())

	got, err := db.GetByID(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, s.Title, got.Title)
	assert.Equal(t, s.Files, got.Files)
	assert.Equal(t, s.Description, got.Description)
	assert.Equal(t, s.Tags, got.Tags)
	assert.Equal(t, s.Visibility, got.Visibility)
	require.NotNil(t, got.ExpiresAt)
	assert.True(t, expiry.Equal(*got.ExpiresAt))
}

func TestCreate_MultiFile(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	s := publicSnippet("many files")
	s.Files = []model.CodeFile{
		{Filename: "a.go", Language: "go", Content: "package a"},
		{Filename: "b.py", Language: "python", Content: "print('b')"},
		{Filename: "c.txt", Language: "plaintext", Content: ""},
	}
	require.NoError(t, db.Create(ctx, s))

	got, err := db.GetByID(ctx, s.ID)
	require.NoError(t, err)
	require.Len(t, got.Files, 3)
	assert.Equal(t, "b.py", got.Files[1].Filename)
}

func TestCreate_RejectsInvalid(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	t.Run("private without hash", func(t *testing.T) {
		s := publicSnippet("bad")
		s.Visibility = model.VisibilityPrivate
		s.OwnerID = "owner-1"
		err := db.Create(ctx, s)
		assert.ErrorIs(t, err, apperror.ErrValidation)
	})

	t.Run("public with hash", func(t *testing.T) {
		s := publicSnippet("bad")
		s.SecretHash = "$2a$04$something"
		err := db.Create(ctx, s)
		assert.ErrorIs(t, err, apperror.ErrValidation)
	})
}

func TestGetByID_NotFound(t *testing.T) {
	db := testDB(t)
	_, err := db.GetByID(context.Background(), "missing")
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestGetByID_ReturnsPrivateAndExpired(t *testing.T) {
	// The store is policy-free: visibility and expiry are enforced above it.
	db := testDB(t)
	ctx := context.Background()

	s := privateSnippet("locked", "owner-1")
	past := time.Now().UTC().Add(-time.Hour)
	s.ExpiresAt = &past
	require.NoError(t, db.Create(ctx, s))

	got, err := db.GetByID(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, s.SecretHash, got.SecretHash)
}

func TestListPublic(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	b := publicSnippet("banana")
	require.NoError(t, db.Create(ctx, b))
	time.Sleep(5 * time.Millisecond)
	a := publicSnippet("apple")
	require.NoError(t, db.Create(ctx, a))
	require.NoError(t, db.Create(ctx, privateSnippet("hidden", "owner-1")))

	t.Run("newest first", func(t *testing.T) {
		out, err := db.ListPublic(ctx, repository.SortCreatedDesc)
		require.NoError(t, err)
		require.Len(t, out, 2)
		assert.Equal(t, "apple", out[0].Title)
		assert.Equal(t, "banana", out[1].Title)
	})

	t.Run("title ascending", func(t *testing.T) {
		out, err := db.ListPublic(ctx, repository.SortTitleAsc)
		require.NoError(t, err)
		require.Len(t, out, 2)
		assert.Equal(t, "apple", out[0].Title)
		assert.Equal(t, "banana", out[1].Title)
	})

	t.Run("summary carries counts not content", func(t *testing.T) {
		out, err := db.ListPublic(ctx, repository.SortCreatedDesc)
		require.NoError(t, err)
		assert.Equal(t, 1, out[0].FileCount)
		assert.Equal(t, []string{"go", "test"}, out[0].Tags)
	})
}

func TestListByOwner(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	pub := publicSnippet("mine public")
	pub.OwnerID = "owner-1"
	require.NoError(t, db.Create(ctx, pub))
	require.NoError(t, db.Create(ctx, privateSnippet("mine private", "owner-1")))
	require.NoError(t, db.Create(ctx, privateSnippet("theirs", "owner-2")))

	out, err := db.ListByOwner(ctx, "owner-1")
	require.NoError(t, err)
	require.Len(t, out, 2)

	visibilities := map[string]model.Visibility{}
	for _, s := range out {
		visibilities[s.Title] = s.Visibility
	}
	assert.Equal(t, model.VisibilityPublic, visibilities["mine public"])
	assert.Equal(t, model.VisibilityPrivate, visibilities["mine private"])
}

func TestDelete(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	s := privateSnippet("target", "owner-1")
	require.NoError(t, db.Create(ctx, s))

	t.Run("wrong owner forbidden, record intact", func(t *testing.T) {
		err := db.Delete(ctx, s.ID, "owner-2")
		assert.ErrorIs(t, err, apperror.ErrForbidden)

		_, err = db.GetByID(ctx, s.ID)
		assert.NoError(t, err)
	})

	t.Run("owner deletes", func(t *testing.T) {
		require.NoError(t, db.Delete(ctx, s.ID, "owner-1"))

		_, err := db.GetByID(ctx, s.ID)
		assert.ErrorIs(t, err, apperror.ErrNotFound)
	})

	t.Run("missing id not found", func(t *testing.T) {
		err := db.Delete(ctx, "missing", "owner-1")
		assert.ErrorIs(t, err, apperror.ErrNotFound)
	})
}
