package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/1525164075/code-spark-snippets/internal/apperror"
	"github.com/1525164075/code-spark-snippets/internal/model"
	"github.com/1525164075/code-spark-snippets/internal/repository"
	"github.com/1525164075/code-spark-snippets/internal/secret"
)

// fakeClock pins time so expiry tests are deterministic.
type fakeClock struct {
	now time.Time
}

func (c fakeClock) Now() time.Time { return c.now }

// memRepo is an in-memory SnippetRepository for service tests.
type memRepo struct {
	snippets map[string]*model.Snippet
	nextID   int
	failWith error
}

func newMemRepo() *memRepo {
	return &memRepo{snippets: make(map[string]*model.Snippet)}
}

func (r *memRepo) Create(_ context.Context, s *model.Snippet) error {
	if r.failWith != nil {
		return r.failWith
	}
	if err := repository.ValidateSnippet(s); err != nil {
		return err
	}
	r.nextID++
	s.ID = string(rune('a' + r.nextID - 1))
	s.CreatedAt = time.Now().UTC()
	s.UpdatedAt = s.CreatedAt
	cp := *s
	r.snippets[s.ID] = &cp
	return nil
}

func (r *memRepo) GetByID(_ context.Context, id string) (*model.Snippet, error) {
	if r.failWith != nil {
		return nil, r.failWith
	}
	s, ok := r.snippets[id]
	if !ok {
		return nil, apperror.NotFound("snippet")
	}
	cp := *s
	return &cp, nil
}

func (r *memRepo) ListPublic(_ context.Context, _ repository.SortOrder) ([]model.PublicSummary, error) {
	if r.failWith != nil {
		return nil, r.failWith
	}
	var out []model.PublicSummary
	for _, s := range r.snippets {
		if s.Visibility == model.VisibilityPublic {
			out = append(out, model.PublicSummary{ID: s.ID, Title: s.Title, Tags: s.Tags, FileCount: len(s.Files), CreatedAt: s.CreatedAt})
		}
	}
	return out, nil
}

func (r *memRepo) ListByOwner(_ context.Context, ownerID string) ([]model.OwnedSummary, error) {
	if r.failWith != nil {
		return nil, r.failWith
	}
	var out []model.OwnedSummary
	for _, s := range r.snippets {
		if s.OwnerID == ownerID {
			out = append(out, model.OwnedSummary{ID: s.ID, Title: s.Title, Visibility: s.Visibility, FileCount: len(s.Files), CreatedAt: s.CreatedAt})
		}
	}
	return out, nil
}

func (r *memRepo) Delete(_ context.Context, id, ownerID string) error {
	if r.failWith != nil {
		return r.failWith
	}
	s, ok := r.snippets[id]
	if !ok {
		return apperror.NotFound("snippet")
	}
	if s.OwnerID != ownerID {
		return apperror.Forbidden("only the owner can delete a snippet")
	}
	delete(r.snippets, id)
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testSecrets() *secret.Manager {
	return secret.NewManagerWithCost(bcrypt.MinCost)
}

func seedSnippet(t *testing.T, repo *memRepo, s *model.Snippet) string {
	t.Helper()
	require.NoError(t, repo.Create(context.Background(), s))
	return s.ID
}

func oneFile() []model.CodeFile {
	return []model.CodeFile{{Filename: "main.go", Language: "go", Content: "package main"}}
}

func TestAccessGate_AbsentIsDenied(t *testing.T) {
	gate := NewAccessGate(newMemRepo(), testSecrets(), fakeClock{now: time.Now()}, testLogger())

	res, err := gate.Evaluate(context.Background(), "no-such-id", "", "")
	require.NoError(t, err)
	assert.Equal(t, StatusDenied, res.Status)
	assert.Nil(t, res.Snippet)
}

func TestAccessGate_EmptyIDIsDenied(t *testing.T) {
	gate := NewAccessGate(newMemRepo(), testSecrets(), fakeClock{now: time.Now()}, testLogger())

	res, err := gate.Evaluate(context.Background(), "   ", "", "")
	require.NoError(t, err)
	assert.Equal(t, StatusDenied, res.Status)
}

func TestAccessGate_PublicGranted(t *testing.T) {
	repo := newMemRepo()
	id := seedSnippet(t, repo, &model.Snippet{
		Title: "open", Files: oneFile(), Visibility: model.VisibilityPublic,
	})
	gate := NewAccessGate(repo, testSecrets(), fakeClock{now: time.Now()}, testLogger())

	res, err := gate.Evaluate(context.Background(), id, "", "")
	require.NoError(t, err)
	assert.Equal(t, StatusGranted, res.Status)
	require.NotNil(t, res.Snippet)
	assert.Equal(t, "open", res.Snippet.Title)
	assert.Equal(t, oneFile(), res.Snippet.Files)
}

func TestAccessGate_Expired(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	expiry := now.Add(-time.Minute)

	repo := newMemRepo()
	id := seedSnippet(t, repo, &model.Snippet{
		Title: "gone", Files: oneFile(), Visibility: model.VisibilityPublic, ExpiresAt: &expiry,
	})
	gate := NewAccessGate(repo, testSecrets(), fakeClock{now: now}, testLogger())

	res, err := gate.Evaluate(context.Background(), id, "", "")
	require.NoError(t, err)
	assert.Equal(t, StatusExpired, res.Status)
	assert.Nil(t, res.Snippet)

	// The record remains in the store after an expired read.
	_, err = repo.GetByID(context.Background(), id)
	assert.NoError(t, err)
}

func TestAccessGate_ExpiryBoundary(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("exactly at expiry is expired", func(t *testing.T) {
		repo := newMemRepo()
		expiry := now
		id := seedSnippet(t, repo, &model.Snippet{
			Title: "edge", Files: oneFile(), Visibility: model.VisibilityPublic, ExpiresAt: &expiry,
		})
		gate := NewAccessGate(repo, testSecrets(), fakeClock{now: now}, testLogger())

		res, err := gate.Evaluate(context.Background(), id, "", "")
		require.NoError(t, err)
		assert.Equal(t, StatusExpired, res.Status)
	})

	t.Run("one instant before expiry is granted", func(t *testing.T) {
		repo := newMemRepo()
		expiry := now.Add(time.Nanosecond)
		id := seedSnippet(t, repo, &model.Snippet{
			Title: "edge", Files: oneFile(), Visibility: model.VisibilityPublic, ExpiresAt: &expiry,
		})
		gate := NewAccessGate(repo, testSecrets(), fakeClock{now: now}, testLogger())

		res, err := gate.Evaluate(context.Background(), id, "", "")
		require.NoError(t, err)
		assert.Equal(t, StatusGranted, res.Status)
	})
}

func TestAccessGate_PrivateWithoutSecret(t *testing.T) {
	secrets := testSecrets()
	hash, err := secrets.Derive("letmein")
	require.NoError(t, err)

	repo := newMemRepo()
	id := seedSnippet(t, repo, &model.Snippet{
		Title: "locked", Files: oneFile(), Description: "hidden notes",
		Tags: []string{"private"}, Visibility: model.VisibilityPrivate,
		SecretHash: hash, OwnerID: "owner-1",
	})
	gate := NewAccessGate(repo, secrets, fakeClock{now: time.Now()}, testLogger())

	res, err := gate.Evaluate(context.Background(), id, "", "")
	require.NoError(t, err)
	assert.Equal(t, StatusPasswordRequired, res.Status)

	// Only prompt metadata leaks: no files, description, owner, or hash.
	require.NotNil(t, res.Snippet)
	assert.Equal(t, "locked", res.Snippet.Title)
	assert.Equal(t, []string{"private"}, res.Snippet.Tags)
	assert.Empty(t, res.Snippet.Files)
	assert.Empty(t, res.Snippet.Description)
	assert.Empty(t, res.Snippet.OwnerID)
	assert.Empty(t, res.Snippet.SecretHash)
}

func TestAccessGate_PrivateSecretMatch(t *testing.T) {
	secrets := testSecrets()
	hash, err := secrets.Derive("letmein")
	require.NoError(t, err)

	repo := newMemRepo()
	id := seedSnippet(t, repo, &model.Snippet{
		Title: "locked", Files: oneFile(), Visibility: model.VisibilityPrivate,
		SecretHash: hash, OwnerID: "owner-1",
	})
	gate := NewAccessGate(repo, secrets, fakeClock{now: time.Now()}, testLogger())

	res, err := gate.Evaluate(context.Background(), id, "letmein", "")
	require.NoError(t, err)
	assert.Equal(t, StatusGranted, res.Status)
	require.NotNil(t, res.Snippet)
	assert.Equal(t, oneFile(), res.Snippet.Files)
	assert.Empty(t, res.Snippet.SecretHash)
}

func TestAccessGate_PrivateWrongSecret(t *testing.T) {
	secrets := testSecrets()
	hash, err := secrets.Derive("letmein")
	require.NoError(t, err)

	repo := newMemRepo()
	id := seedSnippet(t, repo, &model.Snippet{
		Title: "locked", Files: oneFile(), Visibility: model.VisibilityPrivate,
		SecretHash: hash, OwnerID: "owner-1",
	})
	gate := NewAccessGate(repo, secrets, fakeClock{now: time.Now()}, testLogger())

	res, err := gate.Evaluate(context.Background(), id, "wrong-guess", "")
	require.NoError(t, err)
	assert.Equal(t, StatusDenied, res.Status)
	assert.Nil(t, res.Snippet)
}

func TestAccessGate_WrongSecretMatchesAbsentResponse(t *testing.T) {
	secrets := testSecrets()
	hash, err := secrets.Derive("letmein")
	require.NoError(t, err)

	repo := newMemRepo()
	id := seedSnippet(t, repo, &model.Snippet{
		Title: "locked", Files: oneFile(), Visibility: model.VisibilityPrivate,
		SecretHash: hash, OwnerID: "owner-1",
	})
	gate := NewAccessGate(repo, secrets, fakeClock{now: time.Now()}, testLogger())

	wrong, err := gate.Evaluate(context.Background(), id, "wrong-guess", "")
	require.NoError(t, err)
	absent, err := gate.Evaluate(context.Background(), "no-such-id", "wrong-guess", "")
	require.NoError(t, err)

	assert.Equal(t, wrong, absent)
}

func TestAccessGate_OwnerBypass(t *testing.T) {
	secrets := testSecrets()
	hash, err := secrets.Derive("letmein")
	require.NoError(t, err)

	repo := newMemRepo()
	id := seedSnippet(t, repo, &model.Snippet{
		Title: "locked", Files: oneFile(), Visibility: model.VisibilityPrivate,
		SecretHash: hash, OwnerID: "owner-1",
	})
	gate := NewAccessGate(repo, secrets, fakeClock{now: time.Now()}, testLogger())

	t.Run("owner needs no secret", func(t *testing.T) {
		res, err := gate.Evaluate(context.Background(), id, "", "owner-1")
		require.NoError(t, err)
		assert.Equal(t, StatusGranted, res.Status)
	})

	t.Run("other users get the prompt", func(t *testing.T) {
		res, err := gate.Evaluate(context.Background(), id, "", "owner-2")
		require.NoError(t, err)
		assert.Equal(t, StatusPasswordRequired, res.Status)
	})
}

func TestAccessGate_BackendFailure(t *testing.T) {
	repo := newMemRepo()
	repo.failWith = errors.New("connection reset")
	gate := NewAccessGate(repo, testSecrets(), fakeClock{now: time.Now()}, testLogger())

	_, err := gate.Evaluate(context.Background(), "some-id", "", "")
	assert.Error(t, err)
}
