// Package repository declares the persistence ports the service layer depends
// on. Concrete adapters live in the sqlite and mongo subpackages; the service
// is wired against these interfaces only.
package repository

import (
	"context"

	"github.com/1525164075/code-spark-snippets/internal/apperror"
	"github.com/1525164075/code-spark-snippets/internal/model"
)

// SortOrder selects the ordering of public listings.
type SortOrder string

const (
	// SortCreatedDesc returns newest snippets first (the default).
	SortCreatedDesc SortOrder = "created_desc"
	// SortTitleAsc returns snippets in ascending title order.
	SortTitleAsc SortOrder = "title_asc"
)

// Valid reports whether s is a known sort order.
func (s SortOrder) Valid() bool {
	return s == SortCreatedDesc || s == SortTitleAsc
}

// SnippetRepository is the storage port for snippets. Implementations are
// dumb, consistent record keepers: GetByID returns the stored record
// unconditionally — visibility, secret, and expiry policy belong to the
// access gate, not the store. All mutations are durable before the call
// returns.
type SnippetRepository interface {
	// Create assigns ID, CreatedAt, and UpdatedAt, then persists the snippet
	// atomically: either the full record exists afterwards or none of it
	// does. Returns apperror.ErrValidation if the record violates the model
	// invariants (defense in depth behind the sanitizer).
	Create(ctx context.Context, s *model.Snippet) error

	// GetByID returns the stored record or apperror.ErrNotFound.
	GetByID(ctx context.Context, id string) (*model.Snippet, error)

	// ListPublic returns summaries of public snippets in the given order.
	// The projection never includes the secret hash.
	ListPublic(ctx context.Context, order SortOrder) ([]model.PublicSummary, error)

	// ListByOwner returns summaries of all snippets owned by ownerID,
	// regardless of visibility. The projection never includes the secret
	// hash.
	ListByOwner(ctx context.Context, ownerID string) ([]model.OwnedSummary, error)

	// Delete removes the snippet iff ownerID matches the stored owner.
	// Returns apperror.ErrNotFound if no such snippet exists and
	// apperror.ErrForbidden on an ownership mismatch. The ownership check
	// and the removal are atomic.
	Delete(ctx context.Context, id, ownerID string) error
}

// UserRepository is the storage port for accounts.
type UserRepository interface {
	// Create persists a new user, assigning ID and timestamps. Returns
	// apperror.ErrConflict if the email is already registered.
	Create(ctx context.Context, u *model.User) error

	// GetByID returns the user or apperror.ErrNotFound.
	GetByID(ctx context.Context, id string) (*model.User, error)

	// GetByEmail returns the user or apperror.ErrNotFound.
	GetByEmail(ctx context.Context, email string) (*model.User, error)

	// UpsertGitHub creates or refreshes the account bound to u.GitHubID and
	// fills u.ID and timestamps from the stored row.
	UpsertGitHub(ctx context.Context, u *model.User) error
}

// ValidateSnippet checks the model invariants every backend enforces before
// writing. Callers are expected to have run the sanitizer and secret manager
// already; this is the last line of defense, not the primary validator.
func ValidateSnippet(s *model.Snippet) error {
	if s == nil {
		return apperror.ValidationFailed("snippet", "snippet is required")
	}
	if s.Title == "" {
		return apperror.ValidationFailed("title", "title is required")
	}
	if len(s.Files) == 0 {
		return apperror.ValidationFailed("files", "at least one file is required")
	}
	if !s.Visibility.Valid() {
		return apperror.ValidationFailed("visibility", "visibility must be public or private")
	}
	if s.Visibility == model.VisibilityPrivate && s.SecretHash == "" {
		return apperror.ValidationFailed("secret", "private snippets require a secret hash")
	}
	if s.Visibility == model.VisibilityPublic && s.SecretHash != "" {
		return apperror.ValidationFailed("secret", "public snippets must not carry a secret hash")
	}
	if s.Visibility == model.VisibilityPrivate && s.OwnerID == "" {
		return apperror.ValidationFailed("ownerId", "private snippets require an owner")
	}
	return nil
}
