// Package service contains the business logic layer: snippet creation and
// deletion, the access gate for reads, and account handling. Services accept
// plain values, return domain errors from apperror, and know nothing about
// HTTP.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/1525164075/code-spark-snippets/internal/apperror"
	"github.com/1525164075/code-spark-snippets/internal/model"
	"github.com/1525164075/code-spark-snippets/internal/repository"
	"github.com/1525164075/code-spark-snippets/internal/sanitize"
	"github.com/1525164075/code-spark-snippets/internal/secret"
)

// SnippetService orchestrates snippet creation, listing, and deletion.
// Reads go through the AccessGate instead.
type SnippetService struct {
	repo    repository.SnippetRepository
	secrets *secret.Manager
	clock   Clock
	logger  *slog.Logger
}

// NewSnippetService wires the service with its dependencies.
func NewSnippetService(repo repository.SnippetRepository, secrets *secret.Manager, clock Clock, logger *slog.Logger) *SnippetService {
	return &SnippetService{repo: repo, secrets: secrets, clock: clock, logger: logger}
}

// CreateParams carries a create request into the service. Secret is the raw
// access secret for private snippets; it is hashed before anything is
// persisted and ignored entirely for public ones.
type CreateParams struct {
	Title       string
	Files       []model.CodeFile
	Description string
	Tags        []string
	Visibility  model.Visibility
	Secret      string
	ExpiresAt   *time.Time
	OwnerID     string
}

// Create validates and persists a new snippet. Sanitizer and secret errors
// are terminal: no partial snippet is ever written.
func (s *SnippetService) Create(ctx context.Context, p CreateParams) (*model.Snippet, error) {
	if !p.Visibility.Valid() {
		return nil, apperror.ValidationFailed("visibility", "visibility must be public or private")
	}

	clean, err := sanitize.Sanitize(sanitize.Input{
		Title:       p.Title,
		Files:       p.Files,
		Description: p.Description,
		Tags:        p.Tags,
	})
	if err != nil {
		return nil, err
	}

	snippet := &model.Snippet{
		OwnerID:     strings.TrimSpace(p.OwnerID),
		Title:       clean.Title,
		Files:       clean.Files,
		Description: clean.Description,
		Tags:        clean.Tags,
		Visibility:  p.Visibility,
		ExpiresAt:   normalizeExpiry(p.ExpiresAt),
	}

	if p.Visibility == model.VisibilityPrivate {
		if snippet.OwnerID == "" {
			return nil, apperror.ValidationFailed("ownerId", "private snippets require an authenticated owner")
		}
		hash, err := s.secrets.Derive(p.Secret)
		if err != nil {
			return nil, err
		}
		snippet.SecretHash = hash
	}

	if err := s.repo.Create(ctx, snippet); err != nil {
		s.logger.Error("failed to create snippet",
			slog.String("title", snippet.Title),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("creating snippet: %w", err)
	}

	s.logger.Info("snippet created",
		slog.String("id", snippet.ID),
		slog.String("visibility", string(snippet.Visibility)),
		slog.Int("files", len(snippet.Files)),
	)
	return snippet, nil
}

// ListPublic returns public snippet summaries in the requested order,
// defaulting to newest first.
func (s *SnippetService) ListPublic(ctx context.Context, order repository.SortOrder) ([]model.PublicSummary, error) {
	if order == "" {
		order = repository.SortCreatedDesc
	}
	if !order.Valid() {
		return nil, apperror.ValidationFailed("sort", "sort must be created_desc or title_asc")
	}

	out, err := s.repo.ListPublic(ctx, order)
	if err != nil {
		s.logger.Error("failed to list public snippets", slog.String("error", err.Error()))
		return nil, fmt.Errorf("listing public snippets: %w", err)
	}
	if out == nil {
		out = []model.PublicSummary{}
	}
	return out, nil
}

// ListOwned returns all snippet summaries belonging to ownerID.
func (s *SnippetService) ListOwned(ctx context.Context, ownerID string) ([]model.OwnedSummary, error) {
	ownerID = strings.TrimSpace(ownerID)
	if ownerID == "" {
		return nil, apperror.ValidationFailed("ownerId", "owner ID is required")
	}

	out, err := s.repo.ListByOwner(ctx, ownerID)
	if err != nil {
		s.logger.Error("failed to list owned snippets", slog.String("error", err.Error()))
		return nil, fmt.Errorf("listing owned snippets: %w", err)
	}
	if out == nil {
		out = []model.OwnedSummary{}
	}
	return out, nil
}

// Delete removes a snippet on behalf of ownerID. Ownership is enforced by
// the repository atomically with the removal.
func (s *SnippetService) Delete(ctx context.Context, id, ownerID string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return apperror.ValidationFailed("id", "snippet ID is required")
	}
	ownerID = strings.TrimSpace(ownerID)
	if ownerID == "" {
		return apperror.Forbidden("only the owner can delete a snippet")
	}

	if err := s.repo.Delete(ctx, id, ownerID); err != nil {
		return err
	}
	s.logger.Info("snippet deleted", slog.String("id", id))
	return nil
}

// normalizeExpiry stores expiry timestamps in UTC. A timestamp already in the
// past is accepted: expiry is evaluated at read time, never at creation.
func normalizeExpiry(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
