package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/1525164075/code-spark-snippets/internal/apperror"
	"github.com/1525164075/code-spark-snippets/internal/model"
	"github.com/1525164075/code-spark-snippets/internal/repository"
	"github.com/1525164075/code-spark-snippets/internal/secret"
)

// AccessStatus is the outcome of gating one read request.
type AccessStatus string

const (
	// StatusGranted discloses the full snippet.
	StatusGranted AccessStatus = "granted"
	// StatusPasswordRequired withholds content; only prompt metadata is
	// returned.
	StatusPasswordRequired AccessStatus = "password_required"
	// StatusExpired means the snippet's expiry has passed. Callers must
	// present it as not-found.
	StatusExpired AccessStatus = "expired"
	// StatusDenied covers absent snippets and wrong secrets alike, so a
	// response never reveals which one it was.
	StatusDenied AccessStatus = "denied"
)

// AccessResult carries the gate outcome. Snippet is the full record for
// Granted, a redacted prompt record (id, title, tags) for PasswordRequired,
// and nil otherwise. The secret hash is stripped in every case.
type AccessResult struct {
	Status  AccessStatus
	Snippet *model.Snippet
}

// AccessGate decides whether a requested snippet is disclosed, partially
// disclosed, or denied. It never returns an error for a normal wrong-secret
// outcome; errors are reserved for backend failures.
type AccessGate struct {
	repo    repository.SnippetRepository
	secrets *secret.Manager
	clock   Clock
	logger  *slog.Logger
}

// NewAccessGate wires the gate with its dependencies.
func NewAccessGate(repo repository.SnippetRepository, secrets *secret.Manager, clock Clock, logger *slog.Logger) *AccessGate {
	return &AccessGate{repo: repo, secrets: secrets, clock: clock, logger: logger}
}

// Evaluate runs the gate for one read request.
//
// The decision order is fixed: existence, expiry, visibility, then — for
// private snippets — owner bypass, secret presence, secret match. An absent
// snippet yields Denied rather than a distinct not-found so that probing ids
// reveals nothing about what exists.
func (g *AccessGate) Evaluate(ctx context.Context, id, suppliedSecret, requestingOwnerID string) (AccessResult, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return AccessResult{Status: StatusDenied}, nil
	}

	snippet, err := g.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return AccessResult{Status: StatusDenied}, nil
		}
		g.logger.Error("access gate fetch failed",
			slog.String("id", id),
			slog.String("error", err.Error()),
		)
		return AccessResult{}, fmt.Errorf("evaluating access for %s: %w", id, err)
	}

	if snippet.ExpiresAt != nil && !snippet.ExpiresAt.After(g.clock.Now()) {
		return AccessResult{Status: StatusExpired}, nil
	}

	if snippet.Visibility == model.VisibilityPublic {
		return AccessResult{Status: StatusGranted, Snippet: redactHash(snippet)}, nil
	}

	if requestingOwnerID != "" && requestingOwnerID == snippet.OwnerID {
		return AccessResult{Status: StatusGranted, Snippet: redactHash(snippet)}, nil
	}

	if strings.TrimSpace(suppliedSecret) == "" {
		return AccessResult{Status: StatusPasswordRequired, Snippet: promptRecord(snippet)}, nil
	}

	if g.secrets.Verify(suppliedSecret, snippet.SecretHash) {
		return AccessResult{Status: StatusGranted, Snippet: redactHash(snippet)}, nil
	}
	return AccessResult{Status: StatusDenied}, nil
}

// redactHash copies the snippet without its secret hash. The hash is already
// JSON-hidden, but callers should never hold it at all.
func redactHash(s *model.Snippet) *model.Snippet {
	out := *s
	out.SecretHash = ""
	return &out
}

// promptRecord keeps just enough metadata to render a password prompt:
// id, title, and tags. No files, description, owner, or timestamps.
func promptRecord(s *model.Snippet) *model.Snippet {
	return &model.Snippet{
		ID:         s.ID,
		Title:      s.Title,
		Tags:       s.Tags,
		Visibility: s.Visibility,
	}
}
