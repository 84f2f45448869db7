package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/xid"

	"github.com/1525164075/code-spark-snippets/internal/apperror"
	"github.com/1525164075/code-spark-snippets/internal/model"
	"github.com/1525164075/code-spark-snippets/internal/repository"
)

var _ repository.SnippetRepository = (*DB)(nil)

// Create persists a new snippet. Files and tags are serialized into JSON text
// columns; the whole record lands in a single INSERT, so the write is atomic
// and either fully applied or not at all.
func (db *DB) Create(ctx context.Context, s *model.Snippet) error {
	if err := repository.ValidateSnippet(s); err != nil {
		return err
	}

	s.ID = xid.New().String()
	now := time.Now().UTC()
	s.CreatedAt = now
	s.UpdatedAt = now

	files, err := json.Marshal(s.Files)
	if err != nil {
		return fmt.Errorf("sqlite: encoding files: %w", err)
	}
	tags, err := json.Marshal(tagsOrEmpty(s.Tags))
	if err != nil {
		return fmt.Errorf("sqlite: encoding tags: %w", err)
	}

	var expiresAt any
	if s.ExpiresAt != nil {
		expiresAt = s.ExpiresAt.UTC()
	}

	_, err = db.conn.ExecContext(ctx,
		`INSERT INTO snippets
			(id, owner_id, title, files, file_count, description, tags,
			 visibility, secret_hash, expires_at, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.ID, s.OwnerID, s.Title, string(files), len(s.Files), s.Description,
		string(tags), string(s.Visibility), s.SecretHash, expiresAt,
		s.CreatedAt, s.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: creating snippet: %w", err)
	}
	return nil
}

// GetByID returns the stored record unconditionally, including the secret
// hash and regardless of expiry. Access policy is the gate's job.
func (db *DB) GetByID(ctx context.Context, id string) (*model.Snippet, error) {
	var (
		s         model.Snippet
		files     string
		tags      string
		expiresAt sql.NullTime
	)
	err := db.conn.QueryRowContext(ctx,
		`SELECT id, owner_id, title, files, description, tags, visibility,
		        secret_hash, expires_at, created_at, updated_at
		 FROM snippets WHERE id = ?`,
		id,
	).Scan(
		&s.ID, &s.OwnerID, &s.Title, &files, &s.Description, &tags,
		&s.Visibility, &s.SecretHash, &expiresAt, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("snippet")
		}
		return nil, fmt.Errorf("sqlite: getting snippet %s: %w", id, err)
	}

	if err := json.Unmarshal([]byte(files), &s.Files); err != nil {
		return nil, fmt.Errorf("sqlite: decoding files for snippet %s: %w", id, err)
	}
	if err := json.Unmarshal([]byte(tags), &s.Tags); err != nil {
		return nil, fmt.Errorf("sqlite: decoding tags for snippet %s: %w", id, err)
	}
	if expiresAt.Valid {
		t := expiresAt.Time.UTC()
		s.ExpiresAt = &t
	}
	return &s, nil
}

// ListPublic returns public snippet summaries. The query projects only
// metadata columns; secret_hash and files never leave the database.
func (db *DB) ListPublic(ctx context.Context, order repository.SortOrder) ([]model.PublicSummary, error) {
	orderBy := "created_at DESC"
	if order == repository.SortTitleAsc {
		orderBy = "title ASC"
	}

	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, title, tags, file_count, created_at
		 FROM snippets WHERE visibility = 'public'
		 ORDER BY `+orderBy,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing public snippets: %w", err)
	}
	defer rows.Close()

	var out []model.PublicSummary
	for rows.Next() {
		var (
			sum  model.PublicSummary
			tags string
		)
		if err := rows.Scan(&sum.ID, &sum.Title, &tags, &sum.FileCount, &sum.CreatedAt); err != nil {
			return nil, fmt.Errorf("sqlite: scanning public snippet row: %w", err)
		}
		if err := json.Unmarshal([]byte(tags), &sum.Tags); err != nil {
			return nil, fmt.Errorf("sqlite: decoding tags for snippet %s: %w", sum.ID, err)
		}
		out = append(out, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating public snippets: %w", err)
	}
	return out, nil
}

// ListByOwner returns summaries of every snippet owned by ownerID, newest
// first. Secret hashes are never projected.
func (db *DB) ListByOwner(ctx context.Context, ownerID string) ([]model.OwnedSummary, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, title, visibility, file_count, created_at
		 FROM snippets WHERE owner_id = ?
		 ORDER BY created_at DESC`,
		ownerID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing snippets for owner: %w", err)
	}
	defer rows.Close()

	var out []model.OwnedSummary
	for rows.Next() {
		var sum model.OwnedSummary
		if err := rows.Scan(&sum.ID, &sum.Title, &sum.Visibility, &sum.FileCount, &sum.CreatedAt); err != nil {
			return nil, fmt.Errorf("sqlite: scanning owned snippet row: %w", err)
		}
		out = append(out, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating owned snippets: %w", err)
	}
	return out, nil
}

// Delete removes the snippet only when ownerID matches. The ownership check
// rides inside the DELETE itself, so no concurrent operation can slip between
// check and removal; a miss is disambiguated with a follow-up probe.
func (db *DB) Delete(ctx context.Context, id, ownerID string) error {
	res, err := db.conn.ExecContext(ctx,
		`DELETE FROM snippets WHERE id = ? AND owner_id = ?`,
		id, ownerID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: deleting snippet %s: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if affected > 0 {
		return nil
	}

	var exists int
	err = db.conn.QueryRowContext(ctx,
		`SELECT 1 FROM snippets WHERE id = ?`, id,
	).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return apperror.NotFound("snippet")
	}
	if err != nil {
		return fmt.Errorf("sqlite: probing snippet %s: %w", id, err)
	}
	return apperror.Forbidden("only the owner can delete a snippet")
}

// tagsOrEmpty keeps the tags column a JSON array even when no tags were set.
func tagsOrEmpty(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return tags
}
