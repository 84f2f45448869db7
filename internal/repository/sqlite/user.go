package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/xid"

	"github.com/1525164075/code-spark-snippets/internal/apperror"
	"github.com/1525164075/code-spark-snippets/internal/model"
	"github.com/1525164075/code-spark-snippets/internal/repository"
)

var _ repository.UserRepository = (*DB)(nil)

// Create inserts a new account. Email uniqueness is enforced by the schema;
// a UNIQUE violation is surfaced as a conflict rather than a raw driver error.
func (db *DB) Create(ctx context.Context, u *model.User) error {
	u.ID = xid.New().String()
	now := time.Now().UTC()
	u.CreatedAt = now
	u.UpdatedAt = now

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO users
			(id, email, display_name, password_hash, github_id, avatar_url, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		u.ID, u.Email, u.DisplayName, u.PasswordHash, nullableID(u.GitHubID),
		u.AvatarURL, u.CreatedAt, u.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("email", "an account with this email already exists")
		}
		return fmt.Errorf("sqlite: creating user: %w", err)
	}
	return nil
}

// GetByID returns the account or apperror.ErrNotFound.
func (db *DB) GetByID(ctx context.Context, id string) (*model.User, error) {
	return db.getUser(ctx, `WHERE id = ?`, id)
}

// GetByEmail returns the account or apperror.ErrNotFound.
func (db *DB) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	return db.getUser(ctx, `WHERE email = ?`, email)
}

// UpsertGitHub inserts the account on first GitHub login and refreshes
// email/avatar on subsequent logins, keyed by the stable GitHub user ID.
func (db *DB) UpsertGitHub(ctx context.Context, u *model.User) error {
	if u.GitHubID == 0 {
		return apperror.ValidationFailed("githubId", "GitHub ID is required")
	}

	existing, err := db.getUser(ctx, `WHERE github_id = ?`, u.GitHubID)
	if err == nil {
		now := time.Now().UTC()
		_, err = db.conn.ExecContext(ctx,
			`UPDATE users SET email = ?, display_name = ?, avatar_url = ?, updated_at = ?
			 WHERE github_id = ?`,
			u.Email, u.DisplayName, u.AvatarURL, now, u.GitHubID,
		)
		if err != nil {
			return fmt.Errorf("sqlite: refreshing GitHub user: %w", err)
		}
		u.ID = existing.ID
		u.CreatedAt = existing.CreatedAt
		u.UpdatedAt = now
		return nil
	}
	if !errors.Is(err, apperror.ErrNotFound) {
		return err
	}
	return db.Create(ctx, u)
}

func (db *DB) getUser(ctx context.Context, where string, arg any) (*model.User, error) {
	var (
		u        model.User
		githubID sql.NullInt64
	)
	err := db.conn.QueryRowContext(ctx,
		`SELECT id, email, display_name, password_hash, github_id, avatar_url,
		        created_at, updated_at
		 FROM users `+where,
		arg,
	).Scan(
		&u.ID, &u.Email, &u.DisplayName, &u.PasswordHash, &githubID,
		&u.AvatarURL, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("user")
		}
		return nil, fmt.Errorf("sqlite: getting user: %w", err)
	}
	if githubID.Valid {
		u.GitHubID = githubID.Int64
	}
	return &u, nil
}

// nullableID maps the zero GitHub ID to NULL so the UNIQUE index ignores
// email/password accounts.
func nullableID(id int64) any {
	if id == 0 {
		return nil
	}
	return id
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
