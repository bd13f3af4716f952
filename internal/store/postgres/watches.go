package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/apitest/gitbridge/internal/models"
	"github.com/google/uuid"
)

// WatchStore implements store.WatchStore using PostgreSQL.
type WatchStore struct {
	db     *sql.DB
	tx     *sql.Tx
	logger *slog.Logger
}

func (s *WatchStore) conn() queryable {
	if s.tx != nil {
		return s.tx
	}
	return s.db
}

// Create persists a new file watch. The branch is normalized to a
// fully-qualified ref before storing; the write is a single atomic insert so
// no partial record is ever visible to readers.
func (s *WatchStore) Create(ctx context.Context, watch *models.FileWatch) error {
	if watch.ID == "" {
		watch.ID = uuid.New().String()
	}
	watch.Normalize()

	now := time.Now()
	watch.CreatedAt = now
	watch.UpdatedAt = now

	query := `
		INSERT INTO file_watches (id, user_id, owner, repo, branch, path, oauth_token, last_commit_sha, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := s.conn().ExecContext(ctx, query,
		watch.ID, watch.UserID, watch.Owner, watch.Repo, watch.Branch, watch.Path,
		watch.OAuthToken, watch.LastCommitSHA,
		now.Unix(), now.Unix(),
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: %s/%s %s %s", ErrDuplicateWatch, watch.Owner, watch.Repo, watch.Branch, watch.Path)
	}
	return err
}

// Get retrieves a watch by its ID.
func (s *WatchStore) Get(ctx context.Context, id string) (*models.FileWatch, error) {
	query := `
		SELECT id, user_id, owner, repo, branch, path, oauth_token, last_commit_sha, created_at, updated_at
		FROM file_watches
		WHERE id = $1
	`

	watch, err := scanWatch(s.conn().QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return watch, nil
}

// ListByUser retrieves all watches registered by a user, newest first.
func (s *WatchStore) ListByUser(ctx context.Context, userID string) ([]*models.FileWatch, error) {
	query := `
		SELECT id, user_id, owner, repo, branch, path, oauth_token, last_commit_sha, created_at, updated_at
		FROM file_watches
		WHERE user_id = $1
		ORDER BY created_at DESC
	`
	return s.queryWatches(ctx, query, userID)
}

// List retrieves every registered watch.
func (s *WatchStore) List(ctx context.Context) ([]*models.FileWatch, error) {
	query := `
		SELECT id, user_id, owner, repo, branch, path, oauth_token, last_commit_sha, created_at, updated_at
		FROM file_watches
		ORDER BY created_at ASC
	`
	return s.queryWatches(ctx, query)
}

// UpdateLastCommitSHA records the most recently observed commit for a watch.
func (s *WatchStore) UpdateLastCommitSHA(ctx context.Context, id, sha string) error {
	query := `
		UPDATE file_watches
		SET last_commit_sha = $1, updated_at = $2
		WHERE id = $3
	`

	res, err := s.conn().ExecContext(ctx, query, sha, time.Now().Unix(), id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *WatchStore) queryWatches(ctx context.Context, query string, args ...any) ([]*models.FileWatch, error) {
	rows, err := s.conn().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var watches []*models.FileWatch
	for rows.Next() {
		watch, err := scanWatch(rows)
		if err != nil {
			return nil, err
		}
		watches = append(watches, watch)
	}

	return watches, rows.Err()
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanWatch(row scanner) (*models.FileWatch, error) {
	var watch models.FileWatch
	var createdAt, updatedAt int64
	err := row.Scan(
		&watch.ID, &watch.UserID, &watch.Owner, &watch.Repo, &watch.Branch, &watch.Path,
		&watch.OAuthToken, &watch.LastCommitSHA,
		&createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	watch.CreatedAt = time.Unix(createdAt, 0)
	watch.UpdatedAt = time.Unix(updatedAt, 0)

	return &watch, nil
}
