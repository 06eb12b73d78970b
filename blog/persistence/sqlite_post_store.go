package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dfryer1193/blogsync/blog/domain"
	"github.com/dfryer1193/blogsync/shared/db"
)

var _ domain.PostStore = (*SQLitePostStore)(nil)

// SQLitePostStore implements domain.PostStore using SQL database (SQLite).
// Each row holds the JSON record of one post keyed by its path.
type SQLitePostStore struct {
	db *sql.DB
}

// NewSQLitePostStore creates a new SQLitePostStore from a standard sql.DB
func NewSQLitePostStore(db *sql.DB) *SQLitePostStore {
	return &SQLitePostStore{
		db: db,
	}
}

const upsertPostQuery = `
	INSERT INTO posts (path, slug, status, created_at, record, stored_at)
	VALUES (?, ?, ?, ?, ?, ?)
	ON CONFLICT(path) DO UPDATE SET
		slug = excluded.slug,
		status = excluded.status,
		created_at = excluded.created_at,
		record = excluded.record,
		stored_at = excluded.stored_at
`

// UpsertPosts writes every post in a single transaction.
func (s *SQLitePostStore) UpsertPosts(ctx context.Context, posts []*domain.BlogPost) error {
	if len(posts) == 0 {
		return nil
	}

	now := time.Now().UTC()
	return db.RunInTransaction(ctx, s.db, func(txCtx context.Context) error {
		executor := db.GetExecutor(txCtx, s.db)
		for _, p := range posts {
			if p == nil || p.Path == "" {
				return fmt.Errorf("post path cannot be empty")
			}

			record, err := json.Marshal(p)
			if err != nil {
				return fmt.Errorf("failed to encode post %s: %w", p.Path, err)
			}

			_, err = executor.ExecContext(txCtx, upsertPostQuery,
				p.Path,
				p.Slug,
				string(p.Status),
				p.CreatedAt,
				string(record),
				now,
			)
			if err != nil {
				return fmt.Errorf("failed to upsert post %s: %w", p.Path, err)
			}
		}
		return nil
	})
}

const deletePostQuery = `DELETE FROM posts WHERE path = ?`

// DeletePostsByPath removes the given paths in a single transaction.
func (s *SQLitePostStore) DeletePostsByPath(ctx context.Context, paths []string) error {
	if len(paths) == 0 {
		return nil
	}

	return db.RunInTransaction(ctx, s.db, func(txCtx context.Context) error {
		executor := db.GetExecutor(txCtx, s.db)
		for _, path := range paths {
			if _, err := executor.ExecContext(txCtx, deletePostQuery, path); err != nil {
				return fmt.Errorf("failed to delete post %s: %w", path, err)
			}
		}
		return nil
	})
}

const getPostByPathQuery = `SELECT record FROM posts WHERE path = ?`

// GetPostByPath retrieves a single post by its storage path
func (s *SQLitePostStore) GetPostByPath(ctx context.Context, path string) (*domain.BlogPost, error) {
	return s.getOne(ctx, getPostByPathQuery, path)
}

// Duplicate slugs resolve to the lexically greatest path.
const getPostBySlugQuery = `SELECT record FROM posts WHERE slug = ? ORDER BY path DESC LIMIT 1`

// GetPost retrieves a single post by slug
func (s *SQLitePostStore) GetPost(ctx context.Context, slug string) (*domain.BlogPost, error) {
	return s.getOne(ctx, getPostBySlugQuery, slug)
}

func (s *SQLitePostStore) getOne(ctx context.Context, query string, key string) (*domain.BlogPost, error) {
	if key == "" {
		return nil, fmt.Errorf("post key cannot be empty")
	}

	var record string
	err := db.GetExecutor(ctx, s.db).QueryRowContext(ctx, query, key).Scan(&record)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("post %s: %w", key, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get post: %w", err)
	}

	return decodePost([]byte(record))
}

const listPostsQuery = `SELECT record FROM posts ORDER BY path`

// ListAllPosts returns the metadata of every stored post, newest first.
func (s *SQLitePostStore) ListAllPosts(ctx context.Context) ([]domain.PostMeta, error) {
	rows, err := db.GetExecutor(ctx, s.db).QueryContext(ctx, listPostsQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to list posts: %w", err)
	}
	defer rows.Close()

	metas := make([]domain.PostMeta, 0)
	for rows.Next() {
		var record string
		if err := rows.Scan(&record); err != nil {
			return nil, fmt.Errorf("failed to scan post row: %w", err)
		}
		post, err := decodePost([]byte(record))
		if err != nil {
			return nil, err
		}
		metas = append(metas, post.Meta())
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating post rows: %w", err)
	}

	domain.SortByCreatedAtDesc(metas)
	return metas, nil
}

func decodePost(record []byte) (*domain.BlogPost, error) {
	var post domain.BlogPost
	if err := json.Unmarshal(record, &post); err != nil {
		return nil, fmt.Errorf("failed to decode post record: %w", err)
	}
	if post.Tags == nil {
		post.Tags = []string{}
	}
	return &post, nil
}
