package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/dfryer1193/blogsync/blog/domain"
	"github.com/redis/go-redis/v9"
)

var _ domain.PostStore = (*RedisPostStore)(nil)

const (
	postKeySegment = "post:"
	scanBatchSize  = 100
)

// RedisPostStore implements domain.PostStore on a Redis key space. Each post is a
// JSON string at <prefix>post:<path>.
type RedisPostStore struct {
	client *redis.Client
	prefix string
}

// RedisOptions configures the Redis post store.
type RedisOptions struct {
	// URL is the Redis connection URL (e.g., redis://localhost:6379/0)
	URL string

	// Prefix is prepended to all keys (e.g., "blog:")
	Prefix string

	// ConnectTimeout is the timeout for establishing a connection
	ConnectTimeout time.Duration
}

// DefaultRedisOptions returns sensible defaults.
func DefaultRedisOptions() RedisOptions {
	return RedisOptions{
		Prefix:         "blog:",
		ConnectTimeout: 5 * time.Second,
	}
}

// NewRedisPostStore connects to Redis and verifies the connection.
func NewRedisPostStore(opts RedisOptions) (*RedisPostStore, error) {
	if opts.URL == "" {
		return nil, errors.New("redis URL is required")
	}

	redisOpts, err := redis.ParseURL(opts.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}
	if opts.ConnectTimeout > 0 {
		redisOpts.DialTimeout = opts.ConnectTimeout
	}

	client := redis.NewClient(redisOpts)

	ctx, cancel := context.WithTimeout(context.Background(), redisOpts.DialTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	return NewRedisPostStoreFromClient(client, opts.Prefix), nil
}

// NewRedisPostStoreFromClient wraps an existing client.
func NewRedisPostStoreFromClient(client *redis.Client, prefix string) *RedisPostStore {
	return &RedisPostStore{
		client: client,
		prefix: prefix,
	}
}

// Close closes the underlying client.
func (s *RedisPostStore) Close() error {
	return s.client.Close()
}

func (s *RedisPostStore) postKey(path string) string {
	return s.prefix + postKeySegment + path
}

func (s *RedisPostStore) pathFromKey(key string) string {
	return strings.TrimPrefix(key, s.prefix+postKeySegment)
}

// UpsertPosts writes all posts inside one MULTI/EXEC transaction.
func (s *RedisPostStore) UpsertPosts(ctx context.Context, posts []*domain.BlogPost) error {
	if len(posts) == 0 {
		return nil
	}

	records := make(map[string][]byte, len(posts))
	for _, p := range posts {
		if p == nil || p.Path == "" {
			return fmt.Errorf("post path cannot be empty")
		}
		record, err := json.Marshal(p)
		if err != nil {
			return fmt.Errorf("failed to encode post %s: %w", p.Path, err)
		}
		records[p.Path] = record
	}

	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for path, record := range records {
			pipe.Set(ctx, s.postKey(path), record, 0)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to upsert posts: %w", err)
	}
	return nil
}

// DeletePostsByPath removes the given paths with a single DEL.
func (s *RedisPostStore) DeletePostsByPath(ctx context.Context, paths []string) error {
	if len(paths) == 0 {
		return nil
	}

	keys := make([]string, len(paths))
	for i, p := range paths {
		keys[i] = s.postKey(p)
	}

	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to delete posts: %w", err)
	}
	return nil
}

// GetPostByPath retrieves a single post by its storage path
func (s *RedisPostStore) GetPostByPath(ctx context.Context, path string) (*domain.BlogPost, error) {
	record, err := s.client.Get(ctx, s.postKey(path)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("post %s: %w", path, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get post %s: %w", path, err)
	}
	return decodePost(record)
}

// GetPost resolves slug against the stored paths and loads that post.
func (s *RedisPostStore) GetPost(ctx context.Context, slug string) (*domain.BlogPost, error) {
	paths, err := s.listPaths(ctx)
	if err != nil {
		return nil, err
	}

	mappings, err := domain.BuildMappings(paths)
	if err != nil {
		return nil, fmt.Errorf("failed to map stored paths: %w", err)
	}

	path, ok := mappings.PathFor(slug)
	if !ok {
		return nil, fmt.Errorf("post %s: %w", slug, domain.ErrNotFound)
	}
	return s.GetPostByPath(ctx, path)
}

// ListAllPosts returns the metadata of every stored post, newest first.
func (s *RedisPostStore) ListAllPosts(ctx context.Context) ([]domain.PostMeta, error) {
	paths, err := s.listPaths(ctx)
	if err != nil {
		return nil, err
	}

	metas := make([]domain.PostMeta, 0, len(paths))
	if len(paths) == 0 {
		return metas, nil
	}

	keys := make([]string, len(paths))
	for i, p := range paths {
		keys[i] = s.postKey(p)
	}

	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load posts: %w", err)
	}

	for _, v := range values {
		// deleted between SCAN and MGET
		if v == nil {
			continue
		}
		record, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected post record type %T", v)
		}
		post, err := decodePost([]byte(record))
		if err != nil {
			return nil, err
		}
		metas = append(metas, post.Meta())
	}

	domain.SortByCreatedAtDesc(metas)
	return metas, nil
}

// listPaths scans the post key space and returns the stored paths sorted.
// SCAN may repeat keys, so results are deduplicated.
func (s *RedisPostStore) listPaths(ctx context.Context) ([]string, error) {
	var cursor uint64
	seen := make(map[string]struct{})
	paths := make([]string, 0)
	pattern := s.postKey("*")

	for {
		keys, next, err := s.client.Scan(ctx, cursor, pattern, scanBatchSize).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to scan post keys: %w", err)
		}
		for _, k := range keys {
			path := s.pathFromKey(k)
			if _, ok := seen[path]; ok {
				continue
			}
			seen[path] = struct{}{}
			paths = append(paths, path)
		}

		cursor = next
		if cursor == 0 {
			break
		}
	}

	sort.Strings(paths)
	return paths, nil
}
