package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/ebogdum/filesmanager/internal/apperr"
	"github.com/ebogdum/filesmanager/metadata"
)

// DefaultPrefix namespaces every key written by the store.
const DefaultPrefix = "filesmanager:"

type RedisStore struct {
	client *redis.Client
	prefix string
	logger *zap.Logger
}

func NewRedisStore(addr, password string, db int, prefix string, logger *zap.Logger) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(context.Background()).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis metadata store: %w", err)
	}

	return NewRedisStoreFromClient(client, prefix, logger)
}

// NewRedisStoreFromClient builds a store on an existing client.
func NewRedisStoreFromClient(client *redis.Client, prefix string, logger *zap.Logger) (*RedisStore, error) {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	if strings.HasPrefix(prefix, "auth_") {
		return nil, fmt.Errorf("metadata key prefix %q collides with the session key space", prefix)
	}
	return &RedisStore{client: client, prefix: prefix, logger: logger}, nil
}

func (s *RedisStore) CreateUser(ctx context.Context, u *metadata.User) error {
	if u.ID == "" {
		u.ID = metadata.NewID()
	}
	u.CreatedAt = time.Now().UTC()

	claimed, err := s.client.SetNX(ctx, s.emailKey(u.Email), string(u.ID), 0).Result()
	if err != nil {
		return apperr.Infra("redis.create_user", err)
	}
	if !claimed {
		return metadata.ErrAlreadyExists
	}

	raw, err := json.Marshal(u)
	if err != nil {
		return fmt.Errorf("failed to encode user: %w", err)
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.userKey(u.ID), raw, 0)
		pipe.SAdd(ctx, s.usersKey(), string(u.ID))
		return nil
	})
	if err != nil {
		// release the email claim so a retry can succeed
		_ = s.client.Del(ctx, s.emailKey(u.Email)).Err()
		return apperr.Infra("redis.create_user", err)
	}
	return nil
}

func (s *RedisStore) GetUserByID(ctx context.Context, id metadata.ID) (*metadata.User, error) {
	raw, err := s.client.Get(ctx, s.userKey(id)).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, metadata.ErrNotFound
		}
		return nil, apperr.Infra("redis.get_user_by_id", err)
	}

	var u metadata.User
	if err := json.Unmarshal([]byte(raw), &u); err != nil {
		return nil, apperr.Infra("redis.get_user_by_id", fmt.Errorf("failed to decode user: %w", err))
	}
	return &u, nil
}

func (s *RedisStore) GetUserByEmail(ctx context.Context, email string) (*metadata.User, error) {
	id, err := s.client.Get(ctx, s.emailKey(email)).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, metadata.ErrNotFound
		}
		return nil, apperr.Infra("redis.get_user_by_email", err)
	}
	return s.GetUserByID(ctx, metadata.ID(id))
}

func (s *RedisStore) CountUsers(ctx context.Context) (int64, error) {
	n, err := s.client.SCard(ctx, s.usersKey()).Result()
	if err != nil {
		return 0, apperr.Infra("redis.count_users", err)
	}
	return n, nil
}

func (s *RedisStore) CreateFile(ctx context.Context, f *metadata.File) error {
	if f.ID == "" {
		f.ID = metadata.NewID()
	}
	if f.ParentID == "" {
		f.ParentID = metadata.RootID
	}
	now := time.Now().UTC()
	f.CreatedAt = now
	f.UpdatedAt = now

	raw, err := json.Marshal(f)
	if err != nil {
		return fmt.Errorf("failed to encode file: %w", err)
	}

	stored, err := s.client.SetNX(ctx, s.fileKey(f.ID), raw, 0).Result()
	if err != nil {
		return apperr.Infra("redis.create_file", err)
	}
	if !stored {
		return metadata.ErrAlreadyExists
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.SAdd(ctx, s.filesKey(), string(f.ID))
		pipe.ZAdd(ctx, s.childrenKey(f.UserID, f.ParentID), &redis.Z{
			Score:  float64(now.UnixNano()),
			Member: string(f.ID),
		})
		return nil
	})
	if err != nil {
		return apperr.Infra("redis.create_file", fmt.Errorf("failed to index file: %w", err))
	}
	return nil
}

func (s *RedisStore) GetFile(ctx context.Context, id metadata.ID) (*metadata.File, error) {
	raw, err := s.client.Get(ctx, s.fileKey(id)).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, metadata.ErrNotFound
		}
		return nil, apperr.Infra("redis.get_file", err)
	}

	var f metadata.File
	if err := json.Unmarshal([]byte(raw), &f); err != nil {
		return nil, apperr.Infra("redis.get_file", fmt.Errorf("failed to decode file: %w", err))
	}
	return &f, nil
}

func (s *RedisStore) UpdateFile(ctx context.Context, f *metadata.File) error {
	current, err := s.GetFile(ctx, f.ID)
	if err != nil {
		return err
	}

	current.Name = f.Name
	current.IsPublic = f.IsPublic
	current.UpdatedAt = time.Now().UTC()

	raw, err := json.Marshal(current)
	if err != nil {
		return fmt.Errorf("failed to encode file: %w", err)
	}

	if err := s.client.Set(ctx, s.fileKey(f.ID), raw, 0).Err(); err != nil {
		return apperr.Infra("redis.update_file", err)
	}
	f.UpdatedAt = current.UpdatedAt
	return nil
}

func (s *RedisStore) ListFiles(ctx context.Context, q metadata.ListFilesQuery) ([]*metadata.File, error) {
	if q.PageSize <= 0 {
		return []*metadata.File{}, nil
	}
	parentID := q.ParentID
	if parentID == "" {
		parentID = metadata.RootID
	}

	start := int64(q.Offset())
	if start > math.MaxInt64-int64(q.PageSize) {
		// a negative ZRANGE index would count from the end of the set
		return []*metadata.File{}, nil
	}
	stop := start + int64(q.PageSize) - 1
	ids, err := s.client.ZRange(ctx, s.childrenKey(q.UserID, parentID), start, stop).Result()
	if err != nil {
		return nil, apperr.Infra("redis.list_files", err)
	}

	files := make([]*metadata.File, 0, len(ids))
	for _, id := range ids {
		f, getErr := s.GetFile(ctx, metadata.ID(id))
		if getErr != nil {
			if getErr == metadata.ErrNotFound {
				continue
			}
			return nil, getErr
		}
		files = append(files, f)
	}
	return files, nil
}

func (s *RedisStore) CountFiles(ctx context.Context) (int64, error) {
	n, err := s.client.SCard(ctx, s.filesKey()).Result()
	if err != nil {
		return 0, apperr.Infra("redis.count_files", err)
	}
	return n, nil
}

func (s *RedisStore) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return apperr.Infra("redis.ping", err)
	}
	return nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

func (s *RedisStore) userKey(id metadata.ID) string {
	return s.prefix + "user:" + string(id)
}

func (s *RedisStore) emailKey(email string) string {
	return s.prefix + "user_email:" + email
}

func (s *RedisStore) usersKey() string {
	return s.prefix + "users"
}

func (s *RedisStore) fileKey(id metadata.ID) string {
	return s.prefix + "file:" + string(id)
}

func (s *RedisStore) filesKey() string {
	return s.prefix + "files"
}

func (s *RedisStore) childrenKey(owner, parent metadata.ID) string {
	return s.prefix + "children:" + string(owner) + ":" + string(parent)
}
