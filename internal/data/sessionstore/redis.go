package sessionstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/dudesk/dudesk-chat/internal/domain/chat"
	pkgerrors "github.com/dudesk/dudesk-chat/internal/pkg/errors"
	"github.com/dudesk/dudesk-chat/internal/pkg/logger"
)

const (
	defaultKeyPrefix   = "dudesk:session:"
	maxOptimisticTries = 8
)

type RedisOptions struct {
	TTL       time.Duration
	KeyPrefix string
}

// RedisStore keeps each session as a JSON value with a sliding TTL.
// Updates are optimistic WATCH/MULTI transactions, retried on conflict.
type RedisStore struct {
	log  *logger.Logger
	rdb  goredis.UniversalClient
	opts RedisOptions
}

func NewRedisStore(log *logger.Logger, rdb goredis.UniversalClient, opts RedisOptions) (*RedisStore, error) {
	if rdb == nil {
		return nil, fmt.Errorf("redis client required")
	}
	if log == nil {
		log = logger.Nop()
	}
	if opts.TTL <= 0 {
		opts.TTL = 30 * time.Minute
	}
	if opts.KeyPrefix == "" {
		opts.KeyPrefix = defaultKeyPrefix
	}
	return &RedisStore{log: log.With("service", "RedisSessionStore"), rdb: rdb, opts: opts}, nil
}

func (r *RedisStore) key(id uuid.UUID) string { return r.opts.KeyPrefix + id.String() }

func (r *RedisStore) Create(ctx context.Context, s chat.Session) error {
	if s.ID == uuid.Nil {
		return fmt.Errorf("missing session id")
	}
	raw, err := json.Marshal(s)
	if err != nil {
		return err
	}
	ok, err := r.rdb.SetNX(ctx, r.key(s.ID), raw, r.opts.TTL).Result()
	if err != nil {
		return fmt.Errorf("redis create session: %w", err)
	}
	if !ok {
		return fmt.Errorf("session %s: %w", s.ID, pkgerrors.ErrConflict)
	}
	return nil
}

func (r *RedisStore) Get(ctx context.Context, id uuid.UUID) (chat.Session, error) {
	raw, err := r.rdb.GetEx(ctx, r.key(id), r.opts.TTL).Bytes()
	if errors.Is(err, goredis.Nil) {
		return chat.Session{}, pkgerrors.ErrNotFound
	}
	if err != nil {
		return chat.Session{}, fmt.Errorf("redis get session: %w", err)
	}
	return decodeSession(raw)
}

func (r *RedisStore) Peek(ctx context.Context, id uuid.UUID) (chat.Session, error) {
	raw, err := r.rdb.Get(ctx, r.key(id)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return chat.Session{}, pkgerrors.ErrNotFound
	}
	if err != nil {
		return chat.Session{}, fmt.Errorf("redis peek session: %w", err)
	}
	return decodeSession(raw)
}

func (r *RedisStore) Update(ctx context.Context, id uuid.UUID, fn UpdateFunc) (chat.Session, error) {
	key := r.key(id)
	var (
		result chat.Session
		fnErr  error
	)
	txf := func(tx *goredis.Tx) error {
		raw, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, goredis.Nil) {
			return pkgerrors.ErrNotFound
		}
		if err != nil {
			return err
		}
		cur, err := decodeSession(raw)
		if err != nil {
			return err
		}
		next, err := fn(cur)
		if err != nil {
			result, fnErr = cur, err
			return nil
		}
		enc, err := json.Marshal(next)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(p goredis.Pipeliner) error {
			p.Set(ctx, key, enc, r.opts.TTL)
			return nil
		})
		if err == nil {
			result, fnErr = next, nil
		}
		return err
	}

	for attempt := 0; attempt < maxOptimisticTries; attempt++ {
		err := r.rdb.Watch(ctx, txf, key)
		if errors.Is(err, goredis.TxFailedErr) {
			r.log.Debug("Session update lost a race, retrying", "session_id", id, "attempt", attempt+1)
			continue
		}
		if errors.Is(err, pkgerrors.ErrNotFound) {
			return chat.Session{}, err
		}
		if err != nil {
			return chat.Session{}, fmt.Errorf("redis update session: %w", err)
		}
		return result, fnErr
	}
	return chat.Session{}, fmt.Errorf("redis update session: %w", pkgerrors.ErrConflict)
}

func (r *RedisStore) Delete(ctx context.Context, id uuid.UUID) error {
	return r.rdb.Del(ctx, r.key(id)).Err()
}

// Close leaves the shared client open; its owner closes it.
func (r *RedisStore) Close() error { return nil }

func decodeSession(raw []byte) (chat.Session, error) {
	var s chat.Session
	if err := json.Unmarshal(raw, &s); err != nil {
		return chat.Session{}, fmt.Errorf("decode session: %w", err)
	}
	return s, nil
}
