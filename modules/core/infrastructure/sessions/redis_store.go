package sessions

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/meridianhq/meridian/modules/core/domain/entities/session"
)

const (
	sessionKeyPrefix  = "session:"
	userSessionPrefix = "user_sessions:"
)

// RedisStore keeps sessions in Redis with TTLs derived from expiry, plus a
// per-user set so every session of an account can be revoked at once.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) session.Store {
	return &RedisStore{client: client}
}

func (s *RedisStore) Create(ctx context.Context, sess *session.Session) error {
	raw, err := json.Marshal(sess)
	if err != nil {
		return errors.Wrap(err, "failed to encode session")
	}
	ttl := time.Until(sess.ExpiresAt)
	if ttl <= 0 {
		return errors.New("session already expired")
	}
	pipe := s.client.TxPipeline()
	pipe.Set(ctx, sessionKeyPrefix+sess.Token, raw, ttl)
	pipe.SAdd(ctx, userSessionPrefix+sess.UserID.String(), sess.Token)
	pipe.Expire(ctx, userSessionPrefix+sess.UserID.String(), ttl)
	_, err = pipe.Exec(ctx)
	return err
}

func (s *RedisStore) GetByToken(ctx context.Context, token string) (*session.Session, error) {
	raw, err := s.client.Get(ctx, sessionKeyPrefix+token).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, session.ErrSessionNotFound
		}
		return nil, err
	}
	var sess session.Session
	if err := json.Unmarshal(raw, &sess); err != nil {
		return nil, errors.Wrap(err, "failed to decode session")
	}
	if sess.Expired() {
		return nil, session.ErrSessionNotFound
	}
	return &sess, nil
}

func (s *RedisStore) Delete(ctx context.Context, token string) error {
	sess, err := s.GetByToken(ctx, token)
	if err != nil {
		if errors.Is(err, session.ErrSessionNotFound) {
			return nil
		}
		return err
	}
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, sessionKeyPrefix+token)
	pipe.SRem(ctx, userSessionPrefix+sess.UserID.String(), token)
	_, err = pipe.Exec(ctx)
	return err
}

func (s *RedisStore) DeleteByUser(ctx context.Context, userID uuid.UUID) error {
	setKey := userSessionPrefix + userID.String()
	tokens, err := s.client.SMembers(ctx, setKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return err
	}
	if len(tokens) == 0 {
		return s.client.Del(ctx, setKey).Err()
	}
	keys := make([]string, 0, len(tokens)+1)
	for _, token := range tokens {
		keys = append(keys, sessionKeyPrefix+token)
	}
	keys = append(keys, setKey)
	return s.client.Del(ctx, keys...).Err()
}
