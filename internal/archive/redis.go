package archive

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/park285/cheese-peerchess/internal/domain"
	"github.com/redis/go-redis/v9"
)

const ttlGame = 24 * time.Hour

type RedisStore struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisStore(rdb *redis.Client) *RedisStore {
	return &RedisStore{rdb: rdb, ttl: ttlGame}
}

// WithTTL overrides how long snapshots live after their last write.
func (s *RedisStore) WithTTL(ttl time.Duration) *RedisStore {
	if ttl > 0 {
		s.ttl = ttl
	}
	return s
}

func (s *RedisStore) keyGame(id string) string { return "peerchess:game:" + strings.TrimSpace(id) }
func (s *RedisStore) keyActive() string        { return "peerchess:active" }

func (s *RedisStore) Save(ctx context.Context, rec domain.GameRecord) error {
	id := strings.TrimSpace(rec.ID)
	if id == "" {
		return ErrNoGameID
	}
	raw, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	if err := s.rdb.Set(ctx, s.keyGame(id), raw, s.ttl).Err(); err != nil {
		return err
	}
	if rec.Finished() {
		return s.rdb.SRem(ctx, s.keyActive(), id).Err()
	}
	if err := s.rdb.SAdd(ctx, s.keyActive(), id).Err(); err != nil {
		return err
	}
	return s.rdb.Expire(ctx, s.keyActive(), s.ttl).Err()
}

func (s *RedisStore) Load(ctx context.Context, id string) (*domain.GameRecord, error) {
	raw, err := s.rdb.Get(ctx, s.keyGame(id)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var rec domain.GameRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// Active lists unfinished games. Ids whose snapshot expired are pruned from
// the index as a side effect.
func (s *RedisStore) Active(ctx context.Context) ([]domain.GameRecord, error) {
	ids, err := s.rdb.SMembers(ctx, s.keyActive()).Result()
	if err != nil {
		return nil, err
	}
	out := make([]domain.GameRecord, 0, len(ids))
	for _, id := range ids {
		rec, err := s.Load(ctx, id)
		if err != nil {
			return nil, err
		}
		if rec == nil || rec.Finished() {
			_ = s.rdb.SRem(ctx, s.keyActive(), id).Err()
			continue
		}
		out = append(out, *rec)
	}
	sortByUpdated(out)
	return out, nil
}

func (s *RedisStore) Finish(ctx context.Context, rec domain.GameRecord) error {
	if err := s.Save(ctx, rec); err != nil {
		return err
	}
	return s.rdb.SRem(ctx, s.keyActive(), strings.TrimSpace(rec.ID)).Err()
}
