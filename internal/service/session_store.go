package service

import (
	"context"
	"encoding/json"
	"errors"
	"microcourse_backend/internal/util"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
)

// QuizSessionStore 按 (user, module) 保存进行中的测验
type QuizSessionStore interface {
	Get(ctx context.Context, userID, moduleID string) (*QuizSession, error)
	Save(ctx context.Context, session *QuizSession) error
	Delete(ctx context.Context, userID, moduleID string) error
}

// TokenRevoker 记录已注销的 token ID 直到其过期
type TokenRevoker interface {
	Revoke(ctx context.Context, tokenID string, ttl time.Duration) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

func quizKey(userID, moduleID string) string {
	return "quiz_session:" + userID + ":" + moduleID
}

func revokedKey(tokenID string) string {
	return "revoked_token:" + tokenID
}

type RedisQuizSessionStore struct {
	Redis *redis.Client
	TTL   time.Duration
}

func NewRedisQuizSessionStore(rdb *redis.Client, ttl time.Duration) *RedisQuizSessionStore {
	return &RedisQuizSessionStore{Redis: rdb, TTL: ttl}
}

func (s *RedisQuizSessionStore) Get(ctx context.Context, userID, moduleID string) (*QuizSession, error) {
	data, err := s.Redis.Get(ctx, quizKey(userID, moduleID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, util.ErrQuizSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	var session QuizSession
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

func (s *RedisQuizSessionStore) Save(ctx context.Context, session *QuizSession) error {
	data, err := json.Marshal(session)
	if err != nil {
		return err
	}
	return s.Redis.Set(ctx, quizKey(session.UserID, session.ModuleID), data, s.TTL).Err()
}

func (s *RedisQuizSessionStore) Delete(ctx context.Context, userID, moduleID string) error {
	return s.Redis.Del(ctx, quizKey(userID, moduleID)).Err()
}

type RedisTokenRevoker struct {
	Redis *redis.Client
}

func NewRedisTokenRevoker(rdb *redis.Client) *RedisTokenRevoker {
	return &RedisTokenRevoker{Redis: rdb}
}

func (r *RedisTokenRevoker) Revoke(ctx context.Context, tokenID string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	return r.Redis.Set(ctx, revokedKey(tokenID), "1", ttl).Err()
}

func (r *RedisTokenRevoker) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	n, err := r.Redis.Exists(ctx, revokedKey(tokenID)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

type expiringEntry struct {
	value     []byte
	expiresAt time.Time
}

// memoryKV 进程内带过期时间的键值表，未启用 Redis 时使用
type memoryKV struct {
	mu      sync.Mutex
	entries map[string]expiringEntry
	now     func() time.Time
}

func newMemoryKV() *memoryKV {
	return &memoryKV{entries: make(map[string]expiringEntry), now: time.Now}
}

func (m *memoryKV) get(key string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[key]
	if !ok {
		return nil, false
	}
	if !e.expiresAt.IsZero() && !m.now().Before(e.expiresAt) {
		delete(m.entries, key)
		return nil, false
	}
	return e.value, true
}

func (m *memoryKV) set(key string, value []byte, ttl time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e := expiringEntry{value: value}
	if ttl > 0 {
		e.expiresAt = m.now().Add(ttl)
	}
	m.entries[key] = e
}

func (m *memoryKV) del(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key)
}

type MemoryQuizSessionStore struct {
	kv  *memoryKV
	TTL time.Duration
}

func NewMemoryQuizSessionStore(ttl time.Duration) *MemoryQuizSessionStore {
	return &MemoryQuizSessionStore{kv: newMemoryKV(), TTL: ttl}
}

func (s *MemoryQuizSessionStore) Get(ctx context.Context, userID, moduleID string) (*QuizSession, error) {
	data, ok := s.kv.get(quizKey(userID, moduleID))
	if !ok {
		return nil, util.ErrQuizSessionNotFound
	}
	var session QuizSession
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

func (s *MemoryQuizSessionStore) Save(ctx context.Context, session *QuizSession) error {
	data, err := json.Marshal(session)
	if err != nil {
		return err
	}
	s.kv.set(quizKey(session.UserID, session.ModuleID), data, s.TTL)
	return nil
}

func (s *MemoryQuizSessionStore) Delete(ctx context.Context, userID, moduleID string) error {
	s.kv.del(quizKey(userID, moduleID))
	return nil
}

type MemoryTokenRevoker struct {
	kv *memoryKV
}

func NewMemoryTokenRevoker() *MemoryTokenRevoker {
	return &MemoryTokenRevoker{kv: newMemoryKV()}
}

func (r *MemoryTokenRevoker) Revoke(ctx context.Context, tokenID string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	r.kv.set(revokedKey(tokenID), []byte("1"), ttl)
	return nil
}

func (r *MemoryTokenRevoker) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	_, ok := r.kv.get(revokedKey(tokenID))
	return ok, nil
}
