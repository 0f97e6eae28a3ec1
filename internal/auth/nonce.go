package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// NonceStore 登录 nonce，一次性且带过期时间
type NonceStore interface {
	Put(ctx context.Context, nonce string, ttl time.Duration) error
	// Consume 存在且未过期时删除并返回 true
	Consume(ctx context.Context, nonce string) (bool, error)
}

// ---------- 内存实现 ----------

type memNonceStore struct {
	mu     sync.Mutex
	nonces map[string]time.Time // nonce -> 过期时间
	now    func() time.Time
}

func NewMemoryNonceStore() NonceStore {
	return &memNonceStore{nonces: make(map[string]time.Time), now: time.Now}
}

func (m *memNonceStore) Put(ctx context.Context, nonce string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	// 顺手清理过期的
	for n, exp := range m.nonces {
		if now.After(exp) {
			delete(m.nonces, n)
		}
	}
	m.nonces[nonce] = now.Add(ttl)
	return nil
}

func (m *memNonceStore) Consume(ctx context.Context, nonce string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	exp, ok := m.nonces[nonce]
	if !ok {
		return false, nil
	}
	delete(m.nonces, nonce) // 只允许一次
	return !m.now().After(exp), nil
}

// ---------- Redis 实现 ----------

type redisNonceStore struct {
	rdb *redis.Client
}

func NewRedisNonceStore(rdb *redis.Client) NonceStore {
	return &redisNonceStore{rdb: rdb}
}

func nonceKey(nonce string) string {
	return fmt.Sprintf("auth:nonce:%s", nonce)
}

func (r *redisNonceStore) Put(ctx context.Context, nonce string, ttl time.Duration) error {
	return r.rdb.Set(ctx, nonceKey(nonce), 1, ttl).Err()
}

func (r *redisNonceStore) Consume(ctx context.Context, nonce string) (bool, error) {
	// DEL 原子，返回 1 说明是第一次使用
	n, err := r.rdb.Del(ctx, nonceKey(nonce)).Result()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func generateNonce() (string, error) {
	b := make([]byte, 16)
	_, err := rand.Read(b)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// GET|POST /auth/nonce
func (h *Handler) Nonce(c *gin.Context) {
	nonce, err := generateNonce()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to generate nonce"})
		return
	}

	// 防止重放
	if err := h.store.Put(c.Request.Context(), nonce, h.nonceTTL); err != nil {
		h.log.Error("store nonce failed", "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store nonce"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"nonce": nonce, "message": LoginMessage(nonce)})
}
