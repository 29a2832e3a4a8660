package nearrpc

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	viewCacheKeyPrefix = "sputnikscope:view:"
	defaultCacheTTL    = 24 * time.Hour
)

// Viewer runs contract view methods.
type Viewer interface {
	CallFunction(ctx context.Context, account, method string, args interface{}, blockHeight uint64) ([]byte, error)
}

// CacheConfig selects the cache backend. An empty Addr keeps results in memory.
type CacheConfig struct {
	Addr string
	TTL  time.Duration
}

// CachedViewer memoizes view results pinned to a block height. Results at
// final are never cached.
type CachedViewer struct {
	next   Viewer
	cache  *redis.Client
	ttl    time.Duration
	logger *zap.Logger

	mu    sync.RWMutex
	local map[string][]byte
}

func NewCachedViewer(next Viewer, cfg CacheConfig, logger *zap.Logger) (*CachedViewer, error) {
	if next == nil {
		return nil, errors.New("viewer is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	viewer := &CachedViewer{next: next, logger: logger, local: make(map[string][]byte)}
	if strings.TrimSpace(cfg.Addr) == "" {
		return viewer, nil
	}
	if cfg.TTL <= 0 {
		cfg.TTL = defaultCacheTTL
	}
	client := redis.NewClient(&redis.Options{Addr: cfg.Addr})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	viewer.cache = client
	viewer.ttl = cfg.TTL
	return viewer, nil
}

func (v *CachedViewer) Close() error {
	if v.cache == nil {
		return nil
	}
	return v.cache.Close()
}

func (v *CachedViewer) CallFunction(ctx context.Context, account, method string, args interface{}, blockHeight uint64) ([]byte, error) {
	if blockHeight == 0 {
		return v.next.CallFunction(ctx, account, method, args, blockHeight)
	}
	key, err := viewCacheKey(account, method, args, blockHeight)
	if err != nil {
		return v.next.CallFunction(ctx, account, method, args, blockHeight)
	}

	if cached, ok := v.get(ctx, key); ok {
		return cached, nil
	}

	result, err := v.next.CallFunction(ctx, account, method, args, blockHeight)
	if err != nil {
		return nil, err
	}
	v.set(ctx, key, result)
	return result, nil
}

func (v *CachedViewer) get(ctx context.Context, key string) ([]byte, bool) {
	if v.cache != nil {
		cached, err := v.cache.Get(ctx, key).Bytes()
		if err == nil {
			return cached, true
		}
		if !errors.Is(err, redis.Nil) {
			v.logger.Warn("view cache read failed", zap.String("key", key), zap.Error(err))
		}
		return nil, false
	}
	v.mu.RLock()
	cached, ok := v.local[key]
	v.mu.RUnlock()
	return cached, ok
}

func (v *CachedViewer) set(ctx context.Context, key string, value []byte) {
	if v.cache != nil {
		if err := v.cache.Set(ctx, key, value, v.ttl).Err(); err != nil {
			v.logger.Warn("view cache write failed", zap.String("key", key), zap.Error(err))
		}
		return
	}
	v.mu.Lock()
	v.local[key] = value
	v.mu.Unlock()
}

func viewCacheKey(account, method string, args interface{}, blockHeight uint64) (string, error) {
	argsJSON, err := json.Marshal(args)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(argsJSON)

	var b strings.Builder
	b.Grow(128)
	b.WriteString(viewCacheKeyPrefix)
	b.WriteString(account)
	b.WriteString(":")
	b.WriteString(method)
	b.WriteString(":")
	b.WriteString(strconv.FormatUint(blockHeight, 10))
	b.WriteString(":")
	b.WriteString(hex.EncodeToString(sum[:8]))
	return b.String(), nil
}
