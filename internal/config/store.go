package config

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"path/filepath"

	"github.com/aretw0/logicbridge/internal/adapters/file"
	"github.com/aretw0/logicbridge/internal/adapters/memory"
	"github.com/aretw0/logicbridge/internal/adapters/redis"
	"github.com/aretw0/logicbridge/internal/adapters/sqlite"
	"github.com/aretw0/logicbridge/pkg/persistence/middleware"
	"github.com/aretw0/logicbridge/pkg/ports"
)

// OpenStore builds the configured program store and, for redis, a locker on the same client.
// The returned closer releases connections and is never nil.
func (c StoreConfig) OpenStore(ctx context.Context) (ports.ProgramStore, ports.DistributedLocker, io.Closer, error) {
	store, locker, closer, err := c.openBackend(ctx)
	if err != nil || c.EncryptionKey == "" {
		return store, locker, closer, err
	}
	mw, err := c.encryption()
	if err != nil {
		_ = closer.Close()
		return nil, nil, nil, err
	}
	return mw(store), locker, closer, nil
}

func (c StoreConfig) encryption() (middleware.Middleware, error) {
	cfg := middleware.EncryptionConfig{}
	var err error
	if cfg.ActiveKey, err = base64.StdEncoding.DecodeString(c.EncryptionKey); err != nil {
		return nil, fmt.Errorf("invalid store.encryption_key: %w", err)
	}
	for i, k := range c.FallbackKeys {
		key, err := base64.StdEncoding.DecodeString(k)
		if err != nil {
			return nil, fmt.Errorf("invalid store.fallback_keys[%d]: %w", i, err)
		}
		cfg.FallbackKeys = append(cfg.FallbackKeys, key)
	}
	return middleware.NewEncryptionMiddleware(cfg)
}

func (c StoreConfig) openBackend(ctx context.Context) (ports.ProgramStore, ports.DistributedLocker, io.Closer, error) {
	switch c.Kind {
	case "", "memory":
		return memory.New(), nil, nopCloser{}, nil
	case "file":
		return file.New(c.Path), nil, nopCloser{}, nil
	case "sqlite":
		path := c.Path
		if path == "" {
			path = filepath.Join(".logicbridge", "programs.db")
		}
		store, err := sqlite.Open(ctx, path)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("failed to open sqlite store: %w", err)
		}
		return store, nil, store, nil
	case "redis":
		var opts []redis.Option
		if c.Prefix != "" {
			opts = append(opts, redis.WithPrefix(c.Prefix))
		}
		if c.TTL > 0 {
			opts = append(opts, redis.WithTTL(c.TTL))
		}
		store := redis.New(c.Addr, c.Password, c.DB, opts...)
		prefix := c.Prefix
		if prefix == "" {
			prefix = redis.DefaultPrefix
		}
		return store, redis.NewLocker(store.Client(), prefix), store, nil
	}
	return nil, nil, nil, fmt.Errorf("unknown store kind %q", c.Kind)
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
