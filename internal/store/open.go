package store

import (
	"context"
	"fmt"
	"time"

	"cybernews/internal/config"
)

// OpenHistory creates the history backend named in cfg.
func OpenHistory(ctx context.Context, cfg config.StorageConfig) (History, error) {
	switch cfg.History {
	case config.HistoryFile:
		return NewFileHistory(cfg.HistoryPath)
	case config.HistoryRedis:
		ttl := time.Duration(cfg.Redis.ReservationTTLSec) * time.Second

		return DialRedisHistory(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.KeyPrefix, ttl)
	case config.HistoryMemory, "":
		return NewMemoryHistory(), nil
	}

	return nil, fmt.Errorf("%w: unknown history backend %q", config.ErrConfiguration, cfg.History)
}

// OpenPending creates the pending store. Without a path the list lives in
// memory.
func OpenPending(cfg config.StorageConfig) (PendingStore, error) {
	if cfg.PendingPath == "" {
		return NewMemoryPending(), nil
	}

	return NewFilePending(cfg.PendingPath)
}

// OpenDigestState returns the digest watermark file, or nil when digests are
// not persisted.
func OpenDigestState(cfg config.StorageConfig) *DigestState {
	if cfg.DigestState == "" {
		return nil
	}

	return NewDigestState(cfg.DigestState)
}
