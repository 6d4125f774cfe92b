package store

import (
	"woo-sync/internal/types"

	"github.com/sirupsen/logrus"
)

// NewStore creates a Redis-backed store when REDIS_DSN is configured,
// otherwise falls back to the in-memory store.
func NewStore(configManager types.ConfigManager) (Store, error) {
	redisDSN := configManager.GetRedisDSN()

	if redisDSN == "" {
		logrus.Info("Using in-memory store")
		return NewMemoryStore(), nil
	}

	logrus.Info("Using Redis store")
	return NewRedisStore(redisDSN)
}
