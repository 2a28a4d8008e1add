package factory

import (
	"fmt"

	"github.com/Layr-Labs/eigenx-storage-audit/pkg/config"
	"github.com/Layr-Labs/eigenx-storage-audit/pkg/persistence"
	"github.com/Layr-Labs/eigenx-storage-audit/pkg/persistence/badger"
	"github.com/Layr-Labs/eigenx-storage-audit/pkg/persistence/memory"
	"github.com/Layr-Labs/eigenx-storage-audit/pkg/persistence/redis"
	"go.uber.org/zap"
)

// NewPersistence opens the commitment store selected by cfg
func NewPersistence(cfg *config.PersistenceConfig, logger *zap.Logger) (persistence.ICommitmentPersistence, error) {
	if cfg == nil {
		return nil, fmt.Errorf("persistence config cannot be nil")
	}

	switch cfg.Type {
	case config.PersistenceTypeMemory:
		return memory.NewMemoryPersistence(), nil
	case config.PersistenceTypeBadger:
		bp, err := badger.NewBadgerPersistence(cfg.DataPath, logger)
		if err != nil {
			return nil, err
		}
		return bp, nil
	case config.PersistenceTypeRedis:
		rp, err := redis.NewRedisPersistence(&redis.RedisConfig{
			Address:   cfg.RedisAddress,
			Password:  cfg.RedisPassword,
			DB:        cfg.RedisDB,
			KeyPrefix: cfg.RedisKeyPrefix,
		}, logger)
		if err != nil {
			return nil, err
		}
		return rp, nil
	default:
		return nil, fmt.Errorf("unsupported persistence type: %s (supported: %s)", cfg.Type, config.GetSupportedPersistenceTypesString())
	}
}
