package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validHolderConfig() *HolderConfig {
	return &HolderConfig{
		Port:      DefaultPort,
		ShardDir:  "/var/lib/shards",
		HashSuite: "storj",
		ChunkSize: DefaultChunkSize,
		Persistence: PersistenceConfig{
			Type:     PersistenceTypeBadger,
			DataPath: DefaultDataPath,
		},
	}
}

func TestHolderConfig_Validate(t *testing.T) {
	testCases := []struct {
		name     string
		mutate   func(c *HolderConfig)
		wantErrs []string
	}{
		{
			name:   "Valid badger config",
			mutate: func(c *HolderConfig) {},
		},
		{
			name: "Valid memory config with default suite",
			mutate: func(c *HolderConfig) {
				c.HashSuite = ""
				c.Persistence = PersistenceConfig{Type: PersistenceTypeMemory}
			},
		},
		{
			name: "Valid redis config",
			mutate: func(c *HolderConfig) {
				c.Persistence = PersistenceConfig{Type: PersistenceTypeRedis, RedisAddress: "localhost:6379", RedisDB: 3}
			},
		},
		{
			name:     "Port out of range",
			mutate:   func(c *HolderConfig) { c.Port = 70000 },
			wantErrs: []string{"port"},
		},
		{
			name:     "Missing shard dir",
			mutate:   func(c *HolderConfig) { c.ShardDir = "" },
			wantErrs: []string{"shardDir"},
		},
		{
			name:     "Unknown hash suite",
			mutate:   func(c *HolderConfig) { c.HashSuite = "md5" },
			wantErrs: []string{"hashSuite", "storj"},
		},
		{
			name:     "Chunk size too large",
			mutate:   func(c *HolderConfig) { c.ChunkSize = MaxChunkSize + 1 },
			wantErrs: []string{"chunkSize"},
		},
		{
			name:     "Negative rate limit",
			mutate:   func(c *HolderConfig) { c.ReadRateLimit = -1 },
			wantErrs: []string{"readRateLimit"},
		},
		{
			name:     "Badger without data path",
			mutate:   func(c *HolderConfig) { c.Persistence.DataPath = "" },
			wantErrs: []string{"persistence.dataPath"},
		},
		{
			name: "Redis without address and bad db",
			mutate: func(c *HolderConfig) {
				c.Persistence = PersistenceConfig{Type: PersistenceTypeRedis, RedisDB: 16}
			},
			wantErrs: []string{"persistence.redisAddress", "persistence.redisDB"},
		},
		{
			name:     "Unknown persistence type",
			mutate:   func(c *HolderConfig) { c.Persistence.Type = "postgres" },
			wantErrs: []string{"persistence.type"},
		},
		{
			name: "All errors reported together",
			mutate: func(c *HolderConfig) {
				c.Port = 0
				c.ShardDir = ""
				c.Persistence.Type = ""
			},
			wantErrs: []string{"port", "shardDir", "persistence.type"},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validHolderConfig()
			tc.mutate(cfg)

			err := cfg.Validate()
			if len(tc.wantErrs) == 0 {
				assert.NoError(t, err)
				return
			}

			require.Error(t, err)
			for _, want := range tc.wantErrs {
				assert.Contains(t, err.Error(), want)
			}
		})
	}
}

func TestGetSupportedPersistenceTypesString(t *testing.T) {
	assert.Equal(t, "memory, badger, redis", GetSupportedPersistenceTypesString())
	assert.Len(t, GetSupportedPersistenceTypes(), 3)
}
