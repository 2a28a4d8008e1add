package config

import (
	"fmt"
	"strings"

	"github.com/Layr-Labs/eigenx-storage-audit/pkg/crypto"
	"k8s.io/apimachinery/pkg/util/validation/field"
)

// Environment variable names for holder configuration
const (
	EnvAuditPort            = "AUDIT_PORT"
	EnvAuditPersistenceType = "AUDIT_PERSISTENCE_TYPE"
	EnvAuditDataPath        = "AUDIT_DATA_PATH"
	EnvAuditRedisAddress    = "AUDIT_REDIS_ADDRESS"
	EnvAuditRedisPassword   = "AUDIT_REDIS_PASSWORD"
	EnvAuditRedisDB         = "AUDIT_REDIS_DB"
	EnvAuditRedisKeyPrefix  = "AUDIT_REDIS_KEY_PREFIX"
	EnvAuditShardDir        = "AUDIT_SHARD_DIR"
	EnvAuditHashSuite       = "AUDIT_HASH_SUITE"
	EnvAuditChunkSize       = "AUDIT_CHUNK_SIZE"
	EnvAuditReadRateLimit   = "AUDIT_READ_RATE_LIMIT"
	EnvAuditVerbose         = "AUDIT_VERBOSE"
)

// Defaults applied by the CLI when a flag is not set
const (
	DefaultPort      = 8100
	DefaultDataPath  = "./audit-data"
	DefaultChunkSize = 64 * 1024

	// MaxChunkSize bounds the read buffer allocated per audit
	MaxChunkSize = 16 * 1024 * 1024
)

type PersistenceType string

func (p PersistenceType) String() string {
	return string(p)
}

const (
	PersistenceTypeMemory PersistenceType = "memory"
	PersistenceTypeBadger PersistenceType = "badger"
	PersistenceTypeRedis  PersistenceType = "redis"
)

// GetSupportedPersistenceTypes returns all supported backends
func GetSupportedPersistenceTypes() []PersistenceType {
	return []PersistenceType{
		PersistenceTypeMemory,
		PersistenceTypeBadger,
		PersistenceTypeRedis,
	}
}

// GetSupportedPersistenceTypesString returns supported backends for CLI help
func GetSupportedPersistenceTypesString() string {
	names := make([]string, 0, 3)
	for _, p := range GetSupportedPersistenceTypes() {
		names = append(names, p.String())
	}
	return strings.Join(names, ", ")
}

// PersistenceConfig selects and configures the commitment store
type PersistenceConfig struct {
	Type PersistenceType `json:"type"`

	// Badger
	DataPath string `json:"data_path"`

	// Redis
	RedisAddress   string `json:"redis_address"`
	RedisPassword  string `json:"redis_password"`
	RedisDB        int    `json:"redis_db"`
	RedisKeyPrefix string `json:"redis_key_prefix"`
}

// Validate checks the persistence settings, reporting every problem under path
func (pc *PersistenceConfig) Validate(path *field.Path) field.ErrorList {
	var allErrors field.ErrorList

	switch pc.Type {
	case PersistenceTypeMemory:
	case PersistenceTypeBadger:
		if pc.DataPath == "" {
			allErrors = append(allErrors, field.Required(path.Child("dataPath"), "dataPath is required for badger persistence"))
		}
	case PersistenceTypeRedis:
		if pc.RedisAddress == "" {
			allErrors = append(allErrors, field.Required(path.Child("redisAddress"), "redisAddress is required for redis persistence"))
		}
		if pc.RedisDB < 0 || pc.RedisDB > 15 {
			allErrors = append(allErrors, field.Invalid(path.Child("redisDB"), pc.RedisDB, "must be between 0-15"))
		}
	default:
		allErrors = append(allErrors, field.NotSupported(path.Child("type"), pc.Type, []string{
			PersistenceTypeMemory.String(),
			PersistenceTypeBadger.String(),
			PersistenceTypeRedis.String(),
		}))
	}

	return allErrors
}

// HolderConfig represents the complete configuration for a holder server
type HolderConfig struct {
	Port int `json:"port"`

	// Where shard files live, one file per shard named by its hash
	ShardDir string `json:"shard_dir"`

	// Hash suite used for commitments that don't name one
	HashSuite string `json:"hash_suite"`

	// Streaming settings
	ChunkSize     int `json:"chunk_size"`      // Bytes per read from the shard
	ReadRateLimit int `json:"read_rate_limit"` // Shard bytes per second, 0 = unlimited

	Persistence PersistenceConfig `json:"persistence"`

	// Operational settings
	Debug   bool `json:"debug"`
	Verbose bool `json:"verbose"`
}

// Validate validates the holder configuration
func (c *HolderConfig) Validate() error {
	var allErrors field.ErrorList

	if c.Port < 1 || c.Port > 65535 {
		allErrors = append(allErrors, field.Invalid(field.NewPath("port"), c.Port, "must be between 1-65535"))
	}
	if c.ShardDir == "" {
		allErrors = append(allErrors, field.Required(field.NewPath("shardDir"), "shardDir is required"))
	}
	if _, err := crypto.GetHashSuite(c.HashSuite); err != nil {
		allErrors = append(allErrors, field.NotSupported(field.NewPath("hashSuite"), c.HashSuite, crypto.GetSupportedHashSuites()))
	}
	if c.ChunkSize < 0 || c.ChunkSize > MaxChunkSize {
		allErrors = append(allErrors, field.Invalid(field.NewPath("chunkSize"), c.ChunkSize, fmt.Sprintf("must be between 0-%d", MaxChunkSize)))
	}
	if c.ReadRateLimit < 0 {
		allErrors = append(allErrors, field.Invalid(field.NewPath("readRateLimit"), c.ReadRateLimit, "cannot be negative"))
	}

	allErrors = append(allErrors, c.Persistence.Validate(field.NewPath("persistence"))...)

	if len(allErrors) > 0 {
		return allErrors.ToAggregate()
	}
	return nil
}
