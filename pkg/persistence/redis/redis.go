package redis

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/Layr-Labs/eigenx-storage-audit/pkg/persistence"
	"github.com/Layr-Labs/eigenx-storage-audit/pkg/types"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Key prefixes for namespacing in Redis
const (
	keyPrefixCommitment  = "audit:commitment:"
	keyPrefixRecords     = "audit:records:"
	keySchemaVersion     = "audit:metadata:schema_version"
	currentSchemaVersion = "v1"

	// Key set for listing operations (Redis doesn't support prefix iteration natively)
	keySetCommitments = "audit:commitments:index"
)

// RedisPersistence is a production-ready persistence implementation using Redis.
// Provides durable, distributed storage suitable for cloud-native deployments.
type RedisPersistence struct {
	client    *redis.Client
	logger    *zap.Logger
	keyPrefix string // Custom prefix for all keys
	mu        sync.RWMutex
	closed    bool
}

// RedisConfig holds the configuration for connecting to Redis
type RedisConfig struct {
	// Address is the Redis server address (host:port)
	Address string
	// Password is the optional Redis password
	Password string
	// DB is the Redis database number (0-15)
	DB int
	// KeyPrefix is an optional custom prefix for all keys (for multi-tenant setups).
	// If set, this prefix is prepended to all keys, e.g., "holder1:" would result in
	// keys like "holder1:audit:commitment:ab12".
	KeyPrefix string
}

// NewRedisPersistence creates a new Redis-backed persistence layer.
func NewRedisPersistence(cfg *RedisConfig, logger *zap.Logger) (*RedisPersistence, error) {
	if cfg == nil {
		return nil, fmt.Errorf("redis config cannot be nil")
	}

	if cfg.Address == "" {
		return nil, fmt.Errorf("redis address cannot be empty")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", cfg.Address, err)
	}

	rp := &RedisPersistence{
		client:    client,
		logger:    logger,
		keyPrefix: cfg.KeyPrefix,
	}

	if err := rp.initSchema(ctx); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	if cfg.KeyPrefix != "" {
		logger.Sugar().Infow("Redis persistence initialized", "address", cfg.Address, "db", cfg.DB, "key_prefix", cfg.KeyPrefix)
	} else {
		logger.Sugar().Infow("Redis persistence initialized", "address", cfg.Address, "db", cfg.DB)
	}

	return rp, nil
}

// prefixKey adds the custom key prefix (if configured) to a key
func (r *RedisPersistence) prefixKey(key string) string {
	if r.keyPrefix == "" {
		return key
	}
	return r.keyPrefix + key
}

// initSchema initializes or validates the schema version
func (r *RedisPersistence) initSchema(ctx context.Context) error {
	schemaKey := r.prefixKey(keySchemaVersion)

	existingVersion, err := r.client.Get(ctx, schemaKey).Result()
	if err == redis.Nil {
		return r.client.Set(ctx, schemaKey, currentSchemaVersion, 0).Err()
	}
	if err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}

	if existingVersion != currentSchemaVersion {
		return fmt.Errorf("unsupported schema version: %s (expected: %s)", existingVersion, currentSchemaVersion)
	}

	return nil
}

// SaveCommitment persists a commitment
func (r *RedisPersistence) SaveCommitment(commitment *types.AuditCommitment) error {
	if err := persistence.ValidateCommitment(commitment); err != nil {
		return err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return fmt.Errorf("persistence layer is closed")
	}

	ctx := context.Background()

	data, err := persistence.MarshalCommitment(commitment)
	if err != nil {
		return fmt.Errorf("failed to marshal AuditCommitment: %w", err)
	}

	pipe := r.client.TxPipeline()
	pipe.Set(ctx, r.prefixKey(keyPrefixCommitment+commitment.ShardHash), data, 0)
	pipe.SAdd(ctx, r.prefixKey(keySetCommitments), commitment.ShardHash)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save AuditCommitment: %w", err)
	}

	return nil
}

// LoadCommitment retrieves a commitment by shard hash
func (r *RedisPersistence) LoadCommitment(shardHash string) (*types.AuditCommitment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return nil, fmt.Errorf("persistence layer is closed")
	}

	ctx := context.Background()

	data, err := r.client.Get(ctx, r.prefixKey(keyPrefixCommitment+shardHash)).Bytes()
	if err == redis.Nil {
		return nil, nil // Not found is not an error
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load AuditCommitment: %w", err)
	}

	commitment, err := persistence.UnmarshalCommitment(data)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal AuditCommitment: %w", err)
	}

	return commitment, nil
}

// ListCommitments returns all commitments sorted by shard hash
func (r *RedisPersistence) ListCommitments() ([]*types.AuditCommitment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return nil, fmt.Errorf("persistence layer is closed")
	}

	ctx := context.Background()
	indexKey := r.prefixKey(keySetCommitments)

	shardHashes, err := r.client.SMembers(ctx, indexKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list AuditCommitment shard hashes: %w", err)
	}

	if len(shardHashes) == 0 {
		return []*types.AuditCommitment{}, nil
	}

	keys := make([]string, len(shardHashes))
	for i, shardHash := range shardHashes {
		keys[i] = r.prefixKey(keyPrefixCommitment + shardHash)
	}

	values, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to fetch AuditCommitments: %w", err)
	}

	commitments := make([]*types.AuditCommitment, 0, len(values))
	for i, val := range values {
		if val == nil {
			// Key was in index but doesn't exist - clean up index
			r.client.SRem(ctx, indexKey, shardHashes[i])
			continue
		}

		data, ok := val.(string)
		if !ok {
			r.logger.Sugar().Warnw("Unexpected value type for AuditCommitment", "key", keys[i])
			continue
		}

		commitment, err := persistence.UnmarshalCommitment([]byte(data))
		if err != nil {
			r.logger.Sugar().Warnw("Failed to unmarshal AuditCommitment, skipping",
				"key", keys[i], "error", err)
			continue
		}

		commitments = append(commitments, commitment)
	}

	sort.Slice(commitments, func(i, j int) bool {
		return commitments[i].ShardHash < commitments[j].ShardHash
	})

	return commitments, nil
}

// DeleteCommitment removes a commitment and its audit history
func (r *RedisPersistence) DeleteCommitment(shardHash string) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return fmt.Errorf("persistence layer is closed")
	}

	ctx := context.Background()

	pipe := r.client.TxPipeline()
	pipe.Del(ctx, r.prefixKey(keyPrefixCommitment+shardHash), r.prefixKey(keyPrefixRecords+shardHash))
	pipe.SRem(ctx, r.prefixKey(keySetCommitments), shardHash)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to delete AuditCommitment: %w", err)
	}

	return nil
}

// SaveAuditRecord persists the outcome of an audit in the shard's record hash
func (r *RedisPersistence) SaveAuditRecord(record *persistence.AuditRecord) error {
	if err := persistence.ValidateAuditRecord(record); err != nil {
		return err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return fmt.Errorf("persistence layer is closed")
	}

	ctx := context.Background()

	data, err := persistence.MarshalAuditRecord(record)
	if err != nil {
		return fmt.Errorf("failed to marshal AuditRecord: %w", err)
	}

	if err := r.client.HSet(ctx, r.prefixKey(keyPrefixRecords+record.ShardHash), record.AuditID, data).Err(); err != nil {
		return fmt.Errorf("failed to save AuditRecord: %w", err)
	}

	return nil
}

// ListAuditRecords returns the audit history of a shard sorted by timestamp
func (r *RedisPersistence) ListAuditRecords(shardHash string) ([]*persistence.AuditRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return nil, fmt.Errorf("persistence layer is closed")
	}

	ctx := context.Background()
	key := r.prefixKey(keyPrefixRecords + shardHash)

	values, err := r.client.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list AuditRecords: %w", err)
	}

	records := make([]*persistence.AuditRecord, 0, len(values))
	for auditID, data := range values {
		record, err := persistence.UnmarshalAuditRecord([]byte(data))
		if err != nil {
			r.logger.Sugar().Warnw("Failed to unmarshal AuditRecord, skipping",
				"key", key, "audit_id", auditID, "error", err)
			continue
		}
		records = append(records, record)
	}

	persistence.SortAuditRecords(records)
	return records, nil
}

// Close shuts down the persistence layer
func (r *RedisPersistence) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil // Already closed, idempotent
	}
	r.closed = true
	r.mu.Unlock()

	if err := r.client.Close(); err != nil {
		return fmt.Errorf("failed to close Redis client: %w", err)
	}

	r.logger.Sugar().Info("Redis persistence closed")
	return nil
}

// HealthCheck verifies the persistence layer is operational
func (r *RedisPersistence) HealthCheck() error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return fmt.Errorf("persistence layer is closed")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis health check failed: %w", err)
	}

	_, err := r.client.Get(ctx, r.prefixKey(keySchemaVersion)).Result()
	if err == redis.Nil {
		return fmt.Errorf("schema version not found - database may not be properly initialized")
	}
	if err != nil {
		return fmt.Errorf("failed to verify schema version: %w", err)
	}

	return nil
}
