package persistence

import "github.com/Layr-Labs/eigenx-storage-audit/pkg/types"

// ICommitmentPersistence defines the interface for persisting audit commitments
// and the history of answered audits. All implementations must be thread-safe
// as the holder server answers audits concurrently.
type ICommitmentPersistence interface {
	// Commitment Management

	// SaveCommitment persists the audit leaves for a shard, keyed by shard hash.
	// Overwrites any existing commitment for the same shard.
	SaveCommitment(commitment *types.AuditCommitment) error

	// LoadCommitment retrieves the commitment for a shard.
	// Returns nil if it doesn't exist, error only on storage failure.
	LoadCommitment(shardHash string) (*types.AuditCommitment, error)

	// ListCommitments returns all commitments sorted by shard hash (ascending).
	// Returns empty slice if none exist, error only on storage failure.
	ListCommitments() ([]*types.AuditCommitment, error)

	// DeleteCommitment removes a commitment and its audit history.
	// Idempotent - returns nil if the commitment doesn't exist.
	DeleteCommitment(shardHash string) error

	// Audit History

	// SaveAuditRecord appends the outcome of an answered audit.
	// Records are keyed by AuditID; saving the same ID twice overwrites.
	SaveAuditRecord(record *AuditRecord) error

	// ListAuditRecords returns the audit history of a shard sorted by timestamp (ascending).
	// Returns empty slice if there is none.
	ListAuditRecords(shardHash string) ([]*AuditRecord, error)

	// Lifecycle Management

	// Close cleanly shuts down the persistence layer.
	// Idempotent - safe to call multiple times.
	// After Close(), all other operations should return errors.
	Close() error

	// HealthCheck verifies the persistence layer is operational.
	// Returns nil if healthy, error describing the problem if not.
	HealthCheck() error
}
