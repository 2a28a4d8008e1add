package memory

import (
	"fmt"
	"sort"
	"sync"

	"github.com/Layr-Labs/eigenx-storage-audit/pkg/persistence"
	"github.com/Layr-Labs/eigenx-storage-audit/pkg/types"
)

// MemoryPersistence is an in-memory implementation of ICommitmentPersistence.
// This implementation is intended for TESTING ONLY.
//
// All data is stored in memory and will be lost when the process exits.
// Thread-safe using sync.RWMutex for concurrent access.
// Deep copies data to prevent external mutation.
type MemoryPersistence struct {
	mu sync.RWMutex

	// Commitment storage: shardHash -> AuditCommitment
	commitments map[string]*types.AuditCommitment

	// Audit history: shardHash -> auditID -> AuditRecord
	records map[string]map[string]*persistence.AuditRecord

	// Closed flag
	closed bool
}

// NewMemoryPersistence creates a new in-memory persistence layer.
// Prints a loud warning since this should only be used for testing.
func NewMemoryPersistence() *MemoryPersistence {
	fmt.Println("⚠️  WARNING: Using in-memory persistence - ALL COMMITMENTS WILL BE LOST ON RESTART")
	fmt.Println("⚠️  This should ONLY be used for testing. Set AUDIT_PERSISTENCE_TYPE=badger for production")

	return &MemoryPersistence{
		commitments: make(map[string]*types.AuditCommitment),
		records:     make(map[string]map[string]*persistence.AuditRecord),
	}
}

// SaveCommitment persists a commitment.
func (m *MemoryPersistence) SaveCommitment(commitment *types.AuditCommitment) error {
	if err := persistence.ValidateCommitment(commitment); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return fmt.Errorf("persistence layer is closed")
	}

	// Deep copy to prevent external mutation
	m.commitments[commitment.ShardHash] = persistence.CopyCommitment(commitment)

	return nil
}

// LoadCommitment retrieves a commitment by shard hash.
func (m *MemoryPersistence) LoadCommitment(shardHash string) (*types.AuditCommitment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, fmt.Errorf("persistence layer is closed")
	}

	commitment, exists := m.commitments[shardHash]
	if !exists {
		return nil, nil // Not found is not an error
	}

	return persistence.CopyCommitment(commitment), nil
}

// ListCommitments returns all commitments sorted by shard hash.
func (m *MemoryPersistence) ListCommitments() ([]*types.AuditCommitment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, fmt.Errorf("persistence layer is closed")
	}

	shardHashes := make([]string, 0, len(m.commitments))
	for shardHash := range m.commitments {
		shardHashes = append(shardHashes, shardHash)
	}
	sort.Strings(shardHashes)

	result := make([]*types.AuditCommitment, 0, len(shardHashes))
	for _, shardHash := range shardHashes {
		result = append(result, persistence.CopyCommitment(m.commitments[shardHash]))
	}

	return result, nil
}

// DeleteCommitment removes a commitment and its audit history.
func (m *MemoryPersistence) DeleteCommitment(shardHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return fmt.Errorf("persistence layer is closed")
	}

	delete(m.commitments, shardHash)
	delete(m.records, shardHash)
	return nil
}

// SaveAuditRecord persists the outcome of an audit.
func (m *MemoryPersistence) SaveAuditRecord(record *persistence.AuditRecord) error {
	if err := persistence.ValidateAuditRecord(record); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return fmt.Errorf("persistence layer is closed")
	}

	byID, ok := m.records[record.ShardHash]
	if !ok {
		byID = make(map[string]*persistence.AuditRecord)
		m.records[record.ShardHash] = byID
	}
	recordCopy := *record
	byID[record.AuditID] = &recordCopy

	return nil
}

// ListAuditRecords returns the audit history of a shard sorted by timestamp.
func (m *MemoryPersistence) ListAuditRecords(shardHash string) ([]*persistence.AuditRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, fmt.Errorf("persistence layer is closed")
	}

	result := make([]*persistence.AuditRecord, 0, len(m.records[shardHash]))
	for _, record := range m.records[shardHash] {
		recordCopy := *record
		result = append(result, &recordCopy)
	}
	persistence.SortAuditRecords(result)

	return result, nil
}

// Close shuts down the persistence layer.
func (m *MemoryPersistence) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true
	return nil
}

// HealthCheck verifies the persistence layer is operational.
func (m *MemoryPersistence) HealthCheck() error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return fmt.Errorf("persistence layer is closed")
	}

	return nil
}
