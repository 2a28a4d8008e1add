package persistence

import (
	"encoding/json"
	"fmt"

	"github.com/Layr-Labs/eigenx-storage-audit/pkg/types"
)

// MarshalCommitment serializes an AuditCommitment to JSON bytes.
func MarshalCommitment(c *types.AuditCommitment) ([]byte, error) {
	if c == nil {
		return nil, fmt.Errorf("cannot marshal nil AuditCommitment")
	}

	data, err := json.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal AuditCommitment to JSON: %w", err)
	}

	return data, nil
}

// UnmarshalCommitment deserializes an AuditCommitment from JSON bytes.
func UnmarshalCommitment(data []byte) (*types.AuditCommitment, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("cannot unmarshal empty data")
	}

	var c types.AuditCommitment
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to unmarshal JSON to AuditCommitment: %w", err)
	}

	return &c, nil
}

// MarshalAuditRecord serializes an AuditRecord to JSON bytes.
func MarshalAuditRecord(r *AuditRecord) ([]byte, error) {
	if r == nil {
		return nil, fmt.Errorf("cannot marshal nil AuditRecord")
	}

	return json.Marshal(r)
}

// UnmarshalAuditRecord deserializes an AuditRecord from JSON bytes.
func UnmarshalAuditRecord(data []byte) (*AuditRecord, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("cannot unmarshal empty data")
	}

	var r AuditRecord
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("failed to unmarshal JSON to AuditRecord: %w", err)
	}

	return &r, nil
}

// CopyCommitment returns a deep copy of c
func CopyCommitment(c *types.AuditCommitment) *types.AuditCommitment {
	if c == nil {
		return nil
	}
	cp := *c
	if c.Leaves != nil {
		cp.Leaves = append([]string(nil), c.Leaves...)
	}
	return &cp
}

// ValidateCommitment checks the fields every backend requires before storing
func ValidateCommitment(c *types.AuditCommitment) error {
	if c == nil {
		return fmt.Errorf("cannot save nil AuditCommitment")
	}
	if c.ShardHash == "" {
		return fmt.Errorf("commitment shard hash cannot be empty")
	}
	if len(c.Leaves) == 0 {
		return fmt.Errorf("commitment for shard %s has no leaves", c.ShardHash)
	}
	return nil
}

// ValidateAuditRecord checks the fields every backend requires before storing
func ValidateAuditRecord(r *AuditRecord) error {
	if r == nil {
		return fmt.Errorf("cannot save nil AuditRecord")
	}
	if r.AuditID == "" {
		return fmt.Errorf("audit record ID cannot be empty")
	}
	if r.ShardHash == "" {
		return fmt.Errorf("audit record shard hash cannot be empty")
	}
	return nil
}
