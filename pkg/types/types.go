package types

import (
	"github.com/Layr-Labs/eigenx-storage-audit/pkg/proof"
)

// AuditCommitment holds the leaves an auditor handed over when a shard was stored.
// The auditor keeps the matching root and one challenge per leaf.
type AuditCommitment struct {
	ShardHash string   `json:"shardHash"`
	Leaves    []string `json:"leaves"`         // Hex encoded bottom level, unpadded
	HashSuite string   `json:"hashSuite"`      // "storj" (default) or "keccak"
	CreatedAt int64    `json:"createdAt"`      // Unix seconds
	Root      string   `json:"root,omitempty"` // Hex root of the padded tree, informational
}

// ProveRequest asks the holder to answer a challenge for a stored shard
type ProveRequest struct {
	ShardHash string `json:"shardHash"`
	Challenge string `json:"challenge"` // Hex encoded, 0x prefix optional
}

// ProofResponse carries a generated proof back to the auditor
type ProofResponse struct {
	AuditID   string      `json:"auditId"`
	ShardHash string      `json:"shardHash"`
	Challenge string      `json:"challenge"`
	Proof     *proof.Path `json:"proof"`
}

// ErrorResponse is the body of every non-2xx response from the holder server
type ErrorResponse struct {
	Error string `json:"error"`
}
