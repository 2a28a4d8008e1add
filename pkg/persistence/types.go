package persistence

import (
	"sort"
	"time"
)

// AuditRecord is the outcome of one audit answered by the holder.
// Records let an operator see which challenges were consumed and whether
// the shard still produced valid proofs.
type AuditRecord struct {
	// AuditID uniquely identifies the audit (uuid string)
	AuditID string `json:"auditId"`

	// ShardHash is the shard the audit was issued for
	ShardHash string `json:"shardHash"`

	// Challenge is the hex encoded challenge that was answered
	Challenge string `json:"challenge"`

	// LeafIndex is the matched leaf, or -1 when generation failed
	LeafIndex int `json:"leafIndex"`

	// BytesRead is the number of shard bytes streamed through the hasher
	BytesRead int64 `json:"bytesRead"`

	// Success reports whether a proof was produced
	Success bool `json:"success"`

	// Error holds the failure reason when Success is false
	Error string `json:"error,omitempty"`

	// Timestamp is the Unix time (nanoseconds) the audit completed
	Timestamp int64 `json:"timestamp"`
}

// IsExpired reports whether the record is older than the given retention period.
func (r *AuditRecord) IsExpired(retention time.Duration) bool {
	if r == nil {
		return true
	}
	return time.Since(time.Unix(0, r.Timestamp)) > retention
}

// SortAuditRecords orders records by timestamp, breaking ties by audit ID.
func SortAuditRecords(records []*AuditRecord) {
	sort.Slice(records, func(i, j int) bool {
		if records[i].Timestamp != records[j].Timestamp {
			return records[i].Timestamp < records[j].Timestamp
		}
		return records[i].AuditID < records[j].AuditID
	})
}
