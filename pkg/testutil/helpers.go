package testutil

import (
	"crypto/rand"
	"encoding/hex"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Layr-Labs/eigenx-storage-audit/pkg/crypto"
	"github.com/Layr-Labs/eigenx-storage-audit/pkg/merkle"
	"github.com/Layr-Labs/eigenx-storage-audit/pkg/proof"
	"github.com/Layr-Labs/eigenx-storage-audit/pkg/types"
)

// AuditFixture is what an auditor prepares when a shard is handed to a holder:
// the shard itself, one secret challenge per leaf, the hex leaves given to the
// holder and the root the auditor keeps.
type AuditFixture struct {
	Suite      crypto.HashSuite
	ShardHash  string
	Shard      []byte
	Challenges [][]byte
	Leaves     []string
	Root       []byte
}

// RandomBytes returns n random bytes
func RandomBytes(n int) []byte {
	b := make([]byte, n)
	_, _ = rand.Read(b) // Ignore error in test helper
	return b
}

// ExpectedResponse computes H2(H1(challenge || shard)) in one shot
func ExpectedResponse(suite crypto.HashSuite, challenge, shard []byte) []byte {
	h := suite.NewH1()
	_, _ = h.Write(challenge)
	_, _ = h.Write(shard)
	return suite.H2(h.Sum(nil))
}

// NewAuditFixture creates a random shard of shardSize bytes and numChallenges
// committed challenges for it
func NewAuditFixture(t *testing.T, suite crypto.HashSuite, numChallenges, shardSize int) *AuditFixture {
	t.Helper()

	shard := RandomBytes(shardSize)
	shardHash := suite.H2(shard)

	f := &AuditFixture{
		Suite:     suite,
		ShardHash: hex.EncodeToString(shardHash),
		Shard:     shard,
	}

	raw := make([][]byte, numChallenges)
	for i := 0; i < numChallenges; i++ {
		challenge := RandomBytes(32)
		f.Challenges = append(f.Challenges, challenge)
		raw[i] = crypto.LeafHash(suite, ExpectedResponse(suite, challenge, shard))
		f.Leaves = append(f.Leaves, hex.EncodeToString(raw[i]))
	}

	tree, err := merkle.BuildPaddedMerkleTree(raw, suite)
	if err != nil {
		t.Fatalf("Failed to build commitment tree: %v", err)
	}
	f.Root = tree.Root()
	return f
}

// Commitment returns the commitment the holder stores for this fixture
func (f *AuditFixture) Commitment() *types.AuditCommitment {
	return &types.AuditCommitment{
		ShardHash: f.ShardHash,
		Leaves:    append([]string(nil), f.Leaves...),
		HashSuite: f.Suite.Name(),
		CreatedAt: time.Now().Unix(),
		Root:      hex.EncodeToString(f.Root),
	}
}

// ChallengeHex returns challenge i hex encoded
func (f *AuditFixture) ChallengeHex(i int) string {
	return hex.EncodeToString(f.Challenges[i])
}

// WriteShard stores the shard under dir using its shard hash as file name
func (f *AuditFixture) WriteShard(t *testing.T, dir string) string {
	t.Helper()

	path := filepath.Join(dir, f.ShardHash)
	if err := os.WriteFile(path, f.Shard, 0600); err != nil {
		t.Fatalf("Failed to write shard: %v", err)
	}
	return path
}

// ReduceProof folds a proof path into a root the way an auditor does
func ReduceProof(suite crypto.HashSuite, p *proof.Path) []byte {
	switch p.Kind() {
	case proof.KindResponse:
		return crypto.LeafHash(suite, p.Value())
	case proof.KindSibling:
		return p.Value()
	default:
		return crypto.PairHash(suite, ReduceProof(suite, p.Left()), ReduceProof(suite, p.Right()))
	}
}
