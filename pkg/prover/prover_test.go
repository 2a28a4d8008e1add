package prover

import (
	"bytes"
	"context"
	"encoding/hex"
	"testing"
	"time"

	"github.com/Layr-Labs/eigenx-storage-audit/pkg/crypto"
	"github.com/Layr-Labs/eigenx-storage-audit/pkg/logger"
	"github.com/Layr-Labs/eigenx-storage-audit/pkg/merkle"
	"github.com/Layr-Labs/eigenx-storage-audit/pkg/persistence/memory"
	"github.com/Layr-Labs/eigenx-storage-audit/pkg/proofStream"
	"github.com/Layr-Labs/eigenx-storage-audit/pkg/shards"
	"github.com/Layr-Labs/eigenx-storage-audit/pkg/testutil"
	"github.com/Layr-Labs/eigenx-storage-audit/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type proverHarness struct {
	prover *Prover
	store  *memory.MemoryPersistence
	shards *shards.FileShardStore
	dir    string
}

func newProverHarness(t *testing.T, cfg *Config) *proverHarness {
	t.Helper()
	testLogger, _ := logger.NewLogger(&logger.LoggerConfig{Debug: false})

	store := memory.NewMemoryPersistence()
	t.Cleanup(func() { _ = store.Close() })

	dir := t.TempDir()
	shardStore, err := shards.NewFileShardStore(dir, testLogger)
	require.NoError(t, err)

	p, err := NewProver(cfg, store, shardStore, testLogger)
	require.NoError(t, err)

	return &proverHarness{prover: p, store: store, shards: shardStore, dir: dir}
}

// addShard stores a fixture's shard and registers its commitment
func (h *proverHarness) addShard(t *testing.T, f *testutil.AuditFixture) {
	t.Helper()
	f.WriteShard(t, h.dir)
	_, err := h.prover.RegisterCommitment(f.Commitment())
	require.NoError(t, err)
}

func TestNewProver(t *testing.T) {
	t.Run("Defaults", func(t *testing.T) {
		p, err := NewProver(nil, nil, nil, nil)
		require.NoError(t, err)
		assert.Equal(t, proofStream.DefaultChunkSize, p.chunkSize)
		assert.Equal(t, crypto.SuiteStorj, p.defaultSuite.Name())
		assert.Nil(t, p.limiter)
	})

	t.Run("Unknown suite", func(t *testing.T) {
		_, err := NewProver(&Config{HashSuite: "sha1"}, nil, nil, nil)
		require.Error(t, err)
	})

	t.Run("Oversized chunk", func(t *testing.T) {
		_, err := NewProver(&Config{ChunkSize: 1 << 30}, nil, nil, nil)
		require.Error(t, err)
	})

	t.Run("Rate limited", func(t *testing.T) {
		p, err := NewProver(&Config{ChunkSize: 1024, ReadRateLimit: 4096}, nil, nil, nil)
		require.NoError(t, err)
		require.NotNil(t, p.limiter)
		assert.Equal(t, 1024, p.limiter.Burst())
	})
}

func TestProver_Prove(t *testing.T) {
	for _, suite := range []crypto.HashSuite{crypto.StorjSuite(), crypto.KeccakSuite()} {
		t.Run(suite.Name(), func(t *testing.T) {
			h := newProverHarness(t, &Config{ChunkSize: 512})
			f := testutil.NewAuditFixture(t, suite, 5, 5000)
			h.addShard(t, f)

			for i := range f.Challenges {
				resp, err := h.prover.Prove(context.Background(), f.ShardHash, f.ChallengeHex(i))
				require.NoError(t, err)

				assert.NotEmpty(t, resp.AuditID)
				assert.Equal(t, f.ShardHash, resp.ShardHash)
				assert.Equal(t, f.ChallengeHex(i), resp.Challenge)
				assert.Equal(t, f.Root, testutil.ReduceProof(suite, resp.Proof))
				assert.Equal(t, testutil.ExpectedResponse(suite, f.Challenges[i], f.Shard), resp.Proof.Response())
			}

			history, err := h.prover.AuditHistory(f.ShardHash)
			require.NoError(t, err)
			require.Len(t, history, len(f.Challenges))
			for _, record := range history {
				assert.True(t, record.Success)
				assert.Equal(t, int64(len(f.Shard)), record.BytesRead)
			}
		})
	}
}

func TestProver_Prove_PrefixedChallenge(t *testing.T) {
	h := newProverHarness(t, nil)
	f := testutil.NewAuditFixture(t, crypto.StorjSuite(), 2, 100)
	h.addShard(t, f)

	resp, err := h.prover.Prove(context.Background(), f.ShardHash, "0x"+f.ChallengeHex(1))
	require.NoError(t, err)
	assert.Equal(t, f.ChallengeHex(1), resp.Challenge)
}

func TestProver_Prove_Errors(t *testing.T) {
	h := newProverHarness(t, nil)
	f := testutil.NewAuditFixture(t, crypto.StorjSuite(), 3, 256)
	h.addShard(t, f)

	t.Run("Unknown commitment", func(t *testing.T) {
		_, err := h.prover.Prove(context.Background(), "abcdef", f.ChallengeHex(0))
		assert.ErrorIs(t, err, ErrCommitmentNotFound)
	})

	t.Run("Invalid shard hash", func(t *testing.T) {
		_, err := h.prover.Prove(context.Background(), "../x", f.ChallengeHex(0))
		assert.ErrorIs(t, err, proofStream.ErrInvalidInput)
		assert.ErrorIs(t, err, shards.ErrInvalidShardHash)
	})

	t.Run("Empty challenge", func(t *testing.T) {
		_, err := h.prover.Prove(context.Background(), f.ShardHash, "")
		assert.ErrorIs(t, err, proofStream.ErrInvalidInput)
	})

	t.Run("Bad challenge hex", func(t *testing.T) {
		_, err := h.prover.Prove(context.Background(), f.ShardHash, "zz")
		assert.ErrorIs(t, err, proofStream.ErrInvalidInput)
	})

	t.Run("Unknown challenge", func(t *testing.T) {
		_, err := h.prover.Prove(context.Background(), f.ShardHash, hex.EncodeToString(testutil.RandomBytes(32)))
		assert.ErrorIs(t, err, proofStream.ErrProofGenerationFailed)
		assert.ErrorIs(t, err, merkle.ErrLeafNotFound)

		history, err := h.prover.AuditHistory(f.ShardHash)
		require.NoError(t, err)
		require.NotEmpty(t, history)
		last := history[len(history)-1]
		assert.False(t, last.Success)
		assert.Equal(t, -1, last.LeafIndex)
		assert.NotEmpty(t, last.Error)
	})

	t.Run("Shard missing on disk", func(t *testing.T) {
		other := testutil.NewAuditFixture(t, crypto.StorjSuite(), 2, 64)
		_, err := h.prover.RegisterCommitment(other.Commitment())
		require.NoError(t, err)

		_, err = h.prover.Prove(context.Background(), other.ShardHash, other.ChallengeHex(0))
		assert.ErrorIs(t, err, shards.ErrShardNotFound)
	})

	t.Run("Corrupted shard", func(t *testing.T) {
		corrupted := append([]byte(nil), f.Shard...)
		corrupted[len(corrupted)/2] ^= 0xFF
		_, err := h.shards.WriteShard(f.ShardHash, bytes.NewReader(corrupted))
		require.NoError(t, err)

		_, err = h.prover.Prove(context.Background(), f.ShardHash, f.ChallengeHex(0))
		assert.ErrorIs(t, err, proofStream.ErrProofGenerationFailed)
	})
}

func TestProver_Prove_Cancelled(t *testing.T) {
	h := newProverHarness(t, &Config{ChunkSize: 64})
	f := testutil.NewAuditFixture(t, crypto.StorjSuite(), 2, 4096)
	h.addShard(t, f)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := h.prover.Prove(ctx, f.ShardHash, f.ChallengeHex(0))
	require.ErrorIs(t, err, context.Canceled)

	history, err := h.prover.AuditHistory(f.ShardHash)
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestProver_NotConfigured(t *testing.T) {
	p, err := NewProver(nil, nil, nil, nil)
	require.NoError(t, err)

	_, err = p.Prove(context.Background(), "ab", "01")
	assert.ErrorIs(t, err, ErrNotConfigured)

	_, err = p.RegisterCommitment(&types.AuditCommitment{ShardHash: "ab"})
	assert.ErrorIs(t, err, ErrNotConfigured)

	_, err = p.AuditHistory("ab")
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestProver_RegisterCommitment(t *testing.T) {
	h := newProverHarness(t, nil)
	f := testutil.NewAuditFixture(t, crypto.StorjSuite(), 3, 64)

	t.Run("Fills root and suite", func(t *testing.T) {
		c := f.Commitment()
		c.HashSuite = ""
		c.Root = ""
		c.CreatedAt = 0

		stored, err := h.prover.RegisterCommitment(c)
		require.NoError(t, err)
		assert.Equal(t, hex.EncodeToString(f.Root), stored.Root)
		assert.Equal(t, crypto.SuiteStorj, stored.HashSuite)
		assert.NotZero(t, stored.CreatedAt)

		loaded, err := h.store.LoadCommitment(f.ShardHash)
		require.NoError(t, err)
		assert.Equal(t, stored, loaded)
	})

	testCases := []struct {
		name   string
		mutate func(c *types.AuditCommitment)
	}{
		{"Invalid shard hash", func(c *types.AuditCommitment) { c.ShardHash = "not hex" }},
		{"Unknown suite", func(c *types.AuditCommitment) { c.HashSuite = "blake3" }},
		{"Wrong leaf width for suite", func(c *types.AuditCommitment) { c.HashSuite = crypto.SuiteKeccak }},
		{"No leaves", func(c *types.AuditCommitment) { c.Leaves = nil }},
		{"Bad leaf hex", func(c *types.AuditCommitment) { c.Leaves[1] = "xyz" }},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			c := f.Commitment()
			tc.mutate(c)
			_, err := h.prover.RegisterCommitment(c)
			assert.ErrorIs(t, err, proofStream.ErrInvalidInput)
		})
	}

	t.Run("Nil", func(t *testing.T) {
		_, err := h.prover.RegisterCommitment(nil)
		assert.ErrorIs(t, err, proofStream.ErrInvalidInput)
	})
}

func TestProver_ProveReader(t *testing.T) {
	p, err := NewProver(&Config{ChunkSize: 100}, nil, nil, nil)
	require.NoError(t, err)

	f := testutil.NewAuditFixture(t, crypto.StorjSuite(), 4, 1000)

	result, err := p.ProveReader(context.Background(), f.Leaves, nil, f.Challenges[2], bytes.NewReader(f.Shard))
	require.NoError(t, err)
	assert.Equal(t, 2, result.LeafIndex)
	assert.Equal(t, int64(1000), result.BytesRead)
	assert.Equal(t, f.Root, testutil.ReduceProof(f.Suite, result.Proof))
	assert.Equal(t, result.Response, result.Proof.Response())
}

func TestProver_ProveReader_RateLimited(t *testing.T) {
	// 2 KiB at 8 KiB/s with a 512 byte burst takes roughly 190ms
	p, err := NewProver(&Config{ChunkSize: 512, ReadRateLimit: 8 * 1024}, nil, nil, nil)
	require.NoError(t, err)

	f := testutil.NewAuditFixture(t, crypto.StorjSuite(), 2, 2048)

	start := time.Now()
	result, err := p.ProveReader(context.Background(), f.Leaves, nil, f.Challenges[0], bytes.NewReader(f.Shard))
	require.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(start), 100*time.Millisecond)
	assert.Equal(t, f.Root, testutil.ReduceProof(f.Suite, result.Proof))
}

func TestProver_ProveReader_RateLimitedCancel(t *testing.T) {
	p, err := NewProver(&Config{ChunkSize: 64, ReadRateLimit: 64}, nil, nil, nil)
	require.NoError(t, err)

	f := testutil.NewAuditFixture(t, crypto.StorjSuite(), 2, 4096)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err = p.ProveReader(ctx, f.Leaves, nil, f.Challenges[0], bytes.NewReader(f.Shard))
	require.Error(t, err)
}
