package auditClient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Layr-Labs/eigenx-storage-audit/pkg/crypto"
	"github.com/Layr-Labs/eigenx-storage-audit/pkg/logger"
	"github.com/Layr-Labs/eigenx-storage-audit/pkg/node"
	"github.com/Layr-Labs/eigenx-storage-audit/pkg/persistence/memory"
	"github.com/Layr-Labs/eigenx-storage-audit/pkg/prover"
	"github.com/Layr-Labs/eigenx-storage-audit/pkg/shards"
	"github.com/Layr-Labs/eigenx-storage-audit/pkg/testutil"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fastRetry = RetryConfig{
	MaxAttempts:     3,
	InitialBackoff:  time.Millisecond,
	MaxBackoff:      5 * time.Millisecond,
	BackoffMultiple: 2.0,
}

// startHolder runs a real holder handler behind an httptest server
func startHolder(t *testing.T) (*httptest.Server, string) {
	t.Helper()
	testLogger, _ := logger.NewLogger(&logger.LoggerConfig{Debug: false})

	store := memory.NewMemoryPersistence()
	t.Cleanup(func() { _ = store.Close() })

	shardDir := t.TempDir()
	shardStore, err := shards.NewFileShardStore(shardDir, testLogger)
	require.NoError(t, err)

	p, err := prover.NewProver(&prover.Config{ChunkSize: 512}, store, shardStore, testLogger)
	require.NoError(t, err)

	n := node.NewNode(node.Config{Logger: testLogger}, p, store)
	server := httptest.NewServer(n.GetServer().GetHandler())
	t.Cleanup(server.Close)

	return server, shardDir
}

func TestNewClient(t *testing.T) {
	_, err := NewClient("", nil)
	require.Error(t, err)

	_, err = NewClient("not a url", nil)
	require.Error(t, err)

	c, err := NewClient("http://localhost:8100/", nil)
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8100", c.baseURL)
}

func TestClient_AuditRoundTrip(t *testing.T) {
	server, shardDir := startHolder(t)
	suite := crypto.StorjSuite()
	f := testutil.NewAuditFixture(t, suite, 5, 3000)
	f.WriteShard(t, shardDir)

	c, err := NewClient(server.URL, nil)
	require.NoError(t, err)
	ctx := context.Background()

	stored, err := c.SubmitCommitment(ctx, f.Commitment())
	require.NoError(t, err)
	assert.Equal(t, f.ShardHash, stored.ShardHash)

	fetched, err := c.GetCommitment(ctx, f.ShardHash)
	require.NoError(t, err)
	assert.Equal(t, f.Leaves, fetched.Leaves)

	for i := range f.Challenges {
		resp, err := c.RequestProof(ctx, f.ShardHash, f.ChallengeHex(i))
		require.NoError(t, err)
		assert.NotEmpty(t, resp.AuditID)
		assert.Equal(t, f.Root, testutil.ReduceProof(suite, resp.Proof), "challenge %d", i)
	}

	records, err := c.AuditHistory(ctx, f.ShardHash)
	require.NoError(t, err)
	assert.Len(t, records, len(f.Challenges))
	for _, r := range records {
		assert.True(t, r.Success)
	}

	require.NoError(t, c.DeleteCommitment(ctx, f.ShardHash))

	_, err = c.GetCommitment(ctx, f.ShardHash)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestClient_ErrorsAreNotRetried(t *testing.T) {
	server, _ := startHolder(t)
	f := testutil.NewAuditFixture(t, crypto.StorjSuite(), 2, 100)

	c, err := NewClient(server.URL, nil)
	require.NoError(t, err)
	c.WithRetryConfig(fastRetry)
	ctx := context.Background()

	t.Run("unknown commitment", func(t *testing.T) {
		_, err := c.RequestProof(ctx, f.ShardHash, f.ChallengeHex(0))
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrNotFound))
	})

	t.Run("invalid commitment", func(t *testing.T) {
		commitment := f.Commitment()
		commitment.Leaves = []string{"zz"}
		_, err := c.SubmitCommitment(ctx, commitment)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrRejected))
		assert.Contains(t, err.Error(), "400")
	})

	t.Run("missing shard", func(t *testing.T) {
		_, err := c.SubmitCommitment(ctx, f.Commitment())
		require.NoError(t, err)

		_, err = c.RequestProof(ctx, f.ShardHash, f.ChallengeHex(0))
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrNotFound))
	})
}

func TestClient_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			http.Error(w, `{"error":"busy"}`, http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[]`))
	}))
	defer server.Close()

	c, err := NewClient(server.URL, nil)
	require.NoError(t, err)
	c.WithRetryConfig(fastRetry)

	records, err := c.AuditHistory(context.Background(), "ab")
	require.NoError(t, err)
	assert.Empty(t, records)
	assert.Equal(t, int32(3), calls.Load())
}

func TestClient_GivesUpAfterMaxAttempts(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"disk on fire"}`))
	}))
	defer server.Close()

	c, err := NewClient(server.URL, nil)
	require.NoError(t, err)
	c.WithRetryConfig(fastRetry)

	_, err = c.GetCommitment(context.Background(), "ab")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "after 3 attempts")
	assert.Contains(t, err.Error(), "disk on fire")
	assert.Equal(t, int32(3), calls.Load())
}

func TestClient_ContextCancelStopsRetries(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	c, err := NewClient(server.URL, nil)
	require.NoError(t, err)
	c.WithRetryConfig(RetryConfig{
		MaxAttempts:     10,
		InitialBackoff:  time.Second,
		MaxBackoff:      time.Second,
		BackoffMultiple: 1,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err = c.GetCommitment(ctx, "ab")
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	assert.Less(t, time.Since(start), time.Second)
}
