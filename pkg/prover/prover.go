package prover

import (
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"time"

	"github.com/Layr-Labs/eigenx-storage-audit/pkg/config"
	"github.com/Layr-Labs/eigenx-storage-audit/pkg/crypto"
	"github.com/Layr-Labs/eigenx-storage-audit/pkg/merkle"
	"github.com/Layr-Labs/eigenx-storage-audit/pkg/persistence"
	"github.com/Layr-Labs/eigenx-storage-audit/pkg/proof"
	"github.com/Layr-Labs/eigenx-storage-audit/pkg/proofStream"
	"github.com/Layr-Labs/eigenx-storage-audit/pkg/shards"
	"github.com/Layr-Labs/eigenx-storage-audit/pkg/types"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

var (
	ErrCommitmentNotFound = errors.New("no audit commitment stored for shard")
	ErrNotConfigured      = errors.New("prover has no commitment store or shard store")
)

// Config tunes how shards are streamed into proofs
type Config struct {
	HashSuite     string // Suite for commitments that don't name one
	ChunkSize     int    // Bytes per shard read, 0 = proofStream.DefaultChunkSize
	ReadRateLimit int    // Shard bytes per second across all audits, 0 = unlimited
}

// Result is a generated proof together with the values it was derived from
type Result struct {
	Proof     *proof.Path
	Response  []byte
	LeafIndex int
	BytesRead int64
}

// Prover answers audit challenges for shards held locally
type Prover struct {
	store        persistence.ICommitmentPersistence
	shards       shards.IShardReader
	logger       *zap.Logger
	defaultSuite crypto.HashSuite
	chunkSize    int
	limiter      *rate.Limiter
}

// NewProver creates a prover. store and shardReader may be nil when only
// ProveReader is used.
func NewProver(cfg *Config, store persistence.ICommitmentPersistence, shardReader shards.IShardReader, logger *zap.Logger) (*Prover, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	suite, err := crypto.GetHashSuite(cfg.HashSuite)
	if err != nil {
		return nil, err
	}

	chunkSize := cfg.ChunkSize
	if chunkSize <= 0 {
		chunkSize = proofStream.DefaultChunkSize
	}
	if chunkSize > config.MaxChunkSize {
		return nil, fmt.Errorf("chunk size %d exceeds maximum %d", chunkSize, config.MaxChunkSize)
	}

	p := &Prover{
		store:        store,
		shards:       shardReader,
		logger:       logger,
		defaultSuite: suite,
		chunkSize:    chunkSize,
	}

	if cfg.ReadRateLimit > 0 {
		// Each read waits for its own size, so the burst must cover a full chunk
		p.limiter = rate.NewLimiter(rate.Limit(cfg.ReadRateLimit), chunkSize)
	}

	return p, nil
}

// suiteFor resolves the hash suite a commitment was built with
func (p *Prover) suiteFor(name string) (crypto.HashSuite, error) {
	if name == "" {
		return p.defaultSuite, nil
	}
	suite, err := crypto.GetHashSuite(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", proofStream.ErrInvalidInput, err)
	}
	return suite, nil
}

// RegisterCommitment checks that the leaves form a valid tree for the
// commitment's hash suite, fills in the root and creation time and stores it.
func (p *Prover) RegisterCommitment(commitment *types.AuditCommitment) (*types.AuditCommitment, error) {
	if p.store == nil {
		return nil, ErrNotConfigured
	}
	if commitment == nil {
		return nil, errors.Wrap(proofStream.ErrInvalidInput, "commitment cannot be nil")
	}
	if err := shards.ValidateShardHash(commitment.ShardHash); err != nil {
		return nil, fmt.Errorf("%w: %w", proofStream.ErrInvalidInput, err)
	}

	suite, err := p.suiteFor(commitment.HashSuite)
	if err != nil {
		return nil, err
	}

	leaves, err := merkle.DecodeLeaves(commitment.Leaves, suite.Size())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", proofStream.ErrInvalidInput, err)
	}
	tree, err := merkle.BuildPaddedMerkleTree(leaves, suite)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", proofStream.ErrInvalidInput, err)
	}

	stored := persistence.CopyCommitment(commitment)
	stored.HashSuite = suite.Name()
	stored.Root = hex.EncodeToString(tree.Root())
	if stored.CreatedAt == 0 {
		stored.CreatedAt = time.Now().Unix()
	}

	if err := p.store.SaveCommitment(stored); err != nil {
		return nil, fmt.Errorf("failed to save commitment: %w", err)
	}

	p.logger.Sugar().Infow("Registered audit commitment",
		"shard_hash", stored.ShardHash,
		"leaves", len(stored.Leaves),
		"hash_suite", stored.HashSuite,
		"root", stored.Root,
	)
	return stored, nil
}

// Prove answers a challenge for a stored shard. The outcome is recorded in
// the audit history whether or not a proof could be produced.
func (p *Prover) Prove(ctx context.Context, shardHash string, challengeHex string) (*types.ProofResponse, error) {
	if p.store == nil || p.shards == nil {
		return nil, ErrNotConfigured
	}

	auditID := uuid.New().String()
	sugar := p.logger.Sugar().With("audit_id", auditID, "shard_hash", shardHash)

	if err := shards.ValidateShardHash(shardHash); err != nil {
		return nil, fmt.Errorf("%w: %w", proofStream.ErrInvalidInput, err)
	}
	challenge, err := decodeChallenge(challengeHex)
	if err != nil {
		return nil, err
	}

	commitment, err := p.store.LoadCommitment(shardHash)
	if err != nil {
		return nil, fmt.Errorf("failed to load commitment: %w", err)
	}
	if commitment == nil {
		return nil, errors.Wrapf(ErrCommitmentNotFound, "shard %s", shardHash)
	}

	suite, err := p.suiteFor(commitment.HashSuite)
	if err != nil {
		return nil, err
	}

	shard, err := p.shards.OpenShard(shardHash)
	if err != nil {
		return nil, err
	}
	defer func() { _ = shard.Close() }()

	sugar.Debugw("Answering audit", "leaves", len(commitment.Leaves), "hash_suite", suite.Name())
	start := time.Now()

	result, err := p.ProveReader(ctx, commitment.Leaves, suite, challenge, shard)

	record := &persistence.AuditRecord{
		AuditID:   auditID,
		ShardHash: shardHash,
		Challenge: hex.EncodeToString(challenge),
		LeafIndex: -1,
		Timestamp: time.Now().UnixNano(),
	}
	if err != nil {
		record.Error = err.Error()
	} else {
		record.Success = true
		record.LeafIndex = result.LeafIndex
		record.BytesRead = result.BytesRead
	}
	// Cancelled audits were never answered, so they leave no history
	if ctx.Err() == nil {
		if saveErr := p.store.SaveAuditRecord(record); saveErr != nil {
			sugar.Warnw("Failed to record audit outcome", "error", saveErr)
		}
	}

	if err != nil {
		sugar.Warnw("Audit failed", "error", err, "duration", time.Since(start))
		return nil, err
	}

	sugar.Infow("Audit answered",
		"leaf_index", result.LeafIndex,
		"bytes_read", result.BytesRead,
		"duration", time.Since(start),
	)

	return &types.ProofResponse{
		AuditID:   auditID,
		ShardHash: shardHash,
		Challenge: record.Challenge,
		Proof:     result.Proof,
	}, nil
}

// ProveReader streams r through a proof stream for challenge and returns the
// proof. It needs no stored state, which makes it usable for one-shot proofs.
func (p *Prover) ProveReader(ctx context.Context, leaves []string, suite crypto.HashSuite, challenge []byte, r io.Reader) (*Result, error) {
	if suite == nil {
		suite = p.defaultSuite
	}

	ps, err := proofStream.NewProofStream(leaves, challenge, suite, p.logger)
	if err != nil {
		return nil, err
	}

	if p.limiter != nil {
		r = &rateLimitedReader{ctx: ctx, r: r, limiter: p.limiter}
	}

	n, err := ps.Consume(ctx, r, p.chunkSize)
	if err != nil {
		return nil, fmt.Errorf("failed to stream shard after %d bytes: %w", n, err)
	}

	if err := ps.Close(); err != nil {
		return nil, err
	}

	pathResult, err := ps.ProofResult()
	if err != nil {
		return nil, err
	}
	response, err := ps.Response()
	if err != nil {
		return nil, err
	}
	leafIndex, err := ps.LeafIndex()
	if err != nil {
		return nil, err
	}

	return &Result{
		Proof:     pathResult,
		Response:  response,
		LeafIndex: leafIndex,
		BytesRead: ps.BytesAbsorbed(),
	}, nil
}

// AuditHistory returns the recorded audits for a shard
func (p *Prover) AuditHistory(shardHash string) ([]*persistence.AuditRecord, error) {
	if p.store == nil {
		return nil, ErrNotConfigured
	}
	return p.store.ListAuditRecords(shardHash)
}

func decodeChallenge(challengeHex string) ([]byte, error) {
	if challengeHex == "" {
		return nil, errors.Wrap(proofStream.ErrInvalidInput, "challenge cannot be empty")
	}
	challenge, err := merkle.DecodeHex(challengeHex)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid challenge hex: %w", proofStream.ErrInvalidInput, err)
	}
	if len(challenge) == 0 {
		return nil, errors.Wrap(proofStream.ErrInvalidInput, "challenge cannot be empty")
	}
	return challenge, nil
}
