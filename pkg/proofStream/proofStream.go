package proofStream

import (
	"context"
	"fmt"
	"io"

	"github.com/Layr-Labs/eigenx-storage-audit/pkg/crypto"
	"github.com/Layr-Labs/eigenx-storage-audit/pkg/merkle"
	"github.com/Layr-Labs/eigenx-storage-audit/pkg/proof"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// DefaultChunkSize is the read size used by Consume when none is given
const DefaultChunkSize = 64 * 1024

// ProofStream proves possession of one shard for one challenge.
//
// Shard bytes are fed with Write (or Consume) in order. Close signals the end
// of the shard: the response is derived, matched against the committed leaves
// and the proof path is built. A ProofStream is not safe for concurrent use and
// must not be reused for another challenge.
type ProofStream struct {
	suite  crypto.HashSuite
	tree   *merkle.MerkleTree
	hasher *challengeHasher
	logger *zap.Logger

	response  []byte
	leafIndex int
	proof     *proof.Path
}

// NewProofStream validates the commitment leaves and challenge and builds the
// padded merkle tree. leaves are hex encoded and must all decode to the suite's
// leaf width. A nil suite selects the storj suite and a nil logger discards logs.
func NewProofStream(leaves []string, challenge []byte, suite crypto.HashSuite, logger *zap.Logger) (*ProofStream, error) {
	if suite == nil {
		suite = crypto.StorjSuite()
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	if leaves == nil {
		return nil, errors.Wrap(ErrInvalidInput, "merkle leaves must be a list")
	}
	if len(challenge) == 0 {
		return nil, errors.Wrap(ErrInvalidInput, "challenge cannot be empty")
	}

	decoded, err := merkle.DecodeLeaves(leaves, suite.Size())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}

	tree, err := merkle.BuildPaddedMerkleTree(decoded, suite)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}

	logger.Sugar().Debugw("Proof stream created",
		"hash_suite", suite.Name(),
		"leaves", len(leaves),
		"padded_leaves", len(tree.Leaves()),
		"levels", tree.Levels(),
	)

	return &ProofStream{
		suite:     suite,
		tree:      tree,
		hasher:    newChallengeHasher(suite, append([]byte(nil), challenge...)),
		logger:    logger,
		leafIndex: -1,
	}, nil
}

// NewProofStreamFromHex is NewProofStream with a hex encoded challenge
func NewProofStreamFromHex(leaves []string, challengeHex string, suite crypto.HashSuite, logger *zap.Logger) (*ProofStream, error) {
	if challengeHex == "" {
		return nil, errors.Wrap(ErrInvalidInput, "challenge cannot be empty")
	}
	challenge, err := merkle.DecodeHex(challengeHex)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid challenge hex: %w", ErrInvalidInput, err)
	}
	return NewProofStream(leaves, challenge, suite, logger)
}

// Write absorbs the next chunk of shard data
func (ps *ProofStream) Write(chunk []byte) (int, error) {
	if err := ps.hasher.absorb(chunk); err != nil {
		return 0, err
	}
	return len(chunk), nil
}

// Consume reads r to EOF in chunks of chunkSize and writes each chunk to the
// stream. The context is checked between chunks; on cancellation the stream
// stays open and no proof is produced. Consume does not call Close.
func (ps *ProofStream) Consume(ctx context.Context, r io.Reader, chunkSize int) (int64, error) {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}

	buf := make([]byte, chunkSize)
	var total int64
	for {
		if err := ctx.Err(); err != nil {
			return total, err
		}

		n, err := r.Read(buf)
		if n > 0 {
			if _, werr := ps.Write(buf[:n]); werr != nil {
				return total, werr
			}
			total += int64(n)
		}
		if err == io.EOF {
			return total, nil
		}
		if err != nil {
			return total, errors.Wrap(err, "failed to read shard data")
		}
	}
}

// Close marks the end of the shard and generates the proof. It can be called
// once; a failed match leaves the stream without a proof.
func (ps *ProofStream) Close() error {
	digest, err := ps.hasher.finalize()
	if err != nil {
		return err
	}

	response := ps.suite.H2(digest)
	candidate := crypto.LeafHash(ps.suite, response)

	index, err := merkle.FindLeafIndex(ps.tree.Leaves(), candidate)
	if err != nil {
		ps.logger.Sugar().Warnw("Challenge response does not match any committed leaf",
			"bytes_absorbed", ps.hasher.absorbed,
			"root", fmt.Sprintf("%x", ps.tree.Root()),
		)
		return fmt.Errorf("%w: %w", ErrProofGenerationFailed, err)
	}

	p, err := proof.Walk(ps.tree, index, response)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrProofGenerationFailed, err)
	}

	ps.response = response
	ps.leafIndex = index
	ps.proof = p

	ps.logger.Sugar().Debugw("Proof generated",
		"leaf_index", index,
		"bytes_absorbed", ps.hasher.absorbed,
		"depth", p.Depth(),
	)
	return nil
}

// ProofResult returns the proof path after a successful Close
func (ps *ProofStream) ProofResult() (*proof.Path, error) {
	if ps.proof == nil {
		return nil, ErrProofNotReady
	}
	return ps.proof, nil
}

// Response returns the challenge response after a successful Close
func (ps *ProofStream) Response() ([]byte, error) {
	if ps.proof == nil {
		return nil, ErrProofNotReady
	}
	return append([]byte(nil), ps.response...), nil
}

// LeafIndex returns the index of the matched leaf after a successful Close
func (ps *ProofStream) LeafIndex() (int, error) {
	if ps.proof == nil {
		return -1, ErrProofNotReady
	}
	return ps.leafIndex, nil
}

// Root returns the root of the commitment tree the proof is built against
func (ps *ProofStream) Root() []byte {
	return ps.tree.Root()
}

// BytesAbsorbed returns how many shard bytes have been written so far
func (ps *ProofStream) BytesAbsorbed() int64 {
	return ps.hasher.absorbed
}
