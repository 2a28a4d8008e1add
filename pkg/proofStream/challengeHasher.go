package proofStream

import (
	"hash"

	"github.com/Layr-Labs/eigenx-storage-audit/pkg/crypto"
)

// challengeHasher is an H1 context seeded with the challenge. Chunks are
// absorbed in arrival order and the digest can be taken exactly once.
type challengeHasher struct {
	h         hash.Hash
	absorbed  int64
	finalized bool
}

func newChallengeHasher(suite crypto.HashSuite, challenge []byte) *challengeHasher {
	h := suite.NewH1()
	_, _ = h.Write(challenge)
	return &challengeHasher{h: h}
}

func (c *challengeHasher) absorb(chunk []byte) error {
	if c.finalized {
		return ErrAlreadyFinalized
	}
	// hash.Hash never returns an error from Write
	n, _ := c.h.Write(chunk)
	c.absorbed += int64(n)
	return nil
}

func (c *challengeHasher) finalize() ([]byte, error) {
	if c.finalized {
		return nil, ErrAlreadyFinalized
	}
	c.finalized = true
	return c.h.Sum(nil), nil
}
