package merkle

import "github.com/Layr-Labs/eigenx-storage-audit/pkg/crypto"

// MerkleTree is a complete binary tree over a power-of-two leaf list.
// Nodes are never modified after BuildMerkleTree returns.
type MerkleTree struct {
	// suite hashes each pair of children into their parent
	suite crypto.HashSuite

	// levels stores every tree level for proof generation
	// levels[0] = leaves, levels[len-1] = root
	levels [][][]byte
}
