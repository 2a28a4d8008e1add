package merkle

import (
	"bytes"
	"fmt"

	"github.com/Layr-Labs/eigenx-storage-audit/pkg/crypto"
	"github.com/pkg/errors"
)

var (
	ErrEmptyLeaves   = errors.New("cannot build merkle tree from empty leaf list")
	ErrNotPowerOfTwo = errors.New("leaf count must be a power of two")
	ErrLeafNotFound  = errors.New("leaf not found in bottom level of merkle tree")
)

// BuildMerkleTree creates a complete binary merkle tree from already padded leaves.
//
// Each parent is H2(H1(left || right)) under the given suite. Unlike trees that
// duplicate the last node of an odd level, this tree requires a power-of-two
// leaf count; use PadLeaves or BuildPaddedMerkleTree to get one.
func BuildMerkleTree(leaves [][]byte, suite crypto.HashSuite) (*MerkleTree, error) {
	if len(leaves) == 0 {
		return nil, ErrEmptyLeaves
	}
	if len(leaves)&(len(leaves)-1) != 0 {
		return nil, fmt.Errorf("%w: got %d leaves", ErrNotPowerOfTwo, len(leaves))
	}
	if suite == nil {
		return nil, fmt.Errorf("hash suite cannot be nil")
	}

	bottom := make([][]byte, len(leaves))
	for i, leaf := range leaves {
		if len(leaf) != len(leaves[0]) {
			return nil, fmt.Errorf("leaf %d has length %d, expected %d", i, len(leaf), len(leaves[0]))
		}
		bottom[i] = append([]byte(nil), leaf...)
	}

	// Build tree levels bottom-up
	levels := [][][]byte{bottom}

	currentLevel := bottom
	for len(currentLevel) > 1 {
		nextLevel := make([][]byte, 0, len(currentLevel)/2)
		for i := 0; i < len(currentLevel); i += 2 {
			nextLevel = append(nextLevel, crypto.PairHash(suite, currentLevel[i], currentLevel[i+1]))
		}

		levels = append(levels, nextLevel)
		currentLevel = nextLevel
	}

	return &MerkleTree{
		suite:  suite,
		levels: levels,
	}, nil
}

// BuildPaddedMerkleTree pads leaves with the suite's filler leaf and builds the tree
func BuildPaddedMerkleTree(leaves [][]byte, suite crypto.HashSuite) (*MerkleTree, error) {
	if suite == nil {
		return nil, fmt.Errorf("hash suite cannot be nil")
	}
	padded, err := PadLeaves(leaves, FillerLeaf(suite))
	if err != nil {
		return nil, err
	}
	return BuildMerkleTree(padded, suite)
}

// Levels returns the number of levels, leaves and root included
func (mt *MerkleTree) Levels() int {
	return len(mt.levels)
}

// Level returns the nodes at the given level, 0 being the leaves.
// The returned slices must not be modified.
func (mt *MerkleTree) Level(i int) ([][]byte, error) {
	if i < 0 || i >= len(mt.levels) {
		return nil, fmt.Errorf("level %d out of bounds (tree has %d levels)", i, len(mt.levels))
	}
	return mt.levels[i], nil
}

// Leaves returns the bottom level of the tree
func (mt *MerkleTree) Leaves() [][]byte {
	return mt.levels[0]
}

// Root returns a copy of the root hash
func (mt *MerkleTree) Root() []byte {
	return append([]byte(nil), mt.levels[len(mt.levels)-1][0]...)
}

// Suite returns the hash suite the tree was built with
func (mt *MerkleTree) Suite() crypto.HashSuite {
	return mt.suite
}

// FindLeafIndex scans leaves for an exact match and returns the first index
// holding it. Filler leaves all share one value, so the first-match rule only
// matters among fillers, which a genuine candidate leaf cannot equal unless
// H2(H1(x)) has a known preimage for the empty input.
func FindLeafIndex(leaves [][]byte, leaf []byte) (int, error) {
	for i := range leaves {
		if bytes.Equal(leaves[i], leaf) {
			return i, nil
		}
	}
	return -1, ErrLeafNotFound
}
