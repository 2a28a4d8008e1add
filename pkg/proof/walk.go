package proof

import (
	"fmt"

	"github.com/Layr-Labs/eigenx-storage-audit/pkg/merkle"
)

// Walk builds the proof path for the leaf at leafIndex, starting from the
// response that produced it. Siblings are collected from the bottom level up
// to the level just below the root; the root itself is left out.
func Walk(tree *merkle.MerkleTree, leafIndex int, response []byte) (*Path, error) {
	if tree == nil {
		return nil, fmt.Errorf("merkle tree cannot be nil")
	}
	if leafIndex < 0 || leafIndex >= len(tree.Leaves()) {
		return nil, fmt.Errorf("leaf index %d out of bounds (tree has %d leaves)", leafIndex, len(tree.Leaves()))
	}

	path := NewResponse(response)
	index := leafIndex

	for level := 0; level < tree.Levels()-1; level++ {
		nodes, err := tree.Level(level)
		if err != nil {
			return nil, err
		}

		if index%2 == 0 {
			// Node is on the left, sibling is on the right
			path = NewPair(path, NewSibling(nodes[index+1]))
		} else {
			// Node is on the right, sibling is on the left
			path = NewPair(NewSibling(nodes[index-1]), path)
		}

		// Move to parent index in next level
		index = index / 2
	}

	return path, nil
}
