package merkle

import (
	"fmt"
	"math/bits"
	"strings"

	"github.com/Layr-Labs/eigenx-storage-audit/pkg/crypto"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// NextPowerOfTwo returns the smallest power of two >= n. Zero and one both map to one.
func NextPowerOfTwo(n int) int {
	if n <= 1 {
		return 1
	}
	return 1 << bits.Len(uint(n-1))
}

// FillerLeaf returns the value appended when padding a leaf list: H2(H1(empty)).
func FillerLeaf(suite crypto.HashSuite) []byte {
	return crypto.LeafHash(suite, nil)
}

// PadLeaves extends leaves with copies of filler until the count is a power
// of two. The input slice is not modified and original leaves keep their order.
func PadLeaves(leaves [][]byte, filler []byte) ([][]byte, error) {
	if len(leaves) == 0 {
		return nil, ErrEmptyLeaves
	}

	target := NextPowerOfTwo(len(leaves))
	padded := make([][]byte, 0, target)
	padded = append(padded, leaves...)
	for len(padded) < target {
		padded = append(padded, append([]byte(nil), filler...))
	}
	return padded, nil
}

// DecodeLeaves decodes hex encoded leaves. A 0x prefix is optional. Every leaf
// must decode to exactly width bytes.
func DecodeLeaves(hexLeaves []string, width int) ([][]byte, error) {
	if len(hexLeaves) == 0 {
		return nil, ErrEmptyLeaves
	}

	leaves := make([][]byte, len(hexLeaves))
	for i, h := range hexLeaves {
		leaf, err := DecodeHex(h)
		if err != nil {
			return nil, fmt.Errorf("leaf %d: %w", i, err)
		}
		if len(leaf) != width {
			return nil, fmt.Errorf("leaf %d: expected %d bytes, got %d", i, width, len(leaf))
		}
		leaves[i] = leaf
	}
	return leaves, nil
}

// DecodeHex decodes a hex string with or without a 0x prefix
func DecodeHex(s string) ([]byte, error) {
	if !strings.HasPrefix(s, "0x") && !strings.HasPrefix(s, "0X") {
		s = "0x" + s
	}
	return hexutil.Decode(s)
}
