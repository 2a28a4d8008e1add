package proof

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// Kind identifies the shape of a Path node
type Kind uint8

const (
	// KindResponse is the innermost node holding the challenge response
	KindResponse Kind = iota
	// KindSibling is a tree node collected on the way to the root
	KindSibling
	// KindPair joins two sub-paths in tree order
	KindPair
)

func (k Kind) String() string {
	switch k {
	case KindResponse:
		return "response"
	case KindSibling:
		return "sibling"
	case KindPair:
		return "pair"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Path is an immutable node of a proof path
type Path struct {
	kind        Kind
	value       []byte
	left, right *Path
}

// NewResponse returns the innermost path node for a challenge response
func NewResponse(response []byte) *Path {
	return &Path{kind: KindResponse, value: append([]byte(nil), response...)}
}

// NewSibling returns a leaf node carrying a sibling hash
func NewSibling(hash []byte) *Path {
	return &Path{kind: KindSibling, value: append([]byte(nil), hash...)}
}

// NewPair joins left and right in that order
func NewPair(left, right *Path) *Path {
	return &Path{kind: KindPair, left: left, right: right}
}

// Kind reports the node shape
func (p *Path) Kind() Kind { return p.kind }

// Value returns the bytes of a response or sibling node, nil for pairs
func (p *Path) Value() []byte { return p.value }

// Left returns the left sub-path of a pair, nil otherwise
func (p *Path) Left() *Path { return p.left }

// Right returns the right sub-path of a pair, nil otherwise
func (p *Path) Right() *Path { return p.right }

// Depth returns the number of siblings on the path
func (p *Path) Depth() int {
	if p.kind != KindPair {
		return 0
	}
	return 1 + max(p.left.Depth(), p.right.Depth())
}

// Response walks down to the response node and returns its value
func (p *Path) Response() []byte {
	switch p.kind {
	case KindResponse:
		return p.value
	case KindPair:
		if r := p.left.Response(); r != nil {
			return r
		}
		return p.right.Response()
	default:
		return nil
	}
}

// Equal reports whether two paths have the same shape and values
func (p *Path) Equal(other *Path) bool {
	if p == nil || other == nil {
		return p == other
	}
	if p.kind != other.kind {
		return false
	}
	if p.kind == KindPair {
		return p.left.Equal(other.left) && p.right.Equal(other.right)
	}
	return bytes.Equal(p.value, other.value)
}

// MarshalJSON encodes the path in its bracketed wire form with hex values
func (p *Path) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.wire())
}

func (p *Path) wire() interface{} {
	switch p.kind {
	case KindResponse:
		return []interface{}{hex.EncodeToString(p.value)}
	case KindSibling:
		return hex.EncodeToString(p.value)
	default:
		return []interface{}{p.left.wire(), p.right.wire()}
	}
}

// UnmarshalJSON parses the bracketed wire form
func (p *Path) UnmarshalJSON(data []byte) error {
	parsed, err := parseWire(data)
	if err != nil {
		return err
	}
	*p = *parsed
	return nil
}

func parseWire(data []byte) (*Path, error) {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		value, err := hex.DecodeString(s)
		if err != nil {
			return nil, fmt.Errorf("invalid sibling hex: %w", err)
		}
		return &Path{kind: KindSibling, value: value}, nil
	}

	var elems []json.RawMessage
	if err := json.Unmarshal(data, &elems); err != nil {
		return nil, fmt.Errorf("proof node must be a string or an array: %w", err)
	}

	switch len(elems) {
	case 1:
		if err := json.Unmarshal(elems[0], &s); err != nil {
			return nil, fmt.Errorf("response node must hold a hex string: %w", err)
		}
		value, err := hex.DecodeString(s)
		if err != nil {
			return nil, fmt.Errorf("invalid response hex: %w", err)
		}
		return &Path{kind: KindResponse, value: value}, nil
	case 2:
		left, err := parseWire(elems[0])
		if err != nil {
			return nil, err
		}
		right, err := parseWire(elems[1])
		if err != nil {
			return nil, err
		}
		return &Path{kind: KindPair, left: left, right: right}, nil
	default:
		return nil, fmt.Errorf("proof array must have 1 or 2 elements, got %d", len(elems))
	}
}
