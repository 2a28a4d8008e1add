// Package proof holds the nested proof path produced for a shard audit.
//
// A path is built from the challenge response outwards. Each step wraps the
// path so far together with one sibling node, keeping the sibling on the side
// it occupies in the tree:
//
//	[response]                         response alone (single leaf tree)
//	[[response], s0]                   response leaf was a left child
//	[s1, [[response], s0]]             its parent was a right child
//
// Auditors reduce the structure by hashing each pair, starting from the
// candidate leaf H2(H1(response)), and compare the result with the tree root.
// The bracketing is the wire format and must not be flattened.
package proof
