package proofStream

import "github.com/pkg/errors"

var (
	// ErrInvalidInput is returned by the constructors for unusable leaves or challenges
	ErrInvalidInput = errors.New("invalid proof stream input")

	// ErrProofGenerationFailed is returned by Close when the response does not
	// match any committed leaf
	ErrProofGenerationFailed = errors.New("failed to generate proof")

	// ErrProofNotReady is returned when the proof is requested before a successful Close
	ErrProofNotReady = errors.New("proof generation is not complete")

	// ErrAlreadyFinalized is returned when writing to or closing a finalized stream
	ErrAlreadyFinalized = errors.New("proof stream already finalized")
)
