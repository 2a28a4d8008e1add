package node

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/Layr-Labs/eigenx-storage-audit/pkg/proofStream"
	"github.com/Layr-Labs/eigenx-storage-audit/pkg/prover"
	"github.com/Layr-Labs/eigenx-storage-audit/pkg/shards"
	"github.com/Layr-Labs/eigenx-storage-audit/pkg/types"
	"github.com/pkg/errors"
)

// handleCommitments handles the /audit/commitments endpoint
func (s *Server) handleCommitments(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.handleSaveCommitment(w, r)
	case http.MethodGet:
		s.handleGetCommitments(w, r)
	case http.MethodDelete:
		s.handleDeleteCommitment(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

func (s *Server) handleSaveCommitment(w http.ResponseWriter, r *http.Request) {
	var commitment types.AuditCommitment
	if err := decodeBody(w, r, &commitment); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Failed to parse request: %v", err))
		return
	}

	stored, err := s.node.prover.RegisterCommitment(&commitment)
	if err != nil {
		s.node.logger.Sugar().Warnw("Rejected commitment", "shard_hash", commitment.ShardHash, "error", err)
		writeError(w, statusForError(err), err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, stored)
}

func (s *Server) handleGetCommitments(w http.ResponseWriter, r *http.Request) {
	shardHash := r.URL.Query().Get("shardHash")

	if shardHash == "" {
		commitments, err := s.node.persistence.ListCommitments()
		if err != nil {
			s.node.logger.Sugar().Errorw("Failed to list commitments", "error", err)
			writeError(w, http.StatusInternalServerError, "Failed to list commitments")
			return
		}
		writeJSON(w, http.StatusOK, commitments)
		return
	}

	commitment, err := s.node.persistence.LoadCommitment(shardHash)
	if err != nil {
		s.node.logger.Sugar().Errorw("Failed to load commitment", "shard_hash", shardHash, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to load commitment")
		return
	}
	if commitment == nil {
		writeError(w, http.StatusNotFound, "Commitment not found")
		return
	}

	writeJSON(w, http.StatusOK, commitment)
}

func (s *Server) handleDeleteCommitment(w http.ResponseWriter, r *http.Request) {
	shardHash := r.URL.Query().Get("shardHash")
	if shardHash == "" {
		writeError(w, http.StatusBadRequest, "shardHash is required")
		return
	}

	if err := s.node.persistence.DeleteCommitment(shardHash); err != nil {
		s.node.logger.Sugar().Errorw("Failed to delete commitment", "shard_hash", shardHash, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to delete commitment")
		return
	}

	s.node.logger.Sugar().Infow("Deleted commitment", "shard_hash", shardHash)
	w.WriteHeader(http.StatusNoContent)
}

// handleProve handles the /audit/prove endpoint
func (s *Server) handleProve(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var req types.ProveRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Failed to parse request: %v", err))
		return
	}

	if req.ShardHash == "" {
		writeError(w, http.StatusBadRequest, "shardHash is required")
		return
	}
	if req.Challenge == "" {
		writeError(w, http.StatusBadRequest, "challenge is required")
		return
	}

	resp, err := s.node.prover.Prove(r.Context(), req.ShardHash, req.Challenge)
	if err != nil {
		writeError(w, statusForError(err), err.Error())
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// handleHistory handles the /audit/history endpoint
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	shardHash := r.URL.Query().Get("shardHash")
	if shardHash == "" {
		writeError(w, http.StatusBadRequest, "shardHash is required")
		return
	}

	records, err := s.node.prover.AuditHistory(shardHash)
	if err != nil {
		s.node.logger.Sugar().Errorw("Failed to list audit history", "shard_hash", shardHash, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to list audit history")
		return
	}

	writeJSON(w, http.StatusOK, records)
}

// handleHealth handles the /health endpoint
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	if err := s.node.persistence.HealthCheck(); err != nil {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// statusForError maps prover errors onto HTTP status codes
func statusForError(err error) int {
	switch {
	case errors.Is(err, proofStream.ErrInvalidInput), errors.Is(err, shards.ErrInvalidShardHash):
		return http.StatusBadRequest
	case errors.Is(err, prover.ErrCommitmentNotFound), errors.Is(err, shards.ErrShardNotFound):
		return http.StatusNotFound
	case errors.Is(err, proofStream.ErrProofGenerationFailed):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodyBytes)
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(v)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, types.ErrorResponse{Error: msg})
}
