package node

import (
	"fmt"
	"net/http"
	"time"
)

/*
Server exposes the holder side of the storage audit protocol.

Commitment flow (when a shard is handed over):
  POST /audit/commitments:
    - Request: { shardHash, leaves, hashSuite }
    - Leaves are the bottom level of the auditor's merkle tree, one per challenge
    - The holder validates the leaves, computes the root and stores the commitment

Audit flow:
  POST /audit/prove:
    - Request: { shardHash, challenge }
    - The shard is streamed through H1 seeded with the challenge
    - The derived leaf is located among the committed leaves
    - Response: { auditId, shardHash, challenge, proof }
    - The auditor folds the proof to the root it kept; the holder never verifies

Inspection:
  GET    /audit/commitments[?shardHash=]  one commitment or all of them
  DELETE /audit/commitments?shardHash=    drop a commitment and its history
  GET    /audit/history?shardHash=        answered audits for a shard
  GET    /health                          commitment store health
*/

// maxRequestBodyBytes bounds request bodies; commitments are the largest payload
const maxRequestBodyBytes = 8 << 20

// Server handles HTTP requests for the node
type Server struct {
	node       *Node
	httpServer *http.Server
}

// NewServer creates a new server instance
func NewServer(node *Node, port int) *Server {
	s := &Server{
		node: node,
	}

	mux := http.NewServeMux()

	// Audit endpoints
	mux.HandleFunc("/audit/commitments", s.handleCommitments)
	mux.HandleFunc("/audit/prove", s.handleProve)
	mux.HandleFunc("/audit/history", s.handleHistory)

	// Operational endpoints
	mux.HandleFunc("/health", s.handleHealth)

	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return s
}

// Start starts the HTTP server
func (s *Server) Start() error {
	go func() {
		s.node.logger.Sugar().Infow("Starting HTTP server", "port", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != http.ErrServerClosed {
			s.node.logger.Sugar().Errorw("HTTP server error", "error", err)
		}
	}()
	return nil
}

// Stop stops the HTTP server
func (s *Server) Stop() error {
	return s.httpServer.Close()
}

// GetHandler returns the HTTP handler (for testing)
func (s *Server) GetHandler() http.Handler {
	return s.httpServer.Handler
}
