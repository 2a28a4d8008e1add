package node

import (
	"github.com/Layr-Labs/eigenx-storage-audit/pkg/logger"
	"github.com/Layr-Labs/eigenx-storage-audit/pkg/persistence"
	"github.com/Layr-Labs/eigenx-storage-audit/pkg/prover"
	"go.uber.org/zap"
)

// Node is a shard holder that answers audits over HTTP
type Node struct {
	Port int

	// Dependencies
	prover      *prover.Prover
	persistence persistence.ICommitmentPersistence
	server      *Server
	logger      *zap.Logger
}

// Config holds node configuration
type Config struct {
	Port   int
	Logger *zap.Logger // Optional logger, will create default if nil
}

// NewNode creates a new node instance with dependency injection
func NewNode(cfg Config, p *prover.Prover, store persistence.ICommitmentPersistence) *Node {
	nodeLogger := cfg.Logger
	if nodeLogger == nil {
		nodeLogger, _ = logger.NewLogger(&logger.LoggerConfig{Debug: false})
	}

	n := &Node{
		Port:        cfg.Port,
		prover:      p,
		persistence: store,
		logger:      nodeLogger,
	}
	n.server = NewServer(n, cfg.Port)

	return n
}

// Start starts the node's HTTP server after checking the commitment store
func (n *Node) Start() error {
	if err := n.persistence.HealthCheck(); err != nil {
		return err
	}
	return n.server.Start()
}

// Stop stops the HTTP server. The commitment store is owned by the caller.
func (n *Node) Stop() error {
	return n.server.Stop()
}

// GetServer returns the node's HTTP server
func (n *Node) GetServer() *Server {
	return n.server
}
