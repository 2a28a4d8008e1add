package main

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/Layr-Labs/eigenx-storage-audit/pkg/auditClient"
	"github.com/Layr-Labs/eigenx-storage-audit/pkg/config"
	"github.com/Layr-Labs/eigenx-storage-audit/pkg/crypto"
	"github.com/Layr-Labs/eigenx-storage-audit/pkg/logger"
	"github.com/Layr-Labs/eigenx-storage-audit/pkg/merkle"
	"github.com/Layr-Labs/eigenx-storage-audit/pkg/node"
	"github.com/Layr-Labs/eigenx-storage-audit/pkg/persistence/factory"
	"github.com/Layr-Labs/eigenx-storage-audit/pkg/prover"
	"github.com/Layr-Labs/eigenx-storage-audit/pkg/shards"
	"github.com/Layr-Labs/eigenx-storage-audit/pkg/types"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
)

func main() {
	app := &cli.App{
		Name:  "audit-holder",
		Usage: "Storage audit holder",
		Description: `Proves possession of stored shards to remote auditors.

An auditor hands over merkle leaves when a shard is stored and later sends a
one-time challenge. The holder streams the shard through a hash seeded with the
challenge, finds the derived leaf and returns a proof path to the auditor's root.`,
		Version: "1.0.0",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "verbose",
				Usage:   "Enable verbose logging",
				EnvVars: []string{config.EnvAuditVerbose},
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the holder HTTP server",
				Flags:  append(storeFlags(), serveFlags()...),
				Action: runServe,
			},
			{
				Name:      "prove",
				Usage:     "Generate one proof from a leaves file, a challenge and a shard file",
				ArgsUsage: " ",
				Flags: append([]cli.Flag{
					&cli.PathFlag{
						Name:     "leaves",
						Usage:    "JSON file holding the array of hex encoded leaves",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "challenge",
						Usage:    "Hex encoded challenge",
						Required: true,
					},
					&cli.PathFlag{
						Name:     "shard",
						Usage:    "Shard file, or - for stdin",
						Required: true,
					},
				}, streamFlags()...),
				Action: runProve,
			},
			{
				Name:  "commit",
				Usage: "Store an audit commitment in the configured backend",
				Flags: append([]cli.Flag{
					&cli.StringFlag{
						Name:     "shard-hash",
						Usage:    "Hex shard hash the leaves belong to",
						Required: true,
					},
					&cli.PathFlag{
						Name:     "leaves",
						Usage:    "JSON file holding the array of hex encoded leaves",
						Required: true,
					},
					&cli.StringFlag{
						Name:    "hash-suite",
						Usage:   fmt.Sprintf("Hash suite the leaves were built with: %v", crypto.GetSupportedHashSuites()),
						Value:   crypto.SuiteStorj,
						EnvVars: []string{config.EnvAuditHashSuite},
					},
				}, persistenceFlags()...),
				Action: runCommit,
			},
			{
				Name:  "request",
				Usage: "Ask a running holder to answer a challenge",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "holder-url",
						Usage:    "Base URL of the holder (e.g. http://localhost:8100)",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "shard-hash",
						Usage:    "Hex shard hash to audit",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "challenge",
						Usage:    "Hex encoded challenge",
						Required: true,
					},
				},
				Action: runRequest,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatalf("Application error: %v", err)
	}
}

func persistenceFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "persistence-type",
			Usage:   fmt.Sprintf("Commitment store: %s", config.GetSupportedPersistenceTypesString()),
			Value:   config.PersistenceTypeBadger.String(),
			EnvVars: []string{config.EnvAuditPersistenceType},
		},
		&cli.StringFlag{
			Name:    "data-path",
			Usage:   "Badger data directory",
			Value:   config.DefaultDataPath,
			EnvVars: []string{config.EnvAuditDataPath},
		},
		&cli.StringFlag{
			Name:    "redis-address",
			Usage:   "Redis server address (host:port)",
			EnvVars: []string{config.EnvAuditRedisAddress},
		},
		&cli.StringFlag{
			Name:    "redis-password",
			Usage:   "Redis password",
			EnvVars: []string{config.EnvAuditRedisPassword},
		},
		&cli.IntFlag{
			Name:    "redis-db",
			Usage:   "Redis database number (0-15)",
			EnvVars: []string{config.EnvAuditRedisDB},
		},
		&cli.StringFlag{
			Name:    "redis-key-prefix",
			Usage:   "Prefix for every Redis key",
			EnvVars: []string{config.EnvAuditRedisKeyPrefix},
		},
	}
}

func streamFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "hash-suite",
			Usage:   fmt.Sprintf("Hash suite for commitments that don't name one: %v", crypto.GetSupportedHashSuites()),
			Value:   crypto.SuiteStorj,
			EnvVars: []string{config.EnvAuditHashSuite},
		},
		&cli.IntFlag{
			Name:    "chunk-size",
			Usage:   "Bytes read from the shard per chunk",
			Value:   config.DefaultChunkSize,
			EnvVars: []string{config.EnvAuditChunkSize},
		},
		&cli.IntFlag{
			Name:    "read-rate-limit",
			Usage:   "Shard bytes read per second across all audits (0 = unlimited)",
			EnvVars: []string{config.EnvAuditReadRateLimit},
		},
	}
}

func storeFlags() []cli.Flag {
	return append(persistenceFlags(), streamFlags()...)
}

func serveFlags() []cli.Flag {
	return []cli.Flag{
		&cli.IntFlag{
			Name:    "port",
			Aliases: []string{"p"},
			Value:   config.DefaultPort,
			Usage:   "HTTP server port",
			EnvVars: []string{config.EnvAuditPort},
		},
		&cli.StringFlag{
			Name:     "shard-dir",
			Usage:    "Directory holding one file per shard, named by shard hash",
			EnvVars:  []string{config.EnvAuditShardDir},
			Required: true,
		},
	}
}

func newLogger(c *cli.Context) (*zap.Logger, error) {
	l, err := logger.NewLogger(&logger.LoggerConfig{Debug: c.Bool("verbose")})
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	return l, nil
}

func parsePersistenceConfig(c *cli.Context) config.PersistenceConfig {
	return config.PersistenceConfig{
		Type:           config.PersistenceType(c.String("persistence-type")),
		DataPath:       c.String("data-path"),
		RedisAddress:   c.String("redis-address"),
		RedisPassword:  c.String("redis-password"),
		RedisDB:        c.Int("redis-db"),
		RedisKeyPrefix: c.String("redis-key-prefix"),
	}
}

func parseHolderConfig(c *cli.Context) *config.HolderConfig {
	return &config.HolderConfig{
		Port:          c.Int("port"),
		ShardDir:      c.String("shard-dir"),
		HashSuite:     c.String("hash-suite"),
		ChunkSize:     c.Int("chunk-size"),
		ReadRateLimit: c.Int("read-rate-limit"),
		Persistence:   parsePersistenceConfig(c),
		Debug:         c.Bool("verbose"),
		Verbose:       c.Bool("verbose"),
	}
}

func runServe(c *cli.Context) error {
	l, err := newLogger(c)
	if err != nil {
		return err
	}
	defer func() { _ = l.Sync() }()

	holderConfig := parseHolderConfig(c)
	if err := holderConfig.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	store, err := factory.NewPersistence(&holderConfig.Persistence, l)
	if err != nil {
		return fmt.Errorf("failed to open commitment store: %w", err)
	}
	defer func() { _ = store.Close() }()

	shardStore, err := shards.NewFileShardStore(holderConfig.ShardDir, l)
	if err != nil {
		return fmt.Errorf("failed to open shard store: %w", err)
	}

	p, err := prover.NewProver(&prover.Config{
		HashSuite:     holderConfig.HashSuite,
		ChunkSize:     holderConfig.ChunkSize,
		ReadRateLimit: holderConfig.ReadRateLimit,
	}, store, shardStore, l)
	if err != nil {
		return fmt.Errorf("failed to create prover: %w", err)
	}

	n := node.NewNode(node.Config{Port: holderConfig.Port, Logger: l}, p, store)

	if c.Bool("verbose") {
		l.Sugar().Infow("Audit holder configuration",
			"port", holderConfig.Port,
			"shard_dir", holderConfig.ShardDir,
			"hash_suite", holderConfig.HashSuite,
			"chunk_size", holderConfig.ChunkSize,
			"read_rate_limit", holderConfig.ReadRateLimit,
			"persistence", holderConfig.Persistence.Type)
	}

	if err := n.Start(); err != nil {
		return fmt.Errorf("failed to start node: %w", err)
	}

	l.Sugar().Infow("Audit holder running", "port", holderConfig.Port)
	l.Sugar().Infow("Available endpoints",
		"commitments", "POST|GET|DELETE /audit/commitments",
		"prove", "POST /audit/prove",
		"history", "GET /audit/history",
		"health", "GET /health")

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	l.Sugar().Info("Shutting down audit holder")
	return n.Stop()
}

func runProve(c *cli.Context) error {
	l, err := newLogger(c)
	if err != nil {
		return err
	}
	defer func() { _ = l.Sync() }()

	leaves, err := readLeavesFile(c.Path("leaves"))
	if err != nil {
		return err
	}

	challenge, err := merkle.DecodeHex(c.String("challenge"))
	if err != nil {
		return fmt.Errorf("invalid challenge: %w", err)
	}

	suite, err := crypto.GetHashSuite(c.String("hash-suite"))
	if err != nil {
		return err
	}

	p, err := prover.NewProver(&prover.Config{
		HashSuite:     suite.Name(),
		ChunkSize:     c.Int("chunk-size"),
		ReadRateLimit: c.Int("read-rate-limit"),
	}, nil, nil, l)
	if err != nil {
		return err
	}

	shard := os.Stdin
	if path := c.Path("shard"); path != "-" {
		shard, err = os.Open(path)
		if err != nil {
			return fmt.Errorf("failed to open shard: %w", err)
		}
		defer func() { _ = shard.Close() }()
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	result, err := p.ProveReader(ctx, leaves, suite, challenge, shard)
	if err != nil {
		return err
	}

	l.Sugar().Debugw("Proof generated", "leaf_index", result.LeafIndex, "bytes_read", result.BytesRead)

	encoder := json.NewEncoder(c.App.Writer)
	return encoder.Encode(result.Proof)
}

func runCommit(c *cli.Context) error {
	l, err := newLogger(c)
	if err != nil {
		return err
	}
	defer func() { _ = l.Sync() }()

	leaves, err := readLeavesFile(c.Path("leaves"))
	if err != nil {
		return err
	}

	persistenceConfig := parsePersistenceConfig(c)
	if errs := persistenceConfig.Validate(nil); len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %w", errs.ToAggregate())
	}

	store, err := factory.NewPersistence(&persistenceConfig, l)
	if err != nil {
		return fmt.Errorf("failed to open commitment store: %w", err)
	}
	defer func() { _ = store.Close() }()

	p, err := prover.NewProver(&prover.Config{HashSuite: c.String("hash-suite")}, store, nil, l)
	if err != nil {
		return err
	}

	stored, err := p.RegisterCommitment(&types.AuditCommitment{
		ShardHash: c.String("shard-hash"),
		Leaves:    leaves,
		HashSuite: c.String("hash-suite"),
	})
	if err != nil {
		return err
	}

	encoder := json.NewEncoder(c.App.Writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(stored)
}

func runRequest(c *cli.Context) error {
	l, err := newLogger(c)
	if err != nil {
		return err
	}
	defer func() { _ = l.Sync() }()

	client, err := auditClient.NewClient(c.String("holder-url"), l)
	if err != nil {
		return err
	}

	resp, err := client.RequestProof(c.Context, c.String("shard-hash"), c.String("challenge"))
	if err != nil {
		return err
	}

	encoder := json.NewEncoder(c.App.Writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(resp)
}

// readLeavesFile reads a JSON array of hex leaves
func readLeavesFile(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read leaves file: %w", err)
	}

	var leaves []string
	if err := json.Unmarshal(data, &leaves); err != nil {
		return nil, fmt.Errorf("leaves file must hold a JSON array of hex strings: %w", err)
	}
	return leaves, nil
}
