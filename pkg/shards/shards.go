package shards

import (
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

var (
	ErrInvalidShardHash = errors.New("shard hash must be a non-empty hex string")
	ErrShardNotFound    = errors.New("shard not found")
)

// IShardReader opens stored shards for streaming
type IShardReader interface {
	OpenShard(shardHash string) (io.ReadCloser, error)
}

// IShardStore is a shard reader that can also accept new shards
type IShardStore interface {
	IShardReader
	WriteShard(shardHash string, r io.Reader) (int64, error)
	ShardSize(shardHash string) (int64, error)
}

// FileShardStore keeps one file per shard under a directory, named by shard hash
type FileShardStore struct {
	dir    string
	logger *zap.Logger
}

// NewFileShardStore creates the directory if needed and returns a store rooted at it
func NewFileShardStore(dir string, logger *zap.Logger) (*FileShardStore, error) {
	if dir == "" {
		return nil, fmt.Errorf("shard directory cannot be empty")
	}
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve absolute path: %w", err)
	}
	if err := os.MkdirAll(absDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create shard directory %s: %w", absDir, err)
	}

	return &FileShardStore{
		dir:    absDir,
		logger: logger,
	}, nil
}

// ValidateShardHash rejects anything but a hex string, so a shard hash can
// never escape the store directory
func ValidateShardHash(shardHash string) error {
	if shardHash == "" {
		return ErrInvalidShardHash
	}
	if _, err := hex.DecodeString(shardHash); err != nil {
		return errors.Wrapf(ErrInvalidShardHash, "%q", shardHash)
	}
	return nil
}

func (s *FileShardStore) path(shardHash string) string {
	return filepath.Join(s.dir, shardHash)
}

// OpenShard opens the shard for reading. The caller closes it.
func (s *FileShardStore) OpenShard(shardHash string) (io.ReadCloser, error) {
	if err := ValidateShardHash(shardHash); err != nil {
		return nil, err
	}

	f, err := os.Open(s.path(shardHash))
	if os.IsNotExist(err) {
		return nil, errors.Wrapf(ErrShardNotFound, "shard %s", shardHash)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open shard %s: %w", shardHash, err)
	}
	return f, nil
}

// ShardSize returns the stored size of a shard in bytes
func (s *FileShardStore) ShardSize(shardHash string) (int64, error) {
	if err := ValidateShardHash(shardHash); err != nil {
		return 0, err
	}

	info, err := os.Stat(s.path(shardHash))
	if os.IsNotExist(err) {
		return 0, errors.Wrapf(ErrShardNotFound, "shard %s", shardHash)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to stat shard %s: %w", shardHash, err)
	}
	return info.Size(), nil
}

// WriteShard stores r under shardHash. The data is written to a temporary
// file and renamed into place, so readers never see a partial shard.
func (s *FileShardStore) WriteShard(shardHash string, r io.Reader) (int64, error) {
	if err := ValidateShardHash(shardHash); err != nil {
		return 0, err
	}

	tmp, err := os.CreateTemp(s.dir, ".incoming-*")
	if err != nil {
		return 0, fmt.Errorf("failed to create temporary shard file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	n, err := io.Copy(tmp, r)
	if err != nil {
		_ = tmp.Close()
		return 0, fmt.Errorf("failed to write shard %s: %w", shardHash, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return 0, fmt.Errorf("failed to sync shard %s: %w", shardHash, err)
	}
	if err := tmp.Close(); err != nil {
		return 0, fmt.Errorf("failed to close shard %s: %w", shardHash, err)
	}
	if err := os.Rename(tmpName, s.path(shardHash)); err != nil {
		return 0, fmt.Errorf("failed to move shard %s into place: %w", shardHash, err)
	}

	s.logger.Sugar().Debugw("Stored shard", "shard_hash", shardHash, "bytes", n)
	return n, nil
}
