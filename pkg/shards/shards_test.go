package shards

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/Layr-Labs/eigenx-storage-audit/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *FileShardStore {
	t.Helper()
	testLogger, _ := logger.NewLogger(&logger.LoggerConfig{Debug: false})

	store, err := NewFileShardStore(t.TempDir(), testLogger)
	require.NoError(t, err)
	return store
}

func TestValidateShardHash(t *testing.T) {
	testCases := []struct {
		name      string
		shardHash string
		valid     bool
	}{
		{"Hex", "0a1b2c3d", true},
		{"Upper hex", "ABCDEF", true},
		{"Empty", "", false},
		{"Odd length", "abc", false},
		{"Path traversal", "../etc/passwd", false},
		{"Separator", "ab/cd", false},
		{"Prefixed", "0xabcd", false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateShardHash(tc.shardHash)
			if tc.valid {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrInvalidShardHash)
			}
		})
	}
}

func TestFileShardStore_WriteAndOpen(t *testing.T) {
	store := newTestStore(t)
	data := bytes.Repeat([]byte("shard-bytes-"), 1000)

	n, err := store.WriteShard("abcd", bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, int64(len(data)), n)

	size, err := store.ShardSize("abcd")
	require.NoError(t, err)
	assert.Equal(t, int64(len(data)), size)

	rc, err := store.OpenShard("abcd")
	require.NoError(t, err)
	defer func() { _ = rc.Close() }()

	read, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, data, read)
}

func TestFileShardStore_WriteShard_Overwrites(t *testing.T) {
	store := newTestStore(t)

	_, err := store.WriteShard("abcd", bytes.NewReader([]byte("first")))
	require.NoError(t, err)
	_, err = store.WriteShard("abcd", bytes.NewReader([]byte("second")))
	require.NoError(t, err)

	rc, err := store.OpenShard("abcd")
	require.NoError(t, err)
	defer func() { _ = rc.Close() }()

	read, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "second", string(read))

	// No temporary files are left behind
	entries, err := os.ReadDir(store.dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestFileShardStore_NotFound(t *testing.T) {
	store := newTestStore(t)

	_, err := store.OpenShard("ffff")
	assert.ErrorIs(t, err, ErrShardNotFound)

	_, err = store.ShardSize("ffff")
	assert.ErrorIs(t, err, ErrShardNotFound)
}

func TestFileShardStore_RejectsInvalidHash(t *testing.T) {
	store := newTestStore(t)

	// A file outside the hex namespace must stay unreachable
	require.NoError(t, os.WriteFile(filepath.Join(store.dir, "notes.txt"), []byte("x"), 0600))

	_, err := store.OpenShard("notes.txt")
	assert.ErrorIs(t, err, ErrInvalidShardHash)

	_, err = store.WriteShard("../escape", bytes.NewReader(nil))
	assert.ErrorIs(t, err, ErrInvalidShardHash)

	_, err = store.ShardSize("")
	assert.ErrorIs(t, err, ErrInvalidShardHash)
}

func TestNewFileShardStore_EmptyDir(t *testing.T) {
	testLogger, _ := logger.NewLogger(&logger.LoggerConfig{Debug: false})

	_, err := NewFileShardStore("", testLogger)
	require.Error(t, err)
}

func TestNewFileShardStore_CreatesDir(t *testing.T) {
	testLogger, _ := logger.NewLogger(&logger.LoggerConfig{Debug: false})
	dir := filepath.Join(t.TempDir(), "nested", "shards")

	_, err := NewFileShardStore(dir, testLogger)
	require.NoError(t, err)

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}
