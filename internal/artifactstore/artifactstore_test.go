package artifactstore

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andromedus24/ledgerstore/internal/types"
)

func TestStore_Write_IsContentAddressedAndDeduplicates(t *testing.T) {
	s, err := New(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	data := []byte("hello world")
	sum := sha256.Sum256(data)
	wantHash := hex.EncodeToString(sum[:])

	hash1, size1, rel1, err := s.Write(ctx, data)
	require.NoError(t, err)
	assert.Equal(t, wantHash, hash1)
	assert.Equal(t, int64(len(data)), size1)
	assert.Equal(t, filepath.Join(wantHash[:2], wantHash[2:4], wantHash), rel1)

	hash2, size2, _, err := s.Write(ctx, data)
	require.NoError(t, err)
	assert.Equal(t, hash1, hash2)
	assert.Equal(t, size1, size2)
}

func TestStore_WriteStream_MatchesWrite(t *testing.T) {
	s, err := New(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	data := bytes.Repeat([]byte("x"), 5<<20) // above streamThreshold
	assert.True(t, ShouldStream(int64(len(data))))

	hash, size, _, err := s.WriteStream(ctx, bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, int64(len(data)), size)

	got, err := s.Read(ctx, hash)
	require.NoError(t, err)
	assert.Equal(t, data, got)
}

func TestStore_Read_MissingBlob(t *testing.T) {
	s, err := New(t.TempDir())
	require.NoError(t, err)

	_, err = s.Read(context.Background(), "deadbeef")
	assert.Error(t, err)
}

func TestStore_Stream_ReturnsReadableCloser(t *testing.T) {
	s, err := New(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	hash, _, _, err := s.Write(ctx, []byte("stream me"))
	require.NoError(t, err)

	rc, err := s.Stream(ctx, hash)
	require.NoError(t, err)
	defer rc.Close()

	got, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "stream me", string(got))
}

func TestStore_Delete_RemovesBlob(t *testing.T) {
	s, err := New(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	hash, _, _, err := s.Write(ctx, []byte("to delete"))
	require.NoError(t, err)
	assert.True(t, s.Exists(hash))

	require.NoError(t, s.Delete(ctx, hash))
	assert.False(t, s.Exists(hash))

	// Deleting an already-missing blob is a no-op, not an error.
	require.NoError(t, s.Delete(ctx, hash))
}

func TestStore_VerifyIntegrity_DetectsMismatches(t *testing.T) {
	s, err := New(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	goodHash, goodSize, _, err := s.Write(ctx, []byte("good artifact"))
	require.NoError(t, err)

	missingHash := "deadbeefdeadbeefdeadbeefdeadbeefdeadbeefdeadbeefdeadbeefdeadbeef"

	badSizeHash, _, _, err := s.Write(ctx, []byte("size mismatch artifact"))
	require.NoError(t, err)

	artifacts := []*types.JobArtifact{
		{ID: "a1", HashSHA256: goodHash, FileSize: goodSize},
		{ID: "a2", HashSHA256: missingHash, FileSize: 10},
		{ID: "a3", HashSHA256: badSizeHash, FileSize: 999999},
	}

	issues, err := s.VerifyIntegrity(ctx, artifacts)
	require.NoError(t, err)
	require.Len(t, issues, 2)

	byID := map[string]string{}
	for _, iss := range issues {
		byID[iss.ArtifactID] = iss.Issue
	}
	assert.Equal(t, "missing-file", byID["a2"])
	assert.Equal(t, "size-mismatch", byID["a3"])
	_, stillFlagged := byID["a1"]
	assert.False(t, stillFlagged)
}

func TestStore_Cleanup_RemovesUnreferencedBlobs(t *testing.T) {
	s, err := New(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	keepHash, _, _, err := s.Write(ctx, []byte("keep me"))
	require.NoError(t, err)
	dropHash, _, _, err := s.Write(ctx, []byte("drop me"))
	require.NoError(t, err)

	removed, err := s.Cleanup(ctx, map[string]bool{keepHash: true})
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
	assert.True(t, s.Exists(keepHash))
	assert.False(t, s.Exists(dropHash))
}

func TestNew_CreatesBaseDirectory(t *testing.T) {
	base := filepath.Join(t.TempDir(), "nested", "artifacts")
	_, err := New(base)
	require.NoError(t, err)

	info, err := os.Stat(base)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}
