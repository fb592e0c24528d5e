package sqlite

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andromedus24/ledgerstore/internal/artifactstore"
	"github.com/andromedus24/ledgerstore/internal/types"
)

func newTestArtifactRepo(t *testing.T, mgr *DatabaseManager) (*ArtifactRepository, string) {
	t.Helper()
	blobs, err := artifactstore.New(t.TempDir())
	require.NoError(t, err)

	jobs := NewJobRepository(mgr, nil, NewEventRepository(mgr), nil)
	job, err := jobs.CreateJob(context.Background(), types.CreateJobRequest{
		Type:  types.JobTypeCapture,
		Title: "capture job",
	})
	require.NoError(t, err)

	return NewArtifactRepository(mgr, blobs), job.ID
}

func TestArtifactRepository_CreateAndGet(t *testing.T) {
	mgr := newTestManager(t)
	artifacts, jobID := newTestArtifactRepo(t, mgr)
	ctx := context.Background()

	data := []byte("hello")
	sum := sha256.Sum256(data)
	wantHash := hex.EncodeToString(sum[:])

	artifact, err := artifacts.CreateArtifact(ctx, types.CreateArtifactRequest{
		JobID: jobID,
		Type:  types.ArtifactTypeFile,
		Name:  "greeting.txt",
		Data:  data,
	})
	require.NoError(t, err)
	assert.Equal(t, wantHash, artifact.HashSHA256)
	assert.Equal(t, int64(len(data)), artifact.FileSize)

	fetchedData, err := artifacts.GetArtifactData(ctx, artifact.ID)
	require.NoError(t, err)
	assert.Equal(t, data, fetchedData)
}

func TestArtifactRepository_DeleteArtifact_HardDeleteProtectsSharedHash(t *testing.T) {
	mgr := newTestManager(t)
	artifacts, jobID := newTestArtifactRepo(t, mgr)
	ctx := context.Background()

	data := []byte("shared bytes")
	a1, err := artifacts.CreateArtifact(ctx, types.CreateArtifactRequest{
		JobID: jobID, Type: types.ArtifactTypeFile, Name: "a.txt", Data: data,
	})
	require.NoError(t, err)
	a2, err := artifacts.CreateArtifact(ctx, types.CreateArtifactRequest{
		JobID: jobID, Type: types.ArtifactTypeFile, Name: "b.txt", Data: data,
	})
	require.NoError(t, err)
	require.Equal(t, a1.HashSHA256, a2.HashSHA256)

	require.NoError(t, artifacts.DeleteArtifact(ctx, a1.ID, true))

	// a2 still references the same blob; its bytes must still be readable.
	remaining, err := artifacts.GetArtifactData(ctx, a2.ID)
	require.NoError(t, err)
	assert.Equal(t, data, remaining)
}

func TestArtifactRepository_GetArtifactStats_CountsByTypeAndSize(t *testing.T) {
	mgr := newTestManager(t)
	artifacts, jobID := newTestArtifactRepo(t, mgr)
	ctx := context.Background()

	a, err := artifacts.CreateArtifact(ctx, types.CreateArtifactRequest{
		JobID: jobID, Type: types.ArtifactTypeFile, Name: "a.txt", Data: []byte("12345"),
	})
	require.NoError(t, err)
	_, err = artifacts.CreateArtifact(ctx, types.CreateArtifactRequest{
		JobID: jobID, Type: types.ArtifactTypeLog, Name: "b.log", Data: []byte("abc"),
	})
	require.NoError(t, err)
	require.NoError(t, artifacts.DeleteArtifact(ctx, a.ID, false))

	stats, err := artifacts.GetArtifactStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.TotalArtifacts)
	assert.Equal(t, int64(3), stats.TotalSizeBytes)
	assert.Equal(t, int64(1), stats.DeletedCount)
	assert.Equal(t, int64(1), stats.ByType[types.ArtifactTypeLog])
	assert.Zero(t, stats.ByType[types.ArtifactTypeFile])
}

func TestArtifactRepository_SearchArtifacts_MatchesNameSubstring(t *testing.T) {
	mgr := newTestManager(t)
	artifacts, jobID := newTestArtifactRepo(t, mgr)
	ctx := context.Background()

	_, err := artifacts.CreateArtifact(ctx, types.CreateArtifactRequest{
		JobID: jobID, Type: types.ArtifactTypeFile, Name: "summary-report.txt", Data: []byte("x"),
	})
	require.NoError(t, err)
	_, err = artifacts.CreateArtifact(ctx, types.CreateArtifactRequest{
		JobID: jobID, Type: types.ArtifactTypeFile, Name: "unrelated.bin", Data: []byte("y"),
	})
	require.NoError(t, err)

	page, err := artifacts.SearchArtifacts(ctx, "summary", types.Pagination{Limit: 10})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "summary-report.txt", page.Items[0].Name)
}

func TestArtifactRepository_CleanupOldArtifacts_RemovesStaleSoftDeletes(t *testing.T) {
	mgr := newTestManager(t)
	artifacts, jobID := newTestArtifactRepo(t, mgr)
	ctx := context.Background()

	a, err := artifacts.CreateArtifact(ctx, types.CreateArtifactRequest{
		JobID: jobID, Type: types.ArtifactTypeFile, Name: "stale.txt", Data: []byte("stale"),
	})
	require.NoError(t, err)
	require.NoError(t, artifacts.DeleteArtifact(ctx, a.ID, false))

	// retentionDays=-1 pushes the cutoff into the future, so the
	// just-soft-deleted row is guaranteed to be past it regardless of
	// clock resolution.
	removed, err := artifacts.CleanupOldArtifacts(ctx, -1)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	_, err = artifacts.GetArtifactByID(ctx, a.ID)
	assert.Error(t, err)
}

func TestArtifactRepository_VerifyArtifactIntegrity_DetectsMissingBlob(t *testing.T) {
	mgr := newTestManager(t)
	artifacts, jobID := newTestArtifactRepo(t, mgr)
	ctx := context.Background()

	a, err := artifacts.CreateArtifact(ctx, types.CreateArtifactRequest{
		JobID: jobID, Type: types.ArtifactTypeFile, Name: "present.txt", Data: []byte("present"),
	})
	require.NoError(t, err)

	issues, err := artifacts.VerifyArtifactIntegrity(ctx)
	require.NoError(t, err)
	assert.Empty(t, issues)

	require.NoError(t, artifacts.blobs.Delete(ctx, a.HashSHA256))

	issues, err = artifacts.VerifyArtifactIntegrity(ctx)
	require.NoError(t, err)
	require.Len(t, issues, 1)
	assert.Equal(t, a.ID, issues[0].ArtifactID)
	assert.Equal(t, "missing-file", issues[0].Issue)
}

func TestArtifactRepository_DeleteArtifact_Soft(t *testing.T) {
	mgr := newTestManager(t)
	artifacts, jobID := newTestArtifactRepo(t, mgr)
	ctx := context.Background()

	a, err := artifacts.CreateArtifact(ctx, types.CreateArtifactRequest{
		JobID: jobID, Type: types.ArtifactTypeLog, Name: "run.log", Data: []byte("log line"),
	})
	require.NoError(t, err)

	require.NoError(t, artifacts.DeleteArtifact(ctx, a.ID, false))

	fetched, err := artifacts.GetArtifactByID(ctx, a.ID)
	require.NoError(t, err)
	assert.True(t, fetched.IsDeleted)
}
