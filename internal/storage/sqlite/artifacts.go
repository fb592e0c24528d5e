package sqlite

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/andromedus24/ledgerstore/internal/artifactstore"
	"github.com/andromedus24/ledgerstore/internal/errs"
	"github.com/andromedus24/ledgerstore/internal/types"
)

// ArtifactRepository implements storage.ArtifactStore, splitting each
// artifact between a database row (metadata, hash, path) and a blob on
// disk managed by artifactstore.Store.
type ArtifactRepository struct {
	mgr   *DatabaseManager
	blobs *artifactstore.Store
}

// NewArtifactRepository constructs an ArtifactRepository.
func NewArtifactRepository(mgr *DatabaseManager, blobs *artifactstore.Store) *ArtifactRepository {
	return &ArtifactRepository{mgr: mgr, blobs: blobs}
}

const artifactColumns = `id, job_id, type, name, file_path, file_size, mime_type, hash_sha256, metadata, is_deleted, created_at, updated_at`

func scanArtifact(row interface{ Scan(...any) error }) (*types.JobArtifact, error) {
	var a types.JobArtifact
	var mimeType sql.NullString
	var isDeleted int
	err := row.Scan(&a.ID, &a.JobID, &a.Type, &a.Name, &a.FilePath, &a.FileSize, &mimeType, &a.HashSHA256, &a.Metadata, &isDeleted, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if mimeType.Valid {
		a.MimeType = &mimeType.String
	}
	a.IsDeleted = isDeleted != 0
	return &a, nil
}

// CreateArtifact writes req.Data to the blob store, then inserts the
// metadata row. Two artifacts with identical bytes share one blob on disk
// (artifactstore.Store.Write is itself idempotent on hash), so dedup is
// automatic and requires no extra bookkeeping here.
func (r *ArtifactRepository) CreateArtifact(ctx context.Context, req types.CreateArtifactRequest) (*types.JobArtifact, error) {
	if err := validateArtifactType(req.Type); err != nil {
		return nil, err
	}

	var hash, relPath string
	var size int64
	var err error
	if artifactstore.ShouldStream(int64(len(req.Data))) {
		hash, size, relPath, err = r.blobs.WriteStream(ctx, bytes.NewReader(req.Data))
	} else {
		hash, size, relPath, err = r.blobs.Write(ctx, req.Data)
	}
	if err != nil {
		return nil, err
	}

	id := req.ID
	if id == "" {
		id = uuid.NewString()
	}
	metadata := req.Metadata
	if metadata == "" {
		metadata = "{}"
	}

	now := time.Now().UTC()
	_, err = r.mgr.DB().ExecContext(ctx, `
		INSERT INTO job_artifacts (id, job_id, type, name, file_path, file_size, mime_type, hash_sha256, metadata, is_deleted, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, 0, ?, ?)
	`, id, req.JobID, req.Type, req.Name, relPath, size, req.MimeType, hash, metadata, now, now)
	if err != nil {
		return nil, errs.NewDatabase(errs.CodeCreateArtifactFailed, "failed to insert artifact row", err)
	}

	return r.GetArtifactByID(ctx, id)
}

// GetArtifactByID fetches one artifact row.
func (r *ArtifactRepository) GetArtifactByID(ctx context.Context, id string) (*types.JobArtifact, error) {
	row := r.mgr.DB().QueryRowContext(ctx, "SELECT "+artifactColumns+" FROM job_artifacts WHERE id = ?", id)
	a, err := scanArtifact(row)
	if err == sql.ErrNoRows {
		return nil, errs.NewNotFound(errs.CodeArtifactNotFound, "artifact "+id+" not found")
	}
	if err != nil {
		return nil, errs.NewDatabase(errs.CodeStatsFailed, "failed to scan artifact", err)
	}
	return a, nil
}

// GetArtifactData loads the blob bytes for an artifact.
func (r *ArtifactRepository) GetArtifactData(ctx context.Context, id string) ([]byte, error) {
	a, err := r.GetArtifactByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return r.blobs.Read(ctx, a.HashSHA256)
}

// QueryArtifacts compiles filter into SQL and paginates, same keyset
// strategy as JobRepository.QueryJobs, sorted by created_at descending.
func (r *ArtifactRepository) QueryArtifacts(ctx context.Context, filter types.ArtifactFilter, page types.Pagination) (types.Page[*types.JobArtifact], error) {
	limit := clampLimit(page.Limit)

	b := &sqlBuilder{}
	applyArtifactFilter(b, filter)

	if page.Cursor != "" {
		cur, err := decodeCursor(page.Cursor)
		if err != nil {
			return types.Page[*types.JobArtifact]{}, err
		}
		b.add("(created_at, id) < (?, ?)", cur.Value, cur.ID)
	}

	query := fmt.Sprintf(
		"SELECT %s FROM job_artifacts%s ORDER BY created_at DESC, id DESC LIMIT ?",
		artifactColumns, b.where(),
	)
	args := append(append([]any{}, b.args...), limit+1)

	rows, err := r.mgr.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return types.Page[*types.JobArtifact]{}, errs.NewDatabase(errs.CodeStatsFailed, "failed to query artifacts", err)
	}
	defer rows.Close()

	var items []*types.JobArtifact
	for rows.Next() {
		a, err := scanArtifact(rows)
		if err != nil {
			return types.Page[*types.JobArtifact]{}, errs.NewDatabase(errs.CodeStatsFailed, "failed to scan artifact row", err)
		}
		items = append(items, a)
	}

	result := types.Page[*types.JobArtifact]{}
	if len(items) > limit {
		items = items[:limit]
		result.HasMore = true
	}
	result.Items = items
	if result.HasMore && len(items) > 0 {
		last := items[len(items)-1]
		result.NextCursor = encodeCursor(last.CreatedAt.Format(time.RFC3339Nano), last.ID)
	}
	return result, nil
}

// GetArtifactsByJob returns every non-deleted artifact for a job, oldest
// first, with no pagination — jobs rarely produce more than a handful.
func (r *ArtifactRepository) GetArtifactsByJob(ctx context.Context, jobID string) ([]*types.JobArtifact, error) {
	rows, err := r.mgr.DB().QueryContext(ctx,
		"SELECT "+artifactColumns+" FROM job_artifacts WHERE job_id = ? AND is_deleted = 0 ORDER BY created_at ASC", jobID)
	if err != nil {
		return nil, errs.NewDatabase(errs.CodeStatsFailed, "failed to query job artifacts", err)
	}
	defer rows.Close()

	var items []*types.JobArtifact
	for rows.Next() {
		a, err := scanArtifact(rows)
		if err != nil {
			return nil, errs.NewDatabase(errs.CodeStatsFailed, "failed to scan artifact row", err)
		}
		items = append(items, a)
	}
	return items, nil
}

// UpdateArtifact applies a sparse patch to name/metadata.
func (r *ArtifactRepository) UpdateArtifact(ctx context.Context, id string, req types.UpdateArtifactRequest) (*types.JobArtifact, error) {
	existing, err := r.GetArtifactByID(ctx, id)
	if err != nil {
		return nil, err
	}

	set := []string{}
	args := []any{}
	if req.Name != nil {
		set = append(set, "name = ?")
		args = append(args, *req.Name)
	}
	if req.Metadata != nil {
		merged, err := mergeJSON(existing.Metadata, *req.Metadata)
		if err != nil {
			return nil, errs.NewValidation(errs.CodeInvalidArtifactType, "metadata is not valid JSON: "+err.Error())
		}
		set = append(set, "metadata = ?")
		args = append(args, merged)
	}
	if len(set) == 0 {
		return existing, nil
	}
	set = append(set, "updated_at = ?")
	args = append(args, time.Now().UTC())
	args = append(args, id)

	query := "UPDATE job_artifacts SET " + joinComma(set) + " WHERE id = ?"
	if _, err := r.mgr.DB().ExecContext(ctx, query, args...); err != nil {
		return nil, errs.NewDatabase(errs.CodeStatsFailed, "failed to update artifact", err)
	}
	return r.GetArtifactByID(ctx, id)
}

// DeleteArtifact soft-deletes by default (is_deleted = 1, row retained for
// audit). Hard delete also removes the database row and, per spec
// invariant I4, the underlying blob — but only when no other non-deleted
// artifact row still references the same hash.
func (r *ArtifactRepository) DeleteArtifact(ctx context.Context, id string, hard bool) error {
	existing, err := r.GetArtifactByID(ctx, id)
	if err != nil {
		return err
	}

	if !hard {
		_, err := r.mgr.DB().ExecContext(ctx, "UPDATE job_artifacts SET is_deleted = 1, updated_at = ? WHERE id = ?", time.Now().UTC(), id)
		if err != nil {
			return errs.NewDatabase(errs.CodeStatsFailed, "failed to soft-delete artifact", err)
		}
		return nil
	}

	return r.mgr.executeInTransaction(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM job_artifacts WHERE id = ?", id); err != nil {
			return err
		}
		var otherRefs int
		err := tx.QueryRowContext(ctx,
			"SELECT COUNT(*) FROM job_artifacts WHERE hash_sha256 = ? AND id != ? AND is_deleted = 0",
			existing.HashSHA256, id,
		).Scan(&otherRefs)
		if err != nil {
			return err
		}
		if otherRefs == 0 {
			if err := r.blobs.Delete(ctx, existing.HashSHA256); err != nil {
				return err
			}
		}
		return nil
	})
}

// GetArtifactStats aggregates counts and total size across every
// artifact row, analogous in style to UsageRepository.GetDashboardStats's
// totals-then-group-by aggregation.
func (r *ArtifactRepository) GetArtifactStats(ctx context.Context) (*types.ArtifactStats, error) {
	stats := &types.ArtifactStats{ByType: map[types.ArtifactType]int64{}}

	row := r.mgr.DB().QueryRowContext(ctx, `
		SELECT
			COALESCE(SUM(CASE WHEN is_deleted = 0 THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN is_deleted = 0 THEN file_size ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN is_deleted = 1 THEN 1 ELSE 0 END), 0)
		FROM job_artifacts
	`)
	if err := row.Scan(&stats.TotalArtifacts, &stats.TotalSizeBytes, &stats.DeletedCount); err != nil {
		return nil, errs.NewDatabase(errs.CodeStatsFailed, "failed to query artifact stats", err)
	}

	typeRows, err := r.mgr.DB().QueryContext(ctx, "SELECT type, COUNT(*) FROM job_artifacts WHERE is_deleted = 0 GROUP BY type")
	if err != nil {
		return nil, errs.NewDatabase(errs.CodeStatsFailed, "failed to query artifacts by type", err)
	}
	defer typeRows.Close()
	for typeRows.Next() {
		var t types.ArtifactType
		var n int64
		if err := typeRows.Scan(&t, &n); err != nil {
			return nil, errs.NewDatabase(errs.CodeStatsFailed, "failed to scan artifact-by-type row", err)
		}
		stats.ByType[t] = n
	}
	return stats, nil
}

// SearchArtifacts is a convenience over QueryArtifacts for a free-text
// name search, returning the same cursor-paginated Page shape.
func (r *ArtifactRepository) SearchArtifacts(ctx context.Context, query string, page types.Pagination) (types.Page[*types.JobArtifact], error) {
	return r.QueryArtifacts(ctx, types.ArtifactFilter{NameContains: &query}, page)
}

// CleanupOldArtifacts hard-deletes every soft-deleted artifact row whose
// updated_at is older than retentionDays, then sweeps any blob left
// unreferenced on disk, mirroring RollupEngine.CleanupOldStats's
// retention-window style.
func (r *ArtifactRepository) CleanupOldArtifacts(ctx context.Context, retentionDays int) (int, error) {
	cutoff := time.Now().UTC().AddDate(0, 0, -retentionDays)

	rows, err := r.mgr.DB().QueryContext(ctx,
		"SELECT id FROM job_artifacts WHERE is_deleted = 1 AND updated_at < ?", cutoff)
	if err != nil {
		return 0, errs.NewDatabase(errs.CodeStatsFailed, "failed to query stale artifacts", err)
	}
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return 0, errs.NewDatabase(errs.CodeStatsFailed, "failed to scan stale artifact id", err)
		}
		ids = append(ids, id)
	}
	rows.Close()

	removed := 0
	for _, id := range ids {
		if err := r.DeleteArtifact(ctx, id, true); err != nil {
			return removed, err
		}
		removed++
	}

	referenced, err := r.referencedHashes(ctx)
	if err != nil {
		return removed, err
	}
	if _, err := r.blobs.Cleanup(ctx, referenced); err != nil {
		return removed, err
	}
	return removed, nil
}

func (r *ArtifactRepository) referencedHashes(ctx context.Context) (map[string]bool, error) {
	rows, err := r.mgr.DB().QueryContext(ctx, "SELECT DISTINCT hash_sha256 FROM job_artifacts WHERE is_deleted = 0")
	if err != nil {
		return nil, errs.NewDatabase(errs.CodeStatsFailed, "failed to query referenced hashes", err)
	}
	defer rows.Close()
	referenced := map[string]bool{}
	for rows.Next() {
		var hash string
		if err := rows.Scan(&hash); err != nil {
			return nil, errs.NewDatabase(errs.CodeStatsFailed, "failed to scan referenced hash", err)
		}
		referenced[hash] = true
	}
	return referenced, nil
}

// VerifyArtifactIntegrity checks every non-deleted artifact row against
// its blob on disk, delegating to artifactstore.Store.VerifyIntegrity.
func (r *ArtifactRepository) VerifyArtifactIntegrity(ctx context.Context) ([]types.IntegrityIssue, error) {
	rows, err := r.mgr.DB().QueryContext(ctx, "SELECT "+artifactColumns+" FROM job_artifacts WHERE is_deleted = 0")
	if err != nil {
		return nil, errs.NewDatabase(errs.CodeStatsFailed, "failed to query artifacts for integrity check", err)
	}
	defer rows.Close()

	var artifacts []*types.JobArtifact
	for rows.Next() {
		a, err := scanArtifact(rows)
		if err != nil {
			return nil, errs.NewDatabase(errs.CodeStatsFailed, "failed to scan artifact row", err)
		}
		artifacts = append(artifacts, a)
	}

	return r.blobs.VerifyIntegrity(ctx, artifacts)
}

func applyArtifactFilter(b *sqlBuilder, f types.ArtifactFilter) {
	if f.JobID != nil {
		b.add("job_id = ?", *f.JobID)
	}
	if f.Type != nil {
		b.add("type = ?", *f.Type)
	}
	if f.NameContains != nil {
		b.add("name LIKE ? ESCAPE '\\'", "%"+escapeLike(*f.NameContains)+"%")
	}
	if f.HashSHA256 != nil {
		b.add("hash_sha256 = ?", *f.HashSHA256)
	}
	if f.CreatedAfter != nil {
		b.add("created_at >= ?", *f.CreatedAfter)
	}
	if f.CreatedBefore != nil {
		b.add("created_at <= ?", *f.CreatedBefore)
	}
	if !f.IncludeDeleted {
		b.add("is_deleted = 0")
	}
}
