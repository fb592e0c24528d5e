package types

import "time"

// ArtifactType enumerates the kinds of byte blob a job can produce.
type ArtifactType string

const (
	ArtifactTypeScreenshot ArtifactType = "screenshot"
	ArtifactTypeFile       ArtifactType = "file"
	ArtifactTypeLog        ArtifactType = "log"
	ArtifactTypeResult     ArtifactType = "result"
	ArtifactTypePreview    ArtifactType = "preview"
)

// IsValid reports whether t is one of the declared artifact types.
func (t ArtifactType) IsValid() bool {
	switch t {
	case ArtifactTypeScreenshot, ArtifactTypeFile, ArtifactTypeLog, ArtifactTypeResult, ArtifactTypePreview:
		return true
	}
	return false
}

// JobArtifact is a content-addressed byte blob produced by a job.
type JobArtifact struct {
	ID          string
	JobID       string
	Type        ArtifactType
	Name        string
	FilePath    string // relative to the storage root
	FileSize    int64
	MimeType    *string
	HashSHA256  string
	Metadata    string
	IsDeleted   bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// CreateArtifactRequest is the input contract for storing artifact bytes.
// Data is consumed once; the caller retains no obligation to keep it alive
// past the call.
type CreateArtifactRequest struct {
	ID       string
	JobID    string
	Type     ArtifactType
	Name     string
	Data     []byte
	MimeType *string
	Metadata string
}

// UpdateArtifactRequest carries a sparse set of mutable artifact fields.
type UpdateArtifactRequest struct {
	Name     *string
	Metadata *string
}

// ArtifactFilter is the set of predicates accepted by ArtifactRepository
// queries.
type ArtifactFilter struct {
	JobID         *string
	Type          *ArtifactType
	NameContains  *string
	HashSHA256    *string
	CreatedAfter  *time.Time
	CreatedBefore *time.Time
	IncludeDeleted bool
}

// IntegrityIssue is one finding from ArtifactStorage.VerifyIntegrity.
type IntegrityIssue struct {
	ArtifactID string
	Issue      string // "missing-file" | "hash-mismatch" | "size-mismatch"
}

// ArtifactStats aggregates storage-wide artifact counts and size,
// returned by ArtifactRepository.GetArtifactStats.
type ArtifactStats struct {
	TotalArtifacts int64
	TotalSizeBytes int64
	ByType         map[ArtifactType]int64
	DeletedCount   int64
}
