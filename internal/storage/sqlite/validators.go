package sqlite

import (
	"strings"

	"github.com/andromedus24/ledgerstore/internal/errs"
	"github.com/andromedus24/ledgerstore/internal/types"
)

// validateJobType mirrors the teacher's validatePriority/validateStatus
// style: a plain function returning a typed error, called at the top of
// every mutating repository method.
func validateJobType(t types.JobType) error {
	if !t.IsValid() {
		return errs.NewValidation(errs.CodeInvalidJobType, "unknown job type: "+string(t))
	}
	return nil
}

func validateJobStatus(s types.JobStatus) error {
	if !s.IsValid() {
		return errs.NewValidation(errs.CodeInvalidJobType, "unknown job status: "+string(s))
	}
	return nil
}

func validateArtifactType(t types.ArtifactType) error {
	if !t.IsValid() {
		return errs.NewValidation(errs.CodeInvalidArtifactType, "unknown artifact type: "+string(t))
	}
	return nil
}

func validateEventType(t types.EventType) error {
	if !t.IsValid() {
		return errs.NewValidation(errs.CodeInvalidEventType, "unknown event type: "+string(t))
	}
	return nil
}

func validateEventLevel(l types.EventLevel) error {
	if l == "" {
		return nil
	}
	if !l.IsValid() {
		return errs.NewValidation(errs.CodeInvalidLevel, "unknown event level: "+string(l))
	}
	return nil
}

func validateTitle(title string) error {
	if strings.TrimSpace(title) == "" {
		return errs.NewValidation(errs.CodeInvalidJobType, "title must not be empty")
	}
	return nil
}

func validateNonNegative(field string, v int64) error {
	if v < 0 {
		return errs.NewValidation(errs.CodeNegativeValue, field+" must not be negative")
	}
	return nil
}
