package sqlite

import (
	"encoding/base64"
	"encoding/json"
	"strings"

	"github.com/andromedus24/ledgerstore/internal/errs"
)

// maxPageSize caps QueryJobs/QueryArtifacts/QueryEvents regardless of the
// caller's requested limit.
const maxPageSize = 1000

// defaultPageSize is used when Pagination.Limit is zero.
const defaultPageSize = 50

// clampLimit resolves a requested page size against the defaults above.
func clampLimit(requested int) int {
	if requested <= 0 {
		return defaultPageSize
	}
	if requested > maxPageSize {
		return maxPageSize
	}
	return requested
}

// cursorPayload is the decoded shape of an opaque pagination cursor: the
// sort column's value and the row id, used as a composite keyset so ties
// on the sort column don't skip or repeat rows.
type cursorPayload struct {
	Value string `json:"v"`
	ID    string `json:"id"`
}

// encodeCursor builds an opaque, base64-encoded JSON cursor from a sort
// value and row id.
func encodeCursor(value, id string) string {
	data, _ := json.Marshal(cursorPayload{Value: value, ID: id})
	return base64.URLEncoding.EncodeToString(data)
}

// decodeCursor reverses encodeCursor, returning a ValidationError with
// CodeInvalidCursor if the cursor is malformed.
func decodeCursor(cursor string) (cursorPayload, error) {
	raw, err := base64.URLEncoding.DecodeString(cursor)
	if err != nil {
		return cursorPayload{}, errs.NewValidation(errs.CodeInvalidCursor, "cursor is not valid base64")
	}
	var p cursorPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return cursorPayload{}, errs.NewValidation(errs.CodeInvalidCursor, "cursor is not valid JSON")
	}
	return p, nil
}

// sqlBuilder accumulates WHERE clause fragments and their bound arguments
// for the filter compilers in jobs.go/artifacts.go/events.go.
type sqlBuilder struct {
	clauses []string
	args    []any
}

func (b *sqlBuilder) add(clause string, args ...any) {
	b.clauses = append(b.clauses, clause)
	b.args = append(b.args, args...)
}

func (b *sqlBuilder) where() string {
	if len(b.clauses) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(b.clauses, " AND ")
}
