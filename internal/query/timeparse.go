// Package query holds cross-cutting query-layer helpers for library
// callers — today, just natural-language date parsing for
// created_after/created_before filters. No ledgerctl command calls it.
package query

import (
	"time"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"

	"github.com/andromedus24/ledgerstore/internal/errs"
)

// parser is built once and reused; github.com/olebedev/when's Parser is
// safe for concurrent use once its rule set is assembled.
var parser = newParser()

func newParser() *when.Parser {
	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)
	return w
}

// ParseTime resolves s into a concrete time.Time, accepting either an
// RFC 3339 timestamp or a relative natural-language phrase ("yesterday",
// "last monday") resolved against now via github.com/olebedev/when — the
// same dependency the teacher's own deferred-task parsing draws on,
// given a home here for job-filter date arguments.
func ParseTime(s string, now time.Time) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}

	result, err := parser.Parse(s, now)
	if err != nil {
		return time.Time{}, errs.NewValidation(errs.CodeInvalidDateFilter, "could not parse date expression: "+s)
	}
	if result == nil {
		return time.Time{}, errs.NewValidation(errs.CodeInvalidDateFilter, "unrecognized date expression: "+s)
	}
	return result.Time, nil
}
