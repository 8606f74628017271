package types

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrSchemaMismatch is matched by every *SchemaMismatchError
	ErrSchemaMismatch = errors.New("schema mismatch")
	// ErrLookupFailed is returned when no quote source could answer for a symbol
	ErrLookupFailed = errors.New("quote lookup failed")
	// ErrNoQuoteData is returned by a source that answered without any usable field
	ErrNoQuoteData = errors.New("quote has no usable fields")
	// ErrUnknownSource is returned for an unrecognized fundamentals source name
	ErrUnknownSource = errors.New("unknown fundamentals source")
)

// SchemaMismatchError lists the roles that could not be bound to a column
type SchemaMismatchError struct {
	Missing []Role
	Columns []string
}

func (e *SchemaMismatchError) Error() string {
	names := make([]string, 0, len(e.Missing))
	for _, r := range e.Missing {
		names = append(names, string(r))
	}
	return fmt.Sprintf("could not detect required columns: %s", strings.Join(names, ", "))
}

func (e *SchemaMismatchError) Is(target error) bool {
	return target == ErrSchemaMismatch
}
