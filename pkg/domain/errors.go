package domain

import (
	"errors"
	"fmt"
)

// error kinds surfaced by the retrieval pipeline, none of them are retried
var (
	ErrNetwork  = errors.New("network error")
	ErrParse    = errors.New("parse error")
	ErrFetch    = errors.New("fetch error")
	ErrExtract  = errors.New("extract error")
	ErrNotFound = errors.New("not found")
	ErrCache    = errors.New("cache error")
)

// WrapError preserves the error kind with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return fmt.Errorf("%s: %w", operation, kind)
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}
