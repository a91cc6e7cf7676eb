package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrConfig marks fatal configuration problems: missing provider
	// credentials, or an embedding-dimension mismatch between ingestion and
	// query time. Never retried.
	ErrConfig = errors.New("configuration error")
	// ErrTemporary marks transient provider failures that were retried and
	// may succeed later.
	ErrTemporary = errors.New("temporary failure")
	// ErrInvalidInput marks data errors handled at chunk or document
	// granularity.
	ErrInvalidInput     = errors.New("invalid input")
	ErrDocumentNotFound = errors.New("document not found")
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}
