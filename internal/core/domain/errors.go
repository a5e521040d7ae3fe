package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidInput = errors.New("invalid input")
	// ErrDomainNotAllowed is a policy rejection, not a transient failure: the
	// requested domain is outside the whitelist and no I/O was performed.
	ErrDomainNotAllowed = errors.New("domain not allowed")
	// ErrRetrieval marks a broken retrieval pipeline (e.g. malformed query
	// embedding), as opposed to an empty result.
	ErrRetrieval = errors.New("retrieval failure")
	ErrTemporary = errors.New("temporary failure")
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
