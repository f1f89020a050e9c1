// Package errorspkg provides common app errors.
package errorspkg

import "errors"

var (
	// ErrInternal indicates internal server error.
	ErrInternal = errors.New("internal")
	// ErrTransientStorage indicates a retryable storage fault that outlived the retry budget.
	ErrTransientStorage = errors.New("storage temporarily unavailable")
)
