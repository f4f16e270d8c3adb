package model

import (
	"errors"
	"fmt"
)

var (
	ErrRateLimitExceeded  = errors.New("rate limit exceeded")
	ErrRepositoryNotFound = errors.New("repository not found")
	ErrInvalidToken       = errors.New("invalid token")
)

// InvalidReferenceError reports a repository URL that does not have the
// https://<host>/<owner>/<name> shape.
type InvalidReferenceError struct {
	URL    string
	Reason string
}

func (e *InvalidReferenceError) Error() string {
	return fmt.Sprintf("invalid repository URL %q: %s", e.URL, e.Reason)
}

// TransportError reports a non-2xx response or a broken stream.
type TransportError struct {
	Op         string
	URL        string
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s %s: HTTP %d: %v", e.Op, e.URL, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.URL, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// FilesystemError reports a local read or write failure.
type FilesystemError struct {
	Op   string
	Path string
	Err  error
}

func (e *FilesystemError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *FilesystemError) Unwrap() error {
	return e.Err
}

// FetchError wraps every failure on the download-and-extract path.
type FetchError struct {
	Cause string
	Err   error
}

func (e *FetchError) Error() string {
	return "failed to process repository: " + e.Cause
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

func NewFetchError(err error) *FetchError {
	return &FetchError{Cause: err.Error(), Err: err}
}
