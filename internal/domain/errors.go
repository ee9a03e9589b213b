package domain

import (
	"errors"
	"fmt"
)

// DomainError represents a domain-specific error
type DomainError struct {
	Code    string
	Message string
	Err     error
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is matches on error code so sentinel comparisons survive wrapping.
func (e *DomainError) Is(target error) bool {
	var t *DomainError
	if !errors.As(target, &t) {
		return false
	}
	return e.Code == t.Code && e.Message == t.Message
}

// NewDomainError creates a new DomainError
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     nil,
	}
}

// NewDomainErrorWithCause creates a new DomainError with an underlying cause
func NewDomainErrorWithCause(code, message string, err error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Common domain error codes
const (
	ErrCodeValidation            = "VALIDATION_ERROR"
	ErrCodeNotFound              = "NOT_FOUND"
	ErrCodeEmbedding             = "EMBEDDING_ERROR"
	ErrCodeDependencyUnavailable = "DEPENDENCY_UNAVAILABLE"
	ErrCodeInternalError         = "INTERNAL_ERROR"
)

// Dependency names the external collaborator behind a DependencyError.
type Dependency string

const (
	DependencyEmbedder    Dependency = "embedder"
	DependencyVectorIndex Dependency = "vector_index"
	DependencyChunkStore  Dependency = "chunk_store"
	DependencyGenerator   Dependency = "generator"
)

// DependencyError reports that an external collaborator was unreachable or timed out.
// It is always surfaced to the caller and never converted into a refusal.
type DependencyError struct {
	Dependency Dependency
	Err        error
}

func (e *DependencyError) Error() string {
	return fmt.Sprintf("[%s] %s unavailable: %v", ErrCodeDependencyUnavailable, e.Dependency, e.Err)
}

func (e *DependencyError) Unwrap() error {
	return e.Err
}

// NewDependencyError wraps err as an outage of dep. An existing DependencyError is returned as is.
func NewDependencyError(dep Dependency, err error) error {
	var existing *DependencyError
	if errors.As(err, &existing) {
		return err
	}
	return &DependencyError{Dependency: dep, Err: err}
}

// IsDependencyError reports whether err is a transient dependency failure.
func IsDependencyError(err error) bool {
	var depErr *DependencyError
	return errors.As(err, &depErr)
}

// DependencyOf returns the failing dependency, or "" when err is not a DependencyError.
func DependencyOf(err error) Dependency {
	var depErr *DependencyError
	if errors.As(err, &depErr) {
		return depErr.Dependency
	}
	return ""
}

// Validation errors
var (
	ErrEmptyQuestion       = NewDomainError(ErrCodeValidation, "question must not be empty")
	ErrTopKOutOfRange      = NewDomainError(ErrCodeValidation, "top_k out of range")
	ErrThresholdOutOfRange = NewDomainError(ErrCodeValidation, "similarity_threshold must be within [0, 1]")
	ErrInvalidSessionID    = NewDomainError(ErrCodeValidation, "invalid session id")
	ErrInvalidCursor       = NewDomainError(ErrCodeValidation, "invalid cursor")
)

// Embedding errors
var (
	ErrEmptyEmbeddingInput = NewDomainError(ErrCodeEmbedding, "cannot embed empty text")
	ErrEmbeddingDimensions = NewDomainError(ErrCodeEmbedding, "embedding has unexpected dimensions")
)

// Not found errors
var (
	ErrSessionNotFound = NewDomainError(ErrCodeNotFound, "chat session not found")
)
