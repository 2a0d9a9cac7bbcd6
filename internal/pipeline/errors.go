package pipeline

import (
	"errors"
	"fmt"

	"github.com/blog0/narrator/internal/generator"
	"github.com/blog0/narrator/internal/publishing"
)

// PostNotFoundError means the requested post does not exist.
type PostNotFoundError struct {
	PostID string
}

func (e *PostNotFoundError) Error() string {
	return fmt.Sprintf("post %s not found", e.PostID)
}

// EmptyContentError means the post has no text to narrate for a variant.
type EmptyContentError struct {
	PostID  string
	Variant Variant
}

func (e *EmptyContentError) Error() string {
	return fmt.Sprintf("post %s has no %s to narrate", e.PostID, e.Variant)
}

// StepError records the state a job was in when an upstream call failed.
type StepError struct {
	Job   string
	Key   string
	State State
	Err   error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("%s %s failed while %s: %v", e.Job, e.Key, e.State, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// IsFatal reports whether err stems from bad input that a retry with the same
// input would reproduce: a missing post, empty content, a malformed model
// answer or a non-retryable publishing rejection.
func IsFatal(err error) bool {
	var notFound *PostNotFoundError
	var empty *EmptyContentError
	var malformed *generator.MalformedGenerationError
	var apiErr *publishing.APIError

	switch {
	case errors.As(err, &notFound), errors.As(err, &empty), errors.As(err, &malformed):
		return true
	case errors.As(err, &apiErr):
		return !publishing.IsRetryable(err)
	}
	return false
}
