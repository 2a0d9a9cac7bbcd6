package generator

import "fmt"

// MalformedGenerationError means the model answered with something other
// than {post: {title, markdownContent}}. Retrying the same call is pointless.
type MalformedGenerationError struct {
	Reason string
	Raw    string
	Err    error
}

func (e *MalformedGenerationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("malformed generation: %s: %v", e.Reason, e.Err)
	}
	return "malformed generation: " + e.Reason
}

func (e *MalformedGenerationError) Unwrap() error {
	return e.Err
}
