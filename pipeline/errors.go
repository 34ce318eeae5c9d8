package pipeline

import "fmt"

// FeedError reports a feed that is missing, unreadable or malformed.
type FeedError struct {
	Feed string
	Err  error
}

func (e *FeedError) Error() string {
	return fmt.Sprintf("feed %s: %v", e.Feed, e.Err)
}

func (e *FeedError) Unwrap() error { return e.Err }

// TransformError reports a failed cleansing, conformance or store step.
type TransformError struct {
	Step string
	Err  error
}

func (e *TransformError) Error() string {
	return fmt.Sprintf("step %s: %v", e.Step, e.Err)
}

func (e *TransformError) Unwrap() error { return e.Err }
