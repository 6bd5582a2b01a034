package filter

import "fmt"

// MissingAttributeError is returned under the raise policy when a record
// has no value for the filtered key.
type MissingAttributeError struct {
	Key      string
	RecordID string
	Content  string
}

func (e *MissingAttributeError) Error() string {
	return fmt.Sprintf("task %s (%q) has no value for %q", e.RecordID, e.Content, e.Key)
}

// UnknownTransformError is returned for a value transform name that is not
// in the transform table.
type UnknownTransformError struct {
	Name  string
	Known []string
}

func (e *UnknownTransformError) Error() string {
	return fmt.Sprintf("unknown value transform %q (known: %v)", e.Name, e.Known)
}

// InvalidPolicyError is returned for an unrecognized missing-value policy.
type InvalidPolicyError struct {
	Policy string
}

func (e *InvalidPolicyError) Error() string {
	return fmt.Sprintf("invalid missing policy %q (expected raise, include, exclude or default)", e.Policy)
}

// UsageError is returned when a filter action is given too few or
// unrecognized arguments.
type UsageError struct {
	Msg string
}

func (e *UsageError) Error() string {
	return e.Msg
}
