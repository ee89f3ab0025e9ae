package logging

import "fmt"

// OperationError annotates an error with the pipeline stage that produced it
// and the file that stage was working on.
type OperationError struct {
	// Operation is the stage name, e.g. "load image" or "predict".
	Operation string
	// Path is the image or model artifact path, empty when not applicable.
	Path string
	Err  error
}

// Error implements the error interface.
func (e *OperationError) Error() string {
	if e == nil || e.Err == nil {
		return ""
	}
	if e.Path != "" {
		return fmt.Sprintf("%s (%s): %v", e.Operation, e.Path, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Operation, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *OperationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// NewOperationError wraps err with the stage and the image or model path it
// concerned. A nil err stays nil.
func NewOperationError(operation, path string, err error) error {
	if err == nil {
		return nil
	}
	return &OperationError{Operation: operation, Path: path, Err: err}
}
