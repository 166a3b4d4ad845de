package toolman

import (
	"errors"
	"fmt"
	"reflect"
)

// Sentinel errors for toolman. Use errors.Is to check.
var (
	ErrToolNotFound    = errors.New("tool not found")
	ErrValidation      = errors.New("validation failed")
	ErrSchemaInference = errors.New("schema inference failed")
	ErrInvalidSchema   = errors.New("invalid schema")
	ErrInvalidTool     = errors.New("invalid tool")
)

// toolErrorPrefix starts every in-band error text so callers can detect tool failures by substring.
const toolErrorPrefix = "Error in tool"

// SchemaInferenceError is returned when a parameter schema cannot be derived from a Go type,
// e.g. a field declared as any or a nested struct. Inference never guesses a type.
type SchemaInferenceError struct {
	Type   reflect.Type
	Field  string // Go field name; empty when the type itself is unsupported
	Reason string
}

func (e *SchemaInferenceError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("toolman: cannot infer schema from %v: %s", e.Type, e.Reason)
	}
	return fmt.Sprintf("toolman: cannot infer schema for field %s of %v: %s", e.Field, e.Type, e.Reason)
}

// Unwrap supports errors.Is(err, ErrSchemaInference).
func (e *SchemaInferenceError) Unwrap() error { return ErrSchemaInference }

// ClientError is a failure caused by the tool call itself (missing or mistyped argument,
// unknown field, bad enum value). Its Reason is meant to be read by the model.
// Err optionally wraps a sentinel (e.g. ErrValidation) for errors.Is/errors.As.
type ClientError struct {
	Reason string
	Err    error
}

func (e *ClientError) Error() string {
	return fmt.Sprintf("invalid tool input: %s", e.Reason)
}

// Unwrap supports errors.Is/errors.As on wrapped chains (e.g. errors.Is(err, ErrValidation)).
func (e *ClientError) Unwrap() error { return e.Err }

// SystemError is a failure raised by the tool implementation (returned error or panic).
type SystemError struct {
	Err error
}

func (e *SystemError) Error() string {
	return "tool execution failed: " + e.Err.Error()
}

func (e *SystemError) Unwrap() error { return e.Err }

// IsClientError returns true if err is or wraps a ClientError.
func IsClientError(err error) bool {
	var ce *ClientError
	return errors.As(err, &ce)
}

// IsSystemError returns true if err is or wraps a SystemError.
func IsSystemError(err error) bool {
	var se *SystemError
	return errors.As(err, &se)
}

// validationError returns a ClientError wrapping ErrValidation.
func validationError(format string, args ...any) error {
	return &ClientError{Reason: fmt.Sprintf(format, args...), Err: ErrValidation}
}

// errorReason extracts the human-readable part of an execution failure.
func errorReason(err error) string {
	var ce *ClientError
	if errors.As(err, &ce) {
		return ce.Reason
	}
	var se *SystemError
	if errors.As(err, &se) && se.Err != nil {
		return se.Err.Error()
	}
	return err.Error()
}

// formatToolError renders the uniform in-band error text: Error in tool '<name>': <reason>.
func formatToolError(name string, err error) string {
	return fmt.Sprintf("%s '%s': %s", toolErrorPrefix, name, errorReason(err))
}

// panicError wraps a recovered panic value for SystemError; used by Registry and WithRecovery middleware.
type panicError struct{ p any }

func (e *panicError) Error() string {
	return "panic: " + fmt.Sprint(e.p)
}
