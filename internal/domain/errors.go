package domain

import "fmt"

// RemoteErrorKind classifies transport/service failures of the
// generative endpoints.
// Values include RemoteNetwork, RemoteQuota, and RemoteInvalidResponse.
type RemoteErrorKind string

const (
	RemoteNetwork         RemoteErrorKind = "network"
	RemoteQuota           RemoteErrorKind = "quota"
	RemoteInvalidResponse RemoteErrorKind = "invalid_response"
)

// ValidationError reports bad or missing local input.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed for %s: %s", e.Field, e.Reason)
}

// ParseError reports malformed model output that could not be turned
// into an idea table. Line is 1-based within the isolated delimited
// block; 0 means the whole response.
type ParseError struct {
	Line   int
	Reason string
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("parse failed at line %d: %s", e.Line, e.Reason)
	}
	return fmt.Sprintf("parse failed: %s", e.Reason)
}

// RemoteError reports a failure of a remote generation call.
type RemoteError struct {
	Kind RemoteErrorKind
	Op   string // "generate_text" or "generate_image"
	Err  error
}

func (e *RemoteError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("remote %s failed (%s): %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("remote %s failed (%s)", e.Op, e.Kind)
}

func (e *RemoteError) Unwrap() error {
	return e.Err
}

// EmptyResultError reports a remote call that succeeded but produced no
// usable payload. Image models signal a "safe" refusal this way, so it
// is a row-level failure, not a pipeline-level one.
type EmptyResultError struct {
	Op string
}

func (e *EmptyResultError) Error() string {
	return fmt.Sprintf("remote %s returned no usable result", e.Op)
}

// ExportError reports a failure during artifact/workbook assembly.
type ExportError struct {
	Reason string
	Err    error
}

func (e *ExportError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("export failed: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("export failed: %s", e.Reason)
}

func (e *ExportError) Unwrap() error {
	return e.Err
}

// StageError reports an operation attempted in the wrong session stage.
type StageError struct {
	Stage Stage
	Op    string
}

func (e *StageError) Error() string {
	return fmt.Sprintf("operation %s not allowed in stage %s", e.Op, e.Stage)
}
