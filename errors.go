package mandrill

import (
	"errors"
	"fmt"
)

// Kind classifies a failure. The set is closed; ExitCode maps every kind.
type Kind int

const (
	// KindUnknown is reported for errors that did not originate in this package.
	KindUnknown Kind = iota
	KindMissingCredential
	KindBadCommand
	KindMalformedResponse
	KindRemoteUpdateFailed
	KindTransportFailure
)

func (k Kind) String() string {
	switch k {
	case KindMissingCredential:
		return "missing_credential"
	case KindBadCommand:
		return "bad_command"
	case KindMalformedResponse:
		return "malformed_response"
	case KindRemoteUpdateFailed:
		return "remote_update_failed"
	case KindTransportFailure:
		return "transport_failure"
	default:
		return "unknown"
	}
}

// Exit codes. Credential and command errors are distinct from operational
// errors so callers can script on the code alone.
const (
	ExitOK          = 0
	ExitUsage       = 1
	ExitOperational = 2
)

// Sentinels for errors.Is. Any *Error matches the sentinel of its kind.
var (
	// ErrMissingCredential is returned when no API key could be resolved.
	ErrMissingCredential = &Error{Kind: KindMissingCredential}

	// ErrBadCommand is returned for an unrecognized or incomplete command.
	ErrBadCommand = &Error{Kind: KindBadCommand}

	// ErrMalformedResponse is returned when a response body is not the expected JSON.
	ErrMalformedResponse = &Error{Kind: KindMalformedResponse}

	// ErrRemoteUpdateFailed is returned when the update call answers with a non-2xx status.
	ErrRemoteUpdateFailed = &Error{Kind: KindRemoteUpdateFailed}

	// ErrTransportFailure is returned when a request never produced a response.
	ErrTransportFailure = &Error{Kind: KindTransportFailure}
)

// Error is the single error type returned by the Client.
// Extractable via errors.As(). Supports Unwrap().
type Error struct {
	Kind Kind

	// Operation names the step that failed (inspect, render, update, credential, command).
	Operation string

	// StatusCode is set for RemoteUpdateFailed.
	StatusCode int

	// Body carries the raw response body for MalformedResponse and RemoteUpdateFailed.
	Body string

	// Message overrides the default description when set.
	Message string

	// Err is the underlying cause, if any.
	Err error
}

func (e *Error) Error() string {
	msg := e.description()
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is the sentinel for e's kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Operation == "" && t.Err == nil && t.Body == ""
}

func (e *Error) description() string {
	if e.Message != "" {
		return e.Message
	}
	switch e.Kind {
	case KindMissingCredential:
		return "missing API key"
	case KindBadCommand:
		return "unrecognized command"
	case KindMalformedResponse:
		return fmt.Sprintf("error parsing %s response json:\n%s", e.opName(), e.Body)
	case KindRemoteUpdateFailed:
		return fmt.Sprintf("update failed (status %d):\n%s", e.StatusCode, e.Body)
	case KindTransportFailure:
		return fmt.Sprintf("%s request failed", e.opName())
	default:
		return "an error occurred"
	}
}

func (e *Error) opName() string {
	if e.Operation == "" {
		return "api"
	}
	return e.Operation
}

// KindOf returns the Kind carried by err, or KindUnknown.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// ExitCode maps an error to the process exit code.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ExitUsage
	}
	switch KindOf(err) {
	case KindMissingCredential, KindBadCommand:
		return ExitUsage
	default:
		return ExitOperational
	}
}

// Describe renders err for diagnostics: the description, followed by a
// "Cause:" line when the error wraps an underlying cause.
func Describe(err error) string {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) && e.Err != nil {
		return fmt.Sprintf("%s\nCause: %v", e.description(), e.Err)
	}
	return err.Error()
}

// ValidationError is returned when configuration validation fails.
// Extractable via errors.As().
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Field, e.Message)
}

func missingCredential(msg string) *Error {
	return &Error{Kind: KindMissingCredential, Operation: "credential", Message: msg}
}

func badCommand(msg string) *Error {
	return &Error{Kind: KindBadCommand, Operation: "command", Message: msg}
}
