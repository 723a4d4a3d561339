// Package faceerr defines the error kinds surfaced by analysis and comparison operations.
package faceerr

import (
	"errors"
	"fmt"
)

// Kind classifies an error by how it propagates to the user.
type Kind string

// Kind constants.
const (
	// KindSetup blocks a whole feature (models unavailable, camera denied or missing).
	KindSetup Kind = "setup"
	// KindPass is a failure inside one analysis pass; it is logged and the pass counts as empty.
	KindPass Kind = "pass"
	// KindPrecondition aborts one user action (missing upload, no faces, bad descriptors).
	KindPrecondition Kind = "precondition"
)

// Sentinel causes, matched with errors.Is.
var (
	ErrModelsUnavailable  = errors.New("face models are not available")
	ErrCameraDenied       = errors.New("camera access denied")
	ErrCameraNotFound     = errors.New("camera not found")
	ErrNoUpload           = errors.New("no image uploaded")
	ErrNoFaces            = errors.New("no faces detected")
	ErrDescriptorMismatch = errors.New("descriptor length mismatch")
)

// Error is a classified error carrying a user-facing message.
type Error struct {
	Kind    Kind
	Op      string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Op, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Setup creates a setup failure.
func Setup(op, message string, cause error) *Error {
	return &Error{Kind: KindSetup, Op: op, Message: message, Cause: cause}
}

// Pass creates a per-pass failure.
func Pass(op string, cause error) *Error {
	msg := "analysis pass failed"
	if cause != nil {
		msg = cause.Error()
	}
	return &Error{Kind: KindPass, Op: op, Message: msg, Cause: cause}
}

// Precondition creates a precondition failure with an optional sentinel cause.
func Precondition(op, message string, cause error) *Error {
	return &Error{Kind: KindPrecondition, Op: op, Message: message, Cause: cause}
}

// KindOf returns the kind of the first *Error in err's chain, or "" if there is none.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return ""
}

// UserMessage returns the message meant for display. Unclassified errors get a generic text.
func UserMessage(err error) string {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Message
	}
	return "internal error"
}
