// # Error Codes Reference
//
// Errors surfaced by the CLI and the HTTP API carry a code so a report of
// "QRY001" can be looked up here without the original stack.
//
// # Configuration (CFG001-CFG099)
//
//	CFG001 - Invalid configuration: options were rejected before loading
//	         Action: Check the align/resample modes and network filters
//
// # Session (SES001-SES099)
//
//	SES001 - Invalid session root: the directory or its parsed folder is missing
//	         Action: Point at a session directory containing parsed/<network>/*.csv
//
// # Ingestion (ING001-ING099)
//
//	ING001 - Empty recording: the file holds no data rows
//	ING002 - Load error: the file could not be read or parsed
//	ING003 - Incompatible column: a text column cannot be averaged
//
// # Query (QRY001-QRY099)
//
//	QRY001 - Not found: the network, message or payload is absent
//	         Action: The message explains whether it was dropped, empty or failed
//	QRY002 - Invalid query: too many keys
//
// # Requests (REQ001-REQ099)
//
//	REQ001 - Request cancelled
//	REQ002 - Request timed out
//	REQ003 - Rate limited
//	REQ004 - Too many loads: every reload slot is busy
//
// # Default Error (ERR000)
//
// Fallback when no sentinel or pattern matches.
package core

import (
	"context"
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened (user-friendly)
	Action  string // What to do about it
	Code    string // Error code for support reference
}

// errorClass maps a sentinel error to its user message. Classes are checked
// in order; the first match wins.
type errorClass struct {
	sentinel error
	msg      UserMessage
}

var errorClasses = []errorClass{
	{ErrInvalidConfig, UserMessage{
		Message: "Invalid configuration",
		Action:  "Check the align/resample modes and network filters",
		Code:    "CFG001",
	}},
	{ErrInvalidRoot, UserMessage{
		Message: "Session directory not found",
		Action:  "Point at a session directory containing parsed/<network>/*.csv",
		Code:    "SES001",
	}},
	{ErrNotFound, UserMessage{
		Message: "Requested data not found",
		Action:  "List networks and messages to see what was loaded",
		Code:    "QRY001",
	}},
	{ErrInvalidQuery, UserMessage{
		Message: "Invalid query",
		Action:  "Query at most network, message and payload",
		Code:    "QRY002",
	}},
	{ErrIncompatibleType, UserMessage{
		Message: "Column cannot be averaged",
		Action:  "Use forward_fill resampling for text payloads",
		Code:    "ING003",
	}},
	{ErrEmptyInput, UserMessage{
		Message: "Recording is empty",
		Action:  "Check the logger export for this message",
		Code:    "ING001",
	}},
	{ErrLoad, UserMessage{
		Message: "Recording could not be loaded",
		Action:  "Check the file is a comma-separated export with a timestamp column",
		Code:    "ING002",
	}},
	{ErrTooManyLoads, UserMessage{
		Message: "Too many logs are loading",
		Action:  "Wait for running reloads to finish and try again",
		Code:    "REQ004",
	}},
	{context.Canceled, UserMessage{
		Message: "Request was cancelled",
		Action:  "Please try again",
		Code:    "REQ001",
	}},
	{context.DeadlineExceeded, UserMessage{
		Message: "Request timed out",
		Action:  "Try again or narrow the query",
		Code:    "REQ002",
	}},
}

// errorPatterns catch errors that carry no sentinel, matched case-insensitively.
var errorPatterns = []struct {
	pattern string
	msg     UserMessage
}{
	{"rate limit", UserMessage{
		Message: "Too many requests",
		Action:  "Please wait a moment before trying again",
		Code:    "REQ003",
	}},
}

var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or check the logs",
	Code:    "ERR000",
}

// MapError converts a technical error into a user-friendly message.
// For not-found errors the message names what is missing and why.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	for _, c := range errorClasses {
		if errors.Is(err, c.sentinel) {
			msg := c.msg
			if c.sentinel == ErrNotFound {
				msg.Message = err.Error()
				var nf *NotFoundError
				if errors.As(err, &nf) {
					msg.Message = nf.Error()
				}
			}
			return msg
		}
	}

	lower := strings.ToLower(err.Error())
	for _, p := range errorPatterns {
		if strings.Contains(lower, p.pattern) {
			return p.msg
		}
	}
	return defaultMessage
}

// GetErrorCode returns just the code for an error.
func GetErrorCode(err error) string {
	return MapError(err).Code
}

// FormatUserError returns "<message> (Code: <code>). <action>" for display.
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err maps to a specific code rather than the
// ERR000 fallback. Unmapped errors should be logged, not shown.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}
