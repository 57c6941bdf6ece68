package core

// error_messages.go maps pipeline errors to user-facing messages with codes
// for support reference.
//
// # Validation Errors (VAL001-VAL099)
//
//	VAL001 - Invalid request: the request body is malformed or incomplete
//	VAL002 - No students: the student list is empty
//	VAL003 - No columns: none of the selected columns is recognized
//	VAL004 - Too many students: the request exceeds the configured maximum
//	VAL005 - Unsupported format: format must be pdf or excel
//
// # Not Found (NF001-NF099)
//
//	NF001 - No valid students: none of the requested students exist
//	NF002 - Record not found: the report or schedule does not exist
//
// # Authorization (AUTH001-AUTH099)
//
//	AUTH001 - Not entitled: the caller is not mapped to every requested student
//
// # Render Errors (RND001-RND099)
//
//	RND001 - Render failed: the PDF engine returned an error
//	RND002 - Renderer busy: every engine slot is in use
//	RND003 - Nothing rendered: every individual document failed
//
// # Packaging (PKG001-PKG099)
//
//	PKG001 - Stream failure: writing the output failed
//
// # Repository (DB001-DB099)
//
//	DB001 - Repository error: grade data could not be read
//	DB002 - Connection refused: the database is unreachable
//	DB003 - Timeout: the database did not answer in time
//
// Sentinel matches are tried first using errors.Is, in table order. When no
// sentinel matches, the error text is matched case-insensitively against
// textPatterns. ERR000 is the fallback.

import (
	"errors"
	"fmt"
	"strings"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened (user-friendly)
	Action  string // What to do about it
	Code    string // Error code for support reference
}

type sentinelMessage struct {
	target error
	msg    UserMessage
}

// sentinelMessages is ordered specific-before-general: a condition sentinel
// always wins over the kind sentinel wrapping it.
var sentinelMessages = []sentinelMessage{
	{ErrEmptyColumnSet, UserMessage{
		Message: "None of the selected columns is recognized",
		Action:  "Choose columns from the column list",
		Code:    "VAL003",
	}},
	{ErrTooManyRenders, UserMessage{
		Message: "The report renderer is busy",
		Action:  "Please wait a moment and try again",
		Code:    "RND002",
	}},
	{ErrNoDocuments, UserMessage{
		Message: "No student document could be rendered",
		Action:  "Try the combined PDF or contact support",
		Code:    "RND003",
	}},
	{ErrNoValidRecords, UserMessage{
		Message: "None of the requested students were found",
		Action:  "Check the registration numbers and try again",
		Code:    "NF001",
	}},
	{ErrValidation, UserMessage{
		Message: "The report request is invalid",
		Action:  "Check the request fields and try again",
		Code:    "VAL001",
	}},
	{ErrNotFound, UserMessage{
		Message: "Record not found",
		Action:  "It may have been deleted already",
		Code:    "NF002",
	}},
	{ErrForbidden, UserMessage{
		Message: "You are not authorized to view some of these students",
		Action:  "Remove students outside your mapping",
		Code:    "AUTH001",
	}},
	{ErrRender, UserMessage{
		Message: "The report could not be rendered",
		Action:  "Please try again or contact support",
		Code:    "RND001",
	}},
	{ErrPackaging, UserMessage{
		Message: "The report could not be delivered",
		Action:  "Please try again",
		Code:    "PKG001",
	}},
}

type errorPattern struct {
	pattern string
	msg     UserMessage
}

// textPatterns match errors that arrive without a sentinel, mostly driver errors.
var textPatterns = []errorPattern{
	{"connection refused", UserMessage{
		Message: "Unable to connect to the grade database",
		Action:  "Please try again in a few moments",
		Code:    "DB002",
	}},
	{"timeout", UserMessage{
		Message: "The grade database did not answer in time",
		Action:  "Try fewer students or try again later",
		Code:    "DB003",
	}},
	{"context deadline exceeded", UserMessage{
		Message: "The request timed out",
		Action:  "Try fewer students or try again later",
		Code:    "DB003",
	}},
	{"too many students", UserMessage{
		Message: "Too many students in one request",
		Action:  "Split the request into smaller batches",
		Code:    "VAL004",
	}},
	{"student list", UserMessage{
		Message: "No students were selected",
		Action:  "Select at least one student",
		Code:    "VAL002",
	}},
	{"format", UserMessage{
		Message: "Unsupported report format",
		Action:  "Use pdf or excel",
		Code:    "VAL005",
	}},
}

var repositoryMessage = UserMessage{
	Message: "Grade data could not be read",
	Action:  "Please try again or contact support",
	Code:    "DB001",
}

// defaultMessage is returned when nothing matches (ERR000).
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts an error to a user-friendly message.
//
// Example:
//
//	msg := MapError(ValidationError("resolve columns", "no columns", ErrEmptyColumnSet))
//	// msg.Code == "VAL003"
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	// Validation text is more precise than the generic VAL001.
	errStr := strings.ToLower(err.Error())
	if errors.Is(err, ErrValidation) && !errors.Is(err, ErrEmptyColumnSet) {
		for _, ep := range textPatterns {
			if strings.HasPrefix(ep.msg.Code, "VAL") && strings.Contains(errStr, ep.pattern) {
				return ep.msg
			}
		}
	}

	for _, sm := range sentinelMessages {
		if errors.Is(err, sm.target) {
			return sm.msg
		}
	}

	for _, ep := range textPatterns {
		if strings.HasPrefix(ep.msg.Code, "VAL") {
			continue
		}
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}

	if errors.Is(err, ErrRepository) {
		return repositoryMessage
	}

	return defaultMessage
}

// FormatUserError creates a formatted error string for display.
// The format is: "Message (Code: XXX). Action"
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err maps to something more specific than ERR000.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}
