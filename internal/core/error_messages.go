package core

// error_messages.go maps technical errors to support codes.
//
// Validation errors carry their own messages and are shown to callers as-is.
// Every other error is opaque to the caller: it is logged in full and the
// response only carries a generic message plus one of the codes below.
//
// # Database Errors (DB001-DB099)
//
//	DB001 - Duplicate key          Patterns: "duplicate key", "unique constraint"
//	DB002 - Connection refused     Patterns: "connection refused"
//	DB003 - Connection reset       Patterns: "connection reset"
//	DB004 - Timeout                Patterns: "timeout"
//	DB005 - Deadlock               Patterns: "deadlock"
//	DB006 - Database busy          Patterns: "database is locked", "sqlite_busy"
//	DB007 - Schema missing         Patterns: "no such table", "does not exist"
//
// # Import Errors (IMP001-IMP099)
//
//	IMP001 - System busy           Patterns: "too many concurrent imports"
//	IMP002 - Request cancelled     Patterns: "context canceled"
//	IMP003 - Request timeout       Patterns: "context deadline exceeded"
//	IMP004 - File too large        Patterns: "request body too large"
//
// # Default Error (ERR000)
//
// Fallback when no specific pattern matches. Check the application logs for
// the original error, correlated by request_id.
//
// Patterns are matched case-insensitively with strings.Contains and the first
// match wins, so specific patterns come before general ones.

import (
	"fmt"
	"strings"
)

// UserMessage provides user-facing error information with guidance.
type UserMessage struct {
	Message string // What happened
	Action  string // What to do about it
	Code    string // Support reference
}

type errorPattern struct {
	pattern string
	msg     UserMessage
}

var errorPatterns = []errorPattern{
	// =========================================================================
	// Database
	// =========================================================================
	{
		pattern: "duplicate key",
		msg:     UserMessage{Message: "A conflicting record already exists", Action: "Retry the import", Code: "DB001"},
	},
	{
		pattern: "unique constraint",
		msg:     UserMessage{Message: "A conflicting record already exists", Action: "Retry the import", Code: "DB001"},
	},
	{
		pattern: "connection refused",
		msg:     UserMessage{Message: "Unable to connect to database", Action: "Please try again in a few moments", Code: "DB002"},
	},
	{
		pattern: "connection reset",
		msg:     UserMessage{Message: "Database connection was interrupted", Action: "Please try again", Code: "DB003"},
	},
	{
		pattern: "context deadline exceeded",
		msg:     UserMessage{Message: "Request timed out", Action: "Try a smaller file or try again later", Code: "IMP003"},
	},
	{
		pattern: "timeout",
		msg:     UserMessage{Message: "Operation timed out", Action: "Try again later", Code: "DB004"},
	},
	{
		pattern: "deadlock",
		msg:     UserMessage{Message: "Database was busy with conflicting operations", Action: "Please try again", Code: "DB005"},
	},
	{
		pattern: "database is locked",
		msg:     UserMessage{Message: "Database is busy", Action: "Please try again", Code: "DB006"},
	},
	{
		pattern: "sqlite_busy",
		msg:     UserMessage{Message: "Database is busy", Action: "Please try again", Code: "DB006"},
	},
	{
		pattern: "no such table",
		msg:     UserMessage{Message: "Database schema is missing", Action: "Run samplectl schema", Code: "DB007"},
	},
	{
		pattern: "does not exist",
		msg:     UserMessage{Message: "Database schema is missing", Action: "Run samplectl schema", Code: "DB007"},
	},

	// =========================================================================
	// Import
	// =========================================================================
	{
		pattern: "too many concurrent imports",
		msg:     UserMessage{Message: "System is busy processing other imports", Action: "Please wait a moment and try again", Code: "IMP001"},
	},
	{
		pattern: "context canceled",
		msg:     UserMessage{Message: "Request was cancelled", Action: "Please try again", Code: "IMP002"},
	},
	{
		pattern: "request body too large",
		msg:     UserMessage{Message: "File exceeds the maximum upload size", Action: "Split the file into smaller parts", Code: "IMP004"},
	},
}

var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a UserMessage. Unmatched errors map
// to ERR000; a nil error maps to the zero UserMessage.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	errStr := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}
	return defaultMessage
}

// FormatUserError renders err as "Message (Code: XXX). Action".
// Validation errors are rendered with their own messages.
func FormatUserError(err error) string {
	if err == nil {
		return ""
	}
	if msgs, ok := AsValidation(err); ok {
		return strings.Join(msgs, "\n")
	}
	msg := MapError(err)
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err matches a known pattern rather than the
// ERR000 fallback.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}
