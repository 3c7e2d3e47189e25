package core

// error_messages.go maps technical errors to coded messages for the CLI's
// final log line and the HTTP API.
//
// # Error Codes Reference
//
// # Source Errors (ETL001-ETL099)
//
//	ETL001 - Source unreadable: file missing, corrupt gzip, or malformed CSV
//	         Action: Check the path and re-download the microdata file
//	ETL002 - Missing column: header lacks a column its layout requires
//	         Action: Confirm the file is an ENADE microdata export for the named year
//	ETL003 - Invalid decimal: separator other than '.' or ','
//	         Action: Set source.decimal to "." or ","
//	ETL004 - Invalid code: a kept row carries a non-integer code
//	         Action: Inspect the named line; the file may be truncated or mis-encoded
//	ETL005 - Unknown encoding: source.encoding names no known charset
//	         Action: Use utf-8, latin1 or windows-1252
//	ETL006 - No source files: nothing configured and nothing found in source.dir
//	         Action: Set source.files or place ENADE_<year> files in source.dir
//	ETL007 - All files failed: every file was skipped under continue_on_error
//	         Action: Check the per-file errors in the run report
//
// # Dimension Errors (DIM001-DIM099)
//
//	DIM001 - Dimension unreadable: groups, areas or institutions file cannot be read
//	         Action: Check dimensions.* paths and their header row
//
// # Output Errors (OUT001-OUT099)
//
//	OUT001 - Unknown format: output.format names no registered writer
//	         Action: Use csv, parquet, xlsx or postgres
//	OUT002 - Connection refused: database unreachable
//	         Action: Check database.url and that the server is up
//	OUT003 - Permission denied: output path or table not writable
//	         Action: Check file permissions or database grants
//	OUT004 - Missing table: output table does not exist
//	         Action: Create the table or enable output.create_table
//
// # Run Errors (RUN001-RUN099)
//
//	RUN001 - Run cancelled
//	RUN002 - Run timed out
//	RUN003 - System busy: too many runs in progress
//	RUN004 - Run not found
//
// # Default Error (ERR000)
//
// Sentinel errors are matched with errors.Is first. Anything else is matched
// case-insensitively against the patterns below; the first match wins.

import (
	"errors"
	"fmt"
	"strings"
)

// UserMessage provides user-facing error information with actionable guidance.
type UserMessage struct {
	Message string `json:"message"`
	Action  string `json:"action"`
	Code    string `json:"code"`
}

type sentinelMessage struct {
	err error
	msg UserMessage
}

// Dimension errors may also wrap ErrMissingColumn, so they are checked first.
var sentinelMessages = []sentinelMessage{
	{ErrDimensionUnreadable, UserMessage{
		Message: "A dimension file could not be read",
		Action:  "Check dimensions.* paths and their header row",
		Code:    "DIM001",
	}},
	{ErrSourceUnreadable, UserMessage{
		Message: "A source file could not be read",
		Action:  "Check the path and re-download the microdata file",
		Code:    "ETL001",
	}},
	{ErrMissingColumn, UserMessage{
		Message: "A required column is missing from the source header",
		Action:  "Confirm the file is an ENADE microdata export for the named year",
		Code:    "ETL002",
	}},
	{ErrInvalidDecimal, UserMessage{
		Message: "Invalid decimal separator",
		Action:  `Set source.decimal to "." or ","`,
		Code:    "ETL003",
	}},
	{ErrInvalidCode, UserMessage{
		Message: "A kept row carries a non-integer code",
		Action:  "Inspect the named line; the file may be truncated or mis-encoded",
		Code:    "ETL004",
	}},
	{ErrUnknownEncoding, UserMessage{
		Message: "Unknown source encoding",
		Action:  "Use utf-8, latin1 or windows-1252",
		Code:    "ETL005",
	}},
	{ErrNoSourceFiles, UserMessage{
		Message: "No source files to process",
		Action:  "Set source.files or place ENADE_<year> files in source.dir",
		Code:    "ETL006",
	}},
	{ErrAllFilesFailed, UserMessage{
		Message: "Every source file failed",
		Action:  "Check the per-file errors in the run report",
		Code:    "ETL007",
	}},
	{ErrUnknownFormat, UserMessage{
		Message: "Unknown output format",
		Action:  "Use csv, parquet, xlsx or postgres",
		Code:    "OUT001",
	}},
}

type errorPattern struct {
	pattern string
	msg     UserMessage
}

var errorPatterns = []errorPattern{
	{
		pattern: "connection refused",
		msg: UserMessage{
			Message: "Unable to connect to database",
			Action:  "Check database.url and that the server is up",
			Code:    "OUT002",
		},
	},
	{
		pattern: "permission denied",
		msg: UserMessage{
			Message: "Output is not writable",
			Action:  "Check file permissions or database grants",
			Code:    "OUT003",
		},
	},
	{
		pattern: "does not exist (sqlstate 42p01)",
		msg: UserMessage{
			Message: "Output table does not exist",
			Action:  "Create the table or enable output.create_table",
			Code:    "OUT004",
		},
	},
	{
		pattern: "context canceled",
		msg: UserMessage{
			Message: "Run was cancelled",
			Action:  "Start a new run when ready",
			Code:    "RUN001",
		},
	},
	{
		pattern: "context deadline exceeded",
		msg: UserMessage{
			Message: "Run timed out",
			Action:  "Raise the timeout or process fewer files per run",
			Code:    "RUN002",
		},
	},
	{
		pattern: "too many concurrent runs",
		msg: UserMessage{
			Message: "System is busy processing other runs",
			Action:  "Please wait a moment and try again",
			Code:    "RUN003",
		},
	},
	{
		pattern: "run not found",
		msg: UserMessage{
			Message: "Run not found",
			Action:  "Check the run ID",
			Code:    "RUN004",
		},
	},
}

// defaultMessage is returned when nothing matches (ERR000).
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Check the logs for the technical error",
	Code:    "ERR000",
}

// MapError converts a technical error to a coded message.
//
//	_, err := Extract(ctx, "missing.csv", opts)
//	msg := MapError(err)
//	// msg.Code == "ETL001"
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	for _, sm := range sentinelMessages {
		if errors.Is(err, sm.err) {
			return sm.msg
		}
	}

	errStr := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
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

// IsUserFacing reports whether err maps to a specific code rather than ERR000.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}

// UserError pairs a technical error with its user message.
type UserError struct {
	Technical error       // Original technical error for logging
	User      UserMessage // User-facing message for display
}

func (e *UserError) Error() string {
	return e.User.Message
}

func (e *UserError) Unwrap() error {
	return e.Technical
}

// NewUserError maps err to a UserError. Returns nil if err is nil.
func NewUserError(err error) *UserError {
	if err == nil {
		return nil
	}
	return &UserError{
		Technical: err,
		User:      MapError(err),
	}
}
