package core

// # Error Codes Reference
//
// User-facing errors carry a short code that support staff can look up.
// Codes are grouped by category:
//
// # Database Errors (DB000-DB099)
//
//	DB000 - Storage failure: The record store rejected the operation
//	DB004 - Connection refused: Unable to connect to database
//	DB005 - Connection reset: Database connection was interrupted
//	DB006 - Timeout: Operation timed out
//	DB007 - Deadlock / busy: Database was busy with conflicting operations
//	DB008 - Constraint: A value was rejected by the database
//
// # Validation Errors (VAL001-VAL099)
//
//	VAL001 - Invalid request body: Body is not valid JSON
//	VAL003 - Required field: A required field is empty
//	VAL006 - Invalid level: Level is not Intern, Junior or Senior
//	VAL000 - Validation failed: Any other single-record validation failure
//
// # File Errors (FILE001-FILE099)
//
//	FILE001 - File too large
//	FILE002 - Invalid spreadsheet: The file could not be parsed
//	FILE004 - No file: No file was uploaded
//	FILE005 - Empty file
//	FILE006 - Unsupported format: Only .xlsx, .xls and .csv are accepted
//
// # Upload Errors (UPL001-UPL099)
//
//	UPL001 - No valid records: Every row was rejected
//	UPL002 - System busy: Too many uploads in progress
//	UPL004 - Request cancelled
//	UPL005 - Request timeout
//
// # Record Errors (REC001-REC099)
//
//	REC001 - Not found: No record has the requested id
//
// # Rate Limiting (RATE001)
//
//	RATE001 - Too many requests
//
// # Default (ERR000)
//
//	ERR000 - Unknown error: check the logs for the original error
//
// Each pattern is scoped to the error kinds it can describe and matches
// either a sentinel in the chain or, case-insensitively, a substring of the
// error text. The first match wins, so specific patterns come before general
// ones. When no pattern matches, the error's Kind picks a category default.
//
// Only server-authored text is searched for kinds that can carry user input
// (uploaded file names, submitted values). Storage and unkinded errors are
// searched in full, since driver messages are where their detail lives.

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/JonMunkholm/records/internal/spreadsheet"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened (user-friendly)
	Action  string // What to do about it
	Code    string // Error code for support reference
}

// errorPattern matches by substring or by sentinel. kinds limits it to errors
// of those kinds; a nil entry stands for errors without a kind and an empty
// list means any.
type errorPattern struct {
	pattern string
	target  error
	kinds   []Kind
	msg     UserMessage
}

var (
	storageKinds = []Kind{ErrStorage, nil}
	abortedKinds = []Kind{ErrAborted, nil}
)

var errorPatterns = []errorPattern{
	// =========================================================================
	// File Errors
	// =========================================================================
	{
		pattern: "file too large",
		kinds:   []Kind{ErrDecode},
		msg: UserMessage{
			Message: "File exceeds the maximum upload size",
			Action:  "Split the file into smaller files",
			Code:    "FILE001",
		},
	},
	{
		pattern: "no file uploaded",
		kinds:   []Kind{ErrDecode},
		msg: UserMessage{
			Message: "No file uploaded",
			Action:  "Please select a spreadsheet to upload",
			Code:    "FILE004",
		},
	},
	{
		target: spreadsheet.ErrEmptyFile,
		kinds:  []Kind{ErrDecode},
		msg: UserMessage{
			Message: "The uploaded file is empty",
			Action:  "Please upload a spreadsheet with a header row and data rows",
			Code:    "FILE005",
		},
	},
	{
		target: spreadsheet.ErrUnsupportedFormat,
		kinds:  []Kind{ErrDecode},
		msg: UserMessage{
			Message: "Unsupported file format",
			Action:  "Upload an .xlsx, .xls or .csv file",
			Code:    "FILE006",
		},
	},

	// =========================================================================
	// Upload Errors
	// =========================================================================
	{
		pattern: "no valid records",
		kinds:   []Kind{ErrEmptyBatch},
		msg: UserMessage{
			Message: "No valid records found in file",
			Action:  "Check that every row has name, position and level",
			Code:    "UPL001",
		},
	},
	{
		pattern: "too many uploads",
		kinds:   []Kind{ErrTooManyUploads},
		msg: UserMessage{
			Message: "System is busy processing other uploads",
			Action:  "Please wait a moment and try again",
			Code:    "UPL002",
		},
	},
	{
		target: context.Canceled,
		kinds:  abortedKinds,
		msg: UserMessage{
			Message: "Request was cancelled",
			Action:  "Please try again",
			Code:    "UPL004",
		},
	},
	{
		target: context.DeadlineExceeded,
		kinds:  abortedKinds,
		msg: UserMessage{
			Message: "Request timed out",
			Action:  "Try uploading a smaller file or check your connection",
			Code:    "UPL005",
		},
	},

	// =========================================================================
	// Validation Errors
	// =========================================================================
	{
		pattern: "invalid request body",
		kinds:   []Kind{ErrValidation},
		msg: UserMessage{
			Message: "Request body is not valid JSON",
			Action:  "Send a JSON object with name, position and level",
			Code:    "VAL001",
		},
	},
	{
		pattern: "required field",
		kinds:   []Kind{ErrValidation},
		msg: UserMessage{
			Message: "Required field is empty",
			Action:  "Provide name, position and level",
			Code:    "VAL003",
		},
	},
	{
		pattern: "invalid level",
		kinds:   []Kind{ErrValidation},
		msg: UserMessage{
			Message: "Level is not in the allowed list",
			Action:  "Use Intern, Junior or Senior",
			Code:    "VAL006",
		},
	},

	// =========================================================================
	// Record Errors
	// =========================================================================
	{
		pattern: "record not found",
		kinds:   []Kind{ErrNotFound},
		msg: UserMessage{
			Message: "Record not found",
			Action:  "Refresh the list; the record may have been deleted",
			Code:    "REC001",
		},
	},

	// =========================================================================
	// Database Errors
	// =========================================================================
	{
		pattern: "connection refused",
		kinds:   storageKinds,
		msg: UserMessage{
			Message: "Unable to connect to database",
			Action:  "Please try again in a few moments",
			Code:    "DB004",
		},
	},
	{
		pattern: "connection reset",
		kinds:   storageKinds,
		msg: UserMessage{
			Message: "Database connection was interrupted",
			Action:  "Please try again",
			Code:    "DB005",
		},
	},
	{
		pattern: "timeout",
		kinds:   storageKinds,
		msg: UserMessage{
			Message: "Operation timed out",
			Action:  "Try uploading a smaller file or try again later",
			Code:    "DB006",
		},
	},
	{
		pattern: "deadlock",
		kinds:   storageKinds,
		msg: UserMessage{
			Message: "Database was busy with conflicting operations",
			Action:  "Please try again",
			Code:    "DB007",
		},
	},
	{
		pattern: "database is locked",
		kinds:   storageKinds,
		msg: UserMessage{
			Message: "Database was busy with conflicting operations",
			Action:  "Please try again",
			Code:    "DB007",
		},
	},
	{
		pattern: "violates check constraint",
		kinds:   storageKinds,
		msg: UserMessage{
			Message: "A value was rejected by the database",
			Action:  "Check that level is Intern, Junior or Senior",
			Code:    "DB008",
		},
	},

	// =========================================================================
	// Rate Limiting
	// =========================================================================
	{
		pattern: "rate limit",
		kinds:   []Kind{nil},
		msg: UserMessage{
			Message: "Too many requests",
			Action:  "Please wait a moment before trying again",
			Code:    "RATE001",
		},
	},
}

// kindDefaults applies when no pattern matches but the error has a Kind.
var kindDefaults = map[Kind]UserMessage{
	ErrDecode: {
		Message: "File is not a readable spreadsheet",
		Action:  "Save the file as .xlsx, .xls or .csv and try again",
		Code:    "FILE002",
	},
	ErrStorage: {
		Message: "The record store could not complete the operation",
		Action:  "Please try again or contact support",
		Code:    "DB000",
	},
	ErrValidation: {
		Message: "Validation failed",
		Action:  "Check the submitted fields",
		Code:    "VAL000",
	},
}

// defaultMessage is returned when nothing matches (ERR000).
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
//
//	msg := MapError(Errorf(ErrEmptyBatch, "no valid records found in file"))
//	// msg.Code == "UPL001"
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	k := KindOf(err)
	text := matchText(err, k)
	for _, ep := range errorPatterns {
		if !inScope(k, ep.kinds) {
			continue
		}
		if ep.target != nil && errors.Is(err, ep.target) {
			return ep.msg
		}
		if ep.pattern != "" && strings.Contains(text, ep.pattern) {
			return ep.msg
		}
	}

	if k != nil {
		if msg, ok := kindDefaults[k]; ok {
			return msg
		}
	}

	return defaultMessage
}

// matchText returns the lowercased text patterns are matched against. For
// kinds other than storage only the kind name and the messages of each
// *Error in the chain count; wrapped causes are left out.
func matchText(err error, k Kind) string {
	if k == nil || k == ErrStorage {
		return strings.ToLower(err.Error())
	}

	parts := []string{k.Error()}
	for e := err; e != nil; e = errors.Unwrap(e) {
		if ce, ok := e.(*Error); ok {
			parts = append(parts, ce.Message())
		}
	}
	return strings.ToLower(strings.Join(parts, "; "))
}

func inScope(k Kind, kinds []Kind) bool {
	if len(kinds) == 0 {
		return true
	}
	for _, want := range kinds {
		if want == k {
			return true
		}
	}
	return false
}

// FormatUserError renders "Message (Code: XXX). Action".
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
