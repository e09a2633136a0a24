package errors

import (
	"errors"
	"time"
)

// fallbackMessage is shown for any code without a mapping. Raw internal
// messages are never echoed to the user.
const fallbackMessage = "Something went wrong. Please try again."

// userMessages maps error codes to user-facing text.
var userMessages = map[Code]string{
	CodeValidation:    "Invalid input. Please check your data.",
	CodeSizeLimit:     "Your scrapbook is too large to save. Try removing some photos.",
	CodeRemoteFault:   "Network error. Please check your connection.",
	CodeDataIntegrity: "Your saved data could not be read. Please contact support.",
	CodeNotFound:      "Data not found.",
	CodeForbidden:     "You don't have permission to access this.",

	CodeUnauthorized:       "Please sign in to continue.",
	CodeInvalidCredentials: "Invalid email or password.",
	CodeEmailInUse:         "Email already registered. Please log in instead.",
	CodeEmailUnverified:    "Please verify your email before logging in. Check your inbox.",
	CodeAccountDisabled:    "This account has been disabled.",
	CodeTooManyRequests:    "Too many attempts. Please try again later.",
	CodeWeakPassword:       "Password is too weak. Use at least 8 characters.",
	CodeUnsupported:        "This sign-in method is not available.",

	CodeFileTooLarge:    "File is too large. Maximum size is 5MB.",
	CodeInvalidFileType: "Invalid file type. Please use JPG, PNG, or WebP.",
}

// UserMessage returns the user-facing message for an error.
// Unmapped codes and plain errors fall back to a generic string so internal
// error text never reaches the user.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var domainErr *Error
	if !errors.As(err, &domainErr) {
		return fallbackMessage
	}
	if msg, ok := userMessages[domainErr.Code]; ok {
		return msg
	}
	return fallbackMessage
}

// SanitizedError is the only form of an error allowed into logs or state
// visible to the user. It carries no codes, causes, or stack information.
type SanitizedError struct {
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// Sanitize strips an error down to its user-safe message and a timestamp.
func Sanitize(err error) SanitizedError {
	return SanitizedError{
		Message:   UserMessage(err),
		Timestamp: time.Now().UTC(),
	}
}
