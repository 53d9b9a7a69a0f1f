package identity

import (
	"errors"
	"fmt"
)

// Error reports an input normalization or validation failure.
//
// All codes except MissingInformation are non-fatal to a job: the caller may
// fall back to explicitly supplied fields.
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// Field names the offending identity field, when there is one.
	Field string

	// Input is the raw value that failed, when there is one.
	Input string
}

// ErrorCode categorizes identity errors.
type ErrorCode string

const (
	// ErrCodeMissingInformation indicates a required identity field is empty.
	ErrCodeMissingInformation ErrorCode = "MISSING_INFORMATION"

	// ErrCodeUnsupportedDomain indicates a site outside the supported set.
	ErrCodeUnsupportedDomain ErrorCode = "UNSUPPORTED_DOMAIN"

	// ErrCodeUnrecognizedURLFormat indicates a URL that is not an article URL.
	ErrCodeUnrecognizedURLFormat ErrorCode = "UNRECOGNIZED_URL_FORMAT"

	// ErrCodeInvalidLanguage indicates a malformed language code.
	ErrCodeInvalidLanguage ErrorCode = "INVALID_LANGUAGE"

	// ErrCodeInvalidSections indicates a malformed section list.
	ErrCodeInvalidSections ErrorCode = "INVALID_SECTIONS"

	// ErrCodeInvalidCanonicalID indicates a string that is not a canonical id.
	ErrCodeInvalidCanonicalID ErrorCode = "INVALID_CANONICAL_ID"
)

// Error implements the error interface.
func (e *Error) Error() string {
	switch {
	case e.Field != "" && e.Input != "":
		return fmt.Sprintf("%s: %s (%s=%q)", e.Code, e.Message, e.Field, e.Input)
	case e.Field != "":
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Field)
	case e.Input != "":
		return fmt.Sprintf("%s: %s (%q)", e.Code, e.Message, e.Input)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func hasCode(err error, code ErrorCode) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// IsMissingInformation reports whether err is a missing-field error.
func IsMissingInformation(err error) bool { return hasCode(err, ErrCodeMissingInformation) }

// IsUnsupportedDomain reports whether err is an unsupported-domain error.
func IsUnsupportedDomain(err error) bool { return hasCode(err, ErrCodeUnsupportedDomain) }

// IsUnrecognizedURLFormat reports whether err is an unrecognized-URL error.
func IsUnrecognizedURLFormat(err error) bool { return hasCode(err, ErrCodeUnrecognizedURLFormat) }

// IsInvalidLanguage reports whether err is a malformed-language error.
func IsInvalidLanguage(err error) bool { return hasCode(err, ErrCodeInvalidLanguage) }

// IsInvalidSections reports whether err is a malformed-sections error.
func IsInvalidSections(err error) bool { return hasCode(err, ErrCodeInvalidSections) }

// NewMissingInformationError creates an Error for an empty required field.
func NewMissingInformationError(field string) *Error {
	return &Error{
		Code:    ErrCodeMissingInformation,
		Message: "required identity field is empty",
		Field:   field,
	}
}

// NewUnsupportedDomainError creates an Error for a domain outside the
// supported set.
func NewUnsupportedDomainError(input string) *Error {
	return &Error{
		Code:    ErrCodeUnsupportedDomain,
		Message: "domain is not a supported Wikimedia site",
		Field:   "domain",
		Input:   input,
	}
}

// NewUnrecognizedURLFormatError creates an Error for a URL that does not
// look like scheme://{language}.{domain}/wiki/{title}.
func NewUnrecognizedURLFormatError(input string) *Error {
	return &Error{
		Code:    ErrCodeUnrecognizedURLFormat,
		Message: "not a supported Wikimedia article URL",
		Field:   "url",
		Input:   input,
	}
}

// FetchError is a hard failure of the page lookup: a transport error,
// a timeout, an undecodable body, or any non-2xx status other than 404.
// It is never retried by this package.
type FetchError struct {
	// URL is the lookup URL that failed.
	URL string

	// StatusCode is the HTTP status, or 0 when no response arrived.
	StatusCode int

	// Err is the underlying transport or decode error, if any.
	Err error
}

// Error implements the error interface.
func (e *FetchError) Error() string {
	if e.StatusCode != 0 && e.Err != nil {
		return fmt.Sprintf("FETCH_FAILED: could not decode page data (status %d) from %s: %v", e.StatusCode, e.URL, e.Err)
	}
	if e.StatusCode != 0 {
		return fmt.Sprintf("FETCH_FAILED: could not fetch page data: got %d from %s", e.StatusCode, e.URL)
	}
	return fmt.Sprintf("FETCH_FAILED: could not fetch page data from %s: %v", e.URL, e.Err)
}

// Unwrap returns the underlying error.
func (e *FetchError) Unwrap() error {
	return e.Err
}

// IsFetchError reports whether err is a FetchError.
// Uses errors.As to handle wrapped errors.
func IsFetchError(err error) bool {
	var fe *FetchError
	return errors.As(err, &fe)
}
