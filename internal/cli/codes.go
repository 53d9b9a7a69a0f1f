package cli

import (
	"errors"

	"github.com/roach88/wikiref/internal/config"
	"github.com/roach88/wikiref/internal/identity"
	"github.com/roach88/wikiref/internal/refcache"
)

// Error codes reported in CLI output.
const (
	// Command errors
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeConfig      = "E002" // Configuration invalid or unreadable
	ErrCodeReadFailed  = "E003" // Input could not be read
	ErrCodeInvalidJSON = "E004" // Input is not a reference object or array of them
	ErrCodeNotFound    = "E005" // Input file not found
	ErrCodeUsage       = "E006" // Flags or arguments do not make sense together

	// Identity errors
	ErrCodeMissingInformation = "E101" // Required identity field empty
	ErrCodeUnsupportedDomain  = "E102" // Not a supported Wikimedia site
	ErrCodeUnrecognizedURL    = "E103" // Not an article URL
	ErrCodeInvalidLanguage    = "E104" // Malformed language code
	ErrCodeInvalidSections    = "E105" // Malformed section list
	ErrCodeInvalidCanonicalID = "E106" // Malformed canonical id

	// Lookup errors
	ErrCodeFetchFailed  = "E201" // Page lookup failed hard
	ErrCodePageNotFound = "E202" // Wiki answered 404

	// Cache errors
	ErrCodeCacheUnavailable = "E301" // Store disconnected or failing
	ErrCodeInvalidRecord    = "E302" // Hash or result id missing or malformed
	ErrCodeCorruptEntry     = "E303" // Stored value unreadable
)

// classify maps a library error to its CLI error code and exit code.
func classify(err error) (code string, exit int) {
	var idErr *identity.Error
	if errors.As(err, &idErr) {
		switch idErr.Code {
		case identity.ErrCodeMissingInformation:
			return ErrCodeMissingInformation, ExitCommandError
		case identity.ErrCodeUnsupportedDomain:
			return ErrCodeUnsupportedDomain, ExitCommandError
		case identity.ErrCodeUnrecognizedURLFormat:
			return ErrCodeUnrecognizedURL, ExitCommandError
		case identity.ErrCodeInvalidLanguage:
			return ErrCodeInvalidLanguage, ExitCommandError
		case identity.ErrCodeInvalidSections:
			return ErrCodeInvalidSections, ExitCommandError
		case identity.ErrCodeInvalidCanonicalID:
			return ErrCodeInvalidCanonicalID, ExitCommandError
		}
	}
	switch {
	case identity.IsFetchError(err):
		return ErrCodeFetchFailed, ExitFailure
	case errors.Is(err, config.ErrInvalid):
		return ErrCodeConfig, ExitCommandError
	case errors.Is(err, refcache.ErrInvalidRecord):
		return ErrCodeInvalidRecord, ExitCommandError
	case errors.Is(err, refcache.ErrCorruptEntry):
		return ErrCodeCorruptEntry, ExitFailure
	case errors.Is(err, refcache.ErrCacheUnavailable):
		return ErrCodeCacheUnavailable, ExitCommandError
	}
	return ErrCodeGeneric, ExitFailure
}

// fail reports err through the formatter and returns the matching ExitError.
func fail(f *OutputFormatter, err error) error {
	code, exit := classify(err)
	return failWith(f, code, exit, err)
}

func failWith(f *OutputFormatter, code string, exit int, err error) error {
	if outErr := f.Error(code, err.Error(), nil); outErr != nil {
		return WrapExitError(ExitCommandError, "failed to write output", outErr)
	}
	return WrapExitError(exit, code, err)
}
