package config

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
)

//go:embed schema.cue
var schemaSource string

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("config: invalid")

// FieldError names one configuration key that failed validation.
type FieldError struct {
	Field   string
	Message string
}

func (e FieldError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError collects every field that failed the schema.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	msgs := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		msgs[i] = f.Error()
	}
	return fmt.Sprintf("%v: %s", ErrInvalid, strings.Join(msgs, "; "))
}

// Unwrap lets errors.Is match ErrInvalid.
func (e *ValidationError) Unwrap() error { return ErrInvalid }

// Validate checks cfg against the embedded #Config schema.
func Validate(cfg *Config) error {
	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaSource, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return fmt.Errorf("config: schema does not compile: %w", err)
	}
	def := schema.LookupPath(cue.ParsePath("#Config"))

	data, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("config: encode for validation: %w", err)
	}
	value := ctx.CompileBytes(data, cue.Filename("config.json"))
	if err := value.Err(); err != nil {
		return fmt.Errorf("config: encode for validation: %w", err)
	}

	if err := def.Unify(value).Validate(cue.Concrete(true)); err != nil {
		return toValidationError(err)
	}
	return nil
}

func toValidationError(err error) error {
	verr := &ValidationError{}
	seen := make(map[string]bool)
	for _, e := range cueerrors.Errors(err) {
		path := e.Path()
		if len(path) > 0 && path[0] == "#Config" {
			path = path[1:]
		}
		field := strings.Join(path, ".")
		format, args := e.Msg()
		msg := fmt.Sprintf(format, args...)
		if key := field + "\x00" + msg; !seen[key] {
			seen[key] = true
			verr.Fields = append(verr.Fields, FieldError{Field: field, Message: msg})
		}
	}
	if len(verr.Fields) == 0 {
		verr.Fields = append(verr.Fields, FieldError{Message: err.Error()})
	}
	return verr
}
