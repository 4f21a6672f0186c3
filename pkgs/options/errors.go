package options

import (
	"errors"
	"fmt"
	"strings"
)

// ErrValidation is matched by every error Validate returns.
var ErrValidation = errors.New("invalid option set")

// UnknownOptionError reports an override for an option the schema does not define.
type UnknownOptionError struct {
	Name string
}

func (e *UnknownOptionError) Error() string {
	return fmt.Sprintf("unknown option %q", e.Name)
}

func (e *UnknownOptionError) Is(target error) bool {
	return target == ErrValidation
}

// InvalidValueError reports an override whose value is illegal for its option.
type InvalidValueError struct {
	Name    string
	Value   any
	Allowed []string
}

func (e *InvalidValueError) Error() string {
	return fmt.Sprintf("invalid value %v for option %q (allowed: %s)",
		e.Value, e.Name, strings.Join(e.Allowed, ", "))
}

func (e *InvalidValueError) Is(target error) bool {
	return target == ErrValidation
}
