package model

import (
	"errors"
	"fmt"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	// ErrNoSnapshot is returned by revert operations when no revert point exists.
	ErrNoSnapshot = errors.New("no snapshot captured")
	// ErrInvalidSettingsPayload is returned when a command payload fails validation.
	ErrInvalidSettingsPayload = errors.New("invalid settings payload")
)

// WriteFailure reports that the live settings target rejected or could not take a write.
type WriteFailure struct {
	Err error
}

func (e *WriteFailure) Error() string { return fmt.Sprintf("write settings: %v", e.Err) }

func (e *WriteFailure) Unwrap() error { return e.Err }

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func validatorInstance() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// Validate checks a payload's struct tags and wraps any failure in ErrInvalidSettingsPayload.
func Validate(v interface{}) error {
	if err := validatorInstance().Struct(v); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			f := verrs[0]
			return fmt.Errorf("%w: %s failed %q (got %v)", ErrInvalidSettingsPayload, f.Field(), f.Tag(), f.Value())
		}
		return fmt.Errorf("%w: %v", ErrInvalidSettingsPayload, err)
	}
	return nil
}

// ResultOf converts an error into the tagged boundary result.
func ResultOf(err error) Result {
	if err != nil {
		return Result{Success: false, Error: err.Error()}
	}
	return Result{Success: true}
}
