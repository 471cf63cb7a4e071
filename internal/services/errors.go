package services

import (
	"errors"
	"fmt"

	"giveaway/internal/models"
)

var (
	// ErrValidation marks malformed input (name, phone, artifact). The
	// participant stays on the same step and should be reprompted.
	ErrValidation = errors.New("validation failed")
	// ErrStateViolation marks an event that arrived out of order. No state
	// changes; the participant is told to complete the previous step.
	ErrStateViolation = errors.New("complete the previous step first")
	// ErrExternalUnavailable marks a collaborator (verifier, notifier) that
	// could not be reached. The workflow degrades per policy, never crashes.
	ErrExternalUnavailable = errors.New("external service unavailable")
	// ErrDuplicateContact is returned under the "block" duplicate-phone
	// policy when another identity already claimed with this phone.
	ErrDuplicateContact = errors.New("phone number already used by another participant")
)

func validationf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrValidation}, args...)...)
}

func stateViolation(expected models.Stage, got models.Stage) error {
	return fmt.Errorf("%w: expected stage %s, currently %s", ErrStateViolation, expected, got)
}
