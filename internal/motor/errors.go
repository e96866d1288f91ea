// Normalized driver error codes with table-driven mapping from backend
// error text. Unknown backend errors map to INTERNAL so callers never see
// raw bus diagnostics as control-flow values.
package motor

import (
	"errors"
	"fmt"
	"strings"
)

// Normalized driver errors.
var (
	ErrInvalidDuty = errors.New("INVALID_DUTY")
	ErrUnavailable = errors.New("UNAVAILABLE")
	ErrInternal    = errors.New("INTERNAL")
)

// tokenMap defines the error token mapping for motor backends.
type tokenMap struct {
	InvalidDuty []string // tokens that map to INVALID_DUTY
	Unavailable []string // tokens that map to UNAVAILABLE
}

// backendTokens is matched case-insensitively as substrings, InvalidDuty
// before Unavailable.
var backendTokens = tokenMap{
	InvalidDuty: []string{
		"DUTY_OUT_OF_RANGE",
		"INVALID_DUTY",
		"PWM_OUT_OF_RANGE",
	},
	Unavailable: []string{
		"NO_SUCH_DEVICE",
		"DEVICE_NOT_FOUND",
		"I2C_NACK",
		"BUS_ERROR",
		"REMOTE_IO",
		"NOT_READY",
		"OFFLINE",
	},
}

// DriverError wraps a backend error with its normalized code.
type DriverError struct {
	Code     error // normalized code
	Original error // backend error
}

func (e *DriverError) Error() string {
	return fmt.Sprintf("%v (driver: %v)", e.Code, e.Original)
}

func (e *DriverError) Unwrap() error {
	return e.Code
}

// NormalizeDriverError maps a backend error to a normalized driver error.
func NormalizeDriverError(backendErr error) error {
	if backendErr == nil {
		return nil
	}

	upper := strings.ToUpper(backendErr.Error())
	code := ErrInternal
	switch {
	case containsAny(upper, backendTokens.InvalidDuty):
		code = ErrInvalidDuty
	case containsAny(upper, backendTokens.Unavailable):
		code = ErrUnavailable
	}

	return &DriverError{Code: code, Original: backendErr}
}

func containsAny(msg string, tokens []string) bool {
	for _, token := range tokens {
		if strings.Contains(msg, token) {
			return true
		}
	}
	return false
}
