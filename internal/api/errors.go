package api

import (
	"errors"
	"net/http"

	"github.com/mfitzp/kropbot/internal/motor"
	"github.com/mfitzp/kropbot/internal/relay"
)

// WriteDomainError maps a coordinator or driver error to the right
// status code and envelope.
func WriteDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, relay.ErrInvalidOperator):
		WriteError(w, http.StatusBadRequest, "INVALID_OPERATOR",
			"Operator name is required", nil)
	case errors.Is(err, motor.ErrInvalidDuty):
		WriteError(w, http.StatusBadRequest, "INVALID_RANGE",
			"Parameter value is outside the allowed range", nil)
	case errors.Is(err, motor.ErrUnavailable):
		WriteError(w, http.StatusServiceUnavailable, "UNAVAILABLE",
			"Service is temporarily unavailable", nil)
	default:
		WriteError(w, http.StatusInternalServerError, "INTERNAL",
			"Internal server error", map[string]interface{}{
				"original": err.Error(),
			})
	}
}
