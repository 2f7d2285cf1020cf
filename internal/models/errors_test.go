package models

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInvalid_WrapsValidation(t *testing.T) {
	err := Invalid("symbol is required")
	assert.True(t, errors.Is(err, ErrValidation))
	assert.Equal(t, "validation error: symbol is required", err.Error())
}

func TestPersistenceError_Unwrap(t *testing.T) {
	cause := errors.New("connection reset")
	err := error(&PersistenceError{Op: "load sentiment", Err: cause})

	var pe *PersistenceError
	assert.True(t, errors.As(err, &pe))
	assert.True(t, errors.Is(err, cause))
	assert.Equal(t, "load sentiment: connection reset", err.Error())
}

func TestFetchError_Unwrap(t *testing.T) {
	cause := errors.New("timeout")
	err := &FetchError{Symbol: "TCS.NS", Err: cause}
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "TCS.NS")
}
