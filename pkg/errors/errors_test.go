package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTypeOf(t *testing.T) {
	assert.Equal(t, TypeNotFound, TypeOf(New(TypeNotFound, "gone")))
	assert.Equal(t, TypeRateLimited, TypeOf(Wrap(TypeRateLimited, "slow down", errors.New("429"))))

	// Wrapped taxonomy errors are still recognized.
	wrapped := fmt.Errorf("while fetching: %w", New(TypeInvalidURL, "bad"))
	assert.Equal(t, TypeInvalidURL, TypeOf(wrapped))

	// Anything else is an upstream failure.
	assert.Equal(t, TypeUpstream, TypeOf(errors.New("boom")))
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{New(TypeInvalidURL, "bad url"), http.StatusBadRequest},
		{New(TypeNotFound, "missing"), http.StatusNotFound},
		{New(TypeRateLimited, "throttled"), http.StatusTooManyRequests},
		{New(TypeUpstream, "broken"), http.StatusInternalServerError},
		{New(TypeNoMedia, "nothing"), http.StatusInternalServerError},
		{New(TypeAuth, "login"), http.StatusInternalServerError},
		{errors.New("untagged"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.status, HTTPStatus(tt.err), "error %v", tt.err)
	}
}

func TestUnwrapPreservesCause(t *testing.T) {
	cause := errors.New("please wait a few minutes")
	err := Wrap(TypeRateLimited, "retries exhausted", cause)

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "please wait")
}

func TestDetail(t *testing.T) {
	assert.Equal(t, "post not found", Detail(New(TypeNotFound, "post not found")))
	assert.Equal(t, "retries exhausted: 429", Detail(Wrap(TypeRateLimited, "retries exhausted", errors.New("429"))))
	assert.Equal(t, "plain", Detail(errors.New("plain")))
}
