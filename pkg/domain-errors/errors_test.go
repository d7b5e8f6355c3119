package domainerrors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWrapPreservesCause(t *testing.T) {
	cause := errors.New("row lock timeout")
	err := Wrap(cause, CodeInternal, "failed to approve verification")

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, CodeInternal, CodeOf(err))
	assert.Equal(t, "failed to approve verification", MessageOf(err))
}

func TestCodeOfUncodedError(t *testing.T) {
	assert.Equal(t, CodeInternal, CodeOf(errors.New("plain")))
}

func TestCodeSurvivesWrapping(t *testing.T) {
	err := fmt.Errorf("handler: %w", New(CodeNotEligible, "missing document"))
	assert.True(t, Is(err, CodeNotEligible))
	assert.Equal(t, CodeNotEligible, CodeOf(err))
}

func TestToHTTPStatus(t *testing.T) {
	cases := map[Code]int{
		CodeBadRequest:        http.StatusBadRequest,
		CodeUnauthorized:      http.StatusUnauthorized,
		CodeNotFound:          http.StatusNotFound,
		CodeAlreadyExists:     http.StatusConflict,
		CodeInvalidTransition: http.StatusConflict,
		CodeNotEligible:       http.StatusUnprocessableEntity,
		CodeUnavailable:       http.StatusServiceUnavailable,
		CodeTimeout:           http.StatusGatewayTimeout,
		CodeInternal:          http.StatusInternalServerError,
		Code("unknown"):       http.StatusInternalServerError,
	}
	for code, want := range cases {
		assert.Equal(t, want, ToHTTPStatus(code), string(code))
	}
}
