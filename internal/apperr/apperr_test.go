package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTTPStatus(t *testing.T) {
	cases := map[Kind]int{
		KindValidation: http.StatusBadRequest,
		KindAuth:       http.StatusUnauthorized,
		KindForbidden:  http.StatusForbidden,
		KindConflict:   http.StatusConflict,
		KindNotFound:   http.StatusNotFound,
		KindInternal:   http.StatusInternalServerError,
		Kind("bogus"):  http.StatusInternalServerError,
	}
	for kind, want := range cases {
		assert.Equal(t, want, HTTPStatus(kind), string(kind))
	}
}

func TestKindOf_WrappedError(t *testing.T) {
	err := fmt.Errorf("handler: %w", NotFound("User not found"))
	assert.Equal(t, KindNotFound, KindOf(err))
	assert.Equal(t, "User not found", PublicMessage(err))
}

func TestKindOf_PlainErrorIsInternal(t *testing.T) {
	err := errors.New("connection reset")
	assert.Equal(t, KindInternal, KindOf(err))
	assert.Equal(t, InternalMessage, PublicMessage(err))
}

func TestInternal_HidesCause(t *testing.T) {
	cause := errors.New("pq: relation users does not exist")
	err := Internal("failed to list users", cause)

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "relation users")
	assert.Equal(t, InternalMessage, PublicMessage(err))
}
