package errors

import (
	stderrors "errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWithInternalKeepsOriginal(t *testing.T) {
	cause := stderrors.New("dial tcp: connection refused")
	err := ErrUpstreamUnavailable.WithInternal(cause)

	require.Equal(t, ErrUpstreamUnavailable.Code, err.Code)
	require.ErrorIs(t, err, cause)
	require.Contains(t, err.Error(), "connection refused")

	// the shared sentinel must not be mutated
	require.Nil(t, ErrUpstreamUnavailable.Internal)
}

func TestFromError(t *testing.T) {
	require.Nil(t, FromError(nil))

	appErr := FromError(ErrNotFound)
	require.Equal(t, http.StatusNotFound, appErr.StatusCode)

	wrapped := FromError(stderrors.New("boom"))
	require.Equal(t, ErrInternalServer.Code, wrapped.Code)
	require.Equal(t, http.StatusInternalServerError, wrapped.StatusCode)
}

func TestNewBadRequest(t *testing.T) {
	err := NewBadRequest("limit must be between 1 and 100")
	require.Equal(t, "BAD_REQUEST", err.Code)
	require.Equal(t, http.StatusBadRequest, err.StatusCode)
	require.Equal(t, "limit must be between 1 and 100", err.Message)
}
