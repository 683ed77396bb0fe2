package errors

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Los-Onichan-Kimochi/zen-cat-portal/internal/session"
	"github.com/Los-Onichan-Kimochi/zen-cat-portal/internal/zencat"
)

func TestToHTTP_Mapping(t *testing.T) {
	cases := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"nil_is_internal", nil, http.StatusInternalServerError, "internal"},
		{"unknown_is_internal", errors.New("boom"), http.StatusInternalServerError, "internal"},
		{
			"backend_error_passthrough",
			&zencat.HTTPError{Status: http.StatusNotFound, Code: "not_found", Message: "no"},
			http.StatusNotFound, "not_found",
		},
		{
			"wrapped_backend_error",
			fmt.Errorf("handlers.Get: %w", &zencat.HTTPError{Status: http.StatusConflict, Code: "already_exists"}),
			http.StatusConflict, "already_exists",
		},
		{"invalid_credentials", session.ErrInvalidCredentials, http.StatusUnauthorized, "invalid_credentials"},
		{"auth_expired", zencat.ErrAuthExpired, http.StatusUnauthorized, "session_expired"},
		{"invalid_argument", fmt.Errorf("decode: %w", ErrInvalidArgument), http.StatusBadRequest, "invalid_argument"},
		{"deadline", context.DeadlineExceeded, http.StatusGatewayTimeout, "deadline_exceeded"},
		{"canceled", context.Canceled, StatusClientClosedRequest, "canceled"},
		{
			"network_unavailable",
			&zencat.NetworkError{URL: "http://x", Err: errors.New("refused")},
			http.StatusServiceUnavailable, "unavailable",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status, resp := ToHTTP(tc.err)
			require.Equal(t, tc.wantStatus, status)
			require.Equal(t, tc.wantCode, resp.Error.Code)
			require.NotEmpty(t, resp.Error.Message)
		})
	}
}

func TestWriteError_IncludesRequestID(t *testing.T) {
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("X-Request-Id", "rid-1")

	WriteError(rr, req, zencat.ErrAuthExpired)

	require.Equal(t, http.StatusUnauthorized, rr.Code)
	require.Equal(t, "application/json", rr.Header().Get("Content-Type"))

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.Equal(t, "session_expired", resp.Error.Code)
	require.Equal(t, "rid-1", resp.Error.RequestID)
}

func TestWriteCode(t *testing.T) {
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/x", nil)

	WriteCode(rr, req, http.StatusForbidden, "permission_denied", "access denied")

	require.Equal(t, http.StatusForbidden, rr.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.Equal(t, "permission_denied", resp.Error.Code)
	require.Empty(t, resp.Error.RequestID)
}
