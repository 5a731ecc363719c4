package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sentinelops/aegisgate/services"
	"github.com/sentinelops/aegisgate/utils"
)

func TestHandleServiceError(t *testing.T) {
	tests := []struct {
		name           string
		err            error
		expectedStatus int
		expectedError  string
	}{
		{
			name:           "validation error",
			err:            services.ErrEmptyPrompt,
			expectedStatus: http.StatusBadRequest,
			expectedError:  "bad_request",
		},
		{
			name:           "not found error",
			err:            services.ErrConversationNotFound,
			expectedStatus: http.StatusNotFound,
			expectedError:  "not_found",
		},
		{
			name:           "unauthorized error",
			err:            services.ErrUnauthorized,
			expectedStatus: http.StatusUnauthorized,
			expectedError:  "unauthorized",
		},
		{
			name:           "forbidden error",
			err:            services.ErrAdminRequired,
			expectedStatus: http.StatusForbidden,
			expectedError:  "forbidden",
		},
		{
			name:           "rate limit error",
			err:            services.ErrRateLimitExceeded,
			expectedStatus: http.StatusTooManyRequests,
			expectedError:  "rate_limit_exceeded",
		},
		{
			name:           "policy violation error",
			err:            services.ErrRequestBlocked,
			expectedStatus: http.StatusForbidden,
			expectedError:  "policy_violation",
		},
		{
			name:           "external provider error",
			err:            services.ErrProviderUnavailable,
			expectedStatus: http.StatusBadGateway,
			expectedError:  "provider_error",
		},
		{
			name:           "unknown error",
			err:            errors.New("something went wrong"),
			expectedStatus: http.StatusInternalServerError,
			expectedError:  "internal_error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			HandleServiceError(rec, zap.NewNop(), tt.err)

			assert.Equal(t, tt.expectedStatus, rec.Code)

			var resp utils.ErrorResponse
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
			assert.Equal(t, tt.expectedError, resp.Error)
		})
	}
}

func TestHandleServiceErrorWithDetails(t *testing.T) {
	err := services.NewDomainError(services.ErrorTypePolicyViolation, "request blocked by guardrail", nil).
		WithDetail("request_id", "7f6c1c2e").
		WithDetail("rule", "injection_block")

	rec := httptest.NewRecorder()
	HandleServiceError(rec, zap.NewNop(), err)

	assert.Equal(t, http.StatusForbidden, rec.Code)

	var resp utils.ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "policy_violation", resp.Error)
	assert.Equal(t, "7f6c1c2e", resp.Details["request_id"])
	assert.Equal(t, "injection_block", resp.Details["rule"])
}

func TestHandleServiceErrorStructValidation(t *testing.T) {
	type payload struct {
		Prompt string `validate:"required"`
	}

	verr := utils.ValidateStruct(payload{})
	require.Error(t, verr)

	rec := httptest.NewRecorder()
	HandleServiceError(rec, zap.NewNop(), verr)

	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var resp utils.ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "bad_request", resp.Error)
	assert.Contains(t, resp.Details, "Prompt")
}
