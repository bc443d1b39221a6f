package errors

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetErrorCategory(t *testing.T) {
	tests := []struct {
		code ErrorCode
		want string
	}{
		{ErrCodeStepGateFailed, CategoryValidation},
		{ErrCodeIllegalTransition, CategoryValidation},
		{ErrCodeActionInFlight, CategoryConflict},
		{ErrCodeStaleResponse, CategoryConflict},
		{ErrCodeOptimizationFailed, CategoryCollaborator},
		{ErrCodeDealCreateFailed, CategoryCollaborator},
		{ErrCodeGeoContextLinkFailed, CategoryPartial},
		{ErrCodeInternal, CategoryInternal},
	}
	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			assert.Equal(t, tt.want, GetErrorCategory(tt.code))
		})
	}
}

func TestHTTPStatus(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, HTTPStatus(ErrCodeSessionNotFound))
	assert.Equal(t, http.StatusUnprocessableEntity, HTTPStatus(ErrCodeStepGateFailed))
	assert.Equal(t, http.StatusConflict, HTTPStatus(ErrCodeActionInFlight))
	assert.Equal(t, http.StatusBadGateway, HTTPStatus(ErrCodeNeighborLookupFailed))
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(ErrCodeInternal))
}

func TestAsAndIs(t *testing.T) {
	wrapped := fmt.Errorf("advance: %w", NewIllegalTransitionError("CATEGORY", "SUBMIT"))

	assert.True(t, Is(wrapped, ErrCodeIllegalTransition))
	assert.False(t, Is(wrapped, ErrCodeStepGateFailed))
	assert.Equal(t, ErrCodeIllegalTransition, As(wrapped).Code)

	plain := As(fmt.Errorf("boom"))
	require.NotNil(t, plain)
	assert.Equal(t, ErrCodeInternal, plain.Code)
	assert.Nil(t, As(nil))
}

func TestConvertToBPMNError(t *testing.T) {
	stdErr := NewOptimizationFailedError(fmt.Errorf("503")).WithMetadata("sessionId", "s-1")

	bpmn := ConvertToBPMNError(stdErr)
	require.NotNil(t, bpmn)
	assert.Equal(t, "OPTIMIZATION_FAILED", bpmn.Code)
	assert.Equal(t, 3, bpmn.Retries)
	assert.True(t, bpmn.Retryable)

	vars := bpmn.ToErrorVariables()
	assert.Equal(t, "s-1", vars["sessionId"])
	assert.Equal(t, "OPTIMIZATION_FAILED", vars["errorCode"])

	assert.Nil(t, ConvertToBPMNError(nil))
	assert.Equal(t, 0, GetRetryCount(ErrCodeStaleResponse))
}

func TestStepGateFailedError_CarriesFields(t *testing.T) {
	err := NewStepGateFailedError("DETAILS", []FieldIssue{{Field: "name", Message: "required field missing"}})

	assert.Equal(t, ErrCodeStepGateFailed, err.Code)
	assert.Len(t, err.Fields, 1)
	assert.Contains(t, err.Error(), "STEP_GATE_FAILED")
}
