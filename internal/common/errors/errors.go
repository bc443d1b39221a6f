// Package errors provides the standardized error model shared by the wizard
// components, the HTTP API and the job workers.
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

// Validation errors: step gates and field rules, recoverable by user correction.
const (
	ErrCodeStepGateFailed       ErrorCode = "STEP_GATE_FAILED"
	ErrCodeIllegalTransition    ErrorCode = "ILLEGAL_TRANSITION"
	ErrCodeStepNotActive        ErrorCode = "STEP_NOT_ACTIVE"
	ErrCodeDevelopmentOnlyField ErrorCode = "DEVELOPMENT_ONLY_FIELD"
	ErrCodeDrawingDisarmed      ErrorCode = "DRAWING_DISARMED"
	ErrCodeSubmissionInvalid    ErrorCode = "SUBMISSION_INVALID"
	ErrCodeNothingToAccept      ErrorCode = "NOTHING_TO_ACCEPT"
	ErrCodeSessionNotFound      ErrorCode = "SESSION_NOT_FOUND"
	ErrCodeUnknownCandidate     ErrorCode = "UNKNOWN_CANDIDATE"
	ErrCodeInvalidRequest       ErrorCode = "INVALID_REQUEST"
)

// Conflict errors: duplicate actions and late responses.
const (
	ErrCodeActionInFlight ErrorCode = "ACTION_IN_FLIGHT"
	ErrCodeStaleResponse  ErrorCode = "STALE_RESPONSE"
)

// Collaborator errors: surfaced as a dismissible banner, state rolled back.
const (
	ErrCodeGeocodingFailed          ErrorCode = "GEOCODING_FAILED"
	ErrCodePropertyTypeLookupFailed ErrorCode = "PROPERTY_TYPE_LOOKUP_FAILED"
	ErrCodeSubmarketLookupFailed    ErrorCode = "SUBMARKET_LOOKUP_FAILED"
	ErrCodeDocumentUploadFailed     ErrorCode = "DOCUMENT_UPLOAD_FAILED"
	ErrCodeNeighborLookupFailed     ErrorCode = "NEIGHBOR_LOOKUP_FAILED"
	ErrCodeOptimizationFailed       ErrorCode = "OPTIMIZATION_FAILED"
	ErrCodeFinancialSyncFailed      ErrorCode = "FINANCIAL_SYNC_FAILED"
	ErrCodeDealCreateFailed         ErrorCode = "DEAL_CREATE_FAILED"
)

// Partial failures: logged after a successful deal creation, never rolled back.
const (
	ErrCodeGeoContextLinkFailed   ErrorCode = "GEO_CONTEXT_LINK_FAILED"
	ErrCodeProcessStartFailed     ErrorCode = "PROCESS_START_FAILED"
	ErrCodeNotificationSendFailed ErrorCode = "NOTIFICATION_SEND_FAILED"
)

// ErrCodeInternal is used when a plain error has to be reported.
const ErrCodeInternal ErrorCode = "INTERNAL_ERROR"

// FieldIssue is a single field-level problem attached to a validation error.
type FieldIssue struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Fields    []FieldIssue           `json:"fields,omitempty"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

func (e *StandardError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("StandardError[%s]: %s (%s)", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// WithMetadata attaches a key/value pair and returns the same error.
func (e *StandardError) WithMetadata(key string, value interface{}) *StandardError {
	if e.Metadata == nil {
		e.Metadata = make(map[string]interface{})
	}
	e.Metadata[key] = value
	return e
}

// ==========================
// 2. Error Constructors
// ==========================

// NewStepGateFailedError reports a blocked exit gate with its field issues.
func NewStepGateFailedError(step string, fields []FieldIssue) *StandardError {
	return &StandardError{
		Code:      ErrCodeStepGateFailed,
		Message:   "Step requirements not met",
		Details:   fmt.Sprintf("step: %s", step),
		Retryable: false,
		Fields:    fields,
		Timestamp: time.Now().UTC(),
	}
}

// NewIllegalTransitionError reports a target that is not the legal successor.
func NewIllegalTransitionError(from, to string) *StandardError {
	return &StandardError{
		Code:      ErrCodeIllegalTransition,
		Message:   "Transition is not allowed",
		Details:   fmt.Sprintf("from: %s, to: %s", from, to),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewStepNotActiveError reports a write against a step that is not current.
func NewStepNotActiveError(required, current string) *StandardError {
	return &StandardError{
		Code:      ErrCodeStepNotActive,
		Message:   "Action is not available on the current step",
		Details:   fmt.Sprintf("required: %s, current: %s", required, current),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewDevelopmentOnlyFieldError reports a write to a development-only section.
func NewDevelopmentOnlyFieldError(field string) *StandardError {
	return &StandardError{
		Code:      ErrCodeDevelopmentOnlyField,
		Message:   "Field is only available for new development deals",
		Details:   fmt.Sprintf("field: %s", field),
		Retryable: false,
		Fields:    []FieldIssue{{Field: field, Message: "only available for new development", Code: string(ErrCodeDevelopmentOnlyField)}},
		Timestamp: time.Now().UTC(),
	}
}

// NewDrawingDisarmedError reports a drawing event while the tool is in select mode.
func NewDrawingDisarmedError(eventType string) *StandardError {
	return &StandardError{
		Code:      ErrCodeDrawingDisarmed,
		Message:   "Drawing tool is not armed",
		Details:   fmt.Sprintf("event: %s", eventType),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewSubmissionInvalidError reports a draft that fails the final invariants.
func NewSubmissionInvalidError(fields []FieldIssue) *StandardError {
	return &StandardError{
		Code:      ErrCodeSubmissionInvalid,
		Message:   "Deal cannot be submitted",
		Retryable: false,
		Fields:    fields,
		Timestamp: time.Now().UTC(),
	}
}

func NewNothingToAcceptError() *StandardError {
	return &StandardError{
		Code:      ErrCodeNothingToAccept,
		Message:   "Optimization produced no design to accept",
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewUnknownCandidateError reports a selection of an id that was never offered.
func NewUnknownCandidateError(kind, id string) *StandardError {
	return &StandardError{
		Code:      ErrCodeUnknownCandidate,
		Message:   fmt.Sprintf("Unknown %s", kind),
		Details:   fmt.Sprintf("id: %s", id),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewInvalidRequestError reports a request body that could not be decoded.
func NewInvalidRequestError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidRequest,
		Message:   "Malformed request",
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func NewSessionNotFoundError(sessionID string) *StandardError {
	return &StandardError{
		Code:      ErrCodeSessionNotFound,
		Message:   "Wizard session not found",
		Details:   fmt.Sprintf("sessionId: %s", sessionID),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewActionInFlightError reports a duplicate trigger of a pending action.
func NewActionInFlightError(action string) *StandardError {
	return &StandardError{
		Code:      ErrCodeActionInFlight,
		Message:   "Action already in progress",
		Details:   fmt.Sprintf("action: %s", action),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewStaleResponseError reports a response that arrived after its step was left.
func NewStaleResponseError(action string) *StandardError {
	return &StandardError{
		Code:      ErrCodeStaleResponse,
		Message:   "Response ignored because the step is no longer active",
		Details:   fmt.Sprintf("action: %s", action),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewCollaboratorError wraps a failed external call under the given code.
func NewCollaboratorError(code ErrorCode, collaborator string, err error) *StandardError {
	details := ""
	if err != nil {
		details = err.Error()
	}
	return &StandardError{
		Code:      code,
		Message:   fmt.Sprintf("%s request failed", collaborator),
		Details:   details,
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

func NewGeocodingFailedError(err error) *StandardError {
	return NewCollaboratorError(ErrCodeGeocodingFailed, "Geocoding", err)
}

func NewPropertyTypeLookupFailedError(err error) *StandardError {
	return NewCollaboratorError(ErrCodePropertyTypeLookupFailed, "Property type lookup", err)
}

func NewSubmarketLookupFailedError(err error) *StandardError {
	return NewCollaboratorError(ErrCodeSubmarketLookupFailed, "Submarket lookup", err)
}

func NewDocumentUploadFailedError(fileName string, err error) *StandardError {
	return NewCollaboratorError(ErrCodeDocumentUploadFailed, "Document upload", err).
		WithMetadata("fileName", fileName)
}

func NewNeighborLookupFailedError(err error) *StandardError {
	return NewCollaboratorError(ErrCodeNeighborLookupFailed, "Neighbor lookup", err)
}

func NewOptimizationFailedError(err error) *StandardError {
	return NewCollaboratorError(ErrCodeOptimizationFailed, "Optimization", err)
}

func NewFinancialSyncFailedError(err error) *StandardError {
	return NewCollaboratorError(ErrCodeFinancialSyncFailed, "Financial sync", err)
}

func NewDealCreateFailedError(err error) *StandardError {
	return NewCollaboratorError(ErrCodeDealCreateFailed, "Deal creation", err)
}

// NewGeoContextLinkFailedError is a partial failure after the deal exists.
func NewGeoContextLinkFailedError(dealID string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeGeoContextLinkFailed,
		Message:   "Geographic context could not be linked",
		Details:   fmt.Sprintf("dealId: %s, error: %v", dealID, err),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func NewProcessStartFailedError(processID string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeProcessStartFailed,
		Message:   "Onboarding process could not be started",
		Details:   fmt.Sprintf("processId: %s, error: %v", processID, err),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func NewNotificationSendFailedError(channel string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeNotificationSendFailed,
		Message:   "Notification delivery failed",
		Details:   fmt.Sprintf("type: %s, error: %v", channel, err),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewInternalError wraps an unexpected error.
func NewInternalError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeInternal,
		Message:   "Unexpected error",
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// ==========================
// 3. Classification
// ==========================

const (
	CategoryValidation   = "validation"
	CategoryConflict     = "conflict"
	CategoryCollaborator = "collaborator"
	CategoryPartial      = "partial"
	CategoryInternal     = "internal"
)

// GetErrorCategory classifies an error code.
func GetErrorCategory(code ErrorCode) string {
	switch code {
	case ErrCodeStepGateFailed, ErrCodeIllegalTransition, ErrCodeStepNotActive,
		ErrCodeDevelopmentOnlyField, ErrCodeDrawingDisarmed, ErrCodeSubmissionInvalid,
		ErrCodeNothingToAccept, ErrCodeSessionNotFound, ErrCodeUnknownCandidate,
		ErrCodeInvalidRequest:
		return CategoryValidation
	case ErrCodeActionInFlight, ErrCodeStaleResponse:
		return CategoryConflict
	case ErrCodeGeocodingFailed, ErrCodePropertyTypeLookupFailed, ErrCodeSubmarketLookupFailed,
		ErrCodeDocumentUploadFailed, ErrCodeNeighborLookupFailed, ErrCodeOptimizationFailed,
		ErrCodeFinancialSyncFailed, ErrCodeDealCreateFailed:
		return CategoryCollaborator
	case ErrCodeGeoContextLinkFailed, ErrCodeProcessStartFailed, ErrCodeNotificationSendFailed:
		return CategoryPartial
	default:
		return CategoryInternal
	}
}

// HTTPStatus maps an error code to the API response status.
func HTTPStatus(code ErrorCode) int {
	switch code {
	case ErrCodeSessionNotFound:
		return http.StatusNotFound
	case ErrCodeInvalidRequest:
		return http.StatusBadRequest
	case ErrCodeStepGateFailed, ErrCodeSubmissionInvalid, ErrCodeDevelopmentOnlyField, ErrCodeUnknownCandidate:
		return http.StatusUnprocessableEntity
	case ErrCodeIllegalTransition, ErrCodeStepNotActive, ErrCodeDrawingDisarmed,
		ErrCodeActionInFlight, ErrCodeStaleResponse, ErrCodeNothingToAccept:
		return http.StatusConflict
	}
	switch GetErrorCategory(code) {
	case CategoryCollaborator:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// As extracts a StandardError from err, wrapping plain errors as internal ones.
func As(err error) *StandardError {
	if err == nil {
		return nil
	}
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr
	}
	return NewInternalError(err)
}

// Is reports whether err carries the given code.
func Is(err error, code ErrorCode) bool {
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr.Code == code
	}
	return false
}

// ==========================
// 4. BPMN Integration
// ==========================

// BPMNError represents an error that can be thrown to the Camunda workflow engine.
type BPMNError struct {
	Code           string                 `json:"code"`
	Message        string                 `json:"message"`
	Details        string                 `json:"details,omitempty"`
	Retryable      bool                   `json:"retryable"`
	Retries        int                    `json:"retries"`
	ErrorVariables map[string]interface{} `json:"errorVariables,omitempty"`
}

func (e *BPMNError) Error() string {
	return fmt.Sprintf("BPMNError[%s]: %s", e.Code, e.Message)
}

// ToErrorVariables returns a map suitable for setting Camunda job fail variables.
func (e *BPMNError) ToErrorVariables() map[string]interface{} {
	vars := map[string]interface{}{
		"errorCode":    e.Code,
		"errorMessage": e.Message,
		"errorDetails": e.Details,
		"retryable":    e.Retryable,
	}
	for k, v := range e.ErrorVariables {
		vars[k] = v
	}
	return vars
}

// GetRetryCount returns how many times a job failing with code should be retried.
func GetRetryCount(code ErrorCode) int {
	switch GetErrorCategory(code) {
	case CategoryCollaborator:
		return 3
	case CategoryInternal:
		return 1
	default:
		return 0
	}
}

// ConvertToBPMNError converts a StandardError for the workflow engine.
func ConvertToBPMNError(err *StandardError) *BPMNError {
	if err == nil {
		return nil
	}
	return &BPMNError{
		Code:           string(err.Code),
		Message:        err.Message,
		Details:        err.Details,
		Retryable:      err.Retryable,
		Retries:        GetRetryCount(err.Code),
		ErrorVariables: err.Metadata,
	}
}
