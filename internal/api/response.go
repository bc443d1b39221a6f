package api

import (
	"encoding/json"
	"io"
	"net/http"

	apperrors "deal-wizard/internal/common/errors"
	"deal-wizard/internal/session"
)

type envelope struct {
	Result  interface{}  `json:"result,omitempty"`
	Session session.View `json:"session"`
}

type errorBody struct {
	Code      apperrors.ErrorCode    `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Category  string                 `json:"category"`
	Fields    []apperrors.FieldIssue `json:"fields,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, err error) {
	stdErr := apperrors.As(err)
	writeJSON(w, apperrors.HTTPStatus(stdErr.Code), map[string]errorBody{
		"error": {
			Code:      stdErr.Code,
			Message:   stdErr.Message,
			Details:   stdErr.Details,
			Retryable: stdErr.Retryable,
			Category:  apperrors.GetErrorCategory(stdErr.Code),
			Fields:    stdErr.Fields,
		},
	})
}

// decode reads a JSON body into v. An empty body leaves v untouched.
func decode(r *http.Request, v interface{}) error {
	if r.Body == nil {
		return nil
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil && err != io.EOF {
		return apperrors.NewInvalidRequestError(err)
	}
	return nil
}
