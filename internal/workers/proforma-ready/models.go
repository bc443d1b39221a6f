package proformaready

import (
	"encoding/json"
	"time"
)

// Input is the job payload published by the financial-modeling process.
type Input struct {
	SessionID   string          `json:"sessionId"`
	Revision    int64           `json:"revision"`
	GeneratedAt time.Time       `json:"generatedAt"`
	ProForma    json.RawMessage `json:"proForma"`
}

type Output struct {
	Applied bool   `json:"proFormaApplied"`
	Reason  string `json:"proFormaReason,omitempty"`
}

const (
	ReasonApplied         = "APPLIED"
	ReasonStale           = "STALE_REVISION"
	ReasonSessionNotFound = "SESSION_NOT_FOUND"
	ReasonDisabled        = "DISABLED"
)
