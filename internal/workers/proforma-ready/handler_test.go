package proformaready

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/pb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"deal-wizard/internal/common/config"
	apperrors "deal-wizard/internal/common/errors"
	"deal-wizard/internal/common/logger"
	"deal-wizard/internal/models"
)

// ==========================
// Mock Sink Implementation
// ==========================

type MockSink struct {
	mock.Mock
}

func (m *MockSink) ApplyProForma(sessionID string, pf *models.ProForma) error {
	args := m.Called(sessionID, pf)
	return args.Error(0)
}

// ==========================
// Mock Job Helper
// ==========================

func createMockJob(key int64, variables map[string]interface{}) entities.Job {
	variablesJSON, _ := json.Marshal(variables)

	activatedJob := &pb.ActivatedJob{
		Key:                      key,
		Type:                     TaskType,
		ProcessInstanceKey:       key * 10,
		BpmnProcessId:            "financial-model",
		ProcessDefinitionVersion: 1,
		ProcessDefinitionKey:     1,
		ElementId:                "Activity_ProFormaReady",
		ElementInstanceKey:       1,
		CustomHeaders:            "{}",
		Worker:                   "test-worker",
		Retries:                  3,
		Deadline:                 0,
		Variables:                string(variablesJSON),
	}

	return entities.Job{ActivatedJob: activatedJob}
}

func createTestHandler(t *testing.T, sink ProFormaSink) *Handler {
	t.Helper()
	h, err := NewHandler(HandlerOptions{
		CustomConfig: DefaultConfig(),
		Sink:         sink,
		Logger:       logger.NewTestLogger(t),
	})
	require.NoError(t, err)
	return h
}

func validVariables() map[string]interface{} {
	return map[string]interface{}{
		"sessionId":   "s-1",
		"revision":    2,
		"generatedAt": "2026-03-01T10:00:00Z",
		"proForma":    map[string]interface{}{"irr": 0.152, "yieldOnCost": 0.064},
	}
}

// ==========================
// Handler Creation Tests
// ==========================

func TestHandler_NewHandler(t *testing.T) {
	tests := []struct {
		name    string
		opts    HandlerOptions
		wantErr string
	}{
		{
			name: "valid configuration",
			opts: HandlerOptions{CustomConfig: DefaultConfig(), Sink: &MockSink{}},
		},
		{
			name:    "missing sink",
			opts:    HandlerOptions{CustomConfig: DefaultConfig()},
			wantErr: "requires a pro forma sink",
		},
		{
			name:    "invalid timeout",
			opts:    HandlerOptions{CustomConfig: &Config{Enabled: true, MaxJobsActive: 1}, Sink: &MockSink{}},
			wantErr: "timeout must be positive",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.opts.Logger = logger.NewTestLogger(t)
			h, err := NewHandler(tt.opts)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, h)
		})
	}
}

func TestCreateConfigFromAppConfig(t *testing.T) {
	appCfg := &config.Config{Workers: map[string]config.WorkerConfig{
		config.ProformaReadyWorker: {Enabled: false, MaxJobsActive: 3, Timeout: 2500},
	}}

	cfg := createConfigFromAppConfig(appCfg, nil)

	assert.False(t, cfg.Enabled)
	assert.Equal(t, 3, cfg.MaxJobsActive)
	assert.Equal(t, 2500*time.Millisecond, cfg.Timeout)

	cfg = createConfigFromAppConfig(&config.Config{}, nil)
	assert.True(t, cfg.Enabled)
	assert.Equal(t, 5, cfg.MaxJobsActive)
}

// ==========================
// Input Parsing Tests
// ==========================

func TestHandler_ParseInput(t *testing.T) {
	h := createTestHandler(t, &MockSink{})

	tests := []struct {
		name    string
		mutate  func(v map[string]interface{})
		wantErr bool
	}{
		{name: "valid input", mutate: func(v map[string]interface{}) {}},
		{name: "missing session id", mutate: func(v map[string]interface{}) { delete(v, "sessionId") }, wantErr: true},
		{name: "empty session id", mutate: func(v map[string]interface{}) { v["sessionId"] = "" }, wantErr: true},
		{name: "zero revision", mutate: func(v map[string]interface{}) { v["revision"] = 0 }, wantErr: true},
		{name: "fractional revision", mutate: func(v map[string]interface{}) { v["revision"] = 1.5 }, wantErr: true},
		{name: "missing pro forma", mutate: func(v map[string]interface{}) { delete(v, "proForma") }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			vars := validVariables()
			tt.mutate(vars)

			input, err := h.parseInput(createMockJob(12345, vars))

			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, apperrors.Is(err, apperrors.ErrCodeInvalidRequest))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "s-1", input.SessionID)
			assert.Equal(t, int64(2), input.Revision)
			assert.Equal(t, time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC), input.GeneratedAt.UTC())
			assert.JSONEq(t, `{"irr":0.152,"yieldOnCost":0.064}`, string(input.ProForma))
		})
	}
}

// ==========================
// Execute Tests
// ==========================

func TestHandler_Execute(t *testing.T) {
	tests := []struct {
		name       string
		sinkErr    error
		wantOutput *Output
		wantErr    bool
	}{
		{
			name:       "applied",
			wantOutput: &Output{Applied: true, Reason: ReasonApplied},
		},
		{
			name:       "superseded revision",
			sinkErr:    apperrors.NewStaleResponseError("proforma"),
			wantOutput: &Output{Applied: false, Reason: ReasonStale},
		},
		{
			name:       "session gone",
			sinkErr:    apperrors.NewSessionNotFoundError("s-1"),
			wantOutput: &Output{Applied: false, Reason: ReasonSessionNotFound},
		},
		{
			name:    "unexpected failure",
			sinkErr: errors.New("boom"),
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sink := &MockSink{}
			sink.On("ApplyProForma", "s-1", mock.MatchedBy(func(pf *models.ProForma) bool {
				return pf.Revision == 2 && !pf.GeneratedAt.IsZero()
			})).Return(tt.sinkErr)
			h := createTestHandler(t, sink)

			out, err := h.Execute(context.Background(), &Input{
				SessionID: "s-1",
				Revision:  2,
				ProForma:  json.RawMessage(`{"irr":0.15}`),
			})

			if tt.wantErr {
				require.Error(t, err)
				assert.Nil(t, out)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.wantOutput, out)
			}
			sink.AssertExpectations(t)
		})
	}
}
