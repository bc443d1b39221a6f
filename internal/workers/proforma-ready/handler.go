package proformaready

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"deal-wizard/internal/common/config"
	apperrors "deal-wizard/internal/common/errors"
	"deal-wizard/internal/common/logger"
	"deal-wizard/internal/common/metrics"
	"deal-wizard/internal/common/observability"
	"deal-wizard/internal/common/validation"
	"deal-wizard/internal/models"
)

const TaskType = "deal-wizard.proforma-ready"

//go:embed input.schema.json
var inputSchema []byte

// ProFormaSink routes a pro forma to its wizard session.
type ProFormaSink interface {
	ApplyProForma(sessionID string, pf *models.ProForma) error
}

type Handler struct {
	config       *Config
	sink         ProFormaSink
	obs          *observability.Observability
	errorHandler *apperrors.ErrorHandler
	logger       logger.Logger
}

type HandlerOptions struct {
	AppConfig     *config.Config
	CustomConfig  *Config
	Sink          ProFormaSink
	Observability *observability.Observability
	Logger        logger.Logger
}

func NewHandler(opts HandlerOptions) (*Handler, error) {
	workerConfig := createConfigFromAppConfig(opts.AppConfig, opts.CustomConfig)
	if err := workerConfig.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration for %s: %w", config.ProformaReadyWorker, err)
	}
	if opts.Sink == nil {
		return nil, fmt.Errorf("%s requires a pro forma sink", config.ProformaReadyWorker)
	}

	log := opts.Logger
	if log == nil {
		log = logger.NewStructured("info", "json")
	}
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})

	return &Handler{
		config:       workerConfig,
		sink:         opts.Sink,
		obs:          opts.Observability,
		errorHandler: apperrors.NewErrorHandler(log),
		logger:       log,
	}, nil
}

func (h *Handler) Config() *Config {
	return h.config
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	h.logger.Info("Processing pro forma", map[string]interface{}{
		"jobKey":             job.GetKey(),
		"processInstanceKey": job.GetProcessInstanceKey(),
	})

	if !h.config.Enabled {
		h.completeJob(ctx, client, job, &Output{Applied: false, Reason: ReasonDisabled})
		return
	}

	input, err := h.parseInput(job)
	if err != nil {
		h.fail(ctx, client, job, err)
		return
	}

	output, err := h.Execute(ctx, input)
	if err != nil {
		h.fail(ctx, client, job, err)
		return
	}

	h.completeJob(ctx, client, job, output)
	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
	h.obs.RecordJobProcessed(ctx, TaskType, "success")
}

// Execute applies the pro forma. Pro formas for a superseded revision or a
// finished session are dropped and reported as not applied.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	pf := &models.ProForma{
		Revision:    input.Revision,
		GeneratedAt: input.GeneratedAt,
		Data:        input.ProForma,
	}
	if pf.GeneratedAt.IsZero() {
		pf.GeneratedAt = time.Now().UTC()
	}

	err := h.sink.ApplyProForma(input.SessionID, pf)
	switch {
	case err == nil:
		h.logger.Info("Pro forma applied", map[string]interface{}{
			"sessionId": input.SessionID,
			"revision":  input.Revision,
		})
		return &Output{Applied: true, Reason: ReasonApplied}, nil
	case apperrors.Is(err, apperrors.ErrCodeStaleResponse):
		h.logger.Info("Pro forma superseded", map[string]interface{}{
			"sessionId": input.SessionID,
			"revision":  input.Revision,
		})
		return &Output{Applied: false, Reason: ReasonStale}, nil
	case apperrors.Is(err, apperrors.ErrCodeSessionNotFound):
		h.logger.Info("Pro forma for unknown session", map[string]interface{}{
			"sessionId": input.SessionID,
		})
		return &Output{Applied: false, Reason: ReasonSessionNotFound}, nil
	default:
		return nil, err
	}
}

func (h *Handler) parseInput(job entities.Job) (*Input, error) {
	var raw map[string]interface{}
	if err := json.Unmarshal([]byte(job.GetVariables()), &raw); err != nil {
		return nil, apperrors.NewInvalidRequestError(err)
	}

	vr, err := validation.ValidateDocument(inputSchema, raw)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	if !vr.Valid {
		stdErr := apperrors.NewInvalidRequestError(fmt.Errorf("%v", vr.GetErrorMessages()))
		stdErr.Fields = vr.FieldIssues()
		return nil, stdErr
	}

	var input Input
	if err := json.Unmarshal([]byte(job.GetVariables()), &input); err != nil {
		return nil, apperrors.NewInvalidRequestError(err)
	}
	return &input, nil
}

func (h *Handler) completeJob(ctx context.Context, client worker.JobClient, job entities.Job, output *Output) {
	request, err := client.NewCompleteJobCommand().JobKey(job.GetKey()).VariablesFromObject(output)
	if err != nil {
		h.logger.Error("Failed to create complete job command", map[string]interface{}{
			"jobKey": job.GetKey(),
			"error":  err.Error(),
		})
		return
	}
	if _, err := request.Send(ctx); err != nil {
		h.logger.Error("Failed to send complete job command", map[string]interface{}{
			"jobKey": job.GetKey(),
			"error":  err.Error(),
		})
	}
}

func (h *Handler) fail(ctx context.Context, client worker.JobClient, job entities.Job, err error) {
	code := apperrors.As(err).Code
	metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(code)).Inc()
	h.obs.RecordJobProcessed(ctx, TaskType, "failed")
	h.errorHandler.HandleJobError(ctx, client, job, err)
}
