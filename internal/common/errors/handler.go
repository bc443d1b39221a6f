// internal/common/errors/handler.go
package errors

import (
	"context"
	"encoding/json"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

// ErrorHandler reports job failures to the workflow engine.
type ErrorHandler struct {
	logger Logger
}

type Logger interface {
	Error(msg string, fields map[string]interface{})
}

func NewErrorHandler(logger Logger) *ErrorHandler {
	return &ErrorHandler{logger: logger}
}

// HandleJobError fails the job with retries for retryable codes and throws a
// BPMN error otherwise.
func (h *ErrorHandler) HandleJobError(ctx context.Context, client worker.JobClient, job entities.Job, err error) {
	stdErr := As(err)
	bpmnErr := ConvertToBPMNError(stdErr)

	h.logger.Error("Job failed", map[string]interface{}{
		"jobKey":           job.Key,
		"jobType":          job.Type,
		"errorCode":        string(stdErr.Code),
		"message":          bpmnErr.Message,
		"details":          stdErr.Details,
		"retryable":        stdErr.Retryable,
		"errorCategory":    GetErrorCategory(stdErr.Code),
		"workflowInstance": job.ProcessInstanceKey,
	})

	if stdErr.Retryable && bpmnErr.Retries > 0 && job.Retries > 0 {
		h.failJob(ctx, client, job, bpmnErr)
		return
	}
	h.throwBPMNError(ctx, client, job, bpmnErr)
}

func (h *ErrorHandler) failJob(ctx context.Context, client worker.JobClient, job entities.Job, bpmnErr *BPMNError) {
	retries := bpmnErr.Retries
	if int(job.Retries)-1 < retries {
		retries = int(job.Retries) - 1
	}
	if retries < 0 {
		retries = 0
	}

	cmd := client.NewFailJobCommand().
		JobKey(job.Key).
		Retries(int32(retries)).
		ErrorMessage(bpmnErr.Message)

	if varsJSON, err := json.Marshal(bpmnErr.ToErrorVariables()); err == nil {
		if withVars, err := cmd.VariablesFromString(string(varsJSON)); err == nil {
			_, _ = withVars.Send(ctx)
			return
		}
	}
	_, _ = cmd.Send(ctx)
}

func (h *ErrorHandler) throwBPMNError(ctx context.Context, client worker.JobClient, job entities.Job, bpmnErr *BPMNError) {
	cmd := client.NewThrowErrorCommand().
		JobKey(job.Key).
		ErrorCode(bpmnErr.Code).
		ErrorMessage(bpmnErr.Message)

	if varsJSON, err := json.Marshal(bpmnErr.ToErrorVariables()); err == nil {
		if withVars, err := cmd.VariablesFromString(string(varsJSON)); err == nil {
			_, _ = withVars.Send(ctx)
			return
		}
	}
	_, _ = cmd.Send(ctx)
}
