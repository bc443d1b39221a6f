package camunda

import (
	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"

	"deal-wizard/internal/common/logger"
)

// JobHandler processes one activated job and reports its outcome itself.
type JobHandler interface {
	Handle(client worker.JobClient, job entities.Job)
}

// JobWorker subscribes a JobHandler to a job type.
type JobWorker struct {
	worker   worker.JobWorker
	logger   logger.Logger
	taskType string
}

func NewWorker(client zbc.Client, taskType string, maxJobsActive int, handler JobHandler, log logger.Logger) *JobWorker {
	jobWorker := client.NewJobWorker().
		JobType(taskType).
		Handler(handler.Handle).
		MaxJobsActive(maxJobsActive).
		Open()

	log.Info("worker started", map[string]interface{}{"taskType": taskType, "maxJobsActive": maxJobsActive})
	return &JobWorker{worker: jobWorker, logger: log, taskType: taskType}
}

// Stop closes the subscription and waits for running handlers.
func (w *JobWorker) Stop() {
	w.logger.Info("stopping worker", map[string]interface{}{"taskType": w.taskType})
	w.worker.Close()
	w.worker.AwaitClose()
}
