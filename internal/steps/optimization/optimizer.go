package optimization

import (
	"context"
	"time"

	apperrors "deal-wizard/internal/common/errors"
	commonhttp "deal-wizard/internal/common/http"
	"deal-wizard/internal/common/metrics"
)

// Optimizer runs a design optimization.
type Optimizer interface {
	Optimize(ctx context.Context, req *Request) (*Response, error)
}

type HTTPOptimizer struct {
	client *commonhttp.Client
}

func NewHTTPOptimizer(config *Config) *HTTPOptimizer {
	return &HTTPOptimizer{
		client: commonhttp.NewServiceClient(config.OptimizerURL, config.OptimizerAPIKey, config.OptimizerTimeout),
	}
}

func (o *HTTPOptimizer) Optimize(ctx context.Context, req *Request) (*Response, error) {
	start := time.Now()
	var resp Response
	err := o.client.PostJSON(ctx, "/optimize", req, &resp)
	metrics.ObserveCollaborator("optimizer", time.Since(start).Seconds(), err)
	if err != nil {
		return nil, apperrors.NewOptimizationFailedError(err)
	}
	return &resp, nil
}
