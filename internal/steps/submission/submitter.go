// Package submission validates the finished draft, creates the deal and runs
// the best-effort follow-ups.
package submission

import (
	"context"
	"time"

	apperrors "deal-wizard/internal/common/errors"
	"deal-wizard/internal/common/logger"
	"deal-wizard/internal/common/metrics"
	"deal-wizard/internal/common/observability"
)

// ProcessStarter starts the onboarding workflow for a new deal.
type ProcessStarter interface {
	StartProcess(ctx context.Context, processID string, variables interface{}) (int64, error)
}

type Submitter struct {
	config   *Config
	repo     Repository
	process  ProcessStarter
	notifier Notifier
	obs      *observability.Observability
	logger   logger.Logger
}

// NewSubmitter wires the submitter. process, notifier and obs may be nil.
func NewSubmitter(config *Config, repo Repository, process ProcessStarter, notifier Notifier, obs *observability.Observability, log logger.Logger) *Submitter {
	return &Submitter{
		config:   config,
		repo:     repo,
		process:  process,
		notifier: notifier,
		obs:      obs,
		logger:   logger.ForComponent(log, "submission"),
	}
}

// Submit creates the deal. Only the creation itself can fail the call; the
// follow-ups are recorded as warnings.
func (s *Submitter) Submit(ctx context.Context, p *Payload, branch string) (*Result, error) {
	start := time.Now()

	createCtx, cancel := ctx, context.CancelFunc(func() {})
	if s.config.Timeout > 0 {
		createCtx, cancel = context.WithTimeout(ctx, s.config.Timeout)
	}
	dealID, err := s.repo.CreateDeal(createCtx, p)
	cancel()
	metrics.ObserveCollaborator("deals", time.Since(start).Seconds(), err)
	if err != nil {
		s.obs.RecordSubmission(ctx, branch, "failed", time.Since(start))
		s.logger.Error("Deal creation failed", map[string]interface{}{"error": err.Error()})
		return nil, apperrors.NewDealCreateFailedError(err)
	}

	log := s.logger.With(map[string]interface{}{"dealId": dealID})
	result := &Result{DealID: dealID}

	if p.GeographicContext != nil {
		if err := s.repo.LinkGeographicContext(ctx, dealID, *p.GeographicContext); err != nil {
			w := apperrors.NewGeoContextLinkFailedError(dealID, err)
			log.Warn("Geographic context link failed", map[string]interface{}{"error": err.Error()})
			result.Warnings = append(result.Warnings, w.Error())
		}
	}

	if s.process != nil && s.config.ProcessEnabled {
		instanceKey, err := s.process.StartProcess(ctx, s.config.OnboardingProcessID, map[string]interface{}{
			"dealId":          dealID,
			"dealName":        p.Name,
			"category":        string(p.Category),
			"developmentType": string(p.DevelopmentType),
			"hasDesign":       p.Design3D != nil,
		})
		if err != nil {
			w := apperrors.NewProcessStartFailedError(s.config.OnboardingProcessID, err)
			log.Warn("Onboarding process start failed", map[string]interface{}{"error": err.Error()})
			result.Warnings = append(result.Warnings, w.Error())
		} else {
			result.ProcessInstanceID = instanceKey
		}
	}

	if s.notifier != nil && s.config.EmailEnabled {
		if err := s.notifier.DealCreated(ctx, dealID, p); err != nil {
			log.Warn("Deal confirmation email failed", map[string]interface{}{"error": err.Error()})
			result.Warnings = append(result.Warnings, apperrors.As(err).Error())
		}
	}

	metrics.DealsSubmitted.WithLabelValues(branch).Inc()
	status := "created"
	if len(result.Warnings) > 0 {
		status = "created_with_warnings"
	}
	s.obs.RecordSubmission(ctx, branch, status, time.Since(start))

	log.Info("Deal created", map[string]interface{}{
		"branch":   branch,
		"warnings": len(result.Warnings),
	})
	return result, nil
}
