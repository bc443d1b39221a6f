package wizard

import (
	apperrors "deal-wizard/internal/common/errors"
	"deal-wizard/internal/common/logger"
	"deal-wizard/internal/common/metrics"
	"deal-wizard/internal/common/validation"
	"deal-wizard/internal/draft"
)

// Direction of a transition.
type Direction string

const (
	Forward  Direction = "forward"
	Backward Direction = "backward"
)

// Transition describes a completed step change. Branch is the branch in
// effect when the change happened.
type Transition struct {
	From      Step
	To        Step
	Direction Direction
	Branch    Branch
}

// Hook runs after the current step has changed.
type Hook func(t Transition)

// Progress is the position of the current step on the active branch.
type Progress struct {
	Index int    `json:"index"`
	Total int    `json:"total"`
	Steps []Step `json:"steps"`
}

// Controller is the single source of truth for the current step. It is not
// safe for concurrent use; the owning session serializes access.
type Controller struct {
	store   *draft.Store
	current Step
	epoch   uint64
	hooks   []Hook
	logger  logger.Logger
}

func NewController(store *draft.Store, log logger.Logger) *Controller {
	return &Controller{
		store:   store,
		current: StepCategory,
		logger:  logger.ForComponent(log, "wizard-controller"),
	}
}

// OnTransition registers a hook called after every successful transition.
func (c *Controller) OnTransition(h Hook) {
	c.hooks = append(c.hooks, h)
}

func (c *Controller) Current() Step {
	return c.current
}

// Epoch increases on every transition. Pending actions capture it to detect
// that their step was left while they were in flight.
func (c *Controller) Epoch() uint64 {
	return c.epoch
}

func (c *Controller) Branch() Branch {
	return ResolveBranch(c.store.Category(), c.store.DevelopmentType())
}

func (c *Controller) Sequence() []Step {
	return Sequence(c.Branch())
}

func (c *Controller) Progress() Progress {
	seq := c.Sequence()
	idx := 0
	for i, s := range seq {
		if s == c.current {
			idx = i
			break
		}
	}
	return Progress{Index: idx, Total: len(seq), Steps: seq}
}

// Require fails with STEP_NOT_ACTIVE unless the current step is one of steps.
func (c *Controller) Require(steps ...Step) error {
	for _, s := range steps {
		if c.current == s {
			return nil
		}
	}
	required := ""
	if len(steps) > 0 {
		required = string(steps[0])
	}
	return apperrors.NewStepNotActiveError(required, string(c.current))
}

// Successor is the legal next step from the current one.
func (c *Controller) Successor() (Step, bool) {
	return definitions[c.current].Successor(c.Branch())
}

// Predecessor is the previous step on the active branch.
func (c *Controller) Predecessor() (Step, bool) {
	seq := c.Sequence()
	for i, s := range seq {
		if s == c.current {
			if i == 0 {
				return "", false
			}
			return seq[i-1], true
		}
	}
	return "", false
}

// Gate evaluates the exit gate of the current step.
func (c *Controller) Gate() *validation.ValidationResult {
	def := definitions[c.current]
	if def.Gate == nil {
		return validation.NewResult()
	}
	snap := c.store.Snapshot()
	return def.Gate(&snap)
}

// Advance moves to target. target must be the legal successor of the current
// step on the active branch and the current step's gate must pass; otherwise
// nothing changes.
func (c *Controller) Advance(target Step) error {
	from := c.current
	next, ok := c.Successor()
	if _, known := definitions[target]; !known || !ok || next != target {
		metrics.WizardGateRejections.WithLabelValues(string(from), "illegal_transition").Inc()
		c.logger.Warn("Illegal transition rejected", map[string]interface{}{
			"from": string(from),
			"to":   string(target),
		})
		return apperrors.NewIllegalTransitionError(string(from), string(target))
	}

	if vr := c.Gate(); !vr.Valid {
		metrics.WizardGateRejections.WithLabelValues(string(from), "gate").Inc()
		c.logger.Debug("Step gate blocked transition", map[string]interface{}{
			"step":   string(from),
			"errors": vr.GetErrorMessages(),
		})
		return apperrors.NewStepGateFailedError(string(from), vr.FieldIssues())
	}

	c.move(target, Forward)
	return nil
}

// Next advances to the computed successor.
func (c *Controller) Next() (Step, error) {
	next, ok := c.Successor()
	if !ok {
		return c.current, apperrors.NewIllegalTransitionError(string(c.current), "")
	}
	if err := c.Advance(next); err != nil {
		return c.current, err
	}
	return next, nil
}

// Retreat moves to the predecessor on the active branch and clears every
// draft field owned by a step after it.
func (c *Controller) Retreat() (Step, error) {
	prev, ok := c.Predecessor()
	if !ok {
		metrics.WizardGateRejections.WithLabelValues(string(c.current), "no_predecessor").Inc()
		return c.current, apperrors.NewIllegalTransitionError(string(c.current), "")
	}

	cleared := OwnedAfter(prev)
	c.store.Clear(cleared...)
	c.logger.Debug("Cleared fields on retreat", map[string]interface{}{
		"target": string(prev),
		"fields": cleared,
	})

	c.move(prev, Backward)
	return prev, nil
}

func (c *Controller) move(to Step, dir Direction) {
	t := Transition{From: c.current, To: to, Direction: dir, Branch: c.Branch()}
	c.current = to
	c.epoch++

	metrics.WizardTransitions.WithLabelValues(string(t.From), string(t.To), string(dir)).Inc()
	c.logger.Info("Step transition", map[string]interface{}{
		"from":      string(t.From),
		"to":        string(t.To),
		"direction": string(dir),
		"branch":    string(t.Branch),
	})

	for _, h := range c.hooks {
		h(t)
	}
}
