// Package session hosts wizard sessions: one draft, one step controller and
// the step components, behind a mutex. Collaborator calls run outside the
// lock and are dropped when the step they were started from has been left.
package session

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	apperrors "deal-wizard/internal/common/errors"
	"deal-wizard/internal/common/logger"
	"deal-wizard/internal/common/metrics"
	"deal-wizard/internal/draft"
	"deal-wizard/internal/models"
	designpipeline "deal-wizard/internal/steps/design-pipeline"
	"deal-wizard/internal/steps/documents"
	financialsync "deal-wizard/internal/steps/financial-sync"
	geometrycapture "deal-wizard/internal/steps/geometry-capture"
	neighborselection "deal-wizard/internal/steps/neighbor-selection"
	"deal-wizard/internal/steps/optimization"
	"deal-wizard/internal/steps/submission"
	"deal-wizard/internal/wizard"
)

// Action names an asynchronous collaborator call.
type Action string

const (
	ActionPropertyTypes Action = "property-types"
	ActionUpload        Action = "documents"
	ActionGeocode       Action = "geocode"
	ActionSubmarket     Action = "submarket"
	ActionNeighbors     Action = "neighbors"
	ActionOptimize      Action = "optimize"
	ActionSubmit        Action = "submit"
)

// pending ties an in-flight call to the transition epoch it started in.
type pending struct {
	action Action
	epoch  uint64
}

type Session struct {
	mu    sync.Mutex
	pubMu sync.Mutex

	id         string
	store      *draft.Store
	controller *wizard.Controller
	drawing    *geometrycapture.ModeTracker
	capture    *geometrycapture.Capture
	design     *designpipeline.Bridge
	neighbors  *neighborselection.Selection
	optimizer  *optimization.Orchestrator
	financial  *financialsync.Bridge
	deps       *Dependencies

	propertyTypes []models.PropertyType
	inFlight      map[Action]bool
	banner        *apperrors.StandardError
	submitted     *submission.Result
	closed        bool

	createdAt    time.Time
	lastActivity time.Time
	now          func() time.Time
	logger       logger.Logger
}

func New(id string, deps *Dependencies, log logger.Logger) *Session {
	if deps == nil {
		deps = &Dependencies{}
	}
	log = logger.ForComponent(log, "session").With(map[string]interface{}{"sessionId": id})

	store := draft.NewStore()
	drawing := geometrycapture.NewModeTracker()
	s := &Session{
		id:         id,
		store:      store,
		controller: wizard.NewController(store, log),
		drawing:    drawing,
		capture:    geometrycapture.NewCapture(drawing, log),
		design:     designpipeline.NewBridge(log),
		neighbors:  neighborselection.NewSelection(log),
		optimizer:  optimization.NewOrchestrator(deps.Optimizer, log),
		financial:  financialsync.NewBridge(id, log),
		deps:       deps,
		inFlight:   make(map[Action]bool),
		now:        time.Now,
		logger:     log,
	}
	s.createdAt = s.now()
	s.lastActivity = s.createdAt
	s.controller.OnTransition(s.onTransition)
	return s
}

func (s *Session) ID() string {
	return s.id
}

// onTransition runs with the session lock held.
func (s *Session) onTransition(t wizard.Transition) {
	s.banner = nil
	s.capture.Sync(t.To, t.Branch)
	s.capture.SyncExisting(s.store)

	if t.From == wizard.StepOptimize && t.Direction == wizard.Forward {
		if s.optimizer.DiscardUnaccepted(s.store) {
			s.logger.Debug("Unaccepted optimization discarded", nil)
		}
	}
	if t.From == wizard.StepNeighbors && t.Direction == wizard.Backward {
		s.neighbors.Reset()
	}
	if t.From == wizard.StepFinancial && t.Direction == wizard.Backward {
		s.financial.Reset()
	}

	switch t.To {
	case wizard.StepFinancial:
		if _, err := s.financial.Seed(s.store); err != nil {
			s.logger.Error("Seeding financial assumptions failed", map[string]interface{}{"error": err.Error()})
			return
		}
		s.financial.Notify(s.store)
	case wizard.StepSubmit:
		s.capture.EnsureBoundary(s.store)
	}
}

func (s *Session) touch() {
	s.lastActivity = s.now()
}

// IdleSince reports when the session was last used.
func (s *Session) IdleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActivity
}

// check rejects calls on closed sessions and calls outside the given steps.
// The caller holds the lock.
func (s *Session) check(steps ...wizard.Step) error {
	if s.closed {
		return apperrors.NewSessionNotFoundError(s.id)
	}
	s.touch()
	if len(steps) == 0 {
		return nil
	}
	return s.controller.Require(steps...)
}

// begin marks action in flight. The caller holds the lock.
func (s *Session) begin(action Action, steps ...wizard.Step) (pending, error) {
	if err := s.check(steps...); err != nil {
		return pending{}, err
	}
	if s.inFlight[action] {
		return pending{}, apperrors.NewActionInFlightError(string(action))
	}
	s.inFlight[action] = true
	return pending{action: action, epoch: s.controller.Epoch()}, nil
}

// finish clears the in-flight flag and decides whether the call's outcome may
// be applied. Late outcomes are dropped whether or not they failed. The
// caller holds the lock.
func (s *Session) finish(p pending, callErr error) error {
	delete(s.inFlight, p.action)
	s.touch()

	if s.closed || s.controller.Epoch() != p.epoch {
		metrics.StaleResponsesDropped.WithLabelValues(string(p.action)).Inc()
		s.logger.Info("Dropping late response", map[string]interface{}{
			"action": string(p.action),
			"step":   string(s.controller.Current()),
		})
		return apperrors.NewStaleResponseError(string(p.action))
	}

	if callErr != nil {
		s.banner = apperrors.As(callErr)
		s.logger.Warn("Collaborator call failed", map[string]interface{}{
			"action": string(p.action),
			"code":   string(s.banner.Code),
			"error":  callErr.Error(),
		})
		return s.banner
	}
	return nil
}

func notConfigured(name string) error {
	return apperrors.NewInternalError(fmt.Errorf("%s is not configured", name))
}

// callContext detaches the call from the caller: leaving a step abandons
// interest in a response but never cancels it.
func callContext(ctx context.Context) context.Context {
	return context.WithoutCancel(ctx)
}

// ==========================
// Navigation
// ==========================

func (s *Session) navigable() error {
	if err := s.check(); err != nil {
		return err
	}
	if s.inFlight[ActionSubmit] {
		return apperrors.NewActionInFlightError(string(ActionSubmit))
	}
	return nil
}

// Next advances to the computed successor of the current step.
func (s *Session) Next() (wizard.Step, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.navigable(); err != nil {
		return s.controller.Current(), err
	}
	return s.controller.Next()
}

// Advance moves to an explicit target, which must be the legal successor.
func (s *Session) Advance(target wizard.Step) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.navigable(); err != nil {
		return err
	}
	return s.controller.Advance(target)
}

// Back retreats one step on the active branch.
func (s *Session) Back() (wizard.Step, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.navigable(); err != nil {
		return s.controller.Current(), err
	}
	return s.controller.Retreat()
}

// ==========================
// Selections and forms
// ==========================

func invalidValue(step wizard.Step, field, message string) error {
	return apperrors.NewStepGateFailedError(string(step), []apperrors.FieldIssue{{
		Field: field, Message: message, Code: "INVALID_VALUE",
	}})
}

func (s *Session) SetCategory(c models.Category) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(wizard.StepCategory); err != nil {
		return err
	}
	if !c.Valid() {
		return invalidValue(wizard.StepCategory, string(draft.FieldCategory), "must be portfolio or pipeline")
	}
	s.store.SetCategory(c)
	return nil
}

func (s *Session) SetDevelopmentType(t models.DevelopmentType) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(wizard.StepType); err != nil {
		return err
	}
	if !t.Valid() {
		return invalidValue(wizard.StepType, string(draft.FieldDevelopmentType), "must be new or existing")
	}
	s.store.SetDevelopmentType(t)
	return nil
}

// LoadPropertyTypes fetches the catalogue offered on the property-type step.
func (s *Session) LoadPropertyTypes(ctx context.Context) ([]models.PropertyType, error) {
	if s.deps.Lookups == nil {
		return nil, notConfigured("property type lookup")
	}
	s.mu.Lock()
	p, err := s.begin(ActionPropertyTypes, wizard.StepPropertyType)
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}

	types, callErr := s.deps.Lookups.PropertyTypes(callContext(ctx))

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.finish(p, callErr); err != nil {
		return nil, err
	}
	s.propertyTypes = types
	return append([]models.PropertyType(nil), types...), nil
}

// SelectPropertyType picks one entry of the loaded catalogue.
func (s *Session) SelectPropertyType(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(wizard.StepPropertyType); err != nil {
		return err
	}
	for _, pt := range s.propertyTypes {
		if pt.ID == id {
			s.store.SetPropertyType(pt)
			return nil
		}
	}
	return apperrors.NewUnknownCandidateError("propertyType", id)
}

// UploadDocuments uploads a batch and appends it to the draft only when
// every file succeeded.
func (s *Session) UploadDocuments(ctx context.Context, files []documents.File) ([]models.Document, error) {
	if s.deps.Uploader == nil {
		return nil, notConfigured("document upload")
	}
	s.mu.Lock()
	p, err := s.begin(ActionUpload, wizard.StepDocuments)
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}

	docs, callErr := s.deps.Uploader.UploadBatch(callContext(ctx), files)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.finish(p, callErr); err != nil {
		return nil, err
	}
	s.store.AppendDocuments(docs...)
	return docs, nil
}

func (s *Session) RemoveDocument(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(wizard.StepDocuments); err != nil {
		return err
	}
	if !s.store.RemoveDocument(id) {
		return apperrors.NewUnknownCandidateError("document", id)
	}
	return nil
}

func (s *Session) SetEconomics(e models.Economics) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(wizard.StepDocuments); err != nil {
		return err
	}
	s.store.SetEconomics(e)
	return nil
}

func (s *Session) SetDetails(name, description string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(wizard.StepDetails); err != nil {
		return err
	}
	s.store.SetDetails(name, description)
	return nil
}

// ==========================
// Location and boundary
// ==========================

// ResolveAddress geocodes text and stores the address and coordinates.
func (s *Session) ResolveAddress(ctx context.Context, text string) (*models.GeocodeResult, error) {
	if s.deps.Geocoder == nil {
		return nil, notConfigured("geocoder")
	}
	s.mu.Lock()
	p, err := s.begin(ActionGeocode, wizard.StepAddress)
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}

	result, callErr := s.deps.Geocoder.ResolveAddress(callContext(ctx), text)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.finish(p, callErr); err != nil {
		return nil, err
	}
	s.capture.ApplyAddress(s.store, *result)
	return result, nil
}

func (s *Session) SetTradeArea(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(wizard.StepTradeArea); err != nil {
		return err
	}
	s.store.SetTradeAreaID(id)
	return nil
}

// LookupSubmarket resolves the submarket containing the deal's coordinates.
// A point outside every submarket leaves the linkage empty.
func (s *Session) LookupSubmarket(ctx context.Context) (*models.Submarket, error) {
	if s.deps.Lookups == nil {
		return nil, notConfigured("submarket lookup")
	}
	s.mu.Lock()
	p, err := s.begin(ActionSubmarket, wizard.StepTradeArea)
	coords := s.store.Coordinates()
	if err == nil && coords == nil {
		delete(s.inFlight, ActionSubmarket)
	}
	s.mu.Unlock()
	if err != nil || coords == nil {
		return nil, err
	}

	sm, callErr := s.deps.Lookups.Submarket(callContext(ctx), *coords)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.finish(p, callErr); err != nil {
		return nil, err
	}
	if sm != nil {
		s.store.SetSubmarket(sm.ID, sm.MSAID)
	}
	return sm, nil
}

// EnterTradeArea runs the submarket lookup once TRADE_AREA is active with a
// resolved address and no submarket linked yet. A failed lookup only sets the
// banner; the user may continue without a submarket.
func (s *Session) EnterTradeArea(ctx context.Context) {
	s.mu.Lock()
	ready := !s.closed &&
		s.controller.Current() == wizard.StepTradeArea &&
		s.store.Coordinates() != nil &&
		s.store.SubmarketID() == ""
	s.mu.Unlock()
	if !ready || s.deps.Lookups == nil {
		return
	}

	if _, err := s.LookupSubmarket(ctx); err != nil {
		s.logger.Debug("Submarket lookup on entry failed", map[string]interface{}{"error": err.Error()})
	}
}

func (s *Session) HandleDrawingEvent(evt geometrycapture.DrawingEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(); err != nil {
		return err
	}
	return s.capture.HandleEvent(s.store, evt)
}

// SkipBoundary falls back to a point boundary at the address coordinates.
func (s *Session) SkipBoundary() (*models.Geometry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(wizard.StepBoundary); err != nil {
		return nil, err
	}
	if !s.capture.EnsureBoundary(s.store) {
		return nil, apperrors.NewStepGateFailedError(string(wizard.StepBoundary), []apperrors.FieldIssue{{
			Field: string(draft.FieldCoordinates), Message: "an address is required to skip drawing", Code: "REQUIRED_FIELD_MISSING",
		}})
	}
	return s.store.Boundary(), nil
}

// ==========================
// Design sub-pipeline
// ==========================

// UpdateDesign replaces the design. While the financial step is active the
// change is relayed to the financial-modeling collaborator.
func (s *Session) UpdateDesign(m designpipeline.Metrics) (*models.Design3D, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(wizard.StepDesign3D, wizard.StepFinancial); err != nil {
		return nil, err
	}
	d, err := s.design.Apply(s.store, m)
	if err != nil {
		return nil, err
	}
	if s.controller.Current() == wizard.StepFinancial {
		s.financial.Notify(s.store)
	}
	return d, nil
}

// FetchNeighbors loads assemblage candidates. A failed lookup leaves an empty
// candidate list and a banner; the step stays usable.
func (s *Session) FetchNeighbors(ctx context.Context) ([]models.Neighbor, error) {
	s.mu.Lock()
	p, err := s.begin(ActionNeighbors, wizard.StepNeighbors)
	coords := s.store.Coordinates()
	if err == nil && (coords == nil || s.deps.Finder == nil) {
		delete(s.inFlight, ActionNeighbors)
		s.neighbors.SetCandidates(nil)
	}
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	if coords == nil || s.deps.Finder == nil {
		return []models.Neighbor{}, nil
	}

	found, callErr := s.deps.Finder.FindNeighbors(callContext(ctx), *coords)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.finish(p, callErr); err != nil {
		if apperrors.Is(err, apperrors.ErrCodeStaleResponse) {
			return nil, err
		}
		s.neighbors.SetCandidates(nil)
		return []models.Neighbor{}, nil
	}
	s.neighbors.SetCandidates(found)
	return s.neighbors.Candidates(), nil
}

func (s *Session) ToggleNeighbor(id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(wizard.StepNeighbors); err != nil {
		return false, err
	}
	return s.neighbors.Toggle(s.store, id)
}

// RunOptimization calls the optimizer once and keeps its proposal for the
// user to accept or reject.
func (s *Session) RunOptimization(ctx context.Context) (*models.OptimizationResult, error) {
	if s.deps.Optimizer == nil {
		return nil, notConfigured("optimizer")
	}
	s.mu.Lock()
	p, err := s.begin(ActionOptimize, wizard.StepOptimize)
	var req *optimization.Request
	if err == nil {
		if req, err = optimization.BuildRequest(s.store.Snapshot()); err != nil {
			delete(s.inFlight, ActionOptimize)
		}
	}
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}

	result, callErr := s.optimizer.Run(callContext(ctx), req)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.finish(p, callErr); err != nil {
		return nil, err
	}
	if err := s.optimizer.ApplyResult(s.store, result); err != nil {
		return nil, err
	}
	return s.store.OptimizationResult(), nil
}

func (s *Session) AcceptOptimization() (*models.Design3D, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(wizard.StepOptimize); err != nil {
		return nil, err
	}
	if s.inFlight[ActionOptimize] {
		return nil, apperrors.NewActionInFlightError(string(ActionOptimize))
	}
	return s.optimizer.Accept(s.store)
}

func (s *Session) RejectOptimization() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(wizard.StepOptimize); err != nil {
		return err
	}
	if s.inFlight[ActionOptimize] {
		return apperrors.NewActionInFlightError(string(ActionOptimize))
	}
	s.optimizer.Reject(s.store)
	return nil
}

func (s *Session) UpdateAssumptions(a *models.FinancialAssumptions) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(wizard.StepFinancial); err != nil {
		return err
	}
	if a == nil {
		return invalidValue(wizard.StepFinancial, string(draft.FieldFinancialAssumptions), "assumptions are required")
	}
	return s.financial.UpdateAssumptions(s.store, a)
}

// ApplyProForma stores a pro forma delivered out of band. It is stale unless
// the financial step is active and the revision is the latest one sent.
func (s *Session) ApplyProForma(pf *models.ProForma) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.controller.Current() != wizard.StepFinancial {
		metrics.StaleResponsesDropped.WithLabelValues("proforma").Inc()
		return apperrors.NewStaleResponseError("proforma")
	}
	if err := s.financial.ApplyProForma(s.store, pf); err != nil {
		metrics.StaleResponsesDropped.WithLabelValues("proforma").Inc()
		return err
	}
	return nil
}

// DrainEvents returns the queued design-change events.
func (s *Session) DrainEvents() []financialsync.DesignChanged {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.financial.Drain()
}

func (s *Session) DismissError() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.banner = nil
}

// ==========================
// Submission
// ==========================

// Submit assembles the payload and creates the deal. A successful session is
// closed; the caller discards it.
func (s *Session) Submit(ctx context.Context) (*submission.Result, error) {
	if s.deps.Submitter == nil {
		return nil, notConfigured("deal submitter")
	}
	s.mu.Lock()
	p, err := s.begin(ActionSubmit, wizard.StepSubmit)
	var payload *submission.Payload
	branch := s.controller.Branch()
	if err == nil {
		s.capture.EnsureBoundary(s.store)
		if payload, err = submission.Assemble(s.store.Snapshot(), branch.IsDesign()); err != nil {
			delete(s.inFlight, ActionSubmit)
		}
	}
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}

	result, callErr := s.deps.Submitter.Submit(callContext(ctx), payload, string(branch))

	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inFlight, p.action)
	s.touch()
	if callErr != nil {
		s.banner = apperrors.As(callErr)
		return nil, s.banner
	}
	s.submitted = result
	s.closed = true
	return result, nil
}

// Close marks the session abandoned. Pending responses are dropped.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.drawing.Disarm()
}

// ==========================
// View
// ==========================

type View struct {
	ID            string                   `json:"id"`
	Step          wizard.Step              `json:"step"`
	Branch        wizard.Branch            `json:"branch"`
	Progress      wizard.Progress          `json:"progress"`
	DrawingMode   geometrycapture.Mode     `json:"drawingMode"`
	InFlight      []string                 `json:"inFlight"`
	Draft         draft.DealDraft          `json:"draft"`
	PropertyTypes []models.PropertyType    `json:"propertyTypes,omitempty"`
	Candidates    []models.Neighbor        `json:"candidates,omitempty"`
	Error         *apperrors.StandardError `json:"error,omitempty"`
	Revision      int64                    `json:"designRevision,omitempty"`
	Submitted     *submission.Result       `json:"submitted,omitempty"`
	CreatedAt     time.Time                `json:"createdAt"`
	UpdatedAt     time.Time                `json:"updatedAt"`
}

func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()

	inFlight := make([]string, 0, len(s.inFlight))
	for a := range s.inFlight {
		inFlight = append(inFlight, string(a))
	}
	sort.Strings(inFlight)

	return View{
		ID:            s.id,
		Step:          s.controller.Current(),
		Branch:        s.controller.Branch(),
		Progress:      s.controller.Progress(),
		DrawingMode:   s.capture.Mode(),
		InFlight:      inFlight,
		Draft:         s.store.Snapshot(),
		PropertyTypes: append([]models.PropertyType(nil), s.propertyTypes...),
		Candidates:    s.neighbors.Candidates(),
		Error:         s.banner,
		Revision:      s.financial.Revision(),
		Submitted:     s.submitted,
		CreatedAt:     s.createdAt,
		UpdatedAt:     s.lastActivity,
	}
}
