// Package financialsync relays design changes to the financial-modeling
// collaborator and accepts the pro formas it produces.
package financialsync

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	apperrors "deal-wizard/internal/common/errors"
	"deal-wizard/internal/common/logger"
	"deal-wizard/internal/draft"
	"deal-wizard/internal/models"
)

// Bridge belongs to one session. Notifications are queued in an outbox and
// delivered by the owner after the session lock is released.
type Bridge struct {
	sessionID       string
	revision        int64
	lastFingerprint string
	outbox          []DesignChanged
	now             func() time.Time
	logger          logger.Logger
}

func NewBridge(sessionID string, log logger.Logger) *Bridge {
	return &Bridge{
		sessionID: sessionID,
		now:       func() time.Time { return time.Now().UTC() },
		logger:    logger.ForComponent(log, "financial-sync").With(map[string]interface{}{"sessionId": sessionID}),
	}
}

// Revision returns the revision of the latest queued event.
func (b *Bridge) Revision() int64 {
	return b.revision
}

// Seed stores the default assumptions when none exist yet.
func (b *Bridge) Seed(store *draft.Store) (bool, error) {
	if store.FinancialAssumptions() != nil {
		return false, nil
	}
	if err := store.SetFinancialAssumptions(DefaultAssumptions()); err != nil {
		return false, err
	}
	b.logger.Debug("Seeded default financial assumptions", nil)
	return true, nil
}

// Notify queues a DesignChanged event for the current design and
// assumptions. Identical consecutive states are not queued twice.
func (b *Bridge) Notify(store *draft.Store) (*DesignChanged, bool) {
	design := store.Design3D()
	assumptions := store.FinancialAssumptions()

	fp := fingerprint(design, assumptions)
	if fp == b.lastFingerprint {
		return nil, false
	}
	b.lastFingerprint = fp
	b.revision++

	evt := DesignChanged{
		SessionID:      b.sessionID,
		Revision:       b.revision,
		Design:         design,
		Assumptions:    assumptions,
		IdempotencyKey: b.sessionID + ":" + fp,
		OccurredAt:     b.now(),
	}
	b.outbox = append(b.outbox, evt)

	b.logger.Info("Design change queued", map[string]interface{}{"revision": evt.Revision})
	return &evt, true
}

// UpdateAssumptions replaces the assumptions and re-notifies.
func (b *Bridge) UpdateAssumptions(store *draft.Store, a *models.FinancialAssumptions) error {
	if err := store.SetFinancialAssumptions(a); err != nil {
		return err
	}
	b.Notify(store)
	return nil
}

// Drain returns and clears the queued events in order.
func (b *Bridge) Drain() []DesignChanged {
	out := b.outbox
	b.outbox = nil
	return out
}

// Reset forgets the last delivered state so the next entry to the financial
// step notifies again. Revisions keep increasing.
func (b *Bridge) Reset() {
	b.lastFingerprint = ""
}

// ApplyProForma stores a pro forma produced for the latest revision. Older
// revisions are stale.
func (b *Bridge) ApplyProForma(store *draft.Store, pf *models.ProForma) error {
	if pf == nil || pf.Revision != b.revision {
		return apperrors.NewStaleResponseError("proforma")
	}
	if err := store.SetProForma(pf); err != nil {
		return err
	}
	b.logger.Info("Pro forma applied", map[string]interface{}{"revision": pf.Revision})
	return nil
}

func fingerprint(design *models.Design3D, assumptions *models.FinancialAssumptions) string {
	if design != nil {
		design = design.Clone()
		design.LastModified = time.Time{}
	}
	raw, _ := json.Marshal(struct {
		Design      *models.Design3D             `json:"d"`
		Assumptions *models.FinancialAssumptions `json:"a"`
	}{design, assumptions})
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}
