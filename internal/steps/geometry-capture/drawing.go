package geometrycapture

import "sync"

// DrawingSession is the handle on the map's drawing tool.
type DrawingSession interface {
	Arm()
	Disarm()
	Mode() Mode
}

// ModeTracker is a DrawingSession that records the requested mode. The front
// end reads it from the session view and calls setMode on the map.
type ModeTracker struct {
	mu   sync.Mutex
	mode Mode
	// OnChange, if set, is called with every mode change.
	OnChange func(Mode)
}

func NewModeTracker() *ModeTracker {
	return &ModeTracker{mode: ModeSelect}
}

func (m *ModeTracker) Arm() {
	m.set(ModeDraw)
}

func (m *ModeTracker) Disarm() {
	m.set(ModeSelect)
}

func (m *ModeTracker) Mode() Mode {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.mode
}

func (m *ModeTracker) set(mode Mode) {
	m.mu.Lock()
	changed := m.mode != mode
	m.mode = mode
	cb := m.OnChange
	m.mu.Unlock()

	if changed && cb != nil {
		cb(mode)
	}
}
