package wm

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/BurntSushi/xgb"
	"github.com/BurntSushi/xgb/xproto"
)

// ErrManagerRunning reports that another window manager already holds
// substructure redirection on the target display.
var ErrManagerRunning = errors.New("another window manager is running")

// Config carries the dependencies and initial settings for a Manager.
type Config struct {
	Backend Backend
	Logger  *slog.Logger
	Style   Style
	// Name is advertised via EWMH; defaults to "framed".
	Name string
}

// Manager is a reparenting window manager: every managed client window
// is wrapped in a decorated frame window, and the client -> frame
// registry is mutated only by framing and unframing.
type Manager struct {
	backend Backend
	log     *slog.Logger
	name    string

	mu      sync.RWMutex
	style   Style
	reg     *registry
	started time.Time

	// onXError is the live protocol-error callback. Exactly one is
	// installed at any instant: the detection-phase callback during the
	// startup handshake, the steady-state callback afterwards. It is
	// only reassigned before the dispatch loop starts.
	onXError func(xgb.Error)

	closing atomic.Bool
}

// New creates a Manager over the given backend. The backend's connection
// is owned by the Manager from here on: Close tears it down.
func New(cfg Config) (*Manager, error) {
	if cfg.Backend == nil {
		return nil, errors.New("wm: backend is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	name := cfg.Name
	if name == "" {
		name = "framed"
	}
	m := &Manager{
		backend: cfg.Backend,
		log:     logger,
		name:    name,
		style:   cfg.Style,
		reg:     newRegistry(),
	}
	m.onXError = m.steadyStateError
	return m, nil
}

// Run performs the manager handshake, adopts pre-existing windows, and
// dispatches events until the connection goes away. It returns
// ErrManagerRunning when another manager holds the display, nil after
// Close, and a descriptive error otherwise.
func (m *Manager) Run() error {
	if err := m.startup(); err != nil {
		return err
	}
	return m.dispatch()
}

// startup is the one-shot becoming-the-manager sequence.
func (m *Manager) startup() error {
	m.started = time.Now()
	root := m.backend.Root()

	// Only one client per display may hold substructure redirection on
	// the root; the server answers the subscription of a second manager
	// with an access error. The detection callback turns that specific
	// error into a flag and treats anything else in this narrow window
	// as an invariant violation.
	detected := false
	var unexpected xgb.Error
	m.onXError = func(xerr xgb.Error) {
		if _, ok := xerr.(xproto.AccessError); ok {
			detected = true
			return
		}
		unexpected = xerr
	}

	// Issue the subscription, then force the round-trip. Reading the
	// flag is only meaningful after Check has seen the server's answer;
	// the three steps stay explicit.
	cookie := m.backend.SelectRedirect(root)
	if err := cookie.Check(); err != nil {
		xerr, ok := err.(xgb.Error)
		if !ok {
			return fmt.Errorf("subscribe to root window: %w", err)
		}
		m.onXError(xerr)
	}
	if detected {
		return ErrManagerRunning
	}
	if unexpected != nil {
		return fmt.Errorf("invariant violation: unexpected error during manager handshake: %s", unexpected.Error())
	}

	m.onXError = m.steadyStateError

	if err := m.backend.AdvertiseManager(m.name); err != nil {
		m.log.Warn("ewmh advertisement failed", "error", err)
	}

	// Adopt windows that existed before the manager started. The grab
	// freezes the window population while the tree is walked; it is
	// released on every exit path.
	m.backend.GrabServer()
	defer m.backend.UngrabServer()

	children, err := m.backend.QueryTree(root)
	if err != nil {
		return fmt.Errorf("query existing windows: %w", err)
	}
	for _, child := range children {
		m.frame(child, true)
	}

	m.mu.RLock()
	adopted := m.reg.len()
	m.mu.RUnlock()
	m.log.Info("managing display", "root", root, "adopted", adopted)
	return nil
}

// steadyStateError absorbs asynchronous protocol errors. Requests
// legitimately fail when windows vanish between event delivery and
// handling; the manager stays alive through such races.
func (m *Manager) steadyStateError(xerr xgb.Error) {
	m.log.Warn("x protocol error",
		"error", xerr.Error(),
		"sequence", xerr.SequenceId(),
		"bad_value", xerr.BadId())
}

// Close tears down the connection, which unblocks the dispatch loop and
// makes Run return nil. Safe to call more than once.
func (m *Manager) Close() {
	if m.closing.CompareAndSwap(false, true) {
		m.backend.Close()
	}
}

// ApplyStyle restyles every live frame and makes style the default for
// frames created afterwards.
func (m *Manager) ApplyStyle(style Style) {
	m.mu.Lock()
	m.style = style
	frames := make([]xproto.Window, 0, m.reg.len())
	for _, client := range m.reg.clients() {
		frame, _ := m.reg.frameOf(client)
		frames = append(frames, frame)
	}
	m.mu.Unlock()

	for _, frame := range frames {
		m.backend.SetWindowStyle(frame, style)
	}
	if len(frames) > 0 {
		m.log.Info("restyled frames", "count", len(frames), "border_width", style.BorderWidth)
	}
}

// ClientInfo describes one framed client for status reporting.
type ClientInfo struct {
	Window   xproto.Window
	Frame    xproto.Window
	Geometry Geometry
	Title    string
}

// Clients returns a snapshot of the framed clients in framing order.
// Geometry and title probes go to the server outside the lock.
func (m *Manager) Clients() []ClientInfo {
	m.mu.RLock()
	infos := make([]ClientInfo, 0, m.reg.len())
	for _, client := range m.reg.clients() {
		frame, _ := m.reg.frameOf(client)
		infos = append(infos, ClientInfo{Window: client, Frame: frame})
	}
	m.mu.RUnlock()

	for i := range infos {
		if geom, err := m.backend.Geometry(infos[i].Window); err == nil {
			infos[i].Geometry = geom
		}
		infos[i].Title = m.backend.WindowTitle(infos[i].Window)
	}
	return infos
}

// ManagedWindows returns the client windows currently in the registry,
// in framing order. Unlike Clients it issues no server requests.
func (m *Manager) ManagedWindows() []xproto.Window {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.reg.clients()
}

// Status summarizes the running manager.
type Status struct {
	Root         xproto.Window
	ManagedCount int
	Uptime       time.Duration
	BorderWidth  uint16
}

func (m *Manager) Status() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return Status{
		Root:         m.backend.Root(),
		ManagedCount: m.reg.len(),
		Uptime:       time.Since(m.started),
		BorderWidth:  m.style.BorderWidth,
	}
}
