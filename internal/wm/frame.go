package wm

import "github.com/BurntSushi/xgb/xproto"

// frame wraps w in a newly created decorated parent window. preExisting
// marks windows adopted at startup; those are framed only when they are
// viewable and do not set override-redirect.
//
// The registry entry is written last: everything before it is issued
// unchecked, and a window that vanishes mid-sequence surfaces as
// asynchronous errors absorbed by the steady-state callback.
func (m *Manager) frame(w xproto.Window, preExisting bool) {
	geom, err := m.backend.Geometry(w)
	if err != nil {
		m.log.Debug("window vanished before framing", "window", w, "error", err)
		return
	}
	attrs, err := m.backend.Attributes(w)
	if err != nil {
		m.log.Debug("window vanished before framing", "window", w, "error", err)
		return
	}
	if preExisting && (attrs.OverrideRedirect || !attrs.Viewable) {
		return
	}

	m.mu.RLock()
	style := m.style
	m.mu.RUnlock()

	frame, err := m.backend.CreateWindow(m.backend.Root(), geom, style)
	if err != nil {
		m.log.Warn("failed to allocate frame window", "window", w, "error", err)
		return
	}
	m.backend.SelectSubstructure(frame)
	m.backend.AddToSaveSet(w)
	m.backend.ReparentWindow(w, frame, 0, 0)
	m.backend.MapWindow(frame)

	m.mu.Lock()
	m.reg.insert(w, frame)
	clients := m.reg.clients()
	m.mu.Unlock()

	m.publishClients(clients)
	m.log.Info("framed window",
		"window", w,
		"frame", frame,
		"pre_existing", preExisting,
		"title", m.backend.WindowTitle(w))
}

// unframe reverses frame: the client survives as a child of the root at
// the origin, and the frame is destroyed. Callers check registry
// membership first.
func (m *Manager) unframe(w xproto.Window) {
	m.mu.RLock()
	frame, ok := m.reg.frameOf(w)
	m.mu.RUnlock()
	if !ok {
		return
	}

	m.backend.UnmapWindow(frame)
	m.backend.ReparentWindow(w, m.backend.Root(), 0, 0)
	m.backend.RemoveFromSaveSet(w)
	m.backend.DestroyWindow(frame)

	// Removed last so a concurrent snapshot between the requests above
	// still sees a framed state consistent with the frame's existence.
	m.mu.Lock()
	m.reg.remove(w)
	clients := m.reg.clients()
	m.mu.Unlock()

	m.publishClients(clients)
	m.log.Info("unframed window", "window", w, "frame", frame)
}

func (m *Manager) publishClients(clients []xproto.Window) {
	if err := m.backend.PublishClientList(clients); err != nil {
		m.log.Warn("failed to publish client list", "error", err)
	}
}
