package wm

import (
	"errors"

	"github.com/BurntSushi/xgb/xproto"
)

// dispatch is the manager's event loop: a single-threaded blocking pull
// from the connection, routed by concrete event type. WaitForEvent is
// the only suspension point; events are handled in server delivery
// order. The loop has no natural exit besides the connection going
// away.
func (m *Manager) dispatch() error {
	for {
		ev, xerr := m.backend.WaitForEvent()
		if ev == nil && xerr == nil {
			if m.closing.Load() {
				m.log.Info("event stream closed, shutting down")
				return nil
			}
			return errors.New("connection to X server lost")
		}
		if xerr != nil {
			m.onXError(xerr)
			continue
		}

		switch e := ev.(type) {
		case xproto.ConfigureRequestEvent:
			m.onConfigureRequest(e)
		case xproto.MapRequestEvent:
			m.onMapRequest(e)
		case xproto.UnmapNotifyEvent:
			m.onUnmapNotify(e)
		case xproto.CreateNotifyEvent:
			m.log.Debug("window created", "window", e.Window)
		case xproto.DestroyNotifyEvent:
			m.log.Debug("window destroyed", "window", e.Window)
		case xproto.ReparentNotifyEvent:
			m.log.Debug("window reparented", "window", e.Window, "parent", e.Parent)
		case xproto.MapNotifyEvent:
			m.log.Debug("window mapped", "window", e.Window)
		case xproto.ConfigureNotifyEvent:
			m.log.Debug("window configured", "window", e.Window)
		default:
			m.log.Debug("dropping unhandled event", "event", ev)
		}
	}
}

// onMapRequest frames the window and then grants the map. A window that
// vanished between the event and the handler makes both requests fail
// asynchronously, which the steady-state callback absorbs.
func (m *Manager) onMapRequest(e xproto.MapRequestEvent) {
	m.frame(e.Window, false)
	m.backend.MapWindow(e.Window)
}

// onUnmapNotify tears the frame down when a managed client unmaps
// itself. Unmaps of unmanaged windows are ignored, as are the synthetic
// unmaps the startup reparent of pre-existing windows generates, which
// are reported against the root.
func (m *Manager) onUnmapNotify(e xproto.UnmapNotifyEvent) {
	m.mu.RLock()
	_, framed := m.reg.frameOf(e.Window)
	m.mu.RUnlock()
	if !framed {
		m.log.Debug("ignoring unmap of unmanaged window", "window", e.Window)
		return
	}
	if e.Event == m.backend.Root() {
		m.log.Debug("ignoring synthetic unmap from adoption", "window", e.Window)
		return
	}
	m.unframe(e.Window)
}

// onConfigureRequest grants the request verbatim: every masked field is
// copied unchanged, and when the window is framed the identical change
// is applied to the frame first so the two stay congruent. No layout
// policy is applied.
func (m *Manager) onConfigureRequest(e xproto.ConfigureRequestEvent) {
	mask, values := configureValues(e)

	m.mu.RLock()
	frame, framed := m.reg.frameOf(e.Window)
	m.mu.RUnlock()

	if framed {
		m.backend.ConfigureWindow(frame, mask, values)
	}
	m.backend.ConfigureWindow(e.Window, mask, values)
	m.log.Debug("granted configure request",
		"window", e.Window,
		"framed", framed,
		"mask", mask)
}

// configureValues turns a configure request into the masked value list
// the protocol expects, in ascending mask-bit order.
func configureValues(e xproto.ConfigureRequestEvent) (uint16, []uint32) {
	mask := e.ValueMask
	values := make([]uint32, 0, 7)
	if mask&xproto.ConfigWindowX != 0 {
		values = append(values, uint32(e.X))
	}
	if mask&xproto.ConfigWindowY != 0 {
		values = append(values, uint32(e.Y))
	}
	if mask&xproto.ConfigWindowWidth != 0 {
		values = append(values, uint32(e.Width))
	}
	if mask&xproto.ConfigWindowHeight != 0 {
		values = append(values, uint32(e.Height))
	}
	if mask&xproto.ConfigWindowBorderWidth != 0 {
		values = append(values, uint32(e.BorderWidth))
	}
	if mask&xproto.ConfigWindowSibling != 0 {
		values = append(values, uint32(e.Sibling))
	}
	if mask&xproto.ConfigWindowStackMode != 0 {
		values = append(values, uint32(e.StackMode))
	}
	return mask, values
}
