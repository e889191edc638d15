package wm

import (
	"github.com/BurntSushi/xgb"
	"github.com/BurntSushi/xgb/xproto"
)

// PendingRequest is a protocol request that has been written to the
// server but whose outcome has not been observed yet.
type PendingRequest interface {
	// Check blocks until the server has processed the request and
	// returns the protocol error it produced, if any.
	Check() error
}

// Geometry describes a window's position and size relative to its parent.
type Geometry struct {
	X           int16
	Y           int16
	Width       uint16
	Height      uint16
	BorderWidth uint16
}

// Attributes is the subset of window attributes framing decisions need.
type Attributes struct {
	OverrideRedirect bool
	Viewable         bool
}

// Style describes the decoration of a frame window.
type Style struct {
	BorderWidth     uint16
	BorderColor     uint32
	BackgroundColor uint32
}

// Backend abstracts the X server operations the manager performs.
// internal/x11 implements it against a live display; tests substitute a
// recording fake.
type Backend interface {
	// Root returns the root window of the managed screen.
	Root() xproto.Window

	// SelectRedirect issues the checked request subscribing win to
	// SubstructureRedirect and SubstructureNotify. Checking the returned
	// request forces the round-trip that makes manager contention
	// observable.
	SelectRedirect(win xproto.Window) PendingRequest

	// SelectSubstructure subscribes win to the same event classes,
	// unchecked. Used for frame windows.
	SelectSubstructure(win xproto.Window)

	GrabServer()
	UngrabServer()

	// QueryTree returns the children of win, bottom-to-top in stacking order.
	QueryTree(win xproto.Window) ([]xproto.Window, error)
	Geometry(win xproto.Window) (Geometry, error)
	Attributes(win xproto.Window) (Attributes, error)

	// CreateWindow creates an unmapped child of parent with the given
	// geometry and decoration, returning its id.
	CreateWindow(parent xproto.Window, geom Geometry, style Style) (xproto.Window, error)
	DestroyWindow(win xproto.Window)
	MapWindow(win xproto.Window)
	UnmapWindow(win xproto.Window)
	ReparentWindow(win, parent xproto.Window, x, y int16)

	// ConfigureWindow applies the masked fields to win. Values follow
	// ascending mask-bit order, as the protocol requires.
	ConfigureWindow(win xproto.Window, mask uint16, values []uint32)

	// SetWindowStyle re-applies decoration to an existing frame.
	SetWindowStyle(win xproto.Window, style Style)

	AddToSaveSet(win xproto.Window)
	RemoveFromSaveSet(win xproto.Window)

	// AdvertiseManager publishes the EWMH supporting-WM-check properties
	// under the given manager name.
	AdvertiseManager(name string) error
	// PublishClientList replaces _NET_CLIENT_LIST on the root.
	PublishClientList(clients []xproto.Window) error
	// WindowTitle returns the window's title, or "" when unavailable.
	WindowTitle(win xproto.Window) string

	// WaitForEvent blocks for the next event or protocol error. Both
	// results nil means the connection is gone.
	WaitForEvent() (xgb.Event, xgb.Error)

	Close()
}
