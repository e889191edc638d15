package x11

import (
	"fmt"

	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil/ewmh"
	"github.com/BurntSushi/xgbutil/icccm"
)

// supportedAtoms is what the manager actually implements; anything more
// would be lying to pagers.
var supportedAtoms = []string{
	"_NET_SUPPORTING_WM_CHECK",
	"_NET_WM_NAME",
	"_NET_CLIENT_LIST",
}

// AdvertiseManager publishes the EWMH properties that let clients and
// tools discover a compliant manager: a never-mapped 1x1 helper window
// carrying _NET_SUPPORTING_WM_CHECK and the manager name.
func (c *Conn) AdvertiseManager(name string) error {
	wid, err := xproto.NewWindowId(c.conn)
	if err != nil {
		return fmt.Errorf("allocate check window: %w", err)
	}
	// Override-redirect keeps the helper out of the manager's own
	// redirection machinery.
	err = xproto.CreateWindowChecked(
		c.conn,
		c.screen.RootDepth,
		wid,
		c.root,
		-1, -1,
		1, 1,
		0,
		xproto.WindowClassInputOutput,
		c.screen.RootVisual,
		xproto.CwOverrideRedirect,
		[]uint32{1},
	).Check()
	if err != nil {
		return fmt.Errorf("create check window: %w", err)
	}

	if err := ewmh.SupportingWmCheckSet(c.xu, c.root, wid); err != nil {
		return fmt.Errorf("set _NET_SUPPORTING_WM_CHECK on root: %w", err)
	}
	if err := ewmh.SupportingWmCheckSet(c.xu, wid, wid); err != nil {
		return fmt.Errorf("set _NET_SUPPORTING_WM_CHECK on check window: %w", err)
	}
	if err := ewmh.WmNameSet(c.xu, wid, name); err != nil {
		return fmt.Errorf("set manager name: %w", err)
	}
	if err := ewmh.SupportedSet(c.xu, supportedAtoms); err != nil {
		return fmt.Errorf("set _NET_SUPPORTED: %w", err)
	}
	c.check = wid
	return nil
}

// PublishClientList replaces _NET_CLIENT_LIST on the root.
func (c *Conn) PublishClientList(clients []xproto.Window) error {
	return ewmh.ClientListSet(c.xu, clients)
}

// WindowTitle fetches the window's title, preferring the EWMH name and
// falling back to the ICCCM one. Returns "" when neither is readable.
func (c *Conn) WindowTitle(win xproto.Window) string {
	if name, err := ewmh.WmNameGet(c.xu, win); err == nil && name != "" {
		return name
	}
	if name, err := icccm.WmNameGet(c.xu, win); err == nil {
		return name
	}
	return ""
}
