package x11

import (
	"github.com/BurntSushi/xgb/xproto"

	"github.com/1broseidon/framed/internal/wm"
)

// QueryTree returns the children of win, bottom-to-top in stacking order.
func (c *Conn) QueryTree(win xproto.Window) ([]xproto.Window, error) {
	reply, err := xproto.QueryTree(c.conn, win).Reply()
	if err != nil {
		return nil, err
	}
	return reply.Children, nil
}

func (c *Conn) Geometry(win xproto.Window) (wm.Geometry, error) {
	reply, err := xproto.GetGeometry(c.conn, xproto.Drawable(win)).Reply()
	if err != nil {
		return wm.Geometry{}, err
	}
	return wm.Geometry{
		X:           reply.X,
		Y:           reply.Y,
		Width:       reply.Width,
		Height:      reply.Height,
		BorderWidth: reply.BorderWidth,
	}, nil
}

func (c *Conn) Attributes(win xproto.Window) (wm.Attributes, error) {
	reply, err := xproto.GetWindowAttributes(c.conn, win).Reply()
	if err != nil {
		return wm.Attributes{}, err
	}
	return wm.Attributes{
		OverrideRedirect: reply.OverrideRedirect,
		Viewable:         reply.MapState == xproto.MapStateViewable,
	}, nil
}

// CreateWindow creates an unmapped InputOutput child of parent. The
// request is issued unchecked: a rejection surfaces on the event stream.
// Value list order follows the bit positions of the mask (low -> high),
// so back_pixel precedes border_pixel.
func (c *Conn) CreateWindow(parent xproto.Window, geom wm.Geometry, style wm.Style) (xproto.Window, error) {
	wid, err := xproto.NewWindowId(c.conn)
	if err != nil {
		return 0, err
	}
	xproto.CreateWindow(
		c.conn,
		c.screen.RootDepth,
		wid,
		parent,
		geom.X, geom.Y,
		geom.Width, geom.Height,
		style.BorderWidth,
		xproto.WindowClassInputOutput,
		c.screen.RootVisual,
		xproto.CwBackPixel|xproto.CwBorderPixel,
		[]uint32{style.BackgroundColor, style.BorderColor},
	)
	return wid, nil
}

func (c *Conn) DestroyWindow(win xproto.Window) { xproto.DestroyWindow(c.conn, win) }
func (c *Conn) MapWindow(win xproto.Window)     { xproto.MapWindow(c.conn, win) }
func (c *Conn) UnmapWindow(win xproto.Window)   { xproto.UnmapWindow(c.conn, win) }

func (c *Conn) ReparentWindow(win, parent xproto.Window, x, y int16) {
	xproto.ReparentWindow(c.conn, win, parent, x, y)
}

func (c *Conn) ConfigureWindow(win xproto.Window, mask uint16, values []uint32) {
	xproto.ConfigureWindow(c.conn, win, mask, values)
}

// SetWindowStyle re-applies decoration to an existing frame: colors via
// attribute changes, border width via a configure, then a clear so the
// new background shows immediately.
func (c *Conn) SetWindowStyle(win xproto.Window, style wm.Style) {
	xproto.ChangeWindowAttributes(c.conn, win, xproto.CwBackPixel|xproto.CwBorderPixel,
		[]uint32{style.BackgroundColor, style.BorderColor})
	xproto.ConfigureWindow(c.conn, win, xproto.ConfigWindowBorderWidth,
		[]uint32{uint32(style.BorderWidth)})
	xproto.ClearArea(c.conn, false, win, 0, 0, 0, 0)
}

// AddToSaveSet asks the server to reparent win back to the root if this
// client's connection goes away.
func (c *Conn) AddToSaveSet(win xproto.Window) {
	xproto.ChangeSaveSet(c.conn, xproto.SetModeInsert, win)
}

func (c *Conn) RemoveFromSaveSet(win xproto.Window) {
	xproto.ChangeSaveSet(c.conn, xproto.SetModeDelete, win)
}
