package x11

import (
	"fmt"
	"os"

	"github.com/BurntSushi/xgb"
	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil"

	"github.com/1broseidon/framed/internal/wm"
)

// substructureMask is the event selection that makes a window the
// redirection target for its children's map and configure requests.
const substructureMask = xproto.EventMaskSubstructureRedirect | xproto.EventMaskSubstructureNotify

// Conn is the live X11 implementation of the manager backend. The
// xgbutil wrapper carries the atom cache the EWMH helpers need; raw
// xproto requests go through the underlying connection.
type Conn struct {
	xu      *xgbutil.XUtil
	conn    *xgb.Conn
	root    xproto.Window
	screen  *xproto.ScreenInfo
	display string
	check   xproto.Window // EWMH supporting-WM-check helper, 0 until advertised
}

var _ wm.Backend = (*Conn)(nil)

// Connect establishes a connection to the X server. An empty display
// falls back to $DISPLAY.
func Connect(display string) (*Conn, error) {
	if display == "" {
		display = os.Getenv("DISPLAY")
	}
	xu, err := xgbutil.NewConnDisplay(display)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to X display %q: %w", display, err)
	}
	return &Conn{
		xu:      xu,
		conn:    xu.Conn(),
		root:    xu.RootWin(),
		screen:  xu.Screen(),
		display: display,
	}, nil
}

// Display returns the display string the connection was opened on.
func (c *Conn) Display() string { return c.display }

func (c *Conn) Root() xproto.Window { return c.root }

// SelectRedirect issues the checked root subscription. Only one client
// per display may hold substructure redirection; checking the returned
// cookie surfaces the access error a competing manager provokes.
func (c *Conn) SelectRedirect(win xproto.Window) wm.PendingRequest {
	return xproto.ChangeWindowAttributesChecked(c.conn, win, xproto.CwEventMask,
		[]uint32{substructureMask})
}

// SelectSubstructure subscribes win to the same event classes as the
// root, unchecked.
func (c *Conn) SelectSubstructure(win xproto.Window) {
	xproto.ChangeWindowAttributes(c.conn, win, xproto.CwEventMask,
		[]uint32{substructureMask})
}

func (c *Conn) GrabServer()   { xproto.GrabServer(c.conn) }
func (c *Conn) UngrabServer() { xproto.UngrabServer(c.conn) }

// WaitForEvent blocks for the next event or error on the stream. Both
// results nil means the connection is gone.
func (c *Conn) WaitForEvent() (xgb.Event, xgb.Error) {
	return c.conn.WaitForEvent()
}

// Close disconnects from the X server, unblocking WaitForEvent.
func (c *Conn) Close() {
	c.conn.Close()
}
