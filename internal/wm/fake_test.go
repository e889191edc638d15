package wm

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/BurntSushi/xgb"
	"github.com/BurntSushi/xgb/xproto"
)

// streamItem is one WaitForEvent result queued on the fake backend.
type streamItem struct {
	ev   xgb.Event
	xerr xgb.Error
}

type fakePending struct{ err error }

func (p fakePending) Check() error { return p.err }

// fakeBackend records every request the manager issues, in order, and
// replays a scripted event stream.
type fakeBackend struct {
	mu  sync.Mutex
	ops []string

	root     xproto.Window
	checkErr error // outcome of the root subscription round-trip

	children     []xproto.Window
	queryTreeErr error

	geoms   map[xproto.Window]Geometry
	geomErr map[xproto.Window]error
	attrs   map[xproto.Window]Attributes
	attrErr map[xproto.Window]error
	titles  map[xproto.Window]string

	nextID    xproto.Window
	createErr error
	styles    map[xproto.Window]Style

	advertiseErr error
	publishErr   error
	published    [][]xproto.Window

	events    chan streamItem
	closeOnce sync.Once
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		root:    1,
		geoms:   make(map[xproto.Window]Geometry),
		geomErr: make(map[xproto.Window]error),
		attrs:   make(map[xproto.Window]Attributes),
		attrErr: make(map[xproto.Window]error),
		titles:  make(map[xproto.Window]string),
		styles:  make(map[xproto.Window]Style),
		nextID:  1000,
		events:  make(chan streamItem, 32),
	}
}

// addWindow registers a window the fake will answer queries about.
func (f *fakeBackend) addWindow(w xproto.Window, geom Geometry, attrs Attributes) {
	f.geoms[w] = geom
	f.attrs[w] = attrs
}

func (f *fakeBackend) record(format string, args ...any) {
	f.mu.Lock()
	f.ops = append(f.ops, fmt.Sprintf(format, args...))
	f.mu.Unlock()
}

func (f *fakeBackend) opList() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.ops))
	copy(out, f.ops)
	return out
}

func (f *fakeBackend) resetOps() {
	f.mu.Lock()
	f.ops = nil
	f.mu.Unlock()
}

func (f *fakeBackend) Root() xproto.Window { return f.root }

func (f *fakeBackend) SelectRedirect(win xproto.Window) PendingRequest {
	f.record("select-redirect %d", win)
	return fakePending{err: f.checkErr}
}

func (f *fakeBackend) SelectSubstructure(win xproto.Window) {
	f.record("select-substructure %d", win)
}

func (f *fakeBackend) GrabServer()   { f.record("grab") }
func (f *fakeBackend) UngrabServer() { f.record("ungrab") }

func (f *fakeBackend) QueryTree(win xproto.Window) ([]xproto.Window, error) {
	f.record("query-tree %d", win)
	if f.queryTreeErr != nil {
		return nil, f.queryTreeErr
	}
	return f.children, nil
}

func (f *fakeBackend) Geometry(win xproto.Window) (Geometry, error) {
	f.record("geometry %d", win)
	if err := f.geomErr[win]; err != nil {
		return Geometry{}, err
	}
	geom, ok := f.geoms[win]
	if !ok {
		return Geometry{}, fmt.Errorf("no such window %d", win)
	}
	return geom, nil
}

func (f *fakeBackend) Attributes(win xproto.Window) (Attributes, error) {
	f.record("attributes %d", win)
	if err := f.attrErr[win]; err != nil {
		return Attributes{}, err
	}
	attrs, ok := f.attrs[win]
	if !ok {
		return Attributes{}, fmt.Errorf("no such window %d", win)
	}
	return attrs, nil
}

func (f *fakeBackend) CreateWindow(parent xproto.Window, geom Geometry, style Style) (xproto.Window, error) {
	if f.createErr != nil {
		return 0, f.createErr
	}
	f.mu.Lock()
	id := f.nextID
	f.nextID++
	f.styles[id] = style
	f.mu.Unlock()
	f.record("create-window %d parent=%d at=(%d,%d) size=%dx%d border=%d",
		id, parent, geom.X, geom.Y, geom.Width, geom.Height, style.BorderWidth)
	return id, nil
}

func (f *fakeBackend) DestroyWindow(win xproto.Window) { f.record("destroy %d", win) }
func (f *fakeBackend) MapWindow(win xproto.Window)     { f.record("map %d", win) }
func (f *fakeBackend) UnmapWindow(win xproto.Window)   { f.record("unmap %d", win) }

func (f *fakeBackend) ReparentWindow(win, parent xproto.Window, x, y int16) {
	f.record("reparent %d -> %d @ (%d,%d)", win, parent, x, y)
}

func (f *fakeBackend) ConfigureWindow(win xproto.Window, mask uint16, values []uint32) {
	f.record("configure %d mask=%#x values=%v", win, mask, values)
}

func (f *fakeBackend) SetWindowStyle(win xproto.Window, style Style) {
	f.mu.Lock()
	f.styles[win] = style
	f.mu.Unlock()
	f.record("set-style %d border=%d", win, style.BorderWidth)
}

func (f *fakeBackend) AddToSaveSet(win xproto.Window)      { f.record("save-set-add %d", win) }
func (f *fakeBackend) RemoveFromSaveSet(win xproto.Window) { f.record("save-set-remove %d", win) }

func (f *fakeBackend) AdvertiseManager(name string) error {
	f.record("advertise %s", name)
	return f.advertiseErr
}

func (f *fakeBackend) PublishClientList(clients []xproto.Window) error {
	f.record("publish %v", clients)
	f.mu.Lock()
	snapshot := make([]xproto.Window, len(clients))
	copy(snapshot, clients)
	f.published = append(f.published, snapshot)
	f.mu.Unlock()
	return f.publishErr
}

func (f *fakeBackend) WindowTitle(win xproto.Window) string { return f.titles[win] }

func (f *fakeBackend) WaitForEvent() (xgb.Event, xgb.Error) {
	item, ok := <-f.events
	if !ok {
		return nil, nil
	}
	return item.ev, item.xerr
}

func (f *fakeBackend) Close() {
	f.record("close")
	f.closeOnce.Do(func() { close(f.events) })
}

// endStream simulates the connection dying without a Close call.
func (f *fakeBackend) endStream() {
	f.closeOnce.Do(func() { close(f.events) })
}

var _ Backend = (*fakeBackend)(nil)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestManager(t *testing.T, f *fakeBackend) *Manager {
	t.Helper()
	m, err := New(Config{
		Backend: f,
		Logger:  discardLogger(),
		Style:   Style{BorderWidth: 3, BorderColor: 0xffff00, BackgroundColor: 0x0000ff},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return m
}

// opIndex returns the position of the first op equal to want, or -1.
func opIndex(ops []string, want string) int {
	for i, op := range ops {
		if op == want {
			return i
		}
	}
	return -1
}

// hasOpPrefix reports whether any op starts with prefix.
func hasOpPrefix(ops []string, prefix string) bool {
	for _, op := range ops {
		if strings.HasPrefix(op, prefix) {
			return true
		}
	}
	return false
}

// requireOrder fails unless each op appears in ops, in the given order.
func requireOrder(t *testing.T, ops []string, want ...string) {
	t.Helper()
	last := -1
	for _, op := range want {
		idx := opIndex(ops, op)
		if idx < 0 {
			t.Fatalf("expected op %q in %v", op, ops)
		}
		if idx <= last {
			t.Fatalf("expected op %q after previous one, ops: %v", op, ops)
		}
		last = idx
	}
}
