package wm

import (
	"errors"
	"reflect"
	"testing"

	"github.com/BurntSushi/xgb/xproto"
)

func TestFrame_SequenceAndRegistry(t *testing.T) {
	f := newFakeBackend()
	f.addWindow(100, Geometry{X: 10, Y: 20, Width: 300, Height: 200}, Attributes{Viewable: true})
	m := newTestManager(t, f)

	m.frame(100, false)

	want := []string{
		"geometry 100",
		"attributes 100",
		"create-window 1000 parent=1 at=(10,20) size=300x200 border=3",
		"select-substructure 1000",
		"save-set-add 100",
		"reparent 100 -> 1000 @ (0,0)",
		"map 1000",
		"publish [100]",
	}
	if got := f.opList(); !reflect.DeepEqual(got, want) {
		t.Fatalf("framing sequence mismatch:\n got %v\nwant %v", got, want)
	}

	frame, ok := m.reg.frameOf(100)
	if !ok || frame != 1000 {
		t.Fatalf("expected registry entry 100 -> 1000, got %d (ok=%v)", frame, ok)
	}
}

func TestFrame_VanishedWindowAbortsSilently(t *testing.T) {
	f := newFakeBackend()
	f.geomErr[100] = errors.New("bad window")
	m := newTestManager(t, f)

	m.frame(100, false)

	if want := []string{"geometry 100"}; !reflect.DeepEqual(f.opList(), want) {
		t.Fatalf("expected framing to stop at the geometry probe, got %v", f.opList())
	}
	if m.reg.len() != 0 {
		t.Fatalf("expected empty registry, got %d entries", m.reg.len())
	}
}

func TestFrame_VanishedAtAttributesAborts(t *testing.T) {
	f := newFakeBackend()
	f.geoms[100] = Geometry{Width: 1, Height: 1}
	f.attrErr[100] = errors.New("bad window")
	m := newTestManager(t, f)

	m.frame(100, false)

	if want := []string{"geometry 100", "attributes 100"}; !reflect.DeepEqual(f.opList(), want) {
		t.Fatalf("expected framing to stop at the attribute probe, got %v", f.opList())
	}
	if m.reg.len() != 0 {
		t.Fatalf("expected empty registry, got %d entries", m.reg.len())
	}
}

func TestFrame_PreExistingSkipsOverrideRedirectAndUnviewable(t *testing.T) {
	cases := []struct {
		name  string
		attrs Attributes
	}{
		{name: "override-redirect", attrs: Attributes{Viewable: true, OverrideRedirect: true}},
		{name: "not viewable", attrs: Attributes{Viewable: false}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFakeBackend()
			f.addWindow(100, Geometry{Width: 10, Height: 10}, tc.attrs)
			m := newTestManager(t, f)

			m.frame(100, true)

			if hasOpPrefix(f.opList(), "create-window") {
				t.Fatalf("expected no frame for %s window, ops: %v", tc.name, f.opList())
			}
			if m.reg.len() != 0 {
				t.Fatalf("expected empty registry, got %d entries", m.reg.len())
			}
		})
	}
}

func TestFrame_MapRequestIgnoresAdoptionFilters(t *testing.T) {
	// The viewability and override-redirect filters apply only to
	// adoption; a window asking to be mapped now is always framed.
	f := newFakeBackend()
	f.addWindow(100, Geometry{Width: 10, Height: 10}, Attributes{Viewable: false, OverrideRedirect: true})
	m := newTestManager(t, f)

	m.frame(100, false)

	if _, ok := m.reg.frameOf(100); !ok {
		t.Fatalf("expected window framed despite attributes")
	}
}

func TestFrame_CreateFailureAborts(t *testing.T) {
	f := newFakeBackend()
	f.addWindow(100, Geometry{Width: 10, Height: 10}, Attributes{Viewable: true})
	f.createErr = errors.New("id exhaustion")
	m := newTestManager(t, f)

	m.frame(100, false)

	if hasOpPrefix(f.opList(), "reparent") || hasOpPrefix(f.opList(), "save-set-add") {
		t.Fatalf("expected no requests after failed creation, got %v", f.opList())
	}
	if m.reg.len() != 0 {
		t.Fatalf("expected empty registry, got %d entries", m.reg.len())
	}
}

func TestUnframe_SequenceAndRegistry(t *testing.T) {
	f := newFakeBackend()
	f.addWindow(100, Geometry{X: 10, Y: 20, Width: 300, Height: 200}, Attributes{Viewable: true})
	m := newTestManager(t, f)

	m.frame(100, false)
	f.resetOps()

	m.unframe(100)

	want := []string{
		"unmap 1000",
		"reparent 100 -> 1 @ (0,0)",
		"save-set-remove 100",
		"destroy 1000",
		"publish []",
	}
	if got := f.opList(); !reflect.DeepEqual(got, want) {
		t.Fatalf("unframing sequence mismatch:\n got %v\nwant %v", got, want)
	}
	if m.reg.len() != 0 {
		t.Fatalf("expected empty registry after unframe, got %d entries", m.reg.len())
	}
}

func TestUnframe_AbsentClientIssuesNothing(t *testing.T) {
	f := newFakeBackend()
	m := newTestManager(t, f)

	m.unframe(100)

	if ops := f.opList(); len(ops) != 0 {
		t.Fatalf("expected no requests for unknown client, got %v", ops)
	}
}

func TestFrame_PublishesClientListOnEveryMutation(t *testing.T) {
	f := newFakeBackend()
	f.addWindow(100, Geometry{Width: 1, Height: 1}, Attributes{Viewable: true})
	f.addWindow(200, Geometry{Width: 1, Height: 1}, Attributes{Viewable: true})
	m := newTestManager(t, f)

	m.frame(100, false)
	m.frame(200, false)
	m.unframe(100)

	want := [][]xproto.Window{
		{100},
		{100, 200},
		{200},
	}
	if !reflect.DeepEqual(f.published, want) {
		t.Fatalf("expected published lists %v, got %v", want, f.published)
	}
}
