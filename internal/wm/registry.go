package wm

import "github.com/BurntSushi/xgb/xproto"

// registry tracks framed clients as a bijective client -> frame mapping.
// Entries are added only by framing and removed only by unframing; the
// Manager's mutex guards concurrent access.
type registry struct {
	frames map[xproto.Window]xproto.Window
	order  []xproto.Window // clients in framing order, for _NET_CLIENT_LIST
}

func newRegistry() *registry {
	return &registry{frames: make(map[xproto.Window]xproto.Window)}
}

func (r *registry) insert(client, frame xproto.Window) {
	if _, ok := r.frames[client]; !ok {
		r.order = append(r.order, client)
	}
	r.frames[client] = frame
}

func (r *registry) remove(client xproto.Window) {
	if _, ok := r.frames[client]; !ok {
		return
	}
	delete(r.frames, client)
	for i, c := range r.order {
		if c == client {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
}

func (r *registry) frameOf(client xproto.Window) (xproto.Window, bool) {
	frame, ok := r.frames[client]
	return frame, ok
}

// clients returns the framed clients in framing order.
func (r *registry) clients() []xproto.Window {
	out := make([]xproto.Window, len(r.order))
	copy(out, r.order)
	return out
}

func (r *registry) len() int {
	return len(r.frames)
}
