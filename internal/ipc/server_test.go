package ipc

import (
	"bufio"
	"encoding/json"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/1broseidon/framed/internal/wm"
)

type fakeState struct {
	status  wm.Status
	clients []wm.ClientInfo
}

func (f *fakeState) Status() wm.Status        { return f.status }
func (f *fakeState) Clients() []wm.ClientInfo { return f.clients }

func startTestServer(t *testing.T, state *fakeState, reload chan struct{}, configPath string) *Server {
	t.Helper()

	srv, err := NewServer(ServerConfig{
		State:      state,
		Display:    ":1",
		ConfigPath: configPath,
		Reload:     reload,
	})
	if err != nil {
		t.Fatalf("NewServer failed: %v", err)
	}
	if err := srv.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	t.Cleanup(srv.Stop)
	return srv
}

func TestServer_StatusRoundTrip(t *testing.T) {
	t.Setenv("XDG_RUNTIME_DIR", t.TempDir())

	state := &fakeState{
		status: wm.Status{
			ManagedCount: 2,
			Uptime:       90 * time.Second,
			BorderWidth:  3,
		},
	}
	startTestServer(t, state, nil, "")

	status, err := NewClient().GetStatus()
	if err != nil {
		t.Fatalf("GetStatus failed: %v", err)
	}

	if !status.Running {
		t.Errorf("expected running true, got false")
	}
	if status.Display != ":1" {
		t.Errorf("expected display :1, got %q", status.Display)
	}
	if status.ManagedCount != 2 {
		t.Errorf("expected managed_count 2, got %d", status.ManagedCount)
	}
	if status.UptimeSeconds != 90 {
		t.Errorf("expected uptime_seconds 90, got %d", status.UptimeSeconds)
	}
	if status.BorderWidth != 3 {
		t.Errorf("expected border_width 3, got %d", status.BorderWidth)
	}
}

func TestServer_ClientsRoundTrip(t *testing.T) {
	t.Setenv("XDG_RUNTIME_DIR", t.TempDir())

	state := &fakeState{
		clients: []wm.ClientInfo{
			{
				Window:   100,
				Frame:    1000,
				Geometry: wm.Geometry{X: -5, Y: 20, Width: 300, Height: 200},
				Title:    "xterm",
			},
			{
				Window:   101,
				Frame:    1001,
				Geometry: wm.Geometry{X: 50, Y: 60, Width: 640, Height: 480},
				Title:    "",
			},
		},
	}
	startTestServer(t, state, nil, "")

	clients, err := NewClient().ListClients()
	if err != nil {
		t.Fatalf("ListClients failed: %v", err)
	}

	if len(clients) != 2 {
		t.Fatalf("expected 2 clients, got %d", len(clients))
	}
	first := clients[0]
	if first.Window != 100 || first.Frame != 1000 {
		t.Errorf("expected window 100 frame 1000, got %d %d", first.Window, first.Frame)
	}
	if first.X != -5 || first.Y != 20 || first.Width != 300 || first.Height != 200 {
		t.Errorf("unexpected geometry: %+v", first)
	}
	if first.Title != "xterm" {
		t.Errorf("expected title xterm, got %q", first.Title)
	}
}

func TestServer_ClientsEmpty(t *testing.T) {
	t.Setenv("XDG_RUNTIME_DIR", t.TempDir())

	startTestServer(t, &fakeState{}, nil, "")

	clients, err := NewClient().ListClients()
	if err != nil {
		t.Fatalf("ListClients failed: %v", err)
	}
	if len(clients) != 0 {
		t.Fatalf("expected no clients, got %d", len(clients))
	}
}

func TestServer_ReloadSignalsDaemon(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_RUNTIME_DIR", dir)

	configPath := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(configPath, []byte("frame:\n  border_width: 5\n"), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	reload := make(chan struct{}, 1)
	startTestServer(t, &fakeState{}, reload, configPath)

	if err := NewClient().Reload(); err != nil {
		t.Fatalf("Reload failed: %v", err)
	}

	select {
	case <-reload:
	case <-time.After(time.Second):
		t.Fatal("expected reload signal, got none")
	}
}

func TestServer_ReloadInvalidConfigReturnsError(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_RUNTIME_DIR", dir)

	configPath := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(configPath, []byte("frame:\n  border_width: -1\n"), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	reload := make(chan struct{}, 1)
	startTestServer(t, &fakeState{}, reload, configPath)

	err := NewClient().Reload()
	if err == nil {
		t.Fatal("expected error for invalid config, got nil")
	}
	if !strings.Contains(err.Error(), "failed to reload config") {
		t.Errorf("unexpected error: %v", err)
	}
	if len(reload) != 0 {
		t.Error("expected no reload signal after failed reload")
	}
}

func TestServer_UnknownCommand(t *testing.T) {
	t.Setenv("XDG_RUNTIME_DIR", t.TempDir())

	startTestServer(t, &fakeState{}, nil, "")

	_, err := NewClient().sendRequest(&Request{Command: "TILE"})
	if err == nil {
		t.Fatal("expected error for unknown command, got nil")
	}
	if !strings.Contains(err.Error(), "unknown command") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestServer_MalformedRequest(t *testing.T) {
	t.Setenv("XDG_RUNTIME_DIR", t.TempDir())

	srv := startTestServer(t, &fakeState{}, nil, "")

	conn, err := net.Dial("unix", srv.SocketPath())
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer conn.Close()
	conn.SetDeadline(time.Now().Add(time.Second))

	if _, err := conn.Write([]byte("not json\n")); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	line, err := bufio.NewReader(conn).ReadBytes('\n')
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}

	var resp Response
	if err := json.Unmarshal(line, &resp); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if resp.Status != "ERROR" {
		t.Errorf("expected status ERROR, got %q", resp.Status)
	}
	if !strings.Contains(resp.Error, "invalid request") {
		t.Errorf("unexpected error message: %q", resp.Error)
	}
}

func TestServer_RemovesStaleSocket(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_RUNTIME_DIR", dir)

	stale := filepath.Join(dir, "framed.sock")
	if err := os.WriteFile(stale, nil, 0600); err != nil {
		t.Fatalf("write stale socket: %v", err)
	}

	srv := startTestServer(t, &fakeState{}, nil, "")
	if srv.SocketPath() != stale {
		t.Fatalf("expected socket at %s, got %s", stale, srv.SocketPath())
	}

	srv.Stop()
	if _, err := os.Stat(stale); !os.IsNotExist(err) {
		t.Errorf("expected socket removed after Stop, stat err: %v", err)
	}
}
