package ipc

import (
	"bufio"
	"fmt"
	"io"
	"log"
	"net"
	"os"
	"sync"

	"github.com/1broseidon/framed/internal/config"
	"github.com/1broseidon/framed/internal/runtimepath"
	"github.com/1broseidon/framed/internal/wm"
)

// ManagerState is the read-only view of the manager the server reports
// over. *wm.Manager implements it; handlers never mutate window state.
type ManagerState interface {
	Status() wm.Status
	Clients() []wm.ClientInfo
}

// ServerConfig carries the dependencies for NewServer.
type ServerConfig struct {
	State   ManagerState
	Display string
	// ConfigPath is the config file consulted on RELOAD; empty means
	// the default path.
	ConfigPath string
	Reload     chan<- struct{}
}

// Server handles IPC requests from clients
type Server struct {
	socketPath   string
	listener     net.Listener
	state        ManagerState
	display      string
	configPath   string
	reloadChan   chan<- struct{}
	shuttingDown bool
	shutdownMu   sync.Mutex
}

// NewServer creates a new IPC server
func NewServer(cfg ServerConfig) (*Server, error) {
	socketPath, err := runtimepath.SocketPath()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve IPC socket path: %w", err)
	}

	// Remove existing socket if present
	os.Remove(socketPath)

	return &Server{
		socketPath: socketPath,
		state:      cfg.State,
		display:    cfg.Display,
		configPath: cfg.ConfigPath,
		reloadChan: cfg.Reload,
	}, nil
}

// SocketPath returns the path the server listens on.
func (s *Server) SocketPath() string {
	return s.socketPath
}

// Start begins listening for IPC connections
func (s *Server) Start() error {
	listener, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return fmt.Errorf("failed to create IPC socket: %w", err)
	}
	s.listener = listener

	// Set socket permissions
	if err := os.Chmod(s.socketPath, 0600); err != nil {
		return fmt.Errorf("failed to set socket permissions: %w", err)
	}

	log.Printf("IPC server listening on %s", s.socketPath)

	// Accept connections
	go s.acceptLoop()

	return nil
}

// acceptLoop accepts incoming connections
func (s *Server) acceptLoop() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			s.shutdownMu.Lock()
			if s.shuttingDown {
				s.shutdownMu.Unlock()
				return
			}
			s.shutdownMu.Unlock()
			log.Printf("IPC accept error: %v", err)
			continue
		}

		go s.handleConnection(conn)
	}
}

// handleConnection handles a single IPC connection
func (s *Server) handleConnection(conn net.Conn) {
	defer conn.Close()

	reader := bufio.NewReader(conn)

	// Read the request (expect JSON on a single line)
	data, err := reader.ReadBytes('\n')
	if err != nil && err != io.EOF {
		log.Printf("IPC read error: %v", err)
		return
	}

	// Parse request
	req, err := ParseRequest(data)
	if err != nil {
		s.sendError(conn, fmt.Sprintf("invalid request: %v", err))
		return
	}

	// Handle command
	resp := s.handleCommand(req)

	// Send response
	respData, err := resp.Marshal()
	if err != nil {
		log.Printf("Failed to marshal response: %v", err)
		return
	}

	respData = append(respData, '\n')
	if _, err := conn.Write(respData); err != nil {
		log.Printf("Failed to send response: %v", err)
	}
}

// handleCommand processes an IPC command and returns a response
func (s *Server) handleCommand(req *Request) *Response {
	switch req.Command {
	case CommandGetStatus:
		return s.handleGetStatus()
	case CommandListClients:
		return s.handleListClients()
	case CommandReload:
		return s.handleReload()
	default:
		return NewErrorResponse(fmt.Sprintf("unknown command: %s", req.Command))
	}
}

// handleGetStatus returns current daemon status
func (s *Server) handleGetStatus() *Response {
	st := s.state.Status()

	status := StatusData{
		Running:       true,
		Display:       s.display,
		ManagedCount:  st.ManagedCount,
		UptimeSeconds: int64(st.Uptime.Seconds()),
		BorderWidth:   int(st.BorderWidth),
	}

	resp, _ := NewOKResponse(status)
	return resp
}

// handleListClients returns a snapshot of the managed clients
func (s *Server) handleListClients() *Response {
	snapshot := s.state.Clients()

	clients := make([]ClientInfo, len(snapshot))
	for i, c := range snapshot {
		clients[i] = ClientInfo{
			Window: uint32(c.Window),
			Frame:  uint32(c.Frame),
			X:      int(c.Geometry.X),
			Y:      int(c.Geometry.Y),
			Width:  int(c.Geometry.Width),
			Height: int(c.Geometry.Height),
			Title:  c.Title,
		}
	}

	resp, _ := NewOKResponse(clients)
	return resp
}

// handleReload validates the config so the client gets a synchronous
// error, then signals the daemon's reload handler.
func (s *Server) handleReload() *Response {
	log.Println("IPC: Received RELOAD command")

	var err error
	if s.configPath != "" {
		_, err = config.LoadFromPath(s.configPath)
	} else {
		_, err = config.Load()
	}
	if err != nil {
		return NewErrorResponse(fmt.Sprintf("failed to reload config: %v", err))
	}

	// Notify the main daemon via channel (non-blocking)
	select {
	case s.reloadChan <- struct{}{}:
	default:
	}

	resp, _ := NewOKResponse(nil)
	return resp
}

// sendError sends an error response
func (s *Server) sendError(conn net.Conn, errMsg string) {
	resp := NewErrorResponse(errMsg)
	data, _ := resp.Marshal()
	data = append(data, '\n')
	conn.Write(data)
}

// Stop gracefully shuts down the IPC server
func (s *Server) Stop() {
	s.shutdownMu.Lock()
	s.shuttingDown = true
	s.shutdownMu.Unlock()

	if s.listener != nil {
		s.listener.Close()
	}
	os.Remove(s.socketPath)
}
