package mcp

import (
	"context"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/1broseidon/framed/internal/ipc"
)

const (
	ServerName    = "framed"
	ServerVersion = "0.1.0"
)

// ControlClient is the slice of the IPC client the tools proxy through.
type ControlClient interface {
	GetStatus() (*ipc.StatusData, error)
	ListClients() ([]ipc.ClientInfo, error)
	Reload() error
}

var _ ControlClient = (*ipc.Client)(nil)

// Server exposes window manager control tools over MCP stdio. Every tool
// proxies through the IPC socket, so the server works from any process
// while the daemon runs elsewhere.
type Server struct {
	mcpServer *mcpsdk.Server
	client    ControlClient
}

// NewServer creates a new MCP server backed by the given IPC client.
func NewServer(client ControlClient) *Server {
	s := &Server{client: client}

	s.mcpServer = mcpsdk.NewServer(
		&mcpsdk.Implementation{
			Name:    ServerName,
			Version: ServerVersion,
		},
		nil,
	)

	s.registerTools()
	return s
}

// Run starts the MCP server on stdio transport, blocking until done.
func (s *Server) Run(ctx context.Context) error {
	return s.mcpServer.Run(ctx, &mcpsdk.StdioTransport{})
}

func (s *Server) registerTools() {
	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "wm_status",
		Description: "Get the window manager's status: display, managed window count, uptime, and current border width.",
	}, s.handleStatus)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "wm_clients",
		Description: "List the managed windows with their frame ids, geometry, and titles.",
	}, s.handleClients)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "wm_reload",
		Description: "Reload the window manager's configuration from disk. Applies frame style and log level changes to the running daemon.",
	}, s.handleReload)
}

func (s *Server) handleStatus(_ context.Context, _ *mcpsdk.CallToolRequest, _ StatusInput) (*mcpsdk.CallToolResult, StatusOutput, error) {
	status, err := s.client.GetStatus()
	if err != nil {
		return nil, StatusOutput{}, err
	}

	return nil, StatusOutput{
		Running:       status.Running,
		Display:       status.Display,
		ManagedCount:  status.ManagedCount,
		UptimeSeconds: status.UptimeSeconds,
		BorderWidth:   status.BorderWidth,
	}, nil
}

func (s *Server) handleClients(_ context.Context, _ *mcpsdk.CallToolRequest, _ ClientsInput) (*mcpsdk.CallToolResult, ClientsOutput, error) {
	clients, err := s.client.ListClients()
	if err != nil {
		return nil, ClientsOutput{}, err
	}

	out := ClientsOutput{
		Count:   len(clients),
		Clients: make([]ManagedClient, len(clients)),
	}
	for i, c := range clients {
		out.Clients[i] = ManagedClient{
			Window: c.Window,
			Frame:  c.Frame,
			X:      c.X,
			Y:      c.Y,
			Width:  c.Width,
			Height: c.Height,
			Title:  c.Title,
		}
	}

	return nil, out, nil
}

func (s *Server) handleReload(_ context.Context, _ *mcpsdk.CallToolRequest, _ ReloadInput) (*mcpsdk.CallToolResult, ReloadOutput, error) {
	if err := s.client.Reload(); err != nil {
		return nil, ReloadOutput{}, err
	}

	return nil, ReloadOutput{Reloaded: true}, nil
}
