package mcp

// StatusInput is the input for the wm_status tool.
type StatusInput struct{}

// StatusOutput is the output for the wm_status tool.
type StatusOutput struct {
	Running       bool   `json:"running"`
	Display       string `json:"display"`
	ManagedCount  int    `json:"managed_count"`
	UptimeSeconds int64  `json:"uptime_seconds"`
	BorderWidth   int    `json:"border_width"`
}

// ClientsInput is the input for the wm_clients tool.
type ClientsInput struct{}

// ManagedClient describes a single framed window.
type ManagedClient struct {
	Window uint32 `json:"window"`
	Frame  uint32 `json:"frame"`
	X      int    `json:"x"`
	Y      int    `json:"y"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Title  string `json:"title,omitempty"`
}

// ClientsOutput is the output for the wm_clients tool.
type ClientsOutput struct {
	Count   int             `json:"count"`
	Clients []ManagedClient `json:"clients"`
}

// ReloadInput is the input for the wm_reload tool.
type ReloadInput struct{}

// ReloadOutput is the output for the wm_reload tool.
type ReloadOutput struct {
	Reloaded bool `json:"reloaded"`
}
