package daemon

import (
	"context"
	"log/slog"
	"time"

	"github.com/BurntSushi/xgb/xproto"
)

// WindowLister returns the client windows currently under management.
type WindowLister func() []xproto.Window

// WindowProber checks whether a window still exists on the X server.
type WindowProber func(xproto.Window) error

// AuditorConfig holds configuration for the auditor.
type AuditorConfig struct {
	Interval time.Duration
	Logger   *slog.Logger
}

// Auditor periodically sweeps the manager's registry and flags entries
// whose client window no longer exists. It is strictly read-only: framing
// and unframing remain the only paths that mutate the registry, so the
// auditor reports drift instead of correcting it.
type Auditor struct {
	interval time.Duration
	list     WindowLister
	probe    WindowProber
	logger   *slog.Logger
}

// NewAuditor creates a new auditor with the given configuration.
func NewAuditor(cfg AuditorConfig, list WindowLister, probe WindowProber) *Auditor {
	interval := cfg.Interval
	if interval <= 0 {
		interval = time.Minute
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Auditor{
		interval: interval,
		list:     list,
		probe:    probe,
		logger:   logger,
	}
}

// Run starts the audit loop. Blocks until context is cancelled.
func (a *Auditor) Run(ctx context.Context) {
	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	a.logger.Info("auditor started", "interval", a.interval)

	for {
		select {
		case <-ctx.Done():
			a.logger.Info("auditor stopped")
			return
		case <-ticker.C:
			a.audit()
		}
	}
}

// audit performs a single sweep.
func (a *Auditor) audit() {
	// Recover from panics to prevent crashing the daemon
	defer func() {
		if err := recover(); err != nil {
			a.logger.Error("auditor panic recovered", "error", err)
		}
	}()

	windows := a.list()
	if len(windows) == 0 {
		return
	}

	stale := 0
	for _, win := range windows {
		if err := a.probe(win); err != nil {
			a.logger.Warn("stale registry entry: client window no longer exists",
				"window", win,
				"error", err)
			stale++
		}
	}

	a.logger.Debug("audit pass complete", "checked", len(windows), "stale", stale)
}

// AuditNow triggers an immediate sweep.
func (a *Auditor) AuditNow() {
	a.audit()
}
