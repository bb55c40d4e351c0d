package provider

import (
	"context"
	"log/slog"
	"time"
)

// Tool is an external binary a provider shells out to.
type Tool struct {
	Name string
	Bin  string
	Args []string
}

// CheckDependencies probes each external tool at startup. A missing tool is
// logged as a warning, not an error: the stack skips to the next strategy at
// runtime, and deployments rarely install every engine.
func CheckDependencies(ctx context.Context, r Runner, tools []Tool, logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	for _, t := range tools {
		probe, cancel := context.WithTimeout(ctx, 15*time.Second)
		_, _, err := r.Run(probe, t.Bin, t.Args...)
		cancel()
		if err != nil {
			logger.Warn("provider.tool.unavailable", "tool", t.Name, "bin", t.Bin, "error", err)
			continue
		}
		logger.Info("provider.tool.ok", "tool", t.Name, "bin", t.Bin)
	}
}
