package renderer

import (
	"log/slog"

	"github.com/mattjoyce/overviewd/internal/command"
	"github.com/mattjoyce/overviewd/internal/log"
)

// Loopback is the executor used when no compositor URL is configured.
// Every command completes synchronously and no transitions are animated.
type Loopback struct {
	logger *slog.Logger
}

func NewLoopback() *Loopback {
	return &Loopback{logger: log.WithComponent("renderer")}
}

func (l *Loopback) Execute(cmd *command.Command, _ func()) bool {
	l.logger.Debug("loopback execute", "command_id", cmd.ID, "type", cmd.Type)
	return true
}

func (l *Loopback) Cancel(cmd *command.Command, reason string) {
	l.logger.Debug("loopback cancel", "command_id", cmd.ID, "reason", reason)
}
