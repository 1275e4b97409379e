package logger

import (
	"context"
	"log/slog"

	"github.com/grindlemire/graft"
	"go.strandlab.net/floe/internal/core/ports"
)

// NodeID is the unique identifier for the logger Graft node.
const NodeID graft.ID = "adapter.logger"

func init() {
	graft.Register(graft.Node[ports.Logger]{
		ID:        NodeID,
		Cacheable: true,
		Run: func(ctx context.Context) (ports.Logger, error) {
			return New(slog.LevelInfo), nil
		},
	})
}
