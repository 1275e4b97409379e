package local

import (
	"context"

	"github.com/grindlemire/graft"
	"go.strandlab.net/floe/internal/adapters/logger" //nolint:depguard // Wired in adapter wiring
	"go.strandlab.net/floe/internal/core/ports"
)

// NodeID is the unique identifier for the local backend Graft node.
const NodeID graft.ID = "adapter.backend.local"

func init() {
	graft.Register(graft.Node[ports.Backend]{
		ID:        NodeID,
		Cacheable: true,
		DependsOn: []graft.ID{logger.NodeID},
		Run: func(ctx context.Context) (ports.Backend, error) {
			log, err := graft.Dep[ports.Logger](ctx)
			if err != nil {
				return nil, err
			}
			return New(log), nil
		},
	})
}
