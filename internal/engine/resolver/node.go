package resolver

import (
	"context"

	"github.com/grindlemire/graft"
	"go.strandlab.net/floe/internal/adapters/fs"     //nolint:depguard // Wired in engine wiring
	"go.strandlab.net/floe/internal/adapters/logger" //nolint:depguard // Wired in engine wiring
	"go.strandlab.net/floe/internal/core/ports"
)

// NodeID is the unique identifier for the resolver Graft node.
const NodeID graft.ID = "engine.resolver"

func init() {
	graft.Register(graft.Node[*Resolver]{
		ID:        NodeID,
		Cacheable: true,
		DependsOn: []graft.ID{
			fs.NodeID,
			logger.NodeID,
		},
		Run: func(ctx context.Context) (*Resolver, error) {
			fp, err := graft.Dep[ports.Fingerprinter](ctx)
			if err != nil {
				return nil, err
			}
			log, err := graft.Dep[ports.Logger](ctx)
			if err != nil {
				return nil, err
			}
			return New(fp, log), nil
		},
	})
}
