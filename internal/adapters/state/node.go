package state

import (
	"context"

	"github.com/grindlemire/graft"
	"go.strandlab.net/floe/internal/adapters/logger" //nolint:depguard // Wired in adapter wiring
	"go.strandlab.net/floe/internal/core/ports"
)

// DefaultPath is where the run record store lives relative to the
// working directory.
const DefaultPath = ".floe/state.json"

// NodeID is the unique identifier for the run record store Graft node.
const NodeID graft.ID = "adapter.run_record_store"

func init() {
	graft.Register(graft.Node[ports.RunRecordStore]{
		ID:        NodeID,
		Cacheable: true,
		DependsOn: []graft.ID{logger.NodeID},
		Run: func(ctx context.Context) (ports.RunRecordStore, error) {
			log, err := graft.Dep[ports.Logger](ctx)
			if err != nil {
				return nil, err
			}
			return NewStore(DefaultPath, log)
		},
	})
}
