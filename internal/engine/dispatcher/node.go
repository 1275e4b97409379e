package dispatcher

import (
	"context"

	"github.com/grindlemire/graft"
	"go.strandlab.net/floe/internal/adapters/fs"        //nolint:depguard // Wired in engine wiring
	"go.strandlab.net/floe/internal/adapters/local"     //nolint:depguard // Wired in engine wiring
	"go.strandlab.net/floe/internal/adapters/logger"    //nolint:depguard // Wired in engine wiring
	"go.strandlab.net/floe/internal/adapters/state"     //nolint:depguard // Wired in engine wiring
	"go.strandlab.net/floe/internal/adapters/telemetry" //nolint:depguard // Wired in engine wiring
	"go.strandlab.net/floe/internal/core/ports"
	"go.strandlab.net/floe/internal/engine/resolver"
)

// NodeID is the unique identifier for the dispatcher Graft node.
const NodeID graft.ID = "engine.dispatcher"

func init() {
	graft.Register(graft.Node[*Dispatcher]{
		ID:        NodeID,
		Cacheable: true,
		DependsOn: []graft.ID{
			local.NodeID,
			state.NodeID,
			fs.NodeID,
			resolver.NodeID,
			logger.NodeID,
			telemetry.NodeID,
		},
		Run: func(ctx context.Context) (*Dispatcher, error) {
			backend, err := graft.Dep[ports.Backend](ctx)
			if err != nil {
				return nil, err
			}
			store, err := graft.Dep[ports.RunRecordStore](ctx)
			if err != nil {
				return nil, err
			}
			fp, err := graft.Dep[ports.Fingerprinter](ctx)
			if err != nil {
				return nil, err
			}
			res, err := graft.Dep[*resolver.Resolver](ctx)
			if err != nil {
				return nil, err
			}
			log, err := graft.Dep[ports.Logger](ctx)
			if err != nil {
				return nil, err
			}
			tel, err := graft.Dep[ports.Telemetry](ctx)
			if err != nil {
				return nil, err
			}
			return New(backend, store, fp, res, log, tel, Options{}), nil
		},
	})
}
