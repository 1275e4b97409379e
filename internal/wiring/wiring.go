// Package wiring registers all Graft nodes for the application.
package wiring

import (
	// Register adapter nodes.
	_ "go.strandlab.net/floe/internal/adapters/config"
	_ "go.strandlab.net/floe/internal/adapters/fs"
	_ "go.strandlab.net/floe/internal/adapters/local"
	_ "go.strandlab.net/floe/internal/adapters/logger"
	_ "go.strandlab.net/floe/internal/adapters/state"
	_ "go.strandlab.net/floe/internal/adapters/telemetry"
	// Register app and engine nodes.
	_ "go.strandlab.net/floe/internal/app"
	_ "go.strandlab.net/floe/internal/engine/dispatcher"
	_ "go.strandlab.net/floe/internal/engine/resolver"
)
