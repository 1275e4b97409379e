package ports

import "go.strandlab.net/floe/internal/core/domain"

// ConfigLoader parses target declarations into their in-memory
// representation, preserving declaration order.
//
//go:generate go run go.uber.org/mock/mockgen -source=config_loader.go -destination=mocks/mock_config_loader.go -package=mocks
type ConfigLoader interface {
	// Load reads the workflow declaration file at path.
	Load(path string) ([]*domain.Target, error)
}
