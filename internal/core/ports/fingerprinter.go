package ports

import "go.strandlab.net/floe/internal/core/domain"

// Fingerprinter observes artifacts on disk. A missing artifact is not
// an error; it yields a fingerprint with Exists set to false.
//
//go:generate go run go.uber.org/mock/mockgen -source=fingerprinter.go -destination=mocks/mock_fingerprinter.go -package=mocks
type Fingerprinter interface {
	// Fingerprint stats and content-hashes the artifact at path.
	Fingerprint(path string) (domain.Fingerprint, error)
}
