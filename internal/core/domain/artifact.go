package domain

import "time"

// Fingerprint captures the observed state of an artifact on disk at a
// single point in time. Digest is a content hash, so two fingerprints
// with equal digests refer to identical bytes regardless of timestamps.
// ModTime is kept for newer-than comparisons and diagnostics.
type Fingerprint struct {
	Exists  bool
	Digest  uint64
	ModTime time.Time
}

// Changed reports whether the artifact content differs from a previously
// recorded digest. A missing artifact always counts as changed.
func (f Fingerprint) Changed(recorded uint64) bool {
	return !f.Exists || f.Digest != recorded
}

// NewerThan reports whether this fingerprint was modified after the
// other one. Both sides must exist for the comparison to be meaningful;
// a missing side yields false.
func (f Fingerprint) NewerThan(other Fingerprint) bool {
	if !f.Exists || !other.Exists {
		return false
	}
	return f.ModTime.After(other.ModTime)
}

// Artifact is an immutable value object pairing an artifact identifier
// with the fingerprint observed during the current resolution pass.
// Artifacts are recomputed on every pass and never cached across passes.
type Artifact struct {
	Path        InternedString
	Fingerprint Fingerprint
}
