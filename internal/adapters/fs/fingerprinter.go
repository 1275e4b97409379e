// Package fs implements artifact fingerprinting against the local
// filesystem.
package fs

import (
	"encoding/binary"
	"io"
	iofs "io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/cespare/xxhash/v2"
	"go.strandlab.net/floe/internal/core/domain"
	"go.strandlab.net/floe/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.Fingerprinter = (*Fingerprinter)(nil)

// Fingerprinter observes artifacts with a content hash rather than a
// bare timestamp, so sub-second rebuilds and clock skew cannot produce
// a false Fresh. The mtime is still recorded for newer-than
// comparisons between inputs and outputs.
type Fingerprinter struct {
	root string
}

// NewFingerprinter creates a Fingerprinter resolving relative artifact
// paths against root.
func NewFingerprinter(root string) *Fingerprinter {
	return &Fingerprinter{root: root}
}

// Fingerprint stats and content-hashes the artifact at path. A missing
// artifact yields Exists=false without error.
func (f *Fingerprinter) Fingerprint(path string) (domain.Fingerprint, error) {
	full := path
	if !filepath.IsAbs(full) {
		full = filepath.Join(f.root, path)
	}

	info, err := os.Stat(full)
	if err != nil {
		if os.IsNotExist(err) {
			return domain.Fingerprint{}, nil
		}
		return domain.Fingerprint{}, zerr.With(zerr.Wrap(err, "failed to stat artifact"), "path", path)
	}

	var digest uint64
	if info.IsDir() {
		digest, err = hashDir(full)
	} else {
		digest, err = hashFile(full)
	}
	if err != nil {
		return domain.Fingerprint{}, err
	}

	return domain.Fingerprint{
		Exists:  true,
		Digest:  digest,
		ModTime: info.ModTime(),
	}, nil
}

// hashFile computes the xxhash of a file's content.
func hashFile(path string) (uint64, error) {
	file, err := os.Open(path) //nolint:gosec // Path is controlled by caller
	if err != nil {
		return 0, zerr.With(zerr.Wrap(err, "failed to open artifact"), "path", path)
	}
	defer file.Close() //nolint:errcheck // Best effort close in defer

	hasher := xxhash.New()
	if _, err := io.Copy(hasher, file); err != nil {
		return 0, zerr.With(zerr.Wrap(err, "failed to hash artifact content"), "path", path)
	}
	return hasher.Sum64(), nil
}

// hashDir combines the content hashes of every regular file under the
// directory, walked in sorted order so the digest is deterministic.
func hashDir(dir string) (uint64, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d iofs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.Type().IsRegular() {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return 0, zerr.With(zerr.Wrap(err, "failed to walk artifact directory"), "path", dir)
	}
	sort.Strings(files)

	hasher := xxhash.New()
	for _, path := range files {
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return 0, zerr.Wrap(err, "failed to relativize path")
		}
		_, _ = hasher.WriteString(rel)
		_, _ = hasher.Write([]byte{0})

		h, err := hashFile(path)
		if err != nil {
			return 0, err
		}
		if err := binary.Write(hasher, binary.LittleEndian, h); err != nil {
			return 0, zerr.Wrap(err, "failed to write hash to digest")
		}
	}
	return hasher.Sum64(), nil
}
