package metadata

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// load reads the TOML document from disk, tolerating a missing file (an
// empty store).
func (s *Store) load() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read ref metadata: %w", err)
	}

	var doc document
	if _, err := toml.Decode(string(data), &doc); err != nil {
		return fmt.Errorf("decode ref metadata: %w", err)
	}

	if doc.Branches == nil {
		doc.Branches = make(map[string]BranchMetadata)
	}
	if doc.Workspaces == nil {
		doc.Workspaces = make(map[string]WorkspaceMetadata)
	}
	s.doc = doc
	return nil
}

// save writes the current in-memory document to disk atomically: encode
// to a temporary file in the same directory, then rename over the
// target. This guarantees that concurrent readers never observe a
// partially written document.
func (s *Store) save() error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create ref metadata dir: %w", err)
	}

	var buf bytes.Buffer
	enc := toml.NewEncoder(&buf)
	if err := enc.Encode(s.doc); err != nil {
		return fmt.Errorf("encode ref metadata: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".refs-metadata-*.toml.tmp")
	if err != nil {
		return fmt.Errorf("create ref metadata temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("write ref metadata temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("close ref metadata temp file: %w", err)
	}

	if err := os.Rename(tmpPath, s.path); err != nil {
		_ = os.Remove(tmpPath)
		s.log.Warn("could not atomically replace ref metadata", "error", err)
		return fmt.Errorf("replace ref metadata: %w", err)
	}

	return nil
}
