// Package metadata implements the Ref-Metadata Store (C2): a typed
// key-value mapping of full reference names to branch or workspace
// metadata, persisted independently of Git refs.
package metadata

import (
	"errors"
	"sync"

	"go.abhg.dev/log/silog"
)

// ErrNotExist is returned by Get when the requested reference has no
// recorded metadata.
var ErrNotExist = errors.New("metadata: no entry for reference")

// BranchMetadata is per-reference metadata (spec §4.2).
type BranchMetadata struct {
	Description string `toml:"description,omitempty"`
	PRNumber    int    `toml:"pr_number,omitempty"`
	Archived    bool   `toml:"archived,omitempty"`
	ReviewID    string `toml:"review_id,omitempty"`
}

// WorkspaceMetadata is per-workspace metadata (spec §4.2).
type WorkspaceMetadata struct {
	// StackOrder is the declared order of stacks by StackId. It is
	// stored only: workspace.Build and hunkdep.CombinePathRanges take
	// their order from the slice their caller passes, not from here.
	StackOrder []string `toml:"stack_order,omitempty"`

	TargetRef           string `toml:"target_ref,omitempty"`
	DefaultTargetCommit string `toml:"default_target_commit,omitempty"`

	// SelectedForChanges is the stack that zero-stack-lock commits
	// above the workspace commit are assigned to by default
	// (§4.8 step 5; original_source/ supplement, see SPEC_FULL.md).
	SelectedForChanges string `toml:"selected_for_changes,omitempty"`
}

// document is the on-disk shape of refs-metadata.toml.
type document struct {
	Branches   map[string]BranchMetadata    `toml:"branches,omitempty"`
	Workspaces map[string]WorkspaceMetadata `toml:"workspaces,omitempty"`
}

// Store is the in-memory, file-backed Ref-Metadata Store.
//
// Store is safe for concurrent use; callers are additionally expected to
// hold the repository's exclusive worktree lock (§5) around any sequence
// of Set/Remove calls that must be observed atomically by other
// processes.
type Store struct {
	mu   sync.RWMutex
	path string
	doc  document
	log  *silog.Logger
}

// Open loads the store from path, creating an empty document in memory
// if the file does not yet exist on disk. The file is not created until
// the first write.
func Open(path string, log *silog.Logger) (*Store, error) {
	if log == nil {
		log = silog.Nop()
	}

	s := &Store{
		path: path,
		doc: document{
			Branches:   make(map[string]BranchMetadata),
			Workspaces: make(map[string]WorkspaceMetadata),
		},
		log: log,
	}

	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

// GetBranch returns the metadata recorded for a branch reference.
func (s *Store) GetBranch(ref string) (BranchMetadata, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.doc.Branches[ref]
	if !ok {
		return BranchMetadata{}, ErrNotExist
	}
	return m, nil
}

// SetBranch records metadata for a branch reference, creating or
// replacing any existing entry, and persists the store.
func (s *Store) SetBranch(ref string, m BranchMetadata) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.doc.Branches[ref] = m
	return s.save()
}

// RemoveBranch deletes the metadata recorded for a branch reference.
func (s *Store) RemoveBranch(ref string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.doc.Branches, ref)
	return s.save()
}

// ListBranchesForPrefix lists branch references (and their metadata)
// whose ref name has the given prefix, e.g. "refs/heads/".
func (s *Store) ListBranchesForPrefix(prefix string) map[string]BranchMetadata {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]BranchMetadata)
	for ref, m := range s.doc.Branches {
		if hasPrefix(ref, prefix) {
			out[ref] = m
		}
	}
	return out
}

// GetWorkspace returns the metadata recorded for a workspace reference.
func (s *Store) GetWorkspace(ref string) (WorkspaceMetadata, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.doc.Workspaces[ref]
	if !ok {
		return WorkspaceMetadata{}, ErrNotExist
	}
	return m, nil
}

// SetWorkspace records metadata for a workspace reference and persists
// the store.
func (s *Store) SetWorkspace(ref string, m WorkspaceMetadata) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.doc.Workspaces[ref] = m
	return s.save()
}

// RemoveWorkspace deletes the metadata recorded for a workspace
// reference.
func (s *Store) RemoveWorkspace(ref string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.doc.Workspaces, ref)
	return s.save()
}

func hasPrefix(s, prefix string) bool {
	return len(s) >= len(prefix) && s[:len(prefix)] == prefix
}
