package git

import (
	"context"
	"fmt"
)

// SetRefRequest is a request to create or update a reference under a
// compare-and-swap guard on its previous value.
type SetRefRequest struct {
	// Ref is the full reference name, e.g. "refs/heads/main".
	Ref string

	// Hash is the new value of the reference.
	Hash Hash

	// OldHash, if non-zero, guards the update: the update fails if the
	// reference's current value does not match OldHash. Pass ZeroHash
	// to require that the reference not already exist.
	OldHash Hash

	// CreateIfMissing permits the update to create the ref, skipping
	// the "must already be OldHash" requirement.
	CreateIfMissing bool
}

// SetRef creates or atomically updates a single reference.
func (r *Repository) SetRef(ctx context.Context, req SetRefRequest) error {
	args := []string{"update-ref", req.Ref, req.Hash.String()}
	if req.OldHash != "" || !req.CreateIfMissing {
		args = append(args, req.OldHash.String())
	}

	if err := r.gitCmd(ctx, args...).Run(r.exec); err != nil {
		return fmt.Errorf("update-ref %s: %w", req.Ref, err)
	}
	return nil
}

// RefUpdate is one entry of a transactional multi-ref update (§4.7.3
// step 3, §5 "Reference updates ... applied in a single transactional
// batch").
type RefUpdate struct {
	Ref     string
	Hash    Hash // ZeroHash deletes the ref
	OldHash Hash // optional CAS guard
}

// UpdateRefs applies a batch of reference updates transactionally: either
// all of them land, or none do. Backed by `git update-ref --stdin`, which
// is atomic across the whole batch.
func (r *Repository) UpdateRefs(ctx context.Context, updates []RefUpdate, reason string) error {
	if len(updates) == 0 {
		return nil
	}

	var stdin []byte
	for _, u := range updates {
		if u.Hash.IsZero() {
			line := fmt.Sprintf("delete %s", quoteRefArg(u.Ref))
			if !u.OldHash.IsZero() {
				line += " " + quoteRefArg(u.OldHash.String())
			}
			stdin = append(stdin, line+"\n"...)
			continue
		}

		line := fmt.Sprintf("update %s %s", quoteRefArg(u.Ref), quoteRefArg(u.Hash.String()))
		if !u.OldHash.IsZero() {
			line += " " + quoteRefArg(u.OldHash.String())
		}
		stdin = append(stdin, line+"\n"...)
	}

	args := []string{"update-ref", "--stdin"}
	if reason != "" {
		args = append(args, "-m", reason)
	}

	cmd := r.gitCmd(ctx, args...).StdinString(string(stdin))
	if err := cmd.Run(r.exec); err != nil {
		return fmt.Errorf("update-ref --stdin: %w", err)
	}
	return nil
}

// quoteRefArg quotes a value for git update-ref's stdin protocol, which
// uses C-style quoting for values containing spaces.
func quoteRefArg(s string) string {
	for _, c := range s {
		if c == ' ' || c == '"' || c == '\\' {
			return fmt.Sprintf("%q", s)
		}
	}
	return s
}

// ReadRef resolves a reference to its current hash. Returns ErrNotExist
// if the reference does not exist.
func (r *Repository) ReadRef(ctx context.Context, ref string) (Hash, error) {
	out, err := r.gitCmd(ctx, "rev-parse", "--verify", "--quiet", ref).OutputString(r.exec)
	if err != nil {
		if isExitError(err) {
			return ZeroHash, ErrNotExist
		}
		return ZeroHash, fmt.Errorf("read ref %s: %w", ref, err)
	}
	return Hash(out), nil
}

// PeelToCommit resolves commitish (a ref, hash, or other commit-ish
// expression) to the hash of the commit it names.
func (r *Repository) PeelToCommit(ctx context.Context, commitish string) (Hash, error) {
	out, err := r.gitCmd(ctx, "rev-parse", "--verify", "--quiet", commitish+"^{commit}").OutputString(r.exec)
	if err != nil {
		if isExitError(err) {
			return ZeroHash, ErrNotExist
		}
		return ZeroHash, fmt.Errorf("peel %s to commit: %w", commitish, err)
	}
	return Hash(out), nil
}

// PeelToTree resolves treeish to the hash of the tree it names (the
// commit's tree, if treeish is a commit).
func (r *Repository) PeelToTree(ctx context.Context, treeish string) (Hash, error) {
	out, err := r.gitCmd(ctx, "rev-parse", "--verify", "--quiet", treeish+"^{tree}").OutputString(r.exec)
	if err != nil {
		if isExitError(err) {
			return ZeroHash, ErrNotExist
		}
		return ZeroHash, fmt.Errorf("peel %s to tree: %w", treeish, err)
	}
	return Hash(out), nil
}

// HashAt returns the hash of the object at path within commitish's tree.
func (r *Repository) HashAt(ctx context.Context, commitish, path string) (Hash, error) {
	out, err := r.gitCmd(ctx, "rev-parse", "--verify", "--quiet", commitish+":"+path).OutputString(r.exec)
	if err != nil {
		if isExitError(err) {
			return ZeroHash, ErrNotExist
		}
		return ZeroHash, fmt.Errorf("hash at %s:%s: %w", commitish, path, err)
	}
	return Hash(out), nil
}
