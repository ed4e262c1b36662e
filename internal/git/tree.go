package git

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"os"
	"strconv"
	"strings"

	"go.gitbutler.dev/core/internal/osutil"
)

// Mode is the octal file mode of a Git tree entry.
type Mode int

// Recognized tree entry modes.
const (
	ZeroMode    Mode = 0o000000
	RegularMode Mode = 0o100644
	ExecMode    Mode = 0o100755
	LinkMode    Mode = 0o120000
	DirMode     Mode = 0o040000
	CommitMode  Mode = 0o160000 // submodule gitlink
)

// ParseMode parses a base-8 mode string as printed by `git ls-tree`.
func ParseMode(s string) (Mode, error) {
	i, err := strconv.ParseInt(s, 8, 32)
	return Mode(i), err
}

func (m Mode) String() string { return fmt.Sprintf("%06o", int(m)) }

// TreeEntry is a single entry of a Git tree.
type TreeEntry struct {
	Mode Mode
	Type Type
	Hash Hash
	Name string
}

// MakeTree builds a brand new flat tree from ents and returns its hash.
// Unlike UpdateTree, it cannot address paths containing slashes.
func (r *Repository) MakeTree(ctx context.Context, ents iter.Seq2[TreeEntry, error]) (_ Hash, _ int, err error) {
	var stdout bytes.Buffer
	cmd := r.gitCmd(ctx, "mktree").Stdout(&stdout)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return ZeroHash, 0, fmt.Errorf("pipe: %w", err)
	}

	if err := cmd.Start(r.exec); err != nil {
		return ZeroHash, 0, fmt.Errorf("start: %w", err)
	}
	defer func() {
		if err != nil {
			_ = cmd.Kill(r.exec)
		}
	}()

	var n int
	for ent, entErr := range ents {
		if entErr != nil {
			return ZeroHash, 0, entErr
		}
		if ent.Type == "" {
			return ZeroHash, 0, fmt.Errorf("type not set for %q", ent.Name)
		}
		if strings.Contains(ent.Name, "/") {
			return ZeroHash, 0, fmt.Errorf("name %q contains a slash; use UpdateTree", ent.Name)
		}

		if _, err := fmt.Fprintf(stdin, "%s %s %s\t%s\n", ent.Mode, ent.Type, ent.Hash, ent.Name); err != nil {
			return ZeroHash, 0, fmt.Errorf("write: %w", err)
		}
		n++
	}

	if err := stdin.Close(); err != nil {
		return ZeroHash, 0, fmt.Errorf("close: %w", err)
	}
	if err := cmd.Wait(r.exec); err != nil {
		return ZeroHash, 0, fmt.Errorf("wait: %w", err)
	}

	return Hash(bytes.TrimSpace(stdout.Bytes())), n, nil
}

// ListTreeOptions configures ListTree.
type ListTreeOptions struct {
	// Recurse descends into subtrees, yielding only blob/commit leaves.
	Recurse bool
}

// ListTree lists the direct (or, with Recurse, transitive) entries of
// tree.
func (r *Repository) ListTree(ctx context.Context, tree Hash, opts ListTreeOptions) iter.Seq2[TreeEntry, error] {
	return func(yield func(TreeEntry, error) bool) {
		args := []string{"ls-tree", "--full-tree"}
		if opts.Recurse {
			args = append(args, "-r")
		}
		args = append(args, tree.String())

		cmd := r.gitCmd(ctx, args...)
		stdout, err := cmd.StdoutPipe()
		if err != nil {
			yield(TreeEntry{}, fmt.Errorf("pipe: %w", err))
			return
		}
		if err := cmd.Start(r.exec); err != nil {
			yield(TreeEntry{}, fmt.Errorf("start: %w", err))
			return
		}

		var finished bool
		defer func() {
			if finished {
				return
			}
			_ = cmd.Kill(r.exec)
			_, _ = io.Copy(io.Discard, stdout)
		}()

		scanner := bufio.NewScanner(stdout)
		scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)
		for scanner.Scan() {
			line := scanner.Bytes()
			modeTypeHash, name, ok := bytes.Cut(line, []byte{'\t'})
			if !ok {
				r.log.Warn("ls-tree: skipping invalid line", "line", string(line))
				continue
			}

			toks := bytes.SplitN(modeTypeHash, []byte{' '}, 3)
			if len(toks) != 3 {
				r.log.Warn("ls-tree: skipping invalid line", "line", string(line))
				continue
			}

			mode, err := ParseMode(string(toks[0]))
			if err != nil {
				r.log.Warn("ls-tree: skipping invalid mode", "mode", string(toks[0]), "error", err)
				continue
			}

			if !yield(TreeEntry{Mode: mode, Type: Type(toks[1]), Hash: Hash(toks[2]), Name: string(name)}, nil) {
				return
			}
		}

		if err := scanner.Err(); err != nil {
			if !yield(TreeEntry{}, fmt.Errorf("scan: %w", err)) {
				return
			}
		}
		if err := cmd.Wait(r.exec); err != nil {
			if !yield(TreeEntry{}, fmt.Errorf("wait: %w", err)) {
				return
			}
		}
		finished = true
	}
}

// UpdateTreeRequest edits an existing tree, potentially at nested paths.
type UpdateTreeRequest struct {
	// Tree is the starting point. ZeroHash starts from an empty tree.
	Tree Hash

	Writes  []BlobInfo
	Deletes iter.Seq[string]
}

// UpdateTree applies writes and deletes to req.Tree (unlike MakeTree, via
// a scratch index file, so paths may contain slashes) and returns the
// resulting tree's hash.
func (r *Repository) UpdateTree(ctx context.Context, req UpdateTreeRequest) (_ Hash, err error) {
	indexFile, err := osutil.TempFilePath("", "gbcore-index-*")
	if err != nil {
		return ZeroHash, fmt.Errorf("create scratch index: %w", err)
	}
	defer func() {
		err = errors.Join(err, os.Remove(indexFile))
	}()

	readTreeArgs := []string{"read-tree", "--index-output", indexFile}
	if !req.Tree.IsZero() {
		readTreeArgs = append(readTreeArgs, req.Tree.String())
	} else {
		readTreeArgs = append(readTreeArgs, EmptyTreeHash.String())
	}
	if err := r.gitCmd(ctx, readTreeArgs...).Run(r.exec); err != nil {
		return ZeroHash, fmt.Errorf("read-tree: %w", err)
	}

	env := "GIT_INDEX_FILE=" + indexFile

	if req.Deletes != nil {
		var toDelete []string
		for path := range req.Deletes {
			toDelete = append(toDelete, path)
		}
		if len(toDelete) > 0 {
			args := append([]string{"update-index", "--force-remove", "--"}, toDelete...)
			cmd := r.gitCmd(ctx, args...).AppendEnv(env)
			if err := cmd.Run(r.exec); err != nil {
				return ZeroHash, fmt.Errorf("update-index --force-remove: %w", err)
			}
		}
	}

	for _, w := range req.Writes {
		entry := fmt.Sprintf("%s %s\t%s", w.Mode, w.Hash, w.Path)
		cmd := r.gitCmd(ctx, "update-index", "--index-info").AppendEnv(env)
		cmd.StdinString(entry + "\n")
		if err := cmd.Run(r.exec); err != nil {
			return ZeroHash, fmt.Errorf("update-index --index-info %s: %w", w.Path, err)
		}
	}

	out, err := r.gitCmd(ctx, "write-tree").AppendEnv(env).OutputString(r.exec)
	if err != nil {
		return ZeroHash, fmt.Errorf("write-tree: %w", err)
	}
	return Hash(out), nil
}

// EmptyTreeHash is the well-known hash of the empty tree.
const EmptyTreeHash Hash = "4b825dc642cb6eb9a060e54bf8d69288fbee4904"
