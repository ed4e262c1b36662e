package git

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

// ChangeStatus is the single-letter status Git assigns to a diff entry.
type ChangeStatus byte

// Recognized change statuses, from `git diff --name-status`.
const (
	StatusAdded      ChangeStatus = 'A'
	StatusDeleted    ChangeStatus = 'D'
	StatusModified   ChangeStatus = 'M'
	StatusRenamed    ChangeStatus = 'R'
	StatusTypeChange ChangeStatus = 'T'
	StatusCopied     ChangeStatus = 'C'
)

// RawDiffEntry is one line of `git diff --raw` output: the pre/post mode
// and hash plus the status and path(s).
type RawDiffEntry struct {
	OldMode, NewMode Mode
	OldHash, NewHash Hash
	Status           ChangeStatus
	Score            int // similarity/confidence percentage for R/C
	Path             string
	OldPath          string // set only for Status == Renamed/Copied
}

// RenameOptions configures rename/copy detection for DiffTrees.
type RenameOptions struct {
	// Detect enables rename detection (`-M`); Copies additionally
	// enables copy detection (`-C`).
	Detect bool
	Copies bool

	// Threshold is the similarity percentage (1-100) required to
	// consider two blobs a rename/copy. Zero uses Git's default (50).
	Threshold int
}

// DiffTrees compares two trees (or an empty pre-image, if old is zero)
// and returns the raw set of changes, mirroring C1's
// `diff_trees(old?, new, rename_opts) -> [TreeChange]`. The higher-level
// TreeChange classification lives in the status package, which consumes
// this primitive.
func (r *Repository) DiffTrees(ctx context.Context, oldTree, newTree Hash, opts RenameOptions) ([]RawDiffEntry, error) {
	args := []string{"diff", "--raw", "-z", "--no-renames"}
	if opts.Detect {
		args[len(args)-1] = "-M"
		if opts.Threshold > 0 {
			args[len(args)-1] = fmt.Sprintf("-M%d%%", opts.Threshold)
		}
		if opts.Copies {
			args = append(args, "-C")
		}
	}

	if oldTree.IsZero() {
		args = append(args, EmptyTreeHash.String())
	} else {
		args = append(args, oldTree.String())
	}
	args = append(args, newTree.String())

	out, err := r.gitCmd(ctx, args...).OutputString(r.exec)
	if err != nil {
		return nil, fmt.Errorf("diff --raw: %w", err)
	}

	return parseRawDiff(out, r)
}

func parseRawDiff(out string, r *Repository) ([]RawDiffEntry, error) {
	toks := strings.Split(out, "\x00")
	var entries []RawDiffEntry

	for i := 0; i < len(toks); i++ {
		line := toks[i]
		if line == "" {
			continue
		}
		if !strings.HasPrefix(line, ":") {
			continue
		}

		fields := strings.Fields(line)
		if len(fields) != 5 {
			r.log.Warn("diff --raw: skipping malformed line", "line", line)
			continue
		}

		oldMode, err := ParseMode(strings.TrimPrefix(fields[0], ":"))
		if err != nil {
			return nil, fmt.Errorf("parse old mode %q: %w", fields[0], err)
		}
		newMode, err := ParseMode(fields[1])
		if err != nil {
			return nil, fmt.Errorf("parse new mode %q: %w", fields[1], err)
		}

		statusField := fields[4]
		status := ChangeStatus(statusField[0])
		score := 0
		if len(statusField) > 1 {
			score, _ = strconv.Atoi(statusField[1:])
		}

		entry := RawDiffEntry{
			OldMode: oldMode,
			NewMode: newMode,
			OldHash: Hash(fields[2]),
			NewHash: Hash(fields[3]),
			Status:  status,
			Score:   score,
		}

		i++
		if i >= len(toks) {
			return nil, fmt.Errorf("diff --raw: missing path for %q", line)
		}

		if status == StatusRenamed || status == StatusCopied {
			entry.OldPath = toks[i]
			i++
			if i >= len(toks) {
				return nil, fmt.Errorf("diff --raw: missing new path for %q", line)
			}
			entry.Path = toks[i]
		} else {
			entry.Path = toks[i]
		}

		entries = append(entries, entry)
	}

	return entries, nil
}

// UnifiedDiff produces a textual unified diff between two blobs with the
// given number of context lines, used as a fallback content source when
// an in-memory diff library (internal/diffmodel) cannot be used because
// only on-disk blobs are available.
func (r *Repository) UnifiedDiff(ctx context.Context, oldHash, newHash Hash, path string, contextLines int) (string, error) {
	args := []string{"diff", fmt.Sprintf("-U%d", contextLines), "--no-color",
		oldHash.String(), newHash.String(), "--", path}
	out, err := r.gitCmd(ctx, args...).OutputString(r.exec)
	if err != nil {
		return "", fmt.Errorf("diff blobs: %w", err)
	}
	return out, nil
}
