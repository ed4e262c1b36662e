package git

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

// StatusEntryKind distinguishes the families of `git status
// --porcelain=v2` records.
type StatusEntryKind int

// Recognized status record kinds.
const (
	StatusOrdinary StatusEntryKind = iota
	StatusRenameOrCopy
	StatusUnmerged
	StatusUntracked
	StatusIgnored
)

// StatusEntry is one parsed record of `git status --porcelain=v2 -z`,
// the raw input to C3's changes_in_worktree.
type StatusEntry struct {
	Kind StatusEntryKind

	// XY are the two status letters/codes for the index and worktree
	// respectively (e.g. "M.", ".D", "R.", "UU").
	XY string

	Path    string
	OrigPath string // rename/copy source

	Submodule bool

	HeadMode, IndexMode, WorktreeMode Mode
	HeadHash, IndexHash               Hash

	Score int // similarity percentage, rename/copy only

	// Stage1/2/3 are populated for unmerged entries: base/ours/theirs
	// object hashes and modes.
	StageModes [4]Mode
	StageHash  [4]Hash
}

// Status runs `git status --porcelain=v2 -z` and returns the parsed
// records, including untracked and ignored files.
func (r *Repository) Status(ctx context.Context, includeIgnored bool) ([]StatusEntry, error) {
	args := []string{"status", "--porcelain=v2", "-z", "--untracked-files=all"}
	if includeIgnored {
		args = append(args, "--ignored=matching")
	} else {
		args = append(args, "--ignored=no")
	}

	out, err := r.gitCmd(ctx, args...).OutputString(r.exec)
	if err != nil {
		return nil, fmt.Errorf("git status: %w", err)
	}

	return parsePorcelainV2(out)
}

func parsePorcelainV2(out string) ([]StatusEntry, error) {
	toks := strings.Split(out, "\x00")
	var entries []StatusEntry

	for i := 0; i < len(toks); i++ {
		line := toks[i]
		if line == "" {
			continue
		}

		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}

		switch fields[0] {
		case "?":
			entries = append(entries, StatusEntry{Kind: StatusUntracked, Path: toks[i][2:]})
		case "!":
			entries = append(entries, StatusEntry{Kind: StatusIgnored, Path: toks[i][2:]})
		case "1":
			if len(fields) < 8 {
				return nil, fmt.Errorf("status: malformed ordinary line %q", line)
			}
			e := StatusEntry{
				Kind:      StatusOrdinary,
				XY:        fields[1],
				Submodule: fields[2] != "N...",
				Path:      strings.Join(fields[8:], " "),
			}
			e.HeadMode = mustMode(fields[3])
			e.IndexMode = mustMode(fields[4])
			e.WorktreeMode = mustMode(fields[5])
			e.HeadHash = Hash(fields[6])
			e.IndexHash = Hash(fields[7])
			entries = append(entries, e)
		case "2":
			if len(fields) < 9 {
				return nil, fmt.Errorf("status: malformed rename line %q", line)
			}
			e := StatusEntry{
				Kind:      StatusRenameOrCopy,
				XY:        fields[1],
				Submodule: fields[2] != "N...",
				Path:      strings.Join(fields[8:], " "),
			}
			e.HeadMode = mustMode(fields[3])
			e.IndexMode = mustMode(fields[4])
			e.WorktreeMode = mustMode(fields[5])
			e.HeadHash = Hash(fields[6])
			e.IndexHash = Hash(fields[7])
			scoreStr := strings.TrimPrefix(fields[8], "R")
			scoreStr = strings.TrimPrefix(scoreStr, "C")
			e.Score, _ = strconv.Atoi(scoreStr)
			e.Path = strings.Join(fields[9:], " ")
			i++
			if i >= len(toks) {
				return nil, fmt.Errorf("status: missing orig path for %q", line)
			}
			e.OrigPath = toks[i]
			entries = append(entries, e)
		case "u":
			if len(fields) < 10 {
				return nil, fmt.Errorf("status: malformed unmerged line %q", line)
			}
			e := StatusEntry{Kind: StatusUnmerged, XY: fields[1], Path: strings.Join(fields[10:], " ")}
			e.StageModes[1] = mustMode(fields[3])
			e.StageModes[2] = mustMode(fields[4])
			e.StageModes[3] = mustMode(fields[5])
			e.WorktreeMode = mustMode(fields[6])
			e.StageHash[1] = Hash(fields[7])
			e.StageHash[2] = Hash(fields[8])
			e.StageHash[3] = Hash(fields[9])
			entries = append(entries, e)
		}
	}

	return entries, nil
}

func mustMode(s string) Mode {
	m, err := ParseMode(s)
	if err != nil {
		return ZeroMode
	}
	return m
}
