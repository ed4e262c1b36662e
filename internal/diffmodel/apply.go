package diffmodel

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
	"go.gitbutler.dev/core/internal/corekit"
	"go.gitbutler.dev/core/internal/git"
	"go.gitbutler.dev/core/internal/model"
)

// ApplySpecs applies specs against baseTree, taking each spec's new
// content from sourceTree, and returns the resulting tree (spec §4.7.1,
// "DiffSpec application"). A spec applies cleanly when either it targets
// the whole file, or every one of its HunkHeaders matches a hunk
// actually present between the base and source content for that path;
// a spec whose pre-image has drifted is skipped and reported in the
// returned rejections rather than failing the whole operation.
func ApplySpecs(ctx context.Context, repo *git.Repository, baseTree, sourceTree git.Hash, specs []model.DiffSpec) (git.Hash, []corekit.RejectedSpec, error) {
	var writes []git.BlobInfo
	var deletes []string
	var rejected []corekit.RejectedSpec

	for _, spec := range specs {
		basePath := spec.Path
		if spec.PreviousPath != "" {
			basePath = spec.PreviousPath
		}

		baseContent, baseExists, err := readPath(ctx, repo, baseTree, basePath)
		if err != nil {
			return git.ZeroHash, nil, fmt.Errorf("read base %s: %w", basePath, err)
		}
		sourceContent, sourceExists, err := readPath(ctx, repo, sourceTree, spec.Path)
		if err != nil {
			return git.ZeroHash, nil, fmt.Errorf("read source %s: %w", spec.Path, err)
		}

		if spec.PreviousPath != "" && spec.PreviousPath != spec.Path {
			deletes = append(deletes, spec.PreviousPath)
		}

		if spec.WholeFile() {
			if !sourceExists {
				deletes = append(deletes, spec.Path)
				continue
			}
			mode, hash, err := writeBlob(ctx, repo, sourceContent)
			if err != nil {
				return git.ZeroHash, nil, fmt.Errorf("write %s: %w", spec.Path, err)
			}
			writes = append(writes, git.BlobInfo{Mode: mode, Path: spec.Path, Hash: hash})
			continue
		}

		merged, ok, reason := applyHunks(baseContent, sourceContent, spec.HunkHeaders)
		if !ok {
			rejected = append(rejected, corekit.RejectedSpec{Path: spec.Path, Reason: reason})
			continue
		}

		if len(merged) == 0 && !baseExists {
			continue
		}
		mode, hash, err := writeBlob(ctx, repo, merged)
		if err != nil {
			return git.ZeroHash, nil, fmt.Errorf("write %s: %w", spec.Path, err)
		}
		writes = append(writes, git.BlobInfo{Mode: mode, Path: spec.Path, Hash: hash})
	}

	tree, err := repo.UpdateTree(ctx, git.UpdateTreeRequest{
		Tree:    baseTree,
		Writes:  writes,
		Deletes: sliceIter(deletes),
	})
	if err != nil {
		return git.ZeroHash, nil, fmt.Errorf("update tree: %w", err)
	}
	return tree, rejected, nil
}

func sliceIter(s []string) func(func(string) bool) {
	return func(yield func(string) bool) {
		for _, v := range s {
			if !yield(v) {
				return
			}
		}
	}
}

func writeBlob(ctx context.Context, repo *git.Repository, content []byte) (git.Mode, git.Hash, error) {
	hash, err := repo.WriteObject(ctx, git.BlobType, strings.NewReader(string(content)))
	if err != nil {
		return 0, git.ZeroHash, err
	}
	return git.RegularMode, hash, nil
}

// readPath reads the blob at path within tree, returning ok=false (and
// no error) if the path does not exist there.
func readPath(ctx context.Context, repo *git.Repository, tree git.Hash, path string) ([]byte, bool, error) {
	if tree.IsZero() || path == "" {
		return nil, false, nil
	}
	hash, err := repo.HashAt(ctx, tree.String(), path)
	if err != nil {
		if errors.Is(err, git.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, err
	}
	content, err := repo.ReadObjectBytes(ctx, git.BlobType, hash)
	if err != nil {
		return nil, false, err
	}
	return content, true, nil
}

// applyHunks reconstructs the content of a path after applying only the
// change runs matching wanted, leaving every other run's base-side
// content untouched. ok is false if any header in wanted can't be
// matched to an actual run between base and source (its pre-image has
// drifted), in which case reason explains why and the spec as a whole
// is rejected.
func applyHunks(base, source []byte, wanted []model.HunkHeader) (_ []byte, ok bool, reason string) {
	dmp := diffmatchpatch.New()
	baseChars, sourceChars, lineArray := dmp.DiffLinesToChars(string(base), string(source))
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(baseChars, sourceChars, false), lineArray)

	// A segment is either a shared (equal) stretch of text, emitted
	// verbatim, or a changed run carrying both of its candidate
	// renderings plus the header a caller would name it by.
	type segment struct {
		equal     bool
		equalText string
		header    model.HunkHeader
		baseText  string
		srcText   string
	}

	var segments []segment
	var oldPos, newPos uint32 = 1, 1
	var curOld, curNew strings.Builder
	var curOldStart, curNewStart uint32
	inRun := false

	flush := func(endOld, endNew uint32) {
		if !inRun {
			return
		}
		segments = append(segments, segment{
			header: model.HunkHeader{
				OldStart: curOldStart, OldLines: endOld - curOldStart,
				NewStart: curNewStart, NewLines: endNew - curNewStart,
			},
			baseText: curOld.String(),
			srcText:  curNew.String(),
		})
		curOld.Reset()
		curNew.Reset()
		inRun = false
	}

	for _, d := range diffs {
		n := countLines(d.Text)
		if n == 0 {
			continue
		}
		switch d.Type {
		case diffmatchpatch.DiffEqual:
			flush(oldPos, newPos)
			segments = append(segments, segment{equal: true, equalText: d.Text})
			oldPos += uint32(n)
			newPos += uint32(n)
		case diffmatchpatch.DiffDelete:
			if !inRun {
				inRun = true
				curOldStart, curNewStart = oldPos, newPos
			}
			curOld.WriteString(d.Text)
			oldPos += uint32(n)
		case diffmatchpatch.DiffInsert:
			if !inRun {
				inRun = true
				curOldStart, curNewStart = oldPos, newPos
			}
			curNew.WriteString(d.Text)
			newPos += uint32(n)
		}
	}
	flush(oldPos, newPos)

	matched := make([]bool, len(wanted))
	var out strings.Builder
	for _, seg := range segments {
		if seg.equal {
			out.WriteString(seg.equalText)
			continue
		}

		selected := false
		for i, w := range wanted {
			if w == seg.header {
				selected = true
				matched[i] = true
				break
			}
		}
		if selected {
			out.WriteString(seg.srcText)
		} else {
			out.WriteString(seg.baseText)
		}
	}

	for i, w := range wanted {
		if !matched[i] {
			return nil, false, fmt.Sprintf("hunk %+v not found in current diff", w)
		}
	}

	return []byte(out.String()), true, ""
}
