package rebase

import (
	"context"
	"fmt"

	"go.gitbutler.dev/core/internal/git"
)

// StepKind discriminates RebaseStep variants (spec §4.7.3).
type StepKind int

const (
	StepPick StepKind = iota
	StepReference
	StepSkip
	StepFixup
)

// RebaseStep is one instruction in a rebase program.
type RebaseStep struct {
	Kind StepKind

	// CommitID is set for StepPick and StepFixup.
	CommitID git.Hash

	// NewMessage overrides the picked commit's message, if non-empty.
	// Only meaningful for StepPick.
	NewMessage string

	// SignIfConfigured mirrors the original commit's signedness onto
	// the new one when true (the default). Only meaningful for
	// StepPick.
	SignIfConfigured bool

	// ReferenceName is set for StepReference: the new commit's tip gets
	// this ref attached once materialize() runs.
	ReferenceName string
}

// Pick returns a Pick step.
func Pick(id git.Hash) RebaseStep {
	return RebaseStep{Kind: StepPick, CommitID: id, SignIfConfigured: true}
}

// Reference returns a Reference step.
func Reference(name string) RebaseStep {
	return RebaseStep{Kind: StepReference, ReferenceName: name}
}

// Skip returns a Skip step.
func Skip(id git.Hash) RebaseStep {
	return RebaseStep{Kind: StepSkip, CommitID: id}
}

// Fixup returns a Fixup step.
func Fixup(id git.Hash) RebaseStep {
	return RebaseStep{Kind: StepFixup, CommitID: id}
}

// CommitMapping records one old commit rewritten to a new one.
type CommitMapping struct {
	Old, New git.Hash
}

// Result is the outcome of executing a rebase program (spec §4.7.3 step 6).
type Result struct {
	Tip            git.Hash
	CommitMapping  []CommitMapping
	References     map[string]git.Hash
}

// Options configures Execute.
type Options struct {
	// RebaseNoops, when false (the default), drops Pick steps whose
	// cherry-pick produces a tree identical to the running tip's
	// (spec §4.7.3 step 5). When true such picks are preserved as
	// empty commits.
	RebaseNoops bool

	// RefPrefix is prepended to each Reference step's name to form the
	// full ref (e.g. "refs/heads/"). Empty means ReferenceName is
	// already a full ref.
	RefPrefix string

	// SignAll forces every picked commit to be signed, overriding each
	// step's SignIfConfigured.
	SignAll bool
}

// Execute runs a rebase program starting from base, cherry-picking each
// Pick/Fixup step onto the running tip and collecting Reference steps as
// pending ref edits, returned in Result.References (spec §4.7.3).
// Execute writes commit objects but updates no ref; Materialize applies
// the pending edits in a single transactional batch.
func Execute(ctx context.Context, repo *git.Repository, base git.Hash, steps []RebaseStep, opts Options) (Result, error) {
	tip := base // commit hash of the running tip, used as the next commit's parent
	var tipTree git.Hash
	if !base.IsZero() {
		info, err := repo.ReadCommit(ctx, base.String())
		if err != nil {
			return Result{}, fmt.Errorf("read base %s: %w", base, err)
		}
		tipTree = info.Tree
	} else {
		tipTree = git.EmptyTreeHash
	}

	pendingRefs := make(map[string]git.Hash)
	var mapping []CommitMapping

	var fixupMessage string
	hasPendingFixupBase := false

	for _, step := range steps {
		switch step.Kind {
		case StepSkip:
			continue

		case StepReference:
			name := step.ReferenceName
			if opts.RefPrefix != "" {
				name = opts.RefPrefix + name
			}
			pendingRefs[name] = tip

		case StepPick, StepFixup:
			info, err := repo.ReadCommit(ctx, step.CommitID.String())
			if err != nil {
				return Result{}, fmt.Errorf("read commit %s: %w", step.CommitID, err)
			}

			res, err := CherryPick(ctx, repo, step.CommitID, tipTree, Tolerant)
			if err != nil {
				return Result{}, err
			}

			if step.Kind == StepFixup {
				// Fold into the previous pick's tree without a new
				// commit: the running tip already reflects it once we
				// recommit below with the carried-forward message.
				tipTree = res.Tree
				if !hasPendingFixupBase {
					fixupMessage = info.Subject
				}
				hasPendingFixupBase = true
				continue
			}

			if !opts.RebaseNoops && res.Tree == tipTree {
				// Empty cherry-pick: the commit contributed nothing
				// once replayed here, so drop it (spec §4.7.3 step 5).
				continue
			}

			message := info.Subject
			if info.Body != "" {
				message += "\n\n" + info.Body
			}
			if step.NewMessage != "" {
				message = step.NewMessage
			}
			if hasPendingFixupBase {
				message = fixupMessage
				hasPendingFixupBase = false
			}

			var parents []git.Hash
			if !tip.IsZero() {
				parents = []git.Hash{tip}
			}

			sign := ShouldSign(opts, step, info)
			newID, err := repo.CommitTree(ctx, git.CommitTreeRequest{
				Tree:      res.Tree,
				Message:   message,
				Parents:   parents,
				Author:    &info.Author,
				Committer: &info.Committer,
				Sign:      sign,
			})
			if err != nil {
				return Result{}, fmt.Errorf("commit-tree for picked %s: %w", step.CommitID, err)
			}

			mapping = append(mapping, CommitMapping{Old: step.CommitID, New: newID})
			tip = newID
			tipTree = res.Tree
		}
	}

	return Result{Tip: tip, CommitMapping: mapping, References: pendingRefs}, nil
}

// ShouldSign implements sign_if_configured (spec §4.7.3 step 4): the
// new commit is signed if the caller forced it (SignAll), or if the
// step opted in and the original commit being picked was itself
// signed; otherwise it stays unsigned.
func ShouldSign(opts Options, step RebaseStep, info git.CommitInfo) bool {
	return opts.SignAll || (step.SignIfConfigured && info.Signed)
}

// Materialize writes every pending Reference step's ref edit in one
// transactional batch (spec §4.7.3 step 3). Call it only after Execute
// returns successfully; passing a zero-value Result is a no-op.
func Materialize(ctx context.Context, repo *git.Repository, result Result, reason string) error {
	if len(result.References) == 0 {
		return nil
	}
	var updates []git.RefUpdate
	for ref, hash := range result.References {
		updates = append(updates, git.RefUpdate{Ref: ref, Hash: hash})
	}
	return repo.UpdateRefs(ctx, updates, reason)
}
