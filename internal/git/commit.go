package git

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Signature holds authorship information for a commit.
type Signature struct {
	Name  string
	Email string

	// Time at which the signature was made. If zero, Git's current
	// time is used.
	Time time.Time
}

func (s *Signature) appendEnv(kind string, env []string) []string {
	if s == nil {
		return env
	}
	env = append(env, "GIT_"+kind+"_NAME="+s.Name, "GIT_"+kind+"_EMAIL="+s.Email)
	if !s.Time.IsZero() {
		env = append(env, "GIT_"+kind+"_DATE="+s.Time.Format(time.RFC3339))
	}
	return env
}

// CommitTreeRequest creates a new commit from an existing tree.
type CommitTreeRequest struct {
	Tree    Hash   // required
	Message string // required

	// Parents are the parent commits of the new commit. Zero parents
	// means an initial commit; more than one means a merge commit.
	Parents []Hash

	// Author and Committer sign the commit. If Committer is nil,
	// Author is reused. If both are nil, Git's configured identity is
	// used (subject to GIT_*_NAME/EMAIL/DATE environment overrides,
	// per spec §6).
	Author, Committer *Signature

	// Sign requests that the commit be GPG/SSH signed using Git's
	// configured signing key (`commit-tree -S`).
	Sign bool
}

// CommitTree creates a new commit object pointing at an existing tree and
// returns its hash. This is the fundamental primitive used throughout C7
// to build commits without touching the working tree or index.
func (r *Repository) CommitTree(ctx context.Context, req CommitTreeRequest) (Hash, error) {
	if req.Message == "" {
		return ZeroHash, errors.New("commit-tree: empty commit message")
	}
	if req.Committer == nil {
		req.Committer = req.Author
	}

	args := make([]string, 0, 3+2*len(req.Parents))
	args = append(args, "commit-tree")
	if req.Sign {
		args = append(args, "-S")
	}
	for _, p := range req.Parents {
		args = append(args, "-p", p.String())
	}
	args = append(args, req.Tree.String())

	var env []string
	env = req.Author.appendEnv("AUTHOR", env)
	env = req.Committer.appendEnv("COMMITTER", env)

	out, err := r.gitCmd(ctx, args...).AppendEnv(env...).StdinString(req.Message).OutputString(r.exec)
	if err != nil {
		return ZeroHash, fmt.Errorf("commit-tree: %w", err)
	}
	return Hash(out), nil
}

// CommitInfo is the subset of a commit's metadata the core cares about.
type CommitInfo struct {
	Hash      Hash
	Tree      Hash
	Parents   []Hash
	Author    Signature
	Committer Signature
	Subject   string
	Body      string

	// Signed reports whether the commit carries any signature
	// (`%G?` other than "N"), regardless of whether that signature
	// actually verifies. Rebase's sign_if_configured decision (spec
	// §4.7.3) only needs to mirror the original commit's signedness,
	// not re-validate its signature.
	Signed bool

	// ChangeID is parsed from a "Change-Id: <id>" trailer, if present.
	ChangeID ChangeID
}

const changeIDTrailer = "Change-Id: "

// ReadCommit loads a commit's metadata.
func (r *Repository) ReadCommit(ctx context.Context, commitish string) (CommitInfo, error) {
	const sep = "\x01"
	format := strings.Join([]string{
		"%H", "%G?", "%T", "%P",
		"%an", "%ae", "%aI",
		"%cn", "%ce", "%cI",
		"%s", "%b",
	}, sep)

	out, err := r.gitCmd(ctx, "show", "--no-patch", "--format="+format, commitish).OutputString(r.exec)
	if err != nil {
		if isExitError(err) {
			return CommitInfo{}, fmt.Errorf("read commit %s: %w", commitish, ErrNotExist)
		}
		return CommitInfo{}, fmt.Errorf("read commit %s: %w", commitish, err)
	}

	fields := strings.SplitN(out, sep, 12)
	if len(fields) != 12 {
		return CommitInfo{}, fmt.Errorf("read commit %s: unexpected output", commitish)
	}

	aTime, _ := time.Parse(time.RFC3339, fields[6])
	cTime, _ := time.Parse(time.RFC3339, fields[9])

	var parents []Hash
	if fields[3] != "" {
		for _, p := range strings.Fields(fields[3]) {
			parents = append(parents, Hash(p))
		}
	}

	info := CommitInfo{
		Hash:      Hash(fields[0]),
		Signed:    fields[1] != "" && fields[1] != "N",
		Tree:      Hash(fields[2]),
		Parents:   parents,
		Author:    Signature{Name: fields[4], Email: fields[5], Time: aTime},
		Committer: Signature{Name: fields[7], Email: fields[8], Time: cTime},
		Subject:   fields[10],
		Body:      fields[11],
	}
	info.ChangeID = parseChangeIDTrailer(fields[11])

	return info, nil
}

func parseChangeIDTrailer(body string) ChangeID {
	scanner := bufio.NewScanner(strings.NewReader(body))
	for scanner.Scan() {
		line := scanner.Text()
		if id, ok := strings.CutPrefix(line, changeIDTrailer); ok {
			return ChangeID(strings.TrimSpace(id))
		}
	}
	return ""
}

// AppendChangeIDTrailer returns message with a "Change-Id" trailer
// appended, unless one is already present.
func AppendChangeIDTrailer(message string, id ChangeID) string {
	if parseChangeIDTrailer(message) != "" {
		return message
	}
	message = strings.TrimRight(message, "\n")
	return message + "\n\n" + changeIDTrailer + string(id) + "\n"
}
