package oplog

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"go.gitbutler.dev/core/internal/git"
	"gopkg.in/yaml.v3"
)

// Trailer is one key/value pair of a snapshot commit's trailer block
// (spec §6 "Snapshot commit contract").
type Trailer struct {
	Key   string
	Value string
}

const (
	trailerVersion   = "Version"
	trailerOperation = "Operation"
)

// encodeMessage builds a snapshot commit message: the operation kind as
// the title, followed by the trailer block (Version, Operation, then
// any operation-specific trailers).
func encodeMessage(operation string, extra []Trailer) string {
	var b strings.Builder
	b.WriteString(operation)
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "%s: %d\n", trailerVersion, Version)
	fmt.Fprintf(&b, "%s: %s\n", trailerOperation, escapeTrailer(operation))
	for _, t := range extra {
		fmt.Fprintf(&b, "%s: %s\n", t.Key, escapeTrailer(t.Value))
	}
	return b.String()
}

// SnapshotDetails is the decoded form of a snapshot commit, returned by
// List.
type SnapshotDetails struct {
	Commit    git.Hash
	Tree      git.Hash
	Title     string
	Operation string
	Version   int
	Trailers  []Trailer
	Author    git.Signature
}

// decodeDetails parses a snapshot commit's message into its title and
// trailer block.
func decodeDetails(info git.CommitInfo) SnapshotDetails {
	d := SnapshotDetails{
		Commit: info.Hash,
		Tree:   info.Tree,
		Title:  info.Subject,
		Author: info.Author,
	}

	for _, line := range strings.Split(info.Body, "\n") {
		key, value, ok := strings.Cut(line, ": ")
		if !ok {
			continue
		}
		value = unescapeTrailer(value)

		switch key {
		case trailerVersion:
			d.Version, _ = strconv.Atoi(value)
		case trailerOperation:
			d.Operation = value
		default:
			d.Trailers = append(d.Trailers, Trailer{Key: key, Value: value})
		}
	}

	return d
}

// Age renders how long ago the snapshot was taken, for a list/history UI
// (e.g. "3 hours ago").
func (d SnapshotDetails) Age() string {
	return humanize.Time(d.Author.Time)
}

func escapeTrailer(s string) string {
	return strings.ReplaceAll(s, "\n", "\\n")
}

func unescapeTrailer(s string) string {
	return strings.ReplaceAll(s, "\\n", "\n")
}

// refEditDoc is the on-disk (YAML) shape of the "refs" blob: a
// structured edit-list, not a raw KV blob, so it uses the same
// gopkg.in/yaml.v3 encoding as internal/config's tunables document
// rather than a hand-rolled line format.
type refEditDoc struct {
	Name     string `yaml:"name"`
	PrevHash string `yaml:"prev_hash,omitempty"`
	NewHash  string `yaml:"new_hash,omitempty"`
}

// encodeRefs serializes a batch of ref edits into the "refs" blob's
// content.
func encodeRefs(edits []RefEdit) []byte {
	docs := make([]refEditDoc, len(edits))
	for i, e := range edits {
		docs[i] = refEditDoc{Name: e.Name, PrevHash: e.PrevHash.String(), NewHash: e.NewHash.String()}
	}
	out, err := yaml.Marshal(docs)
	if err != nil {
		// docs is a plain struct slice of strings; Marshal cannot fail.
		panic(fmt.Sprintf("oplog: marshal refs: %v", err))
	}
	return out
}

// decodeRefs parses the "refs" blob's content back into ref edits.
func decodeRefs(data []byte) ([]RefEdit, error) {
	var docs []refEditDoc
	if err := yaml.Unmarshal(data, &docs); err != nil {
		return nil, fmt.Errorf("unmarshal refs: %w", err)
	}

	edits := make([]RefEdit, len(docs))
	for i, d := range docs {
		edits[i] = RefEdit{Name: d.Name, PrevHash: git.Hash(d.PrevHash), NewHash: git.Hash(d.NewHash)}
	}
	return edits, nil
}
