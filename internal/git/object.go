package git

import (
	"bytes"
	"context"
	"fmt"
	"io"
)

// ReadObject streams the contents of the object identified by hash into
// dst. typ is used only to select the right `git cat-file` flag; it is
// not independently verified against the object's actual type.
func (r *Repository) ReadObject(ctx context.Context, typ Type, hash Hash, dst io.Writer) error {
	if hash.IsZero() {
		return fmt.Errorf("read object: %w", ErrNotExist)
	}

	err := r.gitCmd(ctx, "cat-file", string(typ), hash.String()).Stdout(dst).Run(r.exec)
	if err != nil {
		if isExitError(err) {
			return fmt.Errorf("read object %v: %w", hash, ErrNotExist)
		}
		return fmt.Errorf("read object %v: %w", hash, err)
	}
	return nil
}

// ReadObjectBytes is a convenience wrapper around ReadObject that returns
// the object contents as a byte slice.
func (r *Repository) ReadObjectBytes(ctx context.Context, typ Type, hash Hash) ([]byte, error) {
	var buf bytes.Buffer
	if err := r.ReadObject(ctx, typ, hash, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteObject hashes and stores src as a loose object of the given type,
// returning its hash.
func (r *Repository) WriteObject(ctx context.Context, typ Type, src io.Reader) (Hash, error) {
	out, err := r.gitCmd(ctx, "hash-object", "-w", "-t", string(typ), "--stdin").
		Stdin(src).OutputString(r.exec)
	if err != nil {
		return ZeroHash, fmt.Errorf("write object: %w", err)
	}
	return Hash(out), nil
}

// FindObject reports whether an object exists and, if so, its type and
// size.
func (r *Repository) FindObject(ctx context.Context, hash Hash) (Type, int64, error) {
	return r.catFileBatchCheck(ctx, hash)
}

func (r *Repository) catFileBatchCheck(ctx context.Context, hash Hash) (Type, int64, error) {
	out, err := r.gitCmd(ctx, "cat-file", "--batch-check=%(objecttype) %(objectsize)").
		StdinString(hash.String() + "\n").OutputString(r.exec)
	if err != nil {
		return "", 0, fmt.Errorf("find object %v: %w", hash, err)
	}
	if bytes.HasSuffix([]byte(out), []byte("missing")) {
		return "", 0, ErrNotExist
	}

	var typ string
	var size int64
	if _, err := fmt.Sscanf(out, "%s %d", &typ, &size); err != nil {
		return "", 0, fmt.Errorf("parse batch-check output %q: %w", out, err)
	}
	return Type(typ), size, nil
}

// BlobInfo describes a blob write targeting a specific tree path, used by
// UpdateTree.
type BlobInfo struct {
	Mode Mode
	Path string
	Hash Hash
}
