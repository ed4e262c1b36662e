package git

// Hash is the object identity of a Git object: a content hash, hex
// encoded. It identifies blobs, trees, commits, and tags alike.
type Hash string

// ZeroHash is the hash of no object; it is returned by operations that
// found nothing, and accepted as "no parent"/"no previous tree".
const ZeroHash Hash = ""

func (h Hash) String() string { return string(h) }

// IsZero reports whether h is the zero hash.
func (h Hash) IsZero() bool { return h == ZeroHash }

// Type is the type of a Git object.
type Type string

// Recognized object types.
const (
	BlobType   Type = "blob"
	TreeType   Type = "tree"
	CommitType Type = "commit"
	TagType    Type = "tag"
)

// ChangeID is a random identifier carried in a commit trailer that
// survives rebases, letting callers track a logical commit across
// rewrites of its hash.
type ChangeID string
