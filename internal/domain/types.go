// Package domain holds the data types shared across services.
package domain

import "encoding/json"

// FixtureItem is one directory under the fixtures root: exactly one JSON
// metadata file, plus an optional "resources" subdirectory of upload
// candidates. Items are rediscovered on every run; only their effects are
// persisted (via the ledger).
type FixtureItem struct {
	Identifier    string // directory base name, the correlation key
	MetadataPath  string
	ResourcesPath string // empty when the item has no resources directory
}

// RecordLinks are the hypermedia links returned with a draft.
type RecordLinks struct {
	Self    string `json:"self"`
	Publish string `json:"publish"`
}

// RecordDraft is the in-flight repository record returned by the creation API.
type RecordDraft struct {
	ID             string                     `json:"id"`
	BucketLocation string                     `json:"-"`
	Files          map[string]StoredObjectRef `json:"-"`
	Links          RecordLinks                `json:"links"`
	Metadata       json.RawMessage            `json:"metadata"`
}

// StoredObjectRef points at one stored object in a draft's bucket.
type StoredObjectRef struct {
	Bucket    string
	Key       string
	VersionID string
	Size      int64
}

// UploadTask is one file destined for one draft. TargetName is the file's
// name within the draft (collision checks compare it against the draft's
// existing files); KeyPrefix scopes the stored object's key to the draft.
type UploadTask struct {
	SourcePath string
	SizeBytes  int64
	TargetName string
	KeyPrefix  string
}

// Parts returns the number of multipart parts the task needs for the given
// chunk size, and the size of the final part. A task smaller than one chunk
// is uploaded whole and has no parts.
func (t UploadTask) Parts(chunkSize int64) (n int64, lastPartSize int64) {
	if t.SizeBytes < chunkSize {
		return 0, 0
	}
	n = t.SizeBytes / chunkSize
	lastPartSize = t.SizeBytes % chunkSize
	if lastPartSize == 0 {
		lastPartSize = chunkSize
	} else {
		n++
	}
	return n, lastPartSize
}

// Community is the subset of a community record the CLI reports on.
type Community struct {
	ID   string `json:"id"`
	Slug string `json:"slug"`
}

// CommunityMember is one entry added to a community's member list.
type CommunityMember struct {
	Type string `json:"type"` // "group" or "user"
	ID   string `json:"id"`
}

// Identity is a resolved repository user.
type Identity struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}
