package service

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/schollz/progressbar/v3"
	log "github.com/sirupsen/logrus"

	"github.com/nyulibraries/ultraviolet-cli/internal/domain"
	uverrors "github.com/nyulibraries/ultraviolet-cli/internal/errors"
	"github.com/nyulibraries/ultraviolet-cli/internal/repository/objectstore"
)

// CollisionMode decides what happens when an upload's target name already
// exists in the draft's files.
type CollisionMode int

const (
	// CollisionFail rejects the upload.
	CollisionFail CollisionMode = iota
	// CollisionOverwrite keeps the name and replaces the stored object.
	CollisionOverwrite
	// CollisionRename uses a caller-supplied replacement name.
	CollisionRename
	// CollisionPrompt asks the prompter for a replacement name; empty input
	// keeps the original name and overwrites.
	CollisionPrompt
)

// CollisionPolicy is the resolved policy for filename collisions. A collision
// is never resolved silently: the policy is always explicit, supplied by the
// caller.
type CollisionPolicy struct {
	Mode   CollisionMode
	Rename string
}

// ParseCollisionPolicy parses the CLI form of a collision policy:
// "fail", "overwrite", "prompt" or "rename-to:NAME".
func ParseCollisionPolicy(s string) (CollisionPolicy, error) {
	switch {
	case s == "fail":
		return CollisionPolicy{Mode: CollisionFail}, nil
	case s == "overwrite":
		return CollisionPolicy{Mode: CollisionOverwrite}, nil
	case s == "prompt":
		return CollisionPolicy{Mode: CollisionPrompt}, nil
	case strings.HasPrefix(s, "rename-to:"):
		name := strings.TrimPrefix(s, "rename-to:")
		if name == "" {
			return CollisionPolicy{}, fmt.Errorf("rename-to: requires a name")
		}
		return CollisionPolicy{Mode: CollisionRename, Rename: name}, nil
	default:
		return CollisionPolicy{}, fmt.Errorf("unknown collision policy %q", s)
	}
}

// Prompter supplies a replacement name for a colliding upload. An empty
// return keeps the original name and overwrites.
type Prompter interface {
	ReplacementName(target string) (string, error)
}

// UploadService streams local files into a draft's bucket: whole-object for
// files under the chunk size, sequential multipart otherwise.
type UploadService struct {
	chunkSize int64
	quiet     bool
	prompter  Prompter
}

// NewUploadService creates a new UploadService. The prompter may be nil when
// the collision policy never prompts.
func NewUploadService(chunkSize int64, quiet bool, prompter Prompter) *UploadService {
	return &UploadService{
		chunkSize: chunkSize,
		quiet:     quiet,
		prompter:  prompter,
	}
}

// Upload stores one file in the given bucket under the task's target name,
// after resolving any name collision against existing. It returns the final
// name and the stored object reference.
func (s *UploadService) Upload(ctx context.Context, task domain.UploadTask, store objectstore.BucketStore, existing map[string]domain.StoredObjectRef, policy CollisionPolicy) (string, domain.StoredObjectRef, error) {
	name, err := s.resolveName(task.TargetName, existing, policy)
	if err != nil {
		return "", domain.StoredObjectRef{}, err
	}
	key := name
	if task.KeyPrefix != "" {
		key = task.KeyPrefix + "/" + name
	}

	f, err := os.Open(task.SourcePath)
	if err != nil {
		return "", domain.StoredObjectRef{}, uverrors.Storage(err, "cannot read %s", task.SourcePath)
	}
	defer f.Close()

	if task.SizeBytes < s.chunkSize {
		ref, err := store.Put(ctx, key, s.progressReader(f, task), task.SizeBytes)
		if err != nil {
			return "", domain.StoredObjectRef{}, uverrors.Storage(err, "error while uploading %s", name)
		}
		return name, ref, nil
	}

	ref, err := s.uploadChunked(ctx, task, key, name, f, store)
	if err != nil {
		return "", domain.StoredObjectRef{}, err
	}
	return name, ref, nil
}

// uploadChunked streams ceil(size/chunkSize) parts, committing each part
// before reading the next. Any part failure aborts the whole upload for this
// file and rolls back the in-flight transaction.
func (s *UploadService) uploadChunked(ctx context.Context, task domain.UploadTask, key, name string, f *os.File, store objectstore.BucketStore) (domain.StoredObjectRef, error) {
	mp, err := store.CreateMultipart(ctx, key, task.SizeBytes, s.chunkSize)
	if err != nil {
		return domain.StoredObjectRef{}, uverrors.Storage(err, "error while uploading %s", name)
	}

	nParts, lastPartSize := task.Parts(s.chunkSize)
	bar := s.bar(task)

	for i := int64(0); i < nParts; i++ {
		partSize := s.chunkSize
		if i == nParts-1 {
			partSize = lastPartSize
		}

		var part io.Reader = io.LimitReader(f, partSize)
		if bar != nil {
			part = io.TeeReader(part, bar)
		}

		if err := mp.PutPart(ctx, i, part, partSize); err != nil {
			if abortErr := mp.Abort(ctx); abortErr != nil {
				log.Warnf("Failed to roll back upload of %s: %v", name, abortErr)
			}
			return domain.StoredObjectRef{}, uverrors.Storage(err, "error while uploading %s", name)
		}
	}

	ref, err := mp.Complete(ctx, uuid.New().String())
	if err != nil {
		return domain.StoredObjectRef{}, uverrors.Storage(err, "error while uploading %s", name)
	}
	return ref, nil
}

// resolveName applies the collision policy when target already exists.
func (s *UploadService) resolveName(target string, existing map[string]domain.StoredObjectRef, policy CollisionPolicy) (string, error) {
	if _, collides := existing[target]; !collides {
		return target, nil
	}

	switch policy.Mode {
	case CollisionOverwrite:
		return target, nil
	case CollisionRename:
		return policy.Rename, nil
	case CollisionPrompt:
		if s.prompter == nil {
			return "", uverrors.Conflictf("%s already exists in draft", target)
		}
		replacement, err := s.prompter.ReplacementName(target)
		if err != nil {
			return "", err
		}
		if replacement == "" {
			return target, nil
		}
		return replacement, nil
	default:
		return "", uverrors.Conflictf("%s already exists in draft", target)
	}
}

func (s *UploadService) progressReader(r io.Reader, task domain.UploadTask) io.Reader {
	bar := s.bar(task)
	if bar == nil {
		return r
	}
	pbReader := progressbar.NewReader(r, bar)
	return &pbReader
}

func (s *UploadService) bar(task domain.UploadTask) *progressbar.ProgressBar {
	if s.quiet {
		return nil
	}
	return progressbar.DefaultBytes(task.SizeBytes, task.TargetName+":")
}

// NewUploadTask stats path and builds the task for it.
func NewUploadTask(path string) (domain.UploadTask, error) {
	info, err := os.Stat(path)
	if err != nil {
		return domain.UploadTask{}, uverrors.Storage(err, "cannot read %s", path)
	}
	return domain.UploadTask{
		SourcePath: path,
		SizeBytes:  info.Size(),
		TargetName: info.Name(),
	}, nil
}
