package service_test

import (
	"bytes"
	"context"
	"crypto/rand"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nyulibraries/ultraviolet-cli/internal/domain"
	uverrors "github.com/nyulibraries/ultraviolet-cli/internal/errors"
	"github.com/nyulibraries/ultraviolet-cli/internal/repository/objectstore"
	"github.com/nyulibraries/ultraviolet-cli/internal/service"
)

// mockBucketStore records whole-object puts and multipart activity in memory.
type mockBucketStore struct {
	objects map[string][]byte
	puts    int

	multiparts []*mockMultipart
	partErrAt  int64 // part index that fails, -1 for none
	createErr  error
}

func newMockBucketStore() *mockBucketStore {
	return &mockBucketStore{
		objects:   make(map[string][]byte),
		partErrAt: -1,
	}
}

func (m *mockBucketStore) Put(ctx context.Context, key string, r io.Reader, size int64) (domain.StoredObjectRef, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return domain.StoredObjectRef{}, err
	}
	m.objects[key] = data
	m.puts++
	return domain.StoredObjectRef{Bucket: "test-bucket", Key: key, Size: int64(len(data))}, nil
}

func (m *mockBucketStore) CreateMultipart(ctx context.Context, key string, size, chunkSize int64) (objectstore.Multipart, error) {
	if m.createErr != nil {
		return nil, m.createErr
	}
	mp := &mockMultipart{store: m, key: key, size: size}
	m.multiparts = append(m.multiparts, mp)
	return mp, nil
}

func (m *mockBucketStore) Delete(ctx context.Context, key string) error {
	delete(m.objects, key)
	return nil
}

func (m *mockBucketStore) Bucket() string   { return "test-bucket" }
func (m *mockBucketStore) Platform() string { return "mock" }

type mockMultipart struct {
	store     *mockBucketStore
	key       string
	size      int64
	parts     [][]byte
	completed bool
	aborted   bool
	versionID string
}

func (m *mockMultipart) PutPart(ctx context.Context, n int64, r io.Reader, size int64) error {
	if m.store.partErrAt >= 0 && n == m.store.partErrAt {
		return errors.New("part submission failed")
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	m.parts = append(m.parts, data)
	return nil
}

func (m *mockMultipart) Complete(ctx context.Context, versionID string) (domain.StoredObjectRef, error) {
	m.completed = true
	m.versionID = versionID
	merged := bytes.Join(m.parts, nil)
	m.store.objects[m.key] = merged
	return domain.StoredObjectRef{
		Bucket:    "test-bucket",
		Key:       m.key,
		VersionID: versionID,
		Size:      int64(len(merged)),
	}, nil
}

func (m *mockMultipart) Abort(ctx context.Context) error {
	m.aborted = true
	m.parts = nil
	return nil
}

func writeTempFile(t *testing.T, size int64) (string, []byte) {
	t.Helper()
	data := make([]byte, size)
	_, err := rand.Read(data)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "data.bin")
	require.NoError(t, os.WriteFile(path, data, 0644))
	return path, data
}

func TestUploadPartCounts(t *testing.T) {
	const chunkSize = 1024

	tests := []struct {
		name      string
		size      int64
		wantPuts  int
		wantParts int
	}{
		{"below chunk size", chunkSize - 1, 1, 0},
		{"exactly chunk size", chunkSize, 0, 1},
		{"one byte over", chunkSize + 1, 0, 2},
		{"exact multiple", 3 * chunkSize, 0, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path, data := writeTempFile(t, tt.size)
			store := newMockBucketStore()
			uploader := service.NewUploadService(chunkSize, true, nil)

			task, err := service.NewUploadTask(path)
			require.NoError(t, err)

			name, ref, err := uploader.Upload(context.Background(), task, store, nil, service.CollisionPolicy{Mode: service.CollisionFail})
			require.NoError(t, err)
			assert.Equal(t, "data.bin", name)

			assert.Equal(t, tt.wantPuts, store.puts)
			if tt.wantParts > 0 {
				require.Len(t, store.multiparts, 1)
				mp := store.multiparts[0]
				assert.Len(t, mp.parts, tt.wantParts)
				assert.True(t, mp.completed)
				assert.NotEmpty(t, mp.versionID)
			}

			// The merged object is byte-identical to the source.
			assert.Equal(t, data, store.objects["data.bin"])
			assert.Equal(t, tt.size, ref.Size)
		})
	}
}

func TestUploadLastPartSize(t *testing.T) {
	const chunkSize = 1024
	path, _ := writeTempFile(t, 2*chunkSize+100)
	store := newMockBucketStore()
	uploader := service.NewUploadService(chunkSize, true, nil)

	task, err := service.NewUploadTask(path)
	require.NoError(t, err)

	_, _, err = uploader.Upload(context.Background(), task, store, nil, service.CollisionPolicy{Mode: service.CollisionFail})
	require.NoError(t, err)

	require.Len(t, store.multiparts, 1)
	parts := store.multiparts[0].parts
	require.Len(t, parts, 3)
	assert.Len(t, parts[0], chunkSize)
	assert.Len(t, parts[1], chunkSize)
	assert.Len(t, parts[2], 100)
}

func TestUploadPartFailureAbortsAndRollsBack(t *testing.T) {
	const chunkSize = 1024
	path, _ := writeTempFile(t, 3*chunkSize)
	store := newMockBucketStore()
	store.partErrAt = 1
	uploader := service.NewUploadService(chunkSize, true, nil)

	task, err := service.NewUploadTask(path)
	require.NoError(t, err)

	_, _, err = uploader.Upload(context.Background(), task, store, nil, service.CollisionPolicy{Mode: service.CollisionFail})
	require.Error(t, err)
	assert.True(t, uverrors.IsKind(err, uverrors.KindStorage))
	assert.Contains(t, err.Error(), "data.bin")

	require.Len(t, store.multiparts, 1)
	assert.True(t, store.multiparts[0].aborted)
	assert.False(t, store.multiparts[0].completed)
	assert.NotContains(t, store.objects, "data.bin")
}

func TestUploadUnreadableSource(t *testing.T) {
	store := newMockBucketStore()
	uploader := service.NewUploadService(1024, true, nil)

	task := domain.UploadTask{
		SourcePath: filepath.Join(t.TempDir(), "missing.bin"),
		SizeBytes:  10,
		TargetName: "missing.bin",
	}
	_, _, err := uploader.Upload(context.Background(), task, store, nil, service.CollisionPolicy{Mode: service.CollisionFail})
	require.Error(t, err)
	assert.True(t, uverrors.IsKind(err, uverrors.KindStorage))
}

func TestUploadKeyPrefix(t *testing.T) {
	path, data := writeTempFile(t, 100)
	store := newMockBucketStore()
	uploader := service.NewUploadService(1024, true, nil)

	task, err := service.NewUploadTask(path)
	require.NoError(t, err)
	task.KeyPrefix = "rec-123"

	name, _, err := uploader.Upload(context.Background(), task, store, nil, service.CollisionPolicy{Mode: service.CollisionFail})
	require.NoError(t, err)
	assert.Equal(t, "data.bin", name)
	assert.Equal(t, data, store.objects["rec-123/data.bin"])
}

type fixedPrompter struct {
	reply string
	asked bool
}

func (p *fixedPrompter) ReplacementName(target string) (string, error) {
	p.asked = true
	return p.reply, nil
}

func TestUploadCollisionPolicies(t *testing.T) {
	existing := map[string]domain.StoredObjectRef{
		"data.bin": {Key: "data.bin"},
	}

	t.Run("fail", func(t *testing.T) {
		path, _ := writeTempFile(t, 100)
		store := newMockBucketStore()
		uploader := service.NewUploadService(1024, true, nil)

		task, err := service.NewUploadTask(path)
		require.NoError(t, err)

		_, _, err = uploader.Upload(context.Background(), task, store, existing, service.CollisionPolicy{Mode: service.CollisionFail})
		require.Error(t, err)
		assert.True(t, uverrors.IsKind(err, uverrors.KindConflict))
		assert.Equal(t, 0, store.puts)
	})

	t.Run("overwrite keeps name", func(t *testing.T) {
		path, data := writeTempFile(t, 100)
		store := newMockBucketStore()
		uploader := service.NewUploadService(1024, true, nil)

		task, err := service.NewUploadTask(path)
		require.NoError(t, err)

		name, _, err := uploader.Upload(context.Background(), task, store, existing, service.CollisionPolicy{Mode: service.CollisionOverwrite})
		require.NoError(t, err)
		assert.Equal(t, "data.bin", name)
		assert.Equal(t, data, store.objects["data.bin"])
	})

	t.Run("rename uses supplied name", func(t *testing.T) {
		path, data := writeTempFile(t, 100)
		store := newMockBucketStore()
		uploader := service.NewUploadService(1024, true, nil)

		task, err := service.NewUploadTask(path)
		require.NoError(t, err)

		name, _, err := uploader.Upload(context.Background(), task, store, existing, service.CollisionPolicy{Mode: service.CollisionRename, Rename: "copy.bin"})
		require.NoError(t, err)
		assert.Equal(t, "copy.bin", name)
		assert.Equal(t, data, store.objects["copy.bin"])
	})

	t.Run("prompt with empty reply keeps name and overwrites", func(t *testing.T) {
		path, _ := writeTempFile(t, 100)
		store := newMockBucketStore()
		prompter := &fixedPrompter{reply: ""}
		uploader := service.NewUploadService(1024, true, prompter)

		task, err := service.NewUploadTask(path)
		require.NoError(t, err)

		name, _, err := uploader.Upload(context.Background(), task, store, existing, service.CollisionPolicy{Mode: service.CollisionPrompt})
		require.NoError(t, err)
		assert.True(t, prompter.asked)
		assert.Equal(t, "data.bin", name)
	})

	t.Run("prompt with reply renames", func(t *testing.T) {
		path, _ := writeTempFile(t, 100)
		store := newMockBucketStore()
		prompter := &fixedPrompter{reply: "renamed.bin"}
		uploader := service.NewUploadService(1024, true, prompter)

		task, err := service.NewUploadTask(path)
		require.NoError(t, err)

		name, _, err := uploader.Upload(context.Background(), task, store, existing, service.CollisionPolicy{Mode: service.CollisionPrompt})
		require.NoError(t, err)
		assert.Equal(t, "renamed.bin", name)
	})

	t.Run("no collision skips prompt", func(t *testing.T) {
		path, _ := writeTempFile(t, 100)
		store := newMockBucketStore()
		prompter := &fixedPrompter{reply: "never"}
		uploader := service.NewUploadService(1024, true, prompter)

		task, err := service.NewUploadTask(path)
		require.NoError(t, err)

		name, _, err := uploader.Upload(context.Background(), task, store, nil, service.CollisionPolicy{Mode: service.CollisionPrompt})
		require.NoError(t, err)
		assert.False(t, prompter.asked)
		assert.Equal(t, "data.bin", name)
	})
}

func TestParseCollisionPolicy(t *testing.T) {
	tests := []struct {
		in      string
		want    service.CollisionPolicy
		wantErr bool
	}{
		{in: "fail", want: service.CollisionPolicy{Mode: service.CollisionFail}},
		{in: "overwrite", want: service.CollisionPolicy{Mode: service.CollisionOverwrite}},
		{in: "prompt", want: service.CollisionPolicy{Mode: service.CollisionPrompt}},
		{in: "rename-to:new.bin", want: service.CollisionPolicy{Mode: service.CollisionRename, Rename: "new.bin"}},
		{in: "rename-to:", wantErr: true},
		{in: "bogus", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := service.ParseCollisionPolicy(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
