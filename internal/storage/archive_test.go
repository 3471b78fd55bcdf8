package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryStorage struct {
	objects map[string][]byte
	failPut error
}

func (m *memoryStorage) ListObjects(_ context.Context, prefix string) ([]ObjectInfo, error) {
	var out []ObjectInfo
	for k, v := range m.objects {
		if strings.HasPrefix(k, prefix) {
			out = append(out, ObjectInfo{Key: k, Size: int64(len(v))})
		}
	}
	return out, nil
}

func (m *memoryStorage) DownloadObject(_ context.Context, key, destPath string) error {
	data, ok := m.objects[key]
	if !ok {
		return errors.New("no such key")
	}
	return os.WriteFile(destPath, data, 0o644)
}

func (m *memoryStorage) UploadObject(_ context.Context, key string, data []byte) error {
	if m.failPut != nil {
		return m.failPut
	}
	m.objects[key] = data
	return nil
}

func newTestArchiver(store ObjectStorage) *Archiver {
	a := NewArchiver(store, "/uploads/")
	a.now = func() time.Time { return time.Date(2024, time.May, 2, 23, 0, 0, 0, time.UTC) }
	a.newID = func() string { return "fixed-id" }
	return a
}

func TestArchiveStoresUnderUserPrefix(t *testing.T) {
	store := &memoryStorage{objects: map[string][]byte{}}
	a := newTestArchiver(store)
	ctx := context.Background()

	key, err := a.Archive(ctx, 12, `C:\exports\sales may.csv`, []byte("date;sku"))
	require.NoError(t, err)
	assert.Equal(t, "uploads/user-12/2024/05/02/fixed-id-sales_may.csv", key)
	assert.Equal(t, []byte("date;sku"), store.objects[key])

	objects, err := a.List(ctx, 12)
	require.NoError(t, err)
	require.Len(t, objects, 1)
	assert.Equal(t, int64(8), objects[0].Size)

	none, err := a.List(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, none)

	dest := filepath.Join(t.TempDir(), "copy.csv")
	require.NoError(t, a.Fetch(ctx, key, dest))
	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "date;sku", string(data))
}

func TestArchiveErrorsPropagate(t *testing.T) {
	a := newTestArchiver(&memoryStorage{objects: map[string][]byte{}, failPut: errors.New("bucket gone")})
	_, err := a.Archive(context.Background(), 1, "x.csv", []byte("a"))
	assert.ErrorContains(t, err, "bucket gone")
}

func TestDisabledArchiver(t *testing.T) {
	a := NewArchiver(nil, "uploads")
	assert.False(t, a.Enabled())

	key, err := a.Archive(context.Background(), 1, "x.csv", []byte("a"))
	require.NoError(t, err)
	assert.Empty(t, key)

	_, err = a.List(context.Background(), 1)
	assert.Error(t, err)
}

func TestSplitEndpoint(t *testing.T) {
	cases := []struct {
		in      string
		useSSL  bool
		host    string
		secure  bool
	}{
		{"https://s3.example.com/", false, "s3.example.com", true},
		{"http://localhost:9000", true, "localhost:9000", false},
		{"minio:9000", false, "minio:9000", false},
		{"//minio:9000", true, "minio:9000", true},
	}
	for _, tc := range cases {
		host, secure := splitEndpoint(tc.in, tc.useSSL)
		assert.Equal(t, tc.host, host, tc.in)
		assert.Equal(t, tc.secure, secure, tc.in)
	}
}
