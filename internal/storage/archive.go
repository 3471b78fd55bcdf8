package storage

import (
	"context"
	"fmt"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/andresuchdata/stockcast/backend-go/internal/config"
	"github.com/andresuchdata/stockcast/backend-go/pkg/logger"
)

// Archiver keeps a raw copy of every accepted upload. A nil store disables it.
type Archiver struct {
	store  ObjectStorage
	prefix string
	now    func() time.Time
	newID  func() string
}

func NewArchiver(store ObjectStorage, prefix string) *Archiver {
	return &Archiver{
		store:  store,
		prefix: strings.Trim(prefix, "/"),
		now:    time.Now,
		newID:  uuid.NewString,
	}
}

// NewArchiverFromConfig returns a disabled archiver unless storage is enabled.
func NewArchiverFromConfig(cfg config.StorageConfig) (*Archiver, error) {
	if !cfg.Enabled {
		return NewArchiver(nil, cfg.Prefix), nil
	}

	client, err := NewS3Client(cfg)
	if err != nil {
		return nil, err
	}
	return NewArchiver(client, cfg.Prefix), nil
}

func (a *Archiver) Enabled() bool {
	return a != nil && a.store != nil
}

// Archive uploads data and returns its object key, or "" when disabled.
func (a *Archiver) Archive(ctx context.Context, userID int64, filename string, data []byte) (string, error) {
	if !a.Enabled() {
		return "", nil
	}

	key := a.objectKey(userID, filename)
	if err := a.store.UploadObject(ctx, key, data); err != nil {
		return "", err
	}

	logger.Log.Info().Int64("user_id", userID).Str("key", key).Int("bytes", len(data)).Msg("upload archived")
	return key, nil
}

// List returns the archived objects of one user.
func (a *Archiver) List(ctx context.Context, userID int64) ([]ObjectInfo, error) {
	if !a.Enabled() {
		return nil, fmt.Errorf("upload archive is disabled")
	}
	return a.store.ListObjects(ctx, a.userPrefix(userID))
}

// Fetch downloads an archived object to destPath.
func (a *Archiver) Fetch(ctx context.Context, key, destPath string) error {
	if !a.Enabled() {
		return fmt.Errorf("upload archive is disabled")
	}
	return a.store.DownloadObject(ctx, key, destPath)
}

func (a *Archiver) userPrefix(userID int64) string {
	return path.Join(a.prefix, fmt.Sprintf("user-%d", userID)) + "/"
}

func (a *Archiver) objectKey(userID int64, filename string) string {
	name := filepath.Base(strings.ReplaceAll(filename, "\\", "/"))
	if name == "." || name == "/" || name == "" {
		name = "upload"
	}
	name = strings.ReplaceAll(name, " ", "_")

	return a.userPrefix(userID) + path.Join(a.now().UTC().Format("2006/01/02"), a.newID()+"-"+name)
}
