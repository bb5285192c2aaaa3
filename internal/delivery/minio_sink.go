// internal/delivery/minio_sink.go
package delivery

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/sua-org/court-cam/internal/core"
	"github.com/sua-org/court-cam/internal/storage"
)

// Archiver copia o clip para o object storage: clips/<grupo>/<arquivo>.
type Archiver struct {
	store storage.ObjectStore
}

func NewArchiver(store storage.ObjectStore) *Archiver {
	return &Archiver{store: store}
}

func (a *Archiver) Name() string  { return "minio" }
func (a *Archiver) Enabled() bool { return a != nil && a.store != nil }

func (a *Archiver) Deliver(ctx context.Context, clip core.Clip) (string, error) {
	return a.store.SaveFile(ctx, ObjectKey("clips", clip.Source.GroupID, clip.Path), clip.Path, "")
}

// ObjectKey: <prefixo>/<grupo>/<arquivo>
func ObjectKey(prefix string, groupID int, path string) string {
	return fmt.Sprintf("%s/%d/%s", prefix, groupID, filepath.Base(path))
}
