// internal/clipper/segments.go
package clipper

import (
	"context"
	"log"
	"path/filepath"

	"github.com/sua-org/court-cam/internal/core"
	"github.com/sua-org/court-cam/internal/delivery"
	"github.com/sua-org/court-cam/internal/recorder"
	"github.com/sua-org/court-cam/internal/storage"
	"github.com/sua-org/court-cam/internal/tasks"
)

// SegmentHook devolve o callback de segmento fechado do recorder:
// converte (conv != nil) e arquiva em recordings/<grupo>/<arquivo> (store != nil).
// Nil quando não há nada a fazer.
func SegmentHook(conv Converter, store storage.ObjectStore, tg *tasks.Group) func(core.Source, recorder.Segment) {
	if conv == nil && store == nil {
		return nil
	}
	if tg == nil {
		tg = tasks.New("segments")
	}
	return func(src core.Source, seg recorder.Segment) {
		// roda com o lock do recorder: só agenda
		_ = tg.Go("segment "+filepath.Base(seg.Path), func() error {
			ctx := context.Background()
			path := seg.Path
			if conv != nil {
				path = conv.Convert(ctx, path)
			}
			if store == nil {
				return nil
			}
			url, err := store.SaveFile(ctx, delivery.ObjectKey("recordings", src.GroupID, path), path, "")
			if err != nil {
				return err
			}
			log.Printf("[clipper] segmento %s arquivado (%d frames): %s", filepath.Base(path), seg.Frames, url)
			return nil
		})
	}
}
