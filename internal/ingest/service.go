// internal/ingest/service.go
package ingest

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/sua-org/court-cam/internal/clipper"
	"github.com/sua-org/court-cam/internal/core"
	"github.com/sua-org/court-cam/internal/delivery"
	"github.com/sua-org/court-cam/internal/layout"
	"github.com/sua-org/court-cam/internal/storage"
	"github.com/sua-org/court-cam/internal/supervisor"
	"github.com/sua-org/court-cam/internal/tasks"
)

const jpegQuality = 85

// Stopper mata processos externos ainda ativos (ex.: ffmpeg) no shutdown.
type Stopper interface {
	StopAll()
}

type Options struct {
	// Annotate desenha timestamp/REC no preview; nil devolve o frame cru.
	Annotate func(f core.Frame, recording bool) core.Frame
	// Store recebe cópia dos snapshots; opcional.
	Store storage.ObjectStore
	// Stopper e Background são drenados no Close.
	Stopper      Stopper
	Background   []*tasks.Group
	CloseTimeout time.Duration
}

// Service é a fachada usada pelo main e pelos triggers.
type Service struct {
	sup    *supervisor.Supervisor
	clips  *clipper.Extractor
	layout layout.Layout
	opts   Options
	now    func() time.Time
}

func New(sup *supervisor.Supervisor, clips *clipper.Extractor, l layout.Layout, opts Options) *Service {
	if opts.CloseTimeout <= 0 {
		opts.CloseTimeout = 30 * time.Second
	}
	return &Service{sup: sup, clips: clips, layout: l, opts: opts, now: time.Now}
}

func (s *Service) StartAll(ctx context.Context) {
	s.sup.StartAll(ctx)
}

func (s *Service) StartSource(ctx context.Context, id int) error {
	return s.sup.Start(ctx, id)
}

func (s *Service) StopSource(id int) error {
	return s.sup.Stop(id)
}

func (s *Service) Sources() []core.Source {
	return s.sup.Sources()
}

// Close para as câmeras e espera clips/segmentos pendentes. Depois de
// CloseTimeout, mata as conversões ainda rodando.
func (s *Service) Close() {
	s.sup.StopAll()

	done := make(chan struct{})
	go func() {
		s.clips.Close()
		for _, g := range s.opts.Background {
			g.Close()
		}
		close(done)
	}()

	select {
	case <-done:
		log.Printf("[ingest] tasks pendentes finalizadas")
	case <-time.After(s.opts.CloseTimeout):
		log.Printf("[ingest] timeout de %s esperando tasks, matando conversões", s.opts.CloseTimeout)
		if s.opts.Stopper != nil {
			s.opts.Stopper.StopAll()
		}
		<-done
	}
}

func (s *Service) LatestFrame(id int) (core.Frame, error) {
	f, ok := s.sup.LatestFrame(id)
	if !ok {
		return core.Frame{}, fmt.Errorf("%w: id %d", core.ErrSourceNotFound, id)
	}
	return f, nil
}

// LatestJPEG devolve o preview codificado (placeholder quando offline).
func (s *Service) LatestJPEG(id int) ([]byte, error) {
	f, err := s.LatestFrame(id)
	if err != nil {
		return nil, err
	}
	if s.opts.Annotate != nil {
		st, _ := s.sup.State(id)
		f = s.opts.Annotate(f, st.Recording)
	}
	return f.EncodeJPEG(jpegQuality)
}

func (s *Service) Health(id int) (core.Health, error) {
	h, ok := s.sup.Health(id)
	if !ok {
		return core.Health{}, fmt.Errorf("%w: id %d", core.ErrSourceNotFound, id)
	}
	return h, nil
}

func (s *Service) RequestClip(id, seconds int) (*clipper.Job, error) {
	return s.clips.RequestClip(id, seconds)
}

func (s *Service) RequestGroupClip(groupID, seconds int) ([]clipper.Outcome, error) {
	return s.clips.RequestGroupClip(groupID, seconds)
}

// Snapshot grava o último frame em snapshots/<nome>_<ts>.jpg.
func (s *Service) Snapshot(id int) (string, error) {
	src, ok := s.sup.Source(id)
	if !ok {
		return "", fmt.Errorf("%w: id %d", core.ErrSourceNotFound, id)
	}
	st, _ := s.sup.State(id)
	if !st.Online() {
		return "", fmt.Errorf("%w: %s está %s", core.ErrSourceUnavailable, src.Name, st.Status)
	}

	data, err := s.LatestJPEG(id)
	if err != nil {
		return "", fmt.Errorf("%w: jpeg %s: %v", core.ErrWrite, src.Name, err)
	}
	path := s.layout.SnapshotPath(src.Name, s.now())
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("%w: %v", core.ErrWrite, err)
	}
	log.Printf("[ingest] snapshot %s salvo em %s", src.Name, path)

	if s.opts.Store != nil {
		key := delivery.ObjectKey("snapshots", src.GroupID, path)
		if url, err := s.opts.Store.SaveBytes(context.Background(), key, data, "image/jpeg"); err != nil {
			log.Printf("[ingest] erro ao enviar snapshot %s: %v", filepath.Base(path), err)
		} else {
			log.Printf("[ingest] snapshot enviado: %s", url)
		}
	}
	return path, nil
}

type SnapshotResult struct {
	Source core.Source
	Path   string
	Err    error
}

func (s *Service) SnapshotAll() []SnapshotResult {
	srcs := s.sup.Sources()
	out := make([]SnapshotResult, 0, len(srcs))
	for _, src := range srcs {
		path, err := s.Snapshot(src.ID)
		out = append(out, SnapshotResult{Source: src, Path: path, Err: err})
	}
	return out
}
