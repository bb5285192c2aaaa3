// internal/supervisor/capture.go
package supervisor

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"time"

	"github.com/sua-org/court-cam/internal/core"
	"github.com/sua-org/court-cam/internal/drivers"
	"github.com/sua-org/court-cam/internal/ringbuf"
)

// maior fps aceito vindo do driver; acima disso é lixo do backend
const maxSaneFPS = 240

// runCapture: connecting -> online -> offline -> connecting ... até o ctx acabar.
// Único writer do buffer, do recorder e do slot de último frame da câmera.
func (s *Supervisor) runCapture(ctx context.Context, w *sourceWorker) {
	defer close(w.done)
	defer func() {
		if w.rec != nil {
			w.rec.Close()
		}
		// câmera parada não mostra o último frame ao vivo
		s.storePlaceholder(w)
	}()

	name := w.src.Name
	for {
		if ctx.Err() != nil {
			return
		}
		w.setStatus(core.ConnectionStateConnecting, "")

		src, err := s.cfg.Open(w.src)
		if err == nil {
			if err = src.Open(); err != nil {
				_ = src.Close()
			}
		}
		if err != nil {
			n := w.recordFailure(err)
			s.goOffline(w, err)
			log.Printf("[capture %s] falha ao conectar (falha #%d): %v; nova tentativa em %s", name, n, err, s.cfg.ReconnectBackoff)
			select {
			case <-time.After(s.cfg.ReconnectBackoff):
				continue
			case <-ctx.Done():
				return
			}
		}

		fps := normalizeFPS(src.FPS(), s.cfg.DefaultFPS)
		capacity := ringbuf.CapacityFor(fps, s.cfg.MaxPreEventSeconds)
		w.buf.Reset(capacity)
		if w.rec != nil {
			w.rec.SetFPS(fps)
		}
		w.setStream(fps, 0, 0)
		w.setStatus(core.ConnectionStateOnline, "")
		log.Printf("[capture %s] online (fps=%.2f, buffer=%d frames)", name, fps, capacity)

		err = s.stream(ctx, w, src)
		if cerr := src.Close(); cerr != nil {
			log.Printf("[capture %s] erro ao fechar stream: %v", name, cerr)
		}
		if ctx.Err() != nil {
			return
		}

		n := w.recordFailure(err)
		s.goOffline(w, err)
		log.Printf("[capture %s] stream caiu (falha #%d): %v; reconectando", name, n, err)
	}
}

// stream lê frames até erro de leitura ou cancelamento.
func (s *Supervisor) stream(ctx context.Context, w *sourceWorker, src drivers.FrameSource) error {
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		f, err := src.Read()
		if err != nil {
			if !errors.Is(err, drivers.ErrReadFailed) {
				err = fmt.Errorf("%w: %v", drivers.ErrReadFailed, err)
			}
			return err
		}
		if f.Empty() {
			return fmt.Errorf("%w: frame vazio", drivers.ErrReadFailed)
		}
		s.publish(w, f)
	}
}

func (s *Supervisor) publish(w *sourceWorker, f core.Frame) {
	if f.Timestamp.IsZero() {
		f.Timestamp = time.Now()
	}
	frame := f
	w.latest.Store(&frame)
	w.buf.Push(frame)
	w.touch(frame)

	if w.rec != nil {
		// falha de gravação não derruba a captura; o recorder já logou e
		// fecha o segmento, o próximo frame abre outro
		_ = w.rec.Write(frame)
	}
}

// goOffline marca a câmera offline e coloca o placeholder no slot de preview.
func (s *Supervisor) goOffline(w *sourceWorker, err error) {
	reason := "offline"
	if err != nil {
		reason = err.Error()
	}
	w.setStatus(core.ConnectionStateOffline, reason)
	s.storePlaceholder(w)
}

// storePlaceholder troca o slot de preview pelo placeholder, no tamanho do
// último frame conhecido.
func (s *Supervisor) storePlaceholder(w *sourceWorker) {
	width, height := 640, 480
	if last := w.latest.Load(); last != nil && last.Width > 0 && last.Height > 0 {
		width, height = last.Width, last.Height
	}
	ph := s.cfg.Placeholder(width, height)
	w.latest.Store(&ph)
}

func normalizeFPS(fps, def float64) float64 {
	if math.IsNaN(fps) || math.IsInf(fps, 0) || fps <= 0 || fps > maxSaneFPS {
		return def
	}
	return fps
}
