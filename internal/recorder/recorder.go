// internal/recorder/recorder.go
package recorder

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/sua-org/court-cam/internal/core"
	"github.com/sua-org/court-cam/internal/drivers"
)

const (
	MinChunk     = 10 * time.Minute
	MaxChunk     = 30 * time.Minute
	DefaultChunk = 10 * time.Minute
)

// Segment descreve um arquivo de gravação contínua.
type Segment struct {
	Path   string
	Start  time.Time
	End    time.Time
	Frames int
}

// Recorder grava a câmera em blocos de duração fixa.
// Write é chamado só pelo capture loop da câmera; Recording/Current podem
// ser lidos de qualquer goroutine.
type Recorder struct {
	name     string
	chunk    time.Duration
	pathFor  func(name string, ts time.Time) string
	open     drivers.WriterFactory
	onClosed func(Segment)

	mu      sync.Mutex
	writer  drivers.VideoWriter
	current Segment
	fps     float64
	width   int
	height  int

	openFailures  uint64
	writeFailures uint64
	// failing: o último Write falhou; abre/fecha de segmento não são logados
	failing bool
}

type Config struct {
	Chunk time.Duration
	// PathFor monta o caminho do segmento (ex.: layout.SegmentPath).
	PathFor func(name string, ts time.Time) string
	Open    drivers.WriterFactory
	// OnClosed recebe cada segmento fechado (conversão/arquivamento).
	// Roda com o lock do recorder; não deve bloquear.
	OnClosed func(Segment)
}

func New(name string, cfg Config) *Recorder {
	return &Recorder{
		name:     name,
		chunk:    ClampChunk(cfg.Chunk),
		pathFor:  cfg.PathFor,
		open:     cfg.Open,
		onClosed: cfg.OnClosed,
	}
}

// ChunkFromEnv lê RECORD_SEGMENT_MINUTES.
func ChunkFromEnv() time.Duration {
	v := strings.TrimSpace(os.Getenv("RECORD_SEGMENT_MINUTES"))
	if v == "" {
		return DefaultChunk
	}
	m, err := strconv.Atoi(v)
	if err != nil || m <= 0 {
		log.Printf("[recorder] valor inválido em RECORD_SEGMENT_MINUTES=%q, usando default %s", v, DefaultChunk)
		return DefaultChunk
	}
	return ClampChunk(time.Duration(m) * time.Minute)
}

// ClampChunk mantém a duração entre 10 e 30 minutos.
func ClampChunk(d time.Duration) time.Duration {
	switch {
	case d <= 0:
		return DefaultChunk
	case d < MinChunk:
		return MinChunk
	case d > MaxChunk:
		return MaxChunk
	}
	return d
}

// SetFPS informa o fps negociado. Mudança de fps força um novo segmento.
func (r *Recorder) SetFPS(fps float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if fps == r.fps {
		return
	}
	r.fps = fps
	if r.writer != nil {
		r.closeLocked()
	}
}

// Write grava o frame no segmento atual, abrindo/rolando quando necessário.
// O relógio é o timestamp do frame.
func (r *Recorder) Write(f core.Frame) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := f.Timestamp
	if now.IsZero() {
		now = time.Now()
	}

	if r.writer != nil && (!now.Before(r.current.End) || f.Width != r.width || f.Height != r.height) {
		r.closeLocked()
	}

	if r.writer == nil {
		if err := r.openLocked(now, f.Width, f.Height); err != nil {
			return err
		}
	}

	if err := r.writer.Write(f); err != nil {
		r.writeFailures++
		r.failing = true
		path := r.current.Path
		if r.writeFailures == 1 || r.writeFailures%100 == 0 {
			log.Printf("[recorder] %s: falha ao gravar em %s (falha %d): %v", r.name, path, r.writeFailures, err)
		}
		// writer com erro não é reaproveitado; o próximo frame abre outro segmento
		r.closeLocked()
		return fmt.Errorf("%w: segmento %s: %v", core.ErrWrite, path, err)
	}
	r.current.Frames++
	r.failing = false
	return nil
}

func (r *Recorder) openLocked(now time.Time, width, height int) error {
	path := r.pathFor(r.name, now)
	fps := r.fps
	if fps <= 0 {
		fps = 20
	}

	w, err := r.open(path, fps, width, height)
	if err != nil {
		r.openFailures++
		// tenta de novo no próximo frame; loga só de vez em quando
		if r.openFailures == 1 || r.openFailures%100 == 0 {
			log.Printf("[recorder] %s: falha ao abrir segmento %s (tentativa %d): %v", r.name, path, r.openFailures, err)
		}
		_ = os.Remove(path)
		return fmt.Errorf("%w: abrir segmento %s: %v", core.ErrWrite, path, err)
	}

	r.writer = w
	r.width, r.height = width, height
	r.current = Segment{Path: path, Start: now, End: now.Add(r.chunk)}
	if !r.failing {
		log.Printf("[recorder] %s: novo segmento %s (até %s)", r.name, path, r.current.End.Format(time.RFC3339))
	}
	return nil
}

func (r *Recorder) closeLocked() {
	if r.writer == nil {
		return
	}
	if err := r.writer.Close(); err != nil {
		log.Printf("[recorder] %s: erro ao fechar %s: %v", r.name, r.current.Path, err)
	}
	seg := r.current
	r.writer = nil
	r.current = Segment{}
	if seg.Frames == 0 {
		_ = os.Remove(seg.Path)
		return
	}
	log.Printf("[recorder] %s: segmento fechado %s (%d frames)", r.name, seg.Path, seg.Frames)

	if r.onClosed != nil {
		r.onClosed(seg)
	}
}

// Close fecha o segmento aberto (shutdown ou stop da câmera).
func (r *Recorder) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closeLocked()
}

func (r *Recorder) Recording() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.writer != nil
}

func (r *Recorder) Current() (Segment, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current, r.writer != nil
}

func (r *Recorder) OpenFailures() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.openFailures
}

func (r *Recorder) WriteFailures() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.writeFailures
}
