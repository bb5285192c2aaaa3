// internal/clipper/clipper.go
package clipper

import (
	"context"
	"fmt"
	"log"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/sua-org/court-cam/internal/core"
	"github.com/sua-org/court-cam/internal/delivery"
	"github.com/sua-org/court-cam/internal/drivers"
	"github.com/sua-org/court-cam/internal/layout"
	"github.com/sua-org/court-cam/internal/tasks"
)

// Sources é a parte do supervisor que o clipper lê.
type Sources interface {
	Source(id int) (core.Source, bool)
	SourcesInGroup(groupID int) []core.Source
	State(id int) (core.SourceState, bool)
	Snapshot(id, n int) []core.Frame
	MaxPreEventSeconds() int
}

type Converter interface {
	Convert(ctx context.Context, input string) string
}

type Deliverer interface {
	DeliverAll(ctx context.Context, clip core.Clip) []delivery.Result
}

type Config struct {
	// DefaultSeconds é usado quando o pedido vem com seconds <= 0.
	DefaultSeconds int
	DefaultFPS     float64
	Layout         layout.Layout
	NewWriter      drivers.WriterFactory
}

type Extractor struct {
	ctx     context.Context
	cfg     Config
	sources Sources
	conv    Converter
	deliver Deliverer
	tasks   *tasks.Group
	now     func() time.Time

	mu       sync.Mutex
	inflight map[string]struct{}
}

// New: conv e deliver podem ser nil (clip fica em .avi / só no disco).
// As tasks usam context.Background: um clip iniciado não é cancelado no meio,
// os timeouts ficam no converter e nos sinks.
func New(sources Sources, conv Converter, deliver Deliverer, cfg Config, tg *tasks.Group) *Extractor {
	if cfg.DefaultSeconds <= 0 {
		cfg.DefaultSeconds = 15
	}
	if cfg.DefaultFPS <= 0 {
		cfg.DefaultFPS = 20
	}
	if tg == nil {
		tg = tasks.New("clipper")
	}
	return &Extractor{
		ctx:      context.Background(),
		cfg:      cfg,
		sources:  sources,
		conv:     conv,
		deliver:  deliver,
		tasks:    tg,
		now:      time.Now,
		inflight: map[string]struct{}{},
	}
}

// Job é um clip em andamento. Done fecha quando o processamento termina.
type Job struct {
	Source    core.Source
	Requested int
	Seconds   int
	Clamped   bool
	Frames    int
	TempPath  string

	done    chan struct{}
	clip    core.Clip
	results []delivery.Result
	err     error
}

func (j *Job) Done() <-chan struct{} { return j.done }

// Result só é válido depois de Done.
func (j *Job) Result() (core.Clip, []delivery.Result, error) {
	<-j.done
	return j.clip, j.results, j.err
}

// Outcome é o resultado por câmera de um pedido de grupo.
type Outcome struct {
	Source core.Source
	Job    *Job
	Err    error
}

// Clamp limita o pedido a (0, max]; <= 0 vira o default.
func Clamp(requested, def, limit int) (int, bool) {
	if requested <= 0 {
		requested = def
	}
	if limit > 0 && requested > limit {
		return limit, true
	}
	return requested, false
}

// RequestClip valida e abre o arquivo de forma síncrona; escrita, conversão e
// entrega rodam numa task.
func (e *Extractor) RequestClip(sourceID, seconds int) (*Job, error) {
	src, ok := e.sources.Source(sourceID)
	if !ok {
		return nil, fmt.Errorf("%w: id %d", core.ErrSourceNotFound, sourceID)
	}
	st, _ := e.sources.State(sourceID)
	if !st.Online() {
		return nil, fmt.Errorf("%w: %s está %s", core.ErrSourceUnavailable, src.Name, st.Status)
	}

	clamped, wasClamped := Clamp(seconds, e.cfg.DefaultSeconds, e.sources.MaxPreEventSeconds())
	if wasClamped {
		log.Printf("[clipper] %s: pedido de %ds limitado a %ds", src.Name, seconds, clamped)
	}

	fps := st.FPS
	if fps <= 0 {
		fps = e.cfg.DefaultFPS
	}
	frames := e.sources.Snapshot(sourceID, int(math.Round(fps*float64(clamped))))
	if len(frames) == 0 {
		return nil, fmt.Errorf("%w: %s", core.ErrBufferEmpty, src.Name)
	}

	path := e.reserve(src.Name, clamped, e.now())
	w, err := e.cfg.NewWriter(path, fps, frames[0].Width, frames[0].Height)
	if err != nil {
		_ = os.Remove(path)
		e.release(path)
		return nil, fmt.Errorf("%w: abrir %s: %v", core.ErrWrite, path, err)
	}

	job := &Job{
		Source:    src,
		Requested: seconds,
		Seconds:   clamped,
		Clamped:   wasClamped,
		Frames:    len(frames),
		TempPath:  path,
		done:      make(chan struct{}),
	}
	log.Printf("[clipper] %s: clip de %ds (%d frames) -> %s", src.Name, clamped, len(frames), path)

	err = e.tasks.Go("clip "+filepath.Base(path), func() error {
		defer close(job.done)
		defer e.release(path)
		job.clip, job.results, job.err = e.process(job, w, frames, fps)
		return job.err
	})
	if err != nil {
		_ = w.Close()
		_ = os.Remove(path)
		e.release(path)
		return nil, fmt.Errorf("%w: %s: %v", core.ErrWrite, src.Name, err)
	}
	return job, nil
}

// reserve escolhe um nome de clip livre: nenhum job em andamento com o mesmo
// nome e nenhum arquivo com a mesma base em temp/ ou clips/.
func (e *Extractor) reserve(source string, seconds int, ts time.Time) string {
	e.mu.Lock()
	defer e.mu.Unlock()
	for n := 1; ; n++ {
		path := e.cfg.Layout.ClipTempPathN(source, seconds, ts, n)
		if _, busy := e.inflight[path]; busy || e.taken(path) {
			continue
		}
		e.inflight[path] = struct{}{}
		return path
	}
}

func (e *Extractor) release(path string) {
	e.mu.Lock()
	delete(e.inflight, path)
	e.mu.Unlock()
}

// taken procura <base>.* em temp/ e clips/ (o artefato pode já ter sido
// convertido ou movido).
func (e *Extractor) taken(path string) bool {
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	for _, dir := range []string{e.cfg.Layout.Temp(), e.cfg.Layout.Clips()} {
		matches, _ := filepath.Glob(filepath.Join(dir, globEscape(base)+".*"))
		if len(matches) > 0 {
			return true
		}
	}
	return false
}

func globEscape(s string) string {
	r := strings.NewReplacer(`*`, `\*`, `?`, `\?`, `[`, `\[`, `\`, `\\`)
	return r.Replace(s)
}

// RequestGroupClip dispara um clip por câmera do grupo, em paralelo.
// A ordem das saídas segue a ordem das câmeras no config.
func (e *Extractor) RequestGroupClip(groupID, seconds int) ([]Outcome, error) {
	srcs := e.sources.SourcesInGroup(groupID)
	if len(srcs) == 0 {
		return nil, fmt.Errorf("%w: %d", core.ErrGroupNotFound, groupID)
	}

	out := make([]Outcome, len(srcs))
	var g errgroup.Group
	for i, src := range srcs {
		i, src := i, src
		g.Go(func() error {
			job, err := e.RequestClip(src.ID, seconds)
			out[i] = Outcome{Source: src, Job: job, Err: err}
			return nil
		})
	}
	_ = g.Wait()
	return out, nil
}

func (e *Extractor) process(job *Job, w drivers.VideoWriter, frames []core.Frame, fps float64) (core.Clip, []delivery.Result, error) {
	first := frames[0]
	written := 0
	for _, f := range frames {
		if f.Width != first.Width || f.Height != first.Height {
			continue
		}
		if err := w.Write(f); err != nil {
			_ = w.Close()
			_ = os.Remove(job.TempPath)
			return core.Clip{}, nil, fmt.Errorf("%w: %s: %v", core.ErrWrite, job.TempPath, err)
		}
		written++
	}
	if err := w.Close(); err != nil {
		_ = os.Remove(job.TempPath)
		return core.Clip{}, nil, fmt.Errorf("%w: fechar %s: %v", core.ErrWrite, job.TempPath, err)
	}

	artifact := job.TempPath
	if e.conv != nil {
		artifact = e.conv.Convert(e.ctx, job.TempPath)
	}

	final := e.cfg.Layout.ClipPath(artifact)
	if err := os.Rename(artifact, final); err != nil {
		log.Printf("[clipper] erro ao mover %s para %s: %v (mantendo em temp)", artifact, final, err)
		final = artifact
	}

	clip := core.Clip{
		Path:      final,
		Source:    job.Source,
		StartedAt: first.Timestamp,
		Duration:  time.Duration(float64(written) / fps * float64(time.Second)),
		Converted: filepath.Ext(artifact) != filepath.Ext(job.TempPath),
	}
	log.Printf("[clipper] %s: clip pronto %s (%d frames, %s)", job.Source.Name, final, written, clip.Duration.Round(time.Millisecond))

	var results []delivery.Result
	if e.deliver != nil {
		results = e.deliver.DeliverAll(e.ctx, clip)
		log.Printf("[clipper] %s: entrega %s", job.Source.Name, delivery.Summary(results))
	}
	return clip, results, nil
}

// Wait espera todas as tasks de clip terminarem.
func (e *Extractor) Wait() {
	e.tasks.Wait()
}

// Close recusa novos clips e espera os pendentes.
func (e *Extractor) Close() {
	e.tasks.Close()
}
