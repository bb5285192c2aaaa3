// internal/supervisor/supervisor.go
package supervisor

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shirou/gopsutil/v3/process"
	"github.com/sua-org/court-cam/internal/core"
	"github.com/sua-org/court-cam/internal/drivers"
	"github.com/sua-org/court-cam/internal/recorder"
	"github.com/sua-org/court-cam/internal/ringbuf"
)

// Publisher é o subconjunto do mqttclient usado pelo status loop.
type Publisher interface {
	Publish(topic string, qos byte, retained bool, payload []byte) error
}

type Config struct {
	MaxPreEventSeconds int
	DefaultFPS         float64
	ReconnectBackoff   time.Duration
	StopTimeout        time.Duration
	StatusInterval     time.Duration

	// Gravação contínua; desligada quando NewWriter é nil.
	Record      bool
	Chunk       time.Duration
	NewWriter   drivers.WriterFactory
	SegmentPath func(name string, ts time.Time) string
	// OnSegmentClosed recebe os segmentos fechados (conversão/arquivo).
	OnSegmentClosed func(core.Source, recorder.Segment)

	// Open cria o adaptador do stream; default drivers.Get.
	Open drivers.Factory
	// Placeholder gera o frame servido no preview enquanto offline.
	Placeholder func(width, height int) core.Frame
}

func ConfigFromEnv() Config {
	return Config{
		MaxPreEventSeconds: envInt("MAX_PRE_EVENT_SECONDS", 15),
		DefaultFPS:         float64(envInt("CAPTURE_DEFAULT_FPS", 20)),
		ReconnectBackoff:   envDurationSeconds("CAPTURE_RECONNECT_SECONDS", 10*time.Second),
		StopTimeout:        5 * time.Second,
		StatusInterval:     envDurationSeconds("STATUS_INTERVAL_SECONDS", 30*time.Second),
		Record:             envBool("RECORD_ENABLED", true),
		Chunk:              recorder.ChunkFromEnv(),
	}
}

// Supervisor é o registro das câmeras: criado uma vez no startup, dono de
// um worker por câmera (buffer, recorder, slot do último frame).
// Os outros componentes só usam os métodos de acesso.
type Supervisor struct {
	cfg       Config
	mqtt      Publisher
	baseTopic string

	sources []core.Source
	workers map[int]*sourceWorker
	groups  map[int][]int

	mu   sync.Mutex // protege cancel/done dos workers
	proc *process.Process
}

type sourceWorker struct {
	src    core.Source
	buf    *ringbuf.Buffer
	rec    *recorder.Recorder
	latest atomic.Pointer[core.Frame]

	cancel context.CancelFunc
	done   chan struct{}

	mu    sync.Mutex
	state core.SourceState
}

func New(sources []core.Source, cfg Config, mqtt Publisher, baseTopic string) *Supervisor {
	if cfg.MaxPreEventSeconds <= 0 {
		cfg.MaxPreEventSeconds = 15
	}
	if cfg.DefaultFPS <= 0 {
		cfg.DefaultFPS = 20
	}
	if cfg.ReconnectBackoff <= 0 {
		cfg.ReconnectBackoff = 10 * time.Second
	}
	if cfg.StopTimeout <= 0 {
		cfg.StopTimeout = 5 * time.Second
	}
	if cfg.Open == nil {
		cfg.Open = drivers.Get
	}
	if cfg.Placeholder == nil {
		cfg.Placeholder = core.Blank
	}

	s := &Supervisor{
		cfg:       cfg,
		mqtt:      mqtt,
		baseTopic: strings.TrimSuffix(baseTopic, "/"),
		workers:   make(map[int]*sourceWorker, len(sources)),
		groups:    make(map[int][]int),
	}
	if p, err := process.NewProcess(int32(os.Getpid())); err == nil {
		s.proc = p
	}

	for i, src := range sources {
		src.ID = i
		s.sources = append(s.sources, src)
		s.groups[src.GroupID] = append(s.groups[src.GroupID], i)

		w := &sourceWorker{
			src: src,
			buf: ringbuf.New(0),
			state: core.SourceState{
				Status: core.ConnectionStateStopped,
				Since:  time.Now().UTC(),
			},
		}
		if cfg.Record && cfg.NewWriter != nil && cfg.SegmentPath != nil {
			source := src
			var onClosed func(recorder.Segment)
			if cfg.OnSegmentClosed != nil {
				onClosed = func(seg recorder.Segment) { cfg.OnSegmentClosed(source, seg) }
			}
			w.rec = recorder.New(src.Name, recorder.Config{
				Chunk:    cfg.Chunk,
				PathFor:  cfg.SegmentPath,
				Open:     cfg.NewWriter,
				OnClosed: onClosed,
			})
		}
		s.workers[i] = w
	}

	log.Printf("[supervisor] %d câmeras registradas (pré-evento=%ds, gravação=%v)",
		len(s.sources), cfg.MaxPreEventSeconds, cfg.Record && cfg.NewWriter != nil)
	return s
}

// StartAll inicia o capture loop de todas as câmeras.
func (s *Supervisor) StartAll(ctx context.Context) {
	for _, src := range s.sources {
		if err := s.Start(ctx, src.ID); err != nil {
			log.Printf("[supervisor] erro ao iniciar %s: %v", src.Name, err)
		}
	}
}

// Start inicia o capture loop de uma câmera (no-op se já estiver rodando).
func (s *Supervisor) Start(ctx context.Context, id int) error {
	w, ok := s.workers[id]
	if !ok {
		return fmt.Errorf("%w: %d", core.ErrSourceNotFound, id)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if w.cancel != nil {
		return nil
	}
	if w.done != nil {
		select {
		case <-w.done:
		default:
			return fmt.Errorf("worker %d ainda encerrando", id)
		}
	}

	wctx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	w.done = make(chan struct{})
	w.setStatus(core.ConnectionStateConnecting, "aguardando conexão")

	log.Printf("[supervisor] starting capture worker %d (%s, group=%d)", id, w.src.Name, w.src.GroupID)
	go s.runCapture(wctx, w)
	return nil
}

// Stop para o capture loop e fecha o segmento aberto.
func (s *Supervisor) Stop(id int) error {
	w, ok := s.workers[id]
	if !ok {
		return fmt.Errorf("%w: %d", core.ErrSourceNotFound, id)
	}

	s.mu.Lock()
	cancel, done := w.cancel, w.done
	w.cancel = nil
	s.mu.Unlock()

	if cancel == nil {
		return nil
	}

	log.Printf("[supervisor] stopping capture worker %d (%s)", id, w.src.Name)
	cancel()
	select {
	case <-done:
	case <-time.After(s.cfg.StopTimeout):
		// leitura bloqueada no driver; o loop sai sozinho quando o read retornar
		log.Printf("[supervisor] worker %d não encerrou em %s", id, s.cfg.StopTimeout)
	}
	w.setStatus(core.ConnectionStateStopped, "parado")
	s.storePlaceholder(w)
	return nil
}

func (s *Supervisor) StopAll() {
	var wg sync.WaitGroup
	for _, src := range s.sources {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			_ = s.Stop(id)
		}(src.ID)
	}
	wg.Wait()
}

// Run roda o status loop até o ctx ser cancelado e então para todas as câmeras.
func (s *Supervisor) Run(ctx context.Context) error {
	if s.mqtt != nil && s.cfg.StatusInterval > 0 {
		go s.runStatusLoop(ctx)
	}

	<-ctx.Done()
	log.Printf("[supervisor] context canceled, stopping all workers")
	s.StopAll()
	return nil
}

// ---- acesso (read-only) ----

func (s *Supervisor) Sources() []core.Source {
	return append([]core.Source(nil), s.sources...)
}

func (s *Supervisor) Source(id int) (core.Source, bool) {
	if id < 0 || id >= len(s.sources) {
		return core.Source{}, false
	}
	return s.sources[id], true
}

func (s *Supervisor) SourcesInGroup(groupID int) []core.Source {
	ids := s.groups[groupID]
	out := make([]core.Source, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.sources[id])
	}
	return out
}

func (s *Supervisor) State(id int) (core.SourceState, bool) {
	w, ok := s.workers[id]
	if !ok {
		return core.SourceState{}, false
	}
	st := w.snapshot()
	if w.rec != nil {
		st.Recording = w.rec.Recording()
	}
	return st, true
}

// Snapshot devolve até n frames do buffer pré-evento, do mais antigo ao mais novo.
func (s *Supervisor) Snapshot(id, n int) []core.Frame {
	w, ok := s.workers[id]
	if !ok {
		return nil
	}
	return w.buf.SnapshotLast(n)
}

// BufferStats devolve (len, cap) do buffer pré-evento.
func (s *Supervisor) BufferStats(id int) (int, int) {
	w, ok := s.workers[id]
	if !ok {
		return 0, 0
	}
	return w.buf.Len(), w.buf.Cap()
}

// LatestFrame devolve o último frame publicado (ou o placeholder offline).
// O frame é compartilhado: quem precisar alterar deve usar Clone.
func (s *Supervisor) LatestFrame(id int) (core.Frame, bool) {
	w, ok := s.workers[id]
	if !ok {
		return core.Frame{}, false
	}
	if f := w.latest.Load(); f != nil {
		return *f, true
	}
	ph := s.cfg.Placeholder(640, 480)
	return ph, true
}

func (s *Supervisor) Health(id int) (core.Health, bool) {
	st, ok := s.State(id)
	if !ok {
		return core.Health{}, false
	}
	return core.Health{
		Online:    st.Online(),
		Recording: st.Recording,
		FPS:       st.FPS,
		Failures:  st.Failures,
		LastError: st.LastError,
	}, true
}

func (s *Supervisor) MaxPreEventSeconds() int {
	return s.cfg.MaxPreEventSeconds
}

// ---- estado do worker ----

func (w *sourceWorker) snapshot() core.SourceState {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

func (w *sourceWorker) setStatus(status core.ConnectionState, reason string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.state.Status != status {
		w.state.Since = time.Now().UTC()
	}
	w.state.Status = status
	if status == core.ConnectionStateOnline {
		w.state.LastError = ""
	} else if reason != "" && status == core.ConnectionStateOffline {
		w.state.LastError = reason
	}
}

func (w *sourceWorker) recordFailure(err error) uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.state.Failures++
	w.state.LastError = err.Error()
	return w.state.Failures
}

func (w *sourceWorker) setStream(fps float64, width, height int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.state.FPS = fps
	if width > 0 && height > 0 {
		w.state.Width, w.state.Height = width, height
	}
}

func (w *sourceWorker) touch(f core.Frame) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.state.LastFrameAt = f.Timestamp
	w.state.Frames++
	w.state.Width, w.state.Height = f.Width, f.Height
}

// ---- env helpers ----

func envDurationSeconds(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	sec, err := strconv.Atoi(v)
	if err != nil || sec <= 0 {
		log.Printf("[supervisor] valor inválido em %s=%q, usando default %s", key, v, def)
		return def
	}
	return time.Duration(sec) * time.Second
}

func envInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		log.Printf("[supervisor] valor inválido em %s=%q, usando default %d", key, v, def)
		return def
	}
	return n
}

func envBool(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		log.Printf("[supervisor] valor inválido em %s=%q, usando default %v", key, v, def)
		return def
	}
	return b
}
