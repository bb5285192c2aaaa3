// internal/trigger/dispatcher.go
package trigger

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/sua-org/court-cam/internal/clipper"
	"github.com/sua-org/court-cam/internal/core"
)

// NoGroup marca um listener sem grupo fixo (listener principal).
const NoGroup = -1

// Clipper é a parte do ingest.Service usada pelos triggers.
type Clipper interface {
	Sources() []core.Source
	RequestClip(id, seconds int) (*clipper.Job, error)
	RequestGroupClip(groupID, seconds int) ([]clipper.Outcome, error)
}

type Config struct {
	// LegacyToken é o comando dos botões antigos (default CREATE_CLIP).
	LegacyToken string
	// LegacySource é a câmera do token legado no listener principal.
	LegacySource int
	// Seconds é a duração pedida (0 = default do clipper).
	Seconds int
}

func ConfigFromEnv() Config {
	cfg := Config{
		LegacyToken:  strings.TrimSpace(os.Getenv("TRIGGER_LEGACY_TOKEN")),
		LegacySource: 0,
	}
	if cfg.LegacyToken == "" {
		cfg.LegacyToken = "CREATE_CLIP"
	}
	if v := strings.TrimSpace(os.Getenv("TRIGGER_LEGACY_SOURCE")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.LegacySource = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("CLIP_DEFAULT_SECONDS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Seconds = n
		}
	}
	return cfg
}

// Dispatcher traduz um comando de texto em pedidos de clip e monta a resposta.
type Dispatcher struct {
	cfg   Config
	clips Clipper
}

func NewDispatcher(clips Clipper, cfg Config) *Dispatcher {
	if cfg.LegacyToken == "" {
		cfg.LegacyToken = "CREATE_CLIP"
	}
	return &Dispatcher{cfg: cfg, clips: clips}
}

// Handle processa um comando e devolve a resposta ACK/NACK.
//
//	CREATE_CLIP  -> câmera legada (ou o grupo do listener)
//	<n>          -> todas as câmeras do grupo n
func (d *Dispatcher) Handle(payload string, boundGroup int) string {
	cmd := strings.Trim(payload, " \t\r\n\x00")

	var (
		outs []clipper.Outcome
		err  error
	)
	switch {
	case strings.EqualFold(cmd, d.cfg.LegacyToken) && boundGroup != NoGroup:
		outs, err = d.clips.RequestGroupClip(boundGroup, d.cfg.Seconds)
	case strings.EqualFold(cmd, d.cfg.LegacyToken):
		outs = []clipper.Outcome{d.single(d.cfg.LegacySource)}
	default:
		group, perr := parseGroup(cmd)
		if perr != nil {
			return fmt.Sprintf("NACK: unrecognized command %q", cmd)
		}
		outs, err = d.clips.RequestGroupClip(group, d.cfg.Seconds)
	}
	if err != nil {
		if errors.Is(err, core.ErrGroupNotFound) {
			return fmt.Sprintf("NACK: unknown group %q", cmd)
		}
		return "NACK: " + err.Error()
	}
	return Reply(outs)
}

func (d *Dispatcher) single(id int) clipper.Outcome {
	job, err := d.clips.RequestClip(id, d.cfg.Seconds)
	out := clipper.Outcome{Job: job, Err: err}
	if job != nil {
		out.Source = job.Source
		return out
	}
	for _, s := range d.clips.Sources() {
		if s.ID == id {
			out.Source = s
			break
		}
	}
	if out.Source.Name == "" {
		out.Source.Name = fmt.Sprintf("source %d", id)
	}
	return out
}

func parseGroup(cmd string) (int, error) {
	if cmd == "" {
		return 0, errors.New("vazio")
	}
	for _, r := range cmd {
		if r < '0' || r > '9' {
			return 0, fmt.Errorf("não numérico: %q", cmd)
		}
	}
	return strconv.Atoi(cmd)
}

// Reply: "ACK: clip started for a, b (clamped to 15s); failed: c (motivo)"
// ou NACK quando nenhuma câmera iniciou.
func Reply(outs []clipper.Outcome) string {
	var started, failed []string
	for _, o := range outs {
		if o.Err != nil {
			failed = append(failed, fmt.Sprintf("%s (%s)", o.Source.Name, reason(o.Err)))
			continue
		}
		name := o.Source.Name
		if o.Job != nil && o.Job.Clamped {
			name += fmt.Sprintf(" (clamped to %ds)", o.Job.Seconds)
		}
		started = append(started, name)
	}
	if len(started) == 0 {
		if len(failed) == 0 {
			return "NACK: no sources"
		}
		return "NACK: clip failed for " + strings.Join(failed, ", ")
	}
	resp := "ACK: clip started for " + strings.Join(started, ", ")
	if len(failed) > 0 {
		resp += "; failed: " + strings.Join(failed, ", ")
	}
	return resp
}

func reason(err error) string {
	switch {
	case errors.Is(err, core.ErrSourceUnavailable):
		return "offline"
	case errors.Is(err, core.ErrBufferEmpty):
		return "buffer empty"
	case errors.Is(err, core.ErrSourceNotFound):
		return "not found"
	case errors.Is(err, core.ErrWrite):
		return "write error"
	default:
		log.Printf("[trigger] erro sem categoria: %v", err)
		return "error"
	}
}
