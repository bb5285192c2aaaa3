// internal/delivery/manager.go
package delivery

import (
	"context"
	"fmt"
	"log"
	"runtime/debug"
	"strings"
	"time"

	"github.com/sua-org/court-cam/internal/core"
)

type Manager struct {
	sinks    []Sink
	notifier Notifier

	// timeout padrão para cada sink
	perSinkTimeout time.Duration
}

func NewManager(sinks []Sink, notifier Notifier, perSinkTimeout time.Duration) *Manager {
	if perSinkTimeout <= 0 {
		perSinkTimeout = 5 * time.Minute
	}
	// remove nils e sinks desabilitados
	filtered := make([]Sink, 0, len(sinks))
	for _, s := range sinks {
		if s == nil || !s.Enabled() {
			continue
		}
		filtered = append(filtered, s)
	}
	return &Manager{sinks: filtered, notifier: notifier, perSinkTimeout: perSinkTimeout}
}

func (m *Manager) Enabled() bool {
	return m != nil && len(m.sinks) > 0
}

func (m *Manager) Names() []string {
	if m == nil {
		return nil
	}
	out := make([]string, 0, len(m.sinks))
	for _, s := range m.sinks {
		out = append(out, s.Name())
	}
	return out
}

// DeliverAll roda todos os sinks em sequência. Sem retry: a falha fica no log
// e no resultado. Nunca dá panic (recover por sink).
func (m *Manager) DeliverAll(ctx context.Context, clip core.Clip) []Result {
	if m == nil {
		return nil
	}

	results := make([]Result, 0, len(m.sinks))
	for _, s := range m.sinks {
		ctxSink, cancel := context.WithTimeout(ctx, m.perSinkTimeout)
		start := time.Now()
		loc, err := func() (loc string, err error) {
			defer func() {
				if r := recover(); r != nil {
					log.Printf("[delivery] panic no sink %s: %v\n%s", s.Name(), r, string(debug.Stack()))
					err = fmt.Errorf("panic in sink %s", s.Name())
				}
			}()
			return s.Deliver(ctxSink, clip)
		}()
		cancel()

		res := Result{Sink: s.Name(), Location: loc}
		if err != nil {
			res.Error = err.Error()
			log.Printf("[delivery] sink %s falhou para %s (%s): %v", s.Name(), clip.Path, clip.Source.Name, err)
		} else {
			log.Printf("[delivery] sink %s ok para %s em %s (%s)", s.Name(), clip.Path, time.Since(start).Round(time.Millisecond), loc)
		}
		results = append(results, res)
	}

	if m.notifier != nil {
		m.notifier.Notify(clip, results)
	}
	return results
}

// Summary resume os resultados para log.
func Summary(results []Result) string {
	parts := make([]string, 0, len(results))
	for _, r := range results {
		if r.OK() {
			parts = append(parts, r.Sink+"=ok")
		} else {
			parts = append(parts, r.Sink+"=erro")
		}
	}
	if len(parts) == 0 {
		return "nenhum sink"
	}
	return strings.Join(parts, ",")
}
