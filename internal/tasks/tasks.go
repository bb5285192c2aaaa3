// internal/tasks/tasks.go
package tasks

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
)

var ErrClosed = errors.New("grupo de tasks encerrado")

// Group dispara jobs curtos (clip, conversão, upload) e permite esperar
// todos terminarem. Erros e panics são logados e não interrompem os outros jobs.
type Group struct {
	name string

	// mu separa Go (RLock) de Wait/Close (Lock): o errgroup não aceita
	// Go concorrente com Wait.
	mu     sync.RWMutex
	closed bool
	g      errgroup.Group

	inFlight atomic.Int64
	done     atomic.Uint64
	failed   atomic.Uint64
}

func New(name string) *Group {
	return &Group{name: name}
}

// Go roda fn numa goroutine própria. Depois de Close devolve ErrClosed sem
// rodar fn. fn não pode chamar Go nem Wait no mesmo grupo.
func (t *Group) Go(job string, fn func() error) error {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.closed {
		log.Printf("[%s] job %s recusado: grupo encerrado", t.name, job)
		return ErrClosed
	}

	t.inFlight.Add(1)
	t.g.Go(func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("panic: %v", r)
			}
			if err != nil {
				t.failed.Add(1)
				log.Printf("[%s] job %s falhou: %v", t.name, job, err)
			}
			t.done.Add(1)
			t.inFlight.Add(-1)
			// o erro já foi tratado; Wait só sinaliza conclusão
			err = nil
		}()
		return fn()
	})
	return nil
}

// Wait bloqueia até todos os jobs disparados terminarem. Chamadas a Go
// durante o Wait esperam ele acabar.
func (t *Group) Wait() {
	t.mu.Lock()
	defer t.mu.Unlock()
	_ = t.g.Wait()
}

// Close recusa novos jobs e espera os que já estão rodando.
func (t *Group) Close() {
	t.mu.Lock()
	t.closed = true
	t.mu.Unlock()
	_ = t.g.Wait()
}

type Stats struct {
	InFlight int64  `json:"in_flight"`
	Done     uint64 `json:"done"`
	Failed   uint64 `json:"failed"`
}

func (t *Group) Stats() Stats {
	return Stats{
		InFlight: t.inFlight.Load(),
		Done:     t.done.Load(),
		Failed:   t.failed.Load(),
	}
}
