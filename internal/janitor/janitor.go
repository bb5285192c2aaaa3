// internal/janitor/janitor.go
package janitor

import (
	"context"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/sua-org/court-cam/internal/layout"
)

// Rule: arquivos em Dir mais velhos que MaxAge são removidos. MaxAge 0 desliga.
type Rule struct {
	Dir    string
	MaxAge time.Duration
}

// Janitor limpa temp/ (sobras de clips/conversões) e aplica retenção em
// recordings/, clips/ e snapshots/. Varre no intervalo e também quando um
// arquivo novo aparece numa pasta vigiada (no máximo uma vez por Debounce).
type Janitor struct {
	rules    []Rule
	interval time.Duration
	debounce time.Duration
	now      func() time.Time

	mu        sync.Mutex
	lastSweep map[string]time.Time
}

func New(rules []Rule, interval time.Duration) *Janitor {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	active := make([]Rule, 0, len(rules))
	for _, r := range rules {
		if r.Dir != "" && r.MaxAge > 0 {
			active = append(active, r)
		}
	}
	return &Janitor{
		rules:     active,
		interval:  interval,
		debounce:  time.Minute,
		now:       time.Now,
		lastSweep: make(map[string]time.Time),
	}
}

// NewFromEnv:
//
//	JANITOR_INTERVAL_MINUTES   (default 10)
//	TEMP_MAX_AGE_MINUTES       (default 60)
//	RECORDINGS_RETENTION_HOURS (default 48, 0 desliga)
//	CLIPS_RETENTION_HOURS      (default 168, 0 desliga; vale também para snapshots)
func NewFromEnv(l layout.Layout) *Janitor {
	clips := envDuration("CLIPS_RETENTION_HOURS", 168, time.Hour)
	return New([]Rule{
		{Dir: l.Temp(), MaxAge: envDuration("TEMP_MAX_AGE_MINUTES", 60, time.Minute)},
		{Dir: l.Recordings(), MaxAge: envDuration("RECORDINGS_RETENTION_HOURS", 48, time.Hour)},
		{Dir: l.Clips(), MaxAge: clips},
		{Dir: l.Snapshots(), MaxAge: clips},
	}, envDuration("JANITOR_INTERVAL_MINUTES", 10, time.Minute))
}

func (j *Janitor) Rules() []Rule {
	return append([]Rule(nil), j.rules...)
}

// Run varre na largada, depois a cada intervalo e a cada arquivo novo.
func (j *Janitor) Run(ctx context.Context) error {
	if len(j.rules) == 0 {
		log.Printf("[janitor] nenhuma regra ativa")
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		log.Printf("[janitor] fsnotify indisponível, só varredura periódica: %v", err)
	} else {
		defer watcher.Close()
		for _, r := range j.rules {
			if err := watcher.Add(r.Dir); err != nil {
				log.Printf("[janitor] erro ao vigiar %s: %v", r.Dir, err)
			}
		}
	}

	j.SweepAll()

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	var (
		events <-chan fsnotify.Event
		errs   <-chan error
	)
	if watcher != nil {
		events, errs = watcher.Events, watcher.Errors
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			j.SweepAll()
		case ev, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			if ev.Op&fsnotify.Create == fsnotify.Create {
				j.onCreate(ev.Name)
			}
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			log.Printf("[janitor] erro do watcher: %v", err)
		}
	}
}

func (j *Janitor) onCreate(path string) {
	dir := filepath.Dir(path)
	for _, r := range j.rules {
		if filepath.Clean(r.Dir) != filepath.Clean(dir) {
			continue
		}
		if !j.due(r.Dir) {
			return
		}
		j.Sweep(r)
		return
	}
}

func (j *Janitor) due(dir string) bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	now := j.now()
	if last, ok := j.lastSweep[dir]; ok && now.Sub(last) < j.debounce {
		return false
	}
	j.lastSweep[dir] = now
	return true
}

// SweepAll aplica todas as regras e devolve o total removido.
func (j *Janitor) SweepAll() int {
	total := 0
	for _, r := range j.rules {
		total += j.Sweep(r)
	}
	return total
}

// Sweep remove os arquivos (não pastas) mais velhos que a regra.
func (j *Janitor) Sweep(r Rule) int {
	entries, err := os.ReadDir(r.Dir)
	if err != nil {
		log.Printf("[janitor] erro ao listar %s: %v", r.Dir, err)
		return 0
	}
	cutoff := j.now().Add(-r.MaxAge)
	removed := 0
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if !info.ModTime().Before(cutoff) {
			continue
		}
		path := filepath.Join(r.Dir, e.Name())
		if err := os.Remove(path); err != nil {
			log.Printf("[janitor] erro ao remover %s: %v", path, err)
			continue
		}
		removed++
	}
	if removed > 0 {
		log.Printf("[janitor] %d arquivo(s) removido(s) de %s (mais velhos que %s)", removed, r.Dir, r.MaxAge)
	}
	return removed
}

func envDuration(key string, def int, unit time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return time.Duration(def) * unit
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		log.Printf("[janitor] valor inválido em %s=%q, usando default %d", key, v, def)
		return time.Duration(def) * unit
	}
	return time.Duration(n) * unit
}
