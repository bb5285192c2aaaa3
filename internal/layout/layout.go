// internal/layout/layout.go
package layout

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Formato usado em todos os nomes de arquivo (recordings, clips, temp, snapshots).
const TimestampFormat = "20060102_150405"

const (
	RecordingsDir = "recordings"
	ClipsDir      = "clips"
	TempDir       = "temp"
	SnapshotsDir  = "snapshots"
)

// Layout resolve os caminhos das áreas de armazenamento a partir de uma raiz.
type Layout struct {
	Root string
}

func New(root string) Layout {
	if strings.TrimSpace(root) == "" {
		root = "."
	}
	return Layout{Root: root}
}

func NewFromEnv() Layout {
	return New(os.Getenv("STORAGE_ROOT"))
}

// Ensure cria todos os diretórios se ainda não existirem.
func (l Layout) Ensure() error {
	for _, dir := range l.Dirs() {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("criar diretório %s: %w", dir, err)
		}
	}
	return nil
}

func (l Layout) Dirs() []string {
	return []string{l.Recordings(), l.Clips(), l.Temp(), l.Snapshots()}
}

func (l Layout) Recordings() string { return filepath.Join(l.Root, RecordingsDir) }
func (l Layout) Clips() string      { return filepath.Join(l.Root, ClipsDir) }
func (l Layout) Temp() string       { return filepath.Join(l.Root, TempDir) }
func (l Layout) Snapshots() string  { return filepath.Join(l.Root, SnapshotsDir) }

// SegmentPath: recordings/<nome>_<ts>.avi
func (l Layout) SegmentPath(source string, ts time.Time) string {
	return filepath.Join(l.Recordings(), fmt.Sprintf("%s_%s.avi", Sanitize(source), ts.Format(TimestampFormat)))
}

// ClipTempPath: temp/<nome>_<dur>s_<ts>.avi
func (l Layout) ClipTempPath(source string, seconds int, ts time.Time) string {
	return l.ClipTempPathN(source, seconds, ts, 1)
}

// ClipTempPathN desambigua clips do mesmo segundo: n > 1 vira sufixo _<n>.
func (l Layout) ClipTempPathN(source string, seconds int, ts time.Time, n int) string {
	base := clipBase(source, seconds, ts)
	if n > 1 {
		base = fmt.Sprintf("%s_%d", base, n)
	}
	return filepath.Join(l.Temp(), base+".avi")
}

// ClipPath move um artefato (convertido ou não) para a área de clips mantendo o nome.
func (l Layout) ClipPath(artifact string) string {
	return filepath.Join(l.Clips(), filepath.Base(artifact))
}

// SnapshotPath: snapshots/<nome>_<ts>.jpg
func (l Layout) SnapshotPath(source string, ts time.Time) string {
	return filepath.Join(l.Snapshots(), fmt.Sprintf("%s_%s.jpg", Sanitize(source), ts.Format(TimestampFormat)))
}

func clipBase(source string, seconds int, ts time.Time) string {
	return fmt.Sprintf("%s_%ds_%s", Sanitize(source), seconds, ts.Format(TimestampFormat))
}

// Sanitize troca espaços e separadores de caminho por "_".
func Sanitize(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return "source"
	}
	r := strings.NewReplacer(" ", "_", "/", "_", "\\", "_", ":", "_")
	return r.Replace(name)
}
