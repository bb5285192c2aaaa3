// internal/drivers/base.go
package drivers

import (
	"net/url"
	"strings"

	"github.com/sua-org/court-cam/internal/core"
)

// FrameSource é uma conexão com um stream de vídeo.
// Open bloqueia até conectar ou falhar (sem timeout próprio).
type FrameSource interface {
	Open() error
	// FPS negociado; 0 quando o stream não informa.
	FPS() float64
	// Read devolve um frame novo (o caller passa a ser dono do Data).
	Read() (core.Frame, error)
	Close() error
}

// VideoWriter grava frames em um container (segmentos e clips).
type VideoWriter interface {
	Write(f core.Frame) error
	Close() error
}

type Factory func(src core.Source) (FrameSource, error)

type WriterFactory func(path string, fps float64, width, height int) (VideoWriter, error)

// registry: esquema da URI -> factory
var (
	registry       = map[string]Factory{}
	defaultFactory Factory
)

// Register é chamado no init() de cada driver (opencv, synthetic, etc).
func Register(scheme string, f Factory) {
	registry[normalize(scheme)] = f
}

// RegisterDefault define o driver usado quando nenhum esquema bate
// (ex.: caminho local ou índice de device).
func RegisterDefault(f Factory) {
	defaultFactory = f
}

func Get(src core.Source) (FrameSource, error) {
	if f, ok := registry[SchemeOf(src.URI)]; ok {
		return f(src)
	}
	if defaultFactory != nil {
		return defaultFactory(src)
	}
	return nil, ErrDriverNotFound
}

// SchemeOf extrai o esquema normalizado ("rtsp", "synthetic", ...) ou "" se não houver.
func SchemeOf(uri string) string {
	u, err := url.Parse(strings.TrimSpace(uri))
	if err != nil {
		return ""
	}
	return normalize(u.Scheme)
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
