// internal/delivery/sink.go
package delivery

import (
	"context"

	"github.com/sua-org/court-cam/internal/core"
)

// Sink é um destino de entrega de clip (API de reservas, object storage, ...).
// Cada sink é independente: falha em um não impede os outros.
type Sink interface {
	Name() string
	Enabled() bool

	// Deliver devolve a localização remota (id, URL) quando houver.
	Deliver(ctx context.Context, clip core.Clip) (string, error)
}

// Result é o resultado de um sink para um clip.
type Result struct {
	Sink     string `json:"sink"`
	Location string `json:"location,omitempty"`
	Error    string `json:"error,omitempty"`
}

func (r Result) OK() bool { return r.Error == "" }

// Notifier recebe o resumo da entrega (ex.: evento MQTT).
type Notifier interface {
	Notify(clip core.Clip, results []Result)
}
