// internal/core/types.go
package core

import (
	"fmt"
	"strings"
	"time"
)

// Source é uma câmera configurada. Imutável depois do load da configuração.
type Source struct {
	ID        int    `json:"id" yaml:"-"`
	Name      string `json:"name" yaml:"name"`
	URI       string `json:"uri" yaml:"uri"`
	GroupID   int    `json:"group_id" yaml:"group_id"`
	GroupName string `json:"group_name,omitempty" yaml:"group_name,omitempty"`
}

// Court devolve o nome do grupo usado na API remota.
func (s Source) Court() string {
	if n := strings.TrimSpace(s.GroupName); n != "" {
		return n
	}
	return fmt.Sprintf("Court %d", s.GroupID)
}

// ConnectionState representa o estado atual de conectividade com a câmera.
type ConnectionState string

const (
	ConnectionStateConnecting ConnectionState = "connecting"
	ConnectionStateOnline     ConnectionState = "online"
	ConnectionStateOffline    ConnectionState = "offline"
	ConnectionStateStopped    ConnectionState = "stopped"
)

// SourceState é a cópia (read-only) do estado mantido pelo capture loop.
type SourceState struct {
	Status      ConnectionState `json:"status"`
	Since       time.Time       `json:"status_since"`
	FPS         float64         `json:"fps"`
	Width       int             `json:"width"`
	Height      int             `json:"height"`
	LastFrameAt time.Time       `json:"last_frame_at"`
	Frames      uint64          `json:"frames"`
	Failures    uint64          `json:"failures"`
	LastError   string          `json:"last_error,omitempty"`
	Recording   bool            `json:"recording"`
}

func (s SourceState) Online() bool { return s.Status == ConnectionStateOnline }

// Health é o resumo exposto para a camada de apresentação.
type Health struct {
	Online    bool    `json:"online"`
	Recording bool    `json:"recording"`
	FPS       float64 `json:"fps"`
	Failures  uint64  `json:"failures"`
	LastError string  `json:"last_error,omitempty"`
}

// Clip é um arquivo pronto para entrega (pós conversão).
type Clip struct {
	Path      string        `json:"path"`
	Source    Source        `json:"source"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`
	Converted bool          `json:"converted"`
}
