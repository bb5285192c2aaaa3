// internal/ringbuf/ringbuf.go
package ringbuf

import (
	"math"
	"sync"

	"github.com/sua-org/court-cam/internal/core"
)

// Buffer guarda os frames mais recentes de uma câmera (janela pré-evento).
// Um único writer (capture loop) e vários leitores concorrentes.
type Buffer struct {
	mu       sync.Mutex
	data     []core.Frame
	head     int
	size     int
	capacity int
}

func New(capacity int) *Buffer {
	b := &Buffer{}
	b.Reset(capacity)
	return b
}

// CapacityFor calcula fps × segundos de pré-evento.
func CapacityFor(fps float64, seconds int) int {
	if fps <= 0 || seconds <= 0 {
		return 0
	}
	return int(math.Round(fps * float64(seconds)))
}

// Push adiciona o frame, descartando o mais antigo se estiver cheio.
func (b *Buffer) Push(f core.Frame) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.capacity == 0 {
		return
	}
	b.data[b.head] = f
	b.head = (b.head + 1) % b.capacity
	if b.size < b.capacity {
		b.size++
	}
}

// SnapshotLast devolve até n frames, do mais antigo para o mais novo.
// Buffer vazio devolve nil.
func (b *Buffer) SnapshotLast(n int) []core.Frame {
	b.mu.Lock()
	defer b.mu.Unlock()

	if n <= 0 || b.size == 0 {
		return nil
	}
	if n > b.size {
		n = b.size
	}

	out := make([]core.Frame, n)
	// índice do primeiro frame pedido
	start := (b.head - n + b.capacity) % b.capacity
	if start+n <= b.capacity {
		copy(out, b.data[start:start+n])
	} else {
		k := copy(out, b.data[start:])
		copy(out[k:], b.data[:n-k])
	}
	return out
}

// Reset troca o armazenamento por um novo vazio com a capacidade dada.
func (b *Buffer) Reset(capacity int) {
	if capacity < 0 {
		capacity = 0
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	b.data = make([]core.Frame, capacity)
	b.capacity = capacity
	b.head = 0
	b.size = 0
}

func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.size
}

func (b *Buffer) Cap() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.capacity
}
