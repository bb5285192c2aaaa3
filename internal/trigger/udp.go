// internal/trigger/udp.go
package trigger

import (
	"context"
	"errors"
	"log"
	"net"
	"strconv"
	"strings"
	"sync"
)

const maxDatagram = 1024

// UDPListener recebe comandos de botões/controladores e responde ao remetente.
type UDPListener struct {
	addr  string
	group int
	disp  *Dispatcher

	mu   sync.Mutex
	conn net.PacketConn
	wg   sync.WaitGroup
}

// NewUDPListener: group = NoGroup para o listener principal.
func NewUDPListener(addr string, group int, disp *Dispatcher) *UDPListener {
	return &UDPListener{addr: addr, group: group, disp: disp}
}

// Listen abre o socket; separado de Serve para o chamador saber o endereço real.
func (l *UDPListener) Listen(ctx context.Context) error {
	var lc net.ListenConfig
	conn, err := lc.ListenPacket(ctx, "udp", l.addr)
	if err != nil {
		return err
	}
	l.mu.Lock()
	l.conn = conn
	l.mu.Unlock()
	log.Printf("[trigger] escutando UDP em %s (grupo=%s)", conn.LocalAddr(), groupLabel(l.group))
	return nil
}

func (l *UDPListener) Addr() net.Addr {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.conn == nil {
		return nil
	}
	return l.conn.LocalAddr()
}

// Serve roda o loop de recepção até o ctx acabar. Cada datagrama é tratado
// numa goroutine própria.
func (l *UDPListener) Serve(ctx context.Context) error {
	l.mu.Lock()
	conn := l.conn
	l.mu.Unlock()
	if conn == nil {
		if err := l.Listen(ctx); err != nil {
			return err
		}
		l.mu.Lock()
		conn = l.conn
		l.mu.Unlock()
	}

	go func() {
		<-ctx.Done()
		_ = conn.Close()
	}()

	buf := make([]byte, maxDatagram)
	for {
		n, addr, err := conn.ReadFrom(buf)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				l.wg.Wait()
				log.Printf("[trigger] listener %s encerrado", conn.LocalAddr())
				return nil
			}
			log.Printf("[trigger] erro de leitura em %s: %v", conn.LocalAddr(), err)
			continue
		}
		msg := string(buf[:n])

		l.wg.Add(1)
		go func() {
			defer l.wg.Done()
			l.handle(conn, addr, msg)
		}()
	}
}

func (l *UDPListener) handle(conn net.PacketConn, addr net.Addr, msg string) {
	log.Printf("[trigger] recebido de %s: %q", addr, strings.TrimSpace(msg))
	resp := l.disp.Handle(msg, l.group)
	if _, err := conn.WriteTo([]byte(resp), addr); err != nil {
		log.Printf("[trigger] erro ao responder %s: %v", addr, err)
		return
	}
	log.Printf("[trigger] resposta para %s: %s", addr, resp)
}

func groupLabel(g int) string {
	if g == NoGroup {
		return "todos"
	}
	return strconv.Itoa(g)
}
