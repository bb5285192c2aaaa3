// internal/drivers/synthetic.go
package drivers

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sua-org/court-cam/internal/core"
)

// synthetic://640x480@20?fail_after=100
// Gera um padrão de teste; útil para rodar sem câmera e em testes.
type syntheticSource struct {
	width, height int
	fps           float64
	failAfter     uint64

	open bool
	seq  uint64
	last time.Time
	now  func() time.Time
	wait func(time.Duration)
}

func init() {
	Register("synthetic", NewSynthetic)
}

func NewSynthetic(src core.Source) (FrameSource, error) {
	u, err := url.Parse(src.URI)
	if err != nil {
		return nil, fmt.Errorf("synthetic uri inválida %q: %w", src.URI, err)
	}

	s := &syntheticSource{width: 640, height: 480, fps: 20, now: time.Now, wait: time.Sleep}

	// "640x480@20" é lido pelo net/url como userinfo@host
	dims := u.Host
	if u.User != nil {
		dims = u.User.String() + "@" + u.Host
	}
	if at := strings.IndexByte(dims, '@'); at >= 0 {
		fps, err := strconv.ParseFloat(dims[at+1:], 64)
		if err != nil {
			return nil, fmt.Errorf("synthetic fps inválido %q: %w", dims[at+1:], err)
		}
		s.fps = fps
		dims = dims[:at]
	}
	if dims != "" {
		if _, err := fmt.Sscanf(dims, "%dx%d", &s.width, &s.height); err != nil {
			return nil, fmt.Errorf("synthetic resolução inválida %q: %w", dims, err)
		}
	}
	if v := u.Query().Get("fail_after"); v != "" {
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("synthetic fail_after inválido %q: %w", v, err)
		}
		s.failAfter = n
	}
	if s.width <= 0 || s.height <= 0 {
		return nil, fmt.Errorf("synthetic resolução inválida %dx%d", s.width, s.height)
	}
	return s, nil
}

func (s *syntheticSource) Open() error {
	s.open = true
	s.seq = 0
	s.last = time.Time{}
	return nil
}

func (s *syntheticSource) FPS() float64 { return s.fps }

func (s *syntheticSource) Read() (core.Frame, error) {
	if !s.open {
		return core.Frame{}, ErrNotOpen
	}
	if s.failAfter > 0 && s.seq >= s.failAfter {
		return core.Frame{}, fmt.Errorf("%w: synthetic stream ended after %d frames", ErrReadFailed, s.seq)
	}

	// respeita o ritmo do fps informado
	if s.fps > 0 && !s.last.IsZero() {
		interval := time.Duration(float64(time.Second) / s.fps)
		if d := interval - s.now().Sub(s.last); d > 0 {
			s.wait(d)
		}
	}
	s.last = s.now()
	s.seq++

	f := core.Blank(s.width, s.height)
	f.Seq = s.seq
	f.Timestamp = s.last
	shift := int(s.seq)
	for y := 0; y < s.height; y++ {
		row := y * s.width * 3
		for x := 0; x < s.width; x++ {
			p := row + x*3
			f.Data[p+0] = byte(x + shift)
			f.Data[p+1] = byte(y)
			f.Data[p+2] = byte(x ^ y)
		}
	}
	return f, nil
}

func (s *syntheticSource) Close() error {
	s.open = false
	return nil
}
