// internal/drivers/opencv/capture.go
package opencv

import (
	"fmt"
	"time"

	"github.com/sua-org/court-cam/internal/core"
	"github.com/sua-org/court-cam/internal/drivers"
	"gocv.io/x/gocv"
)

// capture lê RTSP/HTTP/arquivo via OpenCV (backend FFmpeg do próprio OpenCV).
type capture struct {
	uri string
	vc  *gocv.VideoCapture
	mat gocv.Mat
	fps float64
	seq uint64
}

func init() {
	for _, scheme := range []string{"rtsp", "rtsps", "rtmp", "http", "https", "file", "udp"} {
		drivers.Register(scheme, New)
	}
	drivers.RegisterDefault(New)
}

func New(src core.Source) (drivers.FrameSource, error) {
	if src.URI == "" {
		return nil, fmt.Errorf("source %q sem uri", src.Name)
	}
	return &capture{uri: src.URI}, nil
}

func (c *capture) Open() error {
	vc, err := gocv.VideoCaptureFile(c.uri)
	if err != nil {
		return fmt.Errorf("abrir stream: %w", err)
	}
	if !vc.IsOpened() {
		vc.Close()
		return fmt.Errorf("stream não abriu")
	}
	// buffer mínimo pra manter o frame "ao vivo"
	vc.Set(gocv.VideoCaptureBufferSize, 1)

	c.vc = vc
	c.mat = gocv.NewMat()
	c.fps = vc.Get(gocv.VideoCaptureFPS)
	return nil
}

func (c *capture) FPS() float64 { return c.fps }

func (c *capture) Read() (core.Frame, error) {
	if c.vc == nil {
		return core.Frame{}, drivers.ErrNotOpen
	}
	if ok := c.vc.Read(&c.mat); !ok || c.mat.Empty() {
		return core.Frame{}, drivers.ErrReadFailed
	}
	c.seq++
	return core.Frame{
		// ToBytes copia os dados do Mat
		Data:      c.mat.ToBytes(),
		Width:     c.mat.Cols(),
		Height:    c.mat.Rows(),
		Channels:  c.mat.Channels(),
		Seq:       c.seq,
		Timestamp: time.Now(),
	}, nil
}

func (c *capture) Close() error {
	if c.vc == nil {
		return nil
	}
	c.mat.Close()
	err := c.vc.Close()
	c.vc = nil
	return err
}
