// internal/drivers/opencv/writer.go
package opencv

import (
	"fmt"

	"github.com/sua-org/court-cam/internal/core"
	"github.com/sua-org/court-cam/internal/drivers"
	"gocv.io/x/gocv"
)

// Codec do container de captura (.avi). A conversão para mp4 fica com o ffmpeg.
const Codec = "XVID"

type videoWriter struct {
	path          string
	vw            *gocv.VideoWriter
	width, height int
}

// NewVideoWriter implementa drivers.WriterFactory.
func NewVideoWriter(path string, fps float64, width, height int) (drivers.VideoWriter, error) {
	vw, err := gocv.VideoWriterFile(path, Codec, fps, width, height, true)
	if err != nil {
		return nil, fmt.Errorf("abrir writer %s: %w", path, err)
	}
	if !vw.IsOpened() {
		vw.Close()
		return nil, fmt.Errorf("writer %s não abriu (codec %s)", path, Codec)
	}
	return &videoWriter{path: path, vw: vw, width: width, height: height}, nil
}

func (w *videoWriter) Write(f core.Frame) error {
	if f.Width != w.width || f.Height != w.height {
		return fmt.Errorf("frame %dx%d não bate com writer %dx%d", f.Width, f.Height, w.width, w.height)
	}
	mat, err := toBGR(f)
	if err != nil {
		return err
	}
	defer mat.Close()
	return w.vw.Write(mat)
}

func (w *videoWriter) Close() error {
	return w.vw.Close()
}

// toBGR monta um Mat 8UC3 a partir do frame (o writer foi aberto com isColor=true).
func toBGR(f core.Frame) (gocv.Mat, error) {
	var mt gocv.MatType
	switch f.Channels {
	case 1:
		mt = gocv.MatTypeCV8UC1
	case 3:
		mt = gocv.MatTypeCV8UC3
	case 4:
		mt = gocv.MatTypeCV8UC4
	default:
		return gocv.Mat{}, fmt.Errorf("numero de canais nao suportado: %d", f.Channels)
	}

	src, err := gocv.NewMatFromBytes(f.Height, f.Width, mt, f.Data)
	if err != nil {
		return gocv.Mat{}, fmt.Errorf("mat from bytes: %w", err)
	}
	if f.Channels == 3 {
		return src, nil
	}
	defer src.Close()

	dst := gocv.NewMat()
	code := gocv.ColorGrayToBGR
	if f.Channels == 4 {
		code = gocv.ColorBGRAToBGR
	}
	gocv.CvtColor(src, &dst, code)
	return dst, nil
}
