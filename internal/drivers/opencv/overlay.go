// internal/drivers/opencv/overlay.go
package opencv

import (
	"image"
	"image/color"
	"time"

	"github.com/sua-org/court-cam/internal/core"
	"gocv.io/x/gocv"
)

var (
	white = color.RGBA{255, 255, 255, 255}
	red   = color.RGBA{255, 0, 0, 255}
)

// Placeholder gera o frame "Camera Offline" servido no slot de preview.
func Placeholder(width, height int) core.Frame {
	if width <= 0 || height <= 0 {
		width, height = 640, 480
	}
	mat := gocv.NewMatWithSize(height, width, gocv.MatTypeCV8UC3)
	defer mat.Close()
	mat.SetTo(gocv.NewScalar(0, 0, 0, 0))

	org := image.Pt(width/2-120, height/2)
	gocv.PutText(&mat, "Camera Offline", org, gocv.FontHersheySimplex, 1, red, 2)

	return core.Frame{
		Data:      mat.ToBytes(),
		Width:     width,
		Height:    height,
		Channels:  3,
		Timestamp: time.Now(),
	}
}

// Annotate desenha data/hora e o indicador REC numa cópia do frame.
func Annotate(f core.Frame, recording bool) core.Frame {
	if f.Empty() || f.Channels != 3 {
		return f
	}
	out := f.Clone()
	mat, err := gocv.NewMatFromBytes(out.Height, out.Width, gocv.MatTypeCV8UC3, out.Data)
	if err != nil {
		return f
	}
	defer mat.Close()

	ts := time.Now().Format("2006-01-02 15:04:05")
	gocv.PutText(&mat, ts, image.Pt(10, 30), gocv.FontHersheySimplex, 0.7, white, 2)

	if recording {
		gocv.Circle(&mat, image.Pt(out.Width-30, 30), 10, red, -1)
		gocv.PutText(&mat, "REC", image.Pt(out.Width-60, 35), gocv.FontHersheySimplex, 0.5, white, 1)
	}

	out.Data = mat.ToBytes()
	return out
}
