// internal/core/frame.go
package core

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"time"
)

// Frame é um raster 8 bits por canal, canais em ordem BGR (padrão OpenCV).
// Depois de publicado não deve ser alterado; quem precisa mexer usa Clone.
type Frame struct {
	Data      []byte
	Width     int
	Height    int
	Channels  int
	Seq       uint64
	Timestamp time.Time
}

func (f Frame) Empty() bool {
	return len(f.Data) == 0 || f.Width <= 0 || f.Height <= 0
}

func (f Frame) Clone() Frame {
	out := f
	out.Data = append([]byte(nil), f.Data...)
	return out
}

// Blank gera um frame preto BGR.
func Blank(width, height int) Frame {
	return Frame{
		Data:      make([]byte, width*height*3),
		Width:     width,
		Height:    height,
		Channels:  3,
		Timestamp: time.Now(),
	}
}

// Image converte o frame para image.Image (sem cópia extra além da conversão de canais).
func (f Frame) Image() (image.Image, error) {
	if f.Empty() {
		return nil, fmt.Errorf("frame vazio")
	}
	if len(f.Data) < f.Width*f.Height*f.Channels {
		return nil, fmt.Errorf("frame truncado: %d bytes para %dx%dx%d", len(f.Data), f.Width, f.Height, f.Channels)
	}

	switch f.Channels {
	case 1:
		img := image.NewGray(image.Rect(0, 0, f.Width, f.Height))
		copy(img.Pix, f.Data)
		return img, nil
	case 3, 4:
		img := image.NewRGBA(image.Rect(0, 0, f.Width, f.Height))
		for i, p := 0, 0; i < f.Width*f.Height; i, p = i+1, p+f.Channels {
			img.Pix[i*4+0] = f.Data[p+2]
			img.Pix[i*4+1] = f.Data[p+1]
			img.Pix[i*4+2] = f.Data[p+0]
			img.Pix[i*4+3] = 0xff
		}
		return img, nil
	default:
		return nil, fmt.Errorf("numero de canais nao suportado: %d", f.Channels)
	}
}

// EncodeJPEG devolve o frame codificado em JPEG.
func (f Frame) EncodeJPEG(quality int) ([]byte, error) {
	img, err := f.Image()
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("jpeg encode: %w", err)
	}
	return buf.Bytes(), nil
}
