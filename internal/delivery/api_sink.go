// internal/delivery/api_sink.go
package delivery

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/sua-org/court-cam/internal/core"
)

const (
	DefaultMaxUploadBytes = 100 << 20
	DefaultBookingWindow  = 15 * time.Minute
)

// CourtAPI é o que o upload precisa da API de reservas (bookingapi.Client).
type CourtAPI interface {
	ResolveCourt(ctx context.Context, name string, externalID int) (string, error)
	CreateBooking(ctx context.Context, courtID string, start, end time.Time) (string, error)
	UploadVideo(ctx context.Context, bookingID, path, sourceName string) (string, error)
}

// Uploader: resolve quadra -> cria reserva -> envia vídeo.
// Cada passo interrompe a cadeia se falhar. Sem retry e sem compensação:
// uma reserva criada cujo upload falhou fica órfã na API.
type Uploader struct {
	api      CourtAPI
	maxBytes int64
	window   time.Duration
}

func NewUploader(api CourtAPI, maxBytes int64, window time.Duration) *Uploader {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxUploadBytes
	}
	if window <= 0 {
		window = DefaultBookingWindow
	}
	return &Uploader{api: api, maxBytes: maxBytes, window: window}
}

func (u *Uploader) Name() string  { return "api" }
func (u *Uploader) Enabled() bool { return u != nil && u.api != nil }

func (u *Uploader) Deliver(ctx context.Context, clip core.Clip) (string, error) {
	return u.Upload(ctx, clip.Path, clip.Source.Name, clip.Source.GroupID, clip.Source.Court(), clip.StartedAt)
}

// Upload devolve o id do vídeo criado na API.
func (u *Uploader) Upload(ctx context.Context, path, sourceName string, groupID int, courtName string, start time.Time) (string, error) {
	st, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("%w: %v", core.ErrUpload, err)
	}
	if st.Size() > u.maxBytes {
		return "", fmt.Errorf("%w: %s tem %d bytes (limite %d)", core.ErrPayloadTooLarge, path, st.Size(), u.maxBytes)
	}

	courtID, err := u.api.ResolveCourt(ctx, courtName, groupID)
	if err != nil {
		return "", fmt.Errorf("%w: resolver quadra %q: %v", core.ErrUpload, courtName, err)
	}

	end := start.Add(u.window)
	bookingID, err := u.api.CreateBooking(ctx, courtID, start, end)
	if err != nil {
		return "", fmt.Errorf("%w: criar reserva (quadra %s): %v", core.ErrUpload, courtID, err)
	}

	videoID, err := u.api.UploadVideo(ctx, bookingID, path, sourceName)
	if err != nil {
		return "", fmt.Errorf("%w: enviar vídeo (reserva %s): %v", core.ErrUpload, bookingID, err)
	}

	log.Printf("[delivery] upload ok: %s -> quadra=%s reserva=%s video=%s", path, courtID, bookingID, videoID)
	return videoID, nil
}
