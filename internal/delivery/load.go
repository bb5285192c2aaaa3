// internal/delivery/load.go
package delivery

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/sua-org/court-cam/internal/core"
	"github.com/sua-org/court-cam/internal/storage"
)

// Deps são as dependências opcionais; nil desabilita o sink correspondente.
type Deps struct {
	API      CourtAPI
	Store    storage.ObjectStore
	MQTT     Publisher
	TopicFor func(src core.Source, suffix string) string
}

// LoadFromEnv monta os sinks habilitados.
//
// DELIVERY_SINKS="api,minio,mqtt" (default: todos os que tiverem dependência configurada)
func LoadFromEnv(deps Deps) *Manager {
	names := parseCSV(os.Getenv("DELIVERY_SINKS"))
	if len(names) == 0 {
		names = []string{"api", "minio", "mqtt"}
	}

	timeout := envDurationSeconds("DELIVERY_TIMEOUT_SECONDS", 5*time.Minute)
	maxBytes := int64(envInt("UPLOAD_MAX_BYTES", DefaultMaxUploadBytes))
	window := time.Duration(envInt("BOOKING_WINDOW_MINUTES", 15)) * time.Minute

	var (
		list     []Sink
		notifier Notifier
	)
	for _, n := range names {
		switch strings.ToLower(n) {
		case "api":
			if deps.API == nil {
				log.Printf("[delivery] sink api sem BOOKING_API_URL (ignorando)")
				continue
			}
			list = append(list, NewUploader(deps.API, maxBytes, window))
		case "minio", "s3":
			if deps.Store == nil {
				log.Printf("[delivery] sink minio sem storage configurado (ignorando)")
				continue
			}
			list = append(list, NewArchiver(deps.Store))
		case "mqtt":
			if nt := NewMQTTNotifier(deps.MQTT, deps.TopicFor); nt != nil {
				notifier = nt
			}
		default:
			log.Printf("[delivery] sink %q desconhecido (ignorando)", n)
		}
	}

	m := NewManager(list, notifier, timeout)
	if m.Enabled() {
		log.Printf("[delivery] sinks habilitados: %s", strings.Join(m.Names(), ","))
	} else {
		log.Printf("[delivery] nenhum sink habilitado (clips ficam só no disco)")
	}
	return m
}

func parseCSV(v string) []string {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		s := strings.TrimSpace(p)
		if s == "" {
			continue
		}
		out = append(out, s)
	}
	return out
}

func envDurationSeconds(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	sec, err := strconv.Atoi(v)
	if err != nil || sec <= 0 {
		return def
	}
	return time.Duration(sec) * time.Second
}

func envInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return def
	}
	return n
}
