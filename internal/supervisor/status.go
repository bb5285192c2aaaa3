// internal/supervisor/status.go
package supervisor

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/sua-org/court-cam/internal/core"
	"github.com/sua-org/court-cam/internal/layout"
)

func (s *Supervisor) runStatusLoop(ctx context.Context) {
	hostname, _ := os.Hostname()
	ticker := time.NewTicker(s.cfg.StatusInterval)
	defer ticker.Stop()

	log.Printf("[supervisor] status loop iniciado (intervalo=%s)", s.cfg.StatusInterval)

	for {
		select {
		case <-ctx.Done():
			log.Printf("[supervisor] status loop encerrado (context canceled)")
			return
		case t := <-ticker.C:
			s.PublishStatuses(hostname, t)
		}
	}
}

// PublishStatuses publica o status de cada câmera e o status do coletor (retained).
func (s *Supervisor) PublishStatuses(hostname string, now time.Time) {
	if s.mqtt == nil {
		return
	}

	online := 0
	for _, src := range s.sources {
		st, _ := s.State(src.ID)
		if st.Online() {
			online++
		}
		if err := s.publishSourceStatus(src, st, now); err != nil {
			log.Printf("[status] erro ao publicar status da câmera %s: %v", src.Name, err)
		}
	}

	if err := s.publishCollectorStatus(hostname, online, now); err != nil {
		log.Printf("[status] erro ao publicar status do collector: %v", err)
	}
}

func (s *Supervisor) publishSourceStatus(src core.Source, st core.SourceState, now time.Time) error {
	n, capacity := s.BufferStats(src.ID)
	payload := map[string]interface{}{
		"source_id":    src.ID,
		"name":         src.Name,
		"group_id":     src.GroupID,
		"status":       string(st.Status),
		"status_since": st.Since.UTC().Format(time.RFC3339),
		"fps":          st.FPS,
		"recording":    st.Recording,
		"failures":     st.Failures,
		"frames":       st.Frames,
		"buffer_len":   n,
		"buffer_cap":   capacity,
		"timestamp":    now.UTC().Format(time.RFC3339),
	}
	if !st.LastFrameAt.IsZero() {
		payload["last_frame_at"] = st.LastFrameAt.UTC().Format(time.RFC3339)
	}
	if st.LastError != "" {
		payload["last_error"] = st.LastError
	}
	if st.Width > 0 {
		payload["resolution"] = fmt.Sprintf("%dx%d", st.Width, st.Height)
	}

	b, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal camera status: %w", err)
	}

	topic := s.SourceTopic(src, "status")
	if err := s.mqtt.Publish(topic, 1, true, b); err != nil {
		return fmt.Errorf("publish camera status to %s: %w", topic, err)
	}
	return nil
}

func (s *Supervisor) publishCollectorStatus(hostname string, online int, now time.Time) error {
	var (
		cpuPercent  float64
		memPercent  float64
		memRSSBytes uint64
	)
	if s.proc != nil {
		if cpu, err := s.proc.CPUPercent(); err == nil {
			cpuPercent = cpu
		}
		if memInfo, err := s.proc.MemoryInfo(); err == nil {
			memRSSBytes = memInfo.RSS
		}
		if memP, err := s.proc.MemoryPercent(); err == nil {
			memPercent = float64(memP)
		}
	}

	payload := map[string]interface{}{
		"collector":        "court-cam",
		"status":           "online",
		"timestamp":        now.UTC().Format(time.RFC3339),
		"hostname":         hostname,
		"cameras":          len(s.sources),
		"cameras_online":   online,
		"cpu_percent":      cpuPercent,
		"memory_percent":   memPercent,
		"memory_rss_bytes": memRSSBytes,
	}

	b, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal collector status: %w", err)
	}

	topic := s.baseTopic + "/collector/status"
	if err := s.mqtt.Publish(topic, 1, true, b); err != nil {
		return fmt.Errorf("publish collector status to %s: %w", topic, err)
	}

	log.Printf("[status] collector online -> %s (%d/%d câmeras online)", topic, online, len(s.sources))
	return nil
}

// SourceTopic: <base>/<group>/<câmera>/<suffix>
func (s *Supervisor) SourceTopic(src core.Source, suffix string) string {
	return fmt.Sprintf("%s/%d/%s/%s", s.baseTopic, src.GroupID, layout.Sanitize(src.Name), suffix)
}
