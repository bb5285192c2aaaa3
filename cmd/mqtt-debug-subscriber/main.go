package main

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/sua-org/court-cam/internal/mqttclient"
)

func main() {
	_ = godotenv.Load()

	baseTopic := strings.TrimSuffix(getenv("MQTT_BASE_TOPIC", "courts"), "/")

	// status:  base/<grupo>/<câmera>/status
	// clips:   base/<grupo>/<câmera>/clips
	// coletor: base/collector/status
	// trigger: base/trigger/reply
	subscribeTopic := getenv("MQTT_DEBUG_TOPIC", baseTopic+"/#")

	mqttCli, err := mqttclient.NewClientFromEnv("court-cam-debug-subscriber")
	if err != nil {
		log.Fatalf("erro ao conectar no MQTT: %v", err)
	}
	defer mqttCli.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)

	if err := mqttCli.Subscribe(subscribeTopic, 1, handleMessage); err != nil {
		log.Fatalf("erro ao assinar tópico %s: %v", subscribeTopic, err)
	}
	log.Printf("[debug] subscribed to topic: %s", subscribeTopic)

	go func() {
		<-sig
		log.Println("[debug] sinal recebido, encerrando subscriber...")
		cancel()
	}()

	<-ctx.Done()
	time.Sleep(500 * time.Millisecond)
}

func handleMessage(topic string, payload []byte) {
	var raw map[string]interface{}
	if err := json.Unmarshal(payload, &raw); err != nil {
		// respostas de trigger são texto puro
		log.Printf("[debug] %s: %s", topic, string(payload))
		return
	}

	switch {
	case strings.HasSuffix(topic, "/collector/status"):
		log.Printf("[COLLECTOR] host=%s online=%v/%v cpu=%v rss=%v",
			getString(raw, "hostname"), raw["cameras_online"], raw["cameras"], raw["cpu_percent"], raw["memory_rss_bytes"])
	case strings.HasSuffix(topic, "/status"):
		log.Printf("[STATUS] %s status=%s fps=%v falhas=%v rec=%v erro=%s",
			getString(raw, "name"), getString(raw, "status"), raw["fps"], raw["failures"], raw["recording"], getString(raw, "last_error"))
	case strings.HasSuffix(topic, "/clips"):
		log.Printf("[CLIP] %s arquivo=%s segundos=%v início=%s",
			getString(raw, "source"), getString(raw, "file"), raw["seconds"], getString(raw, "started_at"))
		if results, ok := raw["results"].([]interface{}); ok {
			for _, r := range results {
				m, _ := r.(map[string]interface{})
				log.Printf("[CLIP]   sink=%s local=%s erro=%s", getString(m, "sink"), getString(m, "location"), getString(m, "error"))
			}
		}
	default:
		pretty, _ := json.MarshalIndent(raw, "", "  ")
		log.Printf("[debug] %s:\n%s", topic, string(pretty))
	}
}

func getString(m map[string]interface{}, keys ...string) string {
	for _, k := range keys {
		if v, ok := m[k]; ok {
			if s, ok := v.(string); ok {
				return s
			}
		}
	}
	return ""
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
