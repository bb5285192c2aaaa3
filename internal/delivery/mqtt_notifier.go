// internal/delivery/mqtt_notifier.go
package delivery

import (
	"encoding/json"
	"log"
	"time"

	"github.com/sua-org/court-cam/internal/core"
)

type Publisher interface {
	Publish(topic string, qos byte, retained bool, payload []byte) error
}

// MQTTNotifier publica um evento por clip entregue em <base>/<grupo>/<câmera>/clips.
type MQTTNotifier struct {
	mqtt    Publisher
	topicOf func(src core.Source, suffix string) string
}

func NewMQTTNotifier(mqtt Publisher, topicOf func(src core.Source, suffix string) string) *MQTTNotifier {
	if mqtt == nil || topicOf == nil {
		return nil
	}
	return &MQTTNotifier{mqtt: mqtt, topicOf: topicOf}
}

func (n *MQTTNotifier) Notify(clip core.Clip, results []Result) {
	payload := map[string]interface{}{
		"source_id":  clip.Source.ID,
		"source":     clip.Source.Name,
		"group_id":   clip.Source.GroupID,
		"file":       clip.Path,
		"converted":  clip.Converted,
		"started_at": clip.StartedAt.UTC().Format(time.RFC3339),
		"seconds":    clip.Duration.Seconds(),
		"results":    results,
		"timestamp":  time.Now().UTC().Format(time.RFC3339),
	}
	b, err := json.Marshal(payload)
	if err != nil {
		log.Printf("[delivery] erro ao marshalar evento de clip: %v", err)
		return
	}
	topic := n.topicOf(clip.Source, "clips")
	if err := n.mqtt.Publish(topic, 1, false, b); err != nil {
		log.Printf("[delivery] erro ao publicar evento de clip em %s: %v", topic, err)
	}
}
