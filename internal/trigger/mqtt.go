// internal/trigger/mqtt.go
package trigger

import (
	"log"
	"strings"
)

type Subscriber interface {
	Subscribe(topic string, qos byte, handler func(topic string, payload []byte)) error
	Publish(topic string, qos byte, retained bool, payload []byte) error
}

// SubscribeMQTT liga o dispatcher em <base>/trigger; respostas vão para
// <base>/trigger/reply.
func SubscribeMQTT(sub Subscriber, baseTopic string, disp *Dispatcher) error {
	base := strings.TrimSuffix(baseTopic, "/")
	topic := base + "/trigger"
	replyTopic := topic + "/reply"

	err := sub.Subscribe(topic, 1, func(_ string, payload []byte) {
		// callback do paho: não segurar a goroutine de rede
		go func(msg string) {
			resp := disp.Handle(msg, NoGroup)
			log.Printf("[trigger] mqtt %q -> %s", strings.TrimSpace(msg), resp)
			if err := sub.Publish(replyTopic, 1, false, []byte(resp)); err != nil {
				log.Printf("[trigger] erro ao publicar resposta em %s: %v", replyTopic, err)
			}
		}(string(payload))
	})
	if err != nil {
		return err
	}
	log.Printf("[trigger] assinado em %s", topic)
	return nil
}
