package notify

import (
	"encoding/json"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/sirupsen/logrus"
)

// MQTTPublisher republishes notifications to an MQTT broker so mobile
// clients without an open websocket still receive them. Topics are
// notifications/<user-id>.
type MQTTPublisher struct {
	client mqtt.Client
	log    *logrus.Logger
}

// NewMQTTPublisher connects to the broker and returns a publisher.
func NewMQTTPublisher(brokerURL, clientID string, log *logrus.Logger) (*MQTTPublisher, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(brokerURL).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second)

	opts.OnConnect = func(mqtt.Client) {
		log.WithField("broker", brokerURL).Info("Connected to MQTT broker")
	}
	opts.OnConnectionLost = func(_ mqtt.Client, err error) {
		log.WithError(err).Warn("Lost connection to MQTT broker")
	}

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		return nil, fmt.Errorf("timed out connecting to MQTT broker %s", brokerURL)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("failed to connect to MQTT broker %s: %w", brokerURL, err)
	}

	return &MQTTPublisher{client: client, log: log}, nil
}

// Push sends a payload to the user's notification topic at QoS 1.
func (p *MQTTPublisher) Push(userID string, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		p.log.WithError(err).Error("Failed to marshal MQTT payload")
		return
	}
	p.client.Publish(fmt.Sprintf("notifications/%s", userID), 1, false, data)
}

// Close disconnects from the broker.
func (p *MQTTPublisher) Close() {
	p.client.Disconnect(250)
}
