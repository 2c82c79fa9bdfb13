package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// publishTimeout bounds the broker round trip; the caller runs on the event
// loop and must not stall behind an unreachable broker
const publishTimeout = 5 * time.Second

// MQTTPublisher delivers records to an MQTT broker, one topic per session:
// <prefix>/calls/<session_id>/ended.
type MQTTPublisher struct {
	client mqtt.Client
	prefix string
	qos    byte
}

// MQTTOptions configures the MQTT publisher.
type MQTTOptions struct {
	Broker      string
	ClientID    string
	TopicPrefix string
	QoS         byte
}

// NewMQTTPublisher creates and connects an MQTT publisher.
func NewMQTTPublisher(opts MQTTOptions) (*MQTTPublisher, error) {
	clientOpts := mqtt.NewClientOptions().
		AddBroker(opts.Broker).
		SetClientID(opts.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetMaxReconnectInterval(60 * time.Second)

	client := mqtt.NewClient(clientOpts)
	token := client.Connect()
	token.Wait()
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connecting to MQTT broker %s: %w", opts.Broker, err)
	}

	return &MQTTPublisher{
		client: client,
		prefix: opts.TopicPrefix,
		qos:    opts.QoS,
	}, nil
}

func (p *MQTTPublisher) Publish(_ context.Context, rec Record) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encoding record: %w", err)
	}

	topic := fmt.Sprintf("%s/calls/%s/ended", p.prefix, rec.SessionID)
	token := p.client.Publish(topic, p.qos, false, payload)
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("publishing record for session %s: timed out after %s", rec.SessionID, publishTimeout)
	}
	return token.Error()
}

func (p *MQTTPublisher) Close() error {
	p.client.Disconnect(1000)
	return nil
}
