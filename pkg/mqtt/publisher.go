package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"

	"github.com/alexsears/tentOS/pkg/common"
	"github.com/alexsears/tentOS/pkg/metrics"
	"github.com/alexsears/tentOS/pkg/state"
	"github.com/alexsears/tentOS/pkg/tent"
)

const (
	SubscriberID = "mqtt"

	connectTimeout = 10 * time.Second
	disconnectWait = 250
)

// Client is the part of paho's client the publisher needs.
type Client interface {
	Publish(topic string, qos byte, retained bool, payload any) paho.Token
	Disconnect(quiesce uint)
}

// Connect dials the broker. paho keeps reconnecting on its own afterwards.
func Connect(broker, clientID string) (paho.Client, error) {
	opts := paho.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectTimeout(connectTimeout).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			common.GetLoggerWith(common.LoggerNameMQTTPublisher).
				Warn("MQTT connection lost", zap.Error(err))
		})

	client := paho.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		return nil, fmt.Errorf("connect to mqtt broker %s: timed out", broker)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect to mqtt broker %s: %w", broker, err)
	}
	return client, nil
}

// Publisher is a hub subscriber that mirrors tent snapshots to retained
// topics <prefix>/<tent_id>/state.
type Publisher struct {
	client  Client
	prefix  string
	metrics *metrics.Metrics
}

func NewPublisher(client Client, prefix string, m *metrics.Metrics) *Publisher {
	return &Publisher{
		client:  client,
		prefix:  strings.Trim(prefix, "/"),
		metrics: m,
	}
}

func (p *Publisher) ID() string {
	return SubscriberID
}

func (p *Publisher) Topic(tentID string) string {
	return p.prefix + "/" + tentID + "/state"
}

// Send never reports an error: a broker outage must not unregister the sink.
func (p *Publisher) Send(ctx context.Context, msg state.Message) error {
	switch msg.Type {
	case state.MessageTentUpdate:
		if msg.Data != nil {
			p.publish(ctx, *msg.Data)
		}
	case state.MessageInitialState:
		for _, snapshot := range msg.Tents {
			p.publish(ctx, snapshot)
		}
	}
	return nil
}

func (p *Publisher) publish(ctx context.Context, snapshot tent.Snapshot) {
	logger := common.GetLoggerWith(
		common.LoggerNameMQTTPublisher,
		zap.String("tent_id", snapshot.ID),
	)

	payload, err := json.Marshal(snapshot)
	if err != nil {
		logger.Error("Error marshalling tent snapshot", zap.Error(err))
		return
	}

	topic := p.Topic(snapshot.ID)
	token := p.client.Publish(topic, 0, true, payload)

	select {
	case <-token.Done():
	case <-ctx.Done():
		logger.Warn("MQTT publish abandoned", zap.String("topic", topic), zap.Error(ctx.Err()))
		return
	}

	if err := token.Error(); err != nil {
		logger.Warn("Failed to publish tent snapshot", zap.String("topic", topic), zap.Error(err))
		return
	}
	p.metrics.MQTTPublished()
}

func (p *Publisher) Close() {
	p.client.Disconnect(disconnectWait)
}
