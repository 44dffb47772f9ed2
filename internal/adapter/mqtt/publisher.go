// Package mqtt publishes sampled tag values to an MQTT broker. Publishing
// is best-effort egress: a broker failure never affects polling or the
// latest-value registry.
package mqtt

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"
	"github.com/savushkin-dev/scada-gateway/internal/domain"
	"github.com/savushkin-dev/scada-gateway/internal/metrics"
)

// Config holds MQTT publisher configuration.
type Config struct {
	BrokerURL      string
	ClientID       string
	Username       string
	Password       string
	TopicPrefix    string
	QoS            byte
	KeepAlive      time.Duration
	ConnectTimeout time.Duration
	PublishTimeout time.Duration
}

// Publisher handles publishing tag values to the MQTT broker.
type Publisher struct {
	config    Config
	client    pahomqtt.Client
	logger    zerolog.Logger
	metrics   *metrics.Registry
	mu        sync.RWMutex
	connected atomic.Bool

	published atomic.Uint64
	failed    atomic.Uint64
}

// NewPublisher creates a new MQTT publisher.
func NewPublisher(config Config, logger zerolog.Logger, metricsReg *metrics.Registry) *Publisher {
	if config.ClientID == "" {
		config.ClientID = "scada-gateway"
	}
	if config.TopicPrefix == "" {
		config.TopicPrefix = "scada"
	}
	if config.KeepAlive == 0 {
		config.KeepAlive = 30 * time.Second
	}
	if config.ConnectTimeout == 0 {
		config.ConnectTimeout = 10 * time.Second
	}
	if config.PublishTimeout == 0 {
		config.PublishTimeout = 5 * time.Second
	}

	return &Publisher{
		config:  config,
		logger:  logger.With().Str("component", "mqtt-publisher").Logger(),
		metrics: metricsReg,
	}
}

// Connect establishes the connection to the MQTT broker.
func (p *Publisher) Connect(ctx context.Context) error {
	opts := pahomqtt.NewClientOptions()
	opts.AddBroker(p.config.BrokerURL)
	opts.SetClientID(p.config.ClientID)
	opts.SetKeepAlive(p.config.KeepAlive)
	opts.SetConnectTimeout(p.config.ConnectTimeout)
	opts.SetAutoReconnect(true)

	if p.config.Username != "" {
		opts.SetUsername(p.config.Username)
		opts.SetPassword(p.config.Password)
	}

	opts.SetOnConnectHandler(func(pahomqtt.Client) {
		p.connected.Store(true)
		p.logger.Info().Msg("MQTT connection established")
	})
	opts.SetConnectionLostHandler(func(_ pahomqtt.Client, err error) {
		p.connected.Store(false)
		p.logger.Warn().Err(err).Msg("MQTT connection lost")
	})

	p.mu.Lock()
	p.client = pahomqtt.NewClient(opts)
	client := p.client
	p.mu.Unlock()

	p.logger.Info().Str("broker", p.config.BrokerURL).Msg("Connecting to MQTT broker")

	token := client.Connect()
	done := make(chan bool, 1)
	go func() { done <- token.WaitTimeout(p.config.ConnectTimeout) }()

	select {
	case ok := <-done:
		if !ok {
			return fmt.Errorf("%w: connection timeout", domain.ErrMQTTConnectionFailed)
		}
		if token.Error() != nil {
			return fmt.Errorf("%w: %v", domain.ErrMQTTConnectionFailed, token.Error())
		}
	case <-ctx.Done():
		return fmt.Errorf("%w: %v", domain.ErrMQTTConnectionFailed, ctx.Err())
	}

	p.connected.Store(true)
	return nil
}

// Disconnect gracefully disconnects from the MQTT broker.
func (p *Publisher) Disconnect() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.client != nil && p.client.IsConnected() {
		p.client.Disconnect(1000) // wait up to 1s for pending messages
	}
	p.connected.Store(false)
	p.logger.Info().Msg("Disconnected from MQTT broker")
}

// Publish publishes one tag value. The topic is
// <prefix>/<serverID>/<sanitized tag name>.
func (p *Publisher) Publish(ctx context.Context, tv *domain.TagValue) error {
	p.mu.RLock()
	client := p.client
	p.mu.RUnlock()

	if client == nil || !p.connected.Load() {
		p.failed.Add(1)
		return domain.ErrMQTTNotConnected
	}

	payload, err := tv.ToJSON()
	if err != nil {
		return fmt.Errorf("failed to serialize tag value: %w", err)
	}

	token := client.Publish(p.topicFor(tv), p.config.QoS, false, payload)
	done := make(chan bool, 1)
	go func() { done <- token.WaitTimeout(p.config.PublishTimeout) }()

	select {
	case ok := <-done:
		if !ok {
			p.recordFailure()
			return fmt.Errorf("%w: publish timeout", domain.ErrMQTTPublishFailed)
		}
		if token.Error() != nil {
			p.recordFailure()
			return fmt.Errorf("%w: %v", domain.ErrMQTTPublishFailed, token.Error())
		}
	case <-ctx.Done():
		p.recordFailure()
		return fmt.Errorf("%w: %v", domain.ErrMQTTPublishFailed, ctx.Err())
	}

	p.published.Add(1)
	if p.metrics != nil {
		p.metrics.RecordMQTTPublish(true)
	}
	return nil
}

func (p *Publisher) recordFailure() {
	p.failed.Add(1)
	if p.metrics != nil {
		p.metrics.RecordMQTTPublish(false)
	}
}

// topicFor builds the publish topic for a tag value.
func (p *Publisher) topicFor(tv *domain.TagValue) string {
	name := tv.TagName
	if name == "" {
		name = tv.TagID
	}
	return p.config.TopicPrefix + "/" + tv.ServerID + "/" + sanitizeTopicSegment(name)
}

// sanitizeTopicSegment replaces characters with special MQTT meaning.
func sanitizeTopicSegment(s string) string {
	s = strings.TrimSpace(s)
	for _, c := range []string{"/", "#", "+", " "} {
		s = strings.ReplaceAll(s, c, "_")
	}
	return strings.Trim(s, "_")
}

// IsConnected returns true if the publisher is connected to the broker.
func (p *Publisher) IsConnected() bool {
	return p.connected.Load()
}

// Published returns the number of successfully published messages.
func (p *Publisher) Published() uint64 { return p.published.Load() }

// Failed returns the number of failed publishes.
func (p *Publisher) Failed() uint64 { return p.failed.Load() }

// HealthCheck implements the health.Checker interface.
func (p *Publisher) HealthCheck(ctx context.Context) error {
	if !p.connected.Load() {
		return domain.ErrMQTTNotConnected
	}
	return nil
}
