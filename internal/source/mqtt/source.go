// Package mqtt provides an event source consuming decoded events from an
// MQTT topic, the transport used by serial-to-MQTT radio bridge firmware.
// Paho invokes subscription callbacks on its own goroutines; incoming
// publishes are funneled through a channel so the handler always runs on a
// single goroutine and dispatch stays serialized.
package mqtt

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"ramses-exporter/internal/config"
	"ramses-exporter/internal/domain"
	"ramses-exporter/internal/source"
)

// ErrConnectFailed is returned when the initial broker connection fails.
var ErrConnectFailed = errors.New("mqtt connect failed")

// Source implements source.Source over an MQTT subscription.
type Source struct {
	cfg    *config.MQTTConfig
	client pahomqtt.Client
	events chan *domain.Event
	logger *slog.Logger
}

// NewSource connects to the broker. Connection failure is returned to the
// caller (startup-fatal); reconnects after a successful start are handled by
// paho, which also restores the subscription.
func NewSource(cfg *config.MQTTConfig, logger *slog.Logger) (*Source, error) {
	opts := pahomqtt.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID).
		SetAutoReconnect(true).
		SetOrderMatters(true).
		SetResumeSubs(true)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}

	s := &Source{
		cfg:    cfg,
		events: make(chan *domain.Event, 256),
		logger: logger,
	}

	opts.SetConnectionLostHandler(func(_ pahomqtt.Client, err error) {
		logger.Warn("mqtt connection lost", "error", err)
	})
	opts.SetOnConnectHandler(func(_ pahomqtt.Client) {
		logger.Info("mqtt connected", "broker", cfg.Broker)
	})

	client := pahomqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnectFailed, token.Error())
	}
	s.client = client
	return s, nil
}

// Start subscribes to the event topic and delivers decoded events to the
// handler, one at a time, until the context is canceled.
func (s *Source) Start(ctx context.Context, handler source.Handler) error {
	token := s.client.Subscribe(s.cfg.Topic, s.cfg.QoS, func(_ pahomqtt.Client, msg pahomqtt.Message) {
		ev, err := source.Decode(msg.Payload())
		if err != nil {
			s.logger.Warn("skipping undecodable message", "error", err, "topic", msg.Topic())
			return
		}
		select {
		case s.events <- ev:
		case <-ctx.Done():
		}
	})
	if token.Wait() && token.Error() != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", s.cfg.Topic, token.Error())
	}

	s.logger.Info("starting mqtt event source", "broker", s.cfg.Broker, "topic", s.cfg.Topic)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("mqtt event source stopping")
			return ctx.Err()
		case ev := <-s.events:
			if err := handler(ctx, ev); err != nil {
				s.logger.Error("failed to process event", "error", err, "event_id", ev.ID)
			}
		}
	}
}

// Close unsubscribes and disconnects from the broker.
func (s *Source) Close() error {
	if s.client != nil && s.client.IsConnected() {
		s.client.Unsubscribe(s.cfg.Topic).Wait()
		s.client.Disconnect(250)
	}
	return nil
}
