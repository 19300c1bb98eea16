// Package feed broadcasts prediction results over MQTT so dashboards and
// downstream consumers can follow fleet health without polling. The feed
// is strictly best-effort: a broker outage never fails a prediction.
package feed

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/satria-tarigan/predictive-maintenance-copilot-backend/internal/models"
	"github.com/satria-tarigan/predictive-maintenance-copilot-backend/internal/utils"
)

// Publisher pushes prediction results to interested consumers.
type Publisher interface {
	PublishPrediction(result models.PredictionResult)
	Close()
}

// MQTTConfig holds broker connection parameters.
type MQTTConfig struct {
	Broker         string
	ClientID       string
	Username       string
	Password       string
	Topic          string // e.g. "fleet/predictions/{machine_id}"
	QoS            byte
	ConnectTimeout time.Duration
}

// MQTTPublisher implements Publisher over a paho MQTT client.
type MQTTPublisher struct {
	logger *slog.Logger
	client mqtt.Client
	topic  string
	qos    byte
}

// NewMQTTPublisher connects to the broker and returns a ready publisher.
func NewMQTTPublisher(logger *slog.Logger, cfg MQTTConfig) (*MQTTPublisher, error) {
	if cfg.Broker == "" {
		return nil, fmt.Errorf("mqtt broker address is required")
	}
	if cfg.ClientID == "" {
		cfg.ClientID = "copilot-server"
	}
	if cfg.Topic == "" {
		cfg.Topic = "fleet/predictions/{machine_id}"
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = 5 * time.Second
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(cfg.ClientID)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}
	opts.SetConnectTimeout(cfg.ConnectTimeout)
	opts.SetAutoReconnect(true)

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(cfg.ConnectTimeout) {
		return nil, fmt.Errorf("mqtt connect to %s timed out", cfg.Broker)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("mqtt connect to %s: %w", cfg.Broker, err)
	}

	return &MQTTPublisher{
		logger: utils.ComponentLogger(logger, "feed"),
		client: client,
		topic:  cfg.Topic,
		qos:    cfg.QoS,
	}, nil
}

// PublishPrediction marshals the result and publishes it to the
// per-machine topic. Errors are logged, never returned.
func (p *MQTTPublisher) PublishPrediction(result models.PredictionResult) {
	payload, err := json.Marshal(result)
	if err != nil {
		p.logger.Warn("marshal prediction for feed", slog.Any("error", err))
		return
	}

	topic := strings.ReplaceAll(p.topic, "{machine_id}", result.MachineID)
	token := p.client.Publish(topic, p.qos, false, payload)
	go func() {
		if token.Wait() && token.Error() != nil {
			p.logger.Warn("publish prediction",
				slog.String("topic", topic),
				slog.Any("error", token.Error()))
		}
	}()
}

// Close disconnects from the broker.
func (p *MQTTPublisher) Close() {
	p.client.Disconnect(250)
}

// NoopPublisher discards every prediction; used when the feed is disabled.
type NoopPublisher struct{}

func (NoopPublisher) PublishPrediction(models.PredictionResult) {}
func (NoopPublisher) Close()                                    {}
