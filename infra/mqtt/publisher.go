package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	coremon "github.com/kilianp07/chargeguard/core/monitoring"
	coremqtt "github.com/kilianp07/chargeguard/core/mqtt"
	"github.com/kilianp07/chargeguard/infra/logger"
	"github.com/kilianp07/chargeguard/internal/eventbus"
)

type pahoClient interface {
	IsConnected() bool
	Connect() paho.Token
	Disconnect(quiesce uint)
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
}

var newMQTTClient = func(opts *paho.ClientOptions) pahoClient {
	return paho.NewClient(opts)
}

// EventPublisher publishes session events through Eclipse Paho.
type EventPublisher struct {
	cli     pahoClient
	prefix  string
	qos     byte
	retries int
	backoff time.Duration
	logger  logger.Logger
}

var _ coremqtt.Publisher = (*EventPublisher)(nil)

// NewEventPublisher connects to the broker described by cfg.
func NewEventPublisher(cfg Config) (*EventPublisher, error) {
	cfg.SetDefaults()
	opts, err := NewClientOptions(cfg)
	if err != nil {
		return nil, err
	}
	log := logger.New("mqtt_publisher")
	p := &EventPublisher{
		prefix:  cfg.TopicPrefix,
		qos:     cfg.QoS,
		retries: cfg.MaxRetries,
		backoff: time.Duration(cfg.BackoffMS) * time.Millisecond,
		logger:  log,
	}
	status := cfg.StatusTopic()
	opts.OnConnect = func(c paho.Client) {
		log.Infof("MQTT connected")
		if token := c.Publish(status, cfg.QoS, true, "online"); token.Wait() && token.Error() != nil {
			log.Errorf("status publish error: %v", token.Error())
		}
	}
	opts.OnConnectionLost = func(_ paho.Client, err error) {
		log.Errorf("connection lost: %v", err)
	}
	opts.OnReconnecting = func(_ paho.Client, _ *paho.ClientOptions) {
		log.Warnf("reconnecting to MQTT broker")
	}
	c := newMQTTClient(opts)
	if token := c.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("mqtt connect %s: %w", cfg.Broker, token.Error())
	}
	p.cli = c
	return p, nil
}

// PublishEvent implements coremqtt.Publisher.
func (p *EventPublisher) PublishEvent(ev eventbus.Event) error {
	msg, ok := MessageFromEvent(ev)
	if !ok {
		return nil
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	topic := msg.Topic(p.prefix)
	var publishErr error
	for attempt := 0; attempt <= p.retries; attempt++ {
		token := p.cli.Publish(topic, p.qos, false, payload)
		token.Wait()
		publishErr = token.Error()
		if publishErr == nil {
			p.logger.Debugf("published %s to %s", msg.Kind, topic)
			return nil
		}
		p.logger.Errorf("publish attempt %d failed: %v", attempt+1, publishErr)
		if attempt < p.retries {
			time.Sleep(p.backoff * time.Duration(1<<attempt))
		}
	}
	err = fmt.Errorf("%w: %s: %v", coremqtt.ErrPublishFailed, topic, publishErr)
	coremon.CaptureException(err, map[string]string{"topic": topic, "station_id": msg.StationID})
	return err
}

// Start publishes every session event from bus until ctx is canceled or the
// bus is closed. The returned channel is closed on exit.
func (p *EventPublisher) Start(ctx context.Context, bus eventbus.EventBus) <-chan struct{} {
	done := make(chan struct{})
	if bus == nil {
		close(done)
		return done
	}
	sub := bus.Subscribe()
	go func() {
		defer close(done)
		defer bus.Unsubscribe(sub)
		for {
			select {
			case <-ctx.Done():
				eventbus.Drain(sub, p.forward)
				return
			case ev, ok := <-sub:
				if !ok {
					return
				}
				p.forward(ev)
			}
		}
	}()
	return done
}

// errors are logged and reported by PublishEvent
func (p *EventPublisher) forward(ev eventbus.Event) { _ = p.PublishEvent(ev) }

// Close publishes the offline status and disconnects.
func (p *EventPublisher) Close() {
	if p.cli == nil || !p.cli.IsConnected() {
		return
	}
	p.cli.Publish(p.prefix+"/status", p.qos, true, "offline").Wait()
	p.cli.Disconnect(250)
}
