// Package mqttbridge connects the device subsystems to the platform's
// MQTT contract: it subscribes to the command topics under
// chai/device/<deviceIdx>, routes each command to a subsystem handler,
// publishes the acknowledgement, and emits a periodic health snapshot.
package mqttbridge

import (
	"fmt"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Config holds the broker connection and device identity.
type Config struct {
	// BrokerURL is the broker address, e.g. "tcp://127.0.0.1:1883".
	BrokerURL string
	// ClientID identifies this client to the broker. Empty generates one.
	ClientID string
	Username string
	Password string

	// DeviceIdx roots the topic tree (e.g. "DE0001").
	DeviceIdx   string
	DivisionIdx string

	// HealthInterval is the health publication period. Zero means 30s;
	// negative disables the health publisher.
	HealthInterval time.Duration

	ConnectTimeout time.Duration
	Logger         *zap.Logger
}

func (c *Config) applyDefaults() {
	if c.ClientID == "" {
		c.ClientID = "ioboard-" + uuid.NewString()[:8]
	}
	if c.HealthInterval == 0 {
		c.HealthInterval = 30 * time.Second
	}
	if c.ConnectTimeout == 0 {
		c.ConnectTimeout = 10 * time.Second
	}
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}
}

// Bridge is a running MQTT session for one device.
type Bridge struct {
	cfg      Config
	topics   Topics
	handlers *Handlers
	log      *zap.Logger

	client   mqtt.Client
	done     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// New prepares a bridge; call Start to connect.
func New(cfg Config, handlers *Handlers) *Bridge {
	cfg.applyDefaults()
	return &Bridge{
		cfg:      cfg,
		topics:   NewTopics(cfg.DeviceIdx),
		handlers: handlers,
		log:      cfg.Logger,
		done:     make(chan struct{}),
	}
}

// Start connects to the broker, subscribes to the command topics, and
// launches the health publisher.
func (b *Bridge) Start() error {
	opts := mqtt.NewClientOptions().
		AddBroker(b.cfg.BrokerURL).
		SetClientID(b.cfg.ClientID).
		SetUsername(b.cfg.Username).
		SetPassword(b.cfg.Password).
		SetConnectTimeout(b.cfg.ConnectTimeout).
		SetAutoReconnect(true).
		SetOnConnectHandler(b.onConnect).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			b.log.Warn("broker connection lost", zap.Error(err))
		})

	b.client = mqtt.NewClient(opts)
	token := b.client.Connect()
	if !token.WaitTimeout(b.cfg.ConnectTimeout) {
		return fmt.Errorf("mqtt connect to %s: timeout", b.cfg.BrokerURL)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt connect to %s: %w", b.cfg.BrokerURL, err)
	}

	if b.cfg.HealthInterval > 0 {
		b.wg.Add(1)
		go b.healthLoop()
	}
	b.log.Info("mqtt bridge started",
		zap.String("broker", b.cfg.BrokerURL),
		zap.String("device", b.cfg.DeviceIdx))
	return nil
}

// Stop publishes nothing further, stops the health loop, and disconnects.
func (b *Bridge) Stop() {
	b.stopOnce.Do(func() {
		close(b.done)
		b.wg.Wait()
		if b.client != nil {
			b.client.Disconnect(250)
		}
		b.log.Info("mqtt bridge stopped")
	})
}

// onConnect resubscribes on every (re)connection.
func (b *Bridge) onConnect(client mqtt.Client) {
	for topic, ifID := range b.topics.SubscribeTopics() {
		token := client.Subscribe(topic, DefaultQoS, b.onMessage)
		if token.Wait() && token.Error() != nil {
			b.log.Error("subscribe failed",
				zap.String("topic", topic), zap.Error(token.Error()))
			continue
		}
		b.log.Info("subscribed", zap.String("topic", topic), zap.String("if_id", ifID))
	}
}

func (b *Bridge) onMessage(_ mqtt.Client, m mqtt.Message) {
	msg, err := DecodeMessage(m.Payload())
	if err != nil {
		b.log.Error("malformed command payload",
			zap.String("topic", m.Topic()), zap.Error(err))
		return
	}

	resp, ok := b.handlers.Handle(msg)
	if !ok {
		b.log.Warn("no handler for interface",
			zap.String("if_id", msg.Header.IFID), zap.String("topic", m.Topic()))
		return
	}
	b.publish(b.topics.AckTopic(msg.Header.IFID), resp)
}

// PublishHealth publishes one health snapshot immediately.
func (b *Bridge) PublishHealth() {
	b.publish(b.topics.Health(), b.handlers.Health())
}

func (b *Bridge) publish(topic string, msg Message) {
	if topic == "" {
		return
	}
	payload, err := msg.Encode()
	if err != nil {
		b.log.Error("encode message", zap.String("if_id", msg.Header.IFID), zap.Error(err))
		return
	}
	token := b.client.Publish(topic, DefaultQoS, false, payload)
	if token.Wait() && token.Error() != nil {
		b.log.Error("publish failed", zap.String("topic", topic), zap.Error(token.Error()))
	}
}

func (b *Bridge) healthLoop() {
	defer b.wg.Done()
	ticker := time.NewTicker(b.cfg.HealthInterval)
	defer ticker.Stop()

	b.PublishHealth()
	for {
		select {
		case <-ticker.C:
			b.PublishHealth()
		case <-b.done:
			return
		}
	}
}
