package subscriber

import (
	"fmt"
	"log/slog"
	"sync"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

const DefaultTopic = "/proximity/device/+/geofence"

// GeofenceChannel delivers geofence transition broadcasts published on an
// MQTT topic. Subscribe and Unsubscribe map to registering and unregistering
// the broadcast receiver.
type GeofenceChannel struct {
	client mqtt.Client
	topic  string
	qos    byte

	mu     sync.Mutex
	handle func(payload []byte)
}

func NewGeofenceChannel(client mqtt.Client, topic string) *GeofenceChannel {
	if topic == "" {
		topic = DefaultTopic
	}
	return &GeofenceChannel{client: client, topic: topic, qos: 1}
}

func (c *GeofenceChannel) Subscribe(handle func(payload []byte)) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.subscribe(handle); err != nil {
		return err
	}
	c.handle = handle
	slog.Info("geofence receiver registered", "topic", c.topic)
	return nil
}

func (c *GeofenceChannel) Unsubscribe() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.handle = nil
	token := c.client.Unsubscribe(c.topic)
	token.Wait()
	if err := token.Error(); err != nil {
		return fmt.Errorf("unsubscribe %s: %w", c.topic, err)
	}
	slog.Info("geofence receiver unregistered", "topic", c.topic)
	return nil
}

// OnConnect restores the subscription after the client (re)connected. It is a
// no-op while the receiver is unregistered.
func (c *GeofenceChannel) OnConnect(_ mqtt.Client) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.handle == nil {
		return
	}
	if err := c.subscribe(c.handle); err != nil {
		slog.Error("geofence resubscribe failed", "topic", c.topic, "error", err)
		return
	}
	slog.Info("geofence receiver resubscribed", "topic", c.topic)
}

func (c *GeofenceChannel) subscribe(handle func(payload []byte)) error {
	token := c.client.Subscribe(c.topic, c.qos, c.messageHandler(handle))
	token.Wait()
	if err := token.Error(); err != nil {
		return fmt.Errorf("subscribe %s: %w", c.topic, err)
	}
	return nil
}

func (c *GeofenceChannel) messageHandler(handle func(payload []byte)) mqtt.MessageHandler {
	return func(_ mqtt.Client, msg mqtt.Message) {
		slog.Debug("geofence broadcast", "topic", msg.Topic(), "bytes", len(msg.Payload()))
		handle(msg.Payload())
	}
}
