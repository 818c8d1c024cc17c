package config

import (
	"fmt"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// ConnectHooks fans the client's OnConnect callback out to handlers added
// after the client was built. With a clean session the broker forgets
// subscriptions on every reconnect, so subscribers use this to restore them.
type ConnectHooks struct {
	mu       sync.Mutex
	handlers []mqtt.OnConnectHandler
}

func (h *ConnectHooks) Add(handler mqtt.OnConnectHandler) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.handlers = append(h.handlers, handler)
}

func (h *ConnectHooks) OnConnect(client mqtt.Client) {
	h.mu.Lock()
	handlers := make([]mqtt.OnConnectHandler, len(h.handlers))
	copy(handlers, h.handlers)
	h.mu.Unlock()

	for _, handler := range handlers {
		handler(client)
	}
}

func NewMQTT(cfg *Config, hooks *ConnectHooks) (mqtt.Client, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(cfg.MQTTBroker).
		SetClientID(cfg.MQTTClientID).
		SetAutoReconnect(true).
		SetConnectRetryInterval(time.Second)
	if hooks != nil {
		opts.SetOnConnectHandler(hooks.OnConnect)
	}

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("mqtt connect: %w", token.Error())
	}
	return client, nil
}
