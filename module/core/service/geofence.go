package service

import (
	"log/slog"
	"sync"

	"github.com/nandanugg/proximity/module/core/domain"
	"github.com/nandanugg/proximity/module/core/internal/metrics"
)

// GeofenceListener receives one callback per region in a transition broadcast.
// Listeners are deduplicated by identity, so implementations should be pointer
// types.
type GeofenceListener interface {
	OnGeofenceEvent(data domain.GeofenceData, entry bool)
}

type broadcastChannel interface {
	Subscribe(handle func(payload []byte)) error
	Unsubscribe() error
}

type registrationTracker interface {
	SetRegistered(registered bool)
}

// GeofenceReceiver bridges geofence transition broadcasts to in-process
// listeners. The broadcast subscription is held exactly while at least one
// listener is registered.
type GeofenceReceiver struct {
	channel   broadcastChannel
	manager   registrationTracker
	mu        sync.Mutex
	listeners []GeofenceListener
}

func NewGeofenceReceiver(channel broadcastChannel, manager registrationTracker) *GeofenceReceiver {
	return &GeofenceReceiver{
		channel: channel,
		manager: manager,
	}
}

// OnReceive handles a single broadcast payload. Malformed payloads are logged
// and dropped; no error ever reaches the caller.
func (r *GeofenceReceiver) OnReceive(payload []byte) {
	event, err := domain.ParseGeofencingEvent(payload)
	if err != nil {
		metrics.GeofenceBroadcastsTotal.WithLabelValues("absent").Inc()
		slog.Error("geofencing event is absent", "error", err)
		return
	}
	if event.HasError() && event.ErrorCode == domain.GeofenceNotAvailable {
		// Location was disabled on the device; the provider dropped our fences.
		metrics.GeofenceBroadcastsTotal.WithLabelValues("unavailable").Inc()
		r.manager.SetRegistered(false)
		return
	}
	if event.HasError() {
		metrics.GeofenceBroadcastsTotal.WithLabelValues("invalid").Inc()
		slog.Error("geofencing event is invalid", "error_code", event.ErrorCode, "status", domain.GeofenceStatusText(event.ErrorCode))
		return
	}

	datas, err := domain.GeofenceDataFrom(event)
	if err != nil {
		metrics.GeofenceBroadcastsTotal.WithLabelValues("invalid").Inc()
		slog.Error("geofencing event is invalid", "error", err)
		return
	}

	metrics.GeofenceBroadcastsTotal.WithLabelValues("dispatched").Inc()
	slog.Debug("geofence transition", "transition", event.Transition, "fences", len(datas))
	entry := event.IsEntry()
	for _, data := range datas {
		r.notifyListeners(data, entry)
	}
}

// AddListener registers listener unless it is already present. The first
// listener opens the broadcast subscription; if that fails the registry is
// left unchanged.
func (r *GeofenceReceiver) AddListener(listener GeofenceListener) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, previous := range r.listeners {
		if previous == listener {
			return nil
		}
	}
	if len(r.listeners) == 0 {
		if err := r.channel.Subscribe(r.OnReceive); err != nil {
			return err
		}
	}
	r.listeners = append(r.listeners, listener)
	return nil
}

// RemoveListener drops the first registration of listener. Removing the last
// listener closes the broadcast subscription. Unknown listeners are ignored.
func (r *GeofenceReceiver) RemoveListener(listener GeofenceListener) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, existing := range r.listeners {
		if existing != listener {
			continue
		}
		r.listeners = append(r.listeners[:i:i], r.listeners[i+1:]...)
		if len(r.listeners) == 0 {
			return r.channel.Unsubscribe()
		}
		return nil
	}
	return nil
}

func (r *GeofenceReceiver) Listeners() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.listeners)
}

func (r *GeofenceReceiver) notifyListeners(data domain.GeofenceData, entry bool) {
	r.mu.Lock()
	snapshot := make([]GeofenceListener, len(r.listeners))
	copy(snapshot, r.listeners)
	r.mu.Unlock()

	for _, listener := range snapshot {
		listener.OnGeofenceEvent(data, entry)
		metrics.GeofenceNotificationsTotal.Inc()
	}
}
