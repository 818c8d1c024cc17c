package service

import (
	"log/slog"
	"sync/atomic"
)

// GeofenceManager tracks whether the device's geofences are currently
// registered with the geofencing provider.
type GeofenceManager struct {
	registered atomic.Bool
}

func NewGeofenceManager(registered bool) *GeofenceManager {
	m := &GeofenceManager{}
	m.registered.Store(registered)
	return m
}

func (m *GeofenceManager) SetRegistered(registered bool) {
	if m.registered.Swap(registered) != registered {
		slog.Info("geofence registration changed", "registered", registered)
	}
}

func (m *GeofenceManager) IsRegistered() bool {
	return m.registered.Load()
}
