package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/mmcloughlin/geohash"
)

type GeofenceTransition int

const (
	TransitionEnter GeofenceTransition = 1
	TransitionExit  GeofenceTransition = 2
	TransitionDwell GeofenceTransition = 4
)

func (t GeofenceTransition) String() string {
	switch t {
	case TransitionEnter:
		return "enter"
	case TransitionExit:
		return "exit"
	case TransitionDwell:
		return "dwell"
	}
	return fmt.Sprintf("transition(%d)", int(t))
}

// Status codes reported by the geofencing provider alongside a broadcast.
const (
	GeofenceNotAvailable         = 1000
	GeofenceTooManyGeofences     = 1001
	GeofenceTooManyPendingIntent = 1002
)

// GeofenceStatusText names a provider status code for logs.
func GeofenceStatusText(code int) string {
	switch code {
	case GeofenceNotAvailable:
		return "GEOFENCE_NOT_AVAILABLE"
	case GeofenceTooManyGeofences:
		return "GEOFENCE_TOO_MANY_GEOFENCES"
	case GeofenceTooManyPendingIntent:
		return "GEOFENCE_TOO_MANY_PENDING_INTENTS"
	}
	return fmt.Sprintf("status(%d)", code)
}

const (
	geohashLength = 8
	radiusLength  = 6
	fenceIDLength = geohashLength + radiusLength
)

var ErrEmptyBroadcast = errors.New("geofencing event is empty")

type Coordinates struct {
	Lat float64 `json:"latitude"`
	Lon float64 `json:"longitude"`
}

// GeofencingEvent is a decoded geofence transition broadcast.
type GeofencingEvent struct {
	Transition         GeofenceTransition `json:"transition"`
	TriggeringFences   []string           `json:"geofences"`
	ErrorCode          int                `json:"error_code"`
	TriggeringLocation *Coordinates       `json:"location,omitempty"`
}

func (e *GeofencingEvent) HasError() bool {
	return e.ErrorCode != 0
}

func (e *GeofencingEvent) IsEntry() bool {
	return e.Transition == TransitionEnter
}

// ParseGeofencingEvent decodes a broadcast payload. An empty or undecodable
// payload yields an error and no event.
func ParseGeofencingEvent(payload []byte) (*GeofencingEvent, error) {
	if len(payload) == 0 {
		return nil, ErrEmptyBroadcast
	}
	var event GeofencingEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, fmt.Errorf("decode geofencing event: %w", err)
	}
	return &event, nil
}

// GeofenceData identifies a region of interest. The fence id is an 8 character
// geohash followed by a 6 digit radius in metres.
type GeofenceData struct {
	Fence  string  `json:"fence"`
	Lat    float64 `json:"latitude"`
	Lon    float64 `json:"longitude"`
	Radius int     `json:"radius"`
}

func ParseGeofenceData(fence string) (GeofenceData, error) {
	if len(fence) != fenceIDLength {
		return GeofenceData{}, fmt.Errorf("fence %q: expected %d characters, got %d", fence, fenceIDLength, len(fence))
	}
	hash := fence[:geohashLength]
	if err := geohash.Validate(hash); err != nil {
		return GeofenceData{}, fmt.Errorf("fence %q: %w", fence, err)
	}
	digits := fence[geohashLength:]
	if strings.IndexFunc(digits, func(r rune) bool { return r < '0' || r > '9' }) >= 0 {
		return GeofenceData{}, fmt.Errorf("fence %q: invalid radius", fence)
	}
	radius, err := strconv.Atoi(digits)
	if err != nil || radius <= 0 {
		return GeofenceData{}, fmt.Errorf("fence %q: invalid radius", fence)
	}
	lat, lon := geohash.DecodeCenter(hash)
	return GeofenceData{Fence: fence, Lat: lat, Lon: lon, Radius: radius}, nil
}

// GeofenceDataFrom extracts one record per triggering fence. The whole event is
// rejected when it carries no fences or any fence id is malformed.
func GeofenceDataFrom(event *GeofencingEvent) ([]GeofenceData, error) {
	if len(event.TriggeringFences) == 0 {
		return nil, errors.New("geofencing event has no triggering geofences")
	}
	datas := make([]GeofenceData, 0, len(event.TriggeringFences))
	for _, fence := range event.TriggeringFences {
		d, err := ParseGeofenceData(fence)
		if err != nil {
			return nil, err
		}
		datas = append(datas, d)
	}
	return datas, nil
}
