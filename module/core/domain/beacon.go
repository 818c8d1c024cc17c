package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ScanEventType is a bit mask over the transitions a scan or action applies to.
type ScanEventType int

const (
	ScanEventEntry     ScanEventType = 1 << 0
	ScanEventExit      ScanEventType = 1 << 1
	ScanEventEntryExit               = ScanEventEntry | ScanEventExit
)

func (t ScanEventType) Matches(mask ScanEventType) bool {
	return t&mask != 0
}

func (t ScanEventType) String() string {
	switch t {
	case ScanEventEntry:
		return "entry"
	case ScanEventExit:
		return "exit"
	case ScanEventEntryExit:
		return "entry_exit"
	}
	return fmt.Sprintf("ScanEventType(%d)", int(t))
}

func ParseScanEventType(s string) (ScanEventType, error) {
	switch s {
	case "entry":
		return ScanEventEntry, nil
	case "exit":
		return ScanEventExit, nil
	case "entry_exit":
		return ScanEventEntryExit, nil
	}
	return 0, fmt.Errorf("unknown trigger %q", s)
}

// TransitionMask maps a geofence transition flag to its scan event type.
func TransitionMask(entry bool) ScanEventType {
	if entry {
		return ScanEventEntry
	}
	return ScanEventExit
}

type ScanEvent struct {
	BeaconID  string        `json:"beacon_id"`
	EventMask ScanEventType `json:"event_mask"`
	EventTime time.Time     `json:"event_time"`
}

type Action struct {
	UUID    uuid.UUID `json:"uuid"`
	Type    string    `json:"type"`
	Subject string    `json:"subject,omitempty"`
	Body    string    `json:"body,omitempty"`
	URL     string    `json:"url,omitempty"`
}

// BeaconEvent pairs an action with the moment it was presented.
type BeaconEvent struct {
	Action           *Action       `json:"action"`
	BeaconID         string        `json:"beacon_id"`
	Trigger          ScanEventType `json:"trigger"`
	PresentationTime time.Time     `json:"presentation_time"`
}

// ActionRule binds an action to a fence and the transitions that trigger it.
type ActionRule struct {
	Fence   string
	Trigger ScanEventType
	Action  Action
}
