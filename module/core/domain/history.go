package domain

import "time"

type ScanRecord struct {
	ID        string        `json:"id"`
	BeaconID  string        `json:"beacon_id"`
	EventMask ScanEventType `json:"event_mask"`
	EventTime time.Time     `json:"event_time"`
	CreatedAt time.Time     `json:"created_at"`
	SentAt    *time.Time    `json:"sent_at,omitempty"`
}

type ActionRecord struct {
	ID               string        `json:"id"`
	ActionID         string        `json:"action_id"`
	BeaconID         string        `json:"beacon_id"`
	Trigger          ScanEventType `json:"trigger"`
	PresentationTime time.Time     `json:"presentation_time"`
	CreatedAt        time.Time     `json:"created_at"`
	SentAt           *time.Time    `json:"sent_at,omitempty"`
}

// HistoryBatch is the set of not-yet-sent records handed to a transport.
type HistoryBatch struct {
	Scans       []ScanRecord   `json:"scans"`
	Actions     []ActionRecord `json:"actions"`
	PublishedAt time.Time      `json:"published_at"`
}

func (b *HistoryBatch) Empty() bool {
	return len(b.Scans) == 0 && len(b.Actions) == 0
}

func (b *HistoryBatch) ScanIDs() []string {
	ids := make([]string, len(b.Scans))
	for i, s := range b.Scans {
		ids[i] = s.ID
	}
	return ids
}

func (b *HistoryBatch) ActionIDs() []string {
	ids := make([]string, len(b.Actions))
	for i, a := range b.Actions {
		ids[i] = a.ID
	}
	return ids
}
