package publisher

import (
	"encoding/json"
	"fmt"

	"github.com/nandanugg/proximity/module/core/domain"
)

const ContentType = "application/json"

type historyMessage struct {
	PublishedAt int64           `json:"published_at"`
	Scans       []scanMessage   `json:"scans"`
	Actions     []actionMessage `json:"actions"`
}

type scanMessage struct {
	ID        string `json:"id"`
	PID       string `json:"pid"`
	Trigger   int    `json:"trigger"`
	DT        int64  `json:"dt"`
	CreatedAt int64  `json:"created_at"`
}

type actionMessage struct {
	ID        string `json:"id"`
	EID       string `json:"eid"`
	PID       string `json:"pid"`
	Trigger   int    `json:"trigger"`
	DT        int64  `json:"dt"`
	CreatedAt int64  `json:"created_at"`
}

// EncodeHistory renders a batch in the wire format shared by every transport.
// Timestamps are unix milliseconds.
func EncodeHistory(batch *domain.HistoryBatch) ([]byte, error) {
	msg := historyMessage{
		PublishedAt: batch.PublishedAt.UnixMilli(),
		Scans:       make([]scanMessage, len(batch.Scans)),
		Actions:     make([]actionMessage, len(batch.Actions)),
	}
	for i, s := range batch.Scans {
		msg.Scans[i] = scanMessage{
			ID:        s.ID,
			PID:       s.BeaconID,
			Trigger:   int(s.EventMask),
			DT:        s.EventTime.UnixMilli(),
			CreatedAt: s.CreatedAt.UnixMilli(),
		}
	}
	for i, a := range batch.Actions {
		msg.Actions[i] = actionMessage{
			ID:        a.ID,
			EID:       a.ActionID,
			PID:       a.BeaconID,
			Trigger:   int(a.Trigger),
			DT:        a.PresentationTime.UnixMilli(),
			CreatedAt: a.CreatedAt.UnixMilli(),
		}
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("marshal history: %w", err)
	}
	return body, nil
}
