package amqp

import (
	"encoding/json"
	"fmt"
	"time"
)

// EventKind says what happened to a period.
type EventKind string

const (
	PeriodCreated EventKind = "created"
	PeriodUpdated EventKind = "updated"
)

// PeriodEvent carries only the key; consumers load the period from storage.
type PeriodEvent struct {
	Key       string    `json:"key"`
	Kind      EventKind `json:"kind"`
	Timestamp time.Time `json:"timestamp"`
}

func NewPeriodEvent(key string, kind EventKind) *PeriodEvent {
	return &PeriodEvent{
		Key:       key,
		Kind:      kind,
		Timestamp: time.Now().UTC(),
	}
}

func (m *PeriodEvent) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// PeriodEventFromJSON decodes and checks a message body.
func PeriodEventFromJSON(data []byte) (*PeriodEvent, error) {
	var msg PeriodEvent
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.Key == "" {
		return nil, fmt.Errorf("period event without key")
	}
	switch msg.Kind {
	case PeriodCreated, PeriodUpdated:
	default:
		return nil, fmt.Errorf("unknown period event kind %q", msg.Kind)
	}
	return &msg, nil
}
