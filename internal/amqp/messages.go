package amqp

import (
	"encoding/json"
	"time"
)

type EventType string

const (
	EventServiceCreated EventType = "service.created"
	EventServiceUpdated EventType = "service.updated"
	EventServiceDeleted EventType = "service.deleted"
)

// ServiceEvent announces a change to a service record. It carries enough to
// identify the record; consumers load the rest from storage.
type ServiceEvent struct {
	Type        EventType `json:"type"`
	ServiceID   string    `json:"service_id"`
	TenantID    string    `json:"tenant_id"`
	AuthCode    string    `json:"auth_code,omitempty"`
	ServiceDate string    `json:"service_date,omitempty"`
	ValueCents  int64     `json:"value_cents"`
	Timestamp   time.Time `json:"timestamp"`
}

func NewServiceEvent(t EventType, serviceID, tenantID string) ServiceEvent {
	return ServiceEvent{
		Type:      t,
		ServiceID: serviceID,
		TenantID:  tenantID,
		Timestamp: time.Now().UTC(),
	}
}

// ToJSON converts the message to JSON bytes
func (m ServiceEvent) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ServiceEventFromJSON decodes a message body
func ServiceEventFromJSON(data []byte) (ServiceEvent, error) {
	var msg ServiceEvent
	if err := json.Unmarshal(data, &msg); err != nil {
		return ServiceEvent{}, err
	}
	return msg, nil
}
