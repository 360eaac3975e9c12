package service

import "sync"

// EventType defines the type of event
type EventType string

const (
	EventScanStarted   EventType = "scan_started"
	EventRangeScanned  EventType = "range_scanned"
	EventRangeFailed   EventType = "range_failed"
	EventScanComplete  EventType = "scan_complete"
	EventRangeCreated  EventType = "range_created"
	EventRangeUpdated  EventType = "range_updated"
	EventRangeDeleted  EventType = "range_deleted"
	EventAssignmentSet EventType = "assignment_set"
	EventAssignmentDel EventType = "assignment_deleted"
)

// Event represents an event that occurred in the system
type Event struct {
	Type    EventType   `json:"type"`
	Payload interface{} `json:"payload,omitempty"`
}

// EventBus allows publishing and subscribing to events
type EventBus struct {
	mu          sync.RWMutex
	subscribers []chan<- Event
}

// NewEventBus creates a new event bus
func NewEventBus() *EventBus {
	return &EventBus{
		subscribers: make([]chan<- Event, 0),
	}
}

// Subscribe adds a subscriber to receive events
func (eb *EventBus) Subscribe(ch chan<- Event) {
	eb.mu.Lock()
	defer eb.mu.Unlock()
	eb.subscribers = append(eb.subscribers, ch)
}

// Publish sends an event to all subscribers
func (eb *EventBus) Publish(event Event) {
	eb.mu.RLock()
	defer eb.mu.RUnlock()
	for _, ch := range eb.subscribers {
		select {
		case ch <- event:
		default:
			// Subscriber is slow, skip
		}
	}
}

// PublishDiscoveryEvent lets adapters report progress through the bus
func (eb *EventBus) PublishDiscoveryEvent(eventType string, payload interface{}) {
	eb.Publish(Event{Type: EventType(eventType), Payload: payload})
}
