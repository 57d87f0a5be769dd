package events

import (
	"sync"
	"time"
)

// Event represents a generic event structure
type Event struct {
	Type      string
	Timestamp time.Time
	Data      interface{}
}

// RoundFinishedEvent represents the event structure for a finished local round
type RoundFinishedEvent struct {
	RoundId   string
	ClientId  string
	Algorithm string
	Loss      float64
	Steps     int
	Err       error
}

// SimulationFinishedEvent represents the event structure for finishing a simulation
type SimulationFinishedEvent struct {
	ExitCode    int32
	ExitMessage string
	Rounds      int
}

// EventBus represents the event bus that handles event subscription and dispatching
type EventBus struct {
	mutex       sync.RWMutex
	subscribers map[string][]chan<- Event
}

// NewEventBus creates a new instance of the event bus
func NewEventBus() *EventBus {
	return &EventBus{
		subscribers: make(map[string][]chan<- Event),
	}
}

// Subscribe adds a new subscriber for a given event type
func (eb *EventBus) Subscribe(eventType string, subscriber chan<- Event) {
	eb.mutex.Lock()
	defer eb.mutex.Unlock()
	eb.subscribers[eventType] = append(eb.subscribers[eventType], subscriber)
}

// Publish sends an event to all subscribers of a given event type
func (eb *EventBus) Publish(event Event) {
	eb.mutex.RLock()
	subscribers := eb.subscribers[event.Type]
	eb.mutex.RUnlock()

	for _, subscriber := range subscribers {
		subscriber <- event
	}
}
