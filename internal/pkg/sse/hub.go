// Package sse fans reminder events out to connected employee devices.
package sse

import (
	"sync"
)

// Event is one server-sent event for an employee.
type Event struct {
	EmployeeID string
	Name       string
	Data       interface{}
}

// Hub keeps subscriber channels per employee.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan Event]struct{}
	bufferSize  int
}

func NewHub(bufferSize int) *Hub {
	if bufferSize < 1 {
		bufferSize = 10
	}
	return &Hub{
		subscribers: make(map[string]map[chan Event]struct{}),
		bufferSize:  bufferSize,
	}
}

// Subscribe registers a stream for employeeID. The returned func must be
// called once the stream ends; it closes the channel.
func (h *Hub) Subscribe(employeeID string) (<-chan Event, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	ch := make(chan Event, h.bufferSize)
	if h.subscribers[employeeID] == nil {
		h.subscribers[employeeID] = make(map[chan Event]struct{})
	}
	h.subscribers[employeeID][ch] = struct{}{}

	var once sync.Once
	cleanup := func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			delete(h.subscribers[employeeID], ch)
			close(ch)
			if len(h.subscribers[employeeID]) == 0 {
				delete(h.subscribers, employeeID)
			}
		})
	}
	return ch, cleanup
}

// Publish delivers event to every stream of event.EmployeeID and returns how
// many accepted it. Full buffers are skipped so a slow client never blocks
// the scanner.
func (h *Hub) Publish(event Event) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	delivered := 0
	for ch := range h.subscribers[event.EmployeeID] {
		select {
		case ch <- event:
			delivered++
		default:
		}
	}
	return delivered
}

// SubscriberCount returns the number of open streams for an employee.
func (h *Hub) SubscriberCount(employeeID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers[employeeID])
}

// TotalSubscribers returns the number of open streams across all employees.
func (h *Hub) TotalSubscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	total := 0
	for _, subs := range h.subscribers {
		total += len(subs)
	}
	return total
}
