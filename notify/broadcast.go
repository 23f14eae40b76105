package notify

import (
	"sync"
	"time"
)

type EventType string

const (
	EventRunStart    EventType = "run_start"
	EventRunProgress EventType = "run_progress"
	EventRunComplete EventType = "run_complete"
	EventRunFailed   EventType = "run_failed"
)

// Event is one real-time status update fanned out to all listeners.
type Event struct {
	Type      EventType `json:"type"`
	RunID     string    `json:"run_id"`
	Step      string    `json:"step,omitempty"`
	Articles  int       `json:"articles,omitempty"`
	Error     string    `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Broadcaster fans events out to any number of subscribers. Slow subscribers
// lose events rather than blocking the run.
type Broadcaster struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]chan Event
}

func NewBroadcaster() *Broadcaster {
	return &Broadcaster{subs: make(map[int]chan Event)}
}

// Subscribe returns a receive channel and a cancel func. The channel is
// closed on cancel.
func (b *Broadcaster) Subscribe() (<-chan Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	ch := make(chan Event, 16)
	b.subs[id] = ch

	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if sub, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(sub)
		}
	}
	return ch, cancel
}

func (b *Broadcaster) Publish(ev Event) {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subs {
		select {
		case ch <- ev:
		default:
			// drop for laggards
		}
	}
}

func (b *Broadcaster) RunStart(runID string) {
	b.Publish(Event{Type: EventRunStart, RunID: runID})
}

func (b *Broadcaster) RunProgress(runID, step string) {
	b.Publish(Event{Type: EventRunProgress, RunID: runID, Step: step})
}

func (b *Broadcaster) RunComplete(runID string, articles int) {
	b.Publish(Event{Type: EventRunComplete, RunID: runID, Articles: articles})
}

func (b *Broadcaster) RunFailed(runID, errMsg string) {
	b.Publish(Event{Type: EventRunFailed, RunID: runID, Error: errMsg})
}
