package crawler

import (
	"fmt"
	"sync"

	"danji_watch/models"
)

// transitions is the only legal movement through a run's lifecycle. Terminal
// states have no outgoing edges.
var transitions = map[models.RunStatus][]models.RunStatus{
	models.RunStatusPending:  {models.RunStatusCrawling, models.RunStatusFailed},
	models.RunStatusCrawling: {models.RunStatusSaving, models.RunStatusFailed},
	models.RunStatusSaving:   {models.RunStatusSuccess, models.RunStatusPartial, models.RunStatusFailed},
}

// CanTransition reports whether a run may move from one status to another.
func CanTransition(from, to models.RunStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// RunState tracks a single run's status and rejects illegal transitions.
type RunState struct {
	mu     sync.Mutex
	status models.RunStatus
}

func NewRunState() *RunState {
	return &RunState{status: models.RunStatusPending}
}

func (s *RunState) Current() models.RunStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// To advances the state or returns an error describing the illegal move.
func (s *RunState) To(next models.RunStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !CanTransition(s.status, next) {
		return fmt.Errorf("illegal run transition %s -> %s", s.status, next)
	}
	s.status = next
	return nil
}
