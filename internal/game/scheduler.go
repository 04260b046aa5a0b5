package game

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Scheduler fires a round-end callback after the configured delay, one
// outstanding timer per room. Callbacks run on the timer goroutine and may
// overlap message handling; round-end logic must stay idempotent.
type Scheduler struct {
	mu     sync.Mutex
	timers map[int]*time.Timer
	log    zerolog.Logger
}

func NewScheduler(log zerolog.Logger) *Scheduler {
	return &Scheduler{
		timers: make(map[int]*time.Timer),
		log:    log.With().Str("component", "scheduler").Logger(),
	}
}

// Schedule arms the room's round-end timer, replacing any timer still
// pending from a previous round.
func (s *Scheduler) Schedule(roomID int, d time.Duration, fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.timers[roomID]; ok {
		t.Stop()
	}
	s.timers[roomID] = time.AfterFunc(d, func() {
		s.mu.Lock()
		delete(s.timers, roomID)
		s.mu.Unlock()
		s.log.Debug().Int("room_id", roomID).Msg("round timer fired")
		fn()
	})
	s.log.Debug().Int("room_id", roomID).Dur("after", d).Msg("round timer armed")
}

// Cancel stops the room's pending timer, if any. A timer that already fired
// is gone; the round-end guard covers that race.
func (s *Scheduler) Cancel(roomID int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.timers[roomID]; ok {
		t.Stop()
		delete(s.timers, roomID)
	}
}

// Pending reports whether the room has a timer armed.
func (s *Scheduler) Pending(roomID int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.timers[roomID]
	return ok
}

// Stop cancels every outstanding timer; used at shutdown.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, t := range s.timers {
		t.Stop()
		delete(s.timers, id)
	}
}
