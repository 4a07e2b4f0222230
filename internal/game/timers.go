package game

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// TimerCategory names one of the per-room timer slots.
type TimerCategory string

const (
	TimerDraw     TimerCategory = "draw"
	TimerPlay     TimerCategory = "play"
	TimerSameRank TimerCategory = "same_rank"
	TimerPeek     TimerCategory = "peek"
)

type scheduledTimer struct {
	timer *time.Timer
	gen   uint64
}

// TimerScheduler owns the active timers for one room, one slot per
// category. Starting a category that already has a live timer cancels the
// old one first; a fired timer whose generation no longer matches is a
// stale timer and has no effect. Expiry callbacks are handed to the
// dispatch function, which serializes them with player actions.
type TimerScheduler struct {
	mu       sync.Mutex
	active   map[TimerCategory]*scheduledTimer
	gens     map[TimerCategory]uint64
	dispatch func(func())
	log      *logrus.Entry
}

// NewTimerScheduler builds a scheduler whose expirations run through
// dispatch. dispatch must serialize with the room's action path.
func NewTimerScheduler(dispatch func(func()), log *logrus.Entry) *TimerScheduler {
	return &TimerScheduler{
		active:   make(map[TimerCategory]*scheduledTimer),
		gens:     make(map[TimerCategory]uint64),
		dispatch: dispatch,
		log:      log,
	}
}

// Start schedules fire after d in the given category, replacing any timer
// already live in that slot. A zero or negative duration disables the
// timer (the category is simply cleared).
func (s *TimerScheduler) Start(cat TimerCategory, d time.Duration, fire func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cancelLocked(cat)
	if d <= 0 {
		return
	}

	s.gens[cat]++
	gen := s.gens[cat]
	st := &scheduledTimer{gen: gen}
	st.timer = time.AfterFunc(d, func() {
		s.dispatch(func() {
			if !s.consume(cat, gen) {
				// replaced or cancelled after firing; stale
				return
			}
			fire()
		})
	})
	s.active[cat] = st
}

// consume checks the generation inside the serialized path and clears the
// slot if this expiry is still current.
func (s *TimerScheduler) consume(cat TimerCategory, gen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gens[cat] != gen {
		return false
	}
	delete(s.active, cat)
	return true
}

// Cancel stops the timer in the given category, if any.
func (s *TimerScheduler) Cancel(cat TimerCategory) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelLocked(cat)
}

// CancelAll stops every live timer for the room. Every phase transition
// calls this before scheduling new timers; skipping it is how stale-timer
// turn corruption happens.
func (s *TimerScheduler) CancelAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for cat := range s.active {
		s.cancelLocked(cat)
	}
}

func (s *TimerScheduler) cancelLocked(cat TimerCategory) {
	if st, ok := s.active[cat]; ok {
		st.timer.Stop()
		delete(s.active, cat)
	}
	// bump the generation so an already-fired callback is rejected
	s.gens[cat]++
}

// Live reports whether a timer is currently scheduled in the category.
func (s *TimerScheduler) Live(cat TimerCategory) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.active[cat]
	return ok
}

// LiveCount returns the number of scheduled timers across all categories.
func (s *TimerScheduler) LiveCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.active)
}
