package game

import (
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// serialDispatch mimics the round's mutex-guarded dispatch path.
type serialDispatch struct {
	mu sync.Mutex
}

func (d *serialDispatch) run(f func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	f()
}

func newTestScheduler() (*TimerScheduler, *serialDispatch) {
	d := &serialDispatch{}
	return NewTimerScheduler(d.run, logrus.WithField("test", true)), d
}

func TestSchedulerStartReplacesSameCategory(t *testing.T) {
	s, d := newTestScheduler()

	var fired []string
	s.Start(TimerDraw, 30*time.Millisecond, func() { fired = append(fired, "first") })
	s.Start(TimerDraw, 30*time.Millisecond, func() { fired = append(fired, "second") })

	assert.Equal(t, 1, s.LiveCount(), "no two timers of the same category may coexist")

	time.Sleep(100 * time.Millisecond)
	d.mu.Lock()
	defer d.mu.Unlock()
	require.Equal(t, []string{"second"}, fired, "the replaced timer must never fire")
}

func TestSchedulerCategoriesAreIndependent(t *testing.T) {
	s, _ := newTestScheduler()

	s.Start(TimerDraw, time.Minute, func() {})
	s.Start(TimerPlay, time.Minute, func() {})
	assert.Equal(t, 2, s.LiveCount())
	assert.True(t, s.Live(TimerDraw))
	assert.True(t, s.Live(TimerPlay))

	s.Cancel(TimerDraw)
	assert.False(t, s.Live(TimerDraw))
	assert.True(t, s.Live(TimerPlay))
}

func TestSchedulerCancelAll(t *testing.T) {
	s, d := newTestScheduler()

	var fired int
	s.Start(TimerDraw, 20*time.Millisecond, func() { fired++ })
	s.Start(TimerPlay, 20*time.Millisecond, func() { fired++ })
	s.Start(TimerSameRank, 20*time.Millisecond, func() { fired++ })
	s.CancelAll()

	assert.Equal(t, 0, s.LiveCount())
	time.Sleep(80 * time.Millisecond)
	d.mu.Lock()
	defer d.mu.Unlock()
	assert.Equal(t, 0, fired)
}

func TestSchedulerStaleFireAfterCancelIsRejected(t *testing.T) {
	s, d := newTestScheduler()

	// hold the dispatch path so the expiry fires but cannot yet run, then
	// cancel: the callback must be rejected by the generation check
	var fired int
	d.mu.Lock()
	s.Start(TimerDraw, 10*time.Millisecond, func() { fired++ })
	time.Sleep(50 * time.Millisecond)
	s.Cancel(TimerDraw)
	d.mu.Unlock()

	time.Sleep(50 * time.Millisecond)
	d.mu.Lock()
	defer d.mu.Unlock()
	assert.Equal(t, 0, fired, "an expiry overtaken by a cancel must be a no-op")
}

func TestSchedulerZeroDurationDisablesTimer(t *testing.T) {
	s, _ := newTestScheduler()
	s.Start(TimerPeek, 0, func() { t.Fatal("disabled timer must not fire") })
	assert.False(t, s.Live(TimerPeek))
	time.Sleep(30 * time.Millisecond)
}
