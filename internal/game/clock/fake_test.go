package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFakeAfterFiresOnDue(t *testing.T) {
	f := NewFake(time.Unix(0, 0))
	fired := 0
	f.After(5*time.Second, func() { fired++ })

	f.Advance(4 * time.Second)
	assert.Zero(t, fired)

	f.Advance(time.Second)
	assert.Equal(t, 1, fired)

	// one-shot: não repete
	f.Advance(time.Minute)
	assert.Equal(t, 1, fired)
}

func TestFakeEveryRepeats(t *testing.T) {
	f := NewFake(time.Unix(0, 0))
	fired := 0
	tok := f.Every(time.Second, func() { fired++ })

	f.Advance(3500 * time.Millisecond)
	assert.Equal(t, 3, fired)

	f.Cancel(tok)
	f.Advance(10 * time.Second)
	assert.Equal(t, 3, fired)
}

func TestFakeCancelBeforeDue(t *testing.T) {
	f := NewFake(time.Unix(0, 0))
	fired := false
	tok := f.After(time.Second, func() { fired = true })
	f.Cancel(tok)
	f.Advance(time.Minute)
	assert.False(t, fired)
}

func TestFakeCallbackCanScheduleAndCancel(t *testing.T) {
	f := NewFake(time.Unix(0, 0))
	var chain []int
	var tick Token
	tick = f.Every(time.Second, func() {
		chain = append(chain, 1)
		if len(chain) == 2 {
			// cancela a si mesmo e agenda um one-shot, como faz o engine
			f.Cancel(tick)
			f.After(time.Second, func() { chain = append(chain, 2) })
		}
	})

	f.Advance(5 * time.Second)
	assert.Equal(t, []int{1, 1, 2}, chain)
}

func TestFakeFiresInDueOrder(t *testing.T) {
	f := NewFake(time.Unix(0, 0))
	var order []string
	f.After(2*time.Second, func() { order = append(order, "late") })
	f.After(time.Second, func() { order = append(order, "early") })

	f.Advance(3 * time.Second)
	assert.Equal(t, []string{"early", "late"}, order)
}

func TestFakeTieBreaksByCreationOrder(t *testing.T) {
	f := NewFake(time.Unix(0, 0))
	var order []string
	f.After(time.Second, func() { order = append(order, "first") })
	f.After(time.Second, func() { order = append(order, "second") })

	f.Advance(time.Second)
	assert.Equal(t, []string{"first", "second"}, order)
}

func TestFakeNowTracksAdvance(t *testing.T) {
	start := time.Unix(100, 0)
	f := NewFake(start)
	f.Advance(90 * time.Second)
	assert.Equal(t, start.Add(90*time.Second), f.Now())
}

func TestSystemAfterAndCancel(t *testing.T) {
	s := NewSystem()

	fired := make(chan struct{})
	s.After(5*time.Millisecond, func() { close(fired) })
	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatal("timer did not fire")
	}

	cancelled := make(chan struct{})
	tok := s.After(20*time.Millisecond, func() { close(cancelled) })
	s.Cancel(tok)
	select {
	case <-cancelled:
		t.Fatal("cancelled timer fired")
	case <-time.After(60 * time.Millisecond):
	}
}

func TestSystemEvery(t *testing.T) {
	s := NewSystem()
	ticks := make(chan struct{}, 16)
	tok := s.Every(5*time.Millisecond, func() { ticks <- struct{}{} })

	for i := 0; i < 3; i++ {
		select {
		case <-ticks:
		case <-time.After(time.Second):
			t.Fatal("ticker stalled")
		}
	}
	s.Cancel(tok)
	// cancelar de novo é seguro
	s.Cancel(tok)
}
