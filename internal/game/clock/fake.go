package clock

import (
	"sync"
	"time"
)

// Fake é um Clock determinístico para testes: o tempo só anda via Advance,
// e os callbacks disparam sincronamente na ordem de vencimento.
type Fake struct {
	mu     sync.Mutex
	now    time.Time
	next   Token
	timers map[Token]*fakeTimer
}

type fakeTimer struct {
	tok      Token
	when     time.Time
	interval time.Duration // 0 = one-shot
	fn       func()
}

func NewFake(start time.Time) *Fake {
	return &Fake{now: start, timers: make(map[Token]*fakeTimer)}
}

func (f *Fake) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *Fake) After(d time.Duration, fn func()) Token {
	return f.schedule(d, 0, fn)
}

func (f *Fake) Every(d time.Duration, fn func()) Token {
	return f.schedule(d, d, fn)
}

func (f *Fake) schedule(d, interval time.Duration, fn func()) Token {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.next++
	tok := f.next
	f.timers[tok] = &fakeTimer{tok: tok, when: f.now.Add(d), interval: interval, fn: fn}
	return tok
}

func (f *Fake) Cancel(tok Token) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.timers, tok)
}

// Advance move o relógio até now+d, disparando cada timer vencido no instante
// do seu vencimento. Callbacks rodam fora do lock do Fake, então podem
// agendar ou cancelar timers.
func (f *Fake) Advance(d time.Duration) {
	f.mu.Lock()
	target := f.now.Add(d)
	for {
		t := f.earliestDue(target)
		if t == nil {
			f.now = target
			f.mu.Unlock()
			return
		}
		f.now = t.when
		if t.interval > 0 {
			t.when = t.when.Add(t.interval)
		} else {
			delete(f.timers, t.tok)
		}
		fn := t.fn
		f.mu.Unlock()
		fn()
		f.mu.Lock()
	}
}

// earliestDue retorna o timer com vencimento mais cedo até o limite, com
// desempate pelo token (ordem de criação).
func (f *Fake) earliestDue(limit time.Time) *fakeTimer {
	var best *fakeTimer
	for _, t := range f.timers {
		if t.when.After(limit) {
			continue
		}
		if best == nil || t.when.Before(best.when) || (t.when.Equal(best.when) && t.tok < best.tok) {
			best = t
		}
	}
	return best
}
