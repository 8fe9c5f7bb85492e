package clock

import (
	"sync"
	"time"
)

// Token identifica um timer agendado, para cancelamento. Zero nunca é emitido.
type Token uint64

// Clock abstrai relógio de parede e agendamento de callbacks, para que o
// engine possa ser testado com tempo controlado.
type Clock interface {
	Now() time.Time
	// After agenda fn uma única vez após d.
	After(d time.Duration, fn func()) Token
	// Every agenda fn repetidamente a cada d até Cancel.
	Every(d time.Duration, fn func()) Token
	// Cancel descarta o timer; é seguro cancelar duas vezes ou de dentro do callback.
	Cancel(tok Token)
}

// System é o Clock real, sobre time.AfterFunc e time.Ticker.
type System struct {
	mu    sync.Mutex
	next  Token
	stops map[Token]func()
}

func NewSystem() *System {
	return &System{stops: make(map[Token]func())}
}

func (s *System) Now() time.Time { return time.Now() }

func (s *System) After(d time.Duration, fn func()) Token {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next++
	tok := s.next
	t := time.AfterFunc(d, fn)
	s.stops[tok] = func() { t.Stop() }
	return tok
}

func (s *System) Every(d time.Duration, fn func()) Token {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next++
	tok := s.next
	ticker := time.NewTicker(d)
	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				fn()
			}
		}
	}()
	s.stops[tok] = func() {
		ticker.Stop()
		close(done)
	}
	return tok
}

func (s *System) Cancel(tok Token) {
	s.mu.Lock()
	stop, ok := s.stops[tok]
	if ok {
		delete(s.stops, tok)
	}
	s.mu.Unlock()
	// stop fora do lock: pode ser chamado de dentro do próprio callback
	if ok {
		stop()
	}
}
