package node

import (
	"sync"
	"time"
)

type tickerFactory func(time.Duration) (<-chan time.Time, func())

func realTicker(d time.Duration) (<-chan time.Time, func()) {
	t := time.NewTicker(d)
	return t.C, t.Stop
}

// Oscillator calls tick once when it starts and then once per interval until
// it is stopped. It drives the phase of a master.
type Oscillator struct {
	interval      time.Duration
	tick          func()
	tickerFactory tickerFactory
	stopCh        chan struct{} //receives instruction to exit Run loop
	doneCh        chan struct{}
	stopOnce      sync.Once
}

// NewOscillator ...
func NewOscillator(interval time.Duration, tick func()) *Oscillator {
	return &Oscillator{
		interval:      interval,
		tick:          tick,
		tickerFactory: realTicker,
		stopCh:        make(chan struct{}),
		doneCh:        make(chan struct{}),
	}
}

// Run blocks until Stop is called.
func (o *Oscillator) Run() {
	defer close(o.doneCh)

	select {
	case <-o.stopCh:
		return
	default:
	}

	o.tick()

	tickCh, stop := o.tickerFactory(o.interval)
	defer stop()

	for {
		select {
		case <-tickCh:
			o.tick()
		case <-o.stopCh:
			return
		}
	}
}

// Stop ends Run. It is safe to call Stop several times, and before Run.
func (o *Oscillator) Stop() {
	o.stopOnce.Do(func() {
		close(o.stopCh)
	})
}

// Done is closed when Run has returned.
func (o *Oscillator) Done() <-chan struct{} {
	return o.doneCh
}
