package net

import (
	"crypto/rand"
	"fmt"
	mrand "math/rand"
	"sync"
	"sync/atomic"
	"time"
)

const inmemQueueSize = 64

// NewInmemAddr returns a new in-memory addr with
// a randomly generate UUID as the ID.
func NewInmemAddr() string {
	return generateUUID()
}

// generateUUID is used to generate a random UUID.
func generateUUID() string {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		panic(fmt.Errorf("failed to read random bytes: %v", err))
	}

	return fmt.Sprintf("%08x-%04x-%04x-%04x-%12x",
		buf[0:4],
		buf[4:6],
		buf[6:8],
		buf[8:10],
		buf[10:16])
}

// InmemNetwork is an in-process broadcast medium. Every datagram sent by one
// of its transports is offered to every open receiver, the sender's own
// receivers included, unless it is dropped.
type InmemNetwork struct {
	sync.RWMutex
	receivers map[*inmemReceiver]struct{}

	dropPct int
	rngLock sync.Mutex
	rng     *mrand.Rand
}

// NewInmemNetwork returns an empty lossless network.
func NewInmemNetwork() *InmemNetwork {
	return &InmemNetwork{
		receivers: make(map[*inmemReceiver]struct{}),
		rng:       mrand.New(mrand.NewSource(time.Now().UnixNano())),
	}
}

// SetDropRate sets the percentage (0..100) of deliveries that are lost, and
// reseeds the loss generator so that simulations are reproducible.
func (n *InmemNetwork) SetDropRate(pct int, seed int64) {
	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}
	n.rngLock.Lock()
	defer n.rngLock.Unlock()
	n.dropPct = pct
	n.rng = mrand.New(mrand.NewSource(seed))
}

// Receivers returns the number of open receivers.
func (n *InmemNetwork) Receivers() int {
	n.RLock()
	defer n.RUnlock()
	return len(n.receivers)
}

func (n *InmemNetwork) drop() bool {
	n.rngLock.Lock()
	defer n.rngLock.Unlock()
	if n.dropPct == 0 {
		return false
	}
	return n.rng.Intn(100) < n.dropPct
}

func (n *InmemNetwork) attach(r *inmemReceiver) {
	n.Lock()
	defer n.Unlock()
	n.receivers[r] = struct{}{}
}

func (n *InmemNetwork) detach(r *inmemReceiver) {
	n.Lock()
	defer n.Unlock()
	delete(n.receivers, r)
}

func (n *InmemNetwork) broadcast(data []byte) {
	n.RLock()
	targets := make([]*inmemReceiver, 0, len(n.receivers))
	for r := range n.receivers {
		targets = append(targets, r)
	}
	n.RUnlock()

	for _, r := range targets {
		if n.drop() {
			continue
		}
		r.deliver(append([]byte(nil), data...))
	}
}

// InmemTransport Implements the Transport interface, to allow firefly nodes
// to be tested in-memory without going over a network.
type InmemTransport struct {
	sync.Mutex
	network   *InmemNetwork
	localAddr string
	receivers map[*inmemReceiver]struct{}
	closed    bool

	failOpens int32
	failSends int32
}

// NewInmemTransport attaches a new transport to the network and generates a
// random local address if none is specified.
func NewInmemTransport(network *InmemNetwork, addr string) (string, *InmemTransport) {
	if addr == "" {
		addr = NewInmemAddr()
	}
	trans := &InmemTransport{
		network:   network,
		localAddr: addr,
		receivers: make(map[*inmemReceiver]struct{}),
	}
	return addr, trans
}

// LocalAddr returns the name of the transport.
func (i *InmemTransport) LocalAddr() string {
	return i.localAddr
}

// FailNextOpens makes the next count calls to OpenSender or OpenReceiver
// fail.
func (i *InmemTransport) FailNextOpens(count int) {
	atomic.StoreInt32(&i.failOpens, int32(count))
}

// FailNextSends makes the next count calls to Send fail.
func (i *InmemTransport) FailNextSends(count int) {
	atomic.StoreInt32(&i.failSends, int32(count))
}

func consume(counter *int32) bool {
	for {
		v := atomic.LoadInt32(counter)
		if v <= 0 {
			return false
		}
		if atomic.CompareAndSwapInt32(counter, v, v-1) {
			return true
		}
	}
}

// OpenSender implements the Transport interface.
func (i *InmemTransport) OpenSender() (Sender, error) {
	i.Lock()
	defer i.Unlock()
	if i.closed {
		return nil, ErrTransportShutdown
	}
	if consume(&i.failOpens) {
		return nil, fmt.Errorf("%s: injected open failure", i.localAddr)
	}
	return &inmemSender{trans: i}, nil
}

// OpenReceiver implements the Transport interface.
func (i *InmemTransport) OpenReceiver() (Receiver, error) {
	i.Lock()
	defer i.Unlock()
	if i.closed {
		return nil, ErrTransportShutdown
	}
	if consume(&i.failOpens) {
		return nil, fmt.Errorf("%s: injected open failure", i.localAddr)
	}
	r := &inmemReceiver{
		trans:   i,
		queue:   make(chan []byte, inmemQueueSize),
		closeCh: make(chan struct{}),
	}
	i.receivers[r] = struct{}{}
	i.network.attach(r)
	return r, nil
}

// Close is used to permanently disable the transport. Open receivers are
// detached from the network.
func (i *InmemTransport) Close() error {
	i.Lock()
	if i.closed {
		i.Unlock()
		return nil
	}
	i.closed = true
	receivers := i.receivers
	i.receivers = make(map[*inmemReceiver]struct{})
	i.Unlock()

	for r := range receivers {
		r.close()
	}
	return nil
}

func (i *InmemTransport) forget(r *inmemReceiver) {
	i.Lock()
	defer i.Unlock()
	delete(i.receivers, r)
}

type inmemSender struct {
	trans  *InmemTransport
	closed int32
}

func (s *inmemSender) Send(data []byte) error {
	if atomic.LoadInt32(&s.closed) == 1 {
		return ErrTransportShutdown
	}
	s.trans.Lock()
	closed := s.trans.closed
	s.trans.Unlock()
	if closed {
		return ErrTransportShutdown
	}
	if consume(&s.trans.failSends) {
		return fmt.Errorf("%s: injected send failure", s.trans.localAddr)
	}
	s.trans.network.broadcast(data)
	return nil
}

func (s *inmemSender) Close() error {
	atomic.StoreInt32(&s.closed, 1)
	return nil
}

type inmemReceiver struct {
	trans     *InmemTransport
	queue     chan []byte
	closeCh   chan struct{}
	closeOnce sync.Once
}

// deliver never blocks; a full queue loses the datagram.
func (r *inmemReceiver) deliver(data []byte) {
	select {
	case <-r.closeCh:
	case r.queue <- data:
	default:
	}
}

func (r *inmemReceiver) Receive(buf []byte, timeout time.Duration) (int, error) {
	select {
	case <-r.closeCh:
		return 0, ErrTransportShutdown
	default:
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case data := <-r.queue:
		return copy(buf, data), nil
	case <-timer.C:
		return 0, ErrTimeout
	case <-r.closeCh:
		return 0, ErrTransportShutdown
	}
}

func (r *inmemReceiver) close() {
	r.closeOnce.Do(func() {
		r.trans.network.detach(r)
		close(r.closeCh)
	})
}

func (r *inmemReceiver) Close() error {
	r.close()
	r.trans.forget(r)
	return nil
}
