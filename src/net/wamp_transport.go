package net

import (
	"context"
	"encoding/base64"
	"fmt"
	"sync"
	"time"

	"github.com/gammazero/nexus/v3/client"
	"github.com/gammazero/nexus/v3/router"
	"github.com/gammazero/nexus/v3/wamp"
	"github.com/sirupsen/logrus"
)

// DefaultWAMPTopic is the topic beacons are published to.
const DefaultWAMPTopic = "firefly.beacon"

const wampQueueSize = 64

// WAMPTransport implements the Transport interface over the publish/subscribe
// feature of a WAMP router. Each sender and receiver holds its own session.
type WAMPTransport struct {
	topic   string
	connect func() (*client.Client, error)
	logger  *logrus.Entry
}

// NewWAMPTransport returns a transport connecting to the router at routerURL
// (eg. ws://127.0.0.1:8080/ws) and joining realm.
func NewWAMPTransport(
	routerURL string,
	realm string,
	topic string,
	timeout time.Duration,
	logger *logrus.Entry,
) *WAMPTransport {

	cfg := client.Config{
		Realm:           realm,
		ResponseTimeout: timeout,
		Logger:          logger,
	}

	return &WAMPTransport{
		topic: topic,
		connect: func() (*client.Client, error) {
			ctx, cancel := context.WithTimeout(context.Background(), timeout)
			defer cancel()
			return client.ConnectNet(ctx, routerURL, cfg)
		},
		logger: logger,
	}
}

// NewLocalWAMPTransport returns a transport whose sessions are attached
// directly to an in-process router.
func NewLocalWAMPTransport(
	r router.Router,
	realm string,
	topic string,
	logger *logrus.Entry,
) *WAMPTransport {

	cfg := client.Config{
		Realm:  realm,
		Logger: logger,
	}

	return &WAMPTransport{
		topic: topic,
		connect: func() (*client.Client, error) {
			return client.ConnectLocal(r, cfg)
		},
		logger: logger,
	}
}

// OpenSender implements the Transport interface.
func (w *WAMPTransport) OpenSender() (Sender, error) {
	cli, err := w.connect()
	if err != nil {
		return nil, err
	}
	w.logger.WithField("topic", w.topic).Debug("Opened WAMP sender")
	return &wampSender{cli: cli, topic: w.topic}, nil
}

// OpenReceiver implements the Transport interface.
func (w *WAMPTransport) OpenReceiver() (Receiver, error) {
	cli, err := w.connect()
	if err != nil {
		return nil, err
	}

	r := &wampReceiver{
		cli:   cli,
		topic: w.topic,
		queue: make(chan []byte, wampQueueSize),
	}

	if err := cli.Subscribe(w.topic, r.onEvent, nil); err != nil {
		cli.Close()
		return nil, err
	}

	w.logger.WithField("topic", w.topic).Debug("Opened WAMP receiver")

	return r, nil
}

// Close implements the Transport interface.
func (w *WAMPTransport) Close() error {
	return nil
}

type wampSender struct {
	cli   *client.Client
	topic string
}

func (s *wampSender) Send(data []byte) error {
	if !s.cli.Connected() {
		return ErrTransportShutdown
	}
	args := wamp.List{base64.StdEncoding.EncodeToString(data)}
	return s.cli.Publish(s.topic, nil, args, nil)
}

func (s *wampSender) Close() error {
	return s.cli.Close()
}

type wampReceiver struct {
	cli       *client.Client
	topic     string
	queue     chan []byte
	closeOnce sync.Once
}

// onEvent never blocks the router; a full queue loses the beacon.
func (r *wampReceiver) onEvent(event *wamp.Event) {
	if len(event.Arguments) == 0 {
		return
	}
	s, ok := wamp.AsString(event.Arguments[0])
	if !ok {
		return
	}
	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return
	}
	select {
	case r.queue <- data:
	default:
	}
}

func (r *wampReceiver) Receive(buf []byte, timeout time.Duration) (int, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case data := <-r.queue:
		return copy(buf, data), nil
	case <-timer.C:
		return 0, ErrTimeout
	case <-r.cli.Done():
		return 0, fmt.Errorf("wamp session closed: %w", ErrTransportShutdown)
	}
}

func (r *wampReceiver) Close() error {
	var err error
	r.closeOnce.Do(func() {
		r.cli.Unsubscribe(r.topic)
		err = r.cli.Close()
	})
	return err
}
