package net

import (
	"errors"
	"time"
)

var (
	// ErrTimeout is returned by Receiver.Receive when nothing arrived before
	// the timeout. It is not a failure of the channel.
	ErrTimeout = errors.New("receive timed out")

	// ErrTransportShutdown is returned when using a closed transport, sender
	// or receiver.
	ErrTransportShutdown = errors.New("transport shutdown")
)

// Transport provides an interface for broadcast channels. The sending and
// receiving sides are opened independently and may be reopened any number of
// times.
type Transport interface {

	// OpenSender opens the channel for broadcasting.
	OpenSender() (Sender, error)

	// OpenReceiver opens the channel for receiving.
	OpenReceiver() (Receiver, error)

	// Close permanently closes a transport, stopping any associated
	// goroutines and freeing other resources.
	Close() error
}

// Sender broadcasts datagrams.
type Sender interface {
	Send(data []byte) error
	Close() error
}

// Receiver receives datagrams.
type Receiver interface {

	// Receive blocks until a datagram is copied into buf or the timeout
	// expires, in which case it returns ErrTimeout. Datagrams larger than buf
	// are truncated.
	Receive(buf []byte, timeout time.Duration) (int, error)

	Close() error
}

// IsTimeout reports whether err is a receive timeout.
func IsTimeout(err error) bool {
	return errors.Is(err, ErrTimeout)
}
