package node

import (
	"bytes"
	"time"

	"github.com/ugorji/go/codec"
)

// Status is a snapshot of a node's role and synchronised state.
type Status struct {
	Address     string    `json:"address"`
	State       string    `json:"state"`
	Role        string    `json:"role"`
	Indicator   Indicator `json:"indicator"`
	SharedState int32     `json:"shared_state"`

	// Master only
	Phase *int32 `json:"phase,omitempty"`

	// Slave only
	SyncMaster   string `json:"sync_master,omitempty"`
	LastReceived string `json:"last_received,omitempty"`
}

// Status returns a snapshot of the node.
func (n *Node) Status() *Status {
	s := &Status{
		Address:     n.address.String(),
		State:       n.GetState().String(),
		Role:        "Paused",
		Indicator:   Red,
		SharedState: n.SharedState(),
	}

	switch r := n.controller.Role().(type) {
	case *Master:
		phase := r.Phase()
		s.Role = r.Name()
		s.Indicator = r.Indicator()
		s.Phase = &phase
	case *Slave:
		s.Role = r.Name()
		s.Indicator = r.Indicator()
		s.SyncMaster = r.Master().String()
		s.LastReceived = r.LastReceived().UTC().Format(time.RFC3339Nano)
	}

	return s
}

// Marshal returns the JSON encoding of a Status, with keys in a canonical
// order.
func (s *Status) Marshal() ([]byte, error) {
	b := new(bytes.Buffer)
	jh := new(codec.JsonHandle)
	jh.Canonical = true
	enc := codec.NewEncoder(b, jh)

	if err := enc.Encode(s); err != nil {
		return nil, err
	}

	return b.Bytes(), nil
}

// Unmarshal parses a JSON encoded Status.
func (s *Status) Unmarshal(data []byte) error {
	b := bytes.NewBuffer(data)
	jh := new(codec.JsonHandle)
	jh.Canonical = true
	dec := codec.NewDecoder(b, jh)

	if err := dec.Decode(s); err != nil {
		return err
	}

	return nil
}
