package node

import (
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"
)

// Controller owns the active role and the shared state. It is the only place
// where the active role is replaced, and the shared state is only written
// through it.
type Controller struct {
	sync.RWMutex
	active Role
	closed bool

	sharedState int32

	display  Display
	logger   *logrus.Entry
	onChange func(old, next Role)
	onState  func(v int32)
}

// NewController returns a Controller with no active role and the shared state
// at its default value.
func NewController(display Display, logger *logrus.Entry) *Controller {
	return &Controller{
		display: display,
		logger:  logger,
	}
}

// Role returns the active role, or nil when paused.
func (c *Controller) Role() Role {
	c.RLock()
	defer c.RUnlock()
	return c.active
}

// SetRole halts the active role and installs r, unless r already is the
// active role. A nil r pauses the node. Once the controller is halted, r is
// halted without being started and the active role is kept.
func (c *Controller) SetRole(r Role) {
	c.Lock()
	defer c.Unlock()

	if c.closed {
		if r != nil {
			r.Halt()
		}
		return
	}

	old := c.active
	if r == old {
		return
	}

	if old != nil {
		c.logger.WithField("role", old.Name()).Info("Stopping")
		old.Halt()
	}

	c.active = r

	if r != nil {
		c.logger.WithFields(r.Fields()).Info("New role")
		r.start()
		c.display.ShowRole(r.Name(), r.Indicator())
	} else {
		c.logger.Info("Paused")
		c.display.ShowRole("", Red)
	}

	if c.onChange != nil {
		c.onChange(old, r)
	}
}

// Halt halts the active role without replacing it or notifying the display,
// and rejects every later SetRole. It is used on shutdown.
func (c *Controller) Halt() {
	c.Lock()
	defer c.Unlock()
	c.closed = true
	if c.active != nil {
		c.active.Halt()
	}
}

// SharedState returns the last value written to the shared state.
func (c *Controller) SharedState() int32 {
	return atomic.LoadInt32(&c.sharedState)
}

func (c *Controller) setSharedState(v int32) {
	atomic.StoreInt32(&c.sharedState, v)
	c.display.ShowState(v)
	if c.onState != nil {
		c.onState(v)
	}
}

// reset puts the shared state back to its default value.
func (c *Controller) reset() {
	atomic.StoreInt32(&c.sharedState, 0)
}
