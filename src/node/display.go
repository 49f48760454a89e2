package node

import (
	"sync"

	"github.com/sirupsen/logrus"
)

// Display is the rendering layer: status light, blinking lights, anything
// that shows the synchronised state to the outside world. The node only ever
// pushes values to it.
type Display interface {
	// ShowRole is called when a role is installed. An empty name means the
	// node is paused.
	ShowRole(name string, indicator Indicator)

	// ShowState is called every time the shared state is written.
	ShowState(value int32)
}

// LogDisplay is a Display that logs role changes and state flips.
type LogDisplay struct {
	sync.Mutex
	logger *logrus.Entry
	last   int32
	shown  bool
}

// NewLogDisplay ...
func NewLogDisplay(logger *logrus.Entry) *LogDisplay {
	return &LogDisplay{logger: logger.WithField("component", "display")}
}

// ShowRole implements the Display interface.
func (d *LogDisplay) ShowRole(name string, indicator Indicator) {
	if name == "" {
		name = "Paused"
	}
	d.logger.WithFields(logrus.Fields{
		"role":      name,
		"indicator": indicator,
	}).Debug("Status light")
}

// ShowState implements the Display interface. Only changes are logged since
// the state is rewritten on every beacon.
func (d *LogDisplay) ShowState(value int32) {
	d.Lock()
	defer d.Unlock()
	if d.shown && d.last == value {
		return
	}
	d.last, d.shown = value, true
	d.logger.WithField("state", value).Debug("Blink")
}
