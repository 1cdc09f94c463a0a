package device

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEventNumberFromPath(t *testing.T) {
	assert.Equal(t, 3, eventNumber("/dev/input/event3"))
	assert.Equal(t, 12, eventNumber("/dev/input/event12"))
	assert.Equal(t, 0, eventNumber("/dev/input/mice"))
}

func TestInfoString(t *testing.T) {
	i := Info{Name: "Foo Keyboard", Path: "/dev/input/event3", Phys: "usb-0000:00:14.0-1/input0"}
	s := i.String()
	assert.Contains(t, s, "Name: Foo Keyboard")
	assert.Contains(t, s, "Path: /dev/input/event3")
	assert.Contains(t, s, "Phys: usb-0000:00:14.0-1/input0")
}
