package device

import (
	"fmt"
	"time"

	evdev "github.com/holoplot/go-evdev"

	"github.com/evremap/evremap/internal/engine"
)

// Source reads raw key events from one exclusively-grabbed physical
// input device, translating them into engine.Event values.
type Source struct {
	dev  *evdev.InputDevice
	path string
	name string
}

// Open opens and grabs the device at path exclusively for the lifetime
// of its remapper goroutine. A device lacking key capability altogether
// is rejected; one with key capability but no letter keys (IsKeyboard)
// is still grabbed, since the config's device_name is what the operator
// asked for, not a heuristic.
func Open(path string) (*Source, error) {
	dev, err := evdev.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening device %s: %w", path, err)
	}
	name, _ := dev.Name()
	if !hasKeyCapability(dev) {
		dev.Close()
		return nil, fmt.Errorf("device %s (%s) has no EV_KEY capability", path, name)
	}
	if err := dev.Grab(); err != nil {
		dev.Close()
		return nil, fmt.Errorf("grabbing device %s: %w", path, err)
	}
	return &Source{dev: dev, path: path, name: name}, nil
}

func hasKeyCapability(dev *evdev.InputDevice) bool {
	for _, t := range dev.CapableTypes() {
		if t == evdev.EV_KEY {
			return true
		}
	}
	return false
}

// Name is the device's reported name.
func (s *Source) Name() string { return s.name }

// Path is the /dev/input/event* node this source was opened from.
func (s *Source) Path() string { return s.path }

// NextEvent blocks until the next EV_KEY event arrives, skipping every
// other event type (EV_SYN, EV_MSC, EV_REL, ...) since only key state
// changes matter to the engine.
func (s *Source) NextEvent() (engine.Event, error) {
	for {
		ev, err := s.dev.ReadOne()
		if err != nil {
			return engine.Event{}, fmt.Errorf("reading from %s: %w", s.path, err)
		}
		if ev.Type != evdev.EV_KEY {
			continue
		}

		var state engine.KeyState
		switch ev.Value {
		case 0:
			state = engine.KeyRelease
		case 1:
			state = engine.KeyPress
		case 2:
			state = engine.KeyRepeat
		default:
			continue
		}

		return engine.Event{
			Time:  time.Unix(ev.Time.Sec, ev.Time.Usec*1000),
			Code:  ev.Code,
			State: state,
		}, nil
	}
}

// Close ungrabs and closes the underlying device node. Ungrab happens
// after the final sync is written to the output sink, so this is called
// by the remapper loop, not by Source itself, at the right point in the
// shutdown sequence.
func (s *Source) Close() error {
	_ = s.dev.Ungrab()
	return s.dev.Close()
}
