package device

import (
	"fmt"
	"sync"

	"github.com/bendahl/uinput"

	"github.com/evremap/evremap/internal/engine"
)

// Sink is the output boundary: it turns engine.Out values into uinput
// key events on a synthesized virtual keyboard. One Sink is typically
// shared across every grabbed physical device's Remapper goroutine, so
// Apply serializes its writes with mu rather than assuming a single
// caller.
type Sink struct {
	mu sync.Mutex
	kb uinput.Keyboard
}

// NewSink creates a virtual keyboard with bendahl/uinput's standard
// keyboard capability set. The set is not derived from the mapping table
// or from the source device: a mapped output code outside the library's
// keyboard range is not advertised.
func NewSink(name string) (*Sink, error) {
	kb, err := uinput.CreateKeyboard("/dev/uinput", []byte(name))
	if err != nil {
		return nil, fmt.Errorf("creating virtual keyboard %q: %w", name, err)
	}
	return &Sink{kb: kb}, nil
}

// Apply writes a batch of Out values to the virtual keyboard in order.
// bendahl/uinput has no raw-write/explicit-sync API: KeyDown/KeyUp each
// synthesize their own EV_SYN internally, so an OutSync entry is a
// deliberate no-op here — see DESIGN.md for why this isn't a gap.
func (s *Sink) Apply(out []engine.Out) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, o := range out {
		switch o.Kind {
		case engine.OutPress:
			if err := s.kb.KeyDown(int(o.Code)); err != nil {
				return fmt.Errorf("press %d: %w", o.Code, err)
			}
		case engine.OutRelease:
			if err := s.kb.KeyUp(int(o.Code)); err != nil {
				return fmt.Errorf("release %d: %w", o.Code, err)
			}
		case engine.OutRepeat:
			// The virtual device has no native autorepeat of its own;
			// forwarding another KeyDown nudges the receiving
			// application's own repeat handling.
			if err := s.kb.KeyDown(int(o.Code)); err != nil {
				return fmt.Errorf("repeat %d: %w", o.Code, err)
			}
		case engine.OutSync:
			// no-op: see doc comment above.
		}
	}
	return nil
}

// Close destroys the virtual keyboard device.
func (s *Sink) Close() error {
	return s.kb.Close()
}
