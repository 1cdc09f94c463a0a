package engine

import (
	"time"

	"github.com/evremap/evremap/internal/mapping"
)

// KeyCode is re-exported for callers that only need the engine package.
type KeyCode = mapping.KeyCode

// KeyState is the physical state carried by an Event.
type KeyState int

const (
	KeyPress KeyState = iota
	KeyRelease
	KeyRepeat
)

func (s KeyState) String() string {
	switch s {
	case KeyPress:
		return "press"
	case KeyRelease:
		return "release"
	case KeyRepeat:
		return "repeat"
	default:
		return "unknown"
	}
}

// Event is a timestamped key event read from the physical device.
type Event struct {
	Time  time.Time
	Code  KeyCode
	State KeyState
}

// OutKind distinguishes the four kinds of output stimulus the engine
// produces: a key press, a key release, a forwarded repeat, or a
// SYN_REPORT frame delimiter.
type OutKind int

const (
	OutPress OutKind = iota
	OutRelease
	OutRepeat
	OutSync
)

// Out is a single synthesized output event. A sequence of Out values
// produced by one call into the engine represents exactly what should be
// written to the output sink, in order.
type Out struct {
	Kind OutKind
	Code KeyCode
}

func pressOut(k KeyCode) Out   { return Out{Kind: OutPress, Code: k} }
func releaseOut(k KeyCode) Out { return Out{Kind: OutRelease, Code: k} }
func repeatOut(k KeyCode) Out  { return Out{Kind: OutRepeat, Code: k} }
func syncOut() Out             { return Out{Kind: OutSync} }

// frame appends a trailing SYN_REPORT to a non-empty batch, unless the
// batch already ends in one (the tap expansion in resolveAsTap frames
// each key itself). An empty batch stays empty: a SYN_REPORT must never
// be emitted with nothing in front of it.
func frame(out []Out) []Out {
	if len(out) == 0 {
		return nil
	}
	if out[len(out)-1].Kind == OutSync {
		return out
	}
	return append(out, syncOut())
}
