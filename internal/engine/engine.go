// Package engine implements the dual-role/chord-remap event-processing
// state machine. It is a pure function of prior state plus an incoming
// stimulus (a physical key event or a timer expiry) — no device I/O
// happens here, which is what makes it unit-testable without a kernel
// underneath it.
package engine

import (
	"sort"
	"time"

	"github.com/evremap/evremap/internal/mapping"
)

// pendingDual tracks the single undecided dual-role key, if any.
type pendingDual struct {
	rule *mapping.DualRole
}

// Engine holds the mutable state of the remapper and the transitions
// that drive it.
type Engine struct {
	table *mapping.Table

	physicalDown map[KeyCode]bool
	emittedDown  map[KeyCode]bool
	pending      *pendingDual
	heldDual     map[KeyCode]*mapping.DualRole // dual-role input -> rule, while resolved-as-hold and still down
	activeRemaps map[*mapping.Remap]bool

	mappedKeys map[KeyCode]bool // dual-role input, chord input, or chord output
	enabled    bool
}

// New builds an Engine around an immutable mapping.Table.
func New(table *mapping.Table) *Engine {
	e := &Engine{
		table:        table,
		physicalDown: make(map[KeyCode]bool),
		emittedDown:  make(map[KeyCode]bool),
		heldDual:     make(map[KeyCode]*mapping.DualRole),
		activeRemaps: make(map[*mapping.Remap]bool),
		mappedKeys:   make(map[KeyCode]bool),
		enabled:      true,
	}
	for _, d := range table.DualRoles {
		e.mappedKeys[d.Input] = true
	}
	for _, r := range table.Remaps {
		for _, k := range r.Input {
			e.mappedKeys[k] = true
		}
		for _, k := range r.Output {
			e.mappedKeys[k] = true
		}
	}
	return e
}

// HoldTimeout is the configured dual-role hold threshold.
func (e *Engine) HoldTimeout() time.Duration { return e.table.HoldTimeout }

// IsPending reports whether a dual-role key is currently undecided, so a
// caller can arm or disarm the single rearmable timer.
func (e *Engine) IsPending() bool { return e.pending != nil }

// EmittedDown returns a snapshot of the keys currently reported as held
// on the output device, for invariant checks.
func (e *Engine) EmittedDown() map[KeyCode]bool {
	out := make(map[KeyCode]bool, len(e.emittedDown))
	for k := range e.emittedDown {
		out[k] = true
	}
	return out
}

// OnEvent feeds one physical key event through the state machine and
// returns the output events it produces, already framed with a trailing
// SYN_REPORT where one belongs.
func (e *Engine) OnEvent(ev Event) []Out {
	if !e.enabled {
		return e.onEventDisabled(ev)
	}
	switch ev.State {
	case KeyPress:
		return e.onPress(ev.Code)
	case KeyRelease:
		return e.onRelease(ev.Code)
	case KeyRepeat:
		return e.onRepeat(ev.Code)
	default:
		return nil
	}
}

// OnTimerExpiry feeds a hold-timeout expiry through the state machine.
// It is a no-op if nothing is pending, which can happen if the timer
// fired just as the pending key resolved some other way.
func (e *Engine) OnTimerExpiry() []Out {
	if e.pending == nil {
		return nil
	}
	return frame(e.resolveAsHold())
}

// SetEnabled toggles whether the engine applies mappings at all. When
// disabled it is a transparent pass-through; toggling off first
// synthesizes releases for whatever is currently held so the output
// device never gets stuck with phantom keys.
func (e *Engine) SetEnabled(enabled bool) []Out {
	if enabled == e.enabled {
		return nil
	}
	e.enabled = enabled
	if enabled {
		return nil
	}
	out := e.teardownLocked()
	e.pending = nil
	e.heldDual = make(map[KeyCode]*mapping.DualRole)
	e.activeRemaps = make(map[*mapping.Remap]bool)
	return out
}

// Teardown synthesizes a Release for every key still in emitted_down,
// for use on shutdown.
func (e *Engine) Teardown() []Out {
	return e.teardownLocked()
}

func (e *Engine) teardownLocked() []Out {
	keys := make([]KeyCode, 0, len(e.emittedDown))
	for k := range e.emittedDown {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	var out []Out
	for _, k := range keys {
		out = append(out, releaseOut(k))
		delete(e.emittedDown, k)
	}
	return frame(out)
}

// --- press ---

func (e *Engine) onPress(k KeyCode) []Out {
	var out []Out
	e.physicalDown[k] = true

	if e.pending != nil {
		// Another key was pressed before the pending dual-role key
		// resolved itself: it's a modifier. Resolve as hold first, then
		// keep processing k.
		out = append(out, e.resolveAsHold()...)
	}

	if d, ok := e.table.DualRoleFor(k); ok && e.pending == nil {
		e.pending = &pendingDual{rule: d}
		return frame(out)
	}

	remapOut, consumed := e.recomputeRemaps()
	out = append(out, remapOut...)

	if !consumed[k] {
		out = append(out, pressOut(k))
		e.emittedDown[k] = true
	}

	return frame(out)
}

// --- release ---

func (e *Engine) onRelease(k KeyCode) []Out {
	var out []Out
	delete(e.physicalDown, k)

	if e.pending != nil && e.pending.rule.Input == k {
		out = append(out, e.resolveAsTap()...)
		return frame(out)
	}

	wasDualInput := false
	if rule, ok := e.heldDual[k]; ok {
		wasDualInput = true
		delete(e.heldDual, k)
		for _, hk := range rule.Hold {
			if e.emittedDown[hk] && !e.keyStillNeeded(hk, k) {
				out = append(out, releaseOut(hk))
				delete(e.emittedDown, hk)
			}
		}
	}

	remapOut, _ := e.recomputeRemaps()
	out = append(out, remapOut...)

	if !wasDualInput && e.emittedDown[k] {
		out = append(out, releaseOut(k))
		delete(e.emittedDown, k)
	}

	return frame(out)
}

// --- repeat ---

func (e *Engine) onRepeat(k KeyCode) []Out {
	if e.mappedKeys[k] {
		return nil
	}
	return frame([]Out{repeatOut(k)})
}

// --- dual-role resolution ---

func (e *Engine) resolveAsHold() []Out {
	p := e.pending
	e.pending = nil

	var out []Out
	for _, k := range p.rule.Hold {
		if !e.emittedDown[k] {
			out = append(out, pressOut(k))
			e.emittedDown[k] = true
		}
	}
	e.heldDual[p.rule.Input] = p.rule
	return out
}

func (e *Engine) resolveAsTap() []Out {
	p := e.pending
	e.pending = nil

	var out []Out
	for _, k := range p.rule.Tap {
		out = append(out, pressOut(k), syncOut(), releaseOut(k), syncOut())
	}
	return out
}

// keyStillNeeded reports whether k is required by some mapping other
// than the dual-role rule whose input is excludeInput: another held
// dual-role's hold set, or an active chord's output.
func (e *Engine) keyStillNeeded(k KeyCode, excludeInput KeyCode) bool {
	for input, rule := range e.heldDual {
		if input == excludeInput {
			continue
		}
		for _, hk := range rule.Hold {
			if hk == k {
				return true
			}
		}
	}
	for r := range e.activeRemaps {
		for _, ok := range r.Output {
			if ok == k {
				return true
			}
		}
	}
	return false
}

// --- chord-remap activation ---

// recomputeRemaps recomputes which chord-remap rules are satisfied given
// the current physical_down set, emitting releases/presses for the
// delta. It returns the keys that were suppressed because they are
// members of a newly-active rule's input set.
func (e *Engine) recomputeRemaps() ([]Out, map[KeyCode]bool) {
	all := e.table.AllRemaps()

	satisfied := make(map[*mapping.Remap]bool, len(all))
	for _, r := range all {
		if r.Satisfied(e.physicalDown) {
			satisfied[r] = true
		}
	}

	var out []Out
	consumed := make(map[KeyCode]bool)

	// Newly active rules, in configuration order.
	for _, r := range all {
		if satisfied[r] && !e.activeRemaps[r] {
			for _, ik := range r.Input {
				consumed[ik] = true
				if e.emittedDown[ik] {
					out = append(out, releaseOut(ik))
					delete(e.emittedDown, ik)
				}
			}
			for _, ok := range r.Output {
				if !e.emittedDown[ok] {
					out = append(out, pressOut(ok))
					e.emittedDown[ok] = true
				}
			}
		}
	}

	// Deactivated rules: release outputs no longer required by any rule
	// that remains active.
	for _, r := range all {
		if e.activeRemaps[r] && !satisfied[r] {
			for _, ok := range r.Output {
				if e.emittedDown[ok] && !e.outputStillActive(satisfied, ok, r) {
					out = append(out, releaseOut(ok))
					delete(e.emittedDown, ok)
				}
			}
		}
	}

	e.activeRemaps = satisfied
	return out, consumed
}

func (e *Engine) outputStillActive(satisfied map[*mapping.Remap]bool, k KeyCode, exclude *mapping.Remap) bool {
	for _, r := range e.table.AllRemaps() {
		if r == exclude || !satisfied[r] {
			continue
		}
		for _, ok := range r.Output {
			if ok == k {
				return true
			}
		}
	}
	return false
}

// --- bypass mode ---

func (e *Engine) onEventDisabled(ev Event) []Out {
	switch ev.State {
	case KeyPress:
		if e.emittedDown[ev.Code] {
			return nil
		}
		e.emittedDown[ev.Code] = true
		return frame([]Out{pressOut(ev.Code)})
	case KeyRelease:
		if !e.emittedDown[ev.Code] {
			return nil
		}
		delete(e.emittedDown, ev.Code)
		return frame([]Out{releaseOut(ev.Code)})
	case KeyRepeat:
		return frame([]Out{repeatOut(ev.Code)})
	default:
		return nil
	}
}
