// Package mapping defines the compiled, immutable set of dual-role and
// chord-remap rules the event engine interprets.
package mapping

import (
	"fmt"
	"time"

	evdev "github.com/holoplot/go-evdev"

	"github.com/evremap/evremap/internal/keycodes"
)

// KeyCode is an opaque identifier for a keyboard key, drawn from the
// Linux evdev KEY_* namespace.
type KeyCode = evdev.EvCode

// DefaultHoldTimeout is the hold threshold used when a config doesn't
// set hold_timeout_ms.
const DefaultHoldTimeout = 200 * time.Millisecond

// DualRole is a single physical key that acts as a held modifier set
// when held, or a tap sequence when tapped.
type DualRole struct {
	Input KeyCode
	Hold  []KeyCode
	Tap   []KeyCode
}

// Remap is a chord: when every key in Input is simultaneously held,
// Output is emitted instead.
type Remap struct {
	Input  []KeyCode // ordered for deterministic iteration; set semantics
	Output []KeyCode
}

// Satisfied reports whether every key in the chord's input set is
// currently held.
func (r *Remap) Satisfied(physicalDown map[KeyCode]bool) bool {
	for _, k := range r.Input {
		if !physicalDown[k] {
			return false
		}
	}
	return true
}

func (r *Remap) hasInput(k KeyCode) bool {
	for _, c := range r.Input {
		if c == k {
			return true
		}
	}
	return false
}

// Table is the compiled, immutable collection of all mappings. It is
// safe for concurrent read-only use across device goroutines.
type Table struct {
	DualRoles   []DualRole
	Remaps      []Remap
	HoldTimeout time.Duration

	dualByInput map[KeyCode]*DualRole
	remapsByKey map[KeyCode][]*Remap
}

// NewTable compiles dual-role and chord-remap rules into a Table,
// rejecting duplicate dual-role inputs, identical remap input sets
// (overlapping but distinct sets are allowed), and any key used as both
// a dual-role input and a chord input.
func NewTable(dualRoles []DualRole, remaps []Remap, holdTimeout time.Duration) (*Table, error) {
	if holdTimeout <= 0 {
		holdTimeout = DefaultHoldTimeout
	}

	t := &Table{
		DualRoles:   dualRoles,
		Remaps:      remaps,
		HoldTimeout: holdTimeout,
		dualByInput: make(map[KeyCode]*DualRole, len(dualRoles)),
		remapsByKey: make(map[KeyCode][]*Remap),
	}

	for i := range t.DualRoles {
		d := &t.DualRoles[i]
		if _, dup := t.dualByInput[d.Input]; dup {
			return nil, fmt.Errorf("duplicate dual_role input %s", keyName(d.Input))
		}
		t.dualByInput[d.Input] = d
	}

	seenInputSets := make(map[string]bool, len(remaps))
	for i := range t.Remaps {
		r := &t.Remaps[i]
		sig := inputSignature(r.Input)
		if seenInputSets[sig] {
			return nil, fmt.Errorf("duplicate remap input set %s", sig)
		}
		seenInputSets[sig] = true

		for _, k := range r.Input {
			if _, isDual := t.dualByInput[k]; isDual {
				return nil, fmt.Errorf(
					"key %s is both a dual_role input and a remap input; "+
						"the dual_role rule would take precedence, which is "+
						"disallowed so it must be decided explicitly in config",
					keyName(k))
			}
			t.remapsByKey[k] = append(t.remapsByKey[k], r)
		}
	}

	return t, nil
}

// DualRoleFor returns the dual-role rule claiming code, if any.
func (t *Table) DualRoleFor(code KeyCode) (*DualRole, bool) {
	d, ok := t.dualByInput[code]
	return d, ok
}

// RemapsFor returns every chord-remap rule mentioning code in its input
// set, in configuration order.
func (t *Table) RemapsFor(code KeyCode) []*Remap {
	return t.remapsByKey[code]
}

// AllRemaps returns every chord-remap rule in configuration order.
func (t *Table) AllRemaps() []*Remap {
	out := make([]*Remap, len(t.Remaps))
	for i := range t.Remaps {
		out[i] = &t.Remaps[i]
	}
	return out
}

// OutputCodes returns the union of every KeyCode this table can ever
// emit: dual-role hold/tap expansions and chord outputs.
func (t *Table) OutputCodes() []KeyCode {
	seen := make(map[KeyCode]bool)
	var out []KeyCode
	add := func(k KeyCode) {
		if !seen[k] {
			seen[k] = true
			out = append(out, k)
		}
	}
	for _, d := range t.DualRoles {
		for _, k := range d.Hold {
			add(k)
		}
		for _, k := range d.Tap {
			add(k)
		}
	}
	for _, r := range t.Remaps {
		for _, k := range r.Output {
			add(k)
		}
	}
	return out
}

// InputCodes returns every KeyCode this table consumes as a dual-role
// or chord input. A dual-role input is never passed through raw; a chord
// input is passed through until its chord completes.
func (t *Table) InputCodes() []KeyCode {
	seen := make(map[KeyCode]bool)
	var out []KeyCode
	for k := range t.dualByInput {
		if !seen[k] {
			seen[k] = true
			out = append(out, k)
		}
	}
	for _, r := range t.Remaps {
		for _, k := range r.Input {
			if !seen[k] {
				seen[k] = true
				out = append(out, k)
			}
		}
	}
	return out
}

func inputSignature(codes []KeyCode) string {
	set := make(map[KeyCode]bool, len(codes))
	for _, c := range codes {
		set[c] = true
	}
	seen := make([]KeyCode, 0, len(set))
	for c := range set {
		seen = append(seen, c)
	}
	// Sort for a stable signature regardless of config ordering.
	for i := 1; i < len(seen); i++ {
		for j := i; j > 0 && seen[j-1] > seen[j]; j-- {
			seen[j-1], seen[j] = seen[j], seen[j-1]
		}
	}
	sig := ""
	for _, c := range seen {
		sig += fmt.Sprintf("%d,", c)
	}
	return sig
}

func keyName(k KeyCode) string {
	return keycodes.Name(k)
}
