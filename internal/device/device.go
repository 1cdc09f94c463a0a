// Package device handles discovery of physical evdev keyboards and the
// construction of the virtual uinput output device.
package device

import (
	"fmt"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	evdev "github.com/holoplot/go-evdev"
)

// Info describes one physical input device found under /dev/input.
type Info struct {
	Name       string
	Path       string
	Phys       string
	IsKeyboard bool
}

var eventNumberRe = regexp.MustCompile(`event(\d+)$`)

func eventNumber(path string) int {
	m := eventNumberRe.FindStringSubmatch(path)
	if m == nil {
		return 0
	}
	n, _ := strconv.Atoi(m[1])
	return n
}

// List enumerates every /dev/input/event* node that opens cleanly,
// ordered by name and then by event-device unit number for devices that
// share a name.
func List() ([]Info, error) {
	matches, err := filepath.Glob("/dev/input/event*")
	if err != nil {
		return nil, fmt.Errorf("globbing /dev/input: %w", err)
	}

	var infos []Info
	for _, path := range matches {
		dev, err := evdev.Open(path)
		if err != nil {
			continue
		}
		name, _ := dev.Name()
		phys, _ := dev.PhysicalLocation()
		keyboard := IsKeyboard(dev)
		dev.Close()
		infos = append(infos, Info{Name: name, Path: path, Phys: phys, IsKeyboard: keyboard})
	}

	sort.Slice(infos, func(i, j int) bool {
		if infos[i].Name != infos[j].Name {
			return infos[i].Name < infos[j].Name
		}
		return eventNumber(infos[i].Path) < eventNumber(infos[j].Path)
	})
	return infos, nil
}

// MatchingName returns every device whose name matches name, narrowed to
// a single device if phys is non-empty and matches one of them. A name
// match with more than one candidate and no phys given returns every
// match, so the caller can spawn one remapper per match.
func MatchingName(name, phys string) ([]Info, error) {
	all, err := List()
	if err != nil {
		return nil, err
	}

	if phys != "" {
		for _, d := range all {
			if d.Name == name && d.Phys == phys {
				return []Info{d}, nil
			}
		}
		return nil, fmt.Errorf("requested device %q with phys=%q was not found", name, phys)
	}

	var matches []Info
	for _, d := range all {
		if d.Name == name {
			matches = append(matches, d)
		}
	}
	if len(matches) == 0 {
		return nil, fmt.Errorf("no device found with name %q", name)
	}
	return matches, nil
}

// IsKeyboard reports whether dev exposes EV_KEY capability including at
// least one code from KEY_A (30) through KEY_DOT (52), the block holding
// the home and bottom letter rows, distinguishing a keyboard from a mouse
// or other EV_KEY device.
func IsKeyboard(dev *evdev.InputDevice) bool {
	for _, t := range dev.CapableTypes() {
		if t != evdev.EV_KEY {
			continue
		}
		for _, code := range dev.CapableEvents(evdev.EV_KEY) {
			if code >= 30 && code <= 52 { // KEY_A .. KEY_DOT
				return true
			}
		}
	}
	return false
}

// String formats a device entry for the `list-devices` subcommand.
func (i Info) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Name: %s\n", i.Name)
	fmt.Fprintf(&b, "Path: %s\n", i.Path)
	fmt.Fprintf(&b, "Phys: %s\n", i.Phys)
	return b.String()
}
