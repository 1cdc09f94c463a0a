// Package tray provides optional system tray integration using
// fyne.io/systray: an enabled/disabled toggle, a read-only list of
// grabbed devices, and quit.
package tray

import (
	"fmt"
	"time"

	"fyne.io/systray"
	"github.com/charmbracelet/log"
)

// Config configures the tray icon.
type Config struct {
	Devices  []string // names of grabbed devices, shown as menu items; the tooltip shows their count
	Enabled  bool
	OnToggle func(enabled bool)
	OnQuit   func()
	Logger   *log.Logger
}

// Tray is a minimal status icon: an enabled/disabled toggle for the
// remapping engine, a read-only list of grabbed devices, and quit.
type Tray struct {
	log      *log.Logger
	onToggle func(enabled bool)
	onQuit   func()

	enabled bool
	devices []string

	statusItem *systray.MenuItem
}

// New builds a Tray from cfg. Call Run to start it; Run blocks until
// Quit is called.
func New(cfg Config) *Tray {
	return &Tray{
		log:      cfg.Logger,
		onToggle: cfg.OnToggle,
		onQuit:   cfg.OnQuit,
		enabled:  cfg.Enabled,
		devices:  cfg.Devices,
	}
}

// Run starts the system tray. This blocks until Quit is called.
func (t *Tray) Run() {
	systray.Run(t.onReady, t.onExit)
}

func (t *Tray) onReady() {
	systray.SetTitle("evremap")
	t.updateTooltip()

	label := "✗ Disabled"
	if t.enabled {
		label = "✓ Enabled"
	}
	t.statusItem = systray.AddMenuItem(label, "Toggle key remapping")

	systray.AddSeparator()
	for _, name := range t.devices {
		item := systray.AddMenuItem(name, "Grabbed device")
		item.Disable()
	}

	systray.AddSeparator()
	quitItem := systray.AddMenuItem("Quit", "Exit evremap")

	go t.handleClicks(quitItem)
}

func (t *Tray) handleClicks(quitItem *systray.MenuItem) {
	for {
		select {
		case <-t.statusItem.ClickedCh:
			t.toggleEnabled()
		case <-quitItem.ClickedCh:
			if t.onQuit != nil {
				t.onQuit()
			}
			systray.Quit()
			return
		default:
			time.Sleep(100 * time.Millisecond)
		}
	}
}

func (t *Tray) toggleEnabled() {
	t.enabled = !t.enabled
	t.SetEnabled(t.enabled)
	if t.onToggle != nil {
		t.onToggle(t.enabled)
	}
}

func (t *Tray) updateTooltip() {
	status := "enabled"
	if !t.enabled {
		status = "disabled"
	}
	systray.SetTooltip(fmt.Sprintf("evremap: %s, %d device(s)", status, len(t.devices)))
}

func (t *Tray) onExit() {
	t.log.Info("tray exiting")
}

// Quit stops the system tray.
func (t *Tray) Quit() {
	systray.Quit()
}

// SetEnabled updates the displayed status without invoking the toggle
// callback.
func (t *Tray) SetEnabled(enabled bool) {
	t.enabled = enabled
	if t.statusItem != nil {
		if enabled {
			t.statusItem.SetTitle("✓ Enabled")
		} else {
			t.statusItem.SetTitle("✗ Disabled")
		}
	}
	t.updateTooltip()
}
