// Command evremap remaps Linux evdev keyboard input: dual-role keys and
// chord remaps, read from each exclusively-grabbed physical device that
// matches the config and written to a synthesized uinput virtual keyboard.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/evremap/evremap/internal/config"
	"github.com/evremap/evremap/internal/device"
	"github.com/evremap/evremap/internal/engine"
	"github.com/evremap/evremap/internal/keycodes"
	"github.com/evremap/evremap/internal/logging"
	"github.com/evremap/evremap/internal/remapper"
	"github.com/evremap/evremap/internal/tray"
)

var noTray bool

func main() {
	root := &cobra.Command{
		Use:   "evremap",
		Short: "Remap keys for a device, dual-role keys and chord remaps",
	}
	root.PersistentFlags().BoolVar(&noTray, "no-tray", false, "run without a system tray icon")

	root.AddCommand(listDevicesCmd())
	root.AddCommand(listKeysCmd())
	root.AddCommand(remapCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func listDevicesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list-devices",
		Short: "List detected input devices",
		RunE: func(cmd *cobra.Command, args []string) error {
			devices, err := device.List()
			if err != nil {
				return err
			}
			for _, d := range devices {
				fmt.Print(d.String())
				fmt.Println()
			}
			return nil
		},
	}
}

func listKeysCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list-keys",
		Short: "List the set of recognized KEY_* names",
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, n := range keycodes.Sorted() {
				fmt.Println(n)
			}
			return nil
		},
	}
}

func remapCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remap <CONFIG-FILE>",
		Short: "Apply a mapping configuration to its matching device(s)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRemap(args[0])
		},
	}
}

func runRemap(configPath string) error {
	log := logging.New()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	matches, err := device.MatchingName(cfg.DeviceName, cfg.Phys)
	if err != nil {
		return fmt.Errorf("finding device: %w", err)
	}
	if len(matches) > 1 {
		phys := make([]string, len(matches))
		for i, m := range matches {
			phys[i] = m.Phys
		}
		log.Warn("multiple devices match device_name with no phys to disambiguate; "+
			"spawning a remapper for each", "device_name", cfg.DeviceName, "phys", phys)
	}

	log.Warn("short delay: release any keys now!")
	time.Sleep(remapper.StartupGrace)

	sink, err := device.NewSink("evremap virtual keyboard")
	if err != nil {
		return fmt.Errorf("make sure you have write access to /dev/uinput: %w", err)
	}
	defer sink.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var sources []*device.Source
	var names []string
	for _, m := range matches {
		src, err := device.Open(m.Path)
		if err != nil {
			log.Error("skipping device", "path", m.Path, "error", err)
			continue
		}
		sources = append(sources, src)
		names = append(names, src.Name())
		log.Info("grabbed device", "name", src.Name(), "path", m.Path)
	}
	if len(sources) == 0 {
		return fmt.Errorf("no device could be grabbed for %q", cfg.DeviceName)
	}

	// Each grabbed device gets its own engine and its own Remapper: the
	// engine holds unguarded, mutable maps, so two devices can never be
	// driven through the same one. The uinput sink is shared, but Sink
	// serializes Apply itself.
	done := make(chan error, len(sources))
	remappers := make([]*remapper.Remapper, 0, len(sources))
	for _, src := range sources {
		r := remapper.New(src, sink, engine.New(cfg.Mappings), log)
		remappers = append(remappers, r)
		go func() { done <- r.Run(ctx) }()
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	remaining := len(sources)

	if noTray {
		log.Info("running without system tray, press Ctrl+C to quit")
		select {
		case <-sigCh:
			log.Info("shutting down...")
		case err := <-done:
			remaining--
			log.Error("remapper exited", "error", err)
		}
		cancel()
	} else {
		trayIcon := tray.New(tray.Config{
			Devices: names,
			Enabled: true,
			OnToggle: func(enabled bool) {
				for _, r := range remappers {
					r.SetEnabled(enabled)
				}
			},
			OnQuit: func() {
				log.Info("shutting down...")
				cancel()
			},
			Logger: log,
		})

		go func() {
			select {
			case <-sigCh:
				log.Info("shutting down...")
				cancel()
				trayIcon.Quit()
			case <-ctx.Done():
				trayIcon.Quit()
			}
		}()

		trayIcon.Run()
	}

	for i := 0; i < remaining; i++ {
		<-done
	}
	log.Info("evremap stopped")
	return nil
}
