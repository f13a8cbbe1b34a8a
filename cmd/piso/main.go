package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alschwalm/piso/internal/app"
	"github.com/alschwalm/piso/internal/menu"
)

const version = "1.0.0"

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "", "override config path (default /etc/piso/config.toml)")
	prefsPath := flag.String("prefs", "", "override preferences path (default /var/lib/piso/prefs.toml)")
	simulate := flag.Bool("simulate", false, "run the terminal simulator instead of the hardware front-end")
	verbose := flag.Bool("v", false, "enable verbose (debug) logging")
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	opts := app.Options{
		ConfigPath: *configPath,
		PrefsPath:  *prefsPath,
		Simulate:   *simulate,
		Version:    version,
	}

	if err := app.Run(ctx, opts); err != nil {
		if menu.IsFatal(err) {
			slog.Error("unrecoverable storage state, halting", "error", err)
		}
		fmt.Fprintf(os.Stderr, "piso: %v\n", err)
		return 1
	}
	return 0
}
