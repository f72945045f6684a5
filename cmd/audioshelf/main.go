package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	flag "github.com/spf13/pflag"

	"github.com/five82/audioshelf/internal/app"
)

var version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.StringP("config", "c", "", "override config path (optional)")
	prefsPath := flag.String("prefs", "", "override preferences path (optional)")
	fake := flag.Bool("fake", false, "use the built-in demo server instead of plex.tv")
	logLevel := flag.String("log-level", "", "log level: debug, info, warn or error")
	refresh := flag.Duration("refresh", 0, "background refresh interval (defaults to 5m)")
	showVersion := flag.BoolP("version", "v", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println("audioshelf", version)
		return 0
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	opts := app.Options{
		ConfigPath:   *configPath,
		PrefsPath:    *prefsPath,
		Fake:         *fake,
		LogLevel:     *logLevel,
		RefreshEvery: *refresh,
		Version:      version,
	}
	if err := app.Run(ctx, opts); err != nil {
		fmt.Fprintf(os.Stderr, "audioshelf: %v\n", err)
		return 1
	}
	return 0
}
