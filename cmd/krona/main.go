package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/idilsaglam/krona/internal/cli"
	"github.com/idilsaglam/krona/internal/config"
	"github.com/idilsaglam/krona/internal/logging"
	"github.com/idilsaglam/krona/internal/ui"
)

func main() {
	// Root flags (apply to every subcommand)
	groupPending := flag.Bool("group", false, "group output by pending/done")
	cfgPath := flag.String("config", "", "config file (default "+config.ConfigFile()+")")
	theme := flag.String("theme", "", "color theme: classic | neon | mono")
	noColor := flag.Bool("no-color", false, "disable colors")
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		cli.PrintHelp()
		os.Exit(2)
	}

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		ui.Fail("config: " + err.Error())
		os.Exit(1)
	}
	if *theme != "" {
		cfg.TUI.Theme = *theme
		if err := cfg.Validate(); err != nil {
			ui.Fail("config: " + err.Error())
			os.Exit(2)
		}
	}

	logger, closer, err := logging.New(cfg.LogFile(), cfg.Logging.Level)
	if err != nil {
		ui.Fail("log: " + err.Error())
		os.Exit(1)
	}

	// Hand the remaining args to the CLI runner.
	code := cli.Run(args, cli.Options{
		Group:   *groupPending,
		NoColor: *noColor,
		Config:  cfg,
		Logger:  logger,
	})
	_ = closer.Close()
	if code != 0 {
		fmt.Fprintln(os.Stderr)
	}
	os.Exit(code)
}
