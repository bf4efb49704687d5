package main

import (
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mvrcel/stride/internal/collections"
	"github.com/mvrcel/stride/internal/config"
	"github.com/mvrcel/stride/internal/engine"
	"github.com/mvrcel/stride/internal/store"
	"github.com/mvrcel/stride/internal/tui"
	flag "github.com/spf13/pflag"
)

func main() {
	var (
		configPath string
		dbPath     string
	)
	flag.StringVar(&configPath, "config", "", "path to config.toml")
	flag.StringVar(&dbPath, "db", "", "path to the sqlite database")
	flag.Parse()

	if configPath == "" {
		p, err := config.DefaultPath()
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		configPath = p
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	if dbPath == "" {
		dbPath = cfg.DBPath
	}
	if dbPath == "" {
		p, err := store.DefaultDBPath()
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		dbPath = p
	}

	s, err := store.New(dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error opening database: %v\n", err)
		os.Exit(1)
	}
	defer s.Close()

	// A grace period saved from the settings screen wins over the config
	// file on the next launch.
	grace := cfg.Grace()
	if g, err := s.GraceMS(); err == nil {
		grace = g
	}

	bus := engine.NewBus()
	cols := collections.NewSet(s, bus, grace)
	defer cols.Close()

	app := tui.NewApp(s, cols, bus)
	p := tea.NewProgram(app, tea.WithAltScreen())

	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
