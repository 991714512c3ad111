// Package main is the entry point for the steamback panel client.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/deckops/steamback/internal/client"
	"github.com/deckops/steamback/internal/config"
	"github.com/deckops/steamback/internal/panel"
	"github.com/deckops/steamback/internal/steam"
	"github.com/deckops/steamback/internal/version"
)

func main() {
	addr := flag.String("addr", "http://127.0.0.1:8844", "daemon address")
	steamRoot := flag.String("steam-root", "", "steam root directory (default: auto-detect)")
	showVersion := flag.Bool("version", false, "show version information")
	flag.Parse()

	if *showVersion {
		fmt.Printf("steamback panel %s\n", version.Version)
		os.Exit(0)
	}

	c := client.New(*addr)

	// fail fast with a readable message when the daemon is not up
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	info, err := c.Version(ctx)
	cancel()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Cannot reach steamback daemon at %s: %v\n", *addr, err)
		fmt.Fprintln(os.Stderr, "Start it with: steambackd")
		os.Exit(1)
	}
	log.Printf("Connected to steambackd %s", info["version"])

	root := *steamRoot
	if root == "" {
		cfg, _ := config.Load("")
		root = cfg.Steam.RootDir
	}
	layout := steam.NewLayout(root)

	p := tea.NewProgram(panel.New(c, layout), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Panel error: %v\n", err)
		os.Exit(1)
	}
}
