package main

import (
	"fmt"
	"os"

	"github.com/mrlokans/mangaslayer/internal/cli"
	"github.com/mrlokans/mangaslayer/internal/config"
	"github.com/mrlokans/mangaslayer/internal/entrypoint"
)

// Version information - set at build time via ldflags
var (
	Version = "dev"
	Commit  = "unknown"
)

type command interface {
	ParseFlags(args []string) error
	Run() error
}

func main() {
	// If no arguments or "serve" command, run the HTTP server
	if len(os.Args) < 2 || os.Args[1] == "serve" {
		cfg := config.NewConfig()
		entrypoint.Run(cfg, Version)
		return
	}

	name := os.Args[1]
	args := os.Args[2:]

	var cmd command
	switch name {
	case "cache-status":
		cmd = cli.NewCacheStatusCommand()
	case "cache-install":
		cmd = cli.NewCacheInstallCommand()
	case "cache-activate":
		cmd = cli.NewCacheActivateCommand()
	case "version", "-v", "--version":
		fmt.Printf("mangaslayer %s (commit: %s)\n", Version, Commit)
		return
	case "help", "-h", "--help":
		printUsage()
		return
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", name)
		printUsage()
		os.Exit(1)
	}

	if err := cmd.ParseFlags(args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if err := cmd.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, "Usage: %s <command> [options]\n\n", os.Args[0])
	fmt.Fprintf(os.Stderr, "Commands:\n")
	fmt.Fprintf(os.Stderr, "  serve           Start the companion daemon (default if no command given)\n")
	fmt.Fprintf(os.Stderr, "  cache-status    Show installed offline cache generations\n")
	fmt.Fprintf(os.Stderr, "  cache-install   Fetch the pinned resources into a new generation\n")
	fmt.Fprintf(os.Stderr, "  cache-activate  Switch to an installed generation and drop the others\n")
	fmt.Fprintf(os.Stderr, "  version         Show version information\n")
	fmt.Fprintf(os.Stderr, "\nUse '%s <command> -h' for help on a specific command.\n", os.Args[0])
}
