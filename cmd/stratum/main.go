// Stratum: hierarchical task and context MCP server.
//
// Stratum gives AI coding agents a four-level cascading context store
// (global → project → branch → task) and a task lifecycle that gates
// completion on context freshness.
//
// Usage:
//
//	stratum serve    # Start MCP server (stdio transport)
//	stratum update   # Update to the latest version
package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"stratum/internal/config"
	"stratum/internal/server"
	"stratum/internal/updater"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "serve":
		if err := run(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "update":
		runUpdate()
	case "--help", "-h", "help":
		printUsage()
		os.Exit(0)
	case "--version", "-v", "version":
		fmt.Printf("stratum v%s\n", server.Version)
		os.Exit(0)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	// Log to stderr: stdout belongs to the MCP stdio transport.
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	}))

	s, cleanup, err := server.New(cfg, logger)
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}
	defer cleanup()

	// Background version check, best-effort, stderr only.
	go checkForUpdates()

	// Close the store on interrupt; the stdio server itself exits when
	// stdin is closed by the client.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		cleanup()
		os.Exit(0)
	}()

	return mcpserver.ServeStdio(s)
}

// checkForUpdates prints a notice to stderr when a newer release exists.
// Network failures are silently ignored.
func checkForUpdates() {
	result := updater.CheckVersion(server.Version)
	if result.UpdateAvailable {
		fmt.Fprintf(os.Stderr,
			"\nUpdate available: v%s → v%s\n  Run: stratum update\n  Release: %s\n\n",
			result.CurrentVersion, result.LatestVersion, result.ReleaseURL,
		)
	}
}

// runUpdate performs a self-update to the latest release.
func runUpdate() {
	fmt.Fprintln(os.Stderr, "Checking for updates...")

	result := updater.CheckVersion(server.Version)
	if !result.UpdateAvailable {
		fmt.Fprintf(os.Stderr, "Already at the latest version (v%s)\n", result.CurrentVersion)
		return
	}

	fmt.Fprintf(os.Stderr, "New version available: v%s → v%s\nDownloading...\n",
		result.CurrentVersion, result.LatestVersion)

	if err := updater.SelfUpdate(server.Version); err != nil {
		fmt.Fprintf(os.Stderr, "Update failed: %v\n", err)
		fmt.Fprintf(os.Stderr, "\n  You can download manually from:\n  %s\n", result.ReleaseURL)
		os.Exit(1)
	}

	fmt.Fprintf(os.Stderr, "Updated to v%s. Restart stratum to use the new version.\n", result.LatestVersion)
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `Stratum v%s — hierarchical task & context MCP server

Usage:
  stratum serve    Start the MCP server (stdio transport)
  stratum update   Update to the latest version

Configuration:
  Data and config live in ~/.stratum (override with STRATUM_HOME).

  Add to your AI tool's MCP config:

  {
    "mcpServers": {
      "stratum": {
        "command": "stratum",
        "args": ["serve"]
      }
    }
  }
`, server.Version)
}
