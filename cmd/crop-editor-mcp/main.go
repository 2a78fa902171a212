package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/ironsheep/crop-editor-mcp/internal/config"
	"github.com/ironsheep/crop-editor-mcp/internal/patchlog"
	"github.com/ironsheep/crop-editor-mcp/internal/server"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func usage() {
	fmt.Println("crop-editor-mcp - MCP server for editing crop rectangles on comparison frames")
	fmt.Println()
	fmt.Println("Usage: crop-editor-mcp [options]")
	fmt.Println()
	fmt.Println("Options:")
	fmt.Println("  --version, -v    Print version information")
	fmt.Println("  --help, -h       Print this help message")
	fmt.Println()
	fmt.Println("Environment variables (also read from ./.env):")
	fmt.Printf("  %-26s debug, info, warn or error (default info)\n", config.EnvLogLevel)
	fmt.Printf("  %-26s patch log file (default crop_info.yaml)\n", config.EnvPatchLog)
	fmt.Printf("  %-26s comma-separated outline colours\n", config.EnvBoxColors)
	fmt.Printf("  %-26s outline width in pixels (default 2)\n", config.EnvBoxWidth)
	fmt.Printf("  %-26s preview border in pixels (default 2)\n", config.EnvPatchBorder)
	fmt.Printf("  %-26s keep locks when a new frame opens (default false)\n", config.EnvKeepMode)
	fmt.Println()
	fmt.Println("This server communicates via MCP protocol over stdin/stdout.")
}

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "--version", "-v", "version":
			fmt.Printf("crop-editor-mcp %s\n", Version)
			fmt.Printf("  Build time: %s\n", BuildTime)
			fmt.Printf("  Git commit: %s\n", GitCommit)
			return
		case "--help", "-h", "help":
			usage()
			return
		}
	}

	// stdout is for MCP protocol
	log := logrus.New()
	log.SetOutput(os.Stderr)
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	cfg := config.Load(log)
	log.SetLevel(cfg.LogLevel)
	log.WithFields(logrus.Fields{
		"version":   Version,
		"built":     BuildTime,
		"commit":    GitCommit,
		"patch_log": cfg.PatchLog,
	}).Debug("starting crop editor MCP server")

	patches, err := patchlog.Open(cfg.PatchLog)
	if err != nil {
		log.WithError(err).Fatal("cannot open patch log")
	}
	log.WithField("patches", patches.Len()).Info("patch log loaded")

	srv := server.New(cfg, patches, log)
	if err := srv.Run(); err != nil {
		log.WithError(err).Fatal("server error")
	}
}
