// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/wingedpig/clubbot/internal/app"
	"github.com/wingedpig/clubbot/internal/config"
)

var (
	version = "0.9"
)

func main() {
	var (
		configPath  string
		host        string
		port        int
		showVersion bool
	)

	flag.StringVar(&configPath, "config", "", "Path to config file (default: auto-detect)")
	flag.StringVar(&configPath, "c", "", "Path to config file (short)")
	flag.StringVar(&host, "host", "", "HTTP server host (overrides config)")
	flag.IntVar(&port, "port", 0, "HTTP server port (overrides config)")
	flag.BoolVar(&showVersion, "version", false, "Show version")
	flag.BoolVar(&showVersion, "v", false, "Show version (short)")
	flag.Parse()

	if showVersion {
		fmt.Printf("clubbot %s\n", version)
		os.Exit(0)
	}

	// Find config file if not specified
	if configPath == "" {
		loader := config.NewLoader()
		found, err := loader.FindConfig()
		if err != nil {
			log.Fatalf("Error: %v", err)
		}
		configPath = found
	}

	log.Printf("Using config: %s", configPath)

	application, err := app.New(app.Options{
		ConfigPath: configPath,
		Host:       host,
		Port:       port,
		Version:    version,
	})
	if err != nil {
		log.Fatalf("Failed to create app: %v", err)
	}

	ctx := context.Background()
	if err := application.Run(ctx); err != nil {
		log.Fatalf("App error: %v", err)
	}
}
