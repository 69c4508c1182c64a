// Command engined is the headless download-engine daemon: it owns the
// registry, the queue scheduler, the downloader, and the loopback ingress
// server, and runs until it receives SIGINT/SIGTERM.
package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

const appVersion = "1.0.0"

func main() {
	// Parse flags. engined takes few enough of these that a loop over
	// os.Args reads clearer than pulling in a flag-parsing dependency for
	// a handful of booleans and one port override.
	verbose := false
	showVersion := false
	configDir := ""
	port := defaultIngressPort

	for i, arg := range os.Args {
		switch arg {
		case "--verbose":
			verbose = true
		case "--version":
			showVersion = true
		case "--config-dir":
			if i+1 < len(os.Args) {
				configDir = os.Args[i+1]
			}
		case "--port":
			if i+1 < len(os.Args) {
				fmt.Sscanf(os.Args[i+1], "%d", &port)
			}
		}
	}

	if showVersion {
		fmt.Println("engined " + appVersion)
		return
	}

	if configDir == "" {
		dir, err := defaultConfigDir()
		if err != nil {
			println("error resolving config directory:", err.Error())
			os.Exit(1)
		}
		configDir = dir
	}
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		println("error creating config directory:", err.Error())
		os.Exit(1)
	}

	var logOutput io.Writer = os.Stdout
	d, err := newDaemon(daemonOptions{
		configDir: configDir,
		port:      port,
		verbose:   verbose,
		logOutput: logOutput,
	})
	if err != nil {
		println("error starting engined:", err.Error())
		os.Exit(1)
	}

	d.Run()
}

// defaultConfigDir is {os.UserConfigDir()}/download-engine, holding
// config.json, history.json, the stats database and the audit log. A
// download's in-progress state snapshot is written to its target directory,
// beside the .part file.
func defaultConfigDir() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, "download-engine"), nil
}
