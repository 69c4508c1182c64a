package main

import (
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"
)

const appVersion = "1.0.0"

var engineAddr string

var rootCmd = &cobra.Command{
	Use:     "enginedctl",
	Short:   "Control client for the engined download daemon",
	Version: appVersion,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&engineAddr, "addr", "http://127.0.0.1:8765", "engined's loopback ingress address")
}

// httpClient is shared across subcommands; engined's ingress never holds a
// request open longer than the hand-off to the registry, so a short
// timeout is enough to catch a daemon that isn't running at all.
var httpClient = &http.Client{Timeout: 5 * time.Second}

func engineURL(path string) string {
	return fmt.Sprintf("%s%s", engineAddr, path)
}
