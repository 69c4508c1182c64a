// Command enginedctl is the thin CLI client for engined's loopback ingress:
// it never touches the download path itself, only the control surface.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
