package main

import (
	"github.com/spf13/cobra"

	"download-engine/internal/osutil"
)

var openCmd = &cobra.Command{
	Use:   "open <path>",
	Short: "Open a completed download with the OS's default application",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return osutil.OpenFile(args[0])
	},
}

var openFolderCmd = &cobra.Command{
	Use:   "open-folder <path>",
	Short: "Reveal a completed download's containing folder",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return osutil.OpenFolder(args[0])
	},
}

func init() {
	rootCmd.AddCommand(openCmd)
	rootCmd.AddCommand(openFolderCmd)
}
