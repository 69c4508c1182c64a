package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/spf13/cobra"
)

var (
	addFilename   string
	addStreamType string
)

var addCmd = &cobra.Command{
	Use:   "add <url>",
	Short: "Enqueue a URL with the running engined daemon",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		body, err := json.Marshal(map[string]string{
			"url":         args[0],
			"filename":    addFilename,
			"stream_type": addStreamType,
		})
		if err != nil {
			return err
		}

		resp, err := httpClient.Post(engineURL("/add_download"), "application/json", bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("reaching engined at %s: %w", engineAddr, err)
		}
		defer resp.Body.Close()

		out, _ := io.ReadAll(resp.Body)
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("engined returned %s: %s", resp.Status, out)
		}
		fmt.Println("queued:", args[0])
		return nil
	},
}

func init() {
	addCmd.Flags().StringVarP(&addFilename, "filename", "f", "", "save as this filename instead of the URL's own name")
	addCmd.Flags().StringVar(&addStreamType, "stream-type", "", "force streaming-delegate handling (e.g. \"video\", \"audio\")")
	rootCmd.AddCommand(addCmd)
}
