package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

type healthResponse struct {
	Status  string `json:"status"`
	App     string `json:"app"`
	Version string `json:"version"`
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Report whether engined is running and reachable",
	RunE: func(cmd *cobra.Command, args []string) error {
		resp, err := httpClient.Get(engineURL("/health"))
		if err != nil {
			return fmt.Errorf("engined not reachable at %s: %w", engineAddr, err)
		}
		defer resp.Body.Close()

		var h healthResponse
		if err := json.NewDecoder(resp.Body).Decode(&h); err != nil {
			return fmt.Errorf("decoding health response: %w", err)
		}
		fmt.Printf("%s v%s: %s\n", h.App, h.Version, h.Status)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
