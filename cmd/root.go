package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"stemroom/server"
)

var rootCmd = &cobra.Command{
	Use:   "stemroom",
	Short: "Stemroom is a band collaboration server for tracks, takes and mixes.",
	Run: func(cmd *cobra.Command, args []string) {
		server.Start()
	},
}

// Execute executes the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
