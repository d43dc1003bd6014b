package cmd

import (
	"trackanalyzer/server"

	"github.com/spf13/cobra"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the Track Analyzer HTTP server",
	Long:  `Starts the HTTP API that the team's devices sync tracks, readings and lane photos against.`,
	Run: func(cmd *cobra.Command, args []string) {
		server.Start()
	},
}

func init() {
	rootCmd.AddCommand(serverCmd)
}
