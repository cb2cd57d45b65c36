package cli

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "sparrow",
	Short: "Sparrow legal assistant chat backend",
	Long: `Sparrow serves a simulated legal assistant chat over HTTP and WebSocket,
and offers the same conversation in the terminal.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(chatCmd)
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
