package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "hub",
	Short: "media resource aggregator",
	Example: `hub serve -p 4020 --jobs
hub import -s spotify -t album -u spotify:album:4aawyAB9vmqN3uQ7FjRGTy
hub resolve "https://youtu.be/dQw4w9WgXcQ"
hub search -q "blue monday" -t song
hub list -q monday --favourite
hub get -r <resource-id>
hub items -r <resource-id> -k songs
hub refresh -r <resource-id>
hub play -r <resource-id> --device <device-id>
hub delete -r <resource-id>`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(dbCmd)
	rootCmd.AddCommand(contextCommand)
	rootCmd.SetHelpCommand(&cobra.Command{Use: "no-help", Hidden: true})

	rootCmd.CompletionOptions.HiddenDefaultCmd = true
	cobra.EnableCommandSorting = false
}
