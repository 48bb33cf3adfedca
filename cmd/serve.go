package cmd

import (
	"github.com/spf13/cobra"

	"github.com/emrgen/mediahub/internal/server"
)

func init() {
	rootCmd.AddCommand(serveCmd())
}

func serveCmd() *cobra.Command {
	var port string
	var jobs bool

	command := &cobra.Command{
		Use:     "serve",
		Short:   "start the http api",
		Example: "hub serve -p 4020 --jobs",
		Run: func(cmd *cobra.Command, args []string) {
			server.NewServer(port, jobs).Start()
		},
	}

	command.Flags().StringVarP(&port, "port", "p", "", "http port (default from HTTP_PORT)")
	command.Flags().BoolVar(&jobs, "jobs", false, "run the scheduled refresh and prune jobs")

	return command
}
