package http

import "github.com/spf13/cobra"

// NewHTTPCommand groups the HTTP surface of clinicd: today just `start`,
// kept as a subcommand group so reload/drain style operations have a home.
func NewHTTPCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "http",
		Short: "Serve the clinicd HTTP API",
	}

	cmd.AddCommand(NewStartCommand())

	return cmd
}
