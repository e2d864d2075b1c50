package client

import (
	"github.com/spf13/cobra"
)

// NewRoot constructs a root Cobra command for the logbook client.
// It registers the logs and health command groups.
func NewRoot(baseURL BaseURLFunc) *cobra.Command {
	root := &cobra.Command{
		Use:   "logbook",
		Short: "Logbook client commands",
	}
	root.AddCommand(NewLogsCommand(baseURL))
	root.AddCommand(NewHealthCommand())
	return root
}
