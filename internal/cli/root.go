package cli

import (
	"github.com/spf13/cobra"
)

// NewRootCmd creates the top-level "martelinho" command.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "martelinho",
		Short:         "Service records and financial dashboard for auto body shops",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newServeCmd(), newSummaryCmd())
	return root
}
