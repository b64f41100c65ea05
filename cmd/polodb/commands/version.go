package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vinicius-lino-figueiredo/polodb"
)

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the library version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), polodb.Version)
			return err
		},
	}
}
