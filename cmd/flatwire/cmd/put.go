package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newPutCmd(a *app) *cobra.Command {
	var in string
	putCmd := &cobra.Command{
		Use:   "put",
		Short: "Store a flat buffer",
		Long: `Store a finished flat buffer and print its id.

Example:
  flatwire put --in status.bin`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			buf, err := readInput(cmd, in)
			if err != nil {
				return err
			}
			st, err := a.openStore()
			if err != nil {
				return err
			}
			defer st.Close()
			id, err := st.Put(buf)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), id.String())
			return err
		},
	}
	putCmd.Flags().StringVar(&in, "in", "-", "Buffer file")
	return putCmd
}
