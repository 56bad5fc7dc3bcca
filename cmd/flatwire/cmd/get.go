package cmd

import (
	"encoding/hex"
	"fmt"

	"github.com/segmentio/ksuid"
	"github.com/spf13/cobra"
)

func newGetCmd(a *app) *cobra.Command {
	var schemaPath, table, out string
	getCmd := &cobra.Command{
		Use:   "get <id>",
		Short: "Fetch a stored flat buffer",
		Long: `Fetch a stored flat buffer. With --schema it is printed as YAML,
with --out it is written raw, otherwise it is hex dumped.

Example:
  flatwire get 2ZzMwQ4d0dXqkQ5ZPnD8mJPW1wH --schema status.yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := ksuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("bad id %q: %w", args[0], err)
			}
			st, err := a.openStore()
			if err != nil {
				return err
			}
			defer st.Close()
			buf, err := st.Get(id)
			if err != nil {
				return err
			}
			switch {
			case schemaPath != "":
				s, table, err := schemaTable(schemaPath, table)
				if err != nil {
					return err
				}
				return a.printYAML(cmd, s, table, buf)
			case out != "":
				return writeOutput(cmd, out, buf)
			}
			_, err = fmt.Fprint(cmd.OutOrStdout(), hex.Dump(buf))
			return err
		},
	}
	getCmd.Flags().StringVar(&schemaPath, "schema", "", "Schema file")
	getCmd.Flags().StringVar(&table, "table", "", "Table to decode (default: schema root)")
	getCmd.Flags().StringVar(&out, "out", "", "Write the raw buffer to this file")
	return getCmd
}
