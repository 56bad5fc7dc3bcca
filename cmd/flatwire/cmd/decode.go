package cmd

import (
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/rawbytedev/flatwire/pkg/compactwire"
	"github.com/rawbytedev/flatwire/pkg/object"
	"github.com/rawbytedev/flatwire/pkg/schema"
)

func newDecodeCmd(a *app) *cobra.Command {
	var schemaPath, table, in string
	var frame bool
	decodeCmd := &cobra.Command{
		Use:   "decode",
		Short: "Decode a flat buffer into YAML",
		Long: `Decode a flat buffer of a schema table and print it as YAML.

Example:
  flatwire decode --schema status.yaml --in status.bin`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, table, err := schemaTable(schemaPath, table)
			if err != nil {
				return err
			}
			buf, err := readInput(cmd, in)
			if err != nil {
				return err
			}
			if frame {
				d, err := compactwire.DecodeDataFrame(buf)
				if err != nil {
					return err
				}
				buf = d.Payload
			}
			return a.printYAML(cmd, s, table, buf)
		},
	}
	decodeCmd.Flags().StringVar(&schemaPath, "schema", "", "Schema file (required)")
	decodeCmd.Flags().StringVar(&table, "table", "", "Table to decode (default: schema root)")
	decodeCmd.Flags().StringVar(&in, "in", "-", "Buffer file")
	decodeCmd.Flags().BoolVar(&frame, "frame", false, "Input is a data frame")
	return decodeCmd
}

func (a *app) printYAML(cmd *cobra.Command, s *schema.Schema, table string, buf []byte) error {
	root, err := a.codec(s).Root(buf)
	if err != nil {
		return err
	}
	m, err := object.UnpackMap(s, table, root)
	if err != nil {
		return err
	}
	out, err := yaml.Marshal(m)
	if err != nil {
		return err
	}
	_, err = cmd.OutOrStdout().Write(out)
	return err
}
