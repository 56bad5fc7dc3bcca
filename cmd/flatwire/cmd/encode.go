package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/rawbytedev/flatwire/pkg/compactwire"
	"github.com/rawbytedev/flatwire/pkg/flat"
	"github.com/rawbytedev/flatwire/pkg/object"
)

func newEncodeCmd(a *app) *cobra.Command {
	var schemaPath, table, in, out string
	var frame bool
	encodeCmd := &cobra.Command{
		Use:   "encode",
		Short: "Encode a YAML value into a flat buffer",
		Long: `Encode a YAML value of a schema table into a flat buffer.

Example:
  flatwire encode --schema status.yaml --in status.yaml --out status.bin`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, table, err := schemaTable(schemaPath, table)
			if err != nil {
				return err
			}
			src, err := readInput(cmd, in)
			if err != nil {
				return err
			}
			var value map[string]any
			if err := yaml.Unmarshal(src, &value); err != nil {
				return fmt.Errorf("failed to parse value: %w", err)
			}
			buf, err := a.codec(s).Build(func(b *flat.Builder) (flat.UOffsetT, error) {
				return object.PackMap(b, s, table, value)
			})
			if err != nil {
				return err
			}
			if frame {
				var flags byte
				if a.cfg.Wire.Compress {
					flags |= compactwire.FlagCompressed
				}
				if buf, err = compactwire.EncodeDataFrame(buf, flags, nil); err != nil {
					return err
				}
			}
			a.log.Debug("encoded", "table", table, "bytes", len(buf), "frame", frame)
			return writeOutput(cmd, out, buf)
		},
	}
	encodeCmd.Flags().StringVar(&schemaPath, "schema", "", "Schema file (required)")
	encodeCmd.Flags().StringVar(&table, "table", "", "Table to encode (default: schema root)")
	encodeCmd.Flags().StringVar(&in, "in", "-", "YAML value file")
	encodeCmd.Flags().StringVar(&out, "out", "-", "Output file")
	encodeCmd.Flags().BoolVar(&frame, "frame", false, "Wrap the buffer in a data frame")
	return encodeCmd
}
