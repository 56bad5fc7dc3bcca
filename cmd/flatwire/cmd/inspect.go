package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/rawbytedev/flatwire/pkg/flat"
)

func newInspectCmd(a *app) *cobra.Command {
	var in string
	inspectCmd := &cobra.Command{
		Use:   "inspect",
		Short: "Print the layout of a flat buffer",
		Long: `Print the root table, vtable and slot offsets of a flat buffer.

Example:
  flatwire inspect --in status.bin`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			buf, err := readInput(cmd, in)
			if err != nil {
				return err
			}
			root, err := a.codec(nil).Root(buf)
			if err != nil {
				return err
			}
			return inspect(cmd.OutOrStdout(), buf, root, a.cfg.Builder.SizePrefixed)
		},
	}
	inspectCmd.Flags().StringVar(&in, "in", "-", "Buffer file")
	return inspectCmd
}

func inspect(w io.Writer, buf []byte, root flat.Table, sizePrefixed bool) error {
	fmt.Fprintf(w, "size: %d bytes\n", len(buf))
	fidAt := buf
	if sizePrefixed {
		n, err := flat.GetSizePrefix(buf)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "size prefix: %d\n", n)
		fidAt = buf[flat.SizePrefixLength:]
	}
	if fid, err := flat.BufferIdentifier(fidAt); err == nil && printable(fid) {
		fmt.Fprintf(w, "identifier: %q\n", fid)
	}
	vt, err := root.Vtable()
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "root table: at %d, %d bytes\n", root.Pos, vt.TableSize())
	fmt.Fprintf(w, "vtable: at %d, %d bytes, %d slots\n", vt.Pos, vt.Size(), vt.NumSlots())
	for slot := 0; slot < vt.NumSlots(); slot++ {
		if off := vt.FieldOffset(slot); off != 0 {
			fmt.Fprintf(w, "  slot %d: +%d\n", slot, off)
		} else {
			fmt.Fprintf(w, "  slot %d: absent\n", slot)
		}
	}
	return nil
}

func printable(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < 0x20 || s[i] > 0x7e {
			return false
		}
	}
	return true
}
