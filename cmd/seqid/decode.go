package main

import (
	"fmt"
	"time"

	"github.com/paraglidehq/seqid"
	"github.com/spf13/cobra"
)

func newDecodeCmd(f *rootFlags) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "decode ID...",
		Short: "Split ids into tick, time, node id and sequence",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fmtID, err := seqid.ParseFormat(format)
			if err != nil {
				return err
			}
			cfg, err := f.resolve(cmd)
			if err != nil {
				return err
			}
			gc, err := cfg.GeneratorConfig()
			if err != nil {
				return err
			}
			layout, err := gc.Layout()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for i, s := range args {
				id, err := seqid.ParseAs(fmtID, s)
				if err != nil {
					return fmt.Errorf("decode %q: %w", s, err)
				}
				p := layout.Decompose(id, gc.Epoch)
				if i > 0 {
					fmt.Fprintln(out)
				}
				fmt.Fprintf(out, "id:       %d\n", id.Uint64())
				fmt.Fprintf(out, "tick:     %d\n", p.Tick)
				fmt.Fprintf(out, "time:     %s\n", p.Time.UTC().Format(time.RFC3339Nano))
				fmt.Fprintf(out, "node_id:  %d\n", p.NodeID)
				fmt.Fprintf(out, "sequence: %d\n", p.Sequence)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&format, "format", string(seqid.FormatDecimal), "input format (decimal, base58, crockford, hash, base64)")
	return cmd
}
