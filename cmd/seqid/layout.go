package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func newLayoutCmd(f *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "layout",
		Short: "Print the bit layout and how long the epoch lasts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := f.resolve(cmd)
			if err != nil {
				return err
			}
			gc, err := cfg.GeneratorConfig()
			if err != nil {
				return err
			}
			l, err := gc.Layout()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "unused_bits:      %d\n", l.UnusedBits)
			fmt.Fprintf(out, "timestamp_bits:   %d\n", l.TimestampBits)
			fmt.Fprintf(out, "node_id_bits:     %d\n", l.NodeIDBits)
			fmt.Fprintf(out, "sequence_bits:    %d\n", l.SequenceBits)
			fmt.Fprintf(out, "micros_ten_power: %d\n", l.MicrosTenPower)
			fmt.Fprintf(out, "tick:             %s\n", l.TickDuration())
			fmt.Fprintf(out, "max_node_id:      %d\n", l.MaxNodeID())
			fmt.Fprintf(out, "ids_per_tick:     %d\n", l.MaxSequence())
			fmt.Fprintf(out, "epoch:            %s\n", gc.Epoch.Format(time.RFC3339))
			fmt.Fprintf(out, "lifetime:         %s\n", l.Lifetime())
			fmt.Fprintf(out, "expires:          %s\n", gc.Epoch.Add(l.Lifetime()).Format(time.RFC3339))
			return nil
		},
	}
}
