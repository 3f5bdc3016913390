package main

import (
	"bufio"
	"fmt"
	"time"

	"github.com/paraglidehq/seqid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newGenerateCmd(f *rootFlags) *cobra.Command {
	var (
		number int
		debug  bool
		format string
	)
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate ids",
		Long: `Generate ids, one per line as "index: id".

With --debug all ids are generated before any is printed, followed by
the time the generation took.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if number < 0 {
				return fmt.Errorf("--number must not be negative, got %d", number)
			}
			fmtID, err := seqid.ParseFormat(format)
			if err != nil {
				return err
			}
			cfg, err := f.resolve(cmd)
			if err != nil {
				return err
			}
			lg := logger(cfg)
			defer func() { _ = lg.Sync() }()

			g, err := cfg.NewGenerator(lg)
			if err != nil {
				return err
			}

			out := bufio.NewWriter(cmd.OutOrStdout())
			defer out.Flush()

			if !debug {
				for i := 0; i < number; i++ {
					id, err := g.NextID()
					if err != nil {
						return err
					}
					fmt.Fprintf(out, "%d: %s\n", i, id.Format(fmtID))
				}
				return nil
			}

			ids := make([]seqid.ID, number)
			start := time.Now()
			for i := range ids {
				if ids[i], err = g.NextID(); err != nil {
					return err
				}
			}
			elapsed := time.Since(start)
			lg.Debug("generated ids", zap.Int("count", number), zap.Duration("elapsed", elapsed))

			for i, id := range ids {
				fmt.Fprintf(out, "%d: %s\n", i, id.Format(fmtID))
			}
			fmt.Fprintf(out, "It took %d nanoseconds\n", elapsed.Nanoseconds())
			return nil
		},
	}
	cmd.Flags().IntVarP(&number, "number", "n", 1, "how many ids to generate")
	cmd.Flags().BoolVarP(&debug, "debug", "d", false, "generate first, then print ids and elapsed time")
	cmd.Flags().StringVar(&format, "format", string(seqid.FormatDecimal), "output format (decimal, base58, crockford, hash, base64)")
	return cmd
}
