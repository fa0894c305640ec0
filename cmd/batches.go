package cmd

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"
	"github.com/conneroisu/gptdata/pkg/data"
	"github.com/spf13/cobra"
)

// NewBatchesCommand returns a new batches command.
func NewBatchesCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "batches",
		Short: "Iterate the training batches of a text file",
		Long: `
Tokenizes a text file, windows it, and walks the resulting batches for the
requested number of epochs, printing one line per batch.
	`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			text, err := readText(RootArgs.textPath, cmd.InOrStdin())
			if err != nil {
				return err
			}
			tok, err := newTokenizer(RootArgs)
			if err != nil {
				return err
			}
			ds, err := data.FromText(text, tok, RootArgs.allowedSpecial, RootArgs.maxLength, RootArgs.stride)
			if err != nil {
				return fmt.Errorf("failed to build dataset: %w", err)
			}
			loader, err := data.NewDataLoader(ds, data.LoaderOptions{
				BatchSize: RootArgs.batchSize,
				Shuffle:   RootArgs.shuffle,
				DropLast:  RootArgs.dropLast,
				Workers:   RootArgs.workers,
				Seed:      RootArgs.seed,
			})
			if err != nil {
				return fmt.Errorf("failed to build loader: %w", err)
			}
			log.Info("dataset ready",
				"tokens", ds.Tokens(),
				"examples", ds.Len(),
				"batches", loader.NumBatches(),
			)
			out := cmd.OutOrStdout()
			for epoch := 1; epoch <= RootArgs.epochs; epoch++ {
				start := time.Now()
				pass := loader.Batches(cmd.Context())
				step := 0
				for {
					batch, err := pass.Next()
					if errors.Is(err, io.EOF) {
						break
					}
					if err != nil {
						return err
					}
					fmt.Fprintf(out, "epoch %d batch %d: size %d indices %v\n", epoch, step, batch.Size(), batch.Indices)
					if RootArgs.print {
						for row := range batch.Inputs {
							fmt.Fprintf(out, "  x %v\n  y %v\n", batch.Inputs[row], batch.Targets[row])
						}
					}
					step++
				}
				log.Debug("epoch done", "epoch", epoch, "batches", step, "took", time.Since(start))
			}
			return nil
		},
	}

	addSourceFlags(cmd)
	cmd.Flags().
		IntVarP(&RootArgs.batchSize, "batch-size", "b", 4, "Batch size")
	cmd.Flags().
		BoolVar(&RootArgs.shuffle, "shuffle", true, "Shuffle examples every epoch")
	cmd.Flags().
		BoolVar(&RootArgs.dropLast, "drop-last", true, "Drop a final batch smaller than the batch size")
	cmd.Flags().
		IntVarP(&RootArgs.workers, "workers", "w", 0, "Goroutines assembling batches")
	cmd.Flags().
		Int64Var(&RootArgs.seed, "seed", 123, "Seed for the shuffle order")
	cmd.Flags().
		IntVarP(&RootArgs.epochs, "epochs", "n", 1, "Number of passes over the dataset")
	cmd.Flags().
		BoolVar(&RootArgs.print, "print", false, "Print the token ids of every row")
	return cmd
}
