package cmd

import (
	"fmt"

	"github.com/conneroisu/gptdata/pkg/data"
	"github.com/spf13/cobra"
)

// NewInspectCommand returns a new inspect command.
func NewInspectCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Summarize the windows of a text file",
		Long: `
Tokenizes a text file, windows it, and prints how the windows cover the
token stream. With --index the chosen example is printed as ids and text.
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
			s := data.Summarize(ds)
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "tokens:     %d\n", s.Tokens)
			fmt.Fprintf(out, "examples:   %d\n", s.Examples)
			fmt.Fprintf(out, "max length: %d\n", s.MaxLength)
			fmt.Fprintf(out, "stride:     %d\n", s.Stride)
			fmt.Fprintf(out, "overlap:    %d\n", s.Overlap)
			fmt.Fprintf(out, "covered:    %d\n", s.Covered)
			fmt.Fprintf(out, "id mean:    %.2f\n", s.MeanID)
			fmt.Fprintf(out, "id stddev:  %.2f\n", s.StdDevID)
			if RootArgs.index < 0 {
				return nil
			}
			ex, err := ds.Get(RootArgs.index)
			if err != nil {
				return err
			}
			input, err := tok.Decode(ex.Input)
			if err != nil {
				return err
			}
			target, err := tok.Decode(ex.Target)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "example %d\n  x %v %q\n  y %v %q\n", RootArgs.index, ex.Input, input, ex.Target, target)
			return nil
		},
	}

	addSourceFlags(cmd)
	cmd.Flags().
		IntVarP(&RootArgs.index, "index", "i", -1, "Example to print")
	return cmd
}
