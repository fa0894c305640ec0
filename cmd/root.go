// Package cmd contains the root command for the gptdata CLI.
package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/conneroisu/gptdata/pkg/tokenizer"
	"github.com/spf13/cobra"
)

// rootArgs is the root command arguments.
type rootArgs struct {
	verbose        bool
	textPath       string
	encoding       string
	vocabPath      string
	allowedSpecial []string
	batchSize      int
	maxLength      int
	stride         int
	shuffle        bool
	dropLast       bool
	workers        int
	seed           int64
	epochs         int
	print          bool
	index          int
}

// RootArgs is the root command arguments.
var RootArgs rootArgs

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "gptdata",
	Short: "Sliding-window training data for GPT-style models",
	Long: `
Turns raw text into (input, target) training windows and batches them.

Text is tokenized once, cut into windows of --max-length tokens every
--stride tokens, and each window is paired with the same window shifted
one token to the right.
	`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		if RootArgs.verbose {
			log.SetLevel(log.DebugLevel)
		}
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().
		BoolVarP(&RootArgs.verbose, "verbose", "v", false, "Verbose output")
	rootCmd.AddCommand(NewBatchesCommand())
	rootCmd.AddCommand(NewInspectCommand())
}

// addSourceFlags registers the flags shared by every command that reads and
// tokenizes a text file.
func addSourceFlags(cmd *cobra.Command) {
	cmd.Flags().
		StringVarP(&RootArgs.textPath, "text-file", "f", "", "Path to the text file, - for stdin")
	cmd.Flags().
		StringVarP(&RootArgs.encoding, "encoding", "e", tokenizer.DefaultEncoding, "tiktoken encoding or model name")
	cmd.Flags().
		StringVarP(&RootArgs.vocabPath, "vocab-path", "p", "", "Path to an llm.c tokenizer file, used instead of tiktoken")
	cmd.Flags().
		StringSliceVar(&RootArgs.allowedSpecial, "allowed-special", tokenizer.DefaultSpecial, "Special markers encoded as single tokens")
	cmd.Flags().
		IntVarP(&RootArgs.maxLength, "max-length", "l", 256, "Tokens per training window")
	cmd.Flags().
		IntVarP(&RootArgs.stride, "stride", "s", 128, "Tokens between window starts")
	_ = cmd.MarkFlagRequired("text-file")
}

// readText reads the text file named by path, or stdin for "-".
func readText(path string, stdin io.Reader) (string, error) {
	if path == "-" {
		raw, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("reading stdin: %w", err)
		}
		return string(raw), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

// newTokenizer builds the tokenizer selected by the source flags.
func newTokenizer(args rootArgs) (tokenizer.Tokenizer, error) {
	if args.vocabPath != "" {
		v, err := tokenizer.LoadVocab(args.vocabPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load tokenizer: %w", err)
		}
		log.Debug("loaded vocab", "path", args.vocabPath, "size", v.VocabSize())
		return v, nil
	}
	tok, err := tokenizer.NewTiktoken(args.encoding)
	if err != nil {
		return nil, fmt.Errorf("failed to load tokenizer: %w", err)
	}
	log.Debug("loaded tiktoken", "encoding", tok.Name())
	return tok, nil
}
