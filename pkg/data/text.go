package data

import (
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/conneroisu/gptdata/pkg/tokenizer"
)

// FromText encodes text once with enc and windows the resulting ids.
// allowedSpecial lists the markers enc must keep as single tokens.
func FromText(text string, enc tokenizer.Encoder, allowedSpecial []string, maxLength, stride int) (*Dataset, error) {
	if err := validateWindow(maxLength, stride); err != nil {
		return nil, err
	}
	if enc == nil {
		return nil, fmt.Errorf("%w: nil encoder", ErrInvalidConfig)
	}
	ids, err := enc.Encode(text, allowedSpecial)
	if err != nil {
		return nil, fmt.Errorf("encoding text: %w", err)
	}
	log.Debug("encoded text", "bytes", len(text), "tokens", len(ids))
	return NewDataset(ids, maxLength, stride)
}

// TextLoaderConfig configures NewTextLoader. The zero value of Encoder and
// AllowedSpecial select the GPT-2 tiktoken encoding and the end-of-text
// marker.
type TextLoaderConfig struct {
	BatchSize int
	MaxLength int
	Stride    int
	Shuffle   bool
	DropLast  bool
	Workers   int
	Seed      int64

	Encoder        tokenizer.Encoder
	AllowedSpecial []string
}

// DefaultTextLoaderConfig returns the settings GPT-2 style pretraining
// commonly starts from.
func DefaultTextLoaderConfig() TextLoaderConfig {
	return TextLoaderConfig{
		BatchSize: 4,
		MaxLength: 256,
		Stride:    128,
		Shuffle:   true,
		DropLast:  true,
		Seed:      123,
	}
}

// NewTextLoader tokenizes text, windows it, and returns a loader over the
// resulting dataset.
func NewTextLoader(text string, cfg TextLoaderConfig) (*DataLoader, error) {
	if cfg.BatchSize <= 0 {
		return nil, fmt.Errorf("%w: batch size must be positive, got %d", ErrInvalidConfig, cfg.BatchSize)
	}
	if err := validateWindow(cfg.MaxLength, cfg.Stride); err != nil {
		return nil, err
	}
	enc := cfg.Encoder
	if enc == nil {
		tok, err := tokenizer.NewTiktoken(tokenizer.DefaultEncoding)
		if err != nil {
			return nil, err
		}
		enc = tok
	}
	allowed := cfg.AllowedSpecial
	if allowed == nil {
		allowed = tokenizer.DefaultSpecial
	}
	ds, err := FromText(text, enc, allowed, cfg.MaxLength, cfg.Stride)
	if err != nil {
		return nil, err
	}
	return NewDataLoader(ds, LoaderOptions{
		BatchSize: cfg.BatchSize,
		Shuffle:   cfg.Shuffle,
		DropLast:  cfg.DropLast,
		Workers:   cfg.Workers,
		Seed:      cfg.Seed,
	})
}
