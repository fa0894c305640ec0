package data

import (
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/conneroisu/gptdata/pkg/tokenizer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// wordEncoder assigns ids by word, with 0 reserved for the end-of-text marker.
type wordEncoder struct {
	calls   int
	allowed []string
}

func (e *wordEncoder) Encode(text string, allowedSpecial []string) ([]int32, error) {
	e.calls++
	e.allowed = allowedSpecial
	var ids []int32
	for _, word := range strings.Fields(text) {
		if word == tokenizer.EndOfText {
			ids = append(ids, 0)
			continue
		}
		ids = append(ids, int32(len(word)))
	}
	return ids, nil
}

type failingEncoder struct{}

func (failingEncoder) Encode(string, []string) ([]int32, error) {
	return nil, errors.New("boom")
}

func TestFromText(t *testing.T) {
	enc := &wordEncoder{}
	ds, err := FromText("a bb ccc "+tokenizer.EndOfText+" dddd", enc, tokenizer.DefaultSpecial, 2, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, enc.calls)
	assert.Equal(t, tokenizer.DefaultSpecial, enc.allowed)
	require.Equal(t, 3, ds.Len())

	ex, err := ds.Get(2)
	require.NoError(t, err)
	assert.Equal(t, []int32{3, 0}, ex.Input)
	assert.Equal(t, []int32{0, 4}, ex.Target)
}

func TestFromTextValidatesBeforeEncoding(t *testing.T) {
	enc := &wordEncoder{}
	_, err := FromText("a b c", enc, nil, 0, 1)
	assert.ErrorIs(t, err, ErrInvalidConfig)
	_, err = FromText("a b c", enc, nil, 2, -1)
	assert.ErrorIs(t, err, ErrInvalidConfig)
	assert.Zero(t, enc.calls)

	_, err = FromText("a b c", nil, nil, 2, 1)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestFromTextEncoderError(t *testing.T) {
	_, err := FromText("a", failingEncoder{}, nil, 2, 1)
	assert.EqualError(t, err, "encoding text: boom")
}

func TestFromTextVocab(t *testing.T) {
	v, err := tokenizer.NewVocab(
		[]string{"a", "b", " ", tokenizer.EndOfText},
		map[string]int32{tokenizer.EndOfText: 3},
	)
	require.NoError(t, err)
	ds, err := FromText("ab"+tokenizer.EndOfText+"ba", v, tokenizer.DefaultSpecial, 3, 3)
	require.NoError(t, err)
	require.Equal(t, 1, ds.Len())
	ex, err := ds.Get(0)
	require.NoError(t, err)
	assert.Equal(t, []int32{0, 1, 3}, ex.Input)
	assert.Equal(t, []int32{1, 3, 1}, ex.Target)
}

func TestNewTextLoader(t *testing.T) {
	cfg := TextLoaderConfig{
		BatchSize: 2,
		MaxLength: 2,
		Stride:    1,
		Encoder:   &wordEncoder{},
	}
	// Seven words give five windows of two.
	loader, err := NewTextLoader("a bb ccc dddd eeeee ffffff ggggggg", cfg)
	require.NoError(t, err)
	assert.Equal(t, 5, loader.Dataset().Len())

	var sizes []int
	for {
		batch, err := loader.NextBatch()
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
		sizes = append(sizes, batch.Size())
	}
	assert.Equal(t, []int{2, 2, 1}, sizes)
}

func TestNewTextLoaderDefaultsSpecial(t *testing.T) {
	enc := &wordEncoder{}
	cfg := DefaultTextLoaderConfig()
	cfg.Encoder = enc
	_, err := NewTextLoader("a b", cfg)
	require.NoError(t, err)
	assert.Equal(t, tokenizer.DefaultSpecial, enc.allowed)
}

func TestNewTextLoaderInvalidConfig(t *testing.T) {
	base := TextLoaderConfig{BatchSize: 2, MaxLength: 2, Stride: 1, Encoder: &wordEncoder{}}
	tests := []struct {
		name   string
		mutate func(*TextLoaderConfig)
	}{
		{"batch size", func(c *TextLoaderConfig) { c.BatchSize = 0 }},
		{"max length", func(c *TextLoaderConfig) { c.MaxLength = -1 }},
		{"stride", func(c *TextLoaderConfig) { c.Stride = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base
			tt.mutate(&cfg)
			_, err := NewTextLoader("a b c", cfg)
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}
