// Package tokenizer adapts text encoders to the token id streams the data
// package windows into training examples.
package tokenizer

import "errors"

const (
	// EndOfText is the marker separating documents in GPT-2 style corpora.
	EndOfText = "<|endoftext|>"
	// GPT2EOT is the id GPT-2 reserves for EndOfText.
	GPT2EOT int32 = 50256
)

// DefaultSpecial is the special marker set passed through by default.
var DefaultSpecial = []string{EndOfText}

var (
	// ErrUnknownToken is returned when a byte sequence has no vocabulary entry.
	ErrUnknownToken = errors.New("tokenizer: no token for input")
	// ErrInvalidToken is returned when decoding an id outside the vocabulary.
	ErrInvalidToken = errors.New("tokenizer: not a valid token")
	// ErrUnknownSpecial is returned when an allowed special marker is not
	// registered with the encoder.
	ErrUnknownSpecial = errors.New("tokenizer: unknown special marker")
)

// Encoder turns text into token ids.
//
// Every marker in allowedSpecial that occurs in text encodes to its single
// reserved id. Markers outside the set are encoded as ordinary text.
type Encoder interface {
	Encode(text string, allowedSpecial []string) ([]int32, error)
}

// Decoder turns token ids back into text.
type Decoder interface {
	Decode(ids []int32) (string, error)
}

// Tokenizer is an interface for tokenizing text in both directions.
type Tokenizer interface {
	Encoder
	Decoder
}
